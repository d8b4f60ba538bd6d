// Package main provides simrobot, an off-robot harness that runs a small
// robot program against the simulated device bus. It exists to exercise the
// runtime end to end: port claiming, per-unit executors, timer futures and
// fault isolation, without controller hardware.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configFile string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "simrobot",
	Short: "Run a simulated robot program on the robot runtime",
	Long: `simrobot drives the go-robot-runtime stack against an in-memory
device bus: it claims ports from the registry, spawns scheduled units with
their own executors, and reports executor metrics when the run ends.`,
	PersistentPreRunE: initConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: simrobot.yaml in the working directory)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig(cmd *cobra.Command, args []string) error {
	viper.SetDefault("drive.left_port", 1)
	viper.SetDefault("drive.right_port", 10)
	viper.SetDefault("sensor.port", 3)
	viper.SetDefault("tick", "20ms")
	viper.SetDefault("duration", "2s")

	viper.SetEnvPrefix("SIMROBOT")
	viper.AutomaticEnv()

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("simrobot")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults and env cover everything.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && configFile != "" {
			return err
		}
	}
	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("simrobot 0.3.0")
	},
}
