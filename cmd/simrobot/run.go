package main

import (
	"context"
	"fmt"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	robotruntime "github.com/vexgo/go-robot-runtime"
	"github.com/vexgo/go-robot-runtime/async"
	"github.com/vexgo/go-robot-runtime/hal"
	promexport "github.com/vexgo/go-robot-runtime/observability/prometheus"
	"github.com/vexgo/go-robot-runtime/peripherals"
	"github.com/vexgo/go-robot-runtime/rtos"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the simulated robot program",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProgram()
	},
}

// motor control registers on the simulated bus
const (
	regMotorVoltage = 0
	regSensorValue  = 4
)

func runProgram() error {
	tick := viper.GetDuration("tick")
	duration := viper.GetDuration("duration")
	leftPort := viper.GetInt("drive.left_port")
	rightPort := viper.GetInt("drive.right_port")
	sensorPort := viper.GetInt("sensor.port")

	registry := prom.NewRegistry()
	exporter, err := promexport.NewMetricsExporter("simrobot", registry, promexport.ExporterOptions{})
	if err != nil {
		return err
	}
	robotruntime.Configure(&async.ExecutorConfig{
		Metrics: exporter,
		Logger:  async.NewDefaultLogger(),
	})

	ports := peripherals.NewRegistry()
	left, err := ports.TakeSmartPort(leftPort)
	if err != nil {
		return err
	}
	defer left.Close()
	right, err := ports.TakeSmartPort(rightPort)
	if err != nil {
		return err
	}
	defer right.Close()
	sensor, err := ports.TakeSmartPort(sensorPort)
	if err != nil {
		return err
	}
	defer sensor.Close()

	bus := hal.NewSimBus()

	unit := rtos.NewBuilder().Name("opcontrol").Spawn(func(ctx context.Context) {
		driveHandle, _ := robotruntime.Spawn(ctx, driveLoop(bus, left.Number(), right.Number(), tick))
		sensorHandle, _ := robotruntime.Spawn(ctx, sensorLoop(bus, sensor.Number(), tick))

		// A deliberately faulting sibling: the drive and sensor loops must
		// be unaffected, and the fault shows up on the diagnostic channel.
		faulty, _ := robotruntime.Spawn(ctx, async.FutureFunc[struct{}](
			func(cx *async.Context) (struct{}, bool) {
				panic("simulated driver fault")
			}))
		faulty.Detach()

		_, _ = robotruntime.BlockOn(ctx, async.Sleep(duration))

		driveHandle.Cancel()
		sensorHandle.Cancel()
		// One more turn of the loop so the cancellations are observed.
		_, _ = robotruntime.BlockOn(ctx, async.YieldNow())
	})

	if err := unit.Join(context.Background()); err != nil {
		return err
	}

	return reportMetrics(registry)
}

// driveLoop alternates the drive voltage every tick, the shape of a real
// opcontrol loop with controller input replaced by a square wave.
func driveLoop(bus hal.DeviceBus, left, right int, tick time.Duration) async.Future[int] {
	ticks := 0
	var sleep *async.SleepFuture
	return async.FutureFunc[int](func(cx *async.Context) (int, bool) {
		for {
			if sleep != nil {
				if _, done := sleep.Poll(cx); !done {
					return 0, false
				}
				sleep = nil
			}

			voltage := int32(6000)
			if ticks%2 == 1 {
				voltage = -6000
			}
			if err := bus.WriteWord(left, regMotorVoltage, voltage); err != nil {
				return ticks, true
			}
			if err := bus.WriteWord(right, regMotorVoltage, -voltage); err != nil {
				return ticks, true
			}
			ticks++
			sleep = robotruntime.Sleep(tick)
		}
	})
}

// sensorLoop polls the simulated sensor register every tick.
func sensorLoop(bus hal.DeviceBus, port int, tick time.Duration) async.Future[int] {
	reads := 0
	var sleep *async.SleepFuture
	return async.FutureFunc[int](func(cx *async.Context) (int, bool) {
		for {
			if sleep != nil {
				if _, done := sleep.Poll(cx); !done {
					return 0, false
				}
				sleep = nil
			}

			if _, err := bus.ReadWord(port, regSensorValue); err != nil {
				return reads, true
			}
			reads++
			sleep = robotruntime.Sleep(tick)
		}
	})
}

func reportMetrics(registry *prom.Registry) error {
	families, err := registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				fmt.Printf("%s %v\n", mf.GetName(), m.GetCounter().GetValue())
			case m.GetGauge() != nil:
				fmt.Printf("%s %v\n", mf.GetName(), m.GetGauge().GetValue())
			case m.GetHistogram() != nil:
				fmt.Printf("%s count=%d\n", mf.GetName(), m.GetHistogram().GetSampleCount())
			}
		}
	}
	return nil
}
