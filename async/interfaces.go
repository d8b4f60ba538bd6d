package async

import (
	"fmt"
	"log"
	"os"
	"time"
)

// =============================================================================
// PanicHandler: Interface for handling task faults
// =============================================================================

// PanicHandler is called when a task panics during a poll step.
//
// The panic has already been caught at the task boundary by the time the
// handler runs; the handler only decides where the diagnostic goes.
// Implementations should be thread-safe.
type PanicHandler interface {
	// HandlePanic receives the identity of the faulting task, the recovered
	// panic value, and the stack trace captured at the fault.
	HandlePanic(taskID uint64, taskName string, panicInfo any, stackTrace []byte)
}

// DefaultPanicHandler writes the diagnostic to stderr, which on a robot
// controller is the serial diagnostic channel.
type DefaultPanicHandler struct{}

func (h *DefaultPanicHandler) HandlePanic(taskID uint64, taskName string, panicInfo any, stackTrace []byte) {
	fmt.Fprintf(os.Stderr, "[task %d %q] panic: %v\nstack trace:\n%s",
		taskID, taskName, panicInfo, stackTrace)
}

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// Metrics collects executor execution metrics. Implementations can forward
// them to monitoring systems (Prometheus, StatsD, etc.).
//
// Methods must be non-blocking and fast; they run inside the executor loop.
type Metrics interface {
	// RecordPollDuration records how long one poll step took.
	RecordPollDuration(executor string, duration time.Duration)

	// RecordTaskPanic records that a task faulted during a poll step.
	RecordTaskPanic(executor string)

	// RecordTaskCancelled records that a cancellation request was observed.
	RecordTaskCancelled(executor string)

	// RecordQueueDepth records the run-queue depth after an enqueue.
	RecordQueueDepth(executor string, depth int)
}

// NilMetrics is the default no-op Metrics implementation.
type NilMetrics struct{}

func (m *NilMetrics) RecordPollDuration(executor string, duration time.Duration) {}
func (m *NilMetrics) RecordTaskPanic(executor string)                            {}
func (m *NilMetrics) RecordTaskCancelled(executor string)                        {}
func (m *NilMetrics) RecordQueueDepth(executor string, depth int)                {}

// =============================================================================
// Logger
// =============================================================================

// Logger is the structured logging interface used by the executor.
// Implementations can bridge to any logging backend.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// Field is a key-value pair attached to a log message.
type Field struct {
	Key   string
	Value any
}

// F creates a new Field.
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// DefaultLogger logs through the standard log package.
type DefaultLogger struct{}

func NewDefaultLogger() *DefaultLogger { return &DefaultLogger{} }

func (l *DefaultLogger) Debug(msg string, fields ...Field) { l.log("DEBUG", msg, fields...) }
func (l *DefaultLogger) Info(msg string, fields ...Field)  { l.log("INFO", msg, fields...) }
func (l *DefaultLogger) Warn(msg string, fields ...Field)  { l.log("WARN", msg, fields...) }
func (l *DefaultLogger) Error(msg string, fields ...Field) { l.log("ERROR", msg, fields...) }

func (l *DefaultLogger) log(level, msg string, fields ...Field) {
	logMsg := fmt.Sprintf("[%s] %s", level, msg)
	if len(fields) > 0 {
		logMsg += " {"
		for i, f := range fields {
			if i > 0 {
				logMsg += ", "
			}
			logMsg += fmt.Sprintf("%s: %v", f.Key, f.Value)
		}
		logMsg += "}"
	}
	log.Println(logMsg)
}

// NoOpLogger discards all log messages. Useful for tests.
type NoOpLogger struct{}

func NewNoOpLogger() *NoOpLogger { return &NoOpLogger{} }

func (l *NoOpLogger) Debug(msg string, fields ...Field) {}
func (l *NoOpLogger) Info(msg string, fields ...Field)  {}
func (l *NoOpLogger) Warn(msg string, fields ...Field)  {}
func (l *NoOpLogger) Error(msg string, fields ...Field) {}

// =============================================================================
// ExecutorConfig
// =============================================================================

// ExecutorConfig holds the optional collaborators of an Executor.
// Missing fields are filled with defaults.
type ExecutorConfig struct {
	// PanicHandler receives task faults. Defaults to DefaultPanicHandler.
	PanicHandler PanicHandler

	// Metrics records execution metrics. Defaults to NilMetrics.
	Metrics Metrics

	// Logger receives executor lifecycle logs. Defaults to NoOpLogger.
	Logger Logger
}

// DefaultExecutorConfig returns a config with default collaborators.
func DefaultExecutorConfig() *ExecutorConfig {
	return &ExecutorConfig{
		PanicHandler: &DefaultPanicHandler{},
		Metrics:      &NilMetrics{},
		Logger:       NewNoOpLogger(),
	}
}
