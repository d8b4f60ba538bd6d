package prometheus

import (
	"errors"
	"fmt"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/vexgo/go-robot-runtime/async"
)

// ExporterOptions controls collector configuration.
type ExporterOptions struct {
	DurationBuckets []float64
}

// MetricsExporter adapts async.Metrics to Prometheus collectors. On a robot
// this typically feeds an off-board scrape over the wireless link; in
// simulation it feeds a local registry.
type MetricsExporter struct {
	pollDurationSeconds *prom.HistogramVec
	taskPanicTotal      *prom.CounterVec
	taskCancelledTotal  *prom.CounterVec
	queueDepth          *prom.GaugeVec
}

var _ async.Metrics = (*MetricsExporter)(nil)

// NewMetricsExporter creates and registers Prometheus collectors for
// async.Metrics.
func NewMetricsExporter(namespace string, reg prom.Registerer, opts ExporterOptions) (*MetricsExporter, error) {
	if namespace == "" {
		namespace = "robotruntime"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	buckets := opts.DurationBuckets
	if len(buckets) == 0 {
		buckets = prom.DefBuckets
	}

	durationVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "poll_duration_seconds",
		Help:      "Duration of one task poll step in seconds.",
		Buckets:   buckets,
	}, []string{"executor"})
	panicVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "task_panic_total",
		Help:      "Total number of task panics caught at the poll boundary.",
	}, []string{"executor"})
	cancelledVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "task_cancelled_total",
		Help:      "Total number of observed task cancellations.",
	}, []string{"executor"})
	queueDepthVec := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "queue_depth",
		Help:      "Current run-queue depth.",
	}, []string{"executor"})

	var err error
	if durationVec, err = registerCollector(reg, durationVec); err != nil {
		return nil, err
	}
	if panicVec, err = registerCollector(reg, panicVec); err != nil {
		return nil, err
	}
	if cancelledVec, err = registerCollector(reg, cancelledVec); err != nil {
		return nil, err
	}
	if queueDepthVec, err = registerCollector(reg, queueDepthVec); err != nil {
		return nil, err
	}

	return &MetricsExporter{
		pollDurationSeconds: durationVec,
		taskPanicTotal:      panicVec,
		taskCancelledTotal:  cancelledVec,
		queueDepth:          queueDepthVec,
	}, nil
}

// RecordPollDuration records the duration of one poll step.
func (m *MetricsExporter) RecordPollDuration(executor string, duration time.Duration) {
	if m == nil {
		return
	}
	m.pollDurationSeconds.WithLabelValues(normalizeLabel(executor, "unknown")).Observe(duration.Seconds())
}

// RecordTaskPanic records a caught task fault.
func (m *MetricsExporter) RecordTaskPanic(executor string) {
	if m == nil {
		return
	}
	m.taskPanicTotal.WithLabelValues(normalizeLabel(executor, "unknown")).Inc()
}

// RecordTaskCancelled records an observed cancellation.
func (m *MetricsExporter) RecordTaskCancelled(executor string) {
	if m == nil {
		return
	}
	m.taskCancelledTotal.WithLabelValues(normalizeLabel(executor, "unknown")).Inc()
}

// RecordQueueDepth records the run-queue depth.
func (m *MetricsExporter) RecordQueueDepth(executor string, depth int) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues(normalizeLabel(executor, "unknown")).Set(float64(depth))
}

func normalizeLabel(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func registerCollector[T prom.Collector](reg prom.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var alreadyRegisteredErr prom.AlreadyRegisteredError
	if errors.As(err, &alreadyRegisteredErr) {
		existing, ok := alreadyRegisteredErr.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}

	return collector, err
}
