package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Recorder implements domain.repository.Metrics using Prometheus.
// Collectors live on their own registry so a batch run can push them.
type Recorder struct {
	registry    *prometheus.Registry
	stageTime   *prometheus.HistogramVec
	records     *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	phaseSource *prometheus.CounterVec
	pValue      *prometheus.GaugeVec
	lastRun     prometheus.Gauge
}

// New creates a new Prometheus metrics recorder on a private registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		registry: reg,
		stageTime: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lunarpull_stage_duration_seconds",
				Help:    "Duration of pipeline stages in seconds",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"stage"},
		),
		records: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lunarpull_records_total",
				Help: "Records produced or written, by kind and symbol",
			},
			[]string{"kind", "symbol"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lunarpull_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		phaseSource: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lunarpull_phase_calendar_source_total",
				Help: "Resolved calendars by source",
			},
			[]string{"source"},
		),
		pValue: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "lunarpull_anova_p_value",
				Help: "Latest ANOVA p-value of returns by lunar phase",
			},
			[]string{"symbol"},
		),
		lastRun: f.NewGauge(prometheus.GaugeOpts{
			Name: "lunarpull_last_run_timestamp_seconds",
			Help: "Unix time of the last completed run",
		}),
	}
}

// Registry exposes the recorder's registry, e.g. for the Kafka producer.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// RecordStage records the duration of a pipeline stage.
func (r *Recorder) RecordStage(stage string, seconds float64) {
	r.stageTime.WithLabelValues(stage).Observe(seconds)
}

// RecordRecords adds n records of the given kind for symbol.
func (r *Recorder) RecordRecords(kind, symbol string, n int) {
	r.records.WithLabelValues(kind, symbol).Add(float64(n))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordPhaseSource counts which source produced the calendar.
func (r *Recorder) RecordPhaseSource(source string) {
	r.phaseSource.WithLabelValues(source).Inc()
}

// RecordPValue sets the latest ANOVA p-value for symbol.
func (r *Recorder) RecordPValue(symbol string, p float64) {
	r.pValue.WithLabelValues(symbol).Set(p)
}

// MarkRun stamps the completion time of a run.
func (r *Recorder) MarkRun(unix float64) { r.lastRun.Set(unix) }

// Push sends the registry to a Pushgateway under job. A blank url is a no-op.
func (r *Recorder) Push(ctx context.Context, url, job string) error {
	if url == "" {
		return nil
	}
	pusher := push.New(url, job).Gatherer(r.registry)
	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
