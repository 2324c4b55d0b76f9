package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	QueryLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lunarpull",
			Subsystem: "api",
			Name:      "query_latency_seconds",
			Help:      "Latency of read API queries",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	QueryErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lunarpull",
			Subsystem: "api",
			Name:      "query_errors_total",
			Help:      "Errors by read API endpoint",
		},
		[]string{"endpoint"},
	)

	QueryRows = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lunarpull",
			Subsystem: "api",
			Name:      "query_rows_total",
			Help:      "Rows returned by read API endpoint",
		},
		[]string{"endpoint"},
	)
)

// Register adds the API collectors to the default registry once.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(QueryLatency, QueryErrors, QueryRows)
	})
}

// Observe records one query outcome for endpoint.
func Observe(endpoint string, start time.Time, rows int, err error) {
	QueryLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		QueryErrors.WithLabelValues(endpoint).Inc()
		return
	}
	QueryRows.WithLabelValues(endpoint).Add(float64(rows))
}
