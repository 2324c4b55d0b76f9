package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	applogger "LunarPull/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type httpMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight prometheus.Gauge
	size     *prometheus.HistogramVec
}

var (
	defaultMetrics *httpMetrics
	metricsOnce    sync.Once
)

func newHTTPMetrics(reg prometheus.Registerer) *httpMetrics {
	f := promauto.With(reg)
	return &httpMetrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lunarpull",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"route", "method", "class"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "lunarpull",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"route", "method", "class"}),
		inFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "lunarpull",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Current number of in-flight HTTP requests",
		}),
		size: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "lunarpull",
			Subsystem: "http",
			Name:      "response_size_bytes",
			Help:      "HTTP response size in bytes",
			Buckets:   prometheus.ExponentialBuckets(256, 4, 8),
		}, []string{"route"}),
	}
}

// Metrics is a net/http middleware recording request counts, latency and
// response size. Mount RouteLabel ahead of it so labels carry route templates
// such as "/api/returns" rather than raw paths.
func Metrics(l *applogger.Logger, slowThreshold time.Duration) func(http.Handler) http.Handler {
	metricsOnce.Do(func() { defaultMetrics = newHTTPMetrics(prometheus.DefaultRegisterer) })
	return instrument(defaultMetrics, l, slowThreshold)
}

func instrument(m *httpMetrics, l *applogger.Logger, slowThreshold time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m.inFlight.Inc()
			defer m.inFlight.Dec()

			start := time.Now()
			rw := &metricsResponseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rw, r)
			elapsed := time.Since(start)

			route, class := routeLabel(r), statusClass(rw.status)
			m.requests.WithLabelValues(route, r.Method, class).Inc()
			m.duration.WithLabelValues(route, r.Method, class).Observe(elapsed.Seconds())
			m.size.WithLabelValues(route).Observe(float64(rw.written))

			if l == nil {
				return
			}
			fields := []applogger.Field{
				applogger.String("route", route),
				applogger.String("method", r.Method),
				applogger.String("status", strconv.Itoa(rw.status)),
				applogger.Duration("duration", elapsed),
			}
			switch {
			case rw.status >= 500:
				l.Error("http request failed", fields...)
			case slowThreshold > 0 && elapsed >= slowThreshold:
				l.Warn("http request slow", fields...)
			}
		})
	}
}

type metricsResponseWriter struct {
	http.ResponseWriter
	status  int
	written int
}

func (w *metricsResponseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *metricsResponseWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.written += n
	return n, err
}

type routeKey struct{}

func withRoute(ctx context.Context, route string) context.Context {
	return context.WithValue(ctx, routeKey{}, route)
}

// routeLabel prefers the route template set by RouteLabel, falling back to
// "unmatched".
func routeLabel(r *http.Request) string {
	if s, ok := r.Context().Value(routeKey{}).(string); ok && s != "" {
		return s
	}
	return "unmatched"
}

func statusClass(code int) string {
	if code < 100 || code > 599 {
		return "5xx"
	}
	return strconv.Itoa(code/100) + "xx"
}
