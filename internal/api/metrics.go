package api

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// metrics holds the server's Prometheus collectors on a private registry so
// several servers can coexist in one process.
type metrics struct {
	reg *prometheus.Registry

	weeksStepped  prometheus.Counter
	stepDuration  prometheus.Histogram
	modelsCreated prometheus.Counter
	requests      *prometheus.CounterVec
}

func newMetrics(liveModels func() float64) *metrics {
	m := &metrics{
		reg: prometheus.NewRegistry(),
		weeksStepped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "econsim",
			Name:      "weeks_stepped_total",
			Help:      "Simulated weeks completed across all models.",
		}),
		stepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "econsim",
			Name:      "step_request_duration_seconds",
			Help:      "Wall time of step requests.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		modelsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "econsim",
			Name:      "models_created_total",
			Help:      "Models created since start.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "econsim",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
	}
	m.reg.MustRegister(
		m.weeksStepped,
		m.stepDuration,
		m.modelsCreated,
		m.requests,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "econsim",
			Name:      "live_models",
			Help:      "Models currently held in memory.",
		}, liveModels),
		collectors.NewGoCollector(),
	)
	return m
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// statusRecorder captures the response code for request metrics.
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument counts requests for route.
func (m *metrics) instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next(rec, r)
		m.requests.WithLabelValues(route, strconv.Itoa(rec.code)).Inc()
	}
}
