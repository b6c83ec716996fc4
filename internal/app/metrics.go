package app

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/large-farva/antpos/internal/ws"
)

// metrics bundles the daemon's Prometheus collectors. Each App owns its own
// registry so tests can build any number of them.
type metrics struct {
	reg *prometheus.Registry

	requests  *prometheus.CounterVec
	durations *prometheus.HistogramVec

	generation prometheus.Gauge
	stations   prometheus.Gauge
	antennas   prometheus.Gauge
	reloads    *prometheus.CounterVec
}

func newMetrics(hub *ws.Hub) *metrics {
	m := &metrics{
		reg: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "antpos_http_requests_total",
			Help: "Handled HTTP requests, labeled by route and status code.",
		}, []string{"route", "code"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "antpos_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
		}, []string{"route"}),
		generation: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "antpos_dataset_generation",
			Help: "Generation number of the registry currently served.",
		}),
		stations: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "antpos_dataset_stations",
			Help: "Stations in the registry currently served.",
		}),
		antennas: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "antpos_dataset_antennas",
			Help: "Antenna rows in the registry currently served.",
		}),
		reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "antpos_dataset_reloads_total",
			Help: "Dataset load attempts, labeled by result.",
		}, []string{"result"}),
	}

	m.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests, m.durations,
		m.generation, m.stations, m.antennas, m.reloads,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "antpos_ws_clients",
			Help: "Connected WebSocket clients.",
		}, func() float64 { return float64(hub.Clients()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "antpos_ws_dropped_events_total",
			Help: "Events dropped because the broadcast queue was full.",
		}, func() float64 { return float64(hub.Dropped()) }),
	)
	return m
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// instrument records request counts and durations for one route.
func (m *metrics) instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)
		m.requests.WithLabelValues(route, strconv.Itoa(rec.code)).Inc()
		m.durations.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.code = code
	s.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer, which the
// WebSocket upgrade needs for hijacking.
func (s *statusRecorder) Unwrap() http.ResponseWriter { return s.ResponseWriter }
