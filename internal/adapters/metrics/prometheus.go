// Package metrics exposes pipeline timings and request outcomes in the Prometheus format.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"mosaic/internal/core/port"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mosaic"

type Prometheus struct {
	registry *prometheus.Registry
	stages   *prometheus.HistogramVec
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	inFlight prometheus.Gauge
}

// NewPrometheus registers its collectors on a private registry, so several instances can
// coexist in tests.
func NewPrometheus() *Prometheus {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		stages: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each pipeline stage.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"stage"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Mosaic requests by output format and response status.",
		}, []string{"format", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "End to end mosaic request latency.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"format"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "in_flight_requests",
			Help:      "Requests currently holding a pipeline permit.",
		}),
	}

	p.registry.MustRegister(
		p.stages,
		p.requests,
		p.latency,
		p.inFlight,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return p
}

func (p *Prometheus) ObserveStage(stage port.Stage, d time.Duration) {
	p.stages.WithLabelValues(string(stage)).Observe(d.Seconds())
}

func (p *Prometheus) ObserveRequest(format string, status int, d time.Duration) {
	p.requests.WithLabelValues(format, strconv.Itoa(status)).Inc()
	p.latency.WithLabelValues(format).Observe(d.Seconds())
}

func (p *Prometheus) InFlight(delta int) {
	p.inFlight.Add(float64(delta))
}

func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}
