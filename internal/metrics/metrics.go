package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gitlab.com/newsinsight.net/internal/core/ports/primary"
)

const namespace = "newsinsight"

// codeOK labels successful requests
const codeOK = "ok"

var _ primary.Metrics = (*Collectors)(nil)

// Collectors holds the Prometheus collectors of the service on a private registry
type Collectors struct {
	registry *prometheus.Registry

	requests       *prometheus.CounterVec
	latency        *prometheus.HistogramVec
	restarts       *prometheus.CounterVec
	queueDrops     prometheus.Counter
	activeSessions prometheus.Gauge
}

// NewCollectors creates and registers every collector
func NewCollectors() *Collectors {
	c := &Collectors{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orchestrator",
			Name:      "requests_total",
			Help:      "Jobs finished by the orchestrator, by task kind and outcome code",
		}, []string{"kind", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "orchestrator",
			Name:      "request_duration_seconds",
			Help:      "Time from dispatch to terminal outcome",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 15, 30},
		}, []string{"kind"}),
		restarts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orchestrator",
			Name:      "worker_restarts_total",
			Help:      "Workers restarted after a crash",
		}, []string{"kind"}),
		queueDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "queue_drops_total",
			Help:      "Messages evicted from full session queues",
		}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "active_sessions",
			Help:      "Sessions currently registered",
		}),
	}

	c.registry.MustRegister(
		c.requests,
		c.latency,
		c.restarts,
		c.queueDrops,
		c.activeSessions,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return c
}

func (c *Collectors) ObserveRequest(kind string, code string, elapsed time.Duration) {
	if code == "" {
		code = codeOK
	}
	c.requests.WithLabelValues(kind, code).Inc()
	c.latency.WithLabelValues(kind).Observe(elapsed.Seconds())
}

func (c *Collectors) WorkerRestarted(kind string) {
	c.restarts.WithLabelValues(kind).Inc()
}

func (c *Collectors) QueueDropped() {
	c.queueDrops.Inc()
}

func (c *Collectors) SessionsActive(n int) {
	c.activeSessions.Set(float64(n))
}

// Registry exposes the underlying registry
func (c *Collectors) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collectors) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Nop discards every observation
type Nop struct{}

var _ primary.Metrics = Nop{}

func (Nop) ObserveRequest(string, string, time.Duration) {}
func (Nop) WorkerRestarted(string) {}
func (Nop) QueueDropped() {}
func (Nop) SessionsActive(int) {}
