package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the planning and render
// pipeline. A private registry keeps the scrape surface limited to our own
// series.
type Metrics struct {
	registry              *prometheus.Registry
	requestsTotal         prometheus.Counter
	errorsTotal           prometheus.Counter
	plansGeneratedTotal   prometheus.Counter
	plansFailedTotal      prometheus.Counter
	underConstrainedTotal prometheus.Counter
	rendersTotal          *prometheus.CounterVec
	activeRenders         prometheus.Gauge
}

// New creates and registers the engine's Prometheus metrics.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "broll_requests_total",
		Help: "Total number of HTTP requests received",
	})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "broll_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})
	plansGeneratedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "broll_plans_generated_total",
		Help: "Total number of timeline plans generated successfully",
	})
	plansFailedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "broll_plans_failed_total",
		Help: "Total number of plan generation attempts that failed",
	})
	underConstrainedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "broll_plans_under_constrained_total",
		Help: "Total number of plans that kept fewer insertions than the configured minimum",
	})
	rendersTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "broll_renders_total",
		Help: "Total number of render jobs reaching a terminal status",
	}, []string{"status"})
	activeRenders := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "broll_active_renders",
		Help: "Number of render jobs currently processing",
	})

	registry.MustRegister(
		requestsTotal,
		errorsTotal,
		plansGeneratedTotal,
		plansFailedTotal,
		underConstrainedTotal,
		rendersTotal,
		activeRenders,
	)

	return &Metrics{
		registry:              registry,
		requestsTotal:         requestsTotal,
		errorsTotal:           errorsTotal,
		plansGeneratedTotal:   plansGeneratedTotal,
		plansFailedTotal:      plansFailedTotal,
		underConstrainedTotal: underConstrainedTotal,
		rendersTotal:          rendersTotal,
		activeRenders:         activeRenders,
	}
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncErrors increments the error response counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// PlanGenerated records a successful plan, flagging under-constrained results.
func (m *Metrics) PlanGenerated(underConstrained bool) {
	m.plansGeneratedTotal.Inc()
	if underConstrained {
		m.underConstrainedTotal.Inc()
	}
}

// IncPlansFailed increments the failed plan counter.
func (m *Metrics) IncPlansFailed() {
	m.plansFailedTotal.Inc()
}

// RenderFinished records a render job reaching a terminal status.
func (m *Metrics) RenderFinished(status string) {
	m.rendersTotal.WithLabelValues(status).Inc()
}

// RenderStarted increments the active renders gauge.
func (m *Metrics) RenderStarted() {
	m.activeRenders.Inc()
}

// RenderDone decrements the active renders gauge.
func (m *Metrics) RenderDone() {
	m.activeRenders.Dec()
}

// Handler returns an http.Handler serving the engine's metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
