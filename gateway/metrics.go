package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sony/gobreaker"
)

const (
	OutcomeProxied     = "proxied"
	OutcomeFallback    = "fallback"
	OutcomeRateLimited = "rate_limited"
	OutcomeNoRoute     = "no_route"
)

type Metrics struct {
	requests     *prometheus.CounterVec
	rejections   *prometheus.CounterVec
	breakerState *prometheus.GaugeVec
}

// NewMetrics registers the gateway collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "edgeguard",
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "Requests handled by the gateway by route and outcome.",
		}, []string{"route", "outcome"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "edgeguard",
			Subsystem: "gateway",
			Name:      "ratelimit_rejections_total",
			Help:      "Requests rejected by the rate limiter by tier.",
		}, []string{"tier"}),
		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "edgeguard",
			Subsystem: "gateway",
			Name:      "breaker_state",
			Help:      "Circuit breaker state per service (0 closed, 1 half-open, 2 open).",
		}, []string{"service"}),
	}

	if reg != nil {
		reg.MustRegister(m.requests, m.rejections, m.breakerState)
	}
	return m
}

func (m *Metrics) request(route, outcome string) {
	m.requests.WithLabelValues(route, outcome).Inc()
}

func (m *Metrics) rejected(tier string) {
	m.rejections.WithLabelValues(tier).Inc()
}

func (m *Metrics) breaker(service string, state gobreaker.State) {
	m.breakerState.WithLabelValues(service).Set(float64(state))
}

// NewRegistry returns a registry carrying the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry
}
