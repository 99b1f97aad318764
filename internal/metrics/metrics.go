package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "streamguide"

// Metrics holds the collectors exported on /metrics. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry      *prometheus.Registry
	providerCalls *prometheus.CounterVec
	passRuns      *prometheus.CounterVec
	passItems     *prometheus.CounterVec
	linkChecks    *prometheus.CounterVec
	apiRequests   *prometheus.CounterVec
}

// New registers the streamguide collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		providerCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_calls_total",
			Help:      "External provider calls recorded in the quota log.",
		}, []string{"provider", "success"}),
		passRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pass_runs_total",
			Help:      "Enrichment pass executions by outcome.",
		}, []string{"pass", "outcome"}),
		passItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pass_items_total",
			Help:      "Titles or links handled by an enrichment pass.",
		}, []string{"pass", "result"}),
		linkChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "link_checks_total",
			Help:      "Stream URL checks by classification.",
		}, []string{"result"}),
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Read API requests by route and status code.",
		}, []string{"route", "code"}),
	}
	m.registry.MustRegister(
		m.providerCalls,
		m.passRuns,
		m.passItems,
		m.linkChecks,
		m.apiRequests,
		prometheus.NewGoCollector(),
	)
	return m
}

// ProviderCall counts one provider call.
func (m *Metrics) ProviderCall(provider string, success bool) {
	if m == nil {
		return
	}
	m.providerCalls.WithLabelValues(provider, strconv.FormatBool(success)).Inc()
}

// PassRun counts one pass execution. outcome is typically ok, skipped,
// stopped, or error.
func (m *Metrics) PassRun(pass, outcome string) {
	if m == nil {
		return
	}
	m.passRuns.WithLabelValues(pass, outcome).Inc()
}

// PassItems adds n handled items under result.
func (m *Metrics) PassItems(pass, result string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.passItems.WithLabelValues(pass, result).Add(float64(n))
}

// LinkCheck counts one check.
func (m *Metrics) LinkCheck(result string) {
	if m == nil {
		return
	}
	m.linkChecks.WithLabelValues(result).Inc()
}

// APIRequest counts one read API response.
func (m *Metrics) APIRequest(route string, code int) {
	if m == nil {
		return
	}
	m.apiRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}
