// Package metrics exposes Prometheus instrumentation for the facilitator:
// verification and settlement outcomes, chain gateway traffic, and ledger
// activity.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the facilitator's Prometheus collectors, registered against
// a private registry so tests can create isolated instances.
type Metrics struct {
	registry *prometheus.Registry

	verifyTotal   *prometheus.CounterVec
	settleTotal   *prometheus.CounterVec
	chainRequests *prometheus.CounterVec
	debitedSat    prometheus.Counter
	settledSat    prometheus.Counter
}

// New creates a Metrics instance with all collectors registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		verifyTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "opentab",
			Name:      "verify_total",
			Help:      "Payment verifications by outcome (valid or an invalid reason code).",
		}, []string{"outcome"}),
		settleTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "opentab",
			Name:      "settle_total",
			Help:      "Settlements by outcome (success or an error reason code).",
		}, []string{"outcome"}),
		chainRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "opentab",
			Name:      "chain_requests_total",
			Help:      "Chain gateway requests by endpoint and result.",
		}, []string{"endpoint", "result"}),
		debitedSat: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "opentab",
			Name:      "debited_satoshis_total",
			Help:      "Total satoshis debited from payer tabs.",
		}),
		settledSat: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "opentab",
			Name:      "settled_satoshis_total",
			Help:      "Total satoshis paid out to resource servers.",
		}),
	}

	registry.MustRegister(
		m.verifyTotal,
		m.settleTotal,
		m.chainRequests,
		m.debitedSat,
		m.settledSat,
	)
	return m
}

// outcomeValid labels successful verifications and settlements.
const outcomeValid = "valid"

// RecordVerify counts a verification outcome. An empty reason means valid.
func (m *Metrics) RecordVerify(invalidReason string, debitedSat int64) {
	outcome := invalidReason
	if outcome == "" {
		outcome = outcomeValid
		m.debitedSat.Add(float64(debitedSat))
	}
	m.verifyTotal.WithLabelValues(outcome).Inc()
}

// RecordSettle counts a settlement outcome. An empty reason means success.
func (m *Metrics) RecordSettle(errorReason string, settledSat int64) {
	outcome := errorReason
	if outcome == "" {
		outcome = outcomeValid
		m.settledSat.Add(float64(settledSat))
	}
	m.settleTotal.WithLabelValues(outcome).Inc()
}

// RecordChainRequest counts a chain gateway call.
func (m *Metrics) RecordChainRequest(endpoint string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.chainRequests.WithLabelValues(endpoint, result).Inc()
}

// Handler serves the registry in the Prometheus text exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the underlying registry for tests.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}
