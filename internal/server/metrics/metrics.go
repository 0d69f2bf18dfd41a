// Package metrics defines the Prometheus instruments exported by the server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the server's Prometheus collectors around a dedicated
// registry so tests can construct isolated instances.
type Metrics struct {
	Registry *prometheus.Registry

	// StorageOps counts gateway operations by op (put/get/delete),
	// backend (remote/local) and outcome (ok/error).
	StorageOps *prometheus.CounterVec

	// ShareVerifications counts public share access decisions by outcome.
	ShareVerifications *prometheus.CounterVec

	// QuotaRejections counts uploads refused by the ledger.
	QuotaRejections prometheus.Counter
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	return &Metrics{
		Registry: registry,
		StorageOps: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "cloudvault_storage_operations_total",
			Help: "Storage gateway operations by op, backend and outcome.",
		}, []string{"op", "backend", "outcome"}),
		ShareVerifications: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "cloudvault_share_verifications_total",
			Help: "Public share verification decisions by outcome.",
		}, []string{"outcome"}),
		QuotaRejections: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "cloudvault_quota_rejections_total",
			Help: "Uploads refused because the principal's quota was exhausted.",
		}),
	}
}

// ObserveStorageOp records one gateway operation.
func (m *Metrics) ObserveStorageOp(op, backend string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.StorageOps.WithLabelValues(op, backend, outcome).Inc()
}

// ObserveShareDecision records one share verification outcome.
func (m *Metrics) ObserveShareDecision(outcome string) {
	if m == nil {
		return
	}
	m.ShareVerifications.WithLabelValues(outcome).Inc()
}

// ObserveQuotaRejection records one refused upload.
func (m *Metrics) ObserveQuotaRejection() {
	if m == nil {
		return
	}
	m.QuotaRejections.Inc()
}
