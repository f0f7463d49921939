package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the registry's Prometheus metrics.
type Metrics struct {
	PropertiesRegistered prometheus.Counter
	PropertiesVerified   prometheus.Counter
	TransfersCommitted   prometheus.Counter
	TransfersRejected    *prometheus.CounterVec
}

// New creates and registers the registry metrics.
func New() *Metrics {
	return &Metrics{
		PropertiesRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "landledger_properties_registered_total",
			Help: "Total properties registered",
		}),
		PropertiesVerified: promauto.NewCounter(prometheus.CounterOpts{
			Name: "landledger_properties_verified_total",
			Help: "Total properties verified by the admin",
		}),
		TransfersCommitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "landledger_transfers_committed_total",
			Help: "Total ownership transfers committed to the log",
		}),
		TransfersRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "landledger_transfers_rejected_total",
			Help: "Ownership transfers rejected, by reason code",
		}, []string{"reason"}),
	}
}

// IncTransferRejected counts a rejected transfer under its error code.
func (m *Metrics) IncTransferRejected(reason string) {
	if m == nil {
		return
	}
	m.TransfersRejected.WithLabelValues(reason).Inc()
}
