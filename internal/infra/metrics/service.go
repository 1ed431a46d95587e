package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels
const (
	OutcomeSuccess    = "success"
	OutcomeError      = "error"
	OutcomeSuperseded = "superseded"
)

// ServiceMetrics counts feed, transfer and allowance activity
type ServiceMetrics struct {
	feedBuilds        *prometheus.CounterVec
	feedWarnings      prometheus.Counter
	transfers         *prometheus.CounterVec
	transferredSats   prometheus.Counter
	allowanceFailures *prometheus.CounterVec
	allowanceWallets  prometheus.Counter
}

func newServiceMetrics(reg prometheus.Registerer) *ServiceMetrics {
	m := &ServiceMetrics{
		feedBuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_builds_total",
			Help:      "Number of feed computations by outcome.",
		}, []string{"outcome"}),
		feedWarnings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_warnings_total",
			Help:      "Number of wallets whose payments could not be read while building a feed.",
		}),
		transfers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transfers_total",
			Help:      "Number of wallet to wallet transfers by outcome.",
		}, []string{"outcome"}),
		transferredSats: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transferred_sats_total",
			Help:      "Sats moved by successful transfers.",
		}),
		allowanceFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "allowance_failures_total",
			Help:      "Number of allowance job failures by stage.",
		}, []string{"stage"}),
		allowanceWallets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "allowance_topups_total",
			Help:      "Number of allowance wallets topped up.",
		}),
	}

	reg.MustRegister(m.feedBuilds, m.feedWarnings, m.transfers, m.transferredSats, m.allowanceFailures, m.allowanceWallets)

	return m
}

// RecordFeed counts one feed computation and its per-wallet warnings
func (m *ServiceMetrics) RecordFeed(outcome string, warnings int) {
	if m == nil {
		return
	}
	m.feedBuilds.WithLabelValues(outcome).Inc()
	m.feedWarnings.Add(float64(warnings))
}

// RecordTransfer counts one transfer attempt
func (m *ServiceMetrics) RecordTransfer(outcome string, amountSats int64) {
	if m == nil {
		return
	}
	m.transfers.WithLabelValues(outcome).Inc()
	if outcome == OutcomeSuccess {
		m.transferredSats.Add(float64(amountSats))
	}
}

// RecordAllowance counts the outcome of one allowance run
func (m *ServiceMetrics) RecordAllowance(toppedUp int, failedStages []string) {
	if m == nil {
		return
	}
	m.allowanceWallets.Add(float64(toppedUp))
	for _, stage := range failedStages {
		m.allowanceFailures.WithLabelValues(stage).Inc()
	}
}
