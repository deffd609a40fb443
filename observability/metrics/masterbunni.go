package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// MasterbunniMetrics aggregates the prometheus collectors describing reward
// engine activity. Operations are labelled by pool kind ("rush"/"recur").
type MasterbunniMetrics struct {
	joins           *prometheus.CounterVec
	exits           *prometheus.CounterVec
	claims          *prometheus.CounterVec
	incentiveCalls  *prometheus.CounterVec
	refunds         prometheus.Counter
	unlocks         prometheus.Counter
	rejectedBatches *prometheus.CounterVec
}

var (
	masterbunniOnce     sync.Once
	masterbunniRegistry *MasterbunniMetrics
)

// Masterbunni returns the process-wide collector set, registering it on
// first use.
func Masterbunni() *MasterbunniMetrics {
	masterbunniOnce.Do(func() {
		masterbunniRegistry = &MasterbunniMetrics{
			joins: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "masterbunni_joins_total",
				Help: "Count of pool join operations by pool kind.",
			}, []string{"kind"}),
			exits: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "masterbunni_exits_total",
				Help: "Count of pool exit operations by pool kind.",
			}, []string{"kind"}),
			claims: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "masterbunni_claims_total",
				Help: "Count of reward claim operations by pool kind.",
			}, []string{"kind"}),
			incentiveCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "masterbunni_incentive_calls_total",
				Help: "Count of incentive deposit/withdraw/top-up calls by pool kind.",
			}, []string{"kind"}),
			refunds: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "masterbunni_refunds_total",
				Help: "Count of rush incentive refund operations.",
			}),
			unlocks: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "masterbunni_unlocks_total",
				Help: "Count of unlock operations.",
			}),
			rejectedBatches: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "masterbunni_rejected_batches_total",
				Help: "Count of operations aborted by a hard failure, by reason.",
			}, []string{"reason"}),
		}
		prometheus.MustRegister(
			masterbunniRegistry.joins,
			masterbunniRegistry.exits,
			masterbunniRegistry.claims,
			masterbunniRegistry.incentiveCalls,
			masterbunniRegistry.refunds,
			masterbunniRegistry.unlocks,
			masterbunniRegistry.rejectedBatches,
		)
	})
	return masterbunniRegistry
}

func (m *MasterbunniMetrics) ObserveJoin(kind string) {
	if m == nil {
		return
	}
	m.joins.WithLabelValues(kind).Inc()
}

func (m *MasterbunniMetrics) ObserveExit(kind string) {
	if m == nil {
		return
	}
	m.exits.WithLabelValues(kind).Inc()
}

func (m *MasterbunniMetrics) ObserveClaim(kind string) {
	if m == nil {
		return
	}
	m.claims.WithLabelValues(kind).Inc()
}

func (m *MasterbunniMetrics) ObserveIncentiveCall(kind string) {
	if m == nil {
		return
	}
	m.incentiveCalls.WithLabelValues(kind).Inc()
}

func (m *MasterbunniMetrics) ObserveRefund() {
	if m == nil {
		return
	}
	m.refunds.Inc()
}

func (m *MasterbunniMetrics) ObserveUnlock() {
	if m == nil {
		return
	}
	m.unlocks.Inc()
}

func (m *MasterbunniMetrics) ObserveRejection(reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "unknown"
	}
	m.rejectedBatches.WithLabelValues(reason).Inc()
}
