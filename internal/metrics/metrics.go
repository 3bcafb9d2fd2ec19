// Package metrics collects and exposes Prometheus metrics for the ledger
// and settlement engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the interface the ledger store and HTTP layer record through,
// so tests can pass a no-op implementation.
type Recorder interface {
	RecordMutation(op string)
	RecordMutationFailure(op string, reason string)
	RecordReload()
	RecordSettlement(transactions int, duration time.Duration)
	RecordNoticeRendered()
}

// Collector implements Recorder backed by Prometheus.
type Collector struct {
	mutations         *prometheus.CounterVec
	mutationFailures  *prometheus.CounterVec
	reloads           prometheus.Counter
	settlements       prometheus.Counter
	settlementTxs     prometheus.Histogram
	settlementLatency prometheus.Histogram
	noticesRendered   prometheus.Counter
}

// NewCollector registers the ledger metrics on the given registry.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hisab_ledger_mutations_total",
			Help: "Successful ledger mutations by operation.",
		}, []string{"op"}),
		mutationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hisab_ledger_mutation_failures_total",
			Help: "Rejected ledger mutations by operation and reason.",
		}, []string{"op", "reason"}),
		reloads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hisab_ledger_reloads_total",
			Help: "Ledger reloads triggered by out-of-band changes.",
		}),
		settlements: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hisab_settlement_computations_total",
			Help: "Settlement engine runs.",
		}),
		settlementTxs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hisab_settlement_transactions",
			Help:    "Transactions per computed settlement plan.",
			Buckets: []float64{0, 1, 2, 4, 8, 16, 32},
		}),
		settlementLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hisab_settlement_latency_seconds",
			Help:    "Settlement computation latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		noticesRendered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hisab_notices_rendered_total",
			Help: "Settlement notices rendered.",
		}),
	}

	reg.MustRegister(
		c.mutations,
		c.mutationFailures,
		c.reloads,
		c.settlements,
		c.settlementTxs,
		c.settlementLatency,
		c.noticesRendered,
	)

	return c
}

func (c *Collector) RecordMutation(op string) {
	c.mutations.WithLabelValues(op).Inc()
}

func (c *Collector) RecordMutationFailure(op string, reason string) {
	c.mutationFailures.WithLabelValues(op, reason).Inc()
}

func (c *Collector) RecordReload() {
	c.reloads.Inc()
}

func (c *Collector) RecordSettlement(transactions int, duration time.Duration) {
	c.settlements.Inc()
	c.settlementTxs.Observe(float64(transactions))
	c.settlementLatency.Observe(duration.Seconds())
}

func (c *Collector) RecordNoticeRendered() {
	c.noticesRendered.Inc()
}

// Handler returns the /metrics endpoint for the given registry.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// Nop is a Recorder that discards everything.
type Nop struct{}

func (Nop) RecordMutation(string)                {}
func (Nop) RecordMutationFailure(string, string) {}
func (Nop) RecordReload()                        {}
func (Nop) RecordSettlement(int, time.Duration)  {}
func (Nop) RecordNoticeRendered()                {}
