package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Restore outcomes recorded by ObserveRestore.
const (
	RestoreRestored    = "restored"
	RestoreEmpty       = "empty"
	RestoreCorrupt     = "corrupt"
	RestoreUnavailable = "unavailable"
)

// CartMetrics records cart engine activity.
type CartMetrics struct {
	mutations       *prometheus.CounterVec
	persistFailures *prometheus.CounterVec
	persistDuration *prometheus.HistogramVec
	restores        *prometheus.CounterVec
	lineItems       prometheus.Gauge
}

// NewCartMetrics registers the cart metrics on the provided registerer.
// A nil registerer yields a recorder whose methods are no-ops.
func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	if reg == nil {
		return &CartMetrics{}
	}
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_mutations_total",
		Help: "Successful cart mutations by operation.",
	}, []string{"op"})
	persistFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_persist_failures_total",
		Help: "Cart state writes that failed, by operation.",
	}, []string{"op"})
	persistDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cart_persist_duration_seconds",
		Help:    "Duration of cart state writes in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
	restores := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_restore_total",
		Help: "Cart state restores by outcome.",
	}, []string{"outcome"})
	lineItems := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cart_line_items",
		Help: "Distinct line items currently in the cart.",
	})
	reg.MustRegister(mutations, persistFailures, persistDuration, restores, lineItems)
	return &CartMetrics{
		mutations:       mutations,
		persistFailures: persistFailures,
		persistDuration: persistDuration,
		restores:        restores,
		lineItems:       lineItems,
	}
}

// IncMutation counts a successful mutation.
func (c *CartMetrics) IncMutation(op string) {
	if c == nil || c.mutations == nil {
		return
	}
	c.mutations.WithLabelValues(normalizeLabel(op)).Inc()
}

// IncPersistFailure counts a failed state write.
func (c *CartMetrics) IncPersistFailure(op string) {
	if c == nil || c.persistFailures == nil {
		return
	}
	c.persistFailures.WithLabelValues(normalizeLabel(op)).Inc()
}

// ObservePersist records how long a state write took.
func (c *CartMetrics) ObservePersist(op string, duration time.Duration) {
	if c == nil || c.persistDuration == nil {
		return
	}
	c.persistDuration.WithLabelValues(normalizeLabel(op)).Observe(duration.Seconds())
}

// ObserveRestore counts a restore attempt with its outcome.
func (c *CartMetrics) ObserveRestore(outcome string) {
	if c == nil || c.restores == nil {
		return
	}
	c.restores.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// SetLineItems reports the current distinct line item count.
func (c *CartMetrics) SetLineItems(n int) {
	if c == nil || c.lineItems == nil {
		return
	}
	c.lineItems.Set(float64(n))
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
