// Package metrics wraps the broker's Prometheus collectors: counters for
// each message-flow operation, a histogram of operation latency, and a
// gauge of per-subscription, per-state row counts refreshed by the
// janitor loop.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// BrokerMetrics wraps the Prometheus collectors for Kestrel's message-flow
// operations.
type BrokerMetrics struct {
	registry *prometheus.Registry

	opsTotal        *prometheus.CounterVec
	opDuration      *prometheus.HistogramVec
	messagesFannedOut prometheus.Counter
	dlqPromotions   prometheus.Counter
	janitorUnlocked prometheus.Counter
	janitorGCed     prometheus.Counter

	subscriptionState *prometheus.GaugeVec
}

var defaultBuckets = []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500}

var active *BrokerMetrics

// Init creates the registry and registers every collector under namespace.
// Safe to call once at startup; Handler and the recording helpers are
// no-ops until Init has run.
func Init(namespace string) *BrokerMetrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	m := &BrokerMetrics{
		registry: registry,
		opsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Total message-flow operations by kind and outcome.",
		}, []string{"operation", "outcome"}),
		opDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_ms",
			Help:      "Message-flow operation latency in milliseconds.",
			Buckets:   defaultBuckets,
		}, []string{"operation"}),
		messagesFannedOut: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_fanout_total",
			Help:      "Total subscription-message rows inserted by publish fan-out.",
		}),
		dlqPromotions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dlq_promotions_total",
			Help:      "Total messages promoted to the dead-letter queue by nack.",
		}),
		janitorUnlocked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "janitor_unlocked_total",
			Help:      "Total stuck leases cleared by the janitor's unlock sweep.",
		}),
		janitorGCed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "janitor_gc_total",
			Help:      "Total acked messages deleted by the janitor's GC sweep.",
		}),
		subscriptionState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "subscription_messages",
			Help:      "Per-subscription, per-state message row counts.",
		}, []string{"subscription_id", "state"}),
	}

	registry.MustRegister(
		m.opsTotal, m.opDuration, m.messagesFannedOut,
		m.dlqPromotions, m.janitorUnlocked, m.janitorGCed, m.subscriptionState,
	)

	active = m
	return m
}

// Handler exposes the registry for scraping. Returns a handler that
// answers 503 if Init was never called, so wiring /metrics
// unconditionally is safe.
func Handler() http.Handler {
	if active == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "metrics not initialized", http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(active.registry, promhttp.HandlerOpts{})
}

// ObserveOp records one operation's outcome and duration.
func ObserveOp(operation string, success bool, durationMs float64) {
	if active == nil {
		return
	}
	outcome := "ok"
	if !success {
		outcome = "error"
	}
	active.opsTotal.WithLabelValues(operation, outcome).Inc()
	active.opDuration.WithLabelValues(operation).Observe(durationMs)
}

// AddFannedOut increments the publish fan-out insertion counter.
func AddFannedOut(n int) {
	if active == nil || n <= 0 {
		return
	}
	active.messagesFannedOut.Add(float64(n))
}

// AddDLQPromotions increments the DLQ-promotion counter.
func AddDLQPromotions(n int) {
	if active == nil || n <= 0 {
		return
	}
	active.dlqPromotions.Add(float64(n))
}

// AddJanitorUnlocked increments the janitor unlock-sweep counter.
func AddJanitorUnlocked(n int) {
	if active == nil || n <= 0 {
		return
	}
	active.janitorUnlocked.Add(float64(n))
}

// AddJanitorGCed increments the janitor GC-sweep counter.
func AddJanitorGCed(n int) {
	if active == nil || n <= 0 {
		return
	}
	active.janitorGCed.Add(float64(n))
}

// SetSubscriptionState refreshes the per-subscription state gauges; call
// periodically (e.g. from the janitor loop) for every tracked subscription.
func SetSubscriptionState(subscriptionID string, available, delivered, acked, dlq int64) {
	if active == nil {
		return
	}
	active.subscriptionState.WithLabelValues(subscriptionID, "available").Set(float64(available))
	active.subscriptionState.WithLabelValues(subscriptionID, "delivered").Set(float64(delivered))
	active.subscriptionState.WithLabelValues(subscriptionID, "acked").Set(float64(acked))
	active.subscriptionState.WithLabelValues(subscriptionID, "dlq").Set(float64(dlq))
}
