// Package api is the broker's HTTP/JSON control plane: a thin binding
// over the store layer so the whole system is runnable end to end.
// Routing is a plain http.ServeMux with observability middleware in
// front of the handler; there is no auth/authz/tenant-scope/gateway
// layer here — this broker has no multi-tenant concept.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/kestrel-broker/kestrel/internal/config"
	"github.com/kestrel-broker/kestrel/internal/logging"
	"github.com/kestrel-broker/kestrel/internal/metrics"
	"github.com/kestrel-broker/kestrel/internal/observability"
	"github.com/kestrel-broker/kestrel/internal/store"
)

// Notifier is the consumer-facing half of the fan-out wake-up
// accelerator: Consume's long-poll blocks on Wait between its initial
// poll and a single follow-up poll. Optional — a nil Notifier on
// Handler just disables long-polling and callers fall back to
// fixed-interval client-side polling, same as the no-op Notifier does
// on the publish side.
type Notifier interface {
	Wait(ctx context.Context, subscriptionID string)
}

// Handler holds the dependencies every control-plane route needs.
type Handler struct {
	Store    store.BrokerStore
	Defaults config.SubscriptionDefaults
	Notifier Notifier
}

// NewRouter builds the full control-plane mux, wrapped with tracing and
// request logging middleware. notifier may be nil.
func NewRouter(s store.BrokerStore, defaults config.SubscriptionDefaults, notifier Notifier) http.Handler {
	h := &Handler{Store: s, Defaults: defaults, Notifier: notifier}

	mux := http.NewServeMux()
	h.registerRoutes(mux)

	var handler http.Handler = mux
	handler = requestLogMiddleware(handler)
	handler = observability.HTTPMiddleware(handler)
	return handler
}

func (h *Handler) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /liveness", h.Liveness)
	mux.HandleFunc("GET /readiness", h.Readiness)
	mux.HandleFunc("GET /metrics", metricsHandler)

	mux.HandleFunc("POST /topics", h.CreateTopic)
	mux.HandleFunc("GET /topics", h.ListTopics)
	mux.HandleFunc("GET /topics/{id}", h.GetTopic)
	mux.HandleFunc("DELETE /topics/{id}", h.DeleteTopic)
	mux.HandleFunc("POST /topics/{id}/messages", h.Publish)
	mux.HandleFunc("GET /topics/{id}/messages", h.ListTopicMessages)

	mux.HandleFunc("POST /subscriptions", h.CreateSubscription)
	mux.HandleFunc("GET /subscriptions", h.ListSubscriptions)
	mux.HandleFunc("GET /subscriptions/{id}", h.GetSubscription)
	mux.HandleFunc("DELETE /subscriptions/{id}", h.DeleteSubscription)
	mux.HandleFunc("GET /subscriptions/{id}/messages", h.Consume)
	mux.HandleFunc("POST /subscriptions/{id}/acks", h.Ack)
	mux.HandleFunc("POST /subscriptions/{id}/nacks", h.Nack)
	mux.HandleFunc("GET /subscriptions/{id}/dlq", h.ListDLQ)
	mux.HandleFunc("POST /subscriptions/{id}/dlq/reprocess", h.ReprocessDLQ)
	mux.HandleFunc("GET /subscriptions/{id}/metrics", h.Metrics)
}

func metricsHandler(w http.ResponseWriter, r *http.Request) {
	metrics.Handler().ServeHTTP(w, r)
}

// Liveness always reports alive: the process is up and serving.
func (h *Handler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// Readiness reports whether the store is reachable.
func (h *Handler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		writeError(w, http.StatusServiceUnavailable, "store unreachable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func requestLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logging.Op().Debug("control plane request",
			"method", r.Method, "path", r.URL.Path, "duration_ms", time.Since(start).Milliseconds())
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// writeError renders the fixed {"detail": "..."} error body.
func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
