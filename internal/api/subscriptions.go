package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/kestrel-broker/kestrel/internal/domain"
)

type createSubscriptionRequest struct {
	ID                  string         `json:"id"`
	TopicID             string         `json:"topic_id"`
	Filter              map[string]any `json:"filter,omitempty"`
	MaxDeliveryAttempts int            `json:"max_delivery_attempts,omitempty"`
	BackoffMinSeconds   int            `json:"backoff_min_seconds,omitempty"`
	BackoffMaxSeconds   int            `json:"backoff_max_seconds,omitempty"`
}

func (h *Handler) CreateSubscription(w http.ResponseWriter, r *http.Request) {
	var req createSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid JSON body")
		return
	}

	filter, err := domain.ValidateFilter(req.Filter)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	sub := &domain.Subscription{
		ID:                  req.ID,
		TopicID:             req.TopicID,
		Filter:              filter,
		MaxDeliveryAttempts: req.MaxDeliveryAttempts,
		BackoffMinSeconds:   req.BackoffMinSeconds,
		BackoffMaxSeconds:   req.BackoffMaxSeconds,
	}
	if sub.MaxDeliveryAttempts == 0 {
		sub.MaxDeliveryAttempts = h.Defaults.MaxDeliveryAttempts
	}
	if sub.BackoffMinSeconds == 0 {
		sub.BackoffMinSeconds = h.Defaults.BackoffMinSeconds
	}
	if sub.BackoffMaxSeconds == 0 {
		sub.BackoffMaxSeconds = h.Defaults.BackoffMaxSeconds
	}

	if err := h.Store.CreateSubscription(r.Context(), sub); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (h *Handler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	sub, err := h.Store.GetSubscription(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *Handler) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	offset, limit, ok := parsePagination(r, w)
	if !ok {
		return
	}
	subs, err := h.Store.ListSubscriptions(r.Context(), offset, limit)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": subs})
}

func (h *Handler) DeleteSubscription(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteSubscription(r.Context(), r.PathValue("id")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Metrics(w http.ResponseWriter, r *http.Request) {
	m, err := h.Store.Metrics(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// parseBatchSize validates batch_size in [1,100], writing a 422 and
// returning ok=false if an explicit value falls outside that range. An
// omitted batch_size defaults to 10.
func parseBatchSize(r *http.Request, w http.ResponseWriter) (int, bool) {
	v := r.URL.Query().Get("batch_size")
	if v == "" {
		return 10, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > 100 {
		writeError(w, http.StatusUnprocessableEntity, "batch_size must be an integer between 1 and 100")
		return 0, false
	}
	return n, true
}
