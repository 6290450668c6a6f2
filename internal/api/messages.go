package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/kestrel-broker/kestrel/internal/metrics"
)

// Consume returns up to batchSize leased messages. If none are
// immediately available and the caller passed wait (seconds, capped at
// maxLongPollSeconds), it long-polls: blocking on the notifier's
// wake-up for new publishes before re-polling once, rather than having
// the caller busy-poll. A missed wake-up is harmless — the deadline
// still returns control, and the next poll picks up anything published
// in between.
func (h *Handler) Consume(w http.ResponseWriter, r *http.Request) {
	consumerID := r.URL.Query().Get("consumer_id")
	if consumerID == "" {
		writeError(w, http.StatusUnprocessableEntity, "consumer_id is required")
		return
	}
	batchSize, ok := parseBatchSize(r, w)
	if !ok {
		return
	}
	waitSeconds, ok := parseWaitSeconds(r, w)
	if !ok {
		return
	}

	subscriptionID := r.PathValue("id")
	msgs, err := h.Store.Consume(r.Context(), subscriptionID, consumerID, batchSize)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	if len(msgs) == 0 && waitSeconds > 0 && h.Notifier != nil {
		ctx, cancel := context.WithTimeout(r.Context(), time.Duration(waitSeconds)*time.Second)
		defer cancel()
		h.Notifier.Wait(ctx, subscriptionID)

		msgs, err = h.Store.Consume(r.Context(), subscriptionID, consumerID, batchSize)
		if err != nil {
			writeStoreError(w, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": msgs})
}

const maxLongPollSeconds = 20

// parseWaitSeconds validates the optional wait query param (seconds to
// long-poll for, 0 meaning return immediately) in [0,maxLongPollSeconds].
func parseWaitSeconds(r *http.Request, w http.ResponseWriter) (int, bool) {
	v := r.URL.Query().Get("wait")
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 || n > maxLongPollSeconds {
		writeError(w, http.StatusUnprocessableEntity, "wait must be an integer between 0 and 20")
		return 0, false
	}
	return n, true
}

func decodeIDs(r *http.Request, w http.ResponseWriter) ([]string, bool) {
	var ids []string
	if err := json.NewDecoder(r.Body).Decode(&ids); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid JSON body: expected an array of message ids")
		return nil, false
	}
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid message id "+strconv.Quote(id)+": expected a UUID")
			return nil, false
		}
	}
	return ids, true
}

// Ack finalizes delivery of the given message ids. Any non-negative
// affected count, including zero on an all-idempotent-skip batch, still
// yields 204 — the external contract never depended on the count.
func (h *Handler) Ack(w http.ResponseWriter, r *http.Request) {
	ids, ok := decodeIDs(r, w)
	if !ok {
		return
	}
	if _, err := h.Store.Ack(r.Context(), r.PathValue("id"), ids); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Nack(w http.ResponseWriter, r *http.Request) {
	ids, ok := decodeIDs(r, w)
	if !ok {
		return
	}
	if _, err := h.Store.Nack(r.Context(), r.PathValue("id"), ids); err != nil {
		writeStoreError(w, err)
		return
	}
	metrics.ObserveOp("nack", true, 0)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListDLQ(w http.ResponseWriter, r *http.Request) {
	offset, limit, ok := parsePagination(r, w)
	if !ok {
		return
	}
	msgs, err := h.Store.ListDLQ(r.Context(), r.PathValue("id"), offset, limit)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": msgs})
}

func (h *Handler) ReprocessDLQ(w http.ResponseWriter, r *http.Request) {
	ids, ok := decodeIDs(r, w)
	if !ok {
		return
	}
	if _, err := h.Store.ReprocessDLQ(r.Context(), r.PathValue("id"), ids); err != nil {
		writeStoreError(w, err)
		return
	}
	metrics.ObserveOp("dlq_reprocess", true, 0)
	w.WriteHeader(http.StatusNoContent)
}
