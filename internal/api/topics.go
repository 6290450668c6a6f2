package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/kestrel-broker/kestrel/internal/metrics"
)

type createTopicRequest struct {
	ID string `json:"id"`
}

func (h *Handler) CreateTopic(w http.ResponseWriter, r *http.Request) {
	var req createTopicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid JSON body")
		return
	}
	topic, err := h.Store.CreateTopic(r.Context(), req.ID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, topic)
}

func (h *Handler) GetTopic(w http.ResponseWriter, r *http.Request) {
	topic, err := h.Store.GetTopic(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, topic)
}

func (h *Handler) ListTopics(w http.ResponseWriter, r *http.Request) {
	offset, limit, ok := parsePagination(r, w)
	if !ok {
		return
	}
	topics, err := h.Store.ListTopics(r.Context(), offset, limit)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": topics})
}

func (h *Handler) DeleteTopic(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteTopic(r.Context(), r.PathValue("id")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Publish(w http.ResponseWriter, r *http.Request) {
	var messages []any
	if err := json.NewDecoder(r.Body).Decode(&messages); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid JSON body: expected an array of objects")
		return
	}
	n, err := h.Store.Publish(r.Context(), r.PathValue("id"), messages)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	metrics.AddFannedOut(n)
	w.Header().Set("X-Inserted-Count", strconv.Itoa(n))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListTopicMessages(w http.ResponseWriter, r *http.Request) {
	_, limit, ok := parsePagination(r, w)
	if !ok {
		return
	}
	msgs, err := h.Store.ListMessages(r.Context(), r.PathValue("id"), limit)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": msgs})
}

// parsePagination validates offset/limit per the HTTP contract (offset >=
// 0, limit in [1,100]) rather than clamping out-of-range values, writing
// a 422 and returning ok=false on the first violation. Omitted query
// params fall back to the defaults.
func parsePagination(r *http.Request, w http.ResponseWriter) (offset, limit int, ok bool) {
	offset, limit = 0, 20
	q := r.URL.Query()

	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusUnprocessableEntity, "offset must be an integer >= 0")
			return 0, 0, false
		}
		offset = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			writeError(w, http.StatusUnprocessableEntity, "limit must be an integer between 1 and 100")
			return 0, 0, false
		}
		limit = n
	}
	return offset, limit, true
}
