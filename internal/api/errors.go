package api

import (
	"errors"
	"net/http"

	"github.com/kestrel-broker/kestrel/internal/store"
)

// writeStoreError maps a store-layer error to an HTTP status and writes
// the {"detail": "..."} body. Anything not recognized as one of the
// named sentinel kinds is surfaced as a generic 500.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrTopicNotFound), errors.Is(err, store.ErrSubscriptionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrTopicAlreadyExists), errors.Is(err, store.ErrSubscriptionAlreadyExists):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrValidation):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
