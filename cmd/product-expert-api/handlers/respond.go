// Package handlers provides HTTP handlers for the catalog API.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/coldstore-ai/product-expert/internal/storage"
)

// errorBody is the uniform error envelope.
type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, detail string) {
	writeJSON(w, status, errorBody{Error: msg, Detail: detail})
}

// writeStorageError maps storage errors onto HTTP statuses.
func writeStorageError(w http.ResponseWriter, err error) {
	var ve *storage.ValidationError
	if errors.As(err, &ve) {
		writeError(w, http.StatusBadRequest, "validation failed", ve.Error())
		return
	}
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found", "")
	case errors.Is(err, storage.ErrVersionMismatch):
		writeError(w, http.StatusConflict, "version mismatch", err.Error())
	case errors.Is(err, storage.ErrConflictClosed):
		writeError(w, http.StatusConflict, "conflict already resolved", "")
	case errors.Is(err, storage.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, "store unavailable", "")
	default:
		writeError(w, http.StatusInternalServerError, "internal error", err.Error())
	}
}
