package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/killallgit/cognilink/pkg/app"
	"github.com/killallgit/cognilink/pkg/avatar"
	"github.com/killallgit/cognilink/pkg/logger"
	"github.com/killallgit/cognilink/pkg/reconciler"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// statusOf maps domain errors to HTTP statuses
func statusOf(err error) int {
	switch {
	case errors.Is(err, avatar.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, avatar.ErrInvalid), errors.Is(err, app.ErrEmptyMessage):
		return http.StatusBadRequest
	case errors.Is(err, reconciler.ErrConversationBusy):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, statusOf(err), err)
}

// decodeJSON reads a bounded JSON body into v
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
