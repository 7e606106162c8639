package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/wesm/interviewlens/internal/dashboard"
)

type jsonError struct {
	Error string `json:"error"`
}

// writeJSON writes v as JSON with the given HTTP status code.
// Logs a warning if JSON encoding fails.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("writeJSON: encoding response: %v", err)
	}
}

// writeError writes a JSON error response with the given status
// and message.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, jsonError{Error: msg})
}

// errorBody renders msg as writeError does, for writers that
// take a preformatted body.
func errorBody(msg string) string {
	b, err := json.Marshal(jsonError{Error: msg})
	if err != nil {
		return `{"error":"internal error"}` + "\n"
	}
	return string(b) + "\n"
}

// handleContextError detects context.Canceled and
// context.DeadlineExceeded errors, returning true so the
// caller stops processing. It does NOT write an HTTP
// response: withTimeout answers with 503 via
// http.TimeoutHandler, and writing here would race with its
// buffered response.
func handleContextError(_ http.ResponseWriter, err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// writeLoadError maps a dashboard load error to a response.
func writeLoadError(w http.ResponseWriter, err error) {
	switch {
	case handleContextError(w, err):
	case errors.Is(err, dashboard.ErrNoIdentity):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, dashboard.ErrSuperseded):
		writeError(w, http.StatusConflict, err.Error())
	default:
		log.Printf("load error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
