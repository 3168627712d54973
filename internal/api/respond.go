package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dgallion1/codetransmute/internal/codetree"
	"github.com/dgallion1/codetransmute/internal/pipeline"
	"github.com/dgallion1/codetransmute/internal/session"
	"github.com/dgallion1/codetransmute/internal/workspace"
)

// Room for JSON framing on top of the file size limit.
const bodySlack = 64 << 10

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// decodeBody reads a JSON body no larger than limit. An empty body leaves v
// untouched when allowEmpty is set.
func decodeBody(w http.ResponseWriter, r *http.Request, v any, limit int64, allowEmpty bool) bool {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		jsonError(w, fmt.Sprintf("request body exceeds %d bytes", limit), http.StatusRequestEntityTooLarge)
	case allowEmpty && errors.Is(err, io.EOF):
		return true
	default:
		jsonError(w, "invalid json body: "+err.Error(), http.StatusBadRequest)
	}
	return false
}

// errorStatus maps domain errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, codetree.ErrInvalidLevel),
		errors.Is(err, workspace.ErrIsDirectory),
		errors.Is(err, session.ErrNoFile):
		return http.StatusBadRequest
	case errors.Is(err, workspace.ErrOutsideRoot):
		return http.StatusForbidden
	case errors.Is(err, workspace.ErrNotFound),
		errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, workspace.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, pipeline.ErrQueueFull):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// fail writes err with its mapped status; server errors are logged.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := errorStatus(err)
	if code >= 500 {
		s.log.Error("request failed", "path", r.URL.Path, "error", err)
	}
	jsonError(w, err.Error(), code)
}
