package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/matthewbaird/sitecontent/internal/store"
	"github.com/matthewbaird/sitecontent/internal/validate"
)

const maxBodyBytes = 1 << 20

// AuditInfo holds audit metadata extracted from request headers.
type AuditInfo struct {
	Actor         string
	Source        string
	CorrelationID string
}

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields,omitempty"`
}

// writeJSON marshals v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("writeJSON encode error", "error", err)
	}
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: message, Code: code})
}

// writeValidation writes a 400 with the field-level messages.
func writeValidation(w http.ResponseWriter, fields map[string]string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{
		Error:  "validation failed",
		Code:   "VALIDATION_ERROR",
		Fields: fields,
	})
}

// decodeJSON decodes the request body into v.
func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
}

// parseLimit reads a positive integer query parameter, or returns def.
func parseLimit(r *http.Request, name string, def int) int {
	if v := r.URL.Query().Get(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

// storeErrorToHTTP maps store errors to appropriate HTTP responses.
func storeErrorToHTTP(w http.ResponseWriter, log *slog.Logger, err error) {
	if fields, ok := store.IsValidation(err); ok {
		writeValidation(w, fields)
		return
	}
	if store.IsNotFound(err) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
		return
	}
	if store.IsConflict(err) {
		writeError(w, http.StatusConflict, "REORDER_CONFLICT", err.Error())
		return
	}
	if errors.Is(err, validate.ErrUnknownKind) {
		writeError(w, http.StatusNotFound, "UNKNOWN_KIND", err.Error())
		return
	}
	log.Error("internal error", "error", err)
	writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
}

// parseAuditContext extracts audit metadata from request headers. The actor
// defaults to "dashboard" since authentication happens in front of the API.
func parseAuditContext(r *http.Request) AuditInfo {
	info := AuditInfo{
		Actor:         r.Header.Get("X-Actor"),
		Source:        r.Header.Get("X-Source"),
		CorrelationID: r.Header.Get("X-Correlation-ID"),
	}
	if info.Actor == "" {
		info.Actor = "dashboard"
	}
	if info.Source == "" {
		info.Source = "user"
	}
	return info
}
