// Package handler implements the REST endpoints of the element API: one
// ElementHandler per kind, plus the schema and activity endpoints.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/matthewbaird/sitecontent/internal/event"
	"github.com/matthewbaird/sitecontent/internal/store"
	"github.com/matthewbaird/sitecontent/internal/types"
	"github.com/matthewbaird/sitecontent/internal/validate"
)

// ElementHandler serves /api/<resource> for a single kind. Every write is
// validated again against the registry before it reaches the backend.
type ElementHandler struct {
	kind      types.Kind
	backend   store.Backend
	validator *validate.Validator
	events    eventSink
	log       *slog.Logger
}

// NewElementHandler creates a new ElementHandler. recorder may be nil.
func NewElementHandler(k types.Kind, b store.Backend, v *validate.Validator, recorder event.Recorder, logger *slog.Logger) *ElementHandler {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("kind", string(k))
	return &ElementHandler{
		kind:      k,
		backend:   b,
		validator: v,
		events:    eventSink{recorder: recorder, log: logger},
		log:       logger,
	}
}

// Routes returns the router to mount at /api/<resource>.
func (h *ElementHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Put("/reorder", h.Reorder)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Patch("/", h.Update)
		r.Put("/", h.Update)
		r.Delete("/", h.Delete)
	})
	return r
}

// ---------------------------------------------------------------------------
// Reads
// ---------------------------------------------------------------------------

// List handles GET /api/<resource>. Records come back sorted by order.
func (h *ElementHandler) List(w http.ResponseWriter, r *http.Request) {
	recs, err := h.backend.List(r.Context(), h.kind)
	if err != nil {
		storeErrorToHTTP(w, h.log, err)
		return
	}
	if recs == nil {
		recs = []types.Record{}
	}
	writeJSON(w, http.StatusOK, recs)
}

// Get handles GET /api/<resource>/{id}.
func (h *ElementHandler) Get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.backend.Get(r.Context(), h.kind, chi.URLParam(r, "id"))
	if err != nil {
		storeErrorToHTTP(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// ---------------------------------------------------------------------------
// Writes
// ---------------------------------------------------------------------------

// Create handles POST /api/<resource>. The backend assigns id, order and
// timestamps; any of those in the body are ignored.
func (h *ElementHandler) Create(w http.ResponseWriter, r *http.Request) {
	audit := parseAuditContext(r)
	var body map[string]any
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	fields := h.validator.Coerce(h.kind, types.Patch(body).Sanitize())
	if errs := h.validator.Validate(h.kind, fields); !errs.OK() {
		writeValidation(w, errs)
		return
	}

	rec, err := h.backend.Create(r.Context(), h.kind, fields)
	if err != nil {
		storeErrorToHTTP(w, h.log, err)
		return
	}
	h.events.record(r.Context(), event.NewElementCreated(h.kind, rec).By(audit.Actor))
	writeJSON(w, http.StatusCreated, rec)
}

// Update handles PATCH and PUT /api/<resource>/{id}. Both merge the body into
// the stored element; the merged result must still validate.
func (h *ElementHandler) Update(w http.ResponseWriter, r *http.Request) {
	audit := parseAuditContext(r)
	id := chi.URLParam(r, "id")
	var body map[string]any
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	patch := types.Patch(h.validator.Coerce(h.kind, types.Patch(body).Sanitize()))

	current, err := h.backend.Get(r.Context(), h.kind, id)
	if err != nil {
		storeErrorToHTTP(w, h.log, err)
		return
	}
	errs, err := h.validator.ValidatePatch(h.kind, current.Fields, patch)
	if err != nil {
		storeErrorToHTTP(w, h.log, err)
		return
	}
	if !errs.OK() {
		writeValidation(w, errs)
		return
	}

	rec, err := h.backend.Update(r.Context(), h.kind, id, patch)
	if err != nil {
		storeErrorToHTTP(w, h.log, err)
		return
	}
	h.events.record(r.Context(), event.NewElementUpdated(h.kind, rec, patch).By(audit.Actor))
	writeJSON(w, http.StatusOK, rec)
}

// Delete handles DELETE /api/<resource>/{id}. The remaining elements keep
// their orders until the client sends a reorder.
func (h *ElementHandler) Delete(w http.ResponseWriter, r *http.Request) {
	audit := parseAuditContext(r)
	id := chi.URLParam(r, "id")
	if err := h.backend.Delete(r.Context(), h.kind, id); err != nil {
		storeErrorToHTTP(w, h.log, err)
		return
	}
	h.events.record(r.Context(), event.NewElementDeleted(h.kind, id).By(audit.Actor))
	w.WriteHeader(http.StatusNoContent)
}

// Reorder handles PUT /api/<resource>/reorder. The items must assign orders
// 1..N to every element of the kind; anything else is a 409 and nothing
// changes. The response is the reordered list.
func (h *ElementHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	audit := parseAuditContext(r)
	var req store.ReorderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	if err := h.backend.Reorder(r.Context(), h.kind, req.Items); err != nil {
		storeErrorToHTTP(w, h.log, err)
		return
	}

	recs, err := h.backend.List(r.Context(), h.kind)
	if err != nil {
		storeErrorToHTTP(w, h.log, err)
		return
	}
	ids := make([]string, len(recs))
	for i, rec := range recs {
		ids[i] = rec.ID
	}
	h.events.record(r.Context(), event.NewElementsReordered(h.kind, ids).By(audit.Actor))
	if recs == nil {
		recs = []types.Record{}
	}
	writeJSON(w, http.StatusOK, recs)
}
