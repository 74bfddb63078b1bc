package handler

import (
	"net/http"

	"github.com/matthewbaird/sitecontent/internal/schema"
	"github.com/matthewbaird/sitecontent/internal/validate"
)

// SchemaResponse is the body of GET /api/schema. Dashboards build their
// forms and icon pickers from it.
type SchemaResponse struct {
	Kinds []*schema.KindSchema `json:"kinds"`
	Icons []string             `json:"icons"`
}

// SchemaHandler serves the element registry and icon catalog.
type SchemaHandler struct {
	body SchemaResponse
}

// NewSchemaHandler creates a new SchemaHandler from the validator's registry
// and catalog. Both are immutable, so the response is built once.
func NewSchemaHandler(v *validate.Validator) *SchemaHandler {
	return &SchemaHandler{body: SchemaResponse{
		Kinds: v.Registry().Kinds(),
		Icons: v.Icons().Names(),
	}}
}

// GetSchema handles GET /api/schema.
func (h *SchemaHandler) GetSchema(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.body)
}
