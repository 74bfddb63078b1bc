package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/sitecontent/internal/store"
	"github.com/matthewbaird/sitecontent/internal/types"
	"github.com/matthewbaird/sitecontent/internal/validate"
)

var discard = slog.New(slog.DiscardHandler)

func TestStoreErrorToHTTP(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", &store.ValidationError{Fields: map[string]string{"title": "x"}}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"not found", &store.NotFoundError{Kind: types.KindPillar, ID: "p"}, http.StatusNotFound, "NOT_FOUND"},
		{"conflict", fmt.Errorf("%w: stale", store.ErrConflict), http.StatusConflict, "REORDER_CONFLICT"},
		{"unknown kind", fmt.Errorf("%w: widget", validate.ErrUnknownKind), http.StatusNotFound, "UNKNOWN_KIND"},
		{"other", errors.New("disk on fire"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			storeErrorToHTTP(rec, discard, tc.err)
			assert.Equal(t, tc.status, rec.Code)

			var body errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.code, body.Code)
			if tc.status == http.StatusInternalServerError {
				assert.NotContains(t, body.Error, "disk")
			}
		})
	}
}

func TestRecovery(t *testing.T) {
	h := Recovery(discard)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestLoggingPassesThrough(t *testing.T) {
	h := Logging(discard)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestParseAuditContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	info := parseAuditContext(req)
	assert.Equal(t, "dashboard", info.Actor)
	assert.Equal(t, "user", info.Source)

	req.Header.Set("X-Actor", "ana")
	req.Header.Set("X-Correlation-ID", "c-1")
	info = parseAuditContext(req)
	assert.Equal(t, "ana", info.Actor)
	assert.Equal(t, "c-1", info.CorrelationID)
}
