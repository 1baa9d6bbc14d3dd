package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caseward/manualforge/internal/importer"
	"github.com/caseward/manualforge/internal/server/responses"
	"github.com/caseward/manualforge/internal/store"
)

const sampleText = "1.0 General\n\n1.1 Purpose\nThis manual defines scope.\n\n1.2 Applicability\nApplies to all staff."

func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	imp := importer.New(st)
	return New(":0", imp, st, "importer", nil), st
}

func postImport(t *testing.T, s *Server, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/import", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHandleImport_DryRun(t *testing.T) {
	s, st := newTestServer(t)

	rec := postImport(t, s, map[string]any{
		"filename": "ops.pdf",
		"text":     sampleText,
		"dryRun":   true,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp responses.ImportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Preview)
	assert.Empty(t, resp.ManualID)
	assert.Equal(t, 1, resp.Sections)
	assert.Equal(t, 2, resp.Policies)
	require.Len(t, resp.Preview.Sections, 1)
	assert.Equal(t, "General", resp.Preview.Sections[0].Title)
	require.Len(t, resp.Preview.Sections[0].Policies, 2)
	assert.Equal(t, "<p>This manual defines scope.</p>", resp.Preview.Sections[0].Policies[0].ContentHTML)

	// Dry run leaves the store untouched.
	manuals, _, _, _, err := st.Counts(context.Background())
	require.NoError(t, err)
	assert.Zero(t, manuals)
}

func TestHandleImport_Commit(t *testing.T) {
	s, st := newTestServer(t)

	rec := postImport(t, s, map[string]any{
		"filename": "ops.pdf",
		"text":     sampleText,
		"dryRun":   false,
		"actor":    "auditor-7",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp responses.ImportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.ManualID)

	manual, err := st.GetManual(context.Background(), resp.ManualID)
	require.NoError(t, err)
	assert.Equal(t, "auditor-7", manual.CreatedByID)
}

func TestHandleImport_UnsupportedType(t *testing.T) {
	s, _ := newTestServer(t)

	rec := postImport(t, s, map[string]any{
		"filename": "ops.xlsx",
		"text":     "whatever",
		"dryRun":   true,
	})
	require.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	var resp responses.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "unsupported_type", resp.Kind)
}

func TestHandleImport_MethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/import", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleManuals_ListsCommitted(t *testing.T) {
	s, _ := newTestServer(t)

	rec := postImport(t, s, map[string]any{"filename": "ops.pdf", "text": sampleText})
	require.Equal(t, http.StatusCreated, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/manuals", nil)
	listRec := httptest.NewRecorder()
	s.Handler().ServeHTTP(listRec, req)
	require.Equal(t, http.StatusOK, listRec.Code)

	var manuals []responses.ManualSummary
	require.NoError(t, json.Unmarshal(listRec.Body.Bytes(), &manuals))
	require.Len(t, manuals, 1)
	assert.Equal(t, "Ops", manuals[0].Title)
	assert.Equal(t, "importer", manuals[0].CreatedBy)
}

func TestHandleHealth(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
