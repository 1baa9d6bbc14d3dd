package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/caseward/manualforge/internal/importer"
	"github.com/caseward/manualforge/internal/server/responses"
)

// importRequest is the JSON body of POST /api/import. Text is the decoded
// document; Filename identifies the source format and seeds the title.
type importRequest struct {
	Filename    string `json:"filename"`
	Text        string `json:"text"`
	DryRun      bool   `json:"dryRun"`
	Granularity string `json:"granularity,omitempty"`
	Title       string `json:"title,omitempty"`
	Actor       string `json:"actor,omitempty"`
}

// maxRequestBytes caps the request body above the largest per-format
// ceiling so oversize detection happens in the importer, with its own
// error kind, not as an opaque read failure.
const maxRequestBytes = 64 << 20

// handleImport implements the two-phase protocol over HTTP.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}

	var req importRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err), "")
		return
	}

	doc := importer.Document{Filename: req.Filename, Payload: []byte(req.Text)}
	opts := importer.Options{Granularity: req.Granularity, ManualTitle: req.Title}

	if req.DryRun {
		res, err := s.importer.Preview(r.Context(), doc, opts)
		if err != nil {
			writeImportError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, &responses.ImportResponse{
			Message:  fmt.Sprintf("Preview: %d sections, %d policies", res.Summary.Sections, res.Summary.Policies),
			Preview:  responses.PreviewFrom(res.Structure),
			Sections: res.Summary.Sections,
			Policies: res.Summary.Policies,
		})
		return
	}

	actor := req.Actor
	if actor == "" {
		actor = s.defaultActor
	}
	manualID, err := s.importer.Commit(r.Context(), doc, opts, actor)
	if err != nil {
		writeImportError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, &responses.ImportResponse{
		Message:  "Manual imported",
		ManualID: manualID,
	})
}

// handleManuals lists imported manuals.
func (s *Server) handleManuals(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}

	manuals, err := s.store.ListManuals(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list manuals", "")
		slog.Error("List manuals failed", "error", err)
		return
	}

	out := make([]responses.ManualSummary, 0, len(manuals))
	for _, m := range manuals {
		out = append(out, responses.ManualSummary{
			ID:        m.ID,
			Title:     m.Title,
			Status:    m.Status,
			CreatedBy: m.CreatedByID,
			CreatedAt: m.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, &responses.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
	})
}

// writeImportError maps the importer taxonomy onto HTTP statuses.
func writeImportError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, importer.ErrUnsupportedType):
		writeError(w, http.StatusUnsupportedMediaType, err.Error(), "unsupported_type")
	case errors.Is(err, importer.ErrTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error(), "too_large")
	case errors.Is(err, importer.ErrDecodeFailure):
		writeError(w, http.StatusUnprocessableEntity, err.Error(), "decode_failure")
	case errors.Is(err, importer.ErrTimeout):
		writeError(w, http.StatusGatewayTimeout, err.Error(), "timeout")
	default:
		writeError(w, http.StatusInternalServerError, err.Error(), "persistence")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Warn("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg, kind string) {
	writeJSON(w, status, &responses.ErrorResponse{Error: msg, Kind: kind})
}
