// Package responses defines the API response types used by manualforge
// HTTP handlers and by the CLI when printing preview output.
package responses

import (
	"time"

	"github.com/caseward/manualforge/internal/structure"
)

// PreviewPolicy is one policy inside a preview response.
type PreviewPolicy struct {
	Title       string `json:"title"`
	ContentHTML string `json:"contentHtml"`
}

// PreviewSection is one section inside a preview response.
type PreviewSection struct {
	Title    string          `json:"title"`
	Policies []PreviewPolicy `json:"policies"`
}

// Preview is the dry-run payload.
type Preview struct {
	ManualTitle string           `json:"manualTitle"`
	Sections    []PreviewSection `json:"sections"`
}

// PreviewFrom shapes a computed structure for the wire, dropping the raw
// line buffers.
func PreviewFrom(st *structure.Structure) *Preview {
	p := &Preview{ManualTitle: st.Title}
	for _, sec := range st.Sections {
		ps := PreviewSection{Title: sec.Title, Policies: make([]PreviewPolicy, 0, len(sec.Policies))}
		for _, pol := range sec.Policies {
			ps.Policies = append(ps.Policies, PreviewPolicy{Title: pol.Title, ContentHTML: pol.ContentHTML})
		}
		p.Sections = append(p.Sections, ps)
	}
	return p
}

// ImportResponse is returned by the import endpoint. Preview is set for
// dry runs, ManualID for commits.
type ImportResponse struct {
	Message  string   `json:"message"`
	Preview  *Preview `json:"preview,omitempty"`
	ManualID string   `json:"manualId,omitempty"`
	Sections int      `json:"sections,omitempty"`
	Policies int      `json:"policies,omitempty"`
}

// ManualSummary is one row of the manual list endpoint.
type ManualSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}

// HealthResponse is the health check payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
