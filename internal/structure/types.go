// Package structure assembles classified lines into the transient
// Manual/Section/Policy tree consumed by both the preview and commit
// phases of an import. Values are built fresh per request and never shared.
package structure

// Structure is the in-memory tree produced by a preview and replayed by a
// commit. Section order is significant and becomes the persisted order.
type Structure struct {
	Title    string     `json:"title"`
	Sections []*Section `json:"sections"`
}

// Section is a first-level subdivision of a manual.
type Section struct {
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Policies    []*Policy `json:"policies"`
}

// Policy is the unit that carries versioned content. Raw holds the
// unformatted buffered lines; ContentHTML is filled in by the content
// formatter as a separate stage.
type Policy struct {
	Title       string   `json:"title"`
	Raw         []string `json:"-"`
	ContentHTML string   `json:"contentHtml"`
}

// SectionCount returns the number of sections.
func (s *Structure) SectionCount() int { return len(s.Sections) }

// PolicyCount returns the total number of policies across all sections.
func (s *Structure) PolicyCount() int {
	n := 0
	for _, sec := range s.Sections {
		n += len(sec.Policies)
	}
	return n
}

const (
	// DefaultSectionTitle names the implicit section created when policy
	// headers appear before any section header, and the fallback section
	// for fully unstructured documents.
	DefaultSectionTitle = "General Content"
	// DefaultPolicyTitle names the fallback policy wrapping an
	// unstructured document.
	DefaultPolicyTitle = "Document Content"
	// OverviewPolicyTitle names the implicit policy holding content that
	// appears inside a section before its first policy header.
	OverviewPolicyTitle = "Overview"
)
