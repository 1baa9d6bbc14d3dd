// Package importer exposes the two-phase import protocol. Preview computes
// a transient Structure with no side effects; Commit re-runs the identical
// computation and persists the result in one transaction. Both phases
// share one pipeline (classify, build, format), which is what guarantees
// identical output.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/caseward/manualforge/internal/classify"
	"github.com/caseward/manualforge/internal/events"
	"github.com/caseward/manualforge/internal/htmlformat"
	"github.com/caseward/manualforge/internal/ingest"
	"github.com/caseward/manualforge/internal/structure"
)

// Document is an upload at the orchestrator boundary: the source filename
// (used for type detection and title derivation) and the decoded payload.
type Document struct {
	Filename string
	Payload  []byte
}

// Options are the per-import knobs.
type Options struct {
	// Granularity is the h2/h3 heading hint. It only affects
	// Markdown-decoded sources; for plain text it is accepted and ignored.
	Granularity string
	// ManualTitle overrides the derived title when non-empty.
	ManualTitle string
}

// Summary are the counts returned with every preview.
type Summary struct {
	Sections int `json:"sections"`
	Policies int `json:"policies"`
}

// Result is a computed preview: the structure plus its summary.
type Result struct {
	Structure *structure.Structure
	Summary   Summary
}

// Persister is the commit-side store dependency.
type Persister interface {
	PersistStructure(ctx context.Context, st *structure.Structure, actorID string) (string, error)
}

// Recorder receives import metrics. A nil recorder is valid.
type Recorder interface {
	ObserveImport(mode, outcome string, d time.Duration)
	ObserveStructure(sections, policies int)
}

// Orchestrator wires the pipeline stages together.
type Orchestrator struct {
	classifier *classify.Classifier
	store      Persister
	recorder   Recorder
	publisher  *events.Publisher
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithPatternSet selects the classifier pattern set.
func WithPatternSet(ps *classify.PatternSet) Option {
	return func(o *Orchestrator) { o.classifier = classify.New(ps) }
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

// WithPublisher attaches an event publisher.
func WithPublisher(p *events.Publisher) Option {
	return func(o *Orchestrator) { o.publisher = p }
}

// New returns an orchestrator persisting through st. A nil st is allowed
// for preview-only use; Commit then fails.
func New(st Persister, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		classifier: classify.New(nil),
		store:      st,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Preview validates the upload, decodes it, and computes the Structure.
// No writes occur; repeated calls with the same input produce the same
// result.
func (o *Orchestrator) Preview(ctx context.Context, doc Document, opts Options) (*Result, error) {
	start := time.Now()
	res, err := o.preview(ctx, doc, opts)
	o.observe("preview", start, err)
	return res, err
}

func (o *Orchestrator) preview(ctx context.Context, doc Document, opts Options) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	kind, err := ingest.DetectKind(doc.Filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, doc.Filename)
	}
	if int64(len(doc.Payload)) > ingest.MaxBytes(kind) {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit %d", ErrTooLarge, doc.Filename, len(doc.Payload), ingest.MaxBytes(kind))
	}

	text, err := ingest.Decode(kind, doc.Payload, ingest.Options{Granularity: opts.Granularity})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailure, err)
	}

	title := opts.ManualTitle
	if title == "" {
		title = TitleFromFilename(doc.Filename)
	}
	return o.fromText(title, text), nil
}

// PreviewText runs the pipeline over already-decoded text, bypassing type
// and size checks. The merge mode uses it after decoding each part.
func (o *Orchestrator) PreviewText(title, text string) (*Result, error) {
	text = ingest.Normalize(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty text", ErrDecodeFailure)
	}
	return o.fromText(title, text), nil
}

// fromText is the shared pipeline tail: build the tree, then format every
// policy's buffered content. It never fails; unstructured input falls back
// to a single default section and policy.
func (o *Orchestrator) fromText(title, text string) *Result {
	st := structure.Build(o.classifier, text)
	st.Title = title

	for _, sec := range st.Sections {
		for _, pol := range sec.Policies {
			pol.ContentHTML = htmlformat.Format(pol.Raw)
		}
	}

	if o.recorder != nil {
		o.recorder.ObserveStructure(st.SectionCount(), st.PolicyCount())
	}
	return &Result{
		Structure: st,
		Summary:   Summary{Sections: st.SectionCount(), Policies: st.PolicyCount()},
	}
}

// Commit re-runs the preview computation for doc (the client resubmits
// the same file; nothing is cached between phases) and persists the
// resulting structure as actorID. On any store failure the transaction
// has been fully rolled back and ErrPersistence is returned.
func (o *Orchestrator) Commit(ctx context.Context, doc Document, opts Options, actorID string) (string, error) {
	start := time.Now()
	res, err := o.preview(ctx, doc, opts)
	if err != nil {
		o.observe("commit", start, err)
		return "", err
	}
	id, err := o.persist(ctx, res, actorID)
	o.observe("commit", start, err)
	return id, err
}

// CommitText is the decoded-text commit path used by the merge mode.
func (o *Orchestrator) CommitText(ctx context.Context, title, text, actorID string) (string, error) {
	start := time.Now()
	res, err := o.PreviewText(title, text)
	if err != nil {
		o.observe("commit", start, err)
		return "", err
	}
	id, err := o.persist(ctx, res, actorID)
	o.observe("commit", start, err)
	return id, err
}

func (o *Orchestrator) persist(ctx context.Context, res *Result, actorID string) (string, error) {
	if o.store == nil {
		return "", fmt.Errorf("%w: no store configured", ErrPersistence)
	}

	manualID, err := o.store.PersistStructure(ctx, res.Structure, actorID)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return "", fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	o.publisher.PublishImported(ctx, events.ManualImported{
		ManualID:   manualID,
		Title:      res.Structure.Title,
		Sections:   res.Summary.Sections,
		Policies:   res.Summary.Policies,
		ImportedBy: actorID,
		ImportedAt: time.Now().UTC(),
	})
	return manualID, nil
}

func (o *Orchestrator) observe(mode string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	if o.recorder != nil {
		o.recorder.ObserveImport(mode, outcome, time.Since(start))
	}
	if err != nil {
		slog.Debug("Import phase failed", "mode", mode, "error", err)
	}
}
