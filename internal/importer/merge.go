package importer

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/caseward/manualforge/internal/ingest"
)

// Part is one file of a multi-part document set.
type Part struct {
	Filename string
	Payload  []byte
}

// partNumber extracts the embedded "partN" ordinal, or a large sentinel
// when absent so unnumbered parts sort after numbered ones, by name.
func partNumber(filename string) int {
	m := partTokenRe.FindStringSubmatch(filename)
	if m == nil {
		return 1 << 30
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 1 << 30
	}
	return n
}

// MergeParts decodes each part per its own source format, orders them by
// their embedded partN token (name order as tiebreaker), and concatenates
// the decoded text into one document. The merged title derives from the
// first part's filename unless overridden.
func MergeParts(parts []Part, opts Options) (title, text string, err error) {
	if len(parts) == 0 {
		return "", "", fmt.Errorf("%w: no parts to merge", ErrDecodeFailure)
	}

	ordered := make([]Part, len(parts))
	copy(ordered, parts)
	sort.SliceStable(ordered, func(i, j int) bool {
		ni, nj := partNumber(ordered[i].Filename), partNumber(ordered[j].Filename)
		if ni != nj {
			return ni < nj
		}
		return ordered[i].Filename < ordered[j].Filename
	})

	texts := make([]string, 0, len(ordered))
	for _, part := range ordered {
		kind, err := ingest.DetectKind(part.Filename)
		if err != nil {
			return "", "", fmt.Errorf("%w: %s", ErrUnsupportedType, part.Filename)
		}
		if int64(len(part.Payload)) > ingest.MaxBytes(kind) {
			return "", "", fmt.Errorf("%w: %s", ErrTooLarge, part.Filename)
		}
		decoded, err := ingest.Decode(kind, part.Payload, ingest.Options{Granularity: opts.Granularity})
		if err != nil {
			return "", "", fmt.Errorf("%w: %s: %v", ErrDecodeFailure, part.Filename, err)
		}
		texts = append(texts, decoded)
	}

	title = opts.ManualTitle
	if title == "" {
		title = TitleFromFilename(ordered[0].Filename)
	}
	return title, strings.Join(texts, "\n\n"), nil
}

// PreviewMerged merges parts and runs the preview pipeline once over the
// combined text.
func (o *Orchestrator) PreviewMerged(ctx context.Context, parts []Part, opts Options) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	title, text, err := MergeParts(parts, opts)
	if err != nil {
		return nil, err
	}
	return o.PreviewText(title, text)
}

// CommitMerged merges parts and commits the combined document as one
// manual in a single transaction.
func (o *Orchestrator) CommitMerged(ctx context.Context, parts []Part, opts Options, actorID string) (string, error) {
	title, text, err := MergeParts(parts, opts)
	if err != nil {
		return "", err
	}
	return o.CommitText(ctx, title, text, actorID)
}
