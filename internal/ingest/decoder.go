// Package ingest turns uploaded payloads into normalized plain text for
// classification. DOCX- and PDF-sourced uploads arrive as already-decoded
// text from the upstream extractor; Markdown sources are decoded locally by
// flattening the Goldmark AST into numbered heading and content lines.
package ingest

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// SourceKind identifies the upstream container a payload was decoded from.
type SourceKind string

const (
	SourceDOCX     SourceKind = "docx"
	SourcePDF      SourceKind = "pdf"
	SourceMarkdown SourceKind = "markdown"
)

// Size ceilings per source format, enforced before any decoding work.
const (
	MaxPDFBytes      = 50 << 20
	MaxDOCXBytes     = 20 << 20
	MaxMarkdownBytes = 20 << 20
)

var (
	// ErrUnknownExtension marks a filename whose extension maps to no
	// supported source format.
	ErrUnknownExtension = errors.New("unsupported file extension")
	// ErrEmptyDocument marks a payload that decoded to nothing usable.
	ErrEmptyDocument = errors.New("document decoded to empty text")
)

// DetectKind maps a source filename to its SourceKind by extension.
func DetectKind(filename string) (SourceKind, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".docx":
		return SourceDOCX, nil
	case ".pdf":
		return SourcePDF, nil
	case ".md", ".markdown":
		return SourceMarkdown, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownExtension, filepath.Ext(filename))
	}
}

// MaxBytes returns the size ceiling for a source kind.
func MaxBytes(kind SourceKind) int64 {
	switch kind {
	case SourcePDF:
		return MaxPDFBytes
	case SourceMarkdown:
		return MaxMarkdownBytes
	default:
		return MaxDOCXBytes
	}
}

// Options carries decode hints. Granularity ("h2" or "h3") selects which
// Markdown heading levels open sections; it is accepted and ignored for
// text-sourced payloads, whose structure is recovered from line patterns
// alone.
type Options struct {
	Granularity string
}

// Decode produces normalized plain text from payload. The result always
// uses LF line endings and NFC-normalized runes.
func Decode(kind SourceKind, payload []byte, opts Options) (string, error) {
	var text string
	var err error

	switch kind {
	case SourceMarkdown:
		text, err = decodeMarkdown(payload, opts)
		if err != nil {
			return "", err
		}
	default:
		text = string(payload)
	}

	text = Normalize(text)
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyDocument
	}
	return text, nil
}

// Normalize canonicalizes decoded text: NFC runes, LF endings, no BOM, no
// stray carriage returns. Classification depends on byte-stable input, so
// this runs on every decode path.
func Normalize(text string) string {
	text = strings.TrimPrefix(text, "\uFEFF")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return norm.NFC.String(text)
}
