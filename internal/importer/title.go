package importer

import (
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	partTokenRe  = regexp.MustCompile(`(?i)part[ _-]?(\d+)\b`)
	separatorsRe = regexp.MustCompile(`[-_.]+`)
	spacesRe     = regexp.MustCompile(`\s+`)

	titleCaser = cases.Title(language.English, cases.NoLower)
)

// TitleFromFilename derives a manual title from a source filename: the
// extension and any "partN" token are dropped, separators become spaces,
// and words are title-cased. An unusable name falls back to
// "Imported Manual".
func TitleFromFilename(filename string) string {
	base := filepath.Base(filename)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = partTokenRe.ReplaceAllString(base, " ")
	base = separatorsRe.ReplaceAllString(base, " ")
	base = strings.TrimSpace(spacesRe.ReplaceAllString(base, " "))
	if base == "" {
		return "Imported Manual"
	}
	return titleCaser.String(base)
}
