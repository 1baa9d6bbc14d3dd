// Package classify labels lines of decoded document text as section
// headers, policy headers, or plain content. Classification is heuristic:
// source documents carry no reliable markup, so ordered pattern rules are
// evaluated most-specific-first and the first match wins. The rules are
// grouped into a named PatternSet so alternate numbering conventions can be
// selected without forking the classifier.
package classify

import (
	"strings"
	"unicode"
)

// LineKind is the classification assigned to a single input line.
type LineKind int

const (
	// ContentLine is body text with no structural meaning of its own.
	ContentLine LineKind = iota
	// SectionHeader opens a new top-level section.
	SectionHeader
	// PolicyHeader opens a new policy under the current section.
	PolicyHeader
)

func (k LineKind) String() string {
	switch k {
	case SectionHeader:
		return "section-header"
	case PolicyHeader:
		return "policy-header"
	default:
		return "content"
	}
}

// Result carries the classification of one line. Title is the header text
// with any leading index token stripped; it is empty for content lines.
// Rule names the pattern that fired, for diagnostics.
type Result struct {
	Kind  LineKind
	Title string
	Rule  string
}

// Classifier applies a PatternSet to individual lines.
type Classifier struct {
	patterns *PatternSet
}

// New returns a classifier using the given pattern set. A nil set selects
// the default decimal-index conventions.
func New(ps *PatternSet) *Classifier {
	if ps == nil {
		ps = DefaultPatternSet()
	}
	return &Classifier{patterns: ps}
}

// Classify labels a single line. sectionOpen reports whether a section has
// already been started; the bare-title fallback only applies inside an
// open section.
//
// All comparisons operate on the trimmed line. Blank lines are always
// content.
func (c *Classifier) Classify(line string, sectionOpen bool) Result {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return Result{Kind: ContentLine}
	}

	for _, r := range c.patterns.sectionRules {
		if title, ok := r.match(trimmed); ok {
			return Result{Kind: SectionHeader, Title: title, Rule: r.name}
		}
	}

	for _, r := range c.patterns.policyRules {
		if title, ok := r.match(trimmed); ok {
			return Result{Kind: PolicyHeader, Title: title, Rule: r.name}
		}
	}

	// Fallback heuristic: a short standalone line with no terminal
	// punctuation is taken as a policy title when a section is open. This
	// will sometimes swallow ordinary short sentences; the trade-off is
	// accepted to keep preview output stable across fixtures.
	if sectionOpen && c.patterns.policyFallback && looksLikeBareTitle(trimmed) {
		return Result{Kind: PolicyHeader, Title: trimmed, Rule: "bare-title"}
	}

	return Result{Kind: ContentLine}
}

// looksLikeBareTitle reports whether a trimmed line reads as a single short
// title sentence: 6-99 characters, starts with a letter or digit, no
// sentence-ending punctuation, no embedded sentence break, and not a list
// item.
func looksLikeBareTitle(s string) bool {
	n := len(s)
	if n < 6 || n > 99 {
		return false
	}
	first := []rune(s)[0]
	if !unicode.IsLetter(first) && !unicode.IsDigit(first) {
		return false
	}
	if listMarkerRe.MatchString(s) {
		return false
	}
	switch s[n-1] {
	case '.', '!', '?', ':', ';', ',':
		return false
	}
	if strings.Contains(s, ". ") {
		return false
	}
	return true
}

// isAllCaps reports whether s contains at least one letter and no lowercase
// letters.
func isAllCaps(s string) bool {
	hasLetter := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsLetter(r) {
			hasLetter = true
		}
	}
	return hasLetter
}
