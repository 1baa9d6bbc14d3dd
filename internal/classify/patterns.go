package classify

import (
	"fmt"
	"regexp"
	"strings"
)

// headerRule is a single ordered pattern. matchFn rules run arbitrary
// predicates (e.g. the all-caps check); regexp rules extract the title from
// a capture group.
type headerRule struct {
	name       string
	re         *regexp.Regexp
	titleGroup int
	matchFn    func(trimmed string) (string, bool)
}

func (r headerRule) match(trimmed string) (string, bool) {
	if r.matchFn != nil {
		return r.matchFn(trimmed)
	}
	m := r.re.FindStringSubmatch(trimmed)
	if m == nil {
		return "", false
	}
	title := strings.TrimSpace(m[r.titleGroup])
	if title == "" {
		title = trimmed
	}
	return title, true
}

// PatternSet bundles the ordered section and policy rules for one document
// numbering convention.
type PatternSet struct {
	Name           string
	sectionRules   []headerRule
	policyRules    []headerRule
	policyFallback bool
}

var listMarkerRe = regexp.MustCompile(`^(?:[-*\x{2022}]|\d+[.)]|\([a-z]\)|[a-z][.)])\s+`)

var (
	// "2.0 Normal Operations" style section index.
	secDecimalZeroRe = regexp.MustCompile(`^(\d+)\.0[.:]?\s+([A-Z].*)$`)
	// "Chapter 4 Fuel Handling", "Section 2: Reporting".
	secChapterRe = regexp.MustCompile(`^(?:Chapter|Section)\s+(\d+)[.:]?\s*(.*)$`)
	// Roman-numeral index ("IV. Emergencies") or a bare single-capital index
	// without a period ("B Ground Handling"). A single capital followed by a
	// period is a policy index, handled below.
	secRomanRe = regexp.MustCompile(`^(?:[IVXLCDM]{2,}[.)]?|[A-Z])\s+([A-Z][a-z].*)$`)

	// "2.1 Purpose", "2.1.3 Cold Weather Starts".
	polDecimalRe = regexp.MustCompile(`^(\d+\.\d+(?:\.\d+)?)[.:]?\s+([A-Z].*)$`)
	// "A. Reporting Chain".
	polLetterDotRe = regexp.MustCompile(`^([A-Z])\.\s+([A-Z].*)$`)
	// "Policy: Crew Rest Requirements".
	polKeywordRe = regexp.MustCompile(`^(Policy|Procedure|Requirement|Standard):\s*(.*)$`)
)

// DefaultPatternSet returns the decimal-index convention used by the
// majority of source manuals.
func DefaultPatternSet() *PatternSet {
	return &PatternSet{
		Name: "decimal",
		sectionRules: []headerRule{
			{name: "decimal-zero", re: secDecimalZeroRe, titleGroup: 2},
			{name: "all-caps", matchFn: matchAllCapsHeader},
			{name: "chapter-token", re: secChapterRe, titleGroup: 2},
			{name: "roman-or-letter", re: secRomanRe, titleGroup: 1},
		},
		policyRules: []headerRule{
			{name: "decimal-sub", re: polDecimalRe, titleGroup: 2},
			{name: "letter-dot", re: polLetterDotRe, titleGroup: 2},
			{name: "keyword-colon", re: polKeywordRe, titleGroup: 2},
		},
		policyFallback: true,
	}
}

// StrictPatternSet matches only explicit numeric indexes. Used for sources
// known to carry clean numbering, where the bare-title fallback produces
// too many false policies.
func StrictPatternSet() *PatternSet {
	return &PatternSet{
		Name: "strict",
		sectionRules: []headerRule{
			{name: "decimal-zero", re: secDecimalZeroRe, titleGroup: 2},
			{name: "chapter-token", re: secChapterRe, titleGroup: 2},
		},
		policyRules: []headerRule{
			{name: "decimal-sub", re: polDecimalRe, titleGroup: 2},
			{name: "keyword-colon", re: polKeywordRe, titleGroup: 2},
		},
	}
}

// Lookup resolves a pattern set by name. The empty string selects the
// default set.
func Lookup(name string) (*PatternSet, error) {
	switch name {
	case "", "decimal", "default":
		return DefaultPatternSet(), nil
	case "strict":
		return StrictPatternSet(), nil
	default:
		return nil, fmt.Errorf("unknown pattern set %q", name)
	}
}

// matchAllCapsHeader treats an entirely upper-case line of 6-79 characters
// as a section header, keeping the text as-is for the title. Lines carrying
// a policy-level decimal index ("2.1 PURPOSE") are excluded so a policy
// index is never mistaken for a section.
func matchAllCapsHeader(trimmed string) (string, bool) {
	if len(trimmed) < 6 || len(trimmed) > 79 {
		return "", false
	}
	if !isAllCaps(trimmed) {
		return "", false
	}
	if polDecimalRe.MatchString(trimmed) {
		return "", false
	}
	return trimmed, true
}
