// Package htmlformat converts buffered content lines into semantic HTML
// blocks. Output is deterministic: formatting identical input bytes twice
// yields byte-identical HTML, which is what lets the commit phase replay a
// previewed structure without re-deriving anything.
package htmlformat

import (
	"html"
	"regexp"
	"strings"
	"unicode"
)

// Placeholder replaces empty formatted output. An empty content string is
// ambiguous with "still loading" in the editing UI, so it never persists.
const Placeholder = "<p>Content pending review.</p>"

var listMarkerRe = regexp.MustCompile(`^(?:[-*\x{2022}]|\d+[.)]|\([a-z]\)|[a-z][.)])\s+`)

const (
	maxHeadingLen   = 79
	keyValueColonAt = 50
)

// Format renders buffered lines as HTML. Lines are grouped into paragraphs
// on blank-line boundaries; each paragraph is classified independently as a
// heading, a run of list items, a key-value line, or a plain paragraph.
// Consecutive list paragraphs share one list container.
func Format(lines []string) string {
	groups := splitParagraphs(lines)

	var out []string
	var openList []string

	flushList := func() {
		if len(openList) == 0 {
			return
		}
		out = append(out, "<ul>"+strings.Join(openList, "")+"</ul>")
		openList = nil
	}

	for _, group := range groups {
		if isListGroup(group) {
			openList = append(openList, listItems(group)...)
			continue
		}
		flushList()

		text := strings.Join(group, " ")
		switch {
		case isHeading(text):
			out = append(out, "<h3>"+html.EscapeString(text)+"</h3>")
		case isKeyValue(text):
			key, value, _ := strings.Cut(text, ":")
			out = append(out, "<p><strong>"+html.EscapeString(strings.TrimSpace(key))+":</strong> "+
				html.EscapeString(strings.TrimSpace(value))+"</p>")
		default:
			out = append(out, "<p>"+html.EscapeString(text)+"</p>")
		}
	}
	flushList()

	if len(out) == 0 {
		return Placeholder
	}
	return strings.Join(out, "\n")
}

// splitParagraphs groups trimmed non-blank lines, breaking on blank lines.
// Blank lines carry no semantic weight beyond separating groups.
func splitParagraphs(lines []string) [][]string {
	var groups [][]string
	var current []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if len(current) > 0 {
				groups = append(groups, current)
				current = nil
			}
			continue
		}
		current = append(current, trimmed)
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}

// isListGroup reports whether a paragraph's first line carries a list
// marker. Continuation lines without markers fold into the preceding item.
func isListGroup(group []string) bool {
	return len(group) > 0 && listMarkerRe.MatchString(group[0])
}

// listItems renders a list paragraph as <li> elements, stripping markers.
func listItems(group []string) []string {
	var items []string
	for _, line := range group {
		if loc := listMarkerRe.FindStringIndex(line); loc != nil {
			items = append(items, "<li>"+html.EscapeString(strings.TrimSpace(line[loc[1]:]))+"</li>")
			continue
		}
		if len(items) == 0 {
			items = append(items, "<li>"+html.EscapeString(line)+"</li>")
			continue
		}
		// Wrapped continuation of the previous item.
		last := items[len(items)-1]
		items[len(items)-1] = strings.TrimSuffix(last, "</li>") + " " + html.EscapeString(line) + "</li>"
	}
	return items
}

// isHeading reports whether text reads as an inline heading: short, all
// upper-case, and not a list item.
func isHeading(text string) bool {
	if len(text) == 0 || len(text) > maxHeadingLen {
		return false
	}
	if listMarkerRe.MatchString(text) {
		return false
	}
	hasLetter := false
	for _, r := range text {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsLetter(r) {
			hasLetter = true
		}
	}
	return hasLetter
}

// isKeyValue reports whether text is a "Key: value" line, with the colon
// appearing before column 50.
func isKeyValue(text string) bool {
	idx := strings.Index(text, ":")
	return idx > 0 && idx < keyValueColonAt
}
