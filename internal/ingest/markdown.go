package ingest

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"
)

// decodeMarkdown flattens a Markdown document into classifier-ready lines.
// Headings at or above the granularity cut become synthetic "N.0 Title"
// section lines; deeper headings become "N.M Title" policy lines. Body
// blocks are emitted as plain paragraphs and "- " list items, separated by
// blank lines.
func decodeMarkdown(payload []byte, opts Options) (string, error) {
	sectionLevel := 2
	if opts.Granularity == "h3" {
		sectionLevel = 3
	}

	md := goldmark.New()
	root := md.Parser().Parse(gmtext.NewReader(payload))

	var out []string
	sec, pol := 0, 0

	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *gmast.Heading:
			title := capitalize(nodeText(node, payload))
			if title == "" {
				continue
			}
			if node.Level <= sectionLevel {
				sec++
				pol = 0
				out = append(out, fmt.Sprintf("%d.0 %s", sec, title), "")
			} else {
				if sec == 0 {
					sec = 1
				}
				pol++
				out = append(out, fmt.Sprintf("%d.%d %s", sec, pol, title), "")
			}

		case *gmast.List:
			for item := node.FirstChild(); item != nil; item = item.NextSibling() {
				if text := nodeText(item, payload); text != "" {
					out = append(out, "- "+text)
				}
			}
			out = append(out, "")

		case *gmast.FencedCodeBlock, *gmast.CodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				out = append(out, strings.TrimRight(string(seg.Value(payload)), "\n"))
			}
			out = append(out, "")

		case *gmast.ThematicBreak:
			out = append(out, "")

		default:
			if text := nodeText(n, payload); text != "" {
				out = append(out, text, "")
			}
		}
	}

	return strings.Join(out, "\n"), nil
}

// capitalize upper-cases the first rune. The heading level already proved
// these lines are headers, so lowercase markdown titles must not fall
// through the index rules as plain content.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError || !unicode.IsLower(r) {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// nodeText collects the plain text of a node and its descendants.
func nodeText(n gmast.Node, source []byte) string {
	var sb strings.Builder
	_ = gmast.Walk(n, func(child gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch t := child.(type) {
		case *gmast.Text:
			sb.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteByte(' ')
			}
		case *gmast.String:
			sb.Write(t.Value)
		}
		return gmast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}
