package htmlformat

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// allowedTags is the closed set of elements the formatter emits. Anything
// else in a content fragment means raw source text leaked through, or a
// caller handed the mapper content the formatter never produced.
var allowedTags = map[atom.Atom]bool{
	atom.P:      true,
	atom.H3:     true,
	atom.Ul:     true,
	atom.Li:     true,
	atom.Strong: true,
}

// Validate checks that fragment parses as well-formed HTML consisting only
// of the elements the formatter emits. The persistence mapper runs this on
// every policy body before insert.
func Validate(fragment string) error {
	if strings.TrimSpace(fragment) == "" {
		return fmt.Errorf("empty content fragment")
	}

	ctx := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), ctx)
	if err != nil {
		return fmt.Errorf("parse content fragment: %w", err)
	}

	for _, n := range nodes {
		if err := checkNode(n); err != nil {
			return err
		}
	}
	return nil
}

func checkNode(n *html.Node) error {
	if n.Type == html.ElementNode && !allowedTags[n.DataAtom] {
		return fmt.Errorf("disallowed element <%s> in content fragment", n.Data)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := checkNode(c); err != nil {
			return err
		}
	}
	return nil
}
