// Package markup prunes semantically-empty nodes from chapter HTML
// before storage. Source EPUBs are full of empty paragraphs and stray
// spans left behind by conversion tools; stripping them keeps stored
// payloads lean without changing what renders.
package markup

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// keepWhenEmpty lists elements that carry meaning without text content.
var keepWhenEmpty = map[atom.Atom]bool{
	atom.Img:   true,
	atom.Image: true,
	atom.Br:    true,
	atom.Hr:    true,
	atom.Svg:   true,
	atom.Video: true,
	atom.Audio: true,
	atom.Embed: true,
}

// Normalize parses doc, removes every element that has no rendered text
// and no meaningful descendant, and renders the tree back to bytes.
// A single bottom-up pass reaches the fixpoint: removing a child can
// only make its parent more removable, never less. Running Normalize on
// its own output is a no-op.
func Normalize(doc []byte) ([]byte, error) {
	root, err := html.Parse(bytes.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("markup: parse chapter: %w", err)
	}

	prune(root)

	var buf bytes.Buffer
	if err := html.Render(&buf, root); err != nil {
		return nil, fmt.Errorf("markup: render chapter: %w", err)
	}
	return buf.Bytes(), nil
}

// prune removes empty element children of n, bottom-up.
func prune(n *html.Node) {
	c := n.FirstChild
	for c != nil {
		next := c.NextSibling
		prune(c)
		if c.Type == html.ElementNode && removable(c) {
			n.RemoveChild(c)
		}
		c = next
	}
}

// removable reports whether an element node carries no content after
// its children have already been pruned.
func removable(n *html.Node) bool {
	if keepWhenEmpty[n.DataAtom] {
		return false
	}
	// Never drop structural document nodes, even when the body is empty.
	switch n.DataAtom {
	case atom.Html, atom.Head, atom.Body:
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if hasContent(c) {
			return false
		}
	}
	return true
}

func hasContent(n *html.Node) bool {
	switch n.Type {
	case html.TextNode:
		return strings.TrimSpace(n.Data) != ""
	case html.ElementNode:
		if keepWhenEmpty[n.DataAtom] {
			return true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if hasContent(c) {
				return true
			}
		}
		return false
	default:
		return false
	}
}
