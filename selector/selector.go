// Package selector synthesizes stable CSS selectors and positional XPaths for
// elements in a parsed document tree. Selectors anchor on the nearest ancestor
// with an id attribute when one exists, and otherwise fall back to
// :nth-of-type positions down from the body.
package selector

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// Path addresses one element two ways: a CSS selector suitable for querying,
// and a positional XPath.
type Path struct {
	Selector string
	XPath    string
}

// Synthesize computes the addressing path for an element. It is a pure
// function of the element and its ancestor chain at call time; structural
// edits elsewhere in the tree can invalidate positional segments afterwards.
func Synthesize(el *html.Node) Path {
	return Path{
		Selector: cssPath(el),
		XPath:    xpath(el),
	}
}

func cssPath(el *html.Node) string {
	if el == nil || el.Type != html.ElementNode {
		return ""
	}
	if el.Data == "html" || el.Data == "body" {
		return el.Data
	}

	var segments []string
	for n := el; n != nil && n.Type == html.ElementNode; n = parentElement(n) {
		if n.Data == "html" || n.Data == "body" {
			segments = append(segments, n.Data)
			break
		}
		if id := attr(n, "id"); id != "" {
			segments = append(segments, "#"+EscapeIdent(id))
			break
		}
		segments = append(segments, positionSegment(n))
	}

	// Built leaf-first, emit top-down.
	var sb strings.Builder
	for i := len(segments) - 1; i >= 0; i-- {
		sb.WriteString(segments[i])
		if i > 0 {
			sb.WriteString(" > ")
		}
	}
	return sb.String()
}

// positionSegment emits the tag alone when it is the only child of its parent
// with that tag, and tag:nth-of-type(k) otherwise.
func positionSegment(n *html.Node) string {
	rank, total := typeRank(n)
	if total <= 1 {
		return n.Data
	}
	return fmt.Sprintf("%s:nth-of-type(%d)", n.Data, rank)
}

func xpath(el *html.Node) string {
	if el == nil || el.Type != html.ElementNode {
		return ""
	}

	var segments []string
	for n := el; n != nil && n.Type == html.ElementNode; n = parentElement(n) {
		rank, total := typeRank(n)
		if total > 1 {
			segments = append(segments, fmt.Sprintf("%s[%d]", n.Data, rank))
		} else {
			segments = append(segments, n.Data)
		}
	}

	var sb strings.Builder
	for i := len(segments) - 1; i >= 0; i-- {
		sb.WriteString("/")
		sb.WriteString(segments[i])
	}
	return sb.String()
}

// typeRank returns the 1-based rank of n among its same-tag element siblings,
// and how many such siblings exist in total.
func typeRank(n *html.Node) (rank, total int) {
	if n.Parent == nil {
		return 1, 1
	}
	for c := n.Parent.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.Data != n.Data {
			continue
		}
		total++
		if c == n {
			rank = total
		}
	}
	if rank == 0 {
		rank, total = 1, 1
	}
	return rank, total
}

func parentElement(n *html.Node) *html.Node {
	p := n.Parent
	if p == nil || p.Type != html.ElementNode {
		return nil
	}
	return p
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// EscapeIdent escapes a string for use as a CSS identifier, per the
// serialization rules for identifiers: letters, digits, hyphen and underscore
// pass through; a leading digit and everything else is backslash-escaped.
func EscapeIdent(s string) string {
	var sb strings.Builder
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '-', r == '_', r > 0x7f:
			sb.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				fmt.Fprintf(&sb, "\\3%c ", r)
			} else {
				sb.WriteRune(r)
			}
		default:
			sb.WriteString("\\")
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
