// Package selection tracks hover and selection state for a rendered document.
// The session is the authoritative state machine on the host side: the
// rendering context forwards normalized pointer events addressed by element
// index paths, and the session answers with selection snapshots ready to ship
// over the cross-context protocol.
package selection

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"

	"mockup/selector"
)

// SelectedElement is one member of a selection snapshot: everything the model
// needs to target the element unambiguously.
type SelectedElement struct {
	Selector       string            `json:"selector"`
	XPath          string            `json:"xpath"`
	OuterHTML      string            `json:"outerHTML"`
	TagName        string            `json:"tagName"`
	ComputedStyles map[string]string `json:"computedStyles"`
}

// InputEvent is a normalized pointer event from the rendering context. Path
// addresses the target as child-element indexes walking down from body; an
// empty path is the body itself.
type InputEvent struct {
	Action string `json:"action"` // "hover", "leave" or "click"
	Path   []int  `json:"path"`
	Shift  bool   `json:"shift"`
	Ctrl   bool   `json:"ctrl"`
	Meta   bool   `json:"meta"`
}

// Modified reports whether the event carried a multi-select modifier.
func (ev InputEvent) Modified() bool {
	return ev.Shift || ev.Ctrl || ev.Meta
}

// Session holds hover and selection state against one parsed document.
// Not safe for concurrent use; callers serialize events per document.
type Session struct {
	root     *html.Node
	body     *html.Node
	hovered  *html.Node
	selected []*html.Node // insertion-ordered
	styles   *styleResolver
	emit     func([]SelectedElement)
}

// New parses document and returns a fresh session in the idle state. emit is
// called with a full snapshot after every selection mutation, including
// clears caused by clicking blank space; it may be nil.
func New(document string, emit func([]SelectedElement)) (*Session, error) {
	root, err := html.Parse(strings.NewReader(document))
	if err != nil {
		return nil, err
	}
	s := &Session{
		root:   root,
		body:   findElement(root, "body"),
		styles: newStyleResolver(root),
		emit:   emit,
	}
	return s, nil
}

// Handle dispatches one event from the rendering context. Unknown actions are
// ignored.
func (s *Session) Handle(ev InputEvent) {
	switch ev.Action {
	case "hover":
		s.HoverEnter(ev.Path)
	case "leave":
		s.HoverLeave()
	case "click":
		s.Click(ev.Path, ev.Modified())
	}
}

// HoverEnter moves the session into the hovering state for the element at
// path. Hover is independent of selection and never broadcasts.
func (s *Session) HoverEnter(path []int) {
	s.hovered = s.resolve(path)
}

// HoverLeave returns hover state to idle.
func (s *Session) HoverLeave() {
	s.hovered = nil
}

// Hovered returns the currently hovered element, or nil when idle.
func (s *Session) Hovered() *html.Node {
	return s.hovered
}

// Click mutates the selection. A plain click replaces the whole selection
// with the clicked element, or toggles it off when it was already the sole
// member. A modified click toggles membership without clearing the rest.
// Clicking the body or root clears everything. Every outcome broadcasts.
func (s *Session) Click(path []int, modified bool) {
	el := s.resolve(path)
	if el == nil {
		return
	}

	if el == s.body || el.Data == "html" {
		s.selected = nil
		s.broadcast()
		return
	}

	if modified {
		if idx := s.indexOf(el); idx >= 0 {
			s.selected = append(s.selected[:idx], s.selected[idx+1:]...)
		} else {
			s.selected = append(s.selected, el)
		}
		s.broadcast()
		return
	}

	if len(s.selected) == 1 && s.selected[0] == el {
		s.selected = nil
	} else {
		s.selected = []*html.Node{el}
	}
	s.broadcast()
}

// ClearSelection resets the session to idle without broadcasting; it is the
// handler for the host's clear-selection command, where the caller already
// knows.
func (s *Session) ClearSelection() {
	s.selected = nil
	s.hovered = nil
}

// Count returns the number of selected elements.
func (s *Session) Count() int {
	return len(s.selected)
}

// Snapshot recomputes the selected-element descriptors. Selectors are not
// memoized; each snapshot reflects the tree as parsed for this session.
func (s *Session) Snapshot() []SelectedElement {
	out := make([]SelectedElement, 0, len(s.selected))
	for _, el := range s.selected {
		path := selector.Synthesize(el)
		out = append(out, SelectedElement{
			Selector:       path.Selector,
			XPath:          path.XPath,
			OuterHTML:      SanitizeOuterHTML(renderNode(el)),
			TagName:        el.Data,
			ComputedStyles: s.styles.resolve(el),
		})
	}
	return out
}

func (s *Session) broadcast() {
	if s.emit != nil {
		s.emit(s.Snapshot())
	}
}

func (s *Session) indexOf(el *html.Node) int {
	for i, n := range s.selected {
		if n == el {
			return i
		}
	}
	return -1
}

// resolve walks from body down child-element indexes. Out-of-range indexes
// yield nil; stale paths from a context showing an older document must not
// select an unrelated element.
func (s *Session) resolve(path []int) *html.Node {
	n := s.body
	if n == nil {
		return nil
	}
	for _, idx := range path {
		n = elementChild(n, idx)
		if n == nil {
			return nil
		}
	}
	return n
}

func elementChild(n *html.Node, idx int) *html.Node {
	i := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if i == idx {
			return c
		}
		i++
	}
	return nil
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func renderNode(n *html.Node) string {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return ""
	}
	return buf.String()
}
