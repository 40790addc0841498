// Package document owns the canonical HTML text for each editable page. The
// document is an opaque string replaced wholesale and never mutated in place
// from outside; consumers must re-read it at the point of use instead of
// caching it across an asynchronous boundary.
package document

import (
	"sync"

	"mockup/selection"
)

// DefaultTemplate is the starter document for a new page.
const DefaultTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>New Page</title>
<style>
body { font-family: Helvetica, Arial, sans-serif; margin: 40px auto; max-width: 720px; color: #222; }
h1 { font-size: 2em; }
p { line-height: 1.5; }
</style>
</head>
<body>
<h1>New Page</h1>
<p>Describe the page you want and it will be built here.</p>
</body>
</html>`

// State holds one page's current document text and selection snapshot.
// Safe for concurrent use: browser events and the editor loop touch it from
// different goroutines.
type State struct {
	mu        sync.RWMutex
	html      string
	selection []selection.SelectedElement
}

// New creates page state holding the given document, or the default template
// when empty.
func New(html string) *State {
	if html == "" {
		html = DefaultTemplate
	}
	return &State{html: html}
}

// HTML returns the current document text.
func (s *State) HTML() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.html
}

// Replace swaps in a new document wholesale and drops the selection, which
// can no longer be trusted against the new tree.
func (s *State) Replace(html string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.html = html
	s.selection = nil
}

// Selection returns the latest selection snapshot.
func (s *State) Selection() []selection.SelectedElement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selection
}

// SetSelection records a snapshot received from the rendering context.
func (s *State) SetSelection(sel []selection.SelectedElement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = sel
}

// ClearSelection drops the snapshot.
func (s *State) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = nil
}
