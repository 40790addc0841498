package protocol

import (
	"sync"

	"mockup/selection"
)

// Router maps rendering-context instances to pages on the host side. On a
// selection-changed message it identifies the sending context, records that
// page as the active edit target, and hands the payload to the handler.
// Messages from unregistered contexts are dropped.
type Router struct {
	mu        sync.Mutex
	contexts  map[string]int64 // contextID to pageID
	active    int64
	hasActive bool

	onSelection func(pageID int64, payload []selection.SelectedElement)
}

// NewRouter creates a router. onSelection may be nil.
func NewRouter(onSelection func(pageID int64, payload []selection.SelectedElement)) *Router {
	return &Router{
		contexts:    make(map[string]int64),
		onSelection: onSelection,
	}
}

// Register associates a context instance with a page.
func (r *Router) Register(contextID string, pageID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contexts[contextID] = pageID
}

// Unregister removes a context. The active target is kept; it still names a
// page even after its context closed.
func (r *Router) Unregister(contextID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.contexts, contextID)
}

// Dispatch routes one received message. Stray messages from unknown contexts
// and host-bound kinds arriving back on the host are ignored.
func (r *Router) Dispatch(m Message) {
	if m.Type != TypeSelectionChanged {
		return
	}

	r.mu.Lock()
	pageID, ok := r.contexts[m.ContextID]
	if ok {
		r.active = pageID
		r.hasActive = true
	}
	handler := r.onSelection
	r.mu.Unlock()

	if ok && handler != nil {
		handler(pageID, m.Payload)
	}
}

// Active returns the page most recently associated with a selection, and
// whether any selection has been routed yet.
func (r *Router) Active() (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active, r.hasActive
}

// SetActive forces the active target, used when a page is opened explicitly
// rather than clicked in.
func (r *Router) SetActive(pageID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = pageID
	r.hasActive = true
}
