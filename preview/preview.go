package preview

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"

	"mockup/selection"
)

// EventHandler receives normalized input events from a rendering context,
// tagged with the context instance that produced them.
type EventHandler func(contextID string, ev selection.InputEvent)

// Context is one live rendering context: a browser tab showing a page.
type Context struct {
	ID     string
	PageID int64

	ctx    context.Context
	cancel context.CancelFunc
}

// Manager owns the shared browser process and the open contexts.
type Manager struct {
	server  *Server
	onEvent EventHandler

	allocCtx    context.Context
	allocCancel context.CancelFunc

	mu       sync.Mutex
	contexts map[string]*Context
}

// Options configures the browser process.
type Options struct {
	ChromePath string // empty = auto-detect
	Headless   bool
}

// NewManager prepares a browser allocator. Tabs are created lazily by Open.
func NewManager(server *Server, opts Options, onEvent EventHandler) *Manager {
	allocOpts := []chromedp.ExecAllocatorOption{
		chromedp.NoDefaultBrowserCheck,
		chromedp.NoFirstRun,
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1280, 900),
	}
	if opts.Headless {
		allocOpts = append(allocOpts, chromedp.Flag("headless", "new"))
	}
	if opts.ChromePath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ChromePath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)

	return &Manager{
		server:      server,
		onEvent:     onEvent,
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		contexts:    make(map[string]*Context),
	}
}

// Open creates a rendering context for a page: a fresh tab with the
// selection script injected before load and the event binding registered, so
// pointer events flow back from the first paint on.
func (m *Manager) Open(pageID int64) (*Context, error) {
	id := uuid.New().String()

	ctx, cancel := chromedp.NewContext(m.allocCtx)
	c := &Context{ID: id, PageID: pageID, ctx: ctx, cancel: cancel}

	chromedp.ListenTarget(ctx, func(ev interface{}) {
		bc, ok := ev.(*runtime.EventBindingCalled)
		if !ok || bc.Name != selection.BindingName {
			return
		}
		var ie selection.InputEvent
		if err := json.Unmarshal([]byte(bc.Payload), &ie); err != nil {
			return
		}
		if m.onEvent != nil {
			m.onEvent(id, ie)
		}
	})

	err := chromedp.Run(ctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			return runtime.AddBinding(selection.BindingName).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(selection.Script).Do(ctx)
			return err
		}),
		chromedp.Navigate(m.server.URL(pageID)),
	)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("opening context for page %d: %w", pageID, err)
	}

	m.mu.Lock()
	m.contexts[id] = c
	m.mu.Unlock()

	return c, nil
}

// Reload re-navigates the context to pick up a replaced document.
func (m *Manager) Reload(c *Context) error {
	if err := chromedp.Run(c.ctx, chromedp.Reload()); err != nil {
		return fmt.Errorf("reloading context %s: %w", c.ID, err)
	}
	return nil
}

// ClearSelection executes the in-page deselect hook. The page does not
// re-broadcast; the host already knows.
func (m *Manager) ClearSelection(c *Context) error {
	err := chromedp.Run(c.ctx,
		chromedp.Evaluate(`window.__mockupClear && window.__mockupClear();`, nil),
	)
	if err != nil {
		return fmt.Errorf("clearing selection in context %s: %w", c.ID, err)
	}
	return nil
}

// Lookup finds an open context by instance ID.
func (m *Manager) Lookup(contextID string) (*Context, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contexts[contextID]
	return c, ok
}

// ByPage finds the open context showing a page, if any.
func (m *Manager) ByPage(pageID int64) (*Context, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.contexts {
		if c.PageID == pageID {
			return c, true
		}
	}
	return nil, false
}

// Close shuts one context's tab.
func (m *Manager) Close(c *Context) {
	m.mu.Lock()
	delete(m.contexts, c.ID)
	m.mu.Unlock()
	c.cancel()
}

// Shutdown closes every context and the browser process.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	contexts := make([]*Context, 0, len(m.contexts))
	for _, c := range m.contexts {
		contexts = append(contexts, c)
	}
	m.contexts = make(map[string]*Context)
	m.mu.Unlock()

	for _, c := range contexts {
		c.cancel()
	}
	m.allocCancel()
}
