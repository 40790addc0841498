// Mockup is an LLM-driven HTML page editor. Pages render in a browser
// context where elements can be clicked to select them; instructions typed
// here are sent to the model with the selection and current document, and
// the reply comes back as patch operations or a full replacement page.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"

	"mockup/config"
	"mockup/document"
	"mockup/llm"
	"mockup/preview"
	"mockup/prompt"
	"mockup/protocol"
	"mockup/selection"
	"mockup/store"
	"mockup/stream"
)

func main() {
	dbPath := flag.String("db", "", "override the pages database path")
	providerName := flag.String("provider", "", "force a model provider (claude-api, claude-code)")
	headless := flag.Bool("headless", false, "run the preview browser headless")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *dbPath != "" {
		cfg.Store.Path = *dbPath
	}
	if *providerName != "" {
		cfg.Model.Provider = *providerName
	}
	if *headless {
		cfg.Preview.Headless = true
	}

	if err := config.EnsureDir(); err != nil {
		log.Fatalf("config dir: %v", err)
	}

	app, err := newApp(cfg)
	if err != nil {
		log.Fatalf("startup: %v", err)
	}
	defer app.shutdown()

	app.repl()
}

// page ties one stored page to its live editing state.
type page struct {
	id      int64
	title   string
	state   *document.State
	ctx     *preview.Context // nil until opened in the browser
	history []llm.Message

	// The session is single-threaded; sessMu serializes the browser
	// listener goroutine against turn goroutines swapping it out.
	sessMu  sync.Mutex
	session *selection.Session
}

// handleEvent feeds one pointer event from the rendering context into the
// page's selection session.
func (p *page) handleEvent(ev selection.InputEvent) {
	p.sessMu.Lock()
	defer p.sessMu.Unlock()
	if p.session != nil {
		p.session.Handle(ev)
	}
}

// setSession swaps in a session built against a new document tree.
func (p *page) setSession(sess *selection.Session) {
	p.sessMu.Lock()
	p.session = sess
	p.sessMu.Unlock()
}

// clearSessionSelection resets the session without broadcasting.
func (p *page) clearSessionSelection() {
	p.sessMu.Lock()
	defer p.sessMu.Unlock()
	if p.session != nil {
		p.session.ClearSelection()
	}
}

type app struct {
	cfg      *config.Config
	store    *store.Store
	client   *llm.Client
	orch     *stream.Orchestrator
	router   *protocol.Router
	server   *preview.Server
	previews *preview.Manager

	mu    sync.Mutex
	pages map[int64]*page
}

func newApp(cfg *config.Config) (*app, error) {
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, err
	}

	api := llm.NewClaudeAPI("").WithModel(cfg.Model.Name).WithMaxTokens(cfg.Model.MaxTokens)
	client := llm.NewClient(api, llm.NewClaudeCode())
	if cfg.Model.Provider != "" && !client.SetPreferred(cfg.Model.Provider) {
		log.Printf("provider %q not available, falling back to auto-selection", cfg.Model.Provider)
	}

	a := &app{
		cfg:    cfg,
		store:  st,
		client: client,
		orch:   stream.New(client),
		pages:  make(map[int64]*page),
	}
	a.router = protocol.NewRouter(a.onSelection)

	a.server, err = preview.NewServer(cfg.Preview.Listen, a)
	if err != nil {
		st.Close()
		return nil, err
	}

	a.previews = preview.NewManager(a.server, preview.Options{
		ChromePath: cfg.Preview.ChromePath,
		Headless:   cfg.Preview.Headless,
	}, a.onContextEvent)

	return a, nil
}

func (a *app) shutdown() {
	a.previews.Shutdown()
	a.server.Close()
	a.store.Close()
}

// Document implements preview.DocumentSource; the server re-reads current
// state on every request.
func (a *app) Document(pageID int64) (string, bool) {
	a.mu.Lock()
	p, ok := a.pages[pageID]
	a.mu.Unlock()
	if !ok {
		return "", false
	}
	return p.state.HTML(), true
}

// onContextEvent feeds a pointer event from a rendering context into that
// page's selection session.
func (a *app) onContextEvent(contextID string, ev selection.InputEvent) {
	c, ok := a.previews.Lookup(contextID)
	if !ok {
		return
	}

	a.mu.Lock()
	p, ok := a.pages[c.PageID]
	a.mu.Unlock()
	if !ok {
		return
	}

	p.handleEvent(ev)
}

// onSelection is the router's handler: it records the snapshot against the
// page the sending context belongs to.
func (a *app) onSelection(pageID int64, payload []selection.SelectedElement) {
	a.mu.Lock()
	p, ok := a.pages[pageID]
	a.mu.Unlock()
	if !ok {
		return
	}
	p.state.SetSelection(payload)
	fmt.Printf("\n[%d element(s) selected on %q]\n> ", len(payload), p.title)
}

// open loads a page, builds its selection session, and shows it in a
// browser context.
func (a *app) open(id int64) (*page, error) {
	a.mu.Lock()
	if p, ok := a.pages[id]; ok && p.ctx != nil {
		a.mu.Unlock()
		a.router.SetActive(id)
		return p, nil
	}
	a.mu.Unlock()

	row, err := a.store.LoadPage(id)
	if err != nil {
		return nil, err
	}

	p := &page{id: row.ID, title: row.Title, state: document.New(row.HTML)}
	a.mu.Lock()
	a.pages[id] = p
	a.mu.Unlock()

	ctx, err := a.previews.Open(id)
	if err != nil {
		return nil, err
	}
	p.ctx = ctx
	a.router.Register(ctx.ID, id)

	if err := a.rebuildSession(p); err != nil {
		return nil, err
	}

	a.router.SetActive(id)
	return p, nil
}

// rebuildSession re-parses the page's current document into a fresh
// selection session. Called on open and after every document replacement.
func (a *app) rebuildSession(p *page) error {
	contextID := ""
	if p.ctx != nil {
		contextID = p.ctx.ID
	}

	sess, err := selection.New(p.state.HTML(), func(snapshot []selection.SelectedElement) {
		a.router.Dispatch(protocol.SelectionChanged(contextID, snapshot))
	})
	if err != nil {
		return fmt.Errorf("parsing document for page %d: %w", p.id, err)
	}
	p.setSession(sess)
	return nil
}

// editTarget adapts a page to stream.Target. Replace persists the new
// document, refreshes the live context, and rebuilds the selection session
// against the new tree.
type editTarget struct {
	app  *app
	page *page
}

func (t *editTarget) HTML() string {
	return t.page.state.HTML()
}

func (t *editTarget) Replace(html string) {
	t.page.state.Replace(html)

	if err := t.app.store.SaveDocument(t.page.id, html); err != nil {
		log.Printf("persisting page %d: %v", t.page.id, err)
	}
	if err := t.app.rebuildSession(t.page); err != nil {
		log.Printf("rebuilding session: %v", err)
	}
	if t.page.ctx != nil {
		if err := t.app.previews.Reload(t.page.ctx); err != nil {
			log.Printf("reloading preview: %v", err)
		}
	}
}

func (t *editTarget) ClearSelection() {
	t.page.state.ClearSelection()
	t.page.clearSessionSelection()
	if t.page.ctx != nil {
		if err := t.app.previews.ClearSelection(t.page.ctx); err != nil {
			log.Printf("clearing context selection: %v", err)
		}
	}
}

// send runs one editing turn for the active page in the background so the
// prompt stays responsive for cancel.
func (a *app) send(instruction string) {
	id, ok := a.router.Active()
	if !ok {
		fmt.Println("no active page; open one first")
		return
	}

	a.mu.Lock()
	p, exists := a.pages[id]
	a.mu.Unlock()
	if !exists {
		fmt.Println("active page is no longer open")
		return
	}

	key := strconv.FormatInt(id, 10)
	if a.orch.Active(key) {
		fmt.Println("a reply is already streaming for this page; cancel it first")
		return
	}

	a.mu.Lock()
	history := append([]llm.Message(nil), p.history...)
	a.mu.Unlock()

	messages := prompt.Build(history, p.state.Selection(), p.state.HTML(), instruction)

	go func() {
		outcome, err := a.orch.Run(context.Background(), key, &editTarget{app: a, page: p},
			prompt.System, messages, func(token string) {
				fmt.Print(token)
			})
		if err != nil {
			fmt.Printf("\n[%v]\n> ", err)
			return
		}

		for _, w := range outcome.Warnings {
			log.Printf("patch warning: %s", w)
		}

		switch outcome.Phase {
		case stream.Failed:
			fmt.Printf("\n[turn failed: %v]\n> ", outcome.Err)
			return
		case stream.Cancelled:
			fmt.Printf("\n[cancelled; %s]\n> ", describe(outcome))
		default:
			fmt.Printf("\n[%s]\n> ", describe(outcome))
		}

		a.mu.Lock()
		p.history = append(p.history,
			llm.Message{Role: "user", Content: instruction},
			llm.Message{Role: "assistant", Content: outcome.Text},
		)
		a.mu.Unlock()
	}()
}

func describe(o stream.Outcome) string {
	if !o.Mutated {
		return "no change applied"
	}
	if len(o.Warnings) > 0 {
		return fmt.Sprintf("applied %s with %d skipped operation(s)", o.Result, len(o.Warnings))
	}
	return fmt.Sprintf("applied %s", o.Result)
}

func (a *app) repl() {
	fmt.Println("mockup - describe an edit, or :help for commands")
	fmt.Print("> ")

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":

		case line == ":quit" || line == ":q":
			return

		case line == ":help":
			printHelp()

		case line == ":pages":
			a.listPages()

		case strings.HasPrefix(line, ":new"):
			title := strings.TrimSpace(strings.TrimPrefix(line, ":new"))
			if title == "" {
				title = "Untitled"
			}
			a.newPage(title)

		case strings.HasPrefix(line, ":open "):
			a.openCommand(strings.TrimSpace(strings.TrimPrefix(line, ":open ")))

		case strings.HasPrefix(line, ":rename "):
			a.renameCommand(strings.TrimSpace(strings.TrimPrefix(line, ":rename ")))

		case strings.HasPrefix(line, ":delete "):
			a.deleteCommand(strings.TrimSpace(strings.TrimPrefix(line, ":delete ")))

		case line == ":sel":
			a.showSelection()

		case line == ":cancel":
			a.cancelActive()

		case line == ":providers":
			for _, info := range a.client.ListProviders() {
				status := "unavailable"
				if info.Available {
					status = "available"
				}
				fmt.Printf("  %s: %s\n", info.Name, status)
			}

		default:
			a.send(line)
		}
		fmt.Print("> ")
	}
}

func printHelp() {
	fmt.Println(`  :pages              list stored pages
  :new [title]        create a page from the starter template and open it
  :open <id>          open a page in the preview browser
  :rename <id> <title>  retitle a page
  :delete <id>        delete a page, closing its preview if open
  :sel                show the current selection
  :cancel             cancel the streaming reply for the active page
  :providers          list model providers
  :quit               exit
  anything else is sent to the model as an edit instruction`)
}

func (a *app) listPages() {
	pages, err := a.store.ListPages()
	if err != nil {
		fmt.Printf("listing pages: %v\n", err)
		return
	}
	if len(pages) == 0 {
		fmt.Println("no pages yet; :new to create one")
		return
	}
	for _, p := range pages {
		fmt.Printf("  %d  %s  (%s)\n", p.ID, p.Title, p.UpdatedAt.Format("2006-01-02 15:04"))
	}
}

func (a *app) newPage(title string) {
	row, err := a.store.CreatePage(title, document.DefaultTemplate)
	if err != nil {
		fmt.Printf("creating page: %v\n", err)
		return
	}
	if _, err := a.open(row.ID); err != nil {
		fmt.Printf("opening page: %v\n", err)
		return
	}
	fmt.Printf("page %d (%s) open\n", row.ID, title)
}

func (a *app) openCommand(arg string) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		fmt.Println("usage: :open <id>")
		return
	}
	p, err := a.open(id)
	if err != nil {
		fmt.Printf("opening page: %v\n", err)
		return
	}
	fmt.Printf("page %d (%s) open\n", p.id, p.title)
}

func (a *app) renameCommand(arg string) {
	parts := strings.SplitN(arg, " ", 2)
	if len(parts) < 2 || strings.TrimSpace(parts[1]) == "" {
		fmt.Println("usage: :rename <id> <title>")
		return
	}
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		fmt.Println("usage: :rename <id> <title>")
		return
	}
	title := strings.TrimSpace(parts[1])

	if err := a.store.RenamePage(id, title); err != nil {
		fmt.Printf("renaming page: %v\n", err)
		return
	}

	a.mu.Lock()
	if p, ok := a.pages[id]; ok {
		p.title = title
	}
	a.mu.Unlock()
	fmt.Printf("page %d renamed to %q\n", id, title)
}

// deleteCommand removes a stored page, tearing down its rendering context
// when one is open.
func (a *app) deleteCommand(arg string) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		fmt.Println("usage: :delete <id>")
		return
	}

	if c, ok := a.previews.ByPage(id); ok {
		a.router.Unregister(c.ID)
		a.previews.Close(c)
	}

	a.mu.Lock()
	delete(a.pages, id)
	a.mu.Unlock()

	if err := a.store.DeletePage(id); err != nil {
		fmt.Printf("deleting page: %v\n", err)
		return
	}
	fmt.Printf("page %d deleted\n", id)
}

func (a *app) showSelection() {
	id, ok := a.router.Active()
	if !ok {
		fmt.Println("no active page")
		return
	}
	a.mu.Lock()
	p, exists := a.pages[id]
	a.mu.Unlock()
	if !exists {
		fmt.Println("no active page")
		return
	}

	sel := p.state.Selection()
	if len(sel) == 0 {
		fmt.Println("nothing selected")
		return
	}
	for i, el := range sel {
		fmt.Printf("  %d. <%s>  %s\n", i+1, el.TagName, el.Selector)
	}
}

func (a *app) cancelActive() {
	id, ok := a.router.Active()
	if !ok {
		fmt.Println("no active page")
		return
	}
	if !a.orch.Cancel(strconv.FormatInt(id, 10)) {
		fmt.Println("nothing streaming")
	}
}
