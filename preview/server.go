// Package preview drives the isolated rendering contexts: a local HTTP
// server hands each page's current document to a headless Chrome tab, the
// injected selection script reports pointer events back over a CDP binding,
// and the host tells tabs to reload or deselect. Each tab is one context
// instance with its own ID, so the protocol router can tell several open
// pages apart.
package preview

import (
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// DocumentSource supplies the current document for a page. Implementations
// must return live state; the server never caches.
type DocumentSource interface {
	Document(pageID int64) (string, bool)
}

// Server serves page documents to the browser contexts.
type Server struct {
	src      DocumentSource
	listener net.Listener
	httpSrv  *http.Server
}

// NewServer starts listening on addr (use "127.0.0.1:0" for an ephemeral
// port) and begins serving.
func NewServer(addr string, src DocumentSource) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("preview listen: %w", err)
	}

	s := &Server{src: src, listener: ln}

	r := chi.NewRouter()
	r.Get("/page/{id}", s.handlePage)

	s.httpSrv = &http.Server{Handler: r}
	go s.httpSrv.Serve(ln)

	return s, nil
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	doc, ok := s.src.Document(id)
	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	fmt.Fprint(w, doc)
}

// URL returns the address a context should load for a page.
func (s *Server) URL(pageID int64) string {
	return fmt.Sprintf("http://%s/page/%d", s.listener.Addr().String(), pageID)
}

// Close stops the server.
func (s *Server) Close() error {
	return s.httpSrv.Close()
}
