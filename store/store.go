// Package store persists pages in a local sqlite database so documents
// survive between runs. Each row holds one page's full document text; the
// canonical in-memory state lives in package document and is written through
// here after every successful mutation.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Page is one stored page.
type Page struct {
	ID        int64
	Title     string
	HTML      string
	UpdatedAt time.Time
}

// Store wraps the pages database.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS pages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	html TEXT NOT NULL,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreatePage inserts a new page and returns it with its assigned ID.
func (s *Store) CreatePage(title, html string) (Page, error) {
	now := time.Now()
	res, err := s.db.Exec(
		"INSERT INTO pages (title, html, updated_at) VALUES (?, ?, ?)",
		title, html, now,
	)
	if err != nil {
		return Page{}, fmt.Errorf("creating page: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Page{}, fmt.Errorf("creating page: %w", err)
	}
	return Page{ID: id, Title: title, HTML: html, UpdatedAt: now}, nil
}

// ListPages returns all pages without their document text, newest first.
func (s *Store) ListPages() ([]Page, error) {
	rows, err := s.db.Query("SELECT id, title, updated_at FROM pages ORDER BY updated_at DESC")
	if err != nil {
		return nil, fmt.Errorf("listing pages: %w", err)
	}
	defer rows.Close()

	var pages []Page
	for rows.Next() {
		var p Page
		if err := rows.Scan(&p.ID, &p.Title, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("listing pages: %w", err)
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

// LoadPage fetches one page including its document text.
func (s *Store) LoadPage(id int64) (Page, error) {
	var p Page
	err := s.db.QueryRow(
		"SELECT id, title, html, updated_at FROM pages WHERE id = ?", id,
	).Scan(&p.ID, &p.Title, &p.HTML, &p.UpdatedAt)
	if err != nil {
		return Page{}, fmt.Errorf("loading page %d: %w", id, err)
	}
	return p, nil
}

// SaveDocument writes the page's current document text.
func (s *Store) SaveDocument(id int64, html string) error {
	_, err := s.db.Exec(
		"UPDATE pages SET html = ?, updated_at = ? WHERE id = ?",
		html, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("saving page %d: %w", id, err)
	}
	return nil
}

// RenamePage updates the page title.
func (s *Store) RenamePage(id int64, title string) error {
	_, err := s.db.Exec("UPDATE pages SET title = ? WHERE id = ?", title, id)
	if err != nil {
		return fmt.Errorf("renaming page %d: %w", id, err)
	}
	return nil
}

// DeletePage removes a page.
func (s *Store) DeletePage(id int64) error {
	_, err := s.db.Exec("DELETE FROM pages WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting page %d: %w", id, err)
	}
	return nil
}
