// Package document holds the single HTML file the service edits.
package document

import (
	"net/http"
	"os"
)

// Store reads and overwrites the document at Path. Writes happen in place:
// there is no backup of the previous content.
type Store struct {
	Path string
}

func New(path string) *Store {
	return &Store{Path: path}
}

// Read returns the full document text.
func (s *Store) Read() (string, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Write replaces the document with text, byte for byte.
func (s *Store) Write(text string) error {
	return os.WriteFile(s.Path, []byte(text), 0o644)
}

// ServeHTTP serves the current document as HTML.
func (s *Store) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if _, err := os.Stat(s.Path); err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	http.ServeFile(w, r, s.Path)
}
