// Package extract scans source text and yields symbol records. It protects
// string, comment and continuation regions with a scanner state machine so
// declarations embedded in them are never misread, and it degrades to
// partial results on malformed input rather than failing a file.
package extract

import (
	"path/filepath"
	"strings"

	m "symveil.dev/pkg/symveil/internal/model"
)

// DialectHandler extracts symbols for one source dialect. Handlers are
// stateless; scanner state never leaks across files.
type DialectHandler interface {
	// Dialect identifies the handled dialect.
	Dialect() m.Dialect

	// Extensions lists the file extensions (with dot) this handler accepts.
	Extensions() []string

	// Extract scans file content and returns the declared symbols. It never
	// fails on unrecognized syntax; malformed declarations are skipped and
	// reported through ParseError values in the second return.
	Extract(content []byte, path m.Path) ([]m.Symbol, []error)
}

// Handlers returns the registered dialect handlers.
func Handlers() []DialectHandler {
	return []DialectHandler{NewObjCHandler(), NewSwiftHandler()}
}

// ForPath selects a handler by file extension, once per file.
func ForPath(path m.Path) (DialectHandler, bool) {
	ext := strings.ToLower(filepath.Ext(string(path)))

	for _, h := range Handlers() {
		for _, e := range h.Extensions() {
			if e == ext {
				return h, true
			}
		}
	}

	return nil, false
}
