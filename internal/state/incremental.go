// Package state persists per-file content-hash records so unchanged files
// can be skipped across runs.
package state

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	m "symveil.dev/pkg/symveil/internal/model"
)

// Record is one persisted per-file entry.
type Record struct {
	Path        m.Path   `yaml:"path"`
	ContentHash string   `yaml:"content_hash"`
	Symbols     []string `yaml:"symbols,omitempty"`
}

// Tracker gates reprocessing on content-hash changes. A missing or corrupt
// store fails open: everything is processed, nothing is silently skipped.
type Tracker struct {
	mu      sync.Mutex
	records map[m.Path]Record
}

// NewTracker returns an empty tracker (every file needs processing).
func NewTracker() *Tracker {
	return &Tracker{records: make(map[m.Path]Record)}
}

// Load reads the persisted store. Missing and unreadable stores both
// yield an empty tracker; the condition is logged, never fatal.
func Load(path m.Path) *Tracker {
	t := NewTracker()

	data, err := os.ReadFile(string(path))
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("incremental store unreadable, reprocessing everything", "path", path, "error", err)
		}

		return t
	}

	var records []Record
	if err := yaml.Unmarshal(data, &records); err != nil {
		slog.Warn("incremental store corrupt, reprocessing everything", "path", path, "error", err)
		return t
	}

	for _, rec := range records {
		t.records[rec.Path] = rec
	}

	return t
}

// NeedsProcessing reports whether the file changed since its last recorded
// successful transform.
func (t *Tracker) NeedsProcessing(path m.Path, contentHash string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[path]
	if !ok {
		return true
	}

	return rec.ContentHash != contentHash
}

// Record stores the hash and touched symbols after a successful transform,
// replacing any prior record for the path.
func (t *Tracker) Record(path m.Path, contentHash string, symbols []string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.records[path] = Record{Path: path, ContentHash: contentHash, Symbols: symbols}
}

// SymbolsDeclaredIn returns the symbols recorded for a path on the previous
// run, so callers can reprocess files that reference symbols declared in a
// changed file.
func (t *Tracker) SymbolsDeclaredIn(path m.Path) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.records[path].Symbols
}

// Save persists all records sorted by path for stable diffs.
func (t *Tracker) Save(path m.Path) error {
	t.mu.Lock()
	records := make([]Record, 0, len(t.records))

	for _, rec := range t.records {
		records = append(records, rec)
	}
	t.mu.Unlock()

	sort.Slice(records, func(i, j int) bool { return records[i].Path < records[j].Path })

	data, err := yaml.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode incremental store: %w", err)
	}

	if err := os.WriteFile(string(path), data, 0o600); err != nil {
		return fmt.Errorf("write incremental store %s: %w", path, err)
	}

	return nil
}

// Len returns the number of tracked files.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.records)
}
