// Package whitelist decides which symbol names are excluded from renaming.
package whitelist

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	m "symveil.dev/pkg/symveil/internal/model"
)

// Entry is one user-provided exclusion. Pattern is either a literal name or
// a glob with `*` and `?` wildcards. An empty Kind applies to all kinds.
type Entry struct {
	Pattern string       `yaml:"pattern"`
	Kind    m.SymbolKind `yaml:"kind,omitempty"`
	Reason  string       `yaml:"reason,omitempty"`
}

// Registry answers whitelist queries. It is built once per run and read-only
// afterwards; persisted entries are mutated only through the out-of-band
// management command, never mid-run.
type Registry struct {
	exact map[string][]m.SymbolKind // nil slice means all kinds
	globs []Entry
}

// NewRegistry builds a registry from the built-in exclusions plus any user
// entries.
func NewRegistry(user []Entry) *Registry {
	r := &Registry{exact: make(map[string][]m.SymbolKind)}

	for _, name := range builtinNames {
		r.exact[name] = nil
	}

	for _, entry := range user {
		r.add(entry)
	}

	return r
}

func (r *Registry) add(entry Entry) {
	pattern := strings.TrimSpace(entry.Pattern)
	if pattern == "" {
		return
	}

	entry.Pattern = pattern

	if strings.ContainsAny(pattern, "*?") {
		r.globs = append(r.globs, entry)
		return
	}

	if entry.Kind == "" {
		r.exact[pattern] = nil
		return
	}

	kinds := r.exact[pattern]
	if existing, ok := r.exact[pattern]; ok && existing == nil {
		// Already excluded for all kinds.
		return
	}

	r.exact[pattern] = append(kinds, entry.Kind)
}

// IsWhitelisted reports whether a symbol name must not be renamed. Exact
// matches are an indexed lookup; glob patterns are checked by linear scan,
// which is acceptable for lists that stay under about a thousand entries.
func (r *Registry) IsWhitelisted(name string, kind m.SymbolKind) bool {
	if kinds, ok := r.exact[name]; ok {
		if kinds == nil {
			return true
		}

		for _, k := range kinds {
			if k == kind {
				return true
			}
		}
	}

	for _, entry := range r.globs {
		if entry.Kind != "" && entry.Kind != kind {
			continue
		}

		if globMatch(entry.Pattern, name) {
			return true
		}
	}

	return false
}

// globMatch matches a full name against a pattern supporting `*` (any run of
// characters) and `?` (exactly one character). The pattern is anchored at
// both ends.
func globMatch(pattern, name string) bool {
	p, n := 0, 0
	starP, starN := -1, 0

	for n < len(name) {
		switch {
		case p < len(pattern) && (pattern[p] == '?' || pattern[p] == name[n]):
			p++
			n++
		case p < len(pattern) && pattern[p] == '*':
			starP = p
			starN = n
			p++
		case starP >= 0:
			starN++
			n = starN
			p = starP + 1
		default:
			return false
		}
	}

	for p < len(pattern) && pattern[p] == '*' {
		p++
	}

	return p == len(pattern)
}

// file is the on-disk shape of a user whitelist.
type file struct {
	Entries []Entry `yaml:"entries"`
}

// Load reads user whitelist entries from a yaml file. A missing file yields
// an empty list, not an error, so fresh projects work without setup.
func Load(path m.Path) ([]Entry, error) {
	data, err := os.ReadFile(string(path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("read whitelist %s: %w", path, err)
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse whitelist %s: %w", path, err)
	}

	return f.Entries, nil
}

// Save persists user whitelist entries, sorted by pattern for stable diffs.
func Save(path m.Path, entries []Entry) error {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Pattern < sorted[j].Pattern })

	data, err := yaml.Marshal(file{Entries: sorted})
	if err != nil {
		return fmt.Errorf("encode whitelist: %w", err)
	}

	if err := os.WriteFile(string(path), data, 0o600); err != nil {
		return fmt.Errorf("write whitelist %s: %w", path, err)
	}

	return nil
}
