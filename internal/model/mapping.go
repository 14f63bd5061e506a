package model

import (
	"fmt"
	"sort"
	"time"
)

// Mapping is the run-scoped original-to-obfuscated name table. It is owned
// exclusively by the engine: populated sequentially during the generation
// phase and read-only afterwards.
type Mapping struct {
	entries map[SymbolKey]string
	issued  map[string]SymbolKey // reverse index for collision detection
}

// NewMapping returns an empty mapping.
func NewMapping() *Mapping {
	return &Mapping{
		entries: make(map[SymbolKey]string),
		issued:  make(map[string]SymbolKey),
	}
}

// Put records an obfuscated name for a symbol key. It fails when the
// obfuscated name was already issued to a different original, because a
// silent duplicate is worse than aborting the run.
func (m *Mapping) Put(key SymbolKey, obfuscated string) error {
	if prev, ok := m.issued[obfuscated]; ok && prev != key {
		return fmt.Errorf("obfuscated name %q already issued to %s(%s)", obfuscated, prev.Name, prev.Kind)
	}

	m.entries[key] = obfuscated
	m.issued[obfuscated] = key

	return nil
}

// Lookup returns the obfuscated name for a key.
func (m *Mapping) Lookup(key SymbolKey) (string, bool) {
	name, ok := m.entries[key]
	return name, ok
}

// LookupName returns the obfuscated name for an original regardless of kind.
// Used by resource mutators, where only the bare name is known.
func (m *Mapping) LookupName(original string) (string, bool) {
	for _, kind := range AllKinds {
		if name, ok := m.entries[SymbolKey{Name: original, Kind: kind}]; ok {
			return name, true
		}
	}

	return "", false
}

// Issued reports whether an obfuscated name is already taken.
func (m *Mapping) Issued(name string) bool {
	_, ok := m.issued[name]
	return ok
}

// Len returns the number of mapped symbols.
func (m *Mapping) Len() int {
	return len(m.entries)
}

// Entries returns all mapping pairs sorted by original name for stable
// export output.
func (m *Mapping) Entries() []MappingEntry {
	out := make([]MappingEntry, 0, len(m.entries))
	for key, obf := range m.entries {
		out = append(out, MappingEntry{Original: key.Name, Kind: key.Kind, Obfuscated: obf})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Original != out[j].Original {
			return out[i].Original < out[j].Original
		}

		return out[i].Kind < out[j].Kind
	})

	return out
}

// Validate confirms the injectivity invariant: no two distinct originals
// share an obfuscated value. It runs before the transform phase.
func (m *Mapping) Validate() error {
	seen := make(map[string]SymbolKey, len(m.entries))

	for key, obf := range m.entries {
		if prev, ok := seen[obf]; ok {
			return fmt.Errorf("duplicate obfuscated name %q for %s(%s) and %s(%s)",
				obf, prev.Name, prev.Kind, key.Name, key.Kind)
		}

		seen[obf] = key
	}

	return nil
}

// MappingEntry is one exported original-to-obfuscated pair.
type MappingEntry struct {
	Original   string     `yaml:"original"`
	Kind       SymbolKind `yaml:"kind"`
	Obfuscated string     `yaml:"obfuscated"`
}

// MappingExport is the machine-readable export of a run's mapping together
// with the metadata needed to reproduce it.
type MappingExport struct {
	GeneratedAt time.Time      `yaml:"generated_at"`
	Strategy    string         `yaml:"strategy"`
	Seed        string         `yaml:"seed,omitempty"`
	Entries     []MappingEntry `yaml:"entries"`
}
