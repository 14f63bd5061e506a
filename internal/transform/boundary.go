// Package transform applies a finalized mapping to file text with
// boundary-safe replacement rules, synchronizing imports and file names in
// the same pass.
package transform

import (
	"bytes"

	m "symveil.dev/pkg/symveil/internal/model"
)

// Entry is one mapping pair prepared for transformation.
type Entry struct {
	Original    string
	Kind        m.SymbolKind
	Labels      []string
	Replacement string
}

// Occurrence is a byte range inside the file content.
type Occurrence struct {
	Start int
	End   int
}

// Matcher locates boundary-safe occurrences of a symbol in masked content.
// It is the seam that isolates heuristic matching from the transformer, so
// it can later be swapped for a real tokenizer without touching callers;
// the heuristics are the documented source of the prefix-collision bug
// class.
type Matcher interface {
	Find(masked []byte, entry Entry, dialect m.Dialect) []Occurrence
}

// ScanMatcher implements Matcher with a single-pass scanning automaton.
//
// An occurrence is accepted only when the bytes on both sides are not
// identifier characters. That rule also covers the reserved-library-prefix
// hazard: a project type literally named "Data" can never match inside a
// vendor-namespaced "NSData", because the preceding "S" is an identifier
// byte. Likewise a short selector label such as "load" can never match as
// a prefix of "loadData".
type ScanMatcher struct{}

// NewScanMatcher constructs the default matcher.
func NewScanMatcher() *ScanMatcher {
	return &ScanMatcher{}
}

// Find returns every boundary-safe occurrence of the entry's original name.
// In Objective-C content, method symbols carrying a multi-part label
// sequence additionally require the occurrence to be followed by a colon,
// keeping the label-and-colon unit atomic. Swift spells the same call as
// name(label:), so the colon rule never applies there; the identifier
// boundary check already rejects partial matches.
func (sm *ScanMatcher) Find(masked []byte, entry Entry, dialect m.Dialect) []Occurrence {
	name := []byte(entry.Original)
	if len(name) == 0 {
		return nil
	}

	requireColon := dialect == m.DialectObjC && entry.Kind == m.KindMethod && len(entry.Labels) > 1

	var occs []Occurrence

	for i := 0; i <= len(masked)-len(name); {
		j := bytes.Index(masked[i:], name)
		if j < 0 {
			break
		}

		start := i + j
		end := start + len(name)
		i = start + 1

		if start > 0 && isIdentByte(masked[start-1]) {
			continue
		}

		if end < len(masked) && isIdentByte(masked[end]) {
			continue
		}

		if requireColon && !followedByColon(masked, end) {
			continue
		}

		occs = append(occs, Occurrence{Start: start, End: end})
	}

	return occs
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '$' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func followedByColon(masked []byte, pos int) bool {
	for pos < len(masked) && (masked[pos] == ' ' || masked[pos] == '\t') {
		pos++
	}

	return pos < len(masked) && masked[pos] == ':'
}
