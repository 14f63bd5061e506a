package model

// SymbolKind categorizes a declared entity eligible for renaming.
type SymbolKind string

const (
	// KindClass covers class, struct, enum and actor declarations.
	KindClass SymbolKind = "class"
	// KindMethod covers method and function declarations.
	KindMethod SymbolKind = "method"
	// KindProperty covers property and stored field declarations.
	KindProperty SymbolKind = "property"
	// KindProtocol covers protocol and interface declarations.
	KindProtocol SymbolKind = "protocol"
	// KindCategory covers category and extension declarations.
	KindCategory SymbolKind = "category"
)

// AllKinds lists every recognized symbol kind.
var AllKinds = []SymbolKind{KindClass, KindMethod, KindProperty, KindProtocol, KindCategory}

// Valid reports whether the kind belongs to the closed set.
func (k SymbolKind) Valid() bool {
	switch k {
	case KindClass, KindMethod, KindProperty, KindProtocol, KindCategory:
		return true
	}

	return false
}

// Span marks an occurrence of a symbol inside its declaring file.
type Span struct {
	Line  int // 1-based line number
	Start int // byte offset of the first character within the line
	End   int // byte offset one past the last character
}

// Symbol represents a named declared entity found by an extractor.
type Symbol struct {
	Name          string
	Kind          SymbolKind
	DeclaringFile Path
	Spans         []Span
	// Labels holds the full parameter label sequence for method-like
	// symbols, e.g. ["load"] vs ["loadData"]. Replacement rules must match
	// the sequence atomically.
	Labels []string
	// Whitelisted is resolved exactly once before mapping generation and is
	// immutable for the remainder of the run.
	Whitelisted bool
}

// Key returns the identity used by the run-scoped mapping.
func (s Symbol) Key() SymbolKey {
	return SymbolKey{Name: s.Name, Kind: s.Kind}
}

// SymbolKey identifies a symbol within a mapping. Two declarations with the
// same name and kind share one obfuscated name across the whole run.
type SymbolKey struct {
	Name string
	Kind SymbolKind
}
