package model

import "fmt"

// ConfigurationError reports bad paths or options. It is fatal and aborts
// before the run starts.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Field, e.Reason)
}

// ParseError reports a malformed declaration. Extraction for the file
// degrades to partial; the run continues.
type ParseError struct {
	File Path
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s:%d: %v", e.File, e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// NameConflictError reports an exhausted collision-retry budget. It is fatal
// and aborts the whole run.
type NameConflictError struct {
	Original string
	Kind     SymbolKind
	Attempts int
}

func (e *NameConflictError) Error() string {
	return fmt.Sprintf("name conflict for %s(%s): no unique name after %d attempts", e.Original, e.Kind, e.Attempts)
}

// TransformError reports a per-symbol replacement failure inside one file.
// The file is still written best-effort.
type TransformError struct {
	File   Path
	Symbol string
	Err    error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("transform %s: symbol %s: %v", e.File, e.Symbol, e.Err)
}

func (e *TransformError) Unwrap() error { return e.Err }

// ResourceError reports a format-specific mutation failure. The original
// resource is copied through unmodified as a safe fallback.
type ResourceError struct {
	Path   Path
	Family ResourceFamily
	Err    error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("resource %s (%s): %v", e.Path, e.Family, e.Err)
}

func (e *ResourceError) Unwrap() error { return e.Err }
