package model

// TransformResult is produced per source file during the transform phase and
// consumed by the engine for reporting and file writes.
type TransformResult struct {
	Path         Path
	Content      []byte
	Replacements int
	// RenamedTo carries the new file name when the file's primary exported
	// symbol was renamed; empty when the stem is untracked.
	RenamedTo Path
	// Errors collects per-symbol failures. The file is still written
	// best-effort when this is non-empty.
	Errors []error
}

// ResourceResult is the uniform outcome shape shared by all four resource
// mutators.
type ResourceResult struct {
	Path    Path
	Family  ResourceFamily
	Success bool
	Message string
	Err     error
	Details map[string]string
}

// RunStatus summarizes an entire run.
type RunStatus string

const (
	// StatusSuccess means zero failures occurred.
	StatusSuccess RunStatus = "success"
	// StatusPartial means recoverable failures occurred but the run finished.
	StatusPartial RunStatus = "partial"
	// StatusFailed means the run aborted or strict mode promoted failures.
	StatusFailed RunStatus = "failed"
)

// ResourceStats aggregates mutation outcomes for one resource family.
type ResourceStats struct {
	Processed int
	Mutated   int
	Fallback  int // originals copied through unmodified after a failure
}

// RunReport is the run-level aggregate returned by the engine. It is always
// producible, even for a fully failed run.
type RunReport struct {
	Status            RunStatus
	FilesProcessed    int
	FilesSkipped      int // unchanged files gated by the incremental tracker
	SymbolsMapped     int
	TotalReplacements int
	ResourceStats     map[ResourceFamily]ResourceStats
	MappingExportPath Path
	Errors            []error
}

// AddError records a recoverable error on the report.
func (r *RunReport) AddError(err error) {
	if err != nil {
		r.Errors = append(r.Errors, err)
	}
}

// Finalize settles the run status. In strict mode any recoverable error
// fails the run; otherwise errors degrade it to partial success.
func (r *RunReport) Finalize(strict bool) {
	switch {
	case len(r.Errors) == 0:
		r.Status = StatusSuccess
	case strict:
		r.Status = StatusFailed
	default:
		r.Status = StatusPartial
	}
}
