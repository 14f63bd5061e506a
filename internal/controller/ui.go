// Package controller provides output adapters for displaying obfuscation
// runs.
package controller

import (
	"context"
	"os"

	"golang.org/x/term"

	m "symveil.dev/pkg/symveil/internal/model"
)

// EstimateRow is one file's symbol census prepared for display.
type EstimateRow struct {
	Path   m.Path
	Counts map[m.SymbolKind]int
}

// Total sums the row across kinds.
func (r EstimateRow) Total() int {
	total := 0
	for _, n := range r.Counts {
		total += n
	}

	return total
}

// StartMode defines the mode of operation for the UI.
type StartMode int

// Available StartMode values.
const (
	ModeEstimate StartMode = iota
	ModeRun
)

// StartOption is a functional option for Start.
type StartOption func(*StartConfig)

// StartConfig holds configuration for starting the UI.
type StartConfig struct {
	mode StartMode
}

// WithEstimateMode sets the UI to estimation mode.
func WithEstimateMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeEstimate
	}
}

// WithRunMode sets the UI to pipeline execution mode.
func WithRunMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeRun
	}
}

// UI defines the interface for presenting run progress and results.
// Implementations can use different output methods (plain text, TUI).
type UI interface {
	Start(ctx context.Context, options ...StartOption) error
	Close(ctx context.Context)
	Wait(ctx context.Context)
	Progress(fraction float64, message string)
	DisplayEstimation(ctx context.Context, rows []EstimateRow, err error) error
	DisplayDiff(ctx context.Context, path m.Path, diff string)
	DisplayReport(ctx context.Context, report *m.RunReport) error
}

// IsTTY reports whether stdout is an interactive terminal, which selects
// the TUI over the plain renderer.
func IsTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
