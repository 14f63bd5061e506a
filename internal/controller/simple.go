package controller

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	m "symveil.dev/pkg/symveil/internal/model"
)

// estimateColumns fixes the kind column order in estimation tables.
var estimateColumns = []m.SymbolKind{
	m.KindClass, m.KindMethod, m.KindProperty, m.KindProtocol, m.KindCategory,
}

// SimpleUI implements UI with plain line output via cobra Command's printer.
type SimpleUI struct {
	cmd *cobra.Command

	mu       sync.Mutex // Progress is called from parallel pipeline workers
	lastTick int
}

// NewSimpleUI creates a new SimpleUI.
func NewSimpleUI(cmd *cobra.Command) *SimpleUI {
	return &SimpleUI{cmd: cmd, lastTick: -1}
}

// Start initializes the UI.
func (s *SimpleUI) Start(ctx context.Context, _ ...StartOption) error {
	return ctx.Err()
}

// Close finalizes the UI (no-op for SimpleUI).
func (s *SimpleUI) Close(_ context.Context) {}

// Wait blocks until the UI is closed (no-op for SimpleUI).
func (s *SimpleUI) Wait(_ context.Context) {}

// Progress prints one line per 10% milestone so logs stay readable.
func (s *SimpleUI) Progress(fraction float64, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tick := int(fraction * 10)
	if tick <= s.lastTick {
		return
	}

	s.lastTick = tick
	s.printf("[%3.0f%%] %s\n", fraction*100, message)
}

// DisplayEstimation prints the per-file symbol census or the error that
// prevented it.
func (s *SimpleUI) DisplayEstimation(ctx context.Context, rows []EstimateRow, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	if err != nil {
		s.printf("estimation error: %v\n", err)

		return err
	}

	s.printf("\n%s", renderEstimationTable(rows))

	return nil
}

func renderEstimationTable(rows []EstimateRow) string {
	sorted := make([]EstimateRow, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	var buf bytes.Buffer

	table := tablewriter.NewWriter(&buf)
	header := []string{"Path"}

	for _, kind := range estimateColumns {
		header = append(header, string(kind))
	}

	header = append(header, "Total")
	table.SetHeader(header)
	table.SetBorder(false)
	table.SetCenterSeparator("")

	grandTotal := 0

	for _, row := range sorted {
		cells := []string{string(row.Path)}

		for _, kind := range estimateColumns {
			cells = append(cells, fmt.Sprintf("%d", row.Counts[kind]))
		}

		cells = append(cells, fmt.Sprintf("%d", row.Total()))
		table.Append(cells)

		grandTotal += row.Total()
	}

	footer := make([]string, len(header))
	footer[0] = fmt.Sprintf("Total Files %d", len(sorted))
	footer[len(footer)-1] = fmt.Sprintf("%d", grandTotal)
	table.SetFooter(footer)

	table.Render()

	return buf.String()
}

// DisplayDiff prints one dry-run diff block.
func (s *SimpleUI) DisplayDiff(ctx context.Context, path m.Path, diff string) {
	if err := ctx.Err(); err != nil {
		return
	}

	// invoked from parallel transform workers, like Progress
	s.mu.Lock()
	defer s.mu.Unlock()

	s.printf("--- dry-run: %s ---\n%s\n", path, diff)
}

// DisplayReport prints the run summary table and any recoverable errors.
func (s *SimpleUI) DisplayReport(ctx context.Context, report *m.RunReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.printf("\n%s", renderReportTable(report))

	for _, runErr := range report.Errors {
		s.printf("warning: %v\n", runErr)
	}

	if report.MappingExportPath != "" {
		s.printf("mapping written to %s\n", report.MappingExportPath)
	}

	return nil
}

func renderReportTable(report *m.RunReport) string {
	var buf bytes.Buffer

	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Metric", "Value"})
	table.SetBorder(false)
	table.SetCenterSeparator("")

	table.Append([]string{"Status", string(report.Status)})
	table.Append([]string{"Files processed", fmt.Sprintf("%d", report.FilesProcessed)})
	table.Append([]string{"Files skipped", fmt.Sprintf("%d", report.FilesSkipped)})
	table.Append([]string{"Symbols mapped", fmt.Sprintf("%d", report.SymbolsMapped)})
	table.Append([]string{"Replacements", fmt.Sprintf("%d", report.TotalReplacements)})

	families := make([]m.ResourceFamily, 0, len(report.ResourceStats))
	for family := range report.ResourceStats {
		families = append(families, family)
	}

	sort.Slice(families, func(i, j int) bool { return families[i] < families[j] })

	for _, family := range families {
		stats := report.ResourceStats[family]
		table.Append([]string{
			fmt.Sprintf("Resources (%s)", family),
			fmt.Sprintf("%d mutated, %d fallback", stats.Mutated, stats.Fallback),
		})
	}

	table.Append([]string{"Errors", fmt.Sprintf("%d", len(report.Errors))})
	table.Render()

	return buf.String()
}

func (s *SimpleUI) printf(format string, args ...any) {
	s.cmd.Printf(format, args...)
}
