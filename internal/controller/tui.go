package controller

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	m "symveil.dev/pkg/symveil/internal/model"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	phaseStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("246"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	summaryStyle = lipgloss.NewStyle().PaddingLeft(2)
)

// TUI implements UI with a Bubble Tea progress display for interactive
// terminals.
type TUI struct {
	output  io.Writer
	program *tea.Program
	done    chan struct{}
}

// NewTUI creates a new TUI writing to output.
func NewTUI(output io.Writer) *TUI {
	return &TUI{output: output, done: make(chan struct{})}
}

// progressMsg advances the progress bar.
type progressMsg struct {
	fraction float64
	message  string
}

// reportMsg carries the final report and ends the program.
type reportMsg struct {
	report *m.RunReport
}

// Start launches the Bubble Tea program in the background.
func (t *TUI) Start(ctx context.Context, _ ...StartOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	model := newRunModel()
	t.program = tea.NewProgram(model, tea.WithOutput(t.output))

	go func() {
		defer close(t.done)

		_, _ = t.program.Run()
	}()

	return nil
}

// Close asks the program to quit without waiting.
func (t *TUI) Close(_ context.Context) {
	if t.program != nil {
		t.program.Quit()
	}
}

// Wait blocks until the program exits.
func (t *TUI) Wait(_ context.Context) {
	if t.program != nil {
		<-t.done
	}
}

// Progress forwards engine progress into the running program.
func (t *TUI) Progress(fraction float64, message string) {
	if t.program != nil {
		t.program.Send(progressMsg{fraction: fraction, message: message})
	}
}

// DisplayEstimation renders the census as plain styled text; estimation
// finishes too quickly to warrant a live program.
func (t *TUI) DisplayEstimation(ctx context.Context, rows []EstimateRow, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	if err != nil {
		fmt.Fprintln(t.output, failStyle.Render(fmt.Sprintf("estimation error: %v", err)))

		return err
	}

	fmt.Fprintln(t.output, titleStyle.Render("symveil estimation"))
	fmt.Fprint(t.output, renderEstimationTable(rows))

	return nil
}

// DisplayDiff prints a dry-run diff with a styled header.
func (t *TUI) DisplayDiff(ctx context.Context, path m.Path, diff string) {
	if err := ctx.Err(); err != nil {
		return
	}

	fmt.Fprintln(t.output, phaseStyle.Render(string(path)))
	fmt.Fprintln(t.output, diff)
}

// DisplayReport delivers the report to the program and lets its final view
// render the summary.
func (t *TUI) DisplayReport(ctx context.Context, report *m.RunReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if t.program == nil {
		fmt.Fprint(t.output, renderReportTable(report))

		return nil
	}

	t.program.Send(reportMsg{report: report})

	return nil
}

// runModel is the Bubble Tea model for a pipeline run.
type runModel struct {
	bar      progress.Model
	fraction float64
	message  string
	report   *m.RunReport
	quitting bool
}

func newRunModel() runModel {
	return runModel{
		bar:     progress.New(progress.WithDefaultGradient()),
		message: "starting",
	}
}

// Init implements tea.Model.
func (rm runModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (rm runModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		rm.bar.Width = msg.Width - 8

		return rm, nil

	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			rm.quitting = true

			return rm, tea.Quit
		}

		return rm, nil

	case progressMsg:
		if msg.fraction > rm.fraction {
			rm.fraction = msg.fraction
		}

		rm.message = msg.message

		return rm, nil

	case reportMsg:
		rm.report = msg.report
		rm.quitting = true

		return rm, tea.Quit
	}

	return rm, nil
}

// View implements tea.Model.
func (rm runModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("symveil"))
	b.WriteString("\n\n")
	b.WriteString(rm.bar.ViewAs(rm.fraction))
	b.WriteString("\n")
	b.WriteString(phaseStyle.Render(rm.message))
	b.WriteString("\n")

	if rm.report != nil {
		b.WriteString("\n")
		b.WriteString(renderStyledSummary(rm.report))
	}

	return b.String()
}

func renderStyledSummary(report *m.RunReport) string {
	var b strings.Builder

	status := okStyle
	if report.Status == m.StatusPartial {
		status = warnStyle
	} else if report.Status == m.StatusFailed {
		status = failStyle
	}

	b.WriteString(status.Render(fmt.Sprintf("status: %s", report.Status)))
	b.WriteString("\n")
	b.WriteString(summaryStyle.Render(fmt.Sprintf(
		"files %d (skipped %d), symbols %d, replacements %d",
		report.FilesProcessed, report.FilesSkipped, report.SymbolsMapped, report.TotalReplacements)))
	b.WriteString("\n")

	families := make([]m.ResourceFamily, 0, len(report.ResourceStats))
	for family := range report.ResourceStats {
		families = append(families, family)
	}

	sort.Slice(families, func(i, j int) bool { return families[i] < families[j] })

	for _, family := range families {
		stats := report.ResourceStats[family]
		b.WriteString(summaryStyle.Render(fmt.Sprintf(
			"%s: %d mutated, %d fallback", family, stats.Mutated, stats.Fallback)))
		b.WriteString("\n")
	}

	if len(report.Errors) > 0 {
		b.WriteString(warnStyle.Render(fmt.Sprintf("%d warning(s), run with --strict to fail on them", len(report.Errors))))
		b.WriteString("\n")
	}

	return b.String()
}
