package controller

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "symveil.dev/pkg/symveil/internal/model"
)

func newCaptureUI() (*SimpleUI, *bytes.Buffer) {
	var buf bytes.Buffer

	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	return NewSimpleUI(cmd), &buf
}

func TestSimpleUIDisplayEstimation(t *testing.T) {
	ui, buf := newCaptureUI()

	rows := []EstimateRow{
		{Path: "b/Second.swift", Counts: map[m.SymbolKind]int{m.KindClass: 1}},
		{Path: "a/First.m", Counts: map[m.SymbolKind]int{m.KindMethod: 2, m.KindProperty: 1}},
	}

	require.NoError(t, ui.DisplayEstimation(context.Background(), rows, nil))

	out := buf.String()
	assert.Contains(t, out, "a/First.m")
	assert.Contains(t, out, "b/Second.swift")
	assert.Contains(t, out, "TOTAL FILES 2") // tablewriter upper-cases footers

	// files sort by path regardless of input order
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("a/First.m")), bytes.Index(buf.Bytes(), []byte("b/Second.swift")))
}

func TestSimpleUIDisplayEstimationError(t *testing.T) {
	ui, buf := newCaptureUI()

	err := errors.New("walk failed")
	assert.Error(t, ui.DisplayEstimation(context.Background(), nil, err))
	assert.Contains(t, buf.String(), "walk failed")
}

func TestSimpleUIDisplayReport(t *testing.T) {
	ui, buf := newCaptureUI()

	report := &m.RunReport{
		Status:            m.StatusPartial,
		FilesProcessed:    12,
		FilesSkipped:      3,
		SymbolsMapped:     40,
		TotalReplacements: 200,
		ResourceStats: map[m.ResourceFamily]m.ResourceStats{
			m.FamilyImage: {Processed: 5, Mutated: 4, Fallback: 1},
		},
		MappingExportPath: "out/symveil.mapping.yaml",
		Errors:            []error{errors.New("one recoverable failure")},
	}

	require.NoError(t, ui.DisplayReport(context.Background(), report))

	out := buf.String()
	assert.Contains(t, out, "partial")
	assert.Contains(t, out, "12")
	assert.Contains(t, out, "4 mutated, 1 fallback")
	assert.Contains(t, out, "one recoverable failure")
	assert.Contains(t, out, "out/symveil.mapping.yaml")
}

func TestSimpleUIProgressMilestones(t *testing.T) {
	ui, buf := newCaptureUI()

	ui.Progress(0.05, "discovering")
	ui.Progress(0.07, "discovering")
	ui.Progress(0.12, "scanning")
	ui.Progress(0.13, "scanning")
	ui.Progress(1.0, "done")

	out := buf.String()
	assert.Contains(t, out, "discovering")
	assert.Contains(t, out, "scanning")
	assert.Contains(t, out, "done")

	// repeats inside one milestone are suppressed
	assert.Equal(t, 3, bytes.Count(buf.Bytes(), []byte("%]")))
}

func TestSimpleUIProgressConcurrent(t *testing.T) {
	ui, buf := newCaptureUI()

	// pipeline workers report progress in parallel
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := 0; i <= 100; i++ {
				ui.Progress(float64(i)/100, "transforming")
			}
		}()
	}

	wg.Wait()

	// milestones stay monotonic: at most one line per 10% tick
	lines := bytes.Count(buf.Bytes(), []byte("%]"))
	assert.GreaterOrEqual(t, lines, 1)
	assert.LessOrEqual(t, lines, 11)
}

func TestSimpleUIDisplayDiff(t *testing.T) {
	ui, buf := newCaptureUI()

	ui.DisplayDiff(context.Background(), "Sources/MYWidget.h", "-old\n+new\n")
	assert.Contains(t, buf.String(), "Sources/MYWidget.h")
	assert.Contains(t, buf.String(), "+new")
}
