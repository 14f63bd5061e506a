package engine

import (
	"context"
	"sort"

	m "symveil.dev/pkg/symveil/internal/model"
	"symveil.dev/pkg/symveil/internal/whitelist"
)

// FileEstimate is the per-file symbol census produced by extraction-only
// runs.
type FileEstimate struct {
	Path   m.Path
	Counts map[m.SymbolKind]int
}

// Total sums the file's renameable symbols across kinds.
func (fe FileEstimate) Total() int {
	total := 0
	for _, n := range fe.Counts {
		total += n
	}

	return total
}

// Estimate runs discovery and extraction only and reports how many symbols
// each file would contribute to a real run. Whitelisted and disabled kinds
// are left out of the counts.
func (e *Engine) Estimate(ctx context.Context) ([]FileEstimate, error) {
	e.cfg.DryRun = true // estimation never writes

	excludes, err := e.cfg.validate()
	if err != nil {
		return nil, err
	}

	e.registry = whitelist.NewRegistry(e.cfg.WhitelistEntries)
	e.loadTracker()

	inv, err := e.discover(excludes)
	if err != nil {
		return nil, err
	}

	report := &m.RunReport{}

	extractions, err := e.extractAll(ctx, inv, report)
	if err != nil {
		return nil, err
	}

	estimates := make([]FileEstimate, 0, len(extractions))

	for _, res := range extractions {
		counts := make(map[m.SymbolKind]int)

		for _, sym := range res.symbols {
			if !e.cfg.kindEnabled(sym.Kind) || e.registry.IsWhitelisted(sym.Name, sym.Kind) {
				continue
			}

			counts[sym.Kind]++
		}

		estimates = append(estimates, FileEstimate{Path: res.item.rel, Counts: counts})
	}

	sort.Slice(estimates, func(i, j int) bool { return estimates[i].Path < estimates[j].Path })

	return estimates, nil
}
