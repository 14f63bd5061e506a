package engine

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pmezard/go-difflib/difflib"
	"golang.org/x/sync/errgroup"

	"symveil.dev/pkg/symveil/internal/adapter"
	"symveil.dev/pkg/symveil/internal/extract"
	m "symveil.dev/pkg/symveil/internal/model"
	"symveil.dev/pkg/symveil/internal/namegen"
	"symveil.dev/pkg/symveil/internal/resource"
	"symveil.dev/pkg/symveil/internal/state"
	"symveil.dev/pkg/symveil/internal/transform"
	"symveil.dev/pkg/symveil/internal/whitelist"
)

// Engine owns the run-scoped mapping and incremental tracker and drives the
// pipeline phases in order. A single Engine value serves one run.
type Engine struct {
	cfg      Config
	fs       adapter.SourceFSAdapter
	store    adapter.MappingStore
	mapping  *m.Mapping
	tracker  *state.Tracker
	registry *whitelist.Registry
}

// New assembles an engine from its adapters. Passing nil adapters selects
// the local filesystem implementations.
func New(cfg Config, fs adapter.SourceFSAdapter, store adapter.MappingStore) *Engine {
	if fs == nil {
		fs = adapter.NewLocalSourceFSAdapter()
	}

	if store == nil {
		store = adapter.NewYAMLMappingStore()
	}

	return &Engine{
		cfg:     cfg,
		fs:      fs,
		store:   store,
		mapping: m.NewMapping(),
	}
}

// extraction is the per-file outcome of the extraction phase.
type extraction struct {
	item    item
	hash    string
	symbols []m.Symbol
	skipped bool
}

// Run executes the full pipeline and always returns a report, even when the
// run aborts.
func (e *Engine) Run(ctx context.Context) (*m.RunReport, error) {
	report := &m.RunReport{ResourceStats: make(map[m.ResourceFamily]m.ResourceStats)}

	excludes, err := e.cfg.validate()
	if err != nil {
		report.Status = m.StatusFailed

		return report, err
	}

	e.registry = whitelist.NewRegistry(e.cfg.WhitelistEntries)
	e.loadTracker()

	e.progress(0.02, "discovering files")

	inv, err := e.discover(excludes)
	if err != nil {
		report.Status = m.StatusFailed

		return report, err
	}

	slog.Debug("discovery complete",
		"sources", len(inv.sources), "resources", len(inv.resources), "passthrough", len(inv.others))

	extractions, err := e.extractAll(ctx, inv, report)
	if err != nil {
		report.Status = m.StatusFailed

		return report, err
	}

	e.progress(0.4, "generating names")

	index, err := e.generateMapping(extractions)
	if err != nil {
		report.Status = m.StatusFailed

		return report, err
	}

	report.SymbolsMapped = e.mapping.Len()

	entries := e.transformEntries(index)

	if err := e.transformAll(ctx, extractions, entries, report); err != nil {
		report.Status = m.StatusFailed

		return report, err
	}

	if err := e.mutateResources(ctx, inv, report); err != nil {
		report.Status = m.StatusFailed

		return report, err
	}

	if err := e.writePassthrough(ctx, inv, report); err != nil {
		report.Status = m.StatusFailed

		return report, err
	}

	e.progress(0.97, "exporting mapping")
	e.exportArtifacts(report)

	report.Finalize(e.cfg.Strict)
	e.progress(1.0, "done")

	return report, nil
}

func (e *Engine) progress(fraction float64, message string) {
	if e.cfg.OnProgress != nil {
		e.cfg.OnProgress(fraction, message)
	}
}

// loadTracker prepares the incremental store; caching is skipped entirely
// when disabled or unconfigured.
func (e *Engine) loadTracker() {
	if e.cfg.NoCache || e.cfg.StatePath == "" {
		e.tracker = state.NewTracker()

		return
	}

	e.tracker = state.Load(e.cfg.StatePath)
}

// extractAll runs the extraction phase with bounded parallelism and drains
// every result before returning: the mapping phase must observe the complete
// symbol population.
func (e *Engine) extractAll(ctx context.Context, inv *inventory, report *m.RunReport) ([]extraction, error) {
	results := make([]extraction, len(inv.sources))

	var mu sync.Mutex

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(e.cfg.Threads)

	for i, src := range inv.sources {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}

			res, errs := e.extractOne(src)

			mu.Lock()
			results[i] = res

			for _, extractErr := range errs {
				report.AddError(extractErr)
			}

			if res.skipped {
				report.FilesSkipped++
			}
			mu.Unlock()

			e.progress(0.05+0.3*float64(i+1)/float64(len(inv.sources)+1), "scanning "+string(src.rel))

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

func (e *Engine) extractOne(src item) (extraction, []error) {
	res := extraction{item: src}

	hash, err := e.fs.HashFile(src.abs)
	if err != nil {
		return res, []error{&m.ParseError{File: src.abs, Err: err}}
	}

	res.hash = hash

	if !e.cfg.NoCache && !e.tracker.NeedsProcessing(src.abs, hash) {
		res.skipped = true
		res.symbols = decodeSymbols(e.tracker.SymbolsDeclaredIn(src.abs), src.abs)

		return res, nil
	}

	content, err := e.fs.ReadFile(src.abs)
	if err != nil {
		return res, []error{&m.ParseError{File: src.abs, Err: err}}
	}

	handler, ok := extract.ForPath(src.abs)
	if !ok {
		return res, nil
	}

	symbols, errs := handler.Extract(content, src.abs)
	res.symbols = symbols

	e.tracker.Record(src.abs, hash, encodeSymbols(symbols))

	return res, errs
}

// generateMapping is the single-writer phase between extraction and
// transformation. It walks the deduplicated symbol population in stable
// order and issues names sequentially, so the collision index never races.
func (e *Engine) generateMapping(extractions []extraction) (map[m.SymbolKey]m.Symbol, error) {
	index := make(map[m.SymbolKey]m.Symbol)

	for _, res := range extractions {
		for _, sym := range res.symbols {
			key := sym.Key()

			if existing, ok := index[key]; ok {
				// Keep the richer record; label lists only come from full
				// method declarations.
				if len(existing.Labels) >= len(sym.Labels) {
					continue
				}
			}

			index[key] = sym
		}
	}

	if err := e.loadPriorMapping(); err != nil {
		return nil, err
	}

	keys := make([]m.SymbolKey, 0, len(index))
	for key := range index {
		keys = append(keys, key)
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Name != keys[j].Name {
			return keys[i].Name < keys[j].Name
		}

		return keys[i].Kind < keys[j].Kind
	})

	gen := e.newGenerator(index)

	for _, key := range keys {
		if !e.cfg.kindEnabled(key.Kind) || e.registry.IsWhitelisted(key.Name, key.Kind) {
			continue
		}

		if _, ok := e.mapping.Lookup(key); ok {
			continue // carried over from a prior run
		}

		result := gen.Generate(key.Name, key.Kind)
		if result.Conflict {
			return nil, &m.NameConflictError{Original: key.Name, Kind: key.Kind, Attempts: result.Attempts}
		}

		if err := e.mapping.Put(key, result.Name); err != nil {
			return nil, err
		}
	}

	if err := e.mapping.Validate(); err != nil {
		return nil, err
	}

	return index, nil
}

func (e *Engine) newGenerator(index map[m.SymbolKey]m.Symbol) *namegen.Generator {
	taken := func(name string) bool {
		if e.mapping.Issued(name) {
			return true
		}

		// Never issue a name that already exists in the project.
		for _, kind := range m.AllKinds {
			if _, ok := index[m.SymbolKey{Name: name, Kind: kind}]; ok {
				return true
			}
		}

		return false
	}

	keyword := func(name string) bool {
		for _, kind := range m.AllKinds {
			if e.registry.IsWhitelisted(name, kind) {
				return true
			}
		}

		return false
	}

	return namegen.New(e.cfg.Strategy,
		namegen.WithSeed(e.cfg.Seed),
		namegen.WithPrefix(e.cfg.Prefix),
		namegen.WithTakenCheck(taken),
		namegen.WithKeywordCheck(keyword),
	)
}

// loadPriorMapping seeds the run mapping from a previous export so symbols
// keep their obfuscated names across incremental runs.
func (e *Engine) loadPriorMapping() error {
	if e.cfg.PriorMappingPath == "" {
		return nil
	}

	export, err := e.store.LoadMapping(e.cfg.PriorMappingPath)
	if err != nil {
		return &m.ConfigurationError{Field: "prior-mapping", Reason: err.Error()}
	}

	for _, entry := range export.Entries {
		key := m.SymbolKey{Name: entry.Original, Kind: entry.Kind}
		if err := e.mapping.Put(key, entry.Obfuscated); err != nil {
			return fmt.Errorf("prior mapping: %w", err)
		}
	}

	return nil
}

// transformEntries freezes the mapping into the replacement list consumed
// by the (read-only, parallel) transform phase.
func (e *Engine) transformEntries(index map[m.SymbolKey]m.Symbol) []transform.Entry {
	entries := make([]transform.Entry, 0, e.mapping.Len())

	for _, pair := range e.mapping.Entries() {
		key := m.SymbolKey{Name: pair.Original, Kind: pair.Kind}

		entry := transform.Entry{
			Original:    pair.Original,
			Kind:        pair.Kind,
			Replacement: pair.Obfuscated,
		}

		if sym, ok := index[key]; ok {
			entry.Labels = sym.Labels
		}

		entries = append(entries, entry)
	}

	return entries
}

// transformAll rewrites every source file against the frozen mapping and
// writes the result into the mirrored output tree.
func (e *Engine) transformAll(ctx context.Context, extractions []extraction, entries []transform.Entry, report *m.RunReport) error {
	transformer := transform.NewTransformer(nil)

	var mu sync.Mutex

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(e.cfg.Threads)

	for i, res := range extractions {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}

			content, err := e.fs.ReadFile(res.item.abs)
			if err != nil {
				mu.Lock()
				report.AddError(&m.TransformError{File: res.item.abs, Err: err})
				mu.Unlock()

				return nil
			}

			result := transformer.Transform(res.item.abs, content, res.item.dialect, entries)

			writeErr := e.emitTransformed(res.item, content, result)

			mu.Lock()
			report.FilesProcessed++
			report.TotalReplacements += result.Replacements

			for _, tErr := range result.Errors {
				report.AddError(tErr)
			}

			report.AddError(writeErr)
			mu.Unlock()

			e.progress(0.45+0.35*float64(i+1)/float64(len(extractions)+1), "rewriting "+string(res.item.rel))

			return nil
		})
	}

	return group.Wait()
}

// emitTransformed writes one transformed source into the output tree, or
// reports a diff in dry-run mode. A renamed primary symbol renames the file.
func (e *Engine) emitTransformed(src item, original []byte, result m.TransformResult) error {
	if e.cfg.DryRun {
		if e.cfg.OnDiff != nil && !bytes.Equal(original, result.Content) {
			diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
				A:        difflib.SplitLines(string(original)),
				B:        difflib.SplitLines(string(result.Content)),
				FromFile: string(src.rel),
				ToFile:   string(outputRel(src, result)),
				Context:  3,
			})
			if err != nil {
				return &m.TransformError{File: src.abs, Err: err}
			}

			e.cfg.OnDiff(src.rel, diff)
		}

		return nil
	}

	dst := e.fs.JoinPath(string(e.cfg.Output), string(outputRel(src, result)))

	if err := e.fs.WriteFile(dst, result.Content, 0o644); err != nil {
		return &m.TransformError{File: src.abs, Err: err}
	}

	return nil
}

// outputRel places the (possibly renamed) file at its mirrored position.
func outputRel(src item, result m.TransformResult) m.Path {
	if result.RenamedTo == "" {
		return src.rel
	}

	return m.Path(filepath.Join(filepath.Dir(string(src.rel)), string(result.RenamedTo)))
}

// mutateResources runs the resource phase. The mapping is frozen and
// read-only here, so families process in parallel safely.
func (e *Engine) mutateResources(ctx context.Context, inv *inventory, report *m.RunReport) error {
	if e.cfg.DryRun {
		return nil
	}

	mutators := resource.Mutators(e.cfg.Resources)

	var mu sync.Mutex

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(e.cfg.Threads)

	for i, res := range inv.resources {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}

			mutator, ok := resource.For(mutators, res.abs)
			if !ok {
				return nil
			}

			rel := res.rel
			if renamed, ok := e.renamedResource(res); ok {
				rel = renamed
			}

			dst := e.fs.JoinPath(string(e.cfg.Output), string(rel))
			outcome := mutator.Process(groupCtx, res.abs, dst, e.mapping)

			mu.Lock()
			stats := report.ResourceStats[outcome.Family]
			stats.Processed++

			if outcome.Success {
				stats.Mutated++
			} else {
				stats.Fallback++

				report.AddError(outcome.Err)
			}

			report.ResourceStats[outcome.Family] = stats
			mu.Unlock()

			e.progress(0.8+0.15*float64(i+1)/float64(len(inv.resources)+1), "mutating "+string(res.rel))

			return nil
		})
	}

	return group.Wait()
}

// renamedResource maps a standalone resource file whose stem matches a
// renamed symbol, keeping code references like imageNamed: consistent.
func (e *Engine) renamedResource(res item) (m.Path, bool) {
	base := filepath.Base(string(res.rel))
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	next, ok := e.mapping.LookupName(stem)
	if !ok {
		return "", false
	}

	return m.Path(filepath.Join(filepath.Dir(string(res.rel)), next+ext)), true
}

// writePassthrough mirrors every unclassified file into the output tree
// unmodified.
func (e *Engine) writePassthrough(ctx context.Context, inv *inventory, report *m.RunReport) error {
	if e.cfg.DryRun {
		return nil
	}

	for _, other := range inv.others {
		if err := ctx.Err(); err != nil {
			return err
		}

		content, err := e.fs.ReadFile(other.abs)
		if err != nil {
			report.AddError(err)

			continue
		}

		dst := e.fs.JoinPath(string(e.cfg.Output), string(other.rel))
		if err := e.fs.WriteFile(dst, content, 0o644); err != nil {
			report.AddError(err)
		}
	}

	return nil
}

// exportArtifacts persists the mapping export and the incremental state.
// Neither failure aborts the run; the output tree is already valid.
func (e *Engine) exportArtifacts(report *m.RunReport) {
	if e.cfg.DryRun {
		return
	}

	mappingPath := e.cfg.MappingPath
	if mappingPath == "" {
		mappingPath = e.fs.JoinPath(string(e.cfg.Output), "symveil.mapping.yaml")
	}

	export := m.MappingExport{
		GeneratedAt: time.Now().UTC(),
		Strategy:    string(e.cfg.Strategy),
		Seed:        e.cfg.Seed,
		Entries:     e.mapping.Entries(),
	}

	if err := e.store.SaveMapping(mappingPath, export); err != nil {
		report.AddError(fmt.Errorf("export mapping: %w", err))
	} else {
		report.MappingExportPath = mappingPath
	}

	if !e.cfg.NoCache && e.cfg.StatePath != "" {
		if err := e.tracker.Save(e.cfg.StatePath); err != nil {
			report.AddError(fmt.Errorf("save state: %w", err))
		}
	}
}

// encodeSymbols flattens symbols for the incremental store.
func encodeSymbols(symbols []m.Symbol) []string {
	out := make([]string, 0, len(symbols))

	for _, sym := range symbols {
		parts := append([]string{string(sym.Kind), sym.Name}, sym.Labels...)
		out = append(out, strings.Join(parts, "\x1f"))
	}

	return out
}

// decodeSymbols restores symbols recorded by a previous run for a file the
// incremental tracker allowed us to skip.
func decodeSymbols(encoded []string, path m.Path) []m.Symbol {
	out := make([]m.Symbol, 0, len(encoded))

	for _, raw := range encoded {
		parts := strings.Split(raw, "\x1f")
		if len(parts) < 2 {
			continue
		}

		sym := m.Symbol{Kind: m.SymbolKind(parts[0]), Name: parts[1], DeclaringFile: path}
		if len(parts) > 2 {
			sym.Labels = parts[2:]
		}

		if !sym.Kind.Valid() {
			continue
		}

		out = append(out, sym)
	}

	return out
}
