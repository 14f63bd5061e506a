package engine

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"symveil.dev/pkg/symveil/internal/extract"
	m "symveil.dev/pkg/symveil/internal/model"
	"symveil.dev/pkg/symveil/internal/resource"
)

// itemKind classifies a discovered path for the write phase.
type itemKind int

const (
	itemSource itemKind = iota
	itemResource
	itemOther
)

// item is one discovered file (or catalog directory) plus its position
// relative to its root, which fixes its place in the mirrored output tree.
type item struct {
	abs     m.Path
	rel     m.Path
	kind    itemKind
	dialect m.Dialect
}

// inventory is the complete, sorted result of the discovery phase.
type inventory struct {
	sources   []item
	resources []item
	others    []item
}

func (inv *inventory) total() int {
	return len(inv.sources) + len(inv.resources) + len(inv.others)
}

// walkMode controls what a root contributes to the inventory.
type walkMode int

const (
	// modeFull collects sources, resources and passthrough files.
	modeFull walkMode = iota
	// modeSourcesOnly collects sources and passthrough files; resources are
	// owned by dedicated resource roots.
	modeSourcesOnly
	// modeResourcesOnly collects resources and passthrough files.
	modeResourcesOnly
)

// discover walks the configured roots and classifies every file. Asset
// catalogs are recorded as a single item and their subtree is not descended
// into, since the catalog mutator owns the whole directory.
func (e *Engine) discover(excludes []*regexp.Regexp) (*inventory, error) {
	inv := &inventory{}
	mutators := resource.Mutators(e.cfg.Resources)

	sourceMode := modeFull
	if len(e.cfg.ResourcePaths) > 0 {
		sourceMode = modeSourcesOnly
	}

	for _, root := range e.cfg.Paths {
		if err := e.walkRoot(inv, mutators, root, excludes, sourceMode); err != nil {
			return nil, err
		}
	}

	for _, root := range e.cfg.ResourcePaths {
		if err := e.walkRoot(inv, mutators, root, excludes, modeResourcesOnly); err != nil {
			return nil, err
		}
	}

	sortItems(inv.sources)
	sortItems(inv.resources)
	sortItems(inv.others)

	return inv, nil
}

func (e *Engine) walkRoot(inv *inventory, mutators []resource.Mutator, root m.Path, excludes []*regexp.Regexp, mode walkMode) error {
	info, err := e.fs.FileInfo(root)
	if err != nil {
		return &m.ConfigurationError{Field: "paths", Reason: err.Error()}
	}

	if !info.IsDir() {
		e.classify(inv, mutators, root, m.Path(filepath.Base(string(root))), mode)

		return nil
	}

	return e.fs.Walk(root, true, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if path == string(root) {
			return nil
		}

		rel, relErr := e.fs.RelPath(root, m.Path(path))
		if relErr != nil {
			return relErr
		}

		if info.IsDir() {
			if skipDirs[filepath.Base(path)] || excluded(rel, excludes) {
				return filepath.SkipDir
			}

			// Asset catalogs are one atomic unit.
			if mode != modeSourcesOnly && strings.HasSuffix(path, ".xcassets") {
				inv.resources = append(inv.resources, item{abs: m.Path(path), rel: rel, kind: itemResource})

				return filepath.SkipDir
			}

			return nil
		}

		if excluded(rel, excludes) {
			return nil
		}

		e.classify(inv, mutators, m.Path(path), rel, mode)

		return nil
	})
}

func (e *Engine) classify(inv *inventory, mutators []resource.Mutator, abs, rel m.Path, mode walkMode) {
	if mode != modeResourcesOnly {
		if handler, ok := extract.ForPath(abs); ok {
			inv.sources = append(inv.sources, item{abs: abs, rel: rel, kind: itemSource, dialect: handler.Dialect()})

			return
		}
	}

	if mode != modeSourcesOnly {
		if _, ok := resource.For(mutators, abs); ok {
			inv.resources = append(inv.resources, item{abs: abs, rel: rel, kind: itemResource})

			return
		}
	}

	inv.others = append(inv.others, item{abs: abs, rel: rel, kind: itemOther})
}

func excluded(rel m.Path, excludes []*regexp.Regexp) bool {
	for _, re := range excludes {
		if re.MatchString(string(rel)) {
			return true
		}
	}

	return false
}

func sortItems(items []item) {
	sort.Slice(items, func(i, j int) bool { return items[i].abs < items[j].abs })
}
