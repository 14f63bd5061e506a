// Package engine orchestrates the obfuscation pipeline: discovery,
// extraction, mapping generation, transformation and resource mutation.
package engine

import (
	"regexp"
	"runtime"

	m "symveil.dev/pkg/symveil/internal/model"
	"symveil.dev/pkg/symveil/internal/namegen"
	"symveil.dev/pkg/symveil/internal/resource"
	"symveil.dev/pkg/symveil/internal/whitelist"
)

// Config is the immutable run configuration assembled by the CLI layer and
// validated once before any work starts.
type Config struct {
	// Paths are the source roots to scan.
	Paths []m.Path
	// ResourcePaths are the resource roots. Empty means the source roots are
	// scanned for resources too.
	ResourcePaths []m.Path
	// Output is the root of the mirrored output tree.
	Output m.Path

	// Strategy selects the name generation scheme.
	Strategy namegen.Strategy
	// Seed drives deterministic name generation and resource perturbation.
	Seed string
	// Prefix applies to the prefixed strategy.
	Prefix string

	// Kinds restricts renaming to the listed symbol kinds. Empty enables all.
	Kinds []m.SymbolKind
	// Exclude holds path exclusion patterns, matched as regular expressions
	// against the path relative to its root.
	Exclude []string
	// WhitelistEntries are user-supplied protections on top of the builtins.
	WhitelistEntries []whitelist.Entry

	// Threads bounds pipeline parallelism. Zero means GOMAXPROCS.
	Threads int
	// DryRun computes every transformation but writes nothing.
	DryRun bool
	// NoCache disables the incremental tracker for this run.
	NoCache bool
	// Strict promotes recoverable errors to a failed run status.
	Strict bool

	// StatePath locates the incremental state store. Empty disables
	// persistence.
	StatePath m.Path
	// MappingPath overrides where the mapping export is written. Empty
	// places it inside the output root.
	MappingPath m.Path
	// PriorMappingPath optionally reloads a previous run's export so symbols
	// keep their names across runs.
	PriorMappingPath m.Path

	// Resources configures the resource mutators.
	Resources resource.Options

	// OnDiff receives a unified diff per changed file in dry-run mode.
	OnDiff func(path m.Path, diff string)
	// OnProgress is invoked at phase and file granularity with a monotonic
	// completion fraction. Nil is allowed.
	OnProgress func(fraction float64, message string)
}

// skipDirs are third-party and build directories never worth scanning.
var skipDirs = map[string]bool{
	".git":         true,
	".svn":         true,
	".build":       true,
	"Pods":         true,
	"Carthage":     true,
	"DerivedData":  true,
	"node_modules": true,
	"vendor":       true,
}

// validate normalizes the configuration and reports the first problem as a
// ConfigurationError.
func (c *Config) validate() ([]*regexp.Regexp, error) {
	if len(c.Paths) == 0 {
		return nil, &m.ConfigurationError{Field: "paths", Reason: "at least one source path is required"}
	}

	if c.Output == "" && !c.DryRun {
		return nil, &m.ConfigurationError{Field: "output", Reason: "an output directory is required"}
	}

	if c.Strategy == "" {
		c.Strategy = namegen.StrategyRandom
	}

	if c.Strategy == namegen.StrategySeeded && c.Seed == "" {
		return nil, &m.ConfigurationError{Field: "seed", Reason: "the seeded strategy requires a seed"}
	}

	for _, kind := range c.Kinds {
		if !kind.Valid() {
			return nil, &m.ConfigurationError{Field: "kinds", Reason: "unknown symbol kind " + string(kind)}
		}
	}

	if c.Threads <= 0 {
		c.Threads = runtime.GOMAXPROCS(0)
	}

	excludes := make([]*regexp.Regexp, 0, len(c.Exclude))

	for _, pattern := range c.Exclude {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, &m.ConfigurationError{Field: "exclude", Reason: "bad pattern " + pattern + ": " + err.Error()}
		}

		excludes = append(excludes, re)
	}

	return excludes, nil
}

// kindEnabled reports whether a symbol kind participates in renaming.
func (c *Config) kindEnabled(kind m.SymbolKind) bool {
	if len(c.Kinds) == 0 {
		return true
	}

	for _, k := range c.Kinds {
		if k == kind {
			return true
		}
	}

	return false
}
