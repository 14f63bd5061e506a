package transform

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"symveil.dev/pkg/symveil/internal/extract"
	m "symveil.dev/pkg/symveil/internal/model"
)

// Transformer rewrites one file's content against a read-only mapping
// subset. It holds no per-run state and is safe for concurrent use across
// files.
type Transformer struct {
	matcher Matcher
}

// NewTransformer constructs a Transformer. A nil matcher selects the
// default scanning automaton.
func NewTransformer(matcher Matcher) *Transformer {
	if matcher == nil {
		matcher = NewScanMatcher()
	}

	return &Transformer{matcher: matcher}
}

var reImportLine = regexp.MustCompile(`(#(?:import|include)\s*")([^"]+)(")`)

// Transform applies every mapping entry to the file content. String and
// comment regions stay byte-identical because occurrences are located in
// the masked text. Per-symbol failures are recorded on the result; the file
// is still produced best-effort.
func (t *Transformer) Transform(path m.Path, content []byte, dialect m.Dialect, entries []Entry) m.TransformResult {
	result := m.TransformResult{Path: path}

	masked := extract.Mask(content, dialect)
	edits := t.collectEdits(masked, dialect, entries, &result)
	edits = append(edits, importEdits(content, masked, entries)...)

	result.Content = applyEdits(content, edits)
	result.Replacements = len(edits)
	result.RenamedTo = renamedFileName(path, entries)

	return result
}

type edit struct {
	start, end  int
	replacement string
}

// collectEdits gathers identifier replacements, longest original first so a
// longer name wins any overlap with a shorter one.
func (t *Transformer) collectEdits(masked []byte, dialect m.Dialect, entries []Entry, result *m.TransformResult) []edit {
	ordered := make([]Entry, len(entries))
	copy(ordered, entries)
	sort.Slice(ordered, func(i, j int) bool {
		if len(ordered[i].Original) != len(ordered[j].Original) {
			return len(ordered[i].Original) > len(ordered[j].Original)
		}

		return ordered[i].Original < ordered[j].Original
	})

	var (
		edits   []edit
		claimed = newClaimSet(len(masked))
	)

	for _, entry := range ordered {
		if entry.Replacement == "" || entry.Replacement == entry.Original {
			continue
		}

		occs := t.matcher.Find(masked, entry, dialect)
		if occs == nil {
			continue
		}

		applied := 0

		for _, occ := range occs {
			if !claimed.claim(occ.Start, occ.End) {
				continue
			}

			edits = append(edits, edit{start: occ.Start, end: occ.End, replacement: entry.Replacement})
			applied++
		}

		if applied == 0 && len(occs) > 0 {
			result.Errors = append(result.Errors, &m.TransformError{
				File:   result.Path,
				Symbol: entry.Original,
				Err:    fmt.Errorf("all %d occurrences overlapped longer symbols", len(occs)),
			})
		}
	}

	return edits
}

// importEdits rewrites #import/#include statements whose quoted file stem is
// a renamed class, in the same pass as identifier replacement. The quoted
// region is masked, so these edits can never collide with identifier edits.
func importEdits(content, masked []byte, entries []Entry) []edit {
	stems := stemRenames(entries)
	if len(stems) == 0 {
		return nil
	}

	var edits []edit

	for _, match := range reImportLine.FindAllSubmatchIndex(content, -1) {
		fileStart, fileEnd := match[4], match[5]
		quoted := string(content[fileStart:fileEnd])

		ext := filepath.Ext(quoted)
		stem := strings.TrimSuffix(quoted, ext)

		if renamed, ok := stems[stem]; ok {
			edits = append(edits, edit{start: fileStart, end: fileEnd, replacement: renamed + ext})
		}
	}

	return edits
}

// stemRenames maps renameable file stems to their obfuscated stems. Only
// type-like kinds participate: files are named after their primary exported
// type, never after a method.
func stemRenames(entries []Entry) map[string]string {
	stems := make(map[string]string)

	for _, entry := range entries {
		switch entry.Kind {
		case m.KindClass, m.KindProtocol, m.KindCategory:
			stems[entry.Original] = entry.Replacement
		}
	}

	return stems
}

// renamedFileName returns the output file name when the file's stem is a
// tracked renamed symbol; empty otherwise. A category header stem such as
// "UserStore+Caching" follows both of its parts.
func renamedFileName(path m.Path, entries []Entry) m.Path {
	stems := stemRenames(entries)

	base := filepath.Base(string(path))
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	if renamed, ok := stems[stem]; ok {
		return m.Path(renamed + ext)
	}

	if class, category, ok := strings.Cut(stem, "+"); ok {
		newClass, classRenamed := stems[class]
		newCategory, categoryRenamed := stems[category]

		if classRenamed || categoryRenamed {
			if !classRenamed {
				newClass = class
			}

			if !categoryRenamed {
				newCategory = category
			}

			return m.Path(newClass + "+" + newCategory + ext)
		}
	}

	return ""
}

// applyEdits rewrites content right to left so earlier offsets stay valid.
func applyEdits(content []byte, edits []edit) []byte {
	if len(edits) == 0 {
		out := make([]byte, len(content))
		copy(out, content)

		return out
	}

	sort.Slice(edits, func(i, j int) bool { return edits[i].start > edits[j].start })

	out := make([]byte, len(content))
	copy(out, content)

	for _, e := range edits {
		out = append(out[:e.start], append([]byte(e.replacement), out[e.end:]...)...)
	}

	return out
}

// claimSet tracks which byte ranges already belong to an edit.
type claimSet struct {
	taken []bool
}

func newClaimSet(n int) *claimSet {
	return &claimSet{taken: make([]bool, n)}
}

// claim reserves [start, end) and reports whether it was free.
func (c *claimSet) claim(start, end int) bool {
	for i := start; i < end && i < len(c.taken); i++ {
		if c.taken[i] {
			return false
		}
	}

	for i := start; i < end && i < len(c.taken); i++ {
		c.taken[i] = true
	}

	return true
}
