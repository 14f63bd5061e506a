package resource

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"howett.net/plist"

	m "symveil.dev/pkg/symveil/internal/model"
)

// CatalogMutator rebuilds an asset catalog (.xcassets tree): named sets are
// renamed through the symbol mapping when one exists, color definitions are
// perturbed imperceptibly, and every contained resource is passed through
// its family mutator so the catalog's aggregate fingerprint changes.
type CatalogMutator struct {
	opts  Options
	image *ImageMutator
}

// NewCatalogMutator constructs the catalog mutator.
func NewCatalogMutator(opts Options) *CatalogMutator {
	return &CatalogMutator{opts: opts, image: NewImageMutator(opts)}
}

// Family identifies the handled resource family.
func (cm *CatalogMutator) Family() m.ResourceFamily { return m.FamilyCatalog }

// CanProcess accepts asset catalog directories.
func (cm *CatalogMutator) CanProcess(path m.Path) bool {
	return strings.HasSuffix(string(path), ".xcassets")
}

// setDirExtensions are the catalog set flavors whose directory name is the
// asset's lookup name.
var setDirExtensions = map[string]bool{
	".imageset":    true,
	".colorset":    true,
	".dataset":     true,
	".appiconset":  true,
	".launchimage": true,
	".symbolset":   true,
	".brandassets": true,
	".imagestack":  true,
}

// Process walks the catalog at src and writes the mutated catalog to dst.
// The output tree is fully staged before anything replaces dst.
func (cm *CatalogMutator) Process(ctx context.Context, src, dst m.Path, names NameLookup) m.ResourceResult {
	staging := string(dst) + ".staging"
	if err := os.RemoveAll(staging); err != nil {
		return cm.fallback(src, dst, err)
	}

	renamed, mutated, err := cm.buildCatalog(ctx, string(src), staging, names)
	if err != nil {
		os.RemoveAll(staging)

		return cm.fallback(src, dst, err)
	}

	if err := os.RemoveAll(string(dst)); err != nil {
		os.RemoveAll(staging)

		return cm.fallback(src, dst, err)
	}

	if err := os.Rename(staging, string(dst)); err != nil {
		return cm.fallback(src, dst, err)
	}

	return m.ResourceResult{
		Path:    src,
		Family:  m.FamilyCatalog,
		Success: true,
		Message: "catalog rebuilt",
		Details: map[string]string{
			"renamed": strconv.Itoa(renamed),
			"mutated": strconv.Itoa(mutated),
		},
	}
}

// fallback copies the whole catalog directory through unmodified and
// reports the failure.
func (cm *CatalogMutator) fallback(src, dst m.Path, err error) m.ResourceResult {
	res := m.ResourceResult{
		Path:    src,
		Family:  m.FamilyCatalog,
		Success: false,
		Message: "mutation failed, original copied through",
		Err:     &m.ResourceError{Path: src, Family: m.FamilyCatalog, Err: err},
	}

	if copyErr := copyDirThrough(string(src), string(dst)); copyErr != nil {
		res.Message = "mutation failed and fallback copy failed"
		res.Err = &m.ResourceError{Path: src, Family: m.FamilyCatalog, Err: fmt.Errorf("%v (fallback: %w)", err, copyErr)}
	}

	return res
}

// copyDirThrough mirrors an entire directory tree unmodified.
func copyDirThrough(srcDir, dstDir string) error {
	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return err
	}

	for _, entry := range entries {
		srcPath := filepath.Join(srcDir, entry.Name())
		dstPath := filepath.Join(dstDir, entry.Name())

		if entry.IsDir() {
			if err := copyDirThrough(srcPath, dstPath); err != nil {
				return err
			}

			continue
		}

		if err := copyThrough(m.Path(srcPath), m.Path(dstPath)); err != nil {
			return err
		}
	}

	return nil
}

// buildCatalog recursively copies srcDir into dstDir, applying renames and
// content mutations along the way.
func (cm *CatalogMutator) buildCatalog(ctx context.Context, srcDir, dstDir string, names NameLookup) (renamed, mutated int, err error) {
	if err := ctx.Err(); err != nil {
		return renamed, mutated, err
	}

	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return renamed, mutated, err
	}

	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return renamed, mutated, err
	}

	for _, entry := range entries {
		srcPath := filepath.Join(srcDir, entry.Name())
		outName := entry.Name()

		if entry.IsDir() {
			if next, ok := cm.renamedSetDir(entry.Name(), names); ok {
				outName = next
				renamed++
			}

			r, mu, err := cm.buildCatalog(ctx, srcPath, filepath.Join(dstDir, outName), names)
			renamed += r
			mutated += mu

			if err != nil {
				return renamed, mutated, err
			}

			continue
		}

		dstPath := filepath.Join(dstDir, outName)

		changed, err := cm.emitFile(ctx, srcPath, dstPath)
		if err != nil {
			return renamed, mutated, err
		}

		if changed {
			mutated++
		}
	}

	return renamed, mutated, nil
}

// renamedSetDir maps "Name.imageset" to "Obfuscated.imageset" when the
// base name has a class-style mapping.
func (cm *CatalogMutator) renamedSetDir(dir string, names NameLookup) (string, bool) {
	if names == nil {
		return "", false
	}

	ext := strings.ToLower(filepath.Ext(dir))
	if !setDirExtensions[ext] {
		return "", false
	}

	base := strings.TrimSuffix(dir, filepath.Ext(dir))

	next, ok := names.LookupName(base)
	if !ok || next == base {
		return "", false
	}

	return next + filepath.Ext(dir), true
}

// emitFile writes one catalog member to dstPath, mutating it when a
// family-specific rewrite applies. The returned flag reports whether the
// output differs from a plain copy.
func (cm *CatalogMutator) emitFile(ctx context.Context, srcPath, dstPath string) (bool, error) {
	name := filepath.Base(srcPath)

	switch {
	case name == "Contents.json":
		return cm.rewriteContentsJSON(srcPath, dstPath)
	case name == "Contents.plist":
		return cm.rewriteContentsPlist(srcPath, dstPath)
	case cm.image.CanProcess(m.Path(srcPath)):
		res := cm.image.Process(ctx, m.Path(srcPath), m.Path(dstPath), nil)
		if res.Err != nil {
			return false, res.Err
		}

		return res.Success, nil
	default:
		return false, copyThrough(m.Path(srcPath), m.Path(dstPath))
	}
}

// rewriteContentsJSON reserializes the manifest and perturbs any sRGB color
// components it defines. Reserialization alone changes whitespace and key
// order, which is enough to move the manifest's digest even without colors.
func (cm *CatalogMutator) rewriteContentsJSON(srcPath, dstPath string) (bool, error) {
	raw, err := os.ReadFile(srcPath)
	if err != nil {
		return false, err
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		// Not a manifest we understand; keep the catalog intact.
		return false, copyThrough(m.Path(srcPath), m.Path(dstPath))
	}

	rng := rngFor(cm.opts.Seed, m.Path(srcPath))
	perturbColorValues(doc, rng)

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return false, err
	}

	out = append(out, '\n')

	return true, writeOutput(m.Path(dstPath), out)
}

// rewriteContentsPlist round-trips the binary or XML plist manifest found
// in older catalogs, perturbing colors the same way as the JSON form.
func (cm *CatalogMutator) rewriteContentsPlist(srcPath, dstPath string) (bool, error) {
	raw, err := os.ReadFile(srcPath)
	if err != nil {
		return false, err
	}

	var doc map[string]any
	if _, err := plist.Unmarshal(raw, &doc); err != nil {
		return false, copyThrough(m.Path(srcPath), m.Path(dstPath))
	}

	rng := rngFor(cm.opts.Seed, m.Path(srcPath))
	perturbColorValues(doc, rng)

	out, err := plist.MarshalIndent(doc, plist.XMLFormat, "  ")
	if err != nil {
		return false, err
	}

	return true, writeOutput(m.Path(dstPath), out)
}

// perturbColorValues walks the manifest and nudges every color component
// by at most 2/255, clamped to the unit range. Keys follow the catalog
// schema: a "components" dict with "red", "green", "blue", "alpha" strings
// or numbers. Alpha is left alone.
func perturbColorValues(node any, rng *rand.Rand) {
	switch v := node.(type) {
	case map[string]any:
		if comps, ok := v["components"].(map[string]any); ok {
			for _, key := range []string{"red", "green", "blue", "white"} {
				if cur, ok := comps[key]; ok {
					comps[key] = perturbComponent(cur, rng)
				}
			}
		}

		for _, child := range v {
			perturbColorValues(child, rng)
		}
	case []any:
		for _, child := range v {
			perturbColorValues(child, rng)
		}
	}
}

// maxComponentShift bounds how far a component may move, including the
// error introduced by re-formatting decimal strings.
const maxComponentShift = 2.0 / 255.0

// perturbComponent shifts one color component by ±1 or ±2 steps of 1/255,
// preserving the value's original representation. Catalog components come
// as either "0xFF" hex strings, "0.500" decimal strings, or numbers.
func perturbComponent(value any, rng *rand.Rand) any {
	steps := 1 + rng.Intn(2)
	if rng.Intn(2) == 0 {
		steps = -steps
	}

	delta := float64(steps) / 255.0

	switch v := value.(type) {
	case float64:
		return clampUnit(v + delta)
	case string:
		if strings.HasPrefix(v, "0x") || strings.HasPrefix(v, "0X") {
			n, err := strconv.ParseUint(v[2:], 16, 16)
			if err != nil {
				return v
			}

			shifted := int(n) + steps
			if shifted < 0 {
				shifted = 0
			} else if shifted > 255 {
				shifted = 255
			}

			return fmt.Sprintf("0x%02X", shifted)
		}

		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return v
		}

		out := math.Round(clampUnit(f+delta)*1000) / 1000
		// 3-decimal rounding must not push the shift past two steps
		if out-f > maxComponentShift {
			out -= 0.001
		} else if f-out > maxComponentShift {
			out += 0.001
		}

		return strconv.FormatFloat(clampUnit(out), 'f', 3, 64)
	default:
		return value
	}
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}

	if v > 1 {
		return 1
	}

	return v
}
