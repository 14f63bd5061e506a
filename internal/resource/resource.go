// Package resource mutates bundled binary resources so their content digests
// change while the files stay loadable by conformant readers.
package resource

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"io"
	"math/rand"
	"os"
	"path/filepath"

	m "symveil.dev/pkg/symveil/internal/model"
)

// NameLookup resolves an original symbol name to its obfuscated form.
// Satisfied by *model.Mapping.
type NameLookup interface {
	LookupName(original string) (string, bool)
}

// Options configures the mutator set. The zero value enables everything at
// default intensity.
type Options struct {
	// Intensity scales the image perturbation amplitude, 0..1. Zero selects
	// the default (about 2% of channel range).
	Intensity float64
	// Seed drives all pseudo-random perturbation so identical seed and
	// inputs reproduce identical output bytes.
	Seed int64
	// Verify enables the optional post-mutation checks: digest-changed for
	// images, container re-parse for audio.
	Verify bool
	// AllowTrailing permits the audio fallback of appending trailing bytes
	// to containers tolerant of them.
	AllowTrailing bool
	// Disabled lists families to skip.
	Disabled map[m.ResourceFamily]bool
}

// Mutator is the shared contract for all four resource families. Mutators
// own no state beyond what is passed per call.
type Mutator interface {
	// Family identifies which resource family this mutator handles.
	Family() m.ResourceFamily

	// CanProcess reports whether the path belongs to this family, judged by
	// extension or container layout.
	CanProcess(path m.Path) bool

	// Process mutates src into dst. The output must remain
	// loadable/renderable/playable and its digest must differ from the
	// input's. On failure the original is copied through unmodified and the
	// error is recorded on the result.
	Process(ctx context.Context, src, dst m.Path, names NameLookup) m.ResourceResult
}

// Mutators returns the enabled mutators for the given options.
func Mutators(opts Options) []Mutator {
	all := []Mutator{
		NewCatalogMutator(opts),
		NewImageMutator(opts),
		NewAudioMutator(opts),
		NewFontMutator(opts),
	}

	out := make([]Mutator, 0, len(all))

	for _, mut := range all {
		if !opts.Disabled[mut.Family()] {
			out = append(out, mut)
		}
	}

	return out
}

// For selects the first enabled mutator claiming the path.
func For(mutators []Mutator, path m.Path) (Mutator, bool) {
	for _, mut := range mutators {
		if mut.CanProcess(path) {
			return mut, true
		}
	}

	return nil, false
}

// rngFor derives a per-resource random stream from the run seed and the
// resource path, so runs are reproducible yet resources diverge.
func rngFor(seed int64, path m.Path) *rand.Rand {
	h := fnv.New64a()
	_, _ = h.Write([]byte(path))

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], h.Sum64())

	return rand.New(rand.NewSource(seed ^ int64(binary.BigEndian.Uint64(buf[:]))))
}

// fileDigest returns the SHA-256 of a file, used by the optional
// digest-changed verification.
func fileDigest(path m.Path) (string, error) {
	f, err := os.Open(string(path))
	if err != nil {
		return "", err
	}

	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// copyThrough writes the original resource unmodified to dst. It is the
// uniform safe fallback: a failed mutation must never drop a resource from
// the output tree.
func copyThrough(src, dst m.Path) error {
	in, err := os.Open(string(src))
	if err != nil {
		return err
	}

	defer func() { _ = in.Close() }()

	if err := os.MkdirAll(filepath.Dir(string(dst)), 0o750); err != nil {
		return err
	}

	out, err := os.Create(string(dst))
	if err != nil {
		return err
	}

	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}

	return out.Close()
}

// fallbackResult copies the original through and reports the failure.
func fallbackResult(src, dst m.Path, family m.ResourceFamily, err error) m.ResourceResult {
	res := m.ResourceResult{
		Path:    src,
		Family:  family,
		Success: false,
		Message: "mutation failed, original copied through",
		Err:     &m.ResourceError{Path: src, Family: family, Err: err},
	}

	if copyErr := copyThrough(src, dst); copyErr != nil {
		res.Message = "mutation failed and fallback copy failed"
		res.Err = &m.ResourceError{Path: src, Family: family, Err: fmt.Errorf("%v (fallback: %w)", err, copyErr)}
	}

	return res
}

func writeOutput(dst m.Path, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(string(dst)), 0o750); err != nil {
		return err
	}

	return os.WriteFile(string(dst), data, 0o644)
}
