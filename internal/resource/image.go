package resource

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	m "symveil.dev/pkg/symveil/internal/model"
)

// defaultNoise is the default perturbation amplitude as a fraction of the
// channel range (about 2%, i.e. up to +-5 on an 8-bit channel).
const defaultNoise = 0.02

// strideThreshold is the pixel count above which only a sampled subset of
// pixels is perturbed, bounding processing cost on large images.
const strideThreshold = 4 << 20

// sampleStride selects every Nth pixel for oversized images.
const sampleStride = 7

// ImageMutator perturbs raster pixels and re-encodes preserving format,
// dimensions and color mode.
type ImageMutator struct {
	opts Options
}

// NewImageMutator constructs the raster image mutator.
func NewImageMutator(opts Options) *ImageMutator {
	return &ImageMutator{opts: opts}
}

// Family identifies the handled resource family.
func (im *ImageMutator) Family() m.ResourceFamily { return m.FamilyImage }

// CanProcess accepts PNG and JPEG files by extension.
func (im *ImageMutator) CanProcess(path m.Path) bool {
	switch strings.ToLower(filepath.Ext(string(path))) {
	case ".png", ".jpg", ".jpeg":
		return true
	}

	return false
}

// Process decodes, perturbs and re-encodes one image.
func (im *ImageMutator) Process(ctx context.Context, src, dst m.Path, _ NameLookup) m.ResourceResult {
	if err := ctx.Err(); err != nil {
		return fallbackResult(src, dst, m.FamilyImage, err)
	}

	data, err := os.ReadFile(string(src))
	if err != nil {
		return fallbackResult(src, dst, m.FamilyImage, err)
	}

	out, err := mutateImageData(data, im.opts.Intensity, rngFor(im.opts.Seed, src))
	if err != nil {
		return fallbackResult(src, dst, m.FamilyImage, err)
	}

	if err := writeOutput(dst, out); err != nil {
		return fallbackResult(src, dst, m.FamilyImage, err)
	}

	res := m.ResourceResult{Path: src, Family: m.FamilyImage, Success: true, Message: "pixels perturbed"}

	if im.opts.Verify {
		if bytes.Equal(data, out) {
			return fallbackResult(src, dst, m.FamilyImage, fmt.Errorf("digest unchanged after perturbation"))
		}

		res.Details = map[string]string{"digest_changed": "true"}
	}

	return res
}

// mutateImageData decodes the pixel grid, applies bounded per-channel noise
// and re-encodes in the original format with identical dimensions.
func mutateImageData(data []byte, intensity float64, rng *rand.Rand) ([]byte, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	amplitude := noiseAmplitude(intensity)
	perturbed := perturb(img, amplitude, rng)

	var buf bytes.Buffer

	switch format {
	case "png":
		if err := png.Encode(&buf, perturbed); err != nil {
			return nil, fmt.Errorf("encode png: %w", err)
		}
	case "jpeg":
		if err := jpeg.Encode(&buf, perturbed, &jpeg.Options{Quality: 90}); err != nil {
			return nil, fmt.Errorf("encode jpeg: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported image format %q", format)
	}

	return buf.Bytes(), nil
}

// noiseAmplitude maps the 0..1 intensity knob to an 8-bit channel delta.
// Zero intensity selects the default rather than disabling noise, because a
// mutator run with no effect would leave the digest unchanged.
func noiseAmplitude(intensity float64) int {
	if intensity <= 0 {
		intensity = defaultNoise
	}

	if intensity > 1 {
		intensity = 1
	}

	amp := int(intensity * 255)
	if amp < 1 {
		amp = 1
	}

	return amp
}

// perturb applies bounded random noise to every pixel, or to a strided
// subset above the size threshold. The color mode of common in-memory
// layouts is preserved; anything else is perturbed through NRGBA.
func perturb(img image.Image, amplitude int, rng *rand.Rand) image.Image {
	bounds := img.Bounds()
	stride := 1

	if bounds.Dx()*bounds.Dy() > strideThreshold {
		stride = sampleStride
	}

	switch src := img.(type) {
	case *image.NRGBA:
		out := cloneBytesImage(src.Pix)
		perturbPix(out, 4, 3, amplitude, stride, rng)

		return &image.NRGBA{Pix: out, Stride: src.Stride, Rect: src.Rect}
	case *image.RGBA:
		out := cloneBytesImage(src.Pix)
		perturbPix(out, 4, 3, amplitude, stride, rng)

		return &image.RGBA{Pix: out, Stride: src.Stride, Rect: src.Rect}
	case *image.Gray:
		out := cloneBytesImage(src.Pix)
		perturbPix(out, 1, 1, amplitude, stride, rng)

		return &image.Gray{Pix: out, Stride: src.Stride, Rect: src.Rect}
	default:
		// JPEG decodes to YCbCr; converting to NRGBA keeps a renderable
		// image of identical dimensions.
		out := image.NewNRGBA(bounds)

		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				out.Set(x, y, img.At(x, y))
			}
		}

		perturbPix(out.Pix, 4, 3, amplitude, stride, rng)

		return out
	}
}

func cloneBytesImage(pix []byte) []byte {
	out := make([]byte, len(pix))
	copy(out, pix)

	return out
}

// perturbPix adds noise in [-amplitude, +amplitude] to the first `channels`
// bytes of every stride-selected pixel (alpha is left alone).
func perturbPix(pix []byte, pixelSize, channels, amplitude, stride int, rng *rand.Rand) {
	for i := 0; i+pixelSize <= len(pix); i += pixelSize * stride {
		for c := 0; c < channels; c++ {
			delta := rng.Intn(2*amplitude+1) - amplitude
			v := int(pix[i+c]) + delta

			if v < 0 {
				v = 0
			}

			if v > 255 {
				v = 255
			}

			pix[i+c] = byte(v)
		}
	}
}
