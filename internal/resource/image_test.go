package resource

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "symveil.dev/pkg/symveil/internal/model"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, w, h))

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 16), G: uint8(y * 16), B: 128, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	return buf.Bytes()
}

func TestMutateImageDataChangesBytesKeepsDimensions(t *testing.T) {
	src := testPNG(t, 16, 16)

	out, err := mutateImageData(src, 0, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.NotEqual(t, src, out)

	img, format, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, image.Rect(0, 0, 16, 16), img.Bounds())
}

func TestPerturbPixLeavesAlphaAlone(t *testing.T) {
	pix := []byte{100, 100, 100, 255, 200, 200, 200, 255}

	perturbPix(pix, 4, 3, 5, 1, rand.New(rand.NewSource(2)))

	assert.Equal(t, byte(255), pix[3])
	assert.Equal(t, byte(255), pix[7])
}

func TestPerturbPixBoundsDelta(t *testing.T) {
	pix := make([]byte, 400)
	for i := range pix {
		pix[i] = 128
	}

	perturbPix(pix, 4, 3, 5, 1, rand.New(rand.NewSource(3)))

	for i, b := range pix {
		if i%4 == 3 {
			assert.Equal(t, byte(128), b)

			continue
		}

		assert.InDelta(t, 128, int(b), 5)
	}
}

func TestNoiseAmplitude(t *testing.T) {
	assert.Equal(t, 5, noiseAmplitude(0))
	assert.Equal(t, 25, noiseAmplitude(0.1))
	assert.Equal(t, 255, noiseAmplitude(5))
	assert.Equal(t, 1, noiseAmplitude(0.001))
}

func TestImageProcessDeterministic(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "icon.png")

	require.NoError(t, os.WriteFile(src, testPNG(t, 8, 8), 0o644))

	im := NewImageMutator(Options{Seed: 9, Verify: true})

	dstA := filepath.Join(dir, "a.png")
	dstB := filepath.Join(dir, "b.png")

	resA := im.Process(context.Background(), m.Path(src), m.Path(dstA), nil)
	require.NoError(t, resA.Err)
	assert.True(t, resA.Success)

	resB := im.Process(context.Background(), m.Path(src), m.Path(dstB), nil)
	require.NoError(t, resB.Err)

	a, err := os.ReadFile(dstA)
	require.NoError(t, err)
	b, err := os.ReadFile(dstB)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	srcSum, err := fileDigest(m.Path(src))
	require.NoError(t, err)
	dstSum, err := fileDigest(m.Path(dstA))
	require.NoError(t, err)
	assert.NotEqual(t, srcSum, dstSum)
}

func TestImageProcessFallsBackOnCorruptData(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "bad.png")
	dst := filepath.Join(dir, "out.png")

	require.NoError(t, os.WriteFile(src, []byte("definitely not a png"), 0o644))

	im := NewImageMutator(Options{})
	res := im.Process(context.Background(), m.Path(src), m.Path(dst), nil)

	assert.False(t, res.Success)
	require.Error(t, res.Err)

	out, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "definitely not a png", string(out))
}
