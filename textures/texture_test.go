package textures

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/draw"

	"shadow-engine/shadow"
)

func TestSpotFade(t *testing.T) {
	img := SpotFade(64)
	require.Equal(t, image.Rect(0, 0, 64, 64), img.Bounds())

	assert.Equal(t, color.RGBA{A: 255}, img.RGBAAt(32, 32), "centre is black")
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, img.RGBAAt(0, 0), "corners are white")
	assert.Equal(t, img.RGBAAt(5, 32), img.RGBAAt(58, 32), "symmetric")

	prev := uint8(0)
	for x := 32; x < 64; x++ {
		g := img.RGBAAt(x, 32).R
		assert.GreaterOrEqual(t, g, prev, "ramp is monotonic at x=%d", x)
		prev = g
	}
}

func TestNextPowerOfTwo(t *testing.T) {
	for n, want := range map[int]int{-3: 1, 0: 1, 1: 1, 2: 2, 3: 4, 100: 128, 512: 512} {
		assert.Equal(t, want, NextPowerOfTwo(n), "n=%d", n)
	}
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.RGBA{R: 200, G: 200, B: 200, A: 255}), image.Point{}, draw.Src)
	require.NoError(t, SavePNG(path, img))
}

func TestManagerLoad(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "odd.png"), 3, 5)
	writePNG(t, filepath.Join(dir, "square.png"), 4, 4)

	m := NewManager(dir)
	img, err := m.Load("odd.png")
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 4, 8), img.Bounds(), "resampled up to powers of two")
	assert.InDelta(t, 200, img.RGBAAt(2, 4).R, 1)

	sq, err := m.Load("square.png")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 200, G: 200, B: 200, A: 255}, sq.RGBAAt(1, 1))

	require.NoError(t, os.Remove(filepath.Join(dir, "odd.png")))
	again, err := m.Load("odd.png")
	require.NoError(t, err)
	assert.Same(t, img, again, "cached after first load")

	assert.Equal(t, []string{"odd.png", shadow.SpotFadeTexture, "square.png"}, m.Names())
}

func TestManagerDefaults(t *testing.T) {
	m := NewManager(t.TempDir())

	fade, ok := m.Get(shadow.SpotFadeTexture)
	require.True(t, ok)
	assert.Equal(t, DefaultSpotFadeSize, fade.Bounds().Dx())

	_, err := m.Load("missing.png")
	assert.ErrorIs(t, err, os.ErrNotExist)

	img := m.GetOrDefault("missing.png")
	assert.Equal(t, image.Rect(0, 0, 1, 1), img.Bounds())
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, img.RGBAAt(0, 0))
	assert.Equal(t, White(), m.GetOrDefault(""))
}
