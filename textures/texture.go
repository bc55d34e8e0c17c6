// Package textures holds the CPU side of named textures: decoded images,
// the procedural spot fade, and PNG dumps of render targets.
package textures

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"golang.org/x/image/draw"

	"shadow-engine/core"
	"shadow-engine/shadow"
)

// DefaultSpotFadeSize is the edge length of the registered spot fade image.
const DefaultSpotFadeSize = 128

// Manager caches decoded images by name. Backends upload them on first use.
type Manager struct {
	dir string

	mu     sync.RWMutex
	images map[string]*image.RGBA
}

// NewManager returns a manager that resolves relative names against dir.
// The spot fade texture is registered up front.
func NewManager(dir string) *Manager {
	m := &Manager{dir: dir, images: make(map[string]*image.RGBA)}
	m.Register(shadow.SpotFadeTexture, SpotFade(DefaultSpotFadeSize))
	return m
}

// Register stores img under name, replacing any previous image.
func (m *Manager) Register(name string, img *image.RGBA) {
	m.mu.Lock()
	m.images[name] = img
	m.mu.Unlock()
}

// Get returns a cached image without touching the disk.
func (m *Manager) Get(name string) (*image.RGBA, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	img, ok := m.images[name]
	return img, ok
}

// Names returns the cached image names in order.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.images))
	for n := range m.images {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Load returns the image for name, decoding and caching it on first use.
// Images whose sides are not powers of two are resampled up.
func (m *Manager) Load(name string) (*image.RGBA, error) {
	if img, ok := m.Get(name); ok {
		return img, nil
	}
	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(m.dir, name)
	}
	img, err := LoadImage(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load texture %s: %w", name, err)
	}
	m.Register(name, img)
	core.Logger().Debug("textures: loaded", "name", name, "width", img.Rect.Dx(), "height", img.Rect.Dy())
	return img, nil
}

// GetOrDefault returns the image for name, or a 1x1 white image when it
// cannot be loaded.
func (m *Manager) GetOrDefault(name string) *image.RGBA {
	if name == "" {
		return White()
	}
	img, err := m.Load(name)
	if err != nil {
		core.Logger().Warn("textures: using default", "name", name, "err", err)
		return White()
	}
	return img
}

// White returns a 1x1 opaque white image.
func White() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.Pix[0], img.Pix[1], img.Pix[2], img.Pix[3] = 255, 255, 255, 255
	return img
}

// LoadImage decodes a PNG or JPEG file into RGBA, resized to powers of two.
func LoadImage(path string) (*image.RGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}
	return PowerOfTwo(src), nil
}

// NextPowerOfTwo returns the smallest power of two >= n, and 1 for n < 1.
func NextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// PowerOfTwo copies src into an RGBA image whose sides are powers of two,
// scaling bilinearly when src does not already fit.
func PowerOfTwo(src image.Image) *image.RGBA {
	b := src.Bounds()
	w, h := NextPowerOfTwo(b.Dx()), NextPowerOfTwo(b.Dy())
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
		return dst
	}
	draw.BiLinear.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}

// SpotFade builds the spot light fade: black inside the cone and ramping to
// white at the rim, so that adding it to a modulative shadow clears the
// shadow outside the lit circle.
func SpotFade(size int) *image.RGBA {
	const inner = 0.75

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	half := float64(size) / 2
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx := (float64(x) + 0.5 - half) / half
			dy := (float64(y) + 0.5 - half) / half
			r := dx*dx + dy*dy
			v := 0.0
			if r > inner*inner {
				v = min((math.Sqrt(r)-inner)/(1-inner), 1)
			}
			g := uint8(v*255 + 0.5)
			img.SetRGBA(x, y, color.RGBA{R: g, G: g, B: g, A: 255})
		}
	}
	return img
}

// SavePNG writes img to path.
func SavePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return f.Close()
}
