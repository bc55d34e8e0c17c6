package shadow

import (
	"fmt"
	"slices"

	"shadow-engine/renderer"
	"shadow-engine/scene"
)

// TextureConfig describes one shadow texture slot.
type TextureConfig struct {
	Width       int
	Height      int
	Format      renderer.PixelFormat
	FSAA        uint
	DepthPoolID uint16
}

func DefaultTextureConfig() TextureConfig {
	return TextureConfig{Width: 512, Height: 512, Format: renderer.PixelFormatRGBA8, DepthPoolID: 1}
}

// SetTextureConfig replaces the configuration of one slot.
func (r *Renderer) SetTextureConfig(slot int, cfg TextureConfig) error {
	if slot < 0 || slot >= len(r.configs) {
		return fmt.Errorf("%w: %d of %d", ErrInvalidSlot, slot, len(r.configs))
	}
	if r.configs[slot] != cfg {
		r.configs[slot] = cfg
		r.dirty = true
	}
	return nil
}

// SetTextureCount resizes the slot list. New slots copy the last config.
func (r *Renderer) SetTextureCount(n int) {
	n = max(n, 0)
	if n == len(r.configs) {
		return
	}
	if n < len(r.configs) {
		r.configs = r.configs[:n]
	} else {
		last := DefaultTextureConfig()
		if len(r.configs) > 0 {
			last = r.configs[len(r.configs)-1]
		}
		for len(r.configs) < n {
			r.configs = append(r.configs, last)
		}
	}
	r.dirty = true
}

// SetTextureSize makes every slot size x size.
func (r *Renderer) SetTextureSize(size int) {
	r.updateConfigs(func(c *TextureConfig) {
		c.Width, c.Height = size, size
	})
}

func (r *Renderer) SetTexturePixelFormat(f renderer.PixelFormat) {
	r.updateConfigs(func(c *TextureConfig) { c.Format = f })
}

func (r *Renderer) SetTextureFSAA(fsaa uint) {
	r.updateConfigs(func(c *TextureConfig) { c.FSAA = fsaa })
}

// SetTextureSettings sets the slot count and applies one configuration to
// every slot.
func (r *Renderer) SetTextureSettings(size, count int, f renderer.PixelFormat, fsaa uint, depthPool uint16) {
	r.SetTextureCount(count)
	cfg := TextureConfig{Width: size, Height: size, Format: f, FSAA: fsaa, DepthPoolID: depthPool}
	r.updateConfigs(func(c *TextureConfig) { *c = cfg })
}

// updateConfigs applies fn to each slot and marks the pool dirty if any
// slot changed.
func (r *Renderer) updateConfigs(fn func(*TextureConfig)) {
	for i := range r.configs {
		before := r.configs[i]
		fn(&r.configs[i])
		if r.configs[i] != before {
			r.dirty = true
		}
	}
}

// TextureConfigs returns a copy of the slot list.
func (r *Renderer) TextureConfigs() []TextureConfig {
	return slices.Clone(r.configs)
}

// SetTextureCountPerLightType sets how many consecutive slots a light of
// type t consumes.
func (r *Renderer) SetTextureCountPerLightType(t scene.LightType, n int) {
	if t < 0 || int(t) >= scene.LightTypeCount {
		return
	}
	r.countPerType[t] = max(n, 1)
}

func (r *Renderer) TextureCountPerLightType(t scene.LightType) int {
	if t < 0 || int(t) >= scene.LightTypeCount {
		return 0
	}
	return r.countPerType[t]
}
