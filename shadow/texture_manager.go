package shadow

import (
	"fmt"
	"slices"
	"sync"

	"shadow-engine/core"
	"shadow-engine/renderer"
)

// TextureFactory creates and destroys render textures. renderer.RenderSystem
// satisfies it.
type TextureFactory interface {
	CreateRenderTexture(name string, width, height int, format renderer.PixelFormat, fsaa uint, depthPool uint16) (*renderer.RenderTexture, error)
	DestroyRenderTexture(t *renderer.RenderTexture)
}

type managedTexture struct {
	tex  *renderer.RenderTexture
	refs map[any]int
}

func (m *managedTexture) refCount() int {
	n := 0
	for _, c := range m.refs {
		n += c
	}
	return n
}

// TextureManager shares shadow textures between the scene managers of one
// device. Textures are matched by configuration and reference counted per
// owner. It is safe for concurrent use.
type TextureManager struct {
	factory TextureFactory

	mu       sync.Mutex
	textures []*managedTexture
	serial   int
}

func NewTextureManager(f TextureFactory) *TextureManager {
	return &TextureManager{factory: f}
}

// Acquire returns one texture per config for owner. An existing compatible
// texture is reused unless owner already holds it from this same request.
// On failure every texture taken by the call is released again.
func (m *TextureManager) Acquire(owner any, configs []TextureConfig) ([]*renderer.RenderTexture, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*renderer.RenderTexture, 0, len(configs))
	taken := make([]*managedTexture, 0, len(configs))
	for _, cfg := range configs {
		mt := m.findLocked(cfg, taken)
		if mt == nil {
			m.serial++
			name := fmt.Sprintf("shadow/texture%d", m.serial)
			tex, err := m.factory.CreateRenderTexture(name, cfg.Width, cfg.Height, cfg.Format, cfg.FSAA, cfg.DepthPoolID)
			if err != nil {
				for _, t := range taken {
					t.refs[owner]--
				}
				return nil, fmt.Errorf("%w %s (%dx%d %s): %w", ErrTextureCreate, name, cfg.Width, cfg.Height, cfg.Format, err)
			}
			mt = &managedTexture{tex: tex, refs: map[any]int{}}
			m.textures = append(m.textures, mt)
			core.Logger().Debug("shadow: texture created", "name", name, "width", cfg.Width, "height", cfg.Height)
		}
		mt.refs[owner]++
		taken = append(taken, mt)
		out = append(out, mt.tex)
	}
	return out, nil
}

func (m *TextureManager) findLocked(cfg TextureConfig, exclude []*managedTexture) *managedTexture {
	for _, mt := range m.textures {
		if slices.Contains(exclude, mt) {
			continue
		}
		if mt.tex.Compatible(cfg.Width, cfg.Height, cfg.Format, cfg.FSAA, cfg.DepthPoolID) {
			return mt
		}
	}
	return nil
}

// Release drops owner's references to textures.
func (m *TextureManager) Release(owner any, textures []*renderer.RenderTexture) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range textures {
		for _, mt := range m.textures {
			if mt.tex != t || mt.refs[owner] == 0 {
				continue
			}
			mt.refs[owner]--
			if mt.refs[owner] == 0 {
				delete(mt.refs, owner)
			}
			break
		}
	}
}

// ClearUnused destroys every texture nobody references and returns how many
// were destroyed.
func (m *TextureManager) ClearUnused() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	m.textures = slices.DeleteFunc(m.textures, func(mt *managedTexture) bool {
		if mt.refCount() > 0 {
			return false
		}
		m.factory.DestroyRenderTexture(mt.tex)
		n++
		return true
	})
	if n > 0 {
		core.Logger().Debug("shadow: unused textures destroyed", "count", n)
	}
	return n
}

// Len returns the number of live textures.
func (m *TextureManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.textures)
}
