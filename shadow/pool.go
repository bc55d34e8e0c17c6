package shadow

import (
	"fmt"

	"shadow-engine/core"
	"shadow-engine/renderer"
	"shadow-engine/scene"
)

// textureSlot is one entry of the shadow texture pool.
type textureSlot struct {
	tex *renderer.RenderTexture
	// cam projects the shadow; setups may give it custom matrices.
	cam *scene.Camera
	// culling keeps the light's own view volume for visibility tests.
	culling *scene.Camera
	vp      *renderer.Viewport
}

// ensureTexturesCreated rebuilds the pool if the configuration changed since
// the last build.
func (r *Renderer) ensureTexturesCreated() error {
	if !r.dirty {
		return nil
	}
	r.destroyTextures()

	texs, err := r.textures.Acquire(r, r.configs)
	if err != nil {
		return fmt.Errorf("failed to create shadow texture pool: %w", err)
	}
	r.slots = make([]textureSlot, len(texs))
	for i, t := range texs {
		cam := scene.NewCamera(fmt.Sprintf("%s/ShadowCamera%d", r.name, i))
		cam.AspectRatio = float32(t.Width) / float32(t.Height)
		culling := scene.NewCamera(cam.Name + "/Culling")
		cam.Culling = culling

		// A texture shared with another renderer keeps its one viewport;
		// renderSlot points it at this renderer before each update.
		t.AutoUpdated = false
		vp := t.Viewport(0)
		if vp == nil {
			vp = t.AddViewport(cam)
		}
		vp.ClearEveryFrame = true
		vp.OverlaysEnabled = false

		r.slots[i] = textureSlot{tex: t, cam: cam, culling: culling, vp: vp}
	}
	r.dirty = false
	core.Logger().Info("shadow: texture pool created", "renderer", r.name, "count", len(r.slots))
	return nil
}

// destroyTextures releases the pool and marks it for rebuilding.
func (r *Renderer) destroyTextures() {
	if len(r.slots) > 0 {
		texs := make([]*renderer.RenderTexture, len(r.slots))
		for i, s := range r.slots {
			texs[i] = s.tex
		}
		r.textures.Release(r, texs)
		r.slots = nil
		r.textures.ClearUnused()
	}
	clear(r.camLight)
	r.indexLightList = r.indexLightList[:0]
	r.dirty = true
}

// Texture returns the render texture of a slot, building the pool first if
// needed.
func (r *Renderer) Texture(slot int) (*renderer.RenderTexture, error) {
	if slot < 0 || slot >= len(r.configs) {
		return nil, fmt.Errorf("%w: %d of %d", ErrInvalidSlot, slot, len(r.configs))
	}
	if err := r.ensureTexturesCreated(); err != nil {
		return nil, err
	}
	return r.slots[slot].tex, nil
}

// TextureCamera returns the projector camera of a slot.
func (r *Renderer) TextureCamera(slot int) (*scene.Camera, error) {
	if _, err := r.Texture(slot); err != nil {
		return nil, err
	}
	return r.slots[slot].cam, nil
}
