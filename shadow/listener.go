package shadow

import (
	"slices"

	"shadow-engine/scene"
)

// Listener observes shadow texture rendering. Callbacks run on the render
// goroutine and may add or remove listeners.
type Listener interface {
	// ShadowTexturesUpdated is called once the pool has been rendered, with
	// the number of lights that received textures.
	ShadowTexturesUpdated(count int)
	// ShadowTextureCasterPreViewProj is called before a shadow texture is
	// rendered; the camera may still be adjusted.
	ShadowTextureCasterPreViewProj(light *scene.Light, cam *scene.Camera, iteration int)
	// ShadowTextureReceiverPreViewProj is called before receivers are drawn
	// with the texture projected from frustum.
	ShadowTextureReceiverPreViewProj(light *scene.Light, frustum *scene.Camera)
}

// ListenerFuncs adapts plain functions to Listener. Nil fields are skipped.
// Register a pointer so that it can be removed again.
type ListenerFuncs struct {
	TexturesUpdated     func(count int)
	CasterPreViewProj   func(light *scene.Light, cam *scene.Camera, iteration int)
	ReceiverPreViewProj func(light *scene.Light, frustum *scene.Camera)
}

func (f *ListenerFuncs) ShadowTexturesUpdated(count int) {
	if f.TexturesUpdated != nil {
		f.TexturesUpdated(count)
	}
}

func (f *ListenerFuncs) ShadowTextureCasterPreViewProj(light *scene.Light, cam *scene.Camera, iteration int) {
	if f.CasterPreViewProj != nil {
		f.CasterPreViewProj(light, cam, iteration)
	}
}

func (f *ListenerFuncs) ShadowTextureReceiverPreViewProj(light *scene.Light, frustum *scene.Camera) {
	if f.ReceiverPreViewProj != nil {
		f.ReceiverPreViewProj(light, frustum)
	}
}

// AddListener registers l. Adding the same listener twice is a no-op.
func (r *Renderer) AddListener(l Listener) {
	if slices.Contains(r.listeners, l) {
		return
	}
	r.listeners = append(r.listeners, l)
}

// RemoveListener unregisters l. It is safe to call from a callback.
func (r *Renderer) RemoveListener(l Listener) {
	r.listeners = slices.DeleteFunc(r.listeners, func(x Listener) bool { return x == l })
}

func (r *Renderer) fireTexturesUpdated(count int) {
	for _, l := range slices.Clone(r.listeners) {
		l.ShadowTexturesUpdated(count)
	}
}

func (r *Renderer) fireCasterPreViewProj(light *scene.Light, cam *scene.Camera, iteration int) {
	for _, l := range slices.Clone(r.listeners) {
		l.ShadowTextureCasterPreViewProj(light, cam, iteration)
	}
}

func (r *Renderer) fireReceiverPreViewProj(light *scene.Light, frustum *scene.Camera) {
	for _, l := range slices.Clone(r.listeners) {
		l.ShadowTextureReceiverPreViewProj(light, frustum)
	}
}
