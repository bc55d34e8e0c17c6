package shadow

import (
	"shadow-engine/core"
	"shadow-engine/materials"
	"shadow-engine/queue"
	"shadow-engine/renderer"
	"shadow-engine/scene"
)

// lightSource picks the lights a renderable is drawn with.
type lightSource func(queue.Renderable) []*scene.Light

func ownLights(rend queue.Renderable) []*scene.Light { return rend.Lights() }

func onlyLights(lights ...*scene.Light) lightSource {
	return func(queue.Renderable) []*scene.Light { return lights }
}

var noLights = onlyLights()

// Render draws one queue group of the frame, with shadows when the
// technique, the group and the viewport all allow them.
func (r *Renderer) Render(frame Frame, group *queue.Group, order queue.SortOrder) {
	if frame.Viewport != nil && frame.Viewport.MaterialScheme != "" {
		r.deriver.Scheme = frame.Viewport.MaterialScheme
	}
	shadows := r.technique != None && group.ShadowsEnabled &&
		(frame.Viewport == nil || frame.Viewport.ShadowsEnabled)

	switch {
	case !shadows:
		r.renderBasic(frame, group, order)
	case r.technique == StencilAdditive:
		r.renderAdditiveStencil(frame, group, order)
	case r.technique == StencilModulative:
		r.renderModulativeStencil(frame, group, order)
	case r.stage == StageRenderToTexture:
		r.renderTextureCasters(frame, group, order)
	case r.technique == TextureAdditive:
		r.renderAdditiveTexture(frame, group, order)
	default:
		r.renderModulativeTexture(frame, group, order)
	}
}

func (r *Renderer) renderBasic(frame Frame, group *queue.Group, order queue.SortOrder) {
	for _, pg := range group.PriorityGroups() {
		pg.Sort(order, frame.Camera)
		r.renderObjects(&pg.SolidsBasic, ownLights)
		r.renderObjects(&pg.SolidsDiffuseSpecular, ownLights)
		r.renderObjects(&pg.SolidsDecal, ownLights)
		r.renderObjects(&pg.SolidsNoShadowReceive, ownLights)
	}
	r.renderTransparents(group)
}

// renderTransparents draws every transparent of the group once, unsorted
// ones first.
func (r *Renderer) renderTransparents(group *queue.Group) {
	for _, pg := range group.PriorityGroups() {
		r.renderObjects(&pg.TransparentsUnsorted, ownLights)
		r.renderObjects(&pg.Transparents, ownLights)
	}
}

func (r *Renderer) renderObjects(c *queue.Collection, lights lightSource) {
	for _, it := range c.Items() {
		r.renderSingle(it.Renderable, it.Pass, lights(it.Renderable))
	}
}

// shadowPass substitutes the pass for the current illumination stage.
func (r *Renderer) shadowPass(p *materials.Pass) *materials.Pass {
	switch r.stage {
	case StageRenderToTexture:
		return r.deriver.CasterPass(p)
	case StageRenderReceiverPass:
		if r.receiverBase != nil {
			return r.deriver.ReceiverPass(p, r.receiverBase)
		}
	}
	return p
}

func (r *Renderer) setPass(p *materials.Pass) {
	r.rs.SetPass(p)
	if p.VertexProgram.IsSet() {
		r.rs.BindProgram(renderer.VertexStage, p.VertexProgram)
	} else {
		r.rs.UnbindProgram(renderer.VertexStage)
	}
	if p.FragmentProgram.IsSet() {
		r.rs.BindProgram(renderer.FragmentStage, p.FragmentProgram)
	} else {
		r.rs.UnbindProgram(renderer.FragmentStage)
	}
}

// renderSingle draws rend with pass, once per light for passes that
// iterate per light.
func (r *Renderer) renderSingle(rend queue.Renderable, pass *materials.Pass, lights []*scene.Light) {
	pass = r.shadowPass(pass)
	if pass == nil {
		return
	}
	r.setPass(pass)
	op := rend.RenderOperation()

	if !pass.IteratePerLight {
		r.rs.SetLights(lights[:min(len(lights), max(pass.MaxLights, 0))])
		r.rs.Render(op)
		return
	}
	drawn := 0
	for _, l := range lights {
		if drawn >= pass.MaxLights {
			break
		}
		if pass.OnlyLightType && l.Type != pass.IterateLightType {
			continue
		}
		r.rs.SetLights([]*scene.Light{l})
		r.rs.Render(op)
		drawn++
	}
}

// lightClip records what clipToLight changed on the device.
type lightClip struct {
	result  ClipResult
	scissor bool
	planes  bool
}

// clipToLight restricts rendering to the area light can affect with the
// scissor test and, when planes is set and the device has them, user clip
// planes.
func (r *Renderer) clipToLight(frame Frame, light *scene.Light, planes bool) lightClip {
	caps := r.rs.Capabilities()
	var lc lightClip
	if caps.ScissorTest && frame.Viewport != nil {
		rect, res := lightScissor(light, frame.Camera)
		switch res {
		case ClipAll:
			lc.result = ClipAll
			return lc
		case ClipSome:
			r.rs.SetScissorTest(true, rect.pixels(frame.Viewport.ActualWidth, frame.Viewport.ActualHeight))
			lc.scissor = true
			lc.result = ClipSome
		}
	}
	if planes && caps.UserClipPlanes {
		if pl := lightClipPlanes(light); len(pl) > 0 {
			r.rs.SetClipPlanes(pl)
			lc.planes = true
			lc.result = ClipSome
		}
	}
	return lc
}

// resetLightClip undoes clipToLight.
func (r *Renderer) resetLightClip(lc lightClip) {
	if lc.scissor {
		r.rs.SetScissorTest(false, core.Rect{})
	}
	if lc.planes {
		r.rs.SetClipPlanes(nil)
	}
}
