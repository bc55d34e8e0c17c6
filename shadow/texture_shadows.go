package shadow

import (
	"fmt"

	"shadow-engine/core"
	"shadow-engine/materials"
	"shadow-engine/queue"
	"shadow-engine/renderer"
	"shadow-engine/scene"
)

// PrepareShadowTextures renders the shadow texture of every casting light
// the pool has room for. lights must be sorted with SortLights. vp may be
// nil, in which case directional cameras are not snapped to texels. It is
// a no-op outside texture techniques and inside a shadow render.
func (r *Renderer) PrepareShadowTextures(cam *scene.Camera, vp *renderer.Viewport, lights []*scene.Light) error {
	if !r.technique.IsTexture() || r.stage != StageNone {
		return nil
	}
	if err := r.ensureTexturesCreated(); err != nil {
		return fmt.Errorf("failed to prepare shadow textures: %w", err)
	}
	defer r.enter(StageRenderToTexture)()

	shadowDist := r.farDistance
	if shadowDist <= 0 {
		shadowDist = cam.Near * 300
	}
	shadowEnd := shadowDist + shadowDist*r.dirTextureOffset
	if r.technique.IsModulative() {
		r.receiverFog = materials.FogOverride{
			Override: true,
			Mode:     materials.FogLinear,
			Colour:   core.ColorWhite,
			Start:    shadowEnd * r.fadeStart,
			End:      shadowEnd * r.fadeEnd,
		}
	} else {
		r.receiverFog = materials.FogOverride{Override: true, Mode: materials.FogNone}
	}

	ctx := SetupContext{
		MainCamera:                   cam,
		DirectionalExtrusionDistance: r.dirExtrudeDist,
		DirectionalTextureOffset:     r.dirTextureOffset,
		ShadowFarDistance:            r.farDistance,
		VisibleBounds:                r.host.VisibleBounds,
	}
	if vp != nil {
		ctx.ViewportWidth, ctx.ViewportHeight = vp.ActualWidth, vp.ActualHeight
	}

	clear(r.camLight)
	r.indexLightList = r.indexLightList[:0]
	slot := 0
	for _, l := range lights {
		if !l.CastShadows {
			continue
		}
		need := r.countPerType[l.Type]
		if slot+need > len(r.slots) {
			core.Logger().Debug("shadow: texture pool exhausted", "light", l.Name, "need", need, "free", len(r.slots)-slot)
			break
		}
		r.indexLightList = append(r.indexLightList, slot)
		for j := 0; j < need; j++ {
			r.renderSlot(ctx, vp, l, r.slots[slot], j)
			slot++
		}
	}

	r.fireTexturesUpdated(len(r.indexLightList))
	r.textures.ClearUnused()
	return nil
}

// renderSlot points a slot's camera at light and renders its texture.
func (r *Renderer) renderSlot(ctx SetupContext, vp *renderer.Viewport, light *scene.Light, s textureSlot, iteration int) {
	cam := s.cam
	s.vp.Camera = cam
	s.vp.Source = r.host
	cam.LodCamera = ctx.MainCamera
	if light.Type != scene.LightDirectional {
		cam.Position = light.Position
	}
	if light.Type != scene.LightPoint {
		cam.SetDirection(light.DerivedDirection())
	}
	if vp != nil {
		s.vp.MaterialScheme = vp.MaterialScheme
	}
	r.camLight[cam] = light

	r.cameraSetup(light).ShadowCamera(ctx, light, cam, iteration)
	s.vp.Background = core.ColorWhite
	r.fireCasterPreViewProj(light, cam, iteration)

	s.culling.CopyFrustum(cam)
	s.culling.SetCustomViewMatrix(cam.IsCustomViewMatrixEnabled(), cam.ViewMatrix())
	s.culling.SetCustomProjectionMatrix(cam.IsCustomProjectionMatrixEnabled(), cam.ProjectionMatrix())

	s.tex.Update()
}

// slotsFor returns the slots rendered for light by the last prepare.
func (r *Renderer) slotsFor(light *scene.Light) []textureSlot {
	var out []textureSlot
	for _, s := range r.slots {
		if r.camLight[s.cam] == light {
			out = append(out, s)
		}
	}
	return out
}

// renderTextureCasters draws the group into a shadow texture with caster
// passes, lit only by the texture's light.
func (r *Renderer) renderTextureCasters(frame Frame, group *queue.Group, order queue.SortOrder) {
	lights := noLights
	if l := r.camLight[frame.Camera]; l != nil {
		lights = onlyLights(l)
	}
	ambient := r.colour
	if r.technique.IsAdditive() {
		ambient = core.ColorBlack
	}
	r.rs.SetAmbientLight(ambient)

	for _, pg := range group.PriorityGroups() {
		pg.Sort(order, frame.Camera)
		r.renderObjects(&pg.SolidsBasic, lights)
		r.renderObjects(&pg.SolidsNoShadowReceive, lights)
		r.renderTransparentCasters(&pg.TransparentsUnsorted, lights)
		r.renderTransparentCasters(&pg.Transparents, lights)
	}
	r.rs.SetAmbientLight(frame.Ambient)
}

// renderTransparentCasters draws the transparents that cast shadows.
func (r *Renderer) renderTransparentCasters(c *queue.Collection, lights lightSource) {
	for _, it := range c.Items() {
		mat := it.Renderable.Material()
		if (mat == nil || !mat.TransparencyCastsShadows) && !it.Pass.HasAlphaReject() {
			continue
		}
		r.renderSingle(it.Renderable, it.Pass, lights(it.Renderable))
	}
}

// renderModulativeTexture renders the group lit, then once more per shadow
// texture with receiver passes multiplying the shadow in.
func (r *Renderer) renderModulativeTexture(frame Frame, group *queue.Group, order queue.SortOrder) {
	pgs := group.PriorityGroups()
	for _, pg := range pgs {
		pg.Sort(order, frame.Camera)
		r.renderObjects(&pg.SolidsBasic, ownLights)
		r.renderObjects(&pg.SolidsNoShadowReceive, ownLights)
	}

	if r.stage == StageNone {
		restore := r.enter(StageRenderReceiverPass)
		r.rs.SetAmbientLight(core.ColorWhite)
		for _, l := range frame.Lights {
			if !l.CastShadows {
				continue
			}
			for _, s := range r.slotsFor(l) {
				r.receiverBase = r.receiverTemplate(l, s, false)
				r.fireReceiverPreViewProj(l, s.cam)
				for _, pg := range pgs {
					r.renderObjects(&pg.SolidsBasic, noLights)
				}
			}
		}
		r.receiverBase = nil
		r.rs.SetAmbientLight(frame.Ambient)
		restore()
	}

	r.renderTransparents(group)
}

// renderAdditiveTexture lights the group one light at a time; a casting
// light's receiver pass masks its contribution with its shadow texture.
func (r *Renderer) renderAdditiveTexture(frame Frame, group *queue.Group, order queue.SortOrder) {
	for _, pg := range group.PriorityGroups() {
		pg.Sort(order, frame.Camera)
		r.renderObjects(&pg.SolidsBasic, ownLights)
		r.renderObjects(&pg.SolidsNoShadowReceive, ownLights)

		for _, l := range frame.Lights {
			stage := StageNone
			if slots := r.slotsFor(l); l.CastShadows && len(slots) > 0 {
				r.receiverBase = r.receiverTemplate(l, slots[0], true)
				r.fireReceiverPreViewProj(l, slots[0].cam)
				stage = StageRenderReceiverPass
			}
			restore := r.enter(stage)

			lc := r.clipToLight(frame, l, r.additiveLightClip)
			if lc.result != ClipAll {
				r.renderObjects(&pg.SolidsDiffuseSpecular, onlyLights(l))
			}
			r.resetLightClip(lc)

			restore()
			r.receiverBase = nil
		}

		r.renderObjects(&pg.SolidsDecal, ownLights)
	}
	r.renderTransparents(group)
}

// receiverTemplate builds the receiver pass projecting slot s: the shadow
// texture on unit 0 and, for modulative spot lights, the cone fade on unit 1.
func (r *Renderer) receiverTemplate(light *scene.Light, s textureSlot, additive bool) *materials.Pass {
	p := r.deriver.ReceiverTemplate()
	projective := !p.VertexProgram.IsSet()

	unit := materials.NewTextureUnit(s.tex.Name)
	if len(p.TextureUnits) > 0 {
		unit = p.TextureUnits[0]
		unit.TextureName = s.tex.Name
	}
	unit.SetProjector(projective, s.cam)
	unit.AddressMode = materials.AddressBorder
	unit.BorderColour = core.ColorWhite
	units := []materials.TextureUnit{unit}

	if !additive && light.Type == scene.LightSpot && !s.cam.IsCustomProjectionMatrixEnabled() {
		fade := materials.NewTextureUnit(SpotFadeTexture)
		fade.Colour = materials.LayerBlend{
			Operation: materials.LayerAdd,
			Source1:   materials.SourceTexture,
			Source2:   materials.SourceCurrent,
		}
		fade.AddressMode = materials.AddressClamp
		fade.SetProjector(projective, s.cam)
		units = append(units, fade)
	}
	p.TextureUnits = units

	if additive {
		p.SetSceneBlending(materials.BlendOne, materials.BlendOne)
		p.Lighting = true
	} else {
		p.SetSceneBlending(materials.BlendDestColour, materials.BlendZero)
		p.Lighting = false
	}
	p.DepthWrite = false
	p.DepthFunc = materials.CompareLessEqual
	p.Fog = r.receiverFog
	return p
}
