package shadow

import (
	"shadow-engine/core"
	"shadow-engine/materials"
	"shadow-engine/math"
	"shadow-engine/queue"
	"shadow-engine/renderer"
	"shadow-engine/scene"
)

// renderAdditiveStencil lights the group one light at a time, masking each
// light's contribution with its stencil volumes.
func (r *Renderer) renderAdditiveStencil(frame Frame, group *queue.Group, order queue.SortOrder) {
	for _, pg := range group.PriorityGroups() {
		pg.Sort(order, frame.Camera)

		// Ambient only.
		r.renderObjects(&pg.SolidsBasic, noLights)
		r.renderObjects(&pg.SolidsNoShadowReceive, ownLights)

		for _, l := range frame.Lights {
			lc := r.clipToLight(frame, l, r.additiveLightClip)
			if lc.result == ClipAll {
				continue
			}
			if l.CastShadows {
				casters := r.host.FindShadowCasters(l, frame.Camera)
				if len(casters) == 0 {
					core.Logger().Debug("shadow: light has no casters", "light", l.Name)
					r.resetLightClip(lc)
					continue
				}
				r.rs.ClearFrameBuffer(renderer.BufferStencil, core.ColorBlack, 1, 0)
				r.renderVolumesToStencil(frame, l, casters, false)
				r.rs.SetStencilCheckEnabled(true)
				r.rs.SetStencilBufferParams(stencilTest(materials.CompareEqual))
			}

			r.renderObjects(&pg.SolidsDiffuseSpecular, onlyLights(l))

			r.rs.SetStencilCheckEnabled(false)
			r.rs.SetStencilBufferParams(renderer.DefaultStencilParams())
			r.resetLightClip(lc)
		}

		r.renderObjects(&pg.SolidsDecal, ownLights)
	}
	r.renderTransparents(group)
}

// renderModulativeStencil renders the group lit once, then darkens the
// stenciled area of each casting light with a full-screen quad.
func (r *Renderer) renderModulativeStencil(frame Frame, group *queue.Group, order queue.SortOrder) {
	pgs := group.PriorityGroups()
	for _, pg := range pgs {
		pg.Sort(order, frame.Camera)
		r.renderObjects(&pg.SolidsBasic, ownLights)
	}

	r.rs.SetAmbientLight(r.colour)
	for _, l := range frame.Lights {
		if !l.CastShadows {
			continue
		}
		casters := r.host.FindShadowCasters(l, frame.Camera)
		if len(casters) == 0 {
			continue
		}
		r.rs.ClearFrameBuffer(renderer.BufferStencil, core.ColorBlack, 1, 0)
		r.renderVolumesToStencil(frame, l, casters, true)

		r.setPass(r.modulativePass)
		r.rs.SetStencilCheckEnabled(true)
		// Shadowed pixels are the ones with a non-zero count.
		r.rs.SetStencilBufferParams(stencilTest(materials.CompareNotEqual))
		r.rs.SetLights(nil)
		r.rs.Render(r.fullScreenQuadOperation())
		r.rs.SetStencilBufferParams(renderer.DefaultStencilParams())
		r.rs.SetStencilCheckEnabled(false)
		r.rs.SetDepthBufferParams(true, true, materials.CompareLessEqual)
	}
	r.rs.SetAmbientLight(frame.Ambient)

	for _, pg := range pgs {
		r.renderObjects(&pg.SolidsNoShadowReceive, ownLights)
	}
	r.renderTransparents(group)
}

func stencilTest(fn materials.CompareFunction) renderer.StencilParams {
	p := renderer.DefaultStencilParams()
	p.Func = fn
	return p
}

func (r *Renderer) fullScreenQuadOperation() renderer.RenderOperation {
	return renderer.RenderOperation{
		Mesh:                  r.fullScreenQuad,
		World:                 math.Mat4Identity(),
		UseIdentityView:       true,
		UseIdentityProjection: true,
	}
}

// renderVolumesToStencil counts the shadow volumes of casters into the
// stencil buffer. Colour and depth writes are off while it runs.
func (r *Renderer) renderVolumesToStencil(frame Frame, light *scene.Light, casters []Caster, calcScissor bool) {
	if len(casters) == 0 {
		return
	}
	cam := frame.Camera
	var lc lightClip
	if calcScissor {
		lc = r.clipToLight(frame, light, false)
		if lc.result == ClipAll {
			return
		}
	}
	if err := r.ensureIndexBuffer(); err != nil {
		core.Logger().Error("shadow: stencil volumes skipped", "light", light.Name, "err", err)
		r.resetLightClip(lc)
		return
	}

	caps := r.rs.Capabilities()
	software := !caps.VertexPrograms
	finite := !r.infiniteFarPlane || !caps.InfiniteFarPlane
	toInfinity := !software && !finite
	twoSided := caps.TwoSidedStencil
	directional := light.Type == scene.LightDirectional

	r.rs.SetColourWriteEnabled(false)
	r.rs.SetDepthBufferParams(true, false, materials.CompareLess)
	r.rs.SetStencilCheckEnabled(true)
	r.setPass(r.stencilPass)
	r.rs.SetLights(nil)
	r.indexBuffer.Reset()

	nearVol := NearClipVolume(light, cam)
	customNear := cam.IsCustomNearClipPlaneEnabled()
	for _, c := range casters {
		zfail := UseZFail(nearVol, c.WorldBoundingBox(), customNear)
		dist := r.dirExtrudeDist
		if !directional {
			dist = min(c.PointExtrusionDistance(light), r.dirExtrudeDist)
		}
		flags := volumeFlags(capInputs{
			zfail:             zfail,
			extrudeToInfinity: toInfinity,
			directional:       directional,
			modulative:        r.technique.IsModulative(),
			lightCapVisible:   cam.IsVisible(c.LightCapBounds()),
			darkCapVisible:    cam.IsVisible(c.DarkCapBounds(light, dist)),
		})
		if !software {
			r.rs.BindProgram(renderer.VertexStage, extrusionProgram(light, finite, false, dist))
		}

		vols := c.ShadowVolume(r.technique, light, r.indexBuffer, software, dist, flags)
		r.renderVolumes(vols, false, zfail, twoSided, caps.StencilWrap)
		if !twoSided {
			r.renderVolumes(vols, true, zfail, twoSided, caps.StencilWrap)
		}

		if r.debug {
			r.renderDebugVolumes(vols, light, zfail, software, finite, dist)
		}
	}

	r.rs.UnbindProgram(renderer.VertexStage)
	r.rs.SetColourWriteEnabled(true)
	r.rs.SetDepthBufferParams(true, true, materials.CompareLessEqual)
	r.rs.SetStencilCheckEnabled(false)
	r.resetLightClip(lc)
}

// renderVolumes draws one stencil pass over vols.
func (r *Renderer) renderVolumes(vols []*VolumeRenderable, secondPass, zfail, twoSided, wrap bool) {
	params, cull := volumeStencilState(secondPass, zfail, twoSided, wrap)
	r.rs.SetStencilBufferParams(params)
	r.rs.SetCullingMode(cull)
	backFaces := !twoSided && (secondPass || zfail) && !(secondPass && zfail)

	for _, v := range vols {
		r.rs.Render(v.RenderOperation(r.indexBuffer))
		if v.LightCap == nil {
			continue
		}
		op := v.LightCap.RenderOperation(r.indexBuffer)
		switch {
		case twoSided:
			// Back-facing caps test depth normally. Front-facing caps must
			// not count against the side geometry they touch.
			r.rs.SetCullingMode(materials.CullAnticlockwise)
			r.rs.Render(op)
			r.rs.SetCullingMode(materials.CullClockwise)
			r.rs.SetDepthFunction(materials.CompareAlwaysFail)
			r.rs.Render(op)
			r.rs.SetDepthFunction(materials.CompareLess)
			r.rs.SetCullingMode(materials.CullNone)
		case backFaces:
			r.rs.Render(op)
		default:
			r.rs.SetDepthFunction(materials.CompareAlwaysFail)
			r.rs.Render(op)
			r.rs.SetDepthFunction(materials.CompareLess)
		}
	}
}

// renderDebugVolumes draws vols additively, coloured by the algorithm that
// counted them, then restores the stencil pass.
func (r *Renderer) renderDebugVolumes(vols []*VolumeRenderable, light *scene.Light, zfail, software, finite bool, dist float32) {
	colour := debugZPassColour
	if zfail {
		colour = debugZFailColour
	}
	r.debugPass.Ambient = colour
	r.debugPass.Diffuse = colour

	r.rs.SetColourWriteEnabled(true)
	r.rs.SetStencilCheckEnabled(false)
	r.setPass(r.debugPass)
	if !software {
		r.rs.BindProgram(renderer.VertexStage, extrusionProgram(light, finite, true, dist))
	}
	r.rs.SetCullingMode(materials.CullNone)
	for _, v := range vols {
		r.rs.Render(v.RenderOperation(r.indexBuffer))
		if v.LightCap != nil {
			r.rs.Render(v.LightCap.RenderOperation(r.indexBuffer))
		}
	}

	r.rs.SetColourWriteEnabled(false)
	r.rs.SetDepthBufferParams(true, false, materials.CompareLess)
	r.rs.SetStencilCheckEnabled(true)
	r.setPass(r.stencilPass)
}
