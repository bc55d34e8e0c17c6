package shadow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shadow-engine/core"
	"shadow-engine/internal/headless"
	"shadow-engine/materials"
	"shadow-engine/math"
	"shadow-engine/queue"
	"shadow-engine/renderer"
	"shadow-engine/scene"
)

func stencilClears(rs *headless.RenderSystem) []headless.Command {
	return rs.Filter(func(c headless.Command) bool {
		return c.Op == headless.OpClear && c.Buffers == renderer.BufferStencil
	})
}

func TestAdditiveStencilSkipsLightWithoutCasters(t *testing.T) {
	r, rs, host := newTestRenderer(t, fullCaps())
	require.NoError(t, r.SetTechnique(StencilAdditive))

	l1 := pointLight("l1", math.Vec3{X: 0, Y: 5, Z: 0})
	l2 := pointLight("l2", math.Vec3{X: 3, Y: 5, Z: 0})
	host.casters[l1] = []Caster{NewMeshCaster("cube", scene.CreateCube(1), math.Mat4Identity())}

	box := newTestRenderable("box", testMaterial("box"), l1, l2)
	frame := testFrame(l1, l2)
	r.Render(frame, splitGroup(StencilAdditive, box), queue.SortPassGroup)

	ambient := rs.Renders("box/ambient")
	require.Len(t, ambient, 1)
	assert.Empty(t, ambient[0].Lights, "the ambient pass is unlit")

	lit := rs.Renders("box/light")
	require.Len(t, lit, 1, "l2 has no casters and is skipped")
	assert.Equal(t, []*scene.Light{l1}, lit[0].Lights)
	assert.True(t, lit[0].StencilEnabled)
	assert.Equal(t, materials.CompareEqual, lit[0].Stencil.Func)

	assert.Len(t, stencilClears(rs), 1)
	volumes := rs.Renders("shadow/Stencil")
	require.NotEmpty(t, volumes)
	for _, v := range volumes {
		assert.False(t, v.ColourWrite, "volumes never write colour")
	}

	last := rs.Filter(func(c headless.Command) bool { return c.Op == headless.OpStencilCheck })
	assert.False(t, last[len(last)-1].Enabled, "stencil test is off after the group")
}

func TestAdditiveStencilNonCastingLight(t *testing.T) {
	r, rs, _ := newTestRenderer(t, fullCaps())
	require.NoError(t, r.SetTechnique(StencilAdditive))

	l := pointLight("plain", math.Vec3{X: 0, Y: 5, Z: 0})
	l.CastShadows = false
	box := newTestRenderable("box", testMaterial("box"), l)
	r.Render(testFrame(l), splitGroup(StencilAdditive, box), queue.SortPassGroup)

	lit := rs.Renders("box/light")
	require.Len(t, lit, 1)
	assert.False(t, lit[0].StencilEnabled)
	assert.Empty(t, stencilClears(rs))
}

func TestAdditiveStencilClipsDistantLight(t *testing.T) {
	r, rs, _ := newTestRenderer(t, fullCaps())
	require.NoError(t, r.SetTechnique(StencilAdditive))

	far := pointLight("far", math.Vec3{X: 0, Y: 0, Z: -40})
	far.Range = 2
	far.CastShadows = false
	box := newTestRenderable("box", testMaterial("box"), far)
	r.Render(testFrame(far), splitGroup(StencilAdditive, box), queue.SortPassGroup)

	scissors := rs.Filter(func(c headless.Command) bool { return c.Op == headless.OpScissor })
	require.Len(t, scissors, 2)
	assert.True(t, scissors[0].Enabled)
	assert.Less(t, scissors[0].Rect.Width, float32(800))
	assert.False(t, scissors[1].Enabled)

	behind := pointLight("behind", math.Vec3{X: 0, Y: 0, Z: 40})
	behind.Range = 2
	rs.Reset()
	box = newTestRenderable("box", testMaterial("box"), behind)
	r.Render(testFrame(behind), splitGroup(StencilAdditive, box), queue.SortPassGroup)
	assert.Empty(t, rs.Renders("box/light"), "lights off screen are skipped")
}

func TestModulativeStencilQuad(t *testing.T) {
	r, rs, host := newTestRenderer(t, fullCaps())
	require.NoError(t, r.SetTechnique(StencilModulative))
	r.SetColour(core.Gray(0.5))

	l := pointLight("lamp", math.Vec3{X: 0, Y: 5, Z: 0})
	host.casters[l] = []Caster{NewMeshCaster("cube", scene.CreateCube(1), math.Mat4Identity())}
	box := newTestRenderable("box", testMaterial("box"), l)
	frame := testFrame(l)
	frame.Ambient = core.Gray(0.1)
	r.Render(frame, splitGroup(StencilModulative, box), queue.SortPassGroup)

	require.Len(t, rs.Renders("box"), 1)
	quads := rs.Renders("shadow/Modulate")
	require.Len(t, quads, 1)
	q := quads[0]
	assert.Equal(t, "shadow/FullScreenQuad", q.Name)
	assert.True(t, q.StencilEnabled)
	assert.Equal(t, materials.CompareNotEqual, q.Stencil.Func)
	assert.Equal(t, core.Gray(0.5), q.Ambient)
	assert.Equal(t, core.Gray(0.5), q.Pass.Diffuse)
	assert.Len(t, stencilClears(rs), 1)

	ambients := rs.Filter(func(c headless.Command) bool { return c.Op == headless.OpAmbient })
	require.NotEmpty(t, ambients)
	assert.Equal(t, frame.Ambient, ambients[len(ambients)-1].Ambient)
}

func TestModulativeStencilNoCasters(t *testing.T) {
	r, rs, _ := newTestRenderer(t, fullCaps())
	require.NoError(t, r.SetTechnique(StencilModulative))

	l := pointLight("lamp", math.Vec3{X: 0, Y: 5, Z: 0})
	box := newTestRenderable("box", testMaterial("box"), l)
	r.Render(testFrame(l), splitGroup(StencilModulative, box), queue.SortPassGroup)
	assert.Empty(t, rs.Renders("shadow/Modulate"))
	assert.Empty(t, stencilClears(rs))
}

func TestRenderWithoutShadows(t *testing.T) {
	r, rs, host := newTestRenderer(t, fullCaps())
	require.NoError(t, r.SetTechnique(StencilAdditive))
	l := pointLight("lamp", math.Vec3{X: 0, Y: 5, Z: 0})
	host.casters[l] = []Caster{NewMeshCaster("cube", scene.CreateCube(1), math.Mat4Identity())}
	box := newTestRenderable("box", testMaterial("box"), l)

	group := splitGroup(None, box)
	group.ShadowsEnabled = false
	r.Render(testFrame(l), group, queue.SortPassGroup)
	require.Len(t, rs.Renders("box"), 1)
	assert.Equal(t, []*scene.Light{l}, rs.Renders("box")[0].Lights)
	assert.Empty(t, stencilClears(rs))

	rs.Reset()
	frame := testFrame(l)
	frame.Viewport.ShadowsEnabled = false
	r.Render(frame, splitGroup(None, box), queue.SortPassGroup)
	assert.Empty(t, stencilClears(rs), "the viewport turned shadows off")
}

func TestSetTechnique(t *testing.T) {
	caps := fullCaps()
	caps.HWStencil = false
	r, rs, _ := newTestRenderer(t, caps)

	require.NoError(t, r.SetTechnique(StencilAdditive))
	assert.Equal(t, None, r.Technique(), "stencil falls back without a stencil buffer")
	assert.Zero(t, rs.Count(headless.OpCreateIndexBuffer))

	err := r.SetTechnique(Technique(0x33))
	require.ErrorIs(t, err, ErrInvalidTechnique)
	assert.Equal(t, None, r.Technique())

	require.NoError(t, r.SetTechnique(TextureAdditive))
	assert.Equal(t, TextureAdditive, r.Technique())

	r, rs, _ = newTestRenderer(t, fullCaps())
	require.NoError(t, r.SetTechnique(StencilModulative))
	require.NoError(t, r.SetTechnique(StencilAdditive))
	assert.Equal(t, 1, rs.Count(headless.OpCreateIndexBuffer), "the index buffer is shared by stencil techniques")

	require.NoError(t, r.SetIndexBufferSize(DefaultIndexBufferSize*2))
	assert.Equal(t, 2, rs.Count(headless.OpCreateIndexBuffer))
}

func TestSetTechniqueDropsTextures(t *testing.T) {
	r, rs, _ := newTestRenderer(t, fullCaps())
	require.NoError(t, r.SetTechnique(TextureModulative))
	frame := testFrame(spotLight("spot", math.Vec3{Y: 10}, math.Vec3Down))
	require.NoError(t, r.PrepareShadowTextures(frame.Camera, frame.Viewport, frame.Lights))
	require.Equal(t, 1, rs.LiveTextures())

	require.NoError(t, r.SetTechnique(None))
	assert.Zero(t, rs.LiveTextures())
}

// renderFrame runs the texture shadow pipeline the way a scene manager
// does: shadow textures first, then the main group.
func renderFrame(t *testing.T, r *Renderer, host *testHost, frame Frame, rends ...*testRenderable) {
	t.Helper()
	host.onRender = func(vp *renderer.Viewport) {
		var casters []*testRenderable
		for _, rend := range rends {
			if rend.casts {
				casters = append(casters, rend)
			}
		}
		r.Render(Frame{Camera: vp.Camera, Viewport: vp}, splitGroup(None, casters...), queue.SortPassGroup)
	}
	require.NoError(t, r.PrepareShadowTextures(frame.Camera, frame.Viewport, frame.Lights))
	host.onRender = nil
	r.Render(frame, splitGroup(r.Technique(), rends...), queue.SortPassGroup)
}

func TestModulativeTextureReceivers(t *testing.T) {
	r, rs, host := newTestRenderer(t, fullCaps())
	require.NoError(t, r.SetTechnique(TextureModulative))
	r.SetTextureCount(2)

	s1 := spotLight("s1", math.Vec3{Y: 10}, math.Vec3Down)
	s2 := spotLight("s2", math.Vec3{X: 4, Y: 10}, math.Vec3Down)
	floor := newTestRenderable("floor", testMaterial("floor"), s1, s2)
	floor.casts = false
	crate := newTestRenderable("crate", testMaterial("crate"), s1, s2)
	frame := testFrame(s1, s2)

	renderFrame(t, r, host, frame, floor, crate)

	assert.Len(t, rs.Renders("shadow/Caster"), 2, "the crate renders into both textures")

	receivers := rs.Renders("shadow/Receiver")
	require.Len(t, receivers, 4, "two receivers for each of two textures")
	for _, c := range receivers {
		assert.Empty(t, c.Lights)
		assert.Equal(t, materials.BlendDestColour, c.Pass.SrcBlend)
		require.Len(t, c.Pass.TextureUnits, 2, "spot lights add the fade texture")
		assert.True(t, c.Pass.TextureUnits[0].ProjectiveTexturing)
		assert.Equal(t, materials.AddressBorder, c.Pass.TextureUnits[0].AddressMode)
		assert.Equal(t, SpotFadeTexture, c.Pass.TextureUnits[1].TextureName)
		assert.Equal(t, core.ColorWhite, c.Ambient)
		assert.True(t, c.Pass.Fog.Override)
		assert.Equal(t, materials.FogLinear, c.Pass.Fog.Mode)
	}
	tex0, err := r.Texture(0)
	require.NoError(t, err)
	assert.Equal(t, tex0.Name, receivers[0].Pass.TextureUnits[0].TextureName)
	assert.Equal(t, StageNone, r.Stage())
}

func TestAdditiveTextureReceivers(t *testing.T) {
	r, rs, host := newTestRenderer(t, fullCaps())
	require.NoError(t, r.SetTechnique(TextureAdditive))

	caster := spotLight("caster", math.Vec3{Y: 10}, math.Vec3Down)
	plain := pointLight("plain", math.Vec3{X: 2, Y: 3, Z: 0})
	plain.CastShadows = false
	floor := newTestRenderable("floor", testMaterial("floor"), caster, plain)
	frame := testFrame(caster, plain)

	renderFrame(t, r, host, frame, floor)

	receivers := rs.Renders("shadow/Receiver")
	require.Len(t, receivers, 1, "only the casting light uses a receiver pass")
	rc := receivers[0]
	assert.Equal(t, []*scene.Light{caster}, rc.Lights)
	assert.True(t, rc.Pass.Lighting)
	assert.Equal(t, materials.BlendOne, rc.Pass.DstBlend)
	assert.Len(t, rc.Pass.TextureUnits, 1, "no fade texture in additive mode")
	assert.Equal(t, materials.FogNone, rc.Pass.Fog.Mode)

	lit := rs.Renders("floor/light")
	require.Len(t, lit, 1)
	assert.Equal(t, []*scene.Light{plain}, lit[0].Lights)
	assert.Len(t, rs.Renders("floor/ambient"), 1)
}

func TestTransparentCasters(t *testing.T) {
	r, rs, host := newTestRenderer(t, fullCaps())
	require.NoError(t, r.SetTechnique(TextureModulative))

	spot := spotLight("spot", math.Vec3{Y: 10}, math.Vec3Down)
	glass := newTestRenderable("glass", testColourMaterial("glass", core.Color{R: 1, G: 1, B: 1, A: 0.4}), spot)
	tinted := newTestRenderable("tinted", testColourMaterial("tinted", core.Color{R: 1, G: 0, B: 0, A: 0.4}), spot)
	tinted.mat.TransparencyCastsShadows = true
	frame := testFrame(spot)

	renderFrame(t, r, host, frame, glass, tinted)

	casters := rs.Renders("shadow/Caster")
	require.Len(t, casters, 1, "only transparents flagged to cast are drawn")
	assert.True(t, casters[0].Pass.IsAlphaBlended())
	assert.Len(t, rs.Renders("glass"), 1)
	assert.Len(t, rs.Renders("tinted"), 1)
}

func TestRenderUsesViewportScheme(t *testing.T) {
	r, _, _ := newTestRenderer(t, fullCaps())
	frame := testFrame()
	frame.Viewport.MaterialScheme = "low"
	r.Render(frame, splitGroup(None), queue.SortPassGroup)
	assert.Equal(t, "low", r.deriver.Scheme)
}
