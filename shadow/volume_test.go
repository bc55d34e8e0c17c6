package shadow

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shadow-engine/materials"
	"shadow-engine/math"
	"shadow-engine/renderer"
	"shadow-engine/scene"
)

func boxAt(centre math.Vec3, half float32) scene.AABB {
	h := math.Vec3{X: half, Y: half, Z: half}
	return scene.AABB{Min: centre.Sub(h), Max: centre.Add(h)}
}

func TestUseZFailPointLightBehindCamera(t *testing.T) {
	cam := scene.NewCamera("main")
	light := pointLight("lamp", math.Vec3{X: 0, Y: 0, Z: 5})
	vol := NearClipVolume(light, cam)
	require.False(t, vol.Everything)

	cases := []struct {
		name string
		box  scene.AABB
		want bool
	}{
		{"between near plane and light", boxAt(math.Vec3Zero, 0.1), true},
		{"straddling the near plane", boxAt(math.Vec3{X: 0, Y: 0, Z: -1}, 0.5), true},
		{"far in front", boxAt(math.Vec3{X: 0, Y: 0, Z: -50}, 1), false},
		{"off to the side", boxAt(math.Vec3{X: 20, Y: 0, Z: 0}, 1), false},
		{"behind the light", boxAt(math.Vec3{X: 0, Y: 0, Z: 20}, 1), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k := 0; k < 3; k++ {
				assert.Equal(t, tc.want, UseZFail(vol, tc.box, false))
			}
			assert.True(t, UseZFail(vol, tc.box, true), "a custom near plane always needs zfail")
		})
	}
}

func TestNearClipVolumeDirectional(t *testing.T) {
	cam := scene.NewCamera("main")
	sun := scene.NewLight("sun", scene.LightDirectional)
	sun.Direction = math.Vec3{X: 0, Y: 0, Z: -1}
	vol := NearClipVolume(sun, cam)
	require.False(t, vol.Everything)

	assert.True(t, vol.Intersects(boxAt(math.Vec3{X: 0, Y: 0, Z: 30}, 0.1)), "towards the light")
	assert.False(t, vol.Intersects(boxAt(math.Vec3{X: 0, Y: 0, Z: -30}, 0.1)), "away from the light")
	assert.False(t, vol.Intersects(boxAt(math.Vec3{X: 10, Y: 0, Z: 30}, 0.1)), "outside the near rectangle")
}

func TestNearClipVolumeLightOnNearPlane(t *testing.T) {
	cam := scene.NewCamera("main")
	vol := NearClipVolume(pointLight("lamp", math.Vec3{X: 0, Y: 0, Z: -1}), cam)
	assert.True(t, vol.Everything)
	assert.True(t, vol.Intersects(boxAt(math.Vec3{X: 1000, Y: 0, Z: 0}, 1)))
	assert.False(t, vol.Intersects(scene.EmptyAABB()))
}

func TestVolumeStencilState(t *testing.T) {
	cases := []struct {
		name                        string
		secondPass, zfail, twoSided bool
		wrap                        bool
		wantPass, wantDepthFail     renderer.StencilOperation
		wantCull                    materials.CullingMode
	}{
		{"zpass front", false, false, false, false, renderer.StencilIncrement, renderer.StencilKeep, materials.CullClockwise},
		{"zpass back", true, false, false, false, renderer.StencilDecrement, renderer.StencilKeep, materials.CullAnticlockwise},
		{"zfail back", false, true, false, false, renderer.StencilKeep, renderer.StencilIncrement, materials.CullAnticlockwise},
		{"zfail front", true, true, false, false, renderer.StencilKeep, renderer.StencilDecrement, materials.CullClockwise},
		{"zpass two-sided", false, false, true, true, renderer.StencilIncrementWrap, renderer.StencilKeep, materials.CullNone},
		{"zfail two-sided", false, true, true, true, renderer.StencilKeep, renderer.StencilDecrementWrap, materials.CullNone},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, cull := volumeStencilState(tc.secondPass, tc.zfail, tc.twoSided, tc.wrap)
			assert.Equal(t, materials.CompareAlwaysPass, p.Func)
			assert.Equal(t, renderer.StencilKeep, p.StencilFail)
			assert.Equal(t, tc.wantPass, p.Pass)
			assert.Equal(t, tc.wantDepthFail, p.DepthFail)
			assert.Equal(t, tc.twoSided, p.TwoSided)
			assert.Equal(t, tc.wantCull, cull)
		})
	}
}

func TestVolumeFlags(t *testing.T) {
	cases := []struct {
		name string
		in   capInputs
		want VolumeFlags
	}{
		{"zfail finite", capInputs{zfail: true, lightCapVisible: true, darkCapVisible: true},
			VolumeIncludeLightCap | VolumeIncludeDarkCap},
		{"zfail infinite directional", capInputs{zfail: true, extrudeToInfinity: true, directional: true, lightCapVisible: true, darkCapVisible: true},
			VolumeExtrudeToInfinity | VolumeIncludeLightCap},
		{"zfail hidden caps", capInputs{zfail: true},
			0},
		{"zpass infinite modulative point", capInputs{extrudeToInfinity: true, modulative: true, darkCapVisible: true},
			VolumeExtrudeToInfinity | VolumeIncludeDarkCap},
		{"zpass infinite additive point", capInputs{extrudeToInfinity: true, darkCapVisible: true},
			VolumeExtrudeToInfinity},
		{"zpass finite", capInputs{darkCapVisible: true, lightCapVisible: true},
			VolumeIncludeDarkCap},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, volumeFlags(tc.in))
		})
	}
}

func TestBuildEdgeListWeldsCube(t *testing.T) {
	el := buildEdgeList(scene.CreateCube(1))
	assert.Len(t, el.positions, 8)
	assert.Len(t, el.tris, 12)
	assert.Len(t, el.edges, 18)
	for _, e := range el.edges {
		assert.GreaterOrEqual(t, e.t1, 0, "cube edges are closed")
	}

	// A lone triangle has three open edges; degenerate ones are dropped.
	m := scene.CreateCube(1)
	m.Indices = []uint32{0, 1, 2, 4, 4, 5}
	el = buildEdgeList(m)
	assert.Len(t, el.tris, 1)
	for _, e := range el.edges {
		assert.Equal(t, -1, e.t1)
	}
}

// assertClosed checks that every directed edge of the triangles is matched
// by its reverse.
func assertClosed(t *testing.T, idx []uint32) {
	t.Helper()
	require.Zero(t, len(idx)%3)
	count := map[[2]uint32]int{}
	for i := 0; i < len(idx); i += 3 {
		a, b, c := idx[i], idx[i+1], idx[i+2]
		for _, e := range [3][2]uint32{{a, b}, {b, c}, {c, a}} {
			count[e]++
		}
	}
	for e, n := range count {
		assert.Equal(t, n, count[[2]uint32{e[1], e[0]}], "edge %v", e)
	}
}

func TestMeshCasterSoftwareVolume(t *testing.T) {
	c := NewMeshCaster("cube", scene.CreateCube(1), math.Mat4Identity())
	light := pointLight("lamp", math.Vec3{X: 0, Y: 10, Z: 0})
	ib := renderer.NewIndexBuffer(0)

	flags := VolumeIncludeLightCap | VolumeIncludeDarkCap
	vols := c.ShadowVolume(StencilAdditive, light, ib, true, 100, flags)
	require.Len(t, vols, 1)
	v := vols[0]
	assert.Nil(t, v.LightCap, "software volumes draw the light cap inline")
	assert.Equal(t, 36, v.IndexCount, "8 side triangles and two caps of two")
	assert.Len(t, v.Vertices, 16)

	idx := ib.Slice(v.IndexStart, v.IndexCount)
	assertClosed(t, idx)
	for i, p := range v.Vertices[8:] {
		assert.Equal(t, float32(1), p.W, "extruded copy %d is finite", i)
		assert.Less(t, p.Y, float32(0), "extruded copy %d moves away from the light", i)
	}

	// Unchanged inputs reuse the cached indices.
	again := c.ShadowVolume(StencilAdditive, light, ib, true, 100, flags)[0]
	assert.NotEqual(t, v.IndexStart, again.IndexStart)
	assert.Equal(t, idx, ib.Slice(again.IndexStart, again.IndexCount))
}

func TestMeshCasterHardwareVolume(t *testing.T) {
	c := NewMeshCaster("cube", scene.CreateCube(1), math.Mat4Identity())
	light := pointLight("lamp", math.Vec3{X: 0, Y: 10, Z: 0})
	ib := renderer.NewIndexBuffer(0)

	v := c.ShadowVolume(StencilAdditive, light, ib, false, 100, VolumeIncludeLightCap|VolumeIncludeDarkCap)[0]
	require.NotNil(t, v.LightCap)
	assert.Equal(t, 30, v.IndexCount)
	assert.Equal(t, 6, v.LightCap.IndexCount)
	for _, p := range v.Vertices[8:] {
		assert.Equal(t, float32(0), p.W, "copies are left for the extrusion program")
	}
	all := append(slices.Clone(ib.Slice(v.IndexStart, v.IndexCount)), ib.Slice(v.LightCap.IndexStart, v.LightCap.IndexCount)...)
	assertClosed(t, all)

	sun := scene.NewLight("sun", scene.LightDirectional)
	sun.Direction = math.Vec3{X: 0, Y: -1, Z: 0}
	ib.Reset()
	v = c.ShadowVolume(StencilAdditive, sun, ib, false, 100, VolumeExtrudeToInfinity|VolumeIncludeLightCap|VolumeIncludeDarkCap)[0]
	assert.Equal(t, 12, v.IndexCount, "collapsed sides and no dark cap")
	require.NotNil(t, v.LightCap)
	assert.Equal(t, 6, v.LightCap.IndexCount)
}

func TestMeshCasterBounds(t *testing.T) {
	c := NewMeshCaster("cube", scene.CreateCube(2), math.Mat4Translation(math.Vec3{X: 0, Y: 5, Z: 0}))
	box := c.WorldBoundingBox()
	vecNearT(t, math.Vec3{X: -1, Y: 4, Z: -1}, box.Min)
	vecNearT(t, math.Vec3{X: 1, Y: 6, Z: 1}, box.Max)

	light := pointLight("lamp", math.Vec3{X: 0, Y: 10, Z: 0})
	dark := c.DarkCapBounds(light, 10)
	assert.Less(t, dark.Max.Y, box.Min.Y, "the dark cap lies beyond the caster")
	assert.InDelta(t, 50-5+box.HalfSize().Length(), c.PointExtrusionDistance(light), 1e-4)

	light.Range = 1
	assert.Zero(t, c.PointExtrusionDistance(light))
}

func TestExtrusionProgramName(t *testing.T) {
	assert.Equal(t, "shadow/extrude/point", ExtrusionProgramName(scene.LightSpot, false, false))
	assert.Equal(t, "shadow/extrude/directional-finite-debug", ExtrusionProgramName(scene.LightDirectional, true, true))

	p := extrusionProgram(pointLight("lamp", math.Vec3{X: 1, Y: 2, Z: 3}), true, false, 42)
	assert.Equal(t, "shadow/extrude/point-finite", p.Name)
	assert.Equal(t, []float32{1, 2, 3, 1}, p.Params["lightPosition"])
	assert.Equal(t, []float32{42}, p.Params["extrusionDistance"])
}

func TestLightScissor(t *testing.T) {
	cam := scene.NewCamera("main")

	_, res := lightScissor(scene.NewLight("sun", scene.LightDirectional), cam)
	assert.Equal(t, ClipNone, res)

	near := pointLight("near", math.Vec3{X: 0, Y: 0, Z: -20})
	near.Range = 2
	r, res := lightScissor(near, cam)
	require.Equal(t, ClipSome, res)
	assert.Less(t, r.minX, float32(0))
	assert.Greater(t, r.maxX, float32(0))
	px := r.pixels(800, 600)
	assert.Greater(t, px.Width, float32(0))
	assert.Less(t, px.Width, float32(800))

	behind := pointLight("behind", math.Vec3{X: 0, Y: 0, Z: 20})
	behind.Range = 2
	_, res = lightScissor(behind, cam)
	assert.Equal(t, ClipAll, res)

	around := pointLight("around", math.Vec3Zero)
	_, res = lightScissor(around, cam)
	assert.Equal(t, ClipNone, res, "the camera is inside the light's range")
}

func TestLightClipPlanes(t *testing.T) {
	assert.Empty(t, lightClipPlanes(scene.NewLight("sun", scene.LightDirectional)))

	lamp := pointLight("lamp", math.Vec3{X: 1, Y: 1, Z: 1})
	planes := lightClipPlanes(lamp)
	require.Len(t, planes, 6)
	vol := ClipVolume{Planes: planes}
	assert.True(t, vol.Intersects(boxAt(lamp.Position, 1)))
	assert.False(t, vol.Intersects(boxAt(math.Vec3{X: 100, Y: 1, Z: 1}, 1)))

	spot := scene.NewLight("spot", scene.LightSpot)
	spot.Position = math.Vec3Zero
	spot.Direction = math.Vec3{X: 0, Y: 0, Z: -1}
	spot.Range = 20
	planes = lightClipPlanes(spot)
	require.Len(t, planes, 6)
	vol = ClipVolume{Planes: planes}
	assert.True(t, vol.Intersects(boxAt(math.Vec3{X: 0, Y: 0, Z: -10}, 0.5)))
	assert.False(t, vol.Intersects(boxAt(math.Vec3{X: 0, Y: 0, Z: 10}, 0.5)), "behind the spot")
	assert.False(t, vol.Intersects(boxAt(math.Vec3{X: 0, Y: 0, Z: -30}, 0.5)), "past its range")
	assert.False(t, vol.Intersects(boxAt(math.Vec3{X: 15, Y: 0, Z: -5}, 0.5)), "outside the cone")
}

func vecNearT(t *testing.T, want, got math.Vec3) {
	t.Helper()
	assert.True(t, want.ApproxEqual(got, 1e-4), "want %v, got %v", want, got)
}
