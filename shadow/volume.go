package shadow

import (
	"github.com/chewxy/math32"

	"shadow-engine/core"
	"shadow-engine/materials"
	"shadow-engine/math"
	"shadow-engine/renderer"
	"shadow-engine/scene"
)

// ClipVolume is a convex region bounded by planes facing inward.
type ClipVolume struct {
	Planes []scene.Plane
	// Everything marks the degenerate volume containing all space.
	Everything bool
}

// Intersects reports whether any part of box may lie inside the volume.
func (v ClipVolume) Intersects(box scene.AABB) bool {
	if box.IsEmpty() {
		return false
	}
	if v.Everything {
		return true
	}
	for _, p := range v.Planes {
		if box.Side(p) == scene.SideNegative {
			return false
		}
	}
	return true
}

// NearClipVolume returns the region between the camera's near rectangle and
// the light. A shadow volume entering it may be cut by the near plane, which
// breaks the zpass count.
func NearClipVolume(light *scene.Light, cam *scene.Camera) ClipVolume {
	l4 := light.As4D()
	lpos := l4.ToVec3()
	near := cam.Frustum().Planes[scene.FrustumNear]
	d := near.Normal.Dot(lpos) + near.D*l4.W
	if math32.Abs(d) < 1e-6 {
		return ClipVolume{Everything: true}
	}

	corners := cam.NearCorners()
	centre := corners[0].Add(corners[1]).Add(corners[2]).Add(corners[3]).Div(4)
	var interior math.Vec3
	if l4.W == 0 {
		interior = centre.Add(lpos.Normalize().Mul(cam.Near))
	} else {
		interior = centre.Lerp(lpos, 0.5)
	}

	var vol ClipVolume
	for i := range corners {
		a, b := corners[i], corners[(i+1)%4]
		n := a.Sub(b).Cross(lpos.Sub(a.Mul(l4.W)))
		if n.LengthSqr() == 0 {
			continue
		}
		pl := scene.PlaneFromPointNormal(a, n)
		if pl.DistanceTo(interior) < 0 {
			pl = pl.Flip()
		}
		vol.Planes = append(vol.Planes, pl)
	}

	// Slab facing the light: through the camera when the light is in front
	// of the near plane, through the near plane when it is behind.
	n := near.Normal
	slab := cam.Position
	if d < 0 {
		n = n.Negate()
		slab = centre
	}
	vol.Planes = append(vol.Planes, scene.PlaneFromPointNormal(slab, n))
	if light.Type != scene.LightDirectional {
		vol.Planes = append(vol.Planes, scene.PlaneFromPointNormal(lpos, n.Negate()))
	}
	return vol
}

// UseZFail reports whether a caster needs the zfail algorithm: always with a
// custom near clip plane, otherwise when its bounds reach the near clip volume.
func UseZFail(vol ClipVolume, box scene.AABB, customNearClip bool) bool {
	return customNearClip || vol.Intersects(box)
}

type capInputs struct {
	zfail             bool
	extrudeToInfinity bool
	directional       bool
	modulative        bool
	lightCapVisible   bool
	darkCapVisible    bool
}

// volumeFlags decides which caps a caster's volume needs.
func volumeFlags(in capInputs) VolumeFlags {
	var f VolumeFlags
	if in.extrudeToInfinity {
		f |= VolumeExtrudeToInfinity
	}
	if in.zfail {
		if in.lightCapVisible {
			f |= VolumeIncludeLightCap
		}
		if !(in.extrudeToInfinity && in.directional) && in.darkCapVisible {
			f |= VolumeIncludeDarkCap
		}
		return f
	}
	// zpass: an infinite point light volume in modulative mode would leave a
	// dark band where nothing is drawn, and a finite volume can be seen
	// into at grazing angles.
	switch {
	case in.extrudeToInfinity && !in.directional && in.modulative && in.darkCapVisible:
		f |= VolumeIncludeDarkCap
	case !in.extrudeToInfinity && in.darkCapVisible:
		f |= VolumeIncludeDarkCap
	}
	return f
}

// volumeStencilState returns the stencil operations and culling for one
// volume pass. Increments always happen before decrements. With two-sided
// stencil the front face ops are given and the device applies the inverse
// to back faces.
func volumeStencilState(secondPass, zfail, twoSided, wrap bool) (renderer.StencilParams, materials.CullingMode) {
	incr, decr := renderer.StencilIncrement, renderer.StencilDecrement
	if wrap {
		incr, decr = renderer.StencilIncrementWrap, renderer.StencilDecrementWrap
	}
	p := renderer.StencilParams{
		Func:        materials.CompareAlwaysPass,
		CompareMask: 0xFFFFFFFF,
		WriteMask:   0xFFFFFFFF,
		StencilFail: renderer.StencilKeep,
		DepthFail:   renderer.StencilKeep,
		Pass:        renderer.StencilKeep,
		TwoSided:    twoSided,
	}
	if !twoSided && (secondPass || zfail) && !(secondPass && zfail) {
		// Back faces.
		if zfail {
			p.DepthFail = incr
		} else {
			p.Pass = decr
		}
		return p, materials.CullAnticlockwise
	}
	if zfail {
		p.DepthFail = decr
	} else {
		p.Pass = incr
	}
	if twoSided {
		return p, materials.CullNone
	}
	return p, materials.CullClockwise
}

// Debug volume colours.
var (
	debugZFailColour = core.Color{R: 0.7, G: 0, B: 0.2, A: 1}
	debugZPassColour = core.Color{R: 0, G: 0.7, B: 0.2, A: 1}
)

// ExtrusionProgramName names the vertex program that extrudes w == 0
// vertices for a light type. Backends register programs under these names.
func ExtrusionProgramName(t scene.LightType, finite, debug bool) string {
	name := "shadow/extrude/point"
	if t == scene.LightDirectional {
		name = "shadow/extrude/directional"
	}
	if finite {
		name += "-finite"
	}
	if debug {
		name += "-debug"
	}
	return name
}

func extrusionProgram(light *scene.Light, finite, debug bool, dist float32) materials.ProgramRef {
	l4 := light.As4D()
	return materials.ProgramRef{
		Name: ExtrusionProgramName(light.Type, finite, debug),
		Params: map[string][]float32{
			"lightPosition":     {l4.X, l4.Y, l4.Z, l4.W},
			"extrusionDistance": {dist},
		},
	}
}

// ClipResult is the outcome of restricting rendering to a light's area.
type ClipResult int

const (
	ClipNone ClipResult = iota
	ClipSome
	ClipAll
)

// ndcRect is a rectangle in normalised device coordinates.
type ndcRect struct {
	minX, minY, maxX, maxY float32
}

// pixels converts r to a viewport rectangle with the origin at the bottom left.
func (r ndcRect) pixels(width, height int) core.Rect {
	w, h := float32(width), float32(height)
	return core.Rect{
		X:      (r.minX + 1) / 2 * w,
		Y:      (r.minY + 1) / 2 * h,
		Width:  (r.maxX - r.minX) / 2 * w,
		Height: (r.maxY - r.minY) / 2 * h,
	}
}

// lightScissor returns the screen area a point or spot light can affect.
func lightScissor(light *scene.Light, cam *scene.Camera) (ndcRect, ClipResult) {
	if light.Type == scene.LightDirectional {
		return ndcRect{}, ClipNone
	}
	sphere := light.BoundingSphere()
	if !cam.Frustum().IntersectsSphere(sphere) {
		return ndcRect{}, ClipAll
	}
	if cam.Position.DistanceSqr(sphere.Center) <= sphere.Radius*sphere.Radius {
		return ndcRect{}, ClipNone
	}

	inf := float32(math32.MaxFloat32)
	r := ndcRect{minX: inf, minY: inf, maxX: -inf, maxY: -inf}
	vp := cam.ViewProjection()
	for _, c := range light.Bounds().Corners() {
		clip := c.ToVec4(1).MulMat(vp)
		if clip.W <= 0 {
			// The box crosses the camera plane; its projection is unbounded.
			return ndcRect{}, ClipNone
		}
		x, y := clip.X/clip.W, clip.Y/clip.W
		r.minX, r.maxX = math32.Min(r.minX, x), math32.Max(r.maxX, x)
		r.minY, r.maxY = math32.Min(r.minY, y), math32.Max(r.maxY, y)
	}
	r.minX, r.maxX = math.Clamp(r.minX, -1, 1), math.Clamp(r.maxX, -1, 1)
	r.minY, r.maxY = math.Clamp(r.minY, -1, 1), math.Clamp(r.maxY, -1, 1)
	switch {
	case r.minX >= r.maxX || r.minY >= r.maxY:
		return r, ClipAll
	case r.minX <= -1 && r.minY <= -1 && r.maxX >= 1 && r.maxY >= 1:
		return r, ClipNone
	}
	return r, ClipSome
}

// lightClipPlanes returns inward-facing planes bounding the light's volume:
// the six faces of the range box for a point light, the cone's near, far and
// four side planes for a spot light, and nothing for a directional light.
func lightClipPlanes(light *scene.Light) []scene.Plane {
	switch light.Type {
	case scene.LightPoint:
		pos, r := light.Position, light.Range
		planes := make([]scene.Plane, 0, 6)
		for _, axis := range []math.Vec3{math.Vec3Right, math.Vec3Up, math.Vec3Front} {
			planes = append(planes,
				scene.PlaneFromPointNormal(pos.Add(axis.Mul(r)), axis.Negate()),
				scene.PlaneFromPointNormal(pos.Sub(axis.Mul(r)), axis),
			)
		}
		return planes

	case scene.LightSpot:
		pos, dir := light.Position, light.DerivedDirection()
		planes := []scene.Plane{
			scene.PlaneFromPointNormal(pos, dir),
			scene.PlaneFromPointNormal(pos.Add(dir.Mul(light.Range)), dir.Negate()),
		}
		right := perpendicular(dir)
		up := dir.Cross(right)
		half := light.SpotOuter / 2
		sin, cos := math32.Sin(half), math32.Cos(half)
		for _, a := range []math.Vec3{right, right.Negate(), up, up.Negate()} {
			planes = append(planes, scene.PlaneFromPointNormal(pos, dir.Mul(sin).Sub(a.Mul(cos))))
		}
		return planes
	}
	return nil
}
