package scene

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shadow-engine/math"
)

const eps = 1e-4

func vecNear(t *testing.T, want, got math.Vec3) {
	t.Helper()
	assert.True(t, want.ApproxEqual(got, eps), "want %v, got %v", want, got)
}

func TestCameraFrustumVisibility(t *testing.T) {
	cam := NewCamera("main")

	assert.True(t, cam.Frustum().ContainsPoint(math.Vec3{X: 0, Y: 0, Z: -10}))
	assert.False(t, cam.Frustum().ContainsPoint(math.Vec3{X: 0, Y: 0, Z: 10}))
	assert.False(t, cam.Frustum().ContainsPoint(math.Vec3{X: 0, Y: 0, Z: -0.5}), "in front of the near plane")

	far := AABB{Min: math.Vec3{X: -1, Y: -1, Z: -2001}, Max: math.Vec3{X: 1, Y: 1, Z: -1999}}
	assert.False(t, cam.IsVisible(far))

	cam.Far = 0
	assert.True(t, cam.IsVisible(far), "infinite far plane keeps distant boxes")

	side := AABB{Min: math.Vec3{X: 50, Y: -1, Z: -11}, Max: math.Vec3{X: 52, Y: 1, Z: -9}}
	assert.False(t, cam.IsVisible(side))
}

func TestCameraSetDirection(t *testing.T) {
	cam := NewCamera("c")
	cam.SetDirection(math.Vec3{X: 1, Y: 0, Z: 0})
	vecNear(t, math.Vec3{X: 1, Y: 0, Z: 0}, cam.Direction())
	vecNear(t, math.Vec3Up, cam.Up())

	cam.SetDirection(math.Vec3{X: 0, Y: -3, Z: 0})
	vecNear(t, math.Vec3{X: 0, Y: -1, Z: 0}, cam.Direction())
	vecNear(t, math.Vec3{X: 0, Y: 0, Z: 1}, cam.Up())
}

func TestCameraNearCorners(t *testing.T) {
	cam := NewCamera("c")
	cam.Position = math.Vec3{X: 0, Y: 0, Z: 5}
	c := cam.NearCorners()

	nh := math32.Tan(cam.FOVy / 2)
	nw := nh * cam.AspectRatio
	vecNear(t, math.Vec3{X: nw, Y: nh, Z: 4}, c[0])
	vecNear(t, math.Vec3{X: -nw, Y: nh, Z: 4}, c[1])
	vecNear(t, math.Vec3{X: -nw, Y: -nh, Z: 4}, c[2])
	vecNear(t, math.Vec3{X: nw, Y: -nh, Z: 4}, c[3])

	// The inverse path must agree with the analytic one.
	cam.SetCustomViewMatrix(true, cam.ViewMatrix())
	inv := cam.NearCorners()
	for i := range c {
		assert.True(t, c[i].ApproxEqual(inv[i], 1e-3), "corner %d: %v vs %v", i, c[i], inv[i])
	}
}

func TestCameraCustomMatrices(t *testing.T) {
	cam := NewCamera("c")
	m := math.Mat4Scale(math.Vec3{X: 2, Y: 2, Z: 2})
	cam.SetCustomProjectionMatrix(true, m)
	assert.True(t, cam.IsCustomProjectionMatrixEnabled())
	assert.Equal(t, m, cam.ProjectionMatrix())

	cam.SetCustomProjectionMatrix(false, math.Mat4{})
	assert.False(t, cam.IsCustomProjectionMatrixEnabled())
	assert.Equal(t, math.Mat4Perspective(cam.FOVy, cam.AspectRatio, cam.Near, cam.Far), cam.ProjectionMatrix())
}

func TestCameraObliqueNearPlane(t *testing.T) {
	cam := NewCamera("c")
	plane := PlaneFromPointNormal(math.Vec3{X: 0, Y: 0, Z: -5}, math.Vec3{X: 0, Y: 0, Z: -1})
	cam.SetCustomNearClipPlane(&plane)
	require.True(t, cam.IsCustomNearClipPlaneEnabled())

	ndc, ok := cam.ProjectToNDC(math.Vec3{X: 0, Y: 0, Z: -3})
	require.True(t, ok)
	assert.Less(t, ndc.Z, float32(-1))

	ndc, ok = cam.ProjectToNDC(math.Vec3{X: 0, Y: 0, Z: -10})
	require.True(t, ok)
	assert.GreaterOrEqual(t, ndc.Z, float32(-1))
	assert.LessOrEqual(t, ndc.Z, float32(1))

	cam.SetCustomNearClipPlane(nil)
	assert.False(t, cam.IsCustomNearClipPlaneEnabled())
}

func TestAABBSide(t *testing.T) {
	box := AABB{Min: math.Vec3{X: -1, Y: -1, Z: -1}, Max: math.Vec3{X: 1, Y: 1, Z: 1}}
	up := PlaneFromPointNormal(math.Vec3{X: 0, Y: 5, Z: 0}, math.Vec3Up)
	assert.Equal(t, SideNegative, box.Side(up))
	assert.Equal(t, SidePositive, box.Side(up.Flip()))
	assert.Equal(t, SideBoth, box.Side(PlaneFromPointNormal(math.Vec3Zero, math.Vec3Up)))

	assert.True(t, EmptyAABB().IsEmpty())
	assert.Equal(t, box, EmptyAABB().Merge(box))
	assert.True(t, InfiniteAABB().Intersects(box))
}

func TestAABBTransform(t *testing.T) {
	box := AABB{Min: math.Vec3{X: -1, Y: -1, Z: -1}, Max: math.Vec3{X: 1, Y: 1, Z: 1}}
	moved := box.Transform(math.Mat4Translation(math.Vec3{X: 10, Y: 0, Z: 0}))
	vecNear(t, math.Vec3{X: 9, Y: -1, Z: -1}, moved.Min)
	vecNear(t, math.Vec3{X: 11, Y: 1, Z: 1}, moved.Max)
}

func TestPrimitiveWinding(t *testing.T) {
	for _, m := range []*Mesh{CreateCube(2), CreateSphere(1, 12, 8)} {
		for i := 0; i+2 < len(m.Indices); i += 3 {
			a := m.Vertices[m.Indices[i]].Position
			b := m.Vertices[m.Indices[i+1]].Position
			c := m.Vertices[m.Indices[i+2]].Position
			n := b.Sub(a).Cross(c.Sub(a))
			if n.LengthSqr() < 1e-10 {
				continue // pole triangles
			}
			centroid := a.Add(b).Add(c).Div(3)
			assert.Greater(t, n.Dot(centroid), float32(0), "%s triangle %d faces inward", m.Name, i/3)
		}
	}
}

func TestLightShadowClip(t *testing.T) {
	cam := NewCamera("c")
	cam.Near = 0.5

	dir := NewLight("sun", LightDirectional)
	assert.Equal(t, float32(0.5), dir.ShadowNearClip(cam))
	assert.Equal(t, float32(0), dir.ShadowFarClip(cam))

	spot := NewLight("spot", LightSpot)
	spot.Range = 40
	assert.Equal(t, float32(40), spot.ShadowFarClip(cam))

	spot.ShadowNearClipDistance = 2
	spot.ShadowFarClipDistance = 10
	assert.Equal(t, float32(2), spot.ShadowNearClip(cam))
	assert.Equal(t, float32(10), spot.ShadowFarClip(cam))

	dir.Direction = math.Vec3{X: 0, Y: -2, Z: 0}
	assert.Equal(t, math.Vec4{X: 0, Y: 1, Z: 0, W: 0}, dir.As4D())
}

func TestNodeWorldMatrixOrder(t *testing.T) {
	parent := NewNode("parent")
	parent.SetPosition(math.Vec3{X: 10, Y: 0, Z: 0})
	parent.SetRotation(math.QuaternionFromAxisAngle(math.Vec3Up, math.Pi/2))

	child := NewNode("child")
	child.SetPosition(math.Vec3{X: 0, Y: 0, Z: -1})
	parent.AddChild(child)

	// The child's offset is rotated by the parent before the parent's translation.
	want := parent.Transform.Rotation.RotateVector(math.Vec3{X: 0, Y: 0, Z: -1}).Add(math.Vec3{X: 10, Y: 0, Z: 0})
	vecNear(t, want, child.WorldPosition())

	parent.SetPosition(math.Vec3Zero)
	vecNear(t, want.Sub(math.Vec3{X: 10, Y: 0, Z: 0}), child.WorldPosition())
}

func TestScreenRay(t *testing.T) {
	cam := NewCamera("c")
	r := cam.ScreenRay(400, 300, 800, 600)
	vecNear(t, math.Vec3{X: 0, Y: 0, Z: -1}, r.Origin)
	vecNear(t, math.Vec3{X: 0, Y: 0, Z: -1}, r.Direction)

	left := cam.ScreenRay(0, 300, 800, 600)
	assert.Less(t, left.Direction.X, float32(0))
	top := cam.ScreenRay(400, 0, 800, 600)
	assert.Greater(t, top.Direction.Y, float32(0), "y grows downwards on screen")
}

func TestRayIntersect(t *testing.T) {
	r := Ray{Origin: math.Vec3{X: 0.1, Y: 0.2, Z: 0}, Direction: math.Vec3{X: 0, Y: 0, Z: -1}}

	box := AABB{Min: math.Vec3{X: -1, Y: -1, Z: -6}, Max: math.Vec3{X: 1, Y: 1, Z: -4}}
	d, ok := r.IntersectAABB(box)
	require.True(t, ok)
	assert.InDelta(t, 4, d, eps)

	_, ok = r.IntersectAABB(EmptyAABB())
	assert.False(t, ok)

	d, ok = Ray{Origin: box.Center(), Direction: r.Direction}.IntersectAABB(box)
	require.True(t, ok, "inside the box")
	assert.Equal(t, float32(0), d)

	_, ok = Ray{Origin: r.Origin, Direction: math.Vec3{X: 0, Y: 0, Z: 1}}.IntersectAABB(box)
	assert.False(t, ok, "box behind the ray")

	d, ok = r.IntersectTriangle(
		math.Vec3{X: -1, Y: -1, Z: -2}, math.Vec3{X: 1, Y: -1, Z: -2}, math.Vec3{X: 0, Y: 1, Z: -2})
	require.True(t, ok)
	assert.InDelta(t, 2, d, eps)
	vecNear(t, math.Vec3{X: 0.1, Y: 0.2, Z: -2}, r.At(d))

	world := math.Mat4Translation(math.Vec3{X: 0, Y: 0, Z: -5})
	d, face, ok := r.IntersectMesh(CreateCube(2), world)
	require.True(t, ok)
	assert.InDelta(t, 4, d, eps, "front face of the cube")
	assert.GreaterOrEqual(t, face, 0)

	_, _, ok = r.IntersectMesh(CreateCube(2), math.Mat4Translation(math.Vec3{X: 5, Y: 0, Z: -5}))
	assert.False(t, ok)
}

func TestAABBSentinels(t *testing.T) {
	empty := EmptyAABB()
	assert.True(t, empty.IsEmpty())
	assert.Equal(t, AABB{Min: math.Vec3{X: 1, Y: 2, Z: 3}, Max: math.Vec3{X: 1, Y: 2, Z: 3}},
		empty.MergePoint(math.Vec3{X: 1, Y: 2, Z: 3}))

	inf := InfiniteAABB()
	assert.True(t, inf.IsInfinite())
	assert.False(t, inf.IsEmpty())
	assert.True(t, inf.Contains(math.Vec3{X: 1e30, Y: -1e30, Z: 0}))
}
