package scene

import (
	"github.com/chewxy/math32"

	"shadow-engine/math"
)

// ProjectionType selects between perspective and orthographic cameras.
type ProjectionType int

const (
	ProjectionPerspective ProjectionType = iota
	ProjectionOrthographic
)

// InfiniteCornerDistance is the far distance used for frustum corners when
// the far clip plane is at infinity.
const InfiniteCornerDistance = 100000

// Camera represents a view camera looking down its local -Z axis.
//
// Far == 0 means an infinite far clip plane. The view and projection can be
// replaced with custom matrices, which shadow camera setups use to install
// projections that cannot be expressed with a field of view.
type Camera struct {
	Name        string
	Position    math.Vec3
	Orientation math.Quaternion
	Projection  ProjectionType
	FOVy        float32 // radians
	AspectRatio float32
	Near        float32
	Far         float32

	OrthoWidth  float32
	OrthoHeight float32

	// LodCamera is the camera used for level-of-detail decisions. A shadow
	// projector borrows the main camera here.
	LodCamera *Camera

	// Culling, when set, supplies the frustum used for visibility tests.
	Culling *Camera

	customView     bool
	customProj     bool
	viewMatrix     math.Mat4
	projMatrix     math.Mat4
	customNearClip bool
	nearClipPlane  Plane
}

func NewCamera(name string) *Camera {
	return &Camera{
		Name:        name,
		Orientation: math.QuaternionIdentity(),
		FOVy:        math.Radians(45),
		AspectRatio: 4.0 / 3.0,
		Near:        1,
		Far:         1000,
		OrthoWidth:  100,
		OrthoHeight: 75,
	}
}

func (c *Camera) UpdateAspectRatio(width, height float32) {
	if height > 0 {
		c.AspectRatio = width / height
	}
}

// SetOrthoWindow sets the orthographic window size and the matching aspect ratio.
func (c *Camera) SetOrthoWindow(width, height float32) {
	c.OrthoWidth = width
	c.OrthoHeight = height
	if height > 0 {
		c.AspectRatio = width / height
	}
}

func (c *Camera) Direction() math.Vec3 {
	return c.Orientation.RotateVector(math.Vec3Back)
}

func (c *Camera) Up() math.Vec3 {
	return c.Orientation.RotateVector(math.Vec3Up)
}

func (c *Camera) Right() math.Vec3 {
	return c.Orientation.RotateVector(math.Vec3Right)
}

// SetDirection turns the camera to look along dir, keeping +Y as up unless
// dir is nearly vertical, in which case +Z is used.
func (c *Camera) SetDirection(dir math.Vec3) {
	if dir.LengthSqr() == 0 {
		return
	}
	zAxis := dir.Normalize().Negate()
	up := math.Vec3Up
	if math32.Abs(zAxis.Dot(up)) >= 1-1e-4 {
		up = math.Vec3Front
	}
	xAxis := up.Cross(zAxis).Normalize()
	yAxis := zAxis.Cross(xAxis)
	c.Orientation = math.QuaternionFromAxes(xAxis, yAxis, zAxis)
}

func (c *Camera) LookAt(target math.Vec3) {
	c.SetDirection(target.Sub(c.Position))
}

// SetCustomViewMatrix enables or disables a user supplied view matrix.
func (c *Camera) SetCustomViewMatrix(enable bool, m math.Mat4) {
	c.customView = enable
	if enable {
		c.viewMatrix = m
	}
}

// SetCustomProjectionMatrix enables or disables a user supplied projection matrix.
func (c *Camera) SetCustomProjectionMatrix(enable bool, m math.Mat4) {
	c.customProj = enable
	if enable {
		c.projMatrix = m
	}
}

func (c *Camera) IsCustomViewMatrixEnabled() bool       { return c.customView }
func (c *Camera) IsCustomProjectionMatrixEnabled() bool { return c.customProj }

// SetCustomNearClipPlane replaces the near plane with an oblique world-space
// plane. The camera must lie on the plane's negative side. nil restores the
// regular near plane.
func (c *Camera) SetCustomNearClipPlane(p *Plane) {
	if p == nil {
		c.customNearClip = false
		return
	}
	c.customNearClip = true
	c.nearClipPlane = *p
}

func (c *Camera) IsCustomNearClipPlaneEnabled() bool { return c.customNearClip }

// LOD returns the camera used for level-of-detail decisions.
func (c *Camera) LOD() *Camera {
	if c.LodCamera != nil {
		return c.LodCamera
	}
	return c
}

func (c *Camera) ViewMatrix() math.Mat4 {
	if c.customView {
		return c.viewMatrix
	}
	return math.Mat4Translation(c.Position.Negate()).Mul(c.Orientation.Conjugate().ToMat4())
}

func (c *Camera) ProjectionMatrix() math.Mat4 {
	if c.customProj {
		return c.projMatrix
	}
	var p math.Mat4
	switch {
	case c.Projection == ProjectionOrthographic:
		hw, hh := c.OrthoWidth/2, c.OrthoHeight/2
		far := c.Far
		if far == 0 {
			far = InfiniteCornerDistance
		}
		p = math.Mat4Orthographic(-hw, hw, -hh, hh, c.Near, far)
	case c.Far == 0:
		p = math.Mat4PerspectiveInfinite(c.FOVy, c.AspectRatio, c.Near)
	default:
		p = math.Mat4Perspective(c.FOVy, c.AspectRatio, c.Near, c.Far)
	}
	if c.customNearClip {
		p = c.obliqueNear(p)
	}
	return p
}

// obliqueNear rewrites the depth column of p so that the near clip plane is
// the custom plane (Lengyel's oblique frustum).
func (c *Camera) obliqueNear(p math.Mat4) math.Mat4 {
	viewInv, ok := c.ViewMatrix().TryInverse()
	if !ok {
		return p
	}
	clip := c.nearClipPlane.Vec4().MulMat(viewInv.Transpose())
	projInv, ok := p.TryInverse()
	if !ok {
		return p
	}
	q := math.Vec4{X: sign(clip.X), Y: sign(clip.Y), Z: 1, W: 1}.MulMat(projInv)
	d := clip.Dot(q)
	if d == 0 {
		return p
	}
	colW := p.Column(3)
	z := clip.Mul(2 * colW.Dot(q) / d).Sub(colW)
	p[0][2], p[1][2], p[2][2], p[3][2] = z.X, z.Y, z.Z, z.W
	return p
}

func sign(v float32) float32 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

func (c *Camera) ViewProjection() math.Mat4 {
	return c.ViewMatrix().Mul(c.ProjectionMatrix())
}

// Frustum returns the world-space view frustum.
func (c *Camera) Frustum() Frustum {
	return FrustumFromVP(c.ViewProjection())
}

// CullingFrustum returns the frustum visibility tests should use.
func (c *Camera) CullingFrustum() Frustum {
	if c.Culling != nil {
		return c.Culling.Frustum()
	}
	return c.Frustum()
}

func (c *Camera) IsVisible(box AABB) bool {
	return c.CullingFrustum().IntersectsAABB(box)
}

func (c *Camera) IsVisibleSphere(s Sphere) bool {
	return c.CullingFrustum().IntersectsSphere(s)
}

// ProjectToNDC projects a world point into normalised device coordinates.
// ok is false when the point is behind the camera.
func (c *Camera) ProjectToNDC(p math.Vec3) (math.Vec3, bool) {
	clip := p.ToVec4(1).MulMat(c.ViewProjection())
	if clip.W <= 0 {
		return math.Vec3{}, false
	}
	return clip.ToVec3DivW(), true
}

// WorldCorners returns the frustum corners in world space: near top-right,
// near top-left, near bottom-left, near bottom-right, then the far corners
// in the same order.
func (c *Camera) WorldCorners() [8]math.Vec3 {
	if c.customView || c.customProj {
		return c.cornersFromInverse()
	}
	near := c.Near
	far := c.Far
	if far == 0 {
		far = InfiniteCornerDistance
	}
	var nw, nh, fw, fh float32
	if c.Projection == ProjectionOrthographic {
		nw, nh = c.OrthoWidth/2, c.OrthoHeight/2
		fw, fh = nw, nh
	} else {
		t := math32.Tan(c.FOVy / 2)
		nh = near * t
		nw = nh * c.AspectRatio
		fh = far * t
		fw = fh * c.AspectRatio
	}
	local := [8]math.Vec3{
		{X: nw, Y: nh, Z: -near}, {X: -nw, Y: nh, Z: -near},
		{X: -nw, Y: -nh, Z: -near}, {X: nw, Y: -nh, Z: -near},
		{X: fw, Y: fh, Z: -far}, {X: -fw, Y: fh, Z: -far},
		{X: -fw, Y: -fh, Z: -far}, {X: fw, Y: -fh, Z: -far},
	}
	var out [8]math.Vec3
	for i, l := range local {
		out[i] = c.Position.Add(c.Orientation.RotateVector(l))
	}
	return out
}

func (c *Camera) cornersFromInverse() [8]math.Vec3 {
	inv := c.ViewProjection().Inverse()
	ndc := [8]math.Vec3{
		{X: 1, Y: 1, Z: -1}, {X: -1, Y: 1, Z: -1},
		{X: -1, Y: -1, Z: -1}, {X: 1, Y: -1, Z: -1},
		{X: 1, Y: 1, Z: 1}, {X: -1, Y: 1, Z: 1},
		{X: -1, Y: -1, Z: 1}, {X: 1, Y: -1, Z: 1},
	}
	var out [8]math.Vec3
	for i, p := range ndc {
		out[i] = inv.MulVec3(p)
	}
	return out
}

// NearCorners returns the four near-plane corners in world space.
func (c *Camera) NearCorners() [4]math.Vec3 {
	all := c.WorldCorners()
	return [4]math.Vec3{all[0], all[1], all[2], all[3]}
}

// CopyFrustum copies the pose and projection parameters of src. Custom
// matrices are not copied.
func (c *Camera) CopyFrustum(src *Camera) {
	c.Position = src.Position
	c.Orientation = src.Orientation
	c.Projection = src.Projection
	c.FOVy = src.FOVy
	c.AspectRatio = src.AspectRatio
	c.Near = src.Near
	c.Far = src.Far
	c.OrthoWidth = src.OrthoWidth
	c.OrthoHeight = src.OrthoHeight
}
