package scene

import (
	"github.com/chewxy/math32"

	"shadow-engine/math"
)

// Plane represents a half-space: ax + by + cz + d = 0.
// Points with a positive distance lie on the side Normal points to.
type Plane struct {
	Normal math.Vec3
	D      float32
}

// PlaneFromPointNormal builds the plane through point with the given normal.
func PlaneFromPointNormal(point, normal math.Vec3) Plane {
	n := normal.Normalize()
	return Plane{Normal: n, D: -n.Dot(point)}
}

// PlaneFromPoints builds the plane through a, b and c, facing the side from
// which the triangle winds anticlockwise.
func PlaneFromPoints(a, b, c math.Vec3) Plane {
	return PlaneFromPointNormal(a, b.Sub(a).Cross(c.Sub(a)))
}

// DistanceTo returns the signed distance from a point to the plane.
func (p Plane) DistanceTo(pt math.Vec3) float32 {
	return p.Normal.Dot(pt) + p.D
}

// Flip returns the same plane facing the other way.
func (p Plane) Flip() Plane {
	return Plane{Normal: p.Normal.Negate(), D: -p.D}
}

// Vec4 returns (a, b, c, d).
func (p Plane) Vec4() math.Vec4 {
	return math.Vec4{X: p.Normal.X, Y: p.Normal.Y, Z: p.Normal.Z, W: p.D}
}

// IntersectSegment returns the point where the segment a→b crosses the plane.
func (p Plane) IntersectSegment(a, b math.Vec3) (math.Vec3, bool) {
	da, db := p.DistanceTo(a), p.DistanceTo(b)
	if (da > 0 && db > 0) || (da < 0 && db < 0) || da == db {
		return math.Vec3{}, false
	}
	t := da / (da - db)
	return a.Lerp(b, t), true
}

func normalizePlane(v math.Vec4) Plane {
	l := math.Vec3{X: v.X, Y: v.Y, Z: v.Z}.Length()
	if l == 0 {
		return Plane{}
	}
	return Plane{Normal: math.Vec3{X: v.X / l, Y: v.Y / l, Z: v.Z / l}, D: v.W / l}
}

// Side classifies a box against a plane.
type Side int

const (
	SideNegative Side = iota
	SidePositive
	SideBoth
)

// Sphere is a bounding sphere.
type Sphere struct {
	Center math.Vec3
	Radius float32
}

// AABB is an axis-aligned bounding box. A box with Min > Max on any axis is empty.
type AABB struct {
	Min math.Vec3
	Max math.Vec3
}

// EmptyAABB returns a box that contains nothing and merges as an identity.
func EmptyAABB() AABB {
	inf := float32(math32.MaxFloat32)
	return AABB{
		Min: math.Vec3{X: inf, Y: inf, Z: inf},
		Max: math.Vec3{X: -inf, Y: -inf, Z: -inf},
	}
}

// InfiniteAABB returns a box that contains every finite point.
func InfiniteAABB() AABB {
	inf := float32(math32.MaxFloat32)
	return AABB{
		Min: math.Vec3{X: -inf, Y: -inf, Z: -inf},
		Max: math.Vec3{X: inf, Y: inf, Z: inf},
	}
}

func (b AABB) IsEmpty() bool {
	return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z
}

func (b AABB) IsInfinite() bool {
	return b.Min.X <= -math32.MaxFloat32 && b.Max.X >= math32.MaxFloat32
}

func (b AABB) Center() math.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// HalfSize returns the half extents along each axis.
func (b AABB) HalfSize() math.Vec3 {
	return b.Max.Sub(b.Min).Mul(0.5)
}

// Merge returns the smallest box containing both boxes.
func (b AABB) Merge(other AABB) AABB {
	if other.IsEmpty() {
		return b
	}
	if b.IsEmpty() {
		return other
	}
	return AABB{Min: b.Min.Min(other.Min), Max: b.Max.Max(other.Max)}
}

// MergePoint grows the box to include p.
func (b AABB) MergePoint(p math.Vec3) AABB {
	if b.IsEmpty() {
		return AABB{Min: p, Max: p}
	}
	return AABB{Min: b.Min.Min(p), Max: b.Max.Max(p)}
}

func (b AABB) Contains(p math.Vec3) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

func (b AABB) Intersects(other AABB) bool {
	if b.IsEmpty() || other.IsEmpty() {
		return false
	}
	return b.Min.X <= other.Max.X && b.Max.X >= other.Min.X &&
		b.Min.Y <= other.Max.Y && b.Max.Y >= other.Min.Y &&
		b.Min.Z <= other.Max.Z && b.Max.Z >= other.Min.Z
}

// Corners returns the eight corners of the box.
func (b AABB) Corners() [8]math.Vec3 {
	mn, mx := b.Min, b.Max
	return [8]math.Vec3{
		{X: mn.X, Y: mn.Y, Z: mn.Z},
		{X: mx.X, Y: mn.Y, Z: mn.Z},
		{X: mn.X, Y: mx.Y, Z: mn.Z},
		{X: mx.X, Y: mx.Y, Z: mn.Z},
		{X: mn.X, Y: mn.Y, Z: mx.Z},
		{X: mx.X, Y: mn.Y, Z: mx.Z},
		{X: mn.X, Y: mx.Y, Z: mx.Z},
		{X: mx.X, Y: mx.Y, Z: mx.Z},
	}
}

// Transform transforms the box by m by testing all 8 corners.
func (b AABB) Transform(m math.Mat4) AABB {
	if b.IsEmpty() || b.IsInfinite() {
		return b
	}
	out := EmptyAABB()
	for _, c := range b.Corners() {
		out = out.MergePoint(m.MulVec3(c))
	}
	return out
}

// Side reports which side of the plane the box lies on.
func (b AABB) Side(p Plane) Side {
	if b.IsEmpty() {
		return SideBoth
	}
	if b.IsInfinite() {
		return SideBoth
	}
	half := b.HalfSize()
	dist := p.DistanceTo(b.Center())
	maxAbs := math32.Abs(p.Normal.X*half.X) + math32.Abs(p.Normal.Y*half.Y) + math32.Abs(p.Normal.Z*half.Z)
	switch {
	case dist < -maxAbs:
		return SideNegative
	case dist > maxAbs:
		return SidePositive
	}
	return SideBoth
}

// BoundingSphere returns the sphere enclosing the box.
func (b AABB) BoundingSphere() Sphere {
	return Sphere{Center: b.Center(), Radius: b.HalfSize().Length()}
}

// Frustum holds the six clip planes of a view frustum. Plane normals point inward.
type Frustum struct {
	Planes [6]Plane // Left, Right, Bottom, Top, Near, Far
}

const (
	FrustumLeft = iota
	FrustumRight
	FrustumBottom
	FrustumTop
	FrustumNear
	FrustumFar
)

// FrustumFromVP extracts the six frustum planes from a view-projection matrix.
// Clip coordinates are p * vp, so clip component j is the dot product of p
// with column j; the Gribb/Hartmann planes combine columns.
func FrustumFromVP(vp math.Mat4) Frustum {
	c0, c1, c2, c3 := vp.Column(0), vp.Column(1), vp.Column(2), vp.Column(3)

	var f Frustum
	f.Planes[FrustumLeft] = normalizePlane(c3.Add(c0))
	f.Planes[FrustumRight] = normalizePlane(c3.Sub(c0))
	f.Planes[FrustumBottom] = normalizePlane(c3.Add(c1))
	f.Planes[FrustumTop] = normalizePlane(c3.Sub(c1))
	f.Planes[FrustumNear] = normalizePlane(c3.Add(c2))
	f.Planes[FrustumFar] = normalizePlane(c3.Sub(c2))
	return f
}

// ContainsPoint reports whether p is inside all six planes.
func (f Frustum) ContainsPoint(p math.Vec3) bool {
	for _, pl := range f.Planes {
		if pl.DistanceTo(p) < 0 {
			return false
		}
	}
	return true
}

// IntersectsAABB returns false if the box is entirely outside any plane.
func (f Frustum) IntersectsAABB(b AABB) bool {
	if b.IsEmpty() {
		return false
	}
	if b.IsInfinite() {
		return true
	}
	for _, p := range f.Planes {
		// Positive vertex: the corner farthest along the plane normal.
		pv := math.Vec3{X: b.Min.X, Y: b.Min.Y, Z: b.Min.Z}
		if p.Normal.X >= 0 {
			pv.X = b.Max.X
		}
		if p.Normal.Y >= 0 {
			pv.Y = b.Max.Y
		}
		if p.Normal.Z >= 0 {
			pv.Z = b.Max.Z
		}
		if p.DistanceTo(pv) < 0 {
			return false
		}
	}
	return true
}

func (f Frustum) IntersectsSphere(s Sphere) bool {
	for _, p := range f.Planes {
		if p.DistanceTo(s.Center) < -s.Radius {
			return false
		}
	}
	return true
}
