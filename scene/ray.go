package scene

import (
	"shadow-engine/math"
)

// Ray is a half-line from Origin along the unit vector Direction.
type Ray struct {
	Origin    math.Vec3
	Direction math.Vec3
}

func (r Ray) At(t float32) math.Vec3 {
	return r.Origin.Add(r.Direction.Mul(t))
}

// ScreenRay returns the ray through the pixel (x, y), measured from the top
// left of a width x height viewport. The ray starts on the near plane, so it
// also works for orthographic cameras.
func (c *Camera) ScreenRay(x, y, width, height float32) Ray {
	ndcX := 2*x/width - 1
	ndcY := 1 - 2*y/height

	inv := c.ViewProjection().Inverse()
	near := math.Vec4{X: ndcX, Y: ndcY, Z: -1, W: 1}.MulMat(inv).ToVec3DivW()
	mid := math.Vec4{X: ndcX, Y: ndcY, Z: 0, W: 1}.MulMat(inv).ToVec3DivW()
	return Ray{Origin: near, Direction: mid.Sub(near).Normalize()}
}

// IntersectAABB returns the distance along r to the first face of b. A ray
// starting inside the box hits at 0.
func (r Ray) IntersectAABB(b AABB) (float32, bool) {
	if b.IsEmpty() {
		return 0, false
	}
	inv := math.Vec3{X: 1 / r.Direction.X, Y: 1 / r.Direction.Y, Z: 1 / r.Direction.Z}

	t1 := (b.Min.X - r.Origin.X) * inv.X
	t2 := (b.Max.X - r.Origin.X) * inv.X
	t3 := (b.Min.Y - r.Origin.Y) * inv.Y
	t4 := (b.Max.Y - r.Origin.Y) * inv.Y
	t5 := (b.Min.Z - r.Origin.Z) * inv.Z
	t6 := (b.Max.Z - r.Origin.Z) * inv.Z

	tmin := max(min(t1, t2), min(t3, t4), min(t5, t6))
	tmax := min(max(t1, t2), max(t3, t4), max(t5, t6))
	if tmax < 0 || tmin > tmax {
		return 0, false
	}
	return max(tmin, 0), true
}

// IntersectTriangle is the Möller-Trumbore test. Both windings hit.
func (r Ray) IntersectTriangle(v0, v1, v2 math.Vec3) (float32, bool) {
	const epsilon = 1e-7

	edge1 := v1.Sub(v0)
	edge2 := v2.Sub(v0)
	h := r.Direction.Cross(edge2)
	a := edge1.Dot(h)
	if a > -epsilon && a < epsilon {
		return 0, false // parallel
	}

	f := 1 / a
	s := r.Origin.Sub(v0)
	u := f * s.Dot(h)
	if u < 0 || u > 1 {
		return 0, false
	}
	q := s.Cross(edge1)
	v := f * r.Direction.Dot(q)
	if v < 0 || u+v > 1 {
		return 0, false
	}
	t := f * edge2.Dot(q)
	if t <= epsilon {
		return 0, false
	}
	return t, true
}

// IntersectMesh returns the nearest triangle hit of m placed by world, and
// the index of that triangle.
func (r Ray) IntersectMesh(m *Mesh, world math.Mat4) (dist float32, face int, ok bool) {
	if m == nil {
		return 0, -1, false
	}
	if _, hit := r.IntersectAABB(m.WorldAABB(world)); !hit {
		return 0, -1, false
	}
	face = -1
	for i := 0; i+2 < len(m.Indices); i += 3 {
		v0 := world.MulVec3(m.Vertices[m.Indices[i]].Position)
		v1 := world.MulVec3(m.Vertices[m.Indices[i+1]].Position)
		v2 := world.MulVec3(m.Vertices[m.Indices[i+2]].Position)
		if t, hit := r.IntersectTriangle(v0, v1, v2); hit && (!ok || t < dist) {
			dist, face, ok = t, i/3, true
		}
	}
	return dist, face, ok
}
