package engine

import (
	"shadow-engine/math"
	"shadow-engine/scene"
)

// Hit is an entity struck by a pick ray.
type Hit struct {
	Entity   *Entity
	Distance float32
	Point    math.Vec3
	Face     int
}

// Pick returns the nearest visible entity hit by r. Bounding boxes reject
// entities before their triangles are tested.
func (sm *SceneManager) Pick(r scene.Ray) (Hit, bool) {
	var best Hit
	found := false
	for _, e := range sm.entities {
		if !e.Node.Visible || e.Mesh == nil {
			continue
		}
		if t, ok := r.IntersectAABB(e.WorldBoundingBox()); !ok || (found && t > best.Distance) {
			continue
		}
		if d, face, ok := r.IntersectMesh(e.Mesh, e.Node.GetWorldMatrix()); ok && (!found || d < best.Distance) {
			best = Hit{Entity: e, Distance: d, Point: r.At(d), Face: face}
			found = true
		}
	}
	return best, found
}
