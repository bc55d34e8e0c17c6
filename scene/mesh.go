package scene

import (
	"shadow-engine/core"
	"shadow-engine/math"
)

// Mesh holds CPU-side triangle-list vertex/index data.
// GPU upload is managed by the renderer backend.
type Mesh struct {
	Name     string
	Vertices []core.Vertex
	Indices  []uint32

	// MaterialName names the material assigned by a model loader.
	MaterialName string

	// Cached local-space AABB (computed by CreateMeshFromData).
	LocalAABB AABB

	// GPUData is set by the renderer backend.
	GPUData any
}

// CreateMeshFromData builds a Mesh and pre-computes its local-space AABB.
// A nil index slice is expanded to one index per vertex.
func CreateMeshFromData(name string, vertices []core.Vertex, indices []uint32) *Mesh {
	if indices == nil {
		indices = make([]uint32, len(vertices))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}
	m := &Mesh{
		Name:     name,
		Vertices: vertices,
		Indices:  indices,
	}
	m.RecomputeBounds()
	return m
}

// RecomputeBounds refreshes LocalAABB after the vertices changed.
func (m *Mesh) RecomputeBounds() {
	box := EmptyAABB()
	for _, v := range m.Vertices {
		box = box.MergePoint(v.Position)
	}
	m.LocalAABB = box
}

func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// WorldAABB returns the mesh bounds transformed by world.
func (m *Mesh) WorldAABB(world math.Mat4) AABB {
	return m.LocalAABB.Transform(world)
}

// cubeFaces lists each face's outward normal and two in-plane axes with
// u x v == normal, so the corner order below winds anticlockwise.
var cubeFaces = [6][3]math.Vec3{
	{{X: 0, Y: 0, Z: 1}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}},
	{{X: 0, Y: 0, Z: -1}, {X: -1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}},
	{{X: 0, Y: 1, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 0, Z: -1}},
	{{X: 0, Y: -1, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 0, Z: 1}},
	{{X: 1, Y: 0, Z: 0}, {X: 0, Y: 0, Z: -1}, {X: 0, Y: 1, Z: 0}},
	{{X: -1, Y: 0, Z: 0}, {X: 0, Y: 0, Z: 1}, {X: 0, Y: 1, Z: 0}},
}

// CreateCube builds an axis-aligned cube centred on the origin.
func CreateCube(size float32) *Mesh {
	s := size / 2
	vertices := make([]core.Vertex, 0, 24)
	indices := make([]uint32, 0, 36)
	corners := [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}

	for _, f := range cubeFaces {
		n, u, v := f[0], f[1], f[2]
		base := uint32(len(vertices))
		for _, c := range corners {
			p := n.Add(u.Mul(c[0])).Add(v.Mul(c[1])).Mul(s)
			vertices = append(vertices, core.Vertex{
				Position: p,
				Normal:   n,
				UV:       math.Vec2{X: (c[0] + 1) / 2, Y: (c[1] + 1) / 2},
				Color:    core.ColorWhite,
			})
		}
		indices = append(indices, base, base+1, base+2, base+2, base+3, base)
	}
	return CreateMeshFromData("Cube", vertices, indices)
}
