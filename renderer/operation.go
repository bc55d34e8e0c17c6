package renderer

import (
	"shadow-engine/core"
	"shadow-engine/math"
	"shadow-engine/scene"
)

// RenderOperation is one draw call: either a mesh, or a homogeneous vertex
// list indexed from an IndexBuffer. Vertices with w == 0 are at infinity.
type RenderOperation struct {
	Mesh *scene.Mesh

	Vertices   []math.Vec4
	Indices    *IndexBuffer
	IndexStart int
	IndexCount int

	World math.Mat4

	// Full-screen quads draw in clip space.
	UseIdentityView       bool
	UseIdentityProjection bool
}

// TriangleCount returns the number of triangles the operation draws.
func (op RenderOperation) TriangleCount() int {
	if op.Mesh != nil {
		return op.Mesh.TriangleCount()
	}
	return op.IndexCount / 3
}

// IndexBuffer is a growable 32-bit index store shared by shadow volumes.
// Reset rewinds it without freeing memory; it never shrinks.
type IndexBuffer struct {
	data []uint32
	used int

	// Handle is the backend buffer object.
	Handle any
	// Dirty is set when indices were written since the backend last uploaded.
	Dirty bool
}

func NewIndexBuffer(capacity int) *IndexBuffer {
	if capacity < 0 {
		capacity = 0
	}
	return &IndexBuffer{data: make([]uint32, capacity)}
}

func (b *IndexBuffer) Capacity() int { return len(b.data) }
func (b *IndexBuffer) Used() int     { return b.used }

// Reset marks the whole buffer free.
func (b *IndexBuffer) Reset() { b.used = 0 }

// Append writes indices after the used region, doubling the capacity as
// needed, and returns where they start.
func (b *IndexBuffer) Append(indices ...uint32) int {
	start := b.used
	need := b.used + len(indices)
	if need > len(b.data) {
		capacity := max(len(b.data), 1)
		for capacity < need {
			capacity *= 2
		}
		grown := make([]uint32, capacity)
		copy(grown, b.data[:b.used])
		b.data = grown
		core.Logger().Debug("renderer: index buffer grown", "capacity", capacity)
	}
	copy(b.data[start:], indices)
	b.used = need
	b.Dirty = true
	return start
}

// Slice returns count indices starting at start.
func (b *IndexBuffer) Slice(start, count int) []uint32 {
	return b.data[start : start+count]
}
