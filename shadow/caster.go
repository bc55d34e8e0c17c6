package shadow

import (
	"shadow-engine/math"
	"shadow-engine/renderer"
	"shadow-engine/scene"
)

// VolumeFlags select the optional parts of a shadow volume.
type VolumeFlags uint8

const (
	VolumeIncludeLightCap VolumeFlags = 1 << iota
	VolumeIncludeDarkCap
	VolumeExtrudeToInfinity
)

// Caster is an object that can cast stencil shadows.
type Caster interface {
	WorldBoundingBox() scene.AABB
	WorldBoundingSphere() scene.Sphere
	LightCapBounds() scene.AABB
	DarkCapBounds(light *scene.Light, extrudeDist float32) scene.AABB
	// PointExtrusionDistance is how far a point or spot light's volume must
	// reach past this caster to cover the light's range.
	PointExtrusionDistance(light *scene.Light) float32
	// ShadowVolume writes the caster's volume indices into ib and returns
	// the renderables drawing them.
	ShadowVolume(t Technique, light *scene.Light, ib *renderer.IndexBuffer, extrudeInSoftware bool, extrudeDist float32, flags VolumeFlags) []*VolumeRenderable
}

// VolumeRenderable is one shadow volume draw. Vertices holds the original
// positions followed by their extruded copies; copies with w == 0 are
// extruded by the bound vertex program.
type VolumeRenderable struct {
	Name       string
	Vertices   []math.Vec4
	IndexStart int
	IndexCount int
	// LightCap is drawn separately when set.
	LightCap *VolumeRenderable
}

func (v *VolumeRenderable) RenderOperation(ib *renderer.IndexBuffer) renderer.RenderOperation {
	return renderer.RenderOperation{
		Vertices:   v.Vertices,
		Indices:    ib,
		IndexStart: v.IndexStart,
		IndexCount: v.IndexCount,
		World:      math.Mat4Identity(),
	}
}

type edge struct {
	v0, v1 uint32
	// t1 is -1 for an open edge.
	t0, t1 int
}

// edgeList is the welded connectivity of a mesh.
type edgeList struct {
	positions []math.Vec3
	tris      [][3]uint32
	edges     []edge
}

// buildEdgeList welds vertices sharing a position and pairs each directed
// triangle edge with its reverse. Degenerate triangles are dropped.
func buildEdgeList(m *scene.Mesh) *edgeList {
	el := &edgeList{}
	remap := make([]uint32, len(m.Vertices))
	welded := make(map[math.Vec3]uint32, len(m.Vertices))
	for i, v := range m.Vertices {
		id, ok := welded[v.Position]
		if !ok {
			id = uint32(len(el.positions))
			welded[v.Position] = id
			el.positions = append(el.positions, v.Position)
		}
		remap[i] = id
	}

	unmatched := map[[2]uint32][]int{}
	for i := 0; i+2 < len(m.Indices); i += 3 {
		if int(max(m.Indices[i], m.Indices[i+1], m.Indices[i+2])) >= len(remap) {
			continue
		}
		a, b, c := remap[m.Indices[i]], remap[m.Indices[i+1]], remap[m.Indices[i+2]]
		if a == b || b == c || a == c {
			continue
		}
		t := len(el.tris)
		el.tris = append(el.tris, [3]uint32{a, b, c})
		for _, e := range [3][2]uint32{{a, b}, {b, c}, {c, a}} {
			rev := [2]uint32{e[1], e[0]}
			if list := unmatched[rev]; len(list) > 0 {
				el.edges[list[len(list)-1]].t1 = t
				unmatched[rev] = list[:len(list)-1]
				continue
			}
			unmatched[e] = append(unmatched[e], len(el.edges))
			el.edges = append(el.edges, edge{v0: e[0], v1: e[1], t0: t, t1: -1})
		}
	}
	return el
}

type volumeKey struct {
	mesh     *scene.Mesh
	world    math.Mat4
	light    math.Vec4
	dist     float32
	flags    VolumeFlags
	software bool
}

type volumeCache struct {
	valid       bool
	key         volumeKey
	vertices    []math.Vec4
	indices     []uint32
	capIndices  []uint32
	separateCap bool
}

// MeshCaster casts the shadow of a triangle mesh placed by World.
type MeshCaster struct {
	Name  string
	Mesh  *scene.Mesh
	World math.Mat4

	edges     *edgeList
	edgesMesh *scene.Mesh
	edgesSize [2]int
	cache     volumeCache
}

func NewMeshCaster(name string, mesh *scene.Mesh, world math.Mat4) *MeshCaster {
	return &MeshCaster{Name: name, Mesh: mesh, World: world}
}

func (c *MeshCaster) WorldBoundingBox() scene.AABB {
	if c.Mesh == nil {
		return scene.EmptyAABB()
	}
	return c.Mesh.WorldAABB(c.World)
}

func (c *MeshCaster) WorldBoundingSphere() scene.Sphere {
	return c.WorldBoundingBox().BoundingSphere()
}

func (c *MeshCaster) LightCapBounds() scene.AABB {
	return c.WorldBoundingBox()
}

// DarkCapBounds returns the box of the world bounds pushed away from the light.
func (c *MeshCaster) DarkCapBounds(light *scene.Light, extrudeDist float32) scene.AABB {
	box := c.WorldBoundingBox()
	if box.IsEmpty() {
		return box
	}
	out := scene.EmptyAABB()
	l4 := light.As4D()
	for _, p := range box.Corners() {
		out = out.MergePoint(extrudePoint(p, l4, extrudeDist))
	}
	return out
}

func (c *MeshCaster) PointExtrusionDistance(light *scene.Light) float32 {
	s := c.WorldBoundingSphere()
	return max(light.Range-light.Position.Distance(s.Center)+s.Radius, 0)
}

// extrudePoint moves p away from a homogeneous light by dist.
func extrudePoint(p math.Vec3, l4 math.Vec4, dist float32) math.Vec3 {
	if l4.W == 0 {
		return p.Sub(l4.ToVec3().Normalize().Mul(dist))
	}
	return p.Add(p.Sub(l4.ToVec3()).Normalize().Mul(dist))
}

func (c *MeshCaster) edgeList() *edgeList {
	size := [2]int{len(c.Mesh.Vertices), len(c.Mesh.Indices)}
	if c.edges == nil || c.edgesMesh != c.Mesh || c.edgesSize != size {
		c.edges = buildEdgeList(c.Mesh)
		c.edgesMesh = c.Mesh
		c.edgesSize = size
	}
	return c.edges
}

func (c *MeshCaster) ShadowVolume(_ Technique, light *scene.Light, ib *renderer.IndexBuffer, extrudeInSoftware bool, extrudeDist float32, flags VolumeFlags) []*VolumeRenderable {
	if c.Mesh == nil || len(c.Mesh.Indices) < 3 {
		return nil
	}
	key := volumeKey{
		mesh:     c.Mesh,
		world:    c.World,
		light:    light.As4D(),
		dist:     extrudeDist,
		flags:    flags,
		software: extrudeInSoftware,
	}
	if !c.cache.valid || c.cache.key != key {
		c.rebuildVolume(c.edgeList(), key)
	}

	vr := &VolumeRenderable{Name: c.Name, Vertices: c.cache.vertices}
	if len(c.cache.indices) > 0 {
		vr.IndexStart = ib.Append(c.cache.indices...)
		vr.IndexCount = len(c.cache.indices)
	}
	if c.cache.separateCap && len(c.cache.capIndices) > 0 {
		vr.LightCap = &VolumeRenderable{
			Name:       c.Name + "/LightCap",
			Vertices:   c.cache.vertices,
			IndexStart: ib.Append(c.cache.capIndices...),
			IndexCount: len(c.cache.capIndices),
		}
	}
	return []*VolumeRenderable{vr}
}

func (c *MeshCaster) rebuildVolume(el *edgeList, key volumeKey) {
	n := uint32(len(el.positions))
	world := make([]math.Vec3, n)
	for i, p := range el.positions {
		world[i] = c.World.MulVec3(p)
	}

	l4 := key.light
	lit := make([]bool, len(el.tris))
	for i, t := range el.tris {
		pl := scene.PlaneFromPoints(world[t[0]], world[t[1]], world[t[2]])
		lit[i] = pl.Normal.Dot(l4.ToVec3())+pl.D*l4.W > 0
	}

	verts := make([]math.Vec4, 2*n)
	for i, p := range world {
		verts[i] = p.ToVec4(1)
		if key.software {
			verts[int(n)+i] = extrudePoint(p, l4, key.dist).ToVec4(1)
		} else {
			verts[int(n)+i] = p.ToVec4(0)
		}
	}

	// A directional light extruded to infinity collapses the far end of
	// the volume to a point: the sides are single triangles and there is no
	// dark cap.
	collapsed := l4.W == 0 && key.flags&VolumeExtrudeToInfinity != 0

	var idx []uint32
	for _, e := range el.edges {
		var a, b uint32
		switch {
		case e.t1 < 0:
			if !lit[e.t0] {
				continue
			}
			a, b = e.v0, e.v1
		case lit[e.t0] == lit[e.t1]:
			continue
		case lit[e.t0]:
			a, b = e.v0, e.v1
		default:
			a, b = e.v1, e.v0
		}
		idx = append(idx, b, a, a+n)
		if !collapsed {
			idx = append(idx, a+n, b+n, b)
		}
	}

	separateCap := !key.software && key.flags&VolumeIncludeLightCap != 0
	var capIdx []uint32
	for i, t := range el.tris {
		if !lit[i] {
			continue
		}
		if key.flags&VolumeIncludeLightCap != 0 {
			if separateCap {
				capIdx = append(capIdx, t[0], t[1], t[2])
			} else {
				idx = append(idx, t[0], t[1], t[2])
			}
		}
		if key.flags&VolumeIncludeDarkCap != 0 && !collapsed {
			idx = append(idx, t[0]+n, t[2]+n, t[1]+n)
		}
	}

	c.cache = volumeCache{
		valid:       true,
		key:         key,
		vertices:    verts,
		indices:     idx,
		capIndices:  capIdx,
		separateCap: separateCap,
	}
}
