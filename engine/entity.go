package engine

import (
	"shadow-engine/materials"
	"shadow-engine/queue"
	"shadow-engine/renderer"
	"shadow-engine/scene"
	"shadow-engine/shadow"
)

// Entity is a mesh placed in the scene by a node and drawn with a material.
type Entity struct {
	name     string
	Node     *scene.Node
	Mesh     *scene.Mesh
	material *materials.Material

	// Group and Priority place the entity in the render queue.
	Group    uint8
	Priority uint16

	CastShadows    bool
	ReceiveShadows bool

	caster *shadow.MeshCaster
	lights []*scene.Light
}

var _ queue.Renderable = (*Entity)(nil)

func newEntity(name string, node *scene.Node, mesh *scene.Mesh, mat *materials.Material) *Entity {
	return &Entity{
		name:           name,
		Node:           node,
		Mesh:           mesh,
		material:       mat,
		Group:          queue.GroupMain,
		Priority:       queue.DefaultPriority,
		CastShadows:    true,
		ReceiveShadows: true,
		caster:         shadow.NewMeshCaster(name, mesh, node.GetWorldMatrix()),
	}
}

func (e *Entity) Name() string { return e.name }

func (e *Entity) Material() *materials.Material { return e.material }

// SetMaterial changes the material used from the next queue build on.
func (e *Entity) SetMaterial(m *materials.Material) { e.material = m }

func (e *Entity) RenderOperation() renderer.RenderOperation {
	return renderer.RenderOperation{Mesh: e.Mesh, World: e.Node.GetWorldMatrix()}
}

func (e *Entity) WorldBoundingBox() scene.AABB {
	if e.Mesh == nil {
		return scene.EmptyAABB()
	}
	return e.Mesh.WorldAABB(e.Node.GetWorldMatrix())
}

// Lights returns the lights found for the entity by the last queue build,
// nearest first.
func (e *Entity) Lights() []*scene.Light { return e.lights }

func (e *Entity) CastsShadows() bool { return e.CastShadows }

// ReceivesShadows also honours the material's receive flag.
func (e *Entity) ReceivesShadows() bool {
	return e.ReceiveShadows && (e.material == nil || e.material.ReceiveShadows)
}

// Caster returns the entity's shadow caster, placed at the node's current
// world transform.
func (e *Entity) Caster() *shadow.MeshCaster {
	e.caster.Mesh = e.Mesh
	e.caster.World = e.Node.GetWorldMatrix()
	return e.caster
}

func (e *Entity) drawable() bool {
	return e.Node.Visible && e.Mesh != nil && e.material != nil && len(e.material.Techniques) > 0
}
