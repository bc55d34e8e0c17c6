package scene

import (
	"fmt"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"shadow-engine/core"
	"shadow-engine/math"
)

// GLTFMaterial is the subset of a glTF material that matters for shadows.
type GLTFMaterial struct {
	Name        string
	BaseColor   core.Color
	AlphaMode   string // "OPAQUE", "MASK" or "BLEND"
	AlphaCutoff float32
	DoubleSided bool
}

// GLTFResult holds the nodes and materials loaded from a .glb / .gltf file.
type GLTFResult struct {
	Roots     []*Node // top-level nodes
	Materials []GLTFMaterial
}

// Meshes returns every mesh-carrying node under the roots.
func (r *GLTFResult) Meshes() []*Node {
	var out []*Node
	for _, root := range r.Roots {
		root.Traverse(func(n *Node) {
			if n.Mesh != nil {
				out = append(out, n)
			}
		})
	}
	return out
}

// LoadGLTF opens a .glb or .gltf file and returns its node hierarchy with
// triangle meshes attached. Textures are not loaded.
func LoadGLTF(path string) (*GLTFResult, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gltf open %q: %w", path, err)
	}
	return buildGLTF(doc)
}

func buildGLTF(doc *gltf.Document) (*GLTFResult, error) {
	result := &GLTFResult{}
	log := core.Logger()

	// ── 1. Materials ─────────────────────────────────────────────────────────
	for i, gm := range doc.Materials {
		m := GLTFMaterial{
			Name:        gm.Name,
			BaseColor:   core.ColorWhite,
			AlphaMode:   "OPAQUE",
			AlphaCutoff: float32(gm.AlphaCutoffOrDefault()),
			DoubleSided: gm.DoubleSided,
		}
		if m.Name == "" {
			m.Name = fmt.Sprintf("gltf_mat_%d", i)
		}
		switch gm.AlphaMode {
		case gltf.AlphaMask:
			m.AlphaMode = "MASK"
		case gltf.AlphaBlend:
			m.AlphaMode = "BLEND"
		}
		if pbr := gm.PBRMetallicRoughness; pbr != nil {
			cf := pbr.BaseColorFactorOrDefault()
			m.BaseColor = core.Color{
				R: float32(cf[0]), G: float32(cf[1]),
				B: float32(cf[2]), A: float32(cf[3]),
			}
		}
		result.Materials = append(result.Materials, m)
	}

	// ── 2. Mesh primitives ────────────────────────────────────────────────────
	meshPrims := make([][]*Mesh, len(doc.Meshes))
	for mi, gm := range doc.Meshes {
		for pi, prim := range gm.Primitives {
			if prim.Mode != gltf.PrimitiveTriangles {
				log.Debug("gltf: skipping non-triangle primitive", "mesh", mi, "prim", pi)
				continue
			}
			m, err := loadGLTFPrimitive(doc, gm.Name, pi, *prim)
			if err != nil {
				log.Debug("gltf: primitive skipped", "mesh", mi, "prim", pi, "err", err)
				continue
			}
			if prim.Material != nil && *prim.Material < len(result.Materials) {
				m.MaterialName = result.Materials[*prim.Material].Name
			}
			meshPrims[mi] = append(meshPrims[mi], m)
		}
	}

	// ── 3. Nodes ──────────────────────────────────────────────────────────────
	nodes := make([]*Node, len(doc.Nodes))
	for i, gn := range doc.Nodes {
		name := gn.Name
		if name == "" {
			name = fmt.Sprintf("node_%d", i)
		}
		n := NewNode(name)

		t := gn.TranslationOrDefault()
		n.SetPosition(math.Vec3{X: float32(t[0]), Y: float32(t[1]), Z: float32(t[2])})

		sc := gn.ScaleOrDefault()
		n.SetScale(math.Vec3{X: float32(sc[0]), Y: float32(sc[1]), Z: float32(sc[2])})

		r := gn.RotationOrDefault() // [x, y, z, w]
		n.SetRotation(math.Quaternion{
			X: float32(r[0]), Y: float32(r[1]),
			Z: float32(r[2]), W: float32(r[3]),
		})

		if gn.Mesh != nil && *gn.Mesh < len(meshPrims) {
			prims := meshPrims[*gn.Mesh]
			switch len(prims) {
			case 0:
			case 1:
				n.Mesh = prims[0]
			default:
				for pi, p := range prims {
					child := NewNode(fmt.Sprintf("%s_prim%d", name, pi))
					child.Mesh = p
					n.AddChild(child)
				}
			}
		}
		nodes[i] = n
	}

	for i, gn := range doc.Nodes {
		for _, childIdx := range gn.Children {
			if childIdx < len(nodes) {
				nodes[i].AddChild(nodes[childIdx])
			}
		}
	}

	// ── 4. Root nodes ─────────────────────────────────────────────────────────
	if doc.Scene != nil && *doc.Scene < len(doc.Scenes) {
		for _, rootIdx := range doc.Scenes[*doc.Scene].Nodes {
			if rootIdx < len(nodes) {
				result.Roots = append(result.Roots, nodes[rootIdx])
			}
		}
	} else {
		for _, n := range nodes {
			if n.Parent == nil {
				result.Roots = append(result.Roots, n)
			}
		}
	}

	if len(result.Meshes()) == 0 {
		return nil, fmt.Errorf("gltf: no triangle meshes")
	}
	return result, nil
}

// loadGLTFPrimitive converts one glTF mesh primitive into a scene.Mesh.
func loadGLTFPrimitive(doc *gltf.Document, meshName string, primIdx int, prim gltf.Primitive) (*Mesh, error) {
	name := fmt.Sprintf("%s_p%d", meshName, primIdx)
	if meshName == "" {
		name = fmt.Sprintf("prim_%d", primIdx)
	}

	posIdx, ok := prim.Attributes[gltf.POSITION]
	if !ok {
		return nil, fmt.Errorf("no POSITION attribute")
	}
	positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
	if err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}

	var normals [][3]float32
	var uvs [][2]float32
	if idx, ok := prim.Attributes[gltf.NORMAL]; ok {
		normals, _ = modeler.ReadNormal(doc, doc.Accessors[idx], nil)
	}
	if idx, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
		uvs, _ = modeler.ReadTextureCoord(doc, doc.Accessors[idx], nil)
	}

	verts := make([]core.Vertex, len(positions))
	for i, p := range positions {
		v := core.Vertex{
			Position: math.Vec3{X: p[0], Y: p[1], Z: p[2]},
			Normal:   math.Vec3Up,
			Color:    core.ColorWhite,
		}
		if i < len(normals) {
			n := normals[i]
			v.Normal = math.Vec3{X: n[0], Y: n[1], Z: n[2]}
		}
		if i < len(uvs) {
			v.UV = math.Vec2{X: uvs[i][0], Y: uvs[i][1]}
		}
		verts[i] = v
	}

	var indices []uint32
	if prim.Indices != nil {
		indices, err = modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil)
		if err != nil {
			return nil, fmt.Errorf("indices: %w", err)
		}
	}

	return CreateMeshFromData(name, verts, indices), nil
}
