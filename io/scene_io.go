package io

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"shadow-engine/core"
	"shadow-engine/engine"
	"shadow-engine/materials"
	"shadow-engine/math"
	"shadow-engine/scene"
)

// SceneFile is the top-level structure of a .scene.toml file.
type SceneFile struct {
	Version string          `toml:"version"`
	Name    string          `toml:"name"`
	Ambient [4]float32      `toml:"ambient"`
	Shadows *ShadowSettings `toml:"shadows,omitempty"`
	Camera  CameraData      `toml:"camera"`
	Lights  []LightData     `toml:"lights"`
	Objects []ObjectData    `toml:"objects"`
}

// CameraData stores camera state. Angles are in degrees.
type CameraData struct {
	Position [3]float32 `toml:"position"`
	Target   [3]float32 `toml:"target"`
	FOV      float32    `toml:"fov"`
	Near     float32    `toml:"near"`
	Far      float32    `toml:"far"`
}

// LightData stores light state. Angles are in degrees.
type LightData struct {
	Name              string     `toml:"name"`
	Type              string     `toml:"type"` // "directional", "point", "spot"
	Position          [3]float32 `toml:"position"`
	Direction         [3]float32 `toml:"direction"`
	Colour            [4]float32 `toml:"colour"`
	Range             float32    `toml:"range,omitempty"`
	SpotInner         float32    `toml:"spot_inner,omitempty"`
	SpotOuter         float32    `toml:"spot_outer,omitempty"`
	CastShadows       *bool      `toml:"cast_shadows,omitempty"`
	ShadowFarDistance float32    `toml:"shadow_far_distance,omitempty"`
}

// ObjectData stores a scene object and its children.
type ObjectData struct {
	Name     string     `toml:"name"`
	Position [3]float32 `toml:"position"`
	Rotation [4]float32 `toml:"rotation"` // quaternion (x, y, z, w)
	Scale    [3]float32 `toml:"scale"`
	Hidden   bool       `toml:"hidden,omitempty"`

	// Mesh is "cube", "sphere", "obj", "gltf", or empty for a group node.
	Mesh     string     `toml:"mesh,omitempty"`
	MeshFile string     `toml:"mesh_file,omitempty"`
	Size     float32    `toml:"size,omitempty"`
	Colour   [4]float32 `toml:"colour"`

	CastShadows    *bool `toml:"cast_shadows,omitempty"`
	ReceiveShadows *bool `toml:"receive_shadows,omitempty"`

	Children []ObjectData `toml:"children,omitempty"`
}

// SaveScene writes a scene file as TOML.
func SaveScene(path string, sf *SceneFile) error {
	data, err := toml.Marshal(sf)
	if err != nil {
		return fmt.Errorf("failed to marshal scene: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// LoadScene reads a TOML scene file.
func LoadScene(path string) (*SceneFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scene file: %w", err)
	}

	sf := &SceneFile{}
	if err := toml.Unmarshal(data, sf); err != nil {
		return nil, fmt.Errorf("failed to parse scene file: %w", err)
	}
	if sf.Shadows != nil {
		if err := sf.Shadows.Validate(); err != nil {
			return nil, fmt.Errorf("failed to parse scene file: %w", err)
		}
	}
	return sf, nil
}

// NewDefaultSceneFile returns a floor and a crate under one sun.
func NewDefaultSceneFile(name string) *SceneFile {
	return &SceneFile{
		Version: "1.0",
		Name:    name,
		Ambient: [4]float32{0.2, 0.2, 0.2, 1},
		Camera: CameraData{
			Position: [3]float32{0, 4, 10},
			FOV:      45,
			Near:     0.1,
			Far:      1000,
		},
		Lights: []LightData{
			{
				Name:      "sun",
				Type:      "directional",
				Direction: [3]float32{0.5, -1, -0.5},
				Colour:    [4]float32{1, 1, 1, 1},
			},
		},
		Objects: []ObjectData{
			{
				Name:        "floor",
				Position:    [3]float32{0, -0.5, 0},
				Rotation:    [4]float32{0, 0, 0, 1},
				Scale:       [3]float32{20, 0.1, 20},
				Mesh:        "cube",
				Size:        1,
				Colour:      [4]float32{0.8, 0.8, 0.8, 1},
				CastShadows: ptr(false),
			},
			{
				Name:     "crate",
				Position: [3]float32{0, 0.5, 0},
				Rotation: [4]float32{0, 0, 0, 1},
				Scale:    [3]float32{1, 1, 1},
				Mesh:     "cube",
				Size:     1,
				Colour:   [4]float32{0.7, 0.5, 0.3, 1},
			},
		},
	}
}

func ptr[T any](v T) *T { return &v }

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

// Build populates sm from the scene file and returns its camera. Relative
// mesh files are resolved against dir. Embedded shadow settings are applied
// to the scene's shadow renderer.
func (sf *SceneFile) Build(sm *engine.SceneManager, dir string) (*scene.Camera, error) {
	if sf.Shadows != nil {
		if err := sf.Shadows.Apply(sm.Shadows()); err != nil {
			return nil, err
		}
	}
	sm.Ambient = ArrayToColor(sf.Ambient)

	cam := scene.NewCamera(sf.Name + "/Camera")
	if sf.Camera.FOV > 0 {
		cam.FOVy = math.Radians(sf.Camera.FOV)
	}
	if sf.Camera.Near > 0 {
		cam.Near = sf.Camera.Near
	}
	cam.Far = max(sf.Camera.Far, 0)
	cam.Position = ArrayToVec3(sf.Camera.Position)
	cam.LookAt(ArrayToVec3(sf.Camera.Target))

	for i, ld := range sf.Lights {
		l, err := ld.light(i)
		if err != nil {
			return nil, err
		}
		sm.AddLight(l)
	}
	for _, od := range sf.Objects {
		if err := od.build(sm, sm.Root, dir); err != nil {
			return nil, err
		}
	}
	core.Logger().Info("io: scene built", "name", sf.Name, "lights", len(sf.Lights), "entities", len(sm.Entities()))
	return cam, nil
}

func parseLightType(s string) (scene.LightType, error) {
	for t := scene.LightType(0); t < scene.LightType(scene.LightTypeCount); t++ {
		if t.String() == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown light type %q", s)
}

func (ld LightData) light(i int) (*scene.Light, error) {
	t, err := parseLightType(ld.Type)
	if err != nil {
		return nil, fmt.Errorf("failed to build light %d: %w", i, err)
	}
	name := ld.Name
	if name == "" {
		name = fmt.Sprintf("light%d", i)
	}
	l := scene.NewLight(name, t)
	l.Position = ArrayToVec3(ld.Position)
	if dir := ArrayToVec3(ld.Direction); dir.LengthSqr() > 0 {
		l.Direction = dir
	}
	if ld.Colour != [4]float32{} {
		l.Diffuse = ArrayToColor(ld.Colour)
	}
	if ld.Range > 0 {
		l.Range = ld.Range
	}
	if ld.SpotInner > 0 {
		l.SpotInner = math.Radians(ld.SpotInner)
	}
	if ld.SpotOuter > 0 {
		l.SpotOuter = math.Radians(ld.SpotOuter)
	}
	l.CastShadows = boolOr(ld.CastShadows, true)
	l.ShadowFarDistance = ld.ShadowFarDistance
	return l, nil
}

func (od ObjectData) place(n *scene.Node) {
	n.Visible = !od.Hidden
	n.SetPosition(ArrayToVec3(od.Position))
	if od.Rotation != [4]float32{} {
		n.SetRotation(ArrayToQuat(od.Rotation))
	}
	if od.Scale != [3]float32{} {
		n.SetScale(ArrayToVec3(od.Scale))
	}
}

func (od ObjectData) material() *materials.Material {
	c := core.ColorWhite
	if od.Colour != [4]float32{} {
		c = ArrayToColor(od.Colour)
	}
	return materials.NewColourMaterial(od.Name, c)
}

func (od ObjectData) entity(e *engine.Entity) {
	e.CastShadows = boolOr(od.CastShadows, true)
	e.ReceiveShadows = boolOr(od.ReceiveShadows, true)
}

// build creates the object's node under parent, its entities, and then its
// children.
func (od ObjectData) build(sm *engine.SceneManager, parent *scene.Node, dir string) error {
	node := scene.NewNode(od.Name)
	od.place(node)
	parent.AddChild(node)

	size := od.Size
	if size <= 0 {
		size = 1
	}
	file := od.MeshFile
	if file != "" && !filepath.IsAbs(file) {
		file = filepath.Join(dir, file)
	}

	switch od.Mesh {
	case "":
	case "cube":
		node.Mesh = scene.CreateCube(size)
		od.entity(sm.AttachEntity(od.Name, node, od.material()))
	case "sphere":
		node.Mesh = scene.CreateSphere(size/2, 24, 16)
		od.entity(sm.AttachEntity(od.Name, node, od.material()))
	case "obj":
		data, err := LoadOBJ(file)
		if err != nil {
			return fmt.Errorf("failed to build object %q: %w", od.Name, err)
		}
		for _, m := range data.Meshes {
			child := scene.NewNode(od.Name + "/" + m.Name)
			child.Mesh = m
			node.AddChild(child)
			mat, ok := data.Materials[m.MaterialName]
			if !ok {
				mat = od.material()
			}
			od.entity(sm.AttachEntity(child.Name, child, mat))
		}
	case "gltf":
		model, err := scene.LoadGLTF(file)
		if err != nil {
			return fmt.Errorf("failed to build object %q: %w", od.Name, err)
		}
		for _, e := range sm.AddGLTF(model) {
			od.entity(e)
		}
		for _, root := range model.Roots {
			node.AddChild(root)
		}
	default:
		return fmt.Errorf("failed to build object %q: unknown mesh %q", od.Name, od.Mesh)
	}

	for _, c := range od.Children {
		if err := c.build(sm, node, dir); err != nil {
			return err
		}
	}
	return nil
}

// --- Helper conversions ---

// Vec3ToArray converts a Vec3 to a [3]float32
func Vec3ToArray(v math.Vec3) [3]float32 {
	return [3]float32{v.X, v.Y, v.Z}
}

// ArrayToVec3 converts a [3]float32 to Vec3
func ArrayToVec3(a [3]float32) math.Vec3 {
	return math.Vec3{X: a[0], Y: a[1], Z: a[2]}
}

// ColorToArray converts a Color to [4]float32
func ColorToArray(c core.Color) [4]float32 {
	return [4]float32{c.R, c.G, c.B, c.A}
}

// ArrayToColor converts [4]float32 to Color
func ArrayToColor(a [4]float32) core.Color {
	return core.Color{R: a[0], G: a[1], B: a[2], A: a[3]}
}

// ArrayToQuat converts [4]float32 to Quaternion
func ArrayToQuat(a [4]float32) math.Quaternion {
	return math.Quaternion{X: a[0], Y: a[1], Z: a[2], W: a[3]}
}
