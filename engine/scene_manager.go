// Package engine holds a minimal scene manager: entities and lights placed
// in a node graph, queued per viewport and rendered through the shadow
// renderer.
package engine

import (
	"cmp"
	"fmt"
	"slices"

	"shadow-engine/core"
	"shadow-engine/materials"
	"shadow-engine/queue"
	"shadow-engine/renderer"
	"shadow-engine/scene"
	"shadow-engine/shadow"
)

// SceneManager owns the scene graph and renders it into viewports.
type SceneManager struct {
	Root    *scene.Node
	Ambient core.Color

	rs       renderer.RenderSystem
	shadows  *shadow.Renderer
	entities []*Entity
	lights   []*scene.Light
	queue    *queue.Queue
	visible  map[*scene.Camera]scene.AABB
}

var (
	_ shadow.Host             = (*SceneManager)(nil)
	_ renderer.ViewportSource = (*SceneManager)(nil)
)

// NewSceneManager returns an empty scene rendered on rs. Shadow textures
// come from textures, which may be shared between scene managers; nil
// gives the scene its own.
func NewSceneManager(name string, rs renderer.RenderSystem, textures *shadow.TextureManager) *SceneManager {
	sm := &SceneManager{
		Root:    scene.NewNode(name + "/Root"),
		Ambient: core.Gray(0.2),
		rs:      rs,
		queue:   queue.NewQueue(),
		visible: make(map[*scene.Camera]scene.AABB),
	}
	sm.shadows = shadow.NewRenderer(name, rs, sm, textures)
	return sm
}

// Shadows returns the scene's shadow renderer.
func (sm *SceneManager) Shadows() *shadow.Renderer { return sm.shadows }

// CreateEntity attaches mesh to a new child node of the root.
func (sm *SceneManager) CreateEntity(name string, mesh *scene.Mesh, mat *materials.Material) *Entity {
	node := scene.NewNode(name)
	node.Mesh = mesh
	sm.Root.AddChild(node)
	return sm.AttachEntity(name, node, mat)
}

// AttachEntity creates an entity for a node already in the graph, drawing
// the node's mesh.
func (sm *SceneManager) AttachEntity(name string, node *scene.Node, mat *materials.Material) *Entity {
	e := newEntity(name, node, node.Mesh, mat)
	sm.entities = append(sm.entities, e)
	return e
}

// DestroyEntity removes e and detaches its node.
func (sm *SceneManager) DestroyEntity(e *Entity) {
	i := slices.Index(sm.entities, e)
	if i < 0 {
		return
	}
	sm.entities = slices.Delete(sm.entities, i, i+1)
	if e.Node.Parent != nil {
		e.Node.Parent.RemoveChild(e.Node)
	}
}

func (sm *SceneManager) Entities() []*Entity { return sm.entities }

// Entity returns the entity named name, or nil.
func (sm *SceneManager) Entity(name string) *Entity {
	for _, e := range sm.entities {
		if e.name == name {
			return e
		}
	}
	return nil
}

// AddGLTF attaches the node hierarchy of a loaded model under the root and
// creates an entity per mesh node, with materials built from the model.
func (sm *SceneManager) AddGLTF(model *scene.GLTFResult) []*Entity {
	mats := make(map[string]*materials.Material, len(model.Materials))
	for _, gm := range model.Materials {
		mats[gm.Name] = materialFromGLTF(gm)
	}
	for _, root := range model.Roots {
		sm.Root.AddChild(root)
	}
	var out []*Entity
	for _, n := range model.Meshes() {
		mat, ok := mats[n.Mesh.MaterialName]
		if !ok {
			mat = materials.NewMaterial(fmt.Sprintf("%s/Default", n.Name))
		}
		out = append(out, sm.AttachEntity(n.Name, n, mat))
	}
	core.Logger().Info("engine: model added", "entities", len(out), "materials", len(mats))
	return out
}

func materialFromGLTF(gm scene.GLTFMaterial) *materials.Material {
	m := materials.NewColourMaterial(gm.Name, gm.BaseColor)
	p := m.FirstPass()
	switch gm.AlphaMode {
	case "MASK":
		p.AlphaRejectFunc = materials.CompareGreaterEqual
		p.AlphaRejectValue = uint8(min(max(gm.AlphaCutoff, 0), 1) * 255)
	case "BLEND":
		p.SetSceneBlending(materials.BlendSourceAlpha, materials.BlendOneMinusSourceAlpha)
		p.DepthWrite = false
	}
	if gm.DoubleSided {
		p.Culling = materials.CullNone
		p.ManualCulling = materials.ManualCullNone
	}
	return m
}

// AddLight adds l to the scene. Adding a light twice is a no-op.
func (sm *SceneManager) AddLight(l *scene.Light) {
	if !slices.Contains(sm.lights, l) {
		sm.lights = append(sm.lights, l)
	}
}

func (sm *SceneManager) RemoveLight(l *scene.Light) {
	if i := slices.Index(sm.lights, l); i >= 0 {
		sm.lights = slices.Delete(sm.lights, i, i+1)
	}
	sm.shadows.SetLightCameraSetup(l, nil)
}

func (sm *SceneManager) Lights() []*scene.Light { return sm.lights }

// LightsAffecting returns the lights that can reach cam's frustum sorted
// for shadow processing.
func (sm *SceneManager) LightsAffecting(cam *scene.Camera) []*scene.Light {
	var out []*scene.Light
	for _, l := range sm.lights {
		if l.Type == scene.LightDirectional || cam.IsVisibleSphere(l.BoundingSphere()) {
			out = append(out, l)
		}
	}
	shadow.SortLights(out, cam.Position)
	return out
}

// RenderViewport renders the scene from vp's camera, shadow textures first.
// Called for a shadow texture viewport it queues shadow casters only.
func (sm *SceneManager) RenderViewport(vp *renderer.Viewport) {
	cam := vp.Camera
	casterPass := sm.shadows.Stage() == shadow.StageRenderToTexture
	lights := sm.LightsAffecting(cam)

	if !casterPass && vp.ShadowsEnabled {
		if err := sm.shadows.PrepareShadowTextures(cam, vp, lights); err != nil {
			core.Logger().Error("engine: shadow textures skipped", "viewport", cam.Name, "err", err)
		}
	}

	sm.rs.SetRenderTarget(vp.Target)
	sm.rs.SetViewport(vp)
	if vp.ClearEveryFrame {
		sm.rs.ClearFrameBuffer(vp.ClearBuffers, vp.Background, 1, 0)
	}
	sm.rs.SetCamera(cam)
	sm.rs.SetAmbientLight(sm.Ambient)

	sm.buildQueue(cam, vp.MaterialScheme, lights, casterPass)

	frame := shadow.Frame{Camera: cam, Viewport: vp, Lights: lights, Ambient: sm.Ambient}
	for _, g := range sm.queue.Groups() {
		sm.shadows.Render(frame, g, queue.SortPassGroup)
	}
}

// buildQueue fills the queue with the entities cam can see and records
// their combined bounds.
func (sm *SceneManager) buildQueue(cam *scene.Camera, scheme string, lights []*scene.Light, casterPass bool) {
	tech := sm.shadows.Technique()
	sm.queue.Clear()
	sm.queue.SplitPassesByLighting = tech.IsAdditive() && !casterPass
	sm.queue.SplitNoShadow = tech != shadow.None && !casterPass

	bounds := scene.EmptyAABB()
	for _, e := range sm.entities {
		if !e.drawable() || (casterPass && !e.CastShadows) {
			continue
		}
		box := e.WorldBoundingBox()
		if !cam.IsVisible(box) {
			continue
		}
		e.lights = lightsReaching(nil, lights, box)
		sm.queue.Add(e, e.Group, e.Priority, e.material.BestTechnique(scheme))
		bounds = bounds.Merge(box)
	}
	sm.visible[cam] = bounds
}

// lightsReaching appends the lights of list that reach box to dst, nearest
// first.
func lightsReaching(dst, list []*scene.Light, box scene.AABB) []*scene.Light {
	for _, l := range list {
		if l.Type == scene.LightDirectional || sphereTouchesBox(l.BoundingSphere(), box) {
			dst = append(dst, l)
		}
	}
	centre := box.Center()
	slices.SortStableFunc(dst, func(a, b *scene.Light) int {
		return cmp.Compare(a.SquaredDistanceTo(centre), b.SquaredDistanceTo(centre))
	})
	return dst
}

func sphereTouchesBox(s scene.Sphere, box scene.AABB) bool {
	if box.IsEmpty() {
		return false
	}
	closest := s.Center.Max(box.Min).Min(box.Max)
	return closest.DistanceSqr(s.Center) <= s.Radius*s.Radius
}

// FindShadowCasters returns the casting entities in light's range whose
// bounds, or whose shadow extruded away from the light, cam can see.
func (sm *SceneManager) FindShadowCasters(light *scene.Light, cam *scene.Camera) []shadow.Caster {
	var out []shadow.Caster
	for _, e := range sm.entities {
		if !e.CastShadows || !e.drawable() {
			continue
		}
		c := e.Caster()
		box := c.WorldBoundingBox()
		if light.Type != scene.LightDirectional && !sphereTouchesBox(light.BoundingSphere(), box) {
			continue
		}
		if cam.IsVisible(box) {
			out = append(out, c)
			continue
		}
		dist := sm.shadows.DirectionalExtrusionDistance()
		if light.Type != scene.LightDirectional {
			dist = c.PointExtrusionDistance(light)
		}
		if cam.IsVisible(box.Merge(c.DarkCapBounds(light, dist))) {
			out = append(out, c)
		}
	}
	return out
}

// VisibleBounds returns the bounds of what cam rendered last, or an empty
// box for cameras that have not rendered.
func (sm *SceneManager) VisibleBounds(cam *scene.Camera) scene.AABB {
	if b, ok := sm.visible[cam]; ok {
		return b
	}
	return scene.EmptyAABB()
}
