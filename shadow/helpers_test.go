package shadow

import (
	"testing"

	"github.com/stretchr/testify/require"

	"shadow-engine/core"
	"shadow-engine/internal/headless"
	"shadow-engine/materials"
	"shadow-engine/math"
	"shadow-engine/queue"
	"shadow-engine/renderer"
	"shadow-engine/scene"
)

type testHost struct {
	casters  map[*scene.Light][]Caster
	bounds   map[*scene.Camera]scene.AABB
	rendered []*renderer.Viewport
	onRender func(vp *renderer.Viewport)
}

func newTestHost() *testHost {
	return &testHost{
		casters: make(map[*scene.Light][]Caster),
		bounds:  make(map[*scene.Camera]scene.AABB),
	}
}

func (h *testHost) RenderViewport(vp *renderer.Viewport) {
	h.rendered = append(h.rendered, vp)
	if h.onRender != nil {
		h.onRender(vp)
	}
}

func (h *testHost) FindShadowCasters(light *scene.Light, _ *scene.Camera) []Caster {
	return h.casters[light]
}

func (h *testHost) VisibleBounds(cam *scene.Camera) scene.AABB {
	if b, ok := h.bounds[cam]; ok {
		return b
	}
	return scene.EmptyAABB()
}

type testRenderable struct {
	name     string
	mat      *materials.Material
	mesh     *scene.Mesh
	lights   []*scene.Light
	casts    bool
	receives bool
}

func newTestRenderable(name string, mat *materials.Material, lights ...*scene.Light) *testRenderable {
	return &testRenderable{
		name:     name,
		mat:      mat,
		mesh:     scene.CreateCube(1),
		lights:   lights,
		casts:    true,
		receives: true,
	}
}

func (t *testRenderable) Name() string                  { return t.name }
func (t *testRenderable) Material() *materials.Material { return t.mat }
func (t *testRenderable) WorldBoundingBox() scene.AABB  { return t.mesh.LocalAABB }
func (t *testRenderable) Lights() []*scene.Light        { return t.lights }
func (t *testRenderable) CastsShadows() bool            { return t.casts }
func (t *testRenderable) ReceivesShadows() bool         { return t.receives }

func (t *testRenderable) RenderOperation() renderer.RenderOperation {
	return renderer.RenderOperation{Mesh: t.mesh, World: math.Mat4Identity()}
}

// testMaterial returns a one-pass material whose pass is named like it.
func testMaterial(name string) *materials.Material {
	m := materials.NewMaterial(name)
	m.FirstPass().Name = name
	return m
}

func testColourMaterial(name string, c core.Color) *materials.Material {
	m := materials.NewColourMaterial(name, c)
	m.FirstPass().Name = name
	return m
}

func newTestRenderer(t *testing.T, caps renderer.Capabilities) (*Renderer, *headless.RenderSystem, *testHost) {
	t.Helper()
	rs := headless.New(caps)
	host := newTestHost()
	r := NewRenderer("test", rs, host, nil)
	require.NotNil(t, r)
	return r, rs, host
}

// testFrame returns a frame looking down -Z from z = 10.
func testFrame(lights ...*scene.Light) Frame {
	cam := scene.NewCamera("main")
	cam.Position = math.Vec3{X: 0, Y: 0, Z: 10}
	vp := renderer.NewViewport(cam, nil, 800, 600)
	return Frame{Camera: cam, Viewport: vp, Lights: lights}
}

// splitGroup queues renderables the way a scene manager does for technique t.
func splitGroup(t Technique, rends ...*testRenderable) *queue.Group {
	q := queue.NewQueue()
	q.SplitPassesByLighting = t.IsAdditive()
	q.SplitNoShadow = t != None
	g := q.Group(queue.GroupMain)
	for _, r := range rends {
		g.Add(r, r.mat.BestTechnique(materials.DefaultScheme), queue.DefaultPriority)
	}
	return g
}

func pointLight(name string, pos math.Vec3) *scene.Light {
	l := scene.NewLight(name, scene.LightPoint)
	l.Position = pos
	l.Range = 50
	return l
}

func fullCaps() renderer.Capabilities { return headless.FullCapabilities() }
