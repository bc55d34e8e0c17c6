package shadow

import (
	"fmt"

	"shadow-engine/core"
	"shadow-engine/materials"
	"shadow-engine/math"
	"shadow-engine/renderer"
	"shadow-engine/scene"
)

// Host is the scene manager a Renderer works for.
type Host interface {
	// RenderViewport renders the scene into a shadow texture viewport.
	renderer.ViewportSource
	// FindShadowCasters returns the casters whose shadows from light may be
	// visible to cam.
	FindShadowCasters(light *scene.Light, cam *scene.Camera) []Caster
	// VisibleBounds returns the bounds of everything cam rendered last.
	VisibleBounds(cam *scene.Camera) scene.AABB
}

// Frame is the state of the viewport render a queue group belongs to.
type Frame struct {
	Camera   *scene.Camera
	Viewport *renderer.Viewport
	// Lights affect the camera, shadow casters first.
	Lights  []*scene.Light
	Ambient core.Color
}

// Default settings.
const (
	DefaultDirectionalTextureOffset = 0.6
	DefaultTextureFadeStart         = 0.7
	DefaultTextureFadeEnd           = 0.9
	DefaultExtrusionDistance        = 10000
	DefaultIndexBufferSize          = 51200
)

// DefaultColour is the default shadow colour.
var DefaultColour = core.Gray(0.25)

// Renderer renders the queue groups of one scene manager with shadows.
type Renderer struct {
	name     string
	rs       renderer.RenderSystem
	host     Host
	textures *TextureManager

	technique        Technique
	colour           core.Color
	casterMaterial   *materials.Material
	receiverMaterial *materials.Material
	resolver         TechniqueResolver
	deriver          *PassDeriver

	configs        []TextureConfig
	dirty          bool
	slots          []textureSlot
	camLight       map[*scene.Camera]*scene.Light
	indexLightList []int
	countPerType   [scene.LightTypeCount]int

	defaultSetup CameraSetup
	lightSetups  map[*scene.Light]CameraSetup

	farDistance       float32
	dirTextureOffset  float32
	fadeStart         float32
	fadeEnd           float32
	dirExtrudeDist    float32
	indexBufferSize   int
	indexBuffer       *renderer.IndexBuffer
	infiniteFarPlane  bool
	additiveLightClip bool
	debug             bool

	stage     IlluminationStage
	listeners []Listener

	stencilPass    *materials.Pass
	debugPass      *materials.Pass
	modulativePass *materials.Pass
	fullScreenQuad *scene.Mesh

	// receiverBase is the receiver template bound while receivers render.
	receiverBase *materials.Pass
	receiverFog  materials.FogOverride
}

// NewRenderer returns a renderer with shadows off. A nil texture manager
// gives the renderer textures of its own.
func NewRenderer(name string, rs renderer.RenderSystem, host Host, textures *TextureManager) *Renderer {
	if textures == nil {
		textures = NewTextureManager(rs)
	}
	r := &Renderer{
		name:             name,
		rs:               rs,
		host:             host,
		textures:         textures,
		colour:           DefaultColour,
		configs:          []TextureConfig{DefaultTextureConfig()},
		dirty:            true,
		camLight:         make(map[*scene.Camera]*scene.Light),
		countPerType:     [scene.LightTypeCount]int{1, 1, 1},
		defaultSetup:     DefaultCameraSetup{},
		lightSetups:      make(map[*scene.Light]CameraSetup),
		dirTextureOffset: DefaultDirectionalTextureOffset,
		fadeStart:        DefaultTextureFadeStart,
		fadeEnd:          DefaultTextureFadeEnd,
		dirExtrudeDist:   DefaultExtrusionDistance,
		indexBufferSize:  DefaultIndexBufferSize,
		infiniteFarPlane: true,
	}

	r.stencilPass = materials.NewPass("shadow/Stencil")
	r.stencilPass.Lighting = false
	r.stencilPass.DepthWrite = false
	r.stencilPass.ColourWrite = false
	r.stencilPass.Fog = materials.FogOverride{Override: true, Mode: materials.FogNone}

	r.debugPass = materials.NewPass("shadow/Debug")
	r.debugPass.Lighting = false
	r.debugPass.SetSceneBlending(materials.BlendOne, materials.BlendOne)
	r.debugPass.DepthWrite = false
	r.debugPass.Culling = materials.CullNone
	r.debugPass.Fog = materials.FogOverride{Override: true, Mode: materials.FogNone}

	r.modulativePass = materials.NewPass("shadow/Modulate")
	r.modulativePass.Lighting = false
	r.modulativePass.SetSceneBlending(materials.BlendDestColour, materials.BlendZero)
	r.modulativePass.DepthCheck = false
	r.modulativePass.DepthWrite = false
	r.modulativePass.Culling = materials.CullNone
	r.modulativePass.Fog = materials.FogOverride{Override: true, Mode: materials.FogNone}
	r.setPassColours()

	r.fullScreenQuad = scene.CreateMeshFromData("shadow/FullScreenQuad", []core.Vertex{
		{Position: math.Vec3{X: -1, Y: -1}, UV: math.Vec2{X: 0, Y: 0}},
		{Position: math.Vec3{X: 1, Y: -1}, UV: math.Vec2{X: 1, Y: 0}},
		{Position: math.Vec3{X: 1, Y: 1}, UV: math.Vec2{X: 1, Y: 1}},
		{Position: math.Vec3{X: -1, Y: 1}, UV: math.Vec2{X: 0, Y: 1}},
	}, []uint32{0, 1, 2, 0, 2, 3})

	r.rebuildDeriver()
	return r
}

func (r *Renderer) Name() string { return r.name }

func (r *Renderer) Technique() Technique { return r.technique }

// SetTechnique switches the shadow technique. Stencil techniques fall back
// to None on devices without a stencil buffer.
func (r *Renderer) SetTechnique(t Technique) error {
	if !t.Valid() {
		return fmt.Errorf("%w: %#x", ErrInvalidTechnique, uint8(t))
	}
	if t.IsStencil() && !r.rs.Capabilities().HWStencil {
		core.Logger().Warn("shadow: stencil shadows disabled", "renderer", r.name, "technique", t, "err", renderer.ErrNoStencil)
		t = None
	}
	if t.IsStencil() {
		if err := r.ensureIndexBuffer(); err != nil {
			return err
		}
	}
	r.technique = t

	if t.IsTexture() {
		for _, s := range r.slots {
			s.cam.SetCustomViewMatrix(false, math.Mat4{})
			s.cam.SetCustomProjectionMatrix(false, math.Mat4{})
		}
	} else {
		r.destroyTextures()
	}
	r.rebuildDeriver()
	return nil
}

func (r *Renderer) ensureIndexBuffer() error {
	if r.indexBuffer != nil && r.indexBuffer.Capacity() >= r.indexBufferSize {
		return nil
	}
	ib, err := r.rs.CreateIndexBuffer(r.indexBufferSize)
	if err != nil {
		return fmt.Errorf("failed to create shadow index buffer: %w", err)
	}
	r.indexBuffer = ib
	return nil
}

func (r *Renderer) rebuildDeriver() {
	d := NewPassDeriver(r.technique, r.colour)
	d.CustomCaster = r.casterMaterial.FirstPass()
	d.CustomReceiver = r.receiverMaterial.FirstPass()
	d.Resolve = r.resolver
	r.deriver = d
}

func (r *Renderer) setPassColours() {
	r.modulativePass.Ambient = r.colour
	r.modulativePass.Diffuse = r.colour
	r.modulativePass.SelfIllumination = r.colour
}

func (r *Renderer) Colour() core.Color { return r.colour }

// SetColour sets the colour shadowed areas modulate to.
func (r *Renderer) SetColour(c core.Color) {
	r.colour = c
	r.setPassColours()
	r.deriver.Colour = c
}

// SetCasterMaterial replaces the pass used to render texture shadow
// casters. nil restores the plain black caster.
func (r *Renderer) SetCasterMaterial(m *materials.Material) {
	r.casterMaterial = m
	r.rebuildDeriver()
}

// SetReceiverMaterial replaces the pass used to render texture shadow
// receivers. nil restores the default receiver.
func (r *Renderer) SetReceiverMaterial(m *materials.Material) {
	r.receiverMaterial = m
	r.rebuildDeriver()
}

func (r *Renderer) SetTechniqueResolver(fn TechniqueResolver) {
	r.resolver = fn
	r.deriver.Resolve = fn
}

// SetFarDistance limits how far from the camera texture shadows reach.
// Zero derives it from the camera's near clip.
func (r *Renderer) SetFarDistance(d float32) { r.farDistance = max(d, 0) }
func (r *Renderer) FarDistance() float32     { return r.farDistance }

func (r *Renderer) SetDirectionalTextureOffset(f float32) { r.dirTextureOffset = f }
func (r *Renderer) DirectionalTextureOffset() float32     { return r.dirTextureOffset }

func (r *Renderer) SetTextureFadeStart(f float32) { r.fadeStart = f }
func (r *Renderer) SetTextureFadeEnd(f float32)   { r.fadeEnd = f }

// SetDirectionalExtrusionDistance sets how far stencil volumes are extruded
// when they cannot reach infinity.
func (r *Renderer) SetDirectionalExtrusionDistance(d float32) { r.dirExtrudeDist = d }
func (r *Renderer) DirectionalExtrusionDistance() float32     { return r.dirExtrudeDist }

// SetIndexBufferSize sets the initial size of the shared volume index
// buffer. An existing buffer is reallocated.
func (r *Renderer) SetIndexBufferSize(n int) error {
	if n == r.indexBufferSize {
		return nil
	}
	r.indexBufferSize = n
	if r.indexBuffer == nil {
		return nil
	}
	r.indexBuffer = nil
	return r.ensureIndexBuffer()
}

// SetUseInfiniteFarPlane lets stencil volumes extrude to infinity when the
// device supports infinite projections.
func (r *Renderer) SetUseInfiniteFarPlane(b bool) { r.infiniteFarPlane = b }

// SetAdditiveLightClip enables user clip planes around each light in
// additive modes.
func (r *Renderer) SetAdditiveLightClip(b bool) { r.additiveLightClip = b }

// SetShowDebugShadows draws stencil volumes over the scene.
func (r *Renderer) SetShowDebugShadows(b bool) { r.debug = b }

// SetDefaultCameraSetup replaces the setup used for lights without one of
// their own. nil restores DefaultCameraSetup.
func (r *Renderer) SetDefaultCameraSetup(s CameraSetup) {
	if s == nil {
		s = DefaultCameraSetup{}
	}
	r.defaultSetup = s
}

// SetLightCameraSetup gives light its own camera setup; nil clears it.
func (r *Renderer) SetLightCameraSetup(light *scene.Light, s CameraSetup) {
	if s == nil {
		delete(r.lightSetups, light)
		return
	}
	r.lightSetups[light] = s
}

func (r *Renderer) cameraSetup(light *scene.Light) CameraSetup {
	if s, ok := r.lightSetups[light]; ok {
		return s
	}
	return r.defaultSetup
}

// CasterBounds returns the bounds of what the iteration-th shadow camera of
// light saw when it last rendered.
func (r *Renderer) CasterBounds(light *scene.Light, iteration int) scene.AABB {
	n := 0
	for _, s := range r.slots {
		if r.camLight[s.cam] != light {
			continue
		}
		if n == iteration {
			return r.host.VisibleBounds(s.cam)
		}
		n++
	}
	return scene.EmptyAABB()
}

// CasterLight returns the light a shadow camera renders for, or nil.
func (r *Renderer) CasterLight(cam *scene.Camera) *scene.Light {
	return r.camLight[cam]
}

// IndexLightList returns the first slot of each light served by the last
// PrepareShadowTextures call.
func (r *Renderer) IndexLightList() []int {
	return append([]int(nil), r.indexLightList...)
}
