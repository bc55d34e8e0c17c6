// Package headless implements a RenderSystem that draws nothing and records
// every call. Tests assert on the recording; the bench command counts it.
package headless

import (
	"fmt"
	"image"
	"image/color"
	"slices"

	"golang.org/x/image/draw"

	"shadow-engine/core"
	"shadow-engine/materials"
	"shadow-engine/renderer"
	"shadow-engine/scene"
)

// Op identifies a recorded device call.
type Op string

const (
	OpClear             Op = "clear"
	OpStencilCheck      Op = "stencil-check"
	OpStencilParams     Op = "stencil-params"
	OpDepthParams       Op = "depth-params"
	OpDepthFunction     Op = "depth-function"
	OpColourWrite       Op = "colour-write"
	OpCulling           Op = "culling"
	OpScissor           Op = "scissor"
	OpClipPlanes        Op = "clip-planes"
	OpBindProgram       Op = "bind-program"
	OpUnbindProgram     Op = "unbind-program"
	OpAmbient           Op = "ambient"
	OpSetPass           Op = "set-pass"
	OpSetLights         Op = "set-lights"
	OpSetCamera         Op = "set-camera"
	OpSetTarget         Op = "set-target"
	OpSetViewport       Op = "set-viewport"
	OpRender            Op = "render"
	OpCreateIndexBuffer Op = "create-index-buffer"
	OpCreateTexture     Op = "create-texture"
	OpDestroyTexture    Op = "destroy-texture"
)

// Command is one recorded call together with the device state it ran in.
type Command struct {
	Op Op

	// State at the time of the call.
	Pass           *materials.Pass
	Lights         []*scene.Light
	Camera         *scene.Camera
	Target         *renderer.RenderTexture
	Stencil        renderer.StencilParams
	StencilEnabled bool
	Culling        materials.CullingMode
	ColourWrite    bool
	DepthFunc      materials.CompareFunction
	Ambient        core.Color

	// Arguments.
	Buffers   renderer.FrameBufferType
	Enabled   bool
	Rect      core.Rect
	Planes    int
	Stage     renderer.ProgramStage
	Program   string
	Triangles int
	Name      string
}

// RenderSystem records calls instead of drawing.
type RenderSystem struct {
	caps     renderer.Capabilities
	commands []Command

	pass        *materials.Pass
	lights      []*scene.Light
	camera      *scene.Camera
	target      *renderer.RenderTexture
	stencil     renderer.StencilParams
	stencilOn   bool
	culling     materials.CullingMode
	colourWrite bool
	depthFunc   materials.CompareFunction
	ambient     core.Color

	failTextures bool
	live         map[*renderer.RenderTexture]bool
}

var _ renderer.RenderSystem = (*RenderSystem)(nil)

// Option configures a RenderSystem.
type Option func(*RenderSystem)

// WithTextureFailure makes every CreateRenderTexture call fail.
func WithTextureFailure() Option {
	return func(rs *RenderSystem) { rs.failTextures = true }
}

func New(caps renderer.Capabilities, opts ...Option) *RenderSystem {
	rs := &RenderSystem{
		caps:        caps,
		stencil:     renderer.DefaultStencilParams(),
		culling:     materials.CullClockwise,
		colourWrite: true,
		depthFunc:   materials.CompareLessEqual,
		live:        make(map[*renderer.RenderTexture]bool),
	}
	for _, o := range opts {
		o(rs)
	}
	return rs
}

// FullCapabilities reports every optional feature.
func FullCapabilities() renderer.Capabilities {
	return renderer.Capabilities{
		HWStencil:        true,
		TwoSidedStencil:  true,
		StencilWrap:      true,
		InfiniteFarPlane: true,
		VertexPrograms:   true,
		ScissorTest:      true,
		UserClipPlanes:   true,
		MaxTextureUnits:  8,
	}
}

func (rs *RenderSystem) record(c Command) {
	c.Pass = rs.pass
	c.Lights = rs.lights
	c.Camera = rs.camera
	c.Target = rs.target
	c.Stencil = rs.stencil
	c.StencilEnabled = rs.stencilOn
	c.Culling = rs.culling
	c.ColourWrite = rs.colourWrite
	c.DepthFunc = rs.depthFunc
	c.Ambient = rs.ambient
	rs.commands = append(rs.commands, c)
}

// Commands returns the recording.
func (rs *RenderSystem) Commands() []Command { return rs.commands }

// Reset drops the recording but keeps the device state.
func (rs *RenderSystem) Reset() { rs.commands = nil }

// Filter returns the recorded commands fn accepts.
func (rs *RenderSystem) Filter(fn func(Command) bool) []Command {
	var out []Command
	for _, c := range rs.commands {
		if fn(c) {
			out = append(out, c)
		}
	}
	return out
}

// Count returns how many times op was recorded.
func (rs *RenderSystem) Count(op Op) int {
	return len(rs.Filter(func(c Command) bool { return c.Op == op }))
}

// Renders returns the draw calls made with a pass named name.
func (rs *RenderSystem) Renders(name string) []Command {
	return rs.Filter(func(c Command) bool {
		return c.Op == OpRender && c.Pass != nil && c.Pass.Name == name
	})
}

// LiveTextures returns the number of render textures not yet destroyed.
func (rs *RenderSystem) LiveTextures() int { return len(rs.live) }

func (rs *RenderSystem) Capabilities() renderer.Capabilities { return rs.caps }

func (rs *RenderSystem) ClearFrameBuffer(buffers renderer.FrameBufferType, colour core.Color, _ float32, _ uint32) {
	rs.record(Command{Op: OpClear, Buffers: buffers})
}

func (rs *RenderSystem) SetStencilCheckEnabled(enabled bool) {
	rs.stencilOn = enabled
	rs.record(Command{Op: OpStencilCheck, Enabled: enabled})
}

func (rs *RenderSystem) SetStencilBufferParams(p renderer.StencilParams) {
	rs.stencil = p
	rs.record(Command{Op: OpStencilParams})
}

func (rs *RenderSystem) SetDepthBufferParams(check, write bool, fn materials.CompareFunction) {
	rs.depthFunc = fn
	rs.record(Command{Op: OpDepthParams, Enabled: check && write})
}

func (rs *RenderSystem) SetDepthFunction(fn materials.CompareFunction) {
	rs.depthFunc = fn
	rs.record(Command{Op: OpDepthFunction})
}

func (rs *RenderSystem) SetColourWriteEnabled(enabled bool) {
	rs.colourWrite = enabled
	rs.record(Command{Op: OpColourWrite, Enabled: enabled})
}

func (rs *RenderSystem) SetCullingMode(mode materials.CullingMode) {
	rs.culling = mode
	rs.record(Command{Op: OpCulling})
}

func (rs *RenderSystem) SetScissorTest(enabled bool, rect core.Rect) {
	rs.record(Command{Op: OpScissor, Enabled: enabled, Rect: rect})
}

func (rs *RenderSystem) SetClipPlanes(planes []scene.Plane) {
	rs.record(Command{Op: OpClipPlanes, Planes: len(planes), Enabled: len(planes) > 0})
}

func (rs *RenderSystem) BindProgram(stage renderer.ProgramStage, prog materials.ProgramRef) {
	rs.record(Command{Op: OpBindProgram, Stage: stage, Program: prog.Name})
}

func (rs *RenderSystem) UnbindProgram(stage renderer.ProgramStage) {
	rs.record(Command{Op: OpUnbindProgram, Stage: stage})
}

func (rs *RenderSystem) SetAmbientLight(c core.Color) {
	rs.ambient = c
	rs.record(Command{Op: OpAmbient})
}

func (rs *RenderSystem) SetPass(p *materials.Pass) {
	rs.pass = p
	// Passes carry their own culling, as on a real device.
	rs.culling = p.Culling
	rs.colourWrite = p.ColourWrite
	rs.record(Command{Op: OpSetPass, Name: p.Name})
}

func (rs *RenderSystem) SetLights(lights []*scene.Light) {
	rs.lights = slices.Clone(lights)
	rs.record(Command{Op: OpSetLights})
}

func (rs *RenderSystem) SetCamera(cam *scene.Camera) {
	rs.camera = cam
	rs.record(Command{Op: OpSetCamera})
}

func (rs *RenderSystem) SetRenderTarget(t *renderer.RenderTexture) {
	rs.target = t
	rs.record(Command{Op: OpSetTarget})
}

func (rs *RenderSystem) SetViewport(vp *renderer.Viewport) {
	rs.record(Command{Op: OpSetViewport})
}

func (rs *RenderSystem) Render(op renderer.RenderOperation) {
	name := ""
	if op.Mesh != nil {
		name = op.Mesh.Name
	}
	rs.record(Command{Op: OpRender, Triangles: op.TriangleCount(), Name: name})
}

func (rs *RenderSystem) CreateIndexBuffer(capacity int) (*renderer.IndexBuffer, error) {
	if !rs.caps.HWStencil {
		return nil, renderer.ErrNoStencil
	}
	rs.record(Command{Op: OpCreateIndexBuffer})
	return renderer.NewIndexBuffer(capacity), nil
}

func (rs *RenderSystem) CreateRenderTexture(name string, width, height int, format renderer.PixelFormat, fsaa uint, depthPool uint16) (*renderer.RenderTexture, error) {
	if rs.failTextures {
		return nil, fmt.Errorf("headless: texture creation disabled")
	}
	t := &renderer.RenderTexture{
		Name:        name,
		Width:       width,
		Height:      height,
		Format:      format,
		FSAA:        fsaa,
		DepthPoolID: depthPool,
		AutoUpdated: true,
	}
	rs.live[t] = true
	rs.record(Command{Op: OpCreateTexture, Name: name})
	return t, nil
}

func (rs *RenderSystem) DestroyRenderTexture(t *renderer.RenderTexture) {
	delete(rs.live, t)
	rs.record(Command{Op: OpDestroyTexture, Name: t.Name})
}

// ReadPixels returns a white image the size of t.
func (rs *RenderSystem) ReadPixels(t *renderer.RenderTexture) (*image.RGBA, error) {
	img := image.NewRGBA(image.Rect(0, 0, t.Width, t.Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	return img, nil
}
