// Package renderer defines the device contract the shadow renderer drives,
// plus the render-target, viewport and geometry types shared by backends.
package renderer

import (
	"image"

	"shadow-engine/core"
	"shadow-engine/materials"
	"shadow-engine/scene"
)

// Capabilities lists the optional device features the shadow code adapts to.
type Capabilities struct {
	HWStencil        bool
	TwoSidedStencil  bool
	StencilWrap      bool
	InfiniteFarPlane bool
	VertexPrograms   bool
	ScissorTest      bool
	UserClipPlanes   bool
	MaxTextureUnits  int
}

// FrameBufferType is a mask of buffers to clear.
type FrameBufferType uint8

const (
	BufferColour FrameBufferType = 1 << iota
	BufferDepth
	BufferStencil
)

// StencilOperation is applied to the stencil value when a test outcome occurs.
type StencilOperation int

const (
	StencilKeep StencilOperation = iota
	StencilZero
	StencilReplace
	StencilIncrement
	StencilDecrement
	StencilIncrementWrap
	StencilDecrementWrap
	StencilInvert
)

// StencilParams is the complete stencil state. With TwoSided set the ops
// apply to front faces and back faces use the inverse increment/decrement.
type StencilParams struct {
	Func        materials.CompareFunction
	Ref         uint32
	CompareMask uint32
	WriteMask   uint32
	StencilFail StencilOperation
	DepthFail   StencilOperation
	Pass        StencilOperation
	TwoSided    bool
}

// DefaultStencilParams returns the state of a freshly cleared device.
func DefaultStencilParams() StencilParams {
	return StencilParams{
		Func:        materials.CompareAlwaysPass,
		CompareMask: 0xFFFFFFFF,
		WriteMask:   0xFFFFFFFF,
	}
}

// ProgramStage selects the programmable pipeline stage.
type ProgramStage int

const (
	VertexStage ProgramStage = iota
	FragmentStage
)

// PixelFormat is the storage format of a render texture.
type PixelFormat int

const (
	PixelFormatRGBA8 PixelFormat = iota
	PixelFormatR32F
	PixelFormatRG32F
	PixelFormatDepth24
)

func (f PixelFormat) String() string {
	switch f {
	case PixelFormatRGBA8:
		return "rgba8"
	case PixelFormatR32F:
		return "r32f"
	case PixelFormatRG32F:
		return "rg32f"
	case PixelFormatDepth24:
		return "depth24"
	}
	return "unknown"
}

// ParsePixelFormat is the inverse of PixelFormat.String.
func ParsePixelFormat(s string) (PixelFormat, error) {
	for f := PixelFormatRGBA8; f <= PixelFormatDepth24; f++ {
		if f.String() == s {
			return f, nil
		}
	}
	return 0, &UnknownValueError{Kind: "pixel format", Value: s}
}

// RenderSystem is the graphics device. All calls happen on the render goroutine.
type RenderSystem interface {
	Capabilities() Capabilities

	ClearFrameBuffer(buffers FrameBufferType, colour core.Color, depth float32, stencil uint32)
	SetStencilCheckEnabled(enabled bool)
	SetStencilBufferParams(p StencilParams)
	SetDepthBufferParams(check, write bool, fn materials.CompareFunction)
	SetDepthFunction(fn materials.CompareFunction)
	SetColourWriteEnabled(enabled bool)
	SetCullingMode(mode materials.CullingMode)
	SetScissorTest(enabled bool, rect core.Rect)
	// SetClipPlanes installs world-space user clip planes; an empty slice
	// disables clipping.
	SetClipPlanes(planes []scene.Plane)

	BindProgram(stage ProgramStage, prog materials.ProgramRef)
	UnbindProgram(stage ProgramStage)

	SetAmbientLight(c core.Color)
	SetPass(p *materials.Pass)
	SetLights(lights []*scene.Light)
	SetCamera(cam *scene.Camera)
	SetRenderTarget(t *RenderTexture)
	SetViewport(vp *Viewport)
	Render(op RenderOperation)

	CreateIndexBuffer(capacity int) (*IndexBuffer, error)
	CreateRenderTexture(name string, width, height int, format PixelFormat, fsaa uint, depthPool uint16) (*RenderTexture, error)
	DestroyRenderTexture(t *RenderTexture)
	ReadPixels(t *RenderTexture) (*image.RGBA, error)
}
