package renderer

import (
	"shadow-engine/core"
	"shadow-engine/materials"
	"shadow-engine/scene"
)

// ViewportSource renders the scene into a viewport. Scene managers implement it.
type ViewportSource interface {
	RenderViewport(vp *Viewport)
}

// Viewport is a camera bound to a region of a render target.
type Viewport struct {
	Camera *scene.Camera
	// Target is nil for the main window.
	Target *RenderTexture

	ActualWidth  int
	ActualHeight int

	Background      core.Color
	ClearEveryFrame bool
	ClearBuffers    FrameBufferType
	MaterialScheme  string
	OverlaysEnabled bool
	ShadowsEnabled  bool

	Source ViewportSource
}

// NewViewport returns a viewport that clears colour and depth each frame.
func NewViewport(cam *scene.Camera, target *RenderTexture, width, height int) *Viewport {
	return &Viewport{
		Camera:          cam,
		Target:          target,
		ActualWidth:     width,
		ActualHeight:    height,
		Background:      core.ColorBlack,
		ClearEveryFrame: true,
		ClearBuffers:    BufferColour | BufferDepth,
		MaterialScheme:  materials.DefaultScheme,
		OverlaysEnabled: true,
		ShadowsEnabled:  true,
	}
}

// Update renders the viewport through its source.
func (v *Viewport) Update() {
	if v.Source != nil && v.Camera != nil {
		v.Source.RenderViewport(v)
	}
}

// RenderTexture is an off-screen render target backed by a texture.
type RenderTexture struct {
	Name        string
	Width       int
	Height      int
	Format      PixelFormat
	FSAA        uint
	DepthPoolID uint16

	// AutoUpdated targets are refreshed by the frame loop; the others only
	// on explicit Update calls.
	AutoUpdated bool

	// Handle is the backend's texture object.
	Handle any

	viewports []*Viewport
}

// AddViewport attaches a full-size viewport for cam.
func (t *RenderTexture) AddViewport(cam *scene.Camera) *Viewport {
	vp := NewViewport(cam, t, t.Width, t.Height)
	t.viewports = append(t.viewports, vp)
	return vp
}

func (t *RenderTexture) Viewports() []*Viewport { return t.viewports }

// Viewport returns the i-th viewport or nil.
func (t *RenderTexture) Viewport(i int) *Viewport {
	if i < 0 || i >= len(t.viewports) {
		return nil
	}
	return t.viewports[i]
}

// Update renders every viewport of the target.
func (t *RenderTexture) Update() {
	for _, vp := range t.viewports {
		vp.Update()
	}
}

// Compatible reports whether the texture matches a requested configuration.
func (t *RenderTexture) Compatible(width, height int, format PixelFormat, fsaa uint, depthPool uint16) bool {
	return t.Width == width && t.Height == height && t.Format == format && t.FSAA == fsaa && t.DepthPoolID == depthPool
}
