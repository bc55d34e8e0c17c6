// Package opengl implements renderer.RenderSystem on an OpenGL 4.1 core
// context. Every method must run on the goroutine owning the context.
package opengl

import (
	"fmt"
	"image"
	stdmath "math"

	gl "github.com/go-gl/gl/v4.1-core/gl"

	"shadow-engine/core"
	"shadow-engine/materials"
	"shadow-engine/math"
	"shadow-engine/renderer"
	"shadow-engine/scene"
	"shadow-engine/textures"
)

// clipToUV maps clip space to projective texture coordinates.
var clipToUV = math.Mat4{
	{0.5, 0, 0, 0},
	{0, 0.5, 0, 0},
	{0, 0, 0.5, 0},
	{0.5, 0.5, 0.5, 1},
}

// RenderSystem is the OpenGL device.
type RenderSystem struct {
	caps     renderer.Capabilities
	textures *textures.Manager

	passProg *program
	programs map[string]*program

	// vertexProg and fragmentProg are the programs bound by BindProgram;
	// nil draws with passProg.
	vertexProg   *program
	fragmentProg *program
	params       map[string][]float32
	warned       map[string]bool

	meshes           map[*scene.Mesh]*gpuMesh
	listVAO, listVBO uint32

	targets       map[*renderer.RenderTexture]*framebuffer
	targetsByName map[string]*framebuffer
	depthPool     map[depthKey]*depthBuffer
	images        map[string]uint32

	pass        *materials.Pass
	lights      []*scene.Light
	camera      *scene.Camera
	ambient     core.Color
	clipPlanes  []scene.Plane
	target      *renderer.RenderTexture
	viewW       int
	viewH       int
	colourWrite bool
	depthWrite  bool
	stencilMask uint32
}

var _ renderer.RenderSystem = (*RenderSystem)(nil)

// New initialises OpenGL and compiles the built-in programs.
// Must be called after the GLFW window context is made current. Named
// textures are resolved through tm; nil uses a manager rooted at the
// working directory.
func New(tm *textures.Manager) (*RenderSystem, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}
	if tm == nil {
		tm = textures.NewManager("")
	}

	passProg, err := newProgramNamed("pass", passVertSrc, passFragSrc)
	if err != nil {
		return nil, err
	}
	programs, err := extrusionPrograms()
	if err != nil {
		passProg.destroy()
		return nil, err
	}

	rs := &RenderSystem{
		textures:      tm,
		passProg:      passProg,
		programs:      programs,
		warned:        make(map[string]bool),
		meshes:        make(map[*scene.Mesh]*gpuMesh),
		targets:       make(map[*renderer.RenderTexture]*framebuffer),
		targetsByName: make(map[string]*framebuffer),
		depthPool:     make(map[depthKey]*depthBuffer),
		images:        make(map[string]uint32),
		colourWrite:   true,
		depthWrite:    true,
		stencilMask:   0xFFFFFFFF,
	}
	rs.caps = queryCapabilities()
	rs.listVAO, rs.listVBO = newListVAO()

	gl.UseProgram(passProg.id)
	for i := range maxTextureUnits {
		gl.Uniform1i(passProg.loc(fmt.Sprintf("tex[%d]", i)), int32(i))
	}
	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LEQUAL)
	gl.FrontFace(gl.CCW)

	core.Logger().Info("opengl: initialised",
		"version", gl.GoStr(gl.GetString(gl.VERSION)),
		"stencil", rs.caps.HWStencil,
		"texture units", rs.caps.MaxTextureUnits)
	return rs, nil
}

func queryCapabilities() renderer.Capabilities {
	var stencilBits, units int32
	gl.GetFramebufferAttachmentParameteriv(gl.FRAMEBUFFER, gl.STENCIL, gl.FRAMEBUFFER_ATTACHMENT_STENCIL_SIZE, &stencilBits)
	gl.GetIntegerv(gl.MAX_TEXTURE_IMAGE_UNITS, &units)
	return renderer.Capabilities{
		HWStencil:        stencilBits > 0,
		TwoSidedStencil:  true,
		StencilWrap:      true,
		InfiniteFarPlane: true,
		VertexPrograms:   true,
		ScissorTest:      true,
		UserClipPlanes:   true,
		MaxTextureUnits:  min(int(units), maxTextureUnits),
	}
}

// RegisterProgram compiles a program that passes can bind by name.
func (rs *RenderSystem) RegisterProgram(name, vertSrc, fragSrc string) error {
	p, err := newProgramNamed(name, vertSrc+"\x00", fragSrc+"\x00")
	if err != nil {
		return err
	}
	if old, ok := rs.programs[name]; ok {
		old.destroy()
	}
	rs.programs[name] = p
	return nil
}

func (rs *RenderSystem) Capabilities() renderer.Capabilities { return rs.caps }

func (rs *RenderSystem) ClearFrameBuffer(buffers renderer.FrameBufferType, colour core.Color, depth float32, stencil uint32) {
	var mask uint32
	if buffers&renderer.BufferColour != 0 {
		gl.ColorMask(true, true, true, true)
		gl.ClearColor(colour.R, colour.G, colour.B, colour.A)
		mask |= gl.COLOR_BUFFER_BIT
	}
	if buffers&renderer.BufferDepth != 0 {
		gl.DepthMask(true)
		gl.ClearDepth(float64(depth))
		mask |= gl.DEPTH_BUFFER_BIT
	}
	if buffers&renderer.BufferStencil != 0 {
		gl.StencilMask(0xFFFFFFFF)
		gl.ClearStencil(int32(stencil))
		mask |= gl.STENCIL_BUFFER_BIT
	}
	gl.Clear(mask)

	w := rs.colourWrite
	gl.ColorMask(w, w, w, w)
	gl.DepthMask(rs.depthWrite)
	gl.StencilMask(rs.stencilMask)
}

func (rs *RenderSystem) SetStencilCheckEnabled(enabled bool) {
	setEnabled(gl.STENCIL_TEST, enabled)
}

func (rs *RenderSystem) SetStencilBufferParams(p renderer.StencilParams) {
	rs.stencilMask = p.WriteMask
	applyStencil(p)
}

func (rs *RenderSystem) SetDepthBufferParams(check, write bool, fn materials.CompareFunction) {
	setEnabled(gl.DEPTH_TEST, check)
	rs.depthWrite = write
	gl.DepthMask(write)
	gl.DepthFunc(glCompare(fn))
}

func (rs *RenderSystem) SetDepthFunction(fn materials.CompareFunction) {
	gl.DepthFunc(glCompare(fn))
}

func (rs *RenderSystem) SetColourWriteEnabled(enabled bool) {
	rs.colourWrite = enabled
	gl.ColorMask(enabled, enabled, enabled, enabled)
}

func (rs *RenderSystem) SetCullingMode(mode materials.CullingMode) {
	on, face := glCullFace(mode)
	setEnabled(gl.CULL_FACE, on)
	gl.CullFace(face)
}

// SetScissorTest takes rect in pixels from the bottom-left corner.
func (rs *RenderSystem) SetScissorTest(enabled bool, rect core.Rect) {
	setEnabled(gl.SCISSOR_TEST, enabled)
	if enabled {
		gl.Scissor(int32(rect.X), int32(rect.Y), int32(stdmath.Ceil(float64(rect.Width))), int32(stdmath.Ceil(float64(rect.Height))))
	}
}

func (rs *RenderSystem) SetClipPlanes(planes []scene.Plane) {
	if len(planes) > maxClipPlanes {
		planes = planes[:maxClipPlanes]
	}
	rs.clipPlanes = planes
	for i := range maxClipPlanes {
		setEnabled(gl.CLIP_DISTANCE0+uint32(i), i < len(planes))
	}
}

func (rs *RenderSystem) BindProgram(stage renderer.ProgramStage, ref materials.ProgramRef) {
	p, ok := rs.programs[ref.Name]
	if !ok {
		if !rs.warned[ref.Name] {
			core.Logger().Warn("opengl: unknown program, using fixed function", "program", ref.Name)
			rs.warned[ref.Name] = true
		}
		rs.UnbindProgram(stage)
		return
	}
	if stage == renderer.VertexStage {
		rs.vertexProg = p
	} else {
		rs.fragmentProg = p
	}
	rs.params = ref.Params
}

func (rs *RenderSystem) UnbindProgram(stage renderer.ProgramStage) {
	if stage == renderer.VertexStage {
		rs.vertexProg = nil
	} else {
		rs.fragmentProg = nil
	}
	if rs.vertexProg == nil && rs.fragmentProg == nil {
		rs.params = nil
	}
}

func (rs *RenderSystem) SetAmbientLight(c core.Color) { rs.ambient = c }

// SetPass applies the pass's fixed-function state. Its colour, lighting and
// texture layers are uploaded per draw.
func (rs *RenderSystem) SetPass(p *materials.Pass) {
	rs.pass = p

	if p.IsTransparent() {
		gl.Enable(gl.BLEND)
		gl.BlendFunc(glBlend(p.SrcBlend), glBlend(p.DstBlend))
	} else {
		gl.Disable(gl.BLEND)
	}
	rs.SetDepthBufferParams(p.DepthCheck, p.DepthWrite, p.DepthFunc)
	rs.SetColourWriteEnabled(p.ColourWrite)
	rs.SetCullingMode(p.Culling)
}

func (rs *RenderSystem) SetLights(lights []*scene.Light) { rs.lights = lights }

func (rs *RenderSystem) SetCamera(cam *scene.Camera) { rs.camera = cam }

func (rs *RenderSystem) SetRenderTarget(t *renderer.RenderTexture) {
	rs.target = t
	if t == nil {
		gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
		return
	}
	if fb, ok := rs.targets[t]; ok {
		gl.BindFramebuffer(gl.FRAMEBUFFER, fb.FBO)
	}
}

func (rs *RenderSystem) SetViewport(vp *renderer.Viewport) {
	rs.viewW, rs.viewH = vp.ActualWidth, vp.ActualHeight
	gl.Viewport(0, 0, int32(vp.ActualWidth), int32(vp.ActualHeight))
}

// Render draws op with the bound program, or with the pass program when
// none is bound.
func (rs *RenderSystem) Render(op renderer.RenderOperation) {
	if rs.camera == nil {
		return
	}
	prog := rs.passProg
	switch {
	case rs.vertexProg != nil:
		prog = rs.vertexProg
	case rs.fragmentProg != nil:
		prog = rs.fragmentProg
	}
	gl.UseProgram(prog.id)

	view, proj := rs.camera.ViewMatrix(), rs.camera.ProjectionMatrix()
	if op.UseIdentityView {
		view = math.Mat4Identity()
	}
	if op.UseIdentityProjection {
		proj = math.Mat4Identity()
	}
	setMat4(prog.loc("world"), op.World)
	setMat4(prog.loc("view"), view)
	setMat4(prog.loc("proj"), proj)
	gl.Uniform1i(prog.loc("clipCount"), int32(len(rs.clipPlanes)))
	for i, pl := range rs.clipPlanes {
		v := pl.Vec4()
		gl.Uniform4f(prog.loc(fmt.Sprintf("clipPlanes[%d]", i)), v.X, v.Y, v.Z, v.W)
	}

	if prog == rs.passProg {
		rs.applyPassUniforms(prog)
	} else {
		if rs.pass != nil {
			setColour(prog.loc("matDiffuse"), rs.pass.Diffuse)
		}
		applyParams(prog, rs.params)
	}

	if op.Mesh != nil {
		rs.drawMesh(op.Mesh)
	} else {
		rs.drawList(op)
	}
}

func (rs *RenderSystem) applyPassUniforms(prog *program) {
	p := rs.pass
	if p == nil {
		p = materials.NewPass("")
	}
	setColour(prog.loc("sceneAmbient"), rs.ambient)
	setColour(prog.loc("matAmbient"), p.Ambient)
	setColour(prog.loc("matDiffuse"), p.Diffuse)
	setColour(prog.loc("matSpecular"), p.Specular)
	setColour(prog.loc("matEmissive"), p.SelfIllumination)
	gl.Uniform1f(prog.loc("matShininess"), p.Shininess)
	gl.Uniform1i(prog.loc("lighting"), boolToInt(p.Lighting))
	pos := rs.camera.Position
	gl.Uniform3f(prog.loc("cameraPos"), pos.X, pos.Y, pos.Z)

	lights := rs.lights
	if n := min(p.MaxLights, maxLights); len(lights) > n {
		lights = lights[:max(n, 0)]
	}
	gl.Uniform1i(prog.loc("lightCount"), int32(len(lights)))
	for i, l := range lights {
		idx := fmt.Sprintf("[%d]", i)
		gl.Uniform1i(prog.loc("lightType"+idx), lightTypeIndex(l.Type))
		gl.Uniform3f(prog.loc("lightPos"+idx), l.Position.X, l.Position.Y, l.Position.Z)
		d := l.DerivedDirection()
		gl.Uniform3f(prog.loc("lightDir"+idx), d.X, d.Y, d.Z)
		setColour(prog.loc("lightDiffuse"+idx), l.Diffuse)
		setColour(prog.loc("lightSpecular"+idx), l.Specular)
		lightRange := l.Range
		if lightRange <= 0 {
			lightRange = stdmath.MaxFloat32
		}
		gl.Uniform1f(prog.loc("lightRange"+idx), lightRange)
		gl.Uniform1f(prog.loc("lightCosInner"+idx), float32(stdmath.Cos(float64(l.SpotInner)/2)))
		gl.Uniform1f(prog.loc("lightCosOuter"+idx), float32(stdmath.Cos(float64(l.SpotOuter)/2)))
	}

	units := p.TextureUnits
	if n := min(rs.caps.MaxTextureUnits, maxTextureUnits); len(units) > n {
		units = units[:n]
	}
	gl.Uniform1i(prog.loc("texCount"), int32(len(units)))
	for i, u := range units {
		idx := fmt.Sprintf("[%d]", i)
		rs.bindTextureUnit(i, u)
		gl.Uniform1i(prog.loc("texOp"+idx), int32(u.Colour.Operation))
		gl.Uniform1i(prog.loc("texSource1"+idx), int32(u.Colour.Source1))
		setColour(prog.loc("texManual"+idx), u.Colour.Manual)
		projective := u.ProjectiveTexturing && u.Projector != nil
		gl.Uniform1i(prog.loc("texProjective"+idx), boolToInt(projective))
		if projective {
			setMat4(prog.loc("texMatrix"+idx), u.Projector.ViewProjection().Mul(clipToUV))
		}
	}
	gl.ActiveTexture(gl.TEXTURE0)

	gl.Uniform1i(prog.loc("alphaFunc"), int32(p.AlphaRejectFunc))
	gl.Uniform1f(prog.loc("alphaRef"), float32(p.AlphaRejectValue)/255)

	fog := p.Fog
	if !fog.Override {
		fog = materials.FogOverride{Mode: materials.FogNone}
	}
	gl.Uniform1i(prog.loc("fogMode"), int32(fog.Mode))
	setColour(prog.loc("fogColor"), fog.Colour)
	gl.Uniform1f(prog.loc("fogDensity"), fog.Density)
	gl.Uniform1f(prog.loc("fogStart"), fog.Start)
	gl.Uniform1f(prog.loc("fogEnd"), fog.End)
}

// applyParams uploads named program parameters by their length.
func applyParams(prog *program, params map[string][]float32) {
	for name, v := range params {
		loc := prog.loc(name)
		switch len(v) {
		case 1:
			gl.Uniform1f(loc, v[0])
		case 2:
			gl.Uniform2f(loc, v[0], v[1])
		case 3:
			gl.Uniform3f(loc, v[0], v[1], v[2])
		case 4:
			gl.Uniform4f(loc, v[0], v[1], v[2], v[3])
		case 16:
			gl.UniformMatrix4fv(loc, 1, false, &v[0])
		}
	}
}

func (rs *RenderSystem) CreateIndexBuffer(capacity int) (*renderer.IndexBuffer, error) {
	if !rs.caps.HWStencil {
		return nil, renderer.ErrNoStencil
	}
	ib := renderer.NewIndexBuffer(capacity)
	syncIndexBuffer(ib)
	return ib, nil
}

func (rs *RenderSystem) CreateRenderTexture(name string, width, height int, format renderer.PixelFormat, fsaa uint, depthPool uint16) (*renderer.RenderTexture, error) {
	t := &renderer.RenderTexture{
		Name:        name,
		Width:       width,
		Height:      height,
		Format:      format,
		FSAA:        fsaa,
		DepthPoolID: depthPool,
		AutoUpdated: true,
	}
	fb, err := rs.newFramebuffer(t)
	if err != nil {
		return nil, err
	}
	t.Handle = fb
	rs.targets[t] = fb
	rs.targetsByName[name] = fb
	if fsaa > 0 {
		core.Logger().Debug("opengl: fsaa not supported on render textures", "texture", name, "fsaa", fsaa)
	}
	return t, nil
}

func (rs *RenderSystem) DestroyRenderTexture(t *renderer.RenderTexture) {
	fb, ok := rs.targets[t]
	if !ok {
		return
	}
	if rs.target == t {
		rs.SetRenderTarget(nil)
	}
	rs.destroyFramebuffer(t, fb)
	delete(rs.targets, t)
	if rs.targetsByName[t.Name] == fb {
		delete(rs.targetsByName, t.Name)
	}
	t.Handle = nil
}

// ReadPixels reads t, or the window when t is nil, top row first.
func (rs *RenderSystem) ReadPixels(t *renderer.RenderTexture) (*image.RGBA, error) {
	w, h := rs.viewW, rs.viewH
	var fbo uint32
	if t != nil {
		fb, ok := rs.targets[t]
		if !ok {
			return nil, fmt.Errorf("opengl: unknown render texture %s", t.Name)
		}
		fbo, w, h = fb.FBO, t.Width, t.Height
	}
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("opengl: nothing to read")
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, fbo)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(0, 0, int32(w), int32(h), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(img.Pix))
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, 0)

	row := make([]byte, img.Stride)
	for y := range h / 2 {
		top := img.Pix[y*img.Stride : (y+1)*img.Stride]
		bottom := img.Pix[(h-1-y)*img.Stride : (h-y)*img.Stride]
		copy(row, top)
		copy(top, bottom)
		copy(bottom, row)
	}
	return img, nil
}

// Destroy frees every GPU resource the device created.
func (rs *RenderSystem) Destroy() {
	for mesh := range rs.meshes {
		rs.ReleaseMesh(mesh)
	}
	for t := range rs.targets {
		rs.DestroyRenderTexture(t)
	}
	rs.deleteImages()
	gl.DeleteVertexArrays(1, &rs.listVAO)
	gl.DeleteBuffers(1, &rs.listVBO)
	for _, p := range rs.programs {
		p.destroy()
	}
	rs.passProg.destroy()
}

func lightTypeIndex(t scene.LightType) int32 {
	switch t {
	case scene.LightDirectional:
		return 1
	case scene.LightSpot:
		return 2
	}
	return 0
}

func setMat4(loc int32, m math.Mat4) {
	gl.UniformMatrix4fv(loc, 1, false, &m[0][0])
}

func setColour(loc int32, c core.Color) {
	gl.Uniform4f(loc, c.R, c.G, c.B, c.A)
}

func boolToInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
