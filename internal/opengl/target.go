package opengl

import (
	"fmt"

	gl "github.com/go-gl/gl/v4.1-core/gl"

	"shadow-engine/renderer"
)

// framebuffer is the GL side of a renderer.RenderTexture.
type framebuffer struct {
	FBO      uint32
	ColorTex uint32
	DepthTex uint32 // depth-format targets only
	depth    *depthBuffer
}

// depthBuffer is a depth-stencil renderbuffer shared by every target of the
// same pool and size.
type depthBuffer struct {
	RBO  uint32
	refs int
}

type depthKey struct {
	pool          uint16
	width, height int
}

type formatInfo struct {
	internal int32
	format   uint32
	xtype    uint32
}

func glFormat(f renderer.PixelFormat) formatInfo {
	switch f {
	case renderer.PixelFormatR32F:
		return formatInfo{gl.R32F, gl.RED, gl.FLOAT}
	case renderer.PixelFormatRG32F:
		return formatInfo{gl.RG32F, gl.RG, gl.FLOAT}
	case renderer.PixelFormatDepth24:
		return formatInfo{gl.DEPTH_COMPONENT24, gl.DEPTH_COMPONENT, gl.UNSIGNED_INT}
	}
	return formatInfo{gl.RGBA8, gl.RGBA, gl.UNSIGNED_BYTE}
}

// newFramebuffer creates the FBO for t. Colour targets sample as textures
// with a white border, so lookups outside the shadow texture are unshadowed.
func (rs *RenderSystem) newFramebuffer(t *renderer.RenderTexture) (*framebuffer, error) {
	fb := &framebuffer{}
	info := glFormat(t.Format)
	w, h := int32(t.Width), int32(t.Height)

	var tex uint32
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.TexImage2D(gl.TEXTURE_2D, 0, info.internal, w, h, 0, info.format, info.xtype, nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_BORDER)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_BORDER)
	border := [4]float32{1, 1, 1, 1}
	gl.TexParameterfv(gl.TEXTURE_2D, gl.TEXTURE_BORDER_COLOR, &border[0])

	gl.GenFramebuffers(1, &fb.FBO)
	gl.BindFramebuffer(gl.FRAMEBUFFER, fb.FBO)
	if t.Format == renderer.PixelFormatDepth24 {
		fb.DepthTex = tex
		gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.TEXTURE_2D, tex, 0)
		gl.DrawBuffer(gl.NONE)
		gl.ReadBuffer(gl.NONE)
	} else {
		fb.ColorTex = tex
		gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, tex, 0)
		if t.DepthPoolID != 0 {
			fb.depth = rs.acquireDepth(depthKey{t.DepthPoolID, t.Width, t.Height})
			gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.DEPTH_STENCIL_ATTACHMENT, gl.RENDERBUFFER, fb.depth.RBO)
		}
	}

	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	if status != gl.FRAMEBUFFER_COMPLETE {
		rs.destroyFramebuffer(t, fb)
		return nil, fmt.Errorf("render texture %s incomplete: status=0x%X", t.Name, status)
	}
	return fb, nil
}

func (rs *RenderSystem) acquireDepth(key depthKey) *depthBuffer {
	if d, ok := rs.depthPool[key]; ok {
		d.refs++
		return d
	}
	d := &depthBuffer{refs: 1}
	gl.GenRenderbuffers(1, &d.RBO)
	gl.BindRenderbuffer(gl.RENDERBUFFER, d.RBO)
	gl.RenderbufferStorage(gl.RENDERBUFFER, gl.DEPTH24_STENCIL8, int32(key.width), int32(key.height))
	gl.BindRenderbuffer(gl.RENDERBUFFER, 0)
	rs.depthPool[key] = d
	return d
}

func (rs *RenderSystem) destroyFramebuffer(t *renderer.RenderTexture, fb *framebuffer) {
	if fb.FBO != 0 {
		gl.DeleteFramebuffers(1, &fb.FBO)
		fb.FBO = 0
	}
	for _, tex := range []*uint32{&fb.ColorTex, &fb.DepthTex} {
		if *tex != 0 {
			gl.DeleteTextures(1, tex)
			*tex = 0
		}
	}
	if fb.depth == nil {
		return
	}
	fb.depth.refs--
	if fb.depth.refs == 0 {
		gl.DeleteRenderbuffers(1, &fb.depth.RBO)
		delete(rs.depthPool, depthKey{t.DepthPoolID, t.Width, t.Height})
	}
	fb.depth = nil
}
