package opengl

import (
	gl "github.com/go-gl/gl/v4.1-core/gl"

	"shadow-engine/materials"
	"shadow-engine/renderer"
)

func glCompare(fn materials.CompareFunction) uint32 {
	switch fn {
	case materials.CompareAlwaysFail:
		return gl.NEVER
	case materials.CompareLess:
		return gl.LESS
	case materials.CompareLessEqual:
		return gl.LEQUAL
	case materials.CompareEqual:
		return gl.EQUAL
	case materials.CompareNotEqual:
		return gl.NOTEQUAL
	case materials.CompareGreaterEqual:
		return gl.GEQUAL
	case materials.CompareGreater:
		return gl.GREATER
	}
	return gl.ALWAYS
}

func glStencilOp(op renderer.StencilOperation) uint32 {
	switch op {
	case renderer.StencilZero:
		return gl.ZERO
	case renderer.StencilReplace:
		return gl.REPLACE
	case renderer.StencilIncrement:
		return gl.INCR
	case renderer.StencilDecrement:
		return gl.DECR
	case renderer.StencilIncrementWrap:
		return gl.INCR_WRAP
	case renderer.StencilDecrementWrap:
		return gl.DECR_WRAP
	case renderer.StencilInvert:
		return gl.INVERT
	}
	return gl.KEEP
}

// invertStencilOp swaps increments and decrements for back faces.
func invertStencilOp(op renderer.StencilOperation) renderer.StencilOperation {
	switch op {
	case renderer.StencilIncrement:
		return renderer.StencilDecrement
	case renderer.StencilDecrement:
		return renderer.StencilIncrement
	case renderer.StencilIncrementWrap:
		return renderer.StencilDecrementWrap
	case renderer.StencilDecrementWrap:
		return renderer.StencilIncrementWrap
	}
	return op
}

func glBlend(f materials.BlendFactor) uint32 {
	switch f {
	case materials.BlendZero:
		return gl.ZERO
	case materials.BlendDestColour:
		return gl.DST_COLOR
	case materials.BlendSourceColour:
		return gl.SRC_COLOR
	case materials.BlendOneMinusDestColour:
		return gl.ONE_MINUS_DST_COLOR
	case materials.BlendOneMinusSourceColour:
		return gl.ONE_MINUS_SRC_COLOR
	case materials.BlendDestAlpha:
		return gl.DST_ALPHA
	case materials.BlendSourceAlpha:
		return gl.SRC_ALPHA
	case materials.BlendOneMinusDestAlpha:
		return gl.ONE_MINUS_DST_ALPHA
	case materials.BlendOneMinusSourceAlpha:
		return gl.ONE_MINUS_SRC_ALPHA
	}
	return gl.ONE
}

// glCullFace maps a culling mode to the face GL discards. Front faces wind
// anticlockwise, so culling clockwise triangles culls back faces.
func glCullFace(mode materials.CullingMode) (enabled bool, face uint32) {
	switch mode {
	case materials.CullClockwise:
		return true, gl.BACK
	case materials.CullAnticlockwise:
		return true, gl.FRONT
	}
	return false, gl.BACK
}

func setEnabled(capability uint32, on bool) {
	if on {
		gl.Enable(capability)
	} else {
		gl.Disable(capability)
	}
}

// applyStencil installs p. Back faces get the inverse increments when p
// is two-sided.
func applyStencil(p renderer.StencilParams) {
	fn := glCompare(p.Func)
	gl.StencilMask(p.WriteMask)
	gl.StencilFuncSeparate(gl.FRONT_AND_BACK, fn, int32(p.Ref), p.CompareMask)
	if !p.TwoSided {
		gl.StencilOpSeparate(gl.FRONT_AND_BACK, glStencilOp(p.StencilFail), glStencilOp(p.DepthFail), glStencilOp(p.Pass))
		return
	}
	gl.StencilOpSeparate(gl.FRONT, glStencilOp(p.StencilFail), glStencilOp(p.DepthFail), glStencilOp(p.Pass))
	gl.StencilOpSeparate(gl.BACK,
		glStencilOp(invertStencilOp(p.StencilFail)),
		glStencilOp(invertStencilOp(p.DepthFail)),
		glStencilOp(invertStencilOp(p.Pass)))
}
