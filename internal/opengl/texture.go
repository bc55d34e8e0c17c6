package opengl

import (
	"image"

	gl "github.com/go-gl/gl/v4.1-core/gl"

	"shadow-engine/materials"
)

// uploadImage creates a mipmapped GL texture from img.
// Call this from the render goroutine (OpenGL context must be current).
func uploadImage(img *image.RGBA) uint32 {
	var id uint32
	gl.GenTextures(1, &id)
	gl.BindTexture(gl.TEXTURE_2D, id)

	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR_MIPMAP_LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.PixelStorei(gl.UNPACK_ROW_LENGTH, int32(img.Stride/4))

	gl.TexImage2D(
		gl.TEXTURE_2D,
		0,
		gl.RGBA8,
		int32(img.Rect.Dx()),
		int32(img.Rect.Dy()),
		0,
		gl.RGBA,
		gl.UNSIGNED_BYTE,
		gl.Ptr(img.Pix),
	)
	gl.PixelStorei(gl.UNPACK_ROW_LENGTH, 0)
	gl.GenerateMipmap(gl.TEXTURE_2D)

	gl.BindTexture(gl.TEXTURE_2D, 0)
	return id
}

// texture returns the GL texture for a unit's name: a render texture when one
// has that name, otherwise an image from the texture manager, uploaded once.
func (rs *RenderSystem) texture(name string) uint32 {
	if fb, ok := rs.targetsByName[name]; ok {
		if fb.ColorTex != 0 {
			return fb.ColorTex
		}
		return fb.DepthTex
	}
	if id, ok := rs.images[name]; ok {
		return id
	}
	id := uploadImage(rs.textures.GetOrDefault(name))
	rs.images[name] = id
	return id
}

// bindTextureUnit binds unit i and applies its addressing.
func (rs *RenderSystem) bindTextureUnit(i int, u materials.TextureUnit) {
	gl.ActiveTexture(gl.TEXTURE0 + uint32(i))
	gl.BindTexture(gl.TEXTURE_2D, rs.texture(u.TextureName))

	wrap := int32(gl.REPEAT)
	switch u.AddressMode {
	case materials.AddressClamp:
		wrap = gl.CLAMP_TO_EDGE
	case materials.AddressBorder:
		wrap = gl.CLAMP_TO_BORDER
		border := [4]float32{u.BorderColour.R, u.BorderColour.G, u.BorderColour.B, u.BorderColour.A}
		gl.TexParameterfv(gl.TEXTURE_2D, gl.TEXTURE_BORDER_COLOR, &border[0])
	}
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, wrap)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, wrap)
}

func (rs *RenderSystem) deleteImages() {
	for name, id := range rs.images {
		gl.DeleteTextures(1, &id)
		delete(rs.images, name)
	}
}
