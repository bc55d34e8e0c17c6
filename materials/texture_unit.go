package materials

import (
	"shadow-engine/core"
	"shadow-engine/scene"
)

// LayerBlend describes a texture layer colour operation.
type LayerBlend struct {
	Operation LayerBlendOperation
	Source1   LayerBlendSource
	Source2   LayerBlendSource
	Manual    core.Color
}

// TextureUnit is one texture layer of a pass.
type TextureUnit struct {
	TextureName  string
	TexCoordSet  int
	Colour       LayerBlend
	AddressMode  TextureAddressMode
	BorderColour core.Color

	// ProjectiveTexturing generates texture coordinates from Projector's
	// view-projection instead of the vertex data.
	ProjectiveTexturing bool
	Projector           *scene.Camera `copier:"-"`
}

func NewTextureUnit(name string) TextureUnit {
	return TextureUnit{
		TextureName: name,
		Colour:      LayerBlend{Operation: LayerModulate, Source1: SourceTexture, Source2: SourceCurrent},
	}
}

// SetFlatColour makes the unit output c regardless of the texture contents.
func (u *TextureUnit) SetFlatColour(c core.Color) {
	u.Colour = LayerBlend{Operation: LayerSource1, Source1: SourceManual, Source2: SourceCurrent, Manual: c}
}

// SetProjector enables or disables projective texturing from cam.
func (u *TextureUnit) SetProjector(enable bool, cam *scene.Camera) {
	u.ProjectiveTexturing = enable
	if enable {
		u.Projector = cam
	} else {
		u.Projector = nil
	}
}
