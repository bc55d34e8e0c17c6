// Package shadow implements stencil-volume and texture shadows on top of the
// renderer device contract: technique selection, the shadow texture pool,
// shadow camera setups, caster volume geometry, the shadowed render-queue
// paths and shadow pass derivation.
package shadow

import (
	"fmt"
	"strings"
)

// Technique selects the shadow algorithm. It combines one detail bit with
// one modulation bit, or is None.
type Technique uint8

const (
	Additive   Technique = 0x01
	Modulative Technique = 0x02

	DetailStencil Technique = 0x10
	DetailTexture Technique = 0x20
)

const (
	None              Technique = 0
	StencilModulative           = DetailStencil | Modulative
	StencilAdditive             = DetailStencil | Additive
	TextureModulative           = DetailTexture | Modulative
	TextureAdditive             = DetailTexture | Additive
)

const (
	detailMask     = DetailStencil | DetailTexture
	modulationMask = Additive | Modulative
)

// Valid reports whether t is None or exactly one detail and one modulation bit.
func (t Technique) Valid() bool {
	if t == None {
		return true
	}
	if t&^(detailMask|modulationMask) != 0 {
		return false
	}
	d, m := t&detailMask, t&modulationMask
	return (d == DetailStencil || d == DetailTexture) && (m == Additive || m == Modulative)
}

func (t Technique) IsStencil() bool    { return t&DetailStencil != 0 }
func (t Technique) IsTexture() bool    { return t&DetailTexture != 0 }
func (t Technique) IsAdditive() bool   { return t&Additive != 0 }
func (t Technique) IsModulative() bool { return t&Modulative != 0 }

var techniqueNames = map[Technique]string{
	None:              "none",
	StencilModulative: "stencil-modulative",
	StencilAdditive:   "stencil-additive",
	TextureModulative: "texture-modulative",
	TextureAdditive:   "texture-additive",
}

func (t Technique) String() string {
	if s, ok := techniqueNames[t]; ok {
		return s
	}
	return fmt.Sprintf("Technique(%#x)", uint8(t))
}

// ParseTechnique parses the names produced by Technique.String. Case and
// underscores are ignored.
func ParseTechnique(s string) (Technique, error) {
	name := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
	for t, n := range techniqueNames {
		if n == name {
			return t, nil
		}
	}
	return None, fmt.Errorf("%w: %q", ErrInvalidTechnique, s)
}
