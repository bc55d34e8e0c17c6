package materials

import (
	"github.com/jinzhu/copier"

	"shadow-engine/core"
	"shadow-engine/scene"
)

// ProgramRef names a GPU program and its parameter values. An empty Name
// means no program.
type ProgramRef struct {
	Name   string
	Params map[string][]float32
}

func (r ProgramRef) IsSet() bool { return r.Name != "" }

// FogOverride replaces the scene fog for a pass when Override is set.
type FogOverride struct {
	Override bool
	Mode     FogMode
	Colour   core.Color
	Density  float32
	Start    float32
	End      float32
}

// Pass is a single rendering pass: fixed-function state, texture layers and
// optional programs.
type Pass struct {
	Name string

	Ambient          core.Color
	Diffuse          core.Color
	Specular         core.Color
	SelfIllumination core.Color
	Shininess        float32

	Lighting        bool
	IteratePerLight bool
	// OnlyLightType restricts per-light iteration to IterateLightType.
	OnlyLightType    bool
	IterateLightType scene.LightType
	LightMask        uint32
	MaxLights        int

	SrcBlend BlendFactor
	DstBlend BlendFactor

	AlphaRejectFunc  CompareFunction
	AlphaRejectValue uint8

	DepthCheck  bool
	DepthWrite  bool
	DepthFunc   CompareFunction
	ColourWrite bool

	Culling       CullingMode
	ManualCulling ManualCullingMode

	Fog FogOverride

	TextureUnits []TextureUnit

	VertexProgram   ProgramRef
	FragmentProgram ProgramRef

	ShadowCasterVertexProgram     ProgramRef
	ShadowCasterFragmentProgram   ProgramRef
	ShadowReceiverVertexProgram   ProgramRef
	ShadowReceiverFragmentProgram ProgramRef

	parent *Technique
}

// NewPass returns a lit, opaque pass: white ambient and diffuse, depth
// tested and written with less-equal, clockwise faces culled and at most
// eight lights.
func NewPass(name string) *Pass {
	return &Pass{
		Name:             name,
		Ambient:          core.ColorWhite,
		Diffuse:          core.ColorWhite,
		Specular:         core.ColorBlack,
		SelfIllumination: core.ColorBlack,
		Lighting:         true,
		LightMask:        0xFFFFFFFF,
		MaxLights:        8,
		SrcBlend:         BlendOne,
		DstBlend:         BlendZero,
		AlphaRejectFunc:  CompareAlwaysPass,
		DepthCheck:       true,
		DepthWrite:       true,
		DepthFunc:        CompareLessEqual,
		ColourWrite:      true,
		Culling:          CullClockwise,
		ManualCulling:    ManualCullBack,
	}
}

// Parent returns the technique owning the pass, or nil for a free pass.
func (p *Pass) Parent() *Technique { return p.parent }

// Material returns the material owning the pass, or nil.
func (p *Pass) Material() *Material {
	if p.parent == nil {
		return nil
	}
	return p.parent.parent
}

// IsTransparent reports whether the pass blends with the frame buffer.
func (p *Pass) IsTransparent() bool {
	return !(p.SrcBlend == BlendOne && p.DstBlend == BlendZero)
}

// IsAlphaBlended reports straight alpha blending.
func (p *Pass) IsAlphaBlended() bool {
	return p.SrcBlend == BlendSourceAlpha && p.DstBlend == BlendOneMinusSourceAlpha
}

// HasAlphaReject reports whether the pass discards fragments by alpha.
func (p *Pass) HasAlphaReject() bool {
	return p.AlphaRejectFunc != CompareAlwaysPass
}

func (p *Pass) IsProgrammable() bool {
	return p.VertexProgram.IsSet() || p.FragmentProgram.IsSet()
}

// SetSceneBlending sets both blend factors.
func (p *Pass) SetSceneBlending(src, dst BlendFactor) {
	p.SrcBlend, p.DstBlend = src, dst
}

func (p *Pass) AddTextureUnit(u TextureUnit) *TextureUnit {
	p.TextureUnits = append(p.TextureUnits, u)
	return &p.TextureUnits[len(p.TextureUnits)-1]
}

// Clone returns an independent copy of the pass. Texture projectors are
// shared with the original; the copy has no parent.
func (p *Pass) Clone() *Pass {
	out := &Pass{}
	if err := copier.CopyWithOption(out, p, copier.Option{DeepCopy: true}); err != nil {
		// copier only fails on mismatched kinds, which a Pass never has.
		core.Logger().Error("materials: pass clone", "pass", p.Name, "err", err)
		clone := *p
		clone.TextureUnits = append([]TextureUnit(nil), p.TextureUnits...)
		out = &clone
	}
	for i := range out.TextureUnits {
		out.TextureUnits[i].Projector = p.TextureUnits[i].Projector
	}
	out.parent = nil
	return out
}
