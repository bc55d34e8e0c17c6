package shadow

import (
	"slices"

	"shadow-engine/core"
	"shadow-engine/materials"
)

// TechniqueResolver lets the material system replace a derived pass with
// the first pass of a better suited technique. Returning nil keeps derived.
type TechniqueResolver func(derived *materials.Pass) *materials.Pass

// SpotFadeTexture names the texture that fades texture shadows out at the
// edge of a spot light cone.
const SpotFadeTexture = "spot_shadow_fade.png"

// PassDeriver turns the passes of shadowed objects into the passes that
// render them as shadow casters or receivers. Templates are never modified;
// every derived pass is a fresh copy.
type PassDeriver struct {
	Technique Technique
	Colour    core.Color
	Scheme    string

	// CustomCaster and CustomReceiver replace the built-in templates.
	CustomCaster   *materials.Pass
	CustomReceiver *materials.Pass
	Resolve        TechniqueResolver

	plainBlack      *materials.Pass
	defaultReceiver *materials.Pass
}

func NewPassDeriver(t Technique, colour core.Color) *PassDeriver {
	black := materials.NewPass("shadow/Caster")
	// Lighting stays on so the scene ambient, set to the shadow colour
	// while casters render, colours the caster through a white ambient.
	black.Ambient = core.ColorWhite
	black.Diffuse = core.ColorBlack
	black.Specular = core.ColorBlack
	black.SelfIllumination = core.ColorBlack
	black.Fog = materials.FogOverride{Override: true, Mode: materials.FogNone}

	recv := materials.NewPass("shadow/Receiver")
	recv.Lighting = false
	unit := materials.NewTextureUnit("")
	unit.AddressMode = materials.AddressClamp
	recv.AddTextureUnit(unit)

	return &PassDeriver{
		Technique:       t,
		Colour:          colour,
		Scheme:          materials.DefaultScheme,
		plainBlack:      black,
		defaultReceiver: recv,
	}
}

// overridePass returns the first pass of an override material's best technique.
func (d *PassDeriver) overridePass(m *materials.Material) *materials.Pass {
	if m == nil {
		return nil
	}
	return m.BestTechnique(d.Scheme).FirstPass()
}

func (d *PassDeriver) resolve(p *materials.Pass) *materials.Pass {
	if d.Resolve != nil {
		if better := d.Resolve(p); better != nil {
			return better
		}
	}
	return p
}

// CasterPass returns the pass rendering src's object into a shadow texture.
// Outside texture shadows src is returned unchanged.
func (d *PassDeriver) CasterPass(src *materials.Pass) *materials.Pass {
	if !d.Technique.IsTexture() {
		return src
	}
	if mat := src.Material(); mat != nil {
		if ov := d.overridePass(mat.ShadowCasterMaterial); ov != nil {
			return ov
		}
	}
	base := d.plainBlack
	if d.CustomCaster != nil {
		base = d.CustomCaster
	}
	out := base.Clone()

	if src.IsAlphaBlended() || src.HasAlphaReject() {
		// Keep the transparency, but force the colour to the caster colour.
		out.AlphaRejectFunc = src.AlphaRejectFunc
		out.AlphaRejectValue = src.AlphaRejectValue
		out.SetSceneBlending(src.SrcBlend, src.DstBlend)
		flat := d.Colour
		if d.Technique.IsAdditive() {
			flat = core.ColorBlack
		}
		out.TextureUnits = src.Clone().TextureUnits
		for i := range out.TextureUnits {
			out.TextureUnits[i].SetFlatColour(flat)
		}
	} else {
		out.SetSceneBlending(materials.BlendOne, materials.BlendZero)
		out.AlphaRejectFunc = materials.CompareAlwaysPass
		out.AlphaRejectValue = 0
		out.TextureUnits = nil
	}

	out.Culling = src.Culling
	out.ManualCulling = src.ManualCulling

	if src.ShadowCasterVertexProgram.IsSet() {
		out.VertexProgram = cloneProgram(src.ShadowCasterVertexProgram)
	}
	if src.ShadowCasterFragmentProgram.IsSet() {
		out.FragmentProgram = cloneProgram(src.ShadowCasterFragmentProgram)
	}
	return d.resolve(out)
}

// ReceiverTemplate returns a fresh copy of the receiver pass to configure
// for one shadow texture.
func (d *PassDeriver) ReceiverTemplate() *materials.Pass {
	if d.CustomReceiver != nil {
		return d.CustomReceiver.Clone()
	}
	return d.defaultReceiver.Clone()
}

// ReceiverPass returns the pass rendering src's object as a receiver of the
// shadow texture bound in base's first unit. Outside texture shadows src is
// returned unchanged.
func (d *PassDeriver) ReceiverPass(src, base *materials.Pass) *materials.Pass {
	if !d.Technique.IsTexture() {
		return src
	}
	if mat := src.Material(); mat != nil {
		if ov := d.overridePass(mat.ShadowReceiverMaterial); ov != nil {
			return ov
		}
	}
	out := base.Clone()

	if src.ShadowReceiverVertexProgram.IsSet() {
		out.VertexProgram = cloneProgram(src.ShadowReceiverVertexProgram)
	}
	if src.ShadowReceiverFragmentProgram.IsSet() {
		out.FragmentProgram = cloneProgram(src.ShadowReceiverFragmentProgram)
	}

	if d.Technique.IsAdditive() {
		out.Lighting = true
		out.Ambient = src.Ambient
		out.SelfIllumination = src.SelfIllumination
		out.Diffuse = src.Diffuse
		out.Specular = src.Specular
		out.Shininess = src.Shininess
		out.IteratePerLight = src.IteratePerLight
		out.OnlyLightType = src.OnlyLightType
		out.IterateLightType = src.IterateLightType
		out.LightMask = src.LightMask
		out.AlphaRejectFunc = src.AlphaRejectFunc
		out.AlphaRejectValue = src.AlphaRejectValue

		// Unit 0 holds the shadow texture; the source layers follow it.
		units := slices.Clone(out.TextureUnits[:min(len(out.TextureUnits), 1)])
		if len(units) == 0 {
			units = append(units, materials.NewTextureUnit(""))
		}
		for i, u := range src.Clone().TextureUnits {
			if out.VertexProgram.IsSet() {
				u.TexCoordSet = i + 1
			}
			units = append(units, u)
		}
		out.TextureUnits = units
	}
	return d.resolve(out)
}

func cloneProgram(r materials.ProgramRef) materials.ProgramRef {
	out := materials.ProgramRef{Name: r.Name}
	if r.Params != nil {
		out.Params = make(map[string][]float32, len(r.Params))
		for k, v := range r.Params {
			out.Params[k] = slices.Clone(v)
		}
	}
	return out
}
