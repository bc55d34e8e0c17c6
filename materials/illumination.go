package materials

import "shadow-engine/core"

// IlluminationStage classifies the passes produced by SplitIllumination.
type IlluminationStage int

const (
	IlluminationAmbient IlluminationStage = iota
	IlluminationPerLight
	IlluminationDecal
)

// IlluminationPass is one pass of a technique split for additive shadows.
type IlluminationPass struct {
	Stage    IlluminationStage
	Pass     *Pass
	Original *Pass
}

// SplitIllumination breaks each pass of t into an ambient part, a per-light
// part blended with (one, one), and a decal part that modulates the lit
// result with the pass textures. Passes already iterating per light, and
// unlit passes, are kept whole.
func SplitIllumination(t *Technique) []IlluminationPass {
	var out []IlluminationPass
	for _, p := range t.Passes {
		switch {
		case p.IteratePerLight:
			out = append(out, IlluminationPass{Stage: IlluminationPerLight, Pass: p, Original: p})
			continue
		case !p.Lighting:
			stage := IlluminationAmbient
			if len(p.TextureUnits) > 0 && p != t.FirstPass() {
				stage = IlluminationDecal
			}
			out = append(out, IlluminationPass{Stage: stage, Pass: p, Original: p})
			continue
		}

		ambient := p.Clone()
		ambient.Name = p.Name + "/ambient"
		ambient.Diffuse = core.ColorBlack
		ambient.Specular = core.ColorBlack
		ambient.TextureUnits = nil
		ambient.parent = p.parent
		out = append(out, IlluminationPass{Stage: IlluminationAmbient, Pass: ambient, Original: p})

		perLight := p.Clone()
		perLight.Name = p.Name + "/light"
		perLight.Ambient = core.ColorBlack
		perLight.SelfIllumination = core.ColorBlack
		perLight.TextureUnits = nil
		perLight.IteratePerLight = true
		perLight.SetSceneBlending(BlendOne, BlendOne)
		perLight.DepthWrite = false
		perLight.DepthFunc = CompareLessEqual
		perLight.parent = p.parent
		out = append(out, IlluminationPass{Stage: IlluminationPerLight, Pass: perLight, Original: p})

		if len(p.TextureUnits) > 0 {
			decal := p.Clone()
			decal.Name = p.Name + "/decal"
			decal.Lighting = false
			decal.SetSceneBlending(BlendDestColour, BlendZero)
			decal.DepthWrite = false
			decal.DepthFunc = CompareLessEqual
			decal.parent = p.parent
			out = append(out, IlluminationPass{Stage: IlluminationDecal, Pass: decal, Original: p})
		}
	}
	return out
}
