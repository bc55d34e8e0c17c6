package materials

import (
	"shadow-engine/core"
)

// Technique is one way of rendering a material, selected by scheme.
type Technique struct {
	Scheme string
	Passes []*Pass

	parent *Material
}

// CreatePass appends a default pass to the technique.
func (t *Technique) CreatePass() *Pass {
	p := NewPass("")
	t.AddPass(p)
	return p
}

// AddPass appends p and takes ownership of it.
func (t *Technique) AddPass(p *Pass) {
	p.parent = t
	t.Passes = append(t.Passes, p)
}

func (t *Technique) Material() *Material { return t.parent }

// FirstPass returns the first pass or nil.
func (t *Technique) FirstPass() *Pass {
	if t == nil || len(t.Passes) == 0 {
		return nil
	}
	return t.Passes[0]
}

// DefaultScheme is the scheme every viewport uses unless told otherwise.
const DefaultScheme = "Default"

// Material groups techniques with the shadow behaviour of the surface.
type Material struct {
	Name       string
	Techniques []*Technique

	// ReceiveShadows is false for surfaces shadows must not darken.
	ReceiveShadows bool
	// TransparencyCastsShadows makes transparent passes render into shadow
	// textures.
	TransparencyCastsShadows bool

	// ShadowCasterMaterial and ShadowReceiverMaterial override pass
	// derivation when set.
	ShadowCasterMaterial   *Material
	ShadowReceiverMaterial *Material
}

// NewMaterial creates a material with one default technique and pass.
func NewMaterial(name string) *Material {
	m := &Material{Name: name, ReceiveShadows: true}
	m.CreateTechnique(DefaultScheme).CreatePass()
	return m
}

// NewColourMaterial creates a lit material with the given diffuse colour.
// Colours with alpha below 1 use straight alpha blending.
func NewColourMaterial(name string, c core.Color) *Material {
	m := NewMaterial(name)
	p := m.FirstPass()
	p.Diffuse = c
	p.Ambient = c
	if c.A < 1 {
		p.SetSceneBlending(BlendSourceAlpha, BlendOneMinusSourceAlpha)
		p.DepthWrite = false
	}
	return m
}

func (m *Material) CreateTechnique(scheme string) *Technique {
	t := &Technique{Scheme: scheme, parent: m}
	m.Techniques = append(m.Techniques, t)
	return t
}

// BestTechnique returns the technique for scheme, or the first technique.
func (m *Material) BestTechnique(scheme string) *Technique {
	for _, t := range m.Techniques {
		if t.Scheme == scheme {
			return t
		}
	}
	if len(m.Techniques) == 0 {
		return nil
	}
	return m.Techniques[0]
}

// FirstPass returns the first pass of the first technique, or nil.
func (m *Material) FirstPass() *Pass {
	if m == nil || len(m.Techniques) == 0 {
		return nil
	}
	return m.Techniques[0].FirstPass()
}

// IsTransparent reports whether every pass of the first technique blends.
func (m *Material) IsTransparent() bool {
	if len(m.Techniques) == 0 || len(m.Techniques[0].Passes) == 0 {
		return false
	}
	for _, p := range m.Techniques[0].Passes {
		if !p.IsTransparent() {
			return false
		}
	}
	return true
}

// Clone creates a deep copy of the material. Override materials are shared.
func (m *Material) Clone(newName string) *Material {
	clone := &Material{
		Name:                     newName,
		ReceiveShadows:           m.ReceiveShadows,
		TransparencyCastsShadows: m.TransparencyCastsShadows,
		ShadowCasterMaterial:     m.ShadowCasterMaterial,
		ShadowReceiverMaterial:   m.ShadowReceiverMaterial,
	}
	for _, t := range m.Techniques {
		ct := clone.CreateTechnique(t.Scheme)
		for _, p := range t.Passes {
			ct.AddPass(p.Clone())
		}
	}
	return clone
}
