package materials

// CompareFunction is a depth, stencil or alpha comparison.
type CompareFunction int

const (
	CompareAlwaysFail CompareFunction = iota
	CompareAlwaysPass
	CompareLess
	CompareLessEqual
	CompareEqual
	CompareNotEqual
	CompareGreaterEqual
	CompareGreater
)

// CullingMode is the hardware face culling mode, expressed by the winding
// that is culled.
type CullingMode int

const (
	CullNone CullingMode = iota
	CullClockwise
	CullAnticlockwise
)

// ManualCullingMode is the CPU-side culling applied to whole planar faces.
type ManualCullingMode int

const (
	ManualCullNone ManualCullingMode = iota
	ManualCullBack
	ManualCullFront
)

// BlendFactor is a scene blend factor.
type BlendFactor int

const (
	BlendOne BlendFactor = iota
	BlendZero
	BlendDestColour
	BlendSourceColour
	BlendOneMinusDestColour
	BlendOneMinusSourceColour
	BlendDestAlpha
	BlendSourceAlpha
	BlendOneMinusDestAlpha
	BlendOneMinusSourceAlpha
)

// FogMode selects the fog equation.
type FogMode int

const (
	FogNone FogMode = iota
	FogExp
	FogExp2
	FogLinear
)

// LayerBlendOperation combines a texture layer with the previous result.
type LayerBlendOperation int

const (
	LayerModulate LayerBlendOperation = iota
	LayerReplace
	LayerAdd
	LayerAlphaBlend
	// LayerSource1 outputs Source1 unchanged.
	LayerSource1
)

// LayerBlendSource is an input of a layer blend.
type LayerBlendSource int

const (
	SourceTexture LayerBlendSource = iota
	SourceCurrent
	SourceDiffuse
	SourceManual
)

// TextureAddressMode controls texture lookups outside [0, 1].
type TextureAddressMode int

const (
	AddressWrap TextureAddressMode = iota
	AddressClamp
	AddressBorder
)
