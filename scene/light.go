package scene

import (
	"shadow-engine/core"
	"shadow-engine/math"
)

// LightType identifies the kind of light source.
type LightType int

const (
	LightDirectional LightType = iota
	LightPoint
	LightSpot
)

// LightTypeCount is the number of light types, used to size per-type tables.
const LightTypeCount = 3

func (t LightType) String() string {
	switch t {
	case LightDirectional:
		return "directional"
	case LightPoint:
		return "point"
	case LightSpot:
		return "spot"
	}
	return "unknown"
}

// Light represents a light source.
type Light struct {
	Name      string
	Type      LightType
	Position  math.Vec3
	Direction math.Vec3
	Diffuse   core.Color
	Specular  core.Color

	// Range is the attenuation range; it bounds point and spot lights.
	Range float32

	SpotInner   float32 // radians
	SpotOuter   float32 // radians
	SpotFalloff float32

	CastShadows bool

	// ShadowFarDistance limits how far from the camera texture shadows are
	// rendered. Zero falls back to the renderer default.
	ShadowFarDistance float32

	// ShadowNearClipDistance <= 0 uses the main camera's near clip.
	ShadowNearClipDistance float32
	// ShadowFarClipDistance < 0 derives the far clip from the light type.
	ShadowFarClipDistance float32
}

func NewLight(name string, t LightType) *Light {
	return &Light{
		Name:                  name,
		Type:                  t,
		Direction:             math.Vec3Back,
		Diffuse:               core.ColorWhite,
		Specular:              core.ColorWhite,
		Range:                 100000,
		SpotInner:             math.Radians(30),
		SpotOuter:             math.Radians(40),
		SpotFalloff:           1,
		CastShadows:           true,
		ShadowFarClipDistance: -1,
	}
}

// DerivedDirection returns the normalised light direction.
func (l *Light) DerivedDirection() math.Vec3 {
	return l.Direction.Normalize()
}

// As4D returns the light as a homogeneous vector: the position with w = 1 for
// point and spot lights, or the reversed direction with w = 0 for directional.
func (l *Light) As4D() math.Vec4 {
	if l.Type == LightDirectional {
		return l.DerivedDirection().Negate().ToVec4(0)
	}
	return l.Position.ToVec4(1)
}

// ShadowNearClip returns the near clip for this light's shadow cameras.
func (l *Light) ShadowNearClip(main *Camera) float32 {
	if l.ShadowNearClipDistance > 0 {
		return l.ShadowNearClipDistance
	}
	return main.Near
}

// ShadowFarClip returns the far clip for this light's shadow cameras. Zero
// means infinite.
func (l *Light) ShadowFarClip(main *Camera) float32 {
	if l.ShadowFarClipDistance >= 0 {
		return l.ShadowFarClipDistance
	}
	if l.Type == LightDirectional {
		return 0
	}
	return l.Range
}

// Bounds returns the world-space box of the light's influence. Directional
// lights are unbounded.
func (l *Light) Bounds() AABB {
	if l.Type == LightDirectional {
		return InfiniteAABB()
	}
	r := math.Vec3{X: l.Range, Y: l.Range, Z: l.Range}
	return AABB{Min: l.Position.Sub(r), Max: l.Position.Add(r)}
}

// BoundingSphere returns the sphere of the light's influence.
func (l *Light) BoundingSphere() Sphere {
	return Sphere{Center: l.Position, Radius: l.Range}
}

// SquaredDistanceTo returns the squared distance used for light sorting.
// Directional lights are always at distance zero.
func (l *Light) SquaredDistanceTo(p math.Vec3) float32 {
	if l.Type == LightDirectional {
		return 0
	}
	return l.Position.DistanceSqr(p)
}
