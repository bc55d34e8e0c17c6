package shadow

import (
	"github.com/chewxy/math32"

	"shadow-engine/math"
	"shadow-engine/scene"
)

// SetupContext is what a camera setup may read about the frame being shadowed.
type SetupContext struct {
	MainCamera     *scene.Camera
	ViewportWidth  int
	ViewportHeight int

	DirectionalExtrusionDistance float32
	DirectionalTextureOffset     float32
	// ShadowFarDistance is the renderer default; zero means unset.
	ShadowFarDistance float32

	// VisibleBounds returns the bounds of what cam saw when it last rendered.
	VisibleBounds func(cam *scene.Camera) scene.AABB
}

// CameraSetup positions and projects the camera that renders a shadow texture.
type CameraSetup interface {
	ShadowCamera(ctx SetupContext, light *scene.Light, texCam *scene.Camera, iteration int)
}

// CameraSetupFunc adapts a function to CameraSetup.
type CameraSetupFunc func(ctx SetupContext, light *scene.Light, texCam *scene.Camera, iteration int)

func (f CameraSetupFunc) ShadowCamera(ctx SetupContext, light *scene.Light, texCam *scene.Camera, iteration int) {
	f(ctx, light, texCam, iteration)
}

const (
	maxSpotFOV  = 175 * math.Pi / 180
	pointFOV    = 120 * math.Pi / 180
	spotFOVGrow = 1.2
)

// WorldTexelSize is the world-space snapping step for directional shadow
// cameras, which keeps the shadow map from crawling as the camera moves.
func WorldTexelSize(near float32, viewportWidth int) float32 {
	if viewportWidth <= 0 {
		return 0
	}
	return near * 20 / float32(viewportWidth)
}

// shadowDistance resolves how far from the camera texture shadows reach.
func shadowDistance(ctx SetupContext, light *scene.Light) float32 {
	if light.ShadowFarDistance > 0 {
		return light.ShadowFarDistance
	}
	if ctx.ShadowFarDistance > 0 {
		return ctx.ShadowFarDistance
	}
	return ctx.MainCamera.Near * 300
}

// DefaultCameraSetup fits a uniform shadow frustum to the light: an
// orthographic box following the camera for directional lights, the spot
// cone for spot lights and a wide frustum aimed along the view for point
// lights.
type DefaultCameraSetup struct{}

func (DefaultCameraSetup) ShadowCamera(ctx SetupContext, light *scene.Light, texCam *scene.Camera, _ int) {
	cam := ctx.MainCamera

	texCam.SetCustomViewMatrix(false, math.Mat4{})
	texCam.SetCustomProjectionMatrix(false, math.Mat4{})
	texCam.Near = light.ShadowNearClip(cam)
	texCam.Far = light.ShadowFarClip(cam)

	var pos, dir math.Vec3
	switch light.Type {
	case scene.LightDirectional:
		texCam.Projection = scene.ProjectionOrthographic
		dist := shadowDistance(ctx, light)
		texCam.SetOrthoWindow(dist*2, dist*2)

		// Centre the box a little in front of the camera.
		target := cam.Position.Add(cam.Direction().Mul(dist * ctx.DirectionalTextureOffset))
		dir = light.DerivedDirection().Negate()
		pos = target.Add(dir.Mul(ctx.DirectionalExtrusionDistance))

		texel := WorldTexelSize(texCam.Near, ctx.ViewportWidth)
		pos.X = math.SnapDown(pos.X, texel)
		pos.Y = math.SnapDown(pos.Y, texel)
		pos.Z = math.SnapDown(pos.Z, texel)

	case scene.LightSpot:
		texCam.Projection = scene.ProjectionPerspective
		texCam.FOVy = math32.Min(light.SpotOuter*spotFOVGrow, maxSpotFOV)
		pos = light.Position
		dir = light.DerivedDirection().Negate()

	case scene.LightPoint:
		texCam.Projection = scene.ProjectionPerspective
		texCam.FOVy = pointFOV
		pos = light.Position
		dist := shadowDistance(ctx, light)
		target := cam.Position.Add(cam.Direction().Mul(dist * ctx.DirectionalTextureOffset))
		dir = pos.Sub(target).Normalize()
	}

	texCam.Position = pos
	texCam.Orientation = orientationFromBackward(dir)
}

// orientationFromBackward builds an orientation whose local +Z is along
// back, which need not be unit length.
func orientationFromBackward(back math.Vec3) math.Quaternion {
	if back.LengthSqr() == 0 {
		return math.QuaternionIdentity()
	}
	back = back.Normalize()
	up := math.Vec3Up
	if math32.Abs(up.Dot(back)) >= 1-1e-4 {
		up = math.Vec3Front
	}
	left := back.Cross(up).Normalize()
	up = back.Cross(left).Normalize()
	return math.QuaternionFromAxes(left, up, back)
}
