package shadow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shadow-engine/internal/headless"
	"shadow-engine/renderer"
	"shadow-engine/scene"
)

func TestConfigDirtyIdempotence(t *testing.T) {
	r, rs, _ := newTestRenderer(t, headless.FullCapabilities())
	require.NoError(t, r.ensureTexturesCreated())
	require.False(t, r.dirty)
	created := rs.Count(headless.OpCreateTexture)

	r.SetTextureSize(512)
	r.SetTexturePixelFormat(renderer.PixelFormatRGBA8)
	r.SetTextureFSAA(0)
	r.SetTextureCount(1)
	require.NoError(t, r.SetTextureConfig(0, DefaultTextureConfig()))
	assert.False(t, r.dirty, "identical values must not dirty the pool")

	r.SetTextureSize(1024)
	assert.True(t, r.dirty)
	r.SetTextureSize(1024)
	r.SetTextureSize(1024)
	require.NoError(t, r.ensureTexturesCreated())
	assert.False(t, r.dirty)
	assert.Equal(t, created+1, rs.Count(headless.OpCreateTexture), "one rebuild")

	r.SetTextureSize(1024)
	assert.False(t, r.dirty)
}

func TestConfigResizeRoundTrip(t *testing.T) {
	r, _, _ := newTestRenderer(t, headless.FullCapabilities())
	r.SetTextureCount(2)
	require.NoError(t, r.SetTextureConfig(0, TextureConfig{Width: 256, Height: 256, Format: renderer.PixelFormatR32F, DepthPoolID: 1}))
	require.NoError(t, r.SetTextureConfig(1, TextureConfig{Width: 1024, Height: 512, Format: renderer.PixelFormatRGBA8, FSAA: 4, DepthPoolID: 2}))
	original := r.TextureConfigs()

	r.SetTextureCount(5)
	grown := r.TextureConfigs()
	require.Len(t, grown, 5)
	assert.Equal(t, original, grown[:2])
	for i := 2; i < 5; i++ {
		assert.Equal(t, original[1], grown[i])
	}

	// Configs are values: editing a clone later does not touch the first ones.
	require.NoError(t, r.SetTextureConfig(3, TextureConfig{Width: 64, Height: 64}))
	r.SetTextureCount(2)
	assert.Equal(t, original, r.TextureConfigs())

	grown[0].Width = 1
	assert.Equal(t, original, r.TextureConfigs(), "TextureConfigs returns a copy")
}

func TestConfigInvalidSlot(t *testing.T) {
	r, _, _ := newTestRenderer(t, headless.FullCapabilities())
	assert.ErrorIs(t, r.SetTextureConfig(1, DefaultTextureConfig()), ErrInvalidSlot)
	assert.ErrorIs(t, r.SetTextureConfig(-1, DefaultTextureConfig()), ErrInvalidSlot)

	_, err := r.Texture(3)
	assert.ErrorIs(t, err, ErrInvalidSlot)

	tex, err := r.Texture(0)
	require.NoError(t, err)
	assert.Equal(t, 512, tex.Width)
	assert.False(t, tex.AutoUpdated)
	require.Len(t, tex.Viewports(), 1)
	vp := tex.Viewport(0)
	assert.True(t, vp.ClearEveryFrame)
	assert.False(t, vp.OverlaysEnabled)

	cam, err := r.TextureCamera(0)
	require.NoError(t, err)
	assert.Same(t, cam, vp.Camera)
	assert.NotNil(t, cam.Culling)
}

func TestTextureCountPerLightType(t *testing.T) {
	r, _, _ := newTestRenderer(t, headless.FullCapabilities())
	assert.Equal(t, 1, r.TextureCountPerLightType(scene.LightSpot))
	r.SetTextureCountPerLightType(scene.LightDirectional, 3)
	assert.Equal(t, 3, r.TextureCountPerLightType(scene.LightDirectional))
	r.SetTextureCountPerLightType(scene.LightPoint, 0)
	assert.Equal(t, 1, r.TextureCountPerLightType(scene.LightPoint), "at least one slot")
	assert.Equal(t, 0, r.TextureCountPerLightType(scene.LightType(7)))
}

func TestTextureCreationFailure(t *testing.T) {
	rs := headless.New(headless.FullCapabilities(), headless.WithTextureFailure())
	r := NewRenderer("fail", rs, newTestHost(), nil)
	_, err := r.Texture(0)
	require.ErrorIs(t, err, ErrTextureCreate)
	assert.True(t, r.dirty, "a failed build is retried")
}
