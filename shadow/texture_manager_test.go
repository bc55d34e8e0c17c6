package shadow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shadow-engine/internal/headless"
	"shadow-engine/math"
	"shadow-engine/renderer"
	"shadow-engine/scene"
)

func TestTextureManagerSharing(t *testing.T) {
	rs := headless.New(headless.FullCapabilities())
	m := NewTextureManager(rs)
	a, b := "sceneA", "sceneB"
	cfg := DefaultTextureConfig()

	ta, err := m.Acquire(a, []TextureConfig{cfg, cfg})
	require.NoError(t, err)
	require.Len(t, ta, 2)
	assert.NotSame(t, ta[0], ta[1], "one owner never gets the same texture twice in a request")

	tb, err := m.Acquire(b, []TextureConfig{cfg})
	require.NoError(t, err)
	assert.Same(t, ta[0], tb[0], "compatible textures are shared across owners")
	assert.Equal(t, 2, rs.LiveTextures())

	other := cfg
	other.Format = renderer.PixelFormatR32F
	tc, err := m.Acquire(b, []TextureConfig{other})
	require.NoError(t, err)
	assert.NotSame(t, ta[0], tc[0])
	assert.Equal(t, 3, m.Len())

	m.Release(a, ta)
	assert.Equal(t, 1, m.ClearUnused(), "only the texture nobody holds goes")
	assert.Equal(t, 2, rs.LiveTextures())

	m.Release(b, tb)
	m.Release(b, tc)
	assert.Equal(t, 2, m.ClearUnused())
	assert.Zero(t, rs.LiveTextures())
	assert.Zero(t, m.Len())
}

func TestTextureManagerRollback(t *testing.T) {
	rs := headless.New(headless.FullCapabilities(), headless.WithTextureFailure())
	m := NewTextureManager(rs)
	_, err := m.Acquire("owner", []TextureConfig{DefaultTextureConfig()})
	require.ErrorIs(t, err, ErrTextureCreate)
	assert.Zero(t, m.Len())
}

func TestRenderersShareTextures(t *testing.T) {
	rs := headless.New(headless.FullCapabilities())
	m := NewTextureManager(rs)
	r1 := NewRenderer("one", rs, newTestHost(), m)
	r2 := NewRenderer("two", rs, newTestHost(), m)

	t1, err := r1.Texture(0)
	require.NoError(t, err)
	t2, err := r2.Texture(0)
	require.NoError(t, err)
	assert.Same(t, t1, t2)
	assert.Equal(t, 1, rs.LiveTextures())

	require.NoError(t, r1.SetTechnique(StencilModulative))
	assert.Equal(t, 1, rs.LiveTextures(), "still held by the other renderer")
	require.NoError(t, r2.SetTechnique(None))
	assert.Zero(t, rs.LiveTextures())
}

func TestSharedTextureRendersForItsPreparer(t *testing.T) {
	rs := headless.New(headless.FullCapabilities())
	m := NewTextureManager(rs)
	h1, h2 := newTestHost(), newTestHost()
	r1 := NewRenderer("one", rs, h1, m)
	r2 := NewRenderer("two", rs, h2, m)
	require.NoError(t, r1.SetTechnique(TextureModulative))
	require.NoError(t, r2.SetTechnique(TextureModulative))

	t1, err := r1.Texture(0)
	require.NoError(t, err)
	t2, err := r2.Texture(0)
	require.NoError(t, err)
	require.Same(t, t1, t2)
	assert.Len(t, t1.Viewports(), 1, "one viewport serves both renderers")

	var cams []*scene.Camera
	record := func(vp *renderer.Viewport) { cams = append(cams, vp.Camera) }
	h1.onRender, h2.onRender = record, record

	sun := scene.NewLight("sun", scene.LightDirectional)
	sun.Direction = math.Vec3Down
	frame := testFrame()
	lights := []*scene.Light{sun}

	require.NoError(t, r1.PrepareShadowTextures(frame.Camera, frame.Viewport, lights))
	cam1, err := r1.TextureCamera(0)
	require.NoError(t, err)
	assert.Len(t, h1.rendered, 1)
	assert.Empty(t, h2.rendered)
	assert.Equal(t, []*scene.Camera{cam1}, cams)

	require.NoError(t, r2.PrepareShadowTextures(frame.Camera, frame.Viewport, lights))
	cam2, err := r2.TextureCamera(0)
	require.NoError(t, err)
	assert.Len(t, h1.rendered, 1)
	assert.Len(t, h2.rendered, 1)
	assert.Equal(t, []*scene.Camera{cam1, cam2}, cams)

	// Dropping the pool in one renderer leaves the other's texture working.
	require.NoError(t, r1.SetTechnique(StencilModulative))
	assert.Len(t, t2.Viewports(), 1)
	require.NoError(t, r2.PrepareShadowTextures(frame.Camera, frame.Viewport, lights))
	assert.Len(t, h2.rendered, 2)
	assert.Len(t, h1.rendered, 1)
}
