package renderer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shadow-engine/scene"
)

func TestIndexBufferGrowsAndResets(t *testing.T) {
	b := NewIndexBuffer(4)
	assert.Equal(t, 0, b.Append(1, 2, 3))
	start := b.Append(4, 5, 6)
	assert.Equal(t, 3, start)
	assert.Equal(t, 8, b.Capacity())
	assert.Equal(t, []uint32{4, 5, 6}, b.Slice(start, 3))

	b.Reset()
	assert.Equal(t, 0, b.Used())
	assert.Equal(t, 8, b.Capacity(), "reset never shrinks")
	assert.Equal(t, 0, b.Append(7))
}

func TestIndexBufferFromEmpty(t *testing.T) {
	b := NewIndexBuffer(0)
	b.Append(1, 2, 3, 4, 5)
	assert.GreaterOrEqual(t, b.Capacity(), 5)
	assert.Equal(t, []uint32{1, 2, 3, 4, 5}, b.Slice(0, 5))
}

type countingSource struct{ calls []*Viewport }

func (s *countingSource) RenderViewport(vp *Viewport) { s.calls = append(s.calls, vp) }

func TestRenderTextureUpdate(t *testing.T) {
	tex := &RenderTexture{Name: "rt", Width: 256, Height: 128}
	src := &countingSource{}
	vp := tex.AddViewport(scene.NewCamera("c"))
	vp.Source = src

	assert.Equal(t, 256, vp.ActualWidth)
	assert.Same(t, tex, vp.Target)

	tex.Update()
	tex.Update()
	require.Len(t, src.calls, 2)
	assert.Same(t, vp, src.calls[0])

	assert.True(t, tex.Compatible(256, 128, PixelFormatRGBA8, 0, 0))
	assert.False(t, tex.Compatible(256, 256, PixelFormatRGBA8, 0, 0))
}

func TestParsePixelFormat(t *testing.T) {
	f, err := ParsePixelFormat("r32f")
	require.NoError(t, err)
	assert.Equal(t, PixelFormatR32F, f)

	_, err = ParsePixelFormat("bogus")
	var uv *UnknownValueError
	assert.ErrorAs(t, err, &uv)
}
