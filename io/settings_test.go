package io

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shadow-engine/core"
	"shadow-engine/engine"
	"shadow-engine/internal/headless"
	"shadow-engine/renderer"
	"shadow-engine/scene"
	"shadow-engine/shadow"
)

func customSettings() ShadowSettings {
	s := DefaultSettings()
	s.Technique = "texture-additive"
	s.Colour = [4]float32{0.5, 0.4, 0.3, 1}
	s.FarDistance = 150
	s.Textures.Size = 1024
	s.Textures.Count = 3
	s.Textures.Format = "r32f"
	s.Textures.PerLight.Directional = 2
	s.Textures.FadeStart = 0.5
	s.Stencil.ExtrusionDistance = 500
	return s
}

func TestSettingsRoundTrip(t *testing.T) {
	for _, name := range []string{"shadows.toml", "shadows.yaml", "shadows.yml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			want := customSettings()
			require.NoError(t, SaveSettings(path, want))

			got, err := LoadSettings(path)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestLoadSettingsKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	toml := filepath.Join(dir, "partial.toml")
	require.NoError(t, os.WriteFile(toml, []byte("technique = \"stencil-additive\"\n[textures]\ncount = 4\n"), 0644))
	s, err := LoadSettings(toml)
	require.NoError(t, err)
	assert.Equal(t, "stencil-additive", s.Technique)
	assert.Equal(t, 4, s.Textures.Count)
	assert.Equal(t, 512, s.Textures.Size)
	assert.Equal(t, DefaultSettings().Stencil, s.Stencil)

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, nil, 0644))
	s, err = LoadSettings(empty)
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), s)
}

func TestLoadSettingsErrors(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(body), 0644))
		return p
	}

	_, err := LoadSettings(write("bad.toml", "technique = \"soft\"\n"))
	assert.ErrorIs(t, err, ErrInvalidSettings)
	assert.ErrorIs(t, err, shadow.ErrInvalidTechnique)

	_, err = LoadSettings(write("fade.yaml", "textures:\n  fade_start: 0.9\n  fade_end: 0.2\n"))
	assert.ErrorIs(t, err, ErrInvalidSettings)

	_, err = LoadSettings(write("format.toml", "[textures]\nformat = \"bgr5\"\n"))
	var unknown *renderer.UnknownValueError
	assert.ErrorAs(t, err, &unknown)

	_, err = LoadSettings(write("typo.toml", "tecnique = \"none\"\n"))
	assert.Error(t, err, "unknown keys are rejected")

	_, err = LoadSettings(write("shadows.json", "{}"))
	assert.ErrorIs(t, err, ErrInvalidSettings)

	_, err = LoadSettings(filepath.Join(dir, "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestApplySettings(t *testing.T) {
	sm := engine.NewSceneManager("s", headless.New(headless.FullCapabilities()), nil)
	r := sm.Shadows()
	require.NoError(t, customSettings().Apply(r))

	assert.Equal(t, shadow.TextureAdditive, r.Technique())
	assert.Equal(t, core.Color{R: 0.5, G: 0.4, B: 0.3, A: 1}, r.Colour())
	assert.Equal(t, float32(150), r.FarDistance())
	assert.Equal(t, float32(500), r.DirectionalExtrusionDistance())
	assert.Equal(t, 2, r.TextureCountPerLightType(scene.LightDirectional))
	assert.Equal(t, 1, r.TextureCountPerLightType(scene.LightSpot))

	cfgs := r.TextureConfigs()
	require.Len(t, cfgs, 3)
	for _, c := range cfgs {
		assert.Equal(t, shadow.TextureConfig{Width: 1024, Height: 1024, Format: renderer.PixelFormatR32F, DepthPoolID: 1}, c)
	}

	bad := customSettings()
	bad.Textures.Size = 0
	assert.ErrorIs(t, bad.Apply(r), ErrInvalidSettings)
	assert.Len(t, r.TextureConfigs(), 3, "invalid settings change nothing")
}

func TestApplyStencilWithoutStencilBuffer(t *testing.T) {
	caps := headless.FullCapabilities()
	caps.HWStencil = false
	sm := engine.NewSceneManager("s", headless.New(caps), nil)

	s := DefaultSettings()
	s.Technique = "stencil-modulative"
	require.NoError(t, s.Apply(sm.Shadows()))
	assert.Equal(t, shadow.None, sm.Shadows().Technique())
}

// waitReload receives reloads until ok accepts one.
func waitReload(t *testing.T, ch <-chan Reload, ok func(Reload) bool) Reload {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case r, open := <-ch:
			require.True(t, open, "watch channel closed")
			if ok(r) {
				return r
			}
		case <-timeout:
			t.Fatal("no matching reload")
		}
	}
}

func TestWatchReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shadows.toml")
	require.NoError(t, SaveSettings(path, DefaultSettings()))

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := Watch(ctx, path)
	require.NoError(t, err)

	want := customSettings()
	require.NoError(t, SaveSettings(path, want))
	got := waitReload(t, ch, func(r Reload) bool { return r.Err == nil && r.Settings.Technique == want.Technique })
	assert.Equal(t, want, got.Settings)

	require.NoError(t, os.WriteFile(path, []byte("technique = \"soft\"\n"), 0644))
	got = waitReload(t, ch, func(r Reload) bool { return errors.Is(r.Err, shadow.ErrInvalidTechnique) })
	assert.ErrorIs(t, got.Err, ErrInvalidSettings)

	cancel()
	for range ch {
	}
}

func TestWatchRejectsUnknownFormat(t *testing.T) {
	_, err := Watch(context.Background(), filepath.Join(t.TempDir(), "shadows.ini"))
	assert.ErrorIs(t, err, ErrInvalidSettings)
}
