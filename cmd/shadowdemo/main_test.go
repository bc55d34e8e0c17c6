package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shadow-engine/engine"
	"shadow-engine/internal/headless"
	"shadow-engine/io"
	"shadow-engine/scene"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestBenchStencil(t *testing.T) {
	out, err := execute(t, "bench", "--frames", "3", "--technique", "stencil-additive")
	require.NoError(t, err)
	assert.Contains(t, out, "technique stencil-additive, 2 entities, 1 lights")
	assert.Contains(t, out, "mean")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 1+1+3+1, "summary, header, frames, mean")
	assert.Contains(t, lines[1], "render")
	assert.Contains(t, lines[1], "stencil-params")
}

func TestBenchTextureDump(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dump")
	out, err := execute(t, "bench", "-n", "1", "-t", "texture-modulative", "--dump", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+filepath.Join(dir, "shadow0.png"))
	assert.FileExists(t, filepath.Join(dir, "shadow0.png"))
}

func TestBenchWithSceneAndSettings(t *testing.T) {
	dir := t.TempDir()
	scenePath := filepath.Join(dir, "room.scene.toml")
	require.NoError(t, io.SaveScene(scenePath, io.NewDefaultSceneFile("room")))

	settings := io.DefaultSettings()
	settings.Technique = "texture-additive"
	settingsPath := filepath.Join(dir, "shadows.yaml")
	require.NoError(t, io.SaveSettings(settingsPath, settings))

	out, err := execute(t, "bench", "-n", "1", "-c", scenePath, "-s", settingsPath)
	require.NoError(t, err)
	assert.Contains(t, out, "technique texture-additive")

	out, err = execute(t, "bench", "-n", "1", "-s", settingsPath, "-t", "none")
	require.NoError(t, err)
	assert.Contains(t, out, "technique none", "the flag overrides the file")
}

func TestBenchNoStencilFallsBack(t *testing.T) {
	out, err := execute(t, "bench", "-n", "1", "--no-stencil", "-t", "stencil-modulative")
	require.NoError(t, err)
	assert.Contains(t, out, "technique none")
}

func TestBenchErrors(t *testing.T) {
	_, err := execute(t, "bench", "-t", "soft")
	assert.Error(t, err)

	_, err = execute(t, "bench", "-n", "0")
	assert.Error(t, err)

	_, err = execute(t, "bench", "-c", filepath.Join(t.TempDir(), "missing.scene.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = execute(t, "bench", "-m", filepath.Join(t.TempDir(), "missing.glb"))
	assert.Error(t, err)
}

func TestRunNeedsSettingsToWatch(t *testing.T) {
	_, err := execute(t, "run", "--watch")
	assert.ErrorContains(t, err, "--watch needs --settings")
}

func TestSunCycle(t *testing.T) {
	sc := NewSunCycle()
	assert.Less(t, sc.Direction().Y, float32(-0.9), "noon is overhead")
	assert.Equal(t, "12:00", sc.Label())

	sc.Update(sc.Period / 2)
	assert.InDelta(t, 0.5, sc.Time, 1e-6)
	assert.Equal(t, "00:00", sc.Label())

	sun := scene.NewLight("sun", scene.LightDirectional)
	sc.Apply(engine.NewSceneManager("sun", headless.New(headless.FullCapabilities()), nil), sun)
	assert.False(t, sun.CastShadows, "the sun below the horizon casts nothing")

	sc.Update(sc.Period * 0.75)
	assert.InDelta(t, 0.25, sc.Time, 1e-5, "wraps")
}
