package io

import (
	"bytes"
	"errors"
	"fmt"
	stdio "io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"shadow-engine/renderer"
	"shadow-engine/scene"
	"shadow-engine/shadow"
)

// ErrInvalidSettings is wrapped by every validation failure.
var ErrInvalidSettings = errors.New("io: invalid shadow settings")

// ShadowSettings is the on-disk form of a shadow renderer configuration.
type ShadowSettings struct {
	Technique   string          `toml:"technique" yaml:"technique"`
	Colour      [4]float32      `toml:"colour" yaml:"colour"`
	FarDistance float32         `toml:"far_distance" yaml:"far_distance"`
	Debug       bool            `toml:"debug" yaml:"debug"`
	Textures    TextureSettings `toml:"textures" yaml:"textures"`
	Stencil     StencilSettings `toml:"stencil" yaml:"stencil"`
}

type TextureSettings struct {
	Size      int    `toml:"size" yaml:"size"`
	Count     int    `toml:"count" yaml:"count"`
	Format    string `toml:"format" yaml:"format"`
	FSAA      uint   `toml:"fsaa" yaml:"fsaa"`
	DepthPool uint16 `toml:"depth_pool" yaml:"depth_pool"`

	// PerLight is the number of consecutive textures a light type uses.
	PerLight PerLightCounts `toml:"per_light" yaml:"per_light"`

	DirectionalOffset float32 `toml:"directional_offset" yaml:"directional_offset"`
	FadeStart         float32 `toml:"fade_start" yaml:"fade_start"`
	FadeEnd           float32 `toml:"fade_end" yaml:"fade_end"`
}

type PerLightCounts struct {
	Point       int `toml:"point" yaml:"point"`
	Directional int `toml:"directional" yaml:"directional"`
	Spot        int `toml:"spot" yaml:"spot"`
}

type StencilSettings struct {
	ExtrusionDistance float32 `toml:"extrusion_distance" yaml:"extrusion_distance"`
	IndexBufferSize   int     `toml:"index_buffer_size" yaml:"index_buffer_size"`
	InfiniteFarPlane  bool    `toml:"infinite_far_plane" yaml:"infinite_far_plane"`
	AdditiveLightClip bool    `toml:"additive_light_clip" yaml:"additive_light_clip"`
}

// DefaultSettings returns the settings of a freshly created renderer.
func DefaultSettings() ShadowSettings {
	tex := shadow.DefaultTextureConfig()
	return ShadowSettings{
		Technique: shadow.None.String(),
		Colour:    ColorToArray(shadow.DefaultColour),
		Textures: TextureSettings{
			Size:              tex.Width,
			Count:             1,
			Format:            tex.Format.String(),
			FSAA:              tex.FSAA,
			DepthPool:         tex.DepthPoolID,
			PerLight:          PerLightCounts{Point: 1, Directional: 1, Spot: 1},
			DirectionalOffset: shadow.DefaultDirectionalTextureOffset,
			FadeStart:         shadow.DefaultTextureFadeStart,
			FadeEnd:           shadow.DefaultTextureFadeEnd,
		},
		Stencil: StencilSettings{
			ExtrusionDistance: shadow.DefaultExtrusionDistance,
			IndexBufferSize:   shadow.DefaultIndexBufferSize,
			InfiniteFarPlane:  true,
		},
	}
}

// Validate checks the values Apply cannot clamp on its own.
func (s ShadowSettings) Validate() error {
	if _, err := shadow.ParseTechnique(s.Technique); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}
	if _, err := renderer.ParsePixelFormat(s.Textures.Format); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}
	t := s.Textures
	switch {
	case t.Size <= 0:
		return fmt.Errorf("%w: texture size %d", ErrInvalidSettings, t.Size)
	case t.Count < 0:
		return fmt.Errorf("%w: texture count %d", ErrInvalidSettings, t.Count)
	case t.FadeStart < 0 || t.FadeEnd > 1 || t.FadeStart > t.FadeEnd:
		return fmt.Errorf("%w: fade range [%g, %g]", ErrInvalidSettings, t.FadeStart, t.FadeEnd)
	case s.Stencil.IndexBufferSize <= 0:
		return fmt.Errorf("%w: index buffer size %d", ErrInvalidSettings, s.Stencil.IndexBufferSize)
	}
	return nil
}

// Apply validates s and pushes it into r. The technique is switched last,
// so that its resources are built with the new sizes.
func (s ShadowSettings) Apply(r *shadow.Renderer) error {
	if err := s.Validate(); err != nil {
		return err
	}
	tech, _ := shadow.ParseTechnique(s.Technique)
	format, _ := renderer.ParsePixelFormat(s.Textures.Format)

	r.SetColour(ArrayToColor(s.Colour))
	r.SetFarDistance(s.FarDistance)
	r.SetShowDebugShadows(s.Debug)

	t := s.Textures
	r.SetTextureSettings(t.Size, t.Count, format, t.FSAA, t.DepthPool)
	r.SetTextureCountPerLightType(scene.LightPoint, t.PerLight.Point)
	r.SetTextureCountPerLightType(scene.LightDirectional, t.PerLight.Directional)
	r.SetTextureCountPerLightType(scene.LightSpot, t.PerLight.Spot)
	r.SetDirectionalTextureOffset(t.DirectionalOffset)
	r.SetTextureFadeStart(t.FadeStart)
	r.SetTextureFadeEnd(t.FadeEnd)

	st := s.Stencil
	r.SetDirectionalExtrusionDistance(st.ExtrusionDistance)
	r.SetUseInfiniteFarPlane(st.InfiniteFarPlane)
	r.SetAdditiveLightClip(st.AdditiveLightClip)
	if err := r.SetIndexBufferSize(st.IndexBufferSize); err != nil {
		return fmt.Errorf("failed to apply shadow settings: %w", err)
	}

	if err := r.SetTechnique(tech); err != nil {
		return fmt.Errorf("failed to apply shadow settings: %w", err)
	}
	return nil
}

type settingsFormat int

const (
	formatTOML settingsFormat = iota
	formatYAML
)

func formatOf(path string) (settingsFormat, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return formatTOML, nil
	case ".yaml", ".yml":
		return formatYAML, nil
	}
	return 0, fmt.Errorf("%w: unsupported file type %q", ErrInvalidSettings, filepath.Ext(path))
}

// LoadSettings reads a .toml, .yaml or .yml settings file. Keys missing from
// the file keep their DefaultSettings values.
func LoadSettings(path string) (ShadowSettings, error) {
	f, err := formatOf(path)
	if err != nil {
		return ShadowSettings{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ShadowSettings{}, fmt.Errorf("failed to read settings: %w", err)
	}
	return decodeSettings(data, f)
}

func decodeSettings(data []byte, f settingsFormat) (ShadowSettings, error) {
	s := DefaultSettings()
	var err error
	switch f {
	case formatTOML:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&s)
	case formatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err = dec.Decode(&s); errors.Is(err, stdio.EOF) {
			err = nil
		}
	}
	if err != nil {
		return ShadowSettings{}, fmt.Errorf("failed to parse settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return ShadowSettings{}, err
	}
	return s, nil
}

// SaveSettings writes s in the format chosen by the file extension.
func SaveSettings(path string, s ShadowSettings) error {
	f, err := formatOf(path)
	if err != nil {
		return err
	}
	var data []byte
	switch f {
	case formatTOML:
		data, err = toml.Marshal(s)
	case formatYAML:
		data, err = yaml.Marshal(s)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
