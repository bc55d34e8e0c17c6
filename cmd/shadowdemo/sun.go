package main

import (
	"fmt"
	stdmath "math"

	"shadow-engine/core"
	"shadow-engine/engine"
	"shadow-engine/math"
	"shadow-engine/scene"
)

// sunKey is the light state at one time of day.
type sunKey struct {
	t       float32 // normalised time 0..1
	colour  core.Color
	ambient core.Color
}

// sunKeys are ordered by t and wrap (0 == 1).
var sunKeys = []sunKey{
	{t: 0.00, colour: core.Color{R: 1.00, G: 0.98, B: 0.92, A: 1}, ambient: core.Color{R: 0.20, G: 0.22, B: 0.28, A: 1}}, // noon
	{t: 0.22, colour: core.Color{R: 1.00, G: 0.65, B: 0.25, A: 1}, ambient: core.Color{R: 0.14, G: 0.14, B: 0.20, A: 1}}, // golden hour
	{t: 0.30, colour: core.Color{R: 0.70, G: 0.40, B: 0.55, A: 1}, ambient: core.Color{R: 0.08, G: 0.08, B: 0.14, A: 1}}, // dusk
	{t: 0.50, colour: core.Color{R: 0.40, G: 0.45, B: 0.65, A: 1}, ambient: core.Color{R: 0.04, G: 0.05, B: 0.10, A: 1}}, // moonlight
	{t: 0.70, colour: core.Color{R: 0.75, G: 0.42, B: 0.60, A: 1}, ambient: core.Color{R: 0.08, G: 0.08, B: 0.14, A: 1}}, // pre-dawn
}

// SunCycle swings the scene's directional light around the sky so that
// shadow volumes and shadow cameras change every frame.
type SunCycle struct {
	Time   float32 // 0..1: 0=noon, 0.25=sunset, 0.5=midnight, 0.75=sunrise
	Period float32 // full-cycle duration in seconds
	Active bool
}

func NewSunCycle() *SunCycle {
	return &SunCycle{Period: 60, Active: true}
}

func (sc *SunCycle) Update(dt float32) {
	if !sc.Active || sc.Period <= 0 {
		return
	}
	sc.Time += dt / sc.Period
	sc.Time -= float32(stdmath.Floor(float64(sc.Time)))
}

func lerpColor(a, b core.Color, t float32) core.Color {
	return core.Color{
		R: a.R + (b.R-a.R)*t,
		G: a.G + (b.G-a.G)*t,
		B: a.B + (b.B-a.B)*t,
		A: 1,
	}
}

// sample interpolates the keys around t.
func sample(t float32) sunKey {
	n := len(sunKeys)
	for i := range n {
		a, b := sunKeys[i], sunKeys[(i+1)%n]
		tb := b.t
		if i == n-1 {
			tb = 1
		}
		if t >= a.t && t < tb {
			f := (t - a.t) / (tb - a.t)
			return sunKey{t: t, colour: lerpColor(a.colour, b.colour, f), ambient: lerpColor(a.ambient, b.ambient, f)}
		}
	}
	return sunKeys[0]
}

// Direction returns the sun direction for the current time. At noon it
// points straight down, tilted slightly along Z.
func (sc *SunCycle) Direction() math.Vec3 {
	angle := float64(sc.Time * 2 * stdmath.Pi)
	return math.Vec3{
		X: float32(stdmath.Sin(angle)),
		Y: -float32(stdmath.Cos(angle)),
		Z: 0.35,
	}.Normalize()
}

// Apply pushes the current time's light state to the scene. sun may be nil.
func (sc *SunCycle) Apply(sm *engine.SceneManager, sun *scene.Light) {
	k := sample(sc.Time)
	sm.Ambient = k.ambient
	if sun == nil {
		return
	}
	sun.Direction = sc.Direction()
	sun.Diffuse = k.colour
	// Below the horizon the sun lights from underneath; stop it casting.
	sun.CastShadows = sun.Direction.Y < 0
}

// Label returns the time of day as a clock reading.
func (sc *SunCycle) Label() string {
	hours := sc.Time*24 + 12
	h := int(hours) % 24
	m := int((hours - float32(int(hours))) * 60)
	return fmt.Sprintf("%02d:%02d", h, m)
}
