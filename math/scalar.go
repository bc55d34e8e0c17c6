package math

import "github.com/chewxy/math32"

const (
	Pi      = math32.Pi
	Epsilon = 1e-6
)

func Radians(degrees float32) float32 {
	return degrees * Pi / 180
}

func Degrees(radians float32) float32 {
	return radians * 180 / Pi
}

func Clamp(v, lo, hi float32) float32 {
	return math32.Max(lo, math32.Min(hi, v))
}

// SnapDown removes the fractional multiple of step from v, truncating toward zero.
func SnapDown(v, step float32) float32 {
	if step <= 0 {
		return v
	}
	return v - math32.Mod(v, step)
}
