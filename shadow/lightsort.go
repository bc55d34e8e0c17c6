package shadow

import (
	"cmp"
	"slices"

	"shadow-engine/math"
	"shadow-engine/scene"
)

// SortLights orders lights for shadow processing: shadow casters first,
// then by squared distance from pos. Directional lights count as distance
// zero. The sort is stable, so equal lights keep their relative order.
func SortLights(lights []*scene.Light, pos math.Vec3) {
	slices.SortStableFunc(lights, func(a, b *scene.Light) int {
		if a.CastShadows != b.CastShadows {
			if a.CastShadows {
				return -1
			}
			return 1
		}
		return cmp.Compare(a.SquaredDistanceTo(pos), b.SquaredDistanceTo(pos))
	})
}
