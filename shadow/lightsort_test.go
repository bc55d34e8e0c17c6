package shadow

import (
	"fmt"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"

	"shadow-engine/math"
	"shadow-engine/scene"
)

func TestSortLightsCastersFirst(t *testing.T) {
	origin := math.Vec3Zero
	var lights []*scene.Light
	for i := 0; i < 12; i++ {
		l := pointLight(fmt.Sprintf("l%d", i), math.Vec3{X: float32(i % 3)})
		l.CastShadows = i%2 == 0
		lights = append(lights, l)
	}
	sun := scene.NewLight("sun", scene.LightDirectional)
	sun.CastShadows = false
	lights = append(lights, sun)

	sorted := slices.Clone(lights)
	SortLights(sorted, origin)

	// Reference: stable partition by casting, then stable by distance.
	rank := func(l *scene.Light) (int, float32) {
		c := 1
		if l.CastShadows {
			c = 0
		}
		return c, l.SquaredDistanceTo(origin)
	}
	want := slices.Clone(lights)
	slices.SortStableFunc(want, func(a, b *scene.Light) int {
		ca, da := rank(a)
		cb, db := rank(b)
		if ca != cb {
			return ca - cb
		}
		switch {
		case da < db:
			return -1
		case da > db:
			return 1
		}
		return 0
	})
	assert.Equal(t, want, sorted)

	seenNonCaster := false
	for _, l := range sorted {
		if !l.CastShadows {
			seenNonCaster = true
			continue
		}
		assert.False(t, seenNonCaster, "caster %s after a non-caster", l.Name)
	}
}

func TestSortLightsEqualRankKeepsOrder(t *testing.T) {
	var lights []*scene.Light
	for i := 0; i < 5; i++ {
		lights = append(lights, pointLight(fmt.Sprintf("same%d", i), math.Vec3{X: 1}))
	}
	sorted := slices.Clone(lights)
	SortLights(sorted, math.Vec3Zero)
	assert.Equal(t, lights, sorted)
}
