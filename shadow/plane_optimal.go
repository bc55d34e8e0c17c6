package shadow

import (
	"slices"

	"github.com/chewxy/math32"

	"shadow-engine/core"
	"shadow-engine/math"
	"shadow-engine/scene"
)

// PlaneOptimalCameraSetup builds a projective shadow camera whose texels map
// one to one onto the main camera's pixels over a single receiver plane,
// such as a floor. Shadows on that plane get the best possible resolution.
type PlaneOptimalCameraSetup struct {
	Plane scene.Plane
}

func (s PlaneOptimalCameraSetup) ShadowCamera(ctx SetupContext, light *scene.Light, texCam *scene.Camera, _ int) {
	if !s.Solve(ctx.MainCamera, light, texCam) {
		// No valid map this frame; the previous frame's matrices must not
		// be projected onto the receivers.
		installCullEverything(texCam)
		core.Logger().Debug("shadow: plane-optimal setup aborted", "light", light.Name, "camera", texCam.Name)
	}
}

// Solve installs the plane-optimal view and projection on texCam. It returns
// false, leaving texCam untouched, when the visible part of the plane is
// too small to constrain the projection. When the plane is not visible at
// all, or the light is behind it, texCam gets a projection that culls
// everything.
func (s PlaneOptimalCameraSetup) Solve(cam *scene.Camera, light *scene.Light, texCam *scene.Camera) bool {
	hull := planeHull(cam, s.Plane)
	if len(hull) == 0 || lightBehindPlane(light, s.Plane) {
		installCullEverything(texCam)
		return true
	}
	if len(hull) < 4 {
		return false
	}

	m, ok := constrainedProjection(cam, light, s.Plane, hull)
	if !ok {
		return false
	}
	if light.Type == scene.LightDirectional {
		texCam.SetCustomViewMatrix(true, math.Mat4Identity())
		texCam.SetCustomProjectionMatrix(true, m)
		return true
	}
	view := math.Mat4Translation(light.Position.Negate()).Mul(texCam.Orientation.Conjugate().ToMat4())
	inv, ok := view.TryInverse()
	if !ok {
		return false
	}
	texCam.SetCustomViewMatrix(true, view)
	texCam.SetCustomProjectionMatrix(true, inv.Mul(m))
	return true
}

// installCullEverything maps every finite point to x/w = 2, outside the clip volume.
func installCullEverything(texCam *scene.Camera) {
	var m math.Mat4
	m[3][0] = 2
	m[3][3] = 1
	texCam.SetCustomViewMatrix(true, math.Mat4Identity())
	texCam.SetCustomProjectionMatrix(true, m)
}

func lightBehindPlane(light *scene.Light, p scene.Plane) bool {
	if light.Type == scene.LightDirectional {
		return p.Normal.Dot(light.DerivedDirection().Negate()) <= 0
	}
	return p.DistanceTo(light.Position) <= 0
}

var frustumEdges = [12][2]int{
	{0, 1}, {1, 2}, {2, 3}, {3, 0},
	{4, 5}, {5, 6}, {6, 7}, {7, 4},
	{0, 4}, {1, 5}, {2, 6}, {3, 7},
}

// planeHull returns the polygon where the plane cuts the camera frustum,
// ordered around its centroid.
func planeHull(cam *scene.Camera, p scene.Plane) []math.Vec3 {
	corners := cam.WorldCorners()
	var pts []math.Vec3
	for _, e := range frustumEdges {
		x, ok := p.IntersectSegment(corners[e[0]], corners[e[1]])
		if !ok {
			continue
		}
		dup := slices.ContainsFunc(pts, func(q math.Vec3) bool {
			return q.ApproxEqual(x, 1e-3*math32.Max(1, x.Length()))
		})
		if !dup {
			pts = append(pts, x)
		}
	}
	if len(pts) < 3 {
		return pts
	}

	var c math.Vec3
	for _, q := range pts {
		c = c.Add(q)
	}
	c = c.Div(float32(len(pts)))
	u := perpendicular(p.Normal)
	v := p.Normal.Cross(u)
	slices.SortFunc(pts, func(a, b math.Vec3) int {
		da, db := a.Sub(c), b.Sub(c)
		aa := math32.Atan2(da.Dot(v), da.Dot(u))
		ab := math32.Atan2(db.Dot(v), db.Dot(u))
		switch {
		case aa < ab:
			return -1
		case aa > ab:
			return 1
		}
		return 0
	})
	return pts
}

func perpendicular(n math.Vec3) math.Vec3 {
	axis := math.Vec3Right
	if math32.Abs(n.X) > 0.9 {
		axis = math.Vec3Up
	}
	return n.Cross(axis).Normalize()
}

// widestTriangle picks the three hull points spanning the largest area.
func widestTriangle(hull []math.Vec3) [3]math.Vec3 {
	best := [3]math.Vec3{hull[0], hull[1], hull[2]}
	bestArea := float32(-1)
	for i := 0; i < len(hull); i++ {
		for j := i + 1; j < len(hull); j++ {
			for k := j + 1; k < len(hull); k++ {
				a := hull[j].Sub(hull[i]).Cross(hull[k].Sub(hull[i])).LengthSqr()
				if a > bestArea {
					bestArea = a
					best = [3]math.Vec3{hull[i], hull[j], hull[k]}
				}
			}
		}
	}
	return best
}

type vec4d [4]float64

func toVec4d(v math.Vec3, w float32) vec4d {
	return vec4d{float64(v.X), float64(v.Y), float64(v.Z), float64(w)}
}

func (a vec4d) dot(b vec4d) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] + a[3]*b[3]
}

// nzind is the element of the w row fixed to 1 to pin the projective scale.
const nzind = 3

// directionalDepthRange is how far above the plane a directional light's
// casters may lie before they are depth clipped.
const directionalDepthRange = 10000

// constrainedProjection solves for the world-to-clip matrix with its centre
// of projection at the light that sends three plane points, and a fourth
// point lifted slightly toward the light, to the main camera's NDC
// positions of the plane points. Depth is +1 on the plane and reaches -1
// close to the light, so casters between the two are kept.
func constrainedProjection(cam *scene.Camera, light *scene.Light, plane scene.Plane, hull []math.Vec3) (math.Mat4, bool) {
	tri := widestTriangle(hull)
	base := tri[0].Add(tri[1]).Add(tri[2]).Div(3)

	var lifted, nearest math.Vec3
	if light.Type == scene.LightDirectional {
		toLight := light.DerivedDirection().Negate()
		lifted = base.Add(toLight)
		nearest = base.Add(toLight.Mul(directionalDepthRange))
	} else {
		d := math32.Abs(plane.DistanceTo(light.Position))
		lifted = base.Add(light.Position.Sub(base).Normalize().Mul(0.1 * d))
		nearest = base.Lerp(light.Position, 0.9)
	}

	var fpoints [4]vec4d
	var uv [4][2]float64
	for i, p := range [4]math.Vec3{tri[0], tri[1], tri[2], base} {
		ndc, ok := cam.ProjectToNDC(p)
		if !ok {
			return math.Mat4{}, false
		}
		uv[i] = [2]float64{float64(ndc.X), float64(ndc.Y)}
		fpoints[i] = toVec4d(p, 1)
	}
	fpoints[3] = toVec4d(lifted, 1)
	pinhole := toVec4d(light.As4D().ToVec3(), light.As4D().W)

	var a [11][11]float64
	var b [11]float64

	// The light is the centre of projection: rows x, y and w vanish on it.
	for k := 0; k < 4; k++ {
		a[0][k] = pinhole[k]
		a[1][4+k] = pinhole[k]
	}
	col := 8
	for k := 0; k < 4; k++ {
		if k == nzind {
			continue
		}
		a[2][col] = pinhole[k]
		col++
	}
	b[2] = -pinhole[nzind]

	// x·p = u·(w·p) and y·p = v·(w·p) for each constrained point.
	for i := 0; i < 4; i++ {
		p := fpoints[i]
		for k := 0; k < 4; k++ {
			a[3+i][4+k] = p[k]
			a[7+i][k] = p[k]
		}
		col := 8
		for k := 0; k < 4; k++ {
			if k == nzind {
				continue
			}
			a[3+i][col] = -uv[i][1] * p[k]
			a[7+i][col] = -uv[i][0] * p[k]
			col++
		}
		b[3+i] = uv[i][1] * p[nzind]
		b[7+i] = uv[i][0] * p[nzind]
	}

	sol, err := math.SolveDense(11, &a, &b)
	if err != nil {
		return math.Mat4{}, false
	}
	var rows [4]vec4d
	copy(rows[0][:], sol[0:4])
	copy(rows[1][:], sol[4:8])
	col = 8
	for k := 0; k < 4; k++ {
		if k == nzind {
			rows[3][k] = 1
			continue
		}
		rows[3][k] = sol[col]
		col++
	}

	// Depth row: the plane maps to +1 and the point nearest the light to -1.
	depthPoints := [4]vec4d{fpoints[0], fpoints[1], fpoints[2], toVec4d(nearest, 1)}
	var za [11][11]float64
	var zb [11]float64
	for i, p := range depthPoints {
		copy(za[i][:4], p[:])
		target := 1.0
		if i == 3 {
			target = -1
		}
		zb[i] = target * rows[3].dot(p)
	}
	zsol, err := math.SolveDense(4, &za, &zb)
	if err != nil {
		return math.Mat4{}, false
	}
	copy(rows[2][:], zsol[:4])

	// Keep w positive in front of the plane so clipping works.
	if rows[3].dot(toVec4d(base, 1)) < 0 {
		for r := range rows {
			for k := range rows[r] {
				rows[r][k] = -rows[r][k]
			}
		}
	}

	var m math.Mat4
	for r := 0; r < 4; r++ {
		for k := 0; k < 4; k++ {
			m[k][r] = float32(rows[r][k])
		}
	}
	return m, true
}
