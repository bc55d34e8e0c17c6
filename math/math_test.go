package math

import (
	"math"
	"testing"
)

func TestVec3Operations(t *testing.T) {
	v1 := NewVec3(1, 2, 3)
	v2 := NewVec3(4, 5, 6)

	result := v1.Add(v2)
	expected := NewVec3(5, 7, 9)
	if result != expected {
		t.Errorf("Add: expected %v, got %v", expected, result)
	}

	result = v2.Sub(v1)
	expected = NewVec3(3, 3, 3)
	if result != expected {
		t.Errorf("Sub: expected %v, got %v", expected, result)
	}

	dot := v1.Dot(v2)
	if dot != 32 {
		t.Errorf("Dot: expected 32, got %v", dot)
	}

	// Right x Up = Front in a right-handed system
	cross := Vec3Right.Cross(Vec3Up)
	if cross != Vec3Front {
		t.Errorf("Cross: expected %v, got %v", Vec3Front, cross)
	}

	if got := v1.Min(NewVec3(0, 5, 3)); got != NewVec3(0, 2, 3) {
		t.Errorf("Min: got %v", got)
	}
	if got := v1.Max(NewVec3(0, 5, 3)); got != NewVec3(1, 5, 3) {
		t.Errorf("Max: got %v", got)
	}
}

func TestVec3Normalize(t *testing.T) {
	normalized := NewVec3(3, 0, 0).Normalize()
	if normalized != NewVec3(1, 0, 0) {
		t.Errorf("Normalize: expected (1,0,0), got %v", normalized)
	}
	if zero := Vec3Zero.Normalize(); zero != Vec3Zero {
		t.Errorf("Normalize: zero vector should stay zero, got %v", zero)
	}
}

func TestMat4Translation(t *testing.T) {
	translation := NewVec3(1, 2, 3)
	m := Mat4Translation(translation)

	result := NewVec4(0, 0, 0, 1).MulMat(m)
	if result.ToVec3() != translation {
		t.Errorf("Translation: expected %v, got %v", translation, result.ToVec3())
	}
	if dir := m.TransformDirection(Vec3Up); dir != Vec3Up {
		t.Errorf("TransformDirection: translation must not move directions, got %v", dir)
	}
}

func TestMat4TRSOrder(t *testing.T) {
	rot := QuaternionFromAxisAngle(Vec3Up, Pi/2)
	m := Mat4TRS(NewVec3(10, 0, 0), rot, NewVec3(2, 2, 2))

	// scale (1,0,0) -> (2,0,0), rotate about Y -> (0,0,-2), translate -> (10,0,-2)
	got := m.MulVec3(Vec3Right)
	if !got.ApproxEqual(NewVec3(10, 0, -2), 1e-4) {
		t.Errorf("TRS: expected (10,0,-2), got %v", got)
	}
}

func TestMat4Inverse(t *testing.T) {
	m := Mat4TRS(NewVec3(1, 2, 3), QuaternionFromAxisAngle(NewVec3(1, 1, 0), 0.7), NewVec3(2, 3, 4))
	inv, ok := m.TryInverse()
	if !ok {
		t.Fatal("Inverse: expected invertible matrix")
	}
	if id := m.Mul(inv); !id.ApproxEqual(Mat4Identity(), 1e-4) {
		t.Errorf("Inverse: m * inv(m) = %v", id)
	}

	if _, ok := Mat4Zero().TryInverse(); ok {
		t.Error("Inverse: zero matrix reported as invertible")
	}
	if Mat4Zero().Inverse() != Mat4Identity() {
		t.Error("Inverse: singular matrix should return identity")
	}
}

func TestQuaternionRotation(t *testing.T) {
	q := QuaternionFromAxisAngle(Vec3Up, float32(math.Pi/2))

	result := q.RotateVector(Vec3Right)
	if !result.ApproxEqual(NewVec3(0, 0, -1), 0.001) {
		t.Errorf("Quaternion rotation: expected approximately (0,0,-1), got %v", result)
	}

	// ToMat4 is the row-vector form of the same rotation
	viaMat := Vec3Right.ToVec4(0).MulMat(q.ToMat4()).ToVec3()
	if !viaMat.ApproxEqual(result, 0.001) {
		t.Errorf("ToMat4: expected %v, got %v", result, viaMat)
	}
}

func TestQuaternionFromAxes(t *testing.T) {
	if q := QuaternionFromAxes(Vec3Right, Vec3Up, Vec3Front); !q.RotateVector(NewVec3(1, 2, 3)).ApproxEqual(NewVec3(1, 2, 3), 1e-5) {
		t.Errorf("FromAxes: identity axes should give identity rotation, got %v", q)
	}

	cases := []Quaternion{
		QuaternionFromAxisAngle(Vec3Up, Pi/2),
		QuaternionFromAxisAngle(NewVec3(1, 2, 3), 1.1),
		QuaternionFromAxisAngle(Vec3Right, Pi*0.95),
		QuaternionFromAxisAngle(NewVec3(0, 1, 1), Pi*0.9),
		QuaternionFromAxisAngle(Vec3Front, Pi),
	}
	v := NewVec3(0.3, -0.5, 0.8)
	for i, want := range cases {
		got := QuaternionFromAxes(want.XAxis(), want.YAxis(), want.ZAxis())
		if a, b := got.RotateVector(v), want.RotateVector(v); !a.ApproxEqual(b, 1e-4) {
			t.Errorf("FromAxes case %d: expected %v, got %v", i, b, a)
		}
	}
}

func TestMat4PerspectiveInfinite(t *testing.T) {
	m := Mat4PerspectiveInfinite(Pi/2, 1, 1)

	near := NewVec4(0, 0, -1, 1).MulMat(m)
	if z := near.Z / near.W; math.Abs(float64(z+1)) > 1e-4 {
		t.Errorf("PerspectiveInfinite: near plane should map to -1, got %v", z)
	}

	far := NewVec4(0, 0, -1e6, 1).MulMat(m)
	if z := far.Z / far.W; z >= 1 || z <= 0 {
		t.Errorf("PerspectiveInfinite: distant point should stay inside the clip volume, got %v", z)
	}
}

func TestMat4LookAt(t *testing.T) {
	eye := NewVec3(0, 0, 5)
	m := Mat4LookAt(eye, Vec3Zero, Vec3Up)

	result := m.MulVec(eye.ToVec4(1))
	if !result.ToVec3().ApproxEqual(Vec3Zero, 0.001) {
		t.Errorf("LookAt: expected eye to transform to origin, got %v", result)
	}
}

func TestSolveDense(t *testing.T) {
	var a [11][11]float64
	var b [11]float64
	a[0] = [11]float64{2, 1, -1}
	a[1] = [11]float64{-3, -1, 2}
	a[2] = [11]float64{-2, 1, 2}
	b[0], b[1], b[2] = 8, -11, -3

	x, err := SolveDense(3, &a, &b)
	if err != nil {
		t.Fatalf("SolveDense: %v", err)
	}
	want := []float64{2, 3, -1}
	for i, w := range want {
		if math.Abs(x[i]-w) > 1e-9 {
			t.Errorf("SolveDense: x[%d] expected %v, got %v", i, w, x[i])
		}
	}

	var singular [11][11]float64
	singular[0] = [11]float64{1, 2}
	singular[1] = [11]float64{2, 4}
	if _, err := SolveDense(2, &singular, &b); err != ErrSingular {
		t.Errorf("SolveDense: expected ErrSingular, got %v", err)
	}
}

func TestSnapDown(t *testing.T) {
	if got := SnapDown(10.7, 0.5); math.Abs(float64(got-10.5)) > 1e-4 {
		t.Errorf("SnapDown: expected 10.5, got %v", got)
	}
	if got := SnapDown(-10.7, 0.5); math.Abs(float64(got+10.5)) > 1e-4 {
		t.Errorf("SnapDown: expected -10.5, got %v", got)
	}
	if got := SnapDown(3, 0); got != 3 {
		t.Errorf("SnapDown: zero step should be a no-op, got %v", got)
	}
}

func BenchmarkMat4Mul(b *testing.B) {
	m1 := Mat4Identity()
	m2 := Mat4Identity()

	for i := 0; i < b.N; i++ {
		_ = m1.Mul(m2)
	}
}

func BenchmarkSolveDense11(b *testing.B) {
	for i := 0; i < b.N; i++ {
		var a [11][11]float64
		var rhs [11]float64
		for r := 0; r < 11; r++ {
			a[r][r] = 2
			if r > 0 {
				a[r][r-1] = 1
			}
			rhs[r] = float64(r)
		}
		_, _ = SolveDense(11, &a, &rhs)
	}
}
