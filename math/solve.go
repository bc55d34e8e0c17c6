package math

import "errors"

// ErrSingular is returned by SolveDense when the system has no unique solution.
var ErrSingular = errors.New("math: singular linear system")

const singularEpsilon = 1e-12

func abs64(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// SolveDense solves a·x = b for a square system of size n held in the first
// n rows and columns of a, using Gaussian elimination with partial pivoting.
// a and b are overwritten. The fixed-size arrays cover the plane-optimal
// 11x11 homography system and the 4x4 depth-row system.
func SolveDense(n int, a *[11][11]float64, b *[11]float64) ([11]float64, error) {
	var x [11]float64
	if n <= 0 || n > 11 {
		return x, errors.New("math: system size out of range")
	}

	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if abs64(a[r][col]) > abs64(a[pivot][col]) {
				pivot = r
			}
		}
		if abs64(a[pivot][col]) < singularEpsilon {
			return x, ErrSingular
		}
		if pivot != col {
			a[col], a[pivot] = a[pivot], a[col]
			b[col], b[pivot] = b[pivot], b[col]
		}
		for r := col + 1; r < n; r++ {
			f := a[r][col] / a[col][col]
			if f == 0 {
				continue
			}
			for j := col; j < n; j++ {
				a[r][j] -= f * a[col][j]
			}
			b[r] -= f * b[col]
		}
	}

	for i := n - 1; i >= 0; i-- {
		sum := b[i]
		for j := i + 1; j < n; j++ {
			sum -= a[i][j] * x[j]
		}
		x[i] = sum / a[i][i]
	}
	return x, nil
}
