package lasertrainer

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
)

// TargetPlane is the fixed logical coordinate rectangle the camera quad is
// mapped onto. Origin is the top-left corner.
type TargetPlane struct {
	Width, Height float64
}

// DefaultTargetPlane matches the printed target proportions.
var DefaultTargetPlane = TargetPlane{Width: 500, Height: 700}

func (tp TargetPlane) Center() r2.Point {
	return r2.Point{X: tp.Width / 2, Y: tp.Height / 2}
}

// Contains reports whether p lies within the plane extended by margin units
// on every side.
func (tp TargetPlane) Contains(p r2.Point, margin float64) bool {
	return p.X >= -margin && p.X <= tp.Width+margin &&
		p.Y >= -margin && p.Y <= tp.Height+margin
}

func (tp TargetPlane) corners() [4]r2.Point {
	return [4]r2.Point{
		{X: 0, Y: 0},
		{X: tp.Width, Y: 0},
		{X: tp.Width, Y: tp.Height},
		{X: 0, Y: tp.Height},
	}
}

// Homography is a 3x3 projective matrix stored row-major with h22 fixed
// to 1. It is immutable once computed; a new camera pose needs a new solve.
type Homography [9]float64

// computeHomography solves the unique projective transform taking the four
// ordered corners of src onto the corners of dst. This is an exact
// 4-correspondence solve, not a least-squares fit: the 8 unknowns come from
// an 8x8 linear system eliminated with partial pivoting. A collinear or
// otherwise degenerate source quad makes the system singular and the solve
// fails.
func computeHomography(src Quad, dst TargetPlane) (Homography, error) {
	s := src.Corners()
	d := dst.corners()

	var a [8][8]float64
	var b [8]float64
	for i := 0; i < 4; i++ {
		sx, sy := s[i].X, s[i].Y
		dx, dy := d[i].X, d[i].Y
		r := 2 * i

		// dx = (h0 sx + h1 sy + h2) / (h6 sx + h7 sy + 1)
		a[r][0], a[r][1], a[r][2] = sx, sy, 1
		a[r][6], a[r][7] = -sx*dx, -sy*dx
		b[r] = dx

		// dy = (h3 sx + h4 sy + h5) / (h6 sx + h7 sy + 1)
		a[r+1][3], a[r+1][4], a[r+1][5] = sx, sy, 1
		a[r+1][6], a[r+1][7] = -sx*dy, -sy*dy
		b[r+1] = dy
	}

	h, err := solveLinear8(a, b)
	if err != nil {
		return Homography{}, fmt.Errorf("degenerate calibration quad: %w", err)
	}

	return Homography{h[0], h[1], h[2], h[3], h[4], h[5], h[6], h[7], 1}, nil
}

// Apply maps a camera-space point into the logical plane via homogeneous
// coordinates. ok is false when the homogeneous w is near zero or the result
// is not finite; such a point has no meaningful image under the transform.
func (h Homography) Apply(p r2.Point) (r2.Point, bool) {
	w := h[6]*p.X + h[7]*p.Y + h[8]
	if math.Abs(w) < 1e-9 {
		return r2.Point{}, false
	}
	out := r2.Point{
		X: (h[0]*p.X + h[1]*p.Y + h[2]) / w,
		Y: (h[3]*p.X + h[4]*p.Y + h[5]) / w,
	}
	if math.IsNaN(out.X) || math.IsNaN(out.Y) || math.IsInf(out.X, 0) || math.IsInf(out.Y, 0) {
		return r2.Point{}, false
	}
	return out, true
}

// solveLinear8 solves a*x = b by Gaussian elimination with partial pivoting.
func solveLinear8(a [8][8]float64, b [8]float64) ([8]float64, error) {
	for col := 0; col < 8; col++ {
		// Pivot on the largest magnitude entry in this column.
		pivot := col
		maxAbs := math.Abs(a[col][col])
		for r := col + 1; r < 8; r++ {
			if v := math.Abs(a[r][col]); v > maxAbs {
				maxAbs = v
				pivot = r
			}
		}
		if maxAbs < 1e-12 {
			return [8]float64{}, fmt.Errorf("singular system at column %d", col)
		}
		if pivot != col {
			a[col], a[pivot] = a[pivot], a[col]
			b[col], b[pivot] = b[pivot], b[col]
		}

		div := a[col][col]
		for c := col; c < 8; c++ {
			a[col][c] /= div
		}
		b[col] /= div

		for r := 0; r < 8; r++ {
			if r == col {
				continue
			}
			factor := a[r][col]
			if factor == 0 {
				continue
			}
			for c := col; c < 8; c++ {
				a[r][c] -= factor * a[col][c]
			}
			b[r] -= factor * b[col]
		}
	}

	return b, nil
}
