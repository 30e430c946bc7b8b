package lasertrainer

import (
	"math"

	"github.com/golang/geo/r2"
)

// scoreShot converts a logical-plane hit into a ring score. Distance d from
// center maps to 10 - floor(10*d/maxRadius), clamped to [0,10]: a dead-center
// hit scores 10, anything at or beyond maxRadius scores 0.
func scoreShot(p, center r2.Point, maxRadius float64) int {
	d := p.Sub(center).Norm()
	raw := 10 - int(math.Floor(10*d/maxRadius))
	if raw < 0 {
		return 0
	}
	if raw > 10 {
		return 10
	}
	return raw
}
