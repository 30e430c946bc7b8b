package lasertrainer

import (
	"fmt"

	"github.com/golang/geo/r2"
)

// Quad is a quadrilateral with its corners in canonical order.
// Only ordered quads may be used to compute a homography; raw detector
// output stays a plain []r2.Point until it goes through orderCorners.
type Quad struct {
	TL, TR, BR, BL r2.Point
}

// Corners returns the corners in TL, TR, BR, BL order.
func (q Quad) Corners() [4]r2.Point {
	return [4]r2.Point{q.TL, q.TR, q.BR, q.BL}
}

// orderCorners canonicalizes 4 unordered corners of a convex quadrilateral
// into TL/TR/BR/BL roles: TL minimizes x+y, BR maximizes x+y, TR minimizes
// y-x, BL maximizes y-x. Ties go to the first occurrence in input order.
//
// The heuristic holds for quadrilaterals within roughly ±45° of axis-aligned;
// beyond that it misassigns corners. That is a known limitation of the rule,
// not something this function tries to correct.
func orderCorners(pts []r2.Point) (Quad, error) {
	if len(pts) != 4 {
		return Quad{}, fmt.Errorf("need exactly 4 corners, got %d", len(pts))
	}

	var q Quad
	minSum, maxSum := pts[0].X+pts[0].Y, pts[0].X+pts[0].Y
	minDiff, maxDiff := pts[0].Y-pts[0].X, pts[0].Y-pts[0].X
	q.TL, q.BR, q.TR, q.BL = pts[0], pts[0], pts[0], pts[0]

	for _, p := range pts[1:] {
		if sum := p.X + p.Y; sum < minSum {
			minSum = sum
			q.TL = p
		} else if sum > maxSum {
			maxSum = sum
			q.BR = p
		}
		if diff := p.Y - p.X; diff < minDiff {
			minDiff = diff
			q.TR = p
		} else if diff > maxDiff {
			maxDiff = diff
			q.BL = p
		}
	}

	return q, nil
}
