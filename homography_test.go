package lasertrainer

import (
	"testing"

	"github.com/golang/geo/r2"
	"go.viam.com/test"
)

func TestComputeHomographyCorners(t *testing.T) {
	src := Quad{
		TL: r2.Point{X: 100, Y: 100},
		TR: r2.Point{X: 500, Y: 100},
		BR: r2.Point{X: 500, Y: 400},
		BL: r2.Point{X: 100, Y: 400},
	}

	h, err := computeHomography(src, DefaultTargetPlane)
	test.That(t, err, test.ShouldBeNil)

	// Each source corner must land exactly on its plane corner.
	want := DefaultTargetPlane.corners()
	got := src.Corners()
	for i := range got {
		p, ok := h.Apply(got[i])
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, p.X, test.ShouldAlmostEqual, want[i].X, .001)
		test.That(t, p.Y, test.ShouldAlmostEqual, want[i].Y, .001)
	}
}

func TestComputeHomographyInterior(t *testing.T) {
	src := Quad{
		TL: r2.Point{X: 100, Y: 100},
		TR: r2.Point{X: 500, Y: 100},
		BR: r2.Point{X: 500, Y: 400},
		BL: r2.Point{X: 100, Y: 400},
	}

	h, err := computeHomography(src, DefaultTargetPlane)
	test.That(t, err, test.ShouldBeNil)

	// Camera midpoint of an axis-aligned quad maps to the plane center.
	p, ok := h.Apply(r2.Point{X: 300, Y: 250})
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, p.X, test.ShouldAlmostEqual, 250, .001)
	test.That(t, p.Y, test.ShouldAlmostEqual, 350, .001)
}

func TestComputeHomographyPerspective(t *testing.T) {
	// A trapezoid, as a tilted camera would see the target.
	src := Quad{
		TL: r2.Point{X: 150, Y: 120},
		TR: r2.Point{X: 470, Y: 140},
		BR: r2.Point{X: 520, Y: 430},
		BL: r2.Point{X: 90, Y: 410},
	}

	h, err := computeHomography(src, DefaultTargetPlane)
	test.That(t, err, test.ShouldBeNil)

	want := DefaultTargetPlane.corners()
	got := src.Corners()
	for i := range got {
		p, ok := h.Apply(got[i])
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, p.X, test.ShouldAlmostEqual, want[i].X, .001)
		test.That(t, p.Y, test.ShouldAlmostEqual, want[i].Y, .001)
	}
}

func TestComputeHomographyDegenerate(t *testing.T) {
	// All four corners on one line: no projective transform exists.
	collinear := Quad{
		TL: r2.Point{X: 0, Y: 0},
		TR: r2.Point{X: 100, Y: 100},
		BR: r2.Point{X: 200, Y: 200},
		BL: r2.Point{X: 300, Y: 300},
	}
	_, err := computeHomography(collinear, DefaultTargetPlane)
	test.That(t, err, test.ShouldNotBeNil)

	// Coincident corners fail the same way.
	pinched := Quad{
		TL: r2.Point{X: 100, Y: 100},
		TR: r2.Point{X: 100, Y: 100},
		BR: r2.Point{X: 500, Y: 400},
		BL: r2.Point{X: 100, Y: 400},
	}
	_, err = computeHomography(pinched, DefaultTargetPlane)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestHomographyApplyInvalid(t *testing.T) {
	// The zero matrix sends every point to w=0.
	var h Homography
	_, ok := h.Apply(r2.Point{X: 10, Y: 10})
	test.That(t, ok, test.ShouldBeFalse)
}

func TestTargetPlaneContains(t *testing.T) {
	tp := DefaultTargetPlane

	test.That(t, tp.Contains(tp.Center(), 0), test.ShouldBeTrue)
	test.That(t, tp.Contains(r2.Point{X: -10, Y: 350}, 20), test.ShouldBeTrue)
	test.That(t, tp.Contains(r2.Point{X: -25, Y: 350}, 20), test.ShouldBeFalse)
	test.That(t, tp.Contains(r2.Point{X: 250, Y: 719}, 20), test.ShouldBeTrue)
	test.That(t, tp.Contains(r2.Point{X: 250, Y: 721}, 20), test.ShouldBeFalse)
}
