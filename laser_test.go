package lasertrainer

import (
	"image"
	"image/color"
	"testing"

	"go.viam.com/test"
)

func blankFrame(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 30, G: 30, B: 30, A: 255})
		}
	}
	return img
}

func TestFindLaserPointBasic(t *testing.T) {
	img := blankFrame(64, 64)
	img.Set(20, 30, color.RGBA{R: 250, G: 40, B: 40, A: 255})

	s := DefaultSettings()
	s.Stride = 1

	p, ok := findLaserPoint(img, s)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, p, test.ShouldResemble, image.Point{X: 20, Y: 30})
}

func TestFindLaserPointEmpty(t *testing.T) {
	img := blankFrame(64, 64)

	s := DefaultSettings()
	s.Stride = 1

	_, ok := findLaserPoint(img, s)
	test.That(t, ok, test.ShouldBeFalse)
}

func TestFindLaserPointBrightestWins(t *testing.T) {
	img := blankFrame(64, 64)
	img.Set(10, 10, color.RGBA{R: 230, G: 20, B: 20, A: 255})
	img.Set(40, 40, color.RGBA{R: 250, G: 20, B: 20, A: 255})
	img.Set(50, 50, color.RGBA{R: 240, G: 20, B: 20, A: 255})

	s := DefaultSettings()
	s.Stride = 1

	p, ok := findLaserPoint(img, s)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, p, test.ShouldResemble, image.Point{X: 40, Y: 40})
}

func TestFindLaserPointThreshold(t *testing.T) {
	img := blankFrame(64, 64)
	// Pure red but below the brightness threshold.
	img.Set(20, 20, color.RGBA{R: 210, G: 0, B: 0, A: 255})

	s := DefaultSettings()
	s.BrightnessThreshold = 220
	s.Stride = 1

	_, ok := findLaserPoint(img, s)
	test.That(t, ok, test.ShouldBeFalse)

	s.BrightnessThreshold = 200
	p, ok := findLaserPoint(img, s)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, p, test.ShouldResemble, image.Point{X: 20, Y: 20})
}

func TestFindLaserPointRejectsWhite(t *testing.T) {
	img := blankFrame(64, 64)
	// A bright white highlight: red is high but not dominant.
	img.Set(20, 20, color.RGBA{R: 250, G: 245, B: 240, A: 255})

	s := DefaultSettings()
	s.Stride = 1

	_, ok := findLaserPoint(img, s)
	test.That(t, ok, test.ShouldBeFalse)
}

func TestFindLaserPointDominanceModes(t *testing.T) {
	img := blankFrame(64, 64)
	// r=230, g=b=120: passes the ratio rule (230 > 120*1.5) but fails the
	// sum rule (230 <= 240).
	img.Set(20, 20, color.RGBA{R: 230, G: 120, B: 120, A: 255})

	s := DefaultSettings()
	s.Stride = 1

	s.Mode = DominanceRatio
	_, ok := findLaserPoint(img, s)
	test.That(t, ok, test.ShouldBeTrue)

	s.Mode = DominanceSum
	_, ok = findLaserPoint(img, s)
	test.That(t, ok, test.ShouldBeFalse)
}

func TestFindLaserPointStride(t *testing.T) {
	img := blankFrame(64, 64)
	// On an odd coordinate, invisible to a stride-2 scan from origin.
	img.Set(21, 21, color.RGBA{R: 250, G: 20, B: 20, A: 255})

	s := DefaultSettings()
	s.Stride = 2
	_, ok := findLaserPoint(img, s)
	test.That(t, ok, test.ShouldBeFalse)

	s.Stride = 1
	p, ok := findLaserPoint(img, s)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, p, test.ShouldResemble, image.Point{X: 21, Y: 21})
}
