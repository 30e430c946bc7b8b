package lasertrainer

import (
	"image"
	"testing"
	"time"

	"github.com/golang/geo/r2"
	"go.viam.com/test"
)

func TestTrainerConfigValidate(t *testing.T) {
	cfg := &TrainerConfig{}
	_, _, err := cfg.Validate("")
	test.That(t, err, test.ShouldNotBeNil)

	cfg.Camera = "cam1"
	deps, _, err := cfg.Validate("")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, deps, test.ShouldResemble, []string{"cam1"})
}

func TestTrainerConfigSettings(t *testing.T) {
	// Zero config gets the defaults.
	cfg := &TrainerConfig{Camera: "cam1"}
	test.That(t, cfg.settings(), test.ShouldResemble, DefaultSettings())
	test.That(t, cfg.minArea(), test.ShouldEqual, 0.05)
	test.That(t, cfg.frameInterval(), test.ShouldEqual, 33*time.Millisecond)

	cfg = &TrainerConfig{
		Camera:              "cam1",
		BrightnessThreshold: 200,
		ColorDominanceRatio: 2,
		CooldownSeconds:     1,
		DebounceMs:          250,
		LooseDominance:      true,
		MinArea:             0.1,
		FrameIntervalMs:     100,
	}
	s := cfg.settings()
	test.That(t, s.BrightnessThreshold, test.ShouldEqual, 200)
	test.That(t, s.ColorDominanceRatio, test.ShouldEqual, 2)
	test.That(t, s.CooldownSeconds, test.ShouldEqual, 1)
	test.That(t, s.DebounceMs, test.ShouldEqual, 250)
	test.That(t, s.Mode, test.ShouldEqual, DominanceSum)
	test.That(t, cfg.minArea(), test.ShouldEqual, 0.1)
	test.That(t, cfg.frameInterval(), test.ShouldEqual, 100*time.Millisecond)
}

func TestManualQuad(t *testing.T) {
	// Empty means lock on the auto-detected target.
	q, err := manualQuad(nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, q, test.ShouldBeNil)

	// Corners are accepted in any order.
	q, err = manualQuad([][]float64{
		{500, 400}, {100, 100}, {100, 400}, {500, 100},
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, q.TL, test.ShouldResemble, r2.Point{X: 100, Y: 100})
	test.That(t, q.BR, test.ShouldResemble, r2.Point{X: 500, Y: 400})

	_, err = manualQuad([][]float64{{1, 2}, {3, 4}})
	test.That(t, err, test.ShouldNotBeNil)

	_, err = manualQuad([][]float64{{1, 2}, {3, 4}, {5}, {7, 8}})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestToRGBA(t *testing.T) {
	rgba := image.NewRGBA(image.Rect(0, 0, 4, 4))
	test.That(t, toRGBA(rgba) == rgba, test.ShouldBeTrue)

	ycbcr := image.NewYCbCr(image.Rect(0, 0, 4, 4), image.YCbCrSubsampleRatio420)
	out := toRGBA(ycbcr)
	test.That(t, out.Bounds(), test.ShouldResemble, ycbcr.Bounds())
}

func TestSettingsValidate(t *testing.T) {
	test.That(t, DefaultSettings().Validate(), test.ShouldBeNil)

	s := DefaultSettings()
	s.BrightnessThreshold = 300
	test.That(t, s.Validate(), test.ShouldNotBeNil)

	s = DefaultSettings()
	s.ColorDominanceRatio = 0.5
	test.That(t, s.Validate(), test.ShouldNotBeNil)

	s = DefaultSettings()
	s.Stride = 0
	test.That(t, s.Validate(), test.ShouldNotBeNil)

	s = DefaultSettings()
	s.DebounceMs = -1
	test.That(t, s.Validate(), test.ShouldNotBeNil)
}

func TestSessionWithStabilizer(t *testing.T) {
	h := newSessionHarness(t, fastSettings())
	h.session.SetStabilizer(NewSightingStabilizer(3))

	cands := []PolygonCandidate{{Vertices: rect(100, 100, 400, 300), Area: 120000}}

	// The quad must survive three consecutive frames before a lock works.
	h.session.Step(blankFrame(640, 480), cands)
	test.That(t, h.session.Lock(), test.ShouldNotBeNil)
	h.session.Step(blankFrame(640, 480), cands)
	test.That(t, h.session.Lock(), test.ShouldNotBeNil)
	h.session.Step(blankFrame(640, 480), cands)
	test.That(t, h.session.Lock(), test.ShouldBeNil)
	test.That(t, h.session.State(), test.ShouldEqual, StateShoot)
}
