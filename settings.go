package lasertrainer

import "fmt"

// DominanceMode selects which laser-qualification rule the detector runs.
type DominanceMode int

const (
	// DominanceRatio is the canonical rule: red must exceed both green and
	// blue scaled by ColorDominanceRatio.
	DominanceRatio DominanceMode = iota

	// DominanceSum is the looser historical rule (red > green + blue). Kept
	// only as an explicit alternative; never mixed with the ratio rule.
	DominanceSum
)

// ProcessorSettings are the externally supplied tuning knobs for detection
// and shot timing. The core reads them and never writes them.
type ProcessorSettings struct {
	// BrightnessThreshold is the minimum red channel value (0-255) for a
	// pixel to be considered at all. Sensible values are 200-240.
	BrightnessThreshold int

	// ColorDominanceRatio is how much brighter red must be than green and
	// blue under DominanceRatio. Must be at least 1.
	ColorDominanceRatio float64

	// CooldownSeconds is the lockout after an accepted shot.
	CooldownSeconds int

	// DebounceMs is the minimum gap between two accepted shots.
	DebounceMs int

	// Stride is the pixel-scan step for the laser search. 1 visits every
	// pixel; 2 visits every other pixel in both axes.
	Stride int

	Mode DominanceMode
}

// DefaultSettings returns the stricter-variant defaults.
func DefaultSettings() ProcessorSettings {
	return ProcessorSettings{
		BrightnessThreshold: 220,
		ColorDominanceRatio: 1.5,
		CooldownSeconds:     3,
		DebounceMs:          500,
		Stride:              2,
		Mode:                DominanceRatio,
	}
}

func (s ProcessorSettings) Validate() error {
	if s.BrightnessThreshold < 0 || s.BrightnessThreshold > 255 {
		return fmt.Errorf("brightness threshold %d out of range 0-255", s.BrightnessThreshold)
	}
	if s.ColorDominanceRatio < 1 {
		return fmt.Errorf("color dominance ratio %v must be >= 1", s.ColorDominanceRatio)
	}
	if s.CooldownSeconds < 0 {
		return fmt.Errorf("cooldown seconds %d must be >= 0", s.CooldownSeconds)
	}
	if s.DebounceMs < 0 {
		return fmt.Errorf("debounce ms %d must be >= 0", s.DebounceMs)
	}
	if s.Stride < 1 {
		return fmt.Errorf("stride %d must be >= 1", s.Stride)
	}
	return nil
}
