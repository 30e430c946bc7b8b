package lasertrainer

import (
	"context"
	"image"

	"github.com/golang/geo/r2"
)

// PolygonCandidate is one simplified contour from the external vision layer,
// with its area precomputed there.
type PolygonCandidate struct {
	Vertices []r2.Point
	Area     float64
}

// Sighting is what one frame's candidate set yields. Found is the best
// 4-corner candidate, already in canonical corner order. Potential is the
// best non-quadrilateral candidate above the floor, kept only as a UI hint
// that something target-like is in view.
type Sighting struct {
	Found     *Quad
	Potential []r2.Point
}

func (s Sighting) HasFound() bool { return s.Found != nil }

// selectTarget picks the maximum-area candidate with exactly 4 vertices
// above the area floor, and separately the maximum-area candidate with any
// other vertex count. Ties go to encounter order.
//
// This is stateless on purpose: no memory of prior frames, no hysteresis, so
// the found/potential flags may flip every frame. Smoothing lives in
// SightingStabilizer and nowhere else.
func selectTarget(cands []PolygonCandidate, minArea float64) Sighting {
	var out Sighting
	var bestQuadArea, bestOtherArea float64

	for i, c := range cands {
		if c.Area <= minArea {
			continue
		}
		if len(c.Vertices) == 4 {
			if c.Area > bestQuadArea {
				bestQuadArea = c.Area
				q, err := orderCorners(cands[i].Vertices)
				if err == nil {
					out.Found = &q
				}
			}
		} else if c.Area > bestOtherArea {
			bestOtherArea = c.Area
			out.Potential = cands[i].Vertices
		}
	}

	return out
}

// FindTarget runs the full per-frame target search: candidate extraction
// through the supplied source, then stateless quad selection. Exported for
// the targetfinder CLI and testing.
func FindTarget(ctx context.Context, source CandidateSource, img image.Image, minAreaFloor float64) (Sighting, error) {
	cands, err := source.Candidates(ctx, img)
	if err != nil {
		return Sighting{}, err
	}
	return selectTarget(cands, minAreaFor(img.Bounds(), minAreaFloor)), nil
}

// minAreaFor resolves the configured area floor against a frame. A floor
// in (0,1) is treated as a fraction of the frame area, anything else as an
// absolute pixel count.
func minAreaFor(bounds image.Rectangle, floor float64) float64 {
	if floor > 0 && floor < 1 {
		return floor * float64(bounds.Dx()) * float64(bounds.Dy())
	}
	return floor
}

// SightingStabilizer is an optional policy layer that only reports a found
// quadrilateral after it has been present for n consecutive frames. The raw
// selector has no memory; wrap it in one of these only when the caller
// explicitly asks for smoothing.
type SightingStabilizer struct {
	need int
	run  int
}

func NewSightingStabilizer(consecutiveFrames int) *SightingStabilizer {
	if consecutiveFrames < 1 {
		consecutiveFrames = 1
	}
	return &SightingStabilizer{need: consecutiveFrames}
}

// Observe feeds one frame's raw sighting and returns the stabilized view.
func (ss *SightingStabilizer) Observe(s Sighting) Sighting {
	if !s.HasFound() {
		ss.run = 0
		return s
	}
	ss.run++
	if ss.run >= ss.need {
		return s
	}
	// Not stable yet: report the quad as potential only.
	pts := s.Found.Corners()
	return Sighting{Potential: pts[:]}
}

// Reset clears the consecutive-frame run, e.g. on a mode change.
func (ss *SightingStabilizer) Reset() {
	ss.run = 0
}
