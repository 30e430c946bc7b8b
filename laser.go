package lasertrainer

import "image"

// findLaserPoint scans an RGBA frame for the brightest pixel that passes the
// laser-dominance rule and returns its coordinate, or ok=false when nothing
// qualifies this frame (the normal case).
//
// The scan is one linear pass over img.Pix at the configured stride, tracking
// the maximum red value among qualifying pixels as it goes. It returns a
// single winner with no clustering or centroid averaging, so a multi-pixel
// laser blob resolves to whichever of its pixels is reddest. The stride keeps
// the pass comfortably inside one frame interval.
func findLaserPoint(img *image.RGBA, s ProcessorSettings) (image.Point, bool) {
	bounds := img.Bounds()
	stride := s.Stride
	if stride < 1 {
		stride = 1
	}

	threshold := uint32(s.BrightnessThreshold)
	ratio := s.ColorDominanceRatio

	var best image.Point
	bestRed := uint32(0)
	found := false

	for y := bounds.Min.Y; y < bounds.Max.Y; y += stride {
		row := img.PixOffset(bounds.Min.X, y)
		for x := bounds.Min.X; x < bounds.Max.X; x += stride {
			i := row + (x-bounds.Min.X)*4
			r := uint32(img.Pix[i])
			if r <= threshold || r <= bestRed {
				continue
			}
			g := uint32(img.Pix[i+1])
			b := uint32(img.Pix[i+2])

			switch s.Mode {
			case DominanceSum:
				if r <= g+b {
					continue
				}
			default:
				if float64(r) <= float64(g)*ratio || float64(r) <= float64(b)*ratio {
					continue
				}
			}

			bestRed = r
			best = image.Point{X: x, Y: y}
			found = true
		}
	}

	return best, found
}

// FindLaser is an exported version of findLaserPoint for the targetfinder
// CLI and external tooling.
func FindLaser(img *image.RGBA, s ProcessorSettings) (image.Point, bool) {
	return findLaserPoint(img, s)
}
