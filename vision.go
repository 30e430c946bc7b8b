package lasertrainer

import (
	"context"
	"fmt"
	"image"

	"github.com/golang/geo/r2"
	"gocv.io/x/gocv"
)

// CandidateSource supplies per-frame polygon candidates for target
// detection. Implementations own the low-level vision primitives; the rest
// of the pipeline only ever sees simplified polygons with areas.
type CandidateSource interface {
	Candidates(ctx context.Context, img image.Image) ([]PolygonCandidate, error)
	Close() error
}

// cvCandidateSource runs the contour pipeline with OpenCV:
// grayscale -> Gaussian blur -> adaptive threshold -> dilate -> external
// contours -> polygon simplification. Every Mat is created and released
// inside one call; nothing image-sized survives a frame.
type cvCandidateSource struct {
	kernel gocv.Mat
}

// NewCVCandidateSource builds the OpenCV-backed candidate source.
func NewCVCandidateSource() CandidateSource {
	return &cvCandidateSource{
		kernel: gocv.GetStructuringElement(gocv.MorphRect, image.Pt(3, 3)),
	}
}

func (c *cvCandidateSource) Candidates(ctx context.Context, img image.Image) ([]PolygonCandidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("frame to mat: %w", err)
	}
	defer mat.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorRGBToGray)

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Pt(5, 5), 0, 0, gocv.BorderDefault)

	bin := gocv.NewMat()
	defer bin.Close()
	gocv.AdaptiveThreshold(blurred, &bin, 255, gocv.AdaptiveThresholdGaussian, gocv.ThresholdBinaryInv, 11, 2)

	dilated := gocv.NewMat()
	defer dilated.Close()
	gocv.Dilate(bin, &dilated, c.kernel)

	contours := gocv.FindContours(dilated, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	var out []PolygonCandidate
	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)
		area := gocv.ContourArea(contour)
		if area <= 0 {
			continue
		}

		epsilon := 0.02 * gocv.ArcLength(contour, true)
		approx := gocv.ApproxPolyDP(contour, epsilon, true)
		verts := make([]r2.Point, approx.Size())
		for j := 0; j < approx.Size(); j++ {
			p := approx.At(j)
			verts[j] = r2.Point{X: float64(p.X), Y: float64(p.Y)}
		}
		approx.Close()

		out = append(out, PolygonCandidate{Vertices: verts, Area: area})
	}

	return out, nil
}

func (c *cvCandidateSource) Close() error {
	return c.kernel.Close()
}
