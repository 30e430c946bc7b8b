package lasertrainer

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/golang/geo/r2"
	"github.com/lucasb-eyer/go-colorful"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"go.viam.com/rdk/components/camera"
	"go.viam.com/rdk/data"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/pointcloud"
	"go.viam.com/rdk/resource"
	"go.viam.com/rdk/spatialmath"
)

var OverlayCameraModel = family.WithModel("trainer-camera")

func init() {
	resource.RegisterComponent(camera.API, OverlayCameraModel,
		resource.Registration[camera.Camera, *OverlayCameraConfig]{
			Constructor: newOverlayCamera,
		},
	)
}

type OverlayCameraConfig struct {
	Input string

	// ShowDominance renders the red-dominance response of every pixel as a
	// hue ramp instead of the raw frame, for tuning the laser thresholds.
	ShowDominance bool `json:"show-dominance"`

	MinArea float64 `json:"min-area"`
}

func (cfg *OverlayCameraConfig) Validate(path string) ([]string, []string, error) {
	if cfg.Input == "" {
		return nil, nil, fmt.Errorf("need an input")
	}
	return []string{cfg.Input}, nil, nil
}

func newOverlayCamera(ctx context.Context, deps resource.Dependencies, rawConf resource.Config, logger logging.Logger) (camera.Camera, error) {
	conf, err := resource.NativeConfig[*OverlayCameraConfig](rawConf)
	if err != nil {
		return nil, err
	}

	return NewOverlayCamera(ctx, deps, rawConf.ResourceName(), conf, logger)
}

func NewOverlayCamera(ctx context.Context, deps resource.Dependencies, name resource.Name, conf *OverlayCameraConfig, logger logging.Logger) (camera.Camera, error) {
	var err error

	oc := &OverlayCamera{
		name:     name,
		conf:     conf,
		logger:   logger,
		source:   NewCVCandidateSource(),
		settings: DefaultSettings(),
	}

	oc.input, err = camera.FromProvider(deps, conf.Input)
	if err != nil {
		return nil, err
	}

	return oc, nil
}

// OverlayCamera republishes its input camera with the per-frame detection
// results drawn on top: the selected quadrilateral, any potential candidate,
// and the laser point. It runs its own stateless detection pass per frame so
// it can be pointed at a camera independently of a trainer service.
type OverlayCamera struct {
	resource.AlwaysRebuild

	name   resource.Name
	conf   *OverlayCameraConfig
	logger logging.Logger

	input    camera.Camera
	source   CandidateSource
	settings ProcessorSettings
}

func (oc *OverlayCamera) Image(ctx context.Context, mimeType string, extra map[string]interface{}) ([]byte, camera.ImageMetadata, error) {
	return camera.GetImageFromGetImages(ctx, nil, oc, extra, nil)
}

func (oc *OverlayCamera) Images(ctx context.Context, filterSourceNames []string, extra map[string]interface{}) ([]camera.NamedImage, resource.ResponseMetadata, error) {
	ni, rm, err := oc.input.Images(ctx, nil, extra)
	if err != nil {
		return nil, rm, err
	}

	if len(ni) == 0 {
		return nil, rm, fmt.Errorf("no images returned from input camera")
	}

	srcImg, err := ni[0].Image(ctx)
	if err != nil {
		return nil, rm, err
	}

	frame := toRGBA(srcImg)

	cands, err := oc.source.Candidates(ctx, frame)
	if err != nil {
		return nil, rm, err
	}
	sighting := selectTarget(cands, minAreaFor(frame.Bounds(), oc.minArea()))
	laser, laserOK := findLaserPoint(frame, oc.settings)

	var dst *image.RGBA
	if oc.conf.ShowDominance {
		dst = dominanceImage(frame, oc.settings)
	} else {
		dst = image.NewRGBA(frame.Bounds())
		draw.Draw(dst, frame.Bounds(), frame, frame.Bounds().Min, draw.Src)
	}

	drawSighting(dst, sighting)
	if laserOK {
		drawCross(dst, laser.X, laser.Y, 15, color.RGBA{255, 0, 0, 255})
	}

	result, err := camera.NamedImageFromImage(dst, ni[0].SourceName, "", data.Annotations{})
	if err != nil {
		return nil, rm, err
	}
	return []camera.NamedImage{result}, rm, nil
}

func (oc *OverlayCamera) minArea() float64 {
	if oc.conf.MinArea > 0 {
		return oc.conf.MinArea
	}
	return 0.05
}

// dominanceImage maps each pixel's red dominance onto a hue ramp: pixels
// that would qualify as laser hits come out red, near misses orange through
// green, everything else dark blue.
func dominanceImage(src *image.RGBA, s ProcessorSettings) *image.RGBA {
	bounds := src.Bounds()
	dst := image.NewRGBA(bounds)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			i := src.PixOffset(x, y)
			r := float64(src.Pix[i])
			g := float64(src.Pix[i+1])
			b := float64(src.Pix[i+2])

			denom := math.Max(g, b)*s.ColorDominanceRatio + 1
			response := r / denom
			if r <= float64(s.BrightnessThreshold) {
				response = 0
			}
			if response > 1 {
				response = 1
			}

			// hue 240 (blue) down to 0 (red) as the response rises
			c := colorful.Hsv(240*(1-response), 1, 0.2+0.8*response)
			cr, cg, cb := c.RGB255()
			di := dst.PixOffset(x, y)
			dst.Pix[di] = cr
			dst.Pix[di+1] = cg
			dst.Pix[di+2] = cb
			dst.Pix[di+3] = 255
		}
	}

	return dst
}

func drawSighting(dst *image.RGBA, s Sighting) {
	yellow := color.RGBA{255, 255, 0, 255}
	green := color.RGBA{0, 255, 0, 255}

	for _, p := range s.Potential {
		drawCircle(dst, int(p.X), int(p.Y), 6, yellow)
	}

	if s.Found == nil {
		return
	}
	corners := s.Found.Corners()
	labels := []string{"TL", "TR", "BR", "BL"}
	for i, p := range corners {
		next := corners[(i+1)%4]
		drawLine(dst, p, next, green)
		drawCircle(dst, int(p.X), int(p.Y), 10, green)
		drawCross(dst, int(p.X), int(p.Y), 15, green)
		drawString(dst, int(p.X)+12, int(p.Y)-4, labels[i], green)
	}
}

func drawCircle(img *image.RGBA, cx, cy, radius int, c color.Color) {
	for angle := 0.0; angle < 360; angle += 1 {
		x := cx + int(float64(radius)*math.Cos(angle*math.Pi/180))
		y := cy + int(float64(radius)*math.Sin(angle*math.Pi/180))
		if x >= 0 && x < img.Bounds().Max.X && y >= 0 && y < img.Bounds().Max.Y {
			img.Set(x, y, c)
		}
	}
}

func drawCross(img *image.RGBA, cx, cy, size int, c color.Color) {
	for d := -size; d <= size; d++ {
		x := cx + d
		if x >= 0 && x < img.Bounds().Max.X && cy >= 0 && cy < img.Bounds().Max.Y {
			img.Set(x, cy, c)
		}
		y := cy + d
		if cx >= 0 && cx < img.Bounds().Max.X && y >= 0 && y < img.Bounds().Max.Y {
			img.Set(cx, y, c)
		}
	}
}

func drawLine(img *image.RGBA, a, b r2.Point, c color.Color) {
	steps := int(math.Max(math.Abs(b.X-a.X), math.Abs(b.Y-a.Y)))
	if steps == 0 {
		return
	}
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		x := int(a.X + t*(b.X-a.X))
		y := int(a.Y + t*(b.Y-a.Y))
		if x >= 0 && x < img.Bounds().Max.X && y >= 0 && y < img.Bounds().Max.Y {
			img.Set(x, y, c)
		}
	}
}

func drawString(dst *image.RGBA, x, y int, s string, c color.Color) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(s)
}

func (oc *OverlayCamera) DoCommand(ctx context.Context, cmd map[string]interface{}) (map[string]interface{}, error) {
	return nil, fmt.Errorf("DoCommand not supported")
}

func (oc *OverlayCamera) NextPointCloud(ctx context.Context, extra map[string]interface{}) (pointcloud.PointCloud, error) {
	return nil, fmt.Errorf("NextPointCloud not supported")
}

func (oc *OverlayCamera) Properties(ctx context.Context) (camera.Properties, error) {
	return camera.Properties{}, nil
}

func (oc *OverlayCamera) Geometries(ctx context.Context, extra map[string]interface{}) ([]spatialmath.Geometry, error) {
	return nil, nil
}

func (oc *OverlayCamera) Name() resource.Name {
	return oc.name
}

func (oc *OverlayCamera) Close(ctx context.Context) error {
	return oc.source.Close()
}
