package lasertrainer

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"sync"
	"time"

	"github.com/golang/geo/r2"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/multierr"

	"go.viam.com/rdk/components/camera"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/resource"
	generic "go.viam.com/rdk/services/generic"
	viamutils "go.viam.com/utils"
)

var TrainerModel = family.WithModel("trainer")

func init() {
	resource.RegisterService(generic.API, TrainerModel,
		resource.Registration[resource.Resource, *TrainerConfig]{
			Constructor: newTrainer,
		},
	)
}

type TrainerConfig struct {
	Camera string

	BrightnessThreshold int     `json:"brightness-threshold"`
	ColorDominanceRatio float64 `json:"color-dominance-ratio"`
	CooldownSeconds     int     `json:"cooldown-seconds"`
	DebounceMs          int     `json:"debounce-ms"`
	LooseDominance      bool    `json:"loose-dominance"`

	// MinArea is the candidate area floor: a value in (0,1) is a fraction
	// of frame area, otherwise absolute pixels. Zero means 5% of the frame.
	MinArea float64 `json:"min-area"`

	// StabilizeFrames > 1 enables the opt-in sighting smoothing policy.
	StabilizeFrames int `json:"stabilize-frames"`

	FrameIntervalMs int `json:"frame-interval-ms"`
}

func (cfg *TrainerConfig) Validate(path string) ([]string, []string, error) {
	if cfg.Camera == "" {
		return nil, nil, fmt.Errorf("need a camera")
	}
	return []string{cfg.Camera}, nil, nil
}

func (cfg *TrainerConfig) settings() ProcessorSettings {
	s := DefaultSettings()
	if cfg.BrightnessThreshold > 0 {
		s.BrightnessThreshold = cfg.BrightnessThreshold
	}
	if cfg.ColorDominanceRatio > 0 {
		s.ColorDominanceRatio = cfg.ColorDominanceRatio
	}
	if cfg.CooldownSeconds > 0 {
		s.CooldownSeconds = cfg.CooldownSeconds
	}
	if cfg.DebounceMs > 0 {
		s.DebounceMs = cfg.DebounceMs
	}
	if cfg.LooseDominance {
		s.Mode = DominanceSum
	}
	return s
}

func (cfg *TrainerConfig) minArea() float64 {
	if cfg.MinArea > 0 {
		return cfg.MinArea
	}
	return 0.05
}

func (cfg *TrainerConfig) frameInterval() time.Duration {
	if cfg.FrameIntervalMs > 0 {
		return time.Duration(cfg.FrameIntervalMs) * time.Millisecond
	}
	return 33 * time.Millisecond
}

type cmdKind int

const (
	cmdLock cmdKind = iota
	cmdReset
	cmdNewRound
)

type trainerCommand struct {
	kind cmdKind
	quad *Quad // manual calibration corners for cmdLock, nil for auto
}

// trainer drives the pipeline: one loop goroutine owns the Session and all
// frame processing. User commands land in a buffered channel and are drained
// only at a frame boundary, so a lock or reset can never interleave with a
// half-finished step. Readers get per-tick snapshots under a mutex.
type trainer struct {
	resource.AlwaysRebuild

	name   resource.Name
	logger logging.Logger
	conf   *TrainerConfig

	cam    camera.Camera
	source CandidateSource

	session *Session

	commands chan trainerCommand

	mu           sync.Mutex
	snapshot     Status
	lastFrameErr error

	cancelCtx               context.Context
	cancelFunc              func()
	activeBackgroundWorkers sync.WaitGroup
}

func newTrainer(ctx context.Context, deps resource.Dependencies, rawConf resource.Config, logger logging.Logger) (resource.Resource, error) {
	conf, err := resource.NativeConfig[*TrainerConfig](rawConf)
	if err != nil {
		return nil, err
	}

	return NewTrainer(ctx, deps, rawConf.ResourceName(), conf, NewCVCandidateSource(), logger)
}

func NewTrainer(ctx context.Context, deps resource.Dependencies, name resource.Name, conf *TrainerConfig, source CandidateSource, logger logging.Logger) (resource.Resource, error) {
	var err error

	cancelCtx, cancelFunc := context.WithCancel(context.Background())

	t := &trainer{
		name:       name,
		logger:     logger,
		conf:       conf,
		source:     source,
		commands:   make(chan trainerCommand, 8),
		cancelCtx:  cancelCtx,
		cancelFunc: cancelFunc,
	}

	t.cam, err = camera.FromProvider(deps, conf.Camera)
	if err != nil {
		cancelFunc()
		return nil, err
	}

	sink := EventSinkFunc(func(e Event) {
		logger.Infof("event: %s", e)
	})
	t.session, err = NewSession(conf.settings(), DefaultTargetPlane, conf.minArea(), sink, nil)
	if err != nil {
		cancelFunc()
		return nil, err
	}
	if conf.StabilizeFrames > 1 {
		t.session.SetStabilizer(NewSightingStabilizer(conf.StabilizeFrames))
	}

	t.activeBackgroundWorkers.Add(1)
	viamutils.ManagedGo(t.runLoop, t.activeBackgroundWorkers.Done)

	return t, nil
}

func (t *trainer) Name() resource.Name {
	return t.name
}

// runLoop is the per-display-tick loop: drain commands, grab one frame, run
// one sequential pipeline step, publish a snapshot. Frames are never
// processed concurrently.
func (t *trainer) runLoop() {
	ticker := time.NewTicker(t.conf.frameInterval())
	defer ticker.Stop()

	for {
		select {
		case <-t.cancelCtx.Done():
			return
		case <-ticker.C:
		}

		t.drainCommands()
		t.stepOnce()
	}
}

func (t *trainer) drainCommands() {
	for {
		select {
		case cmd := <-t.commands:
			t.applyCommand(cmd)
		default:
			return
		}
	}
}

func (t *trainer) applyCommand(cmd trainerCommand) {
	var err error
	switch cmd.kind {
	case cmdLock:
		if cmd.quad != nil {
			err = t.session.LockQuad(*cmd.quad)
		} else {
			err = t.session.Lock()
		}
	case cmdReset:
		t.session.ResetToSetup()
	case cmdNewRound:
		err = t.session.StartNewRound()
	}
	if err != nil {
		t.logger.Warnf("command failed: %v", err)
	}
}

func (t *trainer) stepOnce() {
	frame, err := t.grabFrame()
	if err != nil {
		// Camera trouble is surfaced through status; the tick itself
		// keeps running so a recovered device resumes on its own frame.
		t.logger.Warnf("no frame: %v", err)
		t.publish(err)
		return
	}

	var cands []PolygonCandidate
	if t.session.State() == StateSetup {
		cands, err = t.source.Candidates(t.cancelCtx, frame)
		if err != nil {
			t.publish(err)
			return
		}
	}

	t.session.Step(frame, cands)
	t.publish(nil)
}

func (t *trainer) grabFrame() (*image.RGBA, error) {
	ni, _, err := t.cam.Images(t.cancelCtx, nil, nil)
	if err != nil {
		return nil, err
	}
	if len(ni) == 0 {
		return nil, fmt.Errorf("no images returned from input camera")
	}
	img, err := ni[0].Image(t.cancelCtx)
	if err != nil {
		return nil, err
	}
	return toRGBA(img), nil
}

func (t *trainer) publish(frameErr error) {
	status := t.session.Status()
	t.mu.Lock()
	t.snapshot = status
	t.lastFrameErr = frameErr
	t.mu.Unlock()
}

// Status returns the latest per-tick snapshot.
func (t *trainer) Status() (Status, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshot, t.lastFrameErr
}

type lockCmd struct {
	// Corners are optional manual TL/TR/BR/BL camera coordinates as
	// [[x,y],...]; empty means lock on the auto-detected quadrilateral.
	Corners [][]float64
}

type cmdStruct struct {
	Lock     *lockCmd
	Reset    bool
	NewRound bool `mapstructure:"new-round"`
	Status   bool
}

func (t *trainer) DoCommand(ctx context.Context, cmdMap map[string]interface{}) (map[string]interface{}, error) {
	var cmd cmdStruct
	err := mapstructure.Decode(cmdMap, &cmd)
	if err != nil {
		return nil, err
	}

	switch {
	case cmd.Lock != nil:
		quad, err := manualQuad(cmd.Lock.Corners)
		if err != nil {
			return nil, err
		}
		return nil, t.enqueue(trainerCommand{kind: cmdLock, quad: quad})
	case cmd.Reset:
		return nil, t.enqueue(trainerCommand{kind: cmdReset})
	case cmd.NewRound:
		return nil, t.enqueue(trainerCommand{kind: cmdNewRound})
	case cmd.Status:
		return t.statusMap(), nil
	}

	return nil, fmt.Errorf("bad cmd %v", cmdMap)
}

func manualQuad(corners [][]float64) (*Quad, error) {
	if len(corners) == 0 {
		return nil, nil
	}
	if len(corners) != 4 {
		return nil, fmt.Errorf("need 4 corners, got %d", len(corners))
	}
	pts := make([]r2.Point, 4)
	for i, c := range corners {
		if len(c) != 2 {
			return nil, fmt.Errorf("corner %d needs [x y]", i)
		}
		pts[i] = r2.Point{X: c[0], Y: c[1]}
	}
	q, err := orderCorners(pts)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (t *trainer) enqueue(cmd trainerCommand) error {
	select {
	case t.commands <- cmd:
		return nil
	default:
		return fmt.Errorf("command queue full")
	}
}

func (t *trainer) statusMap() map[string]interface{} {
	status, frameErr := t.Status()

	out := map[string]interface{}{
		"state":       string(status.State),
		"found":       status.Found != nil,
		"potential":   len(status.Potential) > 0,
		"shots":       len(status.Shots),
		"cooldown-ms": status.CooldownRemaining.Milliseconds(),
		"rounds":      len(status.History),
	}
	if len(status.History) > 0 {
		out["last-round-score"] = status.History[0].TotalScore
	}
	if frameErr != nil {
		out["camera-error"] = frameErr.Error()
	}
	return out
}

func (t *trainer) Close(context.Context) error {
	t.cancelFunc()
	t.activeBackgroundWorkers.Wait()
	return multierr.Combine(t.source.Close())
}

// toRGBA returns img as *image.RGBA, copying only when the underlying
// representation differs.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	out := image.NewRGBA(img.Bounds())
	draw.Draw(out, img.Bounds(), img, img.Bounds().Min, draw.Src)
	return out
}
