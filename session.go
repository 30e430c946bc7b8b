package lasertrainer

import (
	"fmt"
	"image"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r2"
)

// SessionState is the calibration/shooting lifecycle state.
type SessionState string

const (
	StateSetup     SessionState = "SETUP"
	StateShoot     SessionState = "SHOOT"
	StateRoundOver SessionState = "ROUND_OVER"
)

const (
	roundShots = 5

	// boundsMargin extends the logical plane on every side; detections
	// mapping outside it are discarded silently.
	boundsMargin = 20.0

	// roundSealDelay lets the 5th shot stay on screen before the round
	// seals and the state moves to ROUND_OVER.
	roundSealDelay = 1500 * time.Millisecond
)

// Shot is one accepted detection, immutable after creation.
type Shot struct {
	ID         int
	Point      r2.Point // logical plane
	Score      int
	AcceptedAt time.Time
}

// Round is a sealed sequence of up to roundShots shots. Number is 1-based
// and strictly increasing across the session; an unsealed round never
// consumes a number.
type Round struct {
	Number      int
	Shots       []Shot
	TotalScore  int
	CompletedAt time.Time
}

// Status is a point-in-time snapshot of the session, safe to hand to
// readers outside the frame loop.
type Status struct {
	State             SessionState
	Found             *Quad
	Potential         []r2.Point
	Shots             []Shot
	CooldownRemaining time.Duration
	History           []Round
}

// Session owns all mutable pipeline state: the active homography, the
// in-progress round, the sealed history, and the shot-timing deadlines. It
// must be driven from a single goroutine; Step and the command methods are
// never safe to interleave.
//
// Timing is deadline-based rather than callback-based: cooldown, debounce
// and round sealing are absolute times checked against the injected clock
// each step, and every transition clears the deadlines it obsoletes, so a
// pending deadline from an earlier mode can never fire into a later one.
type Session struct {
	clock    clock.Clock
	settings ProcessorSettings
	plane    TargetPlane
	sink     EventSink

	minAreaFloor float64

	state      SessionState
	homography *Homography
	shots      []Shot
	history    []Round // most-recent-first
	nextShotID int

	cooldownUntil time.Time
	lastShotAt    time.Time
	haveLastShot  bool
	sealAt        time.Time
	sealArmed     bool

	sighting   Sighting
	stabilizer *SightingStabilizer
}

// NewSession validates the settings and returns a session in SETUP.
func NewSession(settings ProcessorSettings, plane TargetPlane, minAreaFloor float64, sink EventSink, clk clock.Clock) (*Session, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if sink == nil {
		sink = NopSink()
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Session{
		clock:        clk,
		settings:     settings,
		plane:        plane,
		sink:         sink,
		minAreaFloor: minAreaFloor,
		state:        StateSetup,
	}, nil
}

func (s *Session) State() SessionState { return s.state }

// SetStabilizer installs the opt-in sighting smoothing policy. Call before
// the first Step; nil leaves selection raw.
func (s *Session) SetStabilizer(ss *SightingStabilizer) {
	s.stabilizer = ss
}

// Step runs one frame through the pipeline. In SETUP it updates the target
// sighting from the frame's polygon candidates; in SHOOT it runs laser
// detection against the frame and the shot-timing gates. Either side is a
// no-op when its input is nil.
func (s *Session) Step(frame *image.RGBA, cands []PolygonCandidate) {
	now := s.clock.Now()

	switch s.state {
	case StateSetup:
		if frame == nil {
			return
		}
		sight := selectTarget(cands, minAreaFor(frame.Bounds(), s.minAreaFloor))
		if s.stabilizer != nil {
			sight = s.stabilizer.Observe(sight)
		}
		s.observe(sight)

	case StateShoot:
		if s.sealArmed {
			if !now.Before(s.sealAt) {
				s.sealRound(now)
			}
			return // round is full, display delay running
		}
		if frame == nil {
			return
		}
		if s.suppressed(now) {
			return
		}
		pt, ok := findLaserPoint(frame, s.settings)
		if !ok {
			return // DetectionMiss: the normal case
		}
		s.handleDetection(r2.Point{X: float64(pt.X), Y: float64(pt.Y)}, now)

	case StateRoundOver:
		// Waiting on a startNewRound or reset command.
	}
}

func (s *Session) observe(next Sighting) {
	had := s.sighting.HasFound()
	s.sighting = next
	if next.HasFound() && !had {
		s.sink.Emit(EventQuadrilateralFound)
	} else if !next.HasFound() && had {
		s.sink.Emit(EventQuadrilateralLost)
	}
}

// suppressed reports whether shot detection is gated off this frame by the
// cooldown or the debounce window.
func (s *Session) suppressed(now time.Time) bool {
	if now.Before(s.cooldownUntil) {
		return true
	}
	if s.haveLastShot && now.Sub(s.lastShotAt) < time.Duration(s.settings.DebounceMs)*time.Millisecond {
		return true
	}
	return false
}

// handleDetection maps a camera-space detection through the active
// homography and records it if it lands on the target.
func (s *Session) handleDetection(camPt r2.Point, now time.Time) {
	logical, ok := s.homography.Apply(camPt)
	if !ok {
		return
	}
	if !s.plane.Contains(logical, boundsMargin) {
		return // OutOfBoundsDetection: discarded silently
	}

	s.nextShotID++
	shot := Shot{
		ID:         s.nextShotID,
		Point:      logical,
		Score:      scoreShot(logical, s.plane.Center(), s.plane.Width/2),
		AcceptedAt: now,
	}
	s.shots = append(s.shots, shot)
	s.cooldownUntil = now.Add(time.Duration(s.settings.CooldownSeconds) * time.Second)
	s.lastShotAt = now
	s.haveLastShot = true
	s.sink.Emit(EventShotAccepted)

	if len(s.shots) >= roundShots {
		s.sealArmed = true
		s.sealAt = now.Add(roundSealDelay)
	}
}

func (s *Session) sealRound(now time.Time) {
	total := 0
	for _, shot := range s.shots {
		total += shot.Score
	}
	round := Round{
		Number:      len(s.history) + 1,
		Shots:       s.shots,
		TotalScore:  total,
		CompletedAt: now,
	}
	s.history = append([]Round{round}, s.history...)
	s.shots = nil
	s.sealArmed = false
	s.state = StateRoundOver
	s.sink.Emit(EventRoundCompleted)
}

// Lock transitions SETUP to SHOOT using the current auto-detected
// quadrilateral. It fails, staying in SETUP, when no quadrilateral is in
// sight or the homography solve is degenerate.
func (s *Session) Lock() error {
	if s.state != StateSetup {
		return fmt.Errorf("cannot lock in state %s", s.state)
	}
	if !s.sighting.HasFound() {
		return fmt.Errorf("no target quadrilateral in sight")
	}
	return s.LockQuad(*s.sighting.Found)
}

// LockQuad is the manual-calibration variant of Lock: the caller supplies
// the ordered corners directly.
func (s *Session) LockQuad(q Quad) error {
	if s.state != StateSetup {
		return fmt.Errorf("cannot lock in state %s", s.state)
	}
	h, err := computeHomography(q, s.plane)
	if err != nil {
		return err // CalibrationFailure: stay in SETUP, retried next attempt
	}

	s.homography = &h
	s.state = StateShoot
	s.shots = nil
	s.clearTimers()
	s.sink.Emit(EventTargetLocked)
	return nil
}

// StartNewRound transitions ROUND_OVER back to SHOOT, reusing the existing
// calibration.
func (s *Session) StartNewRound() error {
	if s.state != StateRoundOver {
		return fmt.Errorf("cannot start a new round in state %s", s.state)
	}
	s.shots = nil
	s.clearTimers()
	s.state = StateShoot
	return nil
}

// ResetToSetup drops the calibration and any unsealed shots from any state.
// The discarded round never reaches the history, so round numbering is
// unaffected by it.
func (s *Session) ResetToSetup() {
	s.homography = nil
	s.shots = nil
	s.sighting = Sighting{}
	if s.stabilizer != nil {
		s.stabilizer.Reset()
	}
	s.clearTimers()
	s.state = StateSetup
	s.sink.Emit(EventCalibrationReset)
}

func (s *Session) clearTimers() {
	s.cooldownUntil = time.Time{}
	s.lastShotAt = time.Time{}
	s.haveLastShot = false
	s.sealAt = time.Time{}
	s.sealArmed = false
}

// CooldownRemaining is how long until shot detection resumes, zero when not
// cooling down.
func (s *Session) CooldownRemaining() time.Duration {
	d := s.cooldownUntil.Sub(s.clock.Now())
	if d < 0 {
		return 0
	}
	return d
}

// Status returns a snapshot with copied slices, safe to retain outside the
// frame loop.
func (s *Session) Status() Status {
	st := Status{
		State:             s.state,
		CooldownRemaining: s.CooldownRemaining(),
	}
	if s.sighting.Found != nil {
		q := *s.sighting.Found
		st.Found = &q
	}
	if len(s.sighting.Potential) > 0 {
		st.Potential = append([]r2.Point(nil), s.sighting.Potential...)
	}
	if len(s.shots) > 0 {
		st.Shots = append([]Shot(nil), s.shots...)
	}
	if len(s.history) > 0 {
		st.History = append([]Round(nil), s.history...)
	}
	return st
}
