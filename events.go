package lasertrainer

// Event is a discrete session occurrence surfaced for UI and audio reaction.
type Event string

const (
	EventQuadrilateralFound Event = "quadrilateralFound"
	EventQuadrilateralLost  Event = "quadrilateralLost"
	EventTargetLocked       Event = "targetLocked"
	EventShotAccepted       Event = "shotAccepted"
	EventRoundCompleted     Event = "roundCompleted"
	EventCalibrationReset   Event = "calibrationReset"
)

// EventSink receives session events. Implementations must be fast; the sink
// is called from the per-frame step. The sink is owned by the application
// root and handed in at construction, there is no global.
type EventSink interface {
	Emit(e Event)
}

type nopSink struct{}

func (nopSink) Emit(Event) {}

// NopSink discards all events.
func NopSink() EventSink { return nopSink{} }

// EventSinkFunc adapts a function to an EventSink.
type EventSinkFunc func(Event)

func (f EventSinkFunc) Emit(e Event) { f(e) }
