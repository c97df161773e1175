package host

import (
	"time"

	"rotanim/pkg/anim"
)

// Phase is the lifecycle point a PhaseEvent reports.
type Phase int

const (
	// PhaseStarted fires on the first tick a motion is active.
	PhaseStarted Phase = iota
	// PhaseMoving fires on every tick a motion stays active.
	PhaseMoving
	// PhaseStopped fires when a motion completes or is cut short.
	PhaseStopped
)

func (p Phase) String() string {
	switch p {
	case PhaseStarted:
		return "started"
	case PhaseMoving:
		return "moving"
	case PhaseStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// PhaseEvent describes a motion phase change of one part.
type PhaseEvent struct {
	Phase  Phase
	Object string
	Part   string
	Kind   anim.TriggerKind
	Time   time.Duration

	// Sound is the active template's sound handles.
	Sound anim.SoundHandles

	// TurnRate is the part's turn rate after the tick.
	TurnRate float64

	// Completed is set on PhaseStopped when the end angle was reached.
	Completed bool
}

// Listener receives phase events on the tick goroutine. It must not block.
type Listener interface {
	OnPhase(ev PhaseEvent)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(PhaseEvent)

func (f ListenerFunc) OnPhase(ev PhaseEvent) { f(ev) }

// StatusSink receives object snapshots after ticks. It must not block.
type StatusSink interface {
	PublishStatus(now time.Duration, objects []ObjectStatus)
}

// track is what the host remembers about a part between ticks.
type track struct {
	running bool
	key     profileKey
	kind    anim.TriggerKind
	sound   anim.SoundHandles
}

// profileKey identifies one started profile.
type profileKey struct {
	startedAt time.Duration
	kind      anim.TriggerKind
	subtype   int
	instance  int
}

func keyOf(p anim.ActiveProfile) profileKey {
	return profileKey{
		startedAt: p.StartedAt,
		kind:      p.Motion.Kind,
		subtype:   p.Motion.Subtype,
		instance:  p.Instance,
	}
}
