// Per-part motion state: pending queue, active profile and live pose
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package anim

import (
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// QueueResult tells the caller what AddQueue did with a request.
type QueueResult int

const (
	Queued QueueResult = iota
	Started
	Cancelled
	Dropped
)

func (r QueueResult) String() string {
	switch r {
	case Queued:
		return "queued"
	case Started:
		return "started"
	case Cancelled:
		return "cancelled"
	case Dropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// MotionState is the animation state of one sub-part. It is not safe for
// concurrent use; one goroutine owns it.
type MotionState struct {
	pending pendingQueue
	active  *ActiveProfile

	angle    mgl64.Vec3
	velocity mgl64.Vec3

	// endAngle is the last commanded target. Relative motions are offsets
	// from it, not from the live angle.
	endAngle mgl64.Vec3

	turnRate        float64
	desiredTurnRate float64
	turnAccel       float64
}

// NewMotionState returns an idle state at the zero pose.
func NewMotionState() *MotionState {
	return &MotionState{}
}

// AddQueue schedules m, played forwards for dir >= 0 and backwards for
// dir < 0. A request for a trigger slot that is already pending cancels that
// pending request and is itself discarded.
func (s *MotionState) AddQueue(m QueuedMotion, dir int, now time.Duration) QueueResult {
	if dir < 0 {
		m = m.Reversed()
	}

	if s.pending.cancel(&m) {
		return Cancelled
	}

	if m.StartDelay <= 0 {
		m.StartTime = now
		m.EndTime = now + TotalDuration(m)
		s.start(m, now)
		return Started
	}

	// The exact opposite of what is running on the same slot turns around
	// right away, whatever its delay.
	if s.active != nil && s.active.Instance == m.Instance &&
		s.signedVelocity(&m) == s.active.commanded.Mul(-1) {
		m.StartTime = now
		m.EndTime = now + TotalDuration(m)
		s.start(m, now)
		return Started
	}

	m.StartTime = now + m.StartDelay
	m.EndTime = m.StartTime + m.DurationHint
	if !s.pending.insert(m) {
		return Dropped
	}
	return Queued
}

// ProcessQueue starts every pending motion due at now, in order. Each one
// replaces whatever was active. It returns how many were started.
func (s *MotionState) ProcessQueue(now time.Duration) int {
	started := 0
	for {
		m, ok := s.pending.popDue(now)
		if !ok {
			return started
		}
		s.start(m, now)
		started++
	}
}

// signedVelocity is the commanded speed of m signed by its travel direction
// from the current end angle.
func (s *MotionState) signedVelocity(m *QueuedMotion) mgl64.Vec3 {
	var out mgl64.Vec3
	for i := 0; i < 3; i++ {
		off := m.Angle[i]
		if m.Absolute {
			off -= s.endAngle[i]
		}
		out[i] = math.Abs(m.Velocity[i]) * sign(off)
	}
	return out
}

// SetToInitial snaps the live angle to m's angle.
func (s *MotionState) SetToInitial(m QueuedMotion) {
	s.angle = m.Angle
}

// SetToFinal snaps the live angle to m's angle and makes it the commanded end
// angle, so later relative motions continue from there.
func (s *MotionState) SetToFinal(m QueuedMotion) {
	s.angle = m.Angle
	s.endAngle = m.Angle
}

// Clear drops all pending and active motion and returns to the zero pose.
func (s *MotionState) Clear() {
	*s = MotionState{}
}

// ApplyAngles returns the live angles wrapped into [0, 2π).
func (s *MotionState) ApplyAngles() mgl64.Vec3 {
	return mgl64.Vec3{wrapAngle(s.angle[0]), wrapAngle(s.angle[1]), wrapAngle(s.angle[2])}
}

// Orientation returns the rotation for the wrapped angles, composed as
// heading, then pitch, then bank.
func (s *MotionState) Orientation() mgl64.Mat3 {
	a := s.ApplyAngles()
	return mgl64.Rotate3DY(a[1]).Mul3(mgl64.Rotate3DX(a[0])).Mul3(mgl64.Rotate3DZ(a[2]))
}

func wrapAngle(a float64) float64 {
	const turn = 2 * math.Pi
	w := math.Mod(a, turn)
	if w < 0 {
		w += turn
	}
	if w >= turn {
		w -= turn
	}
	return w
}

// Angle returns the live, unwrapped angles.
func (s *MotionState) Angle() mgl64.Vec3 { return s.angle }

// Velocity returns the live angular velocity.
func (s *MotionState) Velocity() mgl64.Vec3 { return s.velocity }

// EndAngle returns the last commanded target.
func (s *MotionState) EndAngle() mgl64.Vec3 { return s.endAngle }

// Active returns a copy of the running profile.
func (s *MotionState) Active() (ActiveProfile, bool) {
	if s.active == nil {
		return ActiveProfile{}, false
	}
	return *s.active, true
}

// Moving reports whether a profile is running.
func (s *MotionState) Moving() bool { return s.active != nil }

// Pending returns a copy of the pending queue in start order.
func (s *MotionState) Pending() []QueuedMotion { return s.pending.snapshot() }

// PendingLen returns the number of pending requests.
func (s *MotionState) PendingLen() int { return s.pending.len() }

// TurnRate returns the magnitude of the live angular velocity.
func (s *MotionState) TurnRate() float64 { return s.turnRate }

// DesiredTurnRate returns the magnitude of the cruise velocity.
func (s *MotionState) DesiredTurnRate() float64 { return s.desiredTurnRate }

// TurnAccel returns the magnitude of the profile acceleration.
func (s *MotionState) TurnAccel() float64 { return s.turnAccel }

// RemainingDuration predicts how long the running profile still needs.
func (s *MotionState) RemainingDuration(now time.Duration) time.Duration {
	if s.active == nil {
		return 0
	}
	return RemainingDuration(*s.active, s.angle, s.velocity, now)
}
