// Motion templates
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package anim

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// DeriveReverseDelay marks a reverse start delay that the loader should
// compute from the other templates of the same kind.
const DeriveReverseDelay = -time.Millisecond

// SoundHandles are opaque sound identifiers carried with a motion and handed
// to whoever plays them. The engine never interprets them.
type SoundHandles struct {
	Start  string
	Loop   string
	End    string
	Radius float64
}

// Empty reports whether no sound is attached.
func (s SoundHandles) Empty() bool {
	return s.Start == "" && s.Loop == "" && s.End == ""
}

// QueuedMotion is a motion template, and once enqueued a pending request.
// Vector components are pitch (x), heading (y) and bank (z), in radians.
type QueuedMotion struct {
	// Angle is an offset from the last commanded end angle, or the target
	// itself when Absolute is set.
	Angle    mgl64.Vec3
	Velocity mgl64.Vec3 // cruise speed per axis, rad/s
	Accel    mgl64.Vec3 // rad/s², zero means instant speed changes
	Absolute bool

	StartDelay        time.Duration
	DurationHint      time.Duration
	ReverseStartDelay time.Duration

	Kind     TriggerKind
	Subtype  int
	Instance int

	Sound SoundHandles

	// Stamped when the request is enqueued.
	StartTime time.Duration
	EndTime   time.Duration
}

// sameTrigger reports whether two requests target the same trigger slot.
func (m *QueuedMotion) sameTrigger(o *QueuedMotion) bool {
	return m.Kind == o.Kind && m.Subtype == o.Subtype && m.Instance == o.Instance
}

// Reversed returns the motion as it is played backwards: angles negated and
// the reverse start delay in place of the forward one. A reverse delay still
// holding the derive sentinel leaves the forward delay in place.
func (m QueuedMotion) Reversed() QueuedMotion {
	m.Angle = m.Angle.Mul(-1)
	if m.ReverseStartDelay >= 0 {
		m.StartDelay = m.ReverseStartDelay
	}
	return m
}
