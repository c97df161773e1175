// Completion time prediction
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package anim

import (
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"rotanim/pkg/kinematics"
)

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// axisDuration is the template estimate for one axis from rest, excluding
// the start delay. ok is false when the axis has no acceleration phase and
// the duration hint applies instead.
func axisDuration(m *QueuedMotion, i int) (d time.Duration, ok bool) {
	a := math.Abs(m.Accel[i])
	v := math.Abs(m.Velocity[i])
	if a == 0 || v == 0 {
		return m.DurationHint, false
	}
	return seconds(kinematics.TrapezoidTime(0, math.Abs(m.Angle[i]), 0, v, a)), true
}

// TotalDuration estimates how long m takes once requested: the longest axis,
// where an accelerated axis takes (3v² + 2aθ)/2av plus the start delay and an
// axis without acceleration takes the duration hint.
func TotalDuration(m QueuedMotion) time.Duration {
	var total time.Duration
	for i := 0; i < 3; i++ {
		d, ok := axisDuration(&m, i)
		if ok {
			d += m.StartDelay
		}
		if d > total {
			total = d
		}
	}
	return total
}

// travelDuration is TotalDuration from the moment the motion starts.
func travelDuration(m QueuedMotion) time.Duration {
	var total time.Duration
	for i := 0; i < 3; i++ {
		if d, _ := axisDuration(&m, i); d > total {
			total = d
		}
	}
	return total
}

// holdPad is how much longer than its accelerated axes the template's
// duration hint runs. Templates without an accelerated axis have no pad.
func holdPad(m QueuedMotion) time.Duration {
	var kin time.Duration
	accelerated := false
	for i := 0; i < 3; i++ {
		if d, ok := axisDuration(&m, i); ok {
			accelerated = true
			if d > kin {
				kin = d
			}
		}
	}
	if !accelerated || m.DurationHint <= kin {
		return 0
	}
	return m.DurationHint - kin
}

// RemainingDuration predicts the time left for profile p given the live
// angle and velocity. Axes still short of their braking point use the
// trapezoid estimate from the live state, axes already braking need |v|/a,
// and the hold pad is added on top. Axes without acceleration run until the
// profile's predicted end.
func RemainingDuration(p ActiveProfile, angle, vel mgl64.Vec3, now time.Duration) time.Duration {
	var accelerated, flat time.Duration
	moving := false
	for i := 0; i < 3; i++ {
		dir := p.Direction[i]
		if dir == 0 && vel[i] == 0 {
			continue
		}
		a := math.Abs(p.Accel[i])
		if a == 0 {
			if d := p.PredictedEndAt - now; d > flat {
				flat = d
			}
			continue
		}
		moving = true
		var d time.Duration
		if p.beforeSlow(angle[i], i) {
			d = seconds(kinematics.TrapezoidTime(angle[i]*dir, p.SlowAngle[i]*dir,
				vel[i]*dir, math.Abs(p.CruiseVelocity[i]), a))
		} else {
			d = seconds(math.Abs(vel[i]) / a)
		}
		if d > accelerated {
			accelerated = d
		}
	}
	if moving {
		accelerated += holdPad(p.Motion)
	}
	if flat > accelerated {
		return flat
	}
	return accelerated
}
