// Trapezoidal per-axis integrator
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

// ActiveProfile is the running motion of a MotionState. Velocity and
// acceleration are signed by Direction.
type ActiveProfile struct {
	Motion   QueuedMotion
	Instance int

	Direction      mgl64.Vec3
	CruiseVelocity mgl64.Vec3
	Accel          mgl64.Vec3
	EndAngle       mgl64.Vec3
	SlowAngle      mgl64.Vec3

	StartedAt      time.Duration
	PredictedEndAt time.Duration

	// commanded is the template speed signed by travel direction, fixed at
	// start. Reversal matching compares against it.
	commanded mgl64.Vec3

	// against marks axes that were moving the wrong way when the profile
	// started, which is what an interrupted motion looks like.
	against [3]bool
}

// TickReport summarizes one Update.
type TickReport struct {
	Stopped   [3]bool
	Completed bool
}

func sign(x float64) float64 { return kinematics.Sign(x) }

// start builds the profile for m from the live pose and makes it active.
func (s *MotionState) start(m QueuedMotion, now time.Duration) {
	p := &ActiveProfile{
		Motion:         m,
		Instance:       m.Instance,
		StartedAt:      now,
		PredictedEndAt: now + travelDuration(m),
		commanded:      s.signedVelocity(&m),
	}

	target := m.Angle
	if !m.Absolute {
		target = s.endAngle.Add(m.Angle)
	}
	for i := 0; i < 3; i++ {
		// Speed is limited against the commanded travel, not the distance
		// left from the live angle.
		mv := kinematics.Move{
			StartPos: s.angle[i],
			EndPos:   target[i],
			CruiseV:  kinematics.LimitCruise(target[i]-s.endAngle[i], m.Velocity[i], m.Accel[i]),
			Accel:    math.Abs(m.Accel[i]),
		}
		dir := mv.Direction()
		p.Direction[i] = dir
		p.CruiseVelocity[i] = mv.CruiseV * dir
		p.Accel[i] = mv.Accel * dir
		p.EndAngle[i] = target[i]
		p.SlowAngle[i] = mv.SlowPos()
		p.against[i] = s.velocity[i]*dir < 0
	}

	s.endAngle = target
	s.active = p
}

// Update advances the running profile by dt. It is a no-op when idle.
func (s *MotionState) Update(dt time.Duration) TickReport {
	var rep TickReport
	p := s.active
	if p == nil {
		return rep
	}
	sec := dt.Seconds()

	stopped := 0
	for i := 0; i < 3; i++ {
		if s.updateAxis(p, i, sec) {
			rep.Stopped[i] = true
			stopped++
		}
	}

	if stopped == 3 {
		s.active = nil
		s.turnRate, s.desiredTurnRate, s.turnAccel = 0, 0, 0
		rep.Completed = true
		return rep
	}

	s.turnRate = s.velocity.Len()
	s.desiredTurnRate = p.CruiseVelocity.Len()
	s.turnAccel = p.Accel.Len()
	return rep
}

// beforeSlow reports whether axis i has not yet reached its braking point.
func (p *ActiveProfile) beforeSlow(angle float64, i int) bool {
	return angle*p.Direction[i] < p.SlowAngle[i]*p.Direction[i]
}

// reversedWhileDecelerating reports whether a velocity opposing the profile
// acceleration comes from an interrupted motion rather than from braking a
// little too long.
func (p *ActiveProfile) reversedWhileDecelerating(i int, vel float64) bool {
	return p.against[i] && vel != 0 && sign(vel) != sign(p.Accel[i])
}

// updateAxis integrates one axis and reports whether it is at rest on its
// end angle.
func (s *MotionState) updateAxis(p *ActiveProfile, i int, dt float64) bool {
	dir := p.Direction[i]
	vel := s.velocity[i]

	if vel == 0 && !p.beforeSlow(s.angle[i], i) {
		s.angle[i] = p.EndAngle[i]
		return true
	}

	if p.beforeSlow(s.angle[i], i) {
		cruise := p.CruiseVelocity[i]
		if vel*dir < cruise*dir && p.Accel[i] != 0 {
			vel += p.Accel[i] * dt
			if vel*dir > cruise*dir {
				vel = cruise
			}
		} else {
			vel = cruise
		}
	} else {
		switch {
		case vel*dir > 0 && p.Accel[i] != 0:
			vel -= p.Accel[i] * dt
			if vel*dir < 0 {
				vel = 0
			}
		case p.reversedWhileDecelerating(i, vel):
			// Brake, come back at the same speed, then brake again from
			// here: the mirror image of the interrupted motion.
			p.SlowAngle[i] = s.angle[i]
			p.CruiseVelocity[i] = -vel
			p.against[i] = false
		default:
			vel = 0
		}
	}
	s.velocity[i] = vel
	if p.against[i] && vel*dir >= 0 {
		p.against[i] = false
	}

	if s.angle[i]*dir >= p.EndAngle[i]*dir {
		s.angle[i] = p.EndAngle[i]
		s.velocity[i] = 0
		return true
	}
	s.angle[i] += vel * dt
	if s.angle[i]*dir > p.EndAngle[i]*dir {
		s.angle[i] = p.EndAngle[i]
		s.velocity[i] = 0
		return true
	}
	return false
}
