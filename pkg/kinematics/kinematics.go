// Package kinematics provides the closed-form algebra of single-axis
// trapezoidal rotations: accelerate at a constant rate, cruise, then
// decelerate to rest on the target.
package kinematics

import "math"

// Sign returns -1, 0 or 1 according to the sign of x.
func Sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

// BrakingDistance is the distance covered while decelerating from v to rest
// at rate a. It is zero when a is zero.
func BrakingDistance(v, a float64) float64 {
	a = math.Abs(a)
	if a == 0 {
		return 0
	}
	return v * v / (2 * a)
}

// LimitCruise reduces the cruise speed so that accelerating to it and
// braking from it fits inside dist. A move that is too short for full speed
// peaks at sqrt(a*dist) half way.
func LimitCruise(dist, speed, accel float64) float64 {
	dist = math.Abs(dist)
	accel = math.Abs(accel)
	speed = math.Abs(speed)
	if accel == 0 || dist == 0 {
		return speed
	}
	maxCruiseV2 := dist * accel
	if maxCruiseV2 < speed*speed {
		return math.Sqrt(maxCruiseV2)
	}
	return speed
}

// TrapezoidTime returns the time to reach rest having started at position
// start with velocity v0, accelerating at a up to cruise speed vc, cruising to
// the turn point and braking from there. All quantities are measured along the
// direction of travel, so v0 may be negative when the axis is still moving
// away. It returns 0 when a or vc is not positive.
//
//	t = (2vc - v0)/a + (turn - start - (vc² - v0²)/2a) / vc
func TrapezoidTime(start, turn, v0, vc, a float64) float64 {
	if a <= 0 || vc <= 0 {
		return 0
	}
	rampT := (2*vc - v0) / a
	cruiseD := turn - start - (vc*vc-v0*v0)/(2*a)
	return rampT + cruiseD/vc
}

// Move describes one axis of a trapezoidal rotation.
type Move struct {
	StartPos float64
	EndPos   float64
	CruiseV  float64 // Unsigned cruise speed
	Accel    float64 // Unsigned acceleration
}

// Direction returns the sign of travel, or 0 for a null move.
func (m Move) Direction() float64 {
	return Sign(m.EndPos - m.StartPos)
}

// Dist returns the unsigned travel distance.
func (m Move) Dist() float64 {
	return math.Abs(m.EndPos - m.StartPos)
}

// LimitSpeed applies LimitCruise to the move in place.
func (m *Move) LimitSpeed() {
	m.CruiseV = LimitCruise(m.Dist(), m.CruiseV, m.Accel)
}

// SlowPos is where braking must begin to come to rest on EndPos. With zero
// acceleration there is no braking phase and it equals EndPos.
func (m Move) SlowPos() float64 {
	return m.EndPos - BrakingDistance(m.CruiseV, m.Accel)*m.Direction()
}

// Times returns the exact acceleration, cruise and deceleration phase
// durations of the move starting from rest.
func (m Move) Times() (accelT, cruiseT, decelT float64) {
	dist := m.Dist()
	if m.CruiseV <= 0 {
		return 0, 0, 0
	}
	if m.Accel == 0 || dist == 0 {
		return 0, dist / m.CruiseV, 0
	}
	v := LimitCruise(dist, m.CruiseV, m.Accel)
	accelT = v / m.Accel
	cruiseT = (dist - accelT*v) / v
	return accelT, cruiseT, accelT
}

// Duration returns the exact time the move takes starting from rest.
func (m Move) Duration() float64 {
	a, c, d := m.Times()
	return a + c + d
}
