package anim

import (
	"math"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// quarterTurn rotates the bank axis by π/2 at 1 rad/s with 2 rad/s².
func quarterTurn() QueuedMotion {
	return QueuedMotion{
		Angle:    mgl64.Vec3{0, 0, math.Pi / 2},
		Velocity: mgl64.Vec3{0, 0, 1},
		Accel:    mgl64.Vec3{0, 0, 2},
		Kind:     KindDocked,
		Subtype:  SubtypeAll,
	}
}

func durationSeconds(d time.Duration) float64 { return d.Seconds() }

func TestTotalDurationFormula(t *testing.T) {
	m := quarterTurn()
	want := (3 + 2*math.Pi) / 4
	assert.InDelta(t, want, durationSeconds(TotalDuration(m)), 1e-6)

	m.StartDelay = 250 * time.Millisecond
	assert.InDelta(t, want+0.25, durationSeconds(TotalDuration(m)), 1e-6)
}

func TestTotalDurationTakesLongestAxis(t *testing.T) {
	m := quarterTurn()
	m.Angle[0] = 3 * math.Pi
	m.Velocity[0] = 1
	m.Accel[0] = 2
	want := (3 + 2*2*3*math.Pi) / 4
	assert.InDelta(t, want, durationSeconds(TotalDuration(m)), 1e-6)
}

func TestTotalDurationZeroAccelUsesHint(t *testing.T) {
	m := QueuedMotion{
		Angle:        mgl64.Vec3{1, 0, 0},
		Velocity:     mgl64.Vec3{1, 0, 0},
		DurationHint: 1200 * time.Millisecond,
		StartDelay:   time.Second,
	}
	assert.Equal(t, 1200*time.Millisecond, TotalDuration(m))

	// Acceleration without a speed must not divide by zero.
	m.Accel = mgl64.Vec3{1, 0, 0}
	m.Velocity = mgl64.Vec3{}
	assert.Equal(t, 1200*time.Millisecond, TotalDuration(m))
}

func TestTotalDurationIgnoresDirection(t *testing.T) {
	m := quarterTurn()
	assert.Equal(t, TotalDuration(m), TotalDuration(m.Reversed()))
}

func TestRemainingDurationAtStart(t *testing.T) {
	s := NewMotionState()
	require.Equal(t, Started, s.AddQueue(quarterTurn(), 1, 0))

	// From rest the live estimate is the exact trapezoid time v/a + θ/v.
	want := 0.5 + math.Pi/2
	assert.InDelta(t, want, s.RemainingDuration(0).Seconds(), 1e-6)
	assert.Less(t, s.RemainingDuration(0), TotalDuration(quarterTurn()))
}

func TestRemainingDurationTracksProgress(t *testing.T) {
	s := NewMotionState()
	s.AddQueue(quarterTurn(), 1, 0)
	initial := s.RemainingDuration(0)

	dt := 10 * time.Millisecond
	now := time.Duration(0)
	for i := 0; i < 150; i++ {
		s.Update(dt)
		now += dt
		got := s.RemainingDuration(now)
		// Elapsed plus remaining stays close to the initial estimate.
		assert.InDelta(t, initial.Seconds(), (now + got).Seconds(), 0.05, "tick %d", i)
	}
}

func TestRemainingDurationWhileBraking(t *testing.T) {
	s := NewMotionState()
	s.AddQueue(quarterTurn(), 1, 0)
	for s.Moving() {
		p, _ := s.Active()
		if !p.beforeSlow(s.Angle()[2], 2) {
			break
		}
		s.Update(5 * time.Millisecond)
	}
	require.True(t, s.Moving())
	want := math.Abs(s.Velocity()[2]) / 2
	assert.InDelta(t, want, s.RemainingDuration(0).Seconds(), 1e-6)
}

func TestRemainingDurationIdle(t *testing.T) {
	s := NewMotionState()
	assert.Equal(t, time.Duration(0), s.RemainingDuration(time.Second))
}

func TestRemainingDurationZeroAccel(t *testing.T) {
	m := QueuedMotion{
		Angle:        mgl64.Vec3{1, 0, 0},
		Velocity:     mgl64.Vec3{2, 0, 0},
		DurationHint: 500 * time.Millisecond,
	}
	s := NewMotionState()
	s.AddQueue(m, 1, time.Second)
	assert.Equal(t, 500*time.Millisecond, s.RemainingDuration(time.Second))
	assert.Equal(t, 200*time.Millisecond, s.RemainingDuration(time.Second+300*time.Millisecond))
}

func TestRemainingDurationHoldPad(t *testing.T) {
	m := quarterTurn()
	m.DurationHint = 5 * time.Second
	s := NewMotionState()
	s.AddQueue(m, 1, 0)

	pad := 5 - (3+2*math.Pi)/4
	want := 0.5 + math.Pi/2 + pad
	assert.InDelta(t, want, s.RemainingDuration(0).Seconds(), 1e-6)
}
