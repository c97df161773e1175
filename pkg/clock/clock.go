// Package clock provides the simulation time base. Timestamps are
// time.Duration offsets from the moment a clock was created, so they start
// near zero and never go backwards.
package clock

import (
	"sync"
	"time"
)

// Clock reports the current simulation time.
type Clock interface {
	Now() time.Duration
}

// Monotonic is a Clock backed by the host monotonic clock.
type Monotonic struct {
	origin time.Duration
}

// NewMonotonic returns a clock whose zero is the moment of the call.
func NewMonotonic() *Monotonic {
	return &Monotonic{origin: hostMonotonic()}
}

// Now returns the time elapsed since the clock was created.
func (m *Monotonic) Now() time.Duration {
	return hostMonotonic() - m.origin
}

// Seconds returns Now in seconds, for callers working in float time.
func (m *Monotonic) Seconds() float64 {
	return m.Now().Seconds()
}

// Manual is a Clock that only moves when told to. Safe for concurrent use.
type Manual struct {
	mu  sync.RWMutex
	now time.Duration
}

// NewManual returns a manual clock set to start.
func NewManual(start time.Duration) *Manual {
	return &Manual{now: start}
}

// Now returns the current manual time.
func (m *Manual) Now() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.now
}

// Advance moves the clock forward by d and returns the new time. Negative
// values are ignored.
func (m *Manual) Advance(d time.Duration) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d > 0 {
		m.now += d
	}
	return m.now
}

// Set moves the clock to t if t is not in the past.
func (m *Manual) Set(t time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t > m.now {
		m.now = t
	}
}

// FromSeconds converts float seconds to a Duration.
func FromSeconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
