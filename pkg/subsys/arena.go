// Generational arena of motion states
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package subsys

import (
	"sync"

	"rotanim/pkg/anim"
)

// Handle addresses a motion state in an Arena. The zero Handle is never
// valid. A handle goes stale once its slot is released, even if the slot is
// reused.
type Handle struct {
	index uint32
	gen   uint32
}

// Valid reports whether h was ever issued.
func (h Handle) Valid() bool { return h.gen != 0 }

type slot struct {
	gen   uint32
	live  bool
	state *anim.MotionState
}

// Arena owns the motion states of every sub-part. Lookups and allocation are
// safe for concurrent use; the states themselves belong to the tick
// goroutine.
type Arena struct {
	mu    sync.RWMutex
	slots []slot
	free  []uint32
	live  int
}

// NewArena returns an empty arena.
func NewArena() *Arena {
	return &Arena{}
}

// Alloc creates a fresh idle motion state and returns its handle.
func (a *Arena) Alloc() Handle {
	a.mu.Lock()
	defer a.mu.Unlock()

	var idx uint32
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		idx = uint32(len(a.slots))
		a.slots = append(a.slots, slot{})
	}
	s := &a.slots[idx]
	s.gen++
	s.live = true
	s.state = anim.NewMotionState()
	a.live++
	return Handle{index: idx, gen: s.gen}
}

// Get returns the state for h, or false if h is stale or was never issued.
func (a *Arena) Get(h Handle) (*anim.MotionState, bool) {
	if !h.Valid() {
		return nil, false
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	if int(h.index) >= len(a.slots) {
		return nil, false
	}
	s := &a.slots[h.index]
	if !s.live || s.gen != h.gen {
		return nil, false
	}
	return s.state, true
}

// Release frees the slot behind h. It returns false for stale handles.
func (a *Arena) Release(h Handle) bool {
	if !h.Valid() {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if int(h.index) >= len(a.slots) {
		return false
	}
	s := &a.slots[h.index]
	if !s.live || s.gen != h.gen {
		return false
	}
	s.live = false
	s.state = nil
	a.free = append(a.free, h.index)
	a.live--
	return true
}

// Len returns the number of live states.
func (a *Arena) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.live
}

// Range calls fn for every live state until fn returns false. fn must not
// allocate or release.
func (a *Arena) Range(fn func(Handle, *anim.MotionState) bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for i := range a.slots {
		s := &a.slots[i]
		if !s.live {
			continue
		}
		if !fn(Handle{index: uint32(i), gen: s.gen}, s.state) {
			return
		}
	}
}
