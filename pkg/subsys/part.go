// Animated sub-parts and trigger dispatch
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package subsys

import (
	"time"

	"rotanim/pkg/anim"
	"rotanim/pkg/errors"
	"rotanim/pkg/log"
)

var logger = log.GetLogger("subsys")

// Request asks every matching template to play.
type Request struct {
	Kind      anim.TriggerKind
	Subtype   int
	Direction int
	Instant   bool
}

// Dispatch counts what a request did to the templates it matched.
type Dispatch struct {
	Matched   int
	Started   int
	Queued    int
	Cancelled int
	Dropped   int
	Snapped   int
}

// Any reports whether at least one template was handled.
func (d Dispatch) Any() bool { return d.Matched > 0 }

func (d *Dispatch) add(o Dispatch) {
	d.Matched += o.Matched
	d.Started += o.Started
	d.Queued += o.Queued
	d.Cancelled += o.Cancelled
	d.Dropped += o.Dropped
	d.Snapped += o.Snapped
}

func (d *Dispatch) count(r anim.QueueResult) {
	switch r {
	case anim.Started:
		d.Started++
	case anim.Queued:
		d.Queued++
	case anim.Cancelled:
		d.Cancelled++
	case anim.Dropped:
		d.Dropped++
	}
}

// Part is one animated sub-part of an object.
type Part struct {
	Name      string
	Templates []anim.QueuedMotion

	// MaxHits of zero disables damage gating.
	MaxHits     float64
	CurrentHits float64

	Slot Handle

	owner *Object
}

// Destroyed reports whether the part has hit points and has lost them all.
func (p *Part) Destroyed() bool {
	return p.MaxHits > 0 && p.CurrentHits <= 0
}

// Triggered reports whether the part has any templates at all.
func (p *Part) Triggered() bool {
	return len(p.Templates) > 0
}

// SubtypeMatches reports whether template m answers a request for subtype.
// Bay door templates number doors from 1; a template door number d below 1
// matches every door except 1-d.
func SubtypeMatches(m *anim.QueuedMotion, subtype int) bool {
	if subtype == anim.SubtypeAll || m.Subtype == anim.SubtypeAll {
		return true
	}
	if m.Kind == anim.KindBayDoor {
		door := m.Subtype - 1
		if door < 0 {
			return -door != subtype
		}
		return door == subtype
	}
	return m.Subtype == subtype
}

// matching returns the indices of templates answering kind and subtype.
func (p *Part) matching(kind anim.TriggerKind, subtype int) []int {
	var out []int
	for i := range p.Templates {
		if p.Templates[i].Kind == kind && SubtypeMatches(&p.Templates[i], subtype) {
			out = append(out, i)
		}
	}
	return out
}

// state resolves the part's slot, logging when it cannot.
func (p *Part) state() (*anim.MotionState, bool) {
	if p.owner == nil {
		logger.WithError(errors.NoSlotError("", p.Name)).Warn("part has no owner")
		return nil, false
	}
	st, ok := p.owner.arena.Get(p.Slot)
	if !ok {
		logger.WithError(errors.NoSlotError(p.owner.Name, p.Name)).Warn("ignoring trigger")
	}
	return st, ok
}

// StartType plays every template matching kind and subtype, returning
// whether any matched.
func (p *Part) StartType(kind anim.TriggerKind, subtype, dir int, instant bool, now time.Duration) bool {
	return p.start(Request{Kind: kind, Subtype: subtype, Direction: dir, Instant: instant}, now).Any()
}

// start plays every template of p matching req.
func (p *Part) start(req Request, now time.Duration) Dispatch {
	var d Dispatch
	if p.Destroyed() || !p.Triggered() {
		return d
	}
	st, ok := p.state()
	if !ok {
		return d
	}
	for _, i := range p.matching(req.Kind, req.Subtype) {
		d.Matched++
		if req.Instant {
			st.SetToFinal(p.Templates[i])
			d.Snapped++
			continue
		}
		p.Templates[i].Instance = i
		d.count(st.AddQueue(p.Templates[i], req.Direction, now))
	}
	return d
}

// TimeType returns the sim time by which motions of kind on p should be
// done.
func (p *Part) TimeType(kind anim.TriggerKind, subtype int, now time.Duration) time.Duration {
	return now + p.timeLeft(kind, subtype, now)
}

// timeLeft is the wait behind TimeType. Idle parts report the template's
// start delay plus duration hint.
func (p *Part) timeLeft(kind anim.TriggerKind, subtype int, now time.Duration) time.Duration {
	if p.Destroyed() || !p.Triggered() {
		return 0
	}
	st, ok := p.state()
	if !ok {
		return 0
	}
	var longest time.Duration
	for _, i := range p.matching(kind, subtype) {
		var d time.Duration
		if st.Moving() {
			d = st.RemainingDuration(now)
		} else {
			d = p.Templates[i].StartDelay + p.Templates[i].DurationHint
		}
		if d > longest {
			longest = d
		}
	}
	return longest
}
