// Objects made of animated sub-parts
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package subsys

import (
	"time"

	"rotanim/pkg/anim"
	"rotanim/pkg/errors"
)

// Object groups the sub-parts of one model instance. Trigger and query
// methods run on the tick goroutine.
type Object struct {
	Name  string
	Parts []*Part

	arena *Arena
}

// NewObject returns an object whose part states live in arena.
func NewObject(name string, arena *Arena) *Object {
	return &Object{Name: name, arena: arena}
}

// Arena returns the arena backing the object's parts.
func (o *Object) Arena() *Arena { return o.arena }

// AddPart attaches p, allocating a motion state if it has templates.
func (o *Object) AddPart(p *Part) {
	if p.Triggered() && !p.Slot.Valid() {
		p.Slot = o.arena.Alloc()
	}
	p.owner = o
	o.Parts = append(o.Parts, p)
}

// Part looks up a part by name.
func (o *Object) Part(name string) (*Part, bool) {
	for _, p := range o.Parts {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// State returns the motion state of the named part.
func (o *Object) State(part string) (*anim.MotionState, error) {
	p, ok := o.Part(part)
	if !ok {
		return nil, errors.Newf(errors.ErrAnimUnknownPart, "no part %q", part).SetTarget(o.Name, part)
	}
	st, ok := o.arena.Get(p.Slot)
	if !ok {
		return nil, errors.NoSlotError(o.Name, part)
	}
	return st, nil
}

// Release frees every part's motion state. The object must not be used
// afterwards.
func (o *Object) Release() {
	for _, p := range o.Parts {
		o.arena.Release(p.Slot)
		p.Slot = Handle{}
	}
}

// Dispatch plays req on every part and reports what happened.
func (o *Object) Dispatch(req Request, now time.Duration) Dispatch {
	var d Dispatch
	for _, p := range o.Parts {
		d.add(p.start(req, now))
	}
	if d.Dropped > 0 {
		logger.WithFields(map[string]interface{}{
			"object":  o.Name,
			"kind":    req.Kind.String(),
			"dropped": d.Dropped,
		}).Warn("motion queue full")
	}
	return d
}

// StartType triggers kind/subtype on every part, returning whether any
// template matched.
func (o *Object) StartType(kind anim.TriggerKind, subtype, dir int, instant bool, now time.Duration) bool {
	return o.Dispatch(Request{Kind: kind, Subtype: subtype, Direction: dir, Instant: instant}, now).Any()
}

// StartPartType is StartType limited to one part.
func (o *Object) StartPartType(part string, req Request, now time.Duration) (bool, error) {
	p, ok := o.Part(part)
	if !ok {
		return false, errors.Newf(errors.ErrAnimUnknownPart, "no part %q", part).SetTarget(o.Name, part)
	}
	return p.start(req, now).Any(), nil
}

// ApplyInitial snaps every part to its initial-position templates.
func (o *Object) ApplyInitial(now time.Duration) bool {
	return o.StartType(anim.KindInitial, anim.SubtypeAll, 1, true, now)
}

// ActualTimeType returns the longest total duration of matching templates
// on parts that are not destroyed.
func (o *Object) ActualTimeType(kind anim.TriggerKind, subtype int) time.Duration {
	var longest time.Duration
	for _, p := range o.Parts {
		if p.Destroyed() {
			continue
		}
		if d := ActualTimeType(p.Templates, kind, subtype); d > longest {
			longest = d
		}
	}
	return longest
}

// ActualTimeType returns the longest total duration of the templates
// matching kind and subtype.
func ActualTimeType(templates []anim.QueuedMotion, kind anim.TriggerKind, subtype int) time.Duration {
	var longest time.Duration
	for i := range templates {
		if templates[i].Kind != kind || !SubtypeMatches(&templates[i], subtype) {
			continue
		}
		if d := anim.TotalDuration(templates[i]); d > longest {
			longest = d
		}
	}
	return longest
}

// TimeType returns the sim time by which motions of kind should be done on
// every part. Parts that are destroyed or have no state contribute now.
func (o *Object) TimeType(kind anim.TriggerKind, subtype int, now time.Duration) time.Duration {
	var longest time.Duration
	for _, p := range o.Parts {
		if d := p.timeLeft(kind, subtype, now); d > longest {
			longest = d
		}
	}
	return now + longest
}

// Tick advances every part by dt: due queued motions start, then active
// ones integrate. fn, if set, sees each part's tick result.
func (o *Object) Tick(now, dt time.Duration, fn func(*Part, *anim.MotionState, anim.TickReport)) {
	for _, p := range o.Parts {
		st, ok := o.arena.Get(p.Slot)
		if !ok {
			continue
		}
		st.ProcessQueue(now)
		if !st.Moving() {
			continue
		}
		rep := st.Update(dt)
		if fn != nil {
			fn(p, st, rep)
		}
	}
}
