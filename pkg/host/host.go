// Package host runs animated objects on a reactor timer. All object state
// is owned by the reactor goroutine; the exported methods hand work to it
// and wait for the result.
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.
package host

import (
	"context"
	"sync/atomic"
	"time"

	"rotanim/pkg/anim"
	"rotanim/pkg/config"
	"rotanim/pkg/errors"
	"rotanim/pkg/log"
	"rotanim/pkg/metrics"
	"rotanim/pkg/reactor"
	"rotanim/pkg/subsys"
)

var logger = log.GetLogger("host")

// DefaultObject names the object built when a model declares none.
const DefaultObject = "default"

// Config controls the tick loop.
type Config struct {
	// Tick is the integration step. Default 10ms.
	Tick time.Duration
	// MaxStep caps dt after a stall so motions do not jump. Default 100ms.
	MaxStep time.Duration
	// PublishInterval is how often status sinks are fed. Zero publishes
	// every tick.
	PublishInterval time.Duration
}

// DefaultConfig returns the default loop settings.
func DefaultConfig() Config {
	return Config{
		Tick:            10 * time.Millisecond,
		MaxStep:         100 * time.Millisecond,
		PublishInterval: 50 * time.Millisecond,
	}
}

// Host owns the arena, the objects and the trigger stack.
type Host struct {
	cfg     Config
	reactor *reactor.Reactor
	metrics *metrics.AnimMetrics

	arena   *subsys.Arena
	stack   *subsys.Stack
	objects map[string]*subsys.Object
	order   []string
	tracks  map[*subsys.Part]*track

	listeners []Listener
	sinks     []StatusSink

	timer       *reactor.Timer
	lastTick    time.Duration
	nextTick    time.Duration
	lastPublish time.Duration
	ticks       uint64

	// Read by Ready from other goroutines.
	running    atomic.Bool
	lastWall   atomic.Int64
	stallAfter time.Duration
}

// New builds a host for model on r. met may be nil.
func New(r *reactor.Reactor, model *config.Model, cfg Config, met *metrics.AnimMetrics) (*Host, error) {
	def := DefaultConfig()
	if cfg.Tick <= 0 {
		cfg.Tick = def.Tick
	}
	if cfg.MaxStep <= 0 {
		cfg.MaxStep = def.MaxStep
	}
	if cfg.MaxStep < cfg.Tick {
		cfg.MaxStep = cfg.Tick
	}
	h := &Host{
		cfg:     cfg,
		reactor: r,
		metrics: met,
		arena:   subsys.NewArena(),
		stack:   subsys.NewStack(),
		objects: make(map[string]*subsys.Object),
		tracks:  make(map[*subsys.Part]*track),
	}
	h.stallAfter = 20 * cfg.Tick
	if h.stallAfter < time.Second {
		h.stallAfter = time.Second
	}
	if err := h.applyModel(model, r.Monotonic()); err != nil {
		return nil, err
	}
	return h, nil
}

// AddListener registers l for phase events. Call before Start.
func (h *Host) AddListener(l Listener) {
	h.listeners = append(h.listeners, l)
}

// AddSink registers s for status snapshots. Call before Start.
func (h *Host) AddSink(s StatusSink) {
	h.sinks = append(h.sinks, s)
}

// Reactor returns the reactor the host runs on.
func (h *Host) Reactor() *reactor.Reactor { return h.reactor }

// Start registers the tick timer.
func (h *Host) Start() {
	if h.timer != nil {
		return
	}
	now := h.reactor.Monotonic()
	h.lastTick = now
	h.nextTick = now
	h.timer = h.reactor.RegisterTimer(h.onTimer, now)
	h.running.Store(true)
	logger.WithFields(log.Fields{
		"tick":    h.cfg.Tick.String(),
		"objects": len(h.order),
	}).Info("tick loop started")
}

// Stop unregisters the tick timer.
func (h *Host) Stop() {
	if h.timer == nil {
		return
	}
	h.running.Store(false)
	h.reactor.UnregisterTimer(h.timer)
	h.timer = nil
}

// Ready returns nil while the tick timer is registered and has fired
// recently in wall time. It is safe to call from any goroutine.
func (h *Host) Ready() error {
	if !h.running.Load() {
		return errors.New(errors.ErrRuntime, "tick loop not running")
	}
	last := h.lastWall.Load()
	if last == 0 {
		return errors.New(errors.ErrRuntime, "no tick yet")
	}
	if age := time.Since(time.Unix(0, last)); age > h.stallAfter {
		return errors.Newf(errors.ErrRuntime, "last tick %v ago", age.Round(time.Millisecond))
	}
	return nil
}

func (h *Host) onTimer(eventtime time.Duration) time.Duration {
	lag := eventtime - h.nextTick
	h.tick(eventtime, lag)
	h.nextTick += h.cfg.Tick
	if h.nextTick <= eventtime {
		h.nextTick = eventtime + h.cfg.Tick
	}
	return h.nextTick
}

// tick advances every object to now.
func (h *Host) tick(now, lag time.Duration) {
	began := time.Now()
	h.lastWall.Store(began.UnixNano())
	dt := now - h.lastTick
	if dt > h.cfg.MaxStep {
		dt = h.cfg.MaxStep
	}
	h.lastTick = now
	h.ticks++

	for _, name := range h.order {
		h.tickObject(h.objects[name], now, dt)
	}

	if len(h.sinks) > 0 && now-h.lastPublish >= h.cfg.PublishInterval {
		h.lastPublish = now
		snaps := h.snapshots(now)
		for _, s := range h.sinks {
			s.PublishStatus(now, snaps)
		}
	}
	if h.metrics != nil {
		h.metrics.ObserveTick(now, time.Since(began), lag)
	}
}

func (h *Host) tickObject(o *subsys.Object, now, dt time.Duration) {
	active, pending := 0, 0
	for _, p := range o.Parts {
		st, ok := o.Arena().Get(p.Slot)
		if !ok {
			continue
		}
		tr := h.tracks[p]
		if tr == nil {
			tr = &track{}
			h.tracks[p] = tr
		}
		st.ProcessQueue(now)
		h.observeStart(o, p, st, tr, now)

		if st.Moving() {
			rep := st.Update(dt)
			if rep.Completed {
				h.emitStop(o, p, tr, now, true)
			} else {
				h.emit(PhaseEvent{
					Phase: PhaseMoving, Object: o.Name, Part: p.Name,
					Kind: tr.kind, Time: now, Sound: tr.sound, TurnRate: st.TurnRate(),
				})
			}
		}
		if st.Moving() {
			active++
		}
		pending += st.PendingLen()
		if h.metrics != nil {
			h.metrics.SetTurnRate(o.Name, p.Name, st.TurnRate())
		}
	}
	if h.metrics != nil {
		h.metrics.SetObjectState(o.Name, active, pending)
	}
}

// observeStart emits the stop and start events implied by the profile
// that is active before integration.
func (h *Host) observeStart(o *subsys.Object, p *subsys.Part, st *anim.MotionState, tr *track, now time.Duration) {
	prof, ok := st.Active()
	if !ok {
		if tr.running {
			h.emitStop(o, p, tr, now, false)
		}
		return
	}
	key := keyOf(prof)
	if tr.running && tr.key == key {
		return
	}
	if tr.running {
		h.emitStop(o, p, tr, now, false)
	}
	tr.running = true
	tr.key = key
	tr.kind = prof.Motion.Kind
	tr.sound = prof.Motion.Sound
	h.emit(PhaseEvent{
		Phase: PhaseStarted, Object: o.Name, Part: p.Name,
		Kind: tr.kind, Time: now, Sound: tr.sound, TurnRate: st.TurnRate(),
	})
}

func (h *Host) emitStop(o *subsys.Object, p *subsys.Part, tr *track, now time.Duration, completed bool) {
	tr.running = false
	if completed && h.metrics != nil {
		h.metrics.RecordCompleted(tr.kind.String())
	}
	h.emit(PhaseEvent{
		Phase: PhaseStopped, Object: o.Name, Part: p.Name,
		Kind: tr.kind, Time: now, Sound: tr.sound, Completed: completed,
	})
}

func (h *Host) emit(ev PhaseEvent) {
	for _, l := range h.listeners {
		l.OnPhase(ev)
	}
}

func (h *Host) snapshots(now time.Duration) []ObjectStatus {
	out := make([]ObjectStatus, 0, len(h.order))
	for _, name := range h.order {
		out = append(out, snapshot(h.objects[name], now))
	}
	return out
}

func (h *Host) object(name string) (*subsys.Object, error) {
	o, ok := h.objects[name]
	if !ok {
		return nil, errors.UnknownObjectError(name)
	}
	return o, nil
}

// do runs fn on the reactor goroutine and waits for it.
func (h *Host) do(ctx context.Context, fn func(now time.Duration) (any, error)) (any, error) {
	type result struct {
		v   any
		err error
	}
	c := h.reactor.RegisterAsyncCallback(func(now time.Duration) (out any) {
		defer func() {
			if r := recover(); r != nil {
				err := errors.FromPanic(r)
				logger.WithError(err).Error("panic in host call")
				out = result{err: err}
			}
		}()
		v, err := fn(now)
		return result{v: v, err: err}
	})
	v, err := c.Wait(ctx)
	if err != nil {
		return nil, err
	}
	res := v.(result)
	return res.v, res.err
}

func (h *Host) trigger(object string, req subsys.Request, now time.Duration) (subsys.Dispatch, error) {
	if !req.Kind.Valid() {
		return subsys.Dispatch{}, errors.Newf(errors.ErrAnimUnknownKind, "unknown trigger kind %d", int(req.Kind))
	}
	o, err := h.object(object)
	if err != nil {
		return subsys.Dispatch{}, err
	}
	if req.Direction == 0 {
		req.Direction = 1
	}
	d := o.Dispatch(req, now)
	if h.metrics != nil {
		h.metrics.RecordTrigger(req.Kind.String(), outcome(d))
	}
	logger.WithFields(log.Fields{
		"object":  object,
		"kind":    req.Kind.String(),
		"subtype": req.Subtype,
		"dir":     req.Direction,
		"matched": d.Matched,
	}).Debug("trigger")
	return d, nil
}

func outcome(d subsys.Dispatch) metrics.TriggerOutcome {
	return metrics.TriggerOutcome{
		Matched:   d.Matched,
		Started:   d.Started,
		Queued:    d.Queued,
		Cancelled: d.Cancelled,
		Dropped:   d.Dropped,
		Snapped:   d.Snapped,
	}
}

// Trigger plays kind/subtype on every part of object.
func (h *Host) Trigger(ctx context.Context, object string, req subsys.Request) (subsys.Dispatch, error) {
	v, err := h.do(ctx, func(now time.Duration) (any, error) {
		return h.trigger(object, req, now)
	})
	if err != nil {
		return subsys.Dispatch{}, err
	}
	return v.(subsys.Dispatch), nil
}

func (h *Host) push(id int, object string, req subsys.Request, now time.Duration) (bool, error) {
	o, err := h.object(object)
	if err != nil {
		return false, err
	}
	if !req.Kind.Valid() {
		return false, errors.Newf(errors.ErrAnimUnknownKind, "unknown trigger kind %d", int(req.Kind))
	}
	if req.Direction == 0 {
		req.Direction = 1
	}
	ok := h.stack.PushAndStart(id, o, req, now)
	if h.metrics != nil {
		m := 0
		if ok {
			m = 1
		}
		h.metrics.RecordTrigger(req.Kind.String(), metrics.TriggerOutcome{Matched: m})
	}
	return ok, nil
}

// Push records req under id and plays it on object.
func (h *Host) Push(ctx context.Context, id int, object string, req subsys.Request) (bool, error) {
	v, err := h.do(ctx, func(now time.Duration) (any, error) {
		return h.push(id, object, req, now)
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

func (h *Host) pop(id int, now time.Duration) (bool, error) {
	popped, matched := h.stack.PopAndStart(id, now)
	if h.metrics != nil {
		h.metrics.RecordPop(popped, matched)
	}
	if !popped {
		return false, errors.Newf(errors.ErrAnimStackEmpty, "nothing recorded for stack %d", id)
	}
	return matched, nil
}

// Pop undoes the newest request recorded under id. It reports whether the
// reversed request matched any template; an empty stack is an error.
func (h *Host) Pop(ctx context.Context, id int) (bool, error) {
	v, err := h.do(ctx, func(now time.Duration) (any, error) {
		return h.pop(id, now)
	})
	if v == nil {
		return false, err
	}
	return v.(bool), err
}

// StackDepth returns how many requests are recorded under id.
func (h *Host) StackDepth(id int) int {
	return h.stack.Depth(id)
}

func (h *Host) eta(object string, kind anim.TriggerKind, subtype int, now time.Duration) (time.Duration, error) {
	o, err := h.object(object)
	if err != nil {
		return 0, err
	}
	return o.TimeType(kind, subtype, now), nil
}

// ETA returns the sim time by which kind/subtype motions on object are done.
func (h *Host) ETA(ctx context.Context, object string, kind anim.TriggerKind, subtype int) (time.Duration, error) {
	v, err := h.do(ctx, func(now time.Duration) (any, error) {
		return h.eta(object, kind, subtype, now)
	})
	if err != nil {
		return 0, err
	}
	return v.(time.Duration), nil
}

// Duration returns the longest template duration for kind/subtype on
// object, ignoring current state.
func (h *Host) Duration(ctx context.Context, object string, kind anim.TriggerKind, subtype int) (time.Duration, error) {
	v, err := h.do(ctx, func(time.Duration) (any, error) {
		o, err := h.object(object)
		if err != nil {
			return time.Duration(0), err
		}
		return o.ActualTimeType(kind, subtype), nil
	})
	if err != nil {
		return 0, err
	}
	return v.(time.Duration), nil
}

func (h *Host) setHits(object, part string, hits float64) error {
	o, err := h.object(object)
	if err != nil {
		return err
	}
	p, ok := o.Part(part)
	if !ok {
		return errors.Newf(errors.ErrAnimUnknownPart, "no part %q", part).SetTarget(object, part)
	}
	p.CurrentHits = hits
	if p.Destroyed() {
		logger.WithFields(log.Fields{"object": object, "part": part}).Info("part destroyed")
	}
	return nil
}

// SetHits sets a part's current hit points. A part at zero with a positive
// maximum ignores triggers.
func (h *Host) SetHits(ctx context.Context, object, part string, hits float64) error {
	_, err := h.do(ctx, func(time.Duration) (any, error) {
		return nil, h.setHits(object, part, hits)
	})
	return err
}

// Objects returns the object names in load order.
func (h *Host) Objects(ctx context.Context) ([]string, error) {
	v, err := h.do(ctx, func(time.Duration) (any, error) {
		return append([]string(nil), h.order...), nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

// Snapshot returns the status of the named objects, or of all objects when
// names is empty. Unknown names are an error.
func (h *Host) Snapshot(ctx context.Context, names ...string) ([]ObjectStatus, error) {
	v, err := h.do(ctx, func(now time.Duration) (any, error) {
		if len(names) == 0 {
			return h.snapshots(now), nil
		}
		out := make([]ObjectStatus, 0, len(names))
		for _, n := range names {
			o, err := h.object(n)
			if err != nil {
				return []ObjectStatus(nil), err
			}
			out = append(out, snapshot(o, now))
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]ObjectStatus), nil
}

// ApplyModel swaps in a reloaded model. Parts that survive keep their
// motion state and damage; their templates are replaced.
func (h *Host) ApplyModel(ctx context.Context, m *config.Model) error {
	_, err := h.do(ctx, func(now time.Duration) (any, error) {
		return nil, h.applyModel(m, now)
	})
	return err
}

func (h *Host) applyModel(m *config.Model, now time.Duration) error {
	specs := m.Objects
	if len(specs) == 0 {
		all := make([]string, 0, len(m.Parts))
		for _, p := range m.Parts {
			all = append(all, p.Name)
		}
		specs = []config.ObjectSpec{{Name: DefaultObject, Parts: all}}
	}

	keep := make(map[string]bool, len(specs))
	var order []string
	for _, spec := range specs {
		if keep[spec.Name] {
			return errors.Newf(errors.ErrConfigValidation, "object %q declared twice", spec.Name).
				SetSection(config.ObjectPrefix + spec.Name)
		}
		keep[spec.Name] = true
		order = append(order, spec.Name)
	}

	for _, name := range h.order {
		if !keep[name] {
			h.removeObject(name)
		}
	}
	for _, spec := range specs {
		if o, ok := h.objects[spec.Name]; ok {
			h.updateObject(o, m, spec)
			continue
		}
		o := h.buildObject(m, spec)
		h.objects[spec.Name] = o
		o.ApplyInitial(now)
		logger.WithFields(log.Fields{"object": o.Name, "parts": len(o.Parts)}).Info("object loaded")
	}
	h.order = order
	if h.metrics != nil {
		h.metrics.Objects.Set(nil, float64(len(h.order)))
	}
	return nil
}

func newPart(ps *config.PartSpec) *subsys.Part {
	return &subsys.Part{
		Name:        ps.Name,
		Templates:   append([]anim.QueuedMotion(nil), ps.Templates...),
		MaxHits:     ps.MaxHits,
		CurrentHits: ps.CurrentHits,
	}
}

func (h *Host) buildObject(m *config.Model, spec config.ObjectSpec) *subsys.Object {
	o := subsys.NewObject(spec.Name, h.arena)
	for _, name := range spec.Parts {
		if ps, ok := m.Part(name); ok {
			o.AddPart(newPart(ps))
		}
	}
	return o
}

// updateObject rebuilds o's part list from spec, carrying over the parts
// that still exist.
func (h *Host) updateObject(o *subsys.Object, m *config.Model, spec config.ObjectSpec) {
	old := make(map[string]*subsys.Part, len(o.Parts))
	for _, p := range o.Parts {
		old[p.Name] = p
	}
	parts := o.Parts
	o.Parts = nil
	for _, name := range spec.Parts {
		ps, ok := m.Part(name)
		if !ok {
			continue
		}
		p, existed := old[name]
		if !existed {
			o.AddPart(newPart(ps))
			continue
		}
		delete(old, name)
		p.Templates = append([]anim.QueuedMotion(nil), ps.Templates...)
		p.MaxHits = ps.MaxHits
		if p.CurrentHits > p.MaxHits {
			p.CurrentHits = p.MaxHits
		}
		if !p.Triggered() && p.Slot.Valid() {
			o.Arena().Release(p.Slot)
			p.Slot = subsys.Handle{}
		}
		o.AddPart(p)
	}
	var gone []string
	for _, p := range parts {
		if _, dropped := old[p.Name]; dropped {
			o.Arena().Release(p.Slot)
			delete(h.tracks, p)
			gone = append(gone, p.Name)
		}
	}
	if h.metrics != nil && len(gone) > 0 {
		h.metrics.ForgetObject(o.Name, gone)
	}
	logger.WithFields(log.Fields{"object": o.Name, "parts": len(o.Parts), "removed": len(gone)}).Info("object reloaded")
}

func (h *Host) removeObject(name string) {
	o := h.objects[name]
	h.stack.Forget(o)
	parts := make([]string, 0, len(o.Parts))
	for _, p := range o.Parts {
		delete(h.tracks, p)
		parts = append(parts, p.Name)
	}
	o.Release()
	delete(h.objects, name)
	if h.metrics != nil {
		h.metrics.ForgetObject(name, parts)
	}
	logger.WithField("object", name).Info("object removed")
}

// ArenaLen returns the number of live motion states.
func (h *Host) ArenaLen() int {
	return h.arena.Len()
}
