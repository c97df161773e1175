// Package reactor runs timers and cross-goroutine callbacks on a single
// dispatch goroutine. Motion state is owned by that goroutine; other
// goroutines reach it through RegisterAsyncCallback.
package reactor

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"rotanim/pkg/clock"
)

const (
	Now   time.Duration = 0
	Never time.Duration = math.MaxInt64
)

// maxSleep bounds how long the loop sleeps without rechecking the clock.
const maxSleep = time.Second

var (
	ErrReactorClosed = errors.New("reactor: reactor closed")
	ErrQueueFull     = errors.New("reactor: async queue full")
)

// TimerCallback is called when a timer fires with the time it fired at.
// It returns the next wake time, or Never to stop.
type TimerCallback func(eventtime time.Duration) time.Duration

// Timer is a registered timer.
type Timer struct {
	id        uint64
	callback  TimerCallback
	waketime  time.Duration
	isRunning bool
	mu        sync.Mutex
}

// Waketime returns the timer's current wake time.
func (t *Timer) Waketime() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.waketime
}

// Completion is the eventual result of a callback.
type Completion struct {
	reactor *Reactor
	result  any
	err     error
	done    chan struct{}
	once    sync.Once
}

// Test reports whether the completion has a result.
func (c *Completion) Test() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Complete sets the result and wakes waiters. Later calls are ignored.
func (c *Completion) Complete(result any) {
	c.finish(result, nil)
}

func (c *Completion) finish(result any, err error) {
	c.once.Do(func() {
		c.result = result
		c.err = err
		close(c.done)
	})
}

// Wait blocks until the completion is done, ctx ends, or the reactor stops.
func (c *Completion) Wait(ctx context.Context) (any, error) {
	select {
	case <-c.done:
		return c.result, c.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.reactor.ctx.Done():
		select {
		case <-c.done:
			return c.result, c.err
		default:
			return nil, ErrReactorClosed
		}
	}
}

// Reactor manages timers and async callbacks.
type Reactor struct {
	clock clock.Clock

	mu          sync.Mutex
	timers      []*Timer
	nextTimerID uint64
	nextWake    time.Duration

	asyncQueue chan func()
	wake       chan struct{}

	ctx    context.Context
	cancel context.CancelFunc

	running atomic.Bool
	wg      sync.WaitGroup
}

// New creates a reactor on c. A nil clock uses the host monotonic clock.
func New(c clock.Clock) *Reactor {
	if c == nil {
		c = clock.NewMonotonic()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Reactor{
		clock:      c,
		nextWake:   Never,
		asyncQueue: make(chan func(), 1024),
		wake:       make(chan struct{}, 1),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Monotonic returns the reactor's current time.
func (r *Reactor) Monotonic() time.Duration {
	return r.clock.Now()
}

// Clock returns the clock the reactor runs on.
func (r *Reactor) Clock() clock.Clock {
	return r.clock
}

func (r *Reactor) kick() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// RegisterTimer registers callback to fire at waketime.
func (r *Reactor) RegisterTimer(callback TimerCallback, waketime time.Duration) *Timer {
	r.mu.Lock()
	r.nextTimerID++
	timer := &Timer{id: r.nextTimerID, callback: callback, waketime: waketime}
	r.timers = append(r.timers, timer)
	if waketime < r.nextWake {
		r.nextWake = waketime
	}
	r.mu.Unlock()
	r.kick()
	return timer
}

// UnregisterTimer removes a timer.
func (r *Reactor) UnregisterTimer(timer *Timer) {
	timer.mu.Lock()
	timer.waketime = Never
	timer.mu.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	for i, t := range r.timers {
		if t.id == timer.id {
			r.timers = append(r.timers[:i], r.timers[i+1:]...)
			break
		}
	}
}

// UpdateTimer moves a timer's wake time. It has no effect from inside the
// timer's own callback; return the new time instead.
func (r *Reactor) UpdateTimer(timer *Timer, waketime time.Duration) {
	timer.mu.Lock()
	if timer.isRunning {
		timer.mu.Unlock()
		return
	}
	timer.waketime = waketime
	timer.mu.Unlock()

	r.mu.Lock()
	if waketime < r.nextWake {
		r.nextWake = waketime
	}
	r.mu.Unlock()
	r.kick()
}

// TimerCount returns the number of registered timers.
func (r *Reactor) TimerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.timers)
}

func (r *Reactor) newCompletion() *Completion {
	return &Completion{reactor: r, done: make(chan struct{})}
}

// RegisterCallback runs callback once at waketime on the dispatch goroutine.
func (r *Reactor) RegisterCallback(callback func(eventtime time.Duration) any, waketime time.Duration) *Completion {
	c := r.newCompletion()
	r.RegisterTimer(func(eventtime time.Duration) time.Duration {
		c.Complete(callback(eventtime))
		return Never
	}, waketime)
	return c
}

// RegisterAsyncCallback queues callback from any goroutine to run on the
// dispatch goroutine as soon as possible.
func (r *Reactor) RegisterAsyncCallback(callback func(eventtime time.Duration) any) *Completion {
	c := r.newCompletion()
	if r.ctx.Err() != nil {
		c.finish(nil, ErrReactorClosed)
		return c
	}
	select {
	case r.asyncQueue <- func() { c.Complete(callback(r.clock.Now())) }:
		r.kick()
	default:
		c.finish(nil, ErrQueueFull)
	}
	return c
}

// Run starts the dispatch loop. It returns immediately; use Wait to block.
func (r *Reactor) Run() {
	if r.running.Swap(true) {
		return
	}
	r.wg.Add(1)
	go r.dispatchLoop()
}

// End stops the dispatch loop.
func (r *Reactor) End() {
	r.running.Store(false)
	r.cancel()
}

// Wait blocks until the dispatch loop has exited.
func (r *Reactor) Wait() {
	r.wg.Wait()
}

// Done is closed once End is called.
func (r *Reactor) Done() <-chan struct{} {
	return r.ctx.Done()
}

func (r *Reactor) dispatchLoop() {
	defer r.wg.Done()
	for r.running.Load() {
		delay := r.Step()
		if delay <= 0 {
			continue
		}
		if delay > maxSleep {
			delay = maxSleep
		}
		t := time.NewTimer(delay)
		select {
		case <-t.C:
		case <-r.wake:
		case <-r.ctx.Done():
			t.Stop()
			return
		}
		t.Stop()
	}
}

// Step runs queued async callbacks and due timers once and returns the
// delay until the next timer. Tests on a manual clock drive the reactor
// with Step instead of Run.
func (r *Reactor) Step() time.Duration {
	r.processAsyncCallbacks()
	return r.checkTimers(r.clock.Now())
}

func (r *Reactor) processAsyncCallbacks() {
	for {
		select {
		case fn := <-r.asyncQueue:
			fn()
		default:
			return
		}
	}
}

func (r *Reactor) checkTimers(eventtime time.Duration) time.Duration {
	r.mu.Lock()
	if eventtime < r.nextWake {
		delay := r.nextWake - eventtime
		r.mu.Unlock()
		return delay
	}
	timers := make([]*Timer, len(r.timers))
	copy(timers, r.timers)
	r.nextWake = Never
	r.mu.Unlock()

	next := Never
	for _, timer := range timers {
		timer.mu.Lock()
		if eventtime >= timer.waketime {
			timer.waketime = Never
			timer.isRunning = true
			timer.mu.Unlock()

			newWaketime := timer.callback(eventtime)

			timer.mu.Lock()
			timer.isRunning = false
			if newWaketime < timer.waketime {
				timer.waketime = newWaketime
			}
		}
		if timer.waketime < next {
			next = timer.waketime
		}
		timer.mu.Unlock()
	}

	r.mu.Lock()
	if next < r.nextWake {
		r.nextWake = next
	}
	next = r.nextWake
	r.mu.Unlock()

	if next == Never {
		return Never
	}
	if delay := next - eventtime; delay > 0 {
		return delay
	}
	return 0
}
