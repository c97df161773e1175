package reactor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"rotanim/pkg/clock"
)

func TestTimerFiresOnStep(t *testing.T) {
	clk := clock.NewManual(0)
	r := New(clk)
	defer r.End()

	var fired []time.Duration
	r.RegisterTimer(func(eventtime time.Duration) time.Duration {
		fired = append(fired, eventtime)
		return Never
	}, 100*time.Millisecond)

	if d := r.Step(); d != 100*time.Millisecond {
		t.Errorf("delay before due = %v", d)
	}
	if len(fired) != 0 {
		t.Fatal("timer fired early")
	}

	clk.Advance(100 * time.Millisecond)
	if d := r.Step(); d != Never {
		t.Errorf("delay after one-shot = %v", d)
	}
	if len(fired) != 1 || fired[0] != 100*time.Millisecond {
		t.Errorf("fired = %v", fired)
	}
}

func TestTimerRepeat(t *testing.T) {
	clk := clock.NewManual(0)
	r := New(clk)
	defer r.End()

	count := 0
	r.RegisterTimer(func(eventtime time.Duration) time.Duration {
		count++
		if count < 3 {
			return eventtime + 10*time.Millisecond
		}
		return Never
	}, Now)

	for i := 0; i < 5; i++ {
		r.Step()
		clk.Advance(10 * time.Millisecond)
	}
	if count != 3 {
		t.Errorf("callback ran %d times, expected 3", count)
	}
}

func TestUnregisterTimer(t *testing.T) {
	clk := clock.NewManual(0)
	r := New(clk)
	defer r.End()

	called := false
	timer := r.RegisterTimer(func(time.Duration) time.Duration {
		called = true
		return Never
	}, 50*time.Millisecond)
	r.UnregisterTimer(timer)

	clk.Advance(time.Second)
	r.Step()
	if called {
		t.Error("unregistered timer fired")
	}
	if r.TimerCount() != 0 {
		t.Errorf("timer count = %d", r.TimerCount())
	}
	if timer.Waketime() != Never {
		t.Error("unregistered timer should be parked at Never")
	}
}

func TestUpdateTimer(t *testing.T) {
	clk := clock.NewManual(0)
	r := New(clk)
	defer r.End()

	called := 0
	timer := r.RegisterTimer(func(time.Duration) time.Duration {
		called++
		return Never
	}, Never)
	r.Step()
	r.UpdateTimer(timer, 20*time.Millisecond)
	clk.Advance(20 * time.Millisecond)
	r.Step()
	if called != 1 {
		t.Errorf("called = %d", called)
	}
}

func TestRegisterCallback(t *testing.T) {
	clk := clock.NewManual(time.Second)
	r := New(clk)
	defer r.End()

	c := r.RegisterCallback(func(eventtime time.Duration) any {
		return eventtime
	}, Now)
	if c.Test() {
		t.Fatal("callback completed before Step")
	}
	r.Step()
	res, err := c.Wait(context.Background())
	if err != nil || res != time.Second {
		t.Errorf("result = %v, %v", res, err)
	}
}

func TestAsyncCallbackRunsOnLoop(t *testing.T) {
	r := New(nil)
	r.Run()
	defer func() {
		r.End()
		r.Wait()
	}()

	var n atomic.Int32
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for i := 0; i < 10; i++ {
		c := r.RegisterAsyncCallback(func(time.Duration) any {
			return n.Add(1)
		})
		if _, err := c.Wait(ctx); err != nil {
			t.Fatalf("wait: %v", err)
		}
	}
	if n.Load() != 10 {
		t.Errorf("ran %d callbacks", n.Load())
	}
}

func TestLiveTimer(t *testing.T) {
	r := New(nil)
	var called atomic.Int32
	r.RegisterTimer(func(eventtime time.Duration) time.Duration {
		if called.Add(1) < 3 {
			return eventtime + 5*time.Millisecond
		}
		return Never
	}, Now)
	r.Run()
	time.Sleep(100 * time.Millisecond)
	r.End()
	r.Wait()
	if called.Load() != 3 {
		t.Errorf("timer ran %d times, expected 3", called.Load())
	}
}

func TestCompletionWaitTimeout(t *testing.T) {
	r := New(clock.NewManual(0))
	defer r.End()

	c := r.RegisterCallback(func(time.Duration) any { return nil }, Never)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := c.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v", err)
	}
}

func TestAsyncAfterEnd(t *testing.T) {
	r := New(clock.NewManual(0))
	r.End()
	c := r.RegisterAsyncCallback(func(time.Duration) any { return 1 })
	if _, err := c.Wait(context.Background()); !errors.Is(err, ErrReactorClosed) {
		t.Errorf("err = %v", err)
	}
	select {
	case <-r.Done():
	default:
		t.Error("Done should be closed after End")
	}
}
