package subsys

import (
	"math"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rotanim/pkg/anim"
)

func doorTemplate(subtype int) anim.QueuedMotion {
	return anim.QueuedMotion{
		Angle:    mgl64.Vec3{math.Pi / 2, 0, 0},
		Velocity: mgl64.Vec3{1, 0, 0},
		Accel:    mgl64.Vec3{2, 0, 0},
		Kind:     anim.KindBayDoor,
		Subtype:  subtype,
		Instance: -1,
	}
}

func newDoorObject(t *testing.T) *Object {
	t.Helper()
	o := NewObject("carrier", NewArena())
	o.AddPart(&Part{Name: "door01", Templates: []anim.QueuedMotion{doorTemplate(1)}})
	o.AddPart(&Part{Name: "door02", Templates: []anim.QueuedMotion{doorTemplate(2)}})
	o.AddPart(&Part{Name: "hull"})
	require.Len(t, o.Parts, 3)
	return o
}

func runUntilIdle(o *Object, now time.Duration, dt time.Duration) time.Duration {
	for i := 0; i < 10000; i++ {
		now += dt
		o.Tick(now, dt, nil)
		busy := false
		for _, p := range o.Parts {
			if st, ok := o.arena.Get(p.Slot); ok && (st.Moving() || st.PendingLen() > 0) {
				busy = true
			}
		}
		if !busy {
			break
		}
	}
	return now
}

func TestSubtypeMatches(t *testing.T) {
	tests := []struct {
		name     string
		kind     anim.TriggerKind
		template int
		request  int
		want     bool
	}{
		{"any request", anim.KindPrimaryBank, 3, anim.SubtypeAll, true},
		{"any template", anim.KindPrimaryBank, anim.SubtypeAll, 2, true},
		{"equal", anim.KindPrimaryBank, 2, 2, true},
		{"different", anim.KindPrimaryBank, 2, 1, false},
		{"door one based", anim.KindBayDoor, 1, 0, true},
		{"door other", anim.KindBayDoor, 1, 1, false},
		{"door excluded", anim.KindBayDoor, 0, 1, false},
		{"door not excluded", anim.KindBayDoor, 0, 2, true},
		{"door excluded far", anim.KindBayDoor, -2, 3, false},
		{"door not excluded far", anim.KindBayDoor, -2, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := anim.QueuedMotion{Kind: tt.kind, Subtype: tt.template}
			assert.Equal(t, tt.want, SubtypeMatches(&m, tt.request))
		})
	}
}

func TestStartTypeMatchesDoor(t *testing.T) {
	o := newDoorObject(t)
	d := o.Dispatch(Request{Kind: anim.KindBayDoor, Subtype: 1, Direction: 1}, 0)
	assert.Equal(t, 1, d.Matched)
	assert.Equal(t, 1, d.Started)

	st, err := o.State("door02")
	require.NoError(t, err)
	assert.True(t, st.Moving())

	st, err = o.State("door01")
	require.NoError(t, err)
	assert.False(t, st.Moving())
}

func TestStartTypeNoMatch(t *testing.T) {
	o := newDoorObject(t)
	assert.False(t, o.StartType(anim.KindAfterburner, anim.SubtypeAll, 1, false, 0))
}

func TestStartTypeSkipsDestroyed(t *testing.T) {
	o := newDoorObject(t)
	p, ok := o.Part("door01")
	require.True(t, ok)
	p.MaxHits = 10
	p.CurrentHits = 0
	require.True(t, p.Destroyed())

	d := o.Dispatch(Request{Kind: anim.KindBayDoor, Subtype: anim.SubtypeAll, Direction: 1}, 0)
	assert.Equal(t, 1, d.Matched)

	st, _ := o.State("door01")
	assert.False(t, st.Moving())
}

func TestStartTypeInstantSnaps(t *testing.T) {
	o := newDoorObject(t)
	d := o.Dispatch(Request{Kind: anim.KindBayDoor, Subtype: anim.SubtypeAll, Direction: 1, Instant: true}, 0)
	assert.Equal(t, 2, d.Snapped)

	st, _ := o.State("door01")
	assert.False(t, st.Moving())
	assert.InDelta(t, math.Pi/2, st.Angle()[0], 1e-12)
}

func TestStartTypeMissingSlot(t *testing.T) {
	o := newDoorObject(t)
	p, _ := o.Part("door01")
	o.arena.Release(p.Slot)

	d := o.Dispatch(Request{Kind: anim.KindBayDoor, Subtype: 0, Direction: 1}, 0)
	assert.False(t, d.Any())

	_, err := o.State("door01")
	assert.Error(t, err)
	_, err = o.State("nope")
	assert.Error(t, err)
}

func TestApplyInitial(t *testing.T) {
	o := NewObject("turret", NewArena())
	o.AddPart(&Part{Name: "barrel", Templates: []anim.QueuedMotion{{
		Angle:    mgl64.Vec3{0, 0, 0.5},
		Velocity: mgl64.Vec3{0, 0, 1},
		Kind:     anim.KindInitial,
		Subtype:  anim.SubtypeAll,
	}}})
	require.True(t, o.ApplyInitial(0))

	st, _ := o.State("barrel")
	assert.InDelta(t, 0.5, st.Angle()[2], 1e-12)
	assert.False(t, st.Moving())
}

func TestActualTimeType(t *testing.T) {
	o := newDoorObject(t)
	p, _ := o.Part("door02")
	p.Templates[0].Angle[0] = math.Pi

	long := anim.TotalDuration(p.Templates[0])
	assert.Equal(t, long, o.ActualTimeType(anim.KindBayDoor, anim.SubtypeAll))

	p.MaxHits, p.CurrentHits = 5, -1
	short, _ := o.Part("door01")
	assert.Equal(t, anim.TotalDuration(short.Templates[0]), o.ActualTimeType(anim.KindBayDoor, anim.SubtypeAll))
	assert.Zero(t, o.ActualTimeType(anim.KindDocked, anim.SubtypeAll))
}

func TestTimeTypeIdle(t *testing.T) {
	o := newDoorObject(t)
	p, _ := o.Part("door01")
	p.Templates[0].StartDelay = 300 * time.Millisecond
	p.Templates[0].DurationHint = 2 * time.Second

	now := 10 * time.Second
	assert.Equal(t, now+2300*time.Millisecond, o.TimeType(anim.KindBayDoor, anim.SubtypeAll, now))
	assert.Equal(t, now, o.TimeType(anim.KindDocked, anim.SubtypeAll, now))
}

func TestTimeTypeMoving(t *testing.T) {
	o := newDoorObject(t)
	require.True(t, o.StartType(anim.KindBayDoor, 0, 1, false, 0))

	dt := 10 * time.Millisecond
	now := time.Duration(0)
	for i := 0; i < 50; i++ {
		now += dt
		o.Tick(now, dt, nil)
	}
	st, _ := o.State("door01")
	require.True(t, st.Moving())

	eta := o.TimeType(anim.KindBayDoor, 0, now)
	assert.Equal(t, now+st.RemainingDuration(now), eta)
	assert.Greater(t, eta, now)

	end := runUntilIdle(o, now, dt)
	assert.InDelta(t, eta.Seconds(), end.Seconds(), 0.05)
}

func TestTickReportsCompletion(t *testing.T) {
	o := newDoorObject(t)
	o.StartType(anim.KindBayDoor, anim.SubtypeAll, 1, false, 0)

	completed := map[string]bool{}
	dt := 10 * time.Millisecond
	now := time.Duration(0)
	for i := 0; i < 500; i++ {
		now += dt
		o.Tick(now, dt, func(p *Part, _ *anim.MotionState, rep anim.TickReport) {
			if rep.Completed {
				completed[p.Name] = true
			}
		})
	}
	assert.Equal(t, map[string]bool{"door01": true, "door02": true}, completed)
}

func TestReleaseFreesSlots(t *testing.T) {
	o := newDoorObject(t)
	assert.Equal(t, 2, o.arena.Len())
	o.Release()
	assert.Zero(t, o.arena.Len())
	for _, p := range o.Parts {
		assert.False(t, p.Slot.Valid())
	}
}

func TestPartStartTypeAndTimeType(t *testing.T) {
	o := newDoorObject(t)
	p, _ := o.Part("door02")
	require.True(t, p.StartType(anim.KindBayDoor, 1, 1, false, 0))
	assert.False(t, p.StartType(anim.KindBayDoor, 0, 1, false, 0))

	st, _ := o.State("door02")
	require.True(t, st.Moving())
	assert.Equal(t, st.RemainingDuration(time.Second)+time.Second, p.TimeType(anim.KindBayDoor, 1, time.Second))

	orphan := &Part{Name: "loose", Templates: []anim.QueuedMotion{doorTemplate(1)}}
	assert.False(t, orphan.StartType(anim.KindBayDoor, anim.SubtypeAll, 1, false, 0))
	assert.Equal(t, time.Second, orphan.TimeType(anim.KindBayDoor, anim.SubtypeAll, time.Second))
}
