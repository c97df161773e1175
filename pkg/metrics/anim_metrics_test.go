package metrics

import (
	"strings"
	"testing"
	"time"
)

func TestAnimMetricsRecordTrigger(t *testing.T) {
	am := NewAnimMetrics()
	am.RecordTrigger("fighterbay", TriggerOutcome{Matched: 3, Started: 1, Queued: 1, Dropped: 1})
	am.RecordTrigger("docked", TriggerOutcome{})

	if v := am.Triggers.Get(Labels{"kind": "fighterbay", "matched": "true"}); v != 1 {
		t.Errorf("matched triggers = %d", v)
	}
	if v := am.Triggers.Get(Labels{"kind": "docked", "matched": "false"}); v != 1 {
		t.Errorf("unmatched triggers = %d", v)
	}
	for _, result := range []string{"started", "queued", "dropped"} {
		if v := am.Motions.Get(Labels{"kind": "fighterbay", "result": result}); v != 1 {
			t.Errorf("%s = %d", result, v)
		}
	}
	if v := am.Motions.Get(Labels{"kind": "fighterbay", "result": "cancelled"}); v != 0 {
		t.Errorf("cancelled = %d", v)
	}
}

func TestAnimMetricsObjectState(t *testing.T) {
	am := NewAnimMetrics()
	am.SetObjectState("carrier", 2, 5)
	am.SetTurnRate("carrier", "door01", 1.25)
	if am.ActiveMotions.Get(Labels{"object": "carrier"}) != 2 || am.QueueDepth.Get(Labels{"object": "carrier"}) != 5 {
		t.Error("object gauges not set")
	}

	am.ForgetObject("carrier", []string{"door01"})
	out := am.Gather()
	if strings.Contains(out, `object="carrier"`) {
		t.Errorf("forgotten object still exported:\n%s", out)
	}
}

func TestAnimMetricsTickAndGather(t *testing.T) {
	am := NewAnimMetrics()
	am.ObserveTick(3*time.Second, 200*time.Microsecond, 0)
	am.RecordCompleted("docked")
	am.RecordPop(false, false)
	am.RecordPop(true, true)
	am.RecordPop(true, false)

	if s := am.TickDuration.GetSnapshot(nil); s.Count != 1 {
		t.Errorf("tick count = %d", s.Count)
	}
	if s := am.TickLag.GetSnapshot(nil); s.Count != 0 {
		t.Errorf("zero lag should not be observed, count = %d", s.Count)
	}

	out := am.Gather()
	for _, want := range []string{
		"rotanim_sim_time_seconds 3\n",
		`rotanim_motions_completed_total{kind="docked"} 1`,
		`rotanim_stack_pops_total{result="empty"} 1`,
		`rotanim_stack_pops_total{result="started"} 1`,
		`rotanim_stack_pops_total{result="unmatched"} 1`,
		"rotanim_go_goroutines",
		"# TYPE rotanim_tick_duration_seconds histogram",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if GlobalMetrics() != GlobalMetrics() {
		t.Error("GlobalMetrics should be a singleton")
	}
}
