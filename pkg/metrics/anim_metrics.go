// Motion engine metrics
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package metrics

import (
	goruntime "runtime"
	"sync"
	"time"
)

// TriggerOutcome counts what one trigger request did.
type TriggerOutcome struct {
	Matched   int
	Started   int
	Queued    int
	Cancelled int
	Dropped   int
	Snapped   int
}

// AnimMetrics is the metric set exported by the motion host.
type AnimMetrics struct {
	Objects       *Gauge
	ActiveMotions *Gauge
	QueueDepth    *Gauge
	TurnRate      *Gauge
	SimTime       *Gauge

	Triggers  *Counter
	Motions   *Counter
	Completed *Counter
	Pops      *Counter

	TickDuration *Histogram
	TickLag      *Histogram

	Goroutines *Gauge
	HeapBytes  *Gauge
	Uptime     *Gauge

	startTime time.Time
	registry  *Registry
}

// NewAnimMetrics creates and registers the metric set.
func NewAnimMetrics() *AnimMetrics {
	am := &AnimMetrics{
		startTime: time.Now(),
		registry:  NewRegistry(),

		Objects: NewGauge("rotanim_objects",
			"Objects currently loaded"),
		ActiveMotions: NewGauge("rotanim_active_motions",
			"Parts with a motion in progress, per object"),
		QueueDepth: NewGauge("rotanim_queue_depth",
			"Pending motions, per object"),
		TurnRate: NewGauge("rotanim_turn_rate_radians_per_second",
			"Current turn rate per part"),
		SimTime: NewGauge("rotanim_sim_time_seconds",
			"Simulation clock at the last tick"),

		Triggers: NewCounter("rotanim_triggers_total",
			"Trigger requests by kind and whether any template matched"),
		Motions: NewCounter("rotanim_motions_total",
			"Motion requests by kind and queue result"),
		Completed: NewCounter("rotanim_motions_completed_total",
			"Motions that reached their end angle, by kind"),
		Pops: NewCounter("rotanim_stack_pops_total",
			"Stack pops by result"),

		TickDuration: NewHistogram("rotanim_tick_duration_seconds",
			"Wall time spent per tick", ExponentialBuckets(0.00001, 4, 8)),
		TickLag: NewHistogram("rotanim_tick_lag_seconds",
			"How late each tick fired", ExponentialBuckets(0.0001, 4, 8)),

		Goroutines: NewGauge("rotanim_go_goroutines",
			"Number of goroutines"),
		HeapBytes: NewGauge("rotanim_go_heap_bytes",
			"Heap bytes allocated"),
		Uptime: NewGauge("rotanim_uptime_seconds",
			"Seconds since start"),
	}
	for _, m := range []Metric{
		am.Objects, am.ActiveMotions, am.QueueDepth, am.TurnRate, am.SimTime,
		am.Triggers, am.Motions, am.Completed, am.Pops,
		am.TickDuration, am.TickLag,
		am.Goroutines, am.HeapBytes, am.Uptime,
	} {
		am.registry.MustRegister(m)
	}
	return am
}

// RecordTrigger counts one trigger request and its per-template results.
func (am *AnimMetrics) RecordTrigger(kind string, o TriggerOutcome) {
	matched := "false"
	if o.Matched > 0 {
		matched = "true"
	}
	am.Triggers.Inc(Labels{"kind": kind, "matched": matched})
	for result, n := range map[string]int{
		"started":   o.Started,
		"queued":    o.Queued,
		"cancelled": o.Cancelled,
		"dropped":   o.Dropped,
		"snapped":   o.Snapped,
	} {
		if n > 0 {
			am.Motions.Add(Labels{"kind": kind, "result": result}, uint64(n))
		}
	}
}

// RecordPop counts a stack pop.
func (am *AnimMetrics) RecordPop(popped, matched bool) {
	result := "empty"
	switch {
	case popped && matched:
		result = "started"
	case popped:
		result = "unmatched"
	}
	am.Pops.Inc(Labels{"result": result})
}

// RecordCompleted counts a motion reaching its end.
func (am *AnimMetrics) RecordCompleted(kind string) {
	am.Completed.Inc(Labels{"kind": kind})
}

// SetObjectState publishes per-object gauges after a tick.
func (am *AnimMetrics) SetObjectState(object string, active, pending int) {
	l := Labels{"object": object}
	am.ActiveMotions.Set(l, float64(active))
	am.QueueDepth.Set(l, float64(pending))
}

// SetTurnRate publishes a part's turn rate.
func (am *AnimMetrics) SetTurnRate(object, part string, rate float64) {
	am.TurnRate.Set(Labels{"object": object, "part": part}, rate)
}

// ForgetObject drops the per-object series.
func (am *AnimMetrics) ForgetObject(object string, parts []string) {
	l := Labels{"object": object}
	am.ActiveMotions.Delete(l)
	am.QueueDepth.Delete(l)
	for _, p := range parts {
		am.TurnRate.Delete(Labels{"object": object, "part": p})
	}
}

// ObserveTick records how long a tick took and how late it started.
func (am *AnimMetrics) ObserveTick(sim, took, lag time.Duration) {
	am.SimTime.Set(nil, sim.Seconds())
	am.TickDuration.ObserveDuration(nil, took)
	if lag > 0 {
		am.TickLag.ObserveDuration(nil, lag)
	}
}

func (am *AnimMetrics) updateRuntime() {
	var m goruntime.MemStats
	goruntime.ReadMemStats(&m)
	am.Goroutines.Set(nil, float64(goruntime.NumGoroutine()))
	am.HeapBytes.Set(nil, float64(m.HeapAlloc))
	am.Uptime.Set(nil, time.Since(am.startTime).Seconds())
}

// Gather returns all metrics in Prometheus text format.
func (am *AnimMetrics) Gather() string {
	am.updateRuntime()
	return am.registry.Gather()
}

// Registry returns the internal registry
func (am *AnimMetrics) Registry() *Registry {
	return am.registry
}

var (
	globalMetrics     *AnimMetrics
	globalMetricsOnce sync.Once
)

// GlobalMetrics returns the process-wide metric set.
func GlobalMetrics() *AnimMetrics {
	globalMetricsOnce.Do(func() {
		globalMetrics = NewAnimMetrics()
	})
	return globalMetrics
}
