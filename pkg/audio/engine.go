// Sound cue engine driven by motion phase events
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package audio

import (
	"sync"

	"github.com/gopxl/beep"

	"rotanim/pkg/host"
	"rotanim/pkg/log"
)

// DefaultSampleRate is used when Config.SampleRate is zero.
const DefaultSampleRate = beep.SampleRate(44100)

// Config configures an Engine.
type Config struct {
	SampleRate beep.SampleRate
	// Volume is the linear master volume. Zero mutes.
	Volume float64
}

// DefaultConfig returns a full-volume engine config.
func DefaultConfig() Config {
	return Config{SampleRate: DefaultSampleRate, Volume: 1}
}

// Engine turns phase events into synthesized cues mixed into one stream.
// It implements host.Listener and beep.Streamer.
type Engine struct {
	mu     sync.Mutex
	rate   beep.SampleRate
	mixer  *beep.Mixer
	out    beep.Streamer
	loops  map[string]*loopVoice
	played uint64
	logger *log.Logger
}

var _ host.Listener = (*Engine)(nil)

// NewEngine creates an idle engine.
func NewEngine(cfg Config) *Engine {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	mixer := &beep.Mixer{}
	return &Engine{
		rate:   cfg.SampleRate,
		mixer:  mixer,
		out:    withVolume(mixer, cfg.Volume),
		loops:  make(map[string]*loopVoice),
		logger: log.GetLogger("audio"),
	}
}

// SampleRate returns the engine's output sample rate.
func (e *Engine) SampleRate() beep.SampleRate { return e.rate }

func voiceKey(ev host.PhaseEvent) string { return ev.Object + "/" + ev.Part }

// OnPhase implements host.Listener.
func (e *Engine) OnPhase(ev host.PhaseEvent) {
	if ev.Sound.Empty() {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	key := voiceKey(ev)
	switch ev.Phase {
	case host.PhaseStarted:
		if ev.Sound.Start != "" {
			e.play(startCue(ev.Sound.Start, e.rate))
		}
		if ev.Sound.Loop != "" {
			if old, ok := e.loops[key]; ok {
				old.stop()
			}
			v := newLoopVoice(ev.Sound.Loop, ev.TurnRate, e.rate)
			e.loops[key] = v
			e.mixer.Add(v)
		}
		e.logger.WithFields(log.Fields{"part": key, "start": ev.Sound.Start, "loop": ev.Sound.Loop}).Debug("cue started")
	case host.PhaseMoving:
		if v, ok := e.loops[key]; ok {
			v.setTurnRate(ev.TurnRate)
		}
	case host.PhaseStopped:
		if v, ok := e.loops[key]; ok {
			v.stop()
			delete(e.loops, key)
		}
		if ev.Sound.End != "" {
			e.play(endCue(ev.Sound.End, e.rate))
		}
	}
}

func (e *Engine) play(s beep.Streamer) {
	e.mixer.Add(s)
	e.played++
}

// Stream implements beep.Streamer. The mixer never drains, so silence is
// produced while no cue is active.
func (e *Engine) Stream(samples [][2]float64) (n int, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.out.Stream(samples)
}

// Err implements beep.Streamer.
func (e *Engine) Err() error { return nil }

// ActiveLoops returns the number of parts with a running loop cue.
func (e *Engine) ActiveLoops() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.loops)
}

// Voices returns the number of streamers still in the mixer.
func (e *Engine) Voices() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mixer.Len()
}

// CuesPlayed returns the number of one-shot cues started.
func (e *Engine) CuesPlayed() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.played
}

// Reset stops all cues.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mixer.Clear()
	e.loops = make(map[string]*loopVoice)
}

// loopFreq is a test hook returning the current loop frequency of a part.
func (e *Engine) loopFreq(object, part string) (float64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.loops[object+"/"+part]
	if !ok {
		return 0, false
	}
	return v.freq, true
}
