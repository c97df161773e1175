package audio

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"

	"rotanim/pkg/anim"
	"rotanim/pkg/host"
)

var doorSound = anim.SoundHandles{Start: "door_start", Loop: "door_loop", End: "door_end"}

func pull(e *Engine, d time.Duration) [][2]float64 {
	samples := make([][2]float64, e.SampleRate().N(d))
	n, _ := e.Stream(samples)
	return samples[:n]
}

func peak(samples [][2]float64) float64 {
	var p float64
	for _, s := range samples {
		p = math.Max(p, math.Abs(s[0]))
	}
	return p
}

func phase(p host.Phase, rate float64) host.PhaseEvent {
	return host.PhaseEvent{Phase: p, Object: "carrier", Part: "door01", Sound: doorSound, TurnRate: rate}
}

// TestBaseFreq verifies handle hashing is stable and in range
func TestBaseFreq(t *testing.T) {
	a := baseFreq("door_loop")
	if a != baseFreq("door_loop") {
		t.Fatal("Expected stable frequency for the same handle")
	}
	for _, h := range []string{"", "a", "door_loop", "turret_whine"} {
		f := baseFreq(h)
		if f < minBaseFreq || f > maxBaseFreq {
			t.Errorf("baseFreq(%q) = %f out of range", h, f)
		}
	}
}

func TestPitchFor(t *testing.T) {
	if got := pitchFor(200, 0); got != 200 {
		t.Errorf("Expected base pitch at rest, got %f", got)
	}
	if got := pitchFor(200, -1); got != 400 {
		t.Errorf("Expected doubled pitch at 1 rad/s, got %f", got)
	}
	if got := pitchFor(200, 50); got != 200*maxPitchRatio {
		t.Errorf("Expected clamped pitch, got %f", got)
	}
}

func TestSweepLength(t *testing.T) {
	rate := beep.SampleRate(1000)
	s := newSweep(100, 200, 50*time.Millisecond, rate)
	buf := make([][2]float64, 80)
	n, ok := s.Stream(buf)
	if n != 50 || !ok {
		t.Fatalf("Expected 50 samples, got %d ok=%v", n, ok)
	}
	if n, ok = s.Stream(buf); n != 0 || ok {
		t.Errorf("Expected drained sweep, got %d ok=%v", n, ok)
	}
}

func TestEngineLifecycle(t *testing.T) {
	e := NewEngine(DefaultConfig())

	e.OnPhase(phase(host.PhaseStarted, 0))
	if e.CuesPlayed() != 1 {
		t.Errorf("Expected start cue, got %d", e.CuesPlayed())
	}
	if e.ActiveLoops() != 1 || e.Voices() != 2 {
		t.Fatalf("Expected one loop and two voices, got %d/%d", e.ActiveLoops(), e.Voices())
	}
	if p := peak(pull(e, 100*time.Millisecond)); p == 0 {
		t.Error("Expected audible output while started")
	}

	e.OnPhase(phase(host.PhaseMoving, 1))
	pull(e, 200*time.Millisecond)
	f, ok := e.loopFreq("carrier", "door01")
	if !ok {
		t.Fatal("Expected loop voice")
	}
	want := pitchFor(baseFreq("door_loop"), 1)
	if math.Abs(f-want) > want*0.01 {
		t.Errorf("Expected loop pitch near %f, got %f", want, f)
	}

	e.OnPhase(phase(host.PhaseStopped, 0))
	if e.ActiveLoops() != 0 {
		t.Error("Expected loop removed on stop")
	}
	if e.CuesPlayed() != 2 {
		t.Errorf("Expected end cue, got %d", e.CuesPlayed())
	}
	pull(e, 500*time.Millisecond)
	pull(e, 10*time.Millisecond)
	if e.Voices() != 0 {
		t.Errorf("Expected drained mixer, got %d voices", e.Voices())
	}
	if p := peak(pull(e, 50*time.Millisecond)); p != 0 {
		t.Errorf("Expected silence after cues, got peak %f", p)
	}
}

func TestEngineRestartReplacesLoop(t *testing.T) {
	e := NewEngine(DefaultConfig())
	e.OnPhase(phase(host.PhaseStarted, 0))
	e.OnPhase(phase(host.PhaseStarted, 0))
	if e.ActiveLoops() != 1 {
		t.Errorf("Expected a single loop per part, got %d", e.ActiveLoops())
	}
}

func TestEngineIgnoresSilentMotion(t *testing.T) {
	e := NewEngine(DefaultConfig())
	e.OnPhase(host.PhaseEvent{Phase: host.PhaseStarted, Object: "carrier", Part: "radar"})
	if e.Voices() != 0 || e.CuesPlayed() != 0 {
		t.Error("Expected no cues for a motion without sound")
	}
}

func TestEngineMuted(t *testing.T) {
	e := NewEngine(Config{Volume: 0})
	e.OnPhase(phase(host.PhaseStarted, 0))
	if p := peak(pull(e, 50*time.Millisecond)); p != 0 {
		t.Errorf("Expected muted output, got peak %f", p)
	}
}

func TestEngineReset(t *testing.T) {
	e := NewEngine(DefaultConfig())
	e.OnPhase(phase(host.PhaseStarted, 0))
	e.Reset()
	if e.Voices() != 0 || e.ActiveLoops() != 0 {
		t.Error("Expected reset to clear all cues")
	}
}

func TestRecorderWAV(t *testing.T) {
	e := NewEngine(DefaultConfig())
	e.OnPhase(phase(host.PhaseStarted, 0))

	rec := NewRecorder(e, e.SampleRate())
	rec.Pull(100 * time.Millisecond)
	rec.Pull(0)
	if got := rec.Len(); got != 100*time.Millisecond {
		t.Errorf("Expected 100ms recorded, got %v", got)
	}

	path := filepath.Join(t.TempDir(), "cues.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := rec.WriteWAV(f); err != nil {
		t.Fatalf("WriteWAV: %v", err)
	}
	f.Close()

	in, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer in.Close()
	s, format, err := wav.Decode(in)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if format.SampleRate != e.SampleRate() || format.NumChannels != 2 {
		t.Errorf("Unexpected format %+v", format)
	}
	if s.Len() != e.SampleRate().N(100*time.Millisecond) {
		t.Errorf("Expected %d samples, got %d", e.SampleRate().N(100*time.Millisecond), s.Len())
	}
}
