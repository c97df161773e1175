package audio

import (
	"hash/fnv"
	"math"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
)

const (
	minBaseFreq = 110.0
	maxBaseFreq = 660.0

	cueAmplitude  = 0.25
	loopAmplitude = 0.15

	// maxPitchRatio bounds how far a loop rises above its base frequency.
	maxPitchRatio = 4.0
)

// baseFreq maps a sound handle to a stable base frequency.
func baseFreq(handle string) float64 {
	h := fnv.New32a()
	h.Write([]byte(handle))
	span := maxBaseFreq - minBaseFreq
	return minBaseFreq + span*float64(h.Sum32()%1000)/1000
}

// pitchFor scales base by the turn rate in rad/s.
func pitchFor(base, turnRate float64) float64 {
	ratio := 1 + math.Abs(turnRate)
	if ratio > maxPitchRatio {
		ratio = maxPitchRatio
	}
	return base * ratio
}

// sweep is a sine tone gliding linearly from one frequency to another.
type sweep struct {
	from, to float64
	phase    float64
	pos      int
	total    int
	rate     beep.SampleRate
}

func newSweep(from, to float64, d time.Duration, rate beep.SampleRate) *sweep {
	return &sweep{from: from, to: to, total: rate.N(d), rate: rate}
}

func (s *sweep) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		if s.pos >= s.total {
			return i, i > 0
		}
		t := float64(s.pos) / float64(s.total)
		freq := s.from + (s.to-s.from)*t
		v := cueAmplitude * math.Sin(2*math.Pi*s.phase)
		samples[i][0] = v
		samples[i][1] = v
		s.phase += freq / float64(s.rate)
		if s.phase >= 1 {
			s.phase -= 1
		}
		s.pos++
	}
	return len(samples), true
}

func (s *sweep) Err() error { return nil }

// envelope fades a stream in and out over fixed sample counts.
type envelope struct {
	streamer beep.Streamer
	pos      int
	attack   int
	release  int
	total    int
}

func newEnvelope(s beep.Streamer, d, attack, release time.Duration, rate beep.SampleRate) *envelope {
	return &envelope{
		streamer: s,
		attack:   rate.N(attack),
		release:  rate.N(release),
		total:    rate.N(d),
	}
}

func (e *envelope) Stream(samples [][2]float64) (n int, ok bool) {
	n, ok = e.streamer.Stream(samples)
	for i := 0; i < n; i++ {
		if e.pos >= e.total {
			return i, i > 0
		}
		vol := 1.0
		if e.pos < e.attack && e.attack > 0 {
			vol = float64(e.pos) / float64(e.attack)
		}
		if left := e.total - e.pos; left < e.release && e.release > 0 {
			vol = float64(left) / float64(e.release)
		}
		samples[i][0] *= vol
		samples[i][1] *= vol
		e.pos++
	}
	return n, ok
}

func (e *envelope) Err() error { return e.streamer.Err() }

// startCue rises a fifth above the handle's base frequency.
func startCue(handle string, rate beep.SampleRate) beep.Streamer {
	f := baseFreq(handle)
	d := 120 * time.Millisecond
	return newEnvelope(newSweep(f, f*1.5, d, rate), d, 5*time.Millisecond, 40*time.Millisecond, rate)
}

// endCue falls an octave, followed by a short silence.
func endCue(handle string, rate beep.SampleRate) beep.Streamer {
	f := baseFreq(handle)
	d := 180 * time.Millisecond
	tone := newEnvelope(newSweep(f, f/2, d, rate), d, 5*time.Millisecond, 80*time.Millisecond, rate)
	return beep.Seq(tone, beep.Silence(rate.N(20*time.Millisecond)))
}

// withVolume scales s by a linear factor, silencing it at zero.
func withVolume(s beep.Streamer, vol float64) beep.Streamer {
	if vol <= 0 {
		return &effects.Volume{Streamer: s, Base: 2, Silent: true}
	}
	return &effects.Volume{Streamer: s, Base: 2, Volume: math.Log2(vol)}
}

// loopVoice is a continuous tone whose pitch glides toward a target. It
// fades out and ends after stop.
type loopVoice struct {
	freq    float64
	target  float64
	base    float64
	phase   float64
	rate    beep.SampleRate
	stopped bool
	fade    int
	fadeLen int
}

func newLoopVoice(handle string, turnRate float64, rate beep.SampleRate) *loopVoice {
	base := baseFreq(handle)
	f := pitchFor(base, turnRate)
	return &loopVoice{
		freq:    f,
		target:  f,
		base:    base,
		rate:    rate,
		fadeLen: rate.N(30 * time.Millisecond),
	}
}

func (v *loopVoice) setTurnRate(rate float64) { v.target = pitchFor(v.base, rate) }

func (v *loopVoice) stop() {
	if !v.stopped {
		v.stopped = true
		v.fade = v.fadeLen
	}
}

func (v *loopVoice) done() bool { return v.stopped && v.fade <= 0 }

func (v *loopVoice) Stream(samples [][2]float64) (n int, ok bool) {
	// Glide constant of roughly 20 ms.
	glide := 1 - math.Exp(-1/(0.02*float64(v.rate)))
	for i := range samples {
		if v.done() {
			return i, i > 0
		}
		amp := loopAmplitude
		if v.stopped {
			amp *= float64(v.fade) / float64(v.fadeLen)
			v.fade--
		}
		v.freq += (v.target - v.freq) * glide
		s := amp * math.Sin(2*math.Pi*v.phase)
		samples[i][0] = s
		samples[i][1] = s
		v.phase += v.freq / float64(v.rate)
		if v.phase >= 1 {
			v.phase -= 1
		}
	}
	return len(samples), true
}

func (v *loopVoice) Err() error { return nil }
