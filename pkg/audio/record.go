package audio

import (
	"fmt"
	"io"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"
)

// Recorder captures a streamer into memory and encodes it as WAV.
type Recorder struct {
	src    beep.Streamer
	format beep.Format
	buf    *beep.Buffer
}

// NewRecorder records stereo 16-bit audio from src at rate.
func NewRecorder(src beep.Streamer, rate beep.SampleRate) *Recorder {
	format := beep.Format{SampleRate: rate, NumChannels: 2, Precision: 2}
	return &Recorder{src: src, format: format, buf: beep.NewBuffer(format)}
}

// Pull appends d worth of samples from the source.
func (r *Recorder) Pull(d time.Duration) {
	n := r.format.SampleRate.N(d)
	if n <= 0 {
		return
	}
	r.buf.Append(beep.Take(n, r.src))
}

// Len returns the recorded length.
func (r *Recorder) Len() time.Duration {
	return r.format.SampleRate.D(r.buf.Len())
}

// WriteWAV encodes everything recorded so far.
func (r *Recorder) WriteWAV(w io.WriteSeeker) error {
	if err := wav.Encode(w, r.buf.Streamer(0, r.buf.Len()), r.format); err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}
	return nil
}
