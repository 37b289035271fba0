package audio

import (
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// bytesPerSample is the size of one S16LE output sample.
const bytesPerSample = 2

// PCMBuffer is an immutable run of interleaved float32 samples in [-1, 1].
// It is produced by the decode boundary and owned read-only by exactly one
// render session for that session's lifetime.
type PCMBuffer struct {
	Samples    []float32
	Channels   int
	SampleRate int
}

// Frames returns the number of sample frames in the buffer.
func (b *PCMBuffer) Frames() int {
	if b.Channels == 0 {
		return 0
	}
	return len(b.Samples) / b.Channels
}

// Duration returns the playback length of the buffer.
func (b *PCMBuffer) Duration() time.Duration {
	if b.SampleRate == 0 {
		return 0
	}
	return time.Duration(float64(b.Frames()) / float64(b.SampleRate) * float64(time.Second))
}

// Session renders one PCM buffer through the device data callback. Fill runs
// on the device's real-time thread, so everything it touches is an atomic or
// preallocated: the amplitude cell and cursor are the only state shared with
// the lip sync coordinator, and completion is signalled through a channel
// closed exactly once.
type Session struct {
	buf *PCMBuffer

	cursor    atomic.Int64  // frames written so far
	amplitude atomic.Uint64 // math.Float64bits of the live chunk RMS
	completed atomic.Bool

	once sync.Once
	done chan struct{}
}

// NewSession creates a render session that takes ownership of buf.
func NewSession(buf *PCMBuffer) *Session {
	return &Session{buf: buf, done: make(chan struct{})}
}

// Buffer returns the PCM buffer being rendered.
func (s *Session) Buffer() *PCMBuffer {
	return s.buf
}

// Amplitude returns the RMS loudness of the chunk most recently handed to the
// device, zero after completion. Safe to call from any goroutine.
func (s *Session) Amplitude() float64 {
	return math.Float64frombits(s.amplitude.Load())
}

// Cursor returns how many frames have been written to the device so far.
func (s *Session) Cursor() int {
	return int(s.cursor.Load())
}

// Completed reports whether the session has finished.
func (s *Session) Completed() bool {
	return s.completed.Load()
}

// Done is closed exactly once, when the buffer is exhausted, playback fails,
// or the session is cancelled.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Finish marks the session complete. Idempotent, and forces the amplitude
// cell back to silence so a late coordinator read never sees stale loudness.
// Called from the device callback on buffer exhaustion and from the playback
// worker on render errors or cancellation.
func (s *Session) Finish() {
	s.once.Do(func() {
		s.amplitude.Store(0)
		s.completed.Store(true)
		close(s.done)
	})
}

// Fill writes the next frameCount frames into out as interleaved S16LE,
// zero-filling anything past the end of the buffer, and publishes the RMS of
// the frames actually copied. This is the device data callback hot path: no
// allocation, no locks, no blocking.
func (s *Session) Fill(out []byte, frameCount uint32) {
	channels := s.buf.Channels
	needed := int(frameCount) * channels * bytesPerSample

	start := int(s.cursor.Load())
	total := s.buf.Frames()

	if start >= total {
		for i := 0; i < needed && i < len(out); i++ {
			out[i] = 0
		}
		s.Finish()
		return
	}

	end := start + int(frameCount)
	if end > total {
		end = total
	}
	avail := end - start

	si := start * channels
	for i := 0; i < avail*channels; i++ {
		v := float32ToInt16(s.buf.Samples[si+i])
		out[2*i] = byte(v)
		out[2*i+1] = byte(v >> 8)
	}
	for i := avail * channels * bytesPerSample; i < needed && i < len(out); i++ {
		out[i] = 0
	}

	// Ground-truth loudness of what just went to the speaker. First channel
	// only for stereo, matching how the shapes were tuned.
	var sum float64
	for f := 0; f < avail; f++ {
		v := float64(s.buf.Samples[(start+f)*channels])
		sum += v * v
	}
	s.amplitude.Store(math.Float64bits(math.Sqrt(sum / float64(avail))))
	s.cursor.Store(int64(end))

	if end >= total {
		s.Finish()
	}
}
