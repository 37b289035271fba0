package lipsync

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// State is the coordinator lifecycle: Running while audio plays, Draining
// during the fade-out, Closed once the mouth has been returned to zero.
type State int32

const (
	StateRunning State = iota
	StateDraining
	StateClosed
)

// fadeSteps is the length of the fade-out sequence. The final step scales by
// zero, so the last transmitted frame of every session is exactly all-zero.
const fadeSteps = 8

// AmplitudeSource is the render session as seen by the coordinator: a live
// loudness reading plus a completion signal. Both must be safe to access
// concurrently with the device callback that writes them.
type AmplitudeSource interface {
	// Amplitude returns the RMS loudness of the chunk currently being played.
	Amplitude() float64
	// Done is closed once when playback completes or fails.
	Done() <-chan struct{}
}

// Coordinator runs the per-session tick loop: every tick it reads the live
// amplitude, synthesizes a shape frame, and transmits it. When the session
// signals completion (or the context is cancelled) it fades the mouth shut
// before closing, so the avatar is never left mid-vowel.
type Coordinator struct {
	cfg    Config
	synth  *Synthesizer
	src    AmplitudeSource
	tx     Transmitter
	logger zerolog.Logger

	state atomic.Int32
	done  chan struct{}
}

// NewCoordinator creates a coordinator for one playback session.
func NewCoordinator(cfg Config, src AmplitudeSource, tx Transmitter, logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		cfg:    cfg,
		synth:  NewSynthesizer(cfg),
		src:    src,
		tx:     tx,
		logger: logger.With().Str("component", "lipsync").Logger(),
		done:   make(chan struct{}),
	}
}

// State returns the coordinator's current lifecycle state.
func (c *Coordinator) State() State {
	return State(c.state.Load())
}

// Done is closed after the fade-out has run and the final zero frame is sent.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

// Run ticks until the session completes or ctx is cancelled, then fades out.
// The fade runs on every exit path; a render failure surfaces here as the
// session's Done closing early and gets the same treatment as natural
// completion.
func (c *Coordinator) Run(ctx context.Context) {
	defer close(c.done)
	defer c.state.Store(int32(StateClosed))

	period := time.Second / time.Duration(c.cfg.TickRate)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Debug().Msg("Context cancelled, fading mouth closed")
			c.fadeOut(period)
			return
		case <-c.src.Done():
			c.fadeOut(period)
			return
		case <-ticker.C:
			c.tx.Send(c.synth.Tick(c.src.Amplitude()))
		}
	}
}

// fadeOut scales the last frame down over fadeSteps ticks, ending on an exact
// all-zero frame, then resets the synthesizer.
func (c *Coordinator) fadeOut(period time.Duration) {
	c.state.Store(int32(StateDraining))

	frame := c.synth.Previous()
	for step := 0; step < fadeSteps; step++ {
		frame = frame.Scale(1.0 - float64(step+1)/fadeSteps)
		c.tx.Send(frame)
		time.Sleep(period)
	}
	c.synth.Reset()
	c.logger.Debug().Msg("Lip sync session closed")
}
