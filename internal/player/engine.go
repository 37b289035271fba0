package player

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/normanking/vmcbridge/internal/audio"
	"github.com/normanking/vmcbridge/internal/config"
	"github.com/normanking/vmcbridge/internal/lipsync"
)

// coordinatorJoinTimeout bounds how long the worker waits for a coordinator
// to finish its fade after playback ends. Purely a safety net against a stuck
// fade; on expiry the worker logs and moves on.
const coordinatorJoinTimeout = 5 * time.Second

// Output is the playback device as the engine sees it. *audio.Output is the
// real implementation; tests substitute a driver that pumps Session.Fill
// without hardware.
type Output interface {
	Play(ctx context.Context, s *audio.Session) error
	DeviceName() string
}

// Status is the boundary-layer view of the engine.
type Status struct {
	Device         string `json:"device"`
	SampleRate     int    `json:"sample_rate"`
	LipSyncPort    int    `json:"lipsync_port"`
	LipSyncEnabled bool   `json:"lipsync_enabled"`
	QueueDepth     int    `json:"queue_depth"`
}

// Engine ties the playback queue, output device, and lip sync chain together.
// It implements Renderer: each dequeued buffer gets a fresh session and
// coordinator, run in lockstep until both finish.
type Engine struct {
	cfg    *config.Config
	tuning lipsync.Config
	output Output
	tx     lipsync.Transmitter
	queue  *Queue
	logger zerolog.Logger

	txEnabled bool
	txPort    int
}

// NewEngine wires an engine from its collaborators. The transmitter's
// enabled/port metadata is passed separately so Status can report it without
// the engine knowing the transmitter's concrete type.
func NewEngine(cfg *config.Config, out Output, tx lipsync.Transmitter, txEnabled bool, txPort int, logger zerolog.Logger) *Engine {
	e := &Engine{
		cfg:       cfg,
		tuning:    cfg.LipSync.Tuning(),
		output:    out,
		tx:        tx,
		logger:    logger.With().Str("component", "player").Logger(),
		txEnabled: txEnabled,
		txPort:    txPort,
	}
	e.queue = NewQueue(e, logger)
	return e
}

// Start launches the queue worker.
func (e *Engine) Start(ctx context.Context) {
	e.queue.Start(ctx)
}

// Enqueue queues a decoded buffer for playback and returns the queue depth.
func (e *Engine) Enqueue(buf *audio.PCMBuffer) int {
	return e.queue.Enqueue(buf)
}

// Clear drains all pending buffers, leaving any in-flight render untouched.
func (e *Engine) Clear() int {
	return e.queue.Clear()
}

// PlayTone queues the configured test tone.
func (e *Engine) PlayTone() int {
	tone := audio.Tone(
		e.cfg.Audio.ToneFrequency,
		0.3,
		e.cfg.Audio.ToneDuration,
		e.cfg.Audio.SampleRate,
	)
	return e.Enqueue(tone)
}

// Status reports the engine's boundary-facing state.
func (e *Engine) Status() Status {
	return Status{
		Device:         e.output.DeviceName(),
		SampleRate:     e.cfg.Audio.SampleRate,
		LipSyncPort:    e.txPort,
		LipSyncEnabled: e.txEnabled,
		QueueDepth:     e.queue.Depth(),
	}
}

// Render plays one buffer with live lip sync. The coordinator's fade/close
// path runs on every exit: natural completion, render failure, and
// cancellation all end with the mouth shut.
func (e *Engine) Render(ctx context.Context, buf *audio.PCMBuffer) error {
	session := audio.NewSession(buf)
	coord := lipsync.NewCoordinator(e.tuning, session, e.tx, e.logger)
	go coord.Run(ctx)

	err := e.output.Play(ctx, session)
	if err != nil {
		// Force the completion signal so the coordinator drains and fades
		// even though the device never got to the end of the buffer.
		session.Finish()
	}

	select {
	case <-coord.Done():
	case <-time.After(coordinatorJoinTimeout):
		e.logger.Warn().Msg("Lip sync coordinator did not close in time")
	}
	return err
}
