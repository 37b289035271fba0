package player

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/normanking/vmcbridge/internal/audio"
	"github.com/normanking/vmcbridge/internal/config"
	"github.com/normanking/vmcbridge/internal/lipsync"
)

// fakeOutput drives a render session the way a hardware callback would,
// pulling fixed-size chunks on a short period until the buffer runs dry.
type fakeOutput struct {
	chunk  uint32
	period time.Duration
	err    error
}

func (o *fakeOutput) Play(ctx context.Context, s *audio.Session) error {
	if o.err != nil {
		return o.err
	}
	out := make([]byte, o.chunk*2)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.Done():
			return nil
		case <-time.After(o.period):
			s.Fill(out, o.chunk)
		}
	}
}

func (o *fakeOutput) DeviceName() string { return "fake speaker" }

// frameRecorder implements lipsync.Transmitter.
type frameRecorder struct {
	mu     sync.Mutex
	frames []lipsync.ShapeFrame
}

func (r *frameRecorder) Send(frame lipsync.ShapeFrame) {
	r.mu.Lock()
	r.frames = append(r.frames, frame)
	r.mu.Unlock()
}

func (r *frameRecorder) snapshot() []lipsync.ShapeFrame {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]lipsync.ShapeFrame, len(r.frames))
	copy(out, r.frames)
	return out
}

func testEngine(out Output, tx lipsync.Transmitter) *Engine {
	cfg := config.DefaultConfig()
	cfg.LipSync.TickRate = 100 // faster ticks keep the test short
	return NewEngine(cfg, out, tx, true, cfg.LipSync.Port, zerolog.Nop())
}

// speechBuffer is a 440 Hz tone followed by an equal stretch of silence,
// mimicking an utterance that trails off.
func speechBuffer(rate int) *audio.PCMBuffer {
	tone := audio.Tone(440, 0.3, 350*time.Millisecond, rate)
	silence := make([]float32, len(tone.Samples))
	return &audio.PCMBuffer{
		Samples:    append(tone.Samples, silence...),
		Channels:   1,
		SampleRate: rate,
	}
}

func TestEngine_RenderDrivesLipSyncToCompletion(t *testing.T) {
	out := &fakeOutput{chunk: 800, period: 5 * time.Millisecond}
	tx := &frameRecorder{}
	e := testEngine(out, tx)

	buf := speechBuffer(24000)
	done := make(chan error, 1)
	go func() { done <- e.Render(context.Background(), buf) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("render failed: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("render never returned")
	}

	frames := tx.snapshot()
	if len(frames) == 0 {
		t.Fatal("no lip sync frames transmitted")
	}

	var sawOpen bool
	for _, f := range frames {
		if !f.IsZero() {
			sawOpen = true
			break
		}
	}
	if !sawOpen {
		t.Error("mouth never opened during the loud half of playback")
	}
	if !frames[len(frames)-1].IsZero() {
		t.Errorf("mouth left open after playback: %v", frames[len(frames)-1])
	}
}

func TestEngine_RenderFailureStillClosesCoordinator(t *testing.T) {
	deviceErr := errors.New("device unavailable")
	out := &fakeOutput{err: deviceErr}
	tx := &frameRecorder{}
	e := testEngine(out, tx)

	start := time.Now()
	err := e.Render(context.Background(), speechBuffer(24000))
	if !errors.Is(err, deviceErr) {
		t.Fatalf("expected device error back from Render, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("render took %v; coordinator join should be fast after Finish", elapsed)
	}

	frames := tx.snapshot()
	if len(frames) > 0 && !frames[len(frames)-1].IsZero() {
		t.Errorf("final frame after failed render not zero: %v", frames[len(frames)-1])
	}
}

func TestEngine_StatusReflectsCollaborators(t *testing.T) {
	out := &fakeOutput{chunk: 800, period: time.Millisecond}
	e := testEngine(out, &frameRecorder{})

	st := e.Status()
	if st.Device != "fake speaker" {
		t.Errorf("device = %q", st.Device)
	}
	if st.SampleRate != 24000 {
		t.Errorf("sample rate = %d", st.SampleRate)
	}
	if !st.LipSyncEnabled || st.LipSyncPort != 39540 {
		t.Errorf("lip sync status = %v port %d", st.LipSyncEnabled, st.LipSyncPort)
	}
	if st.QueueDepth != 0 {
		t.Errorf("queue depth = %d, want 0", st.QueueDepth)
	}
}

func TestEngine_PlayToneQueuesConfiguredTone(t *testing.T) {
	e := testEngine(&fakeOutput{}, &frameRecorder{})
	// Worker not started, so the tone stays queued and depth is observable.
	if depth := e.PlayTone(); depth != 1 {
		t.Errorf("depth after PlayTone = %d, want 1", depth)
	}
	if e.Clear() != 1 {
		t.Error("expected the queued tone to be clearable")
	}
}
