package lipsync

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// fakeSource is an AmplitudeSource backed by an atomic cell and a channel,
// standing in for a render session.
type fakeSource struct {
	amp  atomic.Uint64
	done chan struct{}
	once sync.Once
}

func newFakeSource() *fakeSource {
	return &fakeSource{done: make(chan struct{})}
}

func (f *fakeSource) set(v float64)         { f.amp.Store(math.Float64bits(v)) }
func (f *fakeSource) Amplitude() float64    { return math.Float64frombits(f.amp.Load()) }
func (f *fakeSource) Done() <-chan struct{} { return f.done }
func (f *fakeSource) finish()               { f.once.Do(func() { close(f.done) }) }

// recordingTransmitter captures every frame sent.
type recordingTransmitter struct {
	mu     sync.Mutex
	frames []ShapeFrame
}

func (r *recordingTransmitter) Send(frame ShapeFrame) {
	r.mu.Lock()
	r.frames = append(r.frames, frame)
	r.mu.Unlock()
}

func (r *recordingTransmitter) snapshot() []ShapeFrame {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ShapeFrame, len(r.frames))
	copy(out, r.frames)
	return out
}

// fastConfig speeds the tick rate up so coordinator tests finish quickly.
func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.TickRate = 100
	return cfg
}

func maxWeight(f ShapeFrame) float64 {
	var max float64
	for _, v := range f {
		if v > max {
			max = v
		}
	}
	return max
}

func TestCoordinator_TransmitsWhileRunningThenFades(t *testing.T) {
	src := newFakeSource()
	src.set(0.2)
	tx := &recordingTransmitter{}
	coord := NewCoordinator(fastConfig(), src, tx, zerolog.Nop())

	go coord.Run(context.Background())

	// Let it tick for a while with loud audio, then signal completion.
	time.Sleep(200 * time.Millisecond)
	if coord.State() != StateRunning {
		t.Fatalf("expected Running state, got %d", coord.State())
	}
	src.finish()

	select {
	case <-coord.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("coordinator never closed")
	}
	if coord.State() != StateClosed {
		t.Fatalf("expected Closed state, got %d", coord.State())
	}

	frames := tx.snapshot()
	if len(frames) < fadeSteps+2 {
		t.Fatalf("expected running frames plus fade, got %d frames", len(frames))
	}

	var sawOpen bool
	for _, f := range frames {
		if !f.IsZero() {
			sawOpen = true
			break
		}
	}
	if !sawOpen {
		t.Error("expected non-zero frames while audio was loud")
	}

	// The fade is the final fadeSteps frames: strictly decreasing peak weight
	// down to an exactly-zero last frame.
	fade := frames[len(frames)-fadeSteps:]
	for i := 1; i < len(fade); i++ {
		prev, cur := maxWeight(fade[i-1]), maxWeight(fade[i])
		if prev > 0 && cur >= prev {
			t.Errorf("fade step %d did not decrease: %f -> %f", i, prev, cur)
		}
	}
	if !fade[len(fade)-1].IsZero() {
		t.Errorf("final transmitted frame not all-zero: %v", fade[len(fade)-1])
	}
}

func TestCoordinator_FadeScalingFromOpenMouth(t *testing.T) {
	// Drive the synthesizer to a wide-open mouth, then complete, and verify
	// every fade frame is the previous frame scaled by 1-(step+1)/fadeSteps.
	src := newFakeSource()
	src.set(1.0)
	tx := &recordingTransmitter{}
	coord := NewCoordinator(fastConfig(), src, tx, zerolog.Nop())

	go coord.Run(context.Background())
	time.Sleep(300 * time.Millisecond)
	src.finish()
	<-coord.Done()

	frames := tx.snapshot()
	if len(frames) <= fadeSteps {
		t.Fatalf("too few frames: %d", len(frames))
	}
	base := frames[len(frames)-fadeSteps-1]
	if maxWeight(base) < 0.1 {
		t.Fatalf("expected open mouth before fade, got peak %f", maxWeight(base))
	}

	expect := base
	fade := frames[len(frames)-fadeSteps:]
	for step, got := range fade {
		expect = expect.Scale(1.0 - float64(step+1)/fadeSteps)
		for i := range got {
			if math.Abs(got[i]-expect[i]) > 1e-9 {
				t.Fatalf("fade step %d shape %s: got %f want %f", step, ShapeNames[i], got[i], expect[i])
			}
		}
	}
}

func TestCoordinator_CancellationStillClosesMouth(t *testing.T) {
	src := newFakeSource()
	src.set(0.5)
	tx := &recordingTransmitter{}
	coord := NewCoordinator(fastConfig(), src, tx, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	go coord.Run(ctx)
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case <-coord.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("coordinator never closed after cancellation")
	}

	frames := tx.snapshot()
	if len(frames) == 0 {
		t.Fatal("no frames transmitted")
	}
	if !frames[len(frames)-1].IsZero() {
		t.Errorf("mouth left open after cancellation: %v", frames[len(frames)-1])
	}
	if coord.State() != StateClosed {
		t.Errorf("expected Closed state, got %d", coord.State())
	}
}
