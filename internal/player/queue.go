// Package player serializes playback requests: a single worker consumes a
// FIFO of decoded buffers and runs one render session plus lip sync
// coordinator pair at a time, which is what guarantees the system-wide
// at-most-one-active-playback invariant.
package player

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/normanking/vmcbridge/internal/audio"
)

// Renderer plays one buffer to completion or failure. The queue worker is its
// only caller.
type Renderer interface {
	Render(ctx context.Context, buf *audio.PCMBuffer) error
}

// Queue is the single-consumer playback queue. Enqueue and Clear are safe for
// arbitrary concurrent callers; the worker goroutine started by Start is the
// only thing that ever dequeues.
type Queue struct {
	renderer Renderer
	logger   zerolog.Logger

	mu      sync.Mutex
	pending []*audio.PCMBuffer
	notify  chan struct{}

	done chan struct{}
}

// NewQueue creates a playback queue feeding the given renderer.
func NewQueue(r Renderer, logger zerolog.Logger) *Queue {
	return &Queue{
		renderer: r,
		logger:   logger.With().Str("component", "queue").Logger(),
		notify:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Start launches the consumer worker. It runs until ctx is cancelled.
func (q *Queue) Start(ctx context.Context) {
	go q.work(ctx)
}

// Done is closed when the worker has exited.
func (q *Queue) Done() <-chan struct{} {
	return q.done
}

// Enqueue appends a buffer and returns the new number of pending items. It
// never blocks the caller.
func (q *Queue) Enqueue(buf *audio.PCMBuffer) int {
	q.mu.Lock()
	q.pending = append(q.pending, buf)
	depth := len(q.pending)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}

	q.logger.Info().Int("depth", depth).Dur("duration", buf.Duration()).Msg("Buffer queued")
	return depth
}

// Clear drops every buffer not yet picked up by the worker and returns how
// many were removed. An in-flight render is never interrupted.
func (q *Queue) Clear() int {
	q.mu.Lock()
	cleared := len(q.pending)
	q.pending = nil
	q.mu.Unlock()

	if cleared > 0 {
		q.logger.Info().Int("cleared", cleared).Msg("Playback queue cleared")
	}
	return cleared
}

// Depth returns the number of pending (not yet started) buffers.
func (q *Queue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// pop removes the oldest pending buffer, or returns nil.
func (q *Queue) pop() *audio.PCMBuffer {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil
	}
	buf := q.pending[0]
	q.pending = q.pending[1:]
	return buf
}

// work is the consumer loop. A failed item is logged and skipped; the worker
// itself never dies to a per-item error.
func (q *Queue) work(ctx context.Context) {
	defer close(q.done)

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.notify:
		}

		for {
			buf := q.pop()
			if buf == nil {
				break
			}
			if err := q.renderer.Render(ctx, buf); err != nil {
				if ctx.Err() != nil {
					return
				}
				q.logger.Error().Err(err).Msg("Playback failed, continuing with next item")
			}
		}
	}
}
