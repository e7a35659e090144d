// Package camera defines the frame acquisition contract and the
// continuous presence watcher. Actual video hardware access lives
// behind the FrameSource interface; the service also feeds uploaded
// dashboard frames through the same contract.
package camera

import (
	"context"
	"errors"
	"sync"

	"github.com/nirmaltodwal7/facegate/pkg/face"
)

// ErrNoFrame is returned when a source cannot produce a frame.
var ErrNoFrame = errors.New("failed to capture frame")

// ErrSourceClosed is returned when capturing from a closed source.
var ErrSourceClosed = errors.New("frame source closed")

// FrameSource produces camera frames. A source is exclusively owned by
// the session that opened it and must be closed on every exit path.
type FrameSource interface {
	Capture(ctx context.Context) (face.Frame, error)
	Close() error
}

// FrameQueue is a FrameSource over a fixed set of already-captured
// frames, in order. The HTTP layer uses it to feed uploaded frames to
// the engines through the same contract a live camera would.
type FrameQueue struct {
	mu     sync.Mutex
	frames []face.Frame
	next   int
	closed bool
}

// NewFrameQueue creates a queue over the given frames.
func NewFrameQueue(frames []face.Frame) *FrameQueue {
	return &FrameQueue{frames: frames}
}

// Capture returns the next queued frame, ErrNoFrame when exhausted.
func (q *FrameQueue) Capture(ctx context.Context) (face.Frame, error) {
	if err := ctx.Err(); err != nil {
		return face.Frame{}, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return face.Frame{}, ErrSourceClosed
	}
	if q.next >= len(q.frames) {
		return face.Frame{}, ErrNoFrame
	}
	frame := q.frames[q.next]
	q.next++
	return frame, nil
}

// Close implements FrameSource.
func (q *FrameQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	return nil
}
