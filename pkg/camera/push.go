package camera

import (
	"context"
	"sync"

	"github.com/nirmaltodwal7/facegate/pkg/face"
)

// PushSource is a FrameSource fed by an external producer, typically
// the dashboard posting periodic webcam frames over HTTP. Capture
// blocks until a frame arrives; producers never block, stale frames
// are dropped in favor of fresh ones.
type PushSource struct {
	frames chan face.Frame

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

// NewPushSource creates a push source buffering up to buffer frames.
func NewPushSource(buffer int) *PushSource {
	if buffer <= 0 {
		buffer = 1
	}
	return &PushSource{
		frames: make(chan face.Frame, buffer),
		done:   make(chan struct{}),
	}
}

// Push hands a frame to the source. If the buffer is full the oldest
// frame is evicted so consumers always see the freshest capture.
func (p *PushSource) Push(frame face.Frame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrSourceClosed
	}

	for {
		select {
		case p.frames <- frame:
			return nil
		default:
			select {
			case <-p.frames:
			default:
			}
		}
	}
}

// Capture blocks until a frame is available or ctx is cancelled.
func (p *PushSource) Capture(ctx context.Context) (face.Frame, error) {
	select {
	case frame := <-p.frames:
		return frame, nil
	case <-p.done:
		return face.Frame{}, ErrSourceClosed
	case <-ctx.Done():
		return face.Frame{}, ctx.Err()
	}
}

// Close implements FrameSource.
func (p *PushSource) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.done)
	}
	return nil
}
