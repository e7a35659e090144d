package camera

import (
	"context"

	"github.com/nirmaltodwal7/facegate/pkg/face"
)

type mockFrameSource struct {
	CaptureFunc func(ctx context.Context) (face.Frame, error)
	closed      bool
}

func (m *mockFrameSource) Capture(ctx context.Context) (face.Frame, error) {
	if m.CaptureFunc != nil {
		return m.CaptureFunc(ctx)
	}
	return face.Frame{}, nil
}

func (m *mockFrameSource) Close() error {
	m.closed = true
	return nil
}

type mockDetector struct {
	DetectFunc func(ctx context.Context, frame face.Frame) ([]face.Detection, error)
}

func (m *mockDetector) Detect(ctx context.Context, frame face.Frame) ([]face.Detection, error) {
	if m.DetectFunc != nil {
		return m.DetectFunc(ctx, frame)
	}
	return nil, nil
}

func (m *mockDetector) Close() error {
	return nil
}
