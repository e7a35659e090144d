package camera

import (
	"context"

	"github.com/nirmaltodwal7/facegate/pkg/face"
)

// Sampler turns a FrameSource plus a detector into the one-sample-per-
// call provider the engines consume.
type Sampler struct {
	source   FrameSource
	detector face.Detector
}

// NewSampler creates a sampler over a source and detector.
func NewSampler(source FrameSource, detector face.Detector) *Sampler {
	return &Sampler{source: source, detector: detector}
}

// Sample captures one frame and runs detection on it.
func (s *Sampler) Sample(ctx context.Context) ([]face.Detection, error) {
	frame, err := s.source.Capture(ctx)
	if err != nil {
		return nil, err
	}
	return s.detector.Detect(ctx, frame)
}
