// Package liveness classifies a detection as live or not using the eye
// aspect ratio (EAR) of both eye contours. An open eye produces a high
// ratio; a closed or blinking eye, a printed photo held at an angle, or
// a replay with shut eyes produces a low one.
package liveness

import (
	"errors"
	"math"

	"github.com/nirmaltodwal7/facegate/pkg/face"
)

// DefaultEARThreshold is the open-eye heuristic boundary.
const DefaultEARThreshold = 0.25

// ErrBadLandmarks is returned when an eye contour does not have exactly
// six points. A malformed contour is never treated as live.
var ErrBadLandmarks = errors.New("eye landmark set must contain 6 points")

// Result holds the liveness classification for one detection.
type Result struct {
	IsLive   bool
	LeftEAR  float64
	RightEAR float64
}

// Evaluator computes EAR-based liveness with a configurable threshold.
type Evaluator struct {
	threshold float64
}

// NewEvaluator creates an evaluator. A threshold <= 0 selects the default.
func NewEvaluator(threshold float64) *Evaluator {
	if threshold <= 0 {
		threshold = DefaultEARThreshold
	}
	return &Evaluator{threshold: threshold}
}

// Threshold returns the configured EAR threshold.
func (e *Evaluator) Threshold() float64 {
	return e.threshold
}

// Evaluate classifies a detection from its two eye contours. The
// function is pure: identical input yields identical output.
func (e *Evaluator) Evaluate(leftEye, rightEye []face.Point) (Result, error) {
	left, err := EyeAspectRatio(leftEye)
	if err != nil {
		return Result{}, err
	}
	right, err := EyeAspectRatio(rightEye)
	if err != nil {
		return Result{}, err
	}

	return Result{
		IsLive:   left > e.threshold && right > e.threshold,
		LeftEAR:  left,
		RightEAR: right,
	}, nil
}

// EyeAspectRatio computes the EAR for one eye from its six ordered
// contour points p0..p5:
//
//	EAR = (|p1.y - p5.y| + |p2.y - p4.y|) / (2 * |p0.x - p3.x|)
func EyeAspectRatio(eye []face.Point) (float64, error) {
	if len(eye) != face.EyePointCount {
		return 0, ErrBadLandmarks
	}

	vertical := math.Abs(eye[1].Y-eye[5].Y) + math.Abs(eye[2].Y-eye[4].Y)
	horizontal := 2 * math.Abs(eye[0].X-eye[3].X)
	if horizontal == 0 {
		// Degenerate contour: a zero-width eye cannot be an open eye.
		return 0, nil
	}
	return vertical / horizontal, nil
}
