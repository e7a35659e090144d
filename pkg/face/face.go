// Package face defines the embedding source contract consumed by the
// enrollment and verification engines, together with the vector math
// used for template averaging and matching. Concrete detector backends
// (dlib, ONNX) live in this package; the engines only see the Detector
// interface so tests can substitute a synthetic detector.
package face

import (
	"context"
	"errors"
	"time"
)

// EmbeddingDim is the fixed dimensionality of face embeddings. Every
// stored template and every live sample must have exactly this length.
const EmbeddingDim = 128

// EyePointCount is the number of ordered contour points per eye.
const EyePointCount = 6

// Embedding is a fixed-length face descriptor.
type Embedding [EmbeddingDim]float32

// Point is a 2D landmark coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Detection is one detected face: its embedding plus the ordered
// eye-contour landmarks the liveness evaluator consumes.
type Detection struct {
	Embedding  Embedding
	LeftEye    []Point
	RightEye   []Point
	Confidence float64
}

// Frame is one captured camera frame handed to a detector.
type Frame struct {
	Data      []byte
	Width     int
	Height    int
	Timestamp time.Time
}

// Detector is the embedding source contract. A single frame yields zero
// or more detections. Implementations must be safe for concurrent use.
type Detector interface {
	Detect(ctx context.Context, frame Frame) ([]Detection, error)
	Close() error
}

// ErrDimensionMismatch is returned when a vector does not have
// EmbeddingDim components.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// ErrNoSamples is returned when averaging an empty sample set.
var ErrNoSamples = errors.New("no embedding samples")
