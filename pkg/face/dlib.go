package face

import (
	"context"
	"fmt"
	"image"
	"sync"

	goface "github.com/Kagami/go-face"

	"github.com/nirmaltodwal7/facegate/pkg/logging"
)

// 68-point shape predictor indices for the eye contours.
const (
	leftEyeStart  = 36
	rightEyeStart = 42
)

// dlibEngine abstracts the go-face recognizer so tests can stub it.
type dlibEngine interface {
	Recognize(imgData []byte) ([]goface.Face, error)
	Close()
}

// DlibDetector implements Detector on top of dlib via go-face.
// The model directory must contain the dlib face recognition resnet and
// a shape predictor. With the 68-point predictor the detections carry
// full eye contours; with the 5-point predictor the eye slices are left
// empty and liveness evaluation will reject the detection.
type DlibDetector struct {
	mu      sync.RWMutex
	engine  dlibEngine
	loaded  bool
	factory func(path string) (dlibEngine, error)
}

// NewDlibDetector creates an unloaded dlib detector.
func NewDlibDetector() *DlibDetector {
	return &DlibDetector{
		factory: func(path string) (dlibEngine, error) {
			return goface.NewRecognizer(path)
		},
	}
}

// LoadModels loads the dlib models from the given directory.
func (d *DlibDetector) LoadModels(modelPath string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.loaded {
		return nil
	}

	logging.Component("face").Infof("loading dlib models from %s", modelPath)
	engine, err := d.factory(modelPath)
	if err != nil {
		return fmt.Errorf("load dlib models: %w", err)
	}

	d.engine = engine
	d.loaded = true
	return nil
}

// Detect runs dlib face detection and descriptor extraction on a frame.
func (d *DlibDetector) Detect(ctx context.Context, frame Frame) ([]Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.RLock()
	engine := d.engine
	loaded := d.loaded
	d.mu.RUnlock()

	if !loaded {
		return nil, fmt.Errorf("dlib models not loaded")
	}

	faces, err := engine.Recognize(frame.Data)
	if err != nil {
		return nil, fmt.Errorf("dlib recognize: %w", err)
	}

	detections := make([]Detection, 0, len(faces))
	for _, f := range faces {
		det := Detection{
			Embedding:  Embedding(f.Descriptor),
			Confidence: 1.0, // dlib does not report per-face confidence
		}
		det.LeftEye = eyeContour(f.Shapes, leftEyeStart)
		det.RightEye = eyeContour(f.Shapes, rightEyeStart)
		detections = append(detections, det)
	}

	logging.Component("face").Debugf("dlib detected %d face(s)", len(detections))
	return detections, nil
}

// Close releases the dlib engine.
func (d *DlibDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.engine != nil {
		d.engine.Close()
		d.engine = nil
	}
	d.loaded = false
	return nil
}

// eyeContour extracts one eye's six ordered contour points from a
// 68-point shape set. Returns nil when the shape set is too small.
func eyeContour(shapes []image.Point, start int) []Point {
	if len(shapes) < start+EyePointCount {
		return nil
	}
	pts := make([]Point, EyePointCount)
	for i := 0; i < EyePointCount; i++ {
		pts[i] = Point{X: float64(shapes[start+i].X), Y: float64(shapes[start+i].Y)}
	}
	return pts
}
