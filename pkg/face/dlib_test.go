package face

import (
	"context"
	"errors"
	"image"
	"testing"

	goface "github.com/Kagami/go-face"
)

func shapes68(eyeY float64) []image.Point {
	pts := make([]image.Point, 68)
	for i := range pts {
		pts[i] = image.Point{X: i, Y: int(eyeY)}
	}
	return pts
}

func TestDlibDetectorNotLoaded(t *testing.T) {
	d := NewDlibDetector()
	if _, err := d.Detect(context.Background(), Frame{}); err == nil {
		t.Error("expected error before models are loaded")
	}
}

func TestDlibDetectorDetect(t *testing.T) {
	d := NewDlibDetector()
	d.factory = func(path string) (dlibEngine, error) {
		return &mockDlibEngine{
			RecognizeFunc: func(data []byte) ([]goface.Face, error) {
				var desc goface.Descriptor
				desc[0] = 0.25
				return []goface.Face{{Descriptor: desc, Shapes: shapes68(10)}}, nil
			},
		}, nil
	}
	if err := d.LoadModels("/nonexistent"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	detections, err := d.Detect(context.Background(), Frame{Data: []byte("jpeg")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(detections) != 1 {
		t.Fatalf("expected 1 detection, got %d", len(detections))
	}

	det := detections[0]
	if det.Embedding[0] != 0.25 {
		t.Errorf("expected embedding[0] 0.25, got %f", det.Embedding[0])
	}
	if len(det.LeftEye) != EyePointCount || len(det.RightEye) != EyePointCount {
		t.Fatalf("expected %d-point eye contours, got %d and %d",
			EyePointCount, len(det.LeftEye), len(det.RightEye))
	}
	// Eye points come from predictor indices 36..41 and 42..47.
	if det.LeftEye[0].X != 36 || det.RightEye[0].X != 42 {
		t.Errorf("unexpected contour starts: %f, %f", det.LeftEye[0].X, det.RightEye[0].X)
	}
}

func TestDlibDetectorFivePointPredictor(t *testing.T) {
	d := NewDlibDetector()
	d.factory = func(path string) (dlibEngine, error) {
		return &mockDlibEngine{
			RecognizeFunc: func(data []byte) ([]goface.Face, error) {
				// 5-point predictor output: too few shapes for contours.
				return []goface.Face{{Shapes: make([]image.Point, 5)}}, nil
			},
		}, nil
	}
	if err := d.LoadModels(""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	detections, err := d.Detect(context.Background(), Frame{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if detections[0].LeftEye != nil || detections[0].RightEye != nil {
		t.Error("expected nil eye contours without a 68-point predictor")
	}
}

func TestDlibDetectorEngineError(t *testing.T) {
	d := NewDlibDetector()
	d.factory = func(path string) (dlibEngine, error) {
		return &mockDlibEngine{
			RecognizeFunc: func(data []byte) ([]goface.Face, error) {
				return nil, errors.New("decode failed")
			},
		}, nil
	}
	if err := d.LoadModels(""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := d.Detect(context.Background(), Frame{}); err == nil {
		t.Error("expected error from failing engine")
	}
}

func TestEyeContourTooShort(t *testing.T) {
	if got := eyeContour(make([]image.Point, 40), leftEyeStart); got != nil {
		t.Errorf("expected nil for truncated shapes, got %v", got)
	}
}
