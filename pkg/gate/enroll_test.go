package gate

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/nirmaltodwal7/facegate/pkg/face"
	"github.com/nirmaltodwal7/facegate/pkg/storage"
)

func TestEnrollAveragesSamples(t *testing.T) {
	store := &mockTemplateStore{}
	g := newTestGate(store, 5, Options{SampleCount: 5})

	src := &mockSampleProvider{}
	for i := 0; i < 5; i++ {
		var emb face.Embedding
		emb[0] = float32(i) // components 0..4 average to 2
		emb[1] = 1.0
		src.results = append(src.results, sampleResult{detections: []face.Detection{liveDetection(emb)}})
	}

	tpl, err := g.Enroll(context.Background(), "alice", src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if math.Abs(float64(tpl.Vector[0])-2.0) > 1e-6 {
		t.Errorf("expected component 0 to average to 2, got %f", tpl.Vector[0])
	}
	if math.Abs(float64(tpl.Vector[1])-1.0) > 1e-6 {
		t.Errorf("expected component 1 to average to 1, got %f", tpl.Vector[1])
	}
	if tpl.UserID != "alice" {
		t.Errorf("expected user alice, got %s", tpl.UserID)
	}
	if !tpl.CreatedAt.Equal(testNow) {
		t.Errorf("expected created_at %v, got %v", testNow, tpl.CreatedAt)
	}
	if len(store.appends) != 1 {
		t.Fatalf("expected exactly one store write, got %d", len(store.appends))
	}
	if src.callCount() != 5 {
		t.Errorf("expected 5 samples, got %d", src.callCount())
	}
}

func TestEnrollIdenticalSamplesReproduceTemplate(t *testing.T) {
	store := &mockTemplateStore{}
	g := newTestGate(store, 5, Options{SampleCount: 5})

	var emb face.Embedding
	for i := range emb {
		emb[i] = float32(i) * 0.007
	}
	src := &mockSampleProvider{results: []sampleResult{{detections: []face.Detection{liveDetection(emb)}}}}

	tpl, err := g.Enroll(context.Background(), "alice", src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d := face.EuclideanDistance(tpl.Vector, emb); d > 1e-5 {
		t.Errorf("averaging identical samples must reproduce them, distance %f", d)
	}
}

func TestEnrollAbortsOnNoFace(t *testing.T) {
	store := &mockTemplateStore{}
	g := newTestGate(store, 5, Options{SampleCount: 5})

	// Samples 1-3 succeed, sample 4 sees no face.
	src := &mockSampleProvider{}
	for i := 0; i < 3; i++ {
		src.results = append(src.results, sampleResult{detections: []face.Detection{liveDetection(embeddingAt(0.1))}})
	}
	src.results = append(src.results, sampleResult{detections: nil})

	_, err := g.Enroll(context.Background(), "alice", src)
	if CodeOf(err) != CodeNoFace {
		t.Fatalf("expected NO_FACE, got %v", err)
	}

	// All-or-nothing: no partial template may be persisted.
	if len(store.appends) != 0 || len(store.replaces) != 0 {
		t.Error("aborted enrollment must not write to the store")
	}
	if src.callCount() != 4 {
		t.Errorf("expected capture to stop at the failing sample, got %d calls", src.callCount())
	}
}

func TestEnrollAbortsOnMultipleFaces(t *testing.T) {
	store := &mockTemplateStore{}
	g := newTestGate(store, 5, Options{SampleCount: 3})

	two := []face.Detection{liveDetection(embeddingAt(0.1)), liveDetection(embeddingAt(0.2))}
	src := &mockSampleProvider{results: []sampleResult{{detections: two}}}

	if _, err := g.Enroll(context.Background(), "alice", src); CodeOf(err) != CodeMultipleFaces {
		t.Fatalf("expected MULTIPLE_FACES, got %v", err)
	}
	if len(store.appends) != 0 {
		t.Error("aborted enrollment must not write to the store")
	}
}

func TestEnrollCaptureError(t *testing.T) {
	store := &mockTemplateStore{}
	g := newTestGate(store, 5, Options{SampleCount: 2})

	src := &mockSampleProvider{results: []sampleResult{{err: errors.New("camera gone")}}}
	if _, err := g.Enroll(context.Background(), "alice", src); CodeOf(err) != CodeCapture {
		t.Fatalf("expected CAPTURE_FAILURE, got %v", err)
	}
}

func TestEnrollStorageFailure(t *testing.T) {
	boom := errors.New("disk full")
	store := &mockTemplateStore{
		AppendFunc: func(ctx context.Context, tpl storage.Template) error { return boom },
	}
	g := newTestGate(store, 5, Options{SampleCount: 2})

	src := &mockSampleProvider{results: []sampleResult{{detections: []face.Detection{liveDetection(embeddingAt(0.1))}}}}

	// A failed write must never surface as a successful enrollment.
	_, err := g.Enroll(context.Background(), "alice", src)
	if CodeOf(err) != CodeStorage {
		t.Fatalf("expected STORAGE_FAILURE, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped cause, got %v", err)
	}
}

func TestEnrollRetentionReplace(t *testing.T) {
	store := &mockTemplateStore{}
	g := newTestGate(store, 5, Options{SampleCount: 2, Retention: RetentionReplace})

	src := &mockSampleProvider{results: []sampleResult{{detections: []face.Detection{liveDetection(embeddingAt(0.1))}}}}
	if _, err := g.Enroll(context.Background(), "alice", src); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(store.replaces) != 1 || len(store.appends) != 0 {
		t.Errorf("replace policy must use Replace: %d replaces, %d appends",
			len(store.replaces), len(store.appends))
	}
}
