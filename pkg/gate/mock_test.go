package gate

import (
	"context"
	"sync"

	"github.com/nirmaltodwal7/facegate/pkg/face"
	"github.com/nirmaltodwal7/facegate/pkg/storage"
)

type mockTemplateStore struct {
	GetFunc     func(ctx context.Context, userID string) ([]storage.Template, error)
	AppendFunc  func(ctx context.Context, tpl storage.Template) error
	ReplaceFunc func(ctx context.Context, tpl storage.Template) error
	DeleteFunc  func(ctx context.Context, userID string) error

	mu       sync.Mutex
	appends  []storage.Template
	replaces []storage.Template
	gets     int
}

func (m *mockTemplateStore) Get(ctx context.Context, userID string) ([]storage.Template, error) {
	m.mu.Lock()
	m.gets++
	m.mu.Unlock()
	if m.GetFunc != nil {
		return m.GetFunc(ctx, userID)
	}
	return nil, storage.ErrUserNotFound
}

func (m *mockTemplateStore) Append(ctx context.Context, tpl storage.Template) error {
	m.mu.Lock()
	m.appends = append(m.appends, tpl)
	m.mu.Unlock()
	if m.AppendFunc != nil {
		return m.AppendFunc(ctx, tpl)
	}
	return nil
}

func (m *mockTemplateStore) Replace(ctx context.Context, tpl storage.Template) error {
	m.mu.Lock()
	m.replaces = append(m.replaces, tpl)
	m.mu.Unlock()
	if m.ReplaceFunc != nil {
		return m.ReplaceFunc(ctx, tpl)
	}
	return nil
}

func (m *mockTemplateStore) Delete(ctx context.Context, userID string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, userID)
	}
	return nil
}

// mockSampleProvider hands out one queued result per Sample call and
// keeps returning the last one when the queue runs dry.
type mockSampleProvider struct {
	mu      sync.Mutex
	results []sampleResult
	calls   int
}

type sampleResult struct {
	detections []face.Detection
	err        error
}

func (m *mockSampleProvider) Sample(ctx context.Context) ([]face.Detection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.calls
	m.calls++
	if i >= len(m.results) {
		i = len(m.results) - 1
	}
	if i < 0 {
		return nil, nil
	}
	r := m.results[i]
	return r.detections, r.err
}

func (m *mockSampleProvider) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
