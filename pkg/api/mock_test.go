package api

import (
	"context"

	"github.com/nirmaltodwal7/facegate/pkg/face"
	"github.com/nirmaltodwal7/facegate/pkg/storage"
)

type mockDetector struct {
	DetectFunc func(ctx context.Context, frame face.Frame) ([]face.Detection, error)
}

func (m *mockDetector) Detect(ctx context.Context, frame face.Frame) ([]face.Detection, error) {
	if m.DetectFunc != nil {
		return m.DetectFunc(ctx, frame)
	}
	return nil, nil
}

func (m *mockDetector) Close() error { return nil }

type mockTemplateStore struct {
	GetFunc     func(ctx context.Context, userID string) ([]storage.Template, error)
	AppendFunc  func(ctx context.Context, tpl storage.Template) error
	ReplaceFunc func(ctx context.Context, tpl storage.Template) error
	DeleteFunc  func(ctx context.Context, userID string) error
}

func (m *mockTemplateStore) Get(ctx context.Context, userID string) ([]storage.Template, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, userID)
	}
	return nil, storage.ErrUserNotFound
}

func (m *mockTemplateStore) Append(ctx context.Context, tpl storage.Template) error {
	if m.AppendFunc != nil {
		return m.AppendFunc(ctx, tpl)
	}
	return nil
}

func (m *mockTemplateStore) Replace(ctx context.Context, tpl storage.Template) error {
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
