package quota

import "context"

type mockCounterStore struct {
	GetFunc    func(ctx context.Context, userID string) (Counter, error)
	SetFunc    func(ctx context.Context, userID string, c Counter) error
	DeleteFunc func(ctx context.Context, userID string) error
}

func (m *mockCounterStore) Get(ctx context.Context, userID string) (Counter, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, userID)
	}
	return Counter{}, ErrNoCounter
}

func (m *mockCounterStore) Set(ctx context.Context, userID string, c Counter) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, userID, c)
	}
	return nil
}

func (m *mockCounterStore) Delete(ctx context.Context, userID string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, userID)
	}
	return nil
}
