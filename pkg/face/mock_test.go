package face

import (
	goface "github.com/Kagami/go-face"
)

type mockDlibEngine struct {
	RecognizeFunc func(data []byte) ([]goface.Face, error)
	CloseFunc     func()
}

func (m *mockDlibEngine) Recognize(data []byte) ([]goface.Face, error) {
	if m.RecognizeFunc != nil {
		return m.RecognizeFunc(data)
	}
	return nil, nil
}

func (m *mockDlibEngine) Close() {
	if m.CloseFunc != nil {
		m.CloseFunc()
	}
}
