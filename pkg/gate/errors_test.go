package gate

import (
	"errors"
	"fmt"
	"testing"
)

func TestCodeOf(t *testing.T) {
	err := newError(CodeNoFace, true)
	if CodeOf(err) != CodeNoFace {
		t.Errorf("expected NO_FACE, got %s", CodeOf(err))
	}

	wrapped := fmt.Errorf("handler: %w", err)
	if CodeOf(wrapped) != CodeNoFace {
		t.Errorf("expected NO_FACE through wrapping, got %s", CodeOf(wrapped))
	}

	if CodeOf(errors.New("plain")) != "" {
		t.Error("expected empty code for foreign errors")
	}
	if CodeOf(nil) != "" {
		t.Error("expected empty code for nil")
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := wrapError(CodeStorage, true, cause)

	if !errors.Is(err, cause) {
		t.Error("expected wrapped cause to be reachable via errors.Is")
	}
	if err.Error() == cause.Error() {
		t.Error("expected the user-facing message to prefix the cause")
	}
}

func TestErrorMessages(t *testing.T) {
	codes := []ErrorCode{
		CodeNoFace, CodeMultipleFaces, CodeLivenessFailed,
		CodeQuotaExceeded, CodeNotEnrolled, CodeStorage, CodeCapture,
	}
	for _, code := range codes {
		if errorMessages[code] == "" {
			t.Errorf("code %s has no user-facing message", code)
		}
	}
}
