package gate

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a specific gate failure kind. Codes are part of
// the API surface; the dashboard maps them to user-facing behavior.
type ErrorCode string

const (
	CodeNoFace         ErrorCode = "NO_FACE"
	CodeMultipleFaces  ErrorCode = "MULTIPLE_FACES"
	CodeLivenessFailed ErrorCode = "LIVENESS_FAILED"
	CodeQuotaExceeded  ErrorCode = "QUOTA_EXCEEDED"
	CodeNotEnrolled    ErrorCode = "NOT_ENROLLED"
	CodeStorage        ErrorCode = "STORAGE_FAILURE"
	CodeCapture        ErrorCode = "CAPTURE_FAILURE"
)

// User-facing messages per code.
var errorMessages = map[ErrorCode]string{
	CodeNoFace:         "No face detected. Please position your face in front of the camera",
	CodeMultipleFaces:  "Multiple faces detected. Please ensure only you are in frame",
	CodeLivenessFailed: "Liveness check failed. Please look at the camera with open eyes and try again",
	CodeQuotaExceeded:  "Daily verification limit reached. Please try again tomorrow",
	CodeNotEnrolled:    "No face enrolled for this account",
	CodeStorage:        "Could not access face data. Please try again later",
	CodeCapture:        "Camera capture failed. Please check your camera and try again",
}

// Error is a typed gate failure. Every failure is scoped to one attempt;
// nothing here is fatal to the process.
type Error struct {
	Code    ErrorCode
	Message string
	Retry   bool
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// newError creates a gate error with the standard message for its code.
func newError(code ErrorCode, retry bool) *Error {
	return &Error{Code: code, Message: errorMessages[code], Retry: retry}
}

// wrapError attaches an underlying cause to a gate error.
func wrapError(code ErrorCode, retry bool, err error) *Error {
	return &Error{Code: code, Message: errorMessages[code], Retry: retry, Err: err}
}

// CodeOf extracts the gate error code, or "" for foreign errors.
func CodeOf(err error) ErrorCode {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Code
	}
	return ""
}
