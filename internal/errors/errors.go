// Package errors implements the core's error taxonomy: a closed set of
// kinds the object store, index, commit engine, and history machinery can
// fail with, plus the HTTP status each maps to for the peripheral API
// surface. The core package never imports net/http itself.
package errors

import "net/http"

// Kind is one of the taxonomy's closed set of error kinds.
type Kind string

const (
	KindInvalidInput   Kind = "INVALID_INPUT"
	KindNotFound       Kind = "NOT_FOUND"
	KindEmpty          Kind = "EMPTY"
	KindCorruptObject  Kind = "CORRUPT_OBJECT"
	KindCorruptCommit  Kind = "CORRUPT_COMMIT"
	KindIoFailure      Kind = "IO_FAILURE"
	KindLockContention Kind = "LOCK_CONTENTION"
)

// Error is the core's single error type, carrying a Kind, a message, and
// optional structured details.
type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

// Is lets errors.Is(err, target) match when target is an *Error with the
// same Kind, whatever its message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func WithDetails(kind Kind, message string, details any) *Error {
	return &Error{Kind: kind, Message: message, Details: details}
}

func InvalidInput(message string) *Error   { return New(KindInvalidInput, message) }
func NotFound(message string) *Error       { return New(KindNotFound, message) }
func Empty(message string) *Error          { return New(KindEmpty, message) }
func CorruptObject(message string) *Error  { return New(KindCorruptObject, message) }
func CorruptCommit(message string) *Error  { return New(KindCorruptCommit, message) }
func IoFailure(message string) *Error      { return New(KindIoFailure, message) }

// HTTPStatus maps a Kind to the status code the peripheral HTTP surface
// should respond with.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindEmpty:
		return http.StatusConflict
	case KindCorruptObject, KindCorruptCommit:
		return http.StatusUnprocessableEntity
	case KindIoFailure:
		return http.StatusInternalServerError
	case KindLockContention:
		return http.StatusLocked
	default:
		return http.StatusInternalServerError
	}
}

// KindOf extracts the Kind of err if it (or something it wraps) is an
// *Error, and ok=false otherwise.
func KindOf(err error) (Kind, bool) {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Kind, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return "", false
		}
		err = u.Unwrap()
	}
	return "", false
}
