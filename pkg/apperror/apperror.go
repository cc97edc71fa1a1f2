package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers (HTTP status, retry decisions).
type Kind string

const (
	KindValidation     Kind = "validation"
	KindNotFound       Kind = "not_found"
	KindInvalidState   Kind = "invalid_state"
	KindConflict       Kind = "conflict"
	KindAuthorization  Kind = "authorization"
	KindAuthentication Kind = "authentication"
	KindProvider       Kind = "provider"
	KindInternal       Kind = "internal"
)

// CodeScheduling marks validation failures caused by the booking time window.
const CodeScheduling = "scheduling"

type Error struct {
	Kind    Kind
	Code    string
	Message string
	Fields  map[string]string
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

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Validation(message string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: message, Fields: fields}
}

func Scheduling(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Code: CodeScheduling, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return New(KindNotFound, format, args...)
}

func InvalidState(format string, args ...any) *Error {
	return New(KindInvalidState, format, args...)
}

func Conflict(format string, args ...any) *Error {
	return New(KindConflict, format, args...)
}

func Unauthorized(format string, args ...any) *Error {
	return New(KindAuthorization, format, args...)
}

func Unauthenticated(format string, args ...any) *Error {
	return New(KindAuthentication, format, args...)
}

// Provider wraps a payment gateway failure.
func Provider(err error, format string, args ...any) *Error {
	return &Error{Kind: KindProvider, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf reports the kind of err; anything that is not an *Error is internal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
