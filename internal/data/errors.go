package data

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorKind int

const (
	KindUnexpected ErrorKind = iota
	KindValidation
	KindNotFound
)

func (k ErrorKind) String() string {
	switch k {
	default:
		return "unexpected store error"
	case KindValidation:
		return "validation error"
	case KindNotFound:
		return "not found"
	}
}

var (
	ErrValidation = &Error{Kind: KindValidation}
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrUnexpected = &Error{Kind: KindUnexpected}
)

// Error is the error taxonomy surfaced by stores and logic; the kind decides
// the http status and whether the error is logged as a fault.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	message := e.Message
	if message == "" {
		message = e.Kind.String()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", message, e.Err)
	}
	return message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

func NewValidationError(format string, v ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, v...)}
}

func NewNotFoundError(id string) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("employee not found: %s", id)}
}

func NewUnexpectedError(err error) error {
	var e *Error

	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: KindUnexpected, Message: "unexpected store error", Err: err}
}

// StatusCode maps an error onto its http status.
func StatusCode(err error) int {
	switch {
	default:
		return http.StatusInternalServerError
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	}
}

// ErrorFromStatus rebuilds a typed error from an http status and message.
func ErrorFromStatus(statusCode int, message string) error {
	switch statusCode {
	default:
		return &Error{Kind: KindUnexpected, Message: message}
	case http.StatusBadRequest:
		return &Error{Kind: KindValidation, Message: message}
	case http.StatusNotFound:
		return &Error{Kind: KindNotFound, Message: message}
	}
}
