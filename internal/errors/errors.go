package errors

import (
	"errors"
	"fmt"
)

type Code int

const (
	CodeInternal Code = iota + 1
	// CodeRejected means the server answered with a non-success status. The message is the response body.
	CodeRejected
	// CodeUnavailable means the server could not be reached.
	CodeUnavailable
	CodeInvalidPayload
	CodeUnauthenticated
)

var codeNames = map[Code]string{
	CodeInternal:        "Internal",
	CodeRejected:        "Rejected",
	CodeUnavailable:     "Unavailable",
	CodeInvalidPayload:  "InvalidPayload",
	CodeUnauthenticated: "Unauthenticated",
}

func (c Code) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}

	return fmt.Sprintf("Code(%d)", int(c))
}

type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	// Status is the HTTP status of a rejected request.
	Status int `json:"status,omitempty"`
	err    error
}

func New(code Code, opts ...Option) *Error {
	e := &Error{
		Code:    code,
		Message: code.String(),
	}

	for _, opt := range opts {
		opt.apply(e)
	}

	return e
}

func (e *Error) Error() string {
	s := fmt.Sprintf("code: %s, message: %s", e.Code, e.Message)
	if e.Status != 0 {
		s += fmt.Sprintf(", status: %d", e.Status)
	}
	if e.err != nil {
		s += fmt.Sprintf(", err: %s", e.err)
	}

	return s
}

func (e *Error) Unwrap() error {
	return e.err
}

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}

	return t.Code == e.Code
}

func Convert(err error) *Error {
	var e *Error
	if !errors.As(err, &e) {
		return Internal(err)
	}

	return e
}

func Internal(err error) *Error {
	return New(CodeInternal, WithCause(err))
}

// Rejected builds the error for a request the server answered with a non-success status.
func Rejected(status int, body string) *Error {
	return New(CodeRejected, WithStatus(status), WithMessagef("%s", body))
}

type Option interface {
	apply(*Error)
}

type optionFunc func(*Error)

func (f optionFunc) apply(e *Error) {
	f(e)
}

func WithCause(err error) Option {
	return optionFunc(func(e *Error) {
		e.err = err
	})
}

func WithMessagef(format string, args ...any) Option {
	return optionFunc(func(e *Error) {
		e.Message = fmt.Sprintf(format, args...)
	})
}

func WithStatus(status int) Option {
	return optionFunc(func(e *Error) {
		e.Status = status
	})
}
