package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// BusinessError is a domain rule violation surfaced to the caller as a 400/403
// with a human-readable message.
type BusinessError struct {
	Msg       string
	Forbidden bool
}

func NewBusinessError(msg string) error { return &BusinessError{Msg: msg} }

func NewForbiddenError(msg string) error { return &BusinessError{Msg: msg, Forbidden: true} }

func (err BusinessError) Error() string { return err.Msg }

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
