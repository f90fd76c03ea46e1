package service

import (
	"errors"
	"fmt"
)

// Code classifies service errors for callers such as the HTTP layer.
type Code string

const (
	CodeNotFound     Code = "not_found"
	CodeUnauthorized Code = "unauthorized"
	CodeValidation   Code = "validation_error"
	CodeCrypto       Code = "crypto_error"
	CodeIO           Code = "io_error"
	CodeInternal     Code = "internal"
)

// Sentinels matched by errors.Is against any *Error of the same code.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrValidation   = errors.New("validation failed")
	ErrCrypto       = errors.New("signing failed")
	ErrIO           = errors.New("storage failed")
	ErrInternal     = errors.New("internal error")
)

var codeSentinels = map[Code]error{
	CodeNotFound:     ErrNotFound,
	CodeUnauthorized: ErrUnauthorized,
	CodeValidation:   ErrValidation,
	CodeCrypto:       ErrCrypto,
	CodeIO:           ErrIO,
	CodeInternal:     ErrInternal,
}

// Error is the only error type returned by Service operations.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel of e's code.
func (e *Error) Is(target error) bool {
	return codeSentinels[e.Code] == target
}

func newError(code Code, msg string, err error) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}

// CodeOf returns the code of err, or CodeInternal for foreign errors.
func CodeOf(err error) Code {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return CodeInternal
}
