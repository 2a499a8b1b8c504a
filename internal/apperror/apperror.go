package apperror

import (
	"errors"
	"net/http"
)

type Code string

const (
	BadRequest   Code = "BAD_REQUEST"
	InvalidRange Code = "INVALID_RANGE"
	NotFound     Code = "NOT_FOUND"
	Conflict     Code = "CONFLICT"
	Storage      Code = "STORAGE"
	Internal     Code = "INTERNAL"
)

type AppError struct {
	code    Code
	message string
	err     error
}

func New(code Code, message string) *AppError {
	return &AppError{code: code, message: message}
}

// Wrap attaches a code and a client-facing message to an underlying error.
// The cause stays reachable through errors.Is / errors.As.
func Wrap(code Code, message string, err error) *AppError {
	return &AppError{code: code, message: message, err: err}
}

func (e *AppError) Error() string {
	if e.err != nil {
		return e.message + ": " + e.err.Error()
	}
	return e.message
}

func (e *AppError) Unwrap() error   { return e.err }
func (e *AppError) Code() Code      { return e.code }
func (e *AppError) Message() string { return e.message }

func (e *AppError) HTTPStatus() int {
	switch e.code {
	case BadRequest, InvalidRange:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// As returns the first *AppError in err's chain.
func As(err error) (*AppError, bool) {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// Is reports whether err carries an *AppError with the given code.
func Is(err error, code Code) bool {
	ae, ok := As(err)
	return ok && ae.code == code
}
