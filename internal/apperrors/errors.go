// Package apperrors holds the HTTP-facing error taxonomy and the single place
// where errors are turned into responses.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is an error that knows the status code it should be reported with.
type Error struct {
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func newError(status int, msg string, err error) *Error {
	return &Error{Status: status, Message: msg, Err: err}
}

func NotLoggedIn() *Error {
	return newError(http.StatusUnauthorized, "You must be logged in to perform this action", nil)
}

func UnauthorizedUser(msg string) *Error {
	if msg == "" {
		msg = "You are not authorized to perform this action"
	}
	return newError(http.StatusForbidden, msg, nil)
}

func NotFound(msg string) *Error {
	if msg == "" {
		msg = "Resource not found"
	}
	return newError(http.StatusNotFound, msg, nil)
}

func Validation(msg string, err error) *Error {
	return newError(http.StatusBadRequest, msg, err)
}

func Conflict(msg string) *Error {
	return newError(http.StatusConflict, msg, nil)
}

func Internal(msg string, err error) *Error {
	if msg == "" {
		msg = "Internal server error"
	}
	return newError(http.StatusInternalServerError, msg, err)
}

// StatusOf reports the status code err carries, or 500.
func StatusOf(err error) int {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Status != 0 {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

// MessageOf reports the client-facing message for err.
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
