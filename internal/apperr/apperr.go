package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds returned by the service layer
var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation failed")
	ErrForbidden         = errors.New("forbidden")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrConflict          = errors.New("conflict")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidState      = errors.New("invalid state")
)

// GenericMessage is what callers see for errors that are not one of the kinds above
const GenericMessage = "An unexpected error occurred"

// Error pairs a kind with a message safe to show to the caller
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, format string, args ...interface{}) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NotFound builds an ErrNotFound error
func NotFound(format string, args ...interface{}) error {
	return newError(ErrNotFound, format, args...)
}

// Validation builds an ErrValidation error
func Validation(format string, args ...interface{}) error {
	return newError(ErrValidation, format, args...)
}

// Forbidden builds an ErrForbidden error
func Forbidden(format string, args ...interface{}) error {
	return newError(ErrForbidden, format, args...)
}

// Unauthorized builds an ErrUnauthorized error
func Unauthorized(format string, args ...interface{}) error {
	return newError(ErrUnauthorized, format, args...)
}

// Conflict builds an ErrConflict error
func Conflict(format string, args ...interface{}) error {
	return newError(ErrConflict, format, args...)
}

// InsufficientStock builds an ErrInsufficientStock error
func InsufficientStock(format string, args ...interface{}) error {
	return newError(ErrInsufficientStock, format, args...)
}

// InvalidState builds an ErrInvalidState error
func InvalidState(format string, args ...interface{}) error {
	return newError(ErrInvalidState, format, args...)
}

// HTTPStatus maps an error to the status code a handler should answer with
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrConflict), errors.Is(err, ErrInsufficientStock), errors.Is(err, ErrInvalidState):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message to expose for err. Unclassified errors
// collapse to GenericMessage so internals never leak.
func PublicMessage(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return GenericMessage
}
