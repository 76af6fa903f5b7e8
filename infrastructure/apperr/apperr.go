// Package apperr defines the error classes domain services return and handlers translate.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrConflict          = errors.New("conflict")
	ErrValidation        = errors.New("validation failed")
)

type validationError struct {
	msg string
}

func (e *validationError) Error() string { return e.msg }

func (e *validationError) Unwrap() error { return ErrValidation }

// Validation returns an error whose message is safe to show to the user.
func Validation(format string, args ...any) error {
	return &validationError{msg: fmt.Sprintf(format, args...)}
}

// Transition reports a refused state change from → action.
func Transition(entity, from, action string) error {
	return fmt.Errorf("%w: %s is %s, cannot %s", ErrInvalidTransition, entity, from, action)
}

// HTTPStatus maps an error class onto a response code.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// UserMessage returns err's text for known classes and a generic fallback otherwise.
func UserMessage(err error, fallback string) string {
	if HTTPStatus(err) == http.StatusInternalServerError {
		return fallback
	}
	return err.Error()
}
