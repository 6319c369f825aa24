package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/interview-coach/internal/feedback"
	"github.com/jonathan/interview-coach/internal/grading"
)

// ErrNotFound indicates a missing resource
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		notFound  *ErrNotFound
		invalid   *ErrValidation
		fieldErrs validator.ValidationErrors
		malformed *grading.MalformedResponseError
	)
	switch {
	case errors.As(err, &notFound), errors.Is(err, feedback.ErrInterviewNotFound):
		return http.StatusNotFound
	case errors.As(err, &invalid), errors.As(err, &fieldErrs):
		return http.StatusBadRequest
	case errors.Is(err, feedback.ErrNoAnswers):
		return http.StatusConflict
	case errors.As(err, &malformed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
