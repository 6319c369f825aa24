package server

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/jonathan/interview-coach/internal/feedback"
	"github.com/jonathan/interview-coach/internal/grading"
	"github.com/stretchr/testify/assert"
)

func TestErrNotFound(t *testing.T) {
	err := &ErrNotFound{Resource: "interview", ID: "abc"}
	assert.Equal(t, "interview not found: abc", err.Error())
	assert.Equal(t, http.StatusNotFound, HTTPStatus(err))
}

func TestErrValidation(t *testing.T) {
	err := &ErrValidation{Field: "id", Message: "invalid format"}
	assert.Equal(t, "validation error: id - invalid format", err.Error())
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(err))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{
			name:     "ErrNotFound",
			err:      &ErrNotFound{Resource: "interview", ID: "x"},
			expected: http.StatusNotFound,
		},
		{
			name:     "wrapped interview not found",
			err:      fmt.Errorf("summarize: %w", feedback.ErrInterviewNotFound),
			expected: http.StatusNotFound,
		},
		{
			name:     "ErrValidation",
			err:      &ErrValidation{Field: "job_position", Message: "required"},
			expected: http.StatusBadRequest,
		},
		{
			name:     "no answers",
			err:      feedback.ErrNoAnswers,
			expected: http.StatusConflict,
		},
		{
			name:     "malformed LLM response",
			err:      fmt.Errorf("failed to generate questions: %w", &grading.MalformedResponseError{Operation: "generate questions"}),
			expected: http.StatusBadGateway,
		},
		{
			name:     "Unknown error",
			err:      assert.AnError,
			expected: http.StatusInternalServerError,
		},
		{
			name:     "Nil error",
			err:      nil,
			expected: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, HTTPStatus(tt.err))
		})
	}
}
