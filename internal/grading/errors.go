package grading

import "fmt"

// MalformedResponseError is returned when the LLM output cannot be parsed
// into the expected shape. Nothing derived from it should be persisted.
type MalformedResponseError struct {
	Operation string
	Content   string
	Cause     error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed LLM response for %s: %v (content: %s)", e.Operation, e.Cause, truncate(e.Content, 200))
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Cause
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
