// Package types provides type definitions shared across the interview-coach system.
//
//nolint:revive // types is a standard Go package name pattern
package types

// Question is one interview question with its reference answer. The JSON
// field names match the generated question documents stored with each
// interview.
type Question struct {
	Text            string   `json:"question" validate:"required"`
	ReferenceAnswer string   `json:"answer"`
	Hints           []string `json:"hints,omitempty"`
}

// Grade is a rating out of 10 with free-text feedback.
type Grade struct {
	Rating   float64 `json:"rating"`
	Feedback string  `json:"feedback"`
}

// GradedAnswer pairs a question with the grade its answer received.
type GradedAnswer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Grade
}

// MaxRating is the top of the rating scale.
const MaxRating = 10.0
