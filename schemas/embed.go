// Package schemas embeds the JSON Schemas that LLM output is checked against.
package schemas

import _ "embed"

// InterviewQuestions describes a generated question list.
//
//go:embed interview_questions.schema.json
var InterviewQuestions string

// AnswerFeedback describes a rating/feedback object.
//
//go:embed answer_feedback.schema.json
var AnswerFeedback string
