package schemas_test

import (
	"encoding/json"
	"testing"

	"github.com/jonathan/interview-coach/internal/schemas"
	rootschemas "github.com/jonathan/interview-coach/schemas"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedSchemas_ValidJSON(t *testing.T) {
	for name, content := range map[string]string{
		"interview_questions": rootschemas.InterviewQuestions,
		"answer_feedback":     rootschemas.AnswerFeedback,
	} {
		t.Run(name, func(t *testing.T) {
			var v map[string]any
			require.NoError(t, json.Unmarshal([]byte(content), &v))
			assert.Contains(t, v, "$schema")
			assert.Contains(t, v, "type")
		})
	}
}

func TestInterviewQuestions(t *testing.T) {
	valid := `[{"question":"What is a goroutine?","answer":"A lightweight thread","hints":["runtime"]}]`
	assert.NoError(t, schemas.ValidateJSONString(rootschemas.InterviewQuestions, valid))

	for name, doc := range map[string]string{
		"empty list":       `[]`,
		"missing answer":   `[{"question":"q"}]`,
		"empty question":   `[{"question":"","answer":"a"}]`,
		"empty answer":     `[{"question":"q","answer":""}]`,
		"blank question":   `[{"question":"   ","answer":"a"}]`,
		"blank answer":     `[{"question":"q","answer":"  "}]`,
		"object not array": `{"question":"q","answer":"a"}`,
	} {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, schemas.ValidateJSONString(rootschemas.InterviewQuestions, doc))
		})
	}
}

func TestAnswerFeedback(t *testing.T) {
	assert.NoError(t, schemas.ValidateJSONString(rootschemas.AnswerFeedback, `{"rating":7,"feedback":"ok"}`))
	assert.NoError(t, schemas.ValidateJSONString(rootschemas.AnswerFeedback, `{"rating":"7/10","feedback":"ok"}`))
	assert.Error(t, schemas.ValidateJSONString(rootschemas.AnswerFeedback, `{"feedback":"ok"}`))
	assert.Error(t, schemas.ValidateJSONString(rootschemas.AnswerFeedback, `{"rating":true,"feedback":"ok"}`))
}
