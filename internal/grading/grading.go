// Package grading asks the LLM to generate interview questions, grade single
// answers and summarize whole interviews.
package grading

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/interview-coach/internal/llm"
	"github.com/jonathan/interview-coach/internal/prompts"
	"github.com/jonathan/interview-coach/internal/schemas"
	"github.com/jonathan/interview-coach/internal/types"
	rootschemas "github.com/jonathan/interview-coach/schemas"
	"github.com/sirupsen/logrus"
)

// QuestionRequest describes the role an interview is generated for.
type QuestionRequest struct {
	JobPosition     string `json:"job_position" validate:"required"`
	JobDescription  string `json:"job_description" validate:"required"`
	YearsExperience int    `json:"years_experience" validate:"gte=0,lte=60"`
	Count           int    `json:"count" validate:"gte=1,lte=20"`
}

// Service wraps an llm.Client with the interview prompts.
type Service struct {
	client   llm.Client
	log      logrus.FieldLogger
	validate *validator.Validate
}

// NewService creates a grading service.
func NewService(client llm.Client, logger logrus.FieldLogger) *Service {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{
		client:   client,
		log:      logger.WithField("component", "grading"),
		validate: validator.New(),
	}
}

type gradeResponse struct {
	Rating   json.RawMessage `json:"rating"`
	Feedback string          `json:"feedback"`
}

// GradeAnswer rates transcript as an answer to q. An empty transcript is
// graded as given.
func (s *Service) GradeAnswer(ctx context.Context, q types.Question, transcript string) (*types.Grade, error) {
	prompt, err := prompts.Render(prompts.InterviewFile, prompts.KeyGradeAnswer, map[string]string{
		"Question":        q.Text,
		"ReferenceAnswer": q.ReferenceAnswer,
		"Answer":          transcript,
	})
	if err != nil {
		return nil, err
	}

	raw, err := s.client.GenerateJSON(ctx, prompt, llm.TierStandard)
	if err != nil {
		return nil, fmt.Errorf("LLM generation failed: %w", err)
	}

	grade, err := parseGrade("grade answer", raw)
	if err != nil {
		return nil, err
	}
	s.log.WithField("rating", grade.Rating).Debug("answer graded")
	return grade, nil
}

// GenerateQuestions produces exactly req.Count questions for the role.
func (s *Service) GenerateQuestions(ctx context.Context, req QuestionRequest) ([]types.Question, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid question request: %w", err)
	}

	prompt, err := prompts.Render(prompts.InterviewFile, prompts.KeyGenerateQuestions, map[string]string{
		"JobPosition":    req.JobPosition,
		"JobDescription": req.JobDescription,
		"JobExperience":  strconv.Itoa(req.YearsExperience),
		"Count":          strconv.Itoa(req.Count),
	})
	if err != nil {
		return nil, err
	}

	raw, err := s.client.GenerateJSON(ctx, prompt, llm.TierStandard)
	if err != nil {
		return nil, fmt.Errorf("LLM generation failed: %w", err)
	}
	content := llm.CleanJSONBlock(raw)

	if err := schemas.ValidateJSONString(rootschemas.InterviewQuestions, content); err != nil {
		return nil, &MalformedResponseError{Operation: "generate questions", Content: content, Cause: err}
	}

	var questions []types.Question
	if err := json.Unmarshal([]byte(content), &questions); err != nil {
		return nil, &MalformedResponseError{Operation: "generate questions", Content: content, Cause: err}
	}
	for i, q := range questions {
		if strings.TrimSpace(q.Text) == "" || strings.TrimSpace(q.ReferenceAnswer) == "" {
			return nil, &MalformedResponseError{
				Operation: "generate questions",
				Content:   content,
				Cause:     fmt.Errorf("question %d has an empty question or answer", i+1),
			}
		}
	}
	if len(questions) != req.Count {
		return nil, &MalformedResponseError{
			Operation: "generate questions",
			Content:   content,
			Cause:     fmt.Errorf("expected %d questions, got %d", req.Count, len(questions)),
		}
	}

	s.log.WithFields(logrus.Fields{
		"position": req.JobPosition,
		"count":    len(questions),
	}).Info("interview questions generated")
	return questions, nil
}

// SummarizeInterview asks for an overall rating and a short summary across
// all graded answers.
func (s *Service) SummarizeInterview(ctx context.Context, answers []types.GradedAnswer) (*types.Grade, error) {
	if len(answers) == 0 {
		return nil, fmt.Errorf("no answers to summarize")
	}

	var sb strings.Builder
	for i, a := range answers {
		fmt.Fprintf(&sb, "%d. Question: %s\n   Rating: %s/10\n   Feedback: %s\n",
			i+1, a.Question, formatRating(a.Rating), strings.TrimSpace(a.Feedback))
	}

	prompt, err := prompts.Render(prompts.InterviewFile, prompts.KeyOverallFeedback, map[string]string{
		"Answers": sb.String(),
	})
	if err != nil {
		return nil, err
	}

	raw, err := s.client.GenerateJSON(ctx, prompt, llm.TierAdvanced)
	if err != nil {
		return nil, fmt.Errorf("LLM generation failed: %w", err)
	}
	return parseGrade("overall feedback", raw)
}

func parseGrade(operation, raw string) (*types.Grade, error) {
	content := llm.CleanJSONBlock(raw)

	if err := schemas.ValidateJSONString(rootschemas.AnswerFeedback, content); err != nil {
		return nil, &MalformedResponseError{Operation: operation, Content: content, Cause: err}
	}

	var resp gradeResponse
	if err := json.Unmarshal([]byte(content), &resp); err != nil {
		return nil, &MalformedResponseError{Operation: operation, Content: content, Cause: err}
	}

	rating, err := ParseRating(resp.Rating)
	if err != nil {
		return nil, &MalformedResponseError{Operation: operation, Content: content, Cause: err}
	}

	return &types.Grade{Rating: rating, Feedback: strings.TrimSpace(resp.Feedback)}, nil
}

// ParseRating accepts a JSON number or a numeric string such as "7" or
// "7/10" and clamps the result to [0, 10].
func ParseRating(raw json.RawMessage) (float64, error) {
	var number float64
	if err := json.Unmarshal(raw, &number); err == nil {
		return clampRating(number), nil
	}

	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return 0, fmt.Errorf("rating is neither a number nor a string: %s", string(raw))
	}
	text = strings.TrimSpace(text)
	if idx := strings.Index(text, "/"); idx >= 0 {
		text = strings.TrimSpace(text[:idx])
	}
	number, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("rating %q is not numeric", text)
	}
	return clampRating(number), nil
}

func clampRating(r float64) float64 {
	return min(types.MaxRating, max(0, r))
}

func formatRating(r float64) string {
	return strconv.FormatFloat(r, 'f', -1, 64)
}
