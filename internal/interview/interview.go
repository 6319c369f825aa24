// Package interview creates new mock interviews from a role description.
package interview

import (
	"context"
	"fmt"

	"github.com/jonathan/interview-coach/internal/db"
	"github.com/jonathan/interview-coach/internal/grading"
	"github.com/jonathan/interview-coach/internal/types"
	"github.com/sirupsen/logrus"
)

// DefaultQuestionCount is used when a request does not name a count.
const DefaultQuestionCount = 5

// Generator produces interview questions.
type Generator interface {
	GenerateQuestions(ctx context.Context, req grading.QuestionRequest) ([]types.Question, error)
}

// Store persists interviews.
type Store interface {
	CreateInterview(ctx context.Context, in *db.Interview) (*db.Interview, error)
}

// Creator generates and stores interviews.
type Creator struct {
	gen   Generator
	store Store
	log   logrus.FieldLogger
}

// NewCreator returns a Creator.
func NewCreator(gen Generator, store Store, logger logrus.FieldLogger) *Creator {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Creator{gen: gen, store: store, log: logger.WithField("component", "interview")}
}

// Create generates questions for req and stores them as a new interview
// owned by createdBy. Nothing is stored when generation fails.
func (c *Creator) Create(ctx context.Context, req grading.QuestionRequest, createdBy string) (*db.Interview, error) {
	if req.Count == 0 {
		req.Count = DefaultQuestionCount
	}

	questions, err := c.gen.GenerateQuestions(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to generate questions: %w", err)
	}

	created, err := c.store.CreateInterview(ctx, &db.Interview{
		JobPosition:     req.JobPosition,
		JobDescription:  req.JobDescription,
		YearsExperience: req.YearsExperience,
		Questions:       questions,
		CreatedBy:       createdBy,
	})
	if err != nil {
		return nil, err
	}

	c.log.WithFields(logrus.Fields{
		"interview_id": created.ID,
		"questions":    len(questions),
	}).Info("interview created")
	return created, nil
}
