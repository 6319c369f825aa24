// Package feedback builds the end-of-interview report: an overall rating
// and summary from the LLM plus confidence recomputed over every stored
// answer.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/interview-coach/internal/confidence"
	"github.com/jonathan/interview-coach/internal/db"
	"github.com/jonathan/interview-coach/internal/emotion"
	"github.com/jonathan/interview-coach/internal/types"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrInterviewNotFound is returned when the interview does not exist.
	ErrInterviewNotFound = errors.New("interview not found")
	// ErrNoAnswers is returned when the interview has no recorded answers.
	ErrNoAnswers = errors.New("interview has no recorded answers")
)

// Store is the persistence the report needs.
type Store interface {
	GetInterview(ctx context.Context, id uuid.UUID) (*db.Interview, error)
	ListAnswers(ctx context.Context, interviewID uuid.UUID) ([]db.AnswerRecord, error)
	UpsertOverallFeedback(ctx context.Context, fb *db.OverallFeedback) error
	UpsertConfidenceMetrics(ctx context.Context, interviewID uuid.UUID, m confidence.Metrics) error
}

// Summarizer produces the overall grade.
type Summarizer interface {
	SummarizeInterview(ctx context.Context, answers []types.GradedAnswer) (*types.Grade, error)
}

// Report is the rendered result of an interview.
type Report struct {
	Interview     *db.Interview      `json:"interview"`
	Answers       []db.AnswerRecord  `json:"answers"`
	Overall       db.OverallFeedback `json:"overall"`
	AverageRating float64            `json:"average_rating"`
	Confidence    confidence.Metrics `json:"confidence"`
	Level         confidence.Level   `json:"confidence_level"`
}

// Service builds reports.
type Service struct {
	store      Store
	summarizer Summarizer
	log        logrus.FieldLogger
	now        func() time.Time
}

// NewService creates a report service.
func NewService(store Store, summarizer Summarizer, logger logrus.FieldLogger) *Service {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{
		store:      store,
		summarizer: summarizer,
		log:        logger.WithField("component", "feedback"),
		now:        time.Now,
	}
}

// Summarize grades the interview as a whole, stores the overall feedback
// and the recomputed confidence metrics, and returns the report.
func (s *Service) Summarize(ctx context.Context, interviewID uuid.UUID) (*Report, error) {
	interview, err := s.store.GetInterview(ctx, interviewID)
	if err != nil {
		return nil, fmt.Errorf("failed to load interview: %w", err)
	}
	if interview == nil {
		return nil, ErrInterviewNotFound
	}

	answers, err := s.store.ListAnswers(ctx, interviewID)
	if err != nil {
		return nil, fmt.Errorf("failed to load answers: %w", err)
	}
	if len(answers) == 0 {
		return nil, ErrNoAnswers
	}

	report := &Report{
		Interview:     interview,
		Answers:       answers,
		AverageRating: averageRating(answers),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		grade, err := s.summarizer.SummarizeInterview(gctx, gradedAnswers(answers))
		if err != nil {
			return fmt.Errorf("failed to summarize interview: %w", err)
		}
		report.Overall = db.OverallFeedback{
			InterviewID: interviewID,
			Rating:      grade.Rating,
			Feedback:    grade.Feedback,
			UpdatedAt:   s.now(),
		}
		return s.store.UpsertOverallFeedback(gctx, &report.Overall)
	})
	g.Go(func() error {
		report.Confidence = confidence.Aggregate(HistogramOfAnswers(answers))
		report.Level = confidence.LevelOf(report.Confidence.Percentage)
		if err := s.store.UpsertConfidenceMetrics(gctx, interviewID, report.Confidence); err != nil {
			s.log.WithError(err).Warn("failed to store recomputed confidence")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"interview_id": interviewID,
		"answers":      len(answers),
		"rating":       report.Overall.Rating,
		"confidence":   report.Confidence.Percentage,
	}).Info("interview summarized")
	return report, nil
}

// HistogramOfAnswers counts the stored emotion history of every answer.
// Unknown labels are skipped.
func HistogramOfAnswers(answers []db.AnswerRecord) confidence.Histogram {
	labels := make([]emotion.Label, 0)
	for _, a := range answers {
		for _, raw := range a.EmotionHistory {
			l, err := emotion.ParseLabel(raw)
			if err != nil {
				continue
			}
			labels = append(labels, l)
		}
	}
	return confidence.HistogramOf(labels)
}

func gradedAnswers(answers []db.AnswerRecord) []types.GradedAnswer {
	out := make([]types.GradedAnswer, 0, len(answers))
	for _, a := range answers {
		out = append(out, types.GradedAnswer{
			Question: a.Question,
			Answer:   a.Transcript,
			Grade:    types.Grade{Rating: a.Rating, Feedback: a.Feedback},
		})
	}
	return out
}

func averageRating(answers []db.AnswerRecord) float64 {
	if len(answers) == 0 {
		return 0
	}
	var sum float64
	for _, a := range answers {
		sum += a.Rating
	}
	return math.Round(sum/float64(len(answers))*10) / 10
}
