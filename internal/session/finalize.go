package session

import (
	"fmt"
	"time"

	"github.com/jonathan/interview-coach/internal/confidence"
	"github.com/jonathan/interview-coach/internal/db"
	"github.com/jonathan/interview-coach/internal/emotion"
	"github.com/jonathan/interview-coach/internal/types"
	"github.com/sirupsen/logrus"
)

type outcome int

const (
	outcomeNothingToSubmit outcome = iota
	outcomeFailed
	outcomeRecorded
)

type finalizeJob struct {
	index    int
	question types.Question
	expired  bool
	// histogram is a copy of the interview histogram before this question.
	histogram confidence.Histogram
}

type finalizeResult struct {
	outcome   outcome
	err       error
	record    *db.AnswerRecord
	metrics   confidence.Metrics
	histogram confidence.Histogram
}

// finalize stops capture, grades and persists the answer. It runs off the
// loop goroutine and must not touch loop-owned fields.
func (c *Controller) finalize(job finalizeJob) finalizeResult {
	log := c.log.WithField("index", job.index)

	captured := c.deps.Capture.Stop(c.ctx)
	samples := c.deps.Sampler.Stop()

	if captured.NoInput && !job.expired {
		log.Info("no answer captured")
		return finalizeResult{outcome: outcomeNothingToSubmit}
	}

	grade, err := c.deps.Grader.GradeAnswer(c.ctx, job.question, captured.Text)
	if err != nil {
		return finalizeResult{outcome: outcomeFailed, err: fmt.Errorf("failed to grade answer: %w", err)}
	}

	labels := make([]emotion.Label, 0, len(samples))
	for _, s := range samples {
		labels = append(labels, s.Label)
	}

	rec := &db.AnswerRecord{
		InterviewID:     c.cfg.InterviewID,
		Question:        job.question.Text,
		ReferenceAnswer: job.question.ReferenceAnswer,
		Transcript:      captured.Text,
		Rating:          grade.Rating,
		Feedback:        grade.Feedback,
		UserEmail:       c.cfg.UserEmail,
		EmotionHistory:  emotion.Strings(labels),
		CreatedAt:       time.Now(),
	}
	if err := c.persist(log, rec); err != nil {
		return finalizeResult{outcome: outcomeFailed, err: err}
	}

	histogram := confidence.Merge(job.histogram, confidence.HistogramOf(labels))
	metrics := confidence.Aggregate(histogram)
	if err := c.deps.Store.UpsertConfidenceMetrics(c.ctx, c.cfg.InterviewID, metrics); err != nil {
		log.WithError(err).Warn("failed to update confidence metrics")
	}

	if c.deps.Checkpoints != nil {
		if err := c.deps.Checkpoints.Clear(c.ctx, c.cfg.InterviewID.String()); err != nil {
			log.WithError(err).Debug("checkpoint not cleared")
		}
	}

	log.WithFields(logrus.Fields{
		"rating":   rec.Rating,
		"emotions": len(labels),
		"expired":  job.expired,
	}).Info("answer recorded")

	return finalizeResult{
		outcome:   outcomeRecorded,
		record:    rec,
		metrics:   metrics,
		histogram: histogram,
	}
}

// persist writes rec, falling back to a write without the emotion history
// when the first attempt fails.
func (c *Controller) persist(log logrus.FieldLogger, rec *db.AnswerRecord) error {
	err := c.deps.Store.InsertAnswer(c.ctx, rec, true)
	if err == nil {
		return nil
	}
	if c.ctx.Err() != nil {
		return fmt.Errorf("failed to save answer: %w", err)
	}

	log.WithError(err).
		WithField("schema_mismatch", db.IsUndefinedColumn(err)).
		Warn("answer write failed, retrying without emotion history")

	if err := c.deps.Store.InsertAnswer(c.ctx, rec, false); err != nil {
		return fmt.Errorf("failed to save answer: %w", err)
	}
	rec.EmotionHistory = nil
	return nil
}
