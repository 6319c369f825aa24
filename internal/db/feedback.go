package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonathan/interview-coach/internal/confidence"
	"github.com/jonathan/interview-coach/internal/emotion"
)

// UpsertConfidenceMetrics writes the interview's confidence metrics,
// replacing any previous row.
func (db *DB) UpsertConfidenceMetrics(ctx context.Context, interviewID uuid.UUID, m confidence.Metrics) error {
	countsJSON, err := json.Marshal(countsToStrings(m.Histogram))
	if err != nil {
		return fmt.Errorf("failed to marshal emotion counts: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO confidence_metrics (mock_id_ref, emotion_counts, confidence_score, confidence_percentage)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (mock_id_ref) DO UPDATE SET
		   emotion_counts = EXCLUDED.emotion_counts,
		   confidence_score = EXCLUDED.confidence_score,
		   confidence_percentage = EXCLUDED.confidence_percentage,
		   updated_at = NOW()`,
		interviewID, countsJSON, m.Score, m.Percentage,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert confidence metrics: %w", err)
	}
	return nil
}

// GetConfidenceMetrics returns the stored metrics, or nil when none exist.
func (db *DB) GetConfidenceMetrics(ctx context.Context, interviewID uuid.UUID) (*ConfidenceRecord, error) {
	rec := ConfidenceRecord{InterviewID: interviewID}
	var countsJSON []byte
	err := db.pool.QueryRow(ctx,
		`SELECT emotion_counts, confidence_score, confidence_percentage, updated_at
		 FROM confidence_metrics WHERE mock_id_ref = $1`,
		interviewID,
	).Scan(&countsJSON, &rec.Score, &rec.Percentage, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get confidence metrics: %w", err)
	}

	var counts map[string]int
	if err := json.Unmarshal(countsJSON, &counts); err != nil {
		return nil, fmt.Errorf("failed to decode emotion counts: %w", err)
	}
	rec.Histogram = make(confidence.Histogram, len(counts))
	for label, n := range counts {
		rec.Histogram[emotion.Label(label)] = n
	}
	return &rec, nil
}

// UpsertOverallFeedback writes the interview summary, replacing any
// previous one.
func (db *DB) UpsertOverallFeedback(ctx context.Context, fb *OverallFeedback) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO overall_feedback (mock_id_ref, rating, feedback)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (mock_id_ref) DO UPDATE SET
		   rating = EXCLUDED.rating,
		   feedback = EXCLUDED.feedback,
		   updated_at = NOW()`,
		fb.InterviewID, fb.Rating, fb.Feedback,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert overall feedback: %w", err)
	}
	return nil
}

// GetOverallFeedback returns the summary, or nil when none exists.
func (db *DB) GetOverallFeedback(ctx context.Context, interviewID uuid.UUID) (*OverallFeedback, error) {
	fb := OverallFeedback{InterviewID: interviewID}
	err := db.pool.QueryRow(ctx,
		`SELECT rating, feedback, updated_at FROM overall_feedback WHERE mock_id_ref = $1`,
		interviewID,
	).Scan(&fb.Rating, &fb.Feedback, &fb.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get overall feedback: %w", err)
	}
	return &fb, nil
}

func countsToStrings(h confidence.Histogram) map[string]int {
	out := make(map[string]int, len(h))
	for label, n := range h {
		out[string(label)] = n
	}
	return out
}
