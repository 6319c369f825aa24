package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CreateInterview stores a new interview. A zero ID is replaced by a new
// UUID; the stored interview is returned.
func (db *DB) CreateInterview(ctx context.Context, in *Interview) (*Interview, error) {
	questionsJSON, err := json.Marshal(in.Questions)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal questions: %w", err)
	}

	id := in.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	out := *in
	out.ID = id
	err = db.pool.QueryRow(ctx,
		`INSERT INTO mock_interviews (mock_id, json_mock_resp, job_position, job_desc, job_experience, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at`,
		id, questionsJSON, in.JobPosition, in.JobDescription, in.YearsExperience, in.CreatedBy,
	).Scan(&out.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create interview: %w", err)
	}
	return &out, nil
}

// GetInterview returns the interview, or nil when it does not exist.
func (db *DB) GetInterview(ctx context.Context, id uuid.UUID) (*Interview, error) {
	var iv Interview
	var questionsJSON []byte
	err := db.pool.QueryRow(ctx,
		`SELECT mock_id, json_mock_resp, job_position, job_desc, job_experience, created_by, created_at
		 FROM mock_interviews WHERE mock_id = $1`,
		id,
	).Scan(&iv.ID, &questionsJSON, &iv.JobPosition, &iv.JobDescription, &iv.YearsExperience, &iv.CreatedBy, &iv.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get interview: %w", err)
	}

	if err := json.Unmarshal(questionsJSON, &iv.Questions); err != nil {
		return nil, fmt.Errorf("failed to decode interview questions: %w", err)
	}
	return &iv, nil
}

// ListInterviews returns the most recent interviews of a user. An empty
// createdBy lists everyone's.
func (db *DB) ListInterviews(ctx context.Context, createdBy string, limit int) ([]Interview, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.pool.Query(ctx,
		`SELECT mock_id, json_mock_resp, job_position, job_desc, job_experience, created_by, created_at
		 FROM mock_interviews
		 WHERE $1 = '' OR created_by = $1
		 ORDER BY created_at DESC LIMIT $2`,
		createdBy, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list interviews: %w", err)
	}
	defer rows.Close()

	var out []Interview
	for rows.Next() {
		var iv Interview
		var questionsJSON []byte
		if err := rows.Scan(&iv.ID, &questionsJSON, &iv.JobPosition, &iv.JobDescription, &iv.YearsExperience, &iv.CreatedBy, &iv.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan interview: %w", err)
		}
		if err := json.Unmarshal(questionsJSON, &iv.Questions); err != nil {
			return nil, fmt.Errorf("failed to decode interview questions: %w", err)
		}
		out = append(out, iv)
	}
	return out, rows.Err()
}
