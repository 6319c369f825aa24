package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

const (
	insertAnswerSQL = `INSERT INTO user_answers
		(mock_id_ref, question, correct_ans, user_ans, feedback, rating, user_email, emotion_history)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	insertAnswerNoEmotionsSQL = `INSERT INTO user_answers
		(mock_id_ref, question, correct_ans, user_ans, feedback, rating, user_email)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
)

// answerInsert builds the statement and arguments for rec. Without
// emotions the emotion_history column is not named at all, so the write
// succeeds against tables that lack it.
func answerInsert(rec *AnswerRecord, includeEmotions bool) (string, []any, error) {
	args := []any{
		rec.InterviewID, rec.Question, rec.ReferenceAnswer, rec.Transcript,
		rec.Feedback, rec.Rating, rec.UserEmail,
	}
	if !includeEmotions {
		return insertAnswerNoEmotionsSQL, args, nil
	}

	history := rec.EmotionHistory
	if history == nil {
		history = []string{}
	}
	historyJSON, err := json.Marshal(history)
	if err != nil {
		return "", nil, fmt.Errorf("failed to marshal emotion history: %w", err)
	}
	return insertAnswerSQL, append(args, historyJSON), nil
}

// InsertAnswer appends an answer record.
func (db *DB) InsertAnswer(ctx context.Context, rec *AnswerRecord, includeEmotions bool) error {
	query, args, err := answerInsert(rec, includeEmotions)
	if err != nil {
		return err
	}
	if _, err := db.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert answer: %w", err)
	}
	return nil
}

// ListAnswers returns the answers of an interview in insertion order.
func (db *DB) ListAnswers(ctx context.Context, interviewID uuid.UUID) ([]AnswerRecord, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, mock_id_ref, question, correct_ans, user_ans, feedback, rating, user_email, emotion_history, created_at
		 FROM user_answers WHERE mock_id_ref = $1 ORDER BY id ASC`,
		interviewID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list answers: %w", err)
	}
	defer rows.Close()

	var out []AnswerRecord
	for rows.Next() {
		var rec AnswerRecord
		var historyJSON []byte
		if err := rows.Scan(&rec.ID, &rec.InterviewID, &rec.Question, &rec.ReferenceAnswer, &rec.Transcript,
			&rec.Feedback, &rec.Rating, &rec.UserEmail, &historyJSON, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan answer: %w", err)
		}
		rec.EmotionHistory = decodeEmotionHistory(historyJSON)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// decodeEmotionHistory tolerates NULL, arrays and the string-encoded arrays
// written by older clients.
func decodeEmotionHistory(raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}
	var history []string
	if err := json.Unmarshal(raw, &history); err == nil {
		return history
	}
	var encoded string
	if err := json.Unmarshal(raw, &encoded); err == nil {
		if err := json.Unmarshal([]byte(encoded), &history); err == nil {
			return history
		}
	}
	return nil
}
