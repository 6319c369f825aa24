// Package checkpoint keeps the in-progress answer of an interview in a local
// SQLite file so it survives a crash.
package checkpoint

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jonathan/interview-coach/internal/emotion"

	_ "modernc.org/sqlite" // SQLite driver.
)

// State is a snapshot of the question being answered.
type State struct {
	InterviewID   string           `json:"interview_id"`
	QuestionIndex int              `json:"question_index"`
	Transcript    string           `json:"transcript"`
	Samples       []emotion.Sample `json:"samples"`
	SavedAt       time.Time        `json:"saved_at"`
}

// Store wraps SQLite access for checkpoints.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// a single connection keeps ":memory:" databases shared
	db.SetMaxOpenConns(1)

	s := &Store{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS checkpoints (
			interview_id TEXT PRIMARY KEY,
			question_index INTEGER NOT NULL,
			transcript TEXT NOT NULL,
			samples TEXT NOT NULL,
			saved_at TEXT NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to migrate checkpoints: %w", err)
		}
	}
	return nil
}

// Save replaces the checkpoint of st.InterviewID.
func (s *Store) Save(ctx context.Context, st State) error {
	if st.InterviewID == "" {
		return errors.New("checkpoint requires an interview id")
	}
	samples := st.Samples
	if samples == nil {
		samples = []emotion.Sample{}
	}
	samplesJSON, err := json.Marshal(samples)
	if err != nil {
		return fmt.Errorf("failed to marshal samples: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO checkpoints (interview_id, question_index, transcript, samples, saved_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(interview_id) DO UPDATE SET
		   question_index = excluded.question_index,
		   transcript = excluded.transcript,
		   samples = excluded.samples,
		   saved_at = excluded.saved_at`,
		st.InterviewID, st.QuestionIndex, st.Transcript, string(samplesJSON),
		s.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// Load returns the checkpoint of interviewID, or nil when there is none.
func (s *Store) Load(ctx context.Context, interviewID string) (*State, error) {
	st := State{InterviewID: interviewID}
	var samplesJSON, savedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT question_index, transcript, samples, saved_at FROM checkpoints WHERE interview_id = ?`,
		interviewID,
	).Scan(&st.QuestionIndex, &st.Transcript, &samplesJSON, &savedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}

	if err := json.Unmarshal([]byte(samplesJSON), &st.Samples); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint samples: %w", err)
	}
	if st.SavedAt, err = time.Parse(time.RFC3339Nano, savedAt); err != nil {
		return nil, fmt.Errorf("failed to parse checkpoint time: %w", err)
	}
	return &st, nil
}

// Clear removes the checkpoint of interviewID. Clearing a missing
// checkpoint is not an error.
func (s *Store) Clear(ctx context.Context, interviewID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM checkpoints WHERE interview_id = ?`, interviewID); err != nil {
		return fmt.Errorf("failed to clear checkpoint: %w", err)
	}
	return nil
}
