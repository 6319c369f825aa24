package db

import (
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/interview-coach/internal/confidence"
	"github.com/jonathan/interview-coach/internal/types"
)

// Interview is a generated mock interview.
type Interview struct {
	ID              uuid.UUID        `json:"id"`
	JobPosition     string           `json:"job_position"`
	JobDescription  string           `json:"job_description"`
	YearsExperience int              `json:"years_experience"`
	Questions       []types.Question `json:"questions"`
	CreatedBy       string           `json:"created_by"`
	CreatedAt       time.Time        `json:"created_at"`
}

// AnswerRecord is the persisted result of one finalized question.
type AnswerRecord struct {
	ID              int64     `json:"id,omitempty"`
	InterviewID     uuid.UUID `json:"interview_id"`
	Question        string    `json:"question"`
	ReferenceAnswer string    `json:"reference_answer"`
	Transcript      string    `json:"transcript"`
	Rating          float64   `json:"rating"`
	Feedback        string    `json:"feedback"`
	UserEmail       string    `json:"user_email,omitempty"`
	// EmotionHistory is nil when the row was written without it.
	EmotionHistory []string  `json:"emotion_history"`
	CreatedAt      time.Time `json:"created_at"`
}

// OverallFeedback is the one-per-interview summary.
type OverallFeedback struct {
	InterviewID uuid.UUID `json:"interview_id"`
	Rating      float64   `json:"rating"`
	Feedback    string    `json:"feedback"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ConfidenceRecord is the stored confidence metrics of an interview.
type ConfidenceRecord struct {
	InterviewID uuid.UUID `json:"interview_id"`
	confidence.Metrics
	UpdatedAt time.Time `json:"updated_at"`
}
