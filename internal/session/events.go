package session

import (
	"github.com/google/uuid"
	"github.com/jonathan/interview-coach/internal/confidence"
	"github.com/jonathan/interview-coach/internal/db"
)

// Phase is the per-question lifecycle state.
type Phase int

// Phases in lifecycle order. Idle only precedes the first question.
const (
	Idle Phase = iota
	Preparing
	Answering
	Completed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Preparing:
		return "preparing"
	case Answering:
		return "answering"
	case Completed:
		return "completed"
	default:
		return "unknown"
	}
}

// EventType identifies an Event.
type EventType string

// Event types.
const (
	EventPhaseChanged      EventType = "phase_changed"
	EventTick              EventType = "tick"
	EventTimeWarning       EventType = "time_warning"
	EventDeviceWarning     EventType = "device_warning"
	EventNothingToSubmit   EventType = "nothing_to_submit"
	EventSubmitFailed      EventType = "submit_failed"
	EventAnswerRecorded    EventType = "answer_recorded"
	EventInterviewComplete EventType = "interview_complete"
)

// Event is a notification from the controller. Fields not relevant to the
// type are zero.
type Event struct {
	Type        EventType
	Phase       Phase
	Index       int
	Remaining   int
	Message     string
	Err         error
	Record      *db.AnswerRecord
	Metrics     *confidence.Metrics
	InterviewID uuid.UUID
}

// EventCallback receives controller events on the controller's loop
// goroutine. It must not block for long.
type EventCallback func(Event)

// State is a point-in-time view of the controller.
type State struct {
	Phase      Phase `json:"phase"`
	Index      int   `json:"index"`
	Total      int   `json:"total"`
	Submitting bool  `json:"submitting"`
	Complete   bool  `json:"complete"`
	// RetryAllowed is set after an empty or failed finalize.
	RetryAllowed bool `json:"retry_allowed"`
}
