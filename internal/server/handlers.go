package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jonathan/interview-coach/internal/db"
	"github.com/jonathan/interview-coach/internal/grading"
)

// maxBodyBytes bounds request bodies; job descriptions can be long.
const maxBodyBytes = 1 << 20

// CreateInterviewRequest is the body of POST /interviews.
type CreateInterviewRequest struct {
	JobPosition     string `json:"job_position"`
	JobDescription  string `json:"job_description"`
	YearsExperience int    `json:"years_experience"`
	QuestionCount   int    `json:"question_count,omitempty"`
	CreatedBy       string `json:"created_by,omitempty"`
}

// handleCreateInterview generates questions and stores a new interview.
func (s *Server) handleCreateInterview(w http.ResponseWriter, r *http.Request) {
	var req CreateInterviewRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if strings.TrimSpace(req.JobPosition) == "" {
		s.writeError(w, &ErrValidation{Field: "job_position", Message: "required"})
		return
	}
	if strings.TrimSpace(req.JobDescription) == "" {
		s.writeError(w, &ErrValidation{Field: "job_description", Message: "required"})
		return
	}

	created, err := s.creator.Create(r.Context(), grading.QuestionRequest{
		JobPosition:     strings.TrimSpace(req.JobPosition),
		JobDescription:  strings.TrimSpace(req.JobDescription),
		YearsExperience: req.YearsExperience,
		Count:           req.QuestionCount,
	}, req.CreatedBy)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, created)
}

// maxListLimit caps GET /interviews?limit=.
const maxListLimit = 100

// handleListInterviews lists recent interviews, optionally of one user.
func (s *Server) handleListInterviews(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, &ErrValidation{Field: "limit", Message: "must be a positive integer"})
			return
		}
		limit = min(n, maxListLimit)
	}

	interviews, err := s.store.ListInterviews(r.Context(), r.URL.Query().Get("created_by"), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if interviews == nil {
		interviews = []db.Interview{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"interviews": interviews,
		"count":      len(interviews),
	})
}

// handleGetInterview returns an interview with its questions.
func (s *Server) handleGetInterview(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	interview, err := s.store.GetInterview(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if interview == nil {
		s.writeError(w, &ErrNotFound{Resource: "interview", ID: id.String()})
		return
	}
	s.jsonResponse(w, http.StatusOK, interview)
}

// handleListAnswers returns the recorded answers of an interview.
func (s *Server) handleListAnswers(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	answers, err := s.store.ListAnswers(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if answers == nil {
		answers = []db.AnswerRecord{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"interview_id": id,
		"answers":      answers,
		"count":        len(answers),
	})
}

// handleGetConfidence returns the stored confidence metrics.
func (s *Server) handleGetConfidence(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	rec, err := s.store.GetConfidenceMetrics(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if rec == nil {
		s.writeError(w, &ErrNotFound{Resource: "confidence metrics", ID: id.String()})
		return
	}
	s.jsonResponse(w, http.StatusOK, rec)
}

// handleGetFeedback returns the stored overall feedback.
func (s *Server) handleGetFeedback(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	fb, err := s.store.GetOverallFeedback(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if fb == nil {
		s.writeError(w, &ErrNotFound{Resource: "overall feedback", ID: id.String()})
		return
	}
	s.jsonResponse(w, http.StatusOK, fb)
}

// handleFeedback summarizes the interview and returns the report.
func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	report, err := s.feedback.Summarize(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, report)
}

func (s *Server) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.writeError(w, &ErrValidation{Field: "id", Message: "invalid UUID format"})
		return uuid.Nil, false
	}
	return id, true
}
