package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/interview-coach/internal/confidence"
	"github.com/jonathan/interview-coach/internal/db"
	"github.com/jonathan/interview-coach/internal/emotion"
	"github.com/jonathan/interview-coach/internal/feedback"
	"github.com/jonathan/interview-coach/internal/grading"
	"github.com/jonathan/interview-coach/internal/server/ratelimit"
	"github.com/jonathan/interview-coach/internal/types"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	interviews map[uuid.UUID]*db.Interview
	answers    map[uuid.UUID][]db.AnswerRecord
	metrics    map[uuid.UUID]*db.ConfidenceRecord
	overall    map[uuid.UUID]*db.OverallFeedback
	err        error

	listedBy    string
	listedLimit int
}

func (m *mockStore) GetInterview(_ context.Context, id uuid.UUID) (*db.Interview, error) {
	return m.interviews[id], m.err
}

func (m *mockStore) ListInterviews(_ context.Context, createdBy string, limit int) ([]db.Interview, error) {
	m.listedBy, m.listedLimit = createdBy, limit
	var out []db.Interview
	for _, iv := range m.interviews {
		if createdBy == "" || iv.CreatedBy == createdBy {
			out = append(out, *iv)
		}
	}
	return out, m.err
}

func (m *mockStore) GetOverallFeedback(_ context.Context, id uuid.UUID) (*db.OverallFeedback, error) {
	return m.overall[id], m.err
}

func (m *mockStore) ListAnswers(_ context.Context, id uuid.UUID) ([]db.AnswerRecord, error) {
	return m.answers[id], m.err
}

func (m *mockStore) GetConfidenceMetrics(_ context.Context, id uuid.UUID) (*db.ConfidenceRecord, error) {
	return m.metrics[id], m.err
}

type mockCreator struct {
	CreateFunc func(ctx context.Context, req grading.QuestionRequest, createdBy string) (*db.Interview, error)
}

func (m *mockCreator) Create(ctx context.Context, req grading.QuestionRequest, createdBy string) (*db.Interview, error) {
	return m.CreateFunc(ctx, req, createdBy)
}

type mockSummarizer struct {
	SummarizeFunc func(ctx context.Context, id uuid.UUID) (*feedback.Report, error)
}

func (m *mockSummarizer) Summarize(ctx context.Context, id uuid.UUID) (*feedback.Report, error) {
	return m.SummarizeFunc(ctx, id)
}

func newTestServer(t *testing.T, store *mockStore, creator *mockCreator, summarizer *mockSummarizer, limiter *ratelimit.Limiter) http.Handler {
	t.Helper()
	if store == nil {
		store = &mockStore{}
	}
	if creator == nil {
		creator = &mockCreator{CreateFunc: func(context.Context, grading.QuestionRequest, string) (*db.Interview, error) {
			return nil, errors.New("unexpected call")
		}}
	}
	if summarizer == nil {
		summarizer = &mockSummarizer{SummarizeFunc: func(context.Context, uuid.UUID) (*feedback.Report, error) {
			return nil, errors.New("unexpected call")
		}}
	}
	logger, _ := test.NewNullLogger()
	s, err := New(Config{Store: store, Creator: creator, Feedback: summarizer, Limiter: limiter, Logger: logger})
	require.NoError(t, err)
	return s.Handler()
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.RemoteAddr = "10.0.0.1:5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	rec := do(newTestServer(t, nil, nil, nil, nil), "GET", "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCreateInterview(t *testing.T) {
	id := uuid.New()
	var got grading.QuestionRequest
	var gotBy string
	creator := &mockCreator{CreateFunc: func(_ context.Context, req grading.QuestionRequest, createdBy string) (*db.Interview, error) {
		got, gotBy = req, createdBy
		return &db.Interview{ID: id, JobPosition: req.JobPosition, Questions: []types.Question{{Text: "q1"}}}, nil
	}}
	h := newTestServer(t, nil, creator, nil, nil)

	rec := do(h, "POST", "/interviews", `{"job_position":" Backend Engineer ","job_description":"Go APIs","years_experience":3,"question_count":4,"created_by":"me@example.com"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	assert.Equal(t, "Backend Engineer", got.JobPosition)
	assert.Equal(t, 4, got.Count)
	assert.Equal(t, 3, got.YearsExperience)
	assert.Equal(t, "me@example.com", gotBy)
	assert.Equal(t, id.String(), decode(t, rec)["id"])
}

func TestCreateInterview_Validation(t *testing.T) {
	h := newTestServer(t, nil, nil, nil, nil)

	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "invalid json", body: `{`, want: "invalid JSON"},
		{name: "missing position", body: `{"job_description":"x"}`, want: "job_position"},
		{name: "missing description", body: `{"job_position":"x"}`, want: "job_description"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(h, "POST", "/interviews", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, decode(t, rec)["error"], tt.want)
		})
	}
}

func TestCreateInterview_MalformedLLMResponse(t *testing.T) {
	creator := &mockCreator{CreateFunc: func(context.Context, grading.QuestionRequest, string) (*db.Interview, error) {
		return nil, &grading.MalformedResponseError{Operation: "generate questions", Content: "not json"}
	}}
	h := newTestServer(t, nil, creator, nil, nil)

	rec := do(h, "POST", "/interviews", `{"job_position":"x","job_description":"y"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestGetInterview(t *testing.T) {
	id := uuid.New()
	store := &mockStore{interviews: map[uuid.UUID]*db.Interview{id: {ID: id, JobPosition: "SRE"}}}
	h := newTestServer(t, store, nil, nil, nil)

	rec := do(h, "GET", "/interviews/"+id.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "SRE", decode(t, rec)["job_position"])

	rec = do(h, "GET", "/interviews/"+uuid.New().String(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(h, "GET", "/interviews/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListInterviews(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	store := &mockStore{interviews: map[uuid.UUID]*db.Interview{
		a: {ID: a, CreatedBy: "me@example.com"},
		b: {ID: b, CreatedBy: "other@example.com"},
	}}
	h := newTestServer(t, store, nil, nil, nil)

	rec := do(h, "GET", "/interviews?created_by=me@example.com&limit=500", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode(t, rec)["count"])
	assert.Equal(t, "me@example.com", store.listedBy)
	assert.Equal(t, maxListLimit, store.listedLimit)

	rec = do(h, "GET", "/interviews?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	empty := newTestServer(t, &mockStore{}, nil, nil, nil)
	rec = do(empty, "GET", "/interviews", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{}, decode(t, rec)["interviews"])
}

func TestGetInterview_StoreError(t *testing.T) {
	h := newTestServer(t, &mockStore{err: errors.New("db down")}, nil, nil, nil)
	rec := do(h, "GET", "/interviews/"+uuid.New().String(), "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestListAnswers(t *testing.T) {
	id := uuid.New()
	store := &mockStore{answers: map[uuid.UUID][]db.AnswerRecord{
		id: {{InterviewID: id, Question: "q1", Rating: 7, EmotionHistory: []string{"Happy"}}},
	}}
	h := newTestServer(t, store, nil, nil, nil)

	rec := do(h, "GET", "/interviews/"+id.String()+"/answers", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, float64(1), body["count"])

	rec = do(h, "GET", "/interviews/"+uuid.New().String()+"/answers", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{}, decode(t, rec)["answers"])
}

func TestGetConfidence(t *testing.T) {
	id := uuid.New()
	store := &mockStore{metrics: map[uuid.UUID]*db.ConfidenceRecord{
		id: {InterviewID: id, Metrics: confidence.Metrics{
			Histogram:  confidence.Histogram{emotion.Happy: 2},
			Score:      3,
			Percentage: 100,
		}, UpdatedAt: time.Now()},
	}}
	h := newTestServer(t, store, nil, nil, nil)

	rec := do(h, "GET", "/interviews/"+id.String()+"/confidence", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, float64(100), body["confidence_percentage"])
	assert.Equal(t, map[string]any{"Happy": float64(2)}, body["emotion_counts"])

	rec = do(h, "GET", "/interviews/"+uuid.New().String()+"/confidence", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFeedback(t *testing.T) {
	id := uuid.New()
	summarizer := &mockSummarizer{SummarizeFunc: func(_ context.Context, got uuid.UUID) (*feedback.Report, error) {
		switch got {
		case id:
			return &feedback.Report{Overall: db.OverallFeedback{InterviewID: id, Rating: 8, Feedback: "great"}}, nil
		default:
			return nil, feedback.ErrNoAnswers
		}
	}}
	h := newTestServer(t, nil, nil, summarizer, nil)

	rec := do(h, "POST", "/interviews/"+id.String()+"/feedback", "")
	require.Equal(t, http.StatusOK, rec.Code)
	overall := decode(t, rec)["overall"].(map[string]any)
	assert.Equal(t, "great", overall["feedback"])

	rec = do(h, "POST", "/interviews/"+uuid.New().String()+"/feedback", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetFeedback(t *testing.T) {
	id := uuid.New()
	store := &mockStore{overall: map[uuid.UUID]*db.OverallFeedback{
		id: {InterviewID: id, Rating: 7.5, Feedback: "solid"},
	}}
	h := newTestServer(t, store, nil, nil, nil)

	rec := do(h, "GET", "/interviews/"+id.String()+"/feedback", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "solid", decode(t, rec)["feedback"])

	rec = do(h, "GET", "/interviews/"+uuid.New().String()+"/feedback", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRateLimit(t *testing.T) {
	limiter := ratelimit.NewLimiter([]ratelimit.Rule{{Method: "POST", Path: "/interviews", Limit: 1, Window: time.Hour}})
	creator := &mockCreator{CreateFunc: func(context.Context, grading.QuestionRequest, string) (*db.Interview, error) {
		return &db.Interview{ID: uuid.New()}, nil
	}}
	h := newTestServer(t, nil, creator, nil, limiter)

	body := `{"job_position":"x","job_description":"y"}`
	assert.Equal(t, http.StatusCreated, do(h, "POST", "/interviews", body).Code)

	rec := do(h, "POST", "/interviews", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// reads are not limited
	assert.Equal(t, http.StatusOK, do(h, "GET", "/health", "").Code)
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}
