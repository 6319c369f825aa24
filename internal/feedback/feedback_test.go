package feedback

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jonathan/interview-coach/internal/confidence"
	"github.com/jonathan/interview-coach/internal/db"
	"github.com/jonathan/interview-coach/internal/emotion"
	"github.com/jonathan/interview-coach/internal/types"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	mu          sync.Mutex
	interview   *db.Interview
	answers     []db.AnswerRecord
	listErr     error
	metricsErr  error
	feedbackErr error
	feedback    []*db.OverallFeedback
	metrics     []confidence.Metrics
}

func (m *mockStore) GetInterview(context.Context, uuid.UUID) (*db.Interview, error) {
	return m.interview, nil
}

func (m *mockStore) ListAnswers(context.Context, uuid.UUID) ([]db.AnswerRecord, error) {
	return m.answers, m.listErr
}

func (m *mockStore) UpsertOverallFeedback(_ context.Context, fb *db.OverallFeedback) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.feedback = append(m.feedback, fb)
	return m.feedbackErr
}

func (m *mockStore) UpsertConfidenceMetrics(_ context.Context, _ uuid.UUID, metrics confidence.Metrics) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metrics = append(m.metrics, metrics)
	return m.metricsErr
}

type mockSummarizer struct {
	SummarizeFunc func(ctx context.Context, answers []types.GradedAnswer) (*types.Grade, error)
}

func (m *mockSummarizer) SummarizeInterview(ctx context.Context, answers []types.GradedAnswer) (*types.Grade, error) {
	return m.SummarizeFunc(ctx, answers)
}

func fixedSummary(rating float64, text string) *mockSummarizer {
	return &mockSummarizer{SummarizeFunc: func(context.Context, []types.GradedAnswer) (*types.Grade, error) {
		return &types.Grade{Rating: rating, Feedback: text}, nil
	}}
}

func newTestService(store Store, s Summarizer) *Service {
	logger, _ := test.NewNullLogger()
	return NewService(store, s, logger)
}

func sampleAnswers(id uuid.UUID) []db.AnswerRecord {
	return []db.AnswerRecord{
		{InterviewID: id, Question: "q1", Transcript: "a1", Rating: 8, Feedback: "good", EmotionHistory: []string{"Happy", "Neutral"}},
		{InterviewID: id, Question: "q2", Transcript: "a2", Rating: 5, Feedback: "thin", EmotionHistory: []string{"Sad", "Happy", "??"}},
		{InterviewID: id, Question: "q3", Transcript: "a3", Rating: 6, Feedback: "ok"},
	}
}

func TestSummarize_Success(t *testing.T) {
	id := uuid.New()
	store := &mockStore{interview: &db.Interview{ID: id, JobPosition: "Backend Engineer"}, answers: sampleAnswers(id)}

	var got []types.GradedAnswer
	summarizer := &mockSummarizer{SummarizeFunc: func(_ context.Context, answers []types.GradedAnswer) (*types.Grade, error) {
		got = answers
		return &types.Grade{Rating: 7, Feedback: "Consistent, needs more depth."}, nil
	}}

	report, err := newTestService(store, summarizer).Summarize(context.Background(), id)
	require.NoError(t, err)

	require.Len(t, got, 3)
	assert.Equal(t, "a2", got[1].Answer)
	assert.Equal(t, 5.0, got[1].Rating)

	assert.Equal(t, 7.0, report.Overall.Rating)
	assert.Equal(t, id, report.Overall.InterviewID)
	assert.Equal(t, 6.3, report.AverageRating)

	// Happy x2, Neutral, Sad -> (6+2-2)/4
	assert.Equal(t, confidence.Histogram{emotion.Happy: 2, emotion.Neutral: 1, emotion.Sad: 1}, report.Confidence.Histogram)
	assert.Equal(t, 1.5, report.Confidence.Score)
	assert.Equal(t, 75, report.Confidence.Percentage)
	assert.Equal(t, confidence.LevelHigh, report.Level)

	require.Len(t, store.feedback, 1)
	assert.Equal(t, "Consistent, needs more depth.", store.feedback[0].Feedback)
	require.Len(t, store.metrics, 1)
	assert.Equal(t, report.Confidence, store.metrics[0])
}

func TestSummarize_NotFound(t *testing.T) {
	_, err := newTestService(&mockStore{}, fixedSummary(1, "x")).Summarize(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrInterviewNotFound)
}

func TestSummarize_NoAnswers(t *testing.T) {
	store := &mockStore{interview: &db.Interview{ID: uuid.New()}}
	_, err := newTestService(store, fixedSummary(1, "x")).Summarize(context.Background(), store.interview.ID)
	assert.ErrorIs(t, err, ErrNoAnswers)
}

func TestSummarize_ListError(t *testing.T) {
	store := &mockStore{interview: &db.Interview{ID: uuid.New()}, listErr: errors.New("boom")}
	_, err := newTestService(store, fixedSummary(1, "x")).Summarize(context.Background(), store.interview.ID)
	assert.ErrorContains(t, err, "failed to load answers")
}

func TestSummarize_SummarizerError(t *testing.T) {
	id := uuid.New()
	store := &mockStore{interview: &db.Interview{ID: id}, answers: sampleAnswers(id)}
	summarizer := &mockSummarizer{SummarizeFunc: func(context.Context, []types.GradedAnswer) (*types.Grade, error) {
		return nil, errors.New("quota exceeded")
	}}

	_, err := newTestService(store, summarizer).Summarize(context.Background(), id)
	assert.ErrorContains(t, err, "quota exceeded")
	assert.Empty(t, store.feedback)
}

func TestSummarize_MetricsWriteIsBestEffort(t *testing.T) {
	id := uuid.New()
	store := &mockStore{interview: &db.Interview{ID: id}, answers: sampleAnswers(id), metricsErr: errors.New("table missing")}

	report, err := newTestService(store, fixedSummary(6, "fine")).Summarize(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 6.0, report.Overall.Rating)
}

func TestSummarize_FeedbackWriteFails(t *testing.T) {
	id := uuid.New()
	store := &mockStore{interview: &db.Interview{ID: id}, answers: sampleAnswers(id), feedbackErr: errors.New("down")}

	_, err := newTestService(store, fixedSummary(6, "fine")).Summarize(context.Background(), id)
	assert.Error(t, err)
}

func TestHistogramOfAnswers(t *testing.T) {
	h := HistogramOfAnswers([]db.AnswerRecord{
		{EmotionHistory: []string{"happy", "No face detected", "Angry"}},
		{EmotionHistory: nil},
	})
	assert.Equal(t, confidence.Histogram{emotion.Happy: 1, emotion.Angry: 1}, h)
}
