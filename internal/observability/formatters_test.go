package observability

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/jonathan/interview-coach/internal/checkpoint"
	"github.com/jonathan/interview-coach/internal/confidence"
	"github.com/jonathan/interview-coach/internal/db"
	"github.com/jonathan/interview-coach/internal/feedback"
	"github.com/jonathan/interview-coach/internal/types"
	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
)

func TestPrintQuestions(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintQuestions("iv-1", []types.Question{
		{Text: "What is a goroutine?"},
		{Text: "Explain channels."},
	})
	output := buf.String()

	assert.Contains(t, output, "INTERVIEW QUESTIONS")
	assert.Contains(t, output, "iv-1")
	assert.Contains(t, output, "1. What is a goroutine?")
	assert.Contains(t, output, "2. Explain channels.")
}

func TestPrintQuestions_Empty(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintQuestions("iv-1", nil)

	assert.Empty(t, buf.String())
}

func TestPrintQuestion(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintQuestion(1, 5, types.Question{Text: "Describe a hard bug.", Hints: []string{"STAR format"}})
	output := buf.String()

	assert.Contains(t, output, "QUESTION 2 OF 5")
	assert.Contains(t, output, "Describe a hard bug.")
	assert.Contains(t, output, "STAR format")
}

func TestPrintAnswer(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintAnswer(&db.AnswerRecord{
		Transcript: "I would use a worker pool",
		Rating:     7.5,
		Feedback:   "Good structure.",
	}, &confidence.Metrics{Score: 2.5, Percentage: 92})
	output := buf.String()

	assert.Contains(t, output, "ANSWER RECORDED")
	assert.Contains(t, output, "7.5/10")
	assert.Contains(t, output, "worker pool")
	assert.Contains(t, output, "Confidence: 92% (high, score 2.50)")
}

func TestPrintAnswer_EmptyTranscript(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintAnswer(&db.AnswerRecord{Rating: 0, Feedback: "No answer given."}, nil)
	output := buf.String()

	assert.Contains(t, output, "no speech captured")
	assert.Contains(t, output, "0/10")
	assert.NotContains(t, output, "Confidence")
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	answers := make([]db.AnswerRecord, 7)
	for i := range answers {
		answers[i] = db.AnswerRecord{Question: "question", Rating: 6}
	}
	p.PrintReport(&feedback.Report{
		Interview:     &db.Interview{JobPosition: "Site Reliability Engineer"},
		Answers:       answers,
		Overall:       db.OverallFeedback{Rating: 6, Feedback: "Solid fundamentals."},
		AverageRating: 6,
		Confidence:    confidence.Metrics{Score: 0.1, Percentage: 52},
	})
	output := buf.String()

	assert.Contains(t, output, "INTERVIEW FEEDBACK")
	assert.Contains(t, output, "Site Reliability Engineer")
	assert.Contains(t, output, "Overall:  6/10")
	assert.Contains(t, output, "over 7 answers")
	assert.Contains(t, output, "(medium")
	assert.Contains(t, output, "Solid fundamentals.")
	assert.Contains(t, output, "... and 2 more")
}

func TestPrintReport_Nil(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintReport(nil)
	assert.Empty(t, buf.String())
}

func TestPrintCheckpoint(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintCheckpoint(&checkpoint.State{
		QuestionIndex: 2,
		Transcript:    "partial answer",
		SavedAt:       time.Now(),
	})
	output := buf.String()

	assert.Contains(t, output, "UNFINISHED ANSWER FOUND")
	assert.Contains(t, output, "Question: 3")
	assert.Contains(t, output, "partial answer")
}

func TestPrintBox_WrapsLongLines(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.printBox("TITLE", strings.Repeat("word ", 30))

	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		assert.LessOrEqual(t, len([]rune(line)), boxWidth)
	}
	assert.Equal(t, 30, strings.Count(buf.String(), "word"))
}

func TestWrap(t *testing.T) {
	assert.Equal(t, []string{"short"}, wrap("short", 10))
	assert.Equal(t, []string{"aaaa bbbb", "cccc"}, wrap("aaaa bbbb cccc", 10))
	assert.Equal(t, []string{"abcdefghij", "kl"}, wrap("abcdefghijkl", 10))
}

func TestPrintBox_WideCharactersKeepBorderAligned(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.printBox("面接", strings.Repeat("ゴルーチンとチャネル ", 12))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var body int
	for _, line := range lines {
		if !strings.HasPrefix(line, "│ ") {
			continue
		}
		body++
		inner := strings.TrimSuffix(strings.TrimPrefix(line, "│ "), " │")
		assert.Equal(t, boxWidth-4, runewidth.StringWidth(inner), line)
	}
	assert.Greater(t, body, 2)
}

func TestWrap_WideRunes(t *testing.T) {
	assert.Equal(t, []string{"漢字", "漢字", "漢字"}, wrap("漢字漢字漢字", 5))
	assert.Equal(t, []string{"漢字 ab", "cd"}, wrap("漢字 ab cd", 7))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", truncate("hello", 10))
	assert.Equal(t, "hello w...", truncate("hello world!", 10))
}
