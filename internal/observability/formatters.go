// Package observability provides formatted terminal output for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/interview-coach/internal/checkpoint"
	"github.com/jonathan/interview-coach/internal/confidence"
	"github.com/jonathan/interview-coach/internal/db"
	"github.com/jonathan/interview-coach/internal/feedback"
	"github.com/jonathan/interview-coach/internal/types"
	"github.com/mattn/go-runewidth"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for the interview commands
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content. Long lines are
// wrapped and padded by display width, so wide characters keep the border
// aligned.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %s │\n", runewidth.FillRight(runewidth.Truncate(title, boxWidth-4, "..."), boxWidth-4))
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		for _, wrapped := range wrap(line, boxWidth-4) {
			fmt.Fprintf(p.out, "│ %s │\n", runewidth.FillRight(wrapped, boxWidth-4))
		}
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintQuestions lists generated interview questions.
func (p *Printer) PrintQuestions(interviewID string, questions []types.Question) {
	if len(questions) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Interview: %s\n\n", interviewID))
	for i, q := range questions {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, q.Text))
	}
	p.printBox("INTERVIEW QUESTIONS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintQuestion shows the question about to be answered.
func (p *Printer) PrintQuestion(index, total int, q types.Question) {
	var sb strings.Builder
	sb.WriteString(q.Text)
	if len(q.Hints) > 0 {
		sb.WriteString("\n\nHints:\n")
		count := min(len(q.Hints), 3)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • %s\n", q.Hints[i]))
		}
	}
	p.printBox(fmt.Sprintf("QUESTION %d OF %d", index+1, total), strings.TrimSuffix(sb.String(), "\n"))
}

// PrintAnswer outputs a recorded answer with its grade and the running
// confidence.
func (p *Printer) PrintAnswer(rec *db.AnswerRecord, metrics *confidence.Metrics) {
	if rec == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Rating:   %s/10\n", formatRating(rec.Rating)))
	if rec.Transcript == "" {
		sb.WriteString("Answer:   (no speech captured)\n")
	} else {
		sb.WriteString(fmt.Sprintf("Answer:   %s\n", truncate(rec.Transcript, 120)))
	}
	sb.WriteString("\n")
	sb.WriteString(rec.Feedback)
	if metrics != nil {
		sb.WriteString("\n\n")
		sb.WriteString(confidenceLine(*metrics))
	}
	p.printBox("ANSWER RECORDED", sb.String())
}

// PrintReport outputs the end-of-interview report.
func (p *Printer) PrintReport(r *feedback.Report) {
	if r == nil {
		return
	}

	var sb strings.Builder
	if r.Interview != nil {
		sb.WriteString(fmt.Sprintf("Role:     %s\n", r.Interview.JobPosition))
	}
	sb.WriteString(fmt.Sprintf("Overall:  %s/10\n", formatRating(r.Overall.Rating)))
	sb.WriteString(fmt.Sprintf("Average:  %s/10 over %d answers\n", formatRating(r.AverageRating), len(r.Answers)))
	sb.WriteString(confidenceLine(r.Confidence))
	sb.WriteString("\n\n")
	sb.WriteString(r.Overall.Feedback)
	sb.WriteString("\n")

	if len(r.Answers) > 0 {
		sb.WriteString("\nAnswers:\n")
		count := min(len(r.Answers), maxItemsToShow)
		for i := 0; i < count; i++ {
			a := r.Answers[i]
			sb.WriteString(fmt.Sprintf("  %d. [%s] %s\n", i+1, formatRating(a.Rating), truncate(a.Question, 40)))
		}
		if len(r.Answers) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(r.Answers)-maxItemsToShow))
		}
	}

	p.printBox("INTERVIEW FEEDBACK", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintCheckpoint reports an unfinished answer left by an earlier run.
func (p *Printer) PrintCheckpoint(st *checkpoint.State) {
	if st == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Question: %d\n", st.QuestionIndex+1))
	sb.WriteString(fmt.Sprintf("Saved:    %s\n", st.SavedAt.Local().Format("2006-01-02 15:04:05")))
	sb.WriteString(fmt.Sprintf("Samples:  %d\n", len(st.Samples)))
	if st.Transcript != "" {
		sb.WriteString("\n")
		sb.WriteString(truncate(st.Transcript, 160))
	}
	p.printBox("UNFINISHED ANSWER FOUND", strings.TrimSuffix(sb.String(), "\n"))
}

func confidenceLine(m confidence.Metrics) string {
	return fmt.Sprintf("Confidence: %d%% (%s, score %.2f)", m.Percentage, confidence.LevelOf(m.Percentage), m.Score)
}

func formatRating(r float64) string {
	if r == float64(int(r)) {
		return fmt.Sprintf("%d", int(r))
	}
	return fmt.Sprintf("%.1f", r)
}

func truncate(s string, n int) string {
	return runewidth.Truncate(s, n, "...")
}

// wrap splits line on word boundaries into chunks at most width columns wide.
func wrap(line string, width int) []string {
	if runewidth.StringWidth(line) <= width {
		return []string{line}
	}

	var out []string
	cur, curWidth := "", 0
	flush := func() {
		if cur != "" {
			out = append(out, cur)
		}
		cur, curWidth = "", 0
	}
	for _, word := range strings.Fields(line) {
		for _, piece := range splitWidth(word, width) {
			w := runewidth.StringWidth(piece)
			switch {
			case cur == "":
				cur, curWidth = piece, w
			case curWidth+1+w <= width:
				cur += " " + piece
				curWidth += 1 + w
			default:
				flush()
				cur, curWidth = piece, w
			}
		}
	}
	flush()
	return out
}

// splitWidth cuts word into pieces no wider than width columns.
func splitWidth(word string, width int) []string {
	if runewidth.StringWidth(word) <= width {
		return []string{word}
	}
	var pieces []string
	var sb strings.Builder
	used := 0
	for _, r := range word {
		rw := runewidth.RuneWidth(r)
		if used+rw > width && sb.Len() > 0 {
			pieces = append(pieces, sb.String())
			sb.Reset()
			used = 0
		}
		sb.WriteRune(r)
		used += rw
	}
	if sb.Len() > 0 {
		pieces = append(pieces, sb.String())
	}
	return pieces
}
