package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/google/uuid"
	"github.com/jonathan/interview-coach/internal/checkpoint"
	"github.com/jonathan/interview-coach/internal/clock"
	"github.com/jonathan/interview-coach/internal/config"
	"github.com/jonathan/interview-coach/internal/emotion"
	"github.com/jonathan/interview-coach/internal/feedback"
	"github.com/jonathan/interview-coach/internal/grading"
	"github.com/jonathan/interview-coach/internal/observability"
	"github.com/jonathan/interview-coach/internal/session"
	"github.com/jonathan/interview-coach/internal/transcript"
	"github.com/jonathan/interview-coach/internal/types"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// In-session commands typed on their own line.
const (
	cmdSubmit = "/submit"
	cmdRetry  = "/retry"
	cmdQuit   = "/quit"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Answer a stored interview question by question",
	Long: `Runs a timed mock interview. Each question gets a preparation countdown followed by an answering window.

Type the answer on stdin while answering; lines starting with "~" are treated as interim speech.
Type /submit to finish early, /retry after an empty or failed submission, and /quit to leave.
When --emotion-url is set, the .jpg/.jpeg files in --frames-dir are replayed in name order as
camera frames, wrapping around after the last one.`,
	RunE: runRunCmd,
}

var (
	runInterview  string
	runFramesDir  string
	runEmotionURL string
	runResume     bool
	runPrep       int
	runAnswer     int
	runFeedback   bool
)

func init() {
	runCommand.Flags().StringVarP(&runInterview, "interview", "i", "", "Interview ID (required)")
	runCommand.Flags().StringVar(&runFramesDir, "frames-dir", "", "Directory holding camera frames")
	runCommand.Flags().StringVar(&runEmotionURL, "emotion-url", "", "Base URL of the emotion classifier (defaults to EMOTION_API_URL)")
	runCommand.Flags().BoolVar(&runResume, "resume", false, "Resume at the question of a leftover checkpoint")
	runCommand.Flags().IntVar(&runPrep, "prep", 0, "Preparation seconds per question (defaults to INTERVIEW_PREP_TIME or 10)")
	runCommand.Flags().IntVar(&runAnswer, "answer", 0, "Answering seconds per question (defaults to INTERVIEW_ANSWER_TIME or 10)")
	runCommand.Flags().BoolVar(&runFeedback, "feedback", false, "Summarize the interview after the last question")
	_ = runCommand.MarkFlagRequired("interview")

	rootCmd.AddCommand(runCommand)
}

func runRunCmd(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	id, err := uuid.Parse(runInterview)
	if err != nil {
		return fmt.Errorf("invalid interview ID: %w", err)
	}

	cfg, err := loadConfig(config.Config{
		FramesDir:     runFramesDir,
		EmotionAPIURL: runEmotionURL,
		PrepSeconds:   runPrep,
		AnswerSeconds: runAnswer,
	})
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	out := cmd.OutOrStdout()
	printer := observability.NewPrinter(out)

	client, err := newLLMClient(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	database, err := connectDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	found, err := database.GetInterview(ctx, id)
	if err != nil {
		return err
	}
	if found == nil {
		return fmt.Errorf("interview not found: %s", id)
	}

	checkpoints, err := checkpoint.Open(cfg.CheckpointPath)
	if err != nil {
		return fmt.Errorf("failed to open checkpoint store: %w", err)
	}
	defer func() { _ = checkpoints.Close() }()

	startIndex := 0
	leftover, err := checkpoints.Load(ctx, id.String())
	if err != nil {
		logger.WithError(err).Warn("failed to load checkpoint")
	}
	if leftover != nil {
		printer.PrintCheckpoint(leftover)
		if runResume && leftover.QuestionIndex < len(found.Questions) {
			startIndex = leftover.QuestionIndex
		}
	}

	var ctrlRef atomic.Pointer[session.Controller]
	checkpointNow := func() {
		if c := ctrlRef.Load(); c != nil {
			c.Checkpoint()
		}
	}

	speech, commands := splitCommands(cmd.InOrStdin())
	capture := transcript.NewCapture(transcript.NewLineRecognizer(speech), transcript.Options{
		FinalWait: cfg.FinalWait(),
		Logger:    logger,
		OnChange:  func(string, string) { checkpointNow() },
	})
	sampler := newSampler(cfg, logger, checkpointNow)

	ctrl, err := session.New(session.Config{
		InterviewID:    id,
		UserEmail:      cfg.UserEmail,
		Questions:      found.Questions,
		PrepSeconds:    cfg.PrepSeconds,
		AnswerSeconds:  cfg.AnswerSeconds,
		SampleInterval: cfg.SampleInterval(),
		WarnSeconds:    cfg.WarnSeconds,
		StartIndex:     startIndex,
	}, session.Deps{
		Clock:       clock.New(),
		Capture:     capture,
		Sampler:     sampler,
		Grader:      grading.NewService(client, logger),
		Store:       database,
		Checkpoints: checkpoints,
		Logger:      logger,
		OnEvent:     eventPrinter(out, printer, found.Questions),
	})
	if err != nil {
		return err
	}
	ctrlRef.Store(ctrl)
	defer ctrl.Close()

	if err := ctrl.Start(ctx); err != nil {
		return err
	}

	go func() {
		for c := range commands {
			switch c {
			case cmdSubmit:
				ctrl.StopAndSubmit()
			case cmdRetry:
				if err := ctrl.Retry(); err != nil {
					fmt.Fprintf(out, "Cannot retry: %v\n", err)
				}
			case cmdQuit:
				stop()
			}
		}
	}()

	select {
	case <-ctrl.Done():
	case <-ctrl.Closed():
		return nil
	case <-ctx.Done():
		fmt.Fprintln(out, "\nInterview interrupted; progress is kept in the checkpoint.")
		return nil
	}
	ctrl.Close()

	if !runFeedback {
		fmt.Fprintf(out, "\nGet your summary with: interview_agent feedback --interview %s\n", id)
		return nil
	}
	report, err := feedback.NewService(database, grading.NewService(client, logger), logger).Summarize(cmd.Context(), id)
	if err != nil {
		return err
	}
	printer.PrintReport(report)
	return nil
}

func newSampler(cfg config.Config, logger logrus.FieldLogger, onSample func()) *emotion.Sampler {
	var (
		frames     emotion.FrameSource
		classifier emotion.Classifier
	)
	if cfg.FramesDir != "" {
		frames = emotion.NewDirFrameSource(cfg.FramesDir)
	}
	if cfg.EmotionAPIURL != "" {
		classifier = emotion.NewHTTPClassifier(cfg.EmotionAPIURL, &http.Client{Timeout: cfg.ClassifyTimeout()})
	}
	return emotion.NewSampler(frames, classifier, emotion.SamplerOptions{
		Timeout:  cfg.ClassifyTimeout(),
		Logger:   logger,
		OnSample: func(emotion.Sample) { onSample() },
	})
}

// splitCommands separates in-session commands from answer text. Answer
// lines are forwarded to the returned reader; the channel closes at EOF.
func splitCommands(in io.Reader) (io.Reader, <-chan string) {
	pr, pw := io.Pipe()
	commands := make(chan string)
	go func() {
		defer close(commands)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			line := scanner.Text()
			switch trimmed := strings.TrimSpace(line); trimmed {
			case cmdSubmit, cmdRetry, cmdQuit:
				commands <- trimmed
				continue
			}
			if _, err := io.WriteString(pw, line+"\n"); err != nil {
				return
			}
		}
		_ = pw.CloseWithError(scanner.Err())
	}()
	return pr, commands
}

// eventPrinter renders controller events for a terminal.
func eventPrinter(out io.Writer, printer *observability.Printer, questions []types.Question) session.EventCallback {
	return func(ev session.Event) {
		switch ev.Type {
		case session.EventPhaseChanged:
			switch ev.Phase {
			case session.Preparing:
				printer.PrintQuestion(ev.Index, len(questions), questions[ev.Index])
				fmt.Fprintln(out, "Prepare your answer...")
			case session.Answering:
				fmt.Fprintf(out, "Answer now. Type %s when you are done.\n", cmdSubmit)
			}
		case session.EventTick:
			if ev.Phase == session.Answering && ev.Remaining > 0 && ev.Remaining%10 == 0 {
				fmt.Fprintf(out, "  %ds remaining\n", ev.Remaining)
			}
		case session.EventTimeWarning:
			fmt.Fprintf(out, "  Only %ds left!\n", ev.Remaining)
		case session.EventDeviceWarning:
			fmt.Fprintf(out, "Warning: %s\n", ev.Message)
		case session.EventNothingToSubmit:
			fmt.Fprintf(out, "No answer was captured. Type %s to try this question again.\n", cmdRetry)
		case session.EventSubmitFailed:
			fmt.Fprintf(out, "Submitting failed: %v\nType %s to try this question again.\n", ev.Err, cmdRetry)
		case session.EventAnswerRecorded:
			printer.PrintAnswer(ev.Record, ev.Metrics)
		case session.EventInterviewComplete:
			fmt.Fprintln(out, "\nInterview complete.")
		}
	}
}
