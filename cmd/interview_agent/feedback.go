package main

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonathan/interview-coach/internal/config"
	"github.com/jonathan/interview-coach/internal/feedback"
	"github.com/jonathan/interview-coach/internal/grading"
	"github.com/jonathan/interview-coach/internal/observability"
	"github.com/spf13/cobra"
)

var feedbackCommand = &cobra.Command{
	Use:   "feedback",
	Short: "Summarize a finished interview",
	Long:  `Grades the interview as a whole, recomputes confidence over every recorded answer and stores the overall feedback.`,
	RunE:  runFeedbackCmd,
}

var (
	feedbackInterview string
	feedbackJSON      bool
)

func init() {
	feedbackCommand.Flags().StringVarP(&feedbackInterview, "interview", "i", "", "Interview ID (required)")
	feedbackCommand.Flags().BoolVar(&feedbackJSON, "json", false, "Print the report as JSON")
	_ = feedbackCommand.MarkFlagRequired("interview")

	rootCmd.AddCommand(feedbackCommand)
}

func runFeedbackCmd(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	id, err := uuid.Parse(feedbackInterview)
	if err != nil {
		return fmt.Errorf("invalid interview ID: %w", err)
	}

	cfg, err := loadConfig(config.Config{})
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

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

	svc := feedback.NewService(database, grading.NewService(client, logger), logger)
	report, err := svc.Summarize(ctx, id)
	if err != nil {
		return err
	}

	if feedbackJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintReport(report)
	return nil
}
