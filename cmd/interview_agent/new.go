package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/jonathan/interview-coach/internal/config"
	"github.com/jonathan/interview-coach/internal/grading"
	"github.com/jonathan/interview-coach/internal/interview"
	"github.com/jonathan/interview-coach/internal/observability"
	"github.com/spf13/cobra"
)

var newCommand = &cobra.Command{
	Use:   "new",
	Short: "Generate a new mock interview for a role",
	Long: `Asks the LLM for interview questions with reference answers and stores them as a new interview.

The job description can be given inline with --description or read from a file with --description-file.`,
	RunE: runNewCmd,
}

var (
	newPosition        string
	newDescription     string
	newDescriptionFile string
	newExperience      int
	newCount           int
	newEmail           string
	newJSON            bool
)

func init() {
	newCommand.Flags().StringVarP(&newPosition, "position", "p", "", "Job position, e.g. \"Backend Engineer\"")
	newCommand.Flags().StringVarP(&newDescription, "description", "d", "", "Job description or tech stack")
	newCommand.Flags().StringVar(&newDescriptionFile, "description-file", "", "Path to a file holding the job description")
	newCommand.Flags().IntVar(&newExperience, "experience", 0, "Years of experience")
	newCommand.Flags().IntVarP(&newCount, "count", "n", 0, "Number of questions (defaults to INTERVIEW_QUESTION_COUNT or 5)")
	newCommand.Flags().StringVar(&newEmail, "email", "", "Candidate email stored as the interview owner")
	newCommand.Flags().BoolVar(&newJSON, "json", false, "Print the created interview as JSON")

	rootCmd.AddCommand(newCommand)
}

func runNewCmd(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	description := newDescription
	if newDescriptionFile != "" {
		data, err := os.ReadFile(newDescriptionFile)
		if err != nil {
			return fmt.Errorf("failed to read description file: %w", err)
		}
		description = string(data)
	}

	cfg, err := loadConfig(config.Config{
		JobPosition:     newPosition,
		JobDescription:  description,
		YearsExperience: newExperience,
		QuestionCount:   newCount,
		UserEmail:       newEmail,
	})
	if err != nil {
		return err
	}
	if strings.TrimSpace(cfg.JobPosition) == "" || strings.TrimSpace(cfg.JobDescription) == "" {
		return fmt.Errorf("--position and --description (or --description-file) are required")
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

	creator := interview.NewCreator(grading.NewService(client, logger), database, logger)
	created, err := creator.Create(ctx, grading.QuestionRequest{
		JobPosition:     strings.TrimSpace(cfg.JobPosition),
		JobDescription:  strings.TrimSpace(cfg.JobDescription),
		YearsExperience: cfg.YearsExperience,
		Count:           cfg.QuestionCount,
	}, cfg.UserEmail)
	if err != nil {
		return err
	}

	if newJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(created)
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintQuestions(created.ID.String(), created.Questions)
	fmt.Fprintf(cmd.OutOrStdout(), "\nStart the interview with: interview_agent run --interview %s\n", created.ID)
	return nil
}
