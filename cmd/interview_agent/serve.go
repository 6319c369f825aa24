package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/jonathan/interview-coach/internal/config"
	"github.com/jonathan/interview-coach/internal/feedback"
	"github.com/jonathan/interview-coach/internal/grading"
	"github.com/jonathan/interview-coach/internal/interview"
	"github.com/jonathan/interview-coach/internal/server"
	"github.com/spf13/cobra"
)

var (
	serveAddr string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes REST endpoints for creating interviews and reading their results.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Address to listen on (default :8080)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(config.Config{ListenAddr: serveAddr})
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

	grader := grading.NewService(client, logger)
	srv, err := server.New(server.Config{
		Addr:     cfg.ListenAddr,
		Store:    database,
		Creator:  interview.NewCreator(grader, database, logger),
		Feedback: feedback.NewService(database, grader, logger),
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	return srv.Start(ctx)
}
