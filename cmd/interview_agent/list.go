package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/jonathan/interview-coach/internal/config"
	"github.com/spf13/cobra"
)

var listCommand = &cobra.Command{
	Use:   "list",
	Short: "List stored interviews",
	RunE:  runListCmd,
}

var (
	listEmail string
	listLimit int
)

func init() {
	listCommand.Flags().StringVar(&listEmail, "email", "", "Only list interviews created by this email")
	listCommand.Flags().IntVar(&listLimit, "limit", 20, "Maximum number of interviews")

	rootCmd.AddCommand(listCommand)
}

func runListCmd(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(config.Config{})
	if err != nil {
		return err
	}
	database, err := connectDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	interviews, err := database.ListInterviews(ctx, listEmail, listLimit)
	if err != nil {
		return err
	}
	if len(interviews) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No interviews found.")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPOSITION\tQUESTIONS\tCREATED")
	for _, iv := range interviews {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", iv.ID, iv.JobPosition, len(iv.Questions), iv.CreatedAt.Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}
