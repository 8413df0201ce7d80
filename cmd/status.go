package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status [code]",
	Short: "Show how far a document has progressed through the pipeline",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runStatus(cmd.Context(), args[0])
	},
}

func init() {
	RootCmd.AddCommand(statusCmd)
}

func runStatus(ctx context.Context, code string) {
	svc, _, logg := buildService()

	report, err := svc.Status(ctx, code)
	if err != nil {
		logg.Fatal("Status check failed", zap.Error(err))
	}

	// Pretty Console Output
	fmt.Println("\n--- Pipeline Status ---")
	fmt.Printf("Code:           %s\n", report.Code)
	fmt.Printf("Staged Rows:    %d\n", report.StagedRows)
	if len(report.MissingPhases) == 0 {
		fmt.Println("Phases:         all solved")
	} else {
		fmt.Printf("Missing Phases: %v\n", report.MissingPhases)
	}

	statusColor := "\033[32m" // Green
	verdict := "READY TO COMMIT"
	if !report.Committable {
		statusColor = "\033[33m" // Yellow
		verdict = "NOT COMMITTABLE"
	}
	fmt.Printf("Verdict:        %s%s\033[0m\n", statusColor, verdict)
	fmt.Println("-----------------------")
}
