package cmd

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// commitCmd represents the commit command
var commitCmd = &cobra.Command{
	Use:   "commit [code]",
	Short: "Atomically commit a previously imported document",
	Long: `Commits every entity the solvers could not match and every staged
result of a document in one transaction, with a full audit trail. Fails if
any prerequisite phase artifact is missing.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runCommit(cmd.Context(), args[0])
	},
}

// commitDryRun reports committability without opening the transaction.
var commitDryRun bool

func init() {
	commitCmd.Flags().BoolVar(&commitDryRun, "dry-run", false, "check preconditions and staged rows without committing")
	RootCmd.AddCommand(commitCmd)
}

func runCommit(ctx context.Context, code string) {
	svc, _, logg := buildService()

	if commitDryRun {
		report, err := svc.Status(ctx, code)
		if err != nil {
			logg.Fatal("Status check failed", zap.Error(err))
		}
		fmt.Println("\n--- Dry Run ---")
		fmt.Printf("Code:           %s\n", report.Code)
		fmt.Printf("Staged Rows:    %d\n", report.StagedRows)
		if report.Committable {
			fmt.Println("Verdict:        would commit")
		} else {
			fmt.Printf("Verdict:        blocked, missing phases %v\n", report.MissingPhases)
		}
		fmt.Println("---------------")
		return
	}

	logg.Info("Committing document...", zap.String("code", code))
	summary, err := svc.Commit(ctx, code)
	if err != nil {
		logg.Fatal("Commit failed", zap.Error(err))
	}

	// Pretty Console Output
	fmt.Println("\n--- Commit Summary ---")
	fmt.Printf("Code:           %s\n", summary.SourceRef)
	fmt.Printf("Batch:          %s\n", summary.BatchID)
	fmt.Println("----------------------")
	printCounts("Created", summary.Created)
	printCounts("Updated", summary.Updated)
	printCounts("Skipped", summary.Skipped)
	if summary.Retained > 0 {
		fmt.Printf("\nRetained rows:  %d (unlinkable, kept in staging)\n", summary.Retained)
	}
	fmt.Println("----------------------")
}

func printCounts(label string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	fmt.Printf("%s:\n", label)
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("- %-18s %d\n", k, counts[k])
	}
}
