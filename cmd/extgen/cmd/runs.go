package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/solatis/extgen/internal/core/catalog"
	"github.com/solatis/extgen/internal/types"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect recorded build runs",
}

var runsShowCmd = &cobra.Command{
	Use:   "show RUN_ID",
	Short: "Show a build run and the snippets it recorded",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsShow,
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsShowCmd)
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	runID, err := types.ParseRunID(args[0])
	if err != nil {
		return fmt.Errorf("invalid run id %q: %w", args[0], err)
	}

	database, queries, err := openCatalog()
	if err != nil {
		return err
	}
	defer database.Close()
	store := catalog.NewStore(queries)

	run, err := store.GetRun(cmd.Context(), runID)
	if err != nil {
		return err
	}
	records, err := store.ListRunSnippets(cmd.Context(), runID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run %s (%s)\n", run.ID, run.Status)
	if run.WorkspaceID != "" {
		fmt.Fprintf(out, "workspace: %s\n", run.WorkspaceID)
	}
	fmt.Fprintf(out, "started:   %s\n", run.StartedAt)
	if run.FinishedAt.Valid {
		fmt.Fprintf(out, "finished:  %s\n", run.FinishedAt.String)
	}
	fmt.Fprintf(out, "extensions %d: %d generated, %d skipped, %d changed\n",
		run.ExtensionCount, run.GeneratedCount, run.SkippedCount, run.ChangedCount)
	if run.Error != "" {
		fmt.Fprintf(out, "error: %s\n", run.Error)
	}
	for _, r := range records {
		line := fmt.Sprintf("  %3d  %-9s %d %s", r.Position, r.Status, r.ExtensionID, r.Name)
		if r.Status == types.StatusSkipped {
			line += ": " + r.Reason
		} else if r.Changed {
			line += " (changed)"
		}
		fmt.Fprintln(out, line)
	}
	return nil
}
