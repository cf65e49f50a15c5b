package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/solatis/extgen/internal/build"
	"github.com/solatis/extgen/internal/core/catalog"
	"github.com/solatis/extgen/internal/loader"
)

var buildCmd = &cobra.Command{
	Use:   "build FILE...",
	Short: "Convert extensions into snippet files and record them in the catalog",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)
	addCodegenFlags(buildCmd)
	buildCmd.Flags().String("out-dir", "./dist", "directory for generated snippet files")
	buildCmd.Flags().Int("workers", 4, "concurrent conversions")
	buildCmd.Flags().String("workspace", "", "workspace recorded with the build run")
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cmd.Flags().Changed("out-dir") {
		cfg.Build.OutDir, _ = cmd.Flags().GetString("out-dir")
	}
	if cmd.Flags().Changed("workers") {
		cfg.Build.Workers, _ = cmd.Flags().GetInt("workers")
	}
	conv, err := converterFromFlags(cmd, cfg)
	if err != nil {
		return err
	}
	workspace, _ := cmd.Flags().GetString("workspace")

	exts, err := loader.LoadFiles(args...)
	if err != nil {
		return err
	}

	// The catalog is optional for builds.
	var store build.Catalog
	if dbURL != "" {
		database, queries, err := openCatalog()
		if err != nil {
			return err
		}
		defer database.Close()
		store = catalog.NewStore(queries)
	}

	builder := build.NewBuilder(conv, store, logger, build.Options{
		OutDir:      cfg.Build.OutDir,
		Workers:     cfg.Build.Workers,
		WorkspaceID: workspace,
	})
	report, err := builder.Build(cmd.Context(), exts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, r := range report.Results {
		switch {
		case !r.Snippet.Generated:
			fmt.Fprintf(out, "skipped   %d %s: %s\n", r.Snippet.ExtensionID, r.Snippet.Name, r.Snippet.Reason)
		case r.Changed:
			fmt.Fprintf(out, "changed   %s\n", r.Path)
		default:
			fmt.Fprintf(out, "unchanged %s\n", r.Path)
		}
	}
	fmt.Fprintf(out, "run %s: %d generated, %d skipped, %d changed\n",
		report.RunID, report.Generated, report.Skipped, report.Changed)
	return nil
}
