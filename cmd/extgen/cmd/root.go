package cmd

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/solatis/extgen/internal/codegen"
	"github.com/solatis/extgen/internal/core/config"
	"github.com/solatis/extgen/internal/core/db"
	"github.com/solatis/extgen/internal/logging"
)

const Version = "0.1.0"

var (
	configFile string
	dbURL      string
	logLevel   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:          "extgen",
	Short:        "SET DATA VALUE extension compiler",
	Long:         `extgen compiles tag-management "Set Data Values" extensions into guarded JavaScript snippets.`,
	Version:      Version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&dbURL, "db-url", "", "catalog database URL (sqlite://path or postgres://...)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "json", "log format (json, console)")
}

func Execute() error {
	return rootCmd.Execute()
}

// setup loads configuration and builds the logger shared by subcommands.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := logging.New(logLevel, logFormat)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// addCodegenFlags registers the flags that override codegen configuration.
func addCodegenFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("escape-starts-with", false, "escape regex metacharacters in starts_with values")
	cmd.Flags().String("invocation-args", "", "arguments placed in the snippet's trailing call, e.g. \"a, b\"")
}

// converterFromFlags applies codegen flag overrides to cfg and builds a converter.
func converterFromFlags(cmd *cobra.Command, cfg *config.Config) (*codegen.Converter, error) {
	if cmd.Flags().Changed("escape-starts-with") {
		cfg.Codegen.EscapeStartsWith, _ = cmd.Flags().GetBool("escape-starts-with")
	}
	if cmd.Flags().Changed("invocation-args") {
		cfg.Codegen.InvocationArgs, _ = cmd.Flags().GetString("invocation-args")
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return codegen.NewConverter(codegen.Options{
		EscapeStartsWith: cfg.Codegen.EscapeStartsWith,
		InvocationArgs:   cfg.Codegen.InvocationArgs,
	}), nil
}

// openCatalog opens the database and checks that every migration is applied.
func openCatalog() (*sqlx.DB, *db.Queries, error) {
	if dbURL == "" {
		return nil, nil, fmt.Errorf("--db-url required")
	}
	database, err := db.Open(dbURL)
	if err != nil {
		return nil, nil, err
	}

	statuses, err := db.MigrateStatus(database)
	if err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to check migrations: %w", err)
	}
	for _, s := range statuses {
		if !s.Applied {
			database.Close()
			return nil, nil, fmt.Errorf("migration %s not applied - run 'extgen migrate up' first", s.ID)
		}
	}

	queries, err := db.LoadQueries(database)
	if err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to load queries: %w", err)
	}
	return database, queries, nil
}
