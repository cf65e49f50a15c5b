package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/solatis/extgen/internal/loader"
	"github.com/solatis/extgen/internal/metrics"
	"github.com/solatis/extgen/internal/sandbox"
	"github.com/solatis/extgen/internal/types"
)

var runCmd = &cobra.Command{
	Use:   "run FILE",
	Short: "Execute one generated snippet against sample event data",
	Long: `run converts one extension and executes the snippet in an embedded
JavaScript runtime, printing the resulting event data and any utag.DB output.

Unless --invocation-args is set, the snippet is invoked with "a, b" so it
sees the sample data.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	addCodegenFlags(runCmd)
	runCmd.Flags().Int("id", 0, "extension id, required when the file holds several")
	runCmd.Flags().String("data", "", "JSON file with event data (default: empty object)")
	runCmd.Flags().String("event-type", "view", "event type bound to a")
	runCmd.Flags().Duration("timeout", 0, "execution timeout (default: sandbox.timeout from config)")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if !cmd.Flags().Changed("invocation-args") && cfg.Codegen.InvocationArgs == "" {
		cfg.Codegen.InvocationArgs = "a, b"
	}
	if cmd.Flags().Changed("timeout") {
		cfg.Sandbox.Timeout, _ = cmd.Flags().GetDuration("timeout")
	}
	conv, err := converterFromFlags(cmd, cfg)
	if err != nil {
		return err
	}

	exts, err := loader.LoadFile(args[0])
	if err != nil {
		return err
	}
	id, _ := cmd.Flags().GetInt("id")
	ext, err := findOne(exts, types.ExtensionID(id))
	if err != nil {
		return err
	}

	snippet, err := conv.Convert(ext)
	if err != nil {
		return err
	}
	if !snippet.Generated {
		return fmt.Errorf("extension %d not generated: %s", ext.ID, snippet.Reason)
	}

	var payload types.Payload
	if path, _ := cmd.Flags().GetString("data"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read data: %w", err)
		}
		payload = types.Payload(raw)
	}
	initial, err := payload.Decode()
	if err != nil {
		return fmt.Errorf("failed to decode data: %w", err)
	}

	eventType, _ := cmd.Flags().GetString("event-type")
	data := sandbox.NewMapData(initial)
	runner := sandbox.NewRunner(cfg.Sandbox.Timeout, logger)

	result, err := runner.Run(cmd.Context(), snippet.Source, sandbox.Host{EventType: eventType, Data: data})
	if err != nil {
		metrics.IncSandboxRun("error")
		return err
	}
	if len(result.DebugLog) > 0 {
		metrics.IncSandboxRun("caught")
	} else {
		metrics.IncSandboxRun("ok")
	}
	logger.Debug("snippet executed",
		zap.Int("extension_id", int(ext.ID)),
		zap.Duration("duration", result.Duration),
	)

	out := cmd.OutOrStdout()
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(map[string]any(data)); err != nil {
		return err
	}
	for _, msg := range result.DebugLog {
		fmt.Fprintf(cmd.ErrOrStderr(), "utag.DB: %s\n", msg)
	}
	return nil
}
