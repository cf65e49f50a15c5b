package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/solatis/extgen/internal/loader"
	"github.com/solatis/extgen/internal/types"
)

var renderCmd = &cobra.Command{
	Use:   "render FILE...",
	Short: "Print generated snippets to stdout",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)
	addCodegenFlags(renderCmd)
	renderCmd.Flags().Int("id", 0, "render only the extension with this id")
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	conv, err := converterFromFlags(cmd, cfg)
	if err != nil {
		return err
	}

	exts, err := loader.LoadFiles(args...)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("id") {
		id, _ := cmd.Flags().GetInt("id")
		if exts = filterByID(exts, types.ExtensionID(id)); len(exts) == 0 {
			return fmt.Errorf("extension %d: %w", id, types.ErrNoExtensions)
		}
	}

	out := cmd.OutOrStdout()
	for i := range exts {
		snippet, err := conv.Convert(&exts[i])
		if err != nil {
			return err
		}
		if !snippet.Generated {
			logger.Warn("extension skipped",
				zap.Int("extension_id", int(exts[i].ID)),
				zap.String("name", exts[i].Name),
				zap.String("reason", snippet.Reason),
			)
			continue
		}
		fmt.Fprint(out, snippet.Source)
	}
	return nil
}

func filterByID(exts []types.Extension, id types.ExtensionID) []types.Extension {
	var out []types.Extension
	for _, e := range exts {
		if e.ID == id {
			out = append(out, e)
		}
	}
	return out
}

// findOne returns the single extension matching id, or the only extension
// when id is zero.
func findOne(exts []types.Extension, id types.ExtensionID) (*types.Extension, error) {
	if id == 0 {
		if len(exts) != 1 {
			return nil, errors.New("file holds several extensions; choose one with --id")
		}
		return &exts[0], nil
	}
	matched := filterByID(exts, id)
	switch len(matched) {
	case 0:
		return nil, fmt.Errorf("extension %d: %w", id, types.ErrNoExtensions)
	case 1:
		return &matched[0], nil
	default:
		return nil, fmt.Errorf("extension %d: %w", id, types.ErrDuplicateExtension)
	}
}
