// Package build converts batches of extensions into snippet files.
package build

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/solatis/extgen/internal/codegen"
	"github.com/solatis/extgen/internal/core/catalog"
	"github.com/solatis/extgen/internal/metrics"
	"github.com/solatis/extgen/internal/types"
)

/*
 * Batch build.
 *
 * Extensions convert concurrently, bounded by Options.Workers. Results keep
 * input order regardless of completion order.
 *
 * Outcomes per extension:
 *   - generated: written to <out_dir>/<id>_<slug>.js and recorded
 *   - skipped: refused by the converter, logged at warn and recorded
 *   - unsupported operator: cancels the remaining work and fails the run
 *
 * With a catalog, Changed compares the checksum against the latest
 * generated snippet for the same extension id. Without one there is no
 * baseline and every generated snippet counts as changed.
 */

// statusFailed labels metrics for conversions that aborted the run.
const statusFailed = "failed"

// Catalog is the subset of *catalog.Store the builder records into.
type Catalog interface {
	BeginRun(ctx context.Context, runID types.RunID, workspaceID string, extensionCount int) error
	PreviousChecksum(ctx context.Context, workspaceID string, id types.ExtensionID) (string, bool, error)
	RecordSnippet(ctx context.Context, rec *catalog.Record) error
	FinishRun(ctx context.Context, runID types.RunID, sum catalog.Summary) error
}

// Options configure a Builder.
type Options struct {
	OutDir      string // empty disables file output
	Workers     int
	WorkspaceID string
}

// Result is the outcome for one extension.
type Result struct {
	Snippet *codegen.Snippet
	Path    string // written file, empty when skipped or OutDir is unset
	Changed bool
}

// Report summarises a build.
type Report struct {
	RunID     types.RunID
	Results   []Result
	Generated int
	Skipped   int
	Changed   int
}

// Builder runs batch builds. Catalog may be nil.
type Builder struct {
	conv    *codegen.Converter
	catalog Catalog
	logger  *zap.Logger
	opts    Options
}

// NewBuilder creates a builder. A nil logger disables logging.
func NewBuilder(conv *codegen.Converter, cat Catalog, logger *zap.Logger, opts Options) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Builder{conv: conv, catalog: cat, logger: logger, opts: opts}
}

// Build converts exts and returns a report whose results follow input order.
func (b *Builder) Build(ctx context.Context, exts []types.Extension) (*Report, error) {
	if len(exts) == 0 {
		return nil, types.ErrNoExtensions
	}
	if err := checkDuplicateIDs(exts); err != nil {
		return nil, err
	}
	if b.opts.OutDir != "" {
		if err := os.MkdirAll(b.opts.OutDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	report := &Report{
		RunID:   types.NewRunID(),
		Results: make([]Result, len(exts)),
	}
	logger := b.logger.With(zap.String("run_id", string(report.RunID)))

	if b.catalog != nil {
		if err := b.catalog.BeginRun(ctx, report.RunID, b.opts.WorkspaceID, len(exts)); err != nil {
			return nil, err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.Workers)
	for i := range exts {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			res, err := b.buildOne(gctx, report.RunID, i, &exts[i], logger)
			if err != nil {
				return err
			}
			report.Results[i] = res
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	// Files are released only when every extension converted.
	if err == nil {
		err = writeFiles(report.Results)
	}

	for _, r := range report.Results {
		switch {
		case r.Snippet == nil:
		case r.Snippet.Generated:
			report.Generated++
			if r.Changed {
				report.Changed++
			}
		default:
			report.Skipped++
		}
	}

	if b.catalog != nil {
		sum := catalog.Summary{Generated: report.Generated, Skipped: report.Skipped, Changed: report.Changed, Err: err}
		if ferr := b.catalog.FinishRun(context.WithoutCancel(ctx), report.RunID, sum); ferr != nil {
			err = errors.Join(err, ferr)
		}
	}

	if err != nil {
		logger.Error("build failed", zap.Error(err))
		return nil, err
	}

	logger.Info("build finished",
		zap.Int("extensions", len(exts)),
		zap.Int("generated", report.Generated),
		zap.Int("skipped", report.Skipped),
		zap.Int("changed", report.Changed),
	)
	return report, nil
}

func (b *Builder) buildOne(ctx context.Context, runID types.RunID, pos int, ext *types.Extension, logger *zap.Logger) (Result, error) {
	start := time.Now()
	snippet, err := b.conv.Convert(ext)
	if err != nil {
		metrics.IncSnippet(statusFailed)
		metrics.ObserveConvertDuration(time.Since(start), statusFailed)
		return Result{}, err
	}

	res := Result{Snippet: snippet}
	rec := &catalog.Record{
		RunID:       runID,
		Position:    pos,
		ExtensionID: ext.ID,
		Name:        ext.Name,
	}

	if !snippet.Generated {
		metrics.IncSnippet(types.StatusSkipped)
		metrics.ObserveConvertDuration(time.Since(start), types.StatusSkipped)
		logger.Warn("extension skipped",
			zap.Int("extension_id", int(ext.ID)),
			zap.String("name", ext.Name),
			zap.String("reason", snippet.Reason),
		)
		rec.Status = types.StatusSkipped
		rec.Reason = snippet.Reason
		return res, b.record(ctx, rec)
	}

	metrics.IncSnippet(types.StatusGenerated)
	metrics.ObserveConvertDuration(time.Since(start), types.StatusGenerated)

	res.Changed = true
	if b.catalog != nil {
		prev, ok, err := b.catalog.PreviousChecksum(ctx, b.opts.WorkspaceID, ext.ID)
		if err != nil {
			return Result{}, err
		}
		res.Changed = !ok || prev != snippet.Checksum
	}

	if b.opts.OutDir != "" {
		res.Path = filepath.Join(b.opts.OutDir, FileName(ext))
	}

	logger.Debug("extension generated",
		zap.Int("extension_id", int(ext.ID)),
		zap.String("checksum", snippet.Checksum),
		zap.Bool("changed", res.Changed),
	)

	rec.Status = types.StatusGenerated
	rec.Checksum = snippet.Checksum
	rec.Source = snippet.Source
	rec.Changed = res.Changed
	return res, b.record(ctx, rec)
}

func writeFiles(results []Result) error {
	for _, r := range results {
		if r.Path == "" {
			continue
		}
		if err := os.WriteFile(r.Path, []byte(r.Snippet.Source), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", r.Path, err)
		}
	}
	return nil
}

func (b *Builder) record(ctx context.Context, rec *catalog.Record) error {
	if b.catalog == nil {
		return nil
	}
	return b.catalog.RecordSnippet(ctx, rec)
}

// FileName returns the snippet file name for ext: <id>_<slug>.js.
func FileName(ext *types.Extension) string {
	return fmt.Sprintf("%d_%s.js", ext.ID, Slug(ext.Name))
}

// Slug lowercases name and collapses every run of characters other than
// letters and digits into a single underscore.
func Slug(name string) string {
	var sb strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSep && sb.Len() > 0 {
				sb.WriteByte('_')
			}
			pendingSep = false
			sb.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	if sb.Len() == 0 {
		return "extension"
	}
	return sb.String()
}

// checkDuplicateIDs rejects batches where two extensions share an id. The
// id names the output file and keys the catalog baseline.
func checkDuplicateIDs(exts []types.Extension) error {
	seen := make(map[types.ExtensionID]int, len(exts))
	for i := range exts {
		id := exts[i].ID
		if j, dup := seen[id]; dup {
			return fmt.Errorf("extensions #%d and #%d share id %d: %w", j, i, id, types.ErrDuplicateExtension)
		}
		seen[id] = i
	}
	return nil
}
