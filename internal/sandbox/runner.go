// Package sandbox executes generated snippets in an embedded JavaScript
// runtime.
//
// The runtime stands in for the tag container: it provides only what
// generated code touches, the event arguments (a, b), utag.DB and window.
// It is a test double for the host platform, not a model of it.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dop251/goja"
	"go.uber.org/zap"
)

// Host describes the environment one snippet run sees.
type Host struct {
	EventType string    // bound to a
	Data      EventData // bound to b and utag.data
	Sink      DebugSink // optional, receives utag.DB messages
}

// Result reports what a run produced besides the mutations on Host.Data.
type Result struct {
	DebugLog []string
	Duration time.Duration
}

// Runner executes snippets. Each run gets a fresh runtime, so a Runner is
// safe for concurrent use.
type Runner struct {
	timeout time.Duration
	logger  *zap.Logger
}

// NewRunner creates a runner. A zero timeout disables the runner's own
// deadline; the caller's context still applies.
func NewRunner(timeout time.Duration, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{timeout: timeout, logger: logger}
}

// ErrInterrupted indicates a run was stopped by timeout or cancellation.
var ErrInterrupted = errors.New("snippet execution interrupted")

// Run executes source against host. Errors caught by the snippet's own
// try/catch surface in Result.DebugLog, not as a returned error.
func (r *Runner) Run(ctx context.Context, source string, host Host) (*Result, error) {
	if host.Data == nil {
		return nil, fmt.Errorf("host data cannot be nil")
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	rt := goja.New()
	result := &Result{}

	if err := r.bindGlobals(rt, host, result); err != nil {
		return nil, fmt.Errorf("failed to set up runtime: %w", err)
	}

	// Interrupt JS execution when context is cancelled
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			rt.Interrupt(ctx.Err())
		case <-done:
		}
	}()

	start := time.Now()
	_, err := rt.RunString(source)
	result.Duration = time.Since(start)

	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			r.logger.Warn("snippet interrupted", zap.Duration("after", result.Duration))
			return result, fmt.Errorf("%w: %v", ErrInterrupted, interrupted.Value())
		}
		return result, fmt.Errorf("snippet raised: %w", err)
	}

	return result, nil
}

func (r *Runner) bindGlobals(rt *goja.Runtime, host Host, result *Result) error {
	data := rt.NewDynamicObject(&dynamicData{rt: rt, data: host.Data})

	utag := rt.NewObject()
	db := func(call goja.FunctionCall) goja.Value {
		msg := call.Argument(0).String()
		result.DebugLog = append(result.DebugLog, msg)
		r.logger.Debug("utag.DB", zap.String("message", msg))
		if host.Sink != nil {
			host.Sink.DB(msg)
		}
		return goja.Undefined()
	}
	if err := utag.Set("DB", db); err != nil {
		return err
	}
	if err := utag.Set("data", data); err != nil {
		return err
	}

	globals := map[string]any{
		"a":      host.EventType,
		"b":      data,
		"utag":   utag,
		"window": rt.GlobalObject(),
	}
	for name, v := range globals {
		if err := rt.Set(name, v); err != nil {
			return fmt.Errorf("global %s: %w", name, err)
		}
	}
	return nil
}
