// Package orchestrator is the pipeline controller: it drives graph passes
// until a patch validates, the input is rejected, or attempts run out.
package orchestrator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/lucasnoah/ragdebug/internal/config"
	"github.com/lucasnoah/ragdebug/internal/graph"
	"github.com/lucasnoah/ragdebug/internal/metrics"
	"github.com/lucasnoah/ragdebug/internal/pipeline"
	"github.com/lucasnoah/ragdebug/internal/stage"
)

// Options configures an Orchestrator.
type Options struct {
	MaxAttempts int
	// Pacing is the pause between attempts. Negative disables it.
	Pacing time.Duration
	Logger *slog.Logger
}

// Orchestrator runs debugging sessions. It holds no per-run state, so one
// value may serve concurrent runs.
type Orchestrator struct {
	deps        stage.Deps
	maxAttempts int
	pacing      time.Duration
	logger      *slog.Logger
	build       func(opts ...graph.Option) (*graph.Graph, error)
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewOrchestrator creates an Orchestrator over the given stage collaborators.
func NewOrchestrator(deps stage.Deps, opts Options) *Orchestrator {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = config.DefaultMaxAttempts
	}
	if opts.Pacing == 0 {
		opts.Pacing = config.DefaultPacing
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if deps.Logger == nil {
		deps.Logger = opts.Logger
	}
	return &Orchestrator{
		deps:        deps,
		maxAttempts: opts.MaxAttempts,
		pacing:      opts.Pacing,
		logger:      opts.Logger,
		build:       deps.BuildGraph,
		sleep:       sleepCtx,
	}
}

// RunOpts holds the inputs of one debugging run.
type RunOpts struct {
	ErrorLog        string
	UserCodeSnippet string
	// MaxAttempts overrides the orchestrator default when positive.
	MaxAttempts int
}

// Run debugs one error log. It never returns an error: every outcome,
// including an unbuildable graph, is described by the Result.
func (o *Orchestrator) Run(ctx context.Context, opts RunOpts) *pipeline.Result {
	runID := ulid.Make().String()
	log := o.logger.With("run_id", runID)

	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = o.maxAttempts
	}

	res := o.run(ctx, log, opts, maxAttempts)
	res.RunID = runID
	metrics.ObserveRun(res.Status, res.Reason, res.Attempts)
	log.Info("run finished", "status", res.Status, "reason", res.Reason, "attempts", res.Attempts)
	return res
}

func (o *Orchestrator) run(ctx context.Context, log *slog.Logger, opts RunOpts, maxAttempts int) *pipeline.Result {
	history := []pipeline.AttemptRecord{}

	g, err := o.build(graph.WithObserver(metrics.ObserveNode))
	if err != nil {
		log.Error("graph build failed", "error", err)
		return &pipeline.Result{
			Status:  pipeline.StatusFailed,
			Message: fmt.Sprintf("graph build failed: %v", err),
			History: history,
		}
	}

	st := pipeline.NewState(opts.ErrorLog, opts.UserCodeSnippet)
	attempt := 0
	for attempt < maxAttempts {
		attempt++
		st.BeginAttempt(attempt)
		log.Info("attempt started", "attempt", attempt, "max_attempts", maxAttempts)

		report := g.RunOnePass(ctx, st)
		log.Debug("pass finished", "attempt", attempt, "visited", report.Visited, "halt", report.Halt)

		if report.Halt == graph.HaltDiagnostic || st.Diagnostic != "" {
			msg := st.Diagnostic
			if msg == "" {
				msg = fmt.Sprintf("Stopped by %s without a diagnostic message.", report.Node)
			}
			return &pipeline.Result{
				Status:            pipeline.StatusFailed,
				Reason:            pipeline.ReasonDiagnosticOnly,
				DiagnosticMessage: msg,
				Attempts:          attempt,
				History:           history,
			}
		}

		history = append(history, st.Snapshot())

		if st.Validation != nil && st.Validation.Success {
			return &pipeline.Result{
				Status:           pipeline.StatusFixed,
				Attempts:         attempt,
				FinalPatch:       st.PatchText,
				ExecutionResult:  st.ExecutionResult.Clone(),
				RootCauseSummary: st.RootCauseSummary,
				History:          history,
			}
		}

		msg := ""
		if st.Validation != nil {
			msg = st.Validation.Message
		}
		log.Info("attempt failed", "attempt", attempt, "validation", msg)
		st.Query = st.ErrorLog + "\n\nExecution stderr:\n" + st.Stderr()

		if attempt < maxAttempts && o.pacing > 0 {
			if err := o.sleep(ctx, o.pacing); err != nil {
				log.Warn("run cancelled between attempts", "attempt", attempt, "error", err)
				return &pipeline.Result{
					Status:   pipeline.StatusFailed,
					Attempts: attempt,
					Message:  fmt.Sprintf("Run cancelled after %d attempt(s): %v", attempt, err),
					History:  history,
				}
			}
		}
	}

	return &pipeline.Result{
		Status:   pipeline.StatusFailed,
		Attempts: attempt,
		Message:  fmt.Sprintf("Max attempts (%d) reached.", maxAttempts),
		History:  history,
	}
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
