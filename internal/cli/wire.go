package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/lucasnoah/ragdebug/internal/config"
	"github.com/lucasnoah/ragdebug/internal/llm"
	"github.com/lucasnoah/ragdebug/internal/orchestrator"
	"github.com/lucasnoah/ragdebug/internal/prompt"
	"github.com/lucasnoah/ragdebug/internal/retrieval"
	"github.com/lucasnoah/ragdebug/internal/sandbox"
	"github.com/lucasnoah/ragdebug/internal/stage"
)

// buildOrchestrator wires the configured store, model client and sandbox
// into an Orchestrator. The returned close func releases the store.
func buildOrchestrator(ctx context.Context, cfg *config.Config, log *slog.Logger, progress io.Writer) (*orchestrator.Orchestrator, func() error, error) {
	store, err := retrieval.Open(ctx, cfg.Retrieval, log)
	if err != nil {
		return nil, nil, fmt.Errorf("open retrieval store: %w", err)
	}

	completer, err := llm.New(cfg.LLM, log)
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("llm client: %w", err)
	}

	executor, err := sandbox.New(cfg.Sandbox, log)
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("sandbox: %w", err)
	}

	deps := stage.Deps{
		Retriever: retrieval.NewGateway(store, cfg.Retrieval.TopK, log),
		Completer: completer,
		Executor:  executor,
		Prompts:   prompt.NewLibrary(cfg.Prompts.TemplateDir),
		Timeout:   cfg.Sandbox.TimeoutDuration(),
		Logger:    log,
		Progress:  progress,
	}
	pacing := cfg.PacingDuration()
	if pacing == 0 {
		pacing = -1 // explicit "0s" disables pacing
	}
	o := orchestrator.NewOrchestrator(deps, orchestrator.Options{
		MaxAttempts: cfg.MaxAttempts,
		Pacing:      pacing,
		Logger:      log,
	})
	return o, store.Close, nil
}
