package orchestrator

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucasnoah/ragdebug/internal/config"
	"github.com/lucasnoah/ragdebug/internal/ingest"
	"github.com/lucasnoah/ragdebug/internal/llm"
	"github.com/lucasnoah/ragdebug/internal/pipeline"
	"github.com/lucasnoah/ragdebug/internal/retrieval"
	"github.com/lucasnoah/ragdebug/internal/sandbox"
	"github.com/lucasnoah/ragdebug/internal/stage"
)

func requirePython(t *testing.T) string {
	t.Helper()
	for _, name := range []string{"python3", "python"} {
		if p, err := exec.LookPath(name); err == nil {
			return p
		}
	}
	t.Skip("no python interpreter on PATH")
	return ""
}

// e2eEnv wires the real SQLite store, ingester and local sandbox.
func e2eEnv(t *testing.T) *retrieval.Gateway {
	t.Helper()
	docs := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(docs, "zero.md"),
		[]byte("ZeroDivisionError is raised when the divisor is zero. Guard the division with an if check."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(docs, "keys.md"),
		[]byte("KeyError means a dict lookup missed. Use dict.get with a default."), 0o644))

	store, err := retrieval.OpenSQLite(filepath.Join(t.TempDir(), "rag.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	rep, err := ingest.New(store, config.IngestConfig{ChunkSize: 200, ChunkOverlap: 20, Patterns: config.DefaultPatterns}, nil).
		Run(context.Background(), docs)
	require.NoError(t, err)
	require.Equal(t, 2, rep.Loaded)

	return retrieval.NewGateway(store, 6, nil)
}

// replies answers diagnose prompts with a fixed summary and returns the
// patch replies in order.
func replies(patches ...string) (llm.Completer, *[]string) {
	var mu sync.Mutex
	var prompts []string
	i := 0
	return llm.CompleterFunc(func(_ context.Context, p string) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		prompts = append(prompts, p)
		if strings.HasPrefix(p, "You are an expert Python debugging assistant.") {
			return "The divisor is zero.", nil
		}
		out := patches[min(i, len(patches)-1)]
		i++
		return out, nil
	}), &prompts
}

func TestE2E_FixOnSecondAttempt(t *testing.T) {
	python := requirePython(t)
	gw := e2eEnv(t)
	completer, prompts := replies(
		"```python\nimport sys\nprint('still broken', file=sys.stderr)\nsys.exit(3)\n```",
		"```python\nb = 0\nprint(0 if b == 0 else 1 / b)\n```",
	)

	o := NewOrchestrator(stage.Deps{
		Retriever: gw,
		Completer: completer,
		Executor:  sandbox.NewLocal(python, &sandbox.ExecRunner{}, nil),
		Timeout:   10 * time.Second,
	}, Options{MaxAttempts: 3, Pacing: time.Millisecond})

	res := o.Run(context.Background(), RunOpts{ErrorLog: traceback, UserCodeSnippet: "print(1/0)"})

	require.Equal(t, pipeline.StatusFixed, res.Status, res.Message)
	assert.Equal(t, 2, res.Attempts)
	require.Len(t, res.History, 2)

	first := res.History[0]
	assert.Equal(t, 3, first.ExecutionResult.ReturnCode)
	assert.Contains(t, first.ExecutionResult.Stderr, "still broken")
	assert.Equal(t, "0\n", res.ExecutionResult.Stdout)
	assert.Equal(t, "The divisor is zero.", res.RootCauseSummary)

	// The first diagnose prompt carries the ingested ZeroDivisionError doc.
	require.NotEmpty(t, *prompts)
	assert.Contains(t, (*prompts)[0], "Guard the division")
}

func TestE2E_TimeoutCountsAsFailedAttempt(t *testing.T) {
	python := requirePython(t)
	gw := e2eEnv(t)
	completer, _ := replies("```python\nimport time\ntime.sleep(5)\n```")

	o := NewOrchestrator(stage.Deps{
		Retriever: gw,
		Completer: completer,
		Executor:  sandbox.NewLocal(python, &sandbox.ExecRunner{}, nil),
		Timeout:   200 * time.Millisecond,
	}, Options{MaxAttempts: 1})

	res := o.Run(context.Background(), RunOpts{ErrorLog: traceback})

	assert.Equal(t, pipeline.StatusFailed, res.Status)
	assert.Equal(t, "Max attempts (1) reached.", res.Message)
	require.Len(t, res.History, 1)
	assert.Equal(t, -1, res.History[0].ExecutionResult.ReturnCode)
	assert.True(t, strings.HasPrefix(res.History[0].ExecutionResult.Stderr, "TIMEOUT:"))
}

func TestE2E_EmptyStoreStillRuns(t *testing.T) {
	python := requirePython(t)
	completer, prompts := replies("print('ok')")

	o := NewOrchestrator(stage.Deps{
		Retriever: retrieval.NewGateway(retrieval.Empty{}, 6, nil),
		Completer: completer,
		Executor:  sandbox.NewLocal(python, &sandbox.ExecRunner{}, nil),
		Timeout:   10 * time.Second,
	}, Options{MaxAttempts: 1})

	res := o.Run(context.Background(), RunOpts{ErrorLog: traceback})

	assert.True(t, res.Fixed())
	assert.Contains(t, (*prompts)[0], "No docs found.")
}
