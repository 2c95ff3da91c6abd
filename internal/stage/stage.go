// Package stage holds the five pipeline nodes and wires them into the
// debugging graph.
package stage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/lucasnoah/ragdebug/internal/graph"
	"github.com/lucasnoah/ragdebug/internal/llm"
	"github.com/lucasnoah/ragdebug/internal/prompt"
	"github.com/lucasnoah/ragdebug/internal/sandbox"
)

// Node names.
const (
	NodeRetrieve = "retrieve"
	NodeAnalyze  = "analyze"
	NodeGenerate = "generate"
	NodeExecute  = "execute"
	NodeValidate = "validate"
)

// maxDocs is how many retrieved snippets go into a prompt.
const maxDocs = 6

// Retriever returns snippets relevant to a query, most relevant first.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]string, error)
}

// Deps are the collaborators the nodes call out to.
type Deps struct {
	Retriever Retriever
	Completer llm.Completer
	Executor  sandbox.Executor
	Prompts   *prompt.Library
	// Timeout bounds a single sandbox execution.
	Timeout time.Duration
	Logger  *slog.Logger
	// Progress receives one line per node when set (e.g. os.Stderr).
	Progress io.Writer
}

type nodes struct {
	Deps
}

// BuildGraph returns the fixed debugging graph:
// retrieve -> analyze -> generate -> execute -> validate.
func (d Deps) BuildGraph(opts ...graph.Option) (*graph.Graph, error) {
	if d.Retriever == nil || d.Completer == nil || d.Executor == nil {
		return nil, fmt.Errorf("stage deps: retriever, completer and executor are required")
	}
	if d.Logger == nil {
		d.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if d.Prompts == nil {
		d.Prompts = prompt.NewLibrary("")
	}
	n := &nodes{Deps: d}

	return graph.NewBuilder().
		AddNode(NodeRetrieve, n.retrieve).
		AddNode(NodeAnalyze, n.analyze).
		AddNode(NodeGenerate, n.generate).
		AddNode(NodeExecute, n.execute).
		AddNode(NodeValidate, n.validate).
		AddEdge(NodeRetrieve, NodeAnalyze).
		AddEdge(NodeAnalyze, NodeGenerate).
		AddEdge(NodeGenerate, NodeExecute).
		AddEdge(NodeExecute, NodeValidate).
		SetEntry(NodeRetrieve).
		Build(append([]graph.Option{graph.WithLogger(d.Logger)}, opts...)...)
}

// logf prints a progress line if a progress writer is configured.
func (n *nodes) logf(format string, args ...interface{}) {
	if n.Progress != nil {
		fmt.Fprintf(n.Progress, "  → "+format+"\n", args...)
	}
}

func strPtr(s string) *string { return &s }
