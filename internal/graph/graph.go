// Package graph runs a fixed directed graph of named steps over a shared
// pipeline state, one pass at a time.
package graph

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/lucasnoah/ragdebug/internal/pipeline"
)

// ErrEntryNotRegistered is returned by Build when the entry node is unset
// or names a node that was never added.
var ErrEntryNotRegistered = errors.New("entry point is not registered")

// Handler executes one node against the run state.
type Handler func(ctx context.Context, st *pipeline.State) Outcome

// HaltReason says why a pass stopped.
type HaltReason string

const (
	HaltNoSuccessor HaltReason = "no_successor"
	HaltDiagnostic  HaltReason = "diagnostic"
	HaltLoop        HaltReason = "loop"
	HaltUnknownNode HaltReason = "unknown_node"
)

// PassReport describes a single pass.
type PassReport struct {
	Visited []string
	Halt    HaltReason
	// Node is the node the halt refers to: the unknown node for
	// HaltUnknownNode, the node that would have repeated for HaltLoop.
	Node string
}

// Builder collects nodes and edges before a Graph is frozen by Build.
type Builder struct {
	nodes map[string]Handler
	edges map[string][]string
	entry string
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		nodes: make(map[string]Handler),
		edges: make(map[string][]string),
	}
}

// AddNode registers a handler under name, replacing any previous one.
func (b *Builder) AddNode(name string, h Handler) *Builder {
	b.nodes[name] = h
	return b
}

// AddEdge appends dst to the ordered successors of src.
func (b *Builder) AddEdge(src, dst string) *Builder {
	b.edges[src] = append(b.edges[src], dst)
	return b
}

// SetEntry names the node every pass starts from.
func (b *Builder) SetEntry(name string) *Builder {
	b.entry = name
	return b
}

// Build validates the definition and returns an immutable Graph.
func (b *Builder) Build(opts ...Option) (*Graph, error) {
	if b.entry == "" {
		return nil, ErrEntryNotRegistered
	}
	if _, ok := b.nodes[b.entry]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrEntryNotRegistered, b.entry)
	}

	g := &Graph{
		nodes:  make(map[string]Handler, len(b.nodes)),
		edges:  make(map[string][]string, len(b.edges)),
		entry:  b.entry,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for name, h := range b.nodes {
		g.nodes[name] = h
	}
	for src, dsts := range b.edges {
		g.edges[src] = append([]string(nil), dsts...)
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Option configures a Graph at build time.
type Option func(*Graph)

// WithLogger sets the logger used for step tracing.
func WithLogger(l *slog.Logger) Option {
	return func(g *Graph) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithObserver registers a callback invoked after every node execution.
func WithObserver(fn func(node string, elapsed time.Duration)) Option {
	return func(g *Graph) {
		g.observe = fn
	}
}

// Graph is a frozen node/edge definition. It is safe to run several
// passes sequentially; it holds no per-pass state.
type Graph struct {
	nodes   map[string]Handler
	edges   map[string][]string
	entry   string
	logger  *slog.Logger
	observe func(node string, elapsed time.Duration)
}

// Entry returns the entry node name.
func (g *Graph) Entry() string {
	return g.entry
}

// Successors returns the declared outgoing edges of node, in order.
func (g *Graph) Successors(node string) []string {
	return append([]string(nil), g.edges[node]...)
}

type transition struct {
	from, to string
}

// RunOnePass walks the graph from the entry node until a node yields no
// successor, a node emits a Diagnostic, a node is unknown, or a
// (node, next) transition repeats. st is updated in place.
func (g *Graph) RunOnePass(ctx context.Context, st *pipeline.State) PassReport {
	var report PassReport
	visited := make(map[transition]bool)
	current := g.entry

	for {
		h, ok := g.nodes[current]
		if !ok {
			g.logger.Warn("halting pass at unregistered node", "node", current)
			report.Halt = HaltUnknownNode
			report.Node = current
			return report
		}

		report.Visited = append(report.Visited, current)
		out := g.invoke(ctx, current, h, st)

		var next string
		switch o := out.(type) {
		case Diagnostic:
			st.Diagnostic = o.Message
			st.Validation = &pipeline.Validation{Success: false, Message: o.Message}
			g.logger.Debug("diagnostic outcome, stopping pass", "node", current)
			report.Halt = HaltDiagnostic
			report.Node = current
			return report
		case Redirect:
			if o.State != nil && o.State != st {
				*st = *o.State
			}
			next = o.Next
		case Continue:
			merge(st, o.Delta)
			next = o.Delta.NextNode
		case Mutated, nil:
		}

		if next == "" {
			next = st.NextNode
		}
		st.NextNode = ""
		if next == "" {
			if out := g.edges[current]; len(out) > 0 {
				next = out[0]
			}
		}
		if next == "" {
			report.Halt = HaltNoSuccessor
			return report
		}

		t := transition{from: current, to: next}
		if visited[t] {
			g.logger.Warn("transition repeated, halting pass", "from", current, "to", next)
			report.Halt = HaltLoop
			report.Node = next
			return report
		}
		visited[t] = true

		g.logger.Debug("step", "from", current, "to", next, "attempt", st.Attempt)
		current = next
	}
}

// invoke runs a handler, turning a panic into a note on the execution result.
func (g *Graph) invoke(ctx context.Context, node string, h Handler, st *pipeline.State) (out Outcome) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("node panicked", "node", node, "panic", r)
			st.Note(node+"_panic", fmt.Sprint(r))
			out = Mutated{}
		}
		if g.observe != nil {
			g.observe(node, time.Since(start))
		}
	}()
	return h(ctx, st)
}

// merge applies the allow-listed fields of d to st.
func merge(st *pipeline.State, d Delta) {
	if d.PatchText != nil {
		st.PatchText = *d.PatchText
	}
	if d.ExecutionResult != nil {
		st.ExecutionResult = d.ExecutionResult
	}
	if d.RootCauseSummary != nil {
		st.RootCauseSummary = *d.RootCauseSummary
	}
	if d.NextNode != "" {
		st.NextNode = d.NextNode
	}
}
