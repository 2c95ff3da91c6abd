package graph

import "github.com/lucasnoah/ragdebug/internal/pipeline"

// Outcome is what a node handler hands back to the runner. It is one of
// Continue, Redirect, Diagnostic or Mutated.
type Outcome interface {
	outcome()
}

// Delta is a partial state update. Only these fields can be merged into
// the run state by the runner; a nil pointer leaves the field untouched.
type Delta struct {
	PatchText        *string
	ExecutionResult  *pipeline.ExecutionResult
	RootCauseSummary *string
	NextNode         string
}

// Continue merges Delta into the state and follows the resolved successor.
type Continue struct {
	Delta Delta
}

// Redirect replaces the state wholesale (when State is non-nil) and jumps to Next.
type Redirect struct {
	State *pipeline.State
	Next  string
}

// Diagnostic stops the pass: the input is not something the pipeline can fix.
type Diagnostic struct {
	Message string
}

// Mutated means the handler changed the state in place.
type Mutated struct{}

func (Continue) outcome()   {}
func (Redirect) outcome()   {}
func (Diagnostic) outcome() {}
func (Mutated) outcome()    {}

// Goto is shorthand for a Continue that only overrides the next node.
func Goto(next string) Continue {
	return Continue{Delta: Delta{NextNode: next}}
}
