package stage

import (
	"context"
	"maps"
	"strings"

	"github.com/lucasnoah/ragdebug/internal/graph"
	"github.com/lucasnoah/ragdebug/internal/pipeline"
)

// execute runs the current patch in the sandbox. Notes left by earlier
// nodes in this pass are carried onto the new result.
func (n *nodes) execute(ctx context.Context, st *pipeline.State) graph.Outcome {
	if strings.TrimSpace(st.PatchText) == "" {
		st.Note("error", "No patch to execute.")
		return graph.Redirect{Next: NodeValidate}
	}

	res := n.Executor.Execute(ctx, st.PatchText, n.Timeout)
	if st.ExecutionResult != nil && len(st.ExecutionResult.Notes) > 0 {
		notes := maps.Clone(st.ExecutionResult.Notes)
		maps.Copy(notes, res.Notes)
		res.Notes = notes
	}
	n.logf("sandbox exited with code %d", res.ReturnCode)

	if res.CriticalFailure {
		st.ExecutionResult = &res
		return graph.Redirect{Next: NodeRetrieve}
	}
	return graph.Continue{Delta: graph.Delta{ExecutionResult: &res}}
}
