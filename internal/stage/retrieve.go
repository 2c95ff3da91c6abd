package stage

import (
	"context"

	"github.com/lucasnoah/ragdebug/internal/graph"
	"github.com/lucasnoah/ragdebug/internal/pipeline"
)

// retrieve fills RetrievedDocs from the current query. A retrieval fault
// skips straight to validation.
func (n *nodes) retrieve(ctx context.Context, st *pipeline.State) graph.Outcome {
	query := st.Query
	if query == "" {
		query = st.ErrorLog
	}

	docs, err := n.Retriever.Retrieve(ctx, query)
	if err != nil {
		n.Logger.Warn("retrieval failed", "attempt", st.Attempt, "error", err)
		st.Note("retrieve_error", err.Error())
		return graph.Redirect{Next: NodeValidate}
	}

	st.RetrievedDocs = docs
	n.logf("retrieved %d document(s)", len(docs))
	return graph.Mutated{}
}
