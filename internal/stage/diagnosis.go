package stage

import (
	"context"
	"strings"

	"github.com/lucasnoah/ragdebug/internal/graph"
	"github.com/lucasnoah/ragdebug/internal/llm"
	"github.com/lucasnoah/ragdebug/internal/pipeline"
	"github.com/lucasnoah/ragdebug/internal/prompt"
)

const noDocs = "No docs found."

// JoinDocs joins the first six snippets with blank lines, or returns
// placeholder when there are none.
func JoinDocs(docs []string, placeholder string) string {
	if len(docs) == 0 {
		return placeholder
	}
	if len(docs) > maxDocs {
		docs = docs[:maxDocs]
	}
	return strings.Join(docs, "\n\n")
}

// Diagnose asks the collaborator for a short root-cause summary.
func Diagnose(ctx context.Context, c llm.Completer, lib *prompt.Library, errorLog string, docs []string) (string, error) {
	p, err := lib.Render(prompt.Diagnose, prompt.Vars{
		"error_log": errorLog,
		"docs":      JoinDocs(docs, noDocs),
	})
	if err != nil {
		return "", err
	}
	return c.Complete(ctx, p)
}

// analyze never fails the pass: a collaborator fault is noted and the
// root-cause summary is left as it was.
func (n *nodes) analyze(ctx context.Context, st *pipeline.State) graph.Outcome {
	summary, err := Diagnose(ctx, n.Completer, n.Prompts, st.ErrorLog, st.RetrievedDocs)
	if err != nil {
		n.Logger.Warn("diagnosis failed", "attempt", st.Attempt, "error", err)
		st.Note("analyze_error", err.Error())
		return graph.Mutated{}
	}
	n.logf("root cause summary ready (%d chars)", len(summary))
	return graph.Continue{Delta: graph.Delta{RootCauseSummary: strPtr(summary)}}
}
