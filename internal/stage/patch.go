package stage

import (
	"context"
	"regexp"
	"strings"

	"github.com/lucasnoah/ragdebug/internal/graph"
	"github.com/lucasnoah/ragdebug/internal/llm"
	"github.com/lucasnoah/ragdebug/internal/pipeline"
	"github.com/lucasnoah/ragdebug/internal/prompt"
)

// NotAnErrorMessage is the diagnostic returned when the input fails the gate.
const NotAnErrorMessage = "The provided input does not look like a valid Python error log or traceback.\n" +
	"Please provide the full Python error message (including any 'Traceback' lines) " +
	"and, if possible, the relevant code snippet."

// minErrorLen is the trimmed length an error log must exceed.
const minErrorLen = 10

var errorSignals = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Traceback \(most recent call last\):`),
	regexp.MustCompile(`(?i)File ".*", line \d+`),
	regexp.MustCompile(`(?i)(Error|Exception):`),
}

// LooksLikeError reports whether text plausibly contains a Python failure trace.
func LooksLikeError(text string) bool {
	if len(strings.TrimSpace(text)) <= minErrorLen {
		return false
	}
	for _, re := range errorSignals {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// PatchRequest carries everything the patch prompt needs.
type PatchRequest struct {
	ErrorLog         string
	RootCauseSummary string
	Docs             []string
	UserCode         string
	PreviousStderr   string
}

// PatchResult is either a diagnostic (input rejected) or a patch.
type PatchResult struct {
	Diagnostic string
	PatchText  string
}

// GeneratePatch gates the input and, when it passes, asks the collaborator
// for a minimal fix. A rejected input never reaches the collaborator.
func GeneratePatch(ctx context.Context, c llm.Completer, lib *prompt.Library, req PatchRequest) (PatchResult, error) {
	if !LooksLikeError(req.ErrorLog) {
		return PatchResult{Diagnostic: NotAnErrorMessage}, nil
	}

	userCode := req.UserCode
	if strings.TrimSpace(userCode) == "" {
		userCode = "None"
	}
	p, err := lib.Render(prompt.Patch, prompt.Vars{
		"error_log":       req.ErrorLog,
		"root_cause":      req.RootCauseSummary,
		"docs":            JoinDocs(req.Docs, ""),
		"user_code":       userCode,
		"previous_stderr": req.PreviousStderr,
	})
	if err != nil {
		return PatchResult{}, err
	}

	out, err := c.Complete(ctx, p)
	if err != nil {
		return PatchResult{}, err
	}
	return PatchResult{PatchText: strings.TrimSpace(out)}, nil
}

// generate turns a rejected input into a Diagnostic outcome. On a
// collaborator fault the patch is cleared so a stale one is not re-run.
func (n *nodes) generate(ctx context.Context, st *pipeline.State) graph.Outcome {
	res, err := GeneratePatch(ctx, n.Completer, n.Prompts, PatchRequest{
		ErrorLog:         st.ErrorLog,
		RootCauseSummary: st.RootCauseSummary,
		Docs:             st.RetrievedDocs,
		UserCode:         st.UserCodeSnippet,
		PreviousStderr:   st.PreviousStderr,
	})
	if err != nil {
		n.Logger.Warn("patch generation failed", "attempt", st.Attempt, "error", err)
		st.Note("generate_error", err.Error())
		return graph.Continue{Delta: graph.Delta{PatchText: strPtr("")}}
	}
	if res.Diagnostic != "" {
		n.logf("input rejected: not a Python error log")
		return graph.Diagnostic{Message: res.Diagnostic}
	}
	n.logf("patch generated (%d chars)", len(res.PatchText))
	return graph.Continue{Delta: graph.Delta{PatchText: strPtr(res.PatchText)}}
}
