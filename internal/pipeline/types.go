package pipeline

import "maps"

// Result status and reason values.
const (
	StatusFixed  = "fixed"
	StatusFailed = "failed"

	ReasonDiagnosticOnly = "diagnostic_only"
)

// State is the mutable record carried through one debugging run.
// ErrorLog and UserCodeSnippet are inputs and are never rewritten by a stage.
type State struct {
	ErrorLog        string `json:"error_log"`
	UserCodeSnippet string `json:"user_code_snippet,omitempty"`

	Query            string           `json:"query"`
	RetrievedDocs    []string         `json:"retrieved_docs,omitempty"`
	RootCauseSummary string           `json:"root_cause_summary,omitempty"`
	PatchText        string           `json:"patch_text,omitempty"`
	ExecutionResult  *ExecutionResult `json:"execution_result,omitempty"`
	Validation       *Validation      `json:"validation,omitempty"`
	Diagnostic       string           `json:"diagnostic,omitempty"`
	Attempt          int              `json:"attempt"`

	// PreviousStderr is the stderr of the prior attempt's execution.
	PreviousStderr string `json:"previous_stderr,omitempty"`

	// NextNode overrides the default edge for the step that set it.
	// The graph runner clears it after every step.
	NextNode string `json:"-"`
}

// NewState returns a State seeded from the run inputs.
func NewState(errorLog, userCode string) *State {
	return &State{
		ErrorLog:        errorLog,
		UserCodeSnippet: userCode,
		Query:           errorLog,
	}
}

// Stderr returns the stderr of the last execution, or "" when nothing ran.
func (s *State) Stderr() string {
	if s.ExecutionResult == nil {
		return ""
	}
	return s.ExecutionResult.Stderr
}

// BeginAttempt stamps attempt n and clears the per-attempt outputs of the
// previous pass, keeping its stderr in PreviousStderr.
func (s *State) BeginAttempt(n int) {
	if n > 1 {
		s.PreviousStderr = s.Stderr()
	}
	s.Attempt = n
	s.ExecutionResult = nil
	s.Validation = nil
	s.Diagnostic = ""
	s.NextNode = ""
}

// Note records a side-channel message on the execution result, creating
// an empty (not-run) result if none exists yet.
func (s *State) Note(key, msg string) {
	if s.ExecutionResult == nil {
		s.ExecutionResult = &ExecutionResult{}
	}
	if s.ExecutionResult.Notes == nil {
		s.ExecutionResult.Notes = make(map[string]string)
	}
	s.ExecutionResult.Notes[key] = msg
}

// ExecutionResult is the outcome of running a patch in the sandbox.
// Ran is false when the result only carries notes from failed stages.
type ExecutionResult struct {
	Stdout     string            `json:"stdout"`
	Stderr     string            `json:"stderr"`
	ReturnCode int               `json:"returncode"`
	Ran        bool              `json:"ran"`
	Notes      map[string]string `json:"notes,omitempty"`

	// CriticalFailure asks the graph to go back to retrieval. No shipped
	// executor sets it.
	CriticalFailure bool `json:"critical_failure,omitempty"`
}

// Clone returns a deep copy of r. A nil receiver yields nil.
func (r *ExecutionResult) Clone() *ExecutionResult {
	if r == nil {
		return nil
	}
	c := *r
	c.Notes = maps.Clone(r.Notes)
	return &c
}

// Validation is the verdict on an execution result.
type Validation struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Clone returns a copy of v. A nil receiver yields nil.
func (v *Validation) Clone() *Validation {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// AttemptRecord is the snapshot taken after each completed attempt.
// Records are never modified after they are appended to a history.
type AttemptRecord struct {
	Attempt          int              `json:"attempt"`
	RootCauseSummary string           `json:"root_cause_summary"`
	PatchText        string           `json:"patch_text"`
	ExecutionResult  *ExecutionResult `json:"execution_result"`
	Validation       *Validation      `json:"validation"`
}

// Snapshot builds an AttemptRecord from the current state.
func (s *State) Snapshot() AttemptRecord {
	return AttemptRecord{
		Attempt:          s.Attempt,
		RootCauseSummary: s.RootCauseSummary,
		PatchText:        s.PatchText,
		ExecutionResult:  s.ExecutionResult.Clone(),
		Validation:       s.Validation.Clone(),
	}
}

// Result is the final outcome of a debugging run. Which fields are set
// depends on Status and Reason:
//
//	fixed:                 FinalPatch, ExecutionResult, RootCauseSummary
//	failed/diagnostic_only: DiagnosticMessage
//	failed (exhausted):    Message
type Result struct {
	RunID             string           `json:"run_id,omitempty"`
	Status            string           `json:"status"`
	Reason            string           `json:"reason,omitempty"`
	Attempts          int              `json:"attempts"`
	FinalPatch        string           `json:"final_patch,omitempty"`
	ExecutionResult   *ExecutionResult `json:"execution_result,omitempty"`
	RootCauseSummary  string           `json:"root_cause_summary,omitempty"`
	DiagnosticMessage string           `json:"diagnostic_message,omitempty"`
	Message           string           `json:"message,omitempty"`
	History           []AttemptRecord  `json:"history"`
}

// Fixed reports whether the run produced a passing patch.
func (r *Result) Fixed() bool {
	return r.Status == StatusFixed
}

// DiagnosticOnly reports whether the run stopped because the input was not an error report.
func (r *Result) DiagnosticOnly() bool {
	return r.Status == StatusFailed && r.Reason == ReasonDiagnosticOnly
}
