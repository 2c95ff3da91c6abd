package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucasnoah/ragdebug/internal/pipeline"
)

func fixedResult() *pipeline.Result {
	exec := &pipeline.ExecutionResult{Stdout: "0\n", Ran: true}
	return &pipeline.Result{
		RunID:            "01J0000000000000000000000",
		Status:           pipeline.StatusFixed,
		Attempts:         2,
		FinalPatch:       "print(0)",
		ExecutionResult:  exec,
		RootCauseSummary: "divisor is zero",
		History: []pipeline.AttemptRecord{
			{
				Attempt:         1,
				PatchText:       "print(1/0)",
				ExecutionResult: &pipeline.ExecutionResult{Stderr: "ZeroDivisionError", ReturnCode: 1, Ran: true},
				Validation:      &pipeline.Validation{Message: "Non-zero return code (1). stderr excerpt: ZeroDivisionError"},
			},
			{
				Attempt:         2,
				PatchText:       "print(0)",
				ExecutionResult: exec,
				Validation:      &pipeline.Validation{Success: true, Message: "Return code 0 - likely fixed."},
			},
		},
	}
}

func diagnosticResult() *pipeline.Result {
	return &pipeline.Result{
		Status:            pipeline.StatusFailed,
		Reason:            pipeline.ReasonDiagnosticOnly,
		DiagnosticMessage: "not a Python error",
		Attempts:          1,
		History:           []pipeline.AttemptRecord{},
	}
}

func exhaustedResult() *pipeline.Result {
	return &pipeline.Result{
		Status:   pipeline.StatusFailed,
		Attempts: 0,
		Message:  "graph build failed: missing executor",
		History:  []pipeline.AttemptRecord{},
	}
}

func TestJSON_AcceptsAllResultShapes(t *testing.T) {
	for name, res := range map[string]*pipeline.Result{
		"fixed":      fixedResult(),
		"diagnostic": diagnosticResult(),
		"exhausted":  exhaustedResult(),
	} {
		t.Run(name, func(t *testing.T) {
			data, err := JSON(res)
			require.NoError(t, err)
			assert.Contains(t, string(data), `"history": [`)
		})
	}
}

func TestJSON_RejectsInconsistentShapes(t *testing.T) {
	noMessage := exhaustedResult()
	noMessage.Message = ""
	_, err := JSON(noMessage)
	assert.Error(t, err, "exhausted result needs a message")

	fixedNoExec := fixedResult()
	fixedNoExec.ExecutionResult = nil
	_, err = JSON(fixedNoExec)
	assert.Error(t, err, "fixed result needs an execution result")

	diagNoMessage := diagnosticResult()
	diagNoMessage.DiagnosticMessage = ""
	_, err = JSON(diagNoMessage)
	assert.Error(t, err)

	nilHistory := diagnosticResult()
	nilHistory.History = nil
	_, err = JSON(nilHistory)
	assert.Error(t, err, "history must be an array")
}

func TestCheck_RejectsUnknownStatus(t *testing.T) {
	err := Check([]byte(`{"status":"maybe","attempts":1,"history":[]}`))
	assert.Error(t, err)
	assert.Error(t, Check([]byte(`not json`)))
}

func TestText_Fixed(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Text(&buf, fixedResult()))
	out := buf.String()

	assert.Contains(t, out, "FIXED")
	assert.Contains(t, out, "2 attempts")
	assert.Contains(t, out, "run 01J0000000000000000000000")
	assert.Contains(t, out, "divisor is zero")
	assert.Contains(t, out, "print(0)")
	assert.Contains(t, out, "#1 x Non-zero return code (1)")
	assert.Contains(t, out, "#2 ok Return code 0 - likely fixed.")
}

func TestText_Diagnostic(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Text(&buf, diagnosticResult()))
	out := buf.String()

	assert.Contains(t, out, "FAILED")
	assert.Contains(t, out, "1 attempt)")
	assert.Contains(t, out, "Diagnostic")
	assert.Contains(t, out, "not a Python error")
	assert.NotContains(t, out, "History")
}

func TestText_Exhausted(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Text(&buf, exhaustedResult()))
	assert.Contains(t, buf.String(), "graph build failed: missing executor")
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "result.json")

	require.NoError(t, WriteFile(path, []byte("one")))
	require.NoError(t, WriteFile(path, []byte("two")))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(got))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}
