package prompt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_SimpleVars(t *testing.T) {
	out, err := Render("Error: {{error_log}} (attempt {{attempt}})", Vars{"error_log": "boom", "attempt": "2"})
	require.NoError(t, err)
	assert.Equal(t, "Error: boom (attempt 2)", out)
}

func TestRender_MissingVars(t *testing.T) {
	_, err := Render("{{a}} and {{b}} and {{c}}", Vars{"b": "x"})
	require.Error(t, err)
	assert.Equal(t, "missing template variables: a, c", err.Error())
}

func TestRender_Conditionals(t *testing.T) {
	tests := []struct {
		name string
		tmpl string
		vars Vars
		want string
	}{
		{"present", "S{{#if x}}[{{x}}]{{/if}}E", Vars{"x": "v"}, "S[v]E"},
		{"absent", "S{{#if x}}[{{x}}]{{/if}}E", Vars{}, "SE"},
		{"empty string", "S{{#if x}}[{{x}}]{{/if}}E", Vars{"x": ""}, "SE"},
		{"nested both", "{{#if a}}outer {{#if b}}inner{{/if}} end{{/if}}", Vars{"a": "1", "b": "1"}, "outer inner end"},
		{"nested outer absent", "S{{#if a}}o {{#if b}}i{{/if}} e{{/if}}F", Vars{"b": "1"}, "SF"},
		{"trailing space in tag", "{{#if x }}content{{/if}}", Vars{"x": "1"}, "content"},
		{"end tag inside value", "{{#if n}}{{n}}{{/if}}", Vars{"n": "use {{/if}}"}, "use {{/if}}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Render(tt.tmpl, tt.vars)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestRender_ValuesAreNotReexpanded(t *testing.T) {
	out, err := Render("{{a}} and {{b}}", Vars{"a": "{{b}}", "b": "hello"})
	require.NoError(t, err)
	assert.Equal(t, "{{b}} and hello", out)
}

func TestRender_UnbalancedConditionals(t *testing.T) {
	_, err := Render("S{{#if x}}body", Vars{"x": "1"})
	assert.ErrorContains(t, err, "unclosed")

	_, err = Render("body{{/if}}", Vars{})
	assert.ErrorContains(t, err, "dangling")
}

func TestBuiltin_DiagnoseTemplate(t *testing.T) {
	out, err := NewLibrary("").Render(Diagnose, Vars{"error_log": "KeyError: 'x'", "docs": "No docs found."})
	require.NoError(t, err)
	assert.Contains(t, out, "Error log:\nKeyError: 'x'")
	assert.Contains(t, out, "Retrieved docs (top results):\nNo docs found.")
	assert.NotContains(t, out, "{{")
}

func TestBuiltin_PatchTemplate(t *testing.T) {
	lib := NewLibrary("")
	vars := Vars{"error_log": "E", "root_cause": "R", "docs": "D", "user_code": "None"}

	out, err := lib.Render(Patch, vars)
	require.NoError(t, err)
	assert.Contains(t, out, "User code (if provided):\nNone")
	assert.Contains(t, out, "  "+UnknownPhrase+"\n")
	assert.NotContains(t, out, "previous attempt")

	vars["previous_stderr"] = "NameError"
	out, err = lib.Render(Patch, vars)
	require.NoError(t, err)
	assert.Contains(t, out, "The previous attempt failed with:\nNameError")
}

func TestLibrary_OverrideDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, Diagnose), []byte("custom {{error_log}}"), 0o644))

	lib := NewLibrary(dir)
	out, err := lib.Render(Diagnose, Vars{"error_log": "x"})
	require.NoError(t, err)
	assert.Equal(t, "custom x", out)

	// patch.md is not overridden and falls back to the built-in.
	tmpl, err := lib.Load(Patch)
	require.NoError(t, err)
	assert.Equal(t, patchTemplate, tmpl)
}

func TestLibrary_PathTraversal(t *testing.T) {
	_, err := NewLibrary(t.TempDir()).Load("../secrets.md")
	assert.ErrorContains(t, err, "escapes")
}

func TestLibrary_NotFound(t *testing.T) {
	_, err := NewLibrary("").Load("missing.md")
	assert.ErrorContains(t, err, "not found")
}

func TestInstall(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "templates")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, Patch), []byte("mine"), 0o644))

	written, err := Install(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{Diagnose}, written)

	data, err := os.ReadFile(filepath.Join(dir, Patch))
	require.NoError(t, err)
	assert.Equal(t, "mine", string(data))
	assert.Equal(t, []string{Diagnose, Patch}, Names())
}
