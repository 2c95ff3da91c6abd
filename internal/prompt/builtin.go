package prompt

// UnknownPhrase is the exact answer the patch template asks for when the
// failure is not a Python error.
const UnknownPhrase = "I don't know - not a Python error."

// builtinTemplates maps template filename to content.
var builtinTemplates = map[string]string{
	Diagnose: diagnoseTemplate,
	Patch:    patchTemplate,
}

const diagnoseTemplate = `You are an expert Python debugging assistant.

Error log:
{{error_log}}

Retrieved docs (top results):
{{docs}}

1) Give 2-3 probable root causes (short). For each: reason and 1 diagnostic step.
2) Recommend 1 preferred fix to attempt first (short).

Return your response as plain text. If you are unsure or you think it is another language than Python, say 'I don't know' and propose diagnostics.
`

const patchTemplate = `You are a careful Python coding assistant. Produce a **minimal** code patch or snippet to fix the issue.

Error log:
{{error_log}}

Root cause analysis (short):
{{root_cause}}

Relevant docs:
{{docs}}

User code (if provided):
{{user_code}}
{{#if previous_stderr}}
The previous attempt failed with:
{{previous_stderr}}
{{/if}}
- If you are not confident the issue is in Python, respond exactly with:
  ` + UnknownPhrase + `

Return only fenced Python code blocks (` + "```python ... ```" + `) or the exact phrase above if not a Python error.
`
