// Package prompt renders the diagnosis and patch prompts sent to the
// reasoning collaborator.
package prompt

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

var (
	varRe      = regexp.MustCompile(`\{\{([a-zA-Z_][a-zA-Z0-9_]*)\}\}`)
	ifOpenRe   = regexp.MustCompile(`\{\{#if\s+([a-zA-Z_][a-zA-Z0-9_]*)\s*\}\}`)
	ifCloseStr = "{{/if}}"
)

// Template names.
const (
	Diagnose = "diagnose.md"
	Patch    = "patch.md"
)

// Vars is a map of variable names to values for template rendering.
type Vars map[string]string

// Render expands a template string with the given variables.
// {{variable}} is replaced with its value; a missing variable is an error.
// {{#if variable}}...{{/if}} blocks are kept only when the variable is non-empty.
// Values are inserted literally and never re-expanded.
func Render(tmpl string, vars Vars) (string, error) {
	result, err := processConditionals(tmpl, vars)
	if err != nil {
		return "", err
	}

	var missing []string
	expanded := varRe.ReplaceAllStringFunc(result, func(match string) string {
		name := varRe.FindStringSubmatch(match)[1]
		if val, ok := vars[name]; ok {
			return val
		}
		missing = append(missing, name)
		return match
	})

	if len(missing) > 0 {
		return "", fmt.Errorf("missing template variables: %s", strings.Join(missing, ", "))
	}
	return expanded, nil
}

// processConditionals resolves {{#if}} blocks innermost first: for each
// {{/if}} the nearest preceding opener is its pair.
func processConditionals(tmpl string, vars Vars) (string, error) {
	result := tmpl
	for {
		closeIdx := strings.Index(result, ifCloseStr)
		if closeIdx == -1 {
			break
		}

		openLocs := ifOpenRe.FindAllStringSubmatchIndex(result[:closeIdx], -1)
		if openLocs == nil {
			return "", fmt.Errorf("dangling {{/if}} without matching {{#if}}")
		}
		loc := openLocs[len(openLocs)-1]
		openStart, openEnd := loc[0], loc[1]
		name := result[loc[2]:loc[3]]

		var body string
		if vars[name] != "" {
			body = result[openEnd:closeIdx]
		}
		result = result[:openStart] + body + result[closeIdx+len(ifCloseStr):]
	}

	if tag := ifOpenRe.FindString(result); tag != "" {
		return "", fmt.Errorf("unclosed conditional block: %s", tag)
	}
	return result, nil
}

// Library resolves templates by name, preferring files in an override
// directory over the built-ins.
type Library struct {
	dir string
}

// NewLibrary returns a Library that looks in dir first. An empty dir means
// built-ins only.
func NewLibrary(dir string) *Library {
	return &Library{dir: dir}
}

// Load returns the template text for name.
func (l *Library) Load(name string) (string, error) {
	if l != nil && l.dir != "" {
		path, err := within(l.dir, name)
		if err != nil {
			return "", err
		}
		if data, err := os.ReadFile(path); err == nil {
			return string(data), nil
		}
	}
	if tmpl, ok := builtinTemplates[name]; ok {
		return tmpl, nil
	}
	return "", fmt.Errorf("template %q not found", name)
}

// Render loads name and renders it with vars.
func (l *Library) Render(name string, vars Vars) (string, error) {
	tmpl, err := l.Load(name)
	if err != nil {
		return "", err
	}
	out, err := Render(tmpl, vars)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return out, nil
}

// within joins name onto dir and rejects results that leave dir.
func within(dir, name string) (string, error) {
	path := filepath.Join(dir, name)
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve template path: %w", err)
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve template dir: %w", err)
	}
	if !strings.HasPrefix(absPath, absDir+string(filepath.Separator)) {
		return "", fmt.Errorf("template path %q escapes %s", name, dir)
	}
	return path, nil
}

// Names lists the built-in template names in order.
func Names() []string {
	names := make([]string, 0, len(builtinTemplates))
	for name := range builtinTemplates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Install writes the built-in templates into dir so they can be edited.
// Existing files are left alone. It returns the names it wrote.
func Install(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create templates dir: %w", err)
	}

	var written []string
	for _, name := range Names() {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if err := os.WriteFile(path, []byte(builtinTemplates[name]), 0o644); err != nil {
			return written, fmt.Errorf("write template %q: %w", name, err)
		}
		written = append(written, name)
	}
	return written, nil
}
