package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lucasnoah/ragdebug/internal/pipeline"
)

// styles are bound to the output writer so colour is only emitted to terminals.
type styles struct {
	title lipgloss.Style
	label lipgloss.Style
	ok    lipgloss.Style
	fail  lipgloss.Style
	muted lipgloss.Style
	code  lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		title: r.NewStyle().Bold(true).Foreground(lipgloss.Color("170")),
		label: r.NewStyle().Bold(true).Foreground(lipgloss.Color("75")),
		ok:    r.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
		fail:  r.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		muted: r.NewStyle().Foreground(lipgloss.Color("241")),
		code:  r.NewStyle().PaddingLeft(2),
	}
}

// Text writes a human-readable rendering of res to w.
func Text(w io.Writer, res *pipeline.Result) error {
	s := newStyles(w)
	var b strings.Builder

	status := s.fail.Render(strings.ToUpper(res.Status))
	if res.Fixed() {
		status = s.ok.Render(strings.ToUpper(res.Status))
	}
	fmt.Fprintf(&b, "%s %s (%s)\n", s.title.Render("Result:"), status, plural(res.Attempts, "attempt"))
	if res.RunID != "" {
		fmt.Fprintf(&b, "%s\n", s.muted.Render("run "+res.RunID))
	}

	switch {
	case res.Fixed():
		section(&b, s, "Root cause", res.RootCauseSummary)
		section(&b, s, "Final patch", res.FinalPatch)
		if er := res.ExecutionResult; er != nil {
			section(&b, s, "Output", er.Stdout)
		}
	case res.DiagnosticOnly():
		section(&b, s, "Diagnostic", res.DiagnosticMessage)
	default:
		section(&b, s, "Message", res.Message)
	}

	if len(res.History) > 0 {
		fmt.Fprintf(&b, "\n%s\n", s.label.Render("History"))
		for _, rec := range res.History {
			mark, msg := s.fail.Render("x"), ""
			if rec.Validation != nil {
				msg = firstLine(rec.Validation.Message)
				if rec.Validation.Success {
					mark = s.ok.Render("ok")
				}
			}
			fmt.Fprintf(&b, "  #%d %s %s\n", rec.Attempt, mark, msg)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func section(b *strings.Builder, s styles, label, body string) {
	if strings.TrimSpace(body) == "" {
		return
	}
	fmt.Fprintf(b, "\n%s\n%s\n", s.label.Render(label), s.code.Render(strings.TrimRight(body, "\n")))
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
