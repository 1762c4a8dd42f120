package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"fsdlint/internal/project"
	"fsdlint/internal/rules"
)

// Renderer turns a report into its final output form.
type Renderer interface {
	Render(r *Report) (string, error)
}

// NewRenderer returns the renderer for a format name.
func NewRenderer(format string, verbose bool) (Renderer, error) {
	switch format {
	case "text", "":
		return &TextRenderer{Verbose: verbose}, nil
	case "json":
		return &JSONRenderer{}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

// Styling degrades automatically on terminals without color support.
var (
	styleError    = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	styleWarning  = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	styleClean    = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	styleFile     = lipgloss.NewStyle().Bold(true).Underline(true)
	styleLocation = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	styleRule     = lipgloss.NewStyle().Faint(true)
	styleMuted    = lipgloss.NewStyle().Faint(true)
)

// TextRenderer writes a human-facing report: violations grouped by
// file, then warnings, then a summary line. Unresolved-import warnings
// stay hidden unless Verbose is set; they are usually just packages
// outside the tree.
type TextRenderer struct {
	Verbose bool
}

func (t *TextRenderer) Render(r *Report) (string, error) {
	var b strings.Builder

	lastFile := ""
	for _, v := range r.Violations {
		if v.File != lastFile {
			if lastFile != "" {
				b.WriteString("\n")
			}
			b.WriteString(styleFile.Render(v.File) + "\n")
			lastFile = v.File
		}
		b.WriteString(fmt.Sprintf("  %s  %s  %s  %s\n",
			styleLocation.Render(fmt.Sprintf("%d:%d", v.Line, v.Column)),
			severityLabel(v.Severity),
			v.Message,
			styleRule.Render(string(v.Rule)),
		))
	}

	warnings := t.visibleWarnings(r)
	if len(warnings) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		for _, w := range warnings {
			loc := w.File
			if w.Line > 0 {
				loc = fmt.Sprintf("%s:%d", w.File, w.Line)
			}
			b.WriteString(styleMuted.Render(fmt.Sprintf("%s: %s (%s)", loc, w.Message, w.Kind)) + "\n")
		}
	}

	if b.Len() > 0 {
		b.WriteString("\n")
	}
	b.WriteString(t.summaryLine(r) + "\n")
	b.WriteString(styleMuted.Render(fmt.Sprintf("%d modules, %d imports (%d external) checked under %s",
		r.Summary.Modules, r.Summary.Imports, r.Summary.Externals, r.Root)) + "\n")

	return b.String(), nil
}

func (t *TextRenderer) visibleWarnings(r *Report) []project.Warning {
	out := make([]project.Warning, 0, len(r.Warnings))
	for _, w := range r.Warnings {
		if w.Kind == project.WarnUnresolved && !t.Verbose {
			continue
		}
		out = append(out, w)
	}
	return out
}

func (t *TextRenderer) summaryLine(r *Report) string {
	total := r.Summary.Errors + r.Summary.Warnings
	if total == 0 {
		return styleClean.Render("✓ no violations found")
	}
	noun := "problems"
	if total == 1 {
		noun = "problem"
	}
	line := fmt.Sprintf("✖ %d %s (%d %s, %d %s)",
		total, noun,
		r.Summary.Errors, plural("error", r.Summary.Errors),
		r.Summary.Warnings, plural("warning", r.Summary.Warnings))
	if r.Summary.Errors > 0 {
		return styleError.Render(line)
	}
	return styleWarning.Render(line)
}

func severityLabel(s rules.Severity) string {
	// Pad before styling so ANSI escapes stay out of the alignment.
	padded := fmt.Sprintf("%-7s", string(s))
	if s == rules.SeverityError {
		return styleError.Render(padded)
	}
	return styleWarning.Render(padded)
}

func plural(word string, n int) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

// JSONRenderer writes the report as indented JSON with a trailing
// newline. Field order is fixed by the struct definitions, so repeat
// runs are byte-identical.
type JSONRenderer struct{}

func (j *JSONRenderer) Render(r *Report) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding report: %w", err)
	}
	return string(data) + "\n", nil
}
