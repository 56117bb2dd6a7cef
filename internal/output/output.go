// Package output formats one-shot CLI results: status lines, key/value
// summaries, and aligned tables of books and hits.
package output

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
)

// Writer provides formatted output for CLI commands.
type Writer struct {
	out     io.Writer
	color   bool
	success lipgloss.Style
	warn    lipgloss.Style
	fail    lipgloss.Style
	label   lipgloss.Style
	mark    lipgloss.Style
}

// New creates a Writer without color.
func New(out io.Writer) *Writer {
	return NewWithColor(out, false)
}

// NewWithColor creates a Writer; color styles icons, labels and <mark> spans.
func NewWithColor(out io.Writer, color bool) *Writer {
	w := &Writer{
		out:     out,
		color:   color,
		success: lipgloss.NewStyle(),
		warn:    lipgloss.NewStyle(),
		fail:    lipgloss.NewStyle(),
		label:   lipgloss.NewStyle(),
		mark:    lipgloss.NewStyle(),
	}
	if color {
		w.success = w.success.Foreground(lipgloss.Color("2"))
		w.warn = w.warn.Foreground(lipgloss.Color("3"))
		w.fail = w.fail.Foreground(lipgloss.Color("1")).Bold(true)
		w.label = w.label.Foreground(lipgloss.Color("8"))
		w.mark = w.mark.Foreground(lipgloss.Color("179")).Bold(true)
	}
	return w
}

// Status prints a status message with an icon.
// Errors from writing are ignored for console output.
func (w *Writer) Status(icon, msg string) {
	if icon != "" {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
	} else {
		_, _ = fmt.Fprintf(w.out, "  %s\n", msg)
	}
}

// Statusf prints a formatted status message with an icon.
func (w *Writer) Statusf(icon, format string, args ...any) {
	w.Status(icon, fmt.Sprintf(format, args...))
}

// Success prints a success message with a checkmark.
func (w *Writer) Success(msg string) {
	w.Status(w.paint(w.success, "✓"), msg)
}

// Successf prints a formatted success message.
func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

// Warning prints a warning message.
func (w *Writer) Warning(msg string) {
	w.Status(w.paint(w.warn, "!"), msg)
}

// Warningf prints a formatted warning message.
func (w *Writer) Warningf(format string, args ...any) {
	w.Warning(fmt.Sprintf(format, args...))
}

// Error prints an error message.
func (w *Writer) Error(msg string) {
	w.Status(w.paint(w.fail, "✗"), msg)
}

// Newline prints an empty line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}

// KV prints aligned "label: value" pairs in order. pairs alternates label and value.
func (w *Writer) KV(pairs ...string) {
	width := 0
	for i := 0; i+1 < len(pairs); i += 2 {
		width = max(width, len(pairs[i]))
	}
	for i := 0; i+1 < len(pairs); i += 2 {
		label := w.paint(w.label, fmt.Sprintf("%-*s", width+1, pairs[i]+":"))
		_, _ = fmt.Fprintf(w.out, "  %s %s\n", label, pairs[i+1])
	}
}

// Table prints rows under headers with tab-aligned columns.
func (w *Writer) Table(headers []string, rows [][]string) {
	tw := tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, strings.Join(headers, "\t"))
	for _, row := range rows {
		_, _ = fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	_ = tw.Flush()
}

// Highlight renders <mark>…</mark> spans. Without color the tags become
// asterisks so matches stay visible in plain output.
func (w *Writer) Highlight(s string) string {
	var b strings.Builder
	for {
		start := strings.Index(s, "<mark>")
		if start < 0 {
			break
		}
		end := strings.Index(s[start:], "</mark>")
		if end < 0 {
			break
		}
		end += start
		b.WriteString(s[:start])
		inner := s[start+len("<mark>") : end]
		if w.color {
			b.WriteString(w.mark.Render(inner))
		} else {
			b.WriteString("*" + inner + "*")
		}
		s = s[end+len("</mark>"):]
	}
	b.WriteString(s)
	return b.String()
}

// Indent prints content with every line indented.
func (w *Writer) Indent(content string) {
	for _, line := range strings.Split(content, "\n") {
		_, _ = fmt.Fprintf(w.out, "    %s\n", line)
	}
}

func (w *Writer) paint(style lipgloss.Style, s string) string {
	if !w.color {
		return s
	}
	return style.Render(s)
}
