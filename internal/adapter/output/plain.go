package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/tree"

	"github.com/jmylchreest/popuptrack/internal/trace"
)

// PlainFormatter renders the popup trees of a report as an indented tree,
// followed by dismissals and protocol errors.
type PlainFormatter struct {
	opts FormatterOptions
}

// NewPlainFormatter creates a new plain text formatter.
func NewPlainFormatter(opts FormatterOptions) *PlainFormatter {
	return &PlainFormatter{opts: opts}
}

type plainStyles struct {
	root   lipgloss.Style
	popup  lipgloss.Style
	dim    lipgloss.Style
	header lipgloss.Style
	err    lipgloss.Style
}

func (f *PlainFormatter) styles(w io.Writer) *plainStyles {
	if !f.opts.Color {
		return nil
	}
	r := lipgloss.NewRenderer(w)
	return &plainStyles{
		root:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		popup:  r.NewStyle().Foreground(lipgloss.Color("15")),
		dim:    r.NewStyle().Foreground(lipgloss.Color("8")),
		header: r.NewStyle().Bold(true).Underline(true),
		err:    r.NewStyle().Foreground(lipgloss.Color("9")),
	}
}

// paint renders text with the style chosen by pick, or leaves it unstyled
// when colours are disabled.
func (st *plainStyles) paint(pick func(*plainStyles) lipgloss.Style, text string) string {
	if st == nil {
		return text
	}
	return pick(st).Render(text)
}

func (st *plainStyles) Root(text string) string {
	return st.paint(func(s *plainStyles) lipgloss.Style { return s.root }, text)
}

func (st *plainStyles) Popup(text string) string {
	return st.paint(func(s *plainStyles) lipgloss.Style { return s.popup }, text)
}

func (st *plainStyles) Dim(text string) string {
	return st.paint(func(s *plainStyles) lipgloss.Style { return s.dim }, text)
}

func (st *plainStyles) Header(text string) string {
	return st.paint(func(s *plainStyles) lipgloss.Style { return s.header }, text)
}

func (st *plainStyles) Err(text string) string {
	return st.paint(func(s *plainStyles) lipgloss.Style { return s.err }, text)
}

// Format writes the report as plain text.
func (f *PlainFormatter) Format(w io.Writer, report *trace.Report) error {
	st := f.styles(w)
	var sb strings.Builder

	if len(report.Roots) == 0 {
		sb.WriteString(st.Dim("no popup trees"))
		sb.WriteString("\n")
	}

	for _, root := range report.Roots {
		sb.WriteString(f.popupTree(st, root).String())
		sb.WriteString("\n")
	}

	if len(report.Done) > 0 {
		sb.WriteString("\n" + st.Header("dismissed") + "\n")
		sb.WriteString("  " + strings.Join(report.Done, ", ") + "\n")
	}

	if len(report.ProtocolErrors) > 0 {
		sb.WriteString("\n" + st.Header("protocol errors") + "\n")
		for _, pe := range report.ProtocolErrors {
			line := fmt.Sprintf("  %s: %s.%d %s", pe.Surface, pe.Interface, pe.Code, pe.Message)
			sb.WriteString(st.Err(line) + "\n")
		}
	}

	failed := 0
	for _, o := range report.Outcomes {
		if o.Result != "ok" {
			failed++
		}
	}
	summary := fmt.Sprintf("%d events, %d rejected, %d trees, %d popups, %d unmapped, %d grabs",
		len(report.Outcomes), failed,
		report.Stats.Trees, report.Stats.Popups, report.Stats.Unmapped, report.Stats.Grabs)
	sb.WriteString("\n" + st.Dim(summary) + "\n")

	_, err := io.WriteString(w, sb.String())
	return err
}

// popupTree builds the lipgloss tree for one root. Popups arrive in
// pre-order, so the parent of a popup at depth d is the last node seen at
// depth d-1.
func (f *PlainFormatter) popupTree(st *plainStyles, root trace.RootSnapshot) *tree.Tree {
	label := st.Root(root.Root)
	if f.opts.ShowIDs {
		label += " " + st.Dim(root.ID)
	}
	t := tree.Root(label)
	if st != nil {
		t.EnumeratorStyle(st.dim.PaddingRight(1))
	}

	parents := []*tree.Tree{t}
	for _, p := range root.Popups {
		text := st.Popup(p.Surface) + " " + st.Dim("@"+p.Offset.String())
		if f.opts.ShowIDs {
			text += " " + st.Dim(p.ID)
		}
		node := tree.Root(text)
		depth := min(max(p.Depth, 0), len(parents)-1)
		parents[depth].Child(node)
		parents = append(parents[:depth+1], node)
	}
	return t
}
