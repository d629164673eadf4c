package output

import (
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/jmylchreest/popuptrack/internal/trace"
)

// EventsFormatter writes one line per replayed event.
type EventsFormatter struct {
	opts     FormatterOptions
	template *template.Template
}

// NewEventsFormatter creates a new events formatter.
func NewEventsFormatter(opts FormatterOptions) *EventsFormatter {
	f := &EventsFormatter{opts: opts}

	// Parse custom template if provided
	if opts.Template != "" {
		tmpl, err := template.New("events").Funcs(templateFuncs()).Parse(opts.Template)
		if err == nil {
			f.template = tmpl
		}
	}

	return f
}

// Format writes every outcome of the report on its own line.
func (f *EventsFormatter) Format(w io.Writer, report *trace.Report) error {
	for _, o := range report.Outcomes {
		if _, err := fmt.Fprintln(w, f.formatLine(o)); err != nil {
			return err
		}
	}
	return nil
}

// formatLine formats a single outcome line.
func (f *EventsFormatter) formatLine(o trace.Outcome) string {
	if f.template != nil {
		var buf strings.Builder
		if err := f.template.Execute(&buf, o); err == nil {
			return buf.String()
		}
	}

	// Default format: index | op | surface | result [prev=serial]
	sep := f.opts.Separator
	if sep == "" {
		sep = " | "
	}

	var parts []string
	if f.opts.ShowIndex {
		parts = append(parts, fmt.Sprintf("%d", o.Index))
	}
	parts = append(parts, o.Op)
	if o.Surface != "" {
		parts = append(parts, o.Surface)
	}

	result := o.Result
	if o.PreviousSerial != nil {
		result += fmt.Sprintf(" prev=%d", *o.PreviousSerial)
	}
	parts = append(parts, result)

	return strings.Join(parts, sep)
}

// templateFuncs returns template helper functions.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"upper": strings.ToUpper,
		"serial": func(p *uint32) string {
			if p == nil {
				return "-"
			}
			return fmt.Sprintf("%d", *p)
		},
		"failed": func(result string) bool {
			return result != "ok"
		},
	}
}
