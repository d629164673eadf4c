package output

import (
	"encoding/json"
	"io"

	"github.com/jmylchreest/popuptrack/internal/trace"
)

// JSONFormatter formats reports as JSON.
type JSONFormatter struct {
	opts FormatterOptions
}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter(opts FormatterOptions) *JSONFormatter {
	return &JSONFormatter{opts: opts}
}

// Format writes the report as an indented JSON object.
func (f *JSONFormatter) Format(w io.Writer, report *trace.Report) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}
