// Package output provides output formatters for replay reports.
package output

import (
	"io"

	"github.com/jmylchreest/popuptrack/internal/trace"
)

// Formatter formats a replay report for output.
type Formatter interface {
	// Format writes the formatted report to the writer.
	Format(w io.Writer, report *trace.Report) error
}

// FormatType represents an output format type.
type FormatType string

const (
	FormatPlain  FormatType = "plain"
	FormatJSON   FormatType = "json"
	FormatEvents FormatType = "events"
	FormatIDs    FormatType = "ids"
)

// FormatTypes lists every supported format.
var FormatTypes = []FormatType{FormatPlain, FormatJSON, FormatEvents, FormatIDs}

// ValidFormat reports whether name is a supported format.
func ValidFormat(name string) bool {
	for _, f := range FormatTypes {
		if string(f) == name {
			return true
		}
	}
	return false
}

// NewFormatter creates a formatter for the specified format type.
func NewFormatter(format FormatType, opts FormatterOptions) Formatter {
	switch format {
	case FormatJSON:
		return NewJSONFormatter(opts)
	case FormatEvents:
		return NewEventsFormatter(opts)
	case FormatIDs:
		return NewIDsFormatter()
	case FormatPlain:
		fallthrough
	default:
		return NewPlainFormatter(opts)
	}
}

// FormatterOptions configures formatter behavior.
type FormatterOptions struct {
	Template  string // Custom per-outcome template for events format
	ShowIDs   bool   // Show surface ULIDs next to labels
	ShowIndex bool   // Show event index prefix
	Color     bool   // Style output with terminal colours
	Separator string // Field separator for events format
}

// DefaultFormatterOptions returns sensible defaults.
func DefaultFormatterOptions() FormatterOptions {
	return FormatterOptions{
		ShowIndex: true,
		Separator: " | ",
	}
}
