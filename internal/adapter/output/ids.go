package output

import (
	"fmt"
	"io"

	"github.com/jmylchreest/popuptrack/internal/trace"
)

// IDsFormatter outputs the ULID of every tracked popup, one per line, in
// tree order. Roots are not included.
type IDsFormatter struct{}

// NewIDsFormatter creates a new IDs formatter.
func NewIDsFormatter() *IDsFormatter {
	return &IDsFormatter{}
}

// Format writes popup IDs to the writer, one per line.
func (f *IDsFormatter) Format(w io.Writer, report *trace.Report) error {
	for _, root := range report.Roots {
		for _, p := range root.Popups {
			if _, err := fmt.Fprintln(w, p.ID); err != nil {
				return err
			}
		}
	}
	return nil
}
