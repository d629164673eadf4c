// Package input provides input adapters for protocol trace sources.
package input

import (
	"context"
	"os"
	"strings"

	"github.com/jmylchreest/popuptrack/internal/trace"
)

// InputAdapter fetches a trace from a source.
type InputAdapter interface {
	// Name returns the adapter identifier (e.g., "file", "stdin").
	Name() string

	// Import reads and decodes the trace.
	Import(ctx context.Context) (*trace.Trace, error)
}

// Trace encodings understood by Decode.
const (
	EncodingAuto         = ""
	EncodingYAML         = "yaml"
	EncodingWaylandDebug = "wayland-debug"
)

// NewAdapter creates an InputAdapter for source: "-" reads standard input,
// anything else is a file path.
func NewAdapter(source, encoding string) (InputAdapter, error) {
	if source == "" {
		return nil, &AdapterError{Source: source, Message: "no trace source given"}
	}
	if source == "-" {
		return NewStdinAdapter(encoding), nil
	}
	return NewFileAdapter(source, encoding), nil
}

// Decode turns raw trace bytes into a trace. With EncodingAuto, input that
// looks like a WAYLAND_DEBUG log is decoded as one and anything else as YAML.
func Decode(data []byte, encoding string) (*trace.Trace, error) {
	if encoding == EncodingAuto {
		encoding = EncodingYAML
		if LooksLikeWaylandDebug(data) {
			encoding = EncodingWaylandDebug
		}
	}

	switch encoding {
	case EncodingYAML:
		return trace.Parse(data)
	case EncodingWaylandDebug:
		return ParseWaylandDebug(data)
	default:
		return nil, &AdapterError{Source: encoding, Message: "unknown trace encoding"}
	}
}

// FileAdapter reads a trace from a file.
type FileAdapter struct {
	path     string
	encoding string
}

// NewFileAdapter creates a new FileAdapter.
func NewFileAdapter(path, encoding string) *FileAdapter {
	return &FileAdapter{path: path, encoding: encoding}
}

// Name returns the adapter identifier.
func (a *FileAdapter) Name() string {
	return "file"
}

// Path returns the file the adapter reads.
func (a *FileAdapter) Path() string {
	return a.path
}

// Import reads and decodes the trace file.
func (a *FileAdapter) Import(ctx context.Context) (*trace.Trace, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(a.path)
	if err != nil {
		return nil, &AdapterError{Source: a.path, Message: "failed to read trace", Err: err}
	}

	encoding := a.encoding
	if encoding == EncodingAuto && (strings.HasSuffix(a.path, ".yaml") || strings.HasSuffix(a.path, ".yml")) {
		encoding = EncodingYAML
	}

	tr, err := Decode(data, encoding)
	if err != nil {
		return nil, &AdapterError{Source: a.path, Message: "failed to decode trace", Err: err}
	}
	return tr, nil
}

// AdapterError represents an adapter-related error.
type AdapterError struct {
	Source  string
	Message string
	Err     error
}

func (e *AdapterError) Error() string {
	msg := e.Message
	if e.Source != "" {
		msg = e.Source + ": " + msg
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}
