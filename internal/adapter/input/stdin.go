package input

import (
	"bufio"
	"context"
	"io"
	"os"

	"github.com/jmylchreest/popuptrack/internal/trace"
)

// StdinAdapter reads a trace from standard input.
type StdinAdapter struct {
	reader   io.Reader
	encoding string
}

// NewStdinAdapter creates a new StdinAdapter reading from os.Stdin.
func NewStdinAdapter(encoding string) *StdinAdapter {
	return &StdinAdapter{reader: os.Stdin, encoding: encoding}
}

// NewStdinAdapterWithReader creates a new StdinAdapter with a custom reader.
func NewStdinAdapterWithReader(r io.Reader, encoding string) *StdinAdapter {
	return &StdinAdapter{reader: r, encoding: encoding}
}

// Name returns the adapter identifier.
func (a *StdinAdapter) Name() string {
	return "stdin"
}

// Import reads the whole of standard input and decodes it.
func (a *StdinAdapter) Import(ctx context.Context) (*trace.Trace, error) {
	scanner := bufio.NewScanner(a.reader)
	const maxLine = 1024 * 1024
	scanner.Buffer(make([]byte, 64*1024), maxLine)

	var data []byte
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data = append(data, scanner.Bytes()...)
		data = append(data, '\n')
	}

	if err := scanner.Err(); err != nil {
		return nil, &AdapterError{
			Source:  "stdin",
			Message: "failed to read stdin",
			Err:     err,
		}
	}

	tr, err := Decode(data, a.encoding)
	if err != nil {
		return nil, &AdapterError{Source: "stdin", Message: "failed to decode trace", Err: err}
	}
	return tr, nil
}
