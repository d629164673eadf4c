package trace

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/popuptrack/internal/popup"
)

// Operations understood by the Runner.
const (
	OpToplevel  = "toplevel"
	OpPopup     = "popup"
	OpSetParent = "set_parent"
	OpMove      = "move"
	OpCommit    = "commit"
	OpGrab      = "grab"
	OpUngrab    = "ungrab"
	OpDismiss   = "dismiss"
	OpDestroy   = "destroy"
	OpCleanup   = "cleanup"
)

// Trace is a recorded sequence of protocol events.
type Trace struct {
	Seats  []string `yaml:"seats"`
	Events []Event  `yaml:"events"`
}

// Event is one protocol event. Which fields matter depends on Op.
type Event struct {
	Op       string `yaml:"op"`
	Surface  string `yaml:"surface,omitempty"`
	Parent   string `yaml:"parent,omitempty"`
	X        int    `yaml:"x,omitempty"`
	Y        int    `yaml:"y,omitempty"`
	Seat     string `yaml:"seat,omitempty"`
	Serial   uint32 `yaml:"serial,omitempty"`
	Strategy string `yaml:"strategy,omitempty"` // topmost (default) or all
	Expect   string `yaml:"expect,omitempty"`   // ok or an error name, see ErrorName
}

// Load reads a trace from a YAML file.
func Load(path string) (*Trace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a YAML trace. Unknown fields are rejected.
func Parse(data []byte) (*Trace, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var tr Trace
	if err := dec.Decode(&tr); err != nil {
		if errors.Is(err, io.EOF) {
			return &tr, nil
		}
		return nil, fmt.Errorf("failed to parse trace: %w", err)
	}
	return &tr, nil
}

// Marshal encodes the trace as YAML.
func (t *Trace) Marshal() ([]byte, error) {
	return yaml.Marshal(t)
}

var errorNames = map[string]error{
	"dead_resource":         popup.ErrDeadResource,
	"no_popup":              popup.ErrNoPopup,
	"invalid_grab":          popup.ErrInvalidGrab,
	"parent_dismissed":      popup.ErrParentDismissed,
	"not_the_topmost_popup": popup.ErrNotTheTopmostPopup,
	"invalid_parent":        popup.ErrInvalidParent,
	"no_active_grab":        ErrNoActiveGrab,
}

// ErrorName returns the trace name of a popup core error: "ok" for nil,
// "unknown" for errors without a name.
func ErrorName(err error) string {
	if err == nil {
		return "ok"
	}
	for name, target := range errorNames {
		if errors.Is(err, target) {
			return name
		}
	}
	return "unknown"
}

// EventError reports an event the Runner could not apply.
type EventError struct {
	Index int
	Op    string
	Cause error
}

func (e *EventError) Error() string {
	return fmt.Sprintf("event %d (%s): %v", e.Index, e.Op, e.Cause)
}

func (e *EventError) Unwrap() error {
	return e.Cause
}

// Errors
var (
	ErrUnknownOp         = traceError("unknown op")
	ErrUnknownSurface    = traceError("unknown surface")
	ErrDuplicateSurface  = traceError("surface name already used")
	ErrUnknownSeat       = traceError("unknown seat")
	ErrNotAPopup         = traceError("surface is not a popup")
	ErrUnknownStrategy   = traceError("unknown ungrab strategy")
	ErrUnknownExpect     = traceError("unknown expected outcome")
	ErrUnexpectedOutcome = traceError("unexpected outcome")
	ErrNoActiveGrab      = traceError("no active grab on seat")
)

type traceError string

func (e traceError) Error() string {
	return string(e)
}
