package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/popuptrack/internal/model"
	"github.com/jmylchreest/popuptrack/internal/popup"
	"github.com/jmylchreest/popuptrack/internal/surface"
	"github.com/jmylchreest/popuptrack/internal/trace"
)

func testReport() *trace.Report {
	prev := uint32(1)
	return &trace.Report{
		Outcomes: []trace.Outcome{
			{Index: 0, Op: "toplevel", Surface: "R", Result: "ok"},
			{Index: 1, Op: "grab", Surface: "A", Result: "ok"},
			{Index: 2, Op: "grab", Surface: "B", Result: "ok", PreviousSerial: &prev},
			{Index: 3, Op: "grab", Surface: "A", Result: "not_the_topmost_popup", Error: "not the topmost popup"},
		},
		Done: []string{"C"},
		ProtocolErrors: []trace.PostedError{{
			Surface: "A",
			ProtocolError: surface.ProtocolError{
				Interface: surface.InterfaceXDGWmBase,
				Code:      surface.XDGWmBaseErrorNotTheTopmostPopup,
				Message:   "xdg_popup was not created on the topmost popup",
			},
		}},
		Roots: []trace.RootSnapshot{{
			Root: "R",
			ID:   "01ROOT",
			Popups: []trace.PopupSnapshot{
				{Surface: "A", ID: "01A", Parent: "R", Depth: 0, Offset: model.Pt(10, 20)},
				{Surface: "B", ID: "01B", Parent: "A", Depth: 1, Offset: model.Pt(15, 25)},
				{Surface: "D", ID: "01D", Parent: "R", Depth: 0, Offset: model.Pt(0, 0)},
			},
		}},
		Stats: popup.Stats{Trees: 1, Popups: 3, Grabs: 1},
	}
}

func TestNewFormatter(t *testing.T) {
	opts := DefaultFormatterOptions()
	assert.IsType(t, &PlainFormatter{}, NewFormatter(FormatPlain, opts))
	assert.IsType(t, &JSONFormatter{}, NewFormatter(FormatJSON, opts))
	assert.IsType(t, &EventsFormatter{}, NewFormatter(FormatEvents, opts))
	assert.IsType(t, &IDsFormatter{}, NewFormatter(FormatIDs, opts))
	assert.IsType(t, &PlainFormatter{}, NewFormatter("bogus", opts))
}

func TestValidFormat(t *testing.T) {
	for _, f := range FormatTypes {
		assert.True(t, ValidFormat(string(f)), f)
	}
	assert.False(t, ValidFormat("dmenu"))
}

func TestPlainFormatter_Format(t *testing.T) {
	var buf bytes.Buffer
	err := NewPlainFormatter(DefaultFormatterOptions()).Format(&buf, testReport())
	require.NoError(t, err)

	out := buf.String()
	lines := strings.Split(out, "\n")
	require.GreaterOrEqual(t, len(lines), 4)
	assert.Equal(t, "R", lines[0])
	assert.Equal(t, "├── A @(10,20)", lines[1])
	assert.Equal(t, "│   └── B @(15,25)", lines[2])
	assert.Equal(t, "└── D @(0,0)", lines[3])

	assert.Contains(t, out, "dismissed\n  C\n")
	assert.Contains(t, out, "A: xdg_wm_base.2 xdg_popup was not created on the topmost popup")
	assert.Contains(t, out, "4 events, 1 rejected, 1 trees, 3 popups, 0 unmapped, 1 grabs")
	assert.NotContains(t, out, "01A")
}

func TestPlainFormatter_ShowIDs(t *testing.T) {
	var buf bytes.Buffer
	opts := DefaultFormatterOptions()
	opts.ShowIDs = true
	require.NoError(t, NewPlainFormatter(opts).Format(&buf, testReport()))

	out := buf.String()
	assert.Contains(t, out, "R 01ROOT\n")
	assert.Contains(t, out, "├── A @(10,20) 01A\n")
}

func TestPlainFormatter_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPlainFormatter(DefaultFormatterOptions()).Format(&buf, &trace.Report{}))
	assert.True(t, strings.HasPrefix(buf.String(), "no popup trees\n"))
	assert.NotContains(t, buf.String(), "dismissed")
}

func TestPlainFormatter_Color(t *testing.T) {
	var buf bytes.Buffer
	opts := DefaultFormatterOptions()
	opts.Color = true
	require.NoError(t, NewPlainFormatter(opts).Format(&buf, testReport()))
	assert.Contains(t, buf.String(), "A")
	assert.Contains(t, buf.String(), "protocol errors")
}

func TestPlainFormatter_DeepTree(t *testing.T) {
	report := &trace.Report{Roots: []trace.RootSnapshot{
		{Root: "R", Popups: []trace.PopupSnapshot{
			{Surface: "A", Depth: 0},
			{Surface: "B", Depth: 1},
			{Surface: "C", Depth: 2},
			{Surface: "D", Depth: 1},
		}},
		{Root: "S"},
	}}

	var buf bytes.Buffer
	require.NoError(t, NewPlainFormatter(DefaultFormatterOptions()).Format(&buf, report))
	lines := strings.Split(buf.String(), "\n")
	require.GreaterOrEqual(t, len(lines), 6)
	assert.Equal(t, []string{
		"R",
		"└── A @(0,0)",
		"    ├── B @(0,0)",
		"    │   └── C @(0,0)",
		"    └── D @(0,0)",
		"S",
	}, lines[:6])
}

func TestJSONFormatter_Format(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewJSONFormatter(DefaultFormatterOptions()).Format(&buf, testReport()))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Contains(t, decoded, "outcomes")
	assert.Contains(t, decoded, "roots")
	assert.Equal(t, []any{"C"}, decoded["done"])

	stats, ok := decoded["stats"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 3, stats["popups"])
}

func TestEventsFormatter_Format(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewEventsFormatter(DefaultFormatterOptions()).Format(&buf, testReport()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, []string{
		"0 | toplevel | R | ok",
		"1 | grab | A | ok",
		"2 | grab | B | ok prev=1",
		"3 | grab | A | not_the_topmost_popup",
	}, lines)
}

func TestEventsFormatter_NoIndex(t *testing.T) {
	var buf bytes.Buffer
	opts := DefaultFormatterOptions()
	opts.ShowIndex = false
	opts.Separator = ""
	require.NoError(t, NewEventsFormatter(opts).Format(&buf, testReport()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, "toplevel | R | ok", lines[0])
}

func TestEventsFormatter_CustomTemplate(t *testing.T) {
	var buf bytes.Buffer
	opts := DefaultFormatterOptions()
	opts.Template = "{{upper .Op}} {{.Surface}} {{serial .PreviousSerial}}{{if failed .Result}} !{{end}}"
	require.NoError(t, NewEventsFormatter(opts).Format(&buf, testReport()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, []string{
		"TOPLEVEL R -",
		"GRAB A -",
		"GRAB B 1",
		"GRAB A - !",
	}, lines)
}

func TestEventsFormatter_InvalidTemplate(t *testing.T) {
	var buf bytes.Buffer
	opts := DefaultFormatterOptions()
	opts.Template = "{{.Unclosed"
	require.NoError(t, NewEventsFormatter(opts).Format(&buf, testReport()))

	// Falls back to the default format
	assert.True(t, strings.HasPrefix(buf.String(), "0 | toplevel | R | ok\n"))
}

func TestIDsFormatter_Format(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewIDsFormatter().Format(&buf, testReport()))
	assert.Equal(t, "01A\n01B\n01D\n", buf.String())
}
