package popup

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/popuptrack/internal/model"
	"github.com/jmylchreest/popuptrack/internal/surface"
)

func testToplevel(t *testing.T, label string) *surface.Surface {
	t.Helper()
	s := surface.New(label)
	require.NoError(t, s.SetRole(surface.RoleXDGToplevel))
	return s
}

func testPopup(t *testing.T, label string, parent *surface.Surface, loc model.Point) *XDGPopup {
	t.Helper()
	p, err := NewXDGPopup(surface.New(label), parent, loc)
	require.NoError(t, err)
	return p
}

// doneRecorder collects popup_done notifications in the order they are sent.
type doneRecorder struct {
	labels []string
}

func (r *doneRecorder) watch(popups ...*XDGPopup) {
	for _, p := range popups {
		p.OnDone(func(s *surface.Surface) {
			r.labels = append(r.labels, s.Label())
		})
	}
}

func testLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func labels(root *surface.Surface) []string {
	var out []string
	for k := range PopupsForSurface(root) {
		out = append(out, k.Surface().Label())
	}
	return out
}
