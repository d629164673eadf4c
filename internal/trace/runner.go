package trace

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmylchreest/popuptrack/internal/model"
	"github.com/jmylchreest/popuptrack/internal/popup"
	"github.com/jmylchreest/popuptrack/internal/seat"
	"github.com/jmylchreest/popuptrack/internal/surface"
)

// Outcome is what the popup core answered to one event.
type Outcome struct {
	Index          int     `json:"index"`
	Op             string  `json:"op"`
	Surface        string  `json:"surface,omitempty"`
	Result         string  `json:"result"`
	Error          string  `json:"error,omitempty"`
	PreviousSerial *uint32 `json:"previous_serial,omitempty"`
}

// PostedError is a protocol error posted on a surface during the run.
type PostedError struct {
	Surface string `json:"surface"`
	surface.ProtocolError
}

// PopupSnapshot is one popup of a root's tree at the end of the run.
type PopupSnapshot struct {
	Surface string      `json:"surface"`
	ID      string      `json:"id"`
	Parent  string      `json:"parent"`
	Depth   int         `json:"depth"`
	Offset  model.Point `json:"offset"`
}

// RootSnapshot is a root surface and its popups in pre-order.
type RootSnapshot struct {
	Root   string          `json:"root"`
	ID     string          `json:"id"`
	Popups []PopupSnapshot `json:"popups"`
}

// Report collects everything observed while replaying a trace.
type Report struct {
	Outcomes       []Outcome      `json:"outcomes"`
	Done           []string       `json:"done"`
	ProtocolErrors []PostedError  `json:"protocol_errors"`
	Roots          []RootSnapshot `json:"roots"`
	Stats          popup.Stats    `json:"stats"`
}

// Runner applies trace events to a popup manager.
type Runner struct {
	manager *popup.Manager
	logger  *slog.Logger

	surfaces map[string]*surface.Surface
	popups   map[string]*popup.XDGPopup
	seats    map[string]*seat.Seat
	grabs    map[string]*popup.Grab

	report *Report
}

// NewRunner creates a Runner driving manager. A nil manager gets a fresh one.
func NewRunner(manager *popup.Manager, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if manager == nil {
		manager = popup.NewManager(logger)
	}
	return &Runner{
		manager:  manager,
		logger:   logger,
		surfaces: make(map[string]*surface.Surface),
		popups:   make(map[string]*popup.XDGPopup),
		seats:    make(map[string]*seat.Seat),
		grabs:    make(map[string]*popup.Grab),
		report:   &Report{},
	}
}

// Manager returns the manager the runner drives.
func (r *Runner) Manager() *popup.Manager {
	return r.manager
}

// Run replays every event of tr in order and returns the report. Domain
// errors of the popup core are recorded as outcomes; malformed events stop
// the run with an *EventError. The context is checked between events.
func (r *Runner) Run(ctx context.Context, tr *Trace) (*Report, error) {
	for _, name := range tr.Seats {
		r.addSeat(name)
	}

	for i, ev := range tr.Events {
		if err := ctx.Err(); err != nil {
			return r.finish(), err
		}
		if err := r.apply(i, ev); err != nil {
			return r.finish(), &EventError{Index: i, Op: ev.Op, Cause: err}
		}
	}

	return r.finish(), nil
}

func (r *Runner) addSeat(name string) *seat.Seat {
	if st, ok := r.seats[name]; ok {
		return st
	}
	st := seat.New(name, r.logger)
	st.AddKeyboard()
	r.seats[name] = st
	return st
}

func (r *Runner) apply(index int, ev Event) error {
	outcome := Outcome{Index: index, Op: ev.Op, Surface: ev.Surface}
	var coreErr error

	switch ev.Op {
	case OpToplevel:
		s, err := r.newSurface(ev.Surface)
		if err != nil {
			return err
		}
		if err := s.SetRole(surface.RoleXDGToplevel); err != nil {
			return err
		}

	case OpPopup:
		var parent *surface.Surface
		if ev.Parent != "" {
			var err error
			if parent, err = r.surface(ev.Parent); err != nil {
				return err
			}
		}
		s, err := r.newSurface(ev.Surface)
		if err != nil {
			return err
		}
		p, err := popup.NewXDGPopup(s, parent, model.Pt(ev.X, ev.Y))
		if err != nil {
			return err
		}
		p.OnDone(func(s *surface.Surface) {
			r.report.Done = append(r.report.Done, s.Label())
		})
		r.popups[ev.Surface] = p
		coreErr = r.manager.TrackPopup(p)

	case OpSetParent:
		p, err := r.popup(ev.Surface)
		if err != nil {
			return err
		}
		parent, err := r.surface(ev.Parent)
		if err != nil {
			return err
		}
		p.State().SetParent(parent)

	case OpMove:
		p, err := r.popup(ev.Surface)
		if err != nil {
			return err
		}
		p.State().SetLocation(model.Pt(ev.X, ev.Y))

	case OpCommit:
		s, err := r.surface(ev.Surface)
		if err != nil {
			return err
		}
		if p, ok := r.popups[ev.Surface]; ok {
			p.State().MarkCommitted()
		}
		r.manager.Commit(s)

	case OpGrab:
		st, ok := r.seats[ev.Seat]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownSeat, ev.Seat)
		}
		s, err := r.surface(ev.Surface)
		if err != nil {
			return err
		}
		g, err := r.manager.GrabPopup(st, s, model.Serial(ev.Serial))
		coreErr = err
		if err == nil {
			r.grabs[ev.Seat] = g
			if prev, ok := g.PreviousSerial(); ok {
				v := uint32(prev)
				outcome.PreviousSerial = &v
			}
		}

	case OpUngrab:
		if _, ok := r.seats[ev.Seat]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownSeat, ev.Seat)
		}
		strategy, err := parseStrategy(ev.Strategy)
		if err != nil {
			return err
		}
		g, ok := r.grabs[ev.Seat]
		if !ok || g.HasEnded() {
			coreErr = ErrNoActiveGrab
			break
		}
		g.Ungrab(strategy)

	case OpDismiss:
		p, err := r.popup(ev.Surface)
		if err != nil {
			return err
		}
		root, err := popup.FindRootSurface(p)
		if err != nil {
			coreErr = err
			break
		}
		popup.DismissPopup(root, p)

	case OpDestroy:
		s, err := r.surface(ev.Surface)
		if err != nil {
			return err
		}
		s.Destroy()

	case OpCleanup:
		r.manager.Cleanup()

	default:
		return fmt.Errorf("%w: %q", ErrUnknownOp, ev.Op)
	}

	outcome.Result = ErrorName(coreErr)
	if coreErr != nil {
		outcome.Error = coreErr.Error()
	}
	r.report.Outcomes = append(r.report.Outcomes, outcome)

	r.logger.Debug("applied trace event",
		"index", index,
		"op", ev.Op,
		"surface", ev.Surface,
		"result", outcome.Result,
	)

	if ev.Expect != "" {
		if _, known := errorNames[ev.Expect]; !known && ev.Expect != "ok" {
			return fmt.Errorf("%w: %q", ErrUnknownExpect, ev.Expect)
		}
		if ev.Expect != outcome.Result {
			return fmt.Errorf("%w: got %s, want %s", ErrUnexpectedOutcome, outcome.Result, ev.Expect)
		}
	}

	return nil
}

func parseStrategy(s string) (popup.UngrabStrategy, error) {
	switch s {
	case "", "topmost":
		return popup.UngrabTopmost, nil
	case "all":
		return popup.UngrabAll, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
	}
}

func (r *Runner) newSurface(name string) (*surface.Surface, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", ErrUnknownSurface)
	}
	if _, exists := r.surfaces[name]; exists {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateSurface, name)
	}

	s := surface.New(name)
	s.SetErrorHandler(func(s *surface.Surface, perr surface.ProtocolError) {
		r.report.ProtocolErrors = append(r.report.ProtocolErrors, PostedError{
			Surface:       s.Label(),
			ProtocolError: perr,
		})
	})
	r.surfaces[name] = s
	return s, nil
}

func (r *Runner) surface(name string) (*surface.Surface, error) {
	s, ok := r.surfaces[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSurface, name)
	}
	return s, nil
}

func (r *Runner) popup(name string) (*popup.XDGPopup, error) {
	if _, err := r.surface(name); err != nil {
		return nil, err
	}
	p, ok := r.popups[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotAPopup, name)
	}
	return p, nil
}

func (r *Runner) finish() *Report {
	r.report.Roots = Snapshot(r.manager)
	r.report.Stats = r.manager.Stats()
	return r.report
}

// Snapshot captures every registered root and its popups.
func Snapshot(m *popup.Manager) []RootSnapshot {
	roots := m.Roots()
	out := make([]RootSnapshot, 0, len(roots))

	for _, root := range roots {
		snap := RootSnapshot{
			Root:   root.Label(),
			ID:     root.ID().String(),
			Popups: []PopupSnapshot{},
		}

		depth := map[*surface.Surface]int{}
		for k, offset := range popup.PopupsForSurface(root) {
			d := 0
			parentLabel := ""
			if parent := k.Parent(); parent != nil {
				parentLabel = parent.Label()
				if pd, ok := depth[parent]; ok {
					d = pd + 1
				}
			}
			depth[k.Surface()] = d

			snap.Popups = append(snap.Popups, PopupSnapshot{
				Surface: k.Surface().Label(),
				ID:      k.Surface().ID().String(),
				Parent:  parentLabel,
				Depth:   d,
				Offset:  offset,
			})
		}
		out = append(out, snap)
	}
	return out
}
