package popup

import (
	"github.com/jmylchreest/popuptrack/internal/model"
	"github.com/jmylchreest/popuptrack/internal/surface"
)

// UngrabStrategy selects how much of a grab chain Ungrab releases.
type UngrabStrategy int

const (
	// UngrabTopmost releases only the most recently grabbed popup.
	UngrabTopmost UngrabStrategy = iota
	// UngrabAll releases the whole chain.
	UngrabAll
)

func (s UngrabStrategy) String() string {
	switch s {
	case UngrabTopmost:
		return "topmost"
	case UngrabAll:
		return "all"
	default:
		return "unknown"
	}
}

// GrabChain is the per-seat chain of explicitly grabbed popups, most recent
// last. Implementations must be pointer types; the Manager compares them by
// identity.
type GrabChain interface {
	// Grab extends the chain with popup. On success it returns the serial of
	// the previous topmost popup, if there was one. A popup whose parent is
	// not the chain's tail is rejected with ErrParentDismissed or
	// ErrNotTheTopmostPopup.
	Grab(popup Kind, serial model.Serial) (previous model.Serial, hasPrevious bool, err error)
	// Active reports whether the chain holds a live grab.
	Active() bool
	// Cleanup drops grabs of destroyed popups.
	Cleanup()
	// Alive reports whether the chain still needs to be tracked.
	Alive() bool
	// Current returns the topmost live grabbed popup.
	Current() (Kind, bool)
	// Ungrab releases grabs according to strategy and returns the popup whose
	// subtree must be dismissed as a result.
	Ungrab(strategy UngrabStrategy) (Kind, bool)
}

// reclaimable is what the Manager needs from any grab chain, whatever seat
// type produced it.
type reclaimable interface {
	Cleanup()
	Alive() bool
}

// Keyboard is the keyboard capability of a seat.
type Keyboard interface {
	SetFocus(s *surface.Surface, serial model.Serial)
	Focus() *surface.Surface
}

// Seat is the input seat a popup grab is taken on.
type Seat interface {
	// PopupGrabChain returns the seat's grab chain, creating it on first use.
	PopupGrabChain() GrabChain
	// Keyboard returns the seat's keyboard, or nil if it has none.
	Keyboard() Keyboard
}

// Grab is an explicit popup grab acquired through Manager.GrabPopup.
type Grab struct {
	chain       GrabChain
	root        *surface.Surface
	popup       Kind
	serial      model.Serial
	previous    model.Serial
	hasPrevious bool
	keyboard    Keyboard
}

// Chain returns the seat's grab chain the grab belongs to.
func (g *Grab) Chain() GrabChain { return g.chain }

// Root returns the root surface of the grabbed popup.
func (g *Grab) Root() *surface.Surface { return g.root }

// Popup returns the popup the grab was requested for.
func (g *Grab) Popup() Kind { return g.popup }

// Serial returns the serial the grab was acquired with.
func (g *Grab) Serial() model.Serial { return g.serial }

// PreviousSerial returns the serial of the popup that was topmost before this
// grab, if any.
func (g *Grab) PreviousSerial() (model.Serial, bool) {
	return g.previous, g.hasPrevious
}

// Keyboard returns the seat's keyboard at grab time, or nil.
func (g *Grab) Keyboard() Keyboard { return g.keyboard }

// Current returns the topmost popup still grabbed on the seat.
func (g *Grab) Current() (Kind, bool) {
	return g.chain.Current()
}

// HasEnded reports whether every popup of the chain has been released.
func (g *Grab) HasEnded() bool {
	return !g.chain.Active()
}

// Ungrab releases the chain according to strategy, dismisses the released
// popups and moves keyboard focus to whatever is now topmost.
func (g *Grab) Ungrab(strategy UngrabStrategy) {
	if released, ok := g.chain.Ungrab(strategy); ok {
		DismissPopup(g.root, released)
	}

	if g.keyboard == nil {
		return
	}
	if current, ok := g.chain.Current(); ok {
		g.keyboard.SetFocus(current.Surface(), g.serial)
	} else {
		g.keyboard.SetFocus(g.root, g.serial)
	}
}
