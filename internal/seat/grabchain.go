package seat

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/jmylchreest/popuptrack/internal/model"
	"github.com/jmylchreest/popuptrack/internal/popup"
	"github.com/jmylchreest/popuptrack/internal/surface"
)

type grabEntry struct {
	popup  popup.Kind
	serial model.Serial
}

// PopupGrabChain is the ordered chain of popups grabbed on one seat, most
// recent last. Each popup's parent is the entry before it, except for the
// first, whose parent is a non-popup surface.
type PopupGrabChain struct {
	logger *slog.Logger

	mu      sync.Mutex
	entries []grabEntry
}

var _ popup.GrabChain = (*PopupGrabChain)(nil)

// NewPopupGrabChain creates an empty chain.
func NewPopupGrabChain(logger *slog.Logger) *PopupGrabChain {
	if logger == nil {
		logger = slog.Default()
	}
	return &PopupGrabChain{logger: logger}
}

// Grab appends p to the chain if p's parent is the current tail, or if the
// chain is empty and p's parent is not a popup.
func (c *PopupGrabChain) Grab(p popup.Kind, serial model.Serial) (model.Serial, bool, error) {
	parent := p.Parent()
	if parent == nil {
		return 0, false, popup.ErrInvalidParent
	}
	parentIsPopup := parent.HasRole(surface.RoleXDGPopup)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanupLocked()

	if len(c.entries) == 0 {
		if parentIsPopup {
			// The parent popup's own grab is already gone.
			return 0, false, popup.ErrParentDismissed
		}
		c.entries = append(c.entries, grabEntry{popup: p, serial: serial})
		return 0, false, nil
	}

	tail := c.entries[len(c.entries)-1]
	if tail.popup.Surface() == parent {
		c.entries = append(c.entries, grabEntry{popup: p, serial: serial})
		return tail.serial, true, nil
	}

	for _, e := range c.entries {
		if s := e.popup.Surface(); s == parent || s == p.Surface() {
			return 0, false, popup.ErrNotTheTopmostPopup
		}
	}
	if parentIsPopup {
		return 0, false, popup.ErrParentDismissed
	}
	// A new chain on a toplevel while another one is still active.
	return 0, false, popup.ErrNotTheTopmostPopup
}

// Active reports whether any grabbed popup is still alive.
func (c *PopupGrabChain) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return slices.ContainsFunc(c.entries, func(e grabEntry) bool { return e.popup.Alive() })
}

// Cleanup drops grabs of destroyed popups.
func (c *PopupGrabChain) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanupLocked()
}

func (c *PopupGrabChain) cleanupLocked() {
	before := len(c.entries)
	c.entries = slices.DeleteFunc(c.entries, func(e grabEntry) bool { return !e.popup.Alive() })
	if dropped := before - len(c.entries); dropped > 0 {
		c.logger.Debug("dropped dead popup grabs", "count", dropped, "remaining", len(c.entries))
	}
}

// Alive reports whether the chain still holds any grab.
func (c *PopupGrabChain) Alive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries) > 0
}

// Current returns the topmost live grabbed popup.
func (c *PopupGrabChain) Current() (popup.Kind, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := len(c.entries) - 1; i >= 0; i-- {
		if c.entries[i].popup.Alive() {
			return c.entries[i].popup, true
		}
	}
	return nil, false
}

// Ungrab releases the topmost grab or the whole chain. It returns the popup
// that has to be dismissed: the released tail, or the first popup of the
// chain, whose dismissal cascades to every later one.
func (c *PopupGrabChain) Ungrab(strategy popup.UngrabStrategy) (popup.Kind, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) == 0 {
		return nil, false
	}

	var released grabEntry
	switch strategy {
	case popup.UngrabAll:
		released = c.entries[0]
		c.entries = nil
	default:
		last := len(c.entries) - 1
		released = c.entries[last]
		c.entries = slices.Delete(c.entries, last, last+1)
	}

	c.logger.Debug("popup ungrabbed",
		"popup", released.popup.Surface().ID(),
		"strategy", strategy.String(),
		"remaining", len(c.entries),
	)
	return released.popup, true
}

// Serials returns the serials of the chain, oldest first.
func (c *PopupGrabChain) Serials() []model.Serial {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]model.Serial, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.serial
	}
	return out
}

// Len returns the number of grabs in the chain.
func (c *PopupGrabChain) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
