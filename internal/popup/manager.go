package popup

import (
	"errors"
	"iter"
	"log/slog"
	"slices"

	"github.com/jmylchreest/popuptrack/internal/model"
	"github.com/jmylchreest/popuptrack/internal/surface"
)

// Manager tracks popups from creation until their surfaces are destroyed.
type Manager struct {
	unmapped []Kind
	trees    []*Tree
	grabs    []reclaimable

	logger *slog.Logger
}

// Stats summarizes what a Manager currently tracks.
type Stats struct {
	Unmapped int `json:"unmapped"`
	Trees    int `json:"trees"`
	Grabs    int `json:"grabs"`
	Popups   int `json:"popups"`
}

// NewManager creates an empty Manager.
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{logger: logger}
}

// TrackPopup starts tracking a popup. Popups without a parent are staged
// until their first commit; the others are attached to their root's tree.
func (m *Manager) TrackPopup(k Kind) error {
	if k.Parent() != nil {
		return m.addPopup(k)
	}

	m.logger.Debug("adding unmapped popup", "popup", k.Surface().ID())
	m.unmapped = append(m.unmapped, k)
	return nil
}

// Commit must be called for every commit on a surface so staged popups get
// attached once they are mapped.
func (m *Manager) Commit(s *surface.Surface) {
	if !s.HasRole(surface.RoleXDGPopup) {
		return
	}

	i := slices.IndexFunc(m.unmapped, func(k Kind) bool { return k.Surface() == s })
	if i < 0 {
		return
	}

	m.logger.Debug("popup got mapped", "popup", s.ID())
	k := m.unmapped[i]
	m.unmapped = slices.Delete(m.unmapped, i, i+1)

	// The protocol layer rejects a mapped popup without parent, so this
	// cannot fail for a well-behaved caller.
	if err := m.addPopup(k); err != nil {
		m.logger.Debug("failed to attach mapped popup", "popup", s.ID(), "error", err)
	}
}

func (m *Manager) addPopup(k Kind) error {
	if !k.Alive() {
		return ErrDeadResource
	}

	root, err := FindRootSurface(k)
	if err != nil {
		return err
	}

	created := surface.InsertIfMissing(root, func() *Tree { return newTree(root) })
	tree, _ := surface.Get[*Tree](root)

	// A tree that emptied out was dropped by Cleanup but stays attached to
	// the root; it has to be registered again.
	if (created || !tree.alive()) && !slices.Contains(m.trees, tree) {
		m.trees = append(m.trees, tree)
	}

	m.logger.Debug("adding popup to root", "popup", k.Surface().ID(), "root", root.ID())
	tree.insert(k)
	return nil
}

// FindPopup returns the live tracked popup whose surface is s. Destroyed
// popups are not found even before Cleanup reclaims them.
func (m *Manager) FindPopup(s *surface.Surface) (Kind, bool) {
	for _, k := range m.unmapped {
		if k.Surface() == s && k.Alive() {
			return k, true
		}
	}
	for _, tree := range m.trees {
		for _, p := range tree.popups() {
			if p.popup.Surface() == s {
				return p.popup, true
			}
		}
	}
	return nil, false
}

// PopupsForSurface yields the popups of root's tree in pre-order, each with
// its offset relative to root. The sequence is a snapshot taken at call time.
func PopupsForSurface(root *surface.Surface) iter.Seq2[Kind, model.Point] {
	var popups []positioned
	if tree, ok := surface.Get[*Tree](root); ok {
		popups = tree.popups()
	}

	return func(yield func(Kind, model.Point) bool) {
		for _, p := range popups {
			if !yield(p.popup, p.offset) {
				return
			}
		}
	}
}

// GrabPopup takes an explicit grab for the popup surface target on seat.
// Protocol violations are also posted on target's protocol channel.
func (m *Manager) GrabPopup(seat Seat, target *surface.Surface, serial model.Serial) (*Grab, error) {
	p, ok := FromSurface(target)
	if !ok || !target.Alive() {
		return nil, ErrNoPopup
	}

	root, err := FindRootSurface(p)
	if err != nil {
		return nil, err
	}

	if p.State().Committed() {
		target.PostError(surface.InterfaceXDGPopup, surface.XDGPopupErrorInvalidGrab,
			"xdg_popup already is mapped")
		return nil, ErrInvalidGrab
	}

	// The seat owns the chain; the manager keeps a reference so Cleanup can
	// reclaim it. An inactive chain is either new or was dropped already.
	chain := seat.PopupGrabChain()
	if !chain.Active() && !m.tracksGrab(chain) {
		m.grabs = append(m.grabs, chain)
	}

	previous, hasPrevious, err := chain.Grab(p, serial)
	if err != nil {
		switch {
		case errors.Is(err, ErrParentDismissed):
			DismissPopup(root, p)
		case errors.Is(err, ErrNotTheTopmostPopup):
			target.PostError(surface.InterfaceXDGWmBase, surface.XDGWmBaseErrorNotTheTopmostPopup,
				"xdg_popup was not created on the topmost popup")
		}
		m.logger.Debug("popup grab denied", "popup", target.ID(), "serial", serial, "error", err)
		return nil, err
	}

	m.logger.Debug("popup grab acquired",
		"popup", target.ID(),
		"root", root.ID(),
		"serial", serial,
		"has_previous", hasPrevious,
	)

	return &Grab{
		chain:       chain,
		root:        root,
		popup:       p,
		serial:      serial,
		previous:    previous,
		hasPrevious: hasPrevious,
		keyboard:    seat.Keyboard(),
	}, nil
}

func (m *Manager) tracksGrab(chain GrabChain) bool {
	for _, g := range m.grabs {
		if g == reclaimable(chain) {
			return true
		}
	}
	return false
}

// DismissPopup removes k and all of its descendants from root's tree and
// sends them popup_done, leaves first. It does nothing if root is dead, has
// no tree, or the popup is not in it.
func DismissPopup(root *surface.Surface, k Kind) {
	if !root.Alive() {
		return
	}
	if tree, ok := surface.Get[*Tree](root); ok {
		tree.dismiss(k)
	}
}

// Cleanup reclaims dead grab chains, dead popups, empty trees and dead
// unmapped popups. It should be called periodically but not necessarily
// often.
func (m *Manager) Cleanup() {
	for _, g := range m.grabs {
		g.Cleanup()
	}
	m.grabs = slices.DeleteFunc(m.grabs, func(g reclaimable) bool { return !g.Alive() })

	for _, tree := range m.trees {
		tree.cleanup(m.logger)
	}
	m.trees = slices.DeleteFunc(m.trees, func(t *Tree) bool { return !t.alive() })

	m.unmapped = slices.DeleteFunc(m.unmapped, func(k Kind) bool { return !k.Alive() })
}

// Roots returns the root surfaces of every registered tree.
func (m *Manager) Roots() []*surface.Surface {
	roots := make([]*surface.Surface, 0, len(m.trees))
	for _, tree := range m.trees {
		roots = append(roots, tree.Root())
	}
	return roots
}

// Stats returns counts of the manager's bookkeeping.
func (m *Manager) Stats() Stats {
	st := Stats{
		Unmapped: len(m.unmapped),
		Trees:    len(m.trees),
		Grabs:    len(m.grabs),
	}
	for _, tree := range m.trees {
		st.Popups += tree.Len()
	}
	return st
}
