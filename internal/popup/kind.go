package popup

import (
	"sync"

	"github.com/jmylchreest/popuptrack/internal/model"
	"github.com/jmylchreest/popuptrack/internal/surface"
)

// Kind is a handle to a popup surface of any supported protocol variant.
// Two handles refer to the same popup when their surfaces are identical.
type Kind interface {
	// Surface returns the popup's underlying surface.
	Surface() *surface.Surface
	// Alive reports whether the underlying surface still exists.
	Alive() bool
	// Parent returns the declared parent surface, or nil if none is known yet.
	Parent() *surface.Surface
	// Location returns the placement offset relative to the parent.
	Location() model.Point
	// SendDone tells the client the popup has been dismissed.
	SendDone()
}

// DoneHandler observes done notifications sent to a popup's client.
type DoneHandler func(s *surface.Surface)

// XDGPopupState is the xdg_popup role data stored on the popup's surface.
type XDGPopupState struct {
	mu        sync.Mutex
	parent    *surface.Surface
	committed bool
	location  model.Point
	dismissed bool
	onDone    DoneHandler
}

// Parent returns the parent surface, or nil.
func (st *XDGPopupState) Parent() *surface.Surface {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.parent
}

// SetParent records the parent surface once it is known.
func (st *XDGPopupState) SetParent(parent *surface.Surface) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.parent = parent
}

// Committed reports whether the popup has had its initial commit.
func (st *XDGPopupState) Committed() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.committed
}

// MarkCommitted records the popup's initial commit.
func (st *XDGPopupState) MarkCommitted() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.committed = true
}

// Location returns the placement offset relative to the parent.
func (st *XDGPopupState) Location() model.Point {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.location
}

// SetLocation updates the placement offset.
func (st *XDGPopupState) SetLocation(p model.Point) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.location = p
}

// Dismissed reports whether popup_done has been sent.
func (st *XDGPopupState) Dismissed() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.dismissed
}

// XDGPopup is a popup created through xdg_surface.get_popup.
type XDGPopup struct {
	surface *surface.Surface
	state   *XDGPopupState
}

var _ Kind = (*XDGPopup)(nil)

// NewXDGPopup assigns the xdg_popup role to s and returns its handle.
// parent may be nil when the parent is supplied later by another protocol.
func NewXDGPopup(s *surface.Surface, parent *surface.Surface, location model.Point) (*XDGPopup, error) {
	if !s.Alive() {
		return nil, ErrDeadResource
	}
	if err := s.SetRole(surface.RoleXDGPopup); err != nil {
		return nil, err
	}

	surface.InsertIfMissing(s, func() *XDGPopupState { return &XDGPopupState{} })
	st, _ := surface.Get[*XDGPopupState](s)

	st.mu.Lock()
	st.parent = parent
	st.location = location
	st.mu.Unlock()

	return &XDGPopup{surface: s, state: st}, nil
}

// FromSurface returns the xdg popup handle for s if s carries the popup role.
func FromSurface(s *surface.Surface) (*XDGPopup, bool) {
	if !s.HasRole(surface.RoleXDGPopup) {
		return nil, false
	}
	st, ok := surface.Get[*XDGPopupState](s)
	if !ok {
		return nil, false
	}
	return &XDGPopup{surface: s, state: st}, true
}

func (p *XDGPopup) Surface() *surface.Surface { return p.surface }
func (p *XDGPopup) Alive() bool               { return p.surface.Alive() }
func (p *XDGPopup) Parent() *surface.Surface  { return p.state.Parent() }
func (p *XDGPopup) Location() model.Point     { return p.state.Location() }

// State returns the role data shared by every handle of this popup.
func (p *XDGPopup) State() *XDGPopupState {
	return p.state
}

// OnDone installs a hook observing popup_done.
func (p *XDGPopup) OnDone(h DoneHandler) {
	p.state.mu.Lock()
	defer p.state.mu.Unlock()
	p.state.onDone = h
}

// SendDone sends popup_done. Nothing is sent for a destroyed surface.
func (p *XDGPopup) SendDone() {
	if !p.Alive() {
		return
	}

	p.state.mu.Lock()
	p.state.dismissed = true
	h := p.state.onDone
	p.state.mu.Unlock()

	if h != nil {
		h(p.surface)
	}
}

func (p *XDGPopup) String() string {
	return p.surface.Label()
}
