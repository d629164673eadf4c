package surface

import (
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/oklog/ulid/v2"
)

// Well-known surface roles.
const (
	RoleXDGToplevel = "xdg_toplevel"
	RoleXDGPopup    = "xdg_popup"
)

// Protocol interfaces and error codes posted by the popup core.
const (
	InterfaceXDGPopup  = "xdg_popup"
	InterfaceXDGWmBase = "xdg_wm_base"

	XDGPopupErrorInvalidGrab         uint32 = 0 // tried to grab after being mapped
	XDGWmBaseErrorNotTheTopmostPopup uint32 = 2 // the client tried to map or destroy a non-topmost popup
)

// ProtocolError is a fatal error posted on a surface's protocol channel.
type ProtocolError struct {
	Interface string `json:"interface"`
	Code      uint32 `json:"code"`
	Message   string `json:"message"`
}

// ErrorHandler is called whenever a protocol error is posted on a surface.
type ErrorHandler func(s *Surface, perr ProtocolError)

// Surface is a client surface. Identity is the pointer itself; ID is a stable
// printable form of that identity.
type Surface struct {
	id    ulid.ULID
	label string

	mu      sync.Mutex
	role    string
	data    map[reflect.Type]any
	errors  []ProtocolError
	onError ErrorHandler

	dead atomic.Bool
}

// New creates a live surface without a role. The label is only used for
// diagnostics and output.
func New(label string) *Surface {
	return &Surface{
		id:    ulid.Make(),
		label: label,
		data:  make(map[reflect.Type]any),
	}
}

// ID returns the surface's unique identifier.
func (s *Surface) ID() ulid.ULID {
	return s.id
}

// Label returns the diagnostic label, falling back to the ID.
func (s *Surface) Label() string {
	if s.label == "" {
		return s.id.String()
	}
	return s.label
}

func (s *Surface) String() string {
	return s.Label()
}

// Alive reports whether the client still holds the surface.
func (s *Surface) Alive() bool {
	return s != nil && !s.dead.Load()
}

// Destroy marks the surface as destroyed by its client. Bookkeeping that
// references it is reclaimed lazily by whoever checks Alive.
func (s *Surface) Destroy() {
	s.dead.Store(true)
}

// Role returns the surface role, or "" if none has been assigned.
func (s *Surface) Role() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.role
}

// HasRole reports whether the surface carries the given role.
func (s *Surface) HasRole(role string) bool {
	return s != nil && s.Role() == role
}

// SetRole assigns a role. A surface keeps its role for its whole lifetime;
// assigning a different one fails with ErrRoleAlreadySet.
func (s *Surface) SetRole(role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.role != "" && s.role != role {
		return ErrRoleAlreadySet
	}
	s.role = role
	return nil
}

// SetErrorHandler installs a hook observing posted protocol errors.
func (s *Surface) SetErrorHandler(h ErrorHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onError = h
}

// PostError posts a protocol error on the surface's channel.
func (s *Surface) PostError(iface string, code uint32, message string) {
	perr := ProtocolError{Interface: iface, Code: code, Message: message}

	s.mu.Lock()
	s.errors = append(s.errors, perr)
	h := s.onError
	s.mu.Unlock()

	if h != nil {
		h(s, perr)
	}
}

// Errors returns a copy of every protocol error posted so far.
func (s *Surface) Errors() []ProtocolError {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ProtocolError, len(s.errors))
	copy(out, s.errors)
	return out
}

// InsertIfMissing stores the value produced by init as the surface's side
// data of type T, unless one is already present. It reports whether init ran.
func InsertIfMissing[T any](s *Surface, init func() T) bool {
	key := reflect.TypeFor[T]()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[key]; ok {
		return false
	}
	s.data[key] = init()
	return true
}

// Get returns the surface's side data of type T.
func Get[T any](s *Surface) (T, bool) {
	key := reflect.TypeFor[T]()

	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.data[key]
	if !ok {
		var zero T
		return zero, false
	}
	return v.(T), true
}

// Errors
var (
	ErrRoleAlreadySet = surfaceError("surface already has a different role")
)

type surfaceError string

func (e surfaceError) Error() string {
	return string(e)
}
