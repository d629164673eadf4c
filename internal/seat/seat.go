package seat

import (
	"log/slog"
	"sync"

	"github.com/jmylchreest/popuptrack/internal/model"
	"github.com/jmylchreest/popuptrack/internal/popup"
	"github.com/jmylchreest/popuptrack/internal/surface"
)

// Seat is a named group of input devices.
type Seat struct {
	name   string
	logger *slog.Logger

	mu       sync.Mutex
	chain    *PopupGrabChain
	keyboard *Keyboard
}

var _ popup.Seat = (*Seat)(nil)

// New creates a seat without input devices.
func New(name string, logger *slog.Logger) *Seat {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seat{
		name:   name,
		logger: logger.With("seat", name),
	}
}

// Name returns the seat name.
func (s *Seat) Name() string {
	return s.name
}

// AddKeyboard gives the seat a keyboard, returning the existing one if the
// seat already has it.
func (s *Seat) AddKeyboard() *Keyboard {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.keyboard == nil {
		s.keyboard = &Keyboard{logger: s.logger}
	}
	return s.keyboard
}

// Keyboard returns the seat's keyboard, or nil.
func (s *Seat) Keyboard() popup.Keyboard {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.keyboard == nil {
		return nil
	}
	return s.keyboard
}

// PopupGrabChain returns the seat's popup grab chain, creating it on first
// use. Every caller gets the same chain.
func (s *Seat) PopupGrabChain() popup.GrabChain {
	return s.GrabChain()
}

// GrabChain is PopupGrabChain with the concrete type.
func (s *Seat) GrabChain() *PopupGrabChain {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.chain == nil {
		s.chain = NewPopupGrabChain(s.logger)
	}
	return s.chain
}

// Keyboard tracks which surface has keyboard focus.
type Keyboard struct {
	logger *slog.Logger

	mu     sync.Mutex
	focus  *surface.Surface
	serial model.Serial
}

var _ popup.Keyboard = (*Keyboard)(nil)

// SetFocus moves keyboard focus to s. A nil surface clears focus.
func (k *Keyboard) SetFocus(s *surface.Surface, serial model.Serial) {
	k.mu.Lock()
	k.focus = s
	k.serial = serial
	k.mu.Unlock()

	if s != nil {
		k.logger.Debug("keyboard focus changed", "surface", s.ID(), "serial", serial)
	} else {
		k.logger.Debug("keyboard focus cleared", "serial", serial)
	}
}

// Focus returns the focused surface, or nil.
func (k *Keyboard) Focus() *surface.Surface {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.focus
}

// Serial returns the serial of the last focus change.
func (k *Keyboard) Serial() model.Serial {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.serial
}
