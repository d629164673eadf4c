package seat

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jmylchreest/popuptrack/internal/surface"
)

func TestNew(t *testing.T) {
	s := New("seat0", nil)
	assert.Equal(t, "seat0", s.Name())
	assert.Nil(t, s.Keyboard())
}

func TestSeat_PopupGrabChainIsShared(t *testing.T) {
	s := New("seat0", nil)

	first := s.PopupGrabChain()
	assert.Same(t, first, s.PopupGrabChain())
	assert.Same(t, s.GrabChain(), first)
}

func TestSeat_AddKeyboard(t *testing.T) {
	s := New("seat0", nil)

	kb := s.AddKeyboard()
	assert.Same(t, kb, s.AddKeyboard())
	assert.Equal(t, kb, s.Keyboard())
}

func TestKeyboard_SetFocus(t *testing.T) {
	kb := New("seat0", nil).AddKeyboard()
	target := surface.New("target")

	assert.Nil(t, kb.Focus())

	kb.SetFocus(target, 12)
	assert.Same(t, target, kb.Focus())
	assert.EqualValues(t, 12, kb.Serial())

	kb.SetFocus(nil, 13)
	assert.Nil(t, kb.Focus())
}
