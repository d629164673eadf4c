package surface

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	a := New("a")
	b := New("b")

	assert.True(t, a.Alive())
	assert.Equal(t, "a", a.Label())
	assert.NotEqual(t, a.ID(), b.ID())
	assert.Empty(t, a.Role())
}

func TestSurface_LabelFallsBackToID(t *testing.T) {
	s := New("")
	assert.Equal(t, s.ID().String(), s.Label())
}

func TestSurface_Destroy(t *testing.T) {
	s := New("s")
	s.Destroy()
	assert.False(t, s.Alive())

	var nilSurface *Surface
	assert.False(t, nilSurface.Alive())
}

func TestSurface_SetRole(t *testing.T) {
	s := New("s")

	require.NoError(t, s.SetRole(RoleXDGPopup))
	assert.True(t, s.HasRole(RoleXDGPopup))

	// Same role again is fine
	require.NoError(t, s.SetRole(RoleXDGPopup))

	err := s.SetRole(RoleXDGToplevel)
	assert.ErrorIs(t, err, ErrRoleAlreadySet)
	assert.Equal(t, RoleXDGPopup, s.Role())
}

func TestSurface_PostError(t *testing.T) {
	s := New("s")

	var seen []ProtocolError
	s.SetErrorHandler(func(got *Surface, perr ProtocolError) {
		assert.Same(t, s, got)
		seen = append(seen, perr)
	})

	s.PostError(InterfaceXDGPopup, XDGPopupErrorInvalidGrab, "xdg_popup already is mapped")

	want := ProtocolError{Interface: "xdg_popup", Code: 0, Message: "xdg_popup already is mapped"}
	assert.Equal(t, []ProtocolError{want}, s.Errors())
	assert.Equal(t, []ProtocolError{want}, seen)
}

type counter struct{ n int }

func TestInsertIfMissing(t *testing.T) {
	s := New("s")

	_, ok := Get[*counter](s)
	assert.False(t, ok)

	first := &counter{n: 1}
	assert.True(t, InsertIfMissing(s, func() *counter { return first }))
	assert.False(t, InsertIfMissing(s, func() *counter {
		t.Fatal("init must not run when data is present")
		return nil
	}))

	got, ok := Get[*counter](s)
	require.True(t, ok)
	assert.Same(t, first, got)

	// Distinct types do not collide
	_, ok = Get[counter](s)
	assert.False(t, ok)
}
