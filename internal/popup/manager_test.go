package popup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/popuptrack/internal/model"
	"github.com/jmylchreest/popuptrack/internal/surface"
)

func TestNewManager(t *testing.T) {
	m := NewManager(nil)
	assert.NotNil(t, m)
	assert.Equal(t, Stats{}, m.Stats())
	assert.Empty(t, m.Roots())
}

func TestManager_TrackPopup(t *testing.T) {
	m := NewManager(nil)
	root := testToplevel(t, "R")
	a := testPopup(t, "A", root, model.Point{})

	require.NoError(t, m.TrackPopup(a))

	assert.Equal(t, []string{"A"}, labels(root))
	assert.Equal(t, Stats{Trees: 1, Popups: 1}, m.Stats())
	assert.Equal(t, []*surface.Surface{root}, m.Roots())

	found, ok := m.FindPopup(a.Surface())
	require.True(t, ok)
	assert.Same(t, a.Surface(), found.Surface())
}

func TestManager_TrackPopupUnmapped(t *testing.T) {
	m := NewManager(nil)
	root := testToplevel(t, "R")
	a := testPopup(t, "A", nil, model.Point{})

	require.NoError(t, m.TrackPopup(a))
	assert.Equal(t, Stats{Unmapped: 1}, m.Stats())
	assert.Empty(t, labels(root))

	// Still found while staged
	_, ok := m.FindPopup(a.Surface())
	assert.True(t, ok)

	// Parent arrives later, the commit attaches it
	a.State().SetParent(root)
	a.State().MarkCommitted()
	m.Commit(a.Surface())

	assert.Equal(t, Stats{Trees: 1, Popups: 1}, m.Stats())
	assert.Equal(t, []string{"A"}, labels(root))
}

func TestManager_TrackPopupErrors(t *testing.T) {
	m := NewManager(nil)
	root := testToplevel(t, "R")

	t.Run("dead popup", func(t *testing.T) {
		a := testPopup(t, "A", root, model.Point{})
		a.Surface().Destroy()
		assert.ErrorIs(t, m.TrackPopup(a), ErrDeadResource)
	})

	t.Run("unresolvable root", func(t *testing.T) {
		orphan := testPopup(t, "O", nil, model.Point{})
		b := testPopup(t, "B", orphan.Surface(), model.Point{})
		assert.ErrorIs(t, m.TrackPopup(b), ErrDeadResource)
	})

	assert.Equal(t, Stats{}, m.Stats())
}

func TestManager_Commit(t *testing.T) {
	m := NewManager(nil)
	root := testToplevel(t, "R")

	t.Run("ignores non-popup surfaces", func(t *testing.T) {
		m.Commit(root)
		assert.Equal(t, Stats{}, m.Stats())
	})

	t.Run("ignores popups that are not staged", func(t *testing.T) {
		a := testPopup(t, "A", root, model.Point{})
		require.NoError(t, m.TrackPopup(a))
		m.Commit(a.Surface())
		m.Commit(a.Surface())
		assert.Equal(t, 1, m.Stats().Popups)
	})

	t.Run("swallows attach failures", func(t *testing.T) {
		b := testPopup(t, "B", nil, model.Point{})
		require.NoError(t, m.TrackPopup(b))
		assert.NotPanics(t, func() { m.Commit(b.Surface()) })
		assert.Equal(t, 0, m.Stats().Unmapped)
		_, ok := m.FindPopup(b.Surface())
		assert.False(t, ok)
	})
}

func TestManager_Scenario(t *testing.T) {
	m := NewManager(nil)
	root := testToplevel(t, "R")

	a := testPopup(t, "A", nil, model.Pt(10, 10))
	require.NoError(t, m.TrackPopup(a))
	a.State().SetParent(root)
	m.Commit(a.Surface())
	assert.Equal(t, []string{"A"}, labels(root))

	b := testPopup(t, "B", nil, model.Pt(1, 2))
	require.NoError(t, m.TrackPopup(b))
	b.State().SetParent(a.Surface())
	m.Commit(b.Surface())
	assert.Equal(t, []string{"A", "B"}, labels(root))

	offsets := map[string]model.Point{}
	for k, off := range PopupsForSurface(root) {
		offsets[k.Surface().Label()] = off
	}
	assert.Equal(t, model.Pt(10, 10), offsets["A"])
	assert.Equal(t, model.Pt(11, 12), offsets["B"])

	found, ok := m.FindPopup(b.Surface())
	require.True(t, ok)
	assert.Same(t, b.Surface(), found.Surface())

	var rec doneRecorder
	rec.watch(a, b)
	DismissPopup(root, a)

	assert.Equal(t, []string{"B", "A"}, rec.labels)
	assert.Empty(t, labels(root))
}

func TestManager_FindPopupOnlyLive(t *testing.T) {
	m := NewManager(nil)
	root := testToplevel(t, "R")

	var popups []*XDGPopup
	parent := root
	for _, l := range []string{"A", "B", "C", "D"} {
		p := testPopup(t, l, parent, model.Point{})
		require.NoError(t, m.TrackPopup(p))
		popups = append(popups, p)
		parent = p.Surface()
	}

	staged := testPopup(t, "S", nil, model.Point{})
	require.NoError(t, m.TrackPopup(staged))

	popups[3].Surface().Destroy()
	staged.Surface().Destroy()

	// Destroyed popups are gone from queries before any cleanup
	_, ok := m.FindPopup(popups[3].Surface())
	assert.False(t, ok)
	_, ok = m.FindPopup(staged.Surface())
	assert.False(t, ok)
	assert.Equal(t, Stats{Unmapped: 1, Trees: 1, Popups: 4}, m.Stats())

	m.Cleanup()
	assert.Equal(t, Stats{Trees: 1, Popups: 3}, m.Stats())

	for _, p := range popups[:3] {
		_, ok := m.FindPopup(p.Surface())
		assert.True(t, ok, p.Surface().Label())
	}
	_, ok = m.FindPopup(popups[3].Surface())
	assert.False(t, ok)
}

func TestPopupsForSurface(t *testing.T) {
	root := testToplevel(t, "R")

	t.Run("no tree", func(t *testing.T) {
		assert.Empty(t, labels(root))
	})

	t.Run("snapshot and early stop", func(t *testing.T) {
		m := NewManager(nil)
		a := testPopup(t, "A", root, model.Point{})
		b := testPopup(t, "B", root, model.Point{})
		require.NoError(t, m.TrackPopup(a))
		require.NoError(t, m.TrackPopup(b))

		seq := PopupsForSurface(root)

		// Changes after the call are not visible
		c := testPopup(t, "C", root, model.Point{})
		require.NoError(t, m.TrackPopup(c))

		var got []string
		for k := range seq {
			got = append(got, k.Surface().Label())
			break
		}
		assert.Equal(t, []string{"A"}, got)

		n := 0
		for range seq {
			n++
		}
		assert.Equal(t, 2, n)
	})

	t.Run("dead popups and their subtrees are skipped", func(t *testing.T) {
		root := testToplevel(t, "R2")
		m := NewManager(nil)
		a := testPopup(t, "A", root, model.Point{})
		b := testPopup(t, "B", a.Surface(), model.Point{})
		c := testPopup(t, "C", root, model.Pt(4, 4))
		for _, p := range []*XDGPopup{a, b, c} {
			require.NoError(t, m.TrackPopup(p))
		}

		a.Surface().Destroy()

		var got []string
		for k, offset := range PopupsForSurface(root) {
			got = append(got, k.Surface().Label())
			assert.Equal(t, model.Pt(4, 4), offset)
		}
		assert.Equal(t, []string{"C"}, got)
	})
}

func TestDismissPopup(t *testing.T) {
	m := NewManager(nil)
	root := testToplevel(t, "R")
	a := testPopup(t, "A", root, model.Point{})
	require.NoError(t, m.TrackPopup(a))

	var rec doneRecorder
	rec.watch(a)

	t.Run("no tree", func(t *testing.T) {
		other := testToplevel(t, "other")
		DismissPopup(other, a)
		assert.Empty(t, rec.labels)
	})

	t.Run("dead root", func(t *testing.T) {
		dead := testToplevel(t, "dead")
		dead.Destroy()
		DismissPopup(dead, a)
		assert.Empty(t, rec.labels)
	})

	t.Run("idempotent", func(t *testing.T) {
		DismissPopup(root, a)
		DismissPopup(root, a)
		assert.Equal(t, []string{"A"}, rec.labels)
	})
}

func TestManager_Cleanup(t *testing.T) {
	logger, _ := testLogger()
	m := NewManager(logger)
	root := testToplevel(t, "R")

	a := testPopup(t, "A", root, model.Point{})
	b := testPopup(t, "B", a.Surface(), model.Point{})
	staged := testPopup(t, "S", nil, model.Point{})
	liveStaged := testPopup(t, "L", nil, model.Point{})
	require.NoError(t, m.TrackPopup(a))
	require.NoError(t, m.TrackPopup(b))
	require.NoError(t, m.TrackPopup(staged))
	require.NoError(t, m.TrackPopup(liveStaged))

	assert.Equal(t, Stats{Unmapped: 2, Trees: 1, Popups: 2}, m.Stats())

	b.Surface().Destroy()
	staged.Surface().Destroy()
	m.Cleanup()
	assert.Equal(t, Stats{Unmapped: 1, Trees: 1, Popups: 1}, m.Stats())

	a.Surface().Destroy()
	m.Cleanup()
	assert.Equal(t, Stats{Unmapped: 1}, m.Stats())
	assert.Empty(t, m.Roots())

	// The emptied tree is still attached to the root and gets registered
	// again, exactly once.
	c := testPopup(t, "C", root, model.Point{})
	require.NoError(t, m.TrackPopup(c))
	d := testPopup(t, "D", root, model.Point{})
	require.NoError(t, m.TrackPopup(d))
	assert.Equal(t, Stats{Unmapped: 1, Trees: 1, Popups: 2}, m.Stats())
}
