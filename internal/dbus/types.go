package dbus

import (
	"github.com/jmylchreest/popuptrack/internal/popup"
	"github.com/jmylchreest/popuptrack/internal/trace"
)

// Inspector is the state the inspect server reports on.
type Inspector interface {
	// Stats returns the manager's bookkeeping counts.
	Stats() popup.Stats
	// Snapshot returns every registered root and its popups.
	Snapshot() []trace.RootSnapshot
	// Status returns a one-line human readable status.
	Status() string
	// RunCleanup performs a cleanup pass and returns the stats after it.
	RunCleanup() popup.Stats
}

// TreeEntry is one popup tree as marshalled over D-Bus: (ssu).
type TreeEntry struct {
	Root   string
	ID     string
	Popups uint32
}

// StatsMap converts manager stats to the a{su} form returned by Stats.
func StatsMap(st popup.Stats) map[string]uint32 {
	return map[string]uint32{
		"unmapped": uint32(st.Unmapped),
		"trees":    uint32(st.Trees),
		"grabs":    uint32(st.Grabs),
		"popups":   uint32(st.Popups),
	}
}

// TreeEntries summarises a snapshot into one entry per root.
func TreeEntries(roots []trace.RootSnapshot) []TreeEntry {
	entries := make([]TreeEntry, 0, len(roots))
	for _, r := range roots {
		entries = append(entries, TreeEntry{
			Root:   r.Root,
			ID:     r.ID,
			Popups: uint32(len(r.Popups)),
		})
	}
	return entries
}
