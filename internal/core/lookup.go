package core

import (
	"slices"
	"strings"

	"github.com/jmylchreest/popuptrack/internal/trace"
)

// PopupMatch is a popup found in a report, with the path of surface labels
// from its root down to it.
type PopupMatch struct {
	Root  string
	Path  []string
	Popup trace.PopupSnapshot
}

// LookupPopup finds a popup by label, by full ID or by a unique ID prefix.
// Labels win over IDs. Returns false when nothing or more than one popup
// matches the prefix.
func LookupPopup(roots []trace.RootSnapshot, ref string) (PopupMatch, bool) {
	if ref == "" {
		return PopupMatch{}, false
	}

	var (
		prefixMatch PopupMatch
		prefixCount int
	)
	upper := strings.ToUpper(ref)

	for _, root := range roots {
		for i, p := range root.Popups {
			switch {
			case p.Surface == ref, p.ID == upper:
				return PopupMatch{Root: root.Root, Path: pathTo(root, i), Popup: p}, true
			case strings.HasPrefix(p.ID, upper):
				prefixMatch = PopupMatch{Root: root.Root, Path: pathTo(root, i), Popup: p}
				prefixCount++
			}
		}
	}

	if prefixCount == 1 {
		return prefixMatch, true
	}
	return PopupMatch{}, false
}

// pathTo walks back from root.Popups[i] through its ancestors. Popups are in
// pre-order, so the nearest earlier popup one level up is the parent.
func pathTo(root trace.RootSnapshot, i int) []string {
	path := []string{root.Popups[i].Surface}
	depth := root.Popups[i].Depth
	for j := i - 1; j >= 0 && depth > 0; j-- {
		if root.Popups[j].Depth == depth-1 {
			path = append(path, root.Popups[j].Surface)
			depth--
		}
	}
	path = append(path, root.Root)
	slices.Reverse(path)
	return path
}

// Search finds popups whose label contains term, case-insensitively.
func Search(roots []trace.RootSnapshot, term string) []trace.PopupSnapshot {
	term = strings.ToLower(term)
	var result []trace.PopupSnapshot

	for _, root := range roots {
		for _, p := range root.Popups {
			if strings.Contains(strings.ToLower(p.Surface), term) {
				result = append(result, p)
			}
		}
	}
	return result
}
