// Package popup tracks xdg popups for a compositor.
//
// Popups are kept in one Tree per root (non-popup) surface. The tree is
// attached to the root surface's side data and registered with a Manager,
// which also stages popups that have no parent yet and remembers every seat
// grab chain it has handed out so that Cleanup can reclaim dead state.
//
// A Manager is not safe for concurrent use; callers serialize access to it.
// Trees lock internally because they are reachable from both the manager and
// the root surface.
package popup
