package popup

// Errors
var (
	// ErrDeadResource is returned when a popup or its root surface has been
	// destroyed, or the parent chain cannot be resolved.
	ErrDeadResource = popupError("dead resource")
	// ErrNoPopup is returned when a grab targets a surface without a live
	// popup role.
	ErrNoPopup = popupError("surface is not a popup")
	// ErrInvalidGrab is returned when a grab targets an already mapped popup.
	ErrInvalidGrab = popupError("popup is already mapped")
	// ErrParentDismissed is returned when the popup's parent is no longer part
	// of the seat's grab chain.
	ErrParentDismissed = popupError("parent popup was dismissed")
	// ErrNotTheTopmostPopup is returned when a grab would not extend the
	// topmost popup of the seat's grab chain.
	ErrNotTheTopmostPopup = popupError("popup is not the topmost popup")
	// ErrInvalidParent is returned when a grab targets a popup without parent.
	ErrInvalidParent = popupError("popup has no parent")
)

type popupError string

func (e popupError) Error() string {
	return string(e)
}
