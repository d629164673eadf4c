package popup

import (
	"fmt"

	"github.com/jmylchreest/popuptrack/internal/surface"
)

// FindRootSurface walks up the parent chain of k until it reaches a surface
// that is not itself a popup. It fails with ErrDeadResource when k has no
// parent or an intermediate popup has lost its parent.
func FindRootSurface(k Kind) (*surface.Surface, error) {
	parent := k.Parent()
	if parent == nil {
		return nil, ErrDeadResource
	}

	for parent.HasRole(surface.RoleXDGPopup) {
		st, ok := surface.Get[*XDGPopupState](parent)
		if !ok {
			panic(fmt.Sprintf("popup: surface %s has the %s role but no role data", parent, surface.RoleXDGPopup))
		}
		next := st.Parent()
		if next == nil {
			return nil, ErrDeadResource
		}
		parent = next
	}

	return parent, nil
}
