package popup

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/jmylchreest/popuptrack/internal/model"
	"github.com/jmylchreest/popuptrack/internal/surface"
)

// Tree holds every popup descending from one root surface. It is attached to
// the root surface's side data and shared with the Manager; an empty tree is
// dead.
type Tree struct {
	root *surface.Surface

	mu    sync.Mutex
	nodes []*node
}

// node owns its children exclusively. Child order is creation order.
type node struct {
	popup    Kind
	children []*node
}

// positioned is a popup with its offset relative to the tree's root surface.
type positioned struct {
	popup  Kind
	offset model.Point
}

func newTree(root *surface.Surface) *Tree {
	return &Tree{root: root}
}

// Root returns the surface the tree is attached to.
func (t *Tree) Root() *surface.Surface {
	return t.root
}

// insert attaches k below the node whose surface is k's parent, or as a new
// root node when no such node exists yet.
func (t *Tree) insert(k Kind) {
	t.mu.Lock()
	defer t.mu.Unlock()

	parent := k.Parent()
	for _, n := range t.nodes {
		if n.insert(k, parent) {
			return
		}
	}
	t.nodes = append(t.nodes, &node{popup: k})
}

func (n *node) insert(k Kind, parent *surface.Surface) bool {
	if n.popup.Surface() == parent {
		n.children = append(n.children, &node{popup: k})
		return true
	}
	for _, child := range n.children {
		if child.insert(k, parent) {
			return true
		}
	}
	return false
}

// popups returns a pre-order snapshot of the live popups with cumulative
// offsets.
func (t *Tree) popups() []positioned {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []positioned
	for _, n := range t.nodes {
		out = n.collect(model.Point{}, out)
	}
	return out
}

func (n *node) collect(origin model.Point, out []positioned) []positioned {
	// A dead popup's subtree goes with it on the next cleanup.
	if !n.popup.Alive() {
		return out
	}
	offset := origin.Add(n.popup.Location())
	out = append(out, positioned{popup: n.popup, offset: offset})
	for _, child := range n.children {
		out = child.collect(offset, out)
	}
	return out
}

// dismiss removes k and its whole subtree, sending popup_done to every
// removed popup, leaves first.
func (t *Tree) dismiss(k Kind) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.nodes, _ = dismissIn(t.nodes, k.Surface())
}

func dismissIn(nodes []*node, target *surface.Surface) ([]*node, bool) {
	for i, n := range nodes {
		if n.popup.Surface() == target {
			n.sendDone()
			return slices.Delete(nodes, i, i+1), true
		}

		var found bool
		if n.children, found = dismissIn(n.children, target); found {
			return nodes, true
		}
	}
	return nodes, false
}

func (n *node) sendDone() {
	for i := len(n.children) - 1; i >= 0; i-- {
		n.children[i].sendDone()
	}
	n.popup.SendDone()
}

// cleanup drops every node whose popup is dead, together with its subtree.
func (t *Tree) cleanup(logger *slog.Logger) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.nodes = cleanupNodes(t.nodes, logger)
}

func cleanupNodes(nodes []*node, logger *slog.Logger) []*node {
	for _, n := range nodes {
		n.children = cleanupNodes(n.children, logger)
	}

	return slices.DeleteFunc(nodes, func(n *node) bool {
		if n.popup.Alive() {
			return false
		}
		if len(n.children) > 0 {
			// The client broke protocol, but its error channel is gone with
			// the surface. The children go with their parent.
			logger.Warn("popup destroyed before its children",
				"popup", n.popup.Surface().ID(),
				"children", len(n.children),
			)
		}
		return true
	})
}

// alive reports whether the tree still holds any popup.
func (t *Tree) alive() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.nodes) > 0
}

// Len returns the number of popups in the tree.
func (t *Tree) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	var count func([]*node) int
	count = func(nodes []*node) int {
		c := len(nodes)
		for _, n := range nodes {
			c += count(n.children)
		}
		return c
	}
	return count(t.nodes)
}
