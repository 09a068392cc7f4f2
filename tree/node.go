package tree

import (
	"fmt"

	"github.com/hupe1980/epictree/attr"
	"github.com/hupe1980/epictree/store"
)

// Node is one level of the epoch hierarchy: either an internal grouping
// node or a terminal leaf holding record handles. The node graph is
// structurally immutable once built; adding or removing epochs means
// rebuilding, never editing in place.
type Node struct {
	splitKey   string
	splitValue attr.Value
	parent     *Node
	children   []*Node
	members    []store.Record
	leaf       bool

	// anySelected is a derived snapshot, not a live view. It is only
	// recomputed by RefreshSelectionCache and the selection setters.
	anySelected bool

	custom map[string]any
}

// SplitKey returns the splitter label that produced this node ("" for the
// root).
func (n *Node) SplitKey() string { return n.splitKey }

// SplitValue returns the bucket value shared by all epochs under this node
// (the missing sentinel for the root).
func (n *Node) SplitValue() attr.Value { return n.splitValue }

// Parent returns the parent node (nil for the root).
func (n *Node) Parent() *Node { return n.parent }

// Children returns the ordered child nodes (empty for leaves).
func (n *Node) Children() []*Node { return n.children }

// IsLeaf reports whether this is a terminal node.
func (n *Node) IsLeaf() bool { return n.leaf }

// Label returns a human-readable node label for display and logs.
func (n *Node) Label() string {
	if n.splitKey == "" {
		return "root"
	}
	return fmt.Sprintf("%s=%s", n.splitKey, n.splitValue.Canonical())
}

// FindChild returns the child whose bucket value matches v. Numeric
// matching uses the same tolerance as bucket grouping, so a value that
// grouped into a bucket also navigates back to it.
func (n *Node) FindChild(v attr.Value) (*Node, bool) {
	for _, c := range n.children {
		if c.splitValue.Equal(v) {
			return c, true
		}
	}
	return nil, false
}

// Epochs returns the epochs under the node in a stable order: leaf members
// in member order, internal nodes as the concatenation of their children.
// With onlySelected, excluded epochs are filtered out.
func (n *Node) Epochs(onlySelected bool) []store.Record {
	var out []store.Record
	n.appendEpochs(&out, onlySelected)
	return out
}

func (n *Node) appendEpochs(out *[]store.Record, onlySelected bool) {
	if n.leaf {
		for _, r := range n.members {
			if !onlySelected || r.Selected() {
				*out = append(*out, r)
			}
		}
		return
	}
	for _, c := range n.children {
		c.appendEpochs(out, onlySelected)
	}
}

// EpochCount returns the total number of epochs under the node.
func (n *Node) EpochCount() int {
	if n.leaf {
		return len(n.members)
	}
	total := 0
	for _, c := range n.children {
		total += c.EpochCount()
	}
	return total
}

// SelectedCount returns the number of included epochs under the node.
func (n *Node) SelectedCount() int {
	if n.leaf {
		count := 0
		for _, r := range n.members {
			if r.Selected() {
				count++
			}
		}
		return count
	}
	total := 0
	for _, c := range n.children {
		total += c.SelectedCount()
	}
	return total
}

// SetSelected writes the inclusion flag of every epoch reachable from the
// node. On an internal node with recursive=false no epoch flags change;
// only the node's cache is refreshed from its children, because a
// non-recursive selection is unambiguous only at a leaf.
func (n *Node) SetSelected(v bool, recursive bool) {
	if n.leaf {
		for _, r := range n.members {
			r.SetSelected(v)
		}
		n.anySelected = v && len(n.members) > 0
		return
	}
	if recursive {
		for _, c := range n.children {
			c.SetSelected(v, true)
		}
	}
	n.refreshFromChildren()
}

// SetSelectedByIndices deselects everything under the node and then
// selects exactly the given 0-based positions within the node's flattened
// epoch ordering (Epochs(false) order).
func (n *Node) SetSelectedByIndices(indices []int) error {
	all := n.Epochs(false)
	for _, i := range indices {
		if i < 0 || i >= len(all) {
			return &ErrIndexOutOfRange{Index: i, EpochCount: len(all)}
		}
	}
	n.SetSelected(false, true)
	for _, i := range indices {
		all[i].SetSelected(true)
	}
	n.RefreshSelectionCache()
	return nil
}

// SetSelectedByMask deselects everything under the node and then applies
// the boolean mask positionally over the node's flattened epoch ordering.
// A mask of the wrong length is refused outright rather than truncated.
func (n *Node) SetSelectedByMask(mask []bool) error {
	all := n.Epochs(false)
	if len(mask) != len(all) {
		return &ErrMaskLength{Expected: len(all), Actual: len(mask)}
	}
	n.SetSelected(false, true)
	for i, v := range mask {
		if v {
			all[i].SetSelected(true)
		}
	}
	n.RefreshSelectionCache()
	return nil
}

// RefreshSelectionCache recomputes the any-selected cache bottom-up and
// returns the node's resulting value. It must be called explicitly after
// out-of-band flag mutation (e.g. a mask load); the cache is a snapshot by
// design, not a live view.
func (n *Node) RefreshSelectionCache() bool {
	if n.leaf {
		n.anySelected = false
		for _, r := range n.members {
			if r.Selected() {
				n.anySelected = true
				break
			}
		}
		return n.anySelected
	}
	n.anySelected = false
	for _, c := range n.children {
		if c.RefreshSelectionCache() {
			n.anySelected = true
		}
	}
	return n.anySelected
}

func (n *Node) refreshFromChildren() {
	n.anySelected = false
	for _, c := range n.children {
		if c.anySelected {
			n.anySelected = true
			return
		}
	}
}

// AnySelected returns the cached any-selected flag as of the last refresh.
func (n *Node) AnySelected() bool { return n.anySelected }

// PutCustom stores an arbitrary per-node value (analysis cache, display
// hint) under the given key.
func (n *Node) PutCustom(key string, v any) {
	if n.custom == nil {
		n.custom = make(map[string]any)
	}
	n.custom[key] = v
}

// Custom returns the per-node value stored under key.
func (n *Node) Custom(key string) (any, bool) {
	v, ok := n.custom[key]
	return v, ok
}

// HasCustom reports whether a per-node value exists under key.
func (n *Node) HasCustom(key string) bool {
	_, ok := n.custom[key]
	return ok
}

// DeleteCustom removes the per-node value stored under key.
func (n *Node) DeleteCustom(key string) {
	delete(n.custom, key)
}

// Walk visits the node and all descendants depth-first in child order.
func (n *Node) Walk(fn func(*Node)) {
	fn(n)
	for _, c := range n.children {
		c.Walk(fn)
	}
}
