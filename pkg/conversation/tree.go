package conversation

import (
	"github.com/rs/zerolog/log"
)

// Tree is a flat collection of nodes keyed by id, with parent
// back-references instead of an owning object graph. Tree-shaped queries
// (children-of, path-to-root) are derived on demand by filtering, which
// keeps the structure free of ownership cycles and easy to snapshot.
//
// Insertion order is recorded explicitly so that sibling ordering (and
// with it the layout) is deterministic.
type Tree struct {
	Nodes map[NodeID]*Node
	order []NodeID

	SelectedID NodeID
}

func NewTree() *Tree {
	return &Tree{
		Nodes: make(map[NodeID]*Node),
	}
}

// Insert adds a node to the tree. The first inserted node becomes the
// selection if none is set.
func (t *Tree) Insert(n *Node) {
	if _, exists := t.Nodes[n.ID]; exists {
		log.Warn().Str("node_id", n.ID.String()).Msg("duplicate node insert ignored")
		return
	}
	t.Nodes[n.ID] = n
	t.order = append(t.order, n.ID)
	if t.SelectedID == NullNode {
		t.SelectedID = n.ID
	}
}

func (t *Tree) Node(id NodeID) (*Node, bool) {
	n, ok := t.Nodes[id]
	return n, ok
}

func (t *Tree) Len() int {
	return len(t.Nodes)
}

// NodeIDs returns all node ids in insertion order.
func (t *Tree) NodeIDs() []NodeID {
	ids := make([]NodeID, 0, len(t.order))
	for _, id := range t.order {
		if _, ok := t.Nodes[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// Roots returns all parentless nodes in insertion order. The application
// seeds a single root but the model permits several.
func (t *Tree) Roots() []*Node {
	var roots []*Node
	for _, id := range t.order {
		if n, ok := t.Nodes[id]; ok && n.IsRoot() {
			roots = append(roots, n)
		}
	}
	return roots
}

// Children returns the direct children of a node in insertion order.
func (t *Tree) Children(id NodeID) []*Node {
	var children []*Node
	for _, cid := range t.order {
		if n, ok := t.Nodes[cid]; ok && n.ParentID == id {
			children = append(children, n)
		}
	}
	return children
}

// PathToRoot walks parent links from the given node up to a root and
// returns the path in root-to-target order. A dangling parent reference
// truncates the walk at the last resolvable node instead of failing.
func (t *Tree) PathToRoot(id NodeID) []*Node {
	var path []*Node
	seen := map[NodeID]bool{}

	for id != NullNode {
		if seen[id] {
			log.Error().Str("node_id", id.String()).Msg("cycle detected while walking to root")
			break
		}
		seen[id] = true

		n, ok := t.Nodes[id]
		if !ok {
			log.Warn().Str("node_id", id.String()).Msg("dangling parent reference, truncating path walk")
			break
		}
		path = append([]*Node{n}, path...)
		id = n.ParentID
	}

	return path
}

// SubtreeIDs returns the ids of the subtree rooted at id in pre-order.
func (t *Tree) SubtreeIDs(id NodeID) []NodeID {
	if _, ok := t.Nodes[id]; !ok {
		return nil
	}
	ids := []NodeID{id}
	for _, child := range t.Children(id) {
		ids = append(ids, t.SubtreeIDs(child.ID)...)
	}
	return ids
}

// Clone returns a deep copy of the tree. Readers outside the owning
// lock (renderers, measurement, the minimap) work from clones taken
// while the lock is held; the live tree is mutated in place only under
// that lock.
func (t *Tree) Clone() *Tree {
	ret := &Tree{
		Nodes:      make(map[NodeID]*Node, len(t.Nodes)),
		order:      append([]NodeID(nil), t.order...),
		SelectedID: t.SelectedID,
	}
	for id, n := range t.Nodes {
		ret.Nodes[id] = n.Clone()
	}
	return ret
}

// Remove deletes the given nodes from the tree. Selection is not
// adjusted here; CloseSubtree on the manager owns that invariant.
func (t *Tree) Remove(ids ...NodeID) {
	for _, id := range ids {
		delete(t.Nodes, id)
	}
	// compact the order slice
	kept := t.order[:0]
	for _, id := range t.order {
		if _, ok := t.Nodes[id]; ok {
			kept = append(kept, id)
		}
	}
	t.order = kept
}
