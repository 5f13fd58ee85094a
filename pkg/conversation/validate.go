package conversation

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Validate checks the structural integrity of the parent relation: every
// non-root parent reference must resolve to a node in the tree, and the
// relation must be acyclic. Branch construction makes violations
// impossible in normal operation, so a failure here is a data-integrity
// condition to log, not a fatal error.
func (t *Tree) Validate() error {
	ids := t.NodeIDs()
	idx := make(map[NodeID]int64, len(ids))

	g := simple.NewDirectedGraph()
	for i, id := range ids {
		idx[id] = int64(i)
		g.AddNode(simple.Node(int64(i)))
	}

	for _, id := range ids {
		n := t.Nodes[id]
		if n.IsRoot() {
			continue
		}
		if n.ParentID == n.ID {
			return errors.Errorf("node %s is its own parent", id)
		}
		pi, ok := idx[n.ParentID]
		if !ok {
			return errors.Errorf("node %s references missing parent %s", id, n.ParentID)
		}
		g.SetEdge(simple.Edge{F: simple.Node(pi), T: simple.Node(idx[id])})
	}

	if _, err := topo.Sort(g); err != nil {
		return errors.Wrap(err, "conversation tree contains a cycle")
	}

	return nil
}
