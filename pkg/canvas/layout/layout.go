package layout

import (
	"github.com/go-go-golems/arbor/pkg/conversation"
)

// NodePos is a node's computed base position in world space. X is the
// left edge of the node column, Y is the vertical center (so that scale
// transforms stay consistent), Height echoes the measured input.
type NodePos struct {
	X      float64
	Y      float64
	Height float64
}

// Top returns the top edge of the node rectangle.
func (p NodePos) Top() float64 {
	return p.Y - p.Height/2
}

// Bottom returns the bottom edge of the node rectangle.
func (p NodePos) Bottom() float64 {
	return p.Y + p.Height/2
}

// Engine positions tree nodes without overlap. It is a pure function of
// the tree shape and the height map: identical inputs always yield
// identical output, and every structural or height change triggers a
// full recompute instead of an incremental patch. Chat trees are small,
// so the recomputation cost buys correctness and simplicity.
type Engine struct {
	NodeWidth       float64
	GapX            float64
	GapY            float64
	DefaultHeight   float64
	MinHeight       float64
	CollapsedHeight float64
}

func NewEngine() *Engine {
	return &Engine{
		NodeWidth:       420,
		GapX:            64,
		GapY:            32,
		DefaultHeight:   160,
		MinHeight:       40,
		CollapsedHeight: 48,
	}
}

// Compute runs a single depth-first pre-order pass over the tree.
//
// All children of a node share the same column, one node-width plus one
// horizontal gap to the right of the parent. Siblings stack vertically,
// each one starting below the previous sibling's entire subtree, which
// is what guarantees that two subtrees never overlap regardless of
// their relative depth or size. Multiple roots stack with the same
// rule.
func (e *Engine) Compute(
	t *conversation.Tree,
	heights map[conversation.NodeID]float64,
) map[conversation.NodeID]NodePos {
	out := make(map[conversation.NodeID]NodePos, t.Len())

	cursorY := 0.0
	for i, root := range t.Roots() {
		if i > 0 {
			cursorY += e.GapY
		}
		cursorY = e.layoutSubtree(t, heights, out, root, 0, cursorY)
	}

	return out
}

// layoutSubtree positions node at (x, top) and recursively lays out its
// children. It returns the bottom boundary of the whole subtree: the
// maximum of the node's own bottom and the last child subtree's bottom,
// so that a later sibling is pushed down far enough either way.
func (e *Engine) layoutSubtree(
	t *conversation.Tree,
	heights map[conversation.NodeID]float64,
	out map[conversation.NodeID]NodePos,
	node *conversation.Node,
	x float64,
	top float64,
) float64 {
	h := e.effectiveHeight(node, heights)
	out[node.ID] = NodePos{X: x, Y: top + h/2, Height: h}

	bottom := top + h

	childX := x + e.NodeWidth + e.GapX
	childTop := top
	for i, child := range t.Children(node.ID) {
		if i > 0 {
			childTop += e.GapY
		}
		childTop = e.layoutSubtree(t, heights, out, child, childX, childTop)
		if childTop > bottom {
			bottom = childTop
		}
	}

	return bottom
}

func (e *Engine) effectiveHeight(
	node *conversation.Node,
	heights map[conversation.NodeID]float64,
) float64 {
	if node.Collapsed {
		return e.CollapsedHeight
	}
	h, ok := heights[node.ID]
	if !ok || h <= 0 {
		h = e.DefaultHeight
	}
	if h < e.MinHeight {
		h = e.MinHeight
	}
	return h
}
