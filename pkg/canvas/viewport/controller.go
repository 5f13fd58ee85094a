package viewport

import (
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/go-go-golems/arbor/pkg/canvas/layout"
	"github.com/go-go-golems/arbor/pkg/conversation"
)

const (
	MinScale = 0.1
	MaxScale = 3.0
)

// DragKind distinguishes the two pointer gestures. Exactly one gesture
// may be active at a time.
type DragKind int

const (
	DragNone DragKind = iota
	DragPan
	DragNode
)

type dragState struct {
	kind         DragKind
	nodeID       conversation.NodeID
	startScreen  r2.Vec
	originPan    r2.Vec
	originOffset r2.Vec
}

// Controller owns the viewport state bundle: the global pan (screen
// space translation of the world origin), the uniform zoom scale, and
// the per-node manual offsets layered on top of the computed layout.
// All mutation goes through controller operations; every mutation bumps
// the version so derived artifacts (connectors, minimap) know to
// recompute.
type Controller struct {
	pan     r2.Vec
	scale   float64
	offsets map[conversation.NodeID]r2.Vec
	size    r2.Vec

	drag    dragState
	version uint64
}

func NewController() *Controller {
	return &Controller{
		scale:   1.0,
		offsets: make(map[conversation.NodeID]r2.Vec),
	}
}

func (c *Controller) Pan() r2.Vec        { return c.pan }
func (c *Controller) Scale() float64     { return c.scale }
func (c *Controller) Size() r2.Vec       { return c.size }
func (c *Controller) Version() uint64    { return c.version }
func (c *Controller) Dragging() bool     { return c.drag.kind != DragNone }
func (c *Controller) DragKind() DragKind { return c.drag.kind }

func (c *Controller) SetSize(width, height float64) {
	c.size = r2.Vec{X: width, Y: height}
	c.version++
}

// Offset returns the manual world-space displacement for a node (zero
// when the node was never dragged).
func (c *Controller) Offset(id conversation.NodeID) r2.Vec {
	return c.offsets[id]
}

// RemoveOffsets prunes offsets for destroyed nodes.
func (c *Controller) RemoveOffsets(ids ...conversation.NodeID) {
	for _, id := range ids {
		delete(c.offsets, id)
	}
	c.version++
}

// ScreenToWorld inverts the pan/scale transform.
func (c *Controller) ScreenToWorld(p r2.Vec) r2.Vec {
	return r2.Scale(1/c.scale, r2.Sub(p, c.pan))
}

// WorldToScreen applies the pan/scale transform.
func (c *Controller) WorldToScreen(p r2.Vec) r2.Vec {
	return r2.Add(r2.Scale(c.scale, p), c.pan)
}

// FinalPosition combines a node's layout position with its manual
// offset, yielding the node's world-space anchor (left edge, vertical
// center).
func (c *Controller) FinalPosition(id conversation.NodeID, pos layout.NodePos) r2.Vec {
	return r2.Add(r2.Vec{X: pos.X, Y: pos.Y}, c.offsets[id])
}

// StartPan begins a canvas pan gesture. It is a no-op when another
// gesture is already active.
func (c *Controller) StartPan(screen r2.Vec) bool {
	if c.drag.kind != DragNone {
		return false
	}
	c.drag = dragState{
		kind:        DragPan,
		startScreen: screen,
		originPan:   c.pan,
	}
	return true
}

// StartNodeDrag begins a node move gesture. It is a no-op when another
// gesture is already active.
func (c *Controller) StartNodeDrag(id conversation.NodeID, screen r2.Vec) bool {
	if c.drag.kind != DragNone {
		return false
	}
	c.drag = dragState{
		kind:         DragNode,
		nodeID:       id,
		startScreen:  screen,
		originOffset: c.offsets[id],
	}
	return true
}

// DragMove applies the pointer's screen-space delta since drag start.
// Pan moves by the raw delta; a node drag converts the delta to world
// space by dividing by the current scale, so the motion feels the same
// at any zoom level. Both start from the state recorded at drag start
// rather than accumulating increments, avoiding drift from intermediate
// rounding.
func (c *Controller) DragMove(screen r2.Vec) {
	delta := r2.Sub(screen, c.drag.startScreen)
	switch c.drag.kind {
	case DragNone:
		return
	case DragPan:
		c.pan = r2.Add(c.drag.originPan, delta)
	case DragNode:
		c.offsets[c.drag.nodeID] = r2.Add(c.drag.originOffset, r2.Scale(1/c.scale, delta))
	}
	c.version++
}

// EndDrag terminates the active gesture, wherever the pointer was
// released.
func (c *Controller) EndDrag() {
	c.drag = dragState{}
}

// ZoomAt applies a zoom factor anchored at the given screen position:
// the world point currently under the pointer stays under the pointer
// after the scale change.
func (c *Controller) ZoomAt(screen r2.Vec, factor float64) {
	newScale := clamp(c.scale*factor, MinScale, MaxScale)
	if newScale == c.scale {
		return
	}

	world := c.ScreenToWorld(screen)
	c.scale = newScale
	c.pan = r2.Sub(screen, r2.Scale(newScale, world))
	c.version++

	log.Trace().
		Float64("scale", c.scale).
		Float64("pan_x", c.pan.X).
		Float64("pan_y", c.pan.Y).
		Msg("zoomed")
}

// FocusOn centers the given node in the viewport at the current scale.
// It must not fire while a drag is in progress: focus and drag are
// mutually exclusive within a single gesture.
func (c *Controller) FocusOn(id conversation.NodeID, pos layout.NodePos, nodeWidth float64) {
	if c.drag.kind != DragNone {
		return
	}

	anchor := c.FinalPosition(id, pos)
	center := r2.Vec{X: anchor.X + nodeWidth/2, Y: anchor.Y}
	c.pan = r2.Sub(r2.Scale(0.5, c.size), r2.Scale(c.scale, center))
	c.version++
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
