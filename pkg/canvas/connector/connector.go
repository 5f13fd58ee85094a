package connector

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/go-go-golems/arbor/pkg/canvas/layout"
	"github.com/go-go-golems/arbor/pkg/canvas/viewport"
	"github.com/go-go-golems/arbor/pkg/conversation"
)

// Curve is a cubic Bezier in world space.
type Curve struct {
	Start r2.Vec
	Ctrl1 r2.Vec
	Ctrl2 r2.Vec
	End   r2.Vec
}

// PointAt evaluates the curve at t in [0, 1].
func (c Curve) PointAt(t float64) r2.Vec {
	u := 1 - t
	p := r2.Scale(u*u*u, c.Start)
	p = r2.Add(p, r2.Scale(3*u*u*t, c.Ctrl1))
	p = r2.Add(p, r2.Scale(3*u*t*t, c.Ctrl2))
	p = r2.Add(p, r2.Scale(t*t*t, c.End))
	return p
}

// Edge is the routed connector for one (parent, child) pair.
type Edge struct {
	From  conversation.NodeID
	To    conversation.NodeID
	Curve Curve
}

// Measurer reports the screen-space rectangle of the last visual line
// fragment of a fork span inside a rendered message. Text can wrap
// across several rectangles; implementations must return the last one.
// ok is false when the span is not currently measurable (collapsed or
// unmounted owner).
type Measurer interface {
	MeasureSpan(nodeID conversation.NodeID, messageID conversation.MessageID, span string) (box r2.Box, ok bool)
}

// Router computes the connector curve for every edge of the tree. The
// preferred source anchor is the measured fork-span fragment; when that
// is unavailable it falls back to a fixed point near the parent's header
// row. The fallback offset is a heuristic constant, not a contract.
type Router struct {
	NodeWidth     float64
	HeaderOffsetY float64

	measurer Measurer
}

type RouterOption func(*Router)

func WithMeasurer(m Measurer) RouterOption {
	return func(r *Router) {
		r.measurer = m
	}
}

func NewRouter(options ...RouterOption) *Router {
	ret := &Router{
		NodeWidth:     420,
		HeaderOffsetY: 24,
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

// Route recomputes all connectors from the current tree, layout and
// viewport state. Call it again whenever any of those change (the
// RefreshScheduler adds the delayed recomputes that catch asynchronous
// reflow of still-streaming content).
func (r *Router) Route(
	t *conversation.Tree,
	positions map[conversation.NodeID]layout.NodePos,
	vp *viewport.Controller,
) []Edge {
	var edges []Edge

	for _, id := range t.NodeIDs() {
		node, ok := t.Node(id)
		if !ok || node.IsRoot() {
			continue
		}
		parentPos, ok := positions[node.ParentID]
		if !ok {
			continue
		}
		childPos, ok := positions[id]
		if !ok {
			continue
		}

		start := r.sourceAnchor(node, parentPos, vp)
		childAnchor := vp.FinalPosition(id, childPos)
		end := r2.Vec{X: childAnchor.X + r.NodeWidth/2, Y: childAnchor.Y}

		edges = append(edges, Edge{
			From:  node.ParentID,
			To:    id,
			Curve: makeCurve(start, end),
		})
	}

	return edges
}

// sourceAnchor prefers the measured span fragment (vertical center and
// right edge of its last line rectangle, converted from screen space to
// world space by inverting the current pan/scale), falling back to the
// parent's header row.
func (r *Router) sourceAnchor(
	node *conversation.Node,
	parentPos layout.NodePos,
	vp *viewport.Controller,
) r2.Vec {
	if r.measurer != nil && node.ForkSpan != "" {
		if box, ok := r.measurer.MeasureSpan(node.ParentID, node.ParentMessageID, node.ForkSpan); ok {
			screen := r2.Vec{X: box.Max.X, Y: (box.Min.Y + box.Max.Y) / 2}
			return vp.ScreenToWorld(screen)
		}
	}

	anchor := vp.FinalPosition(node.ParentID, parentPos)
	return r2.Vec{
		X: anchor.X + r.NodeWidth,
		Y: anchor.Y - parentPos.Height/2 + r.HeaderOffsetY,
	}
}

// makeCurve builds a symmetric S-curve: control points offset
// horizontally from each endpoint by half the horizontal distance, which
// looks right whether the child is to the right, below, or diagonal.
func makeCurve(start, end r2.Vec) Curve {
	dx := (end.X - start.X) / 2
	return Curve{
		Start: start,
		Ctrl1: r2.Vec{X: start.X + dx, Y: start.Y},
		Ctrl2: r2.Vec{X: end.X - dx, Y: end.Y},
		End:   end,
	}
}
