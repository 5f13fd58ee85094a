package minimap

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/go-go-golems/arbor/pkg/canvas/layout"
	"github.com/go-go-golems/arbor/pkg/canvas/viewport"
	"github.com/go-go-golems/arbor/pkg/conversation"
)

// NodeRect is one node's rectangle in minimap pixel coordinates.
type NodeRect struct {
	ID   conversation.NodeID
	Rect r2.Box
}

// Map is the projected thumbnail: node rectangles plus the highlighted
// rectangle marking the current viewport's world-space extent.
type Map struct {
	World    r2.Box
	Scale    float64
	Nodes    []NodeRect
	Viewport r2.Box
}

// Projector derives the minimap as a pure function of layout, manual
// offsets, pan/scale and the viewport pixel size.
type Projector struct {
	Width     float64
	Height    float64
	Padding   float64
	NodeWidth float64
}

func NewProjector() *Projector {
	return &Projector{
		Width:     200,
		Height:    150,
		Padding:   100,
		NodeWidth: 420,
	}
}

// Project computes the thumbnail. ok is false when there are no nodes
// (the minimap degenerates to empty output).
func (p *Projector) Project(
	positions map[conversation.NodeID]layout.NodePos,
	vp *viewport.Controller,
	ids []conversation.NodeID,
) (Map, bool) {
	if len(positions) == 0 {
		return Map{}, false
	}

	world := r2.Box{
		Min: r2.Vec{X: math.Inf(1), Y: math.Inf(1)},
		Max: r2.Vec{X: math.Inf(-1), Y: math.Inf(-1)},
	}
	rects := make(map[conversation.NodeID]r2.Box, len(positions))
	for _, id := range ids {
		pos, ok := positions[id]
		if !ok {
			continue
		}
		anchor := vp.FinalPosition(id, pos)
		rect := r2.Box{
			Min: r2.Vec{X: anchor.X, Y: anchor.Y - pos.Height/2},
			Max: r2.Vec{X: anchor.X + p.NodeWidth, Y: anchor.Y + pos.Height/2},
		}
		rects[id] = rect
		world.Min.X = math.Min(world.Min.X, rect.Min.X)
		world.Min.Y = math.Min(world.Min.Y, rect.Min.Y)
		world.Max.X = math.Max(world.Max.X, rect.Max.X)
		world.Max.Y = math.Max(world.Max.Y, rect.Max.Y)
	}
	if len(rects) == 0 {
		return Map{}, false
	}

	world.Min = r2.Sub(world.Min, r2.Vec{X: p.Padding, Y: p.Padding})
	world.Max = r2.Add(world.Max, r2.Vec{X: p.Padding, Y: p.Padding})

	worldW := world.Max.X - world.Min.X
	worldH := world.Max.Y - world.Min.Y
	scale := math.Min(p.Width/worldW, p.Height/worldH)

	// center the projection when the aspect ratios differ
	center := r2.Vec{
		X: (p.Width - worldW*scale) / 2,
		Y: (p.Height - worldH*scale) / 2,
	}

	project := func(v r2.Vec) r2.Vec {
		return r2.Add(r2.Scale(scale, r2.Sub(v, world.Min)), center)
	}

	ret := Map{World: world, Scale: scale}
	for _, id := range ids {
		rect, ok := rects[id]
		if !ok {
			continue
		}
		ret.Nodes = append(ret.Nodes, NodeRect{
			ID:   id,
			Rect: r2.Box{Min: project(rect.Min), Max: project(rect.Max)},
		})
	}

	// the visible window in world space runs from -pan/scale to
	// (-pan + viewportSize)/scale
	viewWorld := r2.Box{
		Min: vp.ScreenToWorld(r2.Vec{}),
		Max: vp.ScreenToWorld(vp.Size()),
	}
	ret.Viewport = p.clip(r2.Box{
		Min: project(viewWorld.Min),
		Max: project(viewWorld.Max),
	})

	return ret, true
}

func (p *Projector) clip(b r2.Box) r2.Box {
	return r2.Box{
		Min: r2.Vec{
			X: math.Max(0, math.Min(b.Min.X, p.Width)),
			Y: math.Max(0, math.Min(b.Min.Y, p.Height)),
		},
		Max: r2.Vec{
			X: math.Max(0, math.Min(b.Max.X, p.Width)),
			Y: math.Max(0, math.Min(b.Max.Y, p.Height)),
		},
	}
}
