package viewport

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
	"pgregory.net/rapid"

	"github.com/go-go-golems/arbor/pkg/canvas/layout"
	"github.com/go-go-golems/arbor/pkg/conversation"
)

func TestZoomAnchoredAtPointer(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		c := NewController()
		c.pan = r2.Vec{
			X: rapid.Float64Range(-5000, 5000).Draw(rt, "pan_x"),
			Y: rapid.Float64Range(-5000, 5000).Draw(rt, "pan_y"),
		}
		c.scale = rapid.Float64Range(MinScale, MaxScale).Draw(rt, "scale")

		pointer := r2.Vec{
			X: rapid.Float64Range(0, 1920).Draw(rt, "px"),
			Y: rapid.Float64Range(0, 1080).Draw(rt, "py"),
		}
		factor := rapid.Float64Range(0.5, 2.0).Draw(rt, "factor")

		before := c.ScreenToWorld(pointer)
		c.ZoomAt(pointer, factor)
		after := c.WorldToScreen(before)

		if math.Abs(after.X-pointer.X) > 1e-6 || math.Abs(after.Y-pointer.Y) > 1e-6 {
			rt.Fatalf("world point drifted: pointer %v, now %v", pointer, after)
		}
	})
}

func TestZoomClampedToRange(t *testing.T) {
	c := NewController()

	for i := 0; i < 100; i++ {
		c.ZoomAt(r2.Vec{}, 2.0)
	}
	assert.Equal(t, MaxScale, c.Scale())

	for i := 0; i < 100; i++ {
		c.ZoomAt(r2.Vec{}, 0.5)
	}
	assert.Equal(t, MinScale, c.Scale())
}

func TestNodeDragRoundTripOffset(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		c := NewController()
		c.pan = r2.Vec{
			X: rapid.Float64Range(-5000, 5000).Draw(rt, "pan_x"),
			Y: rapid.Float64Range(-5000, 5000).Draw(rt, "pan_y"),
		}
		c.scale = rapid.Float64Range(MinScale, MaxScale).Draw(rt, "scale")

		id := conversation.NewNodeID()
		pre := r2.Vec{
			X: rapid.Float64Range(-100, 100).Draw(rt, "off_x"),
			Y: rapid.Float64Range(-100, 100).Draw(rt, "off_y"),
		}
		c.offsets[id] = pre

		start := r2.Vec{X: 200, Y: 300}
		delta := r2.Vec{
			X: rapid.Float64Range(-500, 500).Draw(rt, "dx"),
			Y: rapid.Float64Range(-500, 500).Draw(rt, "dy"),
		}

		require.True(rt, c.StartNodeDrag(id, start))
		c.DragMove(r2.Add(start, r2.Scale(0.5, delta)))
		c.DragMove(r2.Add(start, delta))
		c.EndDrag()

		got := c.Offset(id)
		want := r2.Add(pre, r2.Scale(1/c.scale, delta))
		if math.Abs(got.X-want.X) > 1e-9 || math.Abs(got.Y-want.Y) > 1e-9 {
			rt.Fatalf("offset %v, want %v", got, want)
		}
	})
}

func TestPanDrag(t *testing.T) {
	c := NewController()
	c.pan = r2.Vec{X: 10, Y: 20}

	require.True(t, c.StartPan(r2.Vec{X: 100, Y: 100}))
	c.DragMove(r2.Vec{X: 130, Y: 80})
	c.EndDrag()

	assert.Equal(t, r2.Vec{X: 40, Y: 0}, c.Pan())
}

func TestSingleGestureAtATime(t *testing.T) {
	c := NewController()
	id := conversation.NewNodeID()

	require.True(t, c.StartPan(r2.Vec{}))
	assert.False(t, c.StartNodeDrag(id, r2.Vec{}))
	assert.False(t, c.StartPan(r2.Vec{}))
	assert.Equal(t, DragPan, c.DragKind())

	c.EndDrag()
	assert.True(t, c.StartNodeDrag(id, r2.Vec{}))
	c.EndDrag()
	assert.Equal(t, DragNone, c.DragKind())
}

func TestDragMoveWithoutGestureIsNoop(t *testing.T) {
	c := NewController()
	c.DragMove(r2.Vec{X: 50, Y: 50})
	assert.Equal(t, r2.Vec{}, c.Pan())
}

func TestFocusOnCentersNode(t *testing.T) {
	c := NewController()
	c.SetSize(800, 600)
	c.scale = 2.0

	id := conversation.NewNodeID()
	pos := layout.NodePos{X: 100, Y: 50, Height: 80}

	c.FocusOn(id, pos, 420)

	// node center is (100 + 210, 50) in world space
	center := c.WorldToScreen(r2.Vec{X: 310, Y: 50})
	assert.InDelta(t, 400, center.X, 1e-9)
	assert.InDelta(t, 300, center.Y, 1e-9)
}

func TestFocusOnSuppressedDuringDrag(t *testing.T) {
	c := NewController()
	c.SetSize(800, 600)
	id := conversation.NewNodeID()

	require.True(t, c.StartPan(r2.Vec{}))
	before := c.Pan()
	c.FocusOn(id, layout.NodePos{X: 100, Y: 50, Height: 80}, 420)
	assert.Equal(t, before, c.Pan())
}

func TestFocusOnIncludesManualOffset(t *testing.T) {
	c := NewController()
	c.SetSize(800, 600)

	id := conversation.NewNodeID()
	c.offsets[id] = r2.Vec{X: 30, Y: -10}
	pos := layout.NodePos{X: 0, Y: 0, Height: 100}

	c.FocusOn(id, pos, 420)

	center := c.WorldToScreen(r2.Vec{X: 240, Y: -10})
	assert.InDelta(t, 400, center.X, 1e-9)
	assert.InDelta(t, 300, center.Y, 1e-9)
}

func TestRemoveOffsets(t *testing.T) {
	c := NewController()
	id := conversation.NewNodeID()
	c.offsets[id] = r2.Vec{X: 5, Y: 5}

	c.RemoveOffsets(id)
	assert.Equal(t, r2.Vec{}, c.Offset(id))
}
