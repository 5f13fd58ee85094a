package layout

import (
	"math"

	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/arbor/pkg/conversation"
)

// DefaultHeightEpsilon suppresses feedback loops from sub-pixel layout
// churn: reported changes smaller than this are ignored.
const DefaultHeightEpsilon = 2.0

// HeightMap collects the measured pixel heights reported by the
// rendering layer. It is the single owner of that state; readers take
// snapshots.
type HeightMap struct {
	heights map[conversation.NodeID]float64
	epsilon float64
	version uint64
}

func NewHeightMap() *HeightMap {
	return &HeightMap{
		heights: make(map[conversation.NodeID]float64),
		epsilon: DefaultHeightEpsilon,
	}
}

// Set records a measured height. It returns true when the value changed
// by more than the epsilon, i.e. when a layout recompute is warranted.
func (h *HeightMap) Set(id conversation.NodeID, height float64) bool {
	if height <= 0 {
		log.Warn().Str("node_id", id.String()).Float64("height", height).Msg("ignoring non-positive height measurement")
		return false
	}
	prev, ok := h.heights[id]
	if ok && math.Abs(prev-height) <= h.epsilon {
		return false
	}
	h.heights[id] = height
	h.version++
	return true
}

func (h *HeightMap) Get(id conversation.NodeID) (float64, bool) {
	v, ok := h.heights[id]
	return v, ok
}

// Remove prunes measurements for destroyed nodes.
func (h *HeightMap) Remove(ids ...conversation.NodeID) {
	for _, id := range ids {
		delete(h.heights, id)
	}
	h.version++
}

func (h *HeightMap) Version() uint64 {
	return h.version
}

// Snapshot returns a copy suitable for a pure layout computation.
func (h *HeightMap) Snapshot() map[conversation.NodeID]float64 {
	out := make(map[conversation.NodeID]float64, len(h.heights))
	for id, v := range h.heights {
		out[id] = v
	}
	return out
}
