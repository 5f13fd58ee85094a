package ui

import (
	"strings"

	"github.com/go-go-golems/arbor/pkg/conversation"
)

// The terminal frontend has no DOM to measure, so it approximates the
// height a node would occupy from wrapped line counts. A graphical
// frontend would implement the measurement-provider contract with real
// rendered heights instead; the epsilon filter in the height map treats
// both the same way.
const (
	lineHeightPx  = 18.0
	nodePaddingPx = 56.0
	wrapColumns   = 56
)

// MeasureNode estimates the rendered pixel height of a node.
func MeasureNode(n *conversation.Node) float64 {
	lines := 0
	for _, m := range n.Messages {
		lines += wrappedLines(m.Text) + 1
	}
	if lines == 0 {
		lines = 1
	}
	return nodePaddingPx + float64(lines)*lineHeightPx
}

func wrappedLines(text string) int {
	if text == "" {
		return 1
	}
	lines := 0
	for _, segment := range strings.Split(text, "\n") {
		n := len(segment)/wrapColumns + 1
		lines += n
	}
	return lines
}
