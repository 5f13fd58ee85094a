package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/go-go-golems/arbor/pkg/canvas/layout"
	"github.com/go-go-golems/arbor/pkg/canvas/minimap"
	"github.com/go-go-golems/arbor/pkg/canvas/viewport"
	"github.com/go-go-golems/arbor/pkg/conversation"
	"github.com/go-go-golems/arbor/pkg/events"
	"github.com/go-go-golems/arbor/pkg/session"
)

// screen cell dimensions in world pixels, used to map the terminal grid
// onto the canvas coordinate system
const (
	cellWidthPx  = 8.0
	cellHeightPx = 16.0

	panStepPx = 64.0
	zoomStep  = 1.1

	minimapCols = 28
	minimapRows = 8
)

type streamDoneMsg struct{}

type Model struct {
	session *session.Session
	// tree is the current deep snapshot of the conversation tree. All
	// rendering and measurement reads go through it; the live tree is
	// only touched via session operations, never read directly, since
	// the engine goroutine mutates it under the session lock.
	tree *conversation.Tree

	engine    *layout.Engine
	heights   *layout.HeightMap
	vp        *viewport.Controller
	projector *minimap.Projector

	positions map[conversation.NodeID]layout.NodePos

	input    textarea.Model
	renderer *glamour.TermRenderer
	keyMap   KeyMap
	style    *Style

	width  int
	height int

	tokenCount int
	status     string
}

func NewModel(sess *session.Session) Model {
	ta := textarea.New()
	ta.Placeholder = "Type a message..."
	ta.SetHeight(3)
	ta.Focus()

	m := Model{
		session:   sess,
		engine:    layout.NewEngine(),
		heights:   layout.NewHeightMap(),
		vp:        viewport.NewController(),
		projector: minimap.NewProjector(),
		input:     ta,
		keyMap:    DefaultKeyMap,
		style:     DefaultStyles(),
	}
	m.refresh()
	m.remeasureAll()
	m.relayout()
	return m
}

func (m *Model) refresh() {
	m.tree = m.session.Snapshot()
}

func (m *Model) selectedNode() *conversation.Node {
	n, _ := m.tree.Node(m.tree.SelectedID)
	return n
}

func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.vp.SetSize(float64(msg.Width)*cellWidthPx, float64(msg.Height)*cellHeightPx)
		m.input.SetWidth(msg.Width - 4)

		renderer, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(m.transcriptWidth()-4),
		)
		if err != nil {
			log.Warn().Err(err).Msg("could not create markdown renderer")
		} else {
			m.renderer = renderer
		}
		return m, nil

	case StreamEventMsg:
		return m.handleStreamEvent(msg.Event)

	case streamDoneMsg:
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleStreamEvent(e events.Event) (tea.Model, tea.Cmd) {
	m.refresh()

	nodeID := e.Metadata().NodeID
	if node, ok := m.tree.Node(nodeID); ok {
		if m.heights.Set(nodeID, MeasureNode(node)) {
			m.relayout()
		}
	}

	switch e := e.(type) {
	case *events.EventFinal:
		m.status = "done"
		m.refreshTokenCount()
	case *events.EventError:
		m.status = fmt.Sprintf("error: %s", e.ErrorString)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keyMap.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keyMap.SubmitMessage):
		return m.submit()

	case key.Matches(msg, m.keyMap.NextNode):
		m.cycleSelection(1)
		return m, nil

	case key.Matches(msg, m.keyMap.PrevNode):
		m.cycleSelection(-1)
		return m, nil

	case key.Matches(msg, m.keyMap.Branch):
		return m.branchAtLastAnswer()

	case key.Matches(msg, m.keyMap.CloseNode):
		m.closeSelected()
		return m, nil

	case key.Matches(msg, m.keyMap.ToggleCollapse):
		m.toggleCollapse()
		return m, nil

	case key.Matches(msg, m.keyMap.ZoomIn):
		m.vp.ZoomAt(r2.Scale(0.5, m.vp.Size()), zoomStep)
		return m, nil

	case key.Matches(msg, m.keyMap.ZoomOut):
		m.vp.ZoomAt(r2.Scale(0.5, m.vp.Size()), 1/zoomStep)
		return m, nil

	case key.Matches(msg, m.keyMap.PanLeft):
		m.panBy(r2.Vec{X: panStepPx})
		return m, nil
	case key.Matches(msg, m.keyMap.PanRight):
		m.panBy(r2.Vec{X: -panStepPx})
		return m, nil
	case key.Matches(msg, m.keyMap.PanUp):
		m.panBy(r2.Vec{Y: panStepPx})
		return m, nil
	case key.Matches(msg, m.keyMap.PanDown):
		m.panBy(r2.Vec{Y: -panStepPx})
		return m, nil

	case key.Matches(msg, m.keyMap.FocusSelected):
		m.focusSelected()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}
	selected := m.selectedNode()
	if selected == nil {
		m.status = "no node selected"
		return m, nil
	}

	stream, err := m.session.Send(context.Background(), selected.ID, text)
	if err != nil {
		if errors.Is(err, session.ErrNodeBusy) {
			m.status = "a response is already streaming here"
			return m, nil
		}
		m.status = err.Error()
		return m, nil
	}

	m.input.Reset()
	m.status = "thinking..."
	m.refresh()
	m.remeasure(selected.ID)
	m.relayout()
	m.refreshTokenCount()
	m.focusSelected()

	return m, func() tea.Msg {
		stream()
		return streamDoneMsg{}
	}
}

func (m Model) branchAtLastAnswer() (tea.Model, tea.Cmd) {
	selected := m.selectedNode()
	if selected == nil {
		return m, nil
	}

	var source *conversation.Message
	for i := len(selected.Messages) - 1; i >= 0; i-- {
		if selected.Messages[i].Role == conversation.RoleAssistant && selected.Messages[i].Text != "" {
			source = selected.Messages[i]
			break
		}
	}
	if source == nil {
		m.status = "nothing to branch from"
		return m, nil
	}

	_, _, err := m.session.Branch(context.Background(), selected.ID, source.ID, branchSpan(source.Text), "")
	if err != nil {
		m.status = err.Error()
		return m, nil
	}

	m.status = "branched"
	m.refresh()
	m.remeasureAll()
	m.relayout()
	m.refreshTokenCount()
	m.focusSelected()
	return m, nil
}

// branchSpan picks the tail of the answer as the fork span. The DOM
// frontend would use the user's actual text selection here; the first
// occurrence of the span inside the message wins either way.
func branchSpan(text string) string {
	text = strings.TrimSpace(text)
	const spanLen = 48
	if len(text) <= spanLen {
		return text
	}
	return text[len(text)-spanLen:]
}

func (m *Model) closeSelected() {
	selected := m.selectedNode()
	if selected == nil {
		return
	}

	removed, err := m.session.Close(selected.ID)
	if err != nil {
		m.status = err.Error()
		return
	}

	m.refresh()
	m.heights.Remove(removed...)
	m.vp.RemoveOffsets(removed...)
	m.relayout()
	m.refreshTokenCount()
	m.status = fmt.Sprintf("closed %d node(s)", len(removed))
}

func (m *Model) toggleCollapse() {
	selected := m.selectedNode()
	if selected == nil {
		return
	}
	_ = m.session.Locked(func(mgr conversation.Manager) error {
		return mgr.ToggleCollapse(selected.ID)
	})
	m.refresh()
	m.relayout()
}

func (m *Model) cycleSelection(direction int) {
	ids := m.tree.NodeIDs()
	if len(ids) == 0 {
		return
	}

	current := 0
	for i, id := range ids {
		if id == m.tree.SelectedID {
			current = i
			break
		}
	}
	next := (current + direction + len(ids)) % len(ids)

	_ = m.session.Locked(func(mgr conversation.Manager) error {
		return mgr.Select(ids[next])
	})
	m.refresh()
	m.refreshTokenCount()
	m.focusSelected()
}

func (m *Model) panBy(delta r2.Vec) {
	if !m.vp.StartPan(r2.Vec{}) {
		return
	}
	m.vp.DragMove(delta)
	m.vp.EndDrag()
}

func (m *Model) focusSelected() {
	pos, ok := m.positions[m.tree.SelectedID]
	if !ok {
		return
	}
	m.vp.FocusOn(m.tree.SelectedID, pos, m.engine.NodeWidth)
}

func (m *Model) relayout() {
	m.positions = m.engine.Compute(m.tree, m.heights.Snapshot())
}

func (m *Model) remeasure(id conversation.NodeID) {
	if node, ok := m.tree.Node(id); ok {
		m.heights.Set(id, MeasureNode(node))
	}
}

func (m *Model) remeasureAll() {
	for _, id := range m.tree.NodeIDs() {
		m.remeasure(id)
	}
}

func (m *Model) refreshTokenCount() {
	if m.tree.SelectedID == conversation.NullNode {
		m.tokenCount = 0
		return
	}
	ictx := conversation.NewInferenceContext(conversation.Linearize(m.tree, m.tree.SelectedID))
	count, err := ictx.TokenCount()
	if err != nil {
		log.Warn().Err(err).Msg("could not count tokens")
		return
	}
	m.tokenCount = count
}

func (m Model) View() string {
	if m.width == 0 {
		return "initializing..."
	}

	status := m.style.StatusBar.Render(fmt.Sprintf(
		"arbor · %d nodes · zoom %.2f · ~%d tokens · %s",
		m.tree.Len(), m.vp.Scale(), m.tokenCount, m.status,
	))

	treePane := m.style.TreePane.
		Width(m.treeWidth()).
		Height(m.paneHeight()).
		Render(m.renderTree())

	transcript := m.style.TranscriptPane.
		Width(m.transcriptWidth()).
		Height(m.paneHeight()).
		Render(m.renderTranscript())

	panes := lipgloss.JoinHorizontal(lipgloss.Top, treePane, transcript)

	bottom := lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.input.View(),
		" ",
		m.renderMinimap(),
	)

	return lipgloss.JoinVertical(lipgloss.Left, status, panes, bottom)
}

func (m Model) treeWidth() int {
	w := m.width / 3
	if w < 24 {
		w = 24
	}
	return w
}

func (m Model) transcriptWidth() int {
	w := m.width - m.treeWidth() - 4
	if w < 20 {
		w = 20
	}
	return w
}

func (m Model) paneHeight() int {
	h := m.height - 7
	if h < 5 {
		h = 5
	}
	return h
}

func (m Model) renderTree() string {
	tree := m.tree
	var sb strings.Builder

	var walk func(n *conversation.Node, depth int)
	walk = func(n *conversation.Node, depth int) {
		label := nodeLabel(n)
		line := strings.Repeat("  ", depth)
		switch {
		case n.ID == tree.SelectedID:
			line += m.style.SelectedNode.Render("▶ " + label)
		case n.Pending:
			line += m.style.PendingNode.Render("… " + label)
		case n.Collapsed:
			line += m.style.CollapsedNode.Render("+ " + label)
		default:
			line += "  " + label
		}
		sb.WriteString(line)
		sb.WriteString("\n")

		for _, child := range tree.Children(n.ID) {
			walk(child, depth+1)
		}
	}

	for _, root := range tree.Roots() {
		walk(root, 0)
	}

	return strings.TrimRight(sb.String(), "\n")
}

func nodeLabel(n *conversation.Node) string {
	if n.IsRoot() {
		return "root"
	}
	span := n.ForkSpan
	if len(span) > 24 {
		span = span[:24] + "…"
	}
	return fmt.Sprintf("⑂ %q", span)
}

func (m Model) renderTranscript() string {
	selected := m.selectedNode()
	if selected == nil {
		return "no node selected"
	}

	var sb strings.Builder
	if !selected.IsRoot() {
		sb.WriteString(fmt.Sprintf("⑂ forked on: %q\n\n", selected.ForkSpan))
	}

	for _, msg := range selected.Messages {
		switch msg.Role {
		case conversation.RoleUser:
			sb.WriteString("> " + msg.Text + "\n")
		case conversation.RoleAssistant, conversation.RoleSystem:
			sb.WriteString(m.renderMarkdown(msg.Text))
		}
		sb.WriteString("\n")
	}

	return strings.TrimRight(sb.String(), "\n")
}

func (m Model) renderMarkdown(text string) string {
	if m.renderer == nil || text == "" {
		return text
	}
	out, err := m.renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(out, "\n")
}

// renderMinimap draws the projected thumbnail on a small character
// grid: dots for the visible viewport window, solid cells for nodes.
func (m Model) renderMinimap() string {
	projector := *m.projector
	projector.Width = float64(minimapCols)
	projector.Height = float64(minimapRows)
	projector.NodeWidth = m.engine.NodeWidth

	tree := m.tree
	mp, ok := projector.Project(m.positions, m.vp, tree.NodeIDs())
	if !ok {
		return ""
	}

	grid := make([][]rune, minimapRows)
	for y := range grid {
		grid[y] = make([]rune, minimapCols)
		for x := range grid[y] {
			grid[y][x] = ' '
		}
	}

	fill := func(b r2.Box, r rune, onlyEmpty bool) {
		for y := int(b.Min.Y); float64(y) < b.Max.Y && y < minimapRows; y++ {
			for x := int(b.Min.X); float64(x) < b.Max.X && x < minimapCols; x++ {
				if y < 0 || x < 0 {
					continue
				}
				if onlyEmpty && grid[y][x] != ' ' {
					continue
				}
				grid[y][x] = r
			}
		}
	}

	fill(mp.Viewport, '·', false)
	for _, n := range mp.Nodes {
		r := '▪'
		if n.ID == tree.SelectedID {
			r = '◆'
		}
		fill(n.Rect, r, false)
	}

	var sb strings.Builder
	for y, row := range grid {
		sb.WriteString(string(row))
		if y < minimapRows-1 {
			sb.WriteString("\n")
		}
	}
	return m.style.Minimap.Render(sb.String())
}
