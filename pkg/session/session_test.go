package session

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/arbor/pkg/conversation"
	"github.com/go-go-golems/arbor/pkg/events"
	"github.com/go-go-golems/arbor/pkg/inference"
)

// scriptedEngine plays back a fixed chunk sequence and optionally fails
// afterwards. It records the context it was called with.
type scriptedEngine struct {
	chunks []string
	err    error

	mu       sync.Mutex
	contexts []conversation.InferenceContext
}

func (e *scriptedEngine) RunInference(
	_ context.Context,
	ictx conversation.InferenceContext,
	onChunk inference.ChunkHandler,
) (string, error) {
	e.mu.Lock()
	e.contexts = append(e.contexts, ictx)
	e.mu.Unlock()

	completion := ""
	for _, c := range e.chunks {
		completion += c
		if err := onChunk(c, completion); err != nil {
			return completion, err
		}
	}
	return completion, e.err
}

type capturingPublisher struct {
	mu   sync.Mutex
	msgs []*message.Message
}

func (c *capturingPublisher) Publish(_ string, messages ...*message.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, messages...)
	return nil
}

func (c *capturingPublisher) Close() error { return nil }

func (c *capturingPublisher) eventTypes(t *testing.T) []events.EventType {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()

	var types []events.EventType
	for _, msg := range c.msgs {
		e, err := events.NewEventFromJson(msg.Payload)
		require.NoError(t, err)
		types = append(types, e.Type())
	}
	return types
}

func newTestSession(engine inference.Engine) (*Session, *conversation.Node, *capturingPublisher) {
	manager := conversation.NewManager(conversation.WithRoot())
	capture := &capturingPublisher{}
	s := NewSession(manager, engine)
	s.Publisher().SubscribePublisher("ui", capture)
	return s, manager.Selected(), capture
}

func TestSendStreamsIntoPlaceholder(t *testing.T) {
	engine := &scriptedEngine{chunks: []string{"hello", " world"}}
	s, root, capture := newTestSession(engine)

	stream, err := s.Send(context.Background(), root.ID, "hi there")
	require.NoError(t, err)
	assert.True(t, root.Pending)

	stream()

	require.Len(t, root.Messages, 2)
	assert.Equal(t, conversation.RoleUser, root.Messages[0].Role)
	assert.Equal(t, "hi there", root.Messages[0].Text)
	assert.Equal(t, conversation.RoleAssistant, root.Messages[1].Role)
	assert.Equal(t, "hello world", root.Messages[1].Text)
	assert.False(t, root.Pending)

	assert.Equal(t, []events.EventType{
		events.EventTypeStart,
		events.EventTypePartialCompletion,
		events.EventTypePartialCompletion,
		events.EventTypeFinal,
	}, capture.eventTypes(t))
}

func TestSecondSendWhilePendingIsRejected(t *testing.T) {
	engine := &scriptedEngine{chunks: []string{"x"}}
	s, root, _ := newTestSession(engine)

	stream, err := s.Send(context.Background(), root.ID, "first")
	require.NoError(t, err)

	_, err = s.Send(context.Background(), root.ID, "second")
	assert.True(t, errors.Is(err, ErrNodeBusy))

	// no duplicate placeholder: user + single placeholder
	assert.Len(t, root.Messages, 2)

	stream()
	assert.False(t, root.Pending)

	// a new send is accepted after completion
	_, err = s.Send(context.Background(), root.ID, "third")
	assert.NoError(t, err)
}

func TestContextExcludesStreamingPlaceholder(t *testing.T) {
	engine := &scriptedEngine{chunks: []string{"ok"}}
	s, root, _ := newTestSession(engine)

	stream, err := s.Send(context.Background(), root.ID, "question")
	require.NoError(t, err)
	stream()

	require.Len(t, engine.contexts, 1)
	msgs := engine.contexts[0].Messages
	require.Len(t, msgs, 1)
	assert.Equal(t, "question", msgs[0].Text)
}

func TestChunksForClosedNodeAreDropped(t *testing.T) {
	engine := &scriptedEngine{chunks: []string{"late", " chunks"}}
	s, root, capture := newTestSession(engine)

	branchMsg := conversation.NewMessage(conversation.RoleAssistant, "fork here")
	require.NoError(t, s.Locked(func(m conversation.Manager) error {
		return m.AppendMessage(root.ID, branchMsg)
	}))
	branch, _, err := s.Branch(context.Background(), root.ID, branchMsg.ID, "fork here", "")
	require.NoError(t, err)

	stream, err := s.Send(context.Background(), branch.ID, "doomed")
	require.NoError(t, err)

	removed, err := s.Close(branch.ID)
	require.NoError(t, err)
	assert.Equal(t, []conversation.NodeID{branch.ID}, removed)

	// the upstream stream still runs; its chunks must go nowhere
	stream()

	_, ok := s.Manager().Tree().Node(branch.ID)
	assert.False(t, ok)

	// only the start event made it out before the close
	assert.Equal(t, []events.EventType{events.EventTypeStart}, capture.eventTypes(t))
}

func TestGenerationFailureAppendsTerminalNotice(t *testing.T) {
	engine := &scriptedEngine{chunks: []string{"partial answer"}, err: errors.New("upstream exploded")}
	s, root, capture := newTestSession(engine)

	stream, err := s.Send(context.Background(), root.ID, "question")
	require.NoError(t, err)
	stream()

	assert.False(t, root.Pending)
	last := root.LastMessage()
	require.NotNil(t, last)
	assert.Contains(t, last.Text, "partial answer")
	assert.Contains(t, last.Text, "generation failed: upstream exploded")

	types := capture.eventTypes(t)
	assert.Equal(t, events.EventTypeError, types[len(types)-1])
}

func TestFailureDoesNotAffectOtherNodes(t *testing.T) {
	engine := &scriptedEngine{err: errors.New("boom")}
	s, root, _ := newTestSession(engine)

	branchMsg := conversation.NewMessage(conversation.RoleAssistant, "fork here")
	require.NoError(t, s.Locked(func(m conversation.Manager) error {
		return m.AppendMessage(root.ID, branchMsg)
	}))
	branch, _, err := s.Branch(context.Background(), root.ID, branchMsg.ID, "fork here", "")
	require.NoError(t, err)

	stream, err := s.Send(context.Background(), branch.ID, "will fail")
	require.NoError(t, err)
	stream()

	assert.False(t, branch.Pending)
	assert.False(t, root.Pending)
	_, err = s.Send(context.Background(), root.ID, "root still works")
	assert.NoError(t, err)
}

func TestBranchWithCustomPromptSends(t *testing.T) {
	engine := &scriptedEngine{chunks: []string{"branched answer"}}
	s, root, _ := newTestSession(engine)

	branchMsg := conversation.NewMessage(conversation.RoleAssistant, "pick this span")
	require.NoError(t, s.Locked(func(m conversation.Manager) error {
		return m.AppendMessage(root.ID, branchMsg)
	}))

	branch, stream, err := s.Branch(context.Background(), root.ID, branchMsg.ID, "this span", "explain it")
	require.NoError(t, err)
	require.NotNil(t, stream)

	stream()

	require.Len(t, branch.Messages, 2)
	assert.Equal(t, "explain it", branch.Messages[0].Text)
	assert.Equal(t, "branched answer", branch.Messages[1].Text)

	// the transition message and the custom prompt both reached the engine
	require.Len(t, engine.contexts, 1)
	msgs := engine.contexts[0].Messages
	require.Len(t, msgs, 3)
	assert.Equal(t, conversation.BranchTransitionText("this span"), msgs[1].Text)
	assert.Equal(t, "explain it", msgs[2].Text)
}

func TestBranchWithoutPromptDoesNotSend(t *testing.T) {
	engine := &scriptedEngine{}
	s, root, _ := newTestSession(engine)

	branchMsg := conversation.NewMessage(conversation.RoleAssistant, "pick this span")
	require.NoError(t, s.Locked(func(m conversation.Manager) error {
		return m.AppendMessage(root.ID, branchMsg)
	}))

	branch, stream, err := s.Branch(context.Background(), root.ID, branchMsg.ID, "this span", "")
	require.NoError(t, err)
	assert.Nil(t, stream)
	assert.Empty(t, branch.Messages)
	assert.False(t, branch.Pending)
}

func TestSendToUnknownNode(t *testing.T) {
	engine := &scriptedEngine{}
	s, _, _ := newTestSession(engine)

	_, err := s.Send(context.Background(), conversation.NewNodeID(), "hello")
	assert.True(t, errors.Is(err, conversation.ErrNoSuchNode))
}

// snapshottingEngine takes a tree snapshot between two chunks, standing
// in for a renderer that reads while the stream is still running.
type snapshottingEngine struct {
	session  *Session
	snapshot *conversation.Tree
}

func (e *snapshottingEngine) RunInference(
	_ context.Context,
	_ conversation.InferenceContext,
	onChunk inference.ChunkHandler,
) (string, error) {
	if err := onChunk("first", "first"); err != nil {
		return "", err
	}
	e.snapshot = e.session.Snapshot()
	if err := onChunk(" second", "first second"); err != nil {
		return "", err
	}
	return "first second", nil
}

func TestSnapshotUnaffectedByLaterChunks(t *testing.T) {
	engine := &snapshottingEngine{}
	s, root, _ := newTestSession(engine)
	engine.session = s

	stream, err := s.Send(context.Background(), root.ID, "question")
	require.NoError(t, err)
	stream()

	require.NotNil(t, engine.snapshot)
	node, ok := engine.snapshot.Node(root.ID)
	require.True(t, ok)
	assert.Equal(t, "first", node.LastMessage().Text)
	assert.Equal(t, "first second", root.LastMessage().Text)
}

func TestConcurrentSnapshotReadsDuringStream(t *testing.T) {
	chunks := make([]string, 64)
	for i := range chunks {
		chunks[i] = "x"
	}
	engine := &scriptedEngine{chunks: chunks}
	s, root, _ := newTestSession(engine)

	stream, err := s.Send(context.Background(), root.ID, "question")
	require.NoError(t, err)

	// a reader loops over snapshots while the stream applies chunks on
	// this goroutine; every observed text must be a consistent prefix of
	// the final completion
	var observed []string
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 256; i++ {
			tree := s.Snapshot()
			node, ok := tree.Node(root.ID)
			if !ok {
				continue
			}
			if last := node.LastMessage(); last != nil && last.Role == conversation.RoleAssistant {
				observed = append(observed, last.Text)
			}
		}
	}()

	stream()
	<-done

	final := root.LastMessage().Text
	require.Equal(t, strings.Repeat("x", len(chunks)), final)
	for _, text := range observed {
		assert.True(t, strings.HasPrefix(final, text), "observed %q is not a prefix of %q", text, final)
	}
}
