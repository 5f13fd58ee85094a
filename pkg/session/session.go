package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/arbor/pkg/conversation"
	"github.com/go-go-golems/arbor/pkg/events"
	"github.com/go-go-golems/arbor/pkg/inference"
)

var ErrNodeBusy = errors.New("a response is already in flight for this node")

// Session ties the conversation tree to a generation engine. It owns the
// pending bookkeeping: at most one response stream per node, chunks
// addressed to a node that was closed in the meantime are silently
// dropped, and a failed generation turns into a terminal textual notice
// on the node instead of propagating.
//
// The engine goroutine mutates the tree only under the session mutex.
// Readers on other goroutines must not touch the live tree at all: they
// take a deep copy via Snapshot, which is consistent by construction.
type Session struct {
	mu        sync.Mutex
	manager   conversation.Manager
	engine    inference.Engine
	publisher *events.PublisherManager

	model       string
	temperature float32
	maxTokens   int
}

type SessionOption func(*Session)

func WithPublisher(pm *events.PublisherManager) SessionOption {
	return func(s *Session) {
		s.publisher = pm
	}
}

func WithModel(model string) SessionOption {
	return func(s *Session) {
		s.model = model
	}
}

func WithTemperature(temperature float32) SessionOption {
	return func(s *Session) {
		s.temperature = temperature
	}
}

func WithMaxTokens(maxTokens int) SessionOption {
	return func(s *Session) {
		s.maxTokens = maxTokens
	}
}

func NewSession(manager conversation.Manager, engine inference.Engine, options ...SessionOption) *Session {
	ret := &Session{
		manager:   manager,
		engine:    engine,
		publisher: events.NewPublisherManager(),
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

func (s *Session) Manager() conversation.Manager {
	return s.manager
}

func (s *Session) Publisher() *events.PublisherManager {
	return s.publisher
}

// Snapshot returns a deep copy of the conversation tree, taken under
// the session lock. Rendering, measurement and any other read outside
// the lock must work from a snapshot; a snapshot never changes once
// returned, no matter how far the live tree streams ahead.
func (s *Session) Snapshot() *conversation.Tree {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.manager.Tree().Clone()
}

// Stream runs one response stream to completion. The caller decides
// where it executes (the UI wraps it in a command goroutine); all tree
// access inside is serialized through the session.
type Stream func()

// Send appends a user message to the node (unless text is empty, for
// branches whose opening prompt is already in place) and prepares a
// response stream. It returns ErrNodeBusy while a response is already in
// flight for that node; no duplicate placeholder is ever created.
//
// The returned Stream performs the actual generation. The linearized
// context is captured before the assistant placeholder is appended, so
// the placeholder is never part of the upstream request.
func (s *Session) Send(ctx context.Context, nodeID conversation.NodeID, text string) (Stream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tree := s.manager.Tree()
	node, ok := tree.Node(nodeID)
	if !ok {
		return nil, errors.Wrapf(conversation.ErrNoSuchNode, "send to %s", nodeID)
	}
	if node.Pending {
		return nil, errors.Wrapf(ErrNodeBusy, "send to %s", nodeID)
	}

	if err := tree.Validate(); err != nil {
		log.Warn().Err(err).Msg("tree integrity check failed, continuing")
	}

	if text != "" {
		if err := s.manager.AppendMessage(nodeID, conversation.NewMessage(conversation.RoleUser, text)); err != nil {
			return nil, err
		}
	}

	ictx := conversation.NewInferenceContext(conversation.Linearize(tree, nodeID))
	ictx.Model = s.model
	ictx.Temperature = s.temperature
	ictx.MaxTokens = s.maxTokens

	// the request is now considered begun: mark pending and append the
	// streaming placeholder
	node.Pending = true
	placeholder := conversation.NewMessage(conversation.RoleAssistant, "")
	if err := s.manager.AppendMessage(nodeID, placeholder); err != nil {
		node.Pending = false
		return nil, err
	}

	metadata := events.EventMetadata{NodeID: nodeID, MessageID: placeholder.ID}
	s.publisher.PublishBlind(events.NewStartEvent(metadata))

	return func() {
		s.runStream(ctx, metadata, ictx)
	}, nil
}

func (s *Session) runStream(
	ctx context.Context,
	metadata events.EventMetadata,
	ictx conversation.InferenceContext,
) {
	completion, err := s.engine.RunInference(ctx, ictx, func(delta string, completion string) error {
		s.applyChunk(metadata, delta, completion)
		return nil
	})

	if err != nil {
		s.failStream(metadata, err)
		return
	}
	s.finishStream(metadata, completion)
}

// applyChunk appends a delta to the node's placeholder message. Chunks
// arriving after the node was closed are dropped: closing a subtree only
// stops the sink, it does not halt the upstream stream.
func (s *Session) applyChunk(metadata events.EventMetadata, delta string, completion string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.placeholder(metadata)
	if !ok {
		return
	}
	msg.AppendText(delta)

	s.publisher.PublishBlind(events.NewPartialCompletionEvent(metadata, delta, completion))
}

func (s *Session) finishStream(metadata events.EventMetadata, completion string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	node, ok := s.manager.Tree().Node(metadata.NodeID)
	if !ok {
		return
	}
	node.Pending = false

	s.publisher.PublishBlind(events.NewFinalEvent(metadata, completion))
}

// failStream reports a generation failure to the owning node as a
// terminal textual notice; the condition never propagates to other
// nodes.
func (s *Session) failStream(metadata events.EventMetadata, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log.Warn().Err(err).Str("node_id", metadata.NodeID.String()).Msg("generation failed")

	node, ok := s.manager.Tree().Node(metadata.NodeID)
	if !ok {
		return
	}
	node.Pending = false

	if msg, ok := s.placeholder(metadata); ok {
		msg.AppendText(fmt.Sprintf("\n\n*generation failed: %s*", err))
	}

	s.publisher.PublishBlind(events.NewErrorEvent(metadata, err))
}

func (s *Session) placeholder(metadata events.EventMetadata) (*conversation.Message, bool) {
	node, ok := s.manager.Tree().Node(metadata.NodeID)
	if !ok {
		log.Debug().
			Str("node_id", metadata.NodeID.String()).
			Msg("dropping chunk for closed node")
		return nil, false
	}
	msg, ok := node.FindMessage(metadata.MessageID)
	if !ok {
		log.Debug().
			Str("node_id", metadata.NodeID.String()).
			Str("message_id", metadata.MessageID.String()).
			Msg("dropping chunk for missing placeholder")
		return nil, false
	}
	return msg, true
}

// Branch forks a new node off the given parent message and, when a
// custom prompt was provided, immediately prepares a response stream for
// it. stream is nil when there is nothing to send yet.
func (s *Session) Branch(
	ctx context.Context,
	parentID conversation.NodeID,
	parentMessageID conversation.MessageID,
	span string,
	customPrompt string,
) (*conversation.Node, Stream, error) {
	node, err := func() (*conversation.Node, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.manager.CreateBranch(parentID, parentMessageID, span, customPrompt)
	}()
	if err != nil {
		return nil, nil, err
	}

	if customPrompt == "" {
		return node, nil, nil
	}

	stream, err := s.Send(ctx, node.ID, "")
	if err != nil {
		return node, nil, err
	}
	return node, stream, nil
}

// Close destroys the subtree rooted at id and returns the removed node
// ids so viewport offsets and height measurements can be pruned. An
// in-flight stream for a removed node keeps running upstream; its chunks
// are dropped on arrival.
func (s *Session) Close(id conversation.NodeID) ([]conversation.NodeID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.manager.CloseSubtree(id)
}

// Locked runs fn with the session lock held, for UI mutations (select,
// collapse, append) that must not interleave with chunk application.
func (s *Session) Locked(fn func(m conversation.Manager) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.manager)
}
