package events

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/arbor/pkg/conversation"
)

func testMetadata() EventMetadata {
	return EventMetadata{
		NodeID:    conversation.NewNodeID(),
		MessageID: conversation.NewMessageID(),
	}
}

func TestEventFromJsonPartial(t *testing.T) {
	md := testMetadata()
	in := NewPartialCompletionEvent(md, "wor", "hello wor")

	b, err := json.Marshal(in)
	require.NoError(t, err)

	out, err := NewEventFromJson(b)
	require.NoError(t, err)

	partial, ok := out.(*EventPartialCompletion)
	require.True(t, ok)
	assert.Equal(t, "wor", partial.Delta)
	assert.Equal(t, "hello wor", partial.Completion)
	assert.Equal(t, md.NodeID, partial.Metadata().NodeID)
	assert.Equal(t, b, partial.Payload())
}

func TestEventFromJsonError(t *testing.T) {
	in := NewErrorEvent(testMetadata(), errors.New("stream broke"))

	b, err := json.Marshal(in)
	require.NoError(t, err)

	out, err := NewEventFromJson(b)
	require.NoError(t, err)

	e, ok := out.(*EventError)
	require.True(t, ok)
	assert.Equal(t, "stream broke", e.ErrorString)
}

func TestEventFromJsonUnknownType(t *testing.T) {
	_, err := NewEventFromJson([]byte(`{"type":"bogus"}`))
	assert.Error(t, err)
}

type capturingPublisher struct {
	mu   sync.Mutex
	msgs []*message.Message
}

func (c *capturingPublisher) Publish(topic string, messages ...*message.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, messages...)
	return nil
}

func (c *capturingPublisher) Close() error { return nil }

func TestPublisherManagerSequenceNumbers(t *testing.T) {
	pm := NewPublisherManager()
	capture := &capturingPublisher{}
	pm.SubscribePublisher("ui", capture)

	md := testMetadata()
	require.NoError(t, pm.Publish(NewStartEvent(md)))
	require.NoError(t, pm.Publish(NewPartialCompletionEvent(md, "a", "a")))
	require.NoError(t, pm.Publish(NewFinalEvent(md, "a")))

	require.Len(t, capture.msgs, 3)
	for i, msg := range capture.msgs {
		assert.Equal(t, string(rune('0'+i)), msg.Metadata.Get("sequence_number"))
	}
}
