package events

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/go-go-golems/arbor/pkg/conversation"
)

type EventType string

const (
	// EventTypeStart to EventTypeFinal cover one response stream
	EventTypeStart             EventType = "start"
	EventTypePartialCompletion EventType = "partial"
	EventTypeFinal             EventType = "final"
	EventTypeError             EventType = "error"
)

// EventMetadata routes a stream event to the node (and placeholder
// message) it belongs to. Consumers use NodeID to decide whether the
// event still has a live sink; chunks for a closed node are dropped.
type EventMetadata struct {
	NodeID    conversation.NodeID    `json:"node_id"`
	MessageID conversation.MessageID `json:"message_id"`
}

func (em EventMetadata) MarshalZerologObject(e *zerolog.Event) {
	e.Str("node_id", em.NodeID.String())
	e.Str("message_id", em.MessageID.String())
}

type Event interface {
	Type() EventType
	Metadata() EventMetadata
	Payload() []byte
}

type EventImpl struct {
	Type_     EventType     `json:"type"`
	Metadata_ EventMetadata `json:"meta"`

	// payload is stored when the event was deserialized from JSON
	payload []byte
}

func (e *EventImpl) Type() EventType {
	return e.Type_
}

func (e *EventImpl) Metadata() EventMetadata {
	return e.Metadata_
}

func (e *EventImpl) Payload() []byte {
	return e.payload
}

var _ Event = &EventImpl{}

type EventStart struct {
	EventImpl
}

func NewStartEvent(metadata EventMetadata) *EventStart {
	return &EventStart{
		EventImpl: EventImpl{Type_: EventTypeStart, Metadata_: metadata},
	}
}

type EventPartialCompletion struct {
	EventImpl
	Delta string `json:"delta"`
	// Completion is the full accumulated text so far, so a consumer that
	// missed a delta can still render consistently.
	Completion string `json:"completion"`
}

func NewPartialCompletionEvent(metadata EventMetadata, delta string, completion string) *EventPartialCompletion {
	return &EventPartialCompletion{
		EventImpl:  EventImpl{Type_: EventTypePartialCompletion, Metadata_: metadata},
		Delta:      delta,
		Completion: completion,
	}
}

type EventFinal struct {
	EventImpl
	Text string `json:"text"`
}

func NewFinalEvent(metadata EventMetadata, text string) *EventFinal {
	return &EventFinal{
		EventImpl: EventImpl{Type_: EventTypeFinal, Metadata_: metadata},
		Text:      text,
	}
}

type EventError struct {
	EventImpl
	ErrorString string `json:"error"`
}

func NewErrorEvent(metadata EventMetadata, err error) *EventError {
	return &EventError{
		EventImpl:   EventImpl{Type_: EventTypeError, Metadata_: metadata},
		ErrorString: err.Error(),
	}
}

// NewEventFromJson decodes a serialized event back into its concrete
// type.
func NewEventFromJson(b []byte) (Event, error) {
	var peek EventImpl
	if err := json.Unmarshal(b, &peek); err != nil {
		return nil, errors.Wrap(err, "could not decode event envelope")
	}

	var ret Event
	switch peek.Type_ {
	case EventTypeStart:
		ret = &EventStart{}
	case EventTypePartialCompletion:
		ret = &EventPartialCompletion{}
	case EventTypeFinal:
		ret = &EventFinal{}
	case EventTypeError:
		ret = &EventError{}
	default:
		return nil, errors.Errorf("unknown event type %q", peek.Type_)
	}

	if err := json.Unmarshal(b, ret); err != nil {
		return nil, errors.Wrapf(err, "could not decode %s event", peek.Type_)
	}

	switch e := ret.(type) {
	case *EventStart:
		e.payload = b
	case *EventPartialCompletion:
		e.payload = b
	case *EventFinal:
		e.payload = b
	case *EventError:
		e.payload = b
	}

	return ret, nil
}
