package conversation

import (
	"encoding/json"

	"github.com/google/uuid"
)

// NodeID identifies a single branch (column) of the conversation tree.
type NodeID uuid.UUID

func (id NodeID) MarshalJSON() ([]byte, error) {
	return json.Marshal(uuid.UUID(id))
}

func (id *NodeID) UnmarshalJSON(data []byte) error {
	var u uuid.UUID
	if err := json.Unmarshal(data, &u); err != nil {
		return err
	}
	*id = NodeID(u)
	return nil
}

func (id NodeID) String() string {
	return uuid.UUID(id).String()
}

func NewNodeID() NodeID {
	return NodeID(uuid.New())
}

var NullNode = NodeID(uuid.Nil)

// MessageID identifies a single message inside a node. Message ids are
// globally unique and never reused, so a branch can keep a stable
// reference to its fork point even while the parent is still streaming.
type MessageID uuid.UUID

func (id MessageID) MarshalJSON() ([]byte, error) {
	return json.Marshal(uuid.UUID(id))
}

func (id *MessageID) UnmarshalJSON(data []byte) error {
	var u uuid.UUID
	if err := json.Unmarshal(data, &u); err != nil {
		return err
	}
	*id = MessageID(u)
	return nil
}

func (id MessageID) String() string {
	return uuid.UUID(id).String()
}

func NewMessageID() MessageID {
	return MessageID(uuid.New())
}

var NullMessage = MessageID(uuid.Nil)
