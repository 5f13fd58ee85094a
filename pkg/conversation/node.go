package conversation

// Node is one branch of the conversation tree. A node with ParentID ==
// NullNode is a root; otherwise ParentMessageID names the message in the
// parent at which the branch occurred and ForkSpan holds the exact text
// substring that was selected to create it.
type Node struct {
	ID              NodeID    `json:"id"`
	ParentID        NodeID    `json:"parentID"`
	ParentMessageID MessageID `json:"parentMessageID"`
	ForkSpan        string    `json:"forkSpan,omitempty"`

	Messages []*Message `json:"messages"`

	// Collapsed is a presentation flag; it only changes the node's
	// effective height, never the layout algorithm's correctness.
	Collapsed bool `json:"collapsed"`
	// Pending is set while a response stream targets this node. At most
	// one response may be in flight per node.
	Pending bool `json:"pending"`
}

type NodeOption func(*Node)

func WithNodeID(id NodeID) NodeOption {
	return func(n *Node) {
		n.ID = id
	}
}

func WithNodeMessages(messages ...*Message) NodeOption {
	return func(n *Node) {
		n.Messages = append(n.Messages, messages...)
	}
}

// NewRootNode creates a parentless node.
func NewRootNode(options ...NodeOption) *Node {
	ret := &Node{
		ID:       NewNodeID(),
		ParentID: NullNode,
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

// NewBranchNode creates a node forked from the given parent message.
func NewBranchNode(parentID NodeID, parentMessageID MessageID, forkSpan string, options ...NodeOption) *Node {
	ret := &Node{
		ID:              NewNodeID(),
		ParentID:        parentID,
		ParentMessageID: parentMessageID,
		ForkSpan:        forkSpan,
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

func (n *Node) IsRoot() bool {
	return n.ParentID == NullNode
}

func (n *Node) FindMessage(id MessageID) (*Message, bool) {
	for _, m := range n.Messages {
		if m.ID == id {
			return m, true
		}
	}
	return nil, false
}

func (n *Node) LastMessage() *Message {
	if len(n.Messages) == 0 {
		return nil
	}
	return n.Messages[len(n.Messages)-1]
}

// MessagePrefix returns the messages up to and including the one with the
// given id. When the id cannot be found the full list is returned and ok
// is false, so that callers can degrade gracefully instead of failing.
func (n *Node) MessagePrefix(id MessageID) (Conversation, bool) {
	for i, m := range n.Messages {
		if m.ID == id {
			return Conversation(n.Messages[:i+1]), true
		}
	}
	return Conversation(n.Messages), false
}

// Clone returns a deep copy of the node. The copy's messages are
// independent of the originals, so a snapshot never observes a
// half-applied streaming delta.
func (n *Node) Clone() *Node {
	ret := *n
	ret.Messages = make([]*Message, len(n.Messages))
	for i, m := range n.Messages {
		ret.Messages[i] = m.Clone()
	}
	return &ret
}
