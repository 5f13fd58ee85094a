package conversation

import (
	"github.com/pkg/errors"
)

var (
	ErrNoSuchNode    = errors.New("no such node")
	ErrNoSuchMessage = errors.New("no such message")
	ErrEmptySpan     = errors.New("empty fork span")
)

// Manager owns the conversation tree and is the only way to mutate it.
// Readers get consistent snapshots; writers go through these operations
// so the selection and parent-reference invariants stay enforceable.
type Manager interface {
	Tree() *Tree

	Selected() *Node
	Select(id NodeID) error

	AppendMessage(nodeID NodeID, msg *Message) error
	// CreateBranch forks a new node off the given parent message. span
	// must be the non-empty substring of that message that was selected;
	// customPrompt, when non-empty, becomes the branch's opening user
	// message. Linearization injects the synthetic transition message
	// before it regardless.
	CreateBranch(parentID NodeID, parentMessageID MessageID, span string, customPrompt string) (*Node, error)
	// CloseSubtree destroys the node and all of its descendants and
	// returns the removed ids so collaborators (height map, offsets) can
	// prune their own state. Selection is reassigned if it pointed into
	// the removed subtree.
	CloseSubtree(id NodeID) ([]NodeID, error)
	ToggleCollapse(id NodeID) error
}
