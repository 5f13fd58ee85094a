package conversation

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type ManagerImpl struct {
	tree *Tree
}

var _ Manager = (*ManagerImpl)(nil)

type ManagerOption func(*ManagerImpl)

// WithRoot seeds the tree with a single root node holding the given
// messages.
func WithRoot(messages ...*Message) ManagerOption {
	return func(m *ManagerImpl) {
		m.tree.Insert(NewRootNode(WithNodeMessages(messages...)))
	}
}

func NewManager(options ...ManagerOption) *ManagerImpl {
	ret := &ManagerImpl{
		tree: NewTree(),
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

func (m *ManagerImpl) Tree() *Tree {
	return m.tree
}

func (m *ManagerImpl) Selected() *Node {
	n, ok := m.tree.Node(m.tree.SelectedID)
	if !ok {
		return nil
	}
	return n
}

func (m *ManagerImpl) Select(id NodeID) error {
	if _, ok := m.tree.Node(id); !ok {
		return errors.Wrapf(ErrNoSuchNode, "select %s", id)
	}
	m.tree.SelectedID = id
	return nil
}

func (m *ManagerImpl) AppendMessage(nodeID NodeID, msg *Message) error {
	n, ok := m.tree.Node(nodeID)
	if !ok {
		return errors.Wrapf(ErrNoSuchNode, "append to %s", nodeID)
	}

	n.Messages = append(n.Messages, msg)

	log.Debug().
		Str("node_id", nodeID.String()).
		Str("message_id", msg.ID.String()).
		Str("role", string(msg.Role)).
		Int("message_count", len(n.Messages)).
		Msg("appended message")

	return nil
}

func (m *ManagerImpl) CreateBranch(
	parentID NodeID,
	parentMessageID MessageID,
	span string,
	customPrompt string,
) (*Node, error) {
	if span == "" {
		return nil, ErrEmptySpan
	}

	parent, ok := m.tree.Node(parentID)
	if !ok {
		return nil, errors.Wrapf(ErrNoSuchNode, "branch from %s", parentID)
	}
	if _, ok := parent.FindMessage(parentMessageID); !ok {
		return nil, errors.Wrapf(ErrNoSuchMessage, "branch from message %s", parentMessageID)
	}

	branch := NewBranchNode(parentID, parentMessageID, span)
	if customPrompt != "" {
		branch.Messages = append(branch.Messages, NewMessage(RoleUser, customPrompt))
	}
	m.tree.Insert(branch)
	m.tree.SelectedID = branch.ID

	log.Debug().
		Str("parent_id", parentID.String()).
		Str("parent_message_id", parentMessageID.String()).
		Str("branch_id", branch.ID.String()).
		Int("span_len", len(span)).
		Msg("created branch")

	return branch, nil
}

func (m *ManagerImpl) CloseSubtree(id NodeID) ([]NodeID, error) {
	n, ok := m.tree.Node(id)
	if !ok {
		return nil, errors.Wrapf(ErrNoSuchNode, "close %s", id)
	}

	removed := m.tree.SubtreeIDs(id)
	removedSet := make(map[NodeID]bool, len(removed))
	for _, rid := range removed {
		removedSet[rid] = true
	}

	parentID := n.ParentID
	m.tree.Remove(removed...)

	if removedSet[m.tree.SelectedID] {
		if _, ok := m.tree.Node(parentID); ok {
			m.tree.SelectedID = parentID
		} else if roots := m.tree.Roots(); len(roots) > 0 {
			m.tree.SelectedID = roots[0].ID
		} else {
			m.tree.SelectedID = NullNode
		}
	}

	log.Debug().
		Str("node_id", id.String()).
		Int("removed_count", len(removed)).
		Str("selected_id", m.tree.SelectedID.String()).
		Msg("closed subtree")

	return removed, nil
}

func (m *ManagerImpl) ToggleCollapse(id NodeID) error {
	n, ok := m.tree.Node(id)
	if !ok {
		return errors.Wrapf(ErrNoSuchNode, "collapse %s", id)
	}
	n.Collapsed = !n.Collapsed
	return nil
}
