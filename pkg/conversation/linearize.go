package conversation

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

// BranchTransitionText is the synthetic user message injected between an
// ancestor's truncated history and its branch, grounding the generator in
// the span the branch was forked on.
func BranchTransitionText(span string) string {
	return fmt.Sprintf(
		"Let's branch off from this point. I want to focus on this part of your answer: %q",
		span,
	)
}

// Linearize reconstructs the ordered conversation history for the node
// with the given id, suitable for a stateless generation call.
//
// Ancestors contribute only the message prefix up to their fork point:
// messages that came after the branch in the ancestor's own later
// conversation never leak into the branch's context. Between an
// ancestor's contribution and the next node's messages a synthetic
// transition message is injected when the branch recorded a fork span.
// The target node contributes all of its messages, except a still
// streaming assistant placeholder.
//
// The returned messages are copies: the context stays stable even when
// a still streaming ancestor message keeps accumulating deltas after
// the call.
//
// A dangling parent reference truncates the walk (see Tree.PathToRoot)
// and yields a degraded but non-crashing context.
func Linearize(t *Tree, targetID NodeID) Conversation {
	path := t.PathToRoot(targetID)
	if len(path) == 0 {
		log.Warn().Str("node_id", targetID.String()).Msg("linearize target not found")
		return nil
	}

	var ret Conversation

	for i, node := range path {
		if i == len(path)-1 {
			ret = appendClones(ret, trimStreamingPlaceholder(node))
			continue
		}

		next := path[i+1]
		prefix, ok := node.MessagePrefix(next.ParentMessageID)
		if !ok {
			log.Warn().
				Str("node_id", node.ID.String()).
				Str("parent_message_id", next.ParentMessageID.String()).
				Msg("fork message not found, contributing full history")
		}
		ret = appendClones(ret, prefix)

		if next.ForkSpan != "" {
			ret = append(ret, NewMessage(RoleUser, BranchTransitionText(next.ForkSpan)))
		}
	}

	return ret
}

func appendClones(dst Conversation, msgs Conversation) Conversation {
	for _, m := range msgs {
		dst = append(dst, m.Clone())
	}
	return dst
}

// trimStreamingPlaceholder drops the trailing assistant message while a
// response is in flight; the placeholder is only ever appended after the
// request begins and must not be echoed back upstream.
func trimStreamingPlaceholder(n *Node) Conversation {
	msgs := Conversation(n.Messages)
	if !n.Pending || len(msgs) == 0 {
		return msgs
	}
	if last := msgs[len(msgs)-1]; last.Role == RoleAssistant {
		return msgs[:len(msgs)-1]
	}
	return msgs
}
