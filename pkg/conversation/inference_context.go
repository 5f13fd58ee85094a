package conversation

import (
	"github.com/pkg/errors"
	"github.com/tiktoken-go/tokenizer"
)

// InferenceContext carries all information needed for a single generation
// call: the linearized history plus request parameters.
type InferenceContext struct {
	Messages Conversation   `json:"messages" yaml:"messages"`
	Metadata map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`

	Model       string  `json:"model,omitempty" yaml:"model,omitempty"`
	Temperature float32 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
}

func NewInferenceContext(messages Conversation) InferenceContext {
	return InferenceContext{Messages: messages, Metadata: make(map[string]any)}
}

func (c *InferenceContext) AppendMessage(m *Message) {
	c.Messages = append(c.Messages, m)
}

func (c InferenceContext) GetSinglePrompt() string {
	return c.Messages.GetSinglePrompt()
}

func (c InferenceContext) ToString() string {
	return c.Messages.ToString()
}

// message framing overhead used by the chat completion token count
// heuristic (role + separators per message)
const tokensPerMessage = 4

// TokenCount estimates the number of tokens the context occupies, using
// the cl100k encoding. Used for budget display before a send, not for
// hard enforcement.
func (c InferenceContext) TokenCount() (int, error) {
	enc, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		return 0, errors.Wrap(err, "could not load tokenizer")
	}

	count := 0
	for _, m := range c.Messages {
		ids, _, err := enc.Encode(m.Text)
		if err != nil {
			return 0, errors.Wrapf(err, "could not encode message %s", m.ID)
		}
		count += len(ids) + tokensPerMessage
	}

	return count, nil
}
