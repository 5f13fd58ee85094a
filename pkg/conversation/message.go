package conversation

import (
	"fmt"
	"strings"
	"time"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleAssistant Role = "assistant"
	RoleUser      Role = "user"
)

// Message is a single utterance inside a node. Text is append-only:
// while a response is streaming the most recent assistant message
// accumulates deltas, it is never truncated or replaced.
type Message struct {
	ID         MessageID `json:"id"`
	Role       Role      `json:"role"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"createdAt"`
	LastUpdate time.Time `json:"lastUpdate"`
}

type MessageOption func(*Message)

func WithMessageID(id MessageID) MessageOption {
	return func(m *Message) {
		m.ID = id
	}
}

func WithCreatedAt(t time.Time) MessageOption {
	return func(m *Message) {
		m.CreatedAt = t
		m.LastUpdate = t
	}
}

func NewMessage(role Role, text string, options ...MessageOption) *Message {
	ret := &Message{
		ID:         NewMessageID(),
		Role:       role,
		Text:       text,
		CreatedAt:  time.Now(),
		LastUpdate: time.Now(),
	}

	for _, option := range options {
		option(ret)
	}

	return ret
}

// AppendText accumulates a streaming delta. Callers must hold whatever
// lock guards the owning tree; concurrent readers work from clones.
func (m *Message) AppendText(delta string) {
	m.Text += delta
	m.LastUpdate = time.Now()
}

// Clone returns an independent copy of the message.
func (m *Message) Clone() *Message {
	ret := *m
	return &ret
}

func (m *Message) View() string {
	return fmt.Sprintf("[%s]: %s", m.Role, strings.TrimRight(m.Text, "\n"))
}

type Conversation []*Message

// GetSinglePrompt concatenates all the messages together with a role prefix
// in front of each (unless there is only a single one).
func (messages Conversation) GetSinglePrompt() string {
	if len(messages) == 0 {
		return ""
	}

	if len(messages) == 1 {
		return messages[0].Text
	}

	prompt := ""
	for _, message := range messages {
		prompt += fmt.Sprintf("[%s]: %s\n", message.Role, message.Text)
	}

	return prompt
}

func (messages Conversation) ToString() string {
	sb := strings.Builder{}
	for _, message := range messages {
		sb.WriteString(message.View())
		sb.WriteString("\n")
	}
	return sb.String()
}
