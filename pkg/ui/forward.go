package ui

import (
	"github.com/ThreeDotsLabs/watermill/message"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/go-go-golems/arbor/pkg/events"
)

// StreamEventMsg wraps a decoded stream event for the bubbletea update
// loop.
type StreamEventMsg struct {
	Event events.Event
}

// ForwardToProgram returns a watermill handler that decodes stream
// events and feeds them into the program as messages.
func ForwardToProgram(p *tea.Program) func(msg *message.Message) error {
	return func(msg *message.Message) error {
		msg.Ack()

		e, err := events.NewEventFromJson(msg.Payload)
		if err != nil {
			return err
		}

		p.Send(StreamEventMsg{Event: e})
		return nil
	}
}
