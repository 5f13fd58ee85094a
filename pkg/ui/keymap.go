package ui

import (
	"github.com/charmbracelet/bubbles/key"
)

type KeyMap struct {
	NextNode       key.Binding
	PrevNode       key.Binding
	SubmitMessage  key.Binding
	Branch         key.Binding
	CloseNode      key.Binding
	ToggleCollapse key.Binding
	ZoomIn         key.Binding
	ZoomOut        key.Binding
	PanLeft        key.Binding
	PanRight       key.Binding
	PanUp          key.Binding
	PanDown        key.Binding
	FocusSelected  key.Binding
	Quit           key.Binding
}

var DefaultKeyMap = KeyMap{
	NextNode:       key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next node")),
	PrevNode:       key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "previous node")),
	SubmitMessage:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
	Branch:         key.NewBinding(key.WithKeys("ctrl+b"), key.WithHelp("ctrl+b", "branch at last answer")),
	CloseNode:      key.NewBinding(key.WithKeys("ctrl+d"), key.WithHelp("ctrl+d", "close subtree")),
	ToggleCollapse: key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("ctrl+o", "collapse")),
	ZoomIn:         key.NewBinding(key.WithKeys("ctrl+up"), key.WithHelp("ctrl+up", "zoom in")),
	ZoomOut:        key.NewBinding(key.WithKeys("ctrl+down"), key.WithHelp("ctrl+down", "zoom out")),
	PanLeft:        key.NewBinding(key.WithKeys("alt+left"), key.WithHelp("alt+←", "pan")),
	PanRight:       key.NewBinding(key.WithKeys("alt+right"), key.WithHelp("alt+→", "pan")),
	PanUp:          key.NewBinding(key.WithKeys("alt+up"), key.WithHelp("alt+↑", "pan")),
	PanDown:        key.NewBinding(key.WithKeys("alt+down"), key.WithHelp("alt+↓", "pan")),
	FocusSelected:  key.NewBinding(key.WithKeys("ctrl+f"), key.WithHelp("ctrl+f", "center selected")),
	Quit:           key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
}
