package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	send     key.Binding
	focus    key.Binding
	scrollUp key.Binding
	scrollDn key.Binding
	reset    key.Binding
	quit     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		send:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
		focus:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "chat/cart")),
		scrollUp: key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "scroll up")),
		scrollDn: key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "scroll down")),
		reset:    key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "new conversation")),
		quit:     key.NewBinding(key.WithKeys("ctrl+c", "esc"), key.WithHelp("esc", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.send, k.focus, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.send, k.focus},
		{k.scrollUp, k.scrollDn},
		{k.reset, k.quit},
	}
}
