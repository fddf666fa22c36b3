package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	yes  key.Binding
	no   key.Binding
	quit key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		yes:  key.NewBinding(key.WithKeys("y", "enter"), key.WithHelp("y", "start")),
		no:   key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n", "cancel")),
		quit: key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.yes, k.no},
		{k.quit},
	}
}
