package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the monitor.
type keyMap struct {
	up      key.Binding
	down    key.Binding
	tab     key.Binding
	refresh key.Binding
	nixOn   key.Binding
	nixOff  key.Binding
	clear   key.Binding
	quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		tab:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch view")),
		refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh queue")),
		nixOn:   key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "start nix")),
		nixOff:  key.NewBinding(key.WithKeys("N"), key.WithHelp("N", "stop nix")),
		clear:   key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear log")),
		quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.tab, k.refresh, k.nixOn, k.nixOff, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.tab},
		{k.refresh, k.nixOn, k.nixOff},
		{k.clear, k.quit},
	}
}
