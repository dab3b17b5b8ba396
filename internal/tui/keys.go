package tui

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines the key bindings for the TUI.
type KeyMap struct {
	// Navigation
	Up   key.Binding
	Down key.Binding

	// Producers
	AddSuccess key.Binding
	AddError   key.Binding
	AddWarning key.Binding
	AddInfo    key.Binding
	AddAction  key.Binding

	// Actions
	Invoke   key.Binding
	Close    key.Binding
	Remove   key.Binding
	CloseAll key.Binding
	Copy     key.Binding

	// Global
	Quit key.Binding
	Help key.Binding
}

// ShortHelp returns a short help message.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit}
}

// FullHelp returns a full help message.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down},
		{k.AddSuccess, k.AddError, k.AddWarning, k.AddInfo, k.AddAction},
		{k.Invoke, k.Close, k.Remove, k.CloseAll, k.Copy},
		{k.Help, k.Quit},
	}
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		AddSuccess: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "success"),
		),
		AddError: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "error"),
		),
		AddWarning: key.NewBinding(
			key.WithKeys("w"),
			key.WithHelp("w", "warning"),
		),
		AddInfo: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "info"),
		),
		AddAction: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "with action"),
		),
		Invoke: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "invoke action"),
		),
		Close: key.NewBinding(
			key.WithKeys("x", "d"),
			key.WithHelp("x/d", "close"),
		),
		Remove: key.NewBinding(
			key.WithKeys("D"),
			key.WithHelp("D", "remove now"),
		),
		CloseAll: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "close all"),
		),
		Copy: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "copy message"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
	}
}
