package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up         key.Binding
	Down       key.Binding
	Next       key.Binding
	Prev       key.Binding
	Select     key.Binding
	Back       key.Binding
	Send       key.Binding
	Newline    key.Binding
	SignOut    key.Binding
	ScrollUp   key.Binding
	ScrollDown key.Binding
	Logs       key.Binding
	Screen     key.Binding
	Quit       key.Binding
}

// viewHelp is the set of bindings shown in the footer for one view.
type viewHelp []key.Binding

func (h viewHelp) ShortHelp() []key.Binding  { return h }
func (h viewHelp) FullHelp() [][]key.Binding { return [][]key.Binding{h} }

func (k keyMap) chatHelp() viewHelp {
	return viewHelp{k.Send, k.Newline, k.ScrollUp, k.ScrollDown, k.SignOut, k.Logs, k.Quit}
}

func (k keyMap) signInHelp() viewHelp {
	return viewHelp{k.Up, k.Down, k.Select, k.Logs, k.Quit}
}

func (k keyMap) guestHelp() viewHelp {
	return viewHelp{k.Next, k.Prev, k.Select, k.Back, k.Quit}
}

func (k keyMap) waitingHelp() viewHelp {
	return viewHelp{k.Back, k.Logs, k.Quit}
}

var defaultKeyMap = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Next: key.NewBinding(
		key.WithKeys("tab", "down"),
		key.WithHelp("tab", "next field"),
	),
	Prev: key.NewBinding(
		key.WithKeys("shift+tab", "up"),
		key.WithHelp("shift+tab", "prev field"),
	),
	Select: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "select"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "back"),
	),
	Send: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "send"),
	),
	Newline: key.NewBinding(
		key.WithKeys("alt+enter", "ctrl+j"),
		key.WithHelp("alt+enter", "newline"),
	),
	SignOut: key.NewBinding(
		key.WithKeys("ctrl+o"),
		key.WithHelp("ctrl+o", "sign out"),
	),
	ScrollUp: key.NewBinding(
		key.WithKeys("pgup"),
		key.WithHelp("pgup", "scroll up"),
	),
	ScrollDown: key.NewBinding(
		key.WithKeys("pgdown"),
		key.WithHelp("pgdown", "scroll down"),
	),
	Logs: key.NewBinding(
		key.WithKeys("ctrl+l"),
		key.WithHelp("ctrl+l", "logs"),
	),
	Screen: key.NewBinding(
		key.WithKeys("ctrl+t"),
		key.WithHelp("ctrl+t", "toggle fullscreen"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("ctrl+c", "quit"),
	),
}
