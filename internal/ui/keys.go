package ui

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines all keybindings for the application
type KeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Top    key.Binding
	Bottom key.Binding

	NextScreen key.Binding
	PrevScreen key.Binding
	Jump       key.Binding

	Add      key.Binding
	Toggle   key.Binding
	Priority key.Binding
	Delete   key.Binding

	Search     key.Binding
	Refresh    key.Binding
	Help       key.Binding
	ThemeCycle key.Binding

	Quit    key.Binding
	Confirm key.Binding
	Cancel  key.Binding
}

func bind(help, desc string, keys ...string) key.Binding {
	return key.NewBinding(key.WithKeys(keys...), key.WithHelp(help, desc))
}

// DefaultKeyMap returns the default keybindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:     bind("↑/k", "up", "up", "k"),
		Down:   bind("↓/j", "down", "down", "j"),
		Top:    bind("g", "top", "g", "home"),
		Bottom: bind("G", "bottom", "G", "end"),

		NextScreen: bind("→/l", "next view", "right", "l"),
		PrevScreen: bind("←/h", "prev view", "left", "h"),
		Jump:       bind("1-8", "jump to view", "1", "2", "3", "4", "5", "6", "7", "8"),

		Add:      bind("a", "add", "a"),
		Toggle:   bind("tab", "toggle done", "tab"),
		Priority: bind("p", "priority", "p"),
		Delete:   bind("d", "delete", "d"),

		Search:     bind("/", "search", "/"),
		Refresh:    bind("r", "sync", "r"),
		Help:       bind("?", "help", "?"),
		ThemeCycle: bind("C-t", "theme", "ctrl+t"),

		Quit:    bind("q", "quit", "q", "ctrl+c"),
		Confirm: bind("enter", "confirm", "enter"),
		Cancel:  bind("esc", "cancel", "esc"),
	}
}

// ShortHelp returns short help bindings (for status bar)
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Add, k.Toggle, k.Refresh, k.Search, k.Help, k.Quit}
}

// FullHelp returns full help bindings (for help view)
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Top, k.Bottom},
		{k.NextScreen, k.PrevScreen, k.Jump},
		{k.Add, k.Toggle, k.Priority, k.Delete},
		{k.Search, k.Refresh, k.ThemeCycle},
		{k.Help, k.Quit},
	}
}
