package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Left    key.Binding
	Right   key.Binding
	Start   key.Binding
	Next    key.Binding
	Prev    key.Binding
	Restart key.Binding
	Mute    key.Binding
	Theme   key.Binding
	Help    key.Binding
	Quit    key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Left:    key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "left tile")),
		Right:   key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "right tile")),
		Start:   key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "start")),
		Next:    key.NewBinding(key.WithKeys("n", "pgdown"), key.WithHelp("n", "next step")),
		Prev:    key.NewBinding(key.WithKeys("p", "pgup"), key.WithHelp("p", "previous step")),
		Restart: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "restart")),
		Mute:    key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "mute")),
		Theme:   key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "theme")),
		Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Left, k.Right, k.Next, k.Prev, k.Restart, k.Mute, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Left, k.Right, k.Start},
		{k.Next, k.Prev, k.Restart},
		{k.Mute, k.Theme, k.Help, k.Quit},
	}
}
