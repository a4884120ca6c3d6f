package viz

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Play       key.Binding
	Step       key.Binding
	Sweep      key.Binding
	Kernel     key.Binding
	Observable key.Binding
	Hotter     key.Binding
	Colder     key.Binding
	Larger     key.Binding
	Smaller    key.Binding
	Random     key.Binding
	Aligned    key.Binding
	Record     key.Binding
	Snapshot   key.Binding
	GIF        key.Binding
	Arrows     key.Binding
	Theme      key.Binding
	Help       key.Binding
	Quit       key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Play, k.Step, k.Sweep, k.Hotter, k.Colder, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Play, k.Step, k.Sweep, k.Record},
		{k.Hotter, k.Colder, k.Larger, k.Smaller},
		{k.Kernel, k.Observable, k.Random, k.Aligned},
		{k.Snapshot, k.GIF, k.Arrows, k.Theme},
		{k.Help, k.Quit},
	}
}

var keys = keyMap{
	Play:       key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "play/pause")),
	Step:       key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "step")),
	Sweep:      key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "sweep")),
	Kernel:     key.NewBinding(key.WithKeys("k"), key.WithHelp("k", "kernel")),
	Observable: key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "observable")),
	Hotter:     key.NewBinding(key.WithKeys("up"), key.WithHelp("↑", "T+0.01")),
	Colder:     key.NewBinding(key.WithKeys("down"), key.WithHelp("↓", "T-0.01")),
	Larger:     key.NewBinding(key.WithKeys("right"), key.WithHelp("→", "larger")),
	Smaller:    key.NewBinding(key.WithKeys("left"), key.WithHelp("←", "smaller")),
	Random:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "random init")),
	Aligned:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "aligned init")),
	Record:     key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "record")),
	Snapshot:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "png")),
	GIF:        key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "gif")),
	Arrows:     key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "arrows")),
	Theme:      key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "theme")),
	Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}
