package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up, Down, Left, Right key.Binding

	Edit    key.Binding
	Add     key.Binding
	Browse  key.Binding
	Camera  key.Binding
	Remove  key.Binding
	Clear   key.Binding
	Catalog key.Binding
	Submit  key.Binding
	Retry   key.Binding
	Results key.Binding
	Theme   key.Binding
	Sidebar key.Binding
	Logout  key.Binding
	Help    key.Binding
	Quit    key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Left:    key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "left")),
		Right:   key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "right")),
		Edit:    key.NewBinding(key.WithKeys("enter", "e"), key.WithHelp("enter", "design #")),
		Add:     key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add paths")),
		Browse:  key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "browse")),
		Camera:  key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "camera")),
		Remove:  key.NewBinding(key.WithKeys("x", "delete"), key.WithHelp("x", "remove")),
		Clear:   key.NewBinding(key.WithKeys("X"), key.WithHelp("X", "clear all")),
		Catalog: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "catalog")),
		Submit:  key.NewBinding(key.WithKeys("u", "ctrl+s"), key.WithHelp("u", "upload")),
		Retry:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "retry")),
		Results: key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "results")),
		Theme:   key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "theme")),
		Sidebar: key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "sidebar")),
		Logout:  key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "log out")),
		Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Add, k.Browse, k.Camera, k.Edit, k.Catalog, k.Submit, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right},
		{k.Add, k.Browse, k.Camera, k.Remove, k.Clear},
		{k.Edit, k.Catalog, k.Submit, k.Retry, k.Results},
		{k.Theme, k.Sidebar, k.Logout, k.Help, k.Quit},
	}
}
