package keys

import "github.com/charmbracelet/bubbles/key"

// ConnectKeys adds trial navigation and re-search to the common keys
type ConnectKeys struct {
	CommonKeys
	Reset      key.Binding
	Up         key.Binding
	Down       key.Binding
	GotoTop    key.Binding
	GotoBottom key.Binding
}

func NewConnectKeys() ConnectKeys {
	return ConnectKeys{
		CommonKeys: NewCommonKeys(),
		Reset: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "search again"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		GotoTop: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "goto top"),
		),
		GotoBottom: key.NewBinding(
			key.WithKeys("G"),
			key.WithHelp("G", "goto bottom"),
		),
	}
}

func (k ConnectKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Reset, k.Quit}
}

func (k ConnectKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.GotoTop, k.GotoBottom},
		{k.Reset, k.Help, k.Quit},
	}
}
