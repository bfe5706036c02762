package ui

import (
	"sort"

	"github.com/charmbracelet/lipgloss"
)

type palette struct {
	Text    lipgloss.Color
	Muted   lipgloss.Color
	Accent  lipgloss.Color
	Border  lipgloss.Color
	Glass   lipgloss.Color
	Current lipgloss.Color
	Safe    lipgloss.Color
	Broken  lipgloss.Color
	Warning lipgloss.Color
}

var palettes = map[string]palette{
	"catppuccin": {
		Text:    lipgloss.Color("#cdd6f4"),
		Muted:   lipgloss.Color("#a6adc8"),
		Accent:  lipgloss.Color("#cba6f7"),
		Border:  lipgloss.Color("#585b70"),
		Glass:   lipgloss.Color("#89dceb"),
		Current: lipgloss.Color("#f9e2af"),
		Safe:    lipgloss.Color("#a6e3a1"),
		Broken:  lipgloss.Color("#f38ba8"),
		Warning: lipgloss.Color("#fab387"),
	},
	"dracula": {
		Text:    lipgloss.Color("#f8f8f2"),
		Muted:   lipgloss.Color("#6272a4"),
		Accent:  lipgloss.Color("#ff79c6"),
		Border:  lipgloss.Color("#44475a"),
		Glass:   lipgloss.Color("#8be9fd"),
		Current: lipgloss.Color("#f1fa8c"),
		Safe:    lipgloss.Color("#50fa7b"),
		Broken:  lipgloss.Color("#ff5555"),
		Warning: lipgloss.Color("#ffb86c"),
	},
	"gruvbox": {
		Text:    lipgloss.Color("#ebdbb2"),
		Muted:   lipgloss.Color("#a89984"),
		Accent:  lipgloss.Color("#fabd2f"),
		Border:  lipgloss.Color("#665c54"),
		Glass:   lipgloss.Color("#83a598"),
		Current: lipgloss.Color("#fabd2f"),
		Safe:    lipgloss.Color("#b8bb26"),
		Broken:  lipgloss.Color("#fb4934"),
		Warning: lipgloss.Color("#fe8019"),
	},
	"solarized_dark": {
		Text:    lipgloss.Color("#fdf6e3"),
		Muted:   lipgloss.Color("#93a1a1"),
		Accent:  lipgloss.Color("#b58900"),
		Border:  lipgloss.Color("#586e75"),
		Glass:   lipgloss.Color("#2aa198"),
		Current: lipgloss.Color("#b58900"),
		Safe:    lipgloss.Color("#859900"),
		Broken:  lipgloss.Color("#dc322f"),
		Warning: lipgloss.Color("#cb4b16"),
	},
}

const defaultTheme = "catppuccin"

func paletteFor(name string) palette {
	if p, ok := palettes[name]; ok {
		return p
	}
	return palettes[defaultTheme]
}

func themeNames() []string {
	names := make([]string, 0, len(palettes))
	for k := range palettes {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func nextThemeName(current string, step int) string {
	names := themeNames()
	if len(names) == 0 {
		return current
	}
	idx := 0
	for i, name := range names {
		if name == current {
			idx = i
			break
		}
	}
	idx = (idx + step) % len(names)
	if idx < 0 {
		idx += len(names)
	}
	return names[idx]
}

type styles struct {
	title   lipgloss.Style
	muted   lipgloss.Style
	warning lipgloss.Style
	banner  lipgloss.Style
	tiles   map[string]lipgloss.Style
}

func newStyles(p palette) styles {
	return styles{
		title:   lipgloss.NewStyle().Bold(true).Foreground(p.Accent),
		muted:   lipgloss.NewStyle().Foreground(p.Muted),
		warning: lipgloss.NewStyle().Foreground(p.Warning),
		banner: lipgloss.NewStyle().Bold(true).Padding(0, 2).
			Border(lipgloss.DoubleBorder()).BorderForeground(p.Border),
		tiles: map[string]lipgloss.Style{
			"unselected": lipgloss.NewStyle().Foreground(p.Glass),
			"current":    lipgloss.NewStyle().Bold(true).Foreground(p.Current),
			"correct":    lipgloss.NewStyle().Foreground(p.Safe),
			"wrong":      lipgloss.NewStyle().Foreground(p.Broken),
		},
	}
}
