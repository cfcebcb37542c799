package viz

import "github.com/charmbracelet/lipgloss"

// Theme is the colour scheme of the live view. Primary tints the cloth.
type Theme struct {
	Name      string
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Accent    lipgloss.Color
	Muted     lipgloss.Color
	Warning   lipgloss.Color
}

var (
	ThemeStudio = Theme{
		Name:      "studio",
		Primary:   lipgloss.Color("#e8e6e3"),
		Secondary: lipgloss.Color("#00cccc"),
		Accent:    lipgloss.Color("#ff88ff"),
		Muted:     lipgloss.Color("#666688"),
		Warning:   lipgloss.Color("#ffaa00"),
	}

	ThemePhosphor = Theme{
		Name:      "phosphor",
		Primary:   lipgloss.Color("#00ff00"),
		Secondary: lipgloss.Color("#00cc00"),
		Accent:    lipgloss.Color("#88ff88"),
		Muted:     lipgloss.Color("#005500"),
		Warning:   lipgloss.Color("#ffff00"),
	}

	ThemeLinen = Theme{
		Name:      "linen",
		Primary:   lipgloss.Color("#faf0e6"),
		Secondary: lipgloss.Color("#d2b48c"),
		Accent:    lipgloss.Color("#cd853f"),
		Muted:     lipgloss.Color("#8b7d6b"),
		Warning:   lipgloss.Color("#ff6347"),
	}

	ThemeIndigo = Theme{
		Name:      "indigo",
		Primary:   lipgloss.Color("#7b68ee"),
		Secondary: lipgloss.Color("#00a8cc"),
		Accent:    lipgloss.Color("#ffd700"),
		Muted:     lipgloss.Color("#4488aa"),
		Warning:   lipgloss.Color("#ffcc00"),
	}

	CurrentTheme = ThemeStudio

	Themes = []Theme{ThemeStudio, ThemePhosphor, ThemeLinen, ThemeIndigo}
)

// GetTheme returns a theme by name, falling back to studio.
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return ThemeStudio
}

func SetTheme(name string) {
	CurrentTheme = GetTheme(name)
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}
