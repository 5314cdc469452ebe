package tui

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"photomaker/internal/store"
)

// Theme/palette helpers.
//
// Colors are lipgloss.AdaptiveColor pairs; the persisted light/dark preference decides which
// side lipgloss picks, rather than terminal background probing.

func ac(light, dark string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Light: light, Dark: dark}
}

func faintIfDark(st lipgloss.Style) lipgloss.Style {
	if lipgloss.HasDarkBackground() {
		return st.Faint(true)
	}
	return st
}

var (
	colorMuted          lipgloss.TerminalColor = ac("240", "243")
	colorSurfaceFg      lipgloss.TerminalColor = ac("235", "252")
	colorControlBg      lipgloss.TerminalColor = ac("252", "235")
	colorInputBg        lipgloss.TerminalColor = ac("254", "234")
	colorSelectedBg     lipgloss.TerminalColor = ac("#e9e9e9", "#262626")
	colorSelectedFg     lipgloss.TerminalColor = ac("235", "255")
	colorSelectedBorder lipgloss.TerminalColor = ac("232", "255")
	colorCardBorder     lipgloss.TerminalColor = ac("250", "243")
	colorAccent         lipgloss.TerminalColor = ac("#8b1e3f", "#e07a9a") // saree maroon
	colorAccentFg       lipgloss.TerminalColor = ac("255", "235")

	colorInfo    lipgloss.TerminalColor = ac("27", "75")
	colorSuccess lipgloss.TerminalColor = ac("28", "78")
	colorWarning lipgloss.TerminalColor = ac("130", "214")
	colorError   lipgloss.TerminalColor = ac("160", "203")
)

func styleMuted() lipgloss.Style {
	return faintIfDark(lipgloss.NewStyle().Foreground(colorMuted))
}

func styleTitle() lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
}

// applyColorProfilePreference sets Lip Gloss's color profile for the interactive TUI.
//
// termenv.EnvColorProfile respects CLICOLOR/CLICOLOR_FORCE, which can disable colors in a TUI;
// only NO_COLOR is honored here.
func applyColorProfilePreference() {
	if strings.TrimSpace(os.Getenv("NO_COLOR")) != "" {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}

	profile := termenv.ColorProfile()
	term := strings.ToLower(strings.TrimSpace(os.Getenv("TERM")))
	colorterm := strings.ToLower(strings.TrimSpace(os.Getenv("COLORTERM")))
	if strings.Contains(colorterm, "truecolor") || strings.Contains(colorterm, "24bit") {
		if profile != termenv.Ascii {
			profile = termenv.TrueColor
		}
	} else if strings.Contains(term, "256color") && profile != termenv.TrueColor {
		profile = termenv.ANSI256
	}
	lipgloss.SetColorProfile(profile)
}

// applyTheme points adaptive colors at the light or dark palette. Unknown values are light.
func applyTheme(theme string) string {
	if theme != store.ThemeDark {
		theme = store.ThemeLight
	}
	lipgloss.SetHasDarkBackground(theme == store.ThemeDark)
	return theme
}

func otherTheme(theme string) string {
	if theme == store.ThemeDark {
		return store.ThemeLight
	}
	return store.ThemeDark
}
