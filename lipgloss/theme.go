// Package lipgloss provides the review UI color themes.
package lipgloss

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/nibzard/isitclear"
)

var _ isitclear.Theme = (*Theme)(nil)

// Theme implements isitclear.Theme with Lipgloss-compatible colors.
type Theme struct {
	styles isitclear.Styles
}

func (t *Theme) Styles() isitclear.Styles {
	return t.styles
}

// DefaultTheme picks the dark or light theme from the terminal background.
func DefaultTheme() *Theme {
	if lipgloss.HasDarkBackground() {
		return DarkTheme()
	}
	return LightTheme()
}

// DarkTheme uses the Catppuccin Mocha palette.
func DarkTheme() *Theme {
	return &Theme{
		styles: isitclear.Styles{
			Title: isitclear.ColorPair{
				Foreground: "#89b4fa",
			},
			Text: isitclear.ColorPair{
				Foreground: "#cdd6f4",
			},
			Removed: isitclear.ColorPair{
				Foreground: "#1e1e2e",
				Background: "#f38ba8",
			},
			Added: isitclear.ColorPair{
				Foreground: "#1e1e2e",
				Background: "#a6e3a1",
			},
			Muted: isitclear.ColorPair{
				Foreground: "#6c7086",
			},
			Good: isitclear.ColorPair{
				Foreground: "#a6e3a1",
			},
			Medium: isitclear.ColorPair{
				Foreground: "#f9e2af",
			},
			Poor: isitclear.ColorPair{
				Foreground: "#f38ba8",
			},
			Border: isitclear.ColorPair{
				Foreground: "#45475a",
			},
			ChangeTag: isitclear.ColorPair{
				Foreground: "#cba6f7",
				Background: "#313244",
			},
		},
	}
}

// LightTheme uses the Catppuccin Latte palette.
func LightTheme() *Theme {
	return &Theme{
		styles: isitclear.Styles{
			Title: isitclear.ColorPair{
				Foreground: "#1e66f5",
			},
			Text: isitclear.ColorPair{
				Foreground: "#4c4f69",
			},
			Removed: isitclear.ColorPair{
				Foreground: "#eff1f5",
				Background: "#d20f39",
			},
			Added: isitclear.ColorPair{
				Foreground: "#eff1f5",
				Background: "#40a02b",
			},
			Muted: isitclear.ColorPair{
				Foreground: "#9ca0b0",
			},
			Good: isitclear.ColorPair{
				Foreground: "#40a02b",
			},
			Medium: isitclear.ColorPair{
				Foreground: "#df8e1d",
			},
			Poor: isitclear.ColorPair{
				Foreground: "#d20f39",
			},
			Border: isitclear.ColorPair{
				Foreground: "#bcc0cc",
			},
			ChangeTag: isitclear.ColorPair{
				Foreground: "#8839ef",
				Background: "#e6e9ef",
			},
		},
	}
}

