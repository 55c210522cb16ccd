package bubbletea_test

import (
	"testing"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/nibzard/isitclear/bubbletea"
	"github.com/stretchr/testify/assert"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestDefaultKeyMap_HasExpectedBindings(t *testing.T) {
	t.Parallel()

	km := bubbletea.DefaultKeyMap()

	tests := []struct {
		name    string
		msg     tea.KeyMsg
		binding key.Binding
	}{
		{name: "a accepts", msg: runes("a"), binding: km.Accept},
		{name: "enter accepts", msg: tea.KeyMsg{Type: tea.KeyEnter}, binding: km.Accept},
		{name: "r rejects", msg: runes("r"), binding: km.Reject},
		{name: "esc rejects", msg: tea.KeyMsg{Type: tea.KeyEsc}, binding: km.Reject},
		{name: "k scrolls up", msg: runes("k"), binding: km.Up},
		{name: "arrow up scrolls up", msg: tea.KeyMsg{Type: tea.KeyUp}, binding: km.Up},
		{name: "j scrolls down", msg: runes("j"), binding: km.Down},
		{name: "ctrl+u", msg: tea.KeyMsg{Type: tea.KeyCtrlU}, binding: km.HalfPageUp},
		{name: "ctrl+d", msg: tea.KeyMsg{Type: tea.KeyCtrlD}, binding: km.HalfPageDown},
		{name: "g goes to top", msg: runes("g"), binding: km.GotoTop},
		{name: "G goes to bottom", msg: runes("G"), binding: km.GotoBottom},
		{name: "d toggles details", msg: runes("d"), binding: km.ToggleDetails},
		{name: "y copies", msg: runes("y"), binding: km.Copy},
		{name: "q quits", msg: runes("q"), binding: km.Quit},
		{name: "ctrl+c quits", msg: tea.KeyMsg{Type: tea.KeyCtrlC}, binding: km.Quit},
		{name: "? shows help", msg: runes("?"), binding: km.Help},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.True(t, key.Matches(tt.msg, tt.binding))
		})
	}
}

func TestDefaultKeyMap_AcceptAndRejectDoNotOverlap(t *testing.T) {
	t.Parallel()

	km := bubbletea.DefaultKeyMap()

	assert.False(t, key.Matches(runes("a"), km.Reject))
	assert.False(t, key.Matches(runes("r"), km.Accept))
	assert.Len(t, km.FullHelp(), 3)
	assert.NotEmpty(t, km.ShortHelp())
}
