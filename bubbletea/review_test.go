package bubbletea_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/exp/teatest"
	"github.com/muesli/termenv"
	"github.com/nibzard/isitclear"
	"github.com/nibzard/isitclear/bubbletea"
	themes "github.com/nibzard/isitclear/lipgloss"
	"github.com/nibzard/isitclear/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func plainRenderer() *lipgloss.Renderer {
	r := lipgloss.NewRenderer(io.Discard)
	r.SetColorProfile(termenv.Ascii)
	return r
}

func testView(t *testing.T) isitclear.ImprovementResultView {
	t.Helper()

	original := "So I was at this place today and it was really good."
	change, err := isitclear.NewChangeRecord(isitclear.ChangeConciseness, "really good", "excellent",
		"Replaced a vague intensifier", 40, 51)
	require.NoError(t, err)
	result, err := isitclear.NewImprovementResult(original,
		"I visited a place today and it was excellent.",
		isitclear.BackendRewrite, 0.85, []isitclear.ChangeRecord{change},
		120*time.Millisecond, nil, time.Unix(0, 0))
	require.NoError(t, err)
	return result.View()
}

func newTestModel(t *testing.T, showDetails bool, opts ...bubbletea.ReviewModelOption) bubbletea.ReviewModel {
	t.Helper()

	opts = append([]bubbletea.ReviewModelOption{
		bubbletea.WithRenderer(plainRenderer()),
		bubbletea.WithTheme(themes.DarkTheme()),
	}, opts...)
	m := bubbletea.NewReviewModel(testView(t), showDetails, opts...)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return updated.(bubbletea.ReviewModel)
}

func press(t *testing.T, m bubbletea.ReviewModel, msg tea.KeyMsg) (bubbletea.ReviewModel, tea.Cmd) {
	t.Helper()

	updated, cmd := m.Update(msg)
	rm, ok := updated.(bubbletea.ReviewModel)
	require.True(t, ok)
	return rm, cmd
}

func TestReviewModel_Init(t *testing.T) {
	t.Parallel()

	m := bubbletea.NewReviewModel(testView(t), true)

	assert.Nil(t, m.Init())
}

func TestReviewModel_ViewBeforeReady(t *testing.T) {
	t.Parallel()

	m := bubbletea.NewReviewModel(testView(t), true)

	assert.Contains(t, m.View(), "Loading")
}

func TestReviewModel_ViewShowsBothTextsAndChanges(t *testing.T) {
	t.Parallel()

	m := newTestModel(t, true)
	view := m.View()

	assert.Contains(t, view, "ORIGINAL")
	assert.Contains(t, view, "So I was at this place today")
	assert.Contains(t, view, "IMPROVED")
	assert.Contains(t, view, "I visited a place today")
	assert.Contains(t, view, "CHANGES (1)")
	assert.Contains(t, view, "conciseness")
	assert.Contains(t, view, "Replaced a vague intensifier")
	assert.Contains(t, view, "85% confidence")
	assert.Contains(t, view, "rewrite")
}

func TestReviewModel_ToggleDetails(t *testing.T) {
	t.Parallel()

	m := newTestModel(t, false)
	assert.NotContains(t, m.View(), "CHANGES")
	assert.Contains(t, m.View(), "1 change(s) hidden")

	m, cmd := press(t, m, runes("d"))

	assert.Nil(t, cmd)
	assert.True(t, m.ShowDetails())
	assert.Contains(t, m.View(), "CHANGES (1)")
}

func TestReviewModel_Decisions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		msg     tea.KeyMsg
		action  isitclear.UserAction
		decided bool
	}{
		{name: "accept", msg: runes("a"), action: isitclear.ActionAccept, decided: true},
		{name: "enter accepts", msg: tea.KeyMsg{Type: tea.KeyEnter}, action: isitclear.ActionAccept, decided: true},
		{name: "reject", msg: runes("r"), action: isitclear.ActionReject, decided: true},
		{name: "esc rejects", msg: tea.KeyMsg{Type: tea.KeyEsc}, action: isitclear.ActionReject, decided: true},
		{name: "quit counts as reject", msg: runes("q"), action: isitclear.ActionReject, decided: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m, cmd := press(t, newTestModel(t, true), tt.msg)

			require.NotNil(t, cmd)
			assert.IsType(t, tea.QuitMsg{}, cmd())
			assert.Equal(t, tt.action, m.Action())
			assert.Equal(t, tt.decided, m.Decided())
		})
	}
}

func TestReviewModel_CopyImprovedText(t *testing.T) {
	t.Parallel()

	var copied string
	cb := &mock.Clipboard{CopyFn: func(content string) error {
		copied = content
		return nil
	}}
	m := newTestModel(t, true, bubbletea.WithClipboard(cb))

	m, _ = press(t, m, runes("y"))

	assert.Equal(t, "I visited a place today and it was excellent.", copied)
	assert.Contains(t, m.View(), "Copied improved text")
	assert.False(t, m.Decided())
}

func TestReviewModel_CopyFailureShowsStatus(t *testing.T) {
	t.Parallel()

	cb := &mock.Clipboard{CopyFn: func(string) error { return errors.New("no display") }}
	m := newTestModel(t, true, bubbletea.WithClipboard(cb))

	m, _ = press(t, m, runes("y"))

	assert.Contains(t, m.View(), "Copy failed: no display")
}

func TestReviewModel_CopyWithoutClipboard(t *testing.T) {
	t.Parallel()

	m, _ := press(t, newTestModel(t, true), runes("y"))

	assert.Contains(t, m.View(), "Clipboard unavailable")
}

func TestReviewModel_HelpToggle(t *testing.T) {
	t.Parallel()

	m := newTestModel(t, true)
	assert.NotContains(t, m.View(), "go to bottom")

	m, _ = press(t, m, runes("?"))

	assert.Contains(t, m.View(), "go to bottom")
}

func TestReviewModel_ExpandsTabs(t *testing.T) {
	t.Parallel()

	result, err := isitclear.NewImprovementResult("a\tb", "a b",
		isitclear.BackendPrompt, 0.5, []isitclear.ChangeRecord{mustChange(t)},
		time.Millisecond, nil, time.Unix(0, 0))
	require.NoError(t, err)
	m := bubbletea.NewReviewModel(result.View(), false, bubbletea.WithRenderer(plainRenderer()))
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 20})

	view := updated.View()

	assert.NotContains(t, view, "\t")
}

func mustChange(t *testing.T) isitclear.ChangeRecord {
	t.Helper()
	c, err := isitclear.NewChangeRecord(isitclear.ChangeClarity, "a\tb", "a b", "Normalized spacing", 0, 3)
	require.NoError(t, err)
	return c
}

func TestReviewModel_Teatest_AcceptEndsProgram(t *testing.T) {
	t.Parallel()

	m := bubbletea.NewReviewModel(testView(t), true, bubbletea.WithRenderer(plainRenderer()))
	tm := teatest.NewTestModel(t, m, teatest.WithInitialTermSize(100, 40))

	teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
		return bytes.Contains(out, []byte("IMPROVED"))
	})
	tm.Send(runes("a"))
	tm.WaitFinished(t, teatest.WithFinalTimeout(time.Second))

	final, ok := tm.FinalModel(t).(bubbletea.ReviewModel)
	require.True(t, ok)
	assert.Equal(t, isitclear.ActionAccept, final.Action())
}

func TestReviewer_Present(t *testing.T) {
	t.Parallel()

	in := bytes.NewBufferString("r")
	var out bytes.Buffer
	r := bubbletea.NewReviewer(
		bubbletea.WithIO(in, &out),
		bubbletea.WithModelOptions(bubbletea.WithRenderer(plainRenderer())),
	)

	action, err := r.Present(context.Background(), testView(t), true)

	require.NoError(t, err)
	assert.Equal(t, isitclear.ActionReject, action)
}

func TestReviewer_Present_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pr, pw := io.Pipe()
	t.Cleanup(func() { _ = pw.Close() })
	r := bubbletea.NewReviewer(bubbletea.WithIO(pr, io.Discard))

	_, err := r.Present(ctx, testView(t), true)

	require.Error(t, err)
}
