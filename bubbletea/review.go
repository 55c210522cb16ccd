// Package bubbletea presents rewrite suggestions in a Bubble Tea TUI.
package bubbletea

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/nibzard/isitclear"
	"github.com/nibzard/isitclear/worddiff"
)

// ReviewModel is the Bubble Tea model for reviewing one suggestion.
// The review ends when the user accepts, rejects or quits; quitting
// counts as a rejection.
type ReviewModel struct {
	// Data
	view        isitclear.ImprovementResultView
	showDetails bool

	// UI Components
	viewport viewport.Model
	help     help.Model

	// State
	ready   bool
	action  isitclear.UserAction
	decided bool
	status  string

	// Rendering
	width, height int
	styles        isitclear.Styles
	renderer      *lipgloss.Renderer
	differ        isitclear.WordDiffer

	clipboard isitclear.Clipboard
	keymap    KeyMap
}

// ReviewModelOption configures a ReviewModel.
type ReviewModelOption func(*ReviewModel)

// WithTheme sets the color theme.
func WithTheme(theme isitclear.Theme) ReviewModelOption {
	return func(m *ReviewModel) {
		if theme != nil {
			m.styles = theme.Styles()
		}
	}
}

// WithRenderer sets the lipgloss renderer used for styling.
func WithRenderer(r *lipgloss.Renderer) ReviewModelOption {
	return func(m *ReviewModel) {
		m.renderer = r
	}
}

// WithWordDiffer sets the differ used for word-level highlighting.
func WithWordDiffer(d isitclear.WordDiffer) ReviewModelOption {
	return func(m *ReviewModel) {
		m.differ = d
	}
}

// WithClipboard enables copying the improved text.
func WithClipboard(c isitclear.Clipboard) ReviewModelOption {
	return func(m *ReviewModel) {
		m.clipboard = c
	}
}

// WithKeyMap overrides the default key bindings.
func WithKeyMap(km KeyMap) ReviewModelOption {
	return func(m *ReviewModel) {
		m.keymap = km
	}
}

// NewReviewModel creates a ReviewModel for view.
func NewReviewModel(view isitclear.ImprovementResultView, showDetails bool, opts ...ReviewModelOption) ReviewModel {
	m := ReviewModel{
		view:        view,
		showDetails: showDetails,
		help:        help.New(),
		differ:      worddiff.NewDiffer(),
		keymap:      DefaultKeyMap(),
	}

	for _, opt := range opts {
		opt(&m)
	}

	return m
}

// Action returns the user's decision. An undecided review is a rejection.
func (m ReviewModel) Action() isitclear.UserAction {
	if !m.decided {
		return isitclear.ActionReject
	}
	return m.action
}

// Decided reports whether the user explicitly accepted or rejected.
func (m ReviewModel) Decided() bool {
	return m.decided
}

// ShowDetails reports whether the change list is visible.
func (m ReviewModel) ShowDetails() bool {
	return m.showDetails
}

// Init implements tea.Model.
func (m ReviewModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m ReviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeys(msg)

	case tea.WindowSizeMsg:
		return m.handleWindowSize(msg)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m ReviewModel) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Accept):
		m.action = isitclear.ActionAccept
		m.decided = true
		return m, tea.Quit

	case key.Matches(msg, m.keymap.Reject):
		m.action = isitclear.ActionReject
		m.decided = true
		return m, tea.Quit

	case key.Matches(msg, m.keymap.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keymap.Up):
		m.viewport.ScrollUp(1)
		return m, nil

	case key.Matches(msg, m.keymap.Down):
		m.viewport.ScrollDown(1)
		return m, nil

	case key.Matches(msg, m.keymap.HalfPageUp):
		m.viewport.HalfPageUp()
		return m, nil

	case key.Matches(msg, m.keymap.HalfPageDown):
		m.viewport.HalfPageDown()
		return m, nil

	case key.Matches(msg, m.keymap.GotoTop):
		m.viewport.GotoTop()
		return m, nil

	case key.Matches(msg, m.keymap.GotoBottom):
		m.viewport.GotoBottom()
		return m, nil

	case key.Matches(msg, m.keymap.ToggleDetails):
		m.showDetails = !m.showDetails
		m.updateViewportContent()
		return m, nil

	case key.Matches(msg, m.keymap.Copy):
		m.copyImproved()
		return m, nil

	case key.Matches(msg, m.keymap.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.resizeViewport()
		return m, nil
	}

	return m, nil
}

func (m *ReviewModel) copyImproved() {
	if m.clipboard == nil {
		m.status = "Clipboard unavailable"
		return
	}
	if err := m.clipboard.Copy(m.view.ImprovedText); err != nil {
		m.status = fmt.Sprintf("Copy failed: %v", err)
		return
	}
	m.status = "Copied improved text"
}

func (m ReviewModel) handleWindowSize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.help.Width = msg.Width

	if !m.ready {
		m.viewport = viewport.New(msg.Width, m.viewportHeight())
		m.ready = true
	}
	m.resizeViewport()
	m.updateViewportContent()

	return m, nil
}

// viewportHeight reserves room for the header, status line and help.
func (m ReviewModel) viewportHeight() int {
	footer := lipgloss.Height(m.help.View(m.keymap))
	return max(m.height-3-footer, 2)
}

func (m *ReviewModel) resizeViewport() {
	if !m.ready {
		return
	}
	m.viewport.Width = m.width
	m.viewport.Height = m.viewportHeight()
}

func (m *ReviewModel) updateViewportContent() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(renderReview(renderConfig{
		view:        m.view,
		styles:      m.styles,
		renderer:    m.renderer,
		width:       m.width,
		differ:      m.differ,
		showDetails: m.showDetails,
	}))
}

// View implements tea.Model.
func (m ReviewModel) View() string {
	if !m.ready {
		return "Loading..."
	}

	var s strings.Builder
	s.WriteString(renderHeader(m.view, m.styles, m.renderer))
	s.WriteString("\n\n")
	s.WriteString(m.viewport.View())
	s.WriteString("\n")
	s.WriteString(styleFromColorPair(m.styles.Muted, m.renderer).Render(m.status))
	s.WriteString("\n")
	s.WriteString(m.help.View(m.keymap))
	return s.String()
}

// Compile-time interface verification.
var _ isitclear.Presenter = (*Reviewer)(nil)

// Reviewer implements isitclear.Presenter using a Bubble Tea TUI.
type Reviewer struct {
	modelOpts   []ReviewModelOption
	programOpts []tea.ProgramOption
}

// ReviewerOption configures a Reviewer.
type ReviewerOption func(*Reviewer)

// WithModelOptions passes options to every ReviewModel the reviewer builds.
func WithModelOptions(opts ...ReviewModelOption) ReviewerOption {
	return func(r *Reviewer) {
		r.modelOpts = append(r.modelOpts, opts...)
	}
}

// WithIO runs the program on the given input and output instead of the
// terminal.
func WithIO(in io.Reader, out io.Writer) ReviewerOption {
	return func(r *Reviewer) {
		r.programOpts = append(r.programOpts, tea.WithInput(in), tea.WithOutput(out))
	}
}

// WithAltScreen runs the program in the alternate screen buffer.
func WithAltScreen() ReviewerOption {
	return func(r *Reviewer) {
		r.programOpts = append(r.programOpts, tea.WithAltScreen())
	}
}

// NewReviewer creates a new Reviewer.
func NewReviewer(opts ...ReviewerOption) *Reviewer {
	r := &Reviewer{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Present displays the suggestion and blocks until the user decides.
func (r *Reviewer) Present(ctx context.Context, view isitclear.ImprovementResultView, showDetails bool) (isitclear.UserAction, error) {
	m := NewReviewModel(view, showDetails, r.modelOpts...)
	opts := append([]tea.ProgramOption{tea.WithContext(ctx)}, r.programOpts...)

	final, err := tea.NewProgram(m, opts...).Run()
	if err != nil {
		return "", fmt.Errorf("bubbletea: review: %w", err)
	}
	rm, ok := final.(ReviewModel)
	if !ok {
		return "", fmt.Errorf("bubbletea: review: unexpected model %T", final)
	}
	return rm.Action(), nil
}
