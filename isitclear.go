// Package isitclear provides domain types for clarity rewrites of text
// captured from input fields.
package isitclear

import "context"

// MaxTextLength is the maximum number of characters (runes) accepted for analysis.
const MaxTextLength = 5000

// BackendKind identifies one of the two interchangeable text-generation backends.
type BackendKind string

// Backend kinds.
const (
	BackendRewrite BackendKind = "rewrite" // structured rewriter: text + parameters
	BackendPrompt  BackendKind = "prompt"  // free-form prompt model
)

// Other returns the alternate backend used for fallback.
func (k BackendKind) Other() BackendKind {
	if k == BackendPrompt {
		return BackendRewrite
	}
	return BackendPrompt
}

// Valid reports whether k is a known backend kind.
func (k BackendKind) Valid() bool {
	return k == BackendRewrite || k == BackendPrompt
}

// FieldKind describes the type of input field a text sample came from.
type FieldKind string

// Field kinds.
const (
	FieldInput    FieldKind = "input"
	FieldTextarea FieldKind = "textarea"
	FieldRichEdit FieldKind = "rich-edit"
)

// Valid reports whether k is a known field kind.
func (k FieldKind) Valid() bool {
	switch k {
	case FieldInput, FieldTextarea, FieldRichEdit:
		return true
	}
	return false
}

// Availability reports whether a backend can serve sessions.
type Availability int

// Availability states.
const (
	Unavailable  Availability = iota // backend cannot be used on this host
	Downloadable                     // usable once the model finishes downloading
	Available                        // ready to create sessions
)

// Usable reports whether sessions may be requested.
func (a Availability) Usable() bool {
	return a != Unavailable
}

// String returns the lowercase state name.
func (a Availability) String() string {
	switch a {
	case Available:
		return "available"
	case Downloadable:
		return "downloadable"
	default:
		return "unavailable"
	}
}

// Capabilities describes what a backend session reports about itself.
type Capabilities struct {
	MaxTextLength int      `json:"maxTextLength"`
	Locales       []string `json:"locales"`
}

// BackendInput is the backend-specific request payload built by the orchestrator.
// The rewrite backend consumes Text and Context; the prompt backend consumes Prompt.
type BackendInput struct {
	Text    string
	Context string
	Prompt  string
}

// RawChange is granular diff information as reported by a backend, before validation.
// Start and End are rune offsets into the original text; nil means unknown.
type RawChange struct {
	Type     string `json:"type"`
	Original string `json:"original"`
	Improved string `json:"improved"`
	Reason   string `json:"reason"`
	Start    *int   `json:"start,omitempty"`
	End      *int   `json:"end,omitempty"`
}

// BackendOutput is what a backend returns for one invocation.
type BackendOutput struct {
	Text       string
	Confidence *float64 // nil when the backend does not score its output
	Changes    []RawChange
}

// Session is a live backend session bound to one parameter set.
type Session interface {
	// Invoke runs one rewrite against the session.
	Invoke(ctx context.Context, input BackendInput) (*BackendOutput, error)
	// Release frees backend resources held by the session.
	Release() error
	// Capabilities reports session limits.
	Capabilities() Capabilities
}

// Backend is a text-generation service that hands out sessions.
type Backend interface {
	Kind() BackendKind
	// Availability probes the backend without creating a session.
	Availability(ctx context.Context) (Availability, error)
	// CreateSession creates a session configured with params.
	CreateSession(ctx context.Context, params Parameters) (Session, error)
}

// Field is a text field as seen by an InputSurface.
type Field struct {
	Text           string
	Kind           FieldKind
	Locator        string
	CursorPosition int
	SelectionStart int
	SelectionEnd   int
}

// InputSurface reads and writes text fields.
type InputSurface interface {
	// DetectField returns the field referenced by ref, or a NOT_AN_INPUT_FIELD error.
	DetectField(ref string) (*Field, error)
	// ReplaceText writes text back into the field.
	ReplaceText(ref string, text string, preserveCursor bool) error
}

// PreferenceStore persists user preferences.
type PreferenceStore interface {
	// Load returns stored preferences, or defaults if nothing is stored.
	Load() (*Preferences, error)
	Save(p *Preferences) error
}

// UserAction is the user's decision about a suggested improvement.
type UserAction string

// User actions.
const (
	ActionAccept UserAction = "accept"
	ActionReject UserAction = "reject"
)

// Presenter shows an analysis result and returns the user's decision.
type Presenter interface {
	Present(ctx context.Context, view ImprovementResultView, showDetails bool) (UserAction, error)
}

// Segment represents a portion of text for word-level highlighting.
type Segment struct {
	Text    string // The text content of this segment
	Changed bool   // True if this segment differs between old/new versions
}

// Edit is one localized difference between two texts.
// Offsets are rune offsets, half-open.
type Edit struct {
	OldStart, OldEnd int
	NewStart, NewEnd int
	Old, New         string
}

// WordDiffer computes word-level differences between two strings.
type WordDiffer interface {
	// Diff returns segments for both strings, marking which portions changed.
	Diff(old, new string) (oldSegs, newSegs []Segment)
	// Edits returns the localized replacements turning old into new.
	Edits(old, new string) []Edit
}

// Clipboard provides copy-to-clipboard functionality.
type Clipboard interface {
	Copy(content string) error
}
