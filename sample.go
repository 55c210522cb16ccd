package isitclear

import (
	"sync"
	"time"
)

// ValidateText checks the length limits applied before any backend call.
func ValidateText(text string) error {
	if text == "" {
		return NewEmptyText()
	}
	if n := runeLen(text); n > MaxTextLength {
		return NewTextTooLong(n)
	}
	return nil
}

// SampleState is a TextSample lifecycle state.
type SampleState int

// Sample states.
const (
	StateCreated SampleState = iota
	StateAnalyzing
	StateAnalyzed
	StateAccepted
	StateRejected
)

// String returns the lifecycle name used in errors and logs.
func (s SampleState) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateAnalyzing:
		return "analyzing"
	case StateAnalyzed:
		return "analyzed"
	case StateAccepted:
		return "accepted"
	case StateRejected:
		return "rejected"
	}
	return "unknown"
}

// Terminal reports whether no further transitions are possible.
func (s SampleState) Terminal() bool {
	return s == StateAccepted || s == StateRejected
}

var sampleTransitions = map[SampleState][]SampleState{
	StateCreated:   {StateAnalyzing},
	StateAnalyzing: {StateAnalyzed},
	StateAnalyzed:  {StateAccepted, StateRejected},
}

// TextSample is text captured from a field together with its analysis lifecycle.
type TextSample struct {
	originalText string
	fieldKind    FieldKind
	fieldLocator string
	capturedAt   time.Time

	mu     sync.Mutex
	state  SampleState
	result *ImprovementResult
}

// NewTextSample validates text and kind and returns a sample in StateCreated.
func NewTextSample(text string, kind FieldKind, locator string) (*TextSample, error) {
	if err := ValidateText(text); err != nil {
		return nil, err
	}
	if !kind.Valid() {
		return nil, Errorf(CodeNotAnInputField, "unsupported field kind %q", kind)
	}
	return &TextSample{
		originalText: text,
		fieldKind:    kind,
		fieldLocator: locator,
		capturedAt:   time.Now(),
		state:        StateCreated,
	}, nil
}

// Captured field data. These never change after NewTextSample.
func (s *TextSample) OriginalText() string  { return s.originalText }
func (s *TextSample) FieldKind() FieldKind  { return s.fieldKind }
func (s *TextSample) FieldLocator() string  { return s.fieldLocator }
func (s *TextSample) CapturedAt() time.Time { return s.capturedAt }

// WordCount is always derived from the original text.
func (s *TextSample) WordCount() int {
	return CountWords(s.originalText)
}

// State returns the current lifecycle state.
func (s *TextSample) State() SampleState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Result returns the attached result, nil before StateAnalyzed.
func (s *TextSample) Result() *ImprovementResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// BeginAnalysis moves created -> analyzing.
func (s *TextSample) BeginAnalysis() error {
	return s.transition(StateAnalyzing, nil)
}

// CompleteAnalysis moves analyzing -> analyzed and attaches result.
func (s *TextSample) CompleteAnalysis(result *ImprovementResult) error {
	if result == nil {
		return Errorf(CodeInvalidResult, "nil result")
	}
	return s.transition(StateAnalyzed, result)
}

// Accept moves analyzed -> accepted.
func (s *TextSample) Accept() error {
	return s.transition(StateAccepted, nil)
}

// Reject moves analyzed -> rejected.
func (s *TextSample) Reject() error {
	return s.transition(StateRejected, nil)
}

func (s *TextSample) transition(to SampleState, result *ImprovementResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, allowed := range sampleTransitions[s.state] {
		if allowed == to {
			s.state = to
			if result != nil {
				s.result = result
			}
			return nil
		}
	}
	return NewInvalidStateTransition(s.state, to)
}
