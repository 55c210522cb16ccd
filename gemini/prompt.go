package gemini

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"github.com/nibzard/isitclear"
	"go.uber.org/zap"
)

// Compile-time interface verification.
var (
	_ isitclear.Backend = (*PromptBackend)(nil)
	_ isitclear.Session = (*promptSession)(nil)
)

// PromptBackend is the free-form prompt backend. It sends a caller-built
// instruction and treats the model's plain-text reply as the rewrite.
type PromptBackend struct {
	client GenerativeClient
	opts   options
}

// NewPromptBackend creates a PromptBackend.
func NewPromptBackend(client GenerativeClient, opts ...Option) *PromptBackend {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &PromptBackend{client: client, opts: o}
}

// Kind implements isitclear.Backend.
func (b *PromptBackend) Kind() isitclear.BackendKind {
	return isitclear.BackendPrompt
}

// Availability implements isitclear.Backend.
func (b *PromptBackend) Availability(ctx context.Context) (isitclear.Availability, error) {
	return probe(ctx, b.client, b.opts.model)
}

// CreateSession implements isitclear.Backend.
func (b *PromptBackend) CreateSession(ctx context.Context, params isitclear.Parameters) (isitclear.Session, error) {
	return &promptSession{
		client: b.client,
		opts:   b.opts,
		config: BuildPromptConfig(),
	}, nil
}

type promptSession struct {
	client   GenerativeClient
	opts     options
	config   *GenerateContentConfig
	released atomic.Bool
}

func (s *promptSession) Invoke(ctx context.Context, input isitclear.BackendInput) (*isitclear.BackendOutput, error) {
	if s.released.Load() {
		return nil, ErrSessionReleased
	}
	prompt := input.Prompt
	if prompt == "" {
		return nil, fmt.Errorf("gemini: prompt: empty prompt")
	}
	ctx, cancel := withTimeout(ctx, s.opts.timeout)
	defer cancel()

	contents := []*Content{{
		Parts: []*Part{{Text: prompt}},
	}}

	resp, err := s.client.GenerateContent(ctx, s.opts.model, contents, s.config)
	if err != nil {
		return nil, fmt.Errorf("gemini: prompt: %w", err)
	}
	if resp == nil {
		return nil, fmt.Errorf("gemini: prompt: returned nil response")
	}

	text := CleanReply(resp.Text)
	if text == "" {
		return nil, fmt.Errorf("gemini: prompt: empty reply")
	}

	changes := s.deriveChanges(input.Text, text)
	s.opts.logger.Debug("prompt completed",
		zap.String("model", s.opts.model),
		zap.Int("changes", len(changes)))

	return &isitclear.BackendOutput{Text: text, Changes: changes}, nil
}

// deriveChanges turns a word diff of original against improved into raw
// change annotations with offsets.
func (s *promptSession) deriveChanges(original, improved string) []isitclear.RawChange {
	if s.opts.differ == nil || original == "" {
		return nil
	}
	edits := s.opts.differ.Edits(original, improved)
	changes := make([]isitclear.RawChange, 0, len(edits))
	for _, e := range edits {
		start, end := e.OldStart, e.OldEnd
		changes = append(changes, isitclear.RawChange{
			Type:     string(classifyEdit(e)),
			Original: e.Old,
			Improved: e.New,
			Reason:   fmt.Sprintf("Replaced %q with %q", e.Old, e.New),
			Start:    &start,
			End:      &end,
		})
	}
	return changes
}

// classifyEdit picks a change kind from the shape of an edit.
func classifyEdit(e isitclear.Edit) isitclear.ChangeKind {
	oldWords, newWords := isitclear.CountWords(e.Old), isitclear.CountWords(e.New)
	switch {
	case oldWords == 1 && newWords == 1:
		return isitclear.ChangeWordChoice
	case utf8.RuneCountInString(e.New) < utf8.RuneCountInString(e.Old):
		return isitclear.ChangeConciseness
	case strings.ContainsAny(e.Old+e.New, ".;:!?"):
		return isitclear.ChangeSentenceStructure
	}
	return isitclear.ChangeClarity
}

func (s *promptSession) Release() error {
	if !s.released.CompareAndSwap(false, true) {
		return ErrSessionReleased
	}
	return nil
}

func (s *promptSession) Capabilities() isitclear.Capabilities {
	return capabilities()
}

// CleanReply strips whitespace, code fences and wrapping quotes that prompt
// models commonly add around a rewrite.
func CleanReply(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if i := strings.IndexByte(s, '\n'); i >= 0 {
			s = s[i+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	for _, q := range [][2]string{{`"`, `"`}, {"“", "”"}} {
		if len(s) > len(q[0])+len(q[1]) && strings.HasPrefix(s, q[0]) && strings.HasSuffix(s, q[1]) {
			return strings.TrimSpace(s[len(q[0]) : len(s)-len(q[1])])
		}
	}
	return s
}

// BuildPromptConfig returns the GenerateContentConfig for prompt sessions.
func BuildPromptConfig() *GenerateContentConfig {
	temp := float32(0.4)
	return &GenerateContentConfig{
		SystemInstruction: &Content{
			Parts: []*Part{{
				Text: `You are a writing assistant that improves the clarity of short texts.

Reply with the improved text only. Do not add explanations, quotes or markdown.`,
			}},
		},
		Temperature:      &temp,
		ResponseMIMEType: "text/plain",
	}
}
