package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/nibzard/isitclear"
	"go.uber.org/zap"
)

// Compile-time interface verification.
var (
	_ isitclear.Backend = (*RewriteBackend)(nil)
	_ isitclear.Session = (*rewriteSession)(nil)
)

// RewriteBackend is the structured rewrite backend. It sends the text and
// its parameters and asks for a JSON rewrite with a confidence score and
// granular changes.
type RewriteBackend struct {
	client GenerativeClient
	opts   options
}

// NewRewriteBackend creates a RewriteBackend.
func NewRewriteBackend(client GenerativeClient, opts ...Option) *RewriteBackend {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &RewriteBackend{client: client, opts: o}
}

// Kind implements isitclear.Backend.
func (b *RewriteBackend) Kind() isitclear.BackendKind {
	return isitclear.BackendRewrite
}

// Availability implements isitclear.Backend.
func (b *RewriteBackend) Availability(ctx context.Context) (isitclear.Availability, error) {
	return probe(ctx, b.client, b.opts.model)
}

// CreateSession implements isitclear.Backend. The generation config is fixed
// for the lifetime of the session.
func (b *RewriteBackend) CreateSession(ctx context.Context, params isitclear.Parameters) (isitclear.Session, error) {
	return &rewriteSession{
		client: b.client,
		opts:   b.opts,
		params: params,
		config: BuildRewriteConfig(params),
	}, nil
}

type rewriteSession struct {
	client   GenerativeClient
	opts     options
	params   isitclear.Parameters
	config   *GenerateContentConfig
	released atomic.Bool
}

// rewriteResponse is the JSON shape requested from the model.
type rewriteResponse struct {
	RewrittenText   string      `json:"rewritten_text"`
	ConfidenceScore *float64    `json:"confidence_score"`
	Changes         []rawChange `json:"changes"`
}

type rawChange struct {
	Type     string `json:"type"`
	Original string `json:"original"`
	Improved string `json:"improved"`
	Reason   string `json:"reason"`
}

func (s *rewriteSession) Invoke(ctx context.Context, input isitclear.BackendInput) (*isitclear.BackendOutput, error) {
	if s.released.Load() {
		return nil, ErrSessionReleased
	}
	ctx, cancel := withTimeout(ctx, s.opts.timeout)
	defer cancel()

	contents := []*Content{{
		Parts: []*Part{{Text: BuildRewritePrompt(input.Text, input.Context, s.params)}},
	}}

	resp, err := s.client.GenerateContent(ctx, s.opts.model, contents, s.config)
	if err != nil {
		return nil, fmt.Errorf("gemini: rewrite: %w", err)
	}
	if resp == nil {
		return nil, fmt.Errorf("gemini: rewrite: returned nil response")
	}

	var out rewriteResponse
	if err := json.Unmarshal([]byte(resp.Text), &out); err != nil {
		return nil, fmt.Errorf("gemini: rewrite: failed to parse response: %w", err)
	}
	if strings.TrimSpace(out.RewrittenText) == "" {
		return nil, fmt.Errorf("gemini: rewrite: empty rewritten_text")
	}

	changes := make([]isitclear.RawChange, 0, len(out.Changes))
	for _, c := range out.Changes {
		changes = append(changes, isitclear.RawChange{
			Type:     c.Type,
			Original: c.Original,
			Improved: c.Improved,
			Reason:   c.Reason,
		})
	}

	s.opts.logger.Debug("rewrite completed",
		zap.String("model", s.opts.model),
		zap.Int("changes", len(changes)))

	return &isitclear.BackendOutput{
		Text:       out.RewrittenText,
		Confidence: out.ConfidenceScore,
		Changes:    changes,
	}, nil
}

func (s *rewriteSession) Release() error {
	if !s.released.CompareAndSwap(false, true) {
		return ErrSessionReleased
	}
	return nil
}

func (s *rewriteSession) Capabilities() isitclear.Capabilities {
	return capabilities()
}

// BuildRewritePrompt creates the user prompt for a structured rewrite.
func BuildRewritePrompt(text, fieldContext string, params isitclear.Parameters) string {
	var sb strings.Builder
	sb.WriteString("Rewrite the text below for clarity.\n\n")
	sb.WriteString("## Parameters\n\n")
	fmt.Fprintf(&sb, "- tone: %s\n", params.Tone)
	fmt.Fprintf(&sb, "- format: %s\n", params.Format)
	fmt.Fprintf(&sb, "- length: %s\n", params.Length)
	if fieldContext != "" {
		sb.WriteString("\n## Context\n\n")
		sb.WriteString(fieldContext)
		sb.WriteString("\n")
	}
	sb.WriteString("\n## Text\n\n")
	sb.WriteString(text)
	sb.WriteString("\n")
	return sb.String()
}

// RewriteSchema is the response schema for structured rewrites.
func RewriteSchema() *Schema {
	return &Schema{
		Type: "OBJECT",
		Properties: map[string]*Schema{
			"rewritten_text": {
				Type:        "STRING",
				Description: "The full rewritten text",
			},
			"confidence_score": {
				Type:        "NUMBER",
				Description: "Confidence between 0 and 1 that the rewrite preserves meaning and improves clarity",
			},
			"changes": {
				Type: "ARRAY",
				Items: &Schema{
					Type: "OBJECT",
					Properties: map[string]*Schema{
						"type": {
							Type: "STRING",
							Enum: []string{
								string(isitclear.ChangeWordChoice),
								string(isitclear.ChangeSentenceStructure),
								string(isitclear.ChangeClarity),
								string(isitclear.ChangeConciseness),
							},
						},
						"original": {Type: "STRING", Description: "Exact phrase from the input text"},
						"improved": {Type: "STRING", Description: "Replacement phrase"},
						"reason":   {Type: "STRING", Description: "Short explanation of the change"},
					},
					Required:         []string{"type", "original", "improved", "reason"},
					PropertyOrdering: []string{"type", "original", "improved", "reason"},
				},
			},
		},
		Required:         []string{"rewritten_text", "confidence_score", "changes"},
		PropertyOrdering: []string{"rewritten_text", "confidence_score", "changes"},
	}
}

// BuildRewriteConfig returns the GenerateContentConfig for rewrite sessions.
func BuildRewriteConfig(params isitclear.Parameters) *GenerateContentConfig {
	temp := float32(0.3)
	return &GenerateContentConfig{
		SystemInstruction: &Content{
			Parts: []*Part{{
				Text: `You are an editor who rewrites text so it is clear and easy to read.

Keep the author's meaning and voice. Apply the requested tone and length. Return plain text only, without markdown.
List each localized edit you made, quoting the original phrase exactly as it appears in the input.` + toneInstruction(params.Tone) + lengthInstruction(params.Length),
			}},
		},
		Temperature:      &temp,
		ResponseMIMEType: "application/json",
		ResponseSchema:   RewriteSchema(),
	}
}

func toneInstruction(t isitclear.ToneDirective) string {
	switch t {
	case isitclear.ToneMoreFormal:
		return "\nMake the tone more formal."
	case isitclear.ToneMoreCasual:
		return "\nMake the tone more casual."
	}
	return ""
}

func lengthInstruction(l isitclear.LengthDirective) string {
	switch l {
	case isitclear.LengthShorter:
		return "\nMake the text shorter."
	case isitclear.LengthLonger:
		return "\nMake the text longer."
	}
	return ""
}
