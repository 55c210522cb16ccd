package gemini

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// DefaultModel is the recommended Gemini model for clarity rewrites.
const DefaultModel = "gemini-2.5-flash"

var (
	_ GenerativeClient = (*Client)(nil)
	_ ModelProber      = (*Client)(nil)
)

// Client adapts the genai SDK to GenerativeClient and ModelProber.
type Client struct {
	models *genai.Models
}

// NewClient connects to the Gemini API with apiKey.
func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: new client: %w", err)
	}
	return &Client{models: c.Models}, nil
}

// Close releases nothing; the SDK keeps no open connections of its own.
func (c *Client) Close() error {
	return nil
}

// GenerateContent sends one user turn and returns the reply text.
func (c *Client) GenerateContent(ctx context.Context, model string, contents []*Content, config *GenerateContentConfig) (*GenerateContentResponse, error) {
	turns := make([]*genai.Content, 0, len(contents))
	for _, content := range contents {
		turns = append(turns, &genai.Content{Role: genai.RoleUser, Parts: toParts(content)})
	}

	resp, err := c.models.GenerateContent(ctx, model, turns, toConfig(config))
	if err != nil {
		return nil, fromAPIError(err)
	}
	return &GenerateContentResponse{Text: resp.Text()}, nil
}

// GetModel looks up model metadata. A missing model surfaces as an APIError
// matching isitclear.ErrUnavailable.
func (c *Client) GetModel(ctx context.Context, model string) (*ModelInfo, error) {
	m, err := c.models.Get(ctx, model, nil)
	if err != nil {
		return nil, fromAPIError(err)
	}
	return &ModelInfo{Name: m.Name, InputTokenLimit: int(m.InputTokenLimit)}, nil
}

func toParts(c *Content) []*genai.Part {
	if c == nil {
		return nil
	}
	parts := make([]*genai.Part, 0, len(c.Parts))
	for _, p := range c.Parts {
		parts = append(parts, genai.NewPartFromText(p.Text))
	}
	return parts
}

func toConfig(config *GenerateContentConfig) *genai.GenerateContentConfig {
	out := &genai.GenerateContentConfig{}
	if config == nil {
		return out
	}
	out.Temperature = config.Temperature
	out.ResponseMIMEType = config.ResponseMIMEType
	out.ResponseSchema = toSchema(config.ResponseSchema)
	if config.SystemInstruction != nil {
		out.SystemInstruction = &genai.Content{Parts: toParts(config.SystemInstruction)}
	}
	if config.ThinkingLevel != "" {
		out.ThinkingConfig = &genai.ThinkingConfig{ThinkingLevel: genai.ThinkingLevel(config.ThinkingLevel)}
	}
	return out
}

func toSchema(s *Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:             genai.Type(s.Type),
		Description:      s.Description,
		Enum:             s.Enum,
		Required:         s.Required,
		PropertyOrdering: s.PropertyOrdering,
		Items:            toSchema(s.Items),
	}
	if s.Nullable {
		out.Nullable = genai.Ptr(true)
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = toSchema(prop)
		}
	}
	return out
}

// fromAPIError keeps the HTTP status of SDK errors so backends can classify them.
func fromAPIError(err error) error {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	return NewAPIError(apiErr.Code, fmt.Sprintf("gemini: HTTP %d: %s", apiErr.Code, apiErr.Message))
}
