// Package gemini implements the rewrite and prompt backends on Google Gemini.
package gemini

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/nibzard/isitclear"
	"go.uber.org/zap"
)

// GenerativeClient abstracts the Gemini API for testing.
type GenerativeClient interface {
	GenerateContent(ctx context.Context, model string, contents []*Content, config *GenerateContentConfig) (*GenerateContentResponse, error)
}

// ModelProber is implemented by clients that can check whether a model is
// served without generating content. Backends use it for availability probes.
type ModelProber interface {
	GetModel(ctx context.Context, model string) (*ModelInfo, error)
}

// ModelInfo describes a served model.
type ModelInfo struct {
	Name            string
	InputTokenLimit int
}

// Content represents a message in a Gemini conversation.
type Content struct {
	Parts []*Part
}

// Part represents a part of a message.
type Part struct {
	Text string
}

// GenerateContentConfig holds configuration for content generation.
type GenerateContentConfig struct {
	SystemInstruction *Content
	Temperature       *float32
	ResponseMIMEType  string
	ResponseSchema    *Schema
	ThinkingLevel     string // "", "MINIMAL", "LOW", "MEDIUM", "HIGH"
}

// Schema represents the structure for controlled JSON generation.
type Schema struct {
	Type             string             // OBJECT, ARRAY, STRING, INTEGER, NUMBER, BOOLEAN
	Properties       map[string]*Schema // For object types
	Items            *Schema            // For array types
	Enum             []string           // For string enums
	Required         []string           // Required property names
	PropertyOrdering []string           // Order of properties in output
	Description      string             // Field description
	Nullable         bool
}

// GenerateContentResponse holds the response from content generation.
type GenerateContentResponse struct {
	Text string
}

// MockGenerativeClient is a mock implementation of GenerativeClient for testing.
// GetModelFn is optional; when nil the mock reports every model as served.
type MockGenerativeClient struct {
	GenerateContentFn func(ctx context.Context, model string, contents []*Content, config *GenerateContentConfig) (*GenerateContentResponse, error)
	GetModelFn        func(ctx context.Context, model string) (*ModelInfo, error)
}

func (m *MockGenerativeClient) GenerateContent(ctx context.Context, model string, contents []*Content, config *GenerateContentConfig) (*GenerateContentResponse, error) {
	return m.GenerateContentFn(ctx, model, contents, config)
}

func (m *MockGenerativeClient) GetModel(ctx context.Context, model string) (*ModelInfo, error) {
	if m.GetModelFn == nil {
		return &ModelInfo{Name: model}, nil
	}
	return m.GetModelFn(ctx, model)
}

var (
	_ GenerativeClient = (*MockGenerativeClient)(nil)
	_ ModelProber      = (*MockGenerativeClient)(nil)
)

// APIError represents an error from the Gemini API with HTTP status code.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// Is maps quota and overload responses onto isitclear.ErrInsufficientResources
// and missing or forbidden models onto isitclear.ErrUnavailable.
func (e *APIError) Is(target error) bool {
	switch target {
	case isitclear.ErrInsufficientResources:
		return e.StatusCode == http.StatusTooManyRequests || e.StatusCode == http.StatusServiceUnavailable
	case isitclear.ErrUnavailable:
		return e.StatusCode == http.StatusNotFound || e.StatusCode == http.StatusForbidden ||
			e.StatusCode == http.StatusUnauthorized
	}
	return false
}

// NewAPIError creates a new APIError with the given status code and message.
func NewAPIError(statusCode int, message string) *APIError {
	return &APIError{StatusCode: statusCode, Message: message}
}

// ErrSessionReleased is returned by Invoke after Release.
var ErrSessionReleased = errors.New("gemini: session released")

// DefaultLocales are the locales both backends report.
var DefaultLocales = []string{"en"}

// Option configures a backend.
type Option func(*options)

type options struct {
	model   string
	timeout time.Duration
	logger  *zap.Logger
	differ  isitclear.WordDiffer
}

func defaultOptions() options {
	return options{
		model:  DefaultModel,
		logger: zap.NewNop(),
	}
}

// WithModel sets the Gemini model name.
func WithModel(model string) Option {
	return func(o *options) {
		if model != "" {
			o.model = model
		}
	}
}

// WithTimeout bounds each Invoke call. Zero, the default, means no bound
// beyond the caller's context.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithLogger sets the backend logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithDiffer sets the word differ the prompt backend uses to derive change
// annotations from free-form output. Without one it reports no changes.
func WithDiffer(d isitclear.WordDiffer) Option {
	return func(o *options) {
		o.differ = d
	}
}

// probe reports the availability of model on client. Clients that cannot
// probe are assumed to serve every model.
func probe(ctx context.Context, client GenerativeClient, model string) (isitclear.Availability, error) {
	prober, ok := client.(ModelProber)
	if !ok {
		return isitclear.Available, nil
	}
	if _, err := prober.GetModel(ctx, model); err != nil {
		if errors.Is(err, isitclear.ErrUnavailable) {
			return isitclear.Unavailable, nil
		}
		return isitclear.Unavailable, err
	}
	return isitclear.Available, nil
}

func capabilities() isitclear.Capabilities {
	locales := make([]string, len(DefaultLocales))
	copy(locales, DefaultLocales)
	return isitclear.Capabilities{MaxTextLength: isitclear.MaxTextLength, Locales: locales}
}

// withTimeout derives a bounded context when d is positive.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}
