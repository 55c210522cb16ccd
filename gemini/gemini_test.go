package gemini_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/nibzard/isitclear"
	"github.com/nibzard/isitclear/gemini"
	"github.com/nibzard/isitclear/worddiff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRewriteBackend_Invoke_ParsesStructuredResponse(t *testing.T) {
	t.Parallel()

	var gotModel string
	var gotPrompt string
	var gotConfig *gemini.GenerateContentConfig
	mockClient := &gemini.MockGenerativeClient{
		GenerateContentFn: func(ctx context.Context, model string, contents []*gemini.Content, config *gemini.GenerateContentConfig) (*gemini.GenerateContentResponse, error) {
			gotModel = model
			gotPrompt = contents[0].Parts[0].Text
			gotConfig = config
			return &gemini.GenerateContentResponse{Text: `{
				"rewritten_text": "I visited a cool place today.",
				"confidence_score": 0.9,
				"changes": [{"type": "conciseness", "original": "So I was at this place", "improved": "I visited a place", "reason": "Tighter"}]
			}`}, nil
		},
	}

	backend := gemini.NewRewriteBackend(mockClient, gemini.WithModel("test-model"))
	params := isitclear.Parameters{Tone: isitclear.ToneMoreFormal, Format: isitclear.FormatPlainText, Length: isitclear.LengthShorter}
	sess, err := backend.CreateSession(context.Background(), params)
	require.NoError(t, err)

	out, err := sess.Invoke(context.Background(), isitclear.BackendInput{Text: "So I was at this place today", Context: "email"})

	require.NoError(t, err)
	assert.Equal(t, "test-model", gotModel)
	assert.Contains(t, gotPrompt, "So I was at this place today")
	assert.Contains(t, gotPrompt, "tone: more-formal")
	assert.Contains(t, gotPrompt, "length: shorter")
	assert.Contains(t, gotPrompt, "email")
	assert.Equal(t, "application/json", gotConfig.ResponseMIMEType)
	require.NotNil(t, gotConfig.ResponseSchema)
	assert.Contains(t, gotConfig.SystemInstruction.Parts[0].Text, "more formal")

	assert.Equal(t, "I visited a cool place today.", out.Text)
	require.NotNil(t, out.Confidence)
	assert.InDelta(t, 0.9, *out.Confidence, 1e-9)
	require.Len(t, out.Changes, 1)
	assert.Equal(t, "conciseness", out.Changes[0].Type)
	assert.Nil(t, out.Changes[0].Start)
}

func TestRewriteBackend_Invoke_MalformedJSON(t *testing.T) {
	t.Parallel()

	mockClient := &gemini.MockGenerativeClient{
		GenerateContentFn: func(ctx context.Context, model string, contents []*gemini.Content, config *gemini.GenerateContentConfig) (*gemini.GenerateContentResponse, error) {
			return &gemini.GenerateContentResponse{Text: "not json"}, nil
		},
	}

	sess, err := gemini.NewRewriteBackend(mockClient).CreateSession(context.Background(), isitclear.Parameters{})
	require.NoError(t, err)

	_, err = sess.Invoke(context.Background(), isitclear.BackendInput{Text: "hello"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse response")
}

func TestRewriteBackend_Invoke_EmptyRewrite(t *testing.T) {
	t.Parallel()

	mockClient := &gemini.MockGenerativeClient{
		GenerateContentFn: func(ctx context.Context, model string, contents []*gemini.Content, config *gemini.GenerateContentConfig) (*gemini.GenerateContentResponse, error) {
			return &gemini.GenerateContentResponse{Text: `{"rewritten_text": "  ", "changes": []}`}, nil
		},
	}

	sess, err := gemini.NewRewriteBackend(mockClient).CreateSession(context.Background(), isitclear.Parameters{})
	require.NoError(t, err)

	_, err = sess.Invoke(context.Background(), isitclear.BackendInput{Text: "hello"})

	require.Error(t, err)
}

func TestRewriteBackend_Invoke_PropagatesAPIError(t *testing.T) {
	t.Parallel()

	mockClient := &gemini.MockGenerativeClient{
		GenerateContentFn: func(ctx context.Context, model string, contents []*gemini.Content, config *gemini.GenerateContentConfig) (*gemini.GenerateContentResponse, error) {
			return nil, gemini.NewAPIError(http.StatusTooManyRequests, "quota exceeded")
		},
	}

	sess, err := gemini.NewRewriteBackend(mockClient).CreateSession(context.Background(), isitclear.Parameters{})
	require.NoError(t, err)

	_, err = sess.Invoke(context.Background(), isitclear.BackendInput{Text: "hello"})

	var apiErr *gemini.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.ErrorIs(t, err, isitclear.ErrInsufficientResources)
}

func TestRewriteBackend_Invoke_AppliesTimeout(t *testing.T) {
	t.Parallel()

	mockClient := &gemini.MockGenerativeClient{
		GenerateContentFn: func(ctx context.Context, model string, contents []*gemini.Content, config *gemini.GenerateContentConfig) (*gemini.GenerateContentResponse, error) {
			_, ok := ctx.Deadline()
			assert.True(t, ok)
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}

	sess, err := gemini.NewRewriteBackend(mockClient, gemini.WithTimeout(10*time.Millisecond)).
		CreateSession(context.Background(), isitclear.Parameters{})
	require.NoError(t, err)

	_, err = sess.Invoke(context.Background(), isitclear.BackendInput{Text: "hello"})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSession_ReleaseStopsInvoke(t *testing.T) {
	t.Parallel()

	mockClient := &gemini.MockGenerativeClient{
		GenerateContentFn: func(ctx context.Context, model string, contents []*gemini.Content, config *gemini.GenerateContentConfig) (*gemini.GenerateContentResponse, error) {
			t.Fatal("GenerateContent called on released session")
			return nil, nil
		},
	}

	backends := []isitclear.Backend{
		gemini.NewRewriteBackend(mockClient),
		gemini.NewPromptBackend(mockClient),
	}
	for _, b := range backends {
		sess, err := b.CreateSession(context.Background(), isitclear.Parameters{})
		require.NoError(t, err)

		require.NoError(t, sess.Release())
		assert.ErrorIs(t, sess.Release(), gemini.ErrSessionReleased)

		_, err = sess.Invoke(context.Background(), isitclear.BackendInput{Text: "x", Prompt: "x"})
		assert.ErrorIs(t, err, gemini.ErrSessionReleased)
	}
}

func TestSession_Capabilities(t *testing.T) {
	t.Parallel()

	sess, err := gemini.NewRewriteBackend(&gemini.MockGenerativeClient{}).CreateSession(context.Background(), isitclear.Parameters{})
	require.NoError(t, err)

	caps := sess.Capabilities()
	assert.Equal(t, isitclear.MaxTextLength, caps.MaxTextLength)
	assert.Equal(t, []string{"en"}, caps.Locales)
}

func TestBackend_Availability(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		getErr    error
		expected  isitclear.Availability
		expectErr error
	}{
		{
			name:     "model served",
			expected: isitclear.Available,
		},
		{
			name:     "model not found",
			getErr:   gemini.NewAPIError(http.StatusNotFound, "no such model"),
			expected: isitclear.Unavailable,
		},
		{
			name:      "quota exceeded",
			getErr:    gemini.NewAPIError(http.StatusTooManyRequests, "slow down"),
			expected:  isitclear.Unavailable,
			expectErr: isitclear.ErrInsufficientResources,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var probed string
			mockClient := &gemini.MockGenerativeClient{
				GetModelFn: func(ctx context.Context, model string) (*gemini.ModelInfo, error) {
					probed = model
					if tt.getErr != nil {
						return nil, tt.getErr
					}
					return &gemini.ModelInfo{Name: model}, nil
				},
			}

			avail, err := gemini.NewPromptBackend(mockClient, gemini.WithModel("m")).Availability(context.Background())

			assert.Equal(t, "m", probed)
			assert.Equal(t, tt.expected, avail)
			if tt.expectErr != nil {
				assert.ErrorIs(t, err, tt.expectErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

type generateOnly struct {
	gemini.GenerativeClient
}

func TestBackend_Availability_WithoutProber(t *testing.T) {
	t.Parallel()

	avail, err := gemini.NewRewriteBackend(generateOnly{}).Availability(context.Background())

	require.NoError(t, err)
	assert.Equal(t, isitclear.Available, avail)
}

func TestPromptBackend_Invoke_DerivesChanges(t *testing.T) {
	t.Parallel()

	var gotPrompt string
	mockClient := &gemini.MockGenerativeClient{
		GenerateContentFn: func(ctx context.Context, model string, contents []*gemini.Content, config *gemini.GenerateContentConfig) (*gemini.GenerateContentResponse, error) {
			gotPrompt = contents[0].Parts[0].Text
			assert.Equal(t, "text/plain", config.ResponseMIMEType)
			return &gemini.GenerateContentResponse{Text: "  \"The weather is great.\"\n"}, nil
		},
	}

	backend := gemini.NewPromptBackend(mockClient, gemini.WithDiffer(worddiff.NewDiffer()))
	sess, err := backend.CreateSession(context.Background(), isitclear.Parameters{})
	require.NoError(t, err)

	out, err := sess.Invoke(context.Background(), isitclear.BackendInput{
		Text:   "The weather is good.",
		Prompt: "Improve: The weather is good.",
	})

	require.NoError(t, err)
	assert.Equal(t, "Improve: The weather is good.", gotPrompt)
	assert.Equal(t, "The weather is great.", out.Text)
	assert.Nil(t, out.Confidence)
	require.Len(t, out.Changes, 1)
	c := out.Changes[0]
	assert.Equal(t, "word-choice", c.Type)
	assert.Equal(t, "good", c.Original)
	assert.Equal(t, "great", c.Improved)
	require.NotNil(t, c.Start)
	require.NotNil(t, c.End)
	assert.Equal(t, 15, *c.Start)
	assert.Equal(t, 19, *c.End)
	assert.Equal(t, `Replaced "good" with "great"`, c.Reason)
}

func TestPromptBackend_Invoke_NoDifferReportsNoChanges(t *testing.T) {
	t.Parallel()

	mockClient := &gemini.MockGenerativeClient{
		GenerateContentFn: func(ctx context.Context, model string, contents []*gemini.Content, config *gemini.GenerateContentConfig) (*gemini.GenerateContentResponse, error) {
			return &gemini.GenerateContentResponse{Text: "Better text."}, nil
		},
	}

	sess, err := gemini.NewPromptBackend(mockClient).CreateSession(context.Background(), isitclear.Parameters{})
	require.NoError(t, err)

	out, err := sess.Invoke(context.Background(), isitclear.BackendInput{Text: "Worse text.", Prompt: "p"})

	require.NoError(t, err)
	assert.Empty(t, out.Changes)
}

func TestPromptBackend_Invoke_EmptyPrompt(t *testing.T) {
	t.Parallel()

	sess, err := gemini.NewPromptBackend(&gemini.MockGenerativeClient{}).CreateSession(context.Background(), isitclear.Parameters{})
	require.NoError(t, err)

	_, err = sess.Invoke(context.Background(), isitclear.BackendInput{Text: "hello"})

	require.Error(t, err)
}

func TestPromptBackend_Invoke_PropagatesError(t *testing.T) {
	t.Parallel()

	expectedErr := errors.New("connection reset")
	mockClient := &gemini.MockGenerativeClient{
		GenerateContentFn: func(ctx context.Context, model string, contents []*gemini.Content, config *gemini.GenerateContentConfig) (*gemini.GenerateContentResponse, error) {
			return nil, expectedErr
		},
	}

	sess, err := gemini.NewPromptBackend(mockClient).CreateSession(context.Background(), isitclear.Parameters{})
	require.NoError(t, err)

	_, err = sess.Invoke(context.Background(), isitclear.BackendInput{Text: "hello", Prompt: "p"})

	assert.ErrorIs(t, err, expectedErr)
}

func TestCleanReply(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "plain", input: "Hello there.", expected: "Hello there."},
		{name: "whitespace", input: "\n  Hello.  \n", expected: "Hello."},
		{name: "straight quotes", input: `"Hello."`, expected: "Hello."},
		{name: "curly quotes", input: "“Hello.”", expected: "Hello."},
		{name: "code fence", input: "```text\nHello.\n```", expected: "Hello."},
		{name: "inner quotes kept", input: `He said "hi" twice`, expected: `He said "hi" twice`},
		{name: "lone quotes", input: `""`, expected: `""`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, gemini.CleanReply(tt.input))
		})
	}
}

func TestBuildRewritePrompt_OmitsEmptyContext(t *testing.T) {
	t.Parallel()

	prompt := gemini.BuildRewritePrompt("text", "", isitclear.Parameters{Tone: isitclear.ToneAsIs})

	assert.False(t, strings.Contains(prompt, "## Context"))
	assert.Contains(t, prompt, "## Text\n\ntext")
}

func TestAPIError_Is(t *testing.T) {
	t.Parallel()

	assert.ErrorIs(t, gemini.NewAPIError(http.StatusServiceUnavailable, "x"), isitclear.ErrInsufficientResources)
	assert.ErrorIs(t, gemini.NewAPIError(http.StatusNotFound, "x"), isitclear.ErrUnavailable)
	assert.NotErrorIs(t, gemini.NewAPIError(http.StatusInternalServerError, "x"), isitclear.ErrUnavailable)
	assert.NotErrorIs(t, gemini.NewAPIError(http.StatusInternalServerError, "x"), isitclear.ErrInsufficientResources)
}
