package channel_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/nibzard/isitclear"
	"github.com/nibzard/isitclear/analyzer"
	"github.com/nibzard/isitclear/channel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	AnalyzeFn      func(ctx context.Context, text string, opts analyzer.AnalyzeOptions) (*isitclear.ImprovementResult, error)
	RecordActionFn func(action isitclear.UserAction) error
	AnalyticsFn    func() analyzer.Analytics
}

func (s *fakeService) Analyze(ctx context.Context, text string, opts analyzer.AnalyzeOptions) (*isitclear.ImprovementResult, error) {
	return s.AnalyzeFn(ctx, text, opts)
}

func (s *fakeService) RecordAction(action isitclear.UserAction) error {
	return s.RecordActionFn(action)
}

func (s *fakeService) Analytics() analyzer.Analytics {
	return s.AnalyticsFn()
}

func mustResult(t *testing.T, original, improved string) *isitclear.ImprovementResult {
	t.Helper()
	change, err := isitclear.NewChangeRecord(isitclear.ChangeWordChoice, "good", "great", "Stronger word", 8, 12)
	require.NoError(t, err)
	r, err := isitclear.NewImprovementResult(original, improved, isitclear.BackendRewrite, 0.9,
		[]isitclear.ChangeRecord{change}, 150*time.Millisecond, map[string]string{"tone": "as-is"}, time.Now())
	require.NoError(t, err)
	return r
}

func TestHandler_Handle_AnalyzeText(t *testing.T) {
	t.Parallel()

	var gotText string
	var gotOpts analyzer.AnalyzeOptions
	svc := &fakeService{AnalyzeFn: func(ctx context.Context, text string, opts analyzer.AnalyzeOptions) (*isitclear.ImprovementResult, error) {
		gotText, gotOpts = text, opts
		return mustResult(t, text, "This is great."), nil
	}}
	h := channel.NewHandler(svc)
	prefs := isitclear.DefaultPreferences()

	resp := h.Handle(context.Background(), isitclear.Request{
		Type:         isitclear.MessageAnalyzeText,
		Text:         "This is good.",
		FieldKind:    isitclear.FieldTextarea,
		FieldContext: "comment",
		Preferences:  prefs,
	})

	ar, ok := resp.(isitclear.AnalyzeResponse)
	require.True(t, ok)
	assert.True(t, ar.Success)
	require.NotNil(t, ar.Result)
	assert.Equal(t, "This is great.", ar.Result.ImprovedText)
	assert.InDelta(t, 150.0, ar.Result.ProcessingTimeMs, 1e-9)
	assert.Equal(t, isitclear.BackendRewrite, ar.Result.BackendKind)
	require.NotNil(t, ar.Quality)
	assert.Equal(t, isitclear.QualityGood, ar.Quality.Level)

	assert.Equal(t, "This is good.", gotText)
	assert.Equal(t, isitclear.FieldTextarea, gotOpts.FieldKind)
	assert.Equal(t, "comment", gotOpts.FieldContext)
	assert.Same(t, prefs, gotOpts.Preferences)
}

func TestHandler_Handle_AnalyzeTextFailure(t *testing.T) {
	t.Parallel()

	svc := &fakeService{AnalyzeFn: func(ctx context.Context, text string, opts analyzer.AnalyzeOptions) (*isitclear.ImprovementResult, error) {
		return nil, isitclear.NewEmptyText()
	}}
	h := channel.NewHandler(svc)

	resp := h.Handle(context.Background(), isitclear.Request{Type: isitclear.MessageAnalyzeText})

	ar, ok := resp.(isitclear.AnalyzeResponse)
	require.True(t, ok)
	assert.False(t, ar.Success)
	assert.Nil(t, ar.Result)
	assert.Equal(t, "text is empty", ar.Error)
	assert.Equal(t, isitclear.CodeEmptyText, ar.ErrorCode)
}

func TestHandler_Handle_UserAction(t *testing.T) {
	t.Parallel()

	var recorded []isitclear.UserAction
	svc := &fakeService{RecordActionFn: func(action isitclear.UserAction) error {
		if action != isitclear.ActionAccept && action != isitclear.ActionReject {
			return isitclear.Errorf(isitclear.CodeUnknown, "unknown action %q", action)
		}
		recorded = append(recorded, action)
		return nil
	}}
	h := channel.NewHandler(svc)
	view := mustResult(t, "This is good.", "This is great.").View()

	resp := h.Handle(context.Background(), isitclear.Request{
		Type: isitclear.MessageUserAction, Action: isitclear.ActionAccept, AnalysisResult: &view,
	})
	assert.Equal(t, isitclear.ActionResponse{Success: true}, resp)

	resp = h.Handle(context.Background(), isitclear.Request{
		Type: isitclear.MessageUserAction, Action: "shrug", AnalysisResult: &view,
	})
	assert.False(t, resp.(isitclear.ActionResponse).Success)

	resp = h.Handle(context.Background(), isitclear.Request{Type: isitclear.MessageUserAction, Action: isitclear.ActionReject})
	assert.False(t, resp.(isitclear.ActionResponse).Success)

	assert.Equal(t, []isitclear.UserAction{isitclear.ActionAccept}, recorded)
}

func TestHandler_Handle_GetAnalytics(t *testing.T) {
	t.Parallel()

	svc := &fakeService{AnalyticsFn: func() analyzer.Analytics {
		return analyzer.Analytics{AnalysisCount: 4, AcceptanceRate: 0.5, AverageProcessingTime: 1500 * time.Microsecond}
	}}
	h := channel.NewHandler(svc)

	resp := h.Handle(context.Background(), isitclear.Request{Type: isitclear.MessageGetAnalytics})

	assert.Equal(t, isitclear.AnalyticsResponse{AnalysisCount: 4, AcceptanceRate: 0.5, AverageProcessingTimeMs: 1.5}, resp)
}

func TestHandler_Handle_UnknownType(t *testing.T) {
	t.Parallel()

	h := channel.NewHandler(&fakeService{})

	resp := h.Handle(context.Background(), isitclear.Request{Type: "PING"})

	er, ok := resp.(isitclear.ErrorResponse)
	require.True(t, ok)
	assert.False(t, er.Success)
	assert.Contains(t, er.Error, "PING")
}

func TestHandler_Serve(t *testing.T) {
	t.Parallel()

	svc := &fakeService{
		AnalyzeFn: func(ctx context.Context, text string, opts analyzer.AnalyzeOptions) (*isitclear.ImprovementResult, error) {
			return mustResult(t, text, "This is great."), nil
		},
		AnalyticsFn: func() analyzer.Analytics {
			return analyzer.Analytics{AnalysisCount: 1}
		},
	}
	h := channel.NewHandler(svc)

	in := strings.Join([]string{
		`{"type":"ANALYZE_TEXT","text":"This is good.","fieldKind":"input","preferences":{"preferredTone":"formal"}}`,
		``,
		`not json`,
		`{"type":"GET_ANALYTICS"}`,
		`{"type":"NOPE"}`,
	}, "\n")
	var out bytes.Buffer

	err := h.Serve(context.Background(), strings.NewReader(in), &out)

	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)

	var analyze map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &analyze))
	assert.Equal(t, true, analyze["success"])
	result := analyze["result"].(map[string]any)
	assert.Equal(t, "This is great.", result["improvedText"])
	changes := result["changes"].([]any)
	require.Len(t, changes, 1)
	assert.Equal(t, "word-choice", changes[0].(map[string]any)["type"])

	var malformed isitclear.ErrorResponse
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &malformed))
	assert.False(t, malformed.Success)
	assert.Contains(t, malformed.Error, "malformed request")

	var analytics isitclear.AnalyticsResponse
	require.NoError(t, json.Unmarshal([]byte(lines[2]), &analytics))
	assert.Equal(t, 1, analytics.AnalysisCount)

	var unknown isitclear.ErrorResponse
	require.NoError(t, json.Unmarshal([]byte(lines[3]), &unknown))
	assert.False(t, unknown.Success)
}

func TestHandler_Serve_InvalidPreferencesRejected(t *testing.T) {
	t.Parallel()

	h := channel.NewHandler(&fakeService{})
	var out bytes.Buffer

	err := h.Serve(context.Background(),
		strings.NewReader(`{"type":"ANALYZE_TEXT","text":"x","preferences":{"autoActivateMinWords":0}}`), &out)

	require.NoError(t, err)
	var resp isitclear.ErrorResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.False(t, resp.Success)
}

func TestHandler_Serve_StopsOnCancelledContext(t *testing.T) {
	t.Parallel()

	h := channel.NewHandler(&fakeService{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var out bytes.Buffer

	err := h.Serve(ctx, strings.NewReader(`{"type":"GET_ANALYTICS"}`), &out)

	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, out.String())
}

func TestHandler_Serve_ReturnsOnCancelWhileReadBlocks(t *testing.T) {
	t.Parallel()

	svc := &fakeService{AnalyticsFn: func() analyzer.Analytics { return analyzer.Analytics{AnalysisCount: 3} }}
	h := channel.NewHandler(svc)
	pr, pw := io.Pipe()
	t.Cleanup(func() { _ = pw.Close() })
	outR, outW := io.Pipe()
	t.Cleanup(func() { _ = outR.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Serve(ctx, pr, outW) }()

	_, err := io.WriteString(pw, `{"type":"GET_ANALYTICS"}`+"\n")
	require.NoError(t, err)
	var resp isitclear.AnalyticsResponse
	require.NoError(t, json.NewDecoder(outR).Decode(&resp))
	assert.Equal(t, 3, resp.AnalysisCount)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
