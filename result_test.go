package isitclear_test

import (
	"testing"
	"time"

	"github.com/nibzard/isitclear"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const draft = "The plan is really good and we should do it."

func intPtr(n int) *int { return &n }

func floatPtr(f float64) *float64 { return &f }

func mustChange(t *testing.T) isitclear.ChangeRecord {
	t.Helper()
	c, err := isitclear.NewChangeRecord(isitclear.ChangeWordChoice, "really good", "excellent", "Stronger word", 12, 23)
	require.NoError(t, err)
	return c
}

func TestNewImprovementResult(t *testing.T) {
	t.Parallel()

	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("owns copies of changes and parameters", func(t *testing.T) {
		t.Parallel()

		changes := []isitclear.ChangeRecord{mustChange(t)}
		params := map[string]string{"tone": "as-is"}
		r, err := isitclear.NewImprovementResult(draft, "The plan is excellent.", isitclear.BackendRewrite,
			0.8, changes, 120*time.Millisecond, params, created)
		require.NoError(t, err)

		changes[0] = isitclear.ChangeRecord{}
		params["tone"] = "more-formal"
		assert.False(t, r.Changes[0].IsZero())
		assert.Equal(t, "as-is", r.Parameters["tone"])
		assert.Equal(t, created, r.CreatedAt)
	})

	tests := []struct {
		name       string
		original   string
		improved   string
		backend    isitclear.BackendKind
		confidence float64
		changes    []isitclear.ChangeRecord
		processing time.Duration
	}{
		{"empty original", "", "x", isitclear.BackendRewrite, 0.5, []isitclear.ChangeRecord{mustChange(t)}, time.Millisecond},
		{"blank improved", draft, "  ", isitclear.BackendRewrite, 0.5, []isitclear.ChangeRecord{mustChange(t)}, time.Millisecond},
		{"unknown backend", draft, "x", "local", 0.5, []isitclear.ChangeRecord{mustChange(t)}, time.Millisecond},
		{"confidence above one", draft, "x", isitclear.BackendPrompt, 1.2, []isitclear.ChangeRecord{mustChange(t)}, time.Millisecond},
		{"negative confidence", draft, "x", isitclear.BackendPrompt, -0.1, []isitclear.ChangeRecord{mustChange(t)}, time.Millisecond},
		{"no changes", draft, "x", isitclear.BackendPrompt, 0.5, nil, time.Millisecond},
		{"zero change", draft, "x", isitclear.BackendPrompt, 0.5, []isitclear.ChangeRecord{{}}, time.Millisecond},
		{"zero processing time", draft, "x", isitclear.BackendPrompt, 0.5, []isitclear.ChangeRecord{mustChange(t)}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := isitclear.NewImprovementResult(tt.original, tt.improved, tt.backend, tt.confidence,
				tt.changes, tt.processing, nil, created)
			assert.True(t, isitclear.IsCode(err, isitclear.CodeInvalidResult), "got %v", err)
		})
	}
}

func TestNormalizeResult(t *testing.T) {
	t.Parallel()

	base := isitclear.ResultInput{
		OriginalText:   draft,
		Backend:        isitclear.BackendRewrite,
		ProcessingTime: 50 * time.Millisecond,
	}

	t.Run("clamps supplied confidence", func(t *testing.T) {
		t.Parallel()

		in := base
		in.Output = isitclear.BackendOutput{Text: "The plan is excellent.", Confidence: floatPtr(1.7)}
		r, err := isitclear.NormalizeResult(in)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, r.Confidence, 1e-9)
	})

	t.Run("scores with the heuristic when confidence is missing", func(t *testing.T) {
		t.Parallel()

		in := base
		in.Output = isitclear.BackendOutput{Text: "The plan is excellent."}
		r, err := isitclear.NormalizeResult(in)
		require.NoError(t, err)
		assert.InDelta(t, isitclear.HeuristicConfidence(draft, "The plan is excellent."), r.Confidence, 1e-9)
	})

	t.Run("keeps located changes", func(t *testing.T) {
		t.Parallel()

		in := base
		in.Output = isitclear.BackendOutput{
			Text: "The plan is excellent and we should do it.",
			Changes: []isitclear.RawChange{
				{Type: "word-choice", Original: "really good", Improved: "excellent", Reason: "Stronger", Start: intPtr(12), End: intPtr(23)},
			},
		}
		r, err := isitclear.NormalizeResult(in)
		require.NoError(t, err)
		require.Len(t, r.Changes, 1)
		assert.Equal(t, 12, r.Changes[0].Start())
		assert.False(t, r.Changes[0].IsWholeText())
	})

	t.Run("synthesizes a whole-text change when nothing survives", func(t *testing.T) {
		t.Parallel()

		in := base
		in.Output = isitclear.BackendOutput{
			Text:    "We should do it.",
			Changes: []isitclear.RawChange{{Type: "clarity", Original: "not in the text", Improved: "x"}},
		}
		r, err := isitclear.NormalizeResult(in)
		require.NoError(t, err)
		require.Len(t, r.Changes, 1)
		c := r.Changes[0]
		assert.True(t, c.IsWholeText())
		assert.Equal(t, isitclear.ChangeClarity, c.Kind())
		assert.Equal(t, isitclear.WholeTextReason, c.Reason())
		assert.Equal(t, 0, c.Start())
		assert.Equal(t, len([]rune(draft)), c.End())
	})

	t.Run("unchanged text is a valid result", func(t *testing.T) {
		t.Parallel()

		in := base
		in.Output = isitclear.BackendOutput{Text: draft}
		r, err := isitclear.NormalizeResult(in)
		require.NoError(t, err)
		assert.True(t, r.Unchanged())
		require.Len(t, r.Changes, 1)
		assert.Equal(t, draft, r.Changes[0].Improved())
	})

	t.Run("empty output is rejected", func(t *testing.T) {
		t.Parallel()

		in := base
		in.Output = isitclear.BackendOutput{Text: ""}
		_, err := isitclear.NormalizeResult(in)
		assert.True(t, isitclear.IsCode(err, isitclear.CodeInvalidResult))
	})
}

func TestNormalizeChanges(t *testing.T) {
	t.Parallel()

	text := "Ünïcode text is kind of really long"
	raw := []isitclear.RawChange{
		{Type: "conciseness", Original: "kind of really long", Improved: "long", Reason: ""},
		{Type: "made-up", Original: "Ünïcode", Improved: "Unicode", Reason: "Spelling", Start: intPtr(0), End: intPtr(99)},
		{Type: "clarity", Original: "missing", Improved: "gone", Reason: "r"},
		{Type: "clarity", Original: "text", Improved: "text", Reason: "no-op"},
	}

	got := isitclear.NormalizeChanges(text, raw)
	require.Len(t, got, 2)

	assert.Equal(t, isitclear.ChangeClarity, got[0].Kind(), "unknown kinds become clarity")
	assert.Equal(t, 0, got[0].Start())
	assert.Equal(t, 7, got[0].End(), "offsets are counted in runes")

	assert.Equal(t, isitclear.ChangeConciseness, got[1].Kind())
	assert.Equal(t, 16, got[1].Start())
	assert.Equal(t, "Improved clarity", got[1].Reason())

	assert.Nil(t, isitclear.NormalizeChanges(text, nil))
}

func TestImprovementResultView(t *testing.T) {
	t.Parallel()

	r, err := isitclear.NewImprovementResult(draft, "The plan is excellent.", isitclear.BackendPrompt,
		0.9, []isitclear.ChangeRecord{mustChange(t)}, 1500*time.Microsecond, nil, time.Now())
	require.NoError(t, err)

	v := r.View()
	assert.Equal(t, draft, v.OriginalText)
	assert.Equal(t, "The plan is excellent.", v.ImprovedText)
	assert.Equal(t, isitclear.BackendPrompt, v.BackendKind)
	assert.InDelta(t, 1.5, v.ProcessingTimeMs, 1e-9)
	assert.Len(t, v.Changes, 1)
}
