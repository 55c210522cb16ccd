package isitclear

import (
	"maps"
	"math"
	"slices"
	"strings"
	"time"
	"unicode/utf8"
)

// ImprovementResult is a validated, confidence-scored rewrite of a text.
type ImprovementResult struct {
	OriginalText   string
	ImprovedText   string
	Backend        BackendKind
	Confidence     float64
	Changes        []ChangeRecord
	ProcessingTime time.Duration
	Parameters     map[string]string
	CreatedAt      time.Time
}

// NewImprovementResult validates the result invariants and returns a result
// owning copies of changes and params.
func NewImprovementResult(original, improved string, backend BackendKind, confidence float64,
	changes []ChangeRecord, processing time.Duration, params map[string]string, createdAt time.Time) (*ImprovementResult, error) {
	switch {
	case original == "":
		return nil, Errorf(CodeInvalidResult, "original text is empty")
	case strings.TrimSpace(improved) == "":
		return nil, Errorf(CodeInvalidResult, "improved text is empty")
	case !backend.Valid():
		return nil, Errorf(CodeInvalidResult, "unknown backend %q", backend)
	case math.IsNaN(confidence) || confidence < 0 || confidence > 1:
		return nil, Errorf(CodeInvalidResult, "confidence %v outside [0, 1]", confidence)
	case len(changes) == 0:
		return nil, Errorf(CodeInvalidResult, "no changes recorded")
	case processing <= 0:
		return nil, Errorf(CodeInvalidResult, "processing time must be positive, got %s", processing)
	}
	for i, c := range changes {
		if c.IsZero() {
			return nil, Errorf(CodeInvalidResult, "change %d is not initialized", i)
		}
	}
	return &ImprovementResult{
		OriginalText:   original,
		ImprovedText:   improved,
		Backend:        backend,
		Confidence:     confidence,
		Changes:        slices.Clone(changes),
		ProcessingTime: processing,
		Parameters:     maps.Clone(params),
		CreatedAt:      createdAt,
	}, nil
}

// ResultInput is raw backend output plus the context needed to normalize it.
type ResultInput struct {
	OriginalText   string
	Output         BackendOutput
	Backend        BackendKind
	ProcessingTime time.Duration
	Parameters     map[string]string
	CreatedAt      time.Time
}

// NormalizeResult turns raw backend output into an ImprovementResult.
// A supplied confidence is clamped to [0, 1]; otherwise HeuristicConfidence
// is used. Granular changes are validated and located in the original text;
// when none survive, a single whole-text clarity change is synthesized.
func NormalizeResult(in ResultInput) (*ImprovementResult, error) {
	improved := in.Output.Text
	var confidence float64
	if in.Output.Confidence != nil {
		confidence = ClampConfidence(*in.Output.Confidence)
	} else {
		confidence = HeuristicConfidence(in.OriginalText, improved)
	}

	changes := NormalizeChanges(in.OriginalText, in.Output.Changes)
	if len(changes) == 0 && strings.TrimSpace(improved) != "" {
		changes = []ChangeRecord{wholeTextChange(in.OriginalText, improved)}
	}

	return NewImprovementResult(in.OriginalText, improved, in.Backend, confidence,
		changes, in.ProcessingTime, in.Parameters, in.CreatedAt)
}

// defaultChangeReason is used when a backend reports a change without a reason.
const defaultChangeReason = "Improved clarity"

// NormalizeChanges validates raw backend changes against the original text.
// Unknown kinds become clarity changes; missing or out-of-range offsets are
// recovered by locating the original phrase. Changes that cannot be placed
// or that fail validation are dropped. The result is ordered by start offset.
func NormalizeChanges(original string, raw []RawChange) []ChangeRecord {
	if len(raw) == 0 {
		return nil
	}
	total := runeLen(original)
	out := make([]ChangeRecord, 0, len(raw))
	for _, rc := range raw {
		kind, err := ParseChangeKind(rc.Type)
		if err != nil {
			kind = ChangeClarity
		}
		reason := rc.Reason
		if strings.TrimSpace(reason) == "" {
			reason = defaultChangeReason
		}

		start, end, ok := -1, -1, false
		if rc.Start != nil && rc.End != nil && *rc.Start >= 0 && *rc.Start < *rc.End && *rc.End <= total {
			start, end = *rc.Start, *rc.End
			ok = runeSlice(original, start, end) == rc.Original
		}
		if !ok {
			start, end, ok = locate(original, rc.Original)
		}
		if !ok {
			continue
		}

		rec, err := NewChangeRecord(kind, rc.Original, rc.Improved, reason, start, end)
		if err != nil {
			continue
		}
		out = append(out, rec)
	}
	slices.SortStableFunc(out, func(a, b ChangeRecord) int { return a.start - b.start })
	return out
}

// locate finds phrase in text and returns its rune offsets.
func locate(text, phrase string) (start, end int, ok bool) {
	if phrase == "" {
		return 0, 0, false
	}
	i := strings.Index(text, phrase)
	if i < 0 {
		return 0, 0, false
	}
	start = utf8.RuneCountInString(text[:i])
	return start, start + utf8.RuneCountInString(phrase), true
}

// runeSlice returns text[start:end] in rune offsets.
func runeSlice(text string, start, end int) string {
	r := []rune(text)
	if start < 0 || end > len(r) || start > end {
		return ""
	}
	return string(r[start:end])
}

// View returns the presentation-facing form of the result.
func (r *ImprovementResult) View() ImprovementResultView {
	return ImprovementResultView{
		OriginalText:     r.OriginalText,
		ImprovedText:     r.ImprovedText,
		Changes:          slices.Clone(r.Changes),
		Confidence:       r.Confidence,
		ProcessingTimeMs: durationMs(r.ProcessingTime),
		BackendKind:      r.Backend,
	}
}

// Unchanged reports whether the backend returned the original text verbatim.
func (r *ImprovementResult) Unchanged() bool {
	return r.ImprovedText == r.OriginalText
}

func durationMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
