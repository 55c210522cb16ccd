package analyzer

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/nibzard/isitclear"
)

// displayTextLimit is the number of runes of original text kept in history.
const displayTextLimit = 100

// HistoryEntry is one recorded analysis.
type HistoryEntry struct {
	ID           string
	OriginalText string // truncated for display
	Result       *isitclear.ImprovementResult
	RecordedAt   time.Time
}

// history is a fixed-capacity ring of entries, newest first.
type history struct {
	entries []HistoryEntry
	size    int
}

func newHistory(size int) *history {
	return &history{entries: make([]HistoryEntry, 0, size), size: size}
}

func (h *history) add(text string, r *isitclear.ImprovementResult, at time.Time) {
	e := HistoryEntry{
		ID:           uuid.NewString(),
		OriginalText: truncate(text, displayTextLimit),
		Result:       r,
		RecordedAt:   at,
	}
	if len(h.entries) < h.size {
		h.entries = append(h.entries, HistoryEntry{})
	}
	copy(h.entries[1:], h.entries)
	h.entries[0] = e
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "…"
}

// History returns the recorded analyses, newest first.
func (a *Analyzer) History() []HistoryEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]HistoryEntry, len(a.history.entries))
	copy(out, a.history.entries)
	return out
}

// ClearHistory removes all history entries. Analytics are kept.
func (a *Analyzer) ClearHistory() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.history.entries = a.history.entries[:0]
}

type stats struct {
	analyses   int
	failures   int
	accepted   int
	rejected   int
	processing time.Duration
}

// Analytics are in-memory usage counters.
type Analytics struct {
	AnalysisCount         int
	FailureCount          int
	Accepted              int
	Rejected              int
	AcceptanceRate        float64 // accepted / decisions, 0 without decisions
	AverageProcessingTime time.Duration
}

// Analytics returns a snapshot of the usage counters.
func (a *Analyzer) Analytics() Analytics {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := a.stats
	out := Analytics{
		AnalysisCount: s.analyses,
		FailureCount:  s.failures,
		Accepted:      s.accepted,
		Rejected:      s.rejected,
	}
	if d := s.accepted + s.rejected; d > 0 {
		out.AcceptanceRate = float64(s.accepted) / float64(d)
	}
	if s.analyses > 0 {
		out.AverageProcessingTime = s.processing / time.Duration(s.analyses)
	}
	return out
}
