// Package analyzer turns raw text into validated, confidence-scored
// improvements by driving the backend session manager with a single
// fallback attempt. It also keeps a bounded history, usage analytics and a
// windowed batch runner.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nibzard/isitclear"
	"github.com/nibzard/isitclear/session"
	"go.uber.org/zap"
)

// DefaultHistorySize is the number of analyses kept in history.
const DefaultHistorySize = 10

// minProcessingTime is reported when the clock does not advance during an analysis.
const minProcessingTime = time.Microsecond

// Sessions hands out backend sessions. *session.Manager implements it.
type Sessions interface {
	GetOrCreate(ctx context.Context, kind isitclear.BackendKind, params isitclear.Parameters) (*session.Handle, error)
}

var _ Sessions = (*session.Manager)(nil)

// AnalyzeOptions configure one analysis.
type AnalyzeOptions struct {
	FieldKind    isitclear.FieldKind
	FieldContext string
	// Preferences is a snapshot used for this call. When nil the
	// preferences are loaded from the store, or defaults if that fails.
	Preferences *isitclear.Preferences
	// Backend is the primary backend; empty means rewrite.
	Backend isitclear.BackendKind
	// NoFallback disables the second attempt on the other backend.
	NoFallback bool
	// Length overrides the as-is length directive.
	Length isitclear.LengthDirective
}

// Analyzer is the analysis orchestrator.
type Analyzer struct {
	sessions Sessions
	store    isitclear.PreferenceStore
	logger   *zap.Logger
	now      func() time.Time
	pause    func(ctx context.Context, d time.Duration) error

	mu      sync.Mutex
	history *history
	stats   stats
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLogger sets the analyzer logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Analyzer) {
		a.logger = l
	}
}

// WithPreferenceStore sets the store consulted when a call carries no preferences.
func WithPreferenceStore(s isitclear.PreferenceStore) Option {
	return func(a *Analyzer) {
		a.store = s
	}
}

// WithClock sets the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) {
		a.now = now
	}
}

// WithPause replaces the pacing delay between batch windows, for tests.
func WithPause(pause func(ctx context.Context, d time.Duration) error) Option {
	return func(a *Analyzer) {
		a.pause = pause
	}
}

// WithHistorySize sets the history capacity.
func WithHistorySize(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.history = newHistory(n)
		}
	}
}

// New creates an Analyzer over the given session provider.
func New(sessions Sessions, opts ...Option) *Analyzer {
	a := &Analyzer{
		sessions: sessions,
		logger:   zap.NewNop(),
		now:      time.Now,
		pause:    sleep,
		history:  newHistory(DefaultHistorySize),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze validates text, runs it through the primary backend and, on
// failure, exactly one fallback backend, and returns the normalized result.
// An unchanged text is a successful result.
func (a *Analyzer) Analyze(ctx context.Context, text string, opts AnalyzeOptions) (*isitclear.ImprovementResult, error) {
	start := a.now()

	if err := isitclear.ValidateText(text); err != nil {
		return nil, err
	}

	primary := opts.Backend
	if primary == "" {
		primary = isitclear.BackendRewrite
	}
	if !primary.Valid() {
		return nil, isitclear.NewBackendUnavailable(primary, errors.New("unknown backend"))
	}

	params := isitclear.ParametersFor(a.preferences(opts.Preferences), opts.Length)

	kinds := []isitclear.BackendKind{primary}
	if !opts.NoFallback {
		kinds = append(kinds, primary.Other())
	}

	var errs []error
	for i, kind := range kinds {
		result, err := a.attempt(ctx, kind, text, opts.FieldContext, params, start)
		if err == nil {
			if i > 0 {
				a.logger.Info("fallback backend succeeded",
					zap.String("primary", string(primary)),
					zap.String("backend", string(kind)))
			}
			a.record(text, result)
			return result, nil
		}
		a.logger.Warn("backend attempt failed",
			zap.String("backend", string(kind)),
			zap.String("field", string(opts.FieldKind)),
			zap.Error(err))
		errs = append(errs, err)
	}

	a.recordFailure()
	if len(errs) == 1 {
		return nil, errs[0]
	}
	return nil, isitclear.WrapError(isitclear.CodeBothBackendsFailed, errors.Join(errs...), "both backends failed")
}

// attempt runs one backend. Session failures keep their session
// classification; invocation and normalization failures are processing errors.
func (a *Analyzer) attempt(ctx context.Context, kind isitclear.BackendKind, text, fieldContext string,
	params isitclear.Parameters, start time.Time) (*isitclear.ImprovementResult, error) {
	h, err := a.sessions.GetOrCreate(ctx, kind, params)
	if err != nil {
		return nil, err
	}

	out, err := h.Invoke(ctx, buildInput(kind, text, fieldContext, params))
	if err != nil {
		return nil, isitclear.WrapError(isitclear.CodeProcessingError, err, fmt.Sprintf("%s backend failed", kind))
	}
	if out == nil {
		return nil, isitclear.Errorf(isitclear.CodeProcessingError, "%s backend returned no output", kind)
	}

	end := a.now()
	elapsed := end.Sub(start)
	if elapsed <= 0 {
		elapsed = minProcessingTime
	}

	result, err := isitclear.NormalizeResult(isitclear.ResultInput{
		OriginalText:   text,
		Output:         *out,
		Backend:        kind,
		ProcessingTime: elapsed,
		Parameters:     params.Map(),
		CreatedAt:      end,
	})
	if err != nil {
		return nil, isitclear.WrapError(isitclear.CodeProcessingError, err, fmt.Sprintf("%s backend returned invalid output", kind))
	}
	return result, nil
}

// preferences resolves the preferences for one call.
func (a *Analyzer) preferences(p *isitclear.Preferences) *isitclear.Preferences {
	if p != nil {
		return p
	}
	if a.store == nil {
		return isitclear.DefaultPreferences()
	}
	p, err := a.store.Load()
	if err != nil || p == nil {
		a.logger.Warn("loading preferences failed, using defaults", zap.Error(err))
		return isitclear.DefaultPreferences()
	}
	return p
}

func buildInput(kind isitclear.BackendKind, text, fieldContext string, params isitclear.Parameters) isitclear.BackendInput {
	in := isitclear.BackendInput{Text: text, Context: fieldContext}
	if kind == isitclear.BackendPrompt {
		in.Prompt = BuildClarityPrompt(text, params)
	}
	return in
}

// BuildClarityPrompt builds the instruction sent to the prompt backend. The
// text is embedded as a quoted Go string literal.
func BuildClarityPrompt(text string, params isitclear.Parameters) string {
	var sb strings.Builder
	sb.WriteString("Improve the clarity of the following text while keeping its meaning.")
	switch params.Tone {
	case isitclear.ToneMoreFormal:
		sb.WriteString(" Make the tone more formal.")
	case isitclear.ToneMoreCasual:
		sb.WriteString(" Make the tone more casual.")
	}
	switch params.Length {
	case isitclear.LengthShorter:
		sb.WriteString(" Make it shorter.")
	case isitclear.LengthLonger:
		sb.WriteString(" Make it longer.")
	}
	sb.WriteString(" Respond with the improved text only, as plain text.\n\nText: ")
	sb.WriteString(strconv.Quote(text))
	return sb.String()
}

// AnalyzeSample analyzes a captured sample and advances its lifecycle to
// analyzed. On failure the sample stays in the analyzing state and should be
// discarded.
func (a *Analyzer) AnalyzeSample(ctx context.Context, s *isitclear.TextSample, opts AnalyzeOptions) (*isitclear.ImprovementResult, error) {
	if err := s.BeginAnalysis(); err != nil {
		return nil, err
	}
	if opts.FieldKind == "" {
		opts.FieldKind = s.FieldKind()
	}
	result, err := a.Analyze(ctx, s.OriginalText(), opts)
	if err != nil {
		return nil, err
	}
	if err := s.CompleteAnalysis(result); err != nil {
		return nil, err
	}
	return result, nil
}

// RecordDecision moves an analyzed sample to accepted or rejected and counts
// the decision.
func (a *Analyzer) RecordDecision(s *isitclear.TextSample, accept bool) error {
	if accept {
		if err := s.Accept(); err != nil {
			return err
		}
		return a.RecordAction(isitclear.ActionAccept)
	}
	if err := s.Reject(); err != nil {
		return err
	}
	return a.RecordAction(isitclear.ActionReject)
}

// RecordAction counts a user decision on a presented result.
func (a *Analyzer) RecordAction(action isitclear.UserAction) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch action {
	case isitclear.ActionAccept:
		a.stats.accepted++
	case isitclear.ActionReject:
		a.stats.rejected++
	default:
		return isitclear.Errorf(isitclear.CodeUnknown, "unknown action %q", action)
	}
	return nil
}

// AssessQuality grades a result.
func (a *Analyzer) AssessQuality(r *isitclear.ImprovementResult) isitclear.Quality {
	return isitclear.AssessQuality(r)
}

func (a *Analyzer) record(text string, r *isitclear.ImprovementResult) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.history.add(text, r, a.now())
	a.stats.analyses++
	a.stats.processing += r.ProcessingTime
}

func (a *Analyzer) recordFailure() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stats.failures++
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
