package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/nibzard/isitclear"
	"github.com/nibzard/isitclear/analyzer"
	"github.com/nibzard/isitclear/jsonl"
	"go.uber.org/zap"
)

// ErrDomainDisabled is returned when preferences disable the field's page.
var ErrDomainDisabled = errors.New("analysis is disabled for this domain")

// ErrBelowThreshold is returned when automatic activation sees too few words.
var ErrBelowThreshold = errors.New("text is below the auto-activation word count")

// Analyzer is the subset of *analyzer.Analyzer the commands use.
type Analyzer interface {
	AnalyzeSample(ctx context.Context, s *isitclear.TextSample, opts analyzer.AnalyzeOptions) (*isitclear.ImprovementResult, error)
	AnalyzeBatch(ctx context.Context, items []analyzer.BatchItem, opts analyzer.BatchOptions) []analyzer.BatchOutcome
	RecordDecision(s *isitclear.TextSample, accept bool) error
	RecordAction(action isitclear.UserAction) error
}

var _ Analyzer = (*analyzer.Analyzer)(nil)

// App encapsulates the application logic for testing.
type App struct {
	Analyzer    Analyzer
	Surface     isitclear.InputSurface
	Presenter   isitclear.Presenter
	Clipboard   isitclear.Clipboard // optional
	Preferences isitclear.PreferenceStore
	Out         io.Writer
	Logger      *zap.Logger
	Now         func() time.Time
}

// CheckOptions configure App.Check.
type CheckOptions struct {
	Backend    isitclear.BackendKind
	NoFallback bool
	Context    string
	Length     isitclear.LengthDirective
	// URL is the page the field belongs to, checked against the domain lists.
	URL string
	// Auto applies the auto-activation word threshold.
	Auto bool
	// Yes accepts the suggestion without presenting it.
	Yes  bool
	Copy bool
}

// CheckReport describes the outcome of App.Check.
type CheckReport struct {
	Result *isitclear.ImprovementResult
	Action isitclear.UserAction
}

// Check analyzes the field at ref, presents the suggestion and writes it
// back when accepted.
func (a *App) Check(ctx context.Context, ref string, opts CheckOptions) (*CheckReport, error) {
	prefs, err := a.Preferences.Load()
	if err != nil {
		return nil, err
	}
	if opts.URL != "" && !prefs.IsDomainEnabled(opts.URL) {
		return nil, ErrDomainDisabled
	}

	field, err := a.Surface.DetectField(ref)
	if err != nil {
		return nil, err
	}
	sample, err := isitclear.NewTextSample(field.Text, field.Kind, field.Locator)
	if err != nil {
		return nil, err
	}
	if opts.Auto && !prefs.ShouldAutoActivate(sample.WordCount()) {
		return nil, ErrBelowThreshold
	}

	result, err := a.Analyzer.AnalyzeSample(ctx, sample, analyzer.AnalyzeOptions{
		FieldKind:    field.Kind,
		FieldContext: opts.Context,
		Preferences:  prefs,
		Backend:      opts.Backend,
		NoFallback:   opts.NoFallback,
		Length:       opts.Length,
	})
	if err != nil {
		return nil, err
	}
	report := &CheckReport{Result: result, Action: isitclear.ActionReject}

	if result.Unchanged() {
		fmt.Fprintln(a.Out, "No improvements suggested.")
		return report, nil
	}

	action := isitclear.ActionAccept
	if !opts.Yes {
		action, err = a.Presenter.Present(ctx, result.View(), prefs.ShowChangeDetails())
		if err != nil {
			return nil, err
		}
	}
	report.Action = action

	accepted := action == isitclear.ActionAccept
	if err := a.Analyzer.RecordDecision(sample, accepted); err != nil {
		return nil, err
	}
	if !accepted {
		fmt.Fprintln(a.Out, "Suggestion rejected.")
		return report, nil
	}

	if err := a.Surface.ReplaceText(field.Locator, result.ImprovedText, true); err != nil {
		return nil, err
	}
	fmt.Fprintf(a.Out, "Applied %d change(s) to %s.\n", len(result.Changes), field.Locator)

	if opts.Copy && a.Clipboard != nil {
		if err := a.Clipboard.Copy(result.ImprovedText); err != nil {
			a.logger().Warn("copy to clipboard failed", zap.Error(err))
		}
	}
	return report, nil
}

// BatchOptions configure App.Batch.
type BatchOptions struct {
	MaxConcurrent int
	Backend       isitclear.BackendKind
	// OutputPath receives the records, appended, instead of the writer.
	OutputPath string
	// Review presents every successful result not yet decided in
	// DecisionsPath and records the decisions there.
	Review        bool
	DecisionsPath string
}

// BatchReport summarizes App.Batch.
type BatchReport struct {
	Succeeded int
	Failed    int
	Accepted  int
	Rejected  int
}

// Batch analyzes items, writes one JSONL record per item to w (or appends
// them to OutputPath) and optionally reviews the successful results.
func (a *App) Batch(ctx context.Context, items []analyzer.BatchItem, w io.Writer, opts BatchOptions) (*BatchReport, error) {
	prefs, err := a.Preferences.Load()
	if err != nil {
		return nil, err
	}

	outcomes := a.Analyzer.AnalyzeBatch(ctx, items, analyzer.BatchOptions{
		MaxConcurrent: opts.MaxConcurrent,
		Analyze: analyzer.AnalyzeOptions{
			Preferences: prefs,
			Backend:     opts.Backend,
		},
	})

	report := &BatchReport{}
	records := make([]jsonl.Record, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Success() {
			report.Succeeded++
		} else {
			report.Failed++
			a.logger().Warn("batch item failed", zap.String("id", o.ID), zap.Error(o.Err))
		}
		records = append(records, jsonl.NewRecord(o))
	}
	saver := jsonl.NewSaver()
	if opts.OutputPath != "" {
		err = saver.Save(opts.OutputPath, records...)
	} else {
		err = saver.Write(w, records...)
	}
	if err != nil {
		return nil, err
	}

	if !opts.Review {
		return report, nil
	}
	if err := a.review(ctx, outcomes, prefs.ShowChangeDetails(), opts.DecisionsPath, report); err != nil {
		return report, err
	}
	return report, nil
}

func (a *App) review(ctx context.Context, outcomes []analyzer.BatchOutcome, showDetails bool, path string, report *BatchReport) error {
	store := jsonl.NewStore()
	var decisions []jsonl.Decision
	if path != "" {
		var err error
		if decisions, err = store.Load(path); err != nil {
			return err
		}
	}
	decided := jsonl.Decided(decisions)

	for _, o := range outcomes {
		if !o.Success() || o.Result.Unchanged() || decided[o.ID] {
			continue
		}
		action, err := a.Presenter.Present(ctx, o.Result.View(), showDetails)
		if err != nil {
			return err
		}
		if err := a.Analyzer.RecordAction(action); err != nil {
			return err
		}
		if action == isitclear.ActionAccept {
			report.Accepted++
		} else {
			report.Rejected++
		}

		decisions = append(decisions, jsonl.Decision{
			ID:           o.ID,
			Action:       action,
			OriginalText: o.Result.OriginalText,
			ImprovedText: o.Result.ImprovedText,
			DecidedAt:    a.now(),
		})
		if path != "" {
			// Every decision is persisted before the next item is presented.
			if err := store.Save(path, decisions); err != nil {
				return err
			}
		}
	}
	return nil
}

func (a *App) logger() *zap.Logger {
	if a.Logger == nil {
		return zap.NewNop()
	}
	return a.Logger
}

func (a *App) now() time.Time {
	if a.Now == nil {
		return time.Now()
	}
	return a.Now()
}
