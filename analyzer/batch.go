package analyzer

import (
	"context"
	"time"

	"github.com/nibzard/isitclear"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Batch defaults.
const (
	DefaultMaxConcurrent = 3
	DefaultBatchPause    = 100 * time.Millisecond
)

// BatchItem is one text to analyze in a batch.
type BatchItem struct {
	ID           string `json:"id,omitempty"`
	Text         string `json:"text"`
	FieldContext string `json:"fieldContext,omitempty"`
}

// BatchOptions configure AnalyzeBatch.
type BatchOptions struct {
	// MaxConcurrent is the window size; zero means DefaultMaxConcurrent.
	MaxConcurrent int
	// Pause is the delay between windows; zero means DefaultBatchPause.
	Pause time.Duration
	// Analyze is applied to every item. FieldContext is taken from the item.
	Analyze AnalyzeOptions
}

// BatchOutcome is the result of one batch item. Exactly one of Result and
// Err is set.
type BatchOutcome struct {
	Index  int
	ID     string
	Result *isitclear.ImprovementResult
	Err    error
}

// Success reports whether the item was analyzed.
func (o BatchOutcome) Success() bool {
	return o.Err == nil
}

// AnalyzeBatch analyzes items in consecutive windows of MaxConcurrent. Each
// window runs concurrently and completes before the pause that precedes the
// next one. Outcomes are returned in input order. Item failures are recorded
// per item; a cancelled context fails every item not yet started.
func (a *Analyzer) AnalyzeBatch(ctx context.Context, items []BatchItem, opts BatchOptions) []BatchOutcome {
	size := opts.MaxConcurrent
	if size <= 0 {
		size = DefaultMaxConcurrent
	}
	pause := opts.Pause
	if pause <= 0 {
		pause = DefaultBatchPause
	}

	outcomes := make([]BatchOutcome, len(items))
	for i, it := range items {
		outcomes[i] = BatchOutcome{Index: i, ID: it.ID}
	}

	for start := 0; start < len(items); start += size {
		if start > 0 {
			if err := a.pause(ctx, pause); err != nil {
				failFrom(outcomes, start, err)
				break
			}
		}
		if err := ctx.Err(); err != nil {
			failFrom(outcomes, start, err)
			break
		}

		end := min(start+size, len(items))
		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				opts := opts.Analyze
				opts.FieldContext = items[i].FieldContext
				result, err := a.Analyze(ctx, items[i].Text, opts)
				outcomes[i].Result = result
				outcomes[i].Err = err
				return nil
			})
		}
		_ = g.Wait()

		a.logger.Debug("batch window completed",
			zap.Int("start", start),
			zap.Int("end", end),
			zap.Int("total", len(items)))
	}
	return outcomes
}

func failFrom(outcomes []BatchOutcome, start int, err error) {
	for i := start; i < len(outcomes); i++ {
		outcomes[i].Err = err
	}
}
