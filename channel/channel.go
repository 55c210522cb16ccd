// Package channel dispatches the typed request/response message contract
// and serves it over a JSON-lines stream.
package channel

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nibzard/isitclear"
	"github.com/nibzard/isitclear/analyzer"
	"go.uber.org/zap"
)

// Service is the orchestrator surface the channel exposes.
// *analyzer.Analyzer implements it.
type Service interface {
	Analyze(ctx context.Context, text string, opts analyzer.AnalyzeOptions) (*isitclear.ImprovementResult, error)
	RecordAction(action isitclear.UserAction) error
	Analytics() analyzer.Analytics
}

var _ Service = (*analyzer.Analyzer)(nil)

// maxLineSize is the maximum size for a single request line.
const maxLineSize = 1024 * 1024

// Handler answers channel requests.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the handler logger.
func WithLogger(l *zap.Logger) Option {
	return func(h *Handler) {
		h.logger = l
	}
}

// NewHandler creates a Handler over service.
func NewHandler(service Service, opts ...Option) *Handler {
	h := &Handler{service: service, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle dispatches req and returns its response. Failures are reported in
// the response, never as a Go error.
func (h *Handler) Handle(ctx context.Context, req isitclear.Request) any {
	switch req.Type {
	case isitclear.MessageAnalyzeText:
		return h.analyze(ctx, req)
	case isitclear.MessageUserAction:
		return h.userAction(req)
	case isitclear.MessageGetAnalytics:
		return h.analytics()
	}
	return isitclear.ErrorResponse{Success: false, Error: fmt.Sprintf("unknown message type %q", req.Type)}
}

func (h *Handler) analyze(ctx context.Context, req isitclear.Request) isitclear.AnalyzeResponse {
	result, err := h.service.Analyze(ctx, req.Text, analyzer.AnalyzeOptions{
		FieldKind:    req.FieldKind,
		FieldContext: req.FieldContext,
		Preferences:  req.Preferences,
		Backend:      req.Backend,
	})
	if err != nil {
		h.logger.Info("analysis failed", zap.String("code", string(isitclear.ErrorCode(err))), zap.Error(err))
		return isitclear.AnalyzeResponse{
			Success:   false,
			Error:     isitclear.ErrorMessage(err),
			ErrorCode: isitclear.ErrorCode(err),
		}
	}
	view := result.View()
	quality := isitclear.AssessQuality(result)
	return isitclear.AnalyzeResponse{Success: true, Result: &view, Quality: &quality}
}

func (h *Handler) userAction(req isitclear.Request) isitclear.ActionResponse {
	if req.AnalysisResult == nil {
		return isitclear.ActionResponse{Success: false, Error: "missing analysisResult"}
	}
	if err := h.service.RecordAction(req.Action); err != nil {
		return isitclear.ActionResponse{Success: false, Error: isitclear.ErrorMessage(err)}
	}
	h.logger.Debug("user action recorded",
		zap.String("action", string(req.Action)),
		zap.String("backend", string(req.AnalysisResult.BackendKind)))
	return isitclear.ActionResponse{Success: true}
}

func (h *Handler) analytics() isitclear.AnalyticsResponse {
	a := h.service.Analytics()
	return isitclear.AnalyticsResponse{
		AnalysisCount:           a.AnalysisCount,
		AcceptanceRate:          a.AcceptanceRate,
		AverageProcessingTimeMs: float64(a.AverageProcessingTime) / float64(time.Millisecond),
	}
}

// Serve reads one JSON request per line from r and writes one JSON response
// per line to w, in order, until r is exhausted or ctx is done. Blank lines
// are skipped. Malformed lines get an error response. Serve returns as soon
// as ctx is done, even while a read is blocked; the blocked read is left to
// the reader's owner to end.
func (h *Handler) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	lines, readErr := readLines(ctx, r)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		var text string
		var ok bool
		select {
		case <-ctx.Done():
			return ctx.Err()
		case text, ok = <-lines:
		}
		if !ok {
			if err := <-readErr; err != nil {
				return err
			}
			return ctx.Err()
		}

		line := strings.TrimSpace(text)
		if line == "" {
			continue
		}

		var resp any
		var req isitclear.Request
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			resp = isitclear.ErrorResponse{Success: false, Error: fmt.Sprintf("malformed request: %v", err)}
		} else {
			resp = h.Handle(ctx, req)
		}
		if err := enc.Encode(resp); err != nil {
			return err
		}
	}
}

// readLines scans r on its own goroutine. The lines channel is closed when
// r is exhausted or ctx is done; readErr then yields the scan error, or nil.
func readLines(ctx context.Context, r io.Reader) (<-chan string, <-chan error) {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 64*1024), maxLineSize)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				readErr <- nil
				return
			}
		}
		readErr <- scanner.Err()
	}()
	return lines, readErr
}
