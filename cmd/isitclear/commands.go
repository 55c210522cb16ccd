package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/nibzard/isitclear"
	"github.com/nibzard/isitclear/analyzer"
	"github.com/nibzard/isitclear/bubbletea"
	"github.com/nibzard/isitclear/channel"
	"github.com/nibzard/isitclear/clipboard"
	"github.com/nibzard/isitclear/fs"
	"github.com/nibzard/isitclear/jsonl"
	themes "github.com/nibzard/isitclear/lipgloss"
	"github.com/nibzard/isitclear/session"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrReviewNeedsFile is returned when batch input and review would both use stdin.
var ErrReviewNeedsFile = errors.New("--review needs an input file: stdin is used for the review UI")

func parseBackend(s string) (isitclear.BackendKind, error) {
	if s == "" {
		return "", nil
	}
	k := isitclear.BackendKind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown backend %q (want %s or %s)", s, isitclear.BackendRewrite, isitclear.BackendPrompt)
	}
	return k, nil
}

func themeFor(name string) (isitclear.Theme, error) {
	switch name {
	case "", "auto":
		return themes.DefaultTheme(), nil
	case "dark":
		return themes.DarkTheme(), nil
	case "light":
		return themes.LightTheme(), nil
	}
	return nil, fmt.Errorf("unknown theme %q (want auto, dark or light)", name)
}

func newReviewer(theme isitclear.Theme, cb isitclear.Clipboard) *bubbletea.Reviewer {
	return bubbletea.NewReviewer(
		bubbletea.WithAltScreen(),
		bubbletea.WithModelOptions(
			bubbletea.WithTheme(theme),
			bubbletea.WithClipboard(cb),
		),
	)
}

func newCheckCmd(c *cli) *cobra.Command {
	var (
		opts      CheckOptions
		backend   string
		length    string
		themeName string
	)

	cmd := &cobra.Command{
		Use:   "check FILE",
		Short: "Suggest a clearer version of a text file",
		Long: `Analyze the text in FILE, show the suggested rewrite with its
changes and write it back to the file when accepted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if opts.Backend, err = parseBackend(backend); err != nil {
				return err
			}
			if opts.Length, err = isitclear.ParseLength(length); err != nil {
				return err
			}
			theme, err := themeFor(themeName)
			if err != nil {
				return err
			}

			svc, err := c.services(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			cb := clipboard.NewSystem(clipboard.WithTerminalFallback(os.Stdout))
			app := &App{
				Analyzer:    svc.analyzer,
				Surface:     fs.NewFileSurface(),
				Presenter:   newReviewer(theme, cb),
				Clipboard:   cb,
				Preferences: svc.prefs,
				Out:         cmd.OutOrStdout(),
				Logger:      c.logger,
			}
			_, err = app.Check(cmd.Context(), args[0], opts)
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&backend, "backend", "", "Primary backend: rewrite or prompt (default rewrite)")
	f.BoolVar(&opts.NoFallback, "no-fallback", false, "Do not retry on the other backend")
	f.StringVar(&opts.Context, "context", "", "Describe where the text is used")
	f.StringVar(&length, "length", "", "Length directive: shorter, as-is or longer")
	f.StringVar(&opts.URL, "url", "", "Page the text belongs to, checked against enabled domains")
	f.BoolVar(&opts.Auto, "auto", false, "Skip texts below the auto-activation word count")
	f.BoolVarP(&opts.Yes, "yes", "y", false, "Accept the suggestion without review")
	f.BoolVar(&opts.Copy, "copy", false, "Copy the accepted text to the clipboard")
	f.StringVar(&themeName, "theme", "auto", "Color theme: auto, dark or light")
	return cmd
}

func newBatchCmd(c *cli) *cobra.Command {
	var (
		opts      BatchOptions
		backend   string
		output    string
		themeName string
	)

	cmd := &cobra.Command{
		Use:   "batch [FILE]",
		Short: "Analyze a JSONL file of texts",
		Long: `Analyze every text in FILE (or stdin) and write one JSONL record
per text. Each input line is an object {"id", "text", "fieldContext"}
or a bare JSON string.

With --review every successful suggestion is presented for a decision,
and decisions are appended to --decisions so an interrupted review can
be resumed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if opts.Backend, err = parseBackend(backend); err != nil {
				return err
			}
			theme, err := themeFor(themeName)
			if err != nil {
				return err
			}

			loader := jsonl.NewLoader()
			var items []analyzer.BatchItem
			if len(args) == 0 || args[0] == "-" {
				if opts.Review {
					return ErrReviewNeedsFile
				}
				items, err = loader.Read(cmd.InOrStdin())
			} else {
				items, err = loader.Load(args[0])
			}
			if err != nil {
				return err
			}

			svc, err := c.services(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			app := &App{
				Analyzer:    svc.analyzer,
				Presenter:   newReviewer(theme, clipboard.NewSystem()),
				Preferences: svc.prefs,
				Out:         cmd.OutOrStdout(),
				Logger:      c.logger,
			}
			opts.OutputPath = output
			report, err := app.Batch(cmd.Context(), items, cmd.OutOrStdout(), opts)
			if err != nil {
				return err
			}
			c.logger.Info("batch finished",
				zap.Int("succeeded", report.Succeeded),
				zap.Int("failed", report.Failed),
				zap.Int("accepted", report.Accepted),
				zap.Int("rejected", report.Rejected),
			)
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVar(&opts.MaxConcurrent, "concurrency", analyzer.DefaultMaxConcurrent, "Texts analyzed at once")
	f.StringVar(&backend, "backend", "", "Primary backend: rewrite or prompt (default rewrite)")
	f.StringVarP(&output, "output", "o", "", "Append records to this file instead of stdout")
	f.BoolVar(&opts.Review, "review", false, "Review each suggestion after the batch")
	f.StringVar(&opts.DecisionsPath, "decisions", "decisions.jsonl", "Review decisions file")
	f.StringVar(&themeName, "theme", "auto", "Color theme: auto, dark or light")
	return cmd
}

func newServeCmd(c *cli) *cobra.Command {
	var idle time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Answer JSON requests on stdin",
		Long: `Read one JSON request per line from stdin and write one JSON
response per line to stdout. Requests are ANALYZE_TEXT, USER_ACTION
and GET_ANALYTICS. Idle backend sessions are released periodically.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.services(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			h := channel.NewHandler(svc.analyzer, channel.WithLogger(c.logger.Named("channel")))
			return runServe(cmd.Context(), h, svc.manager, cmd.InOrStdin(), cmd.OutOrStdout(), idle, c.logger)
		},
	}

	cmd.Flags().DurationVar(&idle, "idle", session.DefaultMaxIdle, "Release sessions unused for this long")
	return cmd
}

// Sweeper releases idle sessions. *session.Manager implements it.
type Sweeper interface {
	SweepIdle(maxIdle time.Duration) int
}

var _ Sweeper = (*session.Manager)(nil)

// minSweepInterval bounds how often idle sessions are swept.
const minSweepInterval = time.Second

// runServe serves requests until r is exhausted or ctx is cancelled,
// sweeping idle sessions every half idle period meanwhile.
func runServe(ctx context.Context, h *channel.Handler, sweeper Sweeper, r io.Reader, w io.Writer, idle time.Duration, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return h.Serve(ctx, r, w)
	})
	g.Go(func() error {
		ticker := time.NewTicker(max(idle/2, minSweepInterval))
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if n := sweeper.SweepIdle(idle); n > 0 {
					logger.Debug("released idle sessions", zap.Int("count", n))
				}
			}
		}
	})
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
