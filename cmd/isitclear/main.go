package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/nibzard/isitclear"
	"github.com/nibzard/isitclear/analyzer"
	"github.com/nibzard/isitclear/fs"
	"github.com/nibzard/isitclear/gemini"
	"github.com/nibzard/isitclear/session"
	"github.com/nibzard/isitclear/worddiff"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds settings from the environment and global flags.
type Config struct {
	APIKey    string
	Model     string
	ConfigDir string
	// Cache enables the on-disk response cache in CacheDir.
	Cache    bool
	CacheDir string
	Timeout  time.Duration
	Debug    bool
}

// Environment variables.
const (
	envAPIKey    = "GEMINI_API_KEY"
	envModel     = "ISITCLEAR_MODEL"
	envConfigDir = "ISITCLEAR_CONFIG_DIR"
)

// configFromEnv reads the environment, applying defaults for unset values.
func configFromEnv(getenv func(string) string) Config {
	cfg := Config{
		APIKey:    getenv(envAPIKey),
		Model:     getenv(envModel),
		ConfigDir: getenv(envConfigDir),
	}
	if cfg.Model == "" {
		cfg.Model = gemini.DefaultModel
	}
	if cfg.ConfigDir == "" {
		cfg.ConfigDir = fs.DefaultConfigDir()
	}
	return cfg
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd(os.Getenv).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// cli is the state shared by all commands.
type cli struct {
	cfg    Config
	logger *zap.Logger
}

func newRootCmd(getenv func(string) string) *cobra.Command {
	c := &cli{cfg: configFromEnv(getenv), logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "isitclear",
		Short: "Rewrite text for clarity",
		Long: `isitclear suggests clearer rewrites of short texts.

A structured rewrite model is tried first; when it fails, a free-form
prompt model is tried once. Suggestions are reviewed in the terminal and
written back only when accepted.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.initLogger()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = c.logger.Sync()
		},
	}

	flags := root.PersistentFlags()
	flags.BoolVar(&c.cfg.Debug, "debug", false, "Enable debug logging")
	flags.StringVar(&c.cfg.Model, "model", c.cfg.Model, "Gemini model (or set "+envModel+")")
	flags.StringVar(&c.cfg.ConfigDir, "config-dir", c.cfg.ConfigDir, "Preferences directory (or set "+envConfigDir+")")
	flags.BoolVar(&c.cfg.Cache, "cache", false, "Cache backend responses on disk")
	flags.StringVar(&c.cfg.CacheDir, "cache-dir", fs.DefaultCacheDir(), "Response cache directory")
	flags.DurationVar(&c.cfg.Timeout, "timeout", 30*time.Second, "Per-request backend timeout")

	root.AddCommand(
		newCheckCmd(c),
		newBatchCmd(c),
		newServeCmd(c),
		newPrefsCmd(c),
	)
	return root
}

func (c *cli) initLogger() error {
	config := zap.NewProductionConfig()
	if c.cfg.Debug {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := config.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	c.logger = logger
	return nil
}

func (c *cli) preferenceStore() *fs.PreferenceStore {
	return fs.NewPreferenceStore(c.cfg.ConfigDir)
}

// services is the wired analysis stack.
type services struct {
	client   *gemini.Client
	manager  *session.Manager
	analyzer *analyzer.Analyzer
	prefs    *fs.PreferenceStore
}

func (s *services) Close() error {
	err := s.manager.Close()
	if cerr := s.client.Close(); err == nil {
		err = cerr
	}
	return err
}

// services builds the Gemini backends, the session manager and the analyzer.
func (c *cli) services(ctx context.Context) (*services, error) {
	if c.cfg.APIKey == "" {
		return nil, fmt.Errorf("%s environment variable required", envAPIKey)
	}

	client, err := gemini.NewClient(ctx, c.cfg.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	opts := []gemini.Option{
		gemini.WithModel(c.cfg.Model),
		gemini.WithTimeout(c.cfg.Timeout),
		gemini.WithLogger(c.logger.Named("gemini")),
		gemini.WithDiffer(worddiff.NewDiffer()),
	}
	backends := []isitclear.Backend{
		gemini.NewRewriteBackend(client, opts...),
		gemini.NewPromptBackend(client, opts...),
	}
	if c.cfg.Cache {
		for i, b := range backends {
			backends[i] = fs.NewCachingBackend(b, filepath.Join(c.cfg.CacheDir, string(b.Kind())))
		}
	}

	prefs := c.preferenceStore()
	manager := session.NewManager(backends, session.WithLogger(c.logger.Named("session")))
	a := analyzer.New(manager,
		analyzer.WithLogger(c.logger.Named("analyzer")),
		analyzer.WithPreferenceStore(prefs),
	)

	return &services{client: client, manager: manager, analyzer: a, prefs: prefs}, nil
}
