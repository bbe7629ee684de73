// Package cli implements the debfetch command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/matzehuels/debfetch/pkg/archive"
	"github.com/matzehuels/debfetch/pkg/buildinfo"
	"github.com/matzehuels/debfetch/pkg/cache"
	"github.com/matzehuels/debfetch/pkg/config"
	"github.com/matzehuels/debfetch/pkg/debian"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// In is read by the line prompt. Defaults to os.Stdin.
	In io.Reader

	flags globalFlags
}

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	mirror     string
	suite      string
	component  string
	arch       string
	cacheTTL   time.Duration
	redisAddr  string
	refresh    bool
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		In:     os.Stdin,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
// The root command itself runs the fetch flow.
func (c *CLI) RootCommand() *cobra.Command {
	root := c.fetchCommand()
	root.Version = buildinfo.Version
	root.SilenceUsage = true
	root.SetVersionTemplate(buildinfo.Template())

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cmd.SetContext(withLogger(cmd.Context(), c.Logger))
		return nil
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.flags.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/debfetch/config.toml)")
	pf.StringVar(&c.flags.mirror, "mirror", config.DefaultMirror, "archive mirror root URL")
	pf.StringVar(&c.flags.suite, "suite", config.DefaultSuite, "distribution suite")
	pf.StringVar(&c.flags.component, "component", config.DefaultComponent, "archive component")
	pf.StringVar(&c.flags.arch, "arch", config.DefaultArchitecture, "binary architecture")
	pf.DurationVar(&c.flags.cacheTTL, "cache-ttl", 0, "cache the index for this long (0 disables caching)")
	pf.StringVar(&c.flags.redisAddr, "redis", "", "cache the index in Redis at host:port")
	pf.BoolVar(&c.flags.refresh, "refresh", false, "ignore any cached index")

	fetchCmd := c.fetchCommand()
	fetchCmd.Use = "fetch <package>..."
	fetchCmd.Short = "Download packages (same as running debfetch with package names)"
	fetchCmd.Example = "  debfetch fetch graph"
	root.AddCommand(fetchCmd)
	root.AddCommand(c.showCommand())
	root.AddCommand(c.resolveCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig reads the config file and applies explicitly set flags on top.
func (c *CLI) loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(c.flags.configPath)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("mirror") {
		cfg.Mirror = c.flags.mirror
	}
	if flags.Changed("suite") {
		cfg.Suite = c.flags.suite
	}
	if flags.Changed("component") {
		cfg.Component = c.flags.component
	}
	if flags.Changed("arch") {
		cfg.Architecture = c.flags.arch
	}
	if flags.Changed("cache-ttl") {
		cfg.Cache.TTL = config.Duration(c.flags.cacheTTL)
	}
	if flags.Changed("redis") {
		cfg.Cache.RedisAddr = c.flags.redisAddr
	}
	return cfg, nil
}

// newCache returns the index cache selected by cfg. Caching is off unless a
// positive TTL is configured.
func newCache(ctx context.Context, cfg config.Config) (cache.Cache, error) {
	if cfg.Cache.TTL <= 0 {
		return cache.NewNullCache(), nil
	}
	if cfg.Cache.RedisAddr != "" {
		return cache.NewRedisCache(ctx, cfg.Cache.RedisAddr)
	}
	dir, err := cfg.CacheDir()
	if err != nil {
		return nil, fmt.Errorf("cache directory: %w", err)
	}
	return cache.NewFileCache(dir)
}

// newClient creates the mirror client for cfg. The returned cleanup closes
// the cache.
func (c *CLI) newClient(ctx context.Context, cfg config.Config) (*archive.Client, func(), error) {
	cc, err := newCache(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open cache: %w", err)
	}
	client := archive.New(cfg,
		archive.WithCache(cc, cfg.Cache.TTL.Std()),
		archive.WithLogger(c.Logger))
	return client, func() { cc.Close() }, nil
}

// indexSource fetches the index with a spinner on interactive terminals.
type indexSource struct {
	client *archive.Client
	logger *log.Logger
}

func (s indexSource) FetchIndex(ctx context.Context, refresh bool) (*debian.Index, error) {
	s.logger.Info("downloading package index", "url", s.client.IndexURL())
	prog := newProgress(s.logger)

	if isTerminal(os.Stderr) {
		sp := newSpinnerWithContext(ctx, "Downloading Packages.gz...")
		sp.Start()
		defer sp.Stop()
	}

	idx, err := s.client.FetchIndex(ctx, refresh)
	if err != nil {
		return nil, err
	}
	prog.done(fmt.Sprintf("loaded %d packages", idx.Len()))
	return idx, nil
}

// loadIndex builds a client from the flags and config and fetches the index.
func (c *CLI) loadIndex(cmd *cobra.Command) (*debian.Index, error) {
	ctx := cmd.Context()
	cfg, err := c.loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client, cleanup, err := c.newClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer cleanup()
	return indexSource{client: client, logger: loggerFromContext(ctx)}.FetchIndex(ctx, c.flags.refresh)
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
