// Package config holds the run configuration of debfetch.
//
// A [Config] is an explicit value built once at startup and passed to every
// component; nothing reads ambient globals. Values are layered:
//
//  1. [Default] (the Debian bookworm main amd64 archive on deb.debian.org)
//  2. a TOML file, see [Load]
//  3. command-line flags applied by the CLI
//
// Example config.toml:
//
//	mirror = "http://deb.debian.org/debian/"
//	suite = "bookworm"
//	component = "main"
//	architecture = "amd64"
//	output_dir = "/srv/debs"
//	index_timeout = "10s"
//	retries = 1
//	jobs = 4
//
//	[cache]
//	ttl = "6h"
//	redis_addr = "localhost:6379"
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/debfetch/pkg/buildinfo"
	apperrors "github.com/matzehuels/debfetch/pkg/errors"
)

const (
	appName = "debfetch"

	DefaultMirror       = "http://deb.debian.org/debian/"
	DefaultSuite        = "bookworm"
	DefaultComponent    = "main"
	DefaultArchitecture = "amd64"
	DefaultIndexTimeout = 10 * time.Second
	DefaultRetries      = 1
	DefaultJobs         = 1
)

// Config configures index retrieval, resolution and downloads.
type Config struct {
	Mirror       string   `toml:"mirror"`        // Archive root URL, ends with "/"
	Suite        string   `toml:"suite"`         // Distribution codename (bookworm, trixie, ...)
	Component    string   `toml:"component"`     // Archive area (main, contrib, non-free)
	Architecture string   `toml:"architecture"`  // Binary architecture (amd64, arm64, ...)
	OutputDir    string   `toml:"output_dir"`    // Download directory (empty: working directory)
	IndexTimeout Duration `toml:"index_timeout"` // Bound on the index download
	Retries      int      `toml:"retries"`       // Index fetch attempts (1: no retries)
	Jobs         int      `toml:"jobs"`          // Concurrent package downloads
	UserAgent    string   `toml:"user_agent"`    // User-Agent header sent to the mirror
	Cache        Cache    `toml:"cache"`
}

// Cache configures optional index caching.
type Cache struct {
	TTL       Duration `toml:"ttl"`        // 0 disables caching
	RedisAddr string   `toml:"redis_addr"` // Use Redis instead of the file cache
	Dir       string   `toml:"dir"`        // File cache directory (empty: XDG cache dir)
}

// Duration is a time.Duration decoded from strings like "10s" or "6h".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Mirror:       DefaultMirror,
		Suite:        DefaultSuite,
		Component:    DefaultComponent,
		Architecture: DefaultArchitecture,
		IndexTimeout: Duration(DefaultIndexTimeout),
		Retries:      DefaultRetries,
		Jobs:         DefaultJobs,
		UserAgent:    buildinfo.UserAgent(),
	}
}

// Load reads the TOML file at path on top of [Default].
//
// If path is empty the default location is used ([DefaultPath]) and a
// missing file is not an error. An explicitly named file must exist.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return cfg, nil
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, apperrors.Wrap(apperrors.ErrCodeInvalidConfig, err, "read config %s", path)
	}

	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return cfg, apperrors.Wrap(apperrors.ErrCodeInvalidConfig, err, "parse config %s", path)
	}
	return cfg, nil
}

// DefaultPath returns $XDG_CONFIG_HOME/debfetch/config.toml, falling back to
// ~/.config/debfetch/config.toml.
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

// CacheDir returns the file cache directory: Cache.Dir if set, otherwise
// $XDG_CACHE_HOME/debfetch or ~/.cache/debfetch.
func (c Config) CacheDir() (string, error) {
	if c.Cache.Dir != "" {
		return c.Cache.Dir, nil
	}
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// MirrorURL returns the mirror root with a trailing slash.
func (c Config) MirrorURL() string {
	if strings.HasSuffix(c.Mirror, "/") {
		return c.Mirror
	}
	return c.Mirror + "/"
}

// IndexPath returns the index location relative to the mirror root, e.g.
// "dists/bookworm/main/binary-amd64/Packages.gz".
func (c Config) IndexPath() string {
	return fmt.Sprintf("dists/%s/%s/binary-%s/Packages.gz", c.Suite, c.Component, c.Architecture)
}

// IndexURL returns the absolute index URL.
func (c Config) IndexURL() string {
	return c.MirrorURL() + c.IndexPath()
}

// ResolveOutputDir returns OutputDir as an absolute path, defaulting to the
// working directory.
func (c Config) ResolveOutputDir() (string, error) {
	dir := c.OutputDir
	if dir == "" {
		return os.Getwd()
	}
	return filepath.Abs(dir)
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if err := apperrors.ValidateURL(c.Mirror); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInvalidConfig, err, "mirror %q", c.Mirror)
	}
	for name, v := range map[string]string{"suite": c.Suite, "component": c.Component, "architecture": c.Architecture} {
		if v == "" || strings.ContainsAny(v, "/\\ ") {
			return apperrors.New(apperrors.ErrCodeInvalidConfig, "invalid %s %q", name, v)
		}
	}
	if c.Jobs < 1 {
		return apperrors.New(apperrors.ErrCodeInvalidConfig, "jobs must be at least 1, got %d", c.Jobs)
	}
	if c.Retries < 1 {
		return apperrors.New(apperrors.ErrCodeInvalidConfig, "retries must be at least 1, got %d", c.Retries)
	}
	if c.IndexTimeout < 0 || c.Cache.TTL < 0 {
		return apperrors.New(apperrors.ErrCodeInvalidConfig, "durations must not be negative")
	}
	return nil
}
