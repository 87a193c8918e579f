// Package config loads settings from a TOML file and ASSEMBLIES_*
// environment variables and turns them into options for the acquisition
// engine, the reference resolver and the compilation graph.
//
// Example file:
//
//	cache_dir = "/var/cache/assemblies"
//	targets = ["net48", "netstandard2.0"]
//
//	[feed]
//	name = "nuget"
//	timeout = "30s"
//
//	[acquire]
//	parallelism = 8
//	categories = ["ref", "lib"]
//
//	[references]
//	metadata_root = "/opt/winmd"
//
//	[log]
//	level = "debug"
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"

	"github.com/git-pkgs/assemblies/acquire"
	"github.com/git-pkgs/assemblies/client"
	"github.com/git-pkgs/assemblies/compilation"
	"github.com/git-pkgs/assemblies/framework"
	"github.com/git-pkgs/assemblies/internal/core"
	"github.com/git-pkgs/assemblies/platform"
	"github.com/git-pkgs/assemblies/refs"
	"github.com/git-pkgs/assemblies/version"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ASSEMBLIES_"

// Config is the file format.
type Config struct {
	CacheDir string     `toml:"cache_dir"`
	Targets  []string   `toml:"targets"`
	Feed     Feed       `toml:"feed"`
	Acquire  Acquire    `toml:"acquire"`
	Refs     References `toml:"references"`
	Graph    Graph      `toml:"graph"`
	Log      Log        `toml:"log"`
}

// Feed selects and tunes the package feed.
type Feed struct {
	Name       string        `toml:"name"`
	URL        string        `toml:"url"`
	Timeout    time.Duration `toml:"timeout"`
	MaxRetries int           `toml:"max_retries"`
	UserAgent  string        `toml:"user_agent"`
}

// Acquire tunes the acquisition engine.
type Acquire struct {
	Parallelism  int      `toml:"parallelism"`
	Dependencies *bool    `toml:"dependencies"`
	Categories   []string `toml:"categories"`
}

// References tunes the assembly reference resolver.
type References struct {
	CoreLibrary         string `toml:"core_library"`
	CoreLibraryVersion  string `toml:"core_library_version"`
	ReferenceAssemblies string `toml:"reference_assemblies"`
	MetadataRoot        string `toml:"metadata_root"`
}

// Graph tunes the compilation graph.
type Graph struct {
	Strict    bool `toml:"strict"`
	CacheSize int  `toml:"cache_size"`
}

// Log configures the logger.
type Log struct {
	Level      string `toml:"level"`
	Timestamps bool   `toml:"timestamps"`
}

// Default returns the settings used when nothing is configured.
func Default() *Config {
	cache := filepath.Join(os.TempDir(), "assemblies")
	if dir, err := os.UserCacheDir(); err == nil {
		cache = filepath.Join(dir, "assemblies")
	}
	return &Config{
		CacheDir: cache,
		Feed: Feed{
			Name:       "nuget",
			Timeout:    30 * time.Second,
			MaxRetries: 5,
		},
		Log: Log{Level: "info"},
	}
}

// Load reads path over the defaults and applies environment overrides.
// An empty path or a missing file leaves the defaults in place.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	str("CACHE_DIR", &c.CacheDir)
	str("FEED", &c.Feed.Name)
	str("FEED_URL", &c.Feed.URL)
	str("USER_AGENT", &c.Feed.UserAgent)
	str("CORE_LIBRARY", &c.Refs.CoreLibrary)
	str("CORE_LIBRARY_VERSION", &c.Refs.CoreLibraryVersion)
	str("REFERENCE_ASSEMBLIES", &c.Refs.ReferenceAssemblies)
	str("METADATA_ROOT", &c.Refs.MetadataRoot)
	str("LOG_LEVEL", &c.Log.Level)

	if v, ok := lookup(EnvPrefix + "TARGETS"); ok {
		c.Targets = splitList(v)
	}
	if v, ok := lookup(EnvPrefix + "CATEGORIES"); ok {
		c.Acquire.Categories = splitList(v)
	}
	if v, ok := lookup(EnvPrefix + "PARALLELISM"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sPARALLELISM: %w", EnvPrefix, err)
		}
		c.Acquire.Parallelism = n
	}
	if v, ok := lookup(EnvPrefix + "DEPENDENCIES"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sDEPENDENCIES: %w", EnvPrefix, err)
		}
		c.Acquire.Dependencies = &b
	}
	if v, ok := lookup(EnvPrefix + "STRICT"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sSTRICT: %w", EnvPrefix, err)
		}
		c.Graph.Strict = b
	}
	if v, ok := lookup(EnvPrefix + "FEED_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sFEED_TIMEOUT: %w", EnvPrefix, err)
		}
		c.Feed.Timeout = d
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks the values that are parsed later.
func (c *Config) Validate() error {
	if c.CacheDir == "" {
		return errors.New("config: cache_dir is empty")
	}
	if _, err := c.TargetPlatforms(); err != nil {
		return fmt.Errorf("config: targets: %w", err)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: log level: %w", err)
	}
	if c.Refs.CoreLibraryVersion != "" {
		if _, err := version.Parse(c.Refs.CoreLibraryVersion); err != nil {
			return fmt.Errorf("config: core_library_version: %w", err)
		}
	}
	return nil
}

// TargetPlatforms parses the target priority list.
func (c *Config) TargetPlatforms() ([]framework.Identifier, error) {
	return framework.ParseList(c.Targets...)
}

// Logger creates a logger writing to w at the configured level.
func (c *Config) Logger(w io.Writer) *log.Logger {
	level, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		level = log.InfoLevel
	}
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: c.Log.Timestamps,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// Client creates the HTTP client for network feeds.
func (c *Config) Client() *client.Client {
	var opts []client.Option
	if c.Feed.Timeout > 0 {
		opts = append(opts, client.WithTimeout(c.Feed.Timeout))
	}
	if c.Feed.MaxRetries > 0 {
		opts = append(opts, client.WithMaxRetries(c.Feed.MaxRetries))
	}
	cl := client.NewClient(opts...)
	if c.Feed.UserAgent != "" {
		cl = cl.WithUserAgent(c.Feed.UserAgent)
	}
	return cl
}

// OpenFeed creates the configured feed. Feed implementations must be
// registered, usually by importing the all package.
func (c *Config) OpenFeed() (core.Feed, error) {
	return core.New(c.Feed.Name, c.Feed.URL, c.Client())
}

// EngineOptions returns the acquisition engine options.
func (c *Config) EngineOptions(logger *log.Logger) []acquire.Option {
	opts := []acquire.Option{acquire.WithLogger(logger)}
	if c.Acquire.Parallelism > 0 {
		opts = append(opts, acquire.WithParallelism(c.Acquire.Parallelism))
	}
	if c.Acquire.Dependencies != nil {
		opts = append(opts, acquire.WithDependencies(*c.Acquire.Dependencies))
	}
	if len(c.Acquire.Categories) > 0 {
		opts = append(opts, acquire.WithCategories(c.Acquire.Categories...))
	}
	return opts
}

// ResolverOptions returns the reference resolver options.
func (c *Config) ResolverOptions(logger *log.Logger) []refs.Option {
	opts := []refs.Option{refs.WithLogger(logger)}
	if c.Refs.CoreLibrary != "" {
		v, _ := version.Parse(c.Refs.CoreLibraryVersion)
		opts = append(opts, refs.WithCoreLibrary(c.Refs.CoreLibrary, v))
	}
	if c.Refs.ReferenceAssemblies != "" {
		opts = append(opts, refs.WithReferenceAssembliesRoot(c.Refs.ReferenceAssemblies))
	}
	if c.Refs.MetadataRoot != "" {
		opts = append(opts, refs.WithMetadataRoot(c.Refs.MetadataRoot))
	}
	return opts
}

// GraphOptions returns the compilation graph options.
func (c *Config) GraphOptions(logger *log.Logger) []compilation.Option {
	opts := []compilation.Option{
		compilation.WithLogger(logger),
		compilation.WithStrict(c.Graph.Strict),
	}
	if c.Graph.CacheSize > 0 {
		opts = append(opts, compilation.WithCacheSize(c.Graph.CacheSize))
	}
	return opts
}

// PlatformDeps returns the collaborators for platform extractors.
func (c *Config) PlatformDeps(acquirer platform.Acquirer, logger *log.Logger) platform.Deps {
	return platform.Deps{
		Acquirer:     acquirer,
		MetadataRoot: c.Refs.MetadataRoot,
		Logger:       logger,
	}
}
