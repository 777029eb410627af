// Package config loads the YAML configuration of headline.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/entrhq/headline/pkg/login"
	"github.com/entrhq/headline/pkg/media"
	"github.com/entrhq/headline/pkg/platform"
	"github.com/entrhq/headline/pkg/publish"
	"github.com/entrhq/headline/pkg/session"
)

// Environment overrides.
const (
	EnvCookiesFile = "HEADLINE_COOKIES_FILE"
	EnvHeadless    = "HEADLINE_HEADLESS"
	EnvAddr        = "HEADLINE_ADDR"
)

// MinBatchSpacing is the smallest allowed pause between batch records.
const MinBatchSpacing = time.Second

// Config is the complete configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Session  SessionConfig  `yaml:"session"`
	Browser  BrowserConfig  `yaml:"browser"`
	Login    LoginConfig    `yaml:"login"`
	Publish  PublishConfig  `yaml:"publish"`
	Media    MediaConfig    `yaml:"media"`
	Platform PlatformConfig `yaml:"platform"`
	History  HistoryConfig  `yaml:"history"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig configures the HTTP front end.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// Debug switches gin into debug mode.
	Debug bool `yaml:"debug"`
}

// SessionConfig locates the session file and the probe target.
type SessionConfig struct {
	CookiesFile string `yaml:"cookies_file"`
	Homepage    string `yaml:"homepage"`
}

// BrowserConfig configures the controlled browser.
type BrowserConfig struct {
	Headless  bool   `yaml:"headless"`
	UserAgent string `yaml:"user_agent"`

	// MaxConcurrent caps the workflow runs holding a browser at once.
	MaxConcurrent int64 `yaml:"max_concurrent"`
}

// LoginConfig configures the interactive login.
type LoginConfig struct {
	URL      string        `yaml:"url"`
	Patterns []string      `yaml:"patterns"`
	Interval time.Duration `yaml:"interval"`
	Timeout  time.Duration `yaml:"timeout"`
}

// PublishConfig configures the publish workflows.
type PublishConfig struct {
	Origin       string            `yaml:"origin"`
	ArticleURL   string            `yaml:"article_url"`
	MicroURL     string            `yaml:"micro_url"`
	ArtifactsDir string            `yaml:"artifacts_dir"`
	BatchSpacing time.Duration     `yaml:"batch_spacing"`
	Timing       publish.Timing    `yaml:"timing"`
	Selectors    publish.Selectors `yaml:"selectors"`
}

// MediaConfig configures image preparation.
type MediaConfig struct {
	DownloadDir   string `yaml:"download_dir"`
	MaxImageBytes int64  `yaml:"max_image_bytes"`
	// Compress re-encodes local images above MaxImageBytes before upload.
	Compress bool `yaml:"compress"`
	// AllowedDirs confines caller-supplied image paths. Empty allows any path.
	AllowedDirs []string `yaml:"allowed_dirs,omitempty"`
}

// PlatformConfig configures the JSON API client.
type PlatformConfig struct {
	BaseURL   string             `yaml:"base_url"`
	Endpoints platform.Endpoints `yaml:"endpoints"`
}

// HistoryConfig configures the publish ledger.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level     string `yaml:"level"`
	Directory string `yaml:"directory"`
}

// DefaultDir returns ~/.headline.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".headline"
	}
	return filepath.Join(home, ".headline")
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), "config.yaml")
}

// Default returns a configuration suitable for most use cases.
func Default() *Config {
	dir := DefaultDir()
	return &Config{
		Server: ServerConfig{
			Addr:            "127.0.0.1:8003",
			ShutdownTimeout: 10 * time.Second,
		},
		Session: SessionConfig{
			CookiesFile: filepath.Join(dir, "cookies.json"),
			Homepage:    session.DefaultHomepage,
		},
		Browser: BrowserConfig{
			Headless:      true,
			UserAgent:     session.DefaultUserAgent,
			MaxConcurrent: 2,
		},
		Login: LoginConfig{
			URL:      login.DefaultLoginURL,
			Interval: login.DefaultInterval,
			Timeout:  login.DefaultCeiling,
		},
		Publish: PublishConfig{
			Origin:       publish.DefaultOrigin,
			ArticleURL:   publish.DefaultArticleURL,
			MicroURL:     publish.DefaultMicroURL,
			ArtifactsDir: filepath.Join(dir, "artifacts"),
			BatchSpacing: 2 * time.Second,
			Timing:       publish.DefaultTiming(),
		},
		Media: MediaConfig{
			DownloadDir:   filepath.Join(dir, "images"),
			MaxImageBytes: media.DefaultMaxBytes,
			Compress:      true,
		},
		Platform: PlatformConfig{
			BaseURL:   platform.DefaultBaseURL,
			Endpoints: platform.DefaultEndpoints(),
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    filepath.Join(dir, "history.db"),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. A missing file yields the defaults. An empty path
// means DefaultPath.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	default:
		if err := Parse(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML over cfg. Keys missing from data keep their current
// values; unknown keys are rejected.
func Parse(data []byte, cfg *Config) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(cfg)
}

// ApplyEnv applies the HEADLINE_* overrides using lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvCookiesFile); ok && strings.TrimSpace(v) != "" {
		c.Session.CookiesFile = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvAddr); ok && strings.TrimSpace(v) != "" {
		c.Server.Addr = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvHeadless); ok && strings.TrimSpace(v) != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid %s value %q: %w", EnvHeadless, v, err)
		}
		c.Browser.Headless = b
	}
	return nil
}

// Validate validates the configuration and fills empty values with defaults.
func (c *Config) Validate() error {
	d := Default()

	if strings.TrimSpace(c.Server.Addr) == "" {
		c.Server.Addr = d.Server.Addr
	}
	if c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("server.shutdown_timeout cannot be negative")
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = d.Server.ShutdownTimeout
	}

	if c.Browser.MaxConcurrent < 0 {
		return fmt.Errorf("browser.max_concurrent cannot be negative")
	}
	if c.Browser.MaxConcurrent == 0 {
		c.Browser.MaxConcurrent = d.Browser.MaxConcurrent
	}
	if c.Browser.UserAgent == "" {
		c.Browser.UserAgent = d.Browser.UserAgent
	}

	if c.Login.Interval < 0 || c.Login.Timeout < 0 {
		return fmt.Errorf("login.interval and login.timeout cannot be negative")
	}
	if c.Login.Interval > 0 && c.Login.Timeout > 0 && c.Login.Interval > c.Login.Timeout {
		return fmt.Errorf("login.interval (%s) exceeds login.timeout (%s)", c.Login.Interval, c.Login.Timeout)
	}

	if c.Publish.BatchSpacing == 0 {
		c.Publish.BatchSpacing = d.Publish.BatchSpacing
	}
	if c.Publish.BatchSpacing < MinBatchSpacing {
		return fmt.Errorf("publish.batch_spacing must be at least %s, got %s", MinBatchSpacing, c.Publish.BatchSpacing)
	}

	if c.Media.MaxImageBytes < 0 {
		return fmt.Errorf("media.max_image_bytes cannot be negative")
	}

	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging level: %s (must be 'debug', 'info', 'warn', or 'error')", c.Logging.Level)
	}

	if c.History.Enabled && strings.TrimSpace(c.History.Path) == "" {
		c.History.Path = d.History.Path
	}

	for _, p := range []*string{
		&c.Session.CookiesFile,
		&c.Publish.ArtifactsDir,
		&c.Media.DownloadDir,
		&c.History.Path,
		&c.Logging.Directory,
	} {
		*p = expandHome(*p)
	}
	for i, dir := range c.Media.AllowedDirs {
		if strings.TrimSpace(dir) == "" {
			return fmt.Errorf("media.allowed_dirs[%d] is empty", i)
		}
		c.Media.AllowedDirs[i] = expandHome(dir)
	}
	return nil
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EngineConfig returns the publish engine configuration.
func (c *Config) EngineConfig() publish.Config {
	maxBytes := int64(0)
	if !c.Media.Compress {
		maxBytes = c.Media.MaxImageBytes
	}
	return publish.Config{
		Origin:        c.Publish.Origin,
		ArticleURL:    c.Publish.ArticleURL,
		MicroURL:      c.Publish.MicroURL,
		Headless:      c.Browser.Headless,
		UserAgent:     c.Browser.UserAgent,
		ArtifactsDir:  c.Publish.ArtifactsDir,
		Selectors:     c.Publish.Selectors,
		Timing:        c.Publish.Timing,
		MaxImageBytes: maxBytes,
	}
}

// LoginOptions returns the interactive login options.
func (c *Config) LoginOptions() login.Options {
	return login.Options{
		LoginURL:  c.Login.URL,
		Patterns:  c.Login.Patterns,
		Interval:  c.Login.Interval,
		Ceiling:   c.Login.Timeout,
		UserAgent: c.Browser.UserAgent,
	}
}

// APIConfig returns the JSON API client configuration.
func (c *Config) APIConfig() platform.Config {
	return platform.Config{
		BaseURL:   c.Platform.BaseURL,
		UserAgent: c.Browser.UserAgent,
		Endpoints: c.Platform.Endpoints,
	}
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
