// Package config loads the scraper settings: a JSON5 file merged with its
// ".local" sibling, then environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
	"github.com/titanous/json5"

	"sportsref/internal/fetch"
)

// DefaultFile is the config file looked up when none is given.
const DefaultFile = "sportsref.json"

// Config is the full settings tree. Durations are Go duration strings
// ("30s", "5m").
type Config struct {
	UserAgent         string  `json:"user_agent"`
	Timeout           string  `json:"timeout"`
	RequestsPerMinute float64 `json:"requests_per_minute"`
	Burst             int     `json:"burst"`
	CloudflareBypass  bool    `json:"cloudflare_bypass"`

	// PagesDir is a mirror root (see fetch.MirrorPath) consulted before the
	// network.
	PagesDir string `json:"pages_dir"`

	// Overrides maps page URLs to local files.
	Overrides map[string]string `json:"overrides"`

	LogLevel string `json:"log_level"`

	Storage  Storage  `json:"storage"`
	Metrics  Metrics  `json:"metrics"`
	Download Download `json:"download"`
}

type Storage struct {
	Kind        string `json:"kind"`
	DSN         string `json:"dsn"`
	TablePrefix string `json:"table_prefix"`
	BatchSize   int    `json:"batch_size"`
}

type Metrics struct {
	Backend    string   `json:"backend"`
	Job        string   `json:"job"`
	Tags       []string `json:"tags"`
	FlushEvery string   `json:"flush_every"`
}

type Download struct {
	Workers     int    `json:"workers"`
	MaxAttempts int    `json:"max_attempts"`
	BaseBackoff string `json:"base_backoff"`
	MaxBackoff  string `json:"max_backoff"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		UserAgent:         fetch.DefaultUserAgent,
		Timeout:           fetch.DefaultTimeout.String(),
		RequestsPerMinute: fetch.DefaultRequestsPerMinute,
		Burst:             1,
		LogLevel:          "info",
		Storage:           Storage{BatchSize: 500},
		Metrics:           Metrics{Backend: "none", Job: fetch.DefaultJob, FlushEvery: "10s"},
		Download:          Download{Workers: 2, MaxAttempts: 4, BaseBackoff: "2s", MaxBackoff: "1m"},
	}
}

func splitExt(f string) (string, string) {
	ext := filepath.Ext(f)
	return strings.TrimSuffix(f, ext), ext
}

// ReadFile reads name and merges <base>.local<ext> over it. Missing files
// are not an error; it reports found=false when neither exists.
func ReadFile(name string) (cfg Config, found bool, err error) {
	b, err := os.ReadFile(name)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, false, err
	}
	if len(b) > 0 {
		if err := json5.Unmarshal(b, &cfg); err != nil {
			return cfg, false, fmt.Errorf("parse %s: %w", name, err)
		}
		found = true
	}

	base, ext := splitExt(name)
	local := base + ".local" + ext
	lb, err := os.ReadFile(local)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, found, err
	}
	if len(lb) > 0 {
		var override Config
		if err := json5.Unmarshal(lb, &override); err != nil {
			return cfg, found, fmt.Errorf("parse %s: %w", local, err)
		}
		if err := mergo.Merge(&cfg, override, mergo.WithOverride); err != nil {
			return cfg, found, fmt.Errorf("merge %s: %w", local, err)
		}
		slog.Debug("merging config with local overrides", "local", local)
		found = true
	}
	return cfg, found, nil
}

// Load builds the effective config: defaults, then the file at path (and
// its .local sibling), then environment overrides read through getenv.
// An explicit path that does not exist is an error; the default file is
// optional.
func Load(path string, getenv func(string) string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	fileCfg, found, err := ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if explicit && !found {
		return cfg, fmt.Errorf("config %s: %w", path, fs.ErrNotExist)
	}
	if err := mergo.Merge(&cfg, fileCfg, mergo.WithOverride); err != nil {
		return cfg, fmt.Errorf("merge %s: %w", path, err)
	}

	if getenv == nil {
		getenv = os.Getenv
	}
	if err := applyEnv(&cfg, getenv); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is
// ignored.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return godotenv.Load(path)
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	str("SPORTSREF_USER_AGENT", &cfg.UserAgent)
	str("SPORTSREF_TIMEOUT", &cfg.Timeout)
	str("SPORTSREF_PAGES_DIR", &cfg.PagesDir)
	str("SPORTSREF_LOG_LEVEL", &cfg.LogLevel)
	str("SPORTSREF_STORAGE_KIND", &cfg.Storage.Kind)
	str("SPORTSREF_STORAGE_DSN", &cfg.Storage.DSN)
	str("METRICS_BACKEND", &cfg.Metrics.Backend)
	str("METRICS_JOB", &cfg.Metrics.Job)

	if v := strings.TrimSpace(getenv("SPORTSREF_REQUESTS_PER_MINUTE")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("SPORTSREF_REQUESTS_PER_MINUTE: %w", err)
		}
		cfg.RequestsPerMinute = f
	}
	if v := strings.TrimSpace(getenv("SPORTSREF_CLOUDFLARE_BYPASS")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("SPORTSREF_CLOUDFLARE_BYPASS: %w", err)
		}
		cfg.CloudflareBypass = b
	}
	if v := strings.TrimSpace(getenv("METRICS_TAGS")); v != "" {
		cfg.Metrics.Tags = nil
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				cfg.Metrics.Tags = append(cfg.Metrics.Tags, t)
			}
		}
	}
	return nil
}

// TimeoutDuration parses Timeout, falling back to fetch.DefaultTimeout.
func (c Config) TimeoutDuration() time.Duration {
	return durationOr(c.Timeout, fetch.DefaultTimeout)
}

// FlushEveryDuration parses Metrics.FlushEvery.
func (c Config) FlushEveryDuration() time.Duration {
	return durationOr(c.Metrics.FlushEvery, 10*time.Second)
}

// FetchOptions maps the config onto fetch.Options.
func (c Config) FetchOptions(log *slog.Logger) fetch.Options {
	return fetch.Options{
		UserAgent:         c.UserAgent,
		Timeout:           c.TimeoutDuration(),
		RequestsPerMinute: c.RequestsPerMinute,
		Burst:             c.Burst,
		CloudflareBypass:  c.CloudflareBypass,
		Job:               c.Metrics.Job,
		Logger:            log,
	}
}

// MirrorOptions maps the download section onto fetch.MirrorOptions.
func (c Config) MirrorOptions(root string) fetch.MirrorOptions {
	return fetch.MirrorOptions{
		Root:        root,
		Workers:     c.Download.Workers,
		MaxAttempts: c.Download.MaxAttempts,
		BaseBackoff: durationOr(c.Download.BaseBackoff, 2*time.Second),
		MaxBackoff:  durationOr(c.Download.MaxBackoff, time.Minute),
	}
}

// Level parses LogLevel; unknown values are Info.
func (c Config) Level() slog.Level {
	l, err := levelOf(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return l
}

func levelOf(s string) (slog.Level, error) {
	var l slog.Level
	s = strings.TrimSpace(s)
	if s == "" {
		return slog.LevelInfo, nil
	}
	err := l.UnmarshalText([]byte(s))
	return l, err
}

func durationOr(s string, def time.Duration) time.Duration {
	if strings.TrimSpace(s) == "" {
		return def
	}
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// Fetcher chains the configured page sources: URL overrides, then the
// pages directory, then the network.
func (c Config) Fetcher(log *slog.Logger) fetch.Fetcher {
	var f fetch.Fetcher = fetch.NewLoader(c.FetchOptions(log))
	if c.PagesDir != "" {
		f = &fetch.Dir{Root: c.PagesDir, Next: f}
	}
	if len(c.Overrides) > 0 {
		f = &fetch.Overrides{Files: c.Overrides, Next: f}
	}
	return f
}
