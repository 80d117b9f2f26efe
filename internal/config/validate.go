package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"sportsref/internal/storage"
)

// Severity grades a validation Issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one problem found by Validate. Path is the JSON path of the
// offending field.
type Issue struct {
	Severity Severity
	Path     string
	Message  string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s: %s", i.Severity, i.Path, i.Message)
}

// MetricsBackends lists the accepted metrics.backend values.
var MetricsBackends = []string{"none", "datadog"}

// Validate checks cfg and returns every issue found. Storage kinds are
// checked against the backends linked into the binary.
func Validate(cfg Config) []Issue {
	var issues []Issue
	add := func(sev Severity, path, format string, args ...any) {
		issues = append(issues, Issue{Severity: sev, Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(cfg.UserAgent) == "" {
		add(SeverityWarning, "user_agent", "empty; the default browser agent is used")
	}
	checkDuration(add, "timeout", cfg.Timeout)
	if cfg.RequestsPerMinute < 0 {
		add(SeverityError, "requests_per_minute", "must be positive, got %g", cfg.RequestsPerMinute)
	} else if cfg.RequestsPerMinute > 20 {
		add(SeverityWarning, "requests_per_minute", "%g exceeds the sites' limit of 20 and may get the client blocked", cfg.RequestsPerMinute)
	}
	if cfg.Burst < 0 {
		add(SeverityError, "burst", "must not be negative")
	}
	for u, p := range cfg.Overrides {
		if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			add(SeverityError, "overrides."+u, "key must be an absolute URL")
		}
		if strings.TrimSpace(p) == "" {
			add(SeverityError, "overrides."+u, "empty file path")
		}
	}
	if _, err := levelOf(cfg.LogLevel); err != nil {
		add(SeverityWarning, "log_level", "%v; info is used", err)
	}

	if k := strings.TrimSpace(cfg.Storage.Kind); k != "" {
		if !slices.Contains(storage.Kinds(), k) {
			add(SeverityError, "storage.kind", "unknown kind %q (known: %s)", k, strings.Join(storage.Kinds(), ", "))
		}
		if strings.TrimSpace(cfg.Storage.DSN) == "" && k != "dynamodb" {
			add(SeverityError, "storage.dsn", "required for kind %q", k)
		}
	}
	if cfg.Storage.BatchSize < 0 {
		add(SeverityError, "storage.batch_size", "must not be negative")
	}

	if b := strings.TrimSpace(cfg.Metrics.Backend); b != "" && !slices.Contains(MetricsBackends, b) {
		add(SeverityError, "metrics.backend", "unknown backend %q (known: %s)", b, strings.Join(MetricsBackends, ", "))
	}
	checkDuration(add, "metrics.flush_every", cfg.Metrics.FlushEvery)
	for i, t := range cfg.Metrics.Tags {
		if !strings.Contains(t, ":") {
			add(SeverityWarning, fmt.Sprintf("metrics.tags[%d]", i), "%q is not key:value", t)
		}
	}

	if cfg.Download.Workers < 0 {
		add(SeverityError, "download.workers", "must not be negative")
	}
	if cfg.Download.MaxAttempts < 0 {
		add(SeverityError, "download.max_attempts", "must not be negative")
	}
	checkDuration(add, "download.base_backoff", cfg.Download.BaseBackoff)
	checkDuration(add, "download.max_backoff", cfg.Download.MaxBackoff)
	return issues
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	return slices.ContainsFunc(issues, func(i Issue) bool { return i.Severity == SeverityError })
}

func checkDuration(add func(Severity, string, string, ...any), path, s string) {
	if strings.TrimSpace(s) == "" {
		return
	}
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		add(SeverityError, path, "not a duration: %q", s)
		return
	}
	if d <= 0 {
		add(SeverityError, path, "must be positive, got %s", d)
	}
}
