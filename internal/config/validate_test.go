package config

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestValidate_DefaultsAreClean(t *testing.T) {
	t.Parallel()

	if issues := Validate(Default()); len(issues) != 0 {
		t.Fatalf("issues=%v", issues)
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Timeout = "soon"
	cfg.RequestsPerMinute = 60
	cfg.Overrides = map[string]string{"teams/HOU.html": "hou.html"}
	cfg.Storage = Storage{Kind: "oracle"}
	cfg.Metrics.Backend = "statsd"
	cfg.Metrics.Tags = []string{"prod"}
	cfg.Download.MaxBackoff = "-1s"

	got := Validate(cfg)
	want := []Issue{
		{SeverityError, "timeout", `not a duration: "soon"`},
		{SeverityWarning, "requests_per_minute", "60 exceeds the sites' limit of 20 and may get the client blocked"},
		{SeverityError, "overrides.teams/HOU.html", "key must be an absolute URL"},
		{SeverityError, "storage.kind", `unknown kind "oracle" (known: sqlite)`},
		{SeverityError, "storage.dsn", `required for kind "oracle"`},
		{SeverityError, "metrics.backend", `unknown backend "statsd" (known: none, datadog)`},
		{SeverityWarning, "metrics.tags[0]", `"prod" is not key:value`},
		{SeverityError, "download.max_backoff", "must be positive, got -1s"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("issues mismatch (-want +got):\n%s", diff)
	}
	if !HasErrors(got) {
		t.Fatalf("HasErrors=false")
	}
	if HasErrors(want[1:2]) {
		t.Fatalf("a warning alone is not an error")
	}
}

func TestValidate_StorageNeedsDSN(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Storage.Kind = "sqlite"
	got := Validate(cfg)
	if len(got) != 1 || got[0].Path != "storage.dsn" {
		t.Fatalf("issues=%v", got)
	}
}

func TestIssueString(t *testing.T) {
	t.Parallel()

	got := Issue{SeverityError, "storage.kind", "unknown"}.String()
	if got != "error: storage.kind: unknown" {
		t.Fatalf("got %q", got)
	}
}
