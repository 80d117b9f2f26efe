package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"sportsref/internal/config"
	"sportsref/internal/fetch"
	"sportsref/internal/league"
	"sportsref/internal/metrics"
)

// app is the state shared by every subcommand of one run.
type app struct {
	deps deps

	configPath     string
	envFile        string
	metricsBackend string
	logLevel       string
	pagesDir       string
	format         string

	cfg     config.Config
	log     *slog.Logger
	fetcher fetch.Fetcher
	backend backendCloser
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "sportsref",
		Short:         "sportsref scrapes team, schedule and boxscore tables from sports-reference sites.",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "config file (default "+config.DefaultFile+" if present)")
	pf.StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before the config")
	pf.StringVar(&a.metricsBackend, "metrics-backend", "", "metrics backend: none|datadog (overrides config and METRICS_BACKEND)")
	pf.StringVar(&a.logLevel, "log-level", "", "debug|info|warn|error")
	pf.StringVar(&a.pagesDir, "pages-dir", "", "serve pages from this mirror directory before the network")
	pf.StringVar(&a.format, "format", "table", "output format: table|json")

	root.AddCommand(
		newLeaguesCmd(a),
		newTeamsCmd(a),
		newScheduleCmd(a),
		newBoxscoreCmd(a),
		newPlayerCmd(a),
		newRosterCmd(a),
		newExtractCmd(a),
		newSelectorCmd(a),
		newDownloadCmd(a),
		newValidateCmd(a),
	)
	return root
}

// setup loads config, then builds the logger, metrics backend and fetcher.
// The validate command gets the config without the error gate.
func (a *app) setup(cmd *cobra.Command) error {
	if a.format != "table" && a.format != "json" {
		return usagef("--format must be table or json, got %q", a.format)
	}
	if err := config.LoadDotEnv(a.envFile); err != nil {
		return usagef("load %s: %w", a.envFile, err)
	}
	cfg, err := config.Load(a.configPath, a.deps.Getenv)
	if err != nil {
		return usageError{err}
	}
	if a.metricsBackend != "" {
		cfg.Metrics.Backend = a.metricsBackend
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if a.pagesDir != "" {
		cfg.PagesDir = a.pagesDir
	}
	a.cfg = cfg
	a.log = newLogger(a.deps.Stderr, cfg.Level())

	if cmd.Name() == "validate" {
		return nil
	}
	issues := config.Validate(cfg)
	for _, iss := range issues {
		if iss.Severity == config.SeverityWarning {
			a.log.Warn("config", "path", iss.Path, "issue", iss.Message)
		}
	}
	if config.HasErrors(issues) {
		var msgs []string
		for _, iss := range issues {
			if iss.Severity == config.SeverityError {
				msgs = append(msgs, iss.Path+": "+iss.Message)
			}
		}
		return usagef("invalid config: %s", strings.Join(msgs, "; "))
	}

	if err := a.startMetrics(cmd); err != nil {
		return err
	}
	a.fetcher = a.deps.Fetcher(cfg, a.log)
	return nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	noColor := true
	if f, ok := w.(*os.File); ok {
		noColor = !isatty.IsTerminal(f.Fd())
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
		NoColor:    noColor,
	}))
}

func (a *app) startMetrics(cmd *cobra.Command) error {
	switch a.cfg.Metrics.Backend {
	case "", "none":
		return nil
	case "datadog":
		if a.deps.BackendFactory == nil {
			return usagef("metrics backend %q is not available", a.cfg.Metrics.Backend)
		}
		b, err := a.deps.BackendFactory(cmd.Context(), a.cfg.Metrics.Job, a.cfg.Metrics.Tags, a.cfg.FlushEveryDuration())
		if err != nil {
			return usagef("metrics backend: %w", err)
		}
		a.backend = b
		metrics.SetBackend(b)
		return nil
	default:
		return usagef("unknown metrics backend %q", a.cfg.Metrics.Backend)
	}
}

func (a *app) shutdown() {
	if a.backend == nil {
		return
	}
	if err := a.backend.Close(); err != nil && a.log != nil {
		a.log.Warn("metrics close", "err", err)
	}
	metrics.SetBackend(nil)
	a.backend = nil
}

func (a *app) client() *league.Client {
	return &league.Client{Fetcher: a.fetcher, Log: a.log, Now: a.deps.Now}
}

func getLeague(name string) (*league.League, error) {
	lg, err := league.Get(strings.ToLower(name))
	if err != nil {
		return nil, usageError{err}
	}
	return lg, nil
}

// args wraps a cobra positional-args check so failures exit with 2.
func args(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, a []string) error {
		if err := check(cmd, a); err != nil {
			return usageError{err}
		}
		return nil
	}
}

func newLeaguesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "leagues",
		Short: "List the supported leagues.",
		Args:  args(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			var rows []map[string]any
			for _, n := range league.Names() {
				lg, err := league.Get(n)
				if err != nil {
					return err
				}
				rows = append(rows, map[string]any{
					"league":   lg.Name,
					"site":     lg.Site,
					"schedule": lg.Schedule != nil,
					"boxscore": lg.Boxscore != nil,
				})
			}
			return a.print(cmd, []string{"league", "site", "schedule", "boxscore"}, rows)
		},
	}
}

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the config and print every issue.",
		Args:  args(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			issues := config.Validate(a.cfg)
			for _, iss := range issues {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
			}
			if config.HasErrors(issues) {
				return fmt.Errorf("config has %d issue(s)", len(issues))
			}
			if len(issues) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "config ok")
			}
			return nil
		},
	}
}
