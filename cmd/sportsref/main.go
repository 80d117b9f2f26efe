// Command sportsref scrapes team, schedule and boxscore data from the
// sports-reference family of sites.
//
// Usage:
//
//	sportsref teams mlb --year 2017
//	sportsref schedule nfl nwe --year 2017 --format json
//	sportsref boxscore nfl 201802040nwe
//	sportsref extract --scheme scheme.json --url https://...
//	sportsref selector 'div#all_team_stats' --unwrap --file page.html
//	sportsref download --urls urls.txt --out pages/
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sportsref/internal/config"
	"sportsref/internal/fetch"
	"sportsref/internal/metrics"
	"sportsref/internal/metrics/datadog"
	"sportsref/internal/storage"
	_ "sportsref/internal/storage/all"
)

// backendCloser is the metrics backend surface the command manages.
type backendCloser interface {
	metrics.Backend
	Close() error
}

// deps are the external seams of a run. Nil fields get production values.
type deps struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Getenv func(string) string

	// Fetcher builds the page source for cfg; nil means cfg.Fetcher.
	Fetcher func(cfg config.Config, log *slog.Logger) fetch.Fetcher
	// Getter is used by download; nil means a fetch.Loader from cfg.
	Getter func(cfg config.Config, log *slog.Logger) fetch.Getter
	// Storage opens the repository for --store.
	Storage        func(ctx context.Context, cfg storage.Config) (storage.Repository, error)
	BackendFactory func(ctx context.Context, job string, tags []string, flushEvery time.Duration) (backendCloser, error)
	Now            func() time.Time
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], deps{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		BackendFactory: func(ctx context.Context, job string, tags []string, flushEvery time.Duration) (backendCloser, error) {
			return datadog.NewBackend(ctx, datadog.Options{
				JobName:    job,
				Tags:       tags,
				FlushEvery: flushEvery,
			})
		},
	})
	stop()
	os.Exit(code)
}

// usageError marks bad flags, arguments or config. It maps to exit code 2.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func usagef(format string, args ...any) error {
	return usageError{fmt.Errorf(format, args...)}
}

// run executes the command line and returns an exit code:
//   - 0 on success
//   - 1 on operational errors (fetch, parse, store)
//   - 2 on usage or configuration errors
func run(ctx context.Context, args []string, d deps) int {
	if d.Stdin == nil {
		d.Stdin = eofReader{}
	}
	if d.Stdout == nil {
		d.Stdout = io.Discard
	}
	if d.Stderr == nil {
		d.Stderr = io.Discard
	}
	if d.Getenv == nil {
		d.Getenv = os.Getenv
	}
	if d.Fetcher == nil {
		d.Fetcher = func(cfg config.Config, log *slog.Logger) fetch.Fetcher { return cfg.Fetcher(log) }
	}
	if d.Getter == nil {
		d.Getter = func(cfg config.Config, log *slog.Logger) fetch.Getter {
			return fetch.NewLoader(cfg.FetchOptions(log))
		}
	}
	if d.Storage == nil {
		d.Storage = storage.New
	}
	if d.Now == nil {
		d.Now = time.Now
	}

	a := &app{deps: d}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetIn(d.Stdin)
	root.SetOut(d.Stdout)
	root.SetErr(d.Stderr)

	err := root.ExecuteContext(ctx)
	a.shutdown()
	if err == nil {
		return 0
	}
	fmt.Fprintln(d.Stderr, err)
	var ue usageError
	if errors.As(err, &ue) {
		return 2
	}
	return 1
}

type eofReader struct{}

func (eofReader) Read([]byte) (int, error) { return 0, io.EOF }
