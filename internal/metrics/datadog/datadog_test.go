package datadog

import (
	"context"
	"errors"
	"net/http"
	"runtime"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"
	"github.com/stretchr/testify/require"

	"sportsref/internal/metrics"
)

type recorder struct {
	mu       sync.Mutex
	payloads []datadogV2.MetricPayload
	err      error
}

func (r *recorder) SubmitMetrics(_ context.Context, body datadogV2.MetricPayload, _ ...datadogV2.SubmitMetricsOptionalParameters) (datadogV2.IntakePayloadAccepted, *http.Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads = append(r.payloads, body)
	return datadogV2.IntakePayloadAccepted{}, nil, r.err
}

func (r *recorder) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.payloads)
}

func (r *recorder) last(t *testing.T) []datadogV2.MetricSeries {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.payloads, "nothing submitted")
	return r.payloads[len(r.payloads)-1].Series
}

func noEnv(string) string { return "" }

func idleTicker(time.Duration) *time.Ticker { return time.NewTicker(24 * time.Hour) }

// quiet builds a backend whose loop never fires.
func quiet(t *testing.T, opts Options) (*Backend, *recorder) {
	t.Helper()
	rec := &recorder{}
	if opts.submitter == nil {
		opts.submitter = rec
	}
	if opts.getenv == nil {
		opts.getenv = noEnv
	}
	if opts.newTicker == nil {
		opts.newTicker = idleTicker
	}
	if opts.now == nil {
		opts.now = func() time.Time { return time.Unix(1700000000, 0) }
	}
	b, err := NewBackend(context.Background(), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b, rec
}

func find(ss []datadogV2.MetricSeries, metric string) (datadogV2.MetricSeries, bool) {
	for _, s := range ss {
		if s.Metric == metric {
			return s, true
		}
	}
	return datadogV2.MetricSeries{}, false
}

func names(ss []datadogV2.MetricSeries) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = s.Metric
	}
	return out
}

func TestBaseTags(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		opts Options
		env  map[string]string
		want []string
	}{
		{"defaults", Options{}, nil, []string{"env:unknown", "job:sportsref"}},
		{"explicit env wins", Options{Env: "ci", JobName: "backfill"}, map[string]string{"ENV": "prod"}, []string{"env:ci", "job:backfill"}},
		{"ENV before DD_ENV", Options{}, map[string]string{"ENV": "prod", "DD_ENV": "stage"}, []string{"env:prod", "job:sportsref"}},
		{"DD_ENV fallback", Options{}, map[string]string{"ENV": "  ", "DD_ENV": "stage"}, []string{"env:stage", "job:sportsref"}},
		{"extra tags last", Options{Tags: []string{"league:nhl"}}, nil, []string{"env:unknown", "job:sportsref", "league:nhl"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			opts := tc.opts
			opts.getenv = func(k string) string { return tc.env[k] }
			b, _ := quiet(t, opts)
			require.Equal(t, tc.want, b.baseTags)
		})
	}
}

func TestNewBackend_NeedsAPIKey(t *testing.T) {
	t.Parallel()

	_, err := NewBackend(context.Background(), Options{getenv: noEnv})
	require.ErrorIs(t, err, errNoAPIKey)
	require.ErrorContains(t, err, "datadog metrics init:")
}

func TestRouteSeries(t *testing.T) {
	t.Parallel()

	_, ok := counters[metrics.RecordsTotal].series(metrics.Labels{"league": "nfl"})
	require.False(t, ok, "records without kind must be dropped")

	s, ok := counters[metrics.StepTotal].series(metrics.Labels{"step": "schedule"})
	require.True(t, ok)
	require.Equal(t, "sportsref.step.total", s.metric)
	require.Equal(t, []string{"step:schedule", "status:unknown"}, s.tagList())

	require.Nil(t, series{}.tagList())
}

func TestNearestRank(t *testing.T) {
	t.Parallel()

	five := []float64{1, 2, 3, 4, 5}
	require.Zero(t, nearestRank(nil, 0.5))
	require.Equal(t, 9.0, nearestRank([]float64{9}, 0.99))
	require.Equal(t, 1.0, nearestRank(five, -0.1))
	require.Equal(t, 5.0, nearestRank(five, 1.5))
	require.Equal(t, 3.0, nearestRank(five, 0.5))
	require.Equal(t, 5.0, nearestRank(five, 0.9))
}

func TestSummarize_LeavesInputAlone(t *testing.T) {
	t.Parallel()

	in := []float64{0.9, 0.1, 0.4, 0.2, 0.3}
	orig := slices.Clone(in)
	got := summarize("sportsref.fetch", in, []string{"status:200"}, 42)

	require.Equal(t, orig, in)
	require.Equal(t, []string{
		"sportsref.fetch.p50", "sportsref.fetch.p90", "sportsref.fetch.p95",
		"sportsref.fetch.p99", "sportsref.fetch.max", "sportsref.fetch.samples",
	}, names(got))
	for _, s := range got {
		require.Equal(t, datadogV2.METRICINTAKETYPE_GAUGE, *s.Type)
		require.Equal(t, int64(42), *s.Points[0].Timestamp)
	}
	require.Equal(t, 0.3, *got[0].Points[0].Value)
	require.Equal(t, 0.9, *got[4].Points[0].Value)
	require.Equal(t, 5.0, *got[5].Points[0].Value)
	require.Nil(t, summarize("x", nil, nil, 0))
}

func TestFlush_ShipsWindowOnce(t *testing.T) {
	t.Parallel()

	b, rec := quiet(t, Options{JobName: "teams"})
	b.IncCounter(metrics.PagesTotal, 1, metrics.Labels{"league": "mlb"})
	b.IncCounter(metrics.PagesTotal, 2, metrics.Labels{"league": "mlb"})
	b.IncCounter(metrics.RecordsTotal, 30, metrics.Labels{"kind": "team"})
	b.ObserveHistogram(metrics.StepDurationSeconds, 1.5, metrics.Labels{"step": "teams", "status": "ok"})
	b.ObserveHistogram(metrics.HTTPRequestSeconds, 0.2, metrics.Labels{"status": "200"})

	require.NoError(t, b.Flush())
	require.Equal(t, 1, rec.calls())
	require.True(t, b.cur.empty(), "window kept after flush")

	got := rec.last(t)
	// Counts lead, sorted by name; histogram gauges follow.
	require.Equal(t, []string{"sportsref.pages.total", "sportsref.records.total"}, names(got)[:2])

	pages, _ := find(got, "sportsref.pages.total")
	require.Equal(t, datadogV2.METRICINTAKETYPE_COUNT, *pages.Type)
	require.Equal(t, 3.0, *pages.Points[0].Value)
	require.Equal(t, []string{"env:unknown", "job:teams", "league:mlb"}, pages.Tags)
	require.Equal(t, int64(1700000000), *pages.Points[0].Timestamp)

	for _, m := range []string{
		"sportsref.step.duration_seconds.p50",
		"sportsref.step.duration_seconds.samples",
		"sportsref.http.request_duration_seconds.p99",
	} {
		_, ok := find(got, m)
		require.Truef(t, ok, "missing %s in %v", m, names(got))
	}

	// Nothing new: no second submission.
	require.NoError(t, b.Flush())
	require.Equal(t, 1, rec.calls())
}

func TestDroppedUpdates(t *testing.T) {
	t.Parallel()

	b, rec := quiet(t, Options{})
	b.IncCounter(metrics.PagesTotal, 0, metrics.Labels{"league": "nhl"})
	b.IncCounter(metrics.PagesTotal, -3, metrics.Labels{"league": "nhl"})
	b.IncCounter(metrics.PagesTotal, 1, nil)
	b.IncCounter("sportsref_unrouted_total", 1, nil)
	b.ObserveHistogram("sportsref_unrouted_seconds", 1, nil)
	b.ObserveHistogram(metrics.StepDurationSeconds, -0.5, metrics.Labels{"step": "boxscore"})
	require.NoError(t, b.Flush())
	require.Zero(t, rec.calls())

	b.IncCounter(metrics.HTTPErrorsTotal, 1, nil)
	require.NoError(t, b.Flush())
	got := rec.last(t)
	require.Len(t, got, 1)
	require.Contains(t, got[0].Tags, "status:unknown")
}

func TestConcurrentUpdates(t *testing.T) {
	t.Parallel()

	b, rec := quiet(t, Options{})
	workers, iters := runtime.GOMAXPROCS(0)*4, 500

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range iters {
				b.IncCounter(metrics.RecordsTotal, 1, metrics.Labels{"kind": "game"})
				b.ObserveHistogram(metrics.HTTPResponseSeconds, 0.01, metrics.Labels{"status": "200"})
			}
		}()
	}
	wg.Wait()

	require.NoError(t, b.Flush())
	got := rec.last(t)
	records, ok := find(got, "sportsref.records.total")
	require.True(t, ok)
	require.Equal(t, float64(workers*iters), *records.Points[0].Value)
	samples, ok := find(got, "sportsref.http.response_duration_seconds.samples")
	require.True(t, ok)
	require.Equal(t, float64(workers*iters), *samples.Points[0].Value)
}

func TestLoopFlushesAndCloseDrains(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	b, err := NewBackend(context.Background(), Options{
		FlushEvery: 5 * time.Millisecond,
		submitter:  rec,
		getenv:     noEnv,
	})
	require.NoError(t, err)

	b.IncCounter(metrics.StepTotal, 1, metrics.Labels{"step": "teams", "status": "ok"})
	require.Eventually(t, func() bool { return rec.calls() >= 1 }, time.Second, 2*time.Millisecond)

	b.IncCounter(metrics.StepTotal, 1, metrics.Labels{"step": "schedule", "status": "ok"})
	require.NoError(t, b.Close())
	require.GreaterOrEqual(t, rec.calls(), 2)
	require.NoError(t, b.Close())
}

func TestFlush_SubmitErrorDropsWindow(t *testing.T) {
	t.Parallel()

	rec := &recorder{err: errors.New("403 Forbidden")}
	b, _ := quiet(t, Options{submitter: rec})
	b.IncCounter(metrics.PagesTotal, 1, metrics.Labels{"league": "nba"})

	err := b.Flush()
	require.ErrorContains(t, err, "datadog submit")
	require.True(t, b.cur.empty())
	require.NoError(t, b.Flush())
	require.Equal(t, 1, rec.calls())
}
