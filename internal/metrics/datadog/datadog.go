// Package datadog forwards scraper metrics to Datadog.
//
// Updates are buffered and shipped on a ticker plus once more on Close, so a
// season backfill shows up as a time series instead of one spike at exit.
// Counters become COUNT series; histograms are reduced to percentile gauges
// before they leave the process. Metric names without an entry in the
// counter or histogram tables are dropped.
package datadog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"sportsref/internal/metrics"

	dd "github.com/DataDog/datadog-api-client-go/v2/api/datadog"
	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"
)

const (
	defaultJob   = "sportsref"
	defaultFlush = time.Minute
	unknown      = "unknown"
	tagSep       = "\x00"
)

// Options configures NewBackend.
type Options struct {
	// JobName is sent as "job:<name>". Defaults to "sportsref".
	JobName string

	// Env is sent as "env:<env>". Empty falls back to $ENV, then $DD_ENV.
	Env string

	// Tags are appended to every series, e.g. "league:nba".
	Tags []string

	// FlushEvery defaults to one minute.
	FlushEvery time.Duration

	getenv    func(string) string
	now       func() time.Time
	newTicker func(time.Duration) *time.Ticker
	submitter submitter
}

// submitter is the part of *datadogV2.MetricsApi the backend calls.
type submitter interface {
	SubmitMetrics(ctx context.Context, body datadogV2.MetricPayload, params ...datadogV2.SubmitMetricsOptionalParameters) (datadogV2.IntakePayloadAccepted, *http.Response, error)
}

// route maps a facade metric onto a Datadog name. Labels listed in dims
// become tags; a dim that is also mandatory drops the update when missing,
// any other missing dim is tagged "unknown".
type route struct {
	name      string
	dims      []string
	mandatory []string
}

var counters = map[string]route{
	metrics.StepTotal:         {name: "sportsref.step.total", dims: []string{"step", "status"}},
	metrics.RecordsTotal:      {name: "sportsref.records.total", dims: []string{"kind"}, mandatory: []string{"kind"}},
	metrics.PagesTotal:        {name: "sportsref.pages.total", dims: []string{"league"}, mandatory: []string{"league"}},
	metrics.HTTPRequestsTotal: {name: "sportsref.http.requests.total", dims: []string{"status"}},
	metrics.HTTPErrorsTotal:   {name: "sportsref.http.errors.total", dims: []string{"status"}},
}

var histograms = map[string]route{
	metrics.StepDurationSeconds: {name: "sportsref.step.duration_seconds", dims: []string{"step", "status"}},
	metrics.HTTPRequestSeconds:  {name: "sportsref.http.request_duration_seconds", dims: []string{"status"}},
	metrics.HTTPResponseSeconds: {name: "sportsref.http.response_duration_seconds", dims: []string{"status"}},
	metrics.HTTPDownloadBytes:   {name: "sportsref.http.download_bytes", dims: []string{"status"}},
}

// quantiles are the gauges emitted per histogram series, besides max and
// samples.
var quantiles = []struct {
	suffix string
	q      float64
}{
	{".p50", 0.50},
	{".p90", 0.90},
	{".p95", 0.95},
	{".p99", 0.99},
}

// series identifies one buffered time series.
type series struct {
	metric string
	tags   string
}

func (r route) series(labels metrics.Labels) (series, bool) {
	for _, m := range r.mandatory {
		if labels[m] == "" {
			return series{}, false
		}
	}
	tags := make([]string, len(r.dims))
	for i, d := range r.dims {
		v := labels[d]
		if v == "" {
			v = unknown
		}
		tags[i] = d + ":" + v
	}
	return series{metric: r.name, tags: strings.Join(tags, tagSep)}, true
}

func (s series) tagList() []string {
	if s.tags == "" {
		return nil
	}
	return strings.Split(s.tags, tagSep)
}

// window holds the updates collected between two flushes.
type window struct {
	counts  map[series]float64
	samples map[series][]float64
}

func newWindow() window {
	return window{counts: map[series]float64{}, samples: map[series][]float64{}}
}

func (w window) empty() bool { return len(w.counts) == 0 && len(w.samples) == 0 }

// Backend implements metrics.Backend and metrics.Flusher.
type Backend struct {
	api      submitter
	ctx      context.Context
	baseTags []string
	now      func() time.Time

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	mu  sync.Mutex
	cur window
}

var (
	_ metrics.Backend = (*Backend)(nil)
	_ metrics.Flusher = (*Backend)(nil)
)

var errNoAPIKey = errors.New("DD_API_KEY is not set")

// NewBackend builds the backend and starts its flush loop. Without a
// DD_API_KEY every submission would be rejected, so that is an error here;
// network failures surface from Flush.
func NewBackend(parent context.Context, opts Options) (*Backend, error) {
	getenv := opts.getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	api := opts.submitter
	if api == nil {
		if strings.TrimSpace(getenv("DD_API_KEY")) == "" {
			return nil, fmt.Errorf("datadog metrics init: %w", errNoAPIKey)
		}
		api = datadogV2.NewMetricsApi(dd.NewAPIClient(dd.NewConfiguration()))
	}

	job := cmpOr(strings.TrimSpace(opts.JobName), defaultJob)
	env := cmpOr(strings.TrimSpace(opts.Env), strings.TrimSpace(getenv("ENV")), strings.TrimSpace(getenv("DD_ENV")), unknown)
	every := opts.FlushEvery
	if every <= 0 {
		every = defaultFlush
	}
	newTicker := opts.newTicker
	if newTicker == nil {
		newTicker = time.NewTicker
	}

	b := &Backend{
		api:      api,
		ctx:      dd.NewDefaultContext(parent),
		baseTags: append([]string{"env:" + env, "job:" + job}, opts.Tags...),
		now:      opts.now,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		cur:      newWindow(),
	}
	if b.now == nil {
		b.now = time.Now
	}

	ticker := newTicker(every)
	go b.run(ticker)
	return b, nil
}

func cmpOr(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func (b *Backend) run(t *time.Ticker) {
	defer close(b.done)
	defer t.Stop()
	for {
		select {
		case <-b.stop:
			return
		case <-t.C:
			_ = b.Flush()
		}
	}
}

// Close stops the loop and flushes what is left. Later calls only flush.
func (b *Backend) Close() error {
	b.closeOnce.Do(func() {
		close(b.stop)
		<-b.done
	})
	return b.Flush()
}

// IncCounter implements metrics.Backend. Non-positive deltas are ignored.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	r, ok := counters[name]
	if !ok || delta <= 0 {
		return
	}
	if s, ok := r.series(labels); ok {
		b.mu.Lock()
		b.cur.counts[s] += delta
		b.mu.Unlock()
	}
}

// ObserveHistogram implements metrics.Backend. Negative values are ignored.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	r, ok := histograms[name]
	if !ok || value < 0 {
		return
	}
	if s, ok := r.series(labels); ok {
		b.mu.Lock()
		b.cur.samples[s] = append(b.cur.samples[s], value)
		b.mu.Unlock()
	}
}

func (b *Backend) swap() window {
	b.mu.Lock()
	defer b.mu.Unlock()
	w := b.cur
	b.cur = newWindow()
	return w
}

// Flush ships the current window. The window is discarded even when the
// submission fails. An empty window sends nothing.
func (b *Backend) Flush() error {
	w := b.swap()
	if w.empty() {
		return nil
	}
	payload := datadogV2.MetricPayload{Series: b.payload(w, b.now().Unix())}
	if _, _, err := b.api.SubmitMetrics(b.ctx, payload, *datadogV2.NewSubmitMetricsOptionalParameters()); err != nil {
		return fmt.Errorf("datadog submit: %w", err)
	}
	return nil
}

// payload renders a window in a stable order: counts first, then
// histograms, each sorted by metric and tags.
func (b *Backend) payload(w window, ts int64) []datadogV2.MetricSeries {
	out := make([]datadogV2.MetricSeries, 0, len(w.counts)+(len(quantiles)+2)*len(w.samples))
	for _, s := range ordered(w.counts) {
		out = append(out, point(datadogV2.METRICINTAKETYPE_COUNT, s.metric, w.counts[s], b.tags(s), ts))
	}
	for _, s := range ordered(w.samples) {
		out = append(out, summarize(s.metric, w.samples[s], b.tags(s), ts)...)
	}
	return out
}

func (b *Backend) tags(s series) []string {
	return slices.Concat(b.baseTags, s.tagList())
}

func ordered[V any](m map[series]V) []series {
	keys := make([]series, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b series) int {
		if c := strings.Compare(a.metric, b.metric); c != 0 {
			return c
		}
		return strings.Compare(a.tags, b.tags)
	})
	return keys
}

// summarize reduces samples to quantile, max and count gauges. It sorts a
// copy.
func summarize(metric string, samples []float64, tags []string, ts int64) []datadogV2.MetricSeries {
	if len(samples) == 0 {
		return nil
	}
	sorted := slices.Clone(samples)
	slices.Sort(sorted)

	out := make([]datadogV2.MetricSeries, 0, len(quantiles)+2)
	for _, q := range quantiles {
		out = append(out, point(datadogV2.METRICINTAKETYPE_GAUGE, metric+q.suffix, nearestRank(sorted, q.q), tags, ts))
	}
	return append(out,
		point(datadogV2.METRICINTAKETYPE_GAUGE, metric+".max", sorted[len(sorted)-1], tags, ts),
		point(datadogV2.METRICINTAKETYPE_GAUGE, metric+".samples", float64(len(sorted)), tags, ts),
	)
}

func point(kind datadogV2.MetricIntakeType, metric string, v float64, tags []string, ts int64) datadogV2.MetricSeries {
	return datadogV2.MetricSeries{
		Metric: metric,
		Type:   kind.Ptr(),
		Points: []datadogV2.MetricPoint{{Timestamp: dd.PtrInt64(ts), Value: dd.PtrFloat64(v)}},
		Tags:   tags,
	}
}

// nearestRank picks the q-quantile of an ascending slice.
func nearestRank(sorted []float64, q float64) float64 {
	n := len(sorted)
	switch {
	case n == 0:
		return 0
	case q <= 0:
		return sorted[0]
	case q >= 1:
		return sorted[n-1]
	}
	return sorted[min(int(q*float64(n-1)+0.5), n-1)]
}
