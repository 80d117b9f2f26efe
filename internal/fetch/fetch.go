// Package fetch downloads sports-reference pages. The Loader talks HTTP
// through resty with a politeness gate in front of every request; Overrides
// and Dir serve pages from disk instead of the network.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"sportsref/internal/metrics"
)

const (
	DefaultUserAgent         = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	DefaultTimeout           = 30 * time.Second
	DefaultRequestsPerMinute = 20
	DefaultJob               = "sportsref"
)

// ErrNotFound is wrapped by a StatusError for HTTP 404 and by the disk
// fetchers for a missing file.
var ErrNotFound = errors.New("page not found")

// StatusError reports a response outside 2xx.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: http %d", e.URL, e.Status)
}

// Unwrap maps 404 to ErrNotFound so callers can use errors.Is.
func (e *StatusError) Unwrap() error {
	if e.Status == http.StatusNotFound {
		return ErrNotFound
	}
	return nil
}

// Fetcher loads a page body. Exists reports whether the page is published.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
	Exists(ctx context.Context, url string) bool
}

// Options configures a Loader. Zero values pick the defaults above.
type Options struct {
	UserAgent         string
	Timeout           time.Duration
	RequestsPerMinute float64
	Burst             int
	// CloudflareBypass wraps the transport with browser-like TLS and headers.
	CloudflareBypass bool
	// Job is the metrics job label.
	Job    string
	Logger *slog.Logger
}

// Loader fetches pages over HTTP. One attempt per call; there is no retry.
type Loader struct {
	http    *resty.Client
	limiter *rate.Limiter
	job     string
	log     *slog.Logger
}

// Response is one completed HTTP exchange, whatever its status.
type Response struct {
	URL             string
	Status          int
	Body            []byte
	Header          http.Header
	RequestDuration time.Duration
	TotalDuration   time.Duration
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status <= 299
}

// NewLoader builds a Loader from opts.
func NewLoader(opts Options) *Loader {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.RequestsPerMinute <= 0 {
		opts.RequestsPerMinute = DefaultRequestsPerMinute
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	if opts.Job == "" {
		opts.Job = DefaultJob
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	httpClient := resty.New()
	if opts.CloudflareBypass {
		httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	}
	httpClient.SetHeader("user-agent", opts.UserAgent)
	httpClient.SetTimeout(opts.Timeout)

	limiter := rate.NewLimiter(rate.Limit(opts.RequestsPerMinute/60), opts.Burst)
	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return limiter.Wait(req.Context())
	})

	return &Loader{
		http:    httpClient,
		limiter: limiter,
		job:     opts.Job,
		log:     opts.Logger,
	}
}

// Get performs one GET. The error is non-nil only when no response was
// received; callers inspect Response.Status themselves.
func (l *Loader) Get(ctx context.Context, url string) (*Response, error) {
	start := time.Now()
	res, err := l.http.R().SetContext(ctx).Get(url)
	total := time.Since(start)

	if err != nil {
		metrics.RecordHTTP(l.job, 0, err, total, total, -1)
		l.log.Debug("request failed", "url", url, "error", err)
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}

	out := &Response{
		URL:             url,
		Status:          res.StatusCode(),
		Body:            res.Body(),
		Header:          res.Header(),
		RequestDuration: res.Time(),
		TotalDuration:   total,
	}
	metrics.RecordHTTP(l.job, out.Status, nil, out.RequestDuration, out.TotalDuration, int64(len(out.Body)))
	l.log.Debug("request done", "url", url, "status", out.Status, "bytes", len(out.Body), "duration", total)
	return out, nil
}

// Fetch returns the body of url. Non-2xx responses are a *StatusError.
func (l *Loader) Fetch(ctx context.Context, url string) (string, error) {
	res, err := l.Get(ctx, url)
	if err != nil {
		return "", err
	}
	if !res.OK() {
		return "", &StatusError{URL: url, Status: res.Status}
	}
	return string(res.Body), nil
}

// Exists reports whether url answers 2xx.
func (l *Loader) Exists(ctx context.Context, url string) bool {
	res, err := l.Get(ctx, url)
	return err == nil && res.OK()
}
