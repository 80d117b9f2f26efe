package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MirrorRecord is emitted as JSONL for each download attempt.
//
// This output is intended for machine parsing. Additive changes are safe;
// renames/removals are breaking changes for downstream log consumers.
type MirrorRecord struct {
	Timestamp    string `json:"ts"`
	URL          string `json:"url"`
	Attempt      int    `json:"attempt"`
	StatusCode   int    `json:"http_code"`
	DurationMs   int64  `json:"duration_ms"`
	RequestMs    int64  `json:"request_ms"`
	SizeBytes    int64  `json:"size_bytes"`
	File         string `json:"file,omitempty"`
	Error        string `json:"error,omitempty"`
	RetryAfterMs int64  `json:"retry_after_ms,omitempty"`
}

// Getter is the part of Loader the mirror needs.
type Getter interface {
	Get(ctx context.Context, url string) (*Response, error)
}

// MirrorOptions configures Mirror.
type MirrorOptions struct {
	Root        string
	Workers     int
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	JitterMax   time.Duration
	// Sleep is injected by tests; nil means a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) bool
	Now   func() time.Time
}

// Mirror downloads urls into opts.Root using the MirrorPath layout, writing
// one MirrorRecord per attempt to log. A 404 is final and not a failure.
// Mirror stops at the first URL that exhausts its attempts and reports
// whether every URL was handled.
func Mirror(ctx context.Context, g Getter, urls []string, opts MirrorOptions, log io.Writer) bool {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepContext
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan string)
	logCh := make(chan MirrorRecord, 64)

	var fatalMu sync.Mutex
	fatal := false

	var logWG sync.WaitGroup
	logWG.Add(1)
	go func() {
		defer logWG.Done()
		enc := json.NewEncoder(log)
		for rec := range logCh {
			_ = enc.Encode(rec)
		}
	}()

	var wg sync.WaitGroup
	wg.Add(opts.Workers)
	for i := 0; i < opts.Workers; i++ {
		rng := rand.New(rand.NewSource(opts.Now().UnixNano() + int64(i)*9973))
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case u, ok := <-jobs:
					if !ok {
						return
					}
					if mirrorOne(ctx, g, u, opts, rng, logCh) {
						continue
					}
					fatalMu.Lock()
					fatal = true
					fatalMu.Unlock()
					cancel()
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, u := range urls {
			select {
			case <-ctx.Done():
				return
			case jobs <- u:
			}
		}
	}()

	wg.Wait()
	close(logCh)
	logWG.Wait()

	fatalMu.Lock()
	defer fatalMu.Unlock()
	return !fatal
}

func mirrorOne(ctx context.Context, g Getter, u string, opts MirrorOptions, rng *rand.Rand, logCh chan<- MirrorRecord) bool {
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		rec, retryAfter := mirrorAttempt(ctx, g, u, attempt, opts)
		logCh <- rec

		if rec.Error == "" && (rec.StatusCode == http.StatusNotFound || (rec.StatusCode >= 200 && rec.StatusCode < 300)) {
			return true
		}
		if attempt == opts.MaxAttempts {
			return false
		}
		wait := nextRetryDelay(rec.StatusCode, retryAfter, attempt, opts.BaseBackoff, opts.MaxBackoff)
		if opts.JitterMax > 0 {
			wait += time.Duration(rng.Int63n(int64(opts.JitterMax) + 1))
		}
		if !opts.Sleep(ctx, wait) {
			return false
		}
	}
	return false
}

func mirrorAttempt(ctx context.Context, g Getter, u string, attempt int, opts MirrorOptions) (MirrorRecord, time.Duration) {
	rec := MirrorRecord{
		Timestamp: opts.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
		URL:       u,
		Attempt:   attempt,
		RequestMs: -1,
		SizeBytes: -1,
	}
	res, err := g.Get(ctx, u)
	if err != nil {
		rec.Error = err.Error()
		return rec, 0
	}
	rec.StatusCode = res.Status
	rec.RequestMs = res.RequestDuration.Milliseconds()
	rec.DurationMs = res.TotalDuration.Milliseconds()
	rec.SizeBytes = int64(len(res.Body))

	var retryAfter time.Duration
	if res.Status == http.StatusTooManyRequests {
		retryAfter = parseRetryAfter(res.Header)
		rec.RetryAfterMs = retryAfter.Milliseconds()
	}
	if !res.OK() {
		return rec, retryAfter
	}

	out, err := MirrorPath(opts.Root, u)
	if err != nil {
		rec.Error = err.Error()
		return rec, 0
	}
	if _, err := WriteFileAtomic(out, bytes.NewReader(res.Body)); err != nil {
		rec.Error = err.Error()
		return rec, 0
	}
	rec.File = out
	return rec, 0
}

func nextRetryDelay(status int, retryAfter time.Duration, attempt int, base, max time.Duration) time.Duration {
	if status == http.StatusTooManyRequests && retryAfter > 0 {
		return retryAfter
	}
	d := base << uint(attempt-1)
	if d > max {
		d = max
	}
	return d
}

func parseRetryAfter(h http.Header) time.Duration {
	ra := strings.TrimSpace(h.Get("Retry-After"))
	if ra == "" {
		return 0
	}
	if secs, err := strconv.Atoi(ra); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(ra); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
