// Package metrics is a small facade the scraper reports through. Code calls
// the package-level helpers; the binary picks a Backend once at startup
// (Datadog, or the default nop).
package metrics

import (
	"strconv"
	"sync"
	"time"
)

// Metric names shared by the helpers and the backends.
const (
	StepTotal            = "sportsref_step_total"
	StepDurationSeconds  = "sportsref_step_duration_seconds"
	RecordsTotal         = "sportsref_records_total"
	PagesTotal           = "sportsref_pages_total"
	HTTPRequestsTotal    = "sportsref_http_requests_total"
	HTTPErrorsTotal      = "sportsref_http_errors_total"
	HTTPRequestSeconds   = "sportsref_http_request_duration_seconds"
	HTTPResponseSeconds  = "sportsref_http_response_duration_seconds"
	HTTPDownloadBytes    = "sportsref_http_download_bytes"
	StatusOK             = "ok"
	StatusError          = "error"
	StatusNoData         = "no_data"
	statusTransportError = "transport_error"
)

// Labels are metric dimensions.
type Labels map[string]string

// Backend receives metric updates. Implementations must be safe for
// concurrent use.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
}

// Flusher is implemented by backends that buffer.
type Flusher interface {
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs b. A nil b restores the nop backend.
func SetBackend(b Backend) {
	mu.Lock()
	defer mu.Unlock()
	if b == nil {
		backend = nopBackend{}
		return
	}
	backend = b
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// IncCounter forwards to the installed backend.
func IncCounter(name string, delta float64, labels Labels) {
	current().IncCounter(name, delta, labels)
}

// ObserveHistogram forwards to the installed backend.
func ObserveHistogram(name string, value float64, labels Labels) {
	current().ObserveHistogram(name, value, labels)
}

// Flush flushes the installed backend if it buffers.
func Flush() error {
	if f, ok := current().(Flusher); ok {
		return f.Flush()
	}
	return nil
}

// RecordStep counts one run of a named step (teams, schedule, boxscore,
// player, roster, store) and observes its duration.
func RecordStep(step, status string, d time.Duration) {
	l := Labels{"step": step, "status": status}
	IncCounter(StepTotal, 1, l)
	ObserveHistogram(StepDurationSeconds, d.Seconds(), l)
}

// RecordRecords counts parsed or stored records of a kind.
func RecordRecords(kind string, n int) {
	if n <= 0 {
		return
	}
	IncCounter(RecordsTotal, float64(n), Labels{"kind": kind})
}

// RecordPage counts one parsed page for a league.
func RecordPage(league string) {
	IncCounter(PagesTotal, 1, Labels{"league": league})
}

// RecordHTTP records one request attempt. A non-nil err or a status outside
// 2xx also counts as an error.
func RecordHTTP(job string, status int, err error, reqDur, respDur time.Duration, size int64) {
	l := Labels{"job": job, "status": StatusLabel(status, err)}
	IncCounter(HTTPRequestsTotal, 1, l)
	if err != nil || status < 200 || status > 299 {
		IncCounter(HTTPErrorsTotal, 1, l)
	}
	ObserveHistogram(HTTPRequestSeconds, reqDur.Seconds(), l)
	ObserveHistogram(HTTPResponseSeconds, respDur.Seconds(), l)
	if size >= 0 {
		ObserveHistogram(HTTPDownloadBytes, float64(size), l)
	}
}

// StatusLabel renders an HTTP status for a label. Failures without a
// response are "transport_error".
func StatusLabel(status int, err error) string {
	if status == 0 {
		if err != nil {
			return statusTransportError
		}
		return "unknown"
	}
	return strconv.Itoa(status)
}
