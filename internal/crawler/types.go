package crawler

import (
	"net/http"
	"time"
)

// NoTitlePlaceholder labels a successful page that has no usable title.
const NoTitlePlaceholder = "No title found"

// OutcomeKind classifies a completed fetch.
type OutcomeKind string

// Outcome kinds.
const (
	OutcomeSuccess     OutcomeKind = "success"
	OutcomeHTTPFailure OutcomeKind = "http_failure"
)

// TaskState tracks a single fetch task through its lifecycle.
type TaskState string

// Task states. Classified and TransportFailed are terminal.
const (
	TaskPending          TaskState = "pending"
	TaskPermitAcquired   TaskState = "permit_acquired"
	TaskResponseReceived TaskState = "response_received"
	TaskClassified       TaskState = "classified"
	TaskTransportFailed  TaskState = "transport_failed"
)

// Terminal reports whether no further transitions are possible.
func (s TaskState) Terminal() bool {
	return s == TaskClassified || s == TaskTransportFailed
}

// Outcome is the classified result of one fetch.
type Outcome struct {
	Kind       OutcomeKind `json:"kind"`
	Label      string      `json:"label"`
	StatusCode int         `json:"status_code"`
}

// Entry pairs an input URL with its outcome. Index is the URL's position in
// the extracted input list.
type Entry struct {
	Index   int     `json:"index"`
	URL     string  `json:"url"`
	Outcome Outcome `json:"outcome"`
}

// Failure records a URL whose fetch produced no outcome.
type Failure struct {
	Index int    `json:"index"`
	URL   string `json:"url"`
	Err   error  `json:"-"`
}

// Report is the aggregated result of one run. Entries and Failures are in
// input order; together they cover every input URL exactly once.
type Report struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Entries    []Entry   `json:"entries"`
	Failures   []Failure `json:"failures"`
}

// Total returns the number of URLs accounted for by the report.
func (r Report) Total() int {
	return len(r.Entries) + len(r.Failures)
}

// FetchRequest captures everything needed to fetch a URL.
type FetchRequest struct {
	RunID   string
	URL     string
	Headers http.Header
}

// FetchResponse is the result returned by a Fetcher implementation.
type FetchResponse struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
	// BodyUTF8 is set when the transport already transcoded Body from the
	// charset declared in Content-Type.
	BodyUTF8 bool
}

// ContentType returns the media type to use when decoding Body.
func (r FetchResponse) ContentType() string {
	if r.BodyUTF8 {
		return "text/html; charset=utf-8"
	}
	if r.Headers == nil {
		return ""
	}
	return r.Headers.Get("Content-Type")
}

// OK reports whether the status code is in the 2xx range.
func (r FetchResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
