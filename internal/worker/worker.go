// Package worker implements the fetch task: one URL taken from permit
// acquisition through classification.
package worker

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/linkcheck/internal/clock/system"
	"github.com/JakeFAU/linkcheck/internal/crawler"
	"github.com/JakeFAU/linkcheck/internal/policy/limiter"
	"github.com/JakeFAU/linkcheck/internal/progress"
	"github.com/JakeFAU/linkcheck/internal/title"
)

// Config controls Task behavior.
type Config struct {
	// Headers are added to every request.
	Headers http.Header
}

// Task runs fetches under a shared limiter. A Task holds no per-URL state and
// may be run concurrently for many URLs.
type Task struct {
	limiter  *limiter.Limiter
	fetcher  crawler.Fetcher
	renderer crawler.TitleRenderer
	emitter  progress.Emitter
	clock    crawler.Clock
	cfg      Config
	logger   *zap.Logger
}

// New constructs a Task. renderer may be nil to disable the headless title
// fallback; emitter and clock default to no-op and wall-clock implementations.
func New(
	lim *limiter.Limiter,
	fetcher crawler.Fetcher,
	renderer crawler.TitleRenderer,
	emitter progress.Emitter,
	clock crawler.Clock,
	cfg Config,
	logger *zap.Logger,
) *Task {
	if emitter == nil {
		emitter = progress.NopEmitter{}
	}
	if clock == nil {
		clock = system.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Task{
		limiter:  lim,
		fetcher:  fetcher,
		renderer: renderer,
		emitter:  emitter,
		clock:    clock,
		cfg:      cfg,
		logger:   logger.Named("task"),
	}
}

// Run fetches url and classifies the response. The permit is held from before
// the request is sent until classification finishes, and is released on every
// path. A transport failure or an aborted permit wait returns an
// UnexpectedError and no outcome.
func (t *Task) Run(ctx context.Context, runID, url string) (crawler.Outcome, error) {
	tr := t.newTrace(runID, url)

	permit, err := t.limiter.Acquire(ctx)
	if err != nil {
		return crawler.Outcome{}, t.fail(tr, err)
	}
	defer permit.Release()
	tr.advance(crawler.TaskPermitAcquired)
	t.emit(tr, progress.Event{Stage: progress.StageFetchStart})

	resp, err := t.fetcher.Fetch(ctx, crawler.FetchRequest{
		RunID:   runID,
		URL:     url,
		Headers: t.cfg.Headers,
	})
	if err != nil {
		return crawler.Outcome{}, t.fail(tr, err)
	}
	tr.advance(crawler.TaskResponseReceived)

	outcome := t.classify(ctx, url, resp)
	tr.advance(crawler.TaskClassified)
	t.emit(tr, progress.Event{
		Stage:       progress.StageFetchDone,
		StatusClass: progress.ClassifyStatus(resp.StatusCode),
		Label:       outcome.Label,
		Bytes:       int64(len(resp.Body)),
		Dur:         t.clock.Now().Sub(tr.start),
	})
	t.logger.Debug("fetch classified",
		zap.String("url", url),
		zap.Int("status", resp.StatusCode),
		zap.String("label", outcome.Label),
	)
	return outcome, nil
}

func (t *Task) classify(ctx context.Context, url string, resp crawler.FetchResponse) crawler.Outcome {
	if !resp.OK() {
		return crawler.Outcome{
			Kind:       crawler.OutcomeHTTPFailure,
			Label:      FailureLabel(resp.StatusCode),
			StatusCode: resp.StatusCode,
		}
	}
	label, ok := title.Extract(resp.Body, resp.ContentType())
	if !ok {
		label, ok = t.renderTitle(ctx, url)
	}
	if !ok {
		label = crawler.NoTitlePlaceholder
	}
	return crawler.Outcome{
		Kind:       crawler.OutcomeSuccess,
		Label:      label,
		StatusCode: resp.StatusCode,
	}
}

func (t *Task) renderTitle(ctx context.Context, url string) (string, bool) {
	if t.renderer == nil {
		return "", false
	}
	rendered, err := t.renderer.Title(ctx, url)
	if err != nil {
		t.logger.Debug("headless title fallback failed", zap.String("url", url), zap.Error(err))
		return "", false
	}
	return rendered, rendered != ""
}

func (t *Task) fail(tr *trace, err error) error {
	t.logger.Debug("fetch task failed",
		zap.String("url", tr.url),
		zap.String("state", string(tr.state)),
		zap.Error(err),
	)
	tr.advance(crawler.TaskTransportFailed)
	t.emit(tr, progress.Event{
		Stage: progress.StageFetchError,
		Dur:   t.clock.Now().Sub(tr.start),
		Note:  err.Error(),
	})
	return crawler.NewError(crawler.KindUnexpected, tr.url, err)
}

func (t *Task) emit(tr *trace, evt progress.Event) {
	evt.RunID = tr.runID
	evt.TS = t.clock.Now()
	evt.URL = tr.url
	evt.Site = tr.site
	if evt.Dur < 0 {
		evt.Dur = 0
	}
	t.emitter.Emit(evt)
}

// FailureLabel returns the canonical reason phrase for a status code, or the
// decimal code when the code has none.
func FailureLabel(code int) string {
	if text := http.StatusText(code); text != "" {
		return text
	}
	return strconv.Itoa(code)
}

// trace follows one URL through the task states.
type trace struct {
	runID [16]byte
	url   string
	site  string
	start time.Time
	state crawler.TaskState
}

func (t *Task) newTrace(runID, url string) *trace {
	id, _ := progress.ParseRunID(runID)
	return &trace{
		runID: id,
		url:   url,
		site:  progress.SiteOf(url),
		start: t.clock.Now(),
		state: crawler.TaskPending,
	}
}

func (tr *trace) advance(next crawler.TaskState) {
	if tr.state.Terminal() {
		return
	}
	tr.state = next
}
