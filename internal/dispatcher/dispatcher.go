// Package dispatcher fans a run's URLs out to fetch tasks and aggregates
// their results into a report.
package dispatcher

import (
	"context"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/JakeFAU/linkcheck/internal/clock/system"
	"github.com/JakeFAU/linkcheck/internal/crawler"
	"github.com/JakeFAU/linkcheck/internal/progress"
)

// Runner executes the fetch task for one URL. *worker.Task satisfies it.
type Runner interface {
	Run(ctx context.Context, runID, url string) (crawler.Outcome, error)
}

// Dispatcher starts one task per URL and collects every result before the
// report is sealed. Concurrency is bounded only by the limiter inside the
// tasks.
type Dispatcher struct {
	runner  Runner
	emitter progress.Emitter
	clock   crawler.Clock
	diag    io.Writer
	logger  *zap.Logger
}

// New creates a Dispatcher. Per-URL failures are written to diag as
// "[UnexpectedError] <url>" lines; diag may be nil.
func New(runner Runner, emitter progress.Emitter, clock crawler.Clock, diag io.Writer, logger *zap.Logger) *Dispatcher {
	if emitter == nil {
		emitter = progress.NopEmitter{}
	}
	if clock == nil {
		clock = system.New()
	}
	if diag == nil {
		diag = io.Discard
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		runner:  runner,
		emitter: emitter,
		clock:   clock,
		diag:    diag,
		logger:  logger.Named("dispatcher"),
	}
}

type taskResult struct {
	index   int
	outcome crawler.Outcome
	err     error
}

// Run fetches every URL and returns the report once all tasks have reported.
// Entries and failures keep the input order. A failing or panicking task
// never affects the others.
func (d *Dispatcher) Run(ctx context.Context, runID string, urls []string) crawler.Report {
	report := crawler.Report{
		RunID:     runID,
		StartedAt: d.clock.Now(),
	}
	runBytes, _ := progress.ParseRunID(runID)
	d.emitter.Emit(progress.Event{
		RunID: runBytes,
		TS:    report.StartedAt,
		Stage: progress.StageRunStart,
		Total: len(urls),
	})
	d.logger.Info("dispatching fetches", zap.String("run_id", runID), zap.Int("urls", len(urls)))

	results := make(chan taskResult, len(urls))
	var wg sync.WaitGroup
	for i, url := range urls {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- d.runTask(ctx, runID, i, url)
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	slots := make([]taskResult, len(urls))
	reported := make([]bool, len(urls))
	for res := range results {
		slots[res.index] = res
		reported[res.index] = true
		if res.err != nil {
			d.reportFailure(runID, urls[res.index], res.err)
		}
	}

	for i, url := range urls {
		res := slots[i]
		if !reported[i] {
			res.err = crawler.NewError(crawler.KindUnexpected, url, fmt.Errorf("task did not report"))
		}
		if res.err != nil {
			report.Failures = append(report.Failures, crawler.Failure{Index: i, URL: url, Err: res.err})
			continue
		}
		report.Entries = append(report.Entries, crawler.Entry{Index: i, URL: url, Outcome: res.outcome})
	}

	report.FinishedAt = d.clock.Now()
	d.emitter.Emit(progress.Event{
		RunID: runBytes,
		TS:    report.FinishedAt,
		Stage: progress.StageRunDone,
		Total: len(urls),
		Dur:   max(report.FinishedAt.Sub(report.StartedAt), 0),
	})
	d.logger.Info("fetches finished",
		zap.String("run_id", runID),
		zap.Int("entries", len(report.Entries)),
		zap.Int("failures", len(report.Failures)),
	)
	return report
}

func (d *Dispatcher) runTask(ctx context.Context, runID string, index int, url string) (res taskResult) {
	res.index = index
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("fetch task panicked", zap.String("url", url), zap.Any("panic", r))
			res.outcome = crawler.Outcome{}
			res.err = crawler.NewError(crawler.KindUnexpected, url, fmt.Errorf("task panicked: %v", r))
		}
	}()
	res.outcome, res.err = d.runner.Run(ctx, runID, url)
	return res
}

func (d *Dispatcher) reportFailure(runID, url string, err error) {
	d.logger.Warn("fetch failed",
		zap.String("run_id", runID),
		zap.String("url", url),
		zap.Error(err),
	)
	if _, werr := fmt.Fprintf(d.diag, "[%s] %s\n", crawler.KindUnexpected, url); werr != nil {
		d.logger.Debug("diagnostic write failed", zap.Error(werr))
	}
}
