// Package app wires configuration into a runnable link check and owns the
// long-lived clients it needs.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"time"

	gcstorage "cloud.google.com/go/storage"
	gpubsub "cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"github.com/JakeFAU/linkcheck/internal/api"
	"github.com/JakeFAU/linkcheck/internal/clock/system"
	"github.com/JakeFAU/linkcheck/internal/config"
	"github.com/JakeFAU/linkcheck/internal/crawler"
	"github.com/JakeFAU/linkcheck/internal/dispatcher"
	collyfetcher "github.com/JakeFAU/linkcheck/internal/fetcher/colly"
	"github.com/JakeFAU/linkcheck/internal/fetcher/headless"
	"github.com/JakeFAU/linkcheck/internal/hash/sha256"
	"github.com/JakeFAU/linkcheck/internal/id/uuid"
	"github.com/JakeFAU/linkcheck/internal/logging"
	"github.com/JakeFAU/linkcheck/internal/metrics"
	"github.com/JakeFAU/linkcheck/internal/policy/limiter"
	"github.com/JakeFAU/linkcheck/internal/progress"
	"github.com/JakeFAU/linkcheck/internal/progress/sinks"
	"github.com/JakeFAU/linkcheck/internal/publisher"
	pubsubpublisher "github.com/JakeFAU/linkcheck/internal/publisher/pubsub"
	"github.com/JakeFAU/linkcheck/internal/report"
	"github.com/JakeFAU/linkcheck/internal/source"
	"github.com/JakeFAU/linkcheck/internal/storage/gcs"
	"github.com/JakeFAU/linkcheck/internal/storage/local"
	"github.com/JakeFAU/linkcheck/internal/storage/postgres"
	"github.com/JakeFAU/linkcheck/internal/worker"
)

const closeTimeout = 10 * time.Second

// App holds every service a run needs.
type App struct {
	cfg        config.Config
	logger     *zap.Logger
	ownsLogger bool

	metrics    *metrics.Metrics
	hub        *progress.Hub
	tally      *sinks.TallySink
	limiter    *limiter.Limiter
	dispatcher *dispatcher.Dispatcher
	server     *api.Server

	clock     crawler.Clock
	ids       crawler.IDGenerator
	hasher    crawler.Hasher
	archive   crawler.BlobStore
	reports   crawler.ReportStore
	publisher crawler.Publisher

	closers []closer
}

type closer struct {
	name string
	fn   func(context.Context) error
}

// NewApp builds the services described by cfg. Optional outputs are only
// connected when configured. On error everything already built is closed.
func NewApp(ctx context.Context, cfg config.Config, opts ...Option) (_ *App, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := options{diagnostics: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{cfg: cfg, logger: o.logger}
	if a.logger == nil {
		a.logger, err = logging.New(cfg.Logging.Development, cfg.Logging.Level)
		if err != nil {
			return nil, err
		}
		a.ownsLogger = true
	}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.clock = o.clock
	if a.clock == nil {
		a.clock = system.New()
	}
	a.ids = o.ids
	if a.ids == nil {
		a.ids = uuid.New()
	}
	a.hasher = sha256.New()

	if a.metrics, err = metrics.New(); err != nil {
		return nil, err
	}
	promSink, err := sinks.NewPrometheusSink(a.metrics.Registry())
	if err != nil {
		return nil, err
	}
	a.tally = sinks.NewTallySink()
	a.hub = progress.NewHub(progress.Config{Logger: a.logger.Named("progress")},
		sinks.NewLogSink(a.logger.Named("events")),
		promSink,
		a.tally,
	)
	a.addCloser("progress hub", a.hub.Close)

	if a.limiter, err = limiter.New(cfg.Crawler.Concurrency, a.metrics); err != nil {
		return nil, err
	}
	a.addCloser("limiter", func(context.Context) error {
		a.limiter.Close()
		return nil
	})

	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent:   cfg.Crawler.UserAgent,
		Timeout:     cfg.RequestTimeout(),
		MaxBodySize: cfg.Crawler.MaxBodyBytes,
	})
	renderer, err := a.buildRenderer(o.renderer)
	if err != nil {
		return nil, err
	}
	task := worker.New(a.limiter, fetcher, renderer, a.hub, a.clock, worker.Config{}, a.logger)
	a.dispatcher = dispatcher.New(task, a.hub, a.clock, o.diagnostics, a.logger)

	if err := a.buildOutputs(ctx, o); err != nil {
		return nil, err
	}

	if cfg.Server.ListenAddr != "" {
		a.server = api.NewServer(a.metrics, a.tally, a.limiter, a.logger)
		if err := a.server.Start(cfg.Server.ListenAddr); err != nil {
			a.server = nil
			return nil, err
		}
		a.addCloser("status server", a.server.Shutdown)
	}
	return a, nil
}

func (a *App) buildRenderer(override crawler.TitleRenderer) (crawler.TitleRenderer, error) {
	if override != nil {
		return override, nil
	}
	if !a.cfg.Headless.Enabled {
		return nil, nil
	}
	r, err := headless.NewChromedp(headless.Config{
		MaxParallel:       a.cfg.Headless.MaxParallel,
		UserAgent:         a.cfg.Crawler.UserAgent,
		NavigationTimeout: a.cfg.NavTimeout(),
	})
	if err != nil {
		return nil, fmt.Errorf("init headless renderer: %w", err)
	}
	a.addCloser("headless renderer", func(context.Context) error {
		r.Close()
		return nil
	})
	return r, nil
}

func (a *App) buildOutputs(ctx context.Context, o options) error {
	switch {
	case o.archive != nil:
		a.archive = o.archive
	case a.cfg.Storage.GCSBucket != "":
		client, err := gcstorage.NewClient(ctx)
		if err != nil {
			return fmt.Errorf("create storage client: %w", err)
		}
		store, err := gcs.New(client, gcs.Config{Bucket: a.cfg.Storage.GCSBucket})
		if err != nil {
			_ = client.Close()
			return err
		}
		a.archive = store
		a.addCloser("storage client", func(context.Context) error { return store.Close() })
	case a.cfg.Storage.LocalDir != "":
		store, err := local.New(local.Config{BaseDir: a.cfg.Storage.LocalDir})
		if err != nil {
			return err
		}
		a.archive = store
	}

	switch {
	case o.reports != nil:
		a.reports = o.reports
	case a.cfg.DB.DSN != "":
		store, err := postgres.New(ctx, postgres.Config{
			DSN:          a.cfg.DB.DSN,
			RunsTable:    a.cfg.DB.RunsTable,
			ResultsTable: a.cfg.DB.ResultsTable,
			MaxConns:     a.cfg.PoolMaxConns(),
		})
		if err != nil {
			return err
		}
		a.reports = store
		a.addCloser("report store", func(context.Context) error {
			store.Close()
			return nil
		})
	}

	switch {
	case o.publisher != nil:
		a.publisher = o.publisher
	case a.cfg.PubSub.ProjectID != "":
		client, err := gpubsub.NewClient(ctx, a.cfg.PubSub.ProjectID)
		if err != nil {
			return fmt.Errorf("create pubsub client: %w", err)
		}
		pub := pubsubpublisher.New(client, a.cfg.PubSub.TopicName)
		a.publisher = pub
		a.addCloser("pubsub publisher", func(context.Context) error { return pub.Close() })
	}
	return nil
}

func (a *App) addCloser(name string, fn func(context.Context) error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

// StatusAddr returns the status server address, or "" when it is disabled.
func (a *App) StatusAddr() string {
	if a.server == nil {
		return ""
	}
	return a.server.Addr()
}

// Logger returns the application logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Run checks every URL found in inputPath and writes the report to
// outputPath. Only source and destination failures are returned; per-URL
// failures are reported on the diagnostics writer and optional outputs only
// log warnings. An App serves a single run: writing the metrics textfile
// closes the progress hub.
func (a *App) Run(ctx context.Context, inputPath, outputPath string) (crawler.Report, error) {
	urls, err := source.ExtractFile(inputPath)
	if err != nil {
		return crawler.Report{}, err
	}
	runID, err := a.ids.NewID()
	if err != nil {
		return crawler.Report{}, crawler.NewError(crawler.KindUnexpected, "", fmt.Errorf("run id: %w", err))
	}
	logger := a.logger.With(zap.String("run_id", runID))
	logger.Info("run starting", zap.String("input", inputPath), zap.Int("urls", len(urls)))

	rep := a.dispatcher.Run(ctx, runID, urls)
	if err := report.Write(outputPath, rep.Entries); err != nil {
		return rep, err
	}
	logger.Info("report written",
		zap.String("output", outputPath),
		zap.Int("entries", len(rep.Entries)),
		zap.Int("failures", len(rep.Failures)),
	)

	a.publishOutputs(ctx, rep, logger)
	return rep, nil
}

func (a *App) publishOutputs(ctx context.Context, rep crawler.Report, logger *zap.Logger) {
	data := report.Bytes(rep.Entries)
	digest, err := a.hasher.Hash(data)
	if err != nil {
		logger.Warn("report digest failed", zap.Error(err))
	}

	var archiveURI string
	if a.archive != nil {
		key := path.Join(a.cfg.Storage.Prefix, rep.RunID+".txt")
		archiveURI, err = a.archive.PutObject(ctx, key, report.ContentType, data)
		if err != nil {
			logger.Warn("report archive failed", zap.String("key", key), zap.Error(err))
			archiveURI = ""
		} else {
			logger.Info("report archived", zap.String("uri", archiveURI))
		}
	}

	if a.reports != nil {
		if err := a.reports.SaveReport(ctx, rep); err != nil {
			logger.Warn("report persistence failed", zap.Error(err))
		}
	}

	if a.publisher != nil {
		note := publisher.NewNotification(rep, digest, archiveURI)
		id, err := a.publisher.Publish(ctx, a.cfg.PubSub.TopicName, note)
		if err != nil {
			logger.Warn("run notification failed", zap.Error(err))
		} else {
			logger.Debug("run notification published", zap.String("message_id", id))
		}
	}

	if a.cfg.Metrics.Textfile != "" {
		if err := a.flushProgress(ctx); err != nil {
			logger.Debug("progress flush incomplete", zap.Error(err))
		}
		if err := a.metrics.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
			logger.Warn("metrics textfile failed", zap.Error(err))
		}
	}
}

// flushProgress closes the hub so every queued event reaches the metric
// sinks before the textfile snapshot. Later events are dropped.
func (a *App) flushProgress(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, closeTimeout)
	defer cancel()
	return a.hub.Close(ctx)
}

// Close releases every owned resource in reverse order of creation. It is
// safe to call more than once.
func (a *App) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
		}
	}
	a.closers = nil
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn("shutdown incomplete", zap.Error(err))
	}
	if a.ownsLogger {
		_ = a.logger.Sync()
	}
}
