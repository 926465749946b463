package app

import (
	"io"

	"go.uber.org/zap"

	"github.com/JakeFAU/linkcheck/internal/crawler"
)

// Option customises NewApp.
type Option func(*options)

type options struct {
	logger      *zap.Logger
	diagnostics io.Writer
	clock       crawler.Clock
	ids         crawler.IDGenerator
	archive     crawler.BlobStore
	reports     crawler.ReportStore
	publisher   crawler.Publisher
	renderer    crawler.TitleRenderer
}

// WithLogger replaces the logger built from configuration.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithDiagnostics sets where per-URL failure lines are written. Defaults to
// stderr.
func WithDiagnostics(w io.Writer) Option {
	return func(o *options) { o.diagnostics = w }
}

// WithClock overrides the wall clock.
func WithClock(clock crawler.Clock) Option {
	return func(o *options) { o.clock = clock }
}

// WithIDGenerator overrides the run ID source.
func WithIDGenerator(ids crawler.IDGenerator) Option {
	return func(o *options) { o.ids = ids }
}

// WithArchive uses store for report archival instead of the configured
// bucket or directory. The caller keeps ownership.
func WithArchive(store crawler.BlobStore) Option {
	return func(o *options) { o.archive = store }
}

// WithReportStore uses store instead of connecting to db.dsn.
func WithReportStore(store crawler.ReportStore) Option {
	return func(o *options) { o.reports = store }
}

// WithPublisher uses pub instead of connecting to Pub/Sub.
func WithPublisher(pub crawler.Publisher) Option {
	return func(o *options) { o.publisher = pub }
}

// WithRenderer installs a title renderer regardless of headless.enabled.
func WithRenderer(r crawler.TitleRenderer) Option {
	return func(o *options) { o.renderer = r }
}
