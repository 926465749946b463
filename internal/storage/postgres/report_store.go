// Package postgres persists finished runs to Postgres.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/linkcheck/internal/crawler"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Result kinds stored in the results table.
const (
	kindSuccess     = "Success"
	kindHTTPFailure = "HttpFailure"
	kindUnexpected  = "UnexpectedError"
)

// Config controls the pool and table names used by ReportStore.
type Config struct {
	DSN             string
	RunsTable       string
	ResultsTable    string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type txBeginner interface {
	Begin(context.Context) (pgx.Tx, error)
	Close()
}

// ReportStore writes one run row plus one row per URL inside a transaction.
type ReportStore struct {
	pool    txBeginner
	runs    string
	results string
}

// New connects a pool and returns a ReportStore.
func New(ctx context.Context, cfg Config) (*ReportStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	store, err := NewWithPool(pool, cfg.RunsTable, cfg.ResultsTable)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// NewWithPool constructs a store from an existing pool.
func NewWithPool(pool txBeginner, runsTable, resultsTable string) (*ReportStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if runsTable == "" {
		runsTable = "link_runs"
	}
	if resultsTable == "" {
		resultsTable = "link_results"
	}
	for _, name := range []string{runsTable, resultsTable} {
		if !validTableName.MatchString(name) {
			return nil, fmt.Errorf("invalid table name %q", name)
		}
	}
	return &ReportStore{pool: pool, runs: runsTable, results: resultsTable}, nil
}

// Close releases the underlying pool resources.
func (s *ReportStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// SaveReport inserts the run and its results atomically. Each result row's
// position is the URL's index in the input list.
func (s *ReportStore) SaveReport(ctx context.Context, report crawler.Report) (err error) {
	if s == nil || s.pool == nil {
		return fmt.Errorf("report store is not configured")
	}
	if report.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			err = fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
	}()

	runQuery := fmt.Sprintf(`
INSERT INTO %s (
	run_id,
	started_at,
	finished_at,
	url_count,
	entry_count,
	failure_count
) VALUES ($1,$2,$3,$4,$5,$6)`, s.runs)
	if _, err = tx.Exec(ctx, runQuery,
		report.RunID,
		report.StartedAt,
		report.FinishedAt,
		report.Total(),
		len(report.Entries),
		len(report.Failures),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	resultQuery := fmt.Sprintf(`
INSERT INTO %s (
	run_id,
	position,
	url,
	kind,
	label,
	status_code
) VALUES ($1,$2,$3,$4,$5,$6)`, s.results)
	for _, entry := range report.Entries {
		if _, err = tx.Exec(ctx, resultQuery,
			report.RunID,
			entry.Index,
			entry.URL,
			resultKind(entry.Outcome.Kind),
			entry.Outcome.Label,
			entry.Outcome.StatusCode,
		); err != nil {
			return fmt.Errorf("insert result for %s: %w", entry.URL, err)
		}
	}
	for _, failure := range report.Failures {
		if _, err = tx.Exec(ctx, resultQuery,
			report.RunID,
			failure.Index,
			failure.URL,
			kindUnexpected,
			kindUnexpected,
			0,
		); err != nil {
			return fmt.Errorf("insert failure for %s: %w", failure.URL, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func resultKind(kind crawler.OutcomeKind) string {
	if kind == crawler.OutcomeHTTPFailure {
		return kindHTTPFailure
	}
	return kindSuccess
}
