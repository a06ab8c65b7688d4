package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/fuzznorm/internal/model"
)

// FileName is the name of the database file inside the database directory.
const FileName = "fuzznorm.db"

// ErrNotFound is returned by Open when the database must already exist but does not.
var ErrNotFound = errors.New("database not found")

// ResultDB provides SQLite-based storage for normalized run results.
// A run is identified by its directory name, so recording the same run
// again replaces the previous record.
type ResultDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures ResultDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a ResultDB in the specified directory.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, ErrNotFound is returned.
func Open(dbDir string, opts Options) (*ResultDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s", ErrNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file, mode=rwc allows it.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Workers record concurrently; a single connection serializes the writes.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	rdb := &ResultDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := rdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return rdb, nil
}

// Close closes the database connection.
func (rdb *ResultDB) Close() error {
	return rdb.db.Close()
}

// Path returns the database file path.
func (rdb *ResultDB) Path() string {
	return rdb.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (rdb *ResultDB) createTables() error {
	schema := `
	-- One row per normalized run, keyed by the run directory name
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_name TEXT NOT NULL UNIQUE,
		engine TEXT NOT NULL,
		target TEXT NOT NULL,
		cases INTEGER NOT NULL DEFAULT 0,
		pass INTEGER NOT NULL DEFAULT 0,
		skip INTEGER NOT NULL DEFAULT 0,
		recommendation INTEGER NOT NULL DEFAULT 0,
		failure INTEGER NOT NULL DEFAULT 0,
		error INTEGER NOT NULL DEFAULT 0,
		dedup INTEGER NOT NULL DEFAULT 0,
		duration REAL NOT NULL DEFAULT 0,
		digest TEXT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_runs_engine ON runs(engine);
	CREATE INDEX IF NOT EXISTS idx_runs_timestamp ON runs(timestamp);

	-- Failure kind counts per run
	CREATE TABLE IF NOT EXISTS failure_counts (
		run_id INTEGER NOT NULL REFERENCES runs(id),
		kind TEXT NOT NULL,
		count INTEGER NOT NULL,
		PRIMARY KEY (run_id, kind)
	);
	`

	_, err := rdb.db.ExecContext(context.Background(), schema)
	return err
}

// RecordRun inserts or replaces the record of a run and returns its ID.
// Uses UPSERT so re-normalizing a run keeps a single record.
func (rdb *ResultDB) RecordRun(ctx context.Context, run model.RunResult) (id int64, err error) {
	tx, err := rdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback() //nolint:errcheck // the original error is more useful
		}
	}()

	query := `
	INSERT INTO runs (run_name, engine, target, cases, pass, skip, recommendation, failure, error, dedup, duration, digest)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(run_name) DO UPDATE SET
		engine = excluded.engine,
		target = excluded.target,
		cases = excluded.cases,
		pass = excluded.pass,
		skip = excluded.skip,
		recommendation = excluded.recommendation,
		failure = excluded.failure,
		error = excluded.error,
		dedup = excluded.dedup,
		duration = excluded.duration,
		digest = excluded.digest,
		timestamp = CURRENT_TIMESTAMP
	`

	_, err = tx.ExecContext(ctx, query,
		run.Name,
		run.Engine,
		run.Target,
		run.Cases,
		run.Counts.Pass,
		run.Counts.Skip,
		run.Counts.Recommendation,
		run.Counts.Failure,
		run.Counts.Error,
		run.Dedup,
		run.Duration,
		run.Digest,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to record run: %w", err)
	}

	// LastInsertId is not reliable after the update branch of an UPSERT.
	if err = tx.QueryRowContext(ctx, "SELECT id FROM runs WHERE run_name = ?", run.Name).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to get run ID: %w", err)
	}

	if _, err = tx.ExecContext(ctx, "DELETE FROM failure_counts WHERE run_id = ?", id); err != nil {
		return 0, fmt.Errorf("failed to clear failure counts: %w", err)
	}
	for _, kind := range run.FailureKinds() {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO failure_counts (run_id, kind, count) VALUES (?, ?, ?)",
			id, kind, run.Failures[kind],
		)
		if err != nil {
			return 0, fmt.Errorf("failed to record failure count: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run record: %w", err)
	}
	return id, nil
}

// GetRun retrieves the record of a run by name.
// Returns nil, nil if the run has not been recorded.
func (rdb *ResultDB) GetRun(ctx context.Context, name string) (*model.RecordedRun, error) {
	query := `
	SELECT id, run_name, engine, target, cases, COALESCE(digest, ''), timestamp
	FROM runs
	WHERE run_name = ?
	`

	run, err := scanRecordedRun(rdb.db.QueryRowContext(ctx, query, name))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns recorded runs, most recently recorded first.
// A limit of zero or less returns every run.
func (rdb *ResultDB) ListRuns(ctx context.Context, limit int) ([]model.RecordedRun, error) {
	query := `
	SELECT id, run_name, engine, target, cases, COALESCE(digest, ''), timestamp
	FROM runs
	ORDER BY timestamp DESC, id DESC
	LIMIT ?
	`
	if limit <= 0 {
		limit = -1
	}

	rows, err := rdb.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []model.RecordedRun
	for rows.Next() {
		run, err := scanRecordedRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}

	return runs, rows.Err()
}

// EngineSummaries aggregates every recorded run per engine, ordered by engine token.
func (rdb *ResultDB) EngineSummaries(ctx context.Context) ([]model.EngineSummary, error) {
	query := `
	SELECT engine, COUNT(*), COUNT(DISTINCT target),
		SUM(pass), SUM(skip), SUM(recommendation), SUM(failure), SUM(error),
		SUM(duration)
	FROM runs
	GROUP BY engine
	ORDER BY engine
	`

	rows, err := rdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize runs: %w", err)
	}
	defer rows.Close()

	var summaries []model.EngineSummary
	index := make(map[string]int)
	for rows.Next() {
		var s model.EngineSummary
		if err := rows.Scan(
			&s.Engine, &s.Runs, &s.Targets,
			&s.Counts.Pass, &s.Counts.Skip, &s.Counts.Recommendation, &s.Counts.Failure, &s.Counts.Error,
			&s.Duration,
		); err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		index[s.Engine] = len(summaries)
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := rdb.addFailureKinds(ctx, summaries, index); err != nil {
		return nil, err
	}
	return summaries, nil
}

// addFailureKinds fills in the per-kind failure totals of each summary.
func (rdb *ResultDB) addFailureKinds(ctx context.Context, summaries []model.EngineSummary, index map[string]int) error {
	query := `
	SELECT r.engine, f.kind, SUM(f.count)
	FROM failure_counts f
	JOIN runs r ON r.id = f.run_id
	GROUP BY r.engine, f.kind
	`

	rows, err := rdb.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to summarize failures: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var engine, kind string
		var count int
		if err := rows.Scan(&engine, &kind, &count); err != nil {
			return fmt.Errorf("failed to scan failure count: %w", err)
		}
		i, ok := index[engine]
		if !ok {
			continue
		}
		if summaries[i].Failures == nil {
			summaries[i].Failures = make(map[string]int)
		}
		summaries[i].Failures[kind] = count
	}

	return rows.Err()
}

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanRecordedRun reads one run row.
func scanRecordedRun(row rowScanner) (*model.RecordedRun, error) {
	var run model.RecordedRun
	var timestamp string
	if err := row.Scan(&run.ID, &run.Name, &run.Engine, &run.Target, &run.Cases, &run.Digest, &timestamp); err != nil {
		return nil, err
	}
	run.RecordedAt = parseTimestamp(timestamp)
	return &run, nil
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
