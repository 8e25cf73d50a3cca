package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/poemeval/internal/model"
)

// RunDB provides SQLite-based storage for evaluation runs.
// It manages connection pooling and provides methods for CRUD operations.
//
// Design decision: We use a single database file for all runs rather than
// one file per run. Cross-run comparison is the whole point of persisting
// runs, and it needs everything in one place.
type RunDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures RunDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a RunDB at the specified path.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*RunDB, error) {
	dbPath := filepath.Join(dbDir, "poemeval.db")

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Build connection string
	// We use modernc.org/sqlite which uses a different connection string format.
	// When CreateIfNotExists is false, we use mode=rw to prevent creating new files.
	// When CreateIfNotExists is true, we use mode=rwc to allow creation.
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

	// SQLite doesn't benefit from multiple connections for writes,
	// but a long-lived single connection works well for our access pattern
	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	rdb := &RunDB{
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
func (rdb *RunDB) Close() error {
	return rdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (rdb *RunDB) createTables() error {
	schema := `
	-- Runs store one row per evaluation, with the full report as JSON
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_label TEXT,
		reference_file TEXT NOT NULL,
		system_file TEXT NOT NULL,
		ignore_label INTEGER NOT NULL,
		partial_match_weight REAL NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		macro_precision REAL NOT NULL,
		macro_recall REAL NOT NULL,
		pages_evaluated INTEGER NOT NULL,
		pages_failed INTEGER NOT NULL,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_label ON runs(run_label);
	CREATE INDEX IF NOT EXISTS idx_runs_timestamp ON runs(timestamp);

	-- Page results store per-page scores for cross-run comparison joins
	CREATE TABLE IF NOT EXISTS page_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		page_id TEXT NOT NULL,
		precision REAL NOT NULL,
		recall REAL NOT NULL,
		n_span_matches INTEGER NOT NULL,
		n_span_misses INTEGER NOT NULL,
		n_span_spurious INTEGER NOT NULL,
		error TEXT,
		UNIQUE(run_id, page_id)
	);

	CREATE INDEX IF NOT EXISTS idx_page_results_run ON page_results(run_id);
	CREATE INDEX IF NOT EXISTS idx_page_results_page ON page_results(page_id);
	`

	_, err := rdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveRun persists an evaluation run and its per-page results.
// Returns the database ID assigned to the run.
func (rdb *RunDB) SaveRun(ctx context.Context, report *model.EvalReport, runLabel string) (int64, error) {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize report: %w", err)
	}

	tx, err := rdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op

	result, err := tx.ExecContext(ctx, `
	INSERT INTO runs (run_label, reference_file, system_file, ignore_label, partial_match_weight,
		macro_precision, macro_recall, pages_evaluated, pages_failed, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		runLabel,
		report.ReferenceFile,
		report.SystemFile,
		report.IgnoreLabel,
		report.PartialMatchWeight,
		report.MacroPrecision,
		report.MacroRecall,
		report.PagesEvaluated,
		report.PagesFailed,
		string(reportJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}

	runID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run id: %w", err)
	}

	for _, page := range report.Pages {
		_, err := tx.ExecContext(ctx, `
		INSERT INTO page_results (run_id, page_id, precision, recall,
			n_span_matches, n_span_misses, n_span_spurious, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			runID,
			page.PageID,
			page.Precision,
			page.Recall,
			page.NSpanMatches,
			page.NSpanMisses,
			page.NSpanSpurious,
			page.Error,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert page result for %s: %w", page.PageID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}
	return runID, nil
}

// GetRun retrieves a run's full report by its database ID.
// Returns nil without error if the run does not exist.
func (rdb *RunDB) GetRun(ctx context.Context, id int64) (*model.EvalReport, error) {
	var reportJSON string
	err := rdb.db.QueryRowContext(ctx,
		`SELECT report_json FROM runs WHERE id = ?`, id).Scan(&reportJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	var report model.EvalReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &report, nil
}

// RunMetadata contains summary information about a stored run.
// This is used for displaying run history without loading the full report.
type RunMetadata struct {
	// ID is the unique identifier of the run in the database.
	ID int64

	// RunLabel is the free-form tag given at save time, if any.
	RunLabel string

	// ReferenceFile and SystemFile record the evaluated inputs.
	ReferenceFile string
	SystemFile    string

	// Timestamp is when the run was saved.
	Timestamp time.Time

	// MacroPrecision and MacroRecall are the run's aggregate scores.
	MacroPrecision float64
	MacroRecall    float64

	// PagesEvaluated and PagesFailed partition the run's pages.
	PagesEvaluated int
	PagesFailed    int
}

// ListRuns retrieves metadata for all stored runs, newest first.
// This is more efficient than loading full reports when only the history
// listing is needed.
func (rdb *RunDB) ListRuns(ctx context.Context) ([]RunMetadata, error) {
	rows, err := rdb.db.QueryContext(ctx, `
	SELECT id, run_label, reference_file, system_file, timestamp,
		macro_precision, macro_recall, pages_evaluated, pages_failed
	FROM runs
	ORDER BY timestamp DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var results []RunMetadata
	for rows.Next() {
		var meta RunMetadata
		var label sql.NullString
		var timestamp string

		err := rows.Scan(
			&meta.ID,
			&label,
			&meta.ReferenceFile,
			&meta.SystemFile,
			&timestamp,
			&meta.MacroPrecision,
			&meta.MacroRecall,
			&meta.PagesEvaluated,
			&meta.PagesFailed,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run metadata: %w", err)
		}

		meta.RunLabel = label.String
		meta.Timestamp = parseTimestamp(timestamp)
		results = append(results, meta)
	}

	return results, rows.Err()
}

// PageDelta is the per-page score difference between two runs.
type PageDelta struct {
	// PageID identifies the compared page.
	PageID string

	// PrecisionA/RecallA are the page's scores in the first run.
	PrecisionA float64
	RecallA    float64

	// PrecisionB/RecallB are the page's scores in the second run.
	PrecisionB float64
	RecallB    float64
}

// PrecisionDelta returns the precision change from run A to run B.
func (d *PageDelta) PrecisionDelta() float64 {
	return d.PrecisionB - d.PrecisionA
}

// RecallDelta returns the recall change from run A to run B.
func (d *PageDelta) RecallDelta() float64 {
	return d.RecallB - d.RecallA
}

// ComparePages joins the per-page results of two runs on page_id and
// returns one delta per page present in both runs, sorted by page ID.
// Pages that failed in either run are excluded since their scores are
// not comparable.
func (rdb *RunDB) ComparePages(ctx context.Context, runA, runB int64) ([]PageDelta, error) {
	rows, err := rdb.db.QueryContext(ctx, `
	SELECT a.page_id, a.precision, a.recall, b.precision, b.recall
	FROM page_results a
	JOIN page_results b ON a.page_id = b.page_id
	WHERE a.run_id = ? AND b.run_id = ?
		AND (a.error IS NULL OR a.error = '')
		AND (b.error IS NULL OR b.error = '')
	ORDER BY a.page_id
	`, runA, runB)
	if err != nil {
		return nil, fmt.Errorf("failed to compare runs: %w", err)
	}
	defer rows.Close()

	var deltas []PageDelta
	for rows.Next() {
		var d PageDelta
		if err := rows.Scan(&d.PageID, &d.PrecisionA, &d.RecallA, &d.PrecisionB, &d.RecallB); err != nil {
			return nil, fmt.Errorf("failed to scan page delta: %w", err)
		}
		deltas = append(deltas, d)
	}

	return deltas, rows.Err()
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
// SQLite may return timestamps in different formats depending on configuration.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
