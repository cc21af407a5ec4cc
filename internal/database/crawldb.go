package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/sitesync/internal/model"
)

// FileName is the database file created inside the data directory.
const FileName = "sitesync.db"

// CrawlDB provides SQLite-based storage for crawl runs and their pages.
type CrawlDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string

	// newID generates run identifiers.
	newID func() string
}

// Options configures CrawlDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a CrawlDB inside dbDir.
// If CreateIfNotExists is false and the database doesn't exist,
// ErrDatabaseNotFound is returned.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	dsn := dbPath + "?mode=rwc"
	if opts.CreateIfNotExists {
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	} else {
		if _, err := os.Stat(dbPath); errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrDatabaseNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{
		db:     db,
		dbPath: dbPath,
		newID:  uuid.NewString,
	}

	ctx := context.Background()
	if opts.EnableWAL {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := cdb.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return cdb, nil
}

// Path returns the database file path.
func (cdb *CrawlDB) Path() string {
	return cdb.dbPath
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

func (cdb *CrawlDB) createTables(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		start_url TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		cancelled INTEGER NOT NULL DEFAULT 0,
		page_count INTEGER NOT NULL DEFAULT 0,
		stats TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_start_url ON runs(start_url);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);

	CREATE TABLE IF NOT EXISTS pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		url TEXT NOT NULL,
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		depth INTEGER NOT NULL,
		content_hash TEXT NOT NULL,
		retrieved_at TEXT NOT NULL,
		UNIQUE(run_id, url)
	);

	CREATE INDEX IF NOT EXISTS idx_pages_run ON pages(run_id);
	CREATE INDEX IF NOT EXISTS idx_pages_url ON pages(url);
	`

	_, err := cdb.db.ExecContext(ctx, schema)
	return err
}

// RunSummary describes a stored run without its pages.
type RunSummary struct {
	ID         string
	StartURL   string
	StartedAt  time.Time
	FinishedAt time.Time
	Cancelled  bool
	PageCount  int
	Stats      model.Stats
}

// SaveRun stores a crawl result and its pages in one transaction and
// returns the new run ID.
func (cdb *CrawlDB) SaveRun(ctx context.Context, result *model.CrawlResult) (id string, err error) {
	statsJSON, err := json.Marshal(result.Stats)
	if err != nil {
		return "", fmt.Errorf("failed to serialize stats: %w", err)
	}

	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	id = cdb.newID()
	_, err = tx.ExecContext(ctx, `
	INSERT INTO runs (id, start_url, started_at, finished_at, cancelled, page_count, stats)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		id,
		result.StartURL,
		formatTimestamp(result.StartedAt),
		formatTimestamp(result.FinishedAt),
		result.Cancelled,
		len(result.Pages),
		string(statsJSON),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO pages (run_id, position, url, title, content, depth, content_hash, retrieved_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return "", fmt.Errorf("failed to prepare page insert: %w", err)
	}
	defer stmt.Close()

	for i, page := range result.Pages {
		_, err = stmt.ExecContext(ctx,
			id,
			i,
			page.URL,
			page.Title,
			page.Content,
			page.Depth,
			page.ContentHash,
			formatTimestamp(page.RetrievedAt),
		)
		if err != nil {
			return "", fmt.Errorf("failed to insert page %s: %w", page.URL, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit run: %w", err)
	}
	return id, nil
}

// ListRuns returns stored runs, newest first. An empty startURL lists
// runs for every seed.
func (cdb *CrawlDB) ListRuns(ctx context.Context, startURL string) ([]RunSummary, error) {
	query := `
	SELECT id, start_url, started_at, finished_at, cancelled, page_count, stats
	FROM runs
	`
	args := make([]any, 0, 1)
	if startURL != "" {
		query += " WHERE start_url = ?"
		args = append(args, startURL)
	}
	query += " ORDER BY started_at DESC"

	rows, err := cdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun loads a stored run with all of its pages.
func (cdb *CrawlDB) GetRun(ctx context.Context, id string) (*model.CrawlResult, error) {
	row := cdb.db.QueryRowContext(ctx, `
	SELECT id, start_url, started_at, finished_at, cancelled, page_count, stats
	FROM runs
	WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	pages, err := cdb.GetRunPages(ctx, id)
	if err != nil {
		return nil, err
	}

	return &model.CrawlResult{
		StartURL:   run.StartURL,
		Pages:      pages,
		Stats:      run.Stats,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		Cancelled:  run.Cancelled,
	}, nil
}

// DeleteRun removes a run and its pages.
func (cdb *CrawlDB) DeleteRun(ctx context.Context, id string) error {
	res, err := cdb.db.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

// LatestHashes returns the content hash of every page imported by the most
// recent run for startURL, keyed by page URL. It returns an empty map when
// the seed was never crawled.
func (cdb *CrawlDB) LatestHashes(ctx context.Context, startURL string) (map[string]string, error) {
	rows, err := cdb.db.QueryContext(ctx, `
	SELECT p.url, p.content_hash
	FROM pages p
	WHERE p.run_id = (
		SELECT id FROM runs WHERE start_url = ? ORDER BY started_at DESC LIMIT 1
	)
	`, startURL)
	if err != nil {
		return nil, fmt.Errorf("failed to query page hashes: %w", err)
	}
	defer rows.Close()

	hashes := make(map[string]string)
	for rows.Next() {
		var url, hash string
		if err := rows.Scan(&url, &hash); err != nil {
			return nil, fmt.Errorf("failed to scan page hash: %w", err)
		}
		hashes[url] = hash
	}
	return hashes, rows.Err()
}

// GetRunPages returns the pages of a run in import order.
func (cdb *CrawlDB) GetRunPages(ctx context.Context, runID string) ([]model.ImportedPage, error) {
	rows, err := cdb.db.QueryContext(ctx, `
	SELECT url, title, content, depth, content_hash, retrieved_at
	FROM pages
	WHERE run_id = ?
	ORDER BY position
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pages: %w", err)
	}
	defer rows.Close()

	pages := make([]model.ImportedPage, 0)
	for rows.Next() {
		var (
			page        model.ImportedPage
			retrievedAt string
		)
		if err := rows.Scan(&page.URL, &page.Title, &page.Content, &page.Depth, &page.ContentHash, &retrievedAt); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		page.RetrievedAt = parseTimestamp(retrievedAt)
		pages = append(pages, page)
	}
	return pages, rows.Err()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (RunSummary, error) {
	var (
		run                 RunSummary
		startedAt, finished string
		statsJSON           string
	)
	err := row.Scan(&run.ID, &run.StartURL, &startedAt, &finished, &run.Cancelled, &run.PageCount, &statsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return run, err
	}
	if err != nil {
		return run, fmt.Errorf("failed to scan run: %w", err)
	}

	run.StartedAt = parseTimestamp(startedAt)
	run.FinishedAt = parseTimestamp(finished)
	if err := json.Unmarshal([]byte(statsJSON), &run.Stats); err != nil {
		return run, fmt.Errorf("failed to parse run stats: %w", err)
	}
	return run, nil
}

// timestampLayout sorts lexically in chronological order for UTC values.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// timestampFormats contains the timestamp formats that may be stored.
var timestampFormats = []string{
	timestampLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
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
