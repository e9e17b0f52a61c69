package library

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"posekit/internal/config"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped whenever schema.sql changes. The index only holds
// derived data, so a mismatch is fixed by deleting the file and reindexing.
const schemaVersion = 1

// ErrSchemaMismatch indicates the index was written by another version.
var ErrSchemaMismatch = errors.New("index schema version mismatch")

// ErrNotIndexed is returned for paths the index does not know.
var ErrNotIndexed = errors.New("pose is not indexed")

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Entry is one indexed pose file.
type Entry struct {
	Path         string
	Character    string
	Name         string
	Type         PoseType
	ControlCount int
	SizeBytes    int64
	Favourite    bool
	CreatedAt    time.Time
	ModifiedAt   time.Time
	IndexedAt    time.Time
}

// Index is the SQLite-backed catalog index.
type Index struct {
	db   *sql.DB
	path string
}

// OpenIndex opens or creates the index at paths.index_path.
func OpenIndex(cfg *config.Config) (*Index, error) {
	dbPath := cfg.Paths.IndexPath
	if strings.TrimSpace(dbPath) == "" {
		return nil, errors.New("paths.index_path is not set")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("ensure index directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	index := &Index{db: db, path: dbPath}
	if err := index.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return index, nil
}

// Path returns the database file location.
func (x *Index) Path() string { return x.path }

// Close closes the underlying database connection.
func (x *Index) Close() error {
	if x == nil || x.db == nil {
		return nil
	}
	return x.db.Close()
}

func (x *Index) initSchema(ctx context.Context) error {
	var tableExists int
	err := x.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 0 {
		return x.createSchema(ctx)
	}

	var version int
	if err := x.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: index has version %d, expected %d (delete %s and run 'posekit library reindex')",
			ErrSchemaMismatch, version, schemaVersion, x.path)
	}
	return nil
}

func (x *Index) createSchema(ctx context.Context) error {
	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// Upsert records a pose. The first-seen time and favourite flag of an
// existing row are kept.
func (x *Index) Upsert(ctx context.Context, e Entry) error {
	now := time.Now().UTC()
	created := e.CreatedAt
	if created.IsZero() {
		created = now
	}
	return x.exec(ctx,
		`INSERT INTO poses (
            path, character, name, pose_type, control_count, size_bytes,
            favourite, created_at, modified_at, indexed_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(path) DO UPDATE SET
            character = excluded.character,
            name = excluded.name,
            pose_type = excluded.pose_type,
            control_count = excluded.control_count,
            size_bytes = excluded.size_bytes,
            modified_at = excluded.modified_at,
            indexed_at = excluded.indexed_at`,
		e.Path,
		e.Character,
		e.Name,
		string(e.Type),
		e.ControlCount,
		e.SizeBytes,
		boolToInt(e.Favourite),
		formatTime(created),
		formatTime(e.ModifiedAt),
		formatTime(now),
	)
}

// Get returns the entry for path, or ErrNotIndexed.
func (x *Index) Get(ctx context.Context, path string) (Entry, error) {
	row := x.db.QueryRowContext(ensureContext(ctx), selectEntry+" WHERE path = ?", path)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%s: %w", path, ErrNotIndexed)
	}
	return e, err
}

// List returns the entries of one character, or every entry when character
// is empty, ordered by path.
func (x *Index) List(ctx context.Context, character string) ([]Entry, error) {
	if character == "" {
		return x.query(ctx, selectEntry+" ORDER BY path")
	}
	return x.query(ctx, selectEntry+" WHERE character = ? ORDER BY path", character)
}

// Favourites returns every favourite entry ordered by path.
func (x *Index) Favourites(ctx context.Context) ([]Entry, error) {
	return x.query(ctx, selectEntry+" WHERE favourite = 1 ORDER BY path")
}

// SetFavourite flags or unflags an indexed pose.
func (x *Index) SetFavourite(ctx context.Context, path string, on bool) error {
	return x.execOne(ctx, path, "UPDATE poses SET favourite = ? WHERE path = ?", boolToInt(on), path)
}

// Rename moves an entry to a new path, keeping its history.
func (x *Index) Rename(ctx context.Context, oldPath, newPath, newName string, poseType PoseType) error {
	return x.execOne(ctx, oldPath,
		"UPDATE poses SET path = ?, name = ?, pose_type = ? WHERE path = ?",
		newPath, newName, string(poseType), oldPath)
}

// Remove forgets path. Removing an unknown path is not an error.
func (x *Index) Remove(ctx context.Context, path string) error {
	return x.exec(ctx, "DELETE FROM poses WHERE path = ?", path)
}

// Prune removes every entry whose path is not in keep and reports how many
// were removed.
func (x *Index) Prune(ctx context.Context, keep map[string]bool) (int, error) {
	entries, err := x.List(ctx, "")
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, e := range entries {
		if keep[e.Path] {
			continue
		}
		if err := x.Remove(ctx, e.Path); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

const selectEntry = `SELECT path, character, name, pose_type, control_count, size_bytes,
    favourite, created_at, modified_at, indexed_at FROM poses`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var (
		e                            Entry
		poseType                     string
		favourite                    int
		created, modified, indexedAt string
	)
	if err := row.Scan(&e.Path, &e.Character, &e.Name, &poseType, &e.ControlCount, &e.SizeBytes,
		&favourite, &created, &modified, &indexedAt); err != nil {
		return Entry{}, err
	}
	e.Type = PoseType(poseType)
	e.Favourite = favourite != 0
	e.CreatedAt = parseTime(created)
	e.ModifiedAt = parseTime(modified)
	e.IndexedAt = parseTime(indexedAt)
	return e, nil
}

func (x *Index) query(ctx context.Context, query string, args ...any) ([]Entry, error) {
	ctx = ensureContext(ctx)
	var rows *sql.Rows
	if err := retryOnBusy(ctx, func() error {
		var err error
		rows, err = x.db.QueryContext(ctx, query, args...)
		return err
	}); err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan index row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (x *Index) exec(ctx context.Context, query string, args ...any) error {
	_, err := x.execWithRetry(ctx, query, args...)
	return err
}

func (x *Index) execOne(ctx context.Context, path, query string, args ...any) error {
	res, err := x.execWithRetry(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", path, ErrNotIndexed)
	}
	return nil
}

func (x *Index) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx = ensureContext(ctx)
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = x.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil || !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay = min(delay*2, busyRetryMaxBackoff)
	}
	return lastErr
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
