package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	jsoniter "github.com/json-iterator/go"
	_ "modernc.org/sqlite"
)

// sqliteExt is appended to locations that carry no extension.
const sqliteExt = ".sqlite"

const createResponsesTable = `
CREATE TABLE IF NOT EXISTS responses (
	key TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL,
	expires INTEGER NOT NULL,
	size INTEGER NOT NULL,
	data BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS responses_expires_idx ON responses (expires);
`

var entryJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// SQLiteBackend stores cache entries in a SQLite database file.
type SQLiteBackend struct {
	db   *sql.DB
	path string
}

// SQLitePath returns the database file used for a cache location.
func SQLitePath(location string) string {
	if filepath.Ext(location) == "" {
		return location + sqliteExt
	}
	return location
}

// OpenSQLite opens or creates the SQLite cache for location.
// The parent directory is created if needed; the schema is created only once.
func OpenSQLite(location string, timeout time.Duration) (*SQLiteBackend, error) {
	path := SQLitePath(location)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", sqliteDSN(path, timeout))
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}

	if _, err := db.Exec(createResponsesTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate cache db: %w", err)
	}

	return &SQLiteBackend{db: db, path: path}, nil
}

// Kind implements Backend.
func (s *SQLiteBackend) Kind() BackendKind {
	return BackendSQLite
}

// Path returns the database file path.
func (s *SQLiteBackend) Path() string {
	return s.path
}

// Get implements Backend.
func (s *SQLiteBackend) Get(ctx context.Context, key string) (*CacheEntry, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM responses WHERE key = ?`, key).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("sqlite get: %w", err)
	}

	var entry CacheEntry
	if err := entryJSON.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	return &entry, nil
}

// Set implements Backend.
func (s *SQLiteBackend) Set(ctx context.Context, key string, entry *CacheEntry) error {
	data, err := entryJSON.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO responses (key, created_at, expires, size, data) VALUES (?, ?, ?, ?, ?)`,
		key, entry.CreatedAt.Unix(), unixOrZero(entry.Expires), len(data), data,
	)
	if err != nil {
		return fmt.Errorf("sqlite set: %w", err)
	}
	return nil
}

// Delete implements Backend.
func (s *SQLiteBackend) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM responses WHERE key = ?`, key); err != nil {
		return fmt.Errorf("sqlite delete: %w", err)
	}
	return nil
}

// Clear implements Backend.
func (s *SQLiteBackend) Clear(ctx context.Context, expiredOnly bool) (int64, error) {
	var (
		res sql.Result
		err error
	)
	if expiredOnly {
		res, err = s.db.ExecContext(ctx, `DELETE FROM responses WHERE expires > 0 AND expires <= ?`, time.Now().Unix())
	} else {
		res, err = s.db.ExecContext(ctx, `DELETE FROM responses`)
	}
	if err != nil {
		return 0, fmt.Errorf("sqlite clear: %w", err)
	}
	return res.RowsAffected()
}

// Stats implements Backend.
func (s *SQLiteBackend) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN expires > 0 AND expires <= ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(size), 0)
		 FROM responses`,
		time.Now().Unix(),
	).Scan(&stats.Entries, &stats.Expired, &stats.Bytes)
	if err != nil {
		return Stats{}, fmt.Errorf("sqlite stats: %w", err)
	}
	return stats, nil
}

// Close implements Backend.
func (s *SQLiteBackend) Close() error {
	return s.db.Close()
}

// sqliteDSN carries the pragmas in the DSN so that every pooled
// connection gets them, not just the first one.
func sqliteDSN(path string, timeout time.Duration) string {
	return fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)", path, timeout.Milliseconds())
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}
