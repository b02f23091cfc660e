package store

import (
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/pixsync/pixsync/internal/db"
	"github.com/pixsync/pixsync/internal/utils"
)

// Timestamps are stored as unix nanoseconds so the staleness comparison
// (modified_at > computed_at) stays exact inside SQL.
const schema = `
CREATE TABLE IF NOT EXISTS media_records (
    uri TEXT PRIMARY KEY,
    kind TEXT NOT NULL,
    size INTEGER NOT NULL,
    duration_ms INTEGER NOT NULL DEFAULT 0,
    modified_at INTEGER NOT NULL,
    is_remote INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS content_hashes (
    uri TEXT PRIMARY KEY REFERENCES media_records(uri) ON DELETE CASCADE,
    hash TEXT NOT NULL,
    computed_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_content_hashes_hash ON content_hashes(hash);

CREATE TABLE IF NOT EXISTS sync_links (
    local_uri TEXT PRIMARY KEY REFERENCES media_records(uri) ON DELETE CASCADE,
    remote_id TEXT NOT NULL,
    hash TEXT NOT NULL,
    synced_at INTEGER NOT NULL
);
`

// MediaStore is the SQLite-backed local library: enumerated media records,
// their content hashes and the durable links to remote records. State
// survives process restarts.
type MediaStore struct {
	db     *sqlx.DB
	dbPath string
}

// NewMediaStore creates a store backed by the SQLite database at dbPath.
func NewMediaStore(dbPath string) *MediaStore {
	return &MediaStore{dbPath: dbPath}
}

// Open the store and the underlying database.
func (s *MediaStore) Open() error {
	if s.db != nil {
		return fmt.Errorf("media store already open")
	}

	if err := utils.EnsureParent(s.dbPath); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}

	db, err := db.NewSqliteDB(db.WithPath(s.dbPath), db.WithMaxOpenConns(1))
	if err != nil {
		return fmt.Errorf("open media store: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return fmt.Errorf("initialize store schema: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the underlying database connection.
func (s *MediaStore) Close() error {
	if s.db == nil {
		return fmt.Errorf("media store not open")
	}
	if err := s.db.Close(); err != nil {
		slog.Error("failed to close media store", "error", err)
		return err
	}
	s.db = nil
	return nil
}

// inChunks runs fn over slices of at most chunkSize uris, bounding the size
// of IN clauses.
const chunkSize = 500

func inChunks(uris []string, fn func(chunk []string) error) error {
	for start := 0; start < len(uris); start += chunkSize {
		end := min(start+chunkSize, len(uris))
		if err := fn(uris[start:end]); err != nil {
			return err
		}
	}
	return nil
}
