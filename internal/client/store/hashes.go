package store

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/pixsync/pixsync/internal/media"
)

type dbContentHash struct {
	URI        string `db:"uri"`
	Hash       string `db:"hash"`
	ComputedAt int64  `db:"computed_at"`
}

// GetHashes returns the stored content hashes for the given uris; unknown
// uris are simply absent from the result.
func (s *MediaStore) GetHashes(uris []string) (map[string]media.ContentHash, error) {
	result := make(map[string]media.ContentHash, len(uris))

	err := inChunks(uris, func(chunk []string) error {
		query, args, err := sqlx.In("SELECT uri, hash, computed_at FROM content_hashes WHERE uri IN (?)", chunk)
		if err != nil {
			return err
		}

		var rows []dbContentHash
		if err := s.db.Select(&rows, s.db.Rebind(query), args...); err != nil {
			return err
		}
		for _, row := range rows {
			result[row.URI] = media.ContentHash{
				URI:        row.URI,
				Hash:       row.Hash,
				ComputedAt: time.Unix(0, row.ComputedAt),
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get hashes: %w", err)
	}

	return result, nil
}

// PutHash upserts the content hash for a uri.
func (s *MediaStore) PutHash(uri, hash string, computedAt time.Time) error {
	const query = `INSERT INTO content_hashes (uri, hash, computed_at)
	               VALUES (:uri, :hash, :computed_at)
	               ON CONFLICT(uri) DO UPDATE SET hash = excluded.hash, computed_at = excluded.computed_at`

	_, err := s.db.NamedExec(query, dbContentHash{URI: uri, Hash: hash, ComputedAt: computedAt.UnixNano()})
	if err != nil {
		return fmt.Errorf("put hash for %s: %w", uri, err)
	}
	return nil
}

// InvalidateHashes drops the stored hashes for the given uris, forcing a
// recompute on the next pass.
func (s *MediaStore) InvalidateHashes(uris []string) error {
	err := inChunks(uris, func(chunk []string) error {
		query, args, err := sqlx.In("DELETE FROM content_hashes WHERE uri IN (?)", chunk)
		if err != nil {
			return err
		}
		_, err = s.db.Exec(s.db.Rebind(query), args...)
		return err
	})
	if err != nil {
		return fmt.Errorf("invalidate hashes: %w", err)
	}
	return nil
}

// NeedsRecompute returns the subset of uris whose hash is missing or stale
// (record modified after the hash was computed).
func (s *MediaStore) NeedsRecompute(uris []string) ([]string, error) {
	var result []string

	err := inChunks(uris, func(chunk []string) error {
		query, args, err := sqlx.In(`
			SELECT r.uri FROM media_records r
			LEFT JOIN content_hashes h ON h.uri = r.uri
			WHERE r.uri IN (?) AND (h.uri IS NULL OR r.modified_at > h.computed_at)`, chunk)
		if err != nil {
			return err
		}

		var stale []string
		if err := s.db.Select(&stale, s.db.Rebind(query), args...); err != nil {
			return err
		}
		result = append(result, stale...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("needs recompute: %w", err)
	}

	return result, nil
}
