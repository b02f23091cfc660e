package store

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/pixsync/pixsync/internal/media"
)

type dbMediaRecord struct {
	URI        string `db:"uri"`
	Kind       string `db:"kind"`
	Size       int64  `db:"size"`
	DurationMs int64  `db:"duration_ms"`
	ModifiedAt int64  `db:"modified_at"`
	IsRemote   bool   `db:"is_remote"`
}

func toDBRecord(r media.Record) dbMediaRecord {
	return dbMediaRecord{
		URI:        r.URI,
		Kind:       string(r.Kind),
		Size:       r.Size,
		DurationMs: r.Duration.Milliseconds(),
		ModifiedAt: r.ModifiedAt.UnixNano(),
		IsRemote:   r.IsRemote,
	}
}

func (d dbMediaRecord) toRecord() media.Record {
	return media.Record{
		URI:        d.URI,
		Kind:       media.Kind(d.Kind),
		Size:       d.Size,
		Duration:   time.Duration(d.DurationMs) * time.Millisecond,
		ModifiedAt: time.Unix(0, d.ModifiedAt),
		IsRemote:   d.IsRemote,
	}
}

// ListAll returns every known media record.
func (s *MediaStore) ListAll() ([]media.Record, error) {
	var rows []dbMediaRecord
	if err := s.db.Select(&rows, "SELECT uri, kind, size, duration_ms, modified_at, is_remote FROM media_records ORDER BY uri"); err != nil {
		return nil, fmt.Errorf("list media records: %w", err)
	}

	records := make([]media.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.toRecord())
	}
	return records, nil
}

// mergeRecord reconciles a re-enumerated record with its stored version.
// Content identity is size + modification time; when those are unchanged the
// stored timestamps win, so an update to cosmetic fields (kind correction,
// duration probe, remote flag) can never make a valid content hash look
// stale.
func mergeRecord(existing, incoming media.Record) media.Record {
	contentChanged := existing.Size != incoming.Size || !existing.ModifiedAt.Equal(incoming.ModifiedAt)
	if contentChanged {
		return incoming
	}

	merged := incoming
	merged.Size = existing.Size
	merged.ModifiedAt = existing.ModifiedAt
	return merged
}

// UpsertPreservingHash inserts or updates records from a device enumeration.
// Content hashes live in their own table and are never written here, so a
// record upsert cannot silently drop the hash of an item that still exists.
func (s *MediaStore) UpsertPreservingHash(records []media.Record) error {
	if len(records) == 0 {
		return nil
	}

	existing, err := s.ListAll()
	if err != nil {
		return err
	}
	byURI := make(map[string]media.Record, len(existing))
	for _, r := range existing {
		byURI[r.URI] = r
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	const query = `INSERT INTO media_records (uri, kind, size, duration_ms, modified_at, is_remote)
	               VALUES (:uri, :kind, :size, :duration_ms, :modified_at, :is_remote)
	               ON CONFLICT(uri) DO UPDATE SET
	                   kind = excluded.kind,
	                   size = excluded.size,
	                   duration_ms = excluded.duration_ms,
	                   modified_at = excluded.modified_at,
	                   is_remote = excluded.is_remote`

	for _, incoming := range records {
		merged := incoming
		if old, ok := byURI[incoming.URI]; ok {
			merged = mergeRecord(old, incoming)
		}
		if _, err := tx.NamedExec(query, toDBRecord(merged)); err != nil {
			return fmt.Errorf("upsert record %s: %w", incoming.URI, err)
		}
	}

	return tx.Commit()
}

// DeleteMissing removes records whose uri is not in currentURIs, cascading
// to their hashes and links. Returns the number of removed records.
func (s *MediaStore) DeleteMissing(currentURIs []string) (int, error) {
	var known []string
	if err := s.db.Select(&known, "SELECT uri FROM media_records"); err != nil {
		return 0, fmt.Errorf("list record uris: %w", err)
	}

	current := make(map[string]struct{}, len(currentURIs))
	for _, uri := range currentURIs {
		current[uri] = struct{}{}
	}

	var stale []string
	for _, uri := range known {
		if _, ok := current[uri]; !ok {
			stale = append(stale, uri)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}

	err := inChunks(stale, func(chunk []string) error {
		query, args, err := sqlx.In("DELETE FROM media_records WHERE uri IN (?)", chunk)
		if err != nil {
			return err
		}
		_, err = s.db.Exec(s.db.Rebind(query), args...)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("delete missing records: %w", err)
	}

	return len(stale), nil
}
