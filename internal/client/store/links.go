package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pixsync/pixsync/internal/media"
)

type dbSyncLink struct {
	LocalURI string `db:"local_uri"`
	RemoteID string `db:"remote_id"`
	Hash     string `db:"hash"`
	SyncedAt int64  `db:"synced_at"`
}

func (d dbSyncLink) toLink() media.SyncLink {
	return media.SyncLink{
		LocalURI: d.LocalURI,
		RemoteID: d.RemoteID,
		Hash:     d.Hash,
		SyncedAt: time.Unix(0, d.SyncedAt),
	}
}

// GetLink returns the sync link for a uri, or nil when none exists.
func (s *MediaStore) GetLink(uri string) (*media.SyncLink, error) {
	var row dbSyncLink
	err := s.db.Get(&row, "SELECT local_uri, remote_id, hash, synced_at FROM sync_links WHERE local_uri = ?", uri)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get link for %s: %w", uri, err)
	}
	link := row.toLink()
	return &link, nil
}

// GetLinks returns all sync links keyed by local uri.
func (s *MediaStore) GetLinks() (map[string]media.SyncLink, error) {
	var rows []dbSyncLink
	if err := s.db.Select(&rows, "SELECT local_uri, remote_id, hash, synced_at FROM sync_links"); err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}

	links := make(map[string]media.SyncLink, len(rows))
	for _, row := range rows {
		links[row.LocalURI] = row.toLink()
	}
	return links, nil
}

// ConfirmSynced records an upload confirmation: the sync link and its
// confirming content hash are written in one transaction, so a crash can
// never leave a link whose hash row disagrees with it.
func (s *MediaStore) ConfirmSynced(link media.SyncLink) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("begin confirm: %w", err)
	}
	defer tx.Rollback()

	const hashQuery = `INSERT INTO content_hashes (uri, hash, computed_at)
	                   VALUES (:uri, :hash, :computed_at)
	                   ON CONFLICT(uri) DO UPDATE SET hash = excluded.hash, computed_at = excluded.computed_at`
	_, err = tx.NamedExec(hashQuery, dbContentHash{
		URI:        link.LocalURI,
		Hash:       link.Hash,
		ComputedAt: link.SyncedAt.UnixNano(),
	})
	if err != nil {
		return fmt.Errorf("confirm hash for %s: %w", link.LocalURI, err)
	}

	const linkQuery = `INSERT INTO sync_links (local_uri, remote_id, hash, synced_at)
	                   VALUES (:local_uri, :remote_id, :hash, :synced_at)
	                   ON CONFLICT(local_uri) DO UPDATE SET
	                       remote_id = excluded.remote_id,
	                       hash = excluded.hash,
	                       synced_at = excluded.synced_at`
	_, err = tx.NamedExec(linkQuery, dbSyncLink{
		LocalURI: link.LocalURI,
		RemoteID: link.RemoteID,
		Hash:     link.Hash,
		SyncedAt: link.SyncedAt.UnixNano(),
	})
	if err != nil {
		return fmt.Errorf("confirm link for %s: %w", link.LocalURI, err)
	}

	return tx.Commit()
}

// DeleteLink removes the sync link for a uri.
func (s *MediaStore) DeleteLink(uri string) error {
	if _, err := s.db.Exec("DELETE FROM sync_links WHERE local_uri = ?", uri); err != nil {
		return fmt.Errorf("delete link for %s: %w", uri, err)
	}
	return nil
}
