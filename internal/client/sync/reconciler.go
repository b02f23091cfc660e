package sync

import (
	"context"
	"fmt"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/pixsync/pixsync/internal/media"
	"github.com/pixsync/pixsync/internal/mediasdk"
)

// Reconciler partitions the local catalog against the remote snapshot. Hash
// equality is the only sync-status signal; timestamps are never consulted
// here, so a restored backup with fresh mtimes but identical content still
// reconciles as already-synced.
type Reconciler struct {
	client SnapshotClient
}

func NewReconciler(client SnapshotClient) *Reconciler {
	return &Reconciler{client: client}
}

// Reconcile submits the full uri to hash mapping in one batched call and
// partitions the result. links is the current sync-link table, used only to
// detect repairs (content on the remote with no local link) and stale links
// (local link pointing at a different remote record than the one holding
// this content).
func (r *Reconciler) Reconcile(ctx context.Context, hashes map[string]string, links map[string]media.SyncLink, fullRefresh bool) (*Snapshot, error) {
	resp, err := r.client.Snapshot(ctx, &mediasdk.SyncSnapshotParams{
		Hashes:      hashes,
		FullRefresh: fullRefresh,
	})
	if err != nil {
		return nil, fmt.Errorf("sync snapshot: %w", err)
	}
	if resp == nil {
		return nil, ErrMalformedResponse
	}

	byHash := make(map[string]*mediasdk.RemoteRecord, len(resp.Items))
	for _, item := range resp.Items {
		if item == nil || item.IsDeleted {
			continue
		}
		byHash[item.FileHash] = item
	}

	snap := newSnapshot()
	now := time.Now()
	claimed := mapset.NewSet[string]()

	for uri, hash := range hashes {
		remote, ok := byHash[hash]
		if !ok {
			snap.NeedsUpload.Add(uri)
			continue
		}
		claimed.Add(hash)

		link, linked := links[uri]
		if linked && link.RemoteID != remote.ID {
			// the link points somewhere the content no longer lives;
			// re-upload and let the confirmation rewrite it
			snap.NeedsUpload.Add(uri)
			continue
		}

		snap.AlreadySynced.Add(uri)
		if !linked {
			snap.Relink = append(snap.Relink, media.SyncLink{
				LocalURI: uri,
				RemoteID: remote.ID,
				Hash:     hash,
				SyncedAt: now,
			})
		}
	}

	for _, item := range resp.Items {
		if item == nil || item.IsDeleted {
			continue
		}
		if !claimed.Contains(item.FileHash) {
			snap.RemoteOnly = append(snap.RemoteOnly, item)
		}
	}

	return snap, nil
}
