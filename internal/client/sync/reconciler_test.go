package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixsync/pixsync/internal/media"
	"github.com/pixsync/pixsync/internal/mediasdk"
)

type fakeSnapshotClient struct {
	fn func(ctx context.Context, params *mediasdk.SyncSnapshotParams) (*mediasdk.SyncSnapshotResponse, error)
}

func (f *fakeSnapshotClient) Snapshot(ctx context.Context, params *mediasdk.SyncSnapshotParams) (*mediasdk.SyncSnapshotResponse, error) {
	return f.fn(ctx, params)
}

func remoteItem(id, hash string) *mediasdk.RemoteRecord {
	return &mediasdk.RemoteRecord{ID: id, FileHash: hash}
}

func staticRemote(items ...*mediasdk.RemoteRecord) *fakeSnapshotClient {
	return &fakeSnapshotClient{
		fn: func(ctx context.Context, params *mediasdk.SyncSnapshotParams) (*mediasdk.SyncSnapshotResponse, error) {
			return &mediasdk.SyncSnapshotResponse{Items: items}, nil
		},
	}
}

func TestReconcile_PartitionsByHash(t *testing.T) {
	r := NewReconciler(staticRemote(
		remoteItem("R1", "h1"),
		remoteItem("R3", "h3"),
	))

	snap, err := r.Reconcile(t.Context(),
		map[string]string{"u1.jpg": "h1", "u2.jpg": "h2"},
		map[string]media.SyncLink{
			"u1.jpg": {LocalURI: "u1.jpg", RemoteID: "R1", Hash: "h1"},
		},
		false)
	require.NoError(t, err)

	assert.True(t, snap.AlreadySynced.Contains("u1.jpg"))
	assert.True(t, snap.NeedsUpload.Contains("u2.jpg"))
	assert.Empty(t, snap.Relink, "existing link needs no repair")

	require.Len(t, snap.RemoteOnly, 1)
	assert.Equal(t, "R3", snap.RemoteOnly[0].ID)
}

func TestReconcile_IgnoresTimestamps(t *testing.T) {
	// a restored backup: fresh mtime, identical content; only the hash is
	// consulted, so it must land in already-synced
	r := NewReconciler(staticRemote(remoteItem("R1", "h1")))

	snap, err := r.Reconcile(t.Context(),
		map[string]string{"restored.jpg": "h1"},
		map[string]media.SyncLink{
			"restored.jpg": {LocalURI: "restored.jpg", RemoteID: "R1", Hash: "h1", SyncedAt: time.Now().Add(-time.Hour)},
		},
		false)
	require.NoError(t, err)

	assert.True(t, snap.AlreadySynced.Contains("restored.jpg"))
	assert.Equal(t, 0, snap.NeedsUpload.Cardinality())
}

func TestReconcile_RepairsMissingLink(t *testing.T) {
	// remote has the content but we lost the link (crash before the local
	// write on a previous pass)
	r := NewReconciler(staticRemote(remoteItem("R1", "h1")))

	snap, err := r.Reconcile(t.Context(),
		map[string]string{"u1.jpg": "h1"},
		map[string]media.SyncLink{},
		false)
	require.NoError(t, err)

	assert.True(t, snap.AlreadySynced.Contains("u1.jpg"))
	require.Len(t, snap.Relink, 1)
	assert.Equal(t, "u1.jpg", snap.Relink[0].LocalURI)
	assert.Equal(t, "R1", snap.Relink[0].RemoteID)
	assert.Equal(t, "h1", snap.Relink[0].Hash)
}

func TestReconcile_StaleLinkTriggersReupload(t *testing.T) {
	// the link points at a remote record that no longer holds this content
	r := NewReconciler(staticRemote(remoteItem("R2", "h1")))

	snap, err := r.Reconcile(t.Context(),
		map[string]string{"u1.jpg": "h1"},
		map[string]media.SyncLink{
			"u1.jpg": {LocalURI: "u1.jpg", RemoteID: "R-old", Hash: "h1"},
		},
		false)
	require.NoError(t, err)

	assert.True(t, snap.NeedsUpload.Contains("u1.jpg"))
	assert.False(t, snap.AlreadySynced.Contains("u1.jpg"))
}

func TestReconcile_SkipsDeletedRemotes(t *testing.T) {
	deleted := remoteItem("R1", "h1")
	deleted.IsDeleted = true
	r := NewReconciler(staticRemote(deleted))

	snap, err := r.Reconcile(t.Context(), map[string]string{"u1.jpg": "h1"}, nil, false)
	require.NoError(t, err)

	assert.True(t, snap.NeedsUpload.Contains("u1.jpg"), "deleted remote content does not count as synced")
	assert.Empty(t, snap.RemoteOnly)
}

func TestReconcile_PropagatesClientError(t *testing.T) {
	boom := errors.New("boom")
	r := NewReconciler(&fakeSnapshotClient{
		fn: func(ctx context.Context, params *mediasdk.SyncSnapshotParams) (*mediasdk.SyncSnapshotResponse, error) {
			return nil, boom
		},
	})

	_, err := r.Reconcile(t.Context(), map[string]string{"u1.jpg": "h1"}, nil, false)
	assert.ErrorIs(t, err, boom)
}

func TestReconcile_ForwardsFullRefresh(t *testing.T) {
	var gotFull bool
	r := NewReconciler(&fakeSnapshotClient{
		fn: func(ctx context.Context, params *mediasdk.SyncSnapshotParams) (*mediasdk.SyncSnapshotResponse, error) {
			gotFull = params.FullRefresh
			return &mediasdk.SyncSnapshotResponse{}, nil
		},
	})

	_, err := r.Reconcile(t.Context(), nil, nil, true)
	require.NoError(t, err)
	assert.True(t, gotFull)
}
