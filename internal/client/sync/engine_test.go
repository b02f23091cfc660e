package sync

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixsync/pixsync/internal/client/scanner"
	"github.com/pixsync/pixsync/internal/client/store"
	"github.com/pixsync/pixsync/internal/mediasdk"
)

// fakeRemote plays both halves of the remote service: it answers snapshot
// calls from the set of hashes it has accepted uploads for.
type fakeRemote struct {
	mu      sync.Mutex
	byHash  map[string]string // hash -> remote id
	uploads int
	nextID  int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{byHash: map[string]string{}}
}

func (f *fakeRemote) Snapshot(ctx context.Context, params *mediasdk.SyncSnapshotParams) (*mediasdk.SyncSnapshotResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	resp := &mediasdk.SyncSnapshotResponse{}
	for hash, id := range f.byHash {
		resp.Items = append(resp.Items, &mediasdk.RemoteRecord{ID: id, FileHash: hash})
	}
	return resp, nil
}

func (f *fakeRemote) Upload(ctx context.Context, params *mediasdk.UploadParams) (*mediasdk.UploadResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.uploads++
	f.nextID++
	id := fmt.Sprintf("R%d", f.nextID)
	f.byHash[params.Hash] = id
	return &mediasdk.UploadResponse{
		Item: &mediasdk.RemoteRecord{ID: id, FileHash: params.Hash},
	}, nil
}

func (f *fakeRemote) uploadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uploads
}

type meteredNetwork struct{ metered bool }

func (m meteredNetwork) IsMetered() bool { return m.metered }

func testEngine(t *testing.T, remote *fakeRemote, network NetworkMonitor) (*Engine, string) {
	t.Helper()

	st := store.NewMediaStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, st.Open())
	t.Cleanup(func() { st.Close() })

	mediaDir := t.TempDir()
	sc := scanner.New(mediaDir)
	return NewEngine(st, sc, remote, remote, network), mediaDir
}

func TestEngine_FirstPassUploadsSecondPassIsIdempotent(t *testing.T) {
	remote := newFakeRemote()
	engine, mediaDir := testEngine(t, remote, nil)

	writeMediaFile(t, mediaDir, "a.jpg", "photo a")
	writeMediaFile(t, mediaDir, "sub/b.mp4", "video b")
	opts := Options{AutoUpload: true}

	first, err := engine.Sync(t.Context(), opts)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Scanned)
	assert.Equal(t, 2, first.Uploaded)
	assert.Equal(t, 0, first.AlreadySynced)
	assert.NotEmpty(t, first.PassID)

	second, err := engine.Sync(t.Context(), opts)
	require.NoError(t, err)
	assert.Equal(t, 2, second.AlreadySynced)
	assert.Equal(t, 0, second.Uploaded)
	assert.Equal(t, 2, remote.uploadCount(), "no re-uploads for unchanged content")
}

func TestEngine_SecondConcurrentPassIsRejected(t *testing.T) {
	remote := newFakeRemote()
	engine, mediaDir := testEngine(t, remote, nil)
	writeMediaFile(t, mediaDir, "a.jpg", "photo a")

	// block the first pass inside the engine
	entered := make(chan struct{})
	release := make(chan struct{})
	blocking := &fakeSnapshotClient{
		fn: func(ctx context.Context, params *mediasdk.SyncSnapshotParams) (*mediasdk.SyncSnapshotResponse, error) {
			close(entered)
			<-release
			return &mediasdk.SyncSnapshotResponse{}, nil
		},
	}
	engine.reconciler = NewReconciler(blocking)

	done := make(chan error, 1)
	go func() {
		_, err := engine.Sync(t.Context(), Options{})
		done <- err
	}()

	<-entered
	_, err := engine.Sync(t.Context(), Options{})
	assert.ErrorIs(t, err, ErrSyncAlreadyRunning)

	close(release)
	require.NoError(t, <-done)
}

func TestEngine_ManualModeReportsPending(t *testing.T) {
	remote := newFakeRemote()
	engine, mediaDir := testEngine(t, remote, nil)
	writeMediaFile(t, mediaDir, "a.jpg", "photo a")

	result, err := engine.Sync(t.Context(), Options{AutoUpload: false})
	require.NoError(t, err)
	assert.Equal(t, 1, result.PendingUpload)
	assert.Zero(t, remote.uploadCount())
}

func TestEngine_MeteredNetworkDefersUploads(t *testing.T) {
	remote := newFakeRemote()
	engine, mediaDir := testEngine(t, remote, meteredNetwork{metered: true})
	writeMediaFile(t, mediaDir, "a.jpg", "photo a")

	result, err := engine.Sync(t.Context(), Options{AutoUpload: true, RequireUnmetered: true})
	require.NoError(t, err)
	assert.Equal(t, 1, result.PendingUpload)
	assert.Zero(t, result.Uploaded)
	assert.Zero(t, remote.uploadCount())

	// same options on an unmetered link upload normally
	engine2, mediaDir2 := testEngine(t, remote, meteredNetwork{metered: false})
	writeMediaFile(t, mediaDir2, "a.jpg", "photo a")
	result, err = engine2.Sync(t.Context(), Options{AutoUpload: true, RequireUnmetered: true})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Uploaded)
}

func TestEngine_RemovedFilesAreCleanedUp(t *testing.T) {
	remote := newFakeRemote()
	engine, mediaDir := testEngine(t, remote, nil)

	writeMediaFile(t, mediaDir, "keep.jpg", "keep")
	writeMediaFile(t, mediaDir, "gone.jpg", "gone")

	first, err := engine.Sync(t.Context(), Options{AutoUpload: true})
	require.NoError(t, err)
	assert.Equal(t, 2, first.Uploaded)

	require.NoError(t, os.Remove(filepath.Join(mediaDir, "gone.jpg")))

	second, err := engine.Sync(t.Context(), Options{AutoUpload: true})
	require.NoError(t, err)
	assert.Equal(t, 1, second.Scanned)
	assert.Equal(t, 1, second.Removed)
	// the remote copy is untouched and now shows up as remote-only
	assert.Equal(t, 1, second.RemoteOnly)
}

func TestEngine_PassProgressRunsZeroToOne(t *testing.T) {
	remote := newFakeRemote()
	engine, mediaDir := testEngine(t, remote, nil)
	writeMediaFile(t, mediaDir, "a.jpg", "photo a")

	events := engine.Progress().SubscribePass()

	_, err := engine.Sync(t.Context(), Options{AutoUpload: true})
	require.NoError(t, err)
	engine.Progress().UnsubscribePass(events)

	var seen []float64
	for ev := range events {
		seen = append(seen, ev)
	}
	require.NotEmpty(t, seen)
	assert.Equal(t, 0.0, seen[0])
	assert.Equal(t, 1.0, seen[len(seen)-1])
	for i := 1; i < len(seen); i++ {
		assert.GreaterOrEqual(t, seen[i], seen[i-1], "pass progress never regresses")
	}
}

func TestEngine_RepairsLostLinkWithoutReupload(t *testing.T) {
	remote := newFakeRemote()

	st := store.NewMediaStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, st.Open())
	t.Cleanup(func() { st.Close() })

	mediaDir := t.TempDir()
	sc := scanner.New(mediaDir)
	engine := NewEngine(st, sc, remote, remote, nil)

	writeMediaFile(t, mediaDir, "a.jpg", "photo a")

	first, err := engine.Sync(t.Context(), Options{AutoUpload: true})
	require.NoError(t, err)
	require.Equal(t, 1, first.Uploaded)

	// simulate a crash that lost the local link but not the remote copy
	require.NoError(t, st.DeleteLink("a.jpg"))

	second, err := engine.Sync(t.Context(), Options{AutoUpload: true})
	require.NoError(t, err)
	assert.Equal(t, 1, second.AlreadySynced)
	assert.Equal(t, 0, second.Uploaded)
	assert.Equal(t, 1, remote.uploadCount(), "content already remote, link repaired locally")

	link, err := st.GetLink("a.jpg")
	require.NoError(t, err)
	require.NotNil(t, link)
	assert.Equal(t, "R1", link.RemoteID)
}
