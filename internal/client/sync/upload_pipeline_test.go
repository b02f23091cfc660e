package sync

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixsync/pixsync/internal/client/store"
	"github.com/pixsync/pixsync/internal/media"
	"github.com/pixsync/pixsync/internal/mediasdk"
)

type fakeUploader struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]error // uri -> error returned on every attempt
}

func (f *fakeUploader) Upload(ctx context.Context, params *mediasdk.UploadParams) (*mediasdk.UploadResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, params.URI)
	f.mu.Unlock()

	if err, ok := f.fail[params.URI]; ok {
		return nil, err
	}
	return &mediasdk.UploadResponse{
		Item: &mediasdk.RemoteRecord{
			ID:       "remote-" + params.URI,
			FileHash: params.Hash,
		},
	}, nil
}

func (f *fakeUploader) attempts(uri string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, call := range f.calls {
		if call == uri {
			n++
		}
	}
	return n
}

type staticResolver struct{ root string }

func (r staticResolver) AbsPath(uri string) string {
	return filepath.Join(r.root, filepath.FromSlash(uri))
}

func testPipeline(t *testing.T, uploader MediaUploader) (*UploadPipeline, *store.MediaStore, *ProgressBroadcaster) {
	t.Helper()

	st := store.NewMediaStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, st.Open())
	t.Cleanup(func() { st.Close() })

	progress := NewProgressBroadcaster()
	p := NewUploadPipeline(uploader, st, staticResolver{root: t.TempDir()}, progress)
	p.retryDelay = time.Millisecond
	return p, st, progress
}

func uploadItems(st *store.MediaStore, t *testing.T, uris ...string) []UploadItem {
	t.Helper()

	now := time.Now()
	var records []media.Record
	var items []UploadItem
	for i, uri := range uris {
		rec := media.Record{URI: uri, Kind: media.KindImage, Size: int64(i + 1), ModifiedAt: now}
		records = append(records, rec)
		items = append(items, UploadItem{Record: rec, Hash: "hash-" + uri})
	}
	require.NoError(t, st.UpsertPreservingHash(records))
	return items
}

func TestUploadPipeline_FailedItemDoesNotBlockOthers(t *testing.T) {
	uploader := &fakeUploader{fail: map[string]error{"b.jpg": errors.New("server error")}}
	p, st, _ := testPipeline(t, uploader)
	items := uploadItems(st, t, "a.jpg", "b.jpg", "c.jpg")

	stats, err := p.Upload(t.Context(), items)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Uploaded)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, []string{"b.jpg"}, stats.FailedURIs)
	assert.Equal(t, uploadMaxAttempts, uploader.attempts("b.jpg"))

	// a and c are durably linked, b is not
	links, lerr := st.GetLinks()
	require.NoError(t, lerr)
	assert.Contains(t, links, "a.jpg")
	assert.Contains(t, links, "c.jpg")
	assert.NotContains(t, links, "b.jpg")
	assert.Equal(t, "remote-a.jpg", links["a.jpg"].RemoteID)
}

func TestUploadPipeline_ProgressIsMonotonicAndComplete(t *testing.T) {
	uploader := &fakeUploader{fail: map[string]error{"b.jpg": errors.New("nope")}}
	p, st, progress := testPipeline(t, uploader)
	items := uploadItems(st, t, "a.jpg", "b.jpg", "c.jpg")

	events := progress.SubscribeUpload()

	_, err := p.Upload(t.Context(), items)
	require.NoError(t, err)
	progress.UnsubscribeUpload(events)

	var seen []UploadProgress
	for ev := range events {
		seen = append(seen, ev)
	}
	require.Len(t, seen, 3, "failed items still advance progress")
	for i, ev := range seen {
		assert.Equal(t, i+1, ev.CurrentIndex)
		assert.Equal(t, 3, ev.TotalCount)
	}
}

// cancellingUploader succeeds until it reaches cancelOn, then cancels the
// pass context mid-item like a user-initiated stop would.
type cancellingUploader struct {
	fakeUploader
	cancelOn string
	cancel   context.CancelFunc
}

func (c *cancellingUploader) Upload(ctx context.Context, params *mediasdk.UploadParams) (*mediasdk.UploadResponse, error) {
	if params.URI == c.cancelOn {
		c.mu.Lock()
		c.calls = append(c.calls, params.URI)
		c.mu.Unlock()
		c.cancel()
		return nil, ctx.Err()
	}
	return c.fakeUploader.Upload(ctx, params)
}

func TestUploadPipeline_CancelStopsBetweenItems(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	uploader := &cancellingUploader{cancelOn: "b.jpg", cancel: cancel}
	p, st, _ := testPipeline(t, uploader)
	items := uploadItems(st, t, "a.jpg", "b.jpg", "c.jpg")

	stats, err := p.Upload(ctx, items)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, stats.Uploaded)
	assert.Zero(t, uploader.attempts("c.jpg"), "no items start after cancellation")

	// completed items stay linked so the next pass resumes past them
	links, lerr := st.GetLinks()
	require.NoError(t, lerr)
	assert.Contains(t, links, "a.jpg")
	assert.NotContains(t, links, "b.jpg")
}

func TestUploadPipeline_SessionLossAbortsBatch(t *testing.T) {
	uploader := &fakeUploader{fail: map[string]error{
		"b.jpg": fmt.Errorf("media upload: %w", mediasdk.ErrLoggedOut),
	}}
	p, st, _ := testPipeline(t, uploader)
	items := uploadItems(st, t, "a.jpg", "b.jpg", "c.jpg")

	stats, err := p.Upload(t.Context(), items)
	assert.ErrorIs(t, err, mediasdk.ErrLoggedOut)
	assert.Equal(t, 1, stats.Uploaded)
	assert.Equal(t, 1, uploader.attempts("b.jpg"), "auth failure is not retried per item")
	assert.Zero(t, uploader.attempts("c.jpg"), "batch aborts immediately")
}
