package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/pixsync/pixsync/internal/client/store"
	"github.com/pixsync/pixsync/internal/media"
	"github.com/pixsync/pixsync/internal/mediasdk"
)

const (
	uploadMaxAttempts = 3
	uploadRetryDelay  = 2 * time.Second
)

// UploadPipeline pushes the needs-upload batch one item at a time. Each
// confirmed item gets its sync link written immediately, so an interrupted
// batch resumes exactly where it stopped on the next pass.
type UploadPipeline struct {
	uploader   MediaUploader
	store      *store.MediaStore
	resolver   PathResolver
	progress   *ProgressBroadcaster
	retryDelay time.Duration
}

func NewUploadPipeline(uploader MediaUploader, st *store.MediaStore, resolver PathResolver, progress *ProgressBroadcaster) *UploadPipeline {
	return &UploadPipeline{
		uploader:   uploader,
		store:      st,
		resolver:   resolver,
		progress:   progress,
		retryDelay: uploadRetryDelay,
	}
}

// Upload runs the batch sequentially. A failed item is logged and skipped;
// cancellation and session loss abort the batch with the items uploaded so
// far already linked.
func (p *UploadPipeline) Upload(ctx context.Context, items []UploadItem) (*UploadStats, error) {
	stats := &UploadStats{}
	total := len(items)

	for i, item := range items {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}

		err := p.uploadOne(ctx, item)
		switch {
		case err == nil:
			stats.Uploaded++
			slog.Info("uploaded",
				"uri", item.Record.URI,
				"size", humanize.Bytes(uint64(item.Record.Size)),
				"progress", fmt.Sprintf("%d/%d", i+1, total))
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return stats, err
		case errors.Is(err, mediasdk.ErrLoggedOut),
			errors.Is(err, mediasdk.ErrAuthRetriesExceeded),
			errors.Is(err, mediasdk.ErrNoRefreshToken):
			// session is gone, every further item would fail the same way
			return stats, err
		default:
			stats.Failed++
			stats.FailedURIs = append(stats.FailedURIs, item.Record.URI)
			slog.Warn("upload failed", "uri", item.Record.URI, "error", err)
		}

		p.progress.PublishUpload(UploadProgress{CurrentIndex: i + 1, TotalCount: total})
	}

	return stats, nil
}

func (p *UploadPipeline) uploadOne(ctx context.Context, item UploadItem) error {
	var lastErr error

	for attempt := 1; attempt <= uploadMaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		resp, err := p.uploader.Upload(ctx, &mediasdk.UploadParams{
			URI:      item.Record.URI,
			FilePath: p.resolver.AbsPath(item.Record.URI),
			Kind:     string(item.Record.Kind),
			Hash:     item.Hash,
		})
		if err == nil {
			if resp == nil || resp.Item == nil {
				return ErrMalformedResponse
			}
			return p.confirm(item.Record, resp.Item)
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) ||
			errors.Is(err, mediasdk.ErrLoggedOut) ||
			errors.Is(err, mediasdk.ErrAuthRetriesExceeded) ||
			errors.Is(err, mediasdk.ErrNoRefreshToken) ||
			errors.Is(err, mediasdk.ErrFileNotFound) {
			return err
		}

		lastErr = err
		if attempt < uploadMaxAttempts {
			slog.Debug("retrying upload", "uri", item.Record.URI, "attempt", attempt, "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.retryDelay):
			}
		}
	}

	return lastErr
}

// confirm writes the sync link for an accepted upload. The remote's hash for
// the item is authoritative; when the submitted hash was empty (a file we
// could not hash locally) the confirmed hash fills the gap.
func (p *UploadPipeline) confirm(rec media.Record, item *mediasdk.RemoteRecord) error {
	hash := item.FileHash
	if hash == "" {
		return fmt.Errorf("upload %s: %w", rec.URI, ErrMalformedResponse)
	}

	return p.store.ConfirmSynced(media.SyncLink{
		LocalURI: rec.URI,
		RemoteID: item.ID,
		Hash:     hash,
		SyncedAt: time.Now(),
	})
}
