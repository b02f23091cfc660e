package sync

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pixsync/pixsync/internal/client/scanner"
	"github.com/pixsync/pixsync/internal/client/store"
	"github.com/pixsync/pixsync/internal/media"
)

// Pass progress milestones. The fractions are coarse on purpose: they mark
// phase boundaries, not byte counts.
const (
	progressStart     = 0.0
	progressScanned   = 0.15
	progressHashed    = 0.4
	progressReconcile = 0.55
	progressDone      = 1.0
)

// Engine drives one synchronization pass end to end: enumerate, hash,
// reconcile, upload. At most one pass runs at a time; a second caller gets
// ErrSyncAlreadyRunning immediately instead of queueing.
type Engine struct {
	store      *store.MediaStore
	scanner    *scanner.Scanner
	detector   *ChangeDetector
	reconciler *Reconciler
	pipeline   *UploadPipeline
	progress   *ProgressBroadcaster
	network    NetworkMonitor

	muSync sync.Mutex
}

func NewEngine(st *store.MediaStore, sc *scanner.Scanner, snapshots SnapshotClient, uploader MediaUploader, network NetworkMonitor) *Engine {
	if network == nil {
		network = AlwaysUnmetered{}
	}
	progress := NewProgressBroadcaster()
	return &Engine{
		store:      st,
		scanner:    sc,
		detector:   NewChangeDetector(st, sc),
		reconciler: NewReconciler(snapshots),
		pipeline:   NewUploadPipeline(uploader, st, sc, progress),
		progress:   progress,
		network:    network,
	}
}

func (e *Engine) Progress() *ProgressBroadcaster {
	return e.progress
}

// Sync runs one pass. Cancel via ctx; the pass stops at the next item
// boundary and the lock is released, so a new pass can start immediately and
// will pick up from the already-linked state.
func (e *Engine) Sync(ctx context.Context, opts Options) (*Result, error) {
	if !e.muSync.TryLock() {
		return nil, ErrSyncAlreadyRunning
	}
	defer e.muSync.Unlock()

	result := &Result{
		PassID:    uuid.NewString(),
		StartedAt: time.Now(),
	}
	log := slog.With("pass", result.PassID)
	log.Info("sync pass started", "fullRefresh", opts.ForceFullRefresh)
	e.progress.PublishPass(progressStart)

	// enumerate
	scanned, err := e.scanner.Scan()
	if err != nil {
		return nil, err
	}
	result.Scanned = len(scanned)
	if err := e.store.UpsertPreservingHash(scanned); err != nil {
		return nil, err
	}
	uris := make([]string, 0, len(scanned))
	for _, rec := range scanned {
		uris = append(uris, rec.URI)
	}
	removed, err := e.store.DeleteMissing(uris)
	if err != nil {
		return nil, err
	}
	result.Removed = removed
	e.progress.PublishPass(progressScanned)

	// hash
	records, err := e.store.ListAll()
	if err != nil {
		return nil, err
	}
	changes, err := e.detector.DetectChanges(ctx, records)
	if err != nil {
		return nil, err
	}
	result.HashFailed = len(changes.Failed)
	e.progress.PublishPass(progressHashed)

	// reconcile
	links, err := e.store.GetLinks()
	if err != nil {
		return nil, err
	}
	snap, err := e.reconciler.Reconcile(ctx, changes.Hashes, links, opts.ForceFullRefresh)
	if err != nil {
		return nil, err
	}
	result.AlreadySynced = snap.AlreadySynced.Cardinality()
	result.RemoteOnly = len(snap.RemoteOnly)
	e.progress.PublishPass(progressReconcile)

	for _, link := range snap.Relink {
		if err := e.store.ConfirmSynced(link); err != nil {
			log.Warn("link repair failed", "uri", link.LocalURI, "error", err)
		}
	}
	if len(snap.Relink) > 0 {
		log.Info("repaired sync links", "count", len(snap.Relink))
	}

	items := e.uploadBatch(records, changes, snap)
	log.Info("reconciled",
		"scanned", result.Scanned,
		"removed", result.Removed,
		"synced", result.AlreadySynced,
		"needsUpload", len(items),
		"remoteOnly", result.RemoteOnly,
		"hashFailed", result.HashFailed)

	// upload
	switch {
	case !opts.AutoUpload:
		result.PendingUpload = len(items)
	case opts.RequireUnmetered && e.network.IsMetered():
		result.PendingUpload = len(items)
		log.Info("metered network, deferring uploads", "pending", len(items))
	case len(items) > 0:
		stats, uploadErr := e.pipeline.Upload(ctx, items)
		result.Uploaded = stats.Uploaded
		result.Failed = stats.Failed
		result.PendingUpload = len(items) - stats.Uploaded - stats.Failed
		if uploadErr != nil {
			result.FinishedAt = time.Now()
			return result, uploadErr
		}
	}

	e.progress.PublishPass(progressDone)
	result.FinishedAt = time.Now()
	log.Info("sync pass finished",
		"uploaded", result.Uploaded,
		"failed", result.Failed,
		"pending", result.PendingUpload,
		"took", result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond))
	return result, nil
}

// uploadBatch assembles the ordered upload list: every uri the remote does
// not have, plus hash-failed items uploaded pessimistically so an unreadable
// hash can never strand a file locally.
func (e *Engine) uploadBatch(records []media.Record, changes *ChangeSet, snap *Snapshot) []UploadItem {
	byURI := make(map[string]media.Record, len(records))
	for _, rec := range records {
		byURI[rec.URI] = rec
	}

	pending := snap.NeedsUpload.Clone()
	for _, uri := range changes.Failed {
		pending.Add(uri)
	}

	uris := pending.ToSlice()
	sort.Strings(uris)

	items := make([]UploadItem, 0, len(uris))
	for _, uri := range uris {
		rec, ok := byURI[uri]
		if !ok || rec.IsRemote {
			continue
		}
		items = append(items, UploadItem{
			Record: rec,
			Hash:   changes.Hashes[uri],
		})
	}
	return items
}
