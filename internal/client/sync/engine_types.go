package sync

import (
	"context"
	"errors"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/pixsync/pixsync/internal/media"
	"github.com/pixsync/pixsync/internal/mediasdk"
)

var (
	ErrSyncAlreadyRunning = errors.New("sync already running")
	ErrMalformedResponse  = errors.New("malformed remote response")
)

// SnapshotClient is the batched reconciliation call the engine needs from
// the SDK.
type SnapshotClient interface {
	Snapshot(ctx context.Context, params *mediasdk.SyncSnapshotParams) (*mediasdk.SyncSnapshotResponse, error)
}

// MediaUploader uploads a single media item.
type MediaUploader interface {
	Upload(ctx context.Context, params *mediasdk.UploadParams) (*mediasdk.UploadResponse, error)
}

// PathResolver maps a record uri to an absolute file path.
type PathResolver interface {
	AbsPath(uri string) string
}

// NetworkMonitor reports whether the current link is metered. The engine
// consults it only when constraints require an unmetered connection.
type NetworkMonitor interface {
	IsMetered() bool
}

// AlwaysUnmetered is the default NetworkMonitor for hosts without link-type
// information.
type AlwaysUnmetered struct{}

func (AlwaysUnmetered) IsMetered() bool { return false }

// Options for one synchronization pass.
type Options struct {
	// AutoUpload uploads the needs-upload set; when false the set is only
	// reported as pending.
	AutoUpload bool
	// RequireUnmetered skips the upload phase on metered links.
	RequireUnmetered bool
	// ForceFullRefresh asks the remote for its full snapshot rather than a
	// delta against the submitted mapping.
	ForceFullRefresh bool
}

// Snapshot is the ephemeral partition produced by one reconciliation. It is
// discarded when the pass completes or is cancelled.
type Snapshot struct {
	AlreadySynced mapset.Set[string]
	NeedsUpload   mapset.Set[string]

	// RemoteOnly are remote records with no corresponding local item:
	// download candidates, surfaced for the caller but not acted on here.
	RemoteOnly []*mediasdk.RemoteRecord

	// Relink are links to repair: the remote already holds the item's exact
	// content but no local SyncLink exists (e.g. a crash between remote
	// accept and local link write on a previous pass).
	Relink []media.SyncLink
}

func newSnapshot() *Snapshot {
	return &Snapshot{
		AlreadySynced: mapset.NewSet[string](),
		NeedsUpload:   mapset.NewSet[string](),
	}
}

// UploadItem is one entry of the ordered upload batch.
type UploadItem struct {
	Record media.Record
	Hash   string // empty when hashing failed and the item is uploaded pessimistically
}

// UploadStats summarizes one pipeline run.
type UploadStats struct {
	Uploaded   int
	Failed     int
	FailedURIs []string
}

// Result is the outcome of one pass returned to the caller/scheduler.
type Result struct {
	PassID        string
	Scanned       int
	Removed       int
	HashFailed    int
	AlreadySynced int
	Uploaded      int
	Failed        int
	PendingUpload int
	RemoteOnly    int
	StartedAt     time.Time
	FinishedAt    time.Time
}
