package media

import "time"

// Kind classifies a media item.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// Record is a locally enumerated media item. Identity is the URI, a
// normalized path relative to the media root. Records are created by device
// enumeration and mutated only by re-enumeration.
type Record struct {
	URI        string
	Kind       Kind
	Size       int64
	Duration   time.Duration // videos only, zero otherwise
	ModifiedAt time.Time
	IsRemote   bool
}

// ContentHash is the stored digest of a Record's content. It is trustworthy
// for diffing only while ComputedAt is not older than the record's
// ModifiedAt; otherwise it must be recomputed.
type ContentHash struct {
	URI        string
	Hash       string
	ComputedAt time.Time
}

// Valid reports whether the hash still describes a record last modified at
// the given time.
func (c *ContentHash) Valid(modifiedAt time.Time) bool {
	return !c.ComputedAt.Before(modifiedAt)
}

// SyncLink is the durable join between a local Record and a remote record,
// written once an upload (or a reconciliation hash match) confirms both sides
// hold the same content. At most one link exists per LocalURI.
type SyncLink struct {
	LocalURI string
	RemoteID string
	Hash     string
	SyncedAt time.Time
}
