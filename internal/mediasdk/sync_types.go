package mediasdk

import "time"

// ProcessingStatus of a remote record's server-side pipeline.
type ProcessingStatus string

const (
	ProcessingPending  ProcessingStatus = "pending"
	ProcessingComplete ProcessingStatus = "complete"
	ProcessingFailed   ProcessingStatus = "failed"
)

// RemoteRecord is a media item as the remote service knows it. The engine
// only reads these; they are owned by the server.
type RemoteRecord struct {
	ID               string           `json:"id"`
	OriginalName     string           `json:"originalName"`
	Kind             string           `json:"kind"`
	Size             int64            `json:"size"`
	FileHash         string           `json:"fileHash"`
	LastModified     time.Time        `json:"lastModified"`
	UploadedAt       *time.Time       `json:"uploadedAt,omitempty"`
	HasThumbnail     bool             `json:"hasThumbnail"`
	IsDeleted        bool             `json:"isDeleted"`
	ProcessingStatus ProcessingStatus `json:"processingStatus"`
}

// SyncSnapshotParams carries the full local uri→hash mapping in one batched
// request. One call per pass, never one call per item.
type SyncSnapshotParams struct {
	Hashes      map[string]string `json:"hashes"`
	FullRefresh bool              `json:"fullRefresh"`
}

// SyncSnapshotResponse is the server's view for the submitted mapping.
type SyncSnapshotResponse struct {
	Items []*RemoteRecord `json:"items"`
}
