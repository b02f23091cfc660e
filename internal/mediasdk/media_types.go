package mediasdk

// UploadProgressFunc receives byte-level progress while a file streams up.
type UploadProgressFunc func(uploadedBytes int64, totalBytes int64)

// UploadParams describes one media upload.
type UploadParams struct {
	URI      string // logical identity of the item, echoed back by the server
	FilePath string // absolute path of the file to stream
	Kind     string
	Hash     string // local content hash; the server dedups on it
	Callback UploadProgressFunc
}

// UploadResponse is the remote record created (or recognized as existing)
// for an uploaded item.
type UploadResponse struct {
	Item *RemoteRecord `json:"item"`
}
