package mediasdk

import (
	"context"
	"time"

	"github.com/imroc/req/v3"

	"github.com/pixsync/pixsync/internal/utils"
)

const v1MediaUpload = "/api/v1/media/upload"

// MediaAPI uploads media files as multipart requests with metadata.
type MediaAPI struct {
	client *req.Client
	guard  *TokenGuard
}

func newMediaAPI(client *req.Client, guard *TokenGuard) *MediaAPI {
	return &MediaAPI{client: client, guard: guard}
}

// Upload streams one file. The request is rebuilt per auth retry so the
// multipart body replays cleanly.
func (m *MediaAPI) Upload(ctx context.Context, params *UploadParams) (*UploadResponse, error) {
	if !utils.FileExists(params.FilePath) {
		return nil, ErrFileNotFound
	}

	var out *UploadResponse

	resp, err := m.guard.Do(ctx, func(ctx context.Context, accessToken string) (*req.Response, error) {
		return m.client.R().
			SetContext(ctx).
			SetBearerAuthToken(accessToken).
			SetRetryCount(0).
			SetFormData(map[string]string{
				"uri":  params.URI,
				"kind": params.Kind,
				"hash": params.Hash,
			}).
			SetFile("file", params.FilePath).
			SetSuccessResult(&out).
			SetUploadCallbackWithInterval(func(info req.UploadInfo) {
				// skip progress noise for tiny files
				if info.FileSize < 1024*1024 || params.Callback == nil {
					return
				}
				params.Callback(info.UploadedSize, info.FileSize)
			}, time.Second).
			Post(v1MediaUpload)
	})

	if err := handleAPIError(resp, err, "media upload"); err != nil {
		return nil, err
	}

	return out, nil
}
