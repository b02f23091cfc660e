package mediasdk

import (
	"context"

	"github.com/imroc/req/v3"
)

const v1Sync = "/api/v1/sync"

// SyncAPI exposes the batched local/remote reconciliation call.
type SyncAPI struct {
	client *req.Client
	guard  *TokenGuard
}

func newSyncAPI(client *req.Client, guard *TokenGuard) *SyncAPI {
	return &SyncAPI{client: client, guard: guard}
}

// Snapshot submits the local uri→hash mapping and returns the remote state
// for it.
func (s *SyncAPI) Snapshot(ctx context.Context, params *SyncSnapshotParams) (*SyncSnapshotResponse, error) {
	var out *SyncSnapshotResponse

	resp, err := s.guard.Do(ctx, func(ctx context.Context, accessToken string) (*req.Response, error) {
		return s.client.R().
			SetContext(ctx).
			SetBearerAuthToken(accessToken).
			SetBody(params).
			SetSuccessResult(&out).
			Post(v1Sync)
	})

	if err := handleAPIError(resp, err, "sync snapshot"); err != nil {
		return nil, err
	}

	return out, nil
}
