package mediasdk

import (
	"context"

	"github.com/imroc/req/v3"

	"github.com/pixsync/pixsync/internal/utils"
	"github.com/pixsync/pixsync/internal/version"
)

// MediaSDK is the client for the remote media service. All authenticated
// calls flow through its TokenGuard.
type MediaSDK struct {
	client *req.Client
	guard  *TokenGuard

	Sync  *SyncAPI
	Media *MediaAPI
}

// New creates a MediaSDK client from the given config.
func New(cfg *Config) (*MediaSDK, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := req.C().
		SetBaseURL(cfg.BaseURL).
		SetUserAgent(userAgent(version.Version, version.Revision)).
		SetCommonHeader(HeaderPixsyncVersion, version.Version).
		SetCommonHeader(HeaderPixsyncDeviceId, utils.HWID).
		SetJsonMarshal(jsonMarshal).
		SetJsonUnmarshal(jsonUnmarshal).
		SetCommonErrorResult(&APIError{})

	initial := TokenState{
		AccessToken:  cfg.AccessToken,
		RefreshToken: cfg.RefreshToken,
	}
	if cfg.AccessToken != "" {
		if claims, err := ParseToken(cfg.AccessToken, AccessToken); err == nil && claims.ExpiresAt != nil {
			initial.ExpiresAt = claims.ExpiresAt.Time
		}
	}

	guard := NewTokenGuard(cfg.BaseURL, utils.HWID, initial)
	guard.onRefresh = cfg.OnTokenRefresh
	guard.onLogout = cfg.OnLogout

	return &MediaSDK{
		client: client,
		guard:  guard,
		Sync:   newSyncAPI(client, guard),
		Media:  newMediaAPI(client, guard),
	}, nil
}

// Guard exposes the token guard for session-level operations.
func (s *MediaSDK) Guard() *TokenGuard {
	return s.guard
}

// Logout revokes the current session.
func (s *MediaSDK) Logout(ctx context.Context) error {
	return s.guard.Logout(ctx)
}

// Close cleans up client resources.
func (s *MediaSDK) Close() {
	s.client.GetClient().CloseIdleConnections()
}
