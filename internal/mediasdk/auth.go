package mediasdk

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/imroc/req/v3"

	"github.com/pixsync/pixsync/internal/utils"
	"github.com/pixsync/pixsync/internal/version"
)

// Auth endpoints are deliberately outside the TokenGuard: a 401 on a login,
// refresh or logout call must never trigger a refresh-and-retry loop.
const (
	authLogin   = "/api/v1/auth/login"
	authRefresh = "/api/v1/auth/refresh"
	authLogout  = "/api/v1/auth/logout"
)

// authClient builds a bare client for the unauthenticated auth endpoints.
func authClient(serverURL string) *req.Client {
	return req.C().
		SetBaseURL(serverURL).
		SetUserAgent(userAgent(version.Version, version.Revision)).
		SetCommonHeader(HeaderPixsyncVersion, version.Version).
		SetCommonHeader(HeaderPixsyncDeviceId, utils.HWID).
		SetJsonMarshal(jsonMarshal).
		SetJsonUnmarshal(jsonUnmarshal).
		SetCommonErrorResult(&APIError{})
}

// Login exchanges credentials for a token pair.
func Login(ctx context.Context, serverURL string, loginReq *LoginRequest) (*AuthTokenResponse, error) {
	if serverURL == "" {
		return nil, ErrNoServerURL
	}
	if _, err := mail.ParseAddress(loginReq.Email); err != nil {
		return nil, ErrInvalidEmail
	}

	var tokens AuthTokenResponse
	resp, err := authClient(serverURL).R().
		SetContext(ctx).
		SetBody(loginReq).
		SetSuccessResult(&tokens).
		Post(authLogin)

	if err := handleAPIError(resp, err, "auth login"); err != nil {
		return nil, err
	}

	return &tokens, nil
}

// RefreshAuthTokens exchanges a refresh token for a fresh token pair.
// A response-level rejection is wrapped in ErrRefreshRejected so callers can
// distinguish it from transient transport failures.
func RefreshAuthTokens(ctx context.Context, serverURL string, refreshReq *RefreshTokenRequest) (*AuthTokenResponse, error) {
	if serverURL == "" {
		return nil, ErrNoServerURL
	}
	if refreshReq == nil || refreshReq.RefreshToken == "" {
		return nil, ErrNoRefreshToken
	}

	var tokens AuthTokenResponse
	resp, err := authClient(serverURL).R().
		SetContext(ctx).
		SetBody(refreshReq).
		SetSuccessResult(&tokens).
		Post(authRefresh)

	if err != nil {
		return nil, fmt.Errorf("http request error: auth refresh %w", err)
	}

	if resp.IsErrorState() {
		if apiErr, ok := resp.ErrorResult().(*APIError); ok {
			return nil, fmt.Errorf("%w: %v", ErrRefreshRejected, apiErr)
		}
		return nil, fmt.Errorf("%w: %s", ErrRefreshRejected, resp.Status)
	}

	return &tokens, nil
}

// Logout revokes the session server-side. Best effort; local state is
// cleared by the caller regardless of the outcome.
func Logout(ctx context.Context, serverURL string, accessToken string) error {
	if serverURL == "" {
		return ErrNoServerURL
	}

	resp, err := authClient(serverURL).R().
		SetContext(ctx).
		SetBearerAuthToken(accessToken).
		Post(authLogout)

	return handleAPIError(resp, err, "auth logout")
}
