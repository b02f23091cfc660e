package mediasdk

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/imroc/req/v3"
)

// maxAuthRetries caps how many times a single guarded call may be re-issued
// after a 401. Beyond this the session is considered unrecoverable and a
// logout is forced.
const maxAuthRetries = 2

// AuthedCall issues one attempt of an authenticated request with the given
// access token. Implementations must build a fresh request per invocation so
// a retry can replay the body.
type AuthedCall func(ctx context.Context, accessToken string) (*req.Response, error)

// TokenGuard wraps every authenticated call the SDK makes. It owns the
// process-wide TokenState and serializes token refresh behind a single
// mutual-exclusion gate: when N concurrent calls hit 401 on the same expired
// token, exactly one network refresh happens and the rest reuse its result.
type TokenGuard struct {
	gate      sync.Mutex // refresh single-flight gate
	stateMu   sync.RWMutex
	state     TokenState
	loggedOut atomic.Bool

	serverURL string
	deviceID  string

	onRefresh func(TokenState)
	onLogout  func()
}

func NewTokenGuard(serverURL, deviceID string, initial TokenState) *TokenGuard {
	return &TokenGuard{
		serverURL: serverURL,
		deviceID:  deviceID,
		state:     initial,
	}
}

// Tokens returns a snapshot of the current token state.
func (g *TokenGuard) Tokens() TokenState {
	g.stateMu.RLock()
	defer g.stateMu.RUnlock()
	return g.state
}

func (g *TokenGuard) setTokens(state TokenState) {
	g.stateMu.Lock()
	g.state = state
	g.stateMu.Unlock()
}

// LoggedOut reports whether the session has been invalidated.
func (g *TokenGuard) LoggedOut() bool {
	return g.loggedOut.Load()
}

// Do issues an authenticated call, transparently refreshing the access token
// on 401 and retrying up to maxAuthRetries times. Once the session is logged
// out, every pending and future call fails immediately with ErrLoggedOut.
func (g *TokenGuard) Do(ctx context.Context, call AuthedCall) (*req.Response, error) {
	for attempt := 0; ; attempt++ {
		if g.loggedOut.Load() {
			return nil, ErrLoggedOut
		}

		snap := g.Tokens()
		if snap.AccessToken == "" || snap.Expired() {
			// refresh up front rather than provoking a guaranteed 401
			refreshed, err := g.refresh(ctx, snap)
			if err != nil {
				return nil, err
			}
			snap = refreshed
		}

		resp, err := call(ctx, snap.AccessToken)
		if err != nil {
			return resp, err
		}
		if resp.StatusCode != http.StatusUnauthorized {
			return resp, nil
		}

		if attempt >= maxAuthRetries {
			slog.Warn("auth retries exceeded, forcing logout", "attempts", attempt)
			g.forceLogout()
			return nil, ErrAuthRetriesExceeded
		}

		if _, err := g.refresh(ctx, snap); err != nil {
			return nil, err
		}
	}
}

// refresh acquires the single-flight gate and ensures a usable token exists.
// The issued snapshot is the token state the caller's failed request was sent
// with: if the shared state already moved past it while the caller waited on
// the gate, the fresh token is returned without a second network refresh.
func (g *TokenGuard) refresh(ctx context.Context, issued TokenState) (TokenState, error) {
	g.gate.Lock()
	defer g.gate.Unlock()

	if g.loggedOut.Load() {
		return TokenState{}, ErrLoggedOut
	}

	cur := g.Tokens()
	if cur.AccessToken != "" && cur.AccessToken != issued.AccessToken && !cur.Expired() {
		// superseded by another caller's refresh
		return cur, nil
	}

	if cur.RefreshToken == "" {
		g.forceLogout()
		return TokenState{}, ErrNoRefreshToken
	}

	tokens, err := RefreshAuthTokens(ctx, g.serverURL, &RefreshTokenRequest{
		RefreshToken: cur.RefreshToken,
		DeviceID:     g.deviceID,
	})
	if err != nil {
		if errors.Is(err, ErrRefreshRejected) || errors.Is(err, ErrNoRefreshToken) {
			// the session is gone server-side; transient transport errors
			// are left to the caller/scheduler instead
			slog.Warn("token refresh rejected, forcing logout", "error", err)
			g.forceLogout()
		}
		return TokenState{}, err
	}

	next := tokenStateFrom(tokens)
	g.setTokens(next)
	slog.Debug("token refreshed")

	if g.onRefresh != nil {
		g.onRefresh(next)
	}
	return next, nil
}

// forceLogout invalidates the session exactly once: clears TokenState and
// flips the logged-out flag so concurrent guarded calls fail fast.
func (g *TokenGuard) forceLogout() {
	if !g.loggedOut.CompareAndSwap(false, true) {
		return
	}
	g.setTokens(TokenState{})
	if g.onLogout != nil {
		g.onLogout()
	}
}

// Logout revokes the session remotely (best effort) and invalidates it
// locally.
func (g *TokenGuard) Logout(ctx context.Context) error {
	snap := g.Tokens()
	var err error
	if snap.AccessToken != "" {
		err = Logout(ctx, g.serverURL, snap.AccessToken)
	}
	g.forceLogout()
	return err
}
