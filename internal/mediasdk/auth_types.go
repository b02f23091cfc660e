package mediasdk

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type AuthTokenType string

const (
	AccessToken  AuthTokenType = "access"
	RefreshToken AuthTokenType = "refresh"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	DeviceID string `json:"deviceId"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
	DeviceID     string `json:"deviceId"`
}

type AuthTokenResponse struct {
	AccessToken  string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

type AuthClaims struct {
	Type AuthTokenType `json:"type"`
	jwt.RegisteredClaims
}

// ParseToken decodes a JWT without verifying its signature (the server owns
// verification; clients only need the claims) and checks type and expiry.
func ParseToken(tokenStr string, want AuthTokenType) (*AuthClaims, error) {
	claims := &AuthClaims{}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	if _, _, err := parser.ParseUnverified(tokenStr, claims); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	if claims.Type != want {
		return nil, fmt.Errorf("invalid token type: got %q, want %q", claims.Type, want)
	}

	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		return nil, fmt.Errorf("token expired at %s", claims.ExpiresAt)
	}

	return claims, nil
}

// TokenState is the process-wide authentication state. A single instance is
// owned by the TokenGuard; it is mutated only by login, refresh and logout.
type TokenState struct {
	AccessToken      string
	RefreshToken     string
	ExpiresAt        time.Time
	RefreshExpiresAt time.Time
}

// Expired reports whether the access token is known to be past its expiry.
// Unknown expiry (zero time) is treated as not expired; the server remains
// the authority via 401.
func (t TokenState) Expired() bool {
	return !t.ExpiresAt.IsZero() && time.Now().After(t.ExpiresAt)
}

// tokenStateFrom builds a TokenState from a token response, extracting expiry
// from the JWT claims where present.
func tokenStateFrom(resp *AuthTokenResponse) TokenState {
	state := TokenState{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	}
	if claims, err := ParseToken(resp.AccessToken, AccessToken); err == nil && claims.ExpiresAt != nil {
		state.ExpiresAt = claims.ExpiresAt.Time
	}
	if claims, err := ParseToken(resp.RefreshToken, RefreshToken); err == nil && claims.ExpiresAt != nil {
		state.RefreshExpiresAt = claims.ExpiresAt.Time
	}
	return state
}
