package mediasdk

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, typ AuthTokenType, expiresAt time.Time) string {
	t.Helper()
	claims := &AuthClaims{
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice@example.com",
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	tokenStr, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("k"))
	require.NoError(t, err)
	return tokenStr
}

func TestParseToken_TypeAndExpiry(t *testing.T) {
	now := time.Now()

	tokenStr := signedToken(t, AccessToken, now.Add(10*time.Minute))
	parsed, err := ParseToken(tokenStr, AccessToken)
	require.NoError(t, err)
	assert.Equal(t, AccessToken, parsed.Type)
	assert.Equal(t, "alice@example.com", parsed.Subject)

	_, err = ParseToken(tokenStr, RefreshToken)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid token type")

	expiredStr := signedToken(t, RefreshToken, now.Add(-10*time.Minute))
	_, err = ParseToken(expiredStr, RefreshToken)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}

func TestTokenStateFrom_ExtractsExpiry(t *testing.T) {
	accessExp := time.Now().Add(15 * time.Minute).Truncate(time.Second)
	refreshExp := time.Now().Add(30 * 24 * time.Hour).Truncate(time.Second)

	state := tokenStateFrom(&AuthTokenResponse{
		AccessToken:  signedToken(t, AccessToken, accessExp),
		RefreshToken: signedToken(t, RefreshToken, refreshExp),
	})

	assert.WithinDuration(t, accessExp, state.ExpiresAt, time.Second)
	assert.WithinDuration(t, refreshExp, state.RefreshExpiresAt, time.Second)
	assert.False(t, state.Expired())
}

func TestTokenState_Expired(t *testing.T) {
	assert.False(t, TokenState{}.Expired(), "unknown expiry defers to the server")
	assert.True(t, TokenState{ExpiresAt: time.Now().Add(-time.Minute)}.Expired())
	assert.False(t, TokenState{ExpiresAt: time.Now().Add(time.Minute)}.Expired())
}

func TestLogin_InputValidation(t *testing.T) {
	_, err := Login(t.Context(), "", &LoginRequest{Email: "alice@example.com"})
	assert.ErrorIs(t, err, ErrNoServerURL)

	_, err = Login(t.Context(), "http://127.0.0.1:1", &LoginRequest{Email: "bad"})
	assert.ErrorIs(t, err, ErrInvalidEmail)
}

func TestRefreshAuthTokens_InputValidation(t *testing.T) {
	_, err := RefreshAuthTokens(t.Context(), "", &RefreshTokenRequest{RefreshToken: "tok"})
	assert.ErrorIs(t, err, ErrNoServerURL)

	_, err = RefreshAuthTokens(t.Context(), "http://127.0.0.1:1", &RefreshTokenRequest{})
	assert.ErrorIs(t, err, ErrNoRefreshToken)
}
