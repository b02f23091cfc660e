package mediasdk

import (
	"net/mail"
)

// Config is the configuration for the MediaSDK.
type Config struct {
	BaseURL      string // BaseURL is required
	Email        string // Email is required
	RefreshToken string // RefreshToken is required for authenticated calls
	AccessToken  string // AccessToken is optional; refreshed on demand

	// OnTokenRefresh is invoked with the new token state after every
	// successful refresh, so callers can persist the rotated refresh token.
	OnTokenRefresh func(TokenState)

	// OnLogout is invoked once when a forced logout invalidates the session.
	OnLogout func()
}

func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrNoServerURL
	}
	if _, err := mail.ParseAddress(c.Email); err != nil {
		return ErrInvalidEmail
	}
	return nil
}
