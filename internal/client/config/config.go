package config

import (
	"encoding/json"
	"fmt"
	"net/mail"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/pixsync/pixsync/internal/utils"
)

var (
	home, _           = os.UserHomeDir()
	DefaultConfigPath = filepath.Join(home, ".pixsync", "config.json")
	DefaultDataDir    = filepath.Join(home, ".pixsync")
	DefaultServerURL  = "https://sync.pixsync.dev"

	DefaultSyncInterval = 6 * time.Hour
)

type Config struct {
	DataDir   string `json:"data_dir"`
	MediaDir  string `json:"media_dir"`
	Email     string `json:"email"`
	ServerURL string `json:"server_url"`

	// RefreshToken rotates: every refresh call returns a new one, persisted
	// back here so a restart resumes the session.
	RefreshToken string `json:"refresh_token,omitempty"`

	AutoUpload        bool `json:"auto_upload"`
	WifiOnly          bool `json:"wifi_only"`
	SyncIntervalHours int  `json:"sync_interval_hours,omitempty"`

	LastSyncTime time.Time `json:"last_sync_time,omitempty"`

	Path string `json:"-"`
}

// Interval returns the scheduler interval, defaulting when unset.
func (c *Config) Interval() time.Duration {
	if c.SyncIntervalHours <= 0 {
		return DefaultSyncInterval
	}
	return time.Duration(c.SyncIntervalHours) * time.Hour
}

func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "pixsync.db")
}

func (c *Config) LogDir() string {
	return filepath.Join(c.DataDir, "logs")
}

func (c *Config) Validate() error {
	if c.MediaDir == "" {
		return fmt.Errorf("media_dir is required")
	}
	if c.ServerURL == "" {
		return fmt.Errorf("server_url is required")
	}
	if u, err := url.Parse(c.ServerURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid server_url %q", c.ServerURL)
	}
	if c.Email != "" {
		if _, err := mail.ParseAddress(c.Email); err != nil {
			return fmt.Errorf("invalid email %q", c.Email)
		}
	}
	return nil
}

func (c *Config) Save(path string) error {
	if err := utils.EnsureParent(path); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	// holds the refresh token, keep it private
	return os.WriteFile(path, data, 0600)
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.Path = path
	if cfg.DataDir == "" {
		cfg.DataDir = DefaultDataDir
	}
	if cfg.ServerURL == "" {
		cfg.ServerURL = DefaultServerURL
	}

	resolved, err := utils.ResolvePath(cfg.MediaDir)
	if err == nil {
		cfg.MediaDir = resolved
	}

	return &cfg, nil
}
