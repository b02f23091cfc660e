// Package client assembles the local library, the scanner, the SDK and the
// sync engine into one device client, and schedules periodic passes.
package client

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pixsync/pixsync/internal/client/config"
	"github.com/pixsync/pixsync/internal/client/scanner"
	"github.com/pixsync/pixsync/internal/client/store"
	"github.com/pixsync/pixsync/internal/client/sync"
	"github.com/pixsync/pixsync/internal/mediasdk"
	"github.com/pixsync/pixsync/internal/utils"
)

type Client struct {
	config  *config.Config
	sdk     *mediasdk.MediaSDK
	store   *store.MediaStore
	scanner *scanner.Scanner
	engine  *sync.Engine
	network sync.NetworkMonitor
}

func New(cfg *config.Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if !utils.DirExists(cfg.MediaDir) {
		return nil, fmt.Errorf("media dir does not exist: %s", cfg.MediaDir)
	}
	if err := utils.EnsureDir(cfg.DataDir); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	if cfg.Email == "" || cfg.RefreshToken == "" {
		return nil, fmt.Errorf("no session for %s, run 'pixsync login' first", cfg.ServerURL)
	}

	sdk, err := mediasdk.New(&mediasdk.Config{
		BaseURL:        cfg.ServerURL,
		Email:          cfg.Email,
		RefreshToken:   cfg.RefreshToken,
		OnTokenRefresh: onTokenRefresh(cfg),
		OnLogout:       onLogout(cfg),
	})
	if err != nil {
		return nil, fmt.Errorf("create sdk: %w", err)
	}

	st := store.NewMediaStore(cfg.DBPath())
	if err := st.Open(); err != nil {
		sdk.Close()
		return nil, err
	}

	sc := scanner.New(cfg.MediaDir)
	network := sync.NetworkMonitor(sync.AlwaysUnmetered{})
	engine := sync.NewEngine(st, sc, sdk.Sync, sdk.Media, network)

	return &Client{
		config:  cfg,
		sdk:     sdk,
		store:   st,
		scanner: sc,
		engine:  engine,
		network: network,
	}, nil
}

// onTokenRefresh persists the rotated refresh token so the session survives
// a restart. The previous token is already invalid by the time this runs.
func onTokenRefresh(cfg *config.Config) func(mediasdk.TokenState) {
	return func(state mediasdk.TokenState) {
		cfg.RefreshToken = state.RefreshToken
		if cfg.Path == "" {
			return
		}
		if err := cfg.Save(cfg.Path); err != nil {
			slog.Error("failed to persist rotated refresh token", "error", err)
		}
	}
}

func onLogout(cfg *config.Config) func() {
	return func() {
		slog.Warn("session ended, login required")
		cfg.RefreshToken = ""
		if cfg.Path == "" {
			return
		}
		if err := cfg.Save(cfg.Path); err != nil {
			slog.Error("failed to clear refresh token", "error", err)
		}
	}
}

func (c *Client) Engine() *sync.Engine {
	return c.engine
}

func (c *Client) SDK() *mediasdk.MediaSDK {
	return c.sdk
}

// SyncOnce runs a single pass with the configured constraints and persists
// the completion time.
func (c *Client) SyncOnce(ctx context.Context, fullRefresh bool) (*sync.Result, error) {
	result, err := c.engine.Sync(ctx, sync.Options{
		AutoUpload:       c.config.AutoUpload,
		RequireUnmetered: c.config.WifiOnly,
		ForceFullRefresh: fullRefresh,
	})
	if err != nil {
		return result, err
	}

	c.config.LastSyncTime = result.FinishedAt
	if c.config.Path != "" {
		if err := c.config.Save(c.config.Path); err != nil {
			slog.Error("failed to persist last sync time", "error", err)
		}
	}
	return result, nil
}

func (c *Client) Close() {
	c.sdk.Close()
	if err := c.store.Close(); err != nil {
		slog.Error("failed to close store", "error", err)
	}
}
