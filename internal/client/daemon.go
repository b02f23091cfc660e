package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"github.com/pixsync/pixsync/internal/client/config"
	"github.com/pixsync/pixsync/internal/client/sync"
)

const (
	retryBackoffBase = 30 * time.Second
)

// Daemon runs the client on a schedule: one pass per interval, with
// exponential backoff on failure. A file lock makes it single-instance per
// data dir.
type Daemon struct {
	config *config.Config
	client *Client
	lock   *flock.Flock
}

func NewDaemon(cfg *config.Config) (*Daemon, error) {
	client, err := New(cfg)
	if err != nil {
		return nil, err
	}
	return &Daemon{
		config: cfg,
		client: client,
		lock:   flock.New(filepath.Join(cfg.DataDir, "pixsync.lock")),
	}, nil
}

func (d *Daemon) Start(ctx context.Context) error {
	locked, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire daemon lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another instance is already running for %s", d.config.DataDir)
	}
	defer d.lock.Unlock()

	slog.Info("daemon start",
		"mediaDir", d.config.MediaDir,
		"dataDir", d.config.DataDir,
		"server", d.config.ServerURL,
		"interval", d.config.Interval())

	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		return d.runScheduler(egCtx)
	})

	eg.Go(func() error {
		<-egCtx.Done()
		slog.Info("received interrupt signal, stopping daemon")
		d.client.Close()
		return nil
	})

	if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("daemon failure", "error", err)
		return err
	}

	slog.Info("daemon stopped")
	return nil
}

// runScheduler loops sync passes. Timers are re-armed after each pass rather
// than ticking, so a long pass never stacks up behind the next one.
func (d *Daemon) runScheduler(ctx context.Context) error {
	interval := d.config.Interval()
	backoff := retryBackoffBase

	timer := time.NewTimer(d.initialDelay(interval))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		result, err := d.client.SyncOnce(ctx, false)
		switch {
		case errors.Is(err, context.Canceled):
			return err
		case errors.Is(err, sync.ErrSyncAlreadyRunning):
			// a manual pass holds the lock, just try again next interval
			timer.Reset(interval)
		case err != nil:
			slog.Error("sync pass failed, backing off", "error", err, "retryIn", backoff)
			timer.Reset(backoff)
			backoff = min(backoff*2, interval)
		default:
			backoff = retryBackoffBase
			if result.PendingUpload > 0 {
				slog.Info("items pending upload", "count", result.PendingUpload)
			}
			timer.Reset(interval)
		}
	}
}

// initialDelay honors the last completed pass: a freshly restarted daemon
// does not re-sync immediately when the interval has not elapsed yet.
func (d *Daemon) initialDelay(interval time.Duration) time.Duration {
	last := d.config.LastSyncTime
	if last.IsZero() {
		return 0
	}
	elapsed := time.Since(last)
	if elapsed >= interval {
		return 0
	}
	return interval - elapsed
}
