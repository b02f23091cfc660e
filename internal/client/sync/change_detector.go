package sync

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/pixsync/pixsync/internal/client/store"
	"github.com/pixsync/pixsync/internal/media"
)

const (
	maxHashConcurrency = 4
	hashCacheSize      = 4096
)

// cachedHash keys a computed hash to the (size, mtime) content identity it
// was computed against, so a process-lifetime cache can answer repeats
// without touching the file.
type cachedHash struct {
	size    int64
	modTime int64
	hash    string
}

// ChangeSet is what one detection round hands to reconciliation: the full
// uri to hash mapping of items with a valid hash, plus the uris that could
// not be hashed this round.
type ChangeSet struct {
	Hashes     map[string]string
	Recomputed []string
	Failed     []string
}

// ChangeDetector keeps the content-hash table fresh. It recomputes only the
// hashes the store reports as missing or stale; everything else is served
// from the store unchanged.
type ChangeDetector struct {
	store    *store.MediaStore
	resolver PathResolver
	cache    *lru.Cache[string, cachedHash]
}

func NewChangeDetector(st *store.MediaStore, resolver PathResolver) *ChangeDetector {
	cache, _ := lru.New[string, cachedHash](hashCacheSize)
	return &ChangeDetector{
		store:    st,
		resolver: resolver,
		cache:    cache,
	}
}

// DetectChanges brings hashes up to date for the local subset of records. A
// single unreadable file lands in Failed and never aborts the batch; only
// context cancellation or a store error does.
func (d *ChangeDetector) DetectChanges(ctx context.Context, records []media.Record) (*ChangeSet, error) {
	local := make(map[string]media.Record, len(records))
	uris := make([]string, 0, len(records))
	for _, rec := range records {
		if rec.IsRemote {
			continue
		}
		local[rec.URI] = rec
		uris = append(uris, rec.URI)
	}

	stale, err := d.store.NeedsRecompute(uris)
	if err != nil {
		return nil, err
	}
	staleSet := make(map[string]struct{}, len(stale))
	for _, uri := range stale {
		staleSet[uri] = struct{}{}
	}

	changes := &ChangeSet{Hashes: make(map[string]string, len(uris))}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxHashConcurrency)

	for _, uri := range stale {
		rec, ok := local[uri]
		if !ok {
			continue
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}

			hash, err := d.hashRecord(rec)
			if err != nil {
				slog.Warn("hash failed", "uri", rec.URI, "error", err)
				mu.Lock()
				changes.Failed = append(changes.Failed, rec.URI)
				mu.Unlock()
				return nil
			}

			if err := d.store.PutHash(rec.URI, hash, time.Now()); err != nil {
				return err
			}

			mu.Lock()
			changes.Hashes[rec.URI] = hash
			changes.Recomputed = append(changes.Recomputed, rec.URI)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	valid := make([]string, 0, len(uris))
	for _, uri := range uris {
		if _, isStale := staleSet[uri]; !isStale {
			valid = append(valid, uri)
		}
	}
	stored, err := d.store.GetHashes(valid)
	if err != nil {
		return nil, err
	}
	for uri, ch := range stored {
		changes.Hashes[uri] = ch.Hash
	}

	sort.Strings(changes.Failed)
	sort.Strings(changes.Recomputed)
	return changes, nil
}

func (d *ChangeDetector) hashRecord(rec media.Record) (string, error) {
	if cached, ok := d.cache.Get(rec.URI); ok &&
		cached.size == rec.Size && cached.modTime == rec.ModifiedAt.UnixNano() {
		return cached.hash, nil
	}

	hash, err := hashFile(d.resolver.AbsPath(rec.URI), rec.Size, rec.ModifiedAt)
	if err != nil {
		return "", err
	}

	d.cache.Add(rec.URI, cachedHash{
		size:    rec.Size,
		modTime: rec.ModifiedAt.UnixNano(),
		hash:    hash,
	})
	return hash, nil
}
