// Package metacache maintains the per-file metadata cache: extraction results
// keyed by path, a checkable staleness predicate, incremental refresh over the
// configured music folders and a debounced persistence pipeline.
package metacache

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/minitune/minitune/internal/cover"
	"github.com/minitune/minitune/internal/lyrics"
	"github.com/minitune/minitune/internal/tags"
)

const numWorkers = 8

const (
	defaultSaveDebounce = 500 * time.Millisecond
	defaultEventDelay   = 500 * time.Millisecond
)

// ErrScanInProgress is returned when a refresh is requested while another one
// is running. The running refresh picks up the request when its pass finishes,
// so the caller does not need to retry.
var ErrScanInProgress = errors.New("metacache: refresh already in progress")

// ExtractFunc reads metadata for a single audio file. It must always return a
// usable value; extraction failures surface as field defaults, never errors.
type ExtractFunc func(path string) tags.Metadata

// SaveFunc persists a snapshot of the cache. Called off the mutating
// goroutine, at most once per debounce window.
type SaveFunc func(entries map[string]tags.Metadata)

// LookupFunc fetches a cover from a remote source. Optional and best-effort:
// nil results are fine and errors stay inside the implementation.
type LookupFunc func(ctx context.Context, artist, album string) *cover.EncodedImage

// EventKind classifies a filesystem event pushed into the cache.
type EventKind int

const (
	EventCreate EventKind = iota
	EventModify
	EventDelete
)

// ScanStats summarizes one refresh pass.
type ScanStats struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
	Reused  int `json:"reused"`
	Removed int `json:"removed"`
}

// Config carries the cache dependencies.
type Config struct {
	Log     zerolog.Logger
	Extract ExtractFunc
	Save    SaveFunc
	Lookup  LookupFunc

	SaveDebounce time.Duration
	EventDelay   time.Duration
}

// Cache is the in-memory metadata store. All methods are safe for concurrent
// use.
type Cache struct {
	log     zerolog.Logger
	extract ExtractFunc
	save    SaveFunc
	lookup  LookupFunc

	saveDebounce time.Duration
	eventDelay   time.Duration

	mu      sync.Mutex
	entries map[string]tags.Metadata
	pending map[string]*time.Timer

	dirty     bool
	saveTimer *time.Timer

	scanning   bool
	rerun      bool
	rerunRoots []string
}

func New(cfg Config) *Cache {
	if cfg.SaveDebounce <= 0 {
		cfg.SaveDebounce = defaultSaveDebounce
	}
	if cfg.EventDelay <= 0 {
		cfg.EventDelay = defaultEventDelay
	}
	return &Cache{
		log:          cfg.Log,
		extract:      cfg.Extract,
		save:         cfg.Save,
		lookup:       cfg.Lookup,
		saveDebounce: cfg.SaveDebounce,
		eventDelay:   cfg.EventDelay,
		entries:      make(map[string]tags.Metadata),
		pending:      make(map[string]*time.Timer),
	}
}

// Load seeds the cache from a persisted snapshot. Covers that are no longer
// self-contained (transient URIs, corrupt payloads) are dropped so the next
// refresh re-extracts them.
func (c *Cache) Load(entries map[string]tags.Metadata) {
	c.mu.Lock()
	defer c.mu.Unlock()

	dropped := 0
	for path, m := range entries {
		if m.Cover != nil && !m.Cover.Valid() {
			m.Cover = nil
			dropped++
		}
		c.entries[path] = m
	}
	if dropped > 0 {
		c.log.Warn().Int("count", dropped).Msg("dropped non-portable covers from persisted cache")
	}
}

// Get returns the cached metadata for a path.
func (c *Cache) Get(path string) (tags.Metadata, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.entries[path]
	return m, ok
}

// Export returns a copy of the cache suitable for persistence.
func (c *Cache) Export() map[string]tags.Metadata {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exportLocked()
}

func (c *Cache) exportLocked() map[string]tags.Metadata {
	out := make(map[string]tags.Metadata, len(c.entries))
	for path, m := range c.entries {
		out[path] = m
	}
	return out
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// ClearAll wipes the cache and persists the empty state immediately.
func (c *Cache) ClearAll() {
	c.mu.Lock()
	c.entries = make(map[string]tags.Metadata)
	c.dirty = true
	c.mu.Unlock()
	c.flushNow()
}

// Refresh walks the roots and re-extracts every stale entry. A refresh
// requested while one runs returns ErrScanInProgress and sets a rerun flag
// that the active pass honors before returning, so no request is lost.
func (c *Cache) Refresh(ctx context.Context, roots []string) (ScanStats, error) {
	c.mu.Lock()
	if c.scanning {
		c.rerun = true
		c.rerunRoots = roots
		c.mu.Unlock()
		return ScanStats{}, ErrScanInProgress
	}
	c.scanning = true
	c.mu.Unlock()

	stats := c.refreshOnce(ctx, roots)
	for {
		c.mu.Lock()
		if !c.rerun {
			c.scanning = false
			c.mu.Unlock()
			return stats, nil
		}
		c.rerun = false
		roots = c.rerunRoots
		c.mu.Unlock()
		stats = c.refreshOnce(ctx, roots)
	}
}

// Stale reports whether an entry needs re-extraction. The predicate is
// checkable rather than time-based; a file with genuinely no lyrics or cover
// is re-read on every refresh, which only costs work, never correctness.
func Stale(m tags.Metadata) bool {
	return m.Title == "" || m.Artist == "" || m.Cover == nil || m.Lyrics == ""
}

func (c *Cache) refreshOnce(ctx context.Context, roots []string) ScanStats {
	start := time.Now()
	files := tags.DiscoverFiles(roots)
	present := make(map[string]struct{}, len(files))

	var stats ScanStats
	var stale []string

	c.mu.Lock()
	for _, path := range files {
		present[path] = struct{}{}
		entry, ok := c.entries[path]
		switch {
		case !ok:
			stats.Added++
			stale = append(stale, path)
		case Stale(entry):
			stats.Updated++
			stale = append(stale, path)
		default:
			stats.Reused++
		}
	}
	for path := range c.entries {
		if _, ok := present[path]; ok {
			continue
		}
		if underAnyRoot(path, roots) {
			delete(c.entries, path)
			stats.Removed++
		}
	}
	c.mu.Unlock()

	if len(stale) > 0 {
		c.processFiles(ctx, stale)
	}
	if stats.Added+stats.Updated+stats.Removed > 0 {
		c.mu.Lock()
		c.markDirty()
		c.mu.Unlock()
	}

	c.log.Info().
		Int("files", len(files)).
		Int("added", stats.Added).
		Int("updated", stats.Updated).
		Int("reused", stats.Reused).
		Int("removed", stats.Removed).
		Dur("elapsed", time.Since(start)).
		Msg("metadata refresh complete")
	return stats
}

type extractResult struct {
	path string
	meta tags.Metadata
}

// processFiles extracts metadata in parallel. Results are collected on a
// single goroutine so the last write for a path always wins.
func (c *Cache) processFiles(ctx context.Context, paths []string) {
	workCh := make(chan string, len(paths))
	resultCh := make(chan extractResult, len(paths))

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Go(func() {
			for path := range workCh {
				resultCh <- extractResult{path: path, meta: c.extractOne(ctx, path)}
			}
		})
	}

	go func() {
		defer close(workCh)
		for _, path := range paths {
			select {
			case <-ctx.Done():
				return
			case workCh <- path:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	for result := range resultCh {
		c.mu.Lock()
		c.entries[result.path] = result.meta
		c.mu.Unlock()
	}
}

// extractOne runs the full pipeline for one file: extraction, lyrics
// flattening, field defaults and the optional remote cover lookup.
func (c *Cache) extractOne(ctx context.Context, path string) tags.Metadata {
	meta := c.extract(path)
	if meta.Lyrics != "" && lyrics.IsLineStructured(meta.Lyrics) {
		meta.Lyrics = lyrics.Flatten(meta.Lyrics)
	}
	meta.ApplyDefaults(tags.Stem(path))
	if meta.Cover == nil && c.lookup != nil {
		meta.Cover = c.lookup(ctx, meta.Artist, meta.Album)
	}
	if meta.Title == tags.DefaultTitle || meta.Artist == tags.DefaultArtist {
		c.log.Warn().Str("path", path).Msg("incomplete metadata, defaults applied")
	}
	return meta
}

// HandleFileEvent reacts to a filesystem change. Deletes drop the entry and
// persist immediately; creates and modifications schedule a delayed
// re-extract so writers can finish before the file is read back.
func (c *Cache) HandleFileEvent(path string, kind EventKind) {
	if !tags.IsAudioFile(path) {
		return
	}

	if kind == EventDelete {
		c.mu.Lock()
		if t := c.pending[path]; t != nil {
			t.Stop()
			delete(c.pending, path)
		}
		_, had := c.entries[path]
		if had {
			delete(c.entries, path)
			c.dirty = true
		}
		c.mu.Unlock()
		if had {
			c.log.Debug().Str("path", path).Msg("cache entry removed")
			c.flushNow()
		}
		return
	}

	c.mu.Lock()
	if t := c.pending[path]; t != nil {
		t.Stop()
	}
	c.pending[path] = time.AfterFunc(c.eventDelay, func() { c.reextract(path) })
	c.mu.Unlock()
}

// reextract refreshes a single entry after a file event. A prior valid cover
// survives when the rewritten file carries none.
func (c *Cache) reextract(path string) {
	c.mu.Lock()
	delete(c.pending, path)
	prior, had := c.entries[path]
	c.mu.Unlock()

	meta := c.extractOne(context.Background(), path)
	if meta.Cover == nil && had && prior.Cover.Valid() {
		meta.Cover = prior.Cover
	}

	c.mu.Lock()
	c.entries[path] = meta
	c.markDirty()
	c.mu.Unlock()
	c.log.Debug().Str("path", path).Msg("cache entry re-extracted")
}

// Close cancels pending work and flushes unsaved changes.
func (c *Cache) Close() {
	c.mu.Lock()
	for path, t := range c.pending {
		t.Stop()
		delete(c.pending, path)
	}
	c.mu.Unlock()
	c.flushNow()
}

// markDirty schedules a save if none is pending. Callers hold c.mu.
func (c *Cache) markDirty() {
	c.dirty = true
	if c.save == nil || c.saveTimer != nil {
		return
	}
	c.saveTimer = time.AfterFunc(c.saveDebounce, c.flushScheduled)
}

func (c *Cache) flushScheduled() {
	c.mu.Lock()
	c.saveTimer = nil
	if !c.dirty || c.save == nil {
		c.mu.Unlock()
		return
	}
	c.dirty = false
	snap := c.exportLocked()
	c.mu.Unlock()
	c.save(snap)
}

// flushNow persists without waiting for the debounce window.
func (c *Cache) flushNow() {
	c.mu.Lock()
	if c.saveTimer != nil {
		c.saveTimer.Stop()
		c.saveTimer = nil
	}
	if !c.dirty || c.save == nil {
		c.mu.Unlock()
		return
	}
	c.dirty = false
	snap := c.exportLocked()
	c.mu.Unlock()
	c.save(snap)
}

func underAnyRoot(path string, roots []string) bool {
	sep := string(filepath.Separator)
	for _, root := range roots {
		if root == "" {
			continue
		}
		if strings.HasPrefix(path, strings.TrimSuffix(root, sep)+sep) {
			return true
		}
	}
	return false
}
