// Package engine is the host-facing facade: it owns the metadata cache and
// the playlist model, serializes every inbound operation and pushes typed
// events to subscribers.
package engine

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/minitune/minitune/internal/cover"
	"github.com/minitune/minitune/internal/metacache"
	"github.com/minitune/minitune/internal/playlist"
	"github.com/minitune/minitune/internal/settings"
	"github.com/minitune/minitune/internal/tags"
)

const defaultScanDelay = 300 * time.Millisecond

// Config carries the engine dependencies. Store is required; everything else
// has a default.
type Config struct {
	Log   zerolog.Logger
	Store settings.Store

	// Extract overrides the file extractor, used by tests.
	Extract metacache.ExtractFunc
	// Lookup enables best-effort remote cover lookup for coverless tracks.
	Lookup metacache.LookupFunc

	SaveDebounce time.Duration
	ScanDelay    time.Duration
}

// Engine wires cache, model and settings store together.
type Engine struct {
	log   zerolog.Logger
	store settings.Store
	cache *metacache.Cache

	scanDelay time.Duration

	mu        sync.Mutex // guards model and scanTimer
	model     *playlist.Model
	scanTimer *time.Timer

	subMu sync.Mutex
	subs  []*Subscription
}

func New(cfg Config) *Engine {
	if cfg.ScanDelay <= 0 {
		cfg.ScanDelay = defaultScanDelay
	}

	e := &Engine{
		log:       cfg.Log,
		store:     cfg.Store,
		scanDelay: cfg.ScanDelay,
	}

	extract := cfg.Extract
	if extract == nil {
		norm := cover.NewNormalizer(cfg.Log, cover.ResizeCompressor{})
		extract = metacache.FileExtractor(norm)
	}

	e.cache = metacache.New(metacache.Config{
		Log:          cfg.Log,
		Extract:      extract,
		Save:         e.persistSnapshot,
		Lookup:       cfg.Lookup,
		SaveDebounce: cfg.SaveDebounce,
	})
	e.model = playlist.NewModel(cfg.Log, e.cache)

	e.hydrate()
	return e
}

// hydrate seeds cache and model from the persisted settings document. A
// load failure means starting empty, never a dead engine.
func (e *Engine) hydrate() {
	if e.store == nil {
		return
	}
	doc, err := e.store.Load()
	if err != nil {
		e.log.Warn().Err(err).Msg("settings load failed, starting empty")
		return
	}

	e.cache.Load(doc.Metadata)

	e.mu.Lock()
	e.model.Configure(doc.MusicFolderPaths)
	e.model.SetFavorites(doc.Favorites)
	e.model.SetMode(playlist.ParseMode(doc.PlaybackMode))
	e.mu.Unlock()
}

// Close flushes pending state and closes all subscriptions.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.scanTimer != nil {
		e.scanTimer.Stop()
		e.scanTimer = nil
	}
	e.mu.Unlock()

	e.cache.Close()

	e.subMu.Lock()
	for _, sub := range e.subs {
		sub.close()
	}
	e.subs = nil
	e.subMu.Unlock()
}

// Subscribe registers a new event subscriber.
func (e *Engine) Subscribe() *Subscription {
	sub := newSubscription()
	e.subMu.Lock()
	e.subs = append(e.subs, sub)
	e.subMu.Unlock()
	return sub
}

// Unsubscribe removes a subscriber and closes its Done channel.
func (e *Engine) Unsubscribe(sub *Subscription) {
	e.subMu.Lock()
	for i, s := range e.subs {
		if s == sub {
			e.subs = append(e.subs[:i], e.subs[i+1:]...)
			sub.close()
			break
		}
	}
	e.subMu.Unlock()
}

// Configure replaces the set of root folders. The host follows up with Scan
// or RefreshMetadata.
func (e *Engine) Configure(roots []string) {
	e.mu.Lock()
	e.model.Configure(roots)
	e.mu.Unlock()
	e.persist()
}

// Scan rebuilds the track list and groups from the filesystem and the
// current cache contents, without re-extracting metadata.
func (e *Engine) Scan() {
	e.mu.Lock()
	prev := e.model.Current()
	view := e.model.Scan()
	cur := e.model.Current()
	tracks := len(e.model.Snapshot())
	e.mu.Unlock()

	e.publishView(ViewChange{Tracks: view})
	e.publishScanDone(ScanDone{Tracks: tracks})
	e.publishTrackIfChanged(prev, cur)
}

// RefreshMetadata re-extracts every stale cache entry under the configured
// roots, then rebuilds the list. A refresh requested while one is running is
// coalesced into the active pass.
func (e *Engine) RefreshMetadata(ctx context.Context) error {
	e.mu.Lock()
	roots := e.model.Roots()
	e.mu.Unlock()

	stats, err := e.cache.Refresh(ctx, roots)
	if errors.Is(err, metacache.ErrScanInProgress) {
		return nil
	}
	if err != nil {
		return err
	}

	e.mu.Lock()
	prev := e.model.Current()
	view := e.model.Scan()
	cur := e.model.Current()
	tracks := len(e.model.Snapshot())
	e.mu.Unlock()

	e.publishView(ViewChange{Tracks: view})
	e.publishScanDone(ScanDone{Stats: stats, Tracks: tracks})
	e.publishTrackIfChanged(prev, cur)
	return nil
}

// SetCategory switches the active category.
func (e *Engine) SetCategory(name string) {
	e.mu.Lock()
	prev := e.model.Current()
	view := e.model.SetCategory(name)
	cur := e.model.Current()
	e.mu.Unlock()

	e.publishView(ViewChange{Tracks: view})
	e.publishTrackIfChanged(prev, cur)
}

// SetSearchQuery updates the search filter.
func (e *Engine) SetSearchQuery(query string) {
	e.mu.Lock()
	prev := e.model.Current()
	view := e.model.SetSearch(query)
	cur := e.model.Current()
	e.mu.Unlock()

	e.publishView(ViewChange{Tracks: view})
	e.publishTrackIfChanged(prev, cur)
}

// SetPlaybackMode switches the sequencing mode.
func (e *Engine) SetPlaybackMode(mode playlist.Mode) {
	e.mu.Lock()
	view := e.model.SetMode(mode)
	e.mu.Unlock()

	e.publishMode(ModeChange{Mode: mode})
	e.publishView(ViewChange{Tracks: view})
	e.persist()
}

// Next moves the cursor forward in the view and returns the new current
// track, nil on an empty view.
func (e *Engine) Next() *playlist.Track {
	e.mu.Lock()
	prev := e.model.Current()
	t := e.model.Next()
	e.mu.Unlock()

	e.publishTrackIfChanged(prev, t)
	return t
}

// Previous moves the cursor backward in the view.
func (e *Engine) Previous() *playlist.Track {
	e.mu.Lock()
	prev := e.model.Current()
	t := e.model.Previous()
	e.mu.Unlock()

	e.publishTrackIfChanged(prev, t)
	return t
}

// SelectTrack moves the cursor to an explicit path.
func (e *Engine) SelectTrack(path string) *playlist.Track {
	e.mu.Lock()
	prev := e.model.Current()
	moved := e.model.SetCurrent(path)
	cur := e.model.Current()
	e.mu.Unlock()

	if !moved {
		return nil
	}
	e.publishTrackIfChanged(prev, cur)
	return cur
}

// ToggleFavorite flips favorite state for the given path, defaulting to the
// current track.
func (e *Engine) ToggleFavorite(path string) {
	e.mu.Lock()
	if path == "" {
		path = e.model.CurrentPath()
	}
	fav, viewChanged := e.model.ToggleFavorite(path)
	var view []playlist.Track
	if viewChanged {
		view = e.model.View()
	}
	e.mu.Unlock()

	if path == "" {
		return
	}
	e.publishFavorite(FavoriteChange{Path: path, Favorite: fav})
	if viewChanged {
		e.publishView(ViewChange{Tracks: view})
	}
	e.persist()
}

// HandleFileSystemEvent forwards a filesystem change to the cache and
// batches rapid successive events into one rescan.
func (e *Engine) HandleFileSystemEvent(path string, kind metacache.EventKind) {
	e.cache.HandleFileEvent(path, kind)

	e.mu.Lock()
	under := underRoots(path, e.model.Roots())
	if under {
		if e.scanTimer != nil {
			e.scanTimer.Stop()
		}
		e.scanTimer = time.AfterFunc(e.scanDelay, func() {
			if err := e.RefreshMetadata(context.Background()); err != nil {
				e.log.Warn().Err(err).Msg("rescan after file event failed")
			}
		})
	}
	e.mu.Unlock()
}

// ClearCache wipes the metadata cache and persists the empty state.
func (e *Engine) ClearCache() {
	e.cache.ClearAll()
}

// View returns a copy of the current view list.
func (e *Engine) View() []playlist.Track {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.model.View()
}

// Current returns a copy of the current track, nil if none.
func (e *Engine) Current() *playlist.Track {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.model.Current()
}

// Groups returns a copy of the subfolder grouping.
func (e *Engine) Groups() map[string][]playlist.Track {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.model.Groups()
}

// Mode returns the active playback mode.
func (e *Engine) Mode() playlist.Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.model.Mode()
}

// Metadata returns the cached metadata for a path.
func (e *Engine) Metadata(path string) (tags.Metadata, bool) {
	return e.cache.Get(path)
}

// persist writes the full settings document with the current cache export.
func (e *Engine) persist() {
	e.persistSnapshot(e.cache.Export())
}

// persistSnapshot writes the settings document around a cache snapshot.
// Also the cache's SaveFunc, invoked from its debounce timer.
func (e *Engine) persistSnapshot(entries map[string]tags.Metadata) {
	if e.store == nil {
		return
	}

	e.mu.Lock()
	doc := settings.Settings{
		MusicFolderPaths: e.model.Roots(),
		Favorites:        e.model.Favorites(),
		PlaybackMode:     e.model.Mode().String(),
		Metadata:         entries,
	}
	e.mu.Unlock()

	if err := e.store.Save(doc); err != nil {
		e.log.Warn().Err(err).Msg("settings save failed")
	}
}

func (e *Engine) publishView(ev ViewChange) {
	e.subMu.Lock()
	for _, sub := range e.subs {
		sub.sendView(ev)
	}
	e.subMu.Unlock()
}

func (e *Engine) publishTrackIfChanged(prev, cur *playlist.Track) {
	prevPath, curPath := "", ""
	if prev != nil {
		prevPath = prev.Path
	}
	if cur != nil {
		curPath = cur.Path
	}
	if prevPath == curPath {
		return
	}
	ev := TrackChange{Previous: prev, Current: cur}
	e.subMu.Lock()
	for _, sub := range e.subs {
		sub.sendTrack(ev)
	}
	e.subMu.Unlock()
}

func (e *Engine) publishMode(ev ModeChange) {
	e.subMu.Lock()
	for _, sub := range e.subs {
		sub.sendMode(ev)
	}
	e.subMu.Unlock()
}

func (e *Engine) publishFavorite(ev FavoriteChange) {
	e.subMu.Lock()
	for _, sub := range e.subs {
		sub.sendFavorite(ev)
	}
	e.subMu.Unlock()
}

func (e *Engine) publishScanDone(ev ScanDone) {
	e.subMu.Lock()
	for _, sub := range e.subs {
		sub.sendScanDone(ev)
	}
	e.subMu.Unlock()
}

func underRoots(path string, roots []string) bool {
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
