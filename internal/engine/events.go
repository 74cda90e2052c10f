package engine

import (
	"github.com/minitune/minitune/internal/metacache"
	"github.com/minitune/minitune/internal/playlist"
)

// ViewChange is emitted when the derived view list changes: after a scan,
// a category/search/mode switch, or a favorite toggle that affects the
// active view.
type ViewChange struct {
	Tracks []playlist.Track
}

// TrackChange is emitted when the current track changes, whether by explicit
// navigation or by the cursor fallback after a derivation. It carries no
// playback command; the host decides whether to start playing.
type TrackChange struct {
	Previous *playlist.Track
	Current  *playlist.Track
}

// ModeChange is emitted when the playback mode changes.
type ModeChange struct {
	Mode playlist.Mode
}

// FavoriteChange is emitted when favorite membership flips for a path.
type FavoriteChange struct {
	Path     string
	Favorite bool
}

// ScanDone is emitted when a full scan pass settles.
type ScanDone struct {
	Stats  metacache.ScanStats
	Tracks int
}
