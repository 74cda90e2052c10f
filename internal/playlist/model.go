// Package playlist builds the track list from scanned folders and derives the
// filtered, optionally shuffled view the host renders, together with the
// current-track cursor.
package playlist

import (
	"math/rand/v2"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/minitune/minitune/internal/tags"
)

// Reserved category names. Anything else selects a named sub-playlist.
const (
	CategoryAll      = "all"
	CategoryFavorite = "favorite"
)

// Track is one playable entry. Identity is the path; ID is an ordinal
// assigned per scan and must never be persisted or compared across scans.
type Track struct {
	ID       int           `json:"id"`
	Name     string        `json:"name"`
	Path     string        `json:"path"`
	Metadata tags.Metadata `json:"metadata"`
}

// MetadataSource supplies cached metadata during a scan.
type MetadataSource interface {
	Get(path string) (tags.Metadata, bool)
}

// Model owns the full track list, the folder grouping, favorites, the view
// parameters and the cursor. It is not safe for concurrent use; the engine
// serializes access.
type Model struct {
	log    zerolog.Logger
	source MetadataSource

	roots  []string
	full   []Track
	groups map[string][]Track

	favorites map[string]struct{}

	category string
	search   string
	mode     Mode

	view        []Track
	currentPath string
}

func NewModel(log zerolog.Logger, source MetadataSource) *Model {
	return &Model{
		log:       log,
		source:    source,
		groups:    make(map[string][]Track),
		favorites: make(map[string]struct{}),
		category:  CategoryAll,
	}
}

// Configure sets the root folders to scan. It does not scan by itself.
func (m *Model) Configure(roots []string) {
	m.roots = append([]string(nil), roots...)
}

// Scan rebuilds the full list and the subfolder grouping from the configured
// roots, attaching cached metadata where available, then re-derives the view.
// Track IDs are fresh 0-based ordinals for this scan only.
func (m *Model) Scan() []Track {
	files := tags.DiscoverFiles(m.roots)

	m.full = make([]Track, 0, len(files))
	m.groups = make(map[string][]Track)

	for i, path := range files {
		meta, ok := m.source.Get(path)
		if !ok {
			meta = tags.Metadata{}
		}
		meta.ApplyDefaults(tags.Stem(path))

		track := Track{
			ID:       i,
			Name:     tags.Stem(path),
			Path:     path,
			Metadata: meta,
		}
		m.full = append(m.full, track)

		if group := groupName(path, m.roots); group != "" {
			m.groups[group] = append(m.groups[group], track)
		}
	}

	m.log.Debug().
		Int("tracks", len(m.full)).
		Int("groups", len(m.groups)).
		Msg("scan complete")

	m.DeriveView()
	return m.Snapshot()
}

// groupName returns the immediate-subfolder name the path belongs to under
// its root, or "" for files sitting directly in a root.
func groupName(path string, roots []string) string {
	sep := string(filepath.Separator)
	for _, root := range roots {
		rel, err := filepath.Rel(root, path)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		parts := strings.Split(rel, sep)
		if len(parts) >= 2 {
			return parts[0]
		}
		return ""
	}
	return ""
}

// DeriveView recomputes the view from the full list and the current category,
// search query and mode, then applies the cursor fallback: a current track
// that vanished from the full list is replaced by the view's first element.
// Shuffle produces a fresh permutation on every call.
func (m *Model) DeriveView() []Track {
	base := m.categoryTracks()

	if q := strings.ToLower(strings.TrimSpace(m.search)); q != "" {
		filtered := make([]Track, 0, len(base))
		for _, t := range base {
			if matchesQuery(t, q) {
				filtered = append(filtered, t)
			}
		}
		base = filtered
	}

	view := append([]Track(nil), base...)
	if m.mode == ModeShuffle {
		rand.Shuffle(len(view), func(i, j int) {
			view[i], view[j] = view[j], view[i]
		})
	}
	m.view = view

	if m.currentPath == "" || !m.inFull(m.currentPath) {
		if len(m.view) > 0 {
			m.currentPath = m.view[0].Path
		} else {
			m.currentPath = ""
		}
	}

	return m.View()
}

func (m *Model) categoryTracks() []Track {
	switch m.category {
	case CategoryAll, "":
		return m.full
	case CategoryFavorite:
		out := make([]Track, 0, len(m.favorites))
		for _, t := range m.full {
			if _, fav := m.favorites[t.Path]; fav {
				out = append(out, t)
			}
		}
		return out
	default:
		if tracks, ok := m.groups[m.category]; ok {
			return tracks
		}
		// Legacy persisted categories predate the grouping map; fall back
		// to matching the category as a path segment.
		needle := string(filepath.Separator) + m.category + string(filepath.Separator)
		out := make([]Track, 0)
		for _, t := range m.full {
			if strings.Contains(t.Path, needle) {
				out = append(out, t)
			}
		}
		return out
	}
}

func matchesQuery(t Track, q string) bool {
	return strings.Contains(strings.ToLower(t.Metadata.Title), q) ||
		strings.Contains(strings.ToLower(t.Metadata.Artist), q) ||
		strings.Contains(strings.ToLower(t.Metadata.Album), q)
}

func (m *Model) inFull(path string) bool {
	for _, t := range m.full {
		if t.Path == path {
			return true
		}
	}
	return false
}

// SetCategory switches the active category and re-derives the view.
func (m *Model) SetCategory(name string) []Track {
	m.category = name
	return m.DeriveView()
}

// SetSearch updates the search query and re-derives the view.
func (m *Model) SetSearch(query string) []Track {
	m.search = query
	return m.DeriveView()
}

// SetMode switches the playback mode and re-derives the view.
func (m *Model) SetMode(mode Mode) []Track {
	m.mode = mode
	return m.DeriveView()
}

func (m *Model) Category() string { return m.category }
func (m *Model) Search() string   { return m.search }
func (m *Model) Mode() Mode       { return m.mode }

// ToggleFavorite flips favorite membership for the given path, defaulting to
// the current track. It reports the new state and whether the view changed.
// When the favorite category is active the view is re-derived immediately so
// the toggled track appears or vanishes.
func (m *Model) ToggleFavorite(path string) (favorite, viewChanged bool) {
	if path == "" {
		path = m.currentPath
	}
	if path == "" {
		return false, false
	}

	if _, ok := m.favorites[path]; ok {
		delete(m.favorites, path)
	} else {
		m.favorites[path] = struct{}{}
		favorite = true
	}

	if m.category == CategoryFavorite {
		m.DeriveView()
		viewChanged = true
	}
	return favorite, viewChanged
}

// IsFavorite reports favorite membership by exact path.
func (m *Model) IsFavorite(path string) bool {
	_, ok := m.favorites[path]
	return ok
}

// Favorites returns the favorite paths in stable order.
func (m *Model) Favorites() []string {
	out := make([]string, 0, len(m.favorites))
	for path := range m.favorites {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}

// SetFavorites replaces the favorites set, used when hydrating persisted
// settings.
func (m *Model) SetFavorites(paths []string) {
	m.favorites = make(map[string]struct{}, len(paths))
	for _, path := range paths {
		m.favorites[path] = struct{}{}
	}
}

// View returns a copy of the current view list.
func (m *Model) View() []Track {
	return append([]Track(nil), m.view...)
}

// Snapshot returns a copy of the full list.
func (m *Model) Snapshot() []Track {
	return append([]Track(nil), m.full...)
}

// Groups returns a copy of the subfolder grouping.
func (m *Model) Groups() map[string][]Track {
	out := make(map[string][]Track, len(m.groups))
	for name, tracks := range m.groups {
		out[name] = append([]Track(nil), tracks...)
	}
	return out
}

func (m *Model) Roots() []string {
	return append([]string(nil), m.roots...)
}
