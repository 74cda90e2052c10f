// Package settings defines the persisted settings document and its stores.
// The document is the single durable contract with the host: folder paths,
// favorites, playback mode and the metadata cache all live in one JSON file.
package settings

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/adrg/xdg"

	"github.com/minitune/minitune/internal/tags"
)

const (
	appName      = "minitune"
	settingsFile = "settings.json"
)

// Settings is the persisted document.
type Settings struct {
	MusicFolderPaths []string                 `json:"musicFolderPaths"`
	Favorites        []string                 `json:"favorites"`
	PlaybackMode     string                   `json:"playbackMode"`
	Metadata         map[string]tags.Metadata `json:"metadata"`
}

// Store loads and saves the settings document.
type Store interface {
	Load() (Settings, error)
	Save(Settings) error
}

// FileStore persists settings as JSON under the XDG data directory. Writes
// go through a temp file and rename so a crash mid-write cannot truncate the
// document.
type FileStore struct {
	path string
}

// NewFileStore resolves the default settings path.
func NewFileStore() (*FileStore, error) {
	path, err := xdg.DataFile(filepath.Join(appName, settingsFile))
	if err != nil {
		return nil, err
	}
	return &FileStore{path: path}, nil
}

// NewFileStoreAt uses an explicit path.
func NewFileStoreAt(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string { return s.path }

// Load reads the document. A missing file yields empty settings, not an
// error.
func (s *FileStore) Load() (Settings, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Settings{}, nil
		}
		return Settings{}, err
	}
	var out Settings
	if err := json.Unmarshal(data, &out); err != nil {
		return Settings{}, err
	}
	return out, nil
}

func (s *FileStore) Save(settings Settings) error {
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// MemStore is an in-memory Store for tests and embedding hosts that persist
// through their own channel.
type MemStore struct {
	mu       sync.Mutex
	settings Settings
	saves    int
}

func NewMemStore() *MemStore { return &MemStore{} }

func (s *MemStore) Load() (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings, nil
}

func (s *MemStore) Save(settings Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
	s.saves++
	return nil
}

// Saves returns how many times Save was called.
func (s *MemStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
