// Package config loads the TOML configuration file.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	MusicFolderPaths []string `koanf:"music_folder_paths"` // roots to scan for audio files

	Cover CoverConfig `koanf:"cover"`

	SaveDebounceMs int `koanf:"save_debounce_ms"` // quiet period before persisting cache changes
	ScanDelayMs    int `koanf:"scan_delay_ms"`    // batching window for filesystem events
}

// CoverConfig holds cover-art related configuration.
type CoverConfig struct {
	LookupEnabled bool `koanf:"lookup_enabled"` // consult Cover Art Archive for coverless tracks
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Try config files in order of priority (last wins)
	for _, path := range getConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, err
			}
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	for i, src := range cfg.MusicFolderPaths {
		cfg.MusicFolderPaths[i] = expandPath(src)
	}

	if cfg.SaveDebounceMs <= 0 {
		cfg.SaveDebounceMs = 500
	}
	if cfg.ScanDelayMs <= 0 {
		cfg.ScanDelayMs = 300
	}

	return cfg, nil
}

// SaveDebounce returns the save debounce as a duration.
func (c *Config) SaveDebounce() time.Duration {
	return time.Duration(c.SaveDebounceMs) * time.Millisecond
}

// ScanDelay returns the file-event batching window as a duration.
func (c *Config) ScanDelay() time.Duration {
	return time.Duration(c.ScanDelayMs) * time.Millisecond
}

func getConfigPaths() []string {
	paths := []string{}

	// 1. ~/.config/minitune/config.toml
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "minitune", "config.toml"))
	}

	// 2. ./config.toml (pwd, highest priority)
	paths = append(paths, "config.toml")

	return paths
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
