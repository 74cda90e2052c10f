// Package tags extracts music metadata from audio files. It carries its own
// ID3v2 frame parser for in-memory buffers and per-format file readers for
// MP3, FLAC, M4A and OGG.
package tags

import (
	"path/filepath"
	"strings"

	"github.com/minitune/minitune/internal/cover"
)

// File extensions visible to the scanner.
const (
	ExtMP3  = ".mp3"
	ExtFLAC = ".flac"
	ExtWAV  = ".wav"
	ExtM4A  = ".m4a"
	ExtOGG  = ".ogg"
)

// Fallback values for absent tag fields. Metadata consumers rely on these
// never being empty.
const (
	DefaultTitle  = "Unknown Title"
	DefaultArtist = "Unknown Artist"
	DefaultAlbum  = "Unknown Album"
)

// Tag is the raw result of reading a file's tag data, before cover
// normalization and defaults. Absent fields stay empty.
type Tag struct {
	Title  string
	Artist string
	Album  string
	Lyrics string

	// Embedded picture bytes and the format hint that came with them.
	Picture     []byte
	PictureMIME string
}

// Empty reports whether the read yielded nothing at all.
func (t Tag) Empty() bool {
	return t.Title == "" && t.Artist == "" && t.Album == "" &&
		t.Lyrics == "" && len(t.Picture) == 0
}

// Metadata is the cached, persistable form of a track's tag data.
type Metadata struct {
	Title  string              `json:"title"`
	Artist string              `json:"artist"`
	Album  string              `json:"album"`
	Cover  *cover.EncodedImage `json:"cover,omitempty"`
	Lyrics string              `json:"lyrics,omitempty"`
}

// ApplyDefaults fills absent text fields. The title falls back to the file
// name stem when one is available.
func (m *Metadata) ApplyDefaults(stem string) {
	if m.Title == "" {
		if stem != "" {
			m.Title = stem
		} else {
			m.Title = DefaultTitle
		}
	}
	if m.Artist == "" {
		m.Artist = DefaultArtist
	}
	if m.Album == "" {
		m.Album = DefaultAlbum
	}
}

// IsAudioFile returns true if the path has a supported audio extension
// (case-insensitive).
func IsAudioFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ExtMP3, ExtFLAC, ExtWAV, ExtM4A, ExtOGG:
		return true
	}
	return false
}

// Stem returns the file name without directory or extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
