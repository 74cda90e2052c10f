package tags

import (
	"os"
	"path/filepath"
	"testing"
)

func TestIsAudioFile(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/music/a.mp3", true},
		{"/music/a.MP3", true},
		{"/music/a.FlAc", true},
		{"/music/a.wav", true},
		{"/music/a.m4a", true},
		{"/music/a.ogg", true},
		{"/music/a.opus", false},
		{"/music/a.txt", false},
		{"/music/noext", false},
	}
	for _, tt := range tests {
		if got := IsAudioFile(tt.path); got != tt.want {
			t.Errorf("IsAudioFile(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestStem(t *testing.T) {
	if got := Stem("/music/A/song one.mp3"); got != "song one" {
		t.Errorf("Stem = %q, want song one", got)
	}
}

func TestMetadata_ApplyDefaults(t *testing.T) {
	m := Metadata{}
	m.ApplyDefaults("track01")
	if m.Title != "track01" {
		t.Errorf("Title = %q, want stem fallback", m.Title)
	}
	if m.Artist != DefaultArtist || m.Album != DefaultAlbum {
		t.Errorf("Artist/Album = %q/%q, want defaults", m.Artist, m.Album)
	}

	m = Metadata{}
	m.ApplyDefaults("")
	if m.Title != DefaultTitle {
		t.Errorf("Title = %q, want %q", m.Title, DefaultTitle)
	}

	m = Metadata{Title: "Kept", Artist: "Kept", Album: "Kept"}
	m.ApplyDefaults("stem")
	if m.Title != "Kept" || m.Artist != "Kept" || m.Album != "Kept" {
		t.Error("present fields must not be overwritten")
	}
}

func TestDiscoverFiles(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "A", "song1.mp3"))
	mustWrite(t, filepath.Join(root, "A", "song2.flac"))
	mustWrite(t, filepath.Join(root, "A", "notes.txt"))
	mustWrite(t, filepath.Join(root, "B", "song3.ogg"))
	mustWrite(t, filepath.Join(root, "song4.mp3"))

	files := DiscoverFiles([]string{root})

	if len(files) != 4 {
		t.Fatalf("got %d files, want 4: %v", len(files), files)
	}
	for _, f := range files {
		if !IsAudioFile(f) {
			t.Errorf("non-audio file discovered: %s", f)
		}
	}

	// Overlapping roots must not duplicate paths.
	files = DiscoverFiles([]string{root, filepath.Join(root, "A")})
	if len(files) != 4 {
		t.Errorf("overlapping roots produced %d files, want 4", len(files))
	}
}

func TestDiscoverFiles_MissingRoot(t *testing.T) {
	files := DiscoverFiles([]string{"/does/not/exist"})
	if len(files) != 0 {
		t.Errorf("got %d files from missing root, want 0", len(files))
	}
}

func TestReadFile_Unreadable(t *testing.T) {
	got := ReadFile("/does/not/exist.mp3")
	if !got.Empty() {
		t.Error("unreadable file should yield empty Tag")
	}

	// Untagged garbage likewise.
	path := filepath.Join(t.TempDir(), "noise.mp3")
	if err := os.WriteFile(path, []byte("not an mp3 at all"), 0o644); err != nil {
		t.Fatal(err)
	}
	got = ReadFile(path)
	if !got.Empty() {
		t.Error("untagged file should yield empty Tag")
	}
}

func mustWrite(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}
