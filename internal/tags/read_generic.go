package tags

import (
	"os"
	"strings"

	"github.com/dhowden/tag"
	"go.senan.xyz/taglib"
)

// readGeneric reads M4A/OGG metadata through dhowden/tag, with TagLib as a
// last resort for files it cannot parse (e.g. some ffmpeg-produced M4A).
func readGeneric(path string) Tag {
	f, err := os.Open(path)
	if err != nil {
		return Tag{}
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return readWithTaglib(path)
	}

	t := Tag{
		Title:  m.Title(),
		Artist: m.Artist(),
		Album:  m.Album(),
		Lyrics: m.Lyrics(),
	}

	if pic := m.Picture(); pic != nil && len(pic.Data) > 0 {
		t.Picture = pic.Data
		t.PictureMIME = pic.MIMEType
	}

	// Some taggers stash lyrics in vendor-specific comment fields that the
	// generic accessors miss.
	if t.Lyrics == "" {
		t.Lyrics = rawLyrics(m.Raw())
	}

	return t
}

// rawLyrics scans the raw tag map for any field whose key mentions lyrics.
func rawLyrics(raw map[string]interface{}) string {
	for key, value := range raw {
		if !strings.Contains(strings.ToLower(key), "lyric") {
			continue
		}
		switch v := value.(type) {
		case string:
			if v != "" {
				return v
			}
		case *tag.Comm:
			if v != nil && v.Text != "" {
				return v.Text
			}
		}
	}
	return ""
}

// readWithTaglib reads basic fields via TagLib.
func readWithTaglib(path string) Tag {
	raw, err := taglib.ReadTags(path)
	if err != nil {
		return Tag{}
	}
	get := func(keys ...string) string {
		for _, key := range keys {
			if values := raw[key]; len(values) > 0 && values[0] != "" {
				return values[0]
			}
		}
		return ""
	}
	return Tag{
		Title:  get(taglib.Title),
		Artist: get(taglib.Artist),
		Album:  get(taglib.Album),
		Lyrics: get("LYRICS", "UNSYNCEDLYRICS"),
	}
}
