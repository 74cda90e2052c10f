package metacache

import (
	"github.com/minitune/minitune/internal/cover"
	"github.com/minitune/minitune/internal/tags"
)

// FileExtractor builds the default ExtractFunc: read embedded tags from the
// file and normalize the picture through the given normalizer. Oversized or
// unusable pictures come back as a nil cover, which keeps the entry stale and
// eligible for a later remote lookup.
func FileExtractor(norm *cover.Normalizer) ExtractFunc {
	return func(path string) tags.Metadata {
		t := tags.ReadFile(path)
		m := tags.Metadata{
			Title:  t.Title,
			Artist: t.Artist,
			Album:  t.Album,
			Lyrics: t.Lyrics,
		}
		if len(t.Picture) > 0 {
			m.Cover = norm.Normalize(t.Picture, t.PictureMIME, nil)
		}
		return m
	}
}
