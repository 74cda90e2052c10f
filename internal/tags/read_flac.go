package tags

import (
	"github.com/go-flac/flacpicture"
	"github.com/go-flac/flacvorbis"
	goflac "github.com/go-flac/go-flac"
)

// Vorbis comment fields that carry embedded lyrics, in lookup order.
var flacLyricsFields = []string{"LYRICS", "UNSYNCEDLYRICS", "UNSYNCED LYRICS"}

// readFLAC reads Vorbis comments and the picture block from a FLAC file.
func readFLAC(path string) Tag {
	f, err := goflac.ParseFile(path)
	if err != nil {
		return Tag{}
	}

	var t Tag
	for _, meta := range f.Meta {
		switch meta.Type {
		case goflac.VorbisComment:
			cmt, err := flacvorbis.ParseFromMetaDataBlock(*meta)
			if err != nil {
				continue
			}
			t.Title = firstComment(cmt, flacvorbis.FIELD_TITLE)
			t.Artist = firstComment(cmt, flacvorbis.FIELD_ARTIST)
			t.Album = firstComment(cmt, flacvorbis.FIELD_ALBUM)
			if t.Lyrics == "" {
				for _, field := range flacLyricsFields {
					if v := firstComment(cmt, field); v != "" {
						t.Lyrics = v
						break
					}
				}
			}
		case goflac.Picture:
			if len(t.Picture) > 0 {
				continue
			}
			pic, err := flacpicture.ParseFromMetaDataBlock(*meta)
			if err != nil || len(pic.ImageData) == 0 {
				continue
			}
			t.Picture = pic.ImageData
			t.PictureMIME = pic.MIME
		}
	}
	return t
}

func firstComment(cmt *flacvorbis.MetaDataBlockVorbisComment, field string) string {
	values, err := cmt.Get(field)
	if err != nil || len(values) == 0 {
		return ""
	}
	return values[0]
}
