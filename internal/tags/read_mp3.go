package tags

import (
	"io"
	"os"

	"github.com/bogem/id3v2/v2"
)

// readMP3 reads the ID3v2 tag region of an MP3 file and parses it with the
// buffer parser. When that yields nothing (v2.2 tags, unsynchronised frames)
// it falls back to the id3v2 library.
func readMP3(path string) Tag {
	if t := parseMP3Region(path); !t.Empty() {
		return t
	}
	return readMP3WithID3v2(path)
}

// parseMP3Region reads just the declared tag region from the front of the
// file instead of the whole file; audio data is of no interest here.
func parseMP3Region(path string) Tag {
	f, err := os.Open(path)
	if err != nil {
		return Tag{}
	}
	defer f.Close()

	header := make([]byte, id3HeaderSize)
	if _, err := io.ReadFull(f, header); err != nil {
		return Tag{}
	}
	if string(header[0:3]) != id3Magic {
		return Tag{}
	}

	size := int(decodeSyncSafe(header[6:10]))
	buf := make([]byte, id3HeaderSize+size)
	copy(buf, header)
	// Short reads are fine; Parse stops at the buffer end.
	n, _ := io.ReadFull(f, buf[id3HeaderSize:])
	return Parse(buf[:id3HeaderSize+n])
}

// readMP3WithID3v2 reads MP3 metadata via the id3v2 library.
func readMP3WithID3v2(path string) Tag {
	id3tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil || id3tag == nil {
		return Tag{}
	}
	defer id3tag.Close()

	t := Tag{
		Title:  id3tag.Title(),
		Artist: id3tag.Artist(),
		Album:  id3tag.Album(),
	}

	for _, frame := range id3tag.GetFrames(id3tag.CommonID("Unsynchronised lyrics/text transcription")) {
		if uslt, ok := frame.(id3v2.UnsynchronisedLyricsFrame); ok && uslt.Lyrics != "" {
			t.Lyrics = uslt.Lyrics
			break
		}
	}

	for _, frame := range id3tag.GetFrames(id3tag.CommonID("Attached picture")) {
		if pic, ok := frame.(id3v2.PictureFrame); ok && len(pic.Picture) > 0 {
			t.Picture = pic.Picture
			t.PictureMIME = pic.MimeType
			break
		}
	}

	return t
}
