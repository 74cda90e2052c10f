package tags

import (
	"bytes"
	"encoding/binary"
	"strings"
)

const (
	id3Magic        = "ID3"
	id3HeaderSize   = 10
	frameHeaderSize = 10

	// maxFrames bounds the frame walk. Corrupt files can declare absurd
	// sizes or loop padding; fifty frames is far beyond what a music file
	// legitimately carries for the fields we read.
	maxFrames = 50
)

// Extended-header flag in the tag header.
const flagExtendedHeader = 0x40

// Parse decodes an ID3v2.3/2.4 tag from a raw file buffer. It never fails:
// malformed or absent tag data yields an empty (or partially filled) Tag and
// the caller applies defaults. The buffer should start at the beginning of
// the file.
func Parse(buf []byte) Tag {
	var t Tag

	if len(buf) < id3HeaderSize || string(buf[0:3]) != id3Magic {
		// Not every audio file carries an ID3 tag; silent fallback, not an
		// error.
		return t
	}

	version := buf[3]
	if version < 3 || version > 4 {
		return t
	}
	flags := buf[5]

	tagEnd := id3HeaderSize + int(decodeSyncSafe(buf[6:10]))
	if tagEnd > len(buf) {
		tagEnd = len(buf)
	}

	offset := id3HeaderSize
	if flags&flagExtendedHeader != 0 && offset+4 <= tagEnd {
		if version == 4 {
			// v2.4: size field is sync-safe and includes itself.
			offset += int(decodeSyncSafe(buf[offset : offset+4]))
		} else {
			// v2.3: plain size excluding the four size bytes.
			offset += int(binary.BigEndian.Uint32(buf[offset:offset+4])) + 4
		}
	}

	for frames := 0; frames < maxFrames && offset+frameHeaderSize <= tagEnd; frames++ {
		id := string(buf[offset : offset+4])
		if !validFrameID(id) {
			// Padding or corruption sentinel.
			break
		}

		// v2.4 frame sizes are sync-safe, v2.3 plain big-endian. Mixing the
		// two corrupts every subsequent frame offset.
		var size int
		if version == 4 {
			size = int(decodeSyncSafe(buf[offset+4 : offset+8]))
		} else {
			size = int(binary.BigEndian.Uint32(buf[offset+4 : offset+8]))
		}
		if size <= 0 {
			break
		}

		start := offset + frameHeaderSize
		end := start + size
		if end > tagEnd {
			break
		}
		payload := buf[start:end]

		switch id {
		case "TIT2":
			t.Title = decodeTextFrame(payload)
		case "TPE1":
			t.Artist = decodeTextFrame(payload)
		case "TALB":
			t.Album = decodeTextFrame(payload)
		case "APIC":
			if len(t.Picture) == 0 {
				parsePictureFrame(payload, &t)
			}
		case "USLT":
			if t.Lyrics == "" {
				_, text := parseLangDescFrame(payload)
				t.Lyrics = text
			}
		case "TXXX":
			if t.Lyrics == "" {
				desc, value := parseUserTextFrame(payload)
				if strings.Contains(strings.ToLower(desc), "lyric") {
					t.Lyrics = value
				}
			}
		case "COMM":
			if t.Lyrics == "" {
				desc, text := parseLangDescFrame(payload)
				if strings.Contains(strings.ToLower(desc), "lyric") {
					t.Lyrics = text
				}
			}
		}

		offset = end
	}

	return t
}

// decodeSyncSafe decodes a 4-byte sync-safe integer (7 bits per byte).
func decodeSyncSafe(b []byte) uint32 {
	if len(b) < 4 {
		return 0
	}
	return uint32(b[0]&0x7F)<<21 |
		uint32(b[1]&0x7F)<<14 |
		uint32(b[2]&0x7F)<<7 |
		uint32(b[3]&0x7F)
}

// validFrameID checks the [A-Z0-9]{4} frame ID shape.
func validFrameID(id string) bool {
	if len(id) != 4 {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}

// decodeTextFrame decodes a text frame payload: encoding byte followed by
// text. The result is truncated at the first null terminator and trimmed.
func decodeTextFrame(payload []byte) string {
	if len(payload) < 2 {
		return ""
	}
	return cleanText(decodeText(payload[1:], payload[0]))
}

// parseUserTextFrame decodes a TXXX payload:
// [encoding][description\0][value].
func parseUserTextFrame(payload []byte) (desc, value string) {
	if len(payload) < 2 {
		return "", ""
	}
	enc := payload[0]
	data := payload[1:]

	nullIdx := findNullTerminator(data, enc)
	if nullIdx < 0 {
		return "", ""
	}
	desc = cleanText(decodeText(data[:nullIdx], enc))
	value = cleanText(decodeText(data[nullIdx+terminatorSize(enc):], enc))
	return desc, value
}

// parseLangDescFrame decodes USLT and COMM payloads:
// [encoding][language(3)][description\0][text].
func parseLangDescFrame(payload []byte) (desc, text string) {
	if len(payload) < 5 {
		return "", ""
	}
	enc := payload[0]
	data := payload[4:] // skip language

	nullIdx := findNullTerminator(data, enc)
	if nullIdx < 0 {
		// No descriptor terminator; treat everything as text.
		return "", cleanText(decodeText(data, enc))
	}
	desc = cleanText(decodeText(data[:nullIdx], enc))
	text = cleanText(decodeText(data[nullIdx+terminatorSize(enc):], enc))
	return desc, text
}

// parsePictureFrame decodes an APIC payload:
// [encoding][MIME\0][picture type][description\0][image bytes].
// The MIME string is always Latin-1 (single-byte terminator); the description
// terminator width follows the encoding byte. Scanning the description with
// the wrong width silently corrupts the image payload offset.
func parsePictureFrame(payload []byte, t *Tag) {
	if len(payload) < 4 {
		return
	}
	enc := payload[0]

	mimeEnd := bytes.IndexByte(payload[1:], 0)
	if mimeEnd < 0 {
		return
	}
	mime := string(payload[1 : 1+mimeEnd])

	pos := 1 + mimeEnd + 1
	if pos >= len(payload) {
		return
	}
	pos++ // picture type byte

	if pos >= len(payload) {
		return
	}
	descEnd := findNullTerminator(payload[pos:], enc)
	if descEnd < 0 {
		return
	}
	pos += descEnd + terminatorSize(enc)
	if pos >= len(payload) {
		return
	}

	t.Picture = payload[pos:]
	t.PictureMIME = mime
}

// cleanText truncates at the first embedded null and trims whitespace.
func cleanText(s string) string {
	if i := strings.IndexByte(s, 0); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
