package tags

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
	"unicode/utf16"

	"github.com/minitune/minitune/internal/cover"
)

// --- fixture builders -------------------------------------------------------

func syncSafe(n int) []byte {
	return []byte{
		byte(n>>21) & 0x7F,
		byte(n>>14) & 0x7F,
		byte(n>>7) & 0x7F,
		byte(n) & 0x7F,
	}
}

func be32(n int) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(n))
	return b
}

// frame builds a frame with a version-appropriate size field.
func frame(version byte, id string, payload []byte) []byte {
	var b bytes.Buffer
	b.WriteString(id)
	if version == 4 {
		b.Write(syncSafe(len(payload)))
	} else {
		b.Write(be32(len(payload)))
	}
	b.Write([]byte{0, 0}) // flags
	b.Write(payload)
	return b.Bytes()
}

func textPayload(enc byte, text []byte) []byte {
	return append([]byte{enc}, text...)
}

// buildTag assembles a complete tag buffer with trailing padding.
func buildTag(version byte, frames ...[]byte) []byte {
	var body bytes.Buffer
	for _, f := range frames {
		body.Write(f)
	}
	body.Write(make([]byte, 16)) // padding

	var b bytes.Buffer
	b.WriteString("ID3")
	b.WriteByte(version)
	b.WriteByte(0) // revision
	b.WriteByte(0) // flags
	b.Write(syncSafe(body.Len()))
	b.Write(body.Bytes())
	return b.Bytes()
}

func utf16Bytes(s string, littleEndian, bom bool) []byte {
	var b bytes.Buffer
	if bom {
		if littleEndian {
			b.Write([]byte{0xFF, 0xFE})
		} else {
			b.Write([]byte{0xFE, 0xFF})
		}
	}
	for _, u := range utf16.Encode([]rune(s)) {
		if littleEndian {
			b.WriteByte(byte(u))
			b.WriteByte(byte(u >> 8))
		} else {
			b.WriteByte(byte(u >> 8))
			b.WriteByte(byte(u))
		}
	}
	return b.Bytes()
}

func tinyPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 3, 3))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// --- tests ------------------------------------------------------------------

// Frame sizes are plain 4-byte integers in v2.3 and sync-safe in v2.4.
// Payloads over 127 bytes make the two encodings diverge, so a parser using
// the wrong one lands mid-frame and corrupts every later offset. Both
// versions must decode both frames.
func TestParse_FrameSizeEncodingPerVersion(t *testing.T) {
	longTitle := strings.Repeat("t", 200)

	for _, version := range []byte{3, 4} {
		buf := buildTag(version,
			frame(version, "TIT2", textPayload(0, []byte(longTitle))),
			frame(version, "TPE1", textPayload(0, []byte("Some Artist"))),
			frame(version, "TALB", textPayload(0, []byte("Some Album"))),
		)

		got := Parse(buf)

		if got.Title != longTitle {
			t.Errorf("v2.%d: Title not decoded (len %d, want %d)", version, len(got.Title), len(longTitle))
		}
		if got.Artist != "Some Artist" {
			t.Errorf("v2.%d: Artist = %q, want Some Artist", version, got.Artist)
		}
		if got.Album != "Some Album" {
			t.Errorf("v2.%d: Album = %q, want Some Album", version, got.Album)
		}
	}
}

func TestParse_TextEncodings(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		want    string
	}{
		{"latin1", textPayload(0, []byte{'c', 'a', 'f', 0xE9}), "café"},
		{"utf16 bom le", textPayload(1, utf16Bytes("héllo", true, true)), "héllo"},
		{"utf16 bom be", textPayload(1, utf16Bytes("héllo", false, true)), "héllo"},
		{"utf16be no bom", textPayload(2, utf16Bytes("héllo", false, false)), "héllo"},
		{"utf8", textPayload(3, []byte("héllo")), "héllo"},
		{"null truncated", textPayload(0, []byte("title\x00junk")), "title"},
		{"trimmed", textPayload(0, []byte("  spaced  ")), "spaced"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := buildTag(3, frame(3, "TIT2", tt.payload))
			if got := Parse(buf).Title; got != tt.want {
				t.Errorf("Title = %q, want %q", got, tt.want)
			}
		})
	}
}

// The APIC description terminator is one byte for Latin-1/UTF-8 and two for
// UTF-16. Scanning with the wrong width shifts the image payload offset; the
// regression shows up as an undecodable image, not an error, so the test
// asserts decodability.
func TestParse_PictureFrameDescriptionOffset(t *testing.T) {
	pngData := tinyPNG(t)

	singleByte := []byte{0}
	singleByte = append(singleByte, []byte("image/png")...)
	singleByte = append(singleByte, 0)    // MIME terminator
	singleByte = append(singleByte, 3)    // picture type: front cover
	singleByte = append(singleByte, []byte("cover")...)
	singleByte = append(singleByte, 0)    // single-byte description terminator
	singleByte = append(singleByte, pngData...)

	doubleByte := []byte{1}
	doubleByte = append(doubleByte, []byte("image/png")...)
	doubleByte = append(doubleByte, 0)    // MIME stays Latin-1 terminated
	doubleByte = append(doubleByte, 3)
	doubleByte = append(doubleByte, utf16Bytes("cover", true, true)...)
	doubleByte = append(doubleByte, 0, 0) // double-byte description terminator
	doubleByte = append(doubleByte, pngData...)

	tests := []struct {
		name    string
		payload []byte
	}{
		{"single-byte encoding", singleByte},
		{"double-byte encoding", doubleByte},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := buildTag(4, frame(4, "APIC", tt.payload))
			got := Parse(buf)

			if got.PictureMIME != "image/png" {
				t.Errorf("PictureMIME = %q, want image/png", got.PictureMIME)
			}
			if cover.DetectMIME(got.Picture) != "image/png" {
				t.Fatal("picture payload does not start with PNG magic bytes")
			}
			if _, _, err := image.Decode(bytes.NewReader(got.Picture)); err != nil {
				t.Errorf("picture payload not decodable: %v", err)
			}
		})
	}
}

func TestParse_Lyrics(t *testing.T) {
	uslt := []byte{0}
	uslt = append(uslt, []byte("eng")...)
	uslt = append(uslt, []byte("description")...)
	uslt = append(uslt, 0)
	uslt = append(uslt, []byte("line one\nline two")...)

	txxx := []byte{0}
	txxx = append(txxx, []byte("LYRICS")...)
	txxx = append(txxx, 0)
	txxx = append(txxx, []byte("user text lyrics")...)

	comm := []byte{0}
	comm = append(comm, []byte("eng")...)
	comm = append(comm, []byte("Lyrics")...)
	comm = append(comm, 0)
	comm = append(comm, []byte("comment lyrics")...)

	commOther := []byte{0}
	commOther = append(commOther, []byte("eng")...)
	commOther = append(commOther, []byte("rating")...)
	commOther = append(commOther, 0)
	commOther = append(commOther, []byte("five stars")...)

	tests := []struct {
		name   string
		frames [][]byte
		want   string
	}{
		{"uslt", [][]byte{frame(3, "USLT", uslt)}, "line one\nline two"},
		{"txxx lyric description", [][]byte{frame(3, "TXXX", txxx)}, "user text lyrics"},
		{"comm lyric description", [][]byte{frame(3, "COMM", comm)}, "comment lyrics"},
		{"comm other description ignored", [][]byte{frame(3, "COMM", commOther)}, ""},
		{"first hit wins", [][]byte{frame(3, "USLT", uslt), frame(3, "TXXX", txxx)}, "line one\nline two"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := buildTag(3, tt.frames...)
			if got := Parse(buf).Lyrics; got != tt.want {
				t.Errorf("Lyrics = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParse_MalformedInput(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
	}{
		{"empty", nil},
		{"too short", []byte("ID3")},
		{"no magic", append([]byte("XXX\x03\x00\x00"), syncSafe(100)...)},
		{"unsupported version", buildTag(2, frame(3, "TIT2", textPayload(0, []byte("x"))))},
		{"truncated mid-frame", buildTag(3)[:12]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.buf)
			if !got.Empty() {
				t.Errorf("Parse(%s) should yield empty Tag, got %+v", tt.name, got)
			}
		})
	}
}

func TestParse_StopsOnPadding(t *testing.T) {
	// Valid frame followed by padding; the zero bytes fail the frame-ID
	// shape check and terminate the walk cleanly.
	buf := buildTag(3, frame(3, "TIT2", textPayload(0, []byte("ok"))))

	got := Parse(buf)
	if got.Title != "ok" {
		t.Errorf("Title = %q, want ok", got.Title)
	}
}

func TestParse_StopsOnOversizedFrame(t *testing.T) {
	// Declared frame size exceeds the buffer; the walk must stop, keeping
	// fields parsed so far.
	var bad bytes.Buffer
	bad.WriteString("TPE1")
	bad.Write(be32(1 << 20))
	bad.Write([]byte{0, 0})
	bad.Write([]byte{0, 'x'})

	buf := buildTag(3, frame(3, "TIT2", textPayload(0, []byte("kept"))), bad.Bytes())

	got := Parse(buf)
	if got.Title != "kept" {
		t.Errorf("Title = %q, want kept", got.Title)
	}
	if got.Artist != "" {
		t.Errorf("Artist = %q, want empty (oversized frame skipped)", got.Artist)
	}
}

func TestParse_FrameCap(t *testing.T) {
	// A title placed past the frame cap must not be reached.
	junk := make([][]byte, 0, maxFrames+1)
	payload := []byte{0}
	payload = append(payload, []byte("K\x00V")...)
	for i := 0; i < maxFrames; i++ {
		junk = append(junk, frame(3, "TXXX", payload))
	}
	junk = append(junk, frame(3, "TIT2", textPayload(0, []byte("late"))))

	got := Parse(buildTag(3, junk...))
	if got.Title != "" {
		t.Errorf("Title = %q, want empty (frame past cap)", got.Title)
	}
}
