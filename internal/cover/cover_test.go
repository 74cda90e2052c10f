package cover

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/rs/zerolog"
)

// jpegBytes builds a buffer with a JPEG signature padded to the given size.
func jpegBytes(size int) []byte {
	buf := make([]byte, size)
	copy(buf, []byte{0xFF, 0xD8, 0xFF})
	return buf
}

// pngImage encodes a solid-color PNG of the given dimensions.
func pngImage(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

type fakeCompressor struct {
	out []byte
	err error
}

func (f fakeCompressor) Compress([]byte) ([]byte, string, error) {
	return f.out, "image/jpeg", f.err
}

func TestDetectMIME(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00}, "image/jpeg"},
		{"png", []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0x00}, "image/png"},
		{"gif87", []byte("GIF87a...."), "image/gif"},
		{"gif89", []byte("GIF89a...."), "image/gif"},
		{"bmp", []byte("BM......"), "image/bmp"},
		{"webp", []byte("RIFF\x00\x00\x00\x00WEBPVP8 "), "image/webp"},
		{"riff but not webp", []byte("RIFF\x00\x00\x00\x00WAVEfmt "), ""},
		{"unknown", []byte{0x00, 0x01, 0x02, 0x03}, ""},
		{"empty", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectMIME(tt.data); got != tt.want {
				t.Errorf("DetectMIME() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalize_SmallAcceptedUnmodified(t *testing.T) {
	n := NewNormalizer(zerolog.Nop(), nil)
	raw := jpegBytes(10 << 10)

	got := n.Normalize(raw, "", nil)

	if got == nil {
		t.Fatal("small cover should be accepted")
	}
	if got.MIMEType != "image/jpeg" {
		t.Errorf("MIMEType = %q, want image/jpeg", got.MIMEType)
	}
	data, err := got.Bytes()
	if err != nil {
		t.Fatalf("Bytes failed: %v", err)
	}
	if !bytes.Equal(data, raw) {
		t.Error("small cover should round-trip unmodified")
	}
}

func TestNormalize_MediumWithoutCompressorAccepted(t *testing.T) {
	n := NewNormalizer(zerolog.Nop(), nil)
	raw := jpegBytes(600 << 10)

	got := n.Normalize(raw, "", nil)

	if got == nil {
		t.Fatal("medium cover without compressor should degrade to unmodified accept")
	}
	data, _ := got.Bytes()
	if len(data) != len(raw) {
		t.Errorf("got %d bytes, want %d (unmodified)", len(data), len(raw))
	}
}

func TestNormalize_MediumWithCompressorCompressed(t *testing.T) {
	small := jpegBytes(4 << 10)
	n := NewNormalizer(zerolog.Nop(), fakeCompressor{out: small})

	got := n.Normalize(jpegBytes(600<<10), "", nil)

	if got == nil {
		t.Fatal("medium cover should be accepted")
	}
	data, _ := got.Bytes()
	if len(data) != len(small) {
		t.Errorf("got %d bytes, want compressed %d", len(data), len(small))
	}
}

func TestNormalize_LargeRequiresCompression(t *testing.T) {
	raw := jpegBytes(3 << 20)

	// Without compressor: rejected.
	n := NewNormalizer(zerolog.Nop(), nil)
	if got := n.Normalize(raw, "", nil); got != nil {
		t.Error("large cover without compressor should be rejected")
	}

	// With compressor: accepted.
	n = NewNormalizer(zerolog.Nop(), fakeCompressor{out: jpegBytes(4 << 10)})
	if got := n.Normalize(raw, "", nil); got == nil {
		t.Error("large cover with compressor should be accepted")
	}
}

func TestNormalize_OversizedRejectedOutright(t *testing.T) {
	n := NewNormalizer(zerolog.Nop(), fakeCompressor{out: jpegBytes(4 << 10)})

	if got := n.Normalize(jpegBytes(9<<20), "", nil); got != nil {
		t.Error("cover above the large threshold must be rejected even with a compressor")
	}
}

func TestNormalize_PrefersValidExisting(t *testing.T) {
	n := NewNormalizer(zerolog.Nop(), nil)
	existing := FromBytes("image/png", pngImage(t, 4, 4))

	got := n.Normalize(jpegBytes(10<<10), "", existing)

	if got != existing {
		t.Error("valid existing image should be preferred over re-deriving")
	}
}

func TestNormalize_InvalidExistingIgnored(t *testing.T) {
	n := NewNormalizer(zerolog.Nop(), nil)
	stale := &EncodedImage{MIMEType: "blob:app://cover/123", Base64: "blob:app://cover/123"}

	got := n.Normalize(jpegBytes(10<<10), "", stale)

	if got == nil || got == stale {
		t.Error("transient existing value must be replaced from raw bytes")
	}
}

func TestNormalize_UnknownFormat(t *testing.T) {
	n := NewNormalizer(zerolog.Nop(), nil)

	// Tiny unrecognized buffer: garbage, reject.
	if got := n.Normalize([]byte{0x01, 0x02, 0x03}, "image/jpeg", nil); got != nil {
		t.Error("tiny unrecognized buffer should be rejected")
	}

	// Nontrivially sized unrecognized buffer: accept opportunistically.
	raw := make([]byte, 32<<10)
	got := n.Normalize(raw, "jpg", nil)
	if got == nil {
		t.Fatal("sizeable unrecognized buffer should be accepted")
	}
	if got.MIMEType != "image/jpeg" {
		t.Errorf("MIMEType = %q, want hint-derived image/jpeg", got.MIMEType)
	}
}

func TestResizeCompressor(t *testing.T) {
	raw := pngImage(t, 1600, 1200)

	data, mime, err := ResizeCompressor{}.Compress(raw)
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	if mime != "image/jpeg" {
		t.Errorf("mime = %q, want image/jpeg", mime)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("compressed output not decodable: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() > maxDimension || bounds.Dy() > maxDimension {
		t.Errorf("dimensions %dx%d exceed cap %d", bounds.Dx(), bounds.Dy(), maxDimension)
	}
}

func TestResizeCompressor_NotAnImage(t *testing.T) {
	if _, _, err := (ResizeCompressor{}).Compress([]byte("not an image")); err == nil {
		t.Error("expected error for undecodable input")
	}
}

func TestEncodedImage_Valid(t *testing.T) {
	tests := []struct {
		name string
		img  *EncodedImage
		want bool
	}{
		{"nil", nil, false},
		{"ok", FromBytes("image/jpeg", []byte{1, 2, 3}), true},
		{"empty payload", &EncodedImage{MIMEType: "image/jpeg"}, false},
		{"blob scheme", &EncodedImage{MIMEType: "blob:xyz", Base64: "YWJj"}, false},
		{"app scheme payload", &EncodedImage{MIMEType: "image/png", Base64: "app://cover/1"}, false},
		{"non-image mime", &EncodedImage{MIMEType: "text/plain", Base64: "YWJj"}, false},
		{"bad base64", &EncodedImage{MIMEType: "image/png", Base64: "%%%"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.img.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseDataURI(t *testing.T) {
	orig := FromBytes("image/png", pngImage(t, 2, 2))

	parsed, err := ParseDataURI(orig.DataURI())
	if err != nil {
		t.Fatalf("ParseDataURI failed: %v", err)
	}
	if parsed.MIMEType != orig.MIMEType || parsed.Base64 != orig.Base64 {
		t.Error("data URI round trip mismatch")
	}

	if _, err := ParseDataURI("blob:app://cover/123"); err == nil {
		t.Error("expected error for non-data URI")
	}
}
