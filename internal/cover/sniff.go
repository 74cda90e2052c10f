package cover

import "bytes"

// Magic-byte signatures for the image formats commonly found in picture
// frames. WebP needs a second check at offset 8, handled below.
var magicSignatures = []struct {
	prefix []byte
	mime   string
}{
	{[]byte{0xFF, 0xD8, 0xFF}, "image/jpeg"},
	{[]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, "image/png"},
	{[]byte("GIF87a"), "image/gif"},
	{[]byte("GIF89a"), "image/gif"},
	{[]byte("BM"), "image/bmp"},
}

// DetectMIME sniffs the MIME type from magic bytes. Returns "" when no
// known signature matches.
func DetectMIME(data []byte) string {
	for _, sig := range magicSignatures {
		if bytes.HasPrefix(data, sig.prefix) {
			return sig.mime
		}
	}
	if len(data) >= 12 && bytes.HasPrefix(data, []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")) {
		return "image/webp"
	}
	return ""
}
