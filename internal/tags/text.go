package tags

import (
	"bytes"
	"unicode/utf16"
)

// ID3v2 text encoding bytes.
const (
	encLatin1  = 0
	encUTF16   = 1 // UTF-16 with BOM
	encUTF16BE = 2
	encUTF8    = 3
)

// decodeText decodes frame text according to the encoding byte. Unknown
// encodings fall back to Latin-1 rather than failing.
func decodeText(data []byte, encoding byte) string {
	if len(data) == 0 {
		return ""
	}
	switch encoding {
	case encLatin1:
		return decodeLatin1(data)
	case encUTF16:
		return decodeUTF16BOM(data)
	case encUTF16BE:
		return decodeUTF16BE(data)
	case encUTF8:
		return string(data)
	default:
		return decodeLatin1(data)
	}
}

// decodeLatin1 maps ISO-8859-1 bytes to runes one-to-one.
func decodeLatin1(data []byte) string {
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return string(runes)
}

// decodeUTF16BOM decodes UTF-16 text, honoring a leading BOM. Without a BOM
// big-endian is assumed, the ID3 default.
func decodeUTF16BOM(data []byte) string {
	if len(data) >= 2 {
		if data[0] == 0xFF && data[1] == 0xFE {
			return decodeUTF16LE(data[2:])
		}
		if data[0] == 0xFE && data[1] == 0xFF {
			return decodeUTF16BE(data[2:])
		}
	}
	return decodeUTF16BE(data)
}

func decodeUTF16LE(data []byte) string {
	if len(data)%2 != 0 {
		data = data[:len(data)-1]
	}
	u16 := make([]uint16, len(data)/2)
	for i := range u16 {
		u16[i] = uint16(data[i*2]) | uint16(data[i*2+1])<<8
	}
	return string(utf16.Decode(u16))
}

func decodeUTF16BE(data []byte) string {
	if len(data)%2 != 0 {
		data = data[:len(data)-1]
	}
	u16 := make([]uint16, len(data)/2)
	for i := range u16 {
		u16[i] = uint16(data[i*2])<<8 | uint16(data[i*2+1])
	}
	return string(utf16.Decode(u16))
}

// findNullTerminator locates the string terminator for the given encoding:
// a single zero byte for single-byte encodings, an aligned zero pair for
// UTF-16 variants.
func findNullTerminator(data []byte, encoding byte) int {
	switch encoding {
	case encUTF16, encUTF16BE:
		for i := 0; i+1 < len(data); i += 2 {
			if data[i] == 0 && data[i+1] == 0 {
				return i
			}
		}
		return -1
	default:
		return bytes.IndexByte(data, 0)
	}
}

// terminatorSize returns the width of the null terminator for the encoding.
func terminatorSize(encoding byte) int {
	if encoding == encUTF16 || encoding == encUTF16BE {
		return 2
	}
	return 1
}
