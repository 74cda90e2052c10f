// Package cover normalizes embedded album art into a self-contained,
// persistable encoded form and enforces size limits on it.
package cover

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // GIF decoder for album art
	_ "image/jpeg" // JPEG decoder for album art
	_ "image/png"  // PNG decoder for album art
	"strings"
)

// EncodedImage is a self-contained encoded image: MIME type plus base64
// payload. It can be persisted, reloaded and turned back into pixels with no
// other state. Transient handles (blob: URLs and the like) are deliberately
// not representable.
type EncodedImage struct {
	MIMEType string `json:"mimeType"`
	Base64   string `json:"base64"`
}

// FromBytes wraps raw image bytes into an EncodedImage.
func FromBytes(mimeType string, data []byte) *EncodedImage {
	return &EncodedImage{
		MIMEType: mimeType,
		Base64:   base64.StdEncoding.EncodeToString(data),
	}
}

// Bytes decodes the base64 payload back into raw image bytes.
func (e *EncodedImage) Bytes() ([]byte, error) {
	return base64.StdEncoding.DecodeString(e.Base64)
}

// DataURI renders the image as a data: URI suitable for embedding.
func (e *EncodedImage) DataURI() string {
	return "data:" + e.MIMEType + ";base64," + e.Base64
}

// Decode decodes the payload into an image.Image.
func (e *EncodedImage) Decode() (image.Image, error) {
	data, err := e.Bytes()
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	return img, err
}

// transientSchemes are resource-handle prefixes that only resolve within a
// single process lifetime. Anything carrying one of these is meaningless
// after a reload and must be dropped on hydration.
var transientSchemes = []string{"blob:", "app://", "filesystem:", "obsidian://"}

// Valid reports whether the image is a usable self-contained encoding:
// an image MIME type, a decodable base64 payload and no transient scheme
// smuggled into either field.
func (e *EncodedImage) Valid() bool {
	if e == nil || e.MIMEType == "" || e.Base64 == "" {
		return false
	}
	for _, scheme := range transientSchemes {
		if strings.HasPrefix(e.MIMEType, scheme) || strings.HasPrefix(e.Base64, scheme) {
			return false
		}
	}
	if !strings.HasPrefix(e.MIMEType, "image/") {
		return false
	}
	_, err := base64.StdEncoding.DecodeString(e.Base64)
	return err == nil
}

// ErrNotDataURI is returned by ParseDataURI for strings that are not
// data: URIs.
var ErrNotDataURI = errors.New("cover: not a data URI")

// ParseDataURI parses a "data:<mime>;base64,<payload>" string back into an
// EncodedImage. Used when hydrating persisted state written by older hosts.
func ParseDataURI(s string) (*EncodedImage, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return nil, ErrNotDataURI
	}
	mime, payload, ok := strings.Cut(rest, ";base64,")
	if !ok {
		return nil, fmt.Errorf("cover: malformed data URI")
	}
	e := &EncodedImage{MIMEType: mime, Base64: payload}
	if !e.Valid() {
		return nil, fmt.Errorf("cover: invalid data URI payload")
	}
	return e, nil
}
