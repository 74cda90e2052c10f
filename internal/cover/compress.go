package cover

import (
	"bytes"
	"errors"
	"image"
	"image/jpeg"

	"github.com/nfnt/resize"
)

const (
	// maxDimension caps either side of recompressed art. Status-bar and
	// popup rendering never needs more.
	maxDimension = 800

	// targetBytes is the encoded-size goal for the quality ladder.
	targetBytes = 500 << 10
)

// qualityLadder is walked top to bottom until the encoded size fits
// targetBytes; the last rung is kept even when it does not.
var qualityLadder = []int{85, 75, 65, 55, 45, 35, 25}

// ResizeCompressor downscales and re-encodes images as JPEG.
type ResizeCompressor struct{}

// Compress decodes, downscales to maxDimension and walks the quality ladder
// until the encoded size is under targetBytes. The lowest-quality attempt is
// returned if none fits.
func (ResizeCompressor) Compress(data []byte) ([]byte, string, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", err
	}

	// Thumbnail preserves aspect ratio and never upscales.
	img = resize.Thumbnail(maxDimension, maxDimension, img, resize.Lanczos3)

	var best []byte
	for _, quality := range qualityLadder {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, "", err
		}
		best = buf.Bytes()
		if buf.Len() <= targetBytes {
			break
		}
	}
	if len(best) == 0 {
		return nil, "", errors.New("cover: empty encode result")
	}
	return best, "image/jpeg", nil
}
