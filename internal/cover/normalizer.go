package cover

import (
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
)

// Size tiers for embedded art. Art below smallLimit is stored as-is; between
// smallLimit and mediumLimit compression is attempted but optional; between
// mediumLimit and largeLimit compression is mandatory; above largeLimit the
// art is rejected outright. Embedded art regularly reaches several megabytes
// and the settings store pays for every byte on each load.
const (
	smallLimit  = 200 << 10
	mediumLimit = 1 << 20
	largeLimit  = 8 << 20

	// minOpportunistic is the floor below which unrecognized buffers are
	// treated as garbage rather than an unknown-but-valid format.
	minOpportunistic = 1 << 10
)

// Compressor re-encodes image bytes into a smaller representation.
// Implementations return the encoded bytes and their MIME type.
type Compressor interface {
	Compress(data []byte) ([]byte, string, error)
}

// Normalizer validates raw picture bytes and produces persistable
// EncodedImages according to the size-tier policy.
type Normalizer struct {
	log        zerolog.Logger
	compressor Compressor
}

// NewNormalizer creates a Normalizer. compressor may be nil, in which case
// mid-tier art is accepted unmodified and upper-tier art is rejected.
func NewNormalizer(log zerolog.Logger, compressor Compressor) *Normalizer {
	return &Normalizer{
		log:        log.With().Str("component", "cover").Logger(),
		compressor: compressor,
	}
}

// Normalize turns raw embedded picture bytes into an EncodedImage, or nil
// when the bytes are unusable. A still-valid existing image is preferred over
// re-deriving from raw bytes, so repeated scans of an unchanged file do not
// recompress (or visually "flicker") its art.
func (n *Normalizer) Normalize(raw []byte, formatHint string, existing *EncodedImage) *EncodedImage {
	if existing.Valid() {
		return existing
	}
	if len(raw) == 0 {
		return nil
	}

	mime := DetectMIME(raw)
	if mime == "" {
		// Unknown signature. Accept nontrivially sized buffers on the hint:
		// formats we do not sniff may still be perfectly displayable.
		if len(raw) < minOpportunistic {
			return nil
		}
		mime = normalizeHint(formatHint)
	}

	switch {
	case len(raw) <= smallLimit:
		return FromBytes(mime, raw)

	case len(raw) <= mediumLimit:
		if out := n.compress(raw); out != nil {
			return out
		}
		// No compressor or it failed: accept unmodified rather than lose art.
		return FromBytes(mime, raw)

	case len(raw) <= largeLimit:
		if out := n.compress(raw); out != nil {
			return out
		}
		n.log.Debug().Str("size", humanize.Bytes(uint64(len(raw)))).
			Msg("dropping large cover, compression unavailable")
		return nil

	default:
		n.log.Debug().Str("size", humanize.Bytes(uint64(len(raw)))).
			Msg("rejecting oversized cover")
		return nil
	}
}

func (n *Normalizer) compress(raw []byte) *EncodedImage {
	if n.compressor == nil {
		return nil
	}
	data, mime, err := n.compressor.Compress(raw)
	if err != nil || len(data) == 0 {
		return nil
	}
	return FromBytes(mime, data)
}

// normalizeHint maps a picture-frame format hint onto a usable MIME type.
// Hints come from tag data and range from proper MIME strings to bare
// extensions like "jpg" (seen in the wild in ID3v2.2-era files).
func normalizeHint(hint string) string {
	hint = strings.ToLower(strings.TrimSpace(hint))
	switch {
	case strings.HasPrefix(hint, "image/"):
		return hint
	case hint == "jpg" || hint == "jpeg":
		return "image/jpeg"
	case hint == "png":
		return "image/png"
	case hint == "gif":
		return "image/gif"
	default:
		return "image/jpeg"
	}
}
