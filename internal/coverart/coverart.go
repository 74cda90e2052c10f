// Package coverart fetches album covers from the Cover Art Archive for
// tracks whose files carry no embedded picture. Strictly best-effort: every
// failure is logged and swallowed, and results pass through the normalizer
// before they can enter the cache.
package coverart

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/minitune/minitune/internal/cover"
)

const (
	searchBaseURL   = "https://musicbrainz.org/ws/2"
	coverArtBaseURL = "https://coverartarchive.org"
	userAgent       = "minitune/0.1 (https://github.com/minitune/minitune)"
	rateLimitDur    = time.Second // MusicBrainz requires 1 request per second
)

// Client looks up release covers by artist and album.
type Client struct {
	log        zerolog.Logger
	httpClient *http.Client
	normalizer *cover.Normalizer

	mu          sync.Mutex
	lastRequest time.Time
}

func NewClient(log zerolog.Logger, normalizer *cover.Normalizer) *Client {
	return &Client{
		log:        log,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		normalizer: normalizer,
	}
}

type searchResponse struct {
	Releases []struct {
		ID string `json:"id"`
	} `json:"releases"`
}

// Lookup finds the best release match for artist+album and fetches its front
// cover at 500px. Returns nil on any miss or failure; the signature matches
// metacache.LookupFunc.
func (c *Client) Lookup(ctx context.Context, artist, album string) *cover.EncodedImage {
	if artist == "" || album == "" {
		return nil
	}

	mbid, err := c.searchRelease(ctx, artist, album)
	if err != nil || mbid == "" {
		if err != nil {
			c.log.Debug().Err(err).Str("artist", artist).Str("album", album).Msg("release search failed")
		}
		return nil
	}

	data, err := c.frontCover(ctx, mbid)
	if err != nil || len(data) == 0 {
		if err != nil {
			c.log.Debug().Err(err).Str("mbid", mbid).Msg("cover fetch failed")
		}
		return nil
	}

	img := c.normalizer.Normalize(data, "", nil)
	if img == nil {
		c.log.Debug().Str("mbid", mbid).Int("bytes", len(data)).Msg("fetched cover rejected by normalizer")
	}
	return img
}

// searchRelease returns the MBID of the top release match, "" if none.
func (c *Client) searchRelease(ctx context.Context, artist, album string) (string, error) {
	c.waitForRateLimit()

	params := url.Values{}
	params.Set("query", fmt.Sprintf(`artist:%q AND release:%q`, artist, album))
	params.Set("fmt", "json")
	params.Set("limit", "1")

	reqURL := fmt.Sprintf("%s/release?%s", searchBaseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API status %d", resp.StatusCode)
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(result.Releases) == 0 {
		return "", nil
	}
	return result.Releases[0].ID, nil
}

// frontCover fetches the front cover at 500px. A 404 means no cover art is
// available, which is not an error.
func (c *Client) frontCover(ctx context.Context, mbid string) ([]byte, error) {
	c.waitForRateLimit()

	reqURL := fmt.Sprintf("%s/release/%s/front-500", coverArtBaseURL, mbid)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// waitForRateLimit enforces the one-request-per-second API policy.
func (c *Client) waitForRateLimit() {
	c.mu.Lock()
	defer c.mu.Unlock()

	elapsed := time.Since(c.lastRequest)
	if elapsed < rateLimitDur {
		time.Sleep(rateLimitDur - elapsed)
	}
	c.lastRequest = time.Now()
}
