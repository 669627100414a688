package ics

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	appLog "plancal/internal/log"
)

const maxFeedBytes = 8 << 20

// Feed is one ICS holiday calendar bound to a country.
type Feed struct {
	// ID names the feed in logs and in the Source field of its holidays.
	ID string
	// Country is the ISO 3166-1 alpha-2 code the feed contributes to.
	Country string
	// URL is an http(s) endpoint or a local file path.
	URL string
}

// FetchResult contains the outcome of fetching a single feed.
type FetchResult struct {
	Feed      Feed
	Body      []byte
	FromCache bool
}

// cacheEntry holds HTTP cache metadata for a single feed URL.
type cacheEntry struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Fetcher fetches ICS feeds with HTTP caching (ETag / Last-Modified) and a
// disk-backed copy used when the remote end fails.
type Fetcher struct {
	client   *http.Client
	cacheDir string
}

// NewFetcher creates a Fetcher. cacheDir holds one subdirectory per feed
// URL.
func NewFetcher(cacheDir string, timeout time.Duration) *Fetcher {
	if cacheDir == "" {
		cacheDir = "./var/ics-cache"
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Fetcher{
		client:   &http.Client{Timeout: timeout},
		cacheDir: cacheDir,
	}
}

// FetchOne fetches a single feed. Local paths are read directly.
func (f *Fetcher) FetchOne(ctx context.Context, feed Feed) (FetchResult, error) {
	if feed.URL == "" {
		return FetchResult{}, errors.New("feed URL is empty")
	}
	if !isRemote(feed.URL) {
		body, err := os.ReadFile(strings.TrimPrefix(feed.URL, "file://"))
		if err != nil {
			return FetchResult{}, err
		}
		return FetchResult{Feed: feed, Body: body}, nil
	}

	cachePath := f.cachePathForURL(feed.URL)
	if err := os.MkdirAll(cachePath, 0o700); err != nil {
		return FetchResult{}, err
	}

	meta, _ := loadCacheMeta(cachePath)
	cachedBody, _ := os.ReadFile(filepath.Join(cachePath, "body.ics"))
	cached := FetchResult{Feed: feed, Body: cachedBody, FromCache: true}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.URL, nil)
	if err != nil {
		return FetchResult{}, err
	}
	if len(cachedBody) > 0 {
		if meta.ETag != "" {
			req.Header.Set("If-None-Match", meta.ETag)
		}
		if meta.LastModified != "" {
			req.Header.Set("If-Modified-Since", meta.LastModified)
		}
	}

	appLog.Debug("ics fetch start", "id", feed.ID, "url", redactURL(feed.URL))

	resp, err := f.client.Do(req)
	if err != nil {
		if len(cachedBody) > 0 {
			appLog.Error("ics fetch network error, using cached body", err, "id", feed.ID, "url", redactURL(feed.URL))
			return cached, nil
		}
		return FetchResult{}, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
		if readErr != nil {
			return FetchResult{}, readErr
		}
		newMeta := cacheEntry{
			URL:          feed.URL,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
		}
		if err := saveCache(cachePath, newMeta, body); err != nil {
			appLog.Error("ics cache save failed", err, "id", feed.ID, "url", redactURL(feed.URL))
		}
		appLog.Info("ics fetch success", "id", feed.ID, "url", redactURL(feed.URL), "bytes", len(body))
		return FetchResult{Feed: feed, Body: body}, nil

	case http.StatusNotModified:
		if len(cachedBody) == 0 {
			return FetchResult{}, errors.New("received 304 Not Modified but no cached body available")
		}
		appLog.Debug("ics fetch not modified; using cache", "id", feed.ID, "url", redactURL(feed.URL))
		return cached, nil

	default:
		if len(cachedBody) > 0 {
			appLog.Error("ics fetch non-OK, using cached body", errors.New(resp.Status), "id", feed.ID, "url", redactURL(feed.URL))
			return cached, nil
		}
		return FetchResult{}, errors.New(resp.Status)
	}
}

func isRemote(u string) bool {
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")
}

func (f *Fetcher) cachePathForURL(url string) string {
	sum := sha256.Sum256([]byte(url))
	return filepath.Join(f.cacheDir, hex.EncodeToString(sum[:8]))
}

func loadCacheMeta(cachePath string) (cacheEntry, error) {
	var meta cacheEntry
	data, err := os.ReadFile(filepath.Join(cachePath, "meta.json"))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return cacheEntry{}, err
	}
	return meta, nil
}

func saveCache(cachePath string, meta cacheEntry, body []byte) error {
	// Write body first so meta never points at missing body.
	if err := os.WriteFile(filepath.Join(cachePath, "body.ics"), body, 0o600); err != nil {
		return err
	}
	meta.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(cachePath, "meta.json"), data, 0o600)
}

// redactURL hides the path and query of a feed URL, which often carry
// private tokens.
//
//	https://example.com/path/to/private.ics?token=abcd -> https://example.com/...(redacted)
func redactURL(u string) string {
	i := strings.Index(u, "://")
	if i == -1 {
		return "ics://...(redacted)"
	}
	rest := u[i+3:]
	if j := strings.IndexByte(rest, '/'); j >= 0 {
		rest = rest[:j]
	}
	return u[:i+3] + rest + "/...(redacted)"
}
