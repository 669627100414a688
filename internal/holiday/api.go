package holiday

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	appLog "plancal/internal/log"
	"plancal/internal/model"
)

// ErrUpstream wraps failures of the holiday API when no cached copy exists.
var ErrUpstream = errors.New("holiday upstream unavailable")

// errUnknownCountry marks a 404 from upstream: the API has no calendar for
// the country, which callers treat as "no holidays".
var errUnknownCountry = errors.New("country not known upstream")

const maxBodyBytes = 1 << 20

// APIConfig configures an APIClient.
type APIConfig struct {
	// BaseURL is a Nager.Date compatible root, e.g. "https://date.nager.at/api/v3".
	BaseURL string
	// CacheDir holds one subdirectory per (country, year).
	CacheDir string
	// MaxAge is how long a cached body is served without asking upstream.
	MaxAge time.Duration
	// Timeout bounds a single HTTP request.
	Timeout time.Duration

	// FailureThreshold consecutive failures open the circuit breaker.
	FailureThreshold uint32
	// OpenTimeout is how long the breaker stays open before probing.
	OpenTimeout time.Duration
}

// cacheEntry holds HTTP cache metadata for one (country, year).
type cacheEntry struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type upstreamResponse struct {
	status       int
	body         []byte
	etag         string
	lastModified string
}

// APIClient fetches public holidays from a REST API, keeping a disk cache
// that is served while fresh and used as a fallback when upstream fails.
type APIClient struct {
	client   *http.Client
	baseURL  string
	cacheDir string
	maxAge   time.Duration
	breaker  *gobreaker.CircuitBreaker[upstreamResponse]
	now      func() time.Time
}

// NewAPIClient creates an APIClient. Zero values in cfg get defaults.
func NewAPIClient(cfg APIConfig) *APIClient {
	if cfg.CacheDir == "" {
		cfg.CacheDir = "./var/holiday-cache"
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 7 * 24 * time.Hour
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = time.Minute
	}

	settings := gobreaker.Settings{
		Name:        "holiday-api",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errUnknownCountry)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			appLog.Info("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}

	return &APIClient{
		client:   &http.Client{Timeout: cfg.Timeout},
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		cacheDir: cfg.CacheDir,
		maxAge:   cfg.MaxAge,
		breaker:  gobreaker.NewCircuitBreaker[upstreamResponse](settings),
		now:      time.Now,
	}
}

// Name implements Source.
func (c *APIClient) Name() string { return "api" }

// Holidays implements Source.
func (c *APIClient) Holidays(ctx context.Context, country string, year int) ([]model.Holiday, error) {
	if !ValidCountry(country) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCountry, country)
	}

	body, err := c.fetch(ctx, country, year)
	if errors.Is(err, errUnknownCountry) {
		appLog.Debug("holiday api has no calendar for country", "country", country, "year", year)
		return []model.Holiday{}, nil
	}
	if err != nil {
		return nil, err
	}
	return Normalize(body, country, year, c.Name())
}

func (c *APIClient) fetch(ctx context.Context, country string, year int) ([]byte, error) {
	url := fmt.Sprintf("%s/PublicHolidays/%d/%s", c.baseURL, year, country)
	cachePath := filepath.Join(c.cacheDir, fmt.Sprintf("%s-%d", country, year))
	if err := os.MkdirAll(cachePath, 0o700); err != nil {
		return nil, err
	}

	meta, _ := loadCacheMeta(cachePath)
	cachedBody, _ := loadCacheBody(cachePath)

	if len(cachedBody) > 0 && c.now().Sub(meta.UpdatedAt) < c.maxAge {
		appLog.Debug("holiday cache hit", "country", country, "year", year, "age", c.now().Sub(meta.UpdatedAt).String())
		return cachedBody, nil
	}

	resp, err := c.breaker.Execute(func() (upstreamResponse, error) {
		return c.get(ctx, url, meta)
	})
	if err != nil {
		if errors.Is(err, errUnknownCountry) {
			return nil, err
		}
		if len(cachedBody) > 0 {
			appLog.Error("holiday fetch failed, using cached body", err, "country", country, "year", year)
			return cachedBody, nil
		}
		return nil, fmt.Errorf("%w: %s %d: %v", ErrUpstream, country, year, err)
	}

	switch resp.status {
	case http.StatusNotModified:
		if len(cachedBody) == 0 {
			return nil, fmt.Errorf("%w: 304 Not Modified but no cached body for %s %d", ErrUpstream, country, year)
		}
		if err := saveCacheMeta(cachePath, meta, c.now()); err != nil {
			appLog.Error("holiday cache meta save failed", err, "country", country, "year", year)
		}
		appLog.Debug("holiday fetch not modified; using cache", "country", country, "year", year)
		return cachedBody, nil

	default:
		newMeta := cacheEntry{
			URL:          url,
			ETag:         resp.etag,
			LastModified: resp.lastModified,
		}
		if err := saveCache(cachePath, newMeta, resp.body, c.now()); err != nil {
			// Log but still return the freshly fetched body.
			appLog.Error("holiday cache save failed", err, "country", country, "year", year)
		}
		appLog.Info("holiday fetch success", "country", country, "year", year, "bytes", len(resp.body))
		return resp.body, nil
	}
}

func (c *APIClient) get(ctx context.Context, url string, meta cacheEntry) (upstreamResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return upstreamResponse{}, err
	}
	req.Header.Set("Accept", "application/json")
	if meta.URL == url {
		if meta.ETag != "" {
			req.Header.Set("If-None-Match", meta.ETag)
		}
		if meta.LastModified != "" {
			req.Header.Set("If-Modified-Since", meta.LastModified)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return upstreamResponse{}, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return upstreamResponse{}, err
		}
		return upstreamResponse{
			status:       resp.StatusCode,
			body:         body,
			etag:         resp.Header.Get("ETag"),
			lastModified: resp.Header.Get("Last-Modified"),
		}, nil
	case http.StatusNoContent:
		return upstreamResponse{status: http.StatusOK, body: []byte("[]")}, nil
	case http.StatusNotModified:
		return upstreamResponse{status: resp.StatusCode}, nil
	case http.StatusNotFound:
		return upstreamResponse{}, errUnknownCountry
	default:
		return upstreamResponse{}, errors.New(resp.Status)
	}
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

func loadCacheBody(cachePath string) ([]byte, error) {
	return os.ReadFile(filepath.Join(cachePath, "body.json"))
}

func saveCache(cachePath string, meta cacheEntry, body []byte, now time.Time) error {
	// Write body first so meta never points at a missing body.
	if err := os.WriteFile(filepath.Join(cachePath, "body.json"), body, 0o600); err != nil {
		return err
	}
	return saveCacheMeta(cachePath, meta, now)
}

func saveCacheMeta(cachePath string, meta cacheEntry, now time.Time) error {
	meta.UpdatedAt = now.UTC()
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(cachePath, "meta.json"), data, 0o600)
}
