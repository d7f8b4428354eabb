// Package preview fetches title and description metadata for link memories.
// Saving a link never depends on this succeeding; the capture service treats
// every error here as "save without a preview".
package preview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// ErrCircuitOpen is returned while the breaker is rejecting fetches after
// repeated upstream failures.
var ErrCircuitOpen = errors.New("preview fetch circuit is open")

// ErrRateLimited is returned when an outbound fetch would exceed the
// politeness limit and the context expires before a slot frees up.
var ErrRateLimited = errors.New("preview fetch rate limited")

const (
	// maxBodyBytes caps how much of a page is read while looking for
	// metadata. Titles and meta tags live in the head, so 512 KiB is ample.
	maxBodyBytes = 512 * 1024

	defaultTimeout   = 5 * time.Second
	defaultCacheSize = 256
)

// Metadata is the extracted page summary attached to a link memory.
type Metadata struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Config tunes the fetcher. Zero values fall back to defaults.
type Config struct {
	// Timeout bounds a single fetch end to end.
	Timeout time.Duration

	// RequestsPerSecond limits outbound fetches. Default 2.
	RequestsPerSecond float64

	// CacheSize is the number of URL results kept in memory. Default 256.
	CacheSize int

	// MaxFailures is the consecutive failure count that trips the breaker.
	// Default 3.
	MaxFailures uint32

	// BreakerTimeout is how long the breaker stays open. Default 30s.
	BreakerTimeout time.Duration
}

// Fetcher retrieves link metadata with a cache in front, a rate limiter and
// a circuit breaker behind.
type Fetcher struct {
	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	cache   *lru.Cache[string, Metadata]
	timeout time.Duration
}

// NewFetcher builds a Fetcher from config, applying defaults for zero fields.
func NewFetcher(cfg Config) (*Fetcher, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 2
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = defaultCacheSize
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 3
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = 30 * time.Second
	}

	cache, err := lru.New[string, Metadata](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("preview: create cache: %w", err)
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "LinkPreview",
		MaxRequests: 2,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
	})

	return &Fetcher{
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		breaker: breaker,
		cache:   cache,
		timeout: cfg.Timeout,
	}, nil
}

// Fetch returns metadata for url, consulting the cache first. Cache hits
// bypass both the limiter and the breaker.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Metadata, error) {
	if meta, ok := f.cache.Get(url); ok {
		return &meta, nil
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRateLimited, err)
	}

	result, err := f.breaker.Execute(func() (interface{}, error) {
		return f.fetch(ctx, url)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, ErrCircuitOpen
		}
		return nil, err
	}

	meta := result.(Metadata)
	f.cache.Add(url, meta)
	return &meta, nil
}

func (f *Fetcher) fetch(ctx context.Context, url string) (Metadata, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Metadata{}, fmt.Errorf("preview: build request: %w", err)
	}
	req.Header.Set("User-Agent", "keepsake/1.0")
	req.Header.Set("Accept", "text/html")

	resp, err := f.client.Do(req)
	if err != nil {
		return Metadata{}, fmt.Errorf("preview: fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Metadata{}, fmt.Errorf("preview: fetch %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Metadata{}, fmt.Errorf("preview: read %s: %w", url, err)
	}

	return parseMetadata(string(body)), nil
}

// parseMetadata pulls the <title> and the description meta tag out of an
// HTML document. Best effort: a page with neither yields empty metadata,
// which the caller treats as a successful fetch with nothing to show.
func parseMetadata(html string) Metadata {
	var meta Metadata

	lower := strings.ToLower(html)
	if start := strings.Index(lower, "<title"); start >= 0 {
		if open := strings.Index(lower[start:], ">"); open >= 0 {
			rest := start + open + 1
			if end := strings.Index(lower[rest:], "</title>"); end >= 0 {
				meta.Title = strings.TrimSpace(html[rest : rest+end])
			}
		}
	}

	meta.Description = metaContent(html, lower, `name="description"`)
	if meta.Description == "" {
		meta.Description = metaContent(html, lower, `property="og:description"`)
	}

	return meta
}

// metaContent finds the content attribute of the meta tag carrying attr.
func metaContent(html, lower, attr string) string {
	at := strings.Index(lower, attr)
	if at < 0 {
		return ""
	}

	// The content attribute can precede or follow the name attribute, so
	// scan the whole tag.
	tagStart := strings.LastIndex(lower[:at], "<meta")
	if tagStart < 0 {
		return ""
	}
	tagEnd := strings.Index(lower[tagStart:], ">")
	if tagEnd < 0 {
		return ""
	}
	tag := html[tagStart : tagStart+tagEnd]
	tagLower := lower[tagStart : tagStart+tagEnd]

	c := strings.Index(tagLower, `content="`)
	if c < 0 {
		return ""
	}
	c += len(`content="`)
	end := strings.Index(tag[c:], `"`)
	if end < 0 {
		return ""
	}
	return strings.TrimSpace(tag[c : c+end])
}
