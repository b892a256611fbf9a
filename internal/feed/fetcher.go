// Package feed retrieves statistics feed documents over HTTP or from disk.
package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/ppiankov/popimport/internal/cache"
)

var (
	// ErrDisallowed is returned when robots.txt forbids fetching a feed
	ErrDisallowed = errors.New("disallowed by robots.txt")
	// ErrTooLarge is returned when a body exceeds the configured limit
	ErrTooLarge = errors.New("response body too large")
)

// Options configures a Fetcher
type Options struct {
	Timeout       time.Duration
	UserAgent     string
	MaxBytes      int64
	HTTPProxy     string
	HTTPSProxy    string
	RespectRobots bool
	Cache         cache.Store   // nil disables caching
	CacheTTL      time.Duration // zero uses the store default
}

// Fetcher downloads feed documents
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	robots     *RobotsChecker
	cache      cache.Store
	cacheTTL   time.Duration
}

// Document is a fetched or read feed body
type Document struct {
	Source      string // URL or file path
	Body        []byte
	ContentType string
	StatusCode  int
	FetchedAt   time.Time
	FromCache   bool
}

// NewFetcher creates a Fetcher
func NewFetcher(opts Options) *Fetcher {
	client := &http.Client{
		Timeout: opts.Timeout,
		Transport: &http.Transport{
			Proxy: ProxyFunc(opts.HTTPProxy, opts.HTTPSProxy),
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 3 {
				return fmt.Errorf("stopped after 3 redirects")
			}
			return nil
		},
	}

	f := &Fetcher{
		httpClient: client,
		userAgent:  opts.UserAgent,
		maxBytes:   opts.MaxBytes,
		cache:      opts.Cache,
		cacheTTL:   opts.CacheTTL,
	}
	if f.maxBytes <= 0 {
		f.maxBytes = 50_000_000
	}
	if opts.RespectRobots {
		f.robots = NewRobotsChecker(client, opts.UserAgent)
	}
	return f
}

// Fetch retrieves the document at rawURL. There are no retries:
// any transport or status failure is returned to the caller.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Document, error) {
	if f.cache != nil {
		if body, ok := f.cache.Get(cache.Key(rawURL)); ok {
			return &Document{
				Source:     rawURL,
				Body:       body,
				StatusCode: http.StatusOK,
				FetchedAt:  time.Now().UTC(),
				FromCache:  true,
			}, nil
		}
	}

	if f.robots != nil {
		allowed, err := f.robots.Allowed(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, fmt.Errorf("%s: %w", rawURL, ErrDisallowed)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/xml, text/xml;q=0.9, text/csv;q=0.8, */*;q=0.5")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status: %d %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("%s: %w (limit %d bytes)", rawURL, ErrTooLarge, f.maxBytes)
	}

	if f.cache != nil {
		// A cache write failure only costs a refetch next time
		_ = f.cache.Set(cache.Key(rawURL), body, f.cacheTTL)
	}

	return &Document{
		Source:      rawURL,
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
		FetchedAt:   time.Now().UTC(),
	}, nil
}

// Invalidate drops the cached copy of rawURL, if any
func (f *Fetcher) Invalidate(rawURL string) error {
	if f.cache == nil {
		return nil
	}
	return f.cache.Delete(cache.Key(rawURL))
}

// ReadFile loads a local feed file as a Document
func ReadFile(path string) (*Document, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read feed file: %w", err)
	}

	info, err := os.Stat(path)
	fetchedAt := time.Now().UTC()
	if err == nil {
		fetchedAt = info.ModTime().UTC()
	}

	return &Document{
		Source:    path,
		Body:      body,
		FetchedAt: fetchedAt,
	}, nil
}
