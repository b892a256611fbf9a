// Package wikibase talks to Wikidata: the SPARQL query service for entity
// resolution and the MediaWiki action API for reads and edits.
package wikibase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"
)

// Config configures a Client
type Config struct {
	APIURL         string
	SPARQLEndpoint string
	UserAgent      string
	Username       string // Bot password user, e.g. "Example@popimport"
	Password       string
	MaxLag         int
	EditSummary    string
	Timeout        time.Duration
	Proxy          func(*http.Request) (*url.URL, error)
}

// ErrEntityMissing is returned for items that resolve but do not exist
var ErrEntityMissing = errors.New("entity does not exist")

// APIError is an error object returned by the action API
type APIError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %s: %s", e.Code, e.Info)
}

// Client is a Wikidata client. It is not safe for concurrent edits.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger

	mu        sync.Mutex
	csrfToken string
}

// New creates a Client. Logging in is deferred until the first edit.
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	transport := &http.Transport{Proxy: http.ProxyFromEnvironment}
	if cfg.Proxy != nil {
		transport.Proxy = cfg.Proxy
	}

	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Jar:       jar,
			Transport: transport,
		},
		logger: logger,
	}, nil
}

// apiGet issues a GET against the action API and decodes the reply into out
func (c *Client) apiGet(ctx context.Context, params url.Values, out interface{}) error {
	params.Set("format", "json")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.APIURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.do(req, params.Get("action"), out)
}

// apiPost issues a form POST against the action API and decodes the reply into out
func (c *Client) apiPost(ctx context.Context, params url.Values, out interface{}) error {
	params.Set("format", "json")
	body := params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL, strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Content-Length", strconv.Itoa(len(body)))
	return c.do(req, params.Get("action"), out)
}

func (c *Client) do(req *http.Request, action string, out interface{}) error {
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read body: %w", action, err)
	}

	c.logger.Debug("api call",
		zap.String("action", action),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s: unexpected status: %d %s", action, resp.StatusCode, resp.Status)
	}

	var envelope struct {
		Error *APIError `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("%s: decode response: %w", action, err)
	}
	if envelope.Error != nil {
		return envelope.Error
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", action, err)
	}
	return nil
}
