package mdm

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/x1thexxx-lgtm/assetlabel/pkg/config"
	"github.com/x1thexxx-lgtm/assetlabel/pkg/inventory"
	"github.com/x1thexxx-lgtm/assetlabel/pkg/logging"
)

// Client reads device inventory from the MDM REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     *TokenCache
	pageSize   int
	normalizer inventory.Normalizer
	log        *logging.Logger
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger.
func WithLogger(log *logging.Logger) Option {
	return func(c *Client) {
		c.log = log.With("mdm")
	}
}

// WithNormalizer sets the normalizer used for fetched rows.
func WithNormalizer(n inventory.Normalizer) Option {
	return func(c *Client) {
		c.normalizer = n
	}
}

// NewClient builds an MDM client.
func NewClient(cfg config.MDMConfig, opts ...Option) *Client {
	timeout, err := cfg.TimeoutDuration()
	if err != nil || timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &Client{
		baseURL:    sanitizeBaseURL(cfg.BaseURL),
		httpClient: &http.Client{Timeout: timeout},
		pageSize:   cfg.PageSize,
		normalizer: inventory.NewNormalizer(inventory.ExtendedLadder, "disk0"),
	}
	if c.pageSize <= 0 {
		c.pageSize = 100
	}
	for _, opt := range opts {
		opt(c)
	}
	c.tokens = NewTokenCache(c.httpClient, c.baseURL, cfg.ClientID, cfg.ClientSecret)
	return c
}

// get performs an authorized GET. A 401 invalidates the token and the request is retried once.
func (c *Client) get(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	resp, token, err := c.send(ctx, path, query)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	drain(resp)
	c.log.Debugf("token rejected for %s, refreshing", path)
	c.tokens.Invalidate(token)
	resp, _, err = c.send(ctx, path, query)
	return resp, err
}

func (c *Client) send(ctx context.Context, path string, query url.Values) (*http.Response, string, error) {
	if c.baseURL == "" {
		return nil, "", fmt.Errorf("mdm base url not configured")
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, "", err
	}
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	return resp, token, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
}
