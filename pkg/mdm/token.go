package mdm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// TokenState is the lifecycle stage of the cached credential.
type TokenState int

const (
	// StateUnauthenticated means no exchange has succeeded yet.
	StateUnauthenticated TokenState = iota
	// StateValid means the cached token is handed out as-is.
	StateValid
	// StateStale means the API rejected the token and the next caller must exchange again.
	StateStale
)

func (s TokenState) String() string {
	switch s {
	case StateValid:
		return "valid"
	case StateStale:
		return "stale"
	default:
		return "unauthenticated"
	}
}

// Token is a bearer credential obtained from the token endpoint.
type Token struct {
	Value      string
	ObtainedAt time.Time
}

// TokenCache obtains and caches a bearer token using the client-credentials grant.
// The API reports no usable expiry, so staleness is detected from 401 responses.
type TokenCache struct {
	httpClient   *http.Client
	tokenURL     string
	clientID     string
	clientSecret string
	now          func() time.Time

	mu    sync.Mutex
	state TokenState
	token Token

	flight singleflight.Group
}

// NewTokenCache builds a cache for the token endpoint of baseURL.
func NewTokenCache(httpClient *http.Client, baseURL, clientID, clientSecret string) *TokenCache {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &TokenCache{
		httpClient:   httpClient,
		tokenURL:     sanitizeBaseURL(baseURL) + "/api/oauth/token",
		clientID:     clientID,
		clientSecret: clientSecret,
		now:          time.Now,
	}
}

// State reports the current lifecycle stage.
func (c *TokenCache) State() TokenState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Token returns the cached token, exchanging credentials when none is valid.
// Concurrent callers share a single exchange and its outcome.
func (c *TokenCache) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.state == StateValid {
		v := c.token.Value
		c.mu.Unlock()
		return v, nil
	}
	c.mu.Unlock()

	ch := c.flight.DoChan("token", func() (interface{}, error) {
		c.mu.Lock()
		if c.state == StateValid {
			v := c.token.Value
			c.mu.Unlock()
			return v, nil
		}
		c.mu.Unlock()
		tok, err := c.exchange(context.WithoutCancel(ctx))
		if err != nil {
			return "", err
		}
		c.mu.Lock()
		c.token = tok
		c.state = StateValid
		c.mu.Unlock()
		return tok.Value, nil
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// Invalidate marks token stale if it is still the cached one.
func (c *TokenCache) Invalidate(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateValid && c.token.Value == token {
		c.state = StateStale
	}
}

func (c *TokenCache) exchange(ctx context.Context) (Token, error) {
	if c.clientID == "" || c.clientSecret == "" {
		return Token{}, &AuthError{Err: fmt.Errorf("client credentials missing")}
	}
	form := url.Values{}
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)
	form.Set("grant_type", "client_credentials")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return Token{}, &AuthError{Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Token{}, &AuthError{Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Token{}, &AuthError{Status: resp.Status, Body: strings.TrimSpace(string(body))}
	}
	var payload struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Token{}, &AuthError{Status: resp.Status, Err: fmt.Errorf("decode token response: %w", err)}
	}
	if payload.AccessToken == "" {
		return Token{}, &AuthError{Status: resp.Status, Err: fmt.Errorf("access token empty")}
	}
	if payload.TokenType != "" && !strings.EqualFold(payload.TokenType, "bearer") {
		return Token{}, &AuthError{Status: resp.Status, Err: fmt.Errorf("unexpected token type %q", payload.TokenType)}
	}
	return Token{Value: payload.AccessToken, ObtainedAt: c.now()}, nil
}

func sanitizeBaseURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	return strings.TrimRight(trimmed, "/")
}
