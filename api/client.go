// ABOUTME: HTTP client wrapper for the LeadLab REST backend
// ABOUTME: Adds base URL, bearer token, cookies and request IDs, and reports 401s
package api

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/oklog/ulid/v2"
	"golang.org/x/net/publicsuffix"
)

const maxBodySize = 10 << 20

// Client is safe for concurrent use. The bearer token is the only mutable
// state and is swapped by the auth store on login and logout.
type Client struct {
	base   *url.URL
	http   *http.Client
	logger *log.Logger

	mu             sync.RWMutex
	token          string
	onUnauthorized func()

	idMu    sync.Mutex
	entropy *ulid.MonotonicEntropy
}

type Option func(*Client)

// WithHTTPClient replaces the underlying client. Its cookie jar is kept.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithTimeout sets a whole-request timeout. Zero keeps the default of none.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// New builds a client for baseURL, for example http://localhost:8000/api/v1.
func New(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", baseURL)
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	c := &Client{
		base:    base,
		http:    &http.Client{Jar: jar},
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http.Jar == nil {
		c.http.Jar = jar
	}
	if c.logger == nil {
		c.logger = log.New(io.Discard)
	}
	return c, nil
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string { return c.base.String() }

// SetToken installs the default Authorization header.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// ClearToken drops the default Authorization header.
func (c *Client) ClearToken() { c.SetToken("") }

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// OnUnauthorized registers fn to run when an authenticated request gets a 401.
func (c *Client) OnUnauthorized(fn func()) {
	c.mu.Lock()
	c.onUnauthorized = fn
	c.mu.Unlock()
}

func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, http.MethodGet, path, query, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, nil, body, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPut, path, nil, body, out)
}

func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPatch, path, nil, body, out)
}

func (c *Client) Delete(ctx context.Context, path string) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil, nil)
}

// GetList fetches a list endpoint through the unwrapping adapter.
func GetList[T any](ctx context.Context, c *Client, path string, query url.Values) (Page[T], error) {
	raw, err := c.Raw(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return Page[T]{}, err
	}
	page, err := DecodeList[T](raw)
	if err != nil {
		return Page[T]{}, fmt.Errorf("GET %s: %w", path, err)
	}
	return page, nil
}

// Do sends a JSON request and decodes a single-object response into out.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	raw, err := c.Raw(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := DecodeOne(raw, out); err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	return nil
}

// Raw sends a request and returns the undecoded 2xx body.
func (c *Client) Raw(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	u := c.base.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s body: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	requestID := c.requestID()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	token := c.Token()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.logger.Debug("request failed", "method", method, "path", path, "request_id", requestID, "err", err)
		return nil, fmt.Errorf("%w: %s %s: %v", ErrNetwork, method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s %s: %v", ErrNetwork, method, path, err)
	}
	c.logger.Debug("request finished",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration", time.Since(start).Round(time.Millisecond),
	)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return data, nil
	}

	apiErr := &Error{
		Status:    resp.StatusCode,
		Detail:    parseDetail(data),
		Method:    method,
		Path:      path,
		RequestID: requestID,
	}
	if errors.Is(apiErr, ErrUnauthorized) && token != "" {
		c.mu.RLock()
		hook := c.onUnauthorized
		c.mu.RUnlock()
		if hook != nil {
			c.logger.Warn("session rejected by server", "path", path)
			hook()
		}
	}
	return nil, apiErr
}

func (c *Client) requestID() string {
	c.idMu.Lock()
	defer c.idMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), c.entropy).String()
}
