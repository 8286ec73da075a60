package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// APIError is a non-2xx response from the gateway or the upstream behind
// it.
type APIError struct {
	Status  int
	Message string
	Body    []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// CacheInfo is the gateway's cache annotation parsed from the X-Cache
// headers.
type CacheInfo struct {
	Status string // HIT, MISS or DEDUPED
	TTL    time.Duration
}

// Client calls the REST API through the gateway: every request is
// {base}?path=<urlencoded upstream route>.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a client pointed at the gateway base URL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// call performs one gateway request and decodes the JSON body into out.
// A nil body means GET.
func (c *Client) call(ctx context.Context, method, path string, body any, out any) (CacheInfo, error) {
	fullURL := c.baseURL + "?path=" + url.QueryEscape(path)

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return CacheInfo{}, fmt.Errorf("marshal body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return CacheInfo{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return CacheInfo{}, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return CacheInfo{}, fmt.Errorf("read response: %w", err)
	}

	cache := parseCacheInfo(resp.Header)

	if resp.StatusCode >= 400 {
		return cache, &APIError{
			Status:  resp.StatusCode,
			Message: errorMessage(respBody, resp.StatusCode),
			Body:    respBody,
		}
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return cache, fmt.Errorf("unmarshal response: %w", err)
		}
	}

	c.logger.Debug("api call",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"cache", cache.Status,
	)

	return cache, nil
}

func (c *Client) get(ctx context.Context, path string, out any) (CacheInfo, error) {
	return c.call(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) (CacheInfo, error) {
	return c.call(ctx, http.MethodPost, path, body, out)
}

// parseCacheInfo reads the gateway's cache annotation headers.
func parseCacheInfo(h http.Header) CacheInfo {
	info := CacheInfo{Status: h.Get("X-Cache")}
	if ms, err := strconv.ParseInt(h.Get("X-Cache-Ttl"), 10, 64); err == nil {
		info.TTL = time.Duration(ms) * time.Millisecond
	}
	return info
}

// errorMessage prefers the upstream's {"message": ...} body over the
// generic status text.
func errorMessage(body []byte, status int) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return http.StatusText(status)
}
