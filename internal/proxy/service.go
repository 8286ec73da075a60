package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// ErrInvalidPath is returned for paths that fail validation; such requests
// are never forwarded upstream.
var ErrInvalidPath = errors.New("invalid path")

// CacheStatus marks how a response was served.
type CacheStatus string

const (
	CacheHit     CacheStatus = "HIT"
	CacheMiss    CacheStatus = "MISS"
	CacheDeduped CacheStatus = "DEDUPED"
)

// CacheInfo annotates a response with cache metadata.
type CacheInfo struct {
	Status       CacheStatus
	TTLRemaining time.Duration // Set for hits only
	ExpiresAt    time.Time
}

// Result is a gateway response: the upstream's status and body plus cache
// metadata.
type Result struct {
	Status int
	Header http.Header
	Body   []byte
	Cache  CacheInfo
}

// entry is one cached upstream response.
type entry struct {
	expiresAt time.Time
	status    int
	header    http.Header
	body      []byte
}

// Service is the caching gateway. It is constructed explicitly (no package
// state) so tests can inject a fake clock and TTL policy.
type Service struct {
	upstream string
	client   *http.Client
	now      func() time.Time
	ttl      TTLPolicy
	limiter  *rate.Limiter
	logger   *slog.Logger

	mu    sync.RWMutex
	cache map[string]*entry

	group singleflight.Group
}

// Option configures a Service.
type Option func(*Service)

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithTTLPolicy injects the per-route TTL policy.
func WithTTLPolicy(p TTLPolicy) Option {
	return func(s *Service) { s.ttl = p }
}

// WithHTTPClient sets the upstream HTTP client; its Timeout is the
// client-side request timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *Service) { s.client = hc }
}

// WithLimiter throttles upstream calls.
func WithLimiter(l *rate.Limiter) Option {
	return func(s *Service) { s.limiter = l }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// NewService creates a gateway forwarding to the given upstream base URL.
func NewService(upstream string, opts ...Option) *Service {
	s := &Service{
		upstream: strings.TrimRight(upstream, "/"),
		client:   &http.Client{Timeout: 15 * time.Second},
		now:      time.Now,
		ttl:      DefaultTTLPolicy,
		limiter:  rate.NewLimiter(rate.Inf, 0),
		logger:   slog.Default(),
		cache:    make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ValidatePath rejects anything that is not a single absolute upstream
// route: no scheme delimiter, no backslash, no parent traversal.
func ValidatePath(path string) error {
	if !strings.HasPrefix(path, "/") {
		return ErrInvalidPath
	}
	if strings.Contains(path, "://") || strings.Contains(path, `\`) || strings.Contains(path, "..") {
		return ErrInvalidPath
	}
	return nil
}

// Handle serves one gateway request: cache lookup, in-flight dedup, or an
// upstream forward, in that order.
func (s *Service) Handle(ctx context.Context, method, path, body string) (*Result, error) {
	if err := ValidatePath(path); err != nil {
		return nil, err
	}

	if method == http.MethodGet || method == http.MethodHead {
		body = ""
	}
	key := cacheKey(method, path, body)
	now := s.now()

	// 1) serve cache if fresh
	s.mu.RLock()
	cached, ok := s.cache[key]
	s.mu.RUnlock()
	if ok && cached.expiresAt.After(now) {
		return &Result{
			Status: cached.status,
			Header: cached.header.Clone(),
			Body:   cached.body,
			Cache: CacheInfo{
				Status:       CacheHit,
				TTLRemaining: cached.expiresAt.Sub(now),
				ExpiresAt:    cached.expiresAt,
			},
		}, nil
	}

	// 2) share an identical in-flight call, or 3) issue the upstream call.
	// The executing caller is detected by closure flags: it reports MISS,
	// joined callers report DEDUPED. singleflight forgets the key once the
	// call settles, so a failure does not block future attempts.
	var executed, fromCache bool
	v, err, _ := s.group.Do(key, func() (any, error) {
		executed = true

		// Another caller may have settled and stored between our cache
		// check and acquiring the flight.
		s.mu.RLock()
		stored, ok := s.cache[key]
		s.mu.RUnlock()
		if ok && stored.expiresAt.After(now) {
			fromCache = true
			return stored, nil
		}

		ent, err := s.forward(ctx, method, path, body)
		if err != nil {
			return nil, err
		}

		ent.expiresAt = now.Add(s.ttl(path))
		s.mu.Lock()
		s.cache[key] = ent
		s.mu.Unlock()

		return ent, nil
	})
	if err != nil {
		return nil, err
	}

	ent := v.(*entry)
	info := CacheInfo{Status: CacheDeduped, ExpiresAt: ent.expiresAt}
	if executed {
		info.Status = CacheMiss
		if fromCache {
			info.Status = CacheHit
			info.TTLRemaining = ent.expiresAt.Sub(now)
		}
	}

	return &Result{
		Status: ent.status,
		Header: ent.header.Clone(),
		Body:   ent.body,
		Cache:  info,
	}, nil
}

// forward performs the upstream call and packages the raw response.
// Upstream HTTP errors are relayed (and cached) as-is, not retried.
func (s *Service) forward(ctx context.Context, method, path, body string) (*entry, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.upstream+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	reqID := uuid.NewString()
	start := s.now()

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("upstream request failed",
			"request_id", reqID,
			"method", method,
			"path", path,
			"error", err,
		)
		return nil, fmt.Errorf("upstream request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read upstream response: %w", err)
	}

	s.logger.Debug("upstream request",
		"request_id", reqID,
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", s.now().Sub(start),
	)

	return &entry{
		status: resp.StatusCode,
		header: normalizeHeader(resp.Header),
		body:   respBody,
	}, nil
}

// cacheKey builds the dedup/cache key; body is already "" for read-only
// methods.
func cacheKey(method, path, body string) string {
	return method + ":" + path + ":" + body
}

// normalizeHeader keeps only the content type; everything else from the
// upstream is connection-specific.
func normalizeHeader(h http.Header) http.Header {
	ct := h.Get("Content-Type")
	if ct == "" {
		ct = "application/json"
	}
	out := http.Header{}
	out.Set("Content-Type", ct)
	return out
}
