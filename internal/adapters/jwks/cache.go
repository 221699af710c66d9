package jwks

// Package jwks fetches and caches the identity provider's published signing
// keys (JSON Web Key Set). The cache refreshes on a TTL and performs one
// forced synchronous refresh when asked for an unseen key id, which tolerates
// provider-side key rotation. Concurrent refreshes are collapsed into a
// single in-flight fetch; stale keys remain usable until a refresh succeeds.

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/edbridge/portal-api/internal/observability/metrics"
	"github.com/edbridge/portal-api/internal/observability/statsd"
	"golang.org/x/sync/singleflight"
)

// ErrKeyNotFound is returned when a key id is absent even after a forced refresh.
var ErrKeyNotFound = errors.New("signing key not found")

// Config describes how the cache reaches the JWKS endpoint.
type Config struct {
	URL             string
	RefreshInterval time.Duration // default 1h when zero
	FetchTimeout    time.Duration // default 10s when zero
	HTTPClient      *http.Client  // optional, defaults to http.DefaultClient
	Logger          *slog.Logger  // optional
	Metrics         statsd.Sink   // optional
}

// Cache is a concurrency-safe key-set cache. Readers never observe a
// half-updated key set: the map is replaced atomically under the write lock.
type Cache struct {
	url             string
	refreshInterval time.Duration
	fetchTimeout    time.Duration
	httpClient      *http.Client
	logger          *slog.Logger
	metrics         statsd.Sink

	group singleflight.Group

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

// NewCache constructs a Cache. The key set is fetched lazily on first use.
func NewCache(cfg Config) (*Cache, error) {
	if cfg.URL == "" {
		return nil, errors.New("jwks: URL is required")
	}
	refresh := cfg.RefreshInterval
	if refresh <= 0 {
		refresh = time.Hour
	}
	timeout := cfg.FetchTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		url:             cfg.URL,
		refreshInterval: refresh,
		fetchTimeout:    timeout,
		httpClient:      client,
		logger:          logger,
		metrics:         cfg.Metrics,
	}, nil
}

// Key returns the RSA public key for kid. A cold cache or an unseen kid
// triggers one synchronous refresh shared across concurrent callers; if the
// kid is still unknown afterwards, ErrKeyNotFound is returned. A stale cache
// past its refresh interval is refreshed opportunistically, but a failed
// refresh falls back to the stale set rather than failing the caller.
func (c *Cache) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	key, fetchedAt := c.lookup(kid)
	if key != nil && time.Since(fetchedAt) < c.refreshInterval {
		return key, nil
	}

	if err := c.refresh(ctx); err != nil {
		if key != nil {
			// Stale keys stay usable until a refresh succeeds.
			c.logger.WarnContext(ctx, "jwks refresh failed, serving stale key", "kid", kid, "error", err)
			return key, nil
		}
		return nil, fmt.Errorf("jwks refresh: %w", err)
	}

	if key, _ = c.lookup(kid); key != nil {
		return key, nil
	}
	return nil, fmt.Errorf("%w: kid %q", ErrKeyNotFound, kid)
}

func (c *Cache) lookup(kid string) (*rsa.PublicKey, time.Time) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.keys[kid], c.fetchedAt
}

// refresh fetches the key set, deduplicating concurrent callers through
// singleflight so a burst of unknown-kid misses issues one network call.
func (c *Cache) refresh(ctx context.Context) error {
	_, err, _ := c.group.Do("refresh", func() (any, error) {
		keys, err := c.fetch(ctx)
		if err != nil {
			metrics.EmitKeySetRefresh(c.metrics, "error")
			return nil, err
		}
		metrics.EmitKeySetRefresh(c.metrics, "success")
		c.mu.Lock()
		c.keys = keys
		c.fetchedAt = time.Now()
		c.mu.Unlock()
		c.logger.DebugContext(ctx, "jwks refreshed", "keys", len(keys))
		return nil, nil
	})
	return err
}

// jwk is the subset of RFC 7517 this cache understands (RSA signing keys).
type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type jwkSet struct {
	Keys []jwk `json:"keys"`
}

func (c *Cache) fetch(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	// JWKS fetches carry their own timeout, distinct from IdP call timeouts.
	fetchCtx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", c.url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", c.url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	var set jwkSet
	if err := json.Unmarshal(body, &set); err != nil {
		return nil, fmt.Errorf("decode key set: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, k := range set.Keys {
		if k.Kty != "RSA" || k.Kid == "" {
			continue
		}
		if k.Use != "" && k.Use != "sig" {
			continue
		}
		pub, err := rsaPublicKey(k)
		if err != nil {
			c.logger.Warn("skipping unparseable jwk", "kid", k.Kid, "error", err)
			continue
		}
		keys[k.Kid] = pub
	}
	if len(keys) == 0 {
		return nil, errors.New("key set contains no usable RSA signing keys")
	}
	return keys, nil
}

// rsaPublicKey materializes an rsa.PublicKey from base64url modulus and exponent.
func rsaPublicKey(k jwk) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("decode modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("decode exponent: %w", err)
	}
	e := 0
	for _, b := range eBytes {
		e = e<<8 | int(b)
	}
	if e <= 1 {
		return nil, errors.New("invalid public exponent")
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: e,
	}, nil
}
