// Copyright (c) Microsoft. All rights reserved.

package tokencache

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultRefreshMargin is how long before expiry a cached token is
	// considered stale and refreshed.
	DefaultRefreshMargin = 5 * time.Minute

	// DefaultTTL is assumed when the provider returns a token without a
	// parseable expiry.
	DefaultTTL = time.Hour
)

// Cache is a caching decorator over an [azcore.TokenCredential]. Tokens are
// cached per identity and scope set; a refresh replaces the cached value
// atomically with a brand-new token, never a partial update.
//
// For N concurrent callers racing on an empty or expired entry, exactly one
// acquisition call reaches the inner credential; all N callers receive the
// resulting token or the resulting error. Nothing is cached on failure.
type Cache struct {
	inner    azcore.TokenCredential
	identity string
	margin   time.Duration
	ttl      time.Duration
	now      func() time.Time

	mu      sync.RWMutex
	entries map[string]azcore.AccessToken
	group   singleflight.Group
}

// Option configures a [Cache].
type Option func(*Cache)

// WithIdentity sets the identity key (e.g., agent ID + tenant ID) used when
// the cache is invoked through the azcore.TokenCredential interface.
func WithIdentity(identity string) Option {
	return func(c *Cache) { c.identity = identity }
}

// WithRefreshMargin overrides the stale-before-expiry safety margin.
func WithRefreshMargin(d time.Duration) Option {
	return func(c *Cache) { c.margin = d }
}

// WithFallbackTTL overrides the lifetime assumed for tokens without an expiry.
func WithFallbackTTL(d time.Duration) Option {
	return func(c *Cache) { c.ttl = d }
}

// New creates a Cache over the given inner credential.
func New(inner azcore.TokenCredential, opts ...Option) *Cache {
	c := &Cache{
		inner:   inner,
		margin:  DefaultRefreshMargin,
		ttl:     DefaultTTL,
		now:     time.Now,
		entries: make(map[string]azcore.AccessToken),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Verify interface compliance at compile time.
var _ azcore.TokenCredential = (*Cache)(nil)

// GetToken implements [azcore.TokenCredential] for the configured identity.
func (c *Cache) GetToken(ctx context.Context, opts policy.TokenRequestOptions) (azcore.AccessToken, error) {
	return c.token(ctx, c.identity, opts)
}

// TokenFor acquires a token for an explicit identity key and scope set.
func (c *Cache) TokenFor(ctx context.Context, identity string, scopes []string) (azcore.AccessToken, error) {
	return c.token(ctx, identity, policy.TokenRequestOptions{Scopes: scopes})
}

func (c *Cache) token(ctx context.Context, identity string, opts policy.TokenRequestOptions) (azcore.AccessToken, error) {
	key := cacheKey(identity, opts)

	// Fast path: a fresh cached token needs only a shared read.
	if tok, ok := c.fresh(key); ok {
		return tok, nil
	}

	// Slow path: one flight per key. The re-check covers callers that waited
	// while another flight refreshed the entry.
	v, err, _ := c.group.Do(key, func() (any, error) {
		if tok, ok := c.fresh(key); ok {
			return tok, nil
		}
		return c.acquire(ctx, key, opts)
	})
	if err != nil {
		return azcore.AccessToken{}, err
	}
	return v.(azcore.AccessToken), nil
}

// acquire performs the network acquisition and stores the result. Other
// waiters depend on the flight, so it is detached from any single caller's
// cancellation: it completes or fails on its own.
func (c *Cache) acquire(ctx context.Context, key string, opts policy.TokenRequestOptions) (azcore.AccessToken, error) {
	slog.DebugContext(ctx, "refreshing bearer token", "identity_key", key)

	tok, err := c.inner.GetToken(context.WithoutCancel(ctx), opts)
	if err != nil {
		return azcore.AccessToken{}, fmt.Errorf("acquire token for %q: %w", key, err)
	}
	if tok.ExpiresOn.IsZero() {
		tok.ExpiresOn = c.now().Add(c.ttl)
	}

	c.mu.Lock()
	c.entries[key] = tok
	c.mu.Unlock()

	slog.DebugContext(ctx, "bearer token refreshed", "identity_key", key, "expires_on", tok.ExpiresOn)
	return tok, nil
}

// fresh returns the cached token for key if it survives the safety margin.
func (c *Cache) fresh(key string) (azcore.AccessToken, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tok, ok := c.entries[key]
	if !ok || !c.now().Add(c.margin).Before(tok.ExpiresOn) {
		return azcore.AccessToken{}, false
	}
	return tok, true
}

// cacheKey derives a stable per-identity key. Scope order is irrelevant.
func cacheKey(identity string, opts policy.TokenRequestOptions) string {
	scopes := make([]string, len(opts.Scopes))
	copy(scopes, opts.Scopes)
	sort.Strings(scopes)

	parts := []string{identity, opts.TenantID, strings.Join(scopes, " ")}
	return strings.Join(parts, "|")
}
