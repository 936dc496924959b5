package credentials

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// ErrEmptyToken is returned when a fetcher yields no access token.
var ErrEmptyToken = errors.New("credentials: empty access token")

// Grant is a freshly issued credential as reported by the token endpoint.
type Grant struct {
	AccessToken string
	TokenType   string
	Scope       string
	ExpiresIn   time.Duration
}

// Token is a cached credential. ExpiresAt is half of the declared lifetime
// after issue, so the token is refreshed well before the platform rejects it.
type Token struct {
	AccessToken string
	TokenType   string
	Scope       string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// Valid reports whether the token may still be used at now.
func (t Token) Valid(now time.Time) bool {
	return t.AccessToken != "" && now.Before(t.ExpiresAt)
}

// Fetcher obtains a new credential grant.
type Fetcher interface {
	Fetch(ctx context.Context) (Grant, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context) (Grant, error)

func (f FetcherFunc) Fetch(ctx context.Context) (Grant, error) { return f(ctx) }

// Cache holds at most one token and refreshes it on demand.
// Refreshes are single-flight: concurrent callers share one fetch.
type Cache struct {
	fetcher Fetcher
	now     func() time.Time
	logger  *slog.Logger

	// OnRefresh, if set, is called after every fetch attempt.
	OnRefresh func(err error)

	group   singleflight.Group
	mu      sync.Mutex
	current *Token
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithClock overrides the time source.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) { c.now = now }
}

// WithLogger sets the cache logger.
func WithLogger(l *slog.Logger) CacheOption {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCache creates an empty cache backed by fetcher.
func NewCache(fetcher Fetcher, opts ...CacheOption) *Cache {
	c := &Cache{
		fetcher: fetcher,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AuthHeader returns the Authorization header value for administrative calls.
func (c *Cache) AuthHeader(ctx context.Context) (string, error) {
	tok, err := c.Token(ctx)
	if err != nil {
		return "", err
	}
	return "Bearer " + tok.AccessToken, nil
}

// Token returns the cached token, fetching a new one if the slot is empty or
// the token reached its refresh point.
func (c *Cache) Token(ctx context.Context) (Token, error) {
	if tok, ok := c.cached(); ok {
		return tok, nil
	}

	v, err, _ := c.group.Do("token", func() (any, error) {
		// Another caller may have refreshed while we waited.
		if tok, ok := c.cached(); ok {
			return tok, nil
		}
		return c.refresh(ctx)
	})
	if err != nil {
		return Token{}, err
	}
	return v.(Token), nil
}

// Invalidate drops the cached token so the next call fetches a new one.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.current = nil
	c.mu.Unlock()
}

func (c *Cache) cached() (Token, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil || !c.current.Valid(c.now()) {
		return Token{}, false
	}
	return *c.current, true
}

func (c *Cache) refresh(ctx context.Context) (Token, error) {
	issued := c.now()
	grant, err := c.fetcher.Fetch(ctx)
	if err == nil && grant.AccessToken == "" {
		err = ErrEmptyToken
	}
	if c.OnRefresh != nil {
		c.OnRefresh(err)
	}
	if err != nil {
		return Token{}, fmt.Errorf("fetch token: %w", err)
	}

	tok := &Token{
		AccessToken: grant.AccessToken,
		TokenType:   grant.TokenType,
		Scope:       grant.Scope,
		IssuedAt:    issued,
		ExpiresAt:   issued.Add(grant.ExpiresIn / 2),
	}

	c.mu.Lock()
	c.current = tok
	c.mu.Unlock()

	c.logger.Debug("credential refreshed", "scope", tok.Scope, "refresh_at", tok.ExpiresAt)
	return *tok, nil
}
