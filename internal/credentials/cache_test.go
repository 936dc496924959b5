package credentials

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// countingFetcher issues numbered tokens with a fixed lifetime.
type countingFetcher struct {
	calls    atomic.Int32
	lifetime time.Duration
	FetchFn  func(ctx context.Context) error
}

func (f *countingFetcher) Fetch(ctx context.Context) (Grant, error) {
	n := f.calls.Add(1)
	if f.FetchFn != nil {
		if err := f.FetchFn(ctx); err != nil {
			return Grant{}, err
		}
	}
	return Grant{
		AccessToken: fmt.Sprintf("token-%d", n),
		TokenType:   "Bearer",
		Scope:       DefaultScope,
		ExpiresIn:   f.lifetime,
	}, nil
}

func TestCache_HalfLifeRefresh(t *testing.T) {
	clock := newFakeClock()
	fetcher := &countingFetcher{lifetime: time.Hour}
	cache := NewCache(fetcher, WithClock(clock.Now))
	ctx := context.Background()

	// First call fetches.
	header, err := cache.AuthHeader(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Bearer token-1", header)
	assert.Equal(t, int32(1), fetcher.calls.Load())

	// Before the half-life mark: reused.
	clock.Advance(29 * time.Minute)
	header, err = cache.AuthHeader(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Bearer token-1", header)
	assert.Equal(t, int32(1), fetcher.calls.Load())

	// Exactly at the half-life mark: refreshed, old token discarded.
	clock.Advance(time.Minute)
	header, err = cache.AuthHeader(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Bearer token-2", header)
	assert.Equal(t, int32(2), fetcher.calls.Load())

	tok, err := cache.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, clock.Now().Add(30*time.Minute), tok.ExpiresAt)
}

func TestCache_ConcurrentCallersShareOneFetch(t *testing.T) {
	release := make(chan struct{})
	fetcher := &countingFetcher{
		lifetime: time.Hour,
		FetchFn: func(ctx context.Context) error {
			<-release
			return nil
		},
	}
	cache := NewCache(fetcher)

	const callers = 16
	var wg sync.WaitGroup
	headers := make([]string, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			headers[i], errs[i] = cache.AuthHeader(context.Background())
		}(i)
	}

	require.Eventually(t, func() bool { return fetcher.calls.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), fetcher.calls.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "Bearer token-1", headers[i])
	}
}

func TestCache_FetchErrorSurfacedNotRetried(t *testing.T) {
	boom := errors.New("connection refused")
	fetcher := &countingFetcher{
		lifetime: time.Hour,
		FetchFn:  func(ctx context.Context) error { return boom },
	}
	var refreshErrs []error
	cache := NewCache(fetcher)
	cache.OnRefresh = func(err error) { refreshErrs = append(refreshErrs, err) }

	_, err := cache.AuthHeader(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int32(1), fetcher.calls.Load())
	require.Len(t, refreshErrs, 1)

	// Nothing was cached, so the next call tries again.
	fetcher.FetchFn = nil
	header, err := cache.AuthHeader(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer token-2", header)
}

func TestCache_EmptyAccessToken(t *testing.T) {
	cache := NewCache(FetcherFunc(func(ctx context.Context) (Grant, error) {
		return Grant{ExpiresIn: time.Hour}, nil
	}))
	_, err := cache.Token(context.Background())
	assert.ErrorIs(t, err, ErrEmptyToken)
}

func TestCache_Invalidate(t *testing.T) {
	fetcher := &countingFetcher{lifetime: time.Hour}
	cache := NewCache(fetcher)

	_, err := cache.Token(context.Background())
	require.NoError(t, err)
	cache.Invalidate()
	tok, err := cache.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-2", tok.AccessToken)
}

func TestCache_BypassNeverTouchesNetwork(t *testing.T) {
	clock := newFakeClock()
	cache := NewCache(NewBypass(""), WithClock(clock.Now))

	header, err := cache.AuthHeader(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer "+BypassToken, header)

	tok, err := cache.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DefaultScope, tok.Scope)
	assert.Equal(t, clock.Now().Add(BypassLifetime/2), tok.ExpiresAt)
}
