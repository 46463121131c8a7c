// Package rates maintains the USD to local-currency exchange rate used to
// price the storefront. A compiled-in fallback serves until the first
// successful provider fetch.
package rates

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	domain "github.com/webmuhendisi/velopix/internal/domain"
)

const (
	// FallbackUSDTRY is the compiled-in rate used before the provider
	// answers for the first time.
	FallbackUSDTRY = 42.95

	defaultRefreshInterval = time.Hour
	defaultFetchTimeout    = 10 * time.Second
)

// ErrRateOutOfRange indicates the provider returned a rate that cannot be real.
var ErrRateOutOfRange = errors.New("rates: rate out of range")

// Fetcher obtains the current USD rate from an upstream provider.
type Fetcher func(ctx context.Context) (float64, error)

// CacheDeps bundles constructor inputs for the rate cache.
type CacheDeps struct {
	Fetcher         Fetcher
	RefreshInterval time.Duration
	FetchTimeout    time.Duration
	Fallback        float64
	Clock           func() time.Time
	Logger          func(context.Context, string, map[string]any)
}

// Cache holds the rate in effect and refreshes it in the background.
type Cache struct {
	fetch        Fetcher
	interval     time.Duration
	fetchTimeout time.Duration
	clock        func() time.Time
	logger       func(context.Context, string, map[string]any)

	mu         sync.RWMutex
	current    domain.ExchangeRate
	appliedGen uint64
	nextGen    uint64

	startOnce sync.Once
	stopOnce  sync.Once
	started   atomic.Bool
	stop      chan struct{}
	done      chan struct{}
}

// NewCache constructs the rate cache seeded with the fallback rate.
func NewCache(deps CacheDeps) (*Cache, error) {
	if deps.Fetcher == nil {
		return nil, fmt.Errorf("rates: fetcher is required")
	}
	interval := deps.RefreshInterval
	if interval <= 0 {
		interval = defaultRefreshInterval
	}
	fetchTimeout := deps.FetchTimeout
	if fetchTimeout <= 0 {
		fetchTimeout = defaultFetchTimeout
	}
	fallback := deps.Fallback
	if fallback <= 0 {
		fallback = FallbackUSDTRY
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	cache := &Cache{
		fetch:        deps.Fetcher,
		interval:     interval,
		fetchTimeout: fetchTimeout,
		clock:        func() time.Time { return clock().UTC() },
		logger:       logger,
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
	cache.current = domain.ExchangeRate{
		Value:     fallback,
		Source:    domain.RateSourceFallback,
		FetchedAt: cache.clock(),
	}
	return cache, nil
}

// Current returns the rate in effect.
func (c *Cache) Current() domain.ExchangeRate {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Convert turns a USD amount into the local currency using the rate in
// effect, returning the rate alongside for auditing.
func (c *Cache) Convert(usd float64) (float64, domain.ExchangeRate) {
	rate := c.Current()
	return usd * rate.Value, rate
}

// USDToLocal is Convert without the rate echo.
func (c *Cache) USDToLocal(usd float64) float64 {
	local, _ := c.Convert(usd)
	return local
}

// Refresh fetches the provider rate once. A response that started before a
// newer one finished is discarded so the freshest fetch always wins.
func (c *Cache) Refresh(ctx context.Context) error {
	c.mu.Lock()
	c.nextGen++
	gen := c.nextGen
	c.mu.Unlock()

	fetchCtx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	value, err := c.fetch(fetchCtx)
	if err != nil {
		c.logger(ctx, "rates.fetch_failed", map[string]any{"error": err.Error()})
		return err
	}
	if value <= 0 || math.IsNaN(value) || math.IsInf(value, 0) {
		c.logger(ctx, "rates.fetch_rejected", map[string]any{"value": value})
		return fmt.Errorf("%w: %v", ErrRateOutOfRange, value)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen < c.appliedGen {
		return nil
	}
	c.appliedGen = gen
	c.current = domain.ExchangeRate{
		Value:     value,
		Source:    domain.RateSourceProvider,
		FetchedAt: c.clock(),
	}
	c.logger(ctx, "rates.refreshed", map[string]any{"value": value})
	return nil
}

// Start launches the background refresh loop. It fetches immediately, then
// on every interval tick until Stop is called or ctx is done.
func (c *Cache) Start(ctx context.Context) {
	c.startOnce.Do(func() {
		c.started.Store(true)
		go c.run(ctx)
	})
}

// Stop halts the refresh loop and waits for it to exit. The last applied
// rate keeps serving reads after Stop.
func (c *Cache) Stop() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
	if c.started.Load() {
		<-c.done
	}
}

func (c *Cache) run(ctx context.Context) {
	defer close(c.done)

	_ = c.Refresh(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stop:
			return
		case <-ticker.C:
			_ = c.Refresh(ctx)
		}
	}
}
