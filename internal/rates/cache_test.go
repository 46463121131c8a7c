package rates

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	domain "github.com/webmuhendisi/velopix/internal/domain"
)

func fixedRateClock() func() time.Time {
	return func() time.Time { return time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC) }
}

func TestCacheServesFallbackBeforeFirstFetch(t *testing.T) {
	cache, err := NewCache(CacheDeps{
		Fetcher: func(context.Context) (float64, error) { return 0, errors.New("not called") },
		Clock:   fixedRateClock(),
	})
	if err != nil {
		t.Fatalf("NewCache returned error: %v", err)
	}

	rate := cache.Current()
	if rate.Value != FallbackUSDTRY {
		t.Fatalf("expected fallback rate %v, got %v", FallbackUSDTRY, rate.Value)
	}
	if rate.Source != domain.RateSourceFallback {
		t.Fatalf("expected fallback source, got %q", rate.Source)
	}
	if got := cache.USDToLocal(100); got != 4295.00 {
		t.Fatalf("expected 4295.00, got %v", got)
	}
}

func TestRefreshAppliesProviderRate(t *testing.T) {
	cache, err := NewCache(CacheDeps{
		Fetcher: func(context.Context) (float64, error) { return 41.10, nil },
		Clock:   fixedRateClock(),
	})
	if err != nil {
		t.Fatalf("NewCache returned error: %v", err)
	}

	if err := cache.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	rate := cache.Current()
	if rate.Value != 41.10 || rate.Source != domain.RateSourceProvider {
		t.Fatalf("expected provider rate 41.10, got %+v", rate)
	}
}

func TestRefreshKeepsLastRateOnFailure(t *testing.T) {
	calls := 0
	cache, err := NewCache(CacheDeps{
		Fetcher: func(context.Context) (float64, error) {
			calls++
			if calls == 1 {
				return 40.00, nil
			}
			return 0, errors.New("provider down")
		},
		Clock: fixedRateClock(),
	})
	if err != nil {
		t.Fatalf("NewCache returned error: %v", err)
	}

	if err := cache.Refresh(context.Background()); err != nil {
		t.Fatalf("first Refresh returned error: %v", err)
	}
	if err := cache.Refresh(context.Background()); err == nil {
		t.Fatalf("expected error from failing provider")
	}
	if rate := cache.Current(); rate.Value != 40.00 {
		t.Fatalf("expected last good rate to survive, got %v", rate.Value)
	}
}

func TestRefreshRejectsNonsenseRates(t *testing.T) {
	for _, bad := range []float64{0, -3} {
		cache, err := NewCache(CacheDeps{
			Fetcher: func(context.Context) (float64, error) { return bad, nil },
			Clock:   fixedRateClock(),
		})
		if err != nil {
			t.Fatalf("NewCache returned error: %v", err)
		}
		if err := cache.Refresh(context.Background()); !errors.Is(err, ErrRateOutOfRange) {
			t.Fatalf("rate %v: expected out-of-range error, got %v", bad, err)
		}
		if rate := cache.Current(); rate.Source != domain.RateSourceFallback {
			t.Fatalf("rate %v: expected fallback to survive, got %+v", bad, rate)
		}
	}
}

func TestStopWithoutStartReturns(t *testing.T) {
	cache, err := NewCache(CacheDeps{
		Fetcher: func(context.Context) (float64, error) { return 40, nil },
	})
	if err != nil {
		t.Fatalf("NewCache returned error: %v", err)
	}
	cache.Stop()
}

func TestStartAndStopRefreshLoop(t *testing.T) {
	fetched := make(chan struct{}, 1)
	cache, err := NewCache(CacheDeps{
		Fetcher: func(context.Context) (float64, error) {
			select {
			case fetched <- struct{}{}:
			default:
			}
			return 39.50, nil
		},
		RefreshInterval: time.Hour,
	})
	if err != nil {
		t.Fatalf("NewCache returned error: %v", err)
	}

	cache.Start(context.Background())
	select {
	case <-fetched:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected an immediate fetch on start")
	}
	cache.Stop()

	if rate := cache.Current(); rate.Value != 39.50 {
		t.Fatalf("expected refreshed rate after start, got %v", rate.Value)
	}
}

func TestHTTPFetcherReadsRatesMap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"rates":{"TRY":41.25,"EUR":0.91}}`))
	}))
	defer srv.Close()

	fetch, err := NewHTTPFetcher(srv.Client(), srv.URL, "try")
	if err != nil {
		t.Fatalf("NewHTTPFetcher returned error: %v", err)
	}
	value, err := fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch returned error: %v", err)
	}
	if value != 41.25 {
		t.Fatalf("expected 41.25, got %v", value)
	}
}

func TestHTTPFetcherRejectsMissingCurrency(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"rates":{"EUR":0.91}}`))
	}))
	defer srv.Close()

	fetch, err := NewHTTPFetcher(srv.Client(), srv.URL, "TRY")
	if err != nil {
		t.Fatalf("NewHTTPFetcher returned error: %v", err)
	}
	if _, err := fetch(context.Background()); err == nil {
		t.Fatalf("expected error for missing currency")
	}
}

func TestFormatLocalUsesTurkishGrouping(t *testing.T) {
	if got := FormatLocal(12499.9); got != "12.499,90 ₺" {
		t.Fatalf("unexpected formatting %q", got)
	}
}
