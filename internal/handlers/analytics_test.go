package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/webmuhendisi/velopix/internal/analytics"
	domain "github.com/webmuhendisi/velopix/internal/domain"
)

type capturingPublisher struct {
	mu    sync.Mutex
	views []domain.PageView
}

func (p *capturingPublisher) PublishPageView(_ context.Context, view domain.PageView) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.views = append(p.views, view)
	return "msg-1", nil
}

func (p *capturingPublisher) published() []domain.PageView {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.PageView(nil), p.views...)
}

func newAnalyticsTestSetup(now time.Time) (*capturingPublisher, *analytics.Tracker, chi.Router) {
	publisher := &capturingPublisher{}
	tracker := analytics.NewTracker(analytics.TrackerDeps{
		Publisher:    publisher,
		PublishDelay: -1,
		Clock:        func() time.Time { return now },
	})
	handler := NewAnalyticsHandlers(AnalyticsHandlersDeps{
		Tracker:    tracker,
		SessionTTL: 30 * time.Minute,
		Clock:      func() time.Time { return now },
	})
	router := chi.NewRouter()
	handler.Routes(router)
	return publisher, tracker, router
}

func sessionCookieFrom(rr *httptest.ResponseRecorder) *http.Cookie {
	res := rr.Result()
	defer res.Body.Close()
	for _, cookie := range res.Cookies() {
		if cookie.Name == analytics.SessionCookieName {
			return cookie
		}
	}
	return nil
}

func TestTrackPageViewPublishesWithSession(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	publisher, tracker, router := newAnalyticsTestSetup(now)

	body := strings.NewReader(`{"path":"/urunler/uvc-soundbar","referrer":"https://www.google.com"}`)
	req := httptest.NewRequest(http.MethodPost, "/analytics/pageviews", body)
	req.Header.Set("User-Agent", "storefront-test")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d", rr.Code)
	}

	cookie := sessionCookieFrom(rr)
	if cookie == nil {
		t.Fatalf("expected %s cookie to be set", analytics.SessionCookieName)
	}
	if !cookie.HttpOnly {
		t.Fatalf("expected HttpOnly session cookie")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := tracker.Flush(ctx); err != nil {
		t.Fatalf("flush failed: %v", err)
	}

	views := publisher.published()
	if len(views) != 1 {
		t.Fatalf("expected 1 published view, got %d", len(views))
	}
	view := views[0]
	if view.Path != "/urunler/uvc-soundbar" {
		t.Fatalf("unexpected path %q", view.Path)
	}
	if view.UserAgent != "storefront-test" {
		t.Fatalf("unexpected user agent %q", view.UserAgent)
	}
	if view.SessionID == "" {
		t.Fatalf("expected a session id on the view")
	}
}

func TestTrackPageViewKeepsActiveSession(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	publisher, tracker, router := newAnalyticsTestSetup(now)

	prev := domain.AnalyticsSession{ID: "1741944000000-abcd1234", LastSeen: now.Add(-10 * time.Minute)}
	req := httptest.NewRequest(http.MethodPost, "/analytics/pageviews", strings.NewReader(`{"path":"/sepet"}`))
	req.AddCookie(&http.Cookie{Name: analytics.SessionCookieName, Value: analytics.EncodeSessionCookie(prev)})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d", rr.Code)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := tracker.Flush(ctx); err != nil {
		t.Fatalf("flush failed: %v", err)
	}

	views := publisher.published()
	if len(views) != 1 || views[0].SessionID != prev.ID {
		t.Fatalf("expected view under existing session %q, got %#v", prev.ID, views)
	}

	cookie := sessionCookieFrom(rr)
	if cookie == nil {
		t.Fatalf("expected refreshed session cookie")
	}
	refreshed := analytics.DecodeSessionCookie(cookie.Value)
	if refreshed.ID != prev.ID {
		t.Fatalf("session id must survive within the idle window")
	}
	if !refreshed.LastSeen.Equal(now) {
		t.Fatalf("expected LastSeen advanced to %v, got %v", now, refreshed.LastSeen)
	}
}

func TestTrackPageViewRotatesExpiredSession(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	_, tracker, router := newAnalyticsTestSetup(now)

	prev := domain.AnalyticsSession{ID: "1741900000000-old", LastSeen: now.Add(-2 * time.Hour)}
	req := httptest.NewRequest(http.MethodPost, "/analytics/pageviews", strings.NewReader(`{"path":"/"}`))
	req.AddCookie(&http.Cookie{Name: analytics.SessionCookieName, Value: analytics.EncodeSessionCookie(prev)})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d", rr.Code)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = tracker.Flush(ctx)

	cookie := sessionCookieFrom(rr)
	if cookie == nil {
		t.Fatalf("expected session cookie")
	}
	rotated := analytics.DecodeSessionCookie(cookie.Value)
	if rotated.ID == prev.ID {
		t.Fatalf("expected a fresh session after the idle window lapsed")
	}
}

func TestTrackPageViewAcknowledgesMalformedBody(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	publisher, tracker, router := newAnalyticsTestSetup(now)

	req := httptest.NewRequest(http.MethodPost, "/analytics/pageviews", strings.NewReader(`{not json`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusAccepted {
		t.Fatalf("beacons must never error, got %d", rr.Code)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = tracker.Flush(ctx)
	if len(publisher.published()) != 0 {
		t.Fatalf("malformed beacons must not publish")
	}
}

func TestTrackPageViewSkipsAdminPaths(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	publisher, tracker, router := newAnalyticsTestSetup(now)

	req := httptest.NewRequest(http.MethodPost, "/analytics/pageviews", strings.NewReader(`{"path":"/admin/orders"}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"ignored":true`) {
		t.Fatalf("expected ignored acknowledgement, got %s", rr.Body.String())
	}
	if cookie := sessionCookieFrom(rr); cookie != nil {
		t.Fatalf("back-office beacons must not mint a session cookie")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = tracker.Flush(ctx)
	if len(publisher.published()) != 0 {
		t.Fatalf("back-office paths must not be tracked")
	}
}

func TestTrackPageViewPrefersBodyUserAgent(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	publisher, tracker, router := newAnalyticsTestSetup(now)

	body := strings.NewReader(`{"path":"/blog","userAgent":"storefront-shell/2.1"}`)
	req := httptest.NewRequest(http.MethodPost, "/analytics/pageviews", body)
	req.Header.Set("User-Agent", "header-agent")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d", rr.Code)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := tracker.Flush(ctx); err != nil {
		t.Fatalf("flush failed: %v", err)
	}

	views := publisher.published()
	if len(views) != 1 {
		t.Fatalf("expected 1 published view, got %d", len(views))
	}
	if views[0].UserAgent != "storefront-shell/2.1" {
		t.Fatalf("expected the beacon's own user agent, got %q", views[0].UserAgent)
	}
}
