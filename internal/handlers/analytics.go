package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/webmuhendisi/velopix/internal/analytics"
	domain "github.com/webmuhendisi/velopix/internal/domain"
)

const maxAnalyticsBodySize = 4 * 1024

// AnalyticsHandlers accepts storefront page-view beacons. Publishing is
// fire-and-forget inside the tracker; this endpoint always acknowledges.
type AnalyticsHandlers struct {
	tracker    *analytics.Tracker
	sessionTTL time.Duration
	secure     bool
	clock      func() time.Time
}

// AnalyticsHandlersDeps bundles constructor inputs for analytics handlers.
type AnalyticsHandlersDeps struct {
	Tracker       *analytics.Tracker
	SessionTTL    time.Duration
	SecureCookies bool
	Clock         func() time.Time
}

// NewAnalyticsHandlers constructs analytics handlers.
func NewAnalyticsHandlers(deps AnalyticsHandlersDeps) *AnalyticsHandlers {
	ttl := deps.SessionTTL
	if ttl <= 0 {
		ttl = analytics.DefaultSessionTTL
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &AnalyticsHandlers{
		tracker:    deps.Tracker,
		sessionTTL: ttl,
		secure:     deps.SecureCookies,
		clock:      func() time.Time { return clock().UTC() },
	}
}

// Routes wires the page-view endpoint onto the provided router.
func (h *AnalyticsHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/analytics/pageviews", h.trackPageView)
}

func (h *AnalyticsHandlers) trackPageView(w http.ResponseWriter, r *http.Request) {
	var req pageViewRequest
	// A malformed beacon is not worth an error round trip; acknowledge and drop.
	if err := decodeJSONBody(r, maxAnalyticsBodySize, &req); err != nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	// Back-office navigation is acknowledged but never tracked, and the
	// session cookie is left alone.
	if !analytics.TrackablePath(req.Path) {
		writeJSONResponse(w, http.StatusAccepted, map[string]any{"ignored": true})
		return
	}

	session := h.resolveSession(w, r)

	userAgent := strings.TrimSpace(req.UserAgent)
	if userAgent == "" {
		userAgent = r.UserAgent()
	}

	if h.tracker != nil {
		h.tracker.Track(r.Context(), domain.PageView{
			Path:      req.Path,
			Referrer:  req.Referrer,
			UserAgent: userAgent,
			SessionID: session.ID,
		})
	}
	w.WriteHeader(http.StatusAccepted)
}

// resolveSession applies the sliding-window session cookie: the session id is
// kept while activity stays within the TTL, and replaced once it lapses.
func (h *AnalyticsHandlers) resolveSession(w http.ResponseWriter, r *http.Request) domain.AnalyticsSession {
	var prev domain.AnalyticsSession
	if cookie, err := r.Cookie(analytics.SessionCookieName); err == nil {
		prev = analytics.DecodeSessionCookie(cookie.Value)
	}

	session, _ := analytics.ResolveSession(prev, h.clock(), h.sessionTTL, nil)

	http.SetCookie(w, &http.Cookie{
		Name:     analytics.SessionCookieName,
		Value:    analytics.EncodeSessionCookie(session),
		Path:     "/",
		MaxAge:   int(h.sessionTTL / time.Second),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return session
}

type pageViewRequest struct {
	Path      string `json:"path"`
	Referrer  string `json:"referrer"`
	UserAgent string `json:"userAgent"`
}
