// Package analytics tracks storefront page views against anonymous visitor
// sessions. Session state travels in a cookie; nothing is stored server-side
// until a view is published to the analytics topic.
package analytics

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	domain "github.com/webmuhendisi/velopix/internal/domain"
)

const (
	// SessionCookieName carries the visitor session between requests.
	SessionCookieName = "vx_session"

	// DefaultSessionTTL is the sliding idle window after which a new
	// session starts.
	DefaultSessionTTL = 30 * time.Minute

	sessionRandomBytes = 4
)

// MintSessionID builds a fresh session id of the form
// "<unix-millis>-<random>". The random suffix comes from the supplied
// generator so tests can pin it.
func MintSessionID(now time.Time, random func() string) string {
	if random == nil {
		random = defaultRandomSuffix
	}
	return fmt.Sprintf("%d-%s", now.UnixMilli(), random())
}

func defaultRandomSuffix() string {
	buf := make([]byte, sessionRandomBytes)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing is unrecoverable for anything that matters;
		// for a session suffix a clock-derived value is acceptable.
		return strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	return hex.EncodeToString(buf)
}

// ResolveSession applies the sliding idle window. An empty or expired
// session is replaced; an active one keeps its id with LastSeen advanced.
// The second return reports whether a new session was started.
func ResolveSession(prev domain.AnalyticsSession, now time.Time, ttl time.Duration, random func() string) (domain.AnalyticsSession, bool) {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if prev.ID == "" || prev.LastSeen.IsZero() || now.Sub(prev.LastSeen) > ttl {
		return domain.AnalyticsSession{ID: MintSessionID(now, random), LastSeen: now}, true
	}
	return domain.AnalyticsSession{ID: prev.ID, LastSeen: now}, false
}

// EncodeSessionCookie serialises the session into a cookie value.
func EncodeSessionCookie(session domain.AnalyticsSession) string {
	return session.ID + "." + strconv.FormatInt(session.LastSeen.UnixMilli(), 10)
}

// DecodeSessionCookie parses a cookie value produced by EncodeSessionCookie.
// Malformed values yield a zero session, which ResolveSession treats as a
// fresh visitor.
func DecodeSessionCookie(value string) domain.AnalyticsSession {
	idx := strings.LastIndex(value, ".")
	if idx <= 0 || idx == len(value)-1 {
		return domain.AnalyticsSession{}
	}
	id := value[:idx]
	millis, err := strconv.ParseInt(value[idx+1:], 10, 64)
	if err != nil || millis <= 0 {
		return domain.AnalyticsSession{}
	}
	return domain.AnalyticsSession{ID: id, LastSeen: time.UnixMilli(millis).UTC()}
}
