package analytics

import (
	"context"
	"strings"
	"sync"
	"time"

	domain "github.com/webmuhendisi/velopix/internal/domain"
)

const (
	defaultPublishDelay   = 100 * time.Millisecond
	defaultPublishTimeout = 5 * time.Second
)

// PageViewPublisher delivers page views to the analytics topic.
type PageViewPublisher interface {
	PublishPageView(ctx context.Context, view domain.PageView) (string, error)
}

// TrackerDeps bundles constructor inputs for the tracker.
type TrackerDeps struct {
	Publisher      PageViewPublisher
	PublishDelay   time.Duration
	PublishTimeout time.Duration
	Clock          func() time.Time
	Logger         func(context.Context, string, map[string]any)
}

// Tracker accepts page views and hands them to the analytics topic without
// ever surfacing a failure to the storefront.
type Tracker struct {
	publisher      PageViewPublisher
	publishDelay   time.Duration
	publishTimeout time.Duration
	clock          func() time.Time
	logger         func(context.Context, string, map[string]any)
	wg             sync.WaitGroup
}

// NewTracker constructs the tracker with the supplied dependencies. A nil
// publisher is allowed and turns tracking into a no-op, so the storefront
// keeps working when the analytics topic is not configured.
func NewTracker(deps TrackerDeps) *Tracker {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	delay := deps.PublishDelay
	if delay < 0 {
		delay = 0
	} else if delay == 0 {
		delay = defaultPublishDelay
	}
	timeout := deps.PublishTimeout
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}
	return &Tracker{
		publisher:      deps.Publisher,
		publishDelay:   delay,
		publishTimeout: timeout,
		clock:          func() time.Time { return clock().UTC() },
		logger:         logger,
	}
}

// Track records a storefront navigation. Back-office paths are ignored and
// delivery happens asynchronously; the caller never observes an error.
func (t *Tracker) Track(ctx context.Context, view domain.PageView) {
	if t == nil || t.publisher == nil {
		return
	}
	if !TrackablePath(view.Path) {
		return
	}
	if view.OccurredAt.IsZero() {
		view.OccurredAt = t.clock()
	}

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		if t.publishDelay > 0 {
			time.Sleep(t.publishDelay)
		}
		publishCtx, cancel := context.WithTimeout(context.Background(), t.publishTimeout)
		defer cancel()
		if _, err := t.publisher.PublishPageView(publishCtx, view); err != nil {
			t.logger(publishCtx, "analytics.publish_failed", map[string]any{
				"path":  view.Path,
				"error": err.Error(),
			})
		}
	}()
}

// Flush waits for in-flight publishes, bounded by ctx.
func (t *Tracker) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrackablePath reports whether a path belongs to the public storefront.
// Back-office navigation never reaches the analytics topic.
func TrackablePath(path string) bool {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" || !strings.HasPrefix(trimmed, "/") {
		return false
	}
	return trimmed != "/admin" && !strings.HasPrefix(trimmed, "/admin/")
}
