package analytics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	domain "github.com/webmuhendisi/velopix/internal/domain"
)

type stubPublisher struct {
	mu    sync.Mutex
	views []domain.PageView
	err   error
}

func (s *stubPublisher) PublishPageView(_ context.Context, view domain.PageView) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.views = append(s.views, view)
	return "msg-1", nil
}

func (s *stubPublisher) published() []domain.PageView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.PageView(nil), s.views...)
}

func TestTrackPublishesStorefrontView(t *testing.T) {
	publisher := &stubPublisher{}
	tracker := NewTracker(TrackerDeps{Publisher: publisher, PublishDelay: -1})

	tracker.Track(context.Background(), domain.PageView{Path: "/urunler/akilli-priz", SessionID: "s-1"})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := tracker.Flush(ctx); err != nil {
		t.Fatalf("Flush returned error: %v", err)
	}
	views := publisher.published()
	if len(views) != 1 || views[0].Path != "/urunler/akilli-priz" {
		t.Fatalf("unexpected published views %+v", views)
	}
	if views[0].OccurredAt.IsZero() {
		t.Fatalf("expected occurred timestamp to be stamped")
	}
}

func TestTrackIgnoresBackOfficePaths(t *testing.T) {
	publisher := &stubPublisher{}
	tracker := NewTracker(TrackerDeps{Publisher: publisher, PublishDelay: -1})

	for _, path := range []string{"/admin", "/admin/urunler", "/admin/"} {
		tracker.Track(context.Background(), domain.PageView{Path: path})
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := tracker.Flush(ctx); err != nil {
		t.Fatalf("Flush returned error: %v", err)
	}
	if views := publisher.published(); len(views) != 0 {
		t.Fatalf("expected no published views, got %+v", views)
	}
}

func TestTrackSwallowsPublisherFailure(t *testing.T) {
	var logged []string
	publisher := &stubPublisher{err: errors.New("topic gone")}
	tracker := NewTracker(TrackerDeps{
		Publisher:    publisher,
		PublishDelay: -1,
		Logger: func(_ context.Context, event string, _ map[string]any) {
			logged = append(logged, event)
		},
	})

	tracker.Track(context.Background(), domain.PageView{Path: "/"})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := tracker.Flush(ctx); err != nil {
		t.Fatalf("Flush returned error: %v", err)
	}
	if len(logged) != 1 || logged[0] != "analytics.publish_failed" {
		t.Fatalf("expected swallowed failure to be logged, got %v", logged)
	}
}

func TestTrackWithoutPublisherIsNoop(t *testing.T) {
	tracker := NewTracker(TrackerDeps{})
	tracker.Track(context.Background(), domain.PageView{Path: "/"})
}

func TestTrackablePath(t *testing.T) {
	cases := map[string]bool{
		"/":                true,
		"/urunler":         true,
		"/administrasyon":  true,
		"/admin":           false,
		"/admin/dashboard": false,
		"":                 false,
		"urunler":          false,
	}
	for path, want := range cases {
		if got := TrackablePath(path); got != want {
			t.Fatalf("TrackablePath(%q) = %v, want %v", path, got, want)
		}
	}
}
