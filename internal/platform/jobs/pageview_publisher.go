// Package jobs carries asynchronous fan-out to Pub/Sub topics.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/pubsub"

	domain "github.com/webmuhendisi/velopix/internal/domain"
)

// pageViewMessage is the wire payload delivered to the analytics pipeline.
type pageViewMessage struct {
	Path       string    `json:"path"`
	Referrer   string    `json:"referrer,omitempty"`
	UserAgent  string    `json:"userAgent,omitempty"`
	SessionID  string    `json:"sessionId"`
	OccurredAt time.Time `json:"occurredAt"`
}

// PubSubPageViewPublisher publishes storefront page views to a Pub/Sub topic.
type PubSubPageViewPublisher struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

// NewPubSubPageViewPublisher constructs a Pub/Sub backed page view publisher.
func NewPubSubPageViewPublisher(topic *pubsub.Topic) (*PubSubPageViewPublisher, error) {
	if topic == nil {
		return nil, errors.New("pubsub page view publisher: topic is required")
	}
	return &PubSubPageViewPublisher{
		topic:   topic,
		marshal: json.Marshal,
	}, nil
}

// PublishPageView enqueues a page view message on the configured topic.
func (p *PubSubPageViewPublisher) PublishPageView(ctx context.Context, view domain.PageView) (string, error) {
	if p == nil || p.topic == nil {
		return "", errors.New("pubsub page view publisher: not initialised")
	}

	data, err := p.marshal(pageViewMessage{
		Path:       view.Path,
		Referrer:   view.Referrer,
		UserAgent:  view.UserAgent,
		SessionID:  view.SessionID,
		OccurredAt: view.OccurredAt,
	})
	if err != nil {
		return "", fmt.Errorf("marshal page view: %w", err)
	}

	attrs := make(map[string]string)
	setAttr(attrs, "path", view.Path)
	setAttr(attrs, "sessionId", view.SessionID)

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})

	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish page view: %w", err)
	}
	return id, nil
}

func setAttr(attrs map[string]string, key string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}
