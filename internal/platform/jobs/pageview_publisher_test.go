package jobs

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	domain "github.com/webmuhendisi/velopix/internal/domain"
)

func TestPubSubPageViewPublisherPublishesMessage(t *testing.T) {
	ctx := context.Background()
	srv := pstest.NewServer()
	defer srv.Close()

	client, err := pubsub.NewClient(ctx, "test-project",
		option.WithEndpoint(srv.Addr),
		option.WithoutAuthentication(),
		option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	)
	if err != nil {
		t.Fatalf("pubsub.NewClient: %v", err)
	}
	defer func() {
		_ = client.Close()
	}()

	topic, err := client.CreateTopic(ctx, "page-views")
	if err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}

	publisher, err := NewPubSubPageViewPublisher(topic)
	if err != nil {
		t.Fatalf("NewPubSubPageViewPublisher: %v", err)
	}

	view := domain.PageView{
		Path:       "/urunler/akilli-priz",
		Referrer:   "https://www.google.com/",
		UserAgent:  "Mozilla/5.0",
		SessionID:  "1741944600000-a1b2c3d4",
		OccurredAt: time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC),
	}

	if _, err := publisher.PublishPageView(ctx, view); err != nil {
		t.Fatalf("PublishPageView: %v", err)
	}

	messages := srv.Messages()
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}

	var payload pageViewMessage
	if err := json.Unmarshal(messages[0].Data, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Path != view.Path || payload.SessionID != view.SessionID {
		t.Fatalf("unexpected payload %#v", payload)
	}
	if attr := messages[0].Attributes["sessionId"]; attr != view.SessionID {
		t.Fatalf("expected session attribute, got %q", attr)
	}
}

func TestNewPubSubPageViewPublisherRequiresTopic(t *testing.T) {
	if _, err := NewPubSubPageViewPublisher(nil); err == nil {
		t.Fatalf("expected error for nil topic")
	}
}
