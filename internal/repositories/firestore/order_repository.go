package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/webmuhendisi/velopix/internal/domain"
	pfirestore "github.com/webmuhendisi/velopix/internal/platform/firestore"
	"github.com/webmuhendisi/velopix/internal/repositories"
)

const ordersCollection = "orders"

// OrderRepository persists checkout order records.
type OrderRepository struct {
	base *pfirestore.BaseRepository[orderDocument]
}

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository: firestore provider is required")
	}
	base := pfirestore.NewBaseRepository[orderDocument](provider, ordersCollection, nil, nil)
	return &OrderRepository{base: base}, nil
}

// Insert stores a new order record.
func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	if r == nil || r.base == nil {
		return errors.New("order repository not initialised")
	}
	id := strings.TrimSpace(order.ID)
	if id == "" {
		return errors.New("order repository: order id is required")
	}
	docRef, err := r.base.DocumentRef(ctx, id)
	if err != nil {
		return err
	}
	doc := orderToDocument(order)
	if _, err := docRef.Create(ctx, doc); err != nil {
		return pfirestore.WrapError("orders.insert", err)
	}
	return nil
}

// FindByID fetches a single order.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if r == nil || r.base == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	id := strings.TrimSpace(orderID)
	if id == "" {
		return domain.Order{}, errors.New("order repository: order id is required")
	}
	doc, err := r.base.Get(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	return orderFromDocument(doc.ID, doc.Data), nil
}

// UpdateStatus transitions the order to a new lifecycle state.
func (r *OrderRepository) UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus, updatedAt time.Time) (domain.Order, error) {
	if r == nil || r.base == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	id := strings.TrimSpace(orderID)
	if id == "" {
		return domain.Order{}, errors.New("order repository: order id is required")
	}
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	updates := []firestore.Update{
		{Path: "status", Value: string(status)},
		{Path: "updatedAt", Value: updatedAt.UTC()},
	}
	if _, err := r.base.Update(ctx, id, updates); err != nil {
		return domain.Order{}, err
	}
	return r.FindByID(ctx, id)
}

// List returns orders newest first with optional status filtering.
func (r *OrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.Order]{}, errors.New("order repository not initialised")
	}

	limit := filter.Pagination.PageSize
	if limit < 0 {
		limit = 0
	}
	fetchLimit := limit
	if limit > 0 {
		fetchLimit = limit + 1
	}

	var startAfter []any
	if token := strings.TrimSpace(filter.Pagination.PageToken); token != "" {
		tokenTime, tokenID, err := decodeListToken(token)
		if err != nil {
			return domain.CursorPage[domain.Order]{}, fmt.Errorf("order repository: invalid page token: %w", err)
		}
		startAfter = []any{tokenTime, tokenID}
	}

	statuses := make([]string, 0, len(filter.Status))
	for _, status := range filter.Status {
		trimmed := strings.TrimSpace(string(status))
		if trimmed != "" {
			statuses = append(statuses, trimmed)
		}
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if len(statuses) == 1 {
			q = q.Where("status", "==", statuses[0])
		} else if len(statuses) > 1 {
			q = q.Where("status", "in", statuses)
		}
		q = q.OrderBy("createdAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
		if len(startAfter) == 2 {
			q = q.StartAfter(startAfter...)
		}
		if fetchLimit > 0 {
			q = q.Limit(fetchLimit)
		}
		return q
	})
	if err != nil {
		return domain.CursorPage[domain.Order]{}, err
	}

	nextToken := ""
	if limit > 0 && len(docs) == fetchLimit {
		last := docs[len(docs)-1]
		tokenTime := last.Data.CreatedAt
		if tokenTime.IsZero() {
			tokenTime = last.CreateTime
		}
		nextToken = encodeListToken(tokenTime, last.ID)
		docs = docs[:len(docs)-1]
	}

	items := make([]domain.Order, 0, len(docs))
	for _, doc := range docs {
		items = append(items, orderFromDocument(doc.ID, doc.Data))
	}
	return domain.CursorPage[domain.Order]{Items: items, NextPageToken: nextToken}, nil
}

func orderFromDocument(id string, doc orderDocument) domain.Order {
	order := domain.Order{
		ID:         id,
		CartID:     doc.CartID,
		Items:      make([]domain.CartItem, 0, len(doc.Items)),
		TotalLocal: doc.TotalLocal,
		Currency:   doc.Currency,
		Status:     domain.OrderStatus(doc.Status),
		SessionID:  doc.SessionID,
		SessionURL: doc.SessionURL,
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  doc.UpdatedAt,
	}
	for _, item := range doc.Items {
		price, err := domain.ParsePrice(item.UnitPrice)
		if err != nil {
			price = 0
		}
		order.Items = append(order.Items, domain.CartItem{
			ID:          item.ID,
			Kind:        domain.CartItemKind(item.Kind),
			ReferenceID: item.ReferenceID,
			Name:        item.Name,
			UnitPrice:   price,
			Quantity:    item.Quantity,
			ImageURL:    item.ImageURL,
			AddedAt:     item.AddedAt,
		})
	}
	return order
}

func orderToDocument(order domain.Order) orderDocument {
	now := time.Now().UTC()
	createdAt := order.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = now
	}
	updatedAt := order.UpdatedAt.UTC()
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}
	return orderDocument{
		CartID:     strings.TrimSpace(order.CartID),
		Items:      cartItemsToDocuments(order.Items),
		TotalLocal: order.TotalLocal,
		Currency:   strings.ToUpper(strings.TrimSpace(order.Currency)),
		Status:     string(order.Status),
		SessionID:  strings.TrimSpace(order.SessionID),
		SessionURL: strings.TrimSpace(order.SessionURL),
		CreatedAt:  createdAt,
		UpdatedAt:  updatedAt,
	}
}

type orderDocument struct {
	CartID     string             `firestore:"cartId"`
	Items      []cartItemDocument `firestore:"items"`
	TotalLocal float64            `firestore:"totalLocal"`
	Currency   string             `firestore:"currency"`
	Status     string             `firestore:"status"`
	SessionID  string             `firestore:"sessionId,omitempty"`
	SessionURL string             `firestore:"sessionUrl,omitempty"`
	CreatedAt  time.Time          `firestore:"createdAt"`
	UpdatedAt  time.Time          `firestore:"updatedAt"`
}

var _ repositories.OrderRepository = (*OrderRepository)(nil)
