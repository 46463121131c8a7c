package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/webmuhendisi/velopix/internal/domain"
	pfirestore "github.com/webmuhendisi/velopix/internal/platform/firestore"
	"github.com/webmuhendisi/velopix/internal/repositories"
)

const (
	cartCollection = "carts"
)

// CartRepository persists cart snapshots within Firestore. The document ID
// is the anonymous cart token; the whole snapshot is rewritten per mutation.
type CartRepository struct {
	base     *pfirestore.BaseRepository[cartDocument]
	provider *pfirestore.Provider
}

// NewCartRepository constructs a Firestore-backed cart repository.
func NewCartRepository(provider *pfirestore.Provider) (*CartRepository, error) {
	if provider == nil {
		return nil, errors.New("cart repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[cartDocument](provider, cartCollection, nil, nil)
	return &CartRepository{
		base:     base,
		provider: provider,
	}, nil
}

// GetCart loads the cart snapshot for the given cart token.
func (r *CartRepository) GetCart(ctx context.Context, cartID string) (domain.Cart, error) {
	if r == nil || r.base == nil {
		return domain.Cart{}, errors.New("cart repository not initialised")
	}
	id := strings.TrimSpace(cartID)
	if id == "" {
		return domain.Cart{}, errors.New("cart repository: cart id is required")
	}

	doc, err := r.base.Get(ctx, id)
	if err != nil {
		return domain.Cart{}, err
	}
	return cartFromDocument(doc.ID, doc.Data, doc.UpdateTime), nil
}

// UpsertCart writes the whole cart snapshot under the cart token.
func (r *CartRepository) UpsertCart(ctx context.Context, cart domain.Cart) (domain.Cart, error) {
	if r == nil || r.base == nil {
		return domain.Cart{}, errors.New("cart repository not initialised")
	}
	id := strings.TrimSpace(cart.ID)
	if id == "" {
		return domain.Cart{}, errors.New("cart repository: cart id is required")
	}

	now := time.Now().UTC()
	updatedAt := cart.UpdatedAt.UTC()
	if updatedAt.IsZero() {
		updatedAt = now
	}
	createdAt := cart.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = updatedAt
	}

	doc := cartDocument{
		Items:     cartItemsToDocuments(cart.Items),
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}

	result, err := r.base.Set(ctx, id, doc)
	if err != nil {
		return domain.Cart{}, err
	}
	saved := cartFromDocument(id, doc, result.UpdateTime)
	return saved, nil
}

// ReplaceItems swaps the item list atomically, leaving createdAt untouched.
func (r *CartRepository) ReplaceItems(ctx context.Context, cartID string, items []domain.CartItem, updatedAt time.Time) (domain.Cart, error) {
	if r == nil || r.base == nil {
		return domain.Cart{}, errors.New("cart repository not initialised")
	}
	id := strings.TrimSpace(cartID)
	if id == "" {
		return domain.Cart{}, errors.New("cart repository: cart id is required")
	}
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	updates := []firestore.Update{
		{Path: "items", Value: cartItemsToDocuments(items)},
		{Path: "updatedAt", Value: updatedAt.UTC()},
	}
	if _, err := r.base.Update(ctx, id, updates); err != nil {
		return domain.Cart{}, err
	}
	return r.GetCart(ctx, id)
}

// DeleteCart removes the snapshot entirely.
func (r *CartRepository) DeleteCart(ctx context.Context, cartID string) error {
	if r == nil || r.base == nil {
		return errors.New("cart repository not initialised")
	}
	id := strings.TrimSpace(cartID)
	if id == "" {
		return errors.New("cart repository: cart id is required")
	}
	_, err := r.base.Delete(ctx, id)
	return err
}

func cartFromDocument(id string, doc cartDocument, updateTime time.Time) domain.Cart {
	cart := domain.Cart{
		ID:        id,
		Items:     make([]domain.CartItem, 0, len(doc.Items)),
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
	if !updateTime.IsZero() {
		cart.UpdatedAt = updateTime
	}
	for _, item := range doc.Items {
		price, err := domain.ParsePrice(item.UnitPrice)
		if err != nil {
			// Legacy snapshots may carry string-encoded or corrupt prices.
			// The line is kept so quantities survive; totals treat it as zero.
			price = 0
		}
		cart.Items = append(cart.Items, domain.CartItem{
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
	return cart
}

func cartItemsToDocuments(items []domain.CartItem) []cartItemDocument {
	docs := make([]cartItemDocument, 0, len(items))
	for _, item := range items {
		docs = append(docs, cartItemDocument{
			ID:          item.ID,
			Kind:        string(item.Kind),
			ReferenceID: item.ReferenceID,
			Name:        item.Name,
			UnitPrice:   item.UnitPrice,
			Quantity:    item.Quantity,
			ImageURL:    item.ImageURL,
			AddedAt:     item.AddedAt.UTC(),
		})
	}
	return docs
}

type cartDocument struct {
	Items     []cartItemDocument `firestore:"items"`
	CreatedAt time.Time          `firestore:"createdAt"`
	UpdatedAt time.Time          `firestore:"updatedAt"`
}

type cartItemDocument struct {
	ID          string    `firestore:"id"`
	Kind        string    `firestore:"kind"`
	ReferenceID string    `firestore:"referenceId"`
	Name        string    `firestore:"name"`
	UnitPrice   any       `firestore:"unitPrice"`
	Quantity    int       `firestore:"quantity"`
	ImageURL    string    `firestore:"imageUrl,omitempty"`
	AddedAt     time.Time `firestore:"addedAt"`
}

var _ repositories.CartRepository = (*CartRepository)(nil)
