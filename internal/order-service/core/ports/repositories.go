package ports

import (
	"context"

	"github.com/jcmexdev/food-orders/internal/order-service/core/domain"
)

// OrderRepository is the persistence backend behind the order store.
// Get, Update and Delete return (nil, nil) when the order does not exist.
type OrderRepository interface {
	Insert(ctx context.Context, order *domain.Order) error
	Get(ctx context.Context, id string) (*domain.Order, error)
	// Find returns orders matching f, newest first, inside the page window.
	Find(ctx context.Context, f domain.OrderFilter, page domain.PageRequest) ([]domain.Order, error)
	Count(ctx context.Context, f domain.OrderFilter) (int64, error)
	Update(ctx context.Context, id string, u domain.OrderUpdate) (*domain.Order, error)
	Delete(ctx context.Context, id string) (*domain.Order, error)
	// SumAmount aggregates amount and count over the orders matching f.
	SumAmount(ctx context.Context, f domain.OrderFilter) (domain.Revenue, error)
}

// ItemRepository is the persistence backend behind the order item store.
type ItemRepository interface {
	// InsertMany stores all items in one call; nothing is stored on error.
	InsertMany(ctx context.Context, items []domain.OrderItem) ([]domain.OrderItem, error)
	Get(ctx context.Context, id string) (*domain.OrderItem, error)
	GetMany(ctx context.Context, ids []string) ([]domain.OrderItem, error)
	// Find returns items newest first. A zero page means no window.
	Find(ctx context.Context, f domain.ItemFilter, page domain.PageRequest) ([]domain.OrderItem, error)
	Count(ctx context.Context, f domain.ItemFilter) (int64, error)
	Update(ctx context.Context, id string, u domain.ItemUpdate) (*domain.OrderItem, error)
	UpdateMany(ctx context.Context, f domain.ItemFilter, u domain.ItemUpdate) (int64, error)
	Delete(ctx context.Context, id string) (*domain.OrderItem, error)
	DeleteMany(ctx context.Context, f domain.ItemFilter) (int64, error)
	Totals(ctx context.Context, f domain.ItemFilter) (domain.ItemTotals, error)
}

// ItemCascade is what the order store needs from the item side: removing an
// order's items on delete and resolving item references on reads.
type ItemCascade interface {
	DeleteByOrderID(ctx context.Context, orderID string) (int64, error)
	FindByIDs(ctx context.Context, ids []string) ([]domain.OrderItem, error)
}
