package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jcmexdev/food-orders/internal/order-service/core/domain"
	"github.com/jcmexdev/food-orders/internal/order-service/core/ports"
)

// OrderItemStore owns order line items. It validates every write before it
// reaches the repository.
type OrderItemStore struct {
	repo ports.ItemRepository
	now  func() time.Time
}

func NewOrderItemStore(repo ports.ItemRepository) *OrderItemStore {
	return &OrderItemStore{repo: repo, now: time.Now}
}

func (s *OrderItemStore) Create(ctx context.Context, item domain.OrderItem) (*domain.OrderItem, error) {
	created, err := s.CreateMany(ctx, []domain.OrderItem{item})
	if err != nil {
		return nil, err
	}
	return &created[0], nil
}

// CreateMany validates the whole batch first and then inserts it in one call.
func (s *OrderItemStore) CreateMany(ctx context.Context, items []domain.OrderItem) ([]domain.OrderItem, error) {
	if len(items) == 0 {
		return nil, domain.ErrEmptyOrder
	}
	batch := make([]domain.OrderItem, len(items))
	now := s.now().UTC()
	for i, it := range items {
		if err := it.Validate(); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		if it.CreatedAt.IsZero() {
			it.CreatedAt = now
		}
		batch[i] = it
	}
	created, err := s.repo.InsertMany(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("creating order items: %w", err)
	}
	return created, nil
}

func (s *OrderItemStore) FindByID(ctx context.Context, id string) (*domain.OrderItem, error) {
	item, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("finding order item: %w", err)
	}
	return item, nil
}

// FindByIDs resolves item references. Unknown ids are skipped.
func (s *OrderItemStore) FindByIDs(ctx context.Context, ids []string) ([]domain.OrderItem, error) {
	if len(ids) == 0 {
		return []domain.OrderItem{}, nil
	}
	items, err := s.repo.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolving order items: %w", err)
	}
	return items, nil
}

func (s *OrderItemStore) FindByOrderID(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	items, err := s.repo.Find(ctx, domain.ItemFilter{OrderID: orderID}, domain.PageRequest{})
	if err != nil {
		return nil, fmt.Errorf("finding order items by order ID: %w", err)
	}
	return items, nil
}

func (s *OrderItemStore) FindByRestaurantID(ctx context.Context, restaurantID string) ([]domain.OrderItem, error) {
	items, err := s.repo.Find(ctx, domain.ItemFilter{RestaurantID: restaurantID}, domain.PageRequest{})
	if err != nil {
		return nil, fmt.Errorf("finding order items by restaurant ID: %w", err)
	}
	return items, nil
}

func (s *OrderItemStore) FindAll(ctx context.Context, f domain.ItemFilter, page domain.PageRequest) (*domain.ItemPage, error) {
	page = page.Normalize()
	items, err := s.repo.Find(ctx, f, page)
	if err != nil {
		return nil, fmt.Errorf("finding order items: %w", err)
	}
	total, err := s.repo.Count(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("counting order items: %w", err)
	}
	if items == nil {
		items = []domain.OrderItem{}
	}
	return &domain.ItemPage{
		Items: items,
		Total: total,
		Page:  page.Page,
		Pages: domain.Pages(total, page.Limit),
	}, nil
}

func (s *OrderItemStore) UpdateByID(ctx context.Context, id string, u domain.ItemUpdate) (*domain.OrderItem, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}
	item, err := s.repo.Update(ctx, id, u)
	if err != nil {
		return nil, fmt.Errorf("updating order item: %w", err)
	}
	return item, nil
}

// UpdateByOrderID applies u to every item of the order and returns how many
// items matched.
func (s *OrderItemStore) UpdateByOrderID(ctx context.Context, orderID string, u domain.ItemUpdate) (int64, error) {
	if orderID == "" {
		return 0, fmt.Errorf("%w: orderId is required", domain.ErrValidation)
	}
	if err := u.Validate(); err != nil {
		return 0, err
	}
	n, err := s.repo.UpdateMany(ctx, domain.ItemFilter{OrderID: orderID}, u)
	if err != nil {
		return 0, fmt.Errorf("updating order items: %w", err)
	}
	return n, nil
}

func (s *OrderItemStore) DeleteByID(ctx context.Context, id string) (*domain.OrderItem, error) {
	item, err := s.repo.Delete(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("deleting order item: %w", err)
	}
	return item, nil
}

func (s *OrderItemStore) DeleteByOrderID(ctx context.Context, orderID string) (int64, error) {
	if orderID == "" {
		return 0, fmt.Errorf("%w: orderId is required", domain.ErrValidation)
	}
	n, err := s.repo.DeleteMany(ctx, domain.ItemFilter{OrderID: orderID})
	if err != nil {
		return 0, fmt.Errorf("deleting order items by order ID: %w", err)
	}
	return n, nil
}

// GetTotalQuantityByItemID sums the ordered quantity of one catalog item.
func (s *OrderItemStore) GetTotalQuantityByItemID(ctx context.Context, itemID string) (int64, error) {
	if itemID == "" {
		return 0, fmt.Errorf("%w: itemId is required", domain.ErrValidation)
	}
	totals, err := s.repo.Totals(ctx, domain.ItemFilter{ItemID: itemID})
	if err != nil {
		return 0, fmt.Errorf("calculating total quantity: %w", err)
	}
	return totals.Quantity, nil
}

// GetRevenueByRestaurant sums price x quantity and quantity for one
// restaurant, optionally bounded by item creation time.
func (s *OrderItemStore) GetRevenueByRestaurant(ctx context.Context, restaurantID string, from, to *time.Time) (domain.RestaurantRevenue, error) {
	if restaurantID == "" {
		return domain.RestaurantRevenue{}, fmt.Errorf("%w: restaurantId is required", domain.ErrValidation)
	}
	if err := checkRange(from, to); err != nil {
		return domain.RestaurantRevenue{}, err
	}
	totals, err := s.repo.Totals(ctx, domain.ItemFilter{RestaurantID: restaurantID, From: from, To: to})
	if err != nil {
		return domain.RestaurantRevenue{}, fmt.Errorf("calculating revenue: %w", err)
	}
	return domain.RestaurantRevenue{TotalRevenue: totals.Revenue, TotalItems: totals.Quantity}, nil
}

func checkRange(from, to *time.Time) error {
	if from != nil && to != nil && from.After(*to) {
		return fmt.Errorf("%w: start date is after end date", domain.ErrValidation)
	}
	return nil
}
