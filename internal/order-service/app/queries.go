package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jcmexdev/food-orders/internal/coordinator/sagalog"
	"github.com/jcmexdev/food-orders/internal/order-service/core/domain"
	"github.com/jcmexdev/food-orders/internal/order-service/core/ports"
)

// OrderQuery is the admin listing request. State, when set, wins over the
// Payment and Cancelled fields of Filter.
type OrderQuery struct {
	Filter domain.OrderFilter
	State  domain.State
	Page   domain.PageRequest
}

// GetOrder returns one order with its items resolved.
func (s *Service) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}
	items, err := s.items.FindByIDs(ctx, order.ItemIDs)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

func (s *Service) UserOrders(ctx context.Context, userID string, page domain.PageRequest) (*domain.OrderPage, error) {
	return s.orders.FindByUserID(ctx, userID, page)
}

func (s *Service) UserHistory(ctx context.Context, userID string, page domain.PageRequest) (*domain.UserOrderHistory, error) {
	return s.orders.GetUserOrderHistory(ctx, userID, page)
}

func (s *Service) ListOrders(ctx context.Context, q OrderQuery) (*domain.OrderPage, error) {
	f := q.Filter
	if q.State != "" {
		f = f.Merge(domain.StateFilter(q.State))
	}
	return s.orders.FindAll(ctx, f, q.Page)
}

func (s *Service) UpdateStatus(ctx context.Context, orderID, status string) (*domain.Order, error) {
	order, err := s.orders.UpdateStatus(ctx, orderID, strings.TrimSpace(status))
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}
	s.publish(ctx, ports.EventOrderStatusUpdated, order)
	return order, nil
}

func (s *Service) CancelOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := s.orders.CancelOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}
	s.publish(ctx, ports.EventOrderCancelled, order)
	return order, nil
}

func (s *Service) RestaurantItems(ctx context.Context, restaurantID string) ([]domain.OrderItem, error) {
	return s.items.FindByRestaurantID(ctx, restaurantID)
}

func (s *Service) RestaurantRevenue(ctx context.Context, restaurantID string, from, to *time.Time) (domain.RestaurantRevenue, error) {
	return s.items.GetRevenueByRestaurant(ctx, restaurantID, from, to)
}

func (s *Service) ListItems(ctx context.Context, f domain.ItemFilter, page domain.PageRequest) (*domain.ItemPage, error) {
	return s.items.FindAll(ctx, f, page)
}

// UpdateItemsStatus sets the status of every item of an order.
func (s *Service) UpdateItemsStatus(ctx context.Context, orderID, status string) (int64, error) {
	status = strings.TrimSpace(status)
	n, err := s.items.UpdateByOrderID(ctx, orderID, domain.ItemUpdate{Status: &status})
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, fmt.Errorf("order %s: %w", orderID, domain.ErrItemNotFound)
	}
	return n, nil
}

func (s *Service) ItemQuantity(ctx context.Context, itemID string) (int64, error) {
	return s.items.GetTotalQuantityByItemID(ctx, itemID)
}

func (s *Service) Statistics(ctx context.Context) (*domain.Statistics, error) {
	return s.orders.GetStatistics(ctx)
}

// Revenue totals paid, non-cancelled orders, bounded by order date when
// from or to are given.
func (s *Service) Revenue(ctx context.Context, from, to *time.Time) (domain.Revenue, error) {
	if from != nil && to != nil {
		return s.orders.GetRevenueByDateRange(ctx, *from, *to)
	}
	return s.orders.GetTotalRevenue(ctx, domain.OrderFilter{From: from, To: to})
}

// PlacementTrail returns the saga log of one placement.
func (s *Service) PlacementTrail(ctx context.Context, sagaID string) (*sagalog.Trail, error) {
	if s.trails == nil {
		return nil, ErrSagaLogUnavailable
	}
	history, err := s.trails.History(ctx, sagaID)
	if err != nil {
		return nil, err
	}
	return sagalog.NewTrail(history), nil
}
