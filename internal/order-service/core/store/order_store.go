// Package store implements the order and order item stores on top of a
// pluggable repository backend.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jcmexdev/food-orders/internal/order-service/core/domain"
	"github.com/jcmexdev/food-orders/internal/order-service/core/ports"
)

// OrderStore owns orders. Item cleanup and item resolution go through the
// injected ItemCascade so the two stores stay independent.
type OrderStore struct {
	repo  ports.OrderRepository
	items ports.ItemCascade
	now   func() time.Time
}

func NewOrderStore(repo ports.OrderRepository, items ports.ItemCascade) *OrderStore {
	return &OrderStore{repo: repo, items: items, now: time.Now}
}

// Create persists a new unpaid order and returns it with its assigned id.
func (s *OrderStore) Create(ctx context.Context, order domain.Order) (*domain.Order, error) {
	if order.Status == "" {
		order.Status = domain.DefaultStatus
	}
	if order.Date.IsZero() {
		order.Date = s.now().UTC()
	}
	if order.ItemIDs == nil {
		order.ItemIDs = []string{}
	}
	order.Items = nil
	if err := order.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Insert(ctx, &order); err != nil {
		return nil, fmt.Errorf("creating order: %w", err)
	}
	return &order, nil
}

func (s *OrderStore) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("finding order: %w", err)
	}
	return order, nil
}

// FindByUserID pages through a user's orders with their items resolved.
func (s *OrderStore) FindByUserID(ctx context.Context, userID string, page domain.PageRequest) (*domain.OrderPage, error) {
	p, err := s.FindAll(ctx, domain.OrderFilter{UserID: userID}, page)
	if err != nil {
		return nil, fmt.Errorf("finding orders by user ID: %w", err)
	}
	for i := range p.Orders {
		items, err := s.items.FindByIDs(ctx, p.Orders[i].ItemIDs)
		if err != nil {
			return nil, fmt.Errorf("finding orders by user ID: %w", err)
		}
		p.Orders[i].Items = items
	}
	return p, nil
}

func (s *OrderStore) FindAll(ctx context.Context, f domain.OrderFilter, page domain.PageRequest) (*domain.OrderPage, error) {
	if err := checkRange(f.From, f.To); err != nil {
		return nil, err
	}
	page = page.Normalize()
	orders, err := s.repo.Find(ctx, f, page)
	if err != nil {
		return nil, fmt.Errorf("finding orders: %w", err)
	}
	total, err := s.repo.Count(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("counting orders: %w", err)
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return &domain.OrderPage{
		Orders: orders,
		Total:  total,
		Page:   page.Page,
		Pages:  domain.Pages(total, page.Limit),
	}, nil
}

func (s *OrderStore) FindByStatus(ctx context.Context, status string, page domain.PageRequest) (*domain.OrderPage, error) {
	return s.FindAll(ctx, domain.OrderFilter{Status: status}, page)
}

// FindPending returns orders that are neither cancelled nor paid.
func (s *OrderStore) FindPending(ctx context.Context, page domain.PageRequest) (*domain.OrderPage, error) {
	return s.FindAll(ctx, domain.StateFilter(domain.StatePending), page)
}

// FindCompleted returns paid orders that were not cancelled.
func (s *OrderStore) FindCompleted(ctx context.Context, page domain.PageRequest) (*domain.OrderPage, error) {
	return s.FindAll(ctx, domain.StateFilter(domain.StateCompleted), page)
}

func (s *OrderStore) FindCancelled(ctx context.Context, page domain.PageRequest) (*domain.OrderPage, error) {
	return s.FindAll(ctx, domain.StateFilter(domain.StateCancelled), page)
}

func (s *OrderStore) FindByDateRange(ctx context.Context, from, to time.Time, page domain.PageRequest) (*domain.OrderPage, error) {
	return s.FindAll(ctx, domain.OrderFilter{From: &from, To: &to}, page)
}

// UpdateByID validates u and applies it. A missing order yields (nil, nil).
func (s *OrderStore) UpdateByID(ctx context.Context, id string, u domain.OrderUpdate) (*domain.Order, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}
	if u.Payment != nil && u.Cancelled != nil && *u.Payment && *u.Cancelled {
		return nil, fmt.Errorf("%w: order cannot be both paid and cancelled", domain.ErrValidation)
	}
	order, err := s.repo.Update(ctx, id, u)
	if err != nil {
		return nil, fmt.Errorf("updating order: %w", err)
	}
	return order, nil
}

func (s *OrderStore) UpdateStatus(ctx context.Context, id, status string) (*domain.Order, error) {
	return s.UpdateByID(ctx, id, domain.OrderUpdate{Status: &status})
}

// MarkAsPaid sets the payment flag. Cancelled orders cannot be paid.
func (s *OrderStore) MarkAsPaid(ctx context.Context, id string) (*domain.Order, error) {
	current, err := s.FindByID(ctx, id)
	if err != nil || current == nil {
		return nil, err
	}
	if current.Cancelled {
		return nil, fmt.Errorf("%w: order %s is cancelled", domain.ErrValidation, id)
	}
	paid := true
	return s.UpdateByID(ctx, id, domain.OrderUpdate{Payment: &paid})
}

// CancelOrder flags an unpaid order as cancelled. Paid orders are refused
// with ErrOrderAlreadyPaid since there is no refund flow.
func (s *OrderStore) CancelOrder(ctx context.Context, id string) (*domain.Order, error) {
	current, err := s.FindByID(ctx, id)
	if err != nil || current == nil {
		return nil, err
	}
	if current.Payment {
		return nil, fmt.Errorf("cancelling order %s: %w", id, domain.ErrOrderAlreadyPaid)
	}
	if current.Cancelled {
		return current, nil
	}
	cancelled := true
	return s.UpdateByID(ctx, id, domain.OrderUpdate{Cancelled: &cancelled})
}

// DeleteByID removes the order's items first, then the order itself.
func (s *OrderStore) DeleteByID(ctx context.Context, id string) (*domain.Order, error) {
	if _, err := s.items.DeleteByOrderID(ctx, id); err != nil {
		return nil, fmt.Errorf("deleting order: %w", err)
	}
	order, err := s.repo.Delete(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("deleting order: %w", err)
	}
	return order, nil
}

func (s *OrderStore) GetUserOrderHistory(ctx context.Context, userID string, page domain.PageRequest) (*domain.UserOrderHistory, error) {
	p, err := s.FindAll(ctx, domain.OrderFilter{UserID: userID}, page)
	if err != nil {
		return nil, fmt.Errorf("getting user order history: %w", err)
	}
	h := &domain.UserOrderHistory{OrderPage: *p}
	counts := []struct {
		state domain.State
		dst   *int64
	}{
		{domain.StateCompleted, &h.Completed},
		{domain.StateCancelled, &h.Cancelled},
		{domain.StatePending, &h.Pending},
	}
	for _, c := range counts {
		f := domain.StateFilter(c.state)
		f.UserID = userID
		n, err := s.repo.Count(ctx, f)
		if err != nil {
			return nil, fmt.Errorf("getting user order history: %w", err)
		}
		*c.dst = n
	}
	return h, nil
}

// GetTotalRevenue sums amount over paid, non-cancelled orders matching f.
// f cannot widen the paid/non-cancelled constraint.
func (s *OrderStore) GetTotalRevenue(ctx context.Context, f domain.OrderFilter) (domain.Revenue, error) {
	if err := checkRange(f.From, f.To); err != nil {
		return domain.Revenue{}, err
	}
	rev, err := s.repo.SumAmount(ctx, f.Merge(domain.StateFilter(domain.StateCompleted)))
	if err != nil {
		return domain.Revenue{}, fmt.Errorf("calculating total revenue: %w", err)
	}
	return rev, nil
}

func (s *OrderStore) GetRevenueByDateRange(ctx context.Context, from, to time.Time) (domain.Revenue, error) {
	return s.GetTotalRevenue(ctx, domain.OrderFilter{From: &from, To: &to})
}

func (s *OrderStore) GetStatistics(ctx context.Context) (*domain.Statistics, error) {
	var st domain.Statistics
	counts := []struct {
		f   domain.OrderFilter
		dst *int64
	}{
		{domain.OrderFilter{}, &st.Total},
		{domain.StateFilter(domain.StateCompleted), &st.Completed},
		{domain.StateFilter(domain.StateCancelled), &st.Cancelled},
		{domain.StateFilter(domain.StatePending), &st.Pending},
		{domain.OrderFilter{Status: domain.DefaultStatus}, &st.InProcess},
	}
	for _, c := range counts {
		n, err := s.repo.Count(ctx, c.f)
		if err != nil {
			return nil, fmt.Errorf("getting order statistics: %w", err)
		}
		*c.dst = n
	}
	rev, err := s.GetTotalRevenue(ctx, domain.OrderFilter{})
	if err != nil {
		return nil, fmt.Errorf("getting order statistics: %w", err)
	}
	st.TotalRevenue = rev.TotalRevenue
	return &st, nil
}

func (s *OrderStore) CountByUserID(ctx context.Context, userID string) (int64, error) {
	n, err := s.repo.Count(ctx, domain.OrderFilter{UserID: userID})
	if err != nil {
		return 0, fmt.Errorf("counting orders by user: %w", err)
	}
	return n, nil
}
