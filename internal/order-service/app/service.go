// Package app holds the order workflows: placement, payment verification and
// the admin/user queries on top of the stores.
package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jcmexdev/food-orders/internal/coordinator/sagalog"
	"github.com/jcmexdev/food-orders/internal/order-service/core/domain"
	"github.com/jcmexdev/food-orders/internal/order-service/core/ports"
	"github.com/jcmexdev/food-orders/internal/order-service/core/store"
	"github.com/jcmexdev/food-orders/internal/pkg/cache"
)

// VerifyMode selects how verify decides whether an order was paid.
type VerifyMode string

const (
	// VerifyWithProvider asks the payment provider for the session status.
	VerifyWithProvider VerifyMode = "provider"
	// VerifyWithRedirect trusts the success flag from the redirect.
	VerifyWithRedirect VerifyMode = "redirect"
)

var (
	ErrPlacementInProgress = errors.New("a placement with this idempotency key is in progress")
	ErrSagaLogUnavailable  = errors.New("saga log backend cannot be queried")
)

type Deps struct {
	Orders   *store.OrderStore
	Items    *store.OrderItemStore
	Payments ports.PaymentProvider
	Cart     ports.CartClearer
	Events   ports.EventPublisher
	// SagaLog and Cache may be nil.
	SagaLog  sagalog.Repository
	Cache    cache.Cache
	Checkout CheckoutConfig
	Verify   VerifyMode
	// IdempotencyTTL bounds how long a placement result is replayed.
	IdempotencyTTL time.Duration
	// PaymentTimeout bounds each call to the payment provider.
	PaymentTimeout time.Duration
}

type Service struct {
	orders   *store.OrderStore
	items    *store.OrderItemStore
	payments ports.PaymentProvider
	cart     ports.CartClearer
	events   ports.EventPublisher
	sagaLog  sagalog.Repository
	trails   sagalog.Reader
	cache    cache.Cache
	checkout CheckoutConfig
	verify   VerifyMode
	idemTTL  time.Duration
	now      func() time.Time
}

func NewService(d Deps) *Service {
	s := &Service{
		orders:   d.Orders,
		items:    d.Items,
		payments: d.Payments,
		cart:     d.Cart,
		events:   d.Events,
		sagaLog:  d.SagaLog,
		cache:    d.Cache,
		checkout: d.Checkout,
		verify:   d.Verify,
		idemTTL:  d.IdempotencyTTL,
		now:      time.Now,
	}
	if r, ok := d.SagaLog.(sagalog.Reader); ok {
		s.trails = r
	}
	if d.PaymentTimeout > 0 && d.Payments != nil {
		s.payments = timeoutProvider{next: d.Payments, timeout: d.PaymentTimeout}
	}
	if s.verify == "" {
		s.verify = VerifyWithProvider
	}
	if s.idemTTL <= 0 {
		s.idemTTL = 24 * time.Hour
	}
	if s.events == nil {
		s.events = noopEvents{}
	}
	return s
}

func (s *Service) publish(ctx context.Context, key string, o *domain.Order) {
	ev := ports.OrderEvent{
		OrderID:    o.ID,
		UserID:     o.UserID,
		Amount:     o.Amount,
		Status:     o.Status,
		OccurredAt: s.now().UTC(),
	}
	if err := s.events.Publish(ctx, key, ev); err != nil {
		slog.WarnContext(ctx, "event publish failed", "event", key, "order_id", o.ID, "error", err)
	}
}

type noopEvents struct{}

func (noopEvents) Publish(context.Context, string, ports.OrderEvent) error { return nil }

// timeoutProvider bounds every provider call with its own deadline.
type timeoutProvider struct {
	next    ports.PaymentProvider
	timeout time.Duration
}

func (p timeoutProvider) CreateCustomer(ctx context.Context, req ports.CustomerRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.next.CreateCustomer(ctx, req)
}

func (p timeoutProvider) DeleteCustomer(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.next.DeleteCustomer(ctx, id)
}

func (p timeoutProvider) CreateCheckoutSession(ctx context.Context, req ports.CheckoutRequest) (*ports.CheckoutSession, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.next.CreateCheckoutSession(ctx, req)
}

func (p timeoutProvider) GetCheckoutSession(ctx context.Context, id string) (*ports.CheckoutSession, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.next.GetCheckoutSession(ctx, id)
}

func (p timeoutProvider) ExpireCheckoutSession(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.next.ExpireCheckoutSession(ctx, id)
}
