package coordinator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jcmexdev/food-orders/internal/order-service/core/domain"
	"github.com/jcmexdev/food-orders/internal/order-service/core/ports"
)

// OrderWriter is the slice of the order store the placement saga mutates.
type OrderWriter interface {
	Create(ctx context.Context, order domain.Order) (*domain.Order, error)
	UpdateByID(ctx context.Context, id string, u domain.OrderUpdate) (*domain.Order, error)
	DeleteByID(ctx context.Context, id string) (*domain.Order, error)
}

type ItemWriter interface {
	CreateMany(ctx context.Context, items []domain.OrderItem) ([]domain.OrderItem, error)
	DeleteByOrderID(ctx context.Context, orderID string) (int64, error)
}

// CheckoutBuilder turns a placed order into a checkout request.
type CheckoutBuilder func(order *domain.Order, items []domain.OrderItem, customerID string) ports.CheckoutRequest

// Placement is the state shared by the placement steps. Each step fills in
// what later steps and compensations need.
type Placement struct {
	Order      *domain.Order
	Items      []domain.OrderItem
	CustomerID string
	Session    *ports.CheckoutSession
}

// --- CreateOrderStep ---

type CreateOrderStep struct {
	orders OrderWriter
	draft  domain.Order
	state  *Placement
}

// NewCreateOrderStep is the constructor for CreateOrderStep
func NewCreateOrderStep(orders OrderWriter, draft domain.Order, state *Placement) *CreateOrderStep {
	return &CreateOrderStep{orders: orders, draft: draft, state: state}
}

func (s *CreateOrderStep) Name() string { return "Create_Order_Step" }

func (s *CreateOrderStep) Execute(ctx context.Context) error {
	order, err := s.orders.Create(ctx, s.draft)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	s.state.Order = order
	return nil
}

// Compensate deletes the order; the store cascades to any items left behind.
func (s *CreateOrderStep) Compensate(ctx context.Context) error {
	if s.state.Order == nil {
		return nil
	}
	_, err := s.orders.DeleteByID(ctx, s.state.Order.ID)
	return err
}

// --- CreateItemsStep ---

type CreateItemsStep struct {
	items  ItemWriter
	orders OrderWriter
	lines  []domain.OrderItem
	state  *Placement
}

func NewCreateItemsStep(items ItemWriter, orders OrderWriter, lines []domain.OrderItem, state *Placement) *CreateItemsStep {
	return &CreateItemsStep{items: items, orders: orders, lines: lines, state: state}
}

func (s *CreateItemsStep) Name() string { return "Create_Items_Step" }

// Execute stamps the order id on every line, bulk-inserts them and links the
// new item ids to the order.
func (s *CreateItemsStep) Execute(ctx context.Context) error {
	orderID := s.state.Order.ID
	lines := make([]domain.OrderItem, len(s.lines))
	for i, l := range s.lines {
		l.OrderID = orderID
		lines[i] = l
	}
	created, err := s.items.CreateMany(ctx, lines)
	if err != nil {
		return fmt.Errorf("failed to create order items: %w", err)
	}
	ids := make([]string, len(created))
	for i, it := range created {
		ids[i] = it.ID
	}
	order, err := s.orders.UpdateByID(ctx, orderID, domain.OrderUpdate{ItemIDs: &ids})
	if err != nil {
		return fmt.Errorf("failed to link order items: %w", err)
	}
	if order == nil {
		return fmt.Errorf("failed to link order items: %w", domain.ErrOrderNotFound)
	}
	s.state.Order = order
	s.state.Items = created
	return nil
}

func (s *CreateItemsStep) Compensate(ctx context.Context) error {
	_, err := s.items.DeleteByOrderID(ctx, s.state.Order.ID)
	return err
}

// --- PaymentCustomerStep ---

type PaymentCustomerStep struct {
	payments ports.PaymentProvider
	customer ports.CustomerRequest
	state    *Placement
}

func NewPaymentCustomerStep(payments ports.PaymentProvider, customer ports.CustomerRequest, state *Placement) *PaymentCustomerStep {
	return &PaymentCustomerStep{payments: payments, customer: customer, state: state}
}

func (s *PaymentCustomerStep) Name() string { return "Payment_Customer_Step" }

func (s *PaymentCustomerStep) Execute(ctx context.Context) error {
	id, err := s.payments.CreateCustomer(ctx, s.customer)
	if err != nil {
		return fmt.Errorf("%w: create customer: %v", domain.ErrPaymentFailed, err)
	}
	s.state.CustomerID = id
	return nil
}

func (s *PaymentCustomerStep) Compensate(ctx context.Context) error {
	return s.payments.DeleteCustomer(ctx, s.state.CustomerID)
}

// --- CheckoutSessionStep ---

type CheckoutSessionStep struct {
	payments ports.PaymentProvider
	orders   OrderWriter
	build    CheckoutBuilder
	state    *Placement
}

func NewCheckoutSessionStep(payments ports.PaymentProvider, orders OrderWriter, build CheckoutBuilder, state *Placement) *CheckoutSessionStep {
	return &CheckoutSessionStep{payments: payments, orders: orders, build: build, state: state}
}

func (s *CheckoutSessionStep) Name() string { return "Checkout_Session_Step" }

// Execute opens the session and remembers its id on the order so verify can
// ask the provider for the authoritative status later.
func (s *CheckoutSessionStep) Execute(ctx context.Context) error {
	req := s.build(s.state.Order, s.state.Items, s.state.CustomerID)
	session, err := s.payments.CreateCheckoutSession(ctx, req)
	if err != nil {
		return fmt.Errorf("%w: create checkout session: %v", domain.ErrPaymentFailed, err)
	}
	if session.URL == "" {
		return fmt.Errorf("%w: checkout session %s has no url", domain.ErrPaymentFailed, session.ID)
	}
	if _, err := s.orders.UpdateByID(ctx, s.state.Order.ID, domain.OrderUpdate{CheckoutSessionID: &session.ID}); err != nil {
		if expErr := s.payments.ExpireCheckoutSession(context.WithoutCancel(ctx), session.ID); expErr != nil {
			slog.ErrorContext(ctx, "failed to expire orphaned checkout session", "session_id", session.ID, "error", expErr)
		}
		return fmt.Errorf("failed to store checkout session: %w", err)
	}
	s.state.Order.CheckoutSessionID = session.ID
	s.state.Session = session
	return nil
}

func (s *CheckoutSessionStep) Compensate(ctx context.Context) error {
	if s.state.Session == nil {
		return nil
	}
	return s.payments.ExpireCheckoutSession(ctx, s.state.Session.ID)
}

// --- ClearCartStep ---

// ClearCartStep empties the user's remote cart. It cannot be undone, so it
// runs last and never fails the saga.
type ClearCartStep struct {
	cart  ports.CartClearer
	token string
	state *Placement
}

func NewClearCartStep(cart ports.CartClearer, token string, state *Placement) *ClearCartStep {
	return &ClearCartStep{cart: cart, token: token, state: state}
}

func (s *ClearCartStep) Name() string { return "Clear_Cart_Step" }

func (s *ClearCartStep) Execute(ctx context.Context) error {
	if err := s.cart.ClearCart(ctx, s.state.Order.UserID, s.token); err != nil {
		slog.WarnContext(ctx, "cart clear failed, order kept",
			"order_id", s.state.Order.ID, "user_id", s.state.Order.UserID, "error", err)
	}
	return nil
}

func (s *ClearCartStep) Compensate(ctx context.Context) error {
	return nil
}
