// Package mock is an in-memory payment provider for local runs and tests.
package mock

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/jcmexdev/food-orders/internal/order-service/core/ports"
)

var _ ports.PaymentProvider = (*Provider)(nil)

type session struct {
	req     ports.CheckoutRequest
	paid    bool
	expired bool
}

// Provider hands out checkout URLs under BaseURL. Sessions stay unpaid until
// MarkPaid is called, unless AutoConfirm is set.
type Provider struct {
	BaseURL     string
	AutoConfirm bool
	// MaxAmount declines sessions whose total (minor units) exceeds it. Zero disables.
	MaxAmount int64

	mu        sync.Mutex
	customers map[string]ports.CustomerRequest
	sessions  map[string]*session
}

func New(baseURL string) *Provider {
	return &Provider{
		BaseURL:   baseURL,
		customers: make(map[string]ports.CustomerRequest),
		sessions:  make(map[string]*session),
	}
}

func (p *Provider) CreateCustomer(ctx context.Context, req ports.CustomerRequest) (string, error) {
	if err := req.Address.Validate(); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	id := "cus_mock_" + uuid.NewString()
	p.customers[id] = req
	slog.InfoContext(ctx, "mock payment: customer created", "customer_id", id)
	return id, nil
}

func (p *Provider) DeleteCustomer(ctx context.Context, customerID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.customers[customerID]; !ok {
		slog.WarnContext(ctx, "mock payment: no customer to delete", "customer_id", customerID)
		return nil
	}
	delete(p.customers, customerID)
	return nil
}

func (p *Provider) CreateCheckoutSession(ctx context.Context, req ports.CheckoutRequest) (*ports.CheckoutSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.customers[req.CustomerID]; !ok {
		return nil, fmt.Errorf("mock payment: unknown customer %q", req.CustomerID)
	}
	if p.MaxAmount > 0 && req.Total() > p.MaxAmount {
		slog.WarnContext(ctx, "mock payment: declined", "order_id", req.OrderID, "total", req.Total())
		return nil, fmt.Errorf("mock payment: amount %d exceeds limit %d", req.Total(), p.MaxAmount)
	}

	id := "cs_mock_" + uuid.NewString()
	p.sessions[id] = &session{req: req, paid: p.AutoConfirm}
	return p.view(id), nil
}

func (p *Provider) GetCheckoutSession(_ context.Context, sessionID string) (*ports.CheckoutSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.sessions[sessionID]; !ok {
		return nil, fmt.Errorf("mock payment: session %q not found", sessionID)
	}
	return p.view(sessionID), nil
}

func (p *Provider) ExpireCheckoutSession(_ context.Context, sessionID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.sessions[sessionID]
	if !ok {
		return fmt.Errorf("mock payment: session %q not found", sessionID)
	}
	if s.paid {
		return fmt.Errorf("mock payment: session %q already paid", sessionID)
	}
	s.expired = true
	return nil
}

// MarkPaid simulates the customer completing checkout.
func (p *Provider) MarkPaid(sessionID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.sessions[sessionID]
	if !ok {
		return fmt.Errorf("mock payment: session %q not found", sessionID)
	}
	if s.expired {
		return fmt.Errorf("mock payment: session %q expired", sessionID)
	}
	s.paid = true
	return nil
}

// Session returns the request a session was created from.
func (p *Provider) Session(sessionID string) (ports.CheckoutRequest, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.sessions[sessionID]
	if !ok {
		return ports.CheckoutRequest{}, false
	}
	return s.req, true
}

func (p *Provider) CustomerCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.customers)
}

// view must be called with p.mu held.
func (p *Provider) view(id string) *ports.CheckoutSession {
	s := p.sessions[id]
	status := "open"
	switch {
	case s.paid:
		status = "complete"
	case s.expired:
		status = "expired"
	}
	return &ports.CheckoutSession{
		ID:     id,
		URL:    fmt.Sprintf("%s/checkout/%s", p.BaseURL, id),
		Paid:   s.paid,
		Status: status,
	}
}
