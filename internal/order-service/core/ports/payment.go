package ports

import (
	"context"

	"github.com/jcmexdev/food-orders/internal/order-service/core/domain"
)

type CustomerRequest struct {
	Name    string
	Address domain.Address
}

type LineItem struct {
	Name string
	// UnitAmount is expressed in minor currency units.
	UnitAmount int64
	Quantity   int64
}

type CheckoutRequest struct {
	OrderID    string
	CustomerID string
	Currency   string
	LineItems  []LineItem
	SuccessURL string
	CancelURL  string
}

func (r CheckoutRequest) Total() int64 {
	var total int64
	for _, li := range r.LineItems {
		total += li.UnitAmount * li.Quantity
	}
	return total
}

type CheckoutSession struct {
	ID  string
	URL string
	// Paid is true once the provider reports the session's payment as settled.
	Paid   bool
	Status string
}

// PaymentProvider is the hosted-checkout payment processor.
type PaymentProvider interface {
	CreateCustomer(ctx context.Context, req CustomerRequest) (string, error)
	DeleteCustomer(ctx context.Context, customerID string) error
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error)
	ExpireCheckoutSession(ctx context.Context, sessionID string) error
}

// CartClearer empties a user's cart on the user service. token is the
// caller's credential, forwarded as-is.
type CartClearer interface {
	ClearCart(ctx context.Context, userID, token string) error
}
