// Package stripe adapts Stripe hosted checkout to ports.PaymentProvider.
package stripe

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"github.com/jcmexdev/food-orders/internal/order-service/core/ports"
)

var _ ports.PaymentProvider = (*Provider)(nil)

type Provider struct {
	api *client.API
}

// New builds a provider backed by a dedicated Stripe client for key.
func New(key string) *Provider {
	api := &client.API{}
	api.Init(key, nil)
	return &Provider{api: api}
}

func (p *Provider) CreateCustomer(ctx context.Context, req ports.CustomerRequest) (string, error) {
	params := customerParams(req)
	params.Context = ctx
	c, err := p.api.Customers.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe: create customer: %w", err)
	}
	return c.ID, nil
}

func (p *Provider) DeleteCustomer(ctx context.Context, customerID string) error {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	if _, err := p.api.Customers.Del(customerID, params); err != nil {
		return fmt.Errorf("stripe: delete customer %s: %w", customerID, err)
	}
	return nil
}

func (p *Provider) CreateCheckoutSession(ctx context.Context, req ports.CheckoutRequest) (*ports.CheckoutSession, error) {
	params := sessionParams(req)
	params.Context = ctx
	s, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: create checkout session: %w", err)
	}
	return toSession(s), nil
}

func (p *Provider) GetCheckoutSession(ctx context.Context, sessionID string) (*ports.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	s, err := p.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return nil, fmt.Errorf("stripe: get checkout session %s: %w", sessionID, err)
	}
	return toSession(s), nil
}

func (p *Provider) ExpireCheckoutSession(ctx context.Context, sessionID string) error {
	params := &stripe.CheckoutSessionExpireParams{}
	params.Context = ctx
	if _, err := p.api.CheckoutSessions.Expire(sessionID, params); err != nil {
		return fmt.Errorf("stripe: expire checkout session %s: %w", sessionID, err)
	}
	return nil
}

func customerParams(req ports.CustomerRequest) *stripe.CustomerParams {
	return &stripe.CustomerParams{
		Name: stripe.String(req.Name),
		Address: &stripe.AddressParams{
			Line1:      stripe.String(req.Address.Line1),
			City:       stripe.String(req.Address.City),
			State:      stripe.String(req.Address.State),
			PostalCode: stripe.String(req.Address.PostalCode),
			Country:    stripe.String(req.Address.Country),
		},
	}
}

func sessionParams(req ports.CheckoutRequest) *stripe.CheckoutSessionParams {
	lines := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.LineItems))
	for _, li := range req.LineItems {
		lines = append(lines, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(req.Currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(li.Name),
				},
				UnitAmount: stripe.Int64(li.UnitAmount),
			},
			Quantity: stripe.Int64(li.Quantity),
		})
	}
	params := &stripe.CheckoutSessionParams{
		Customer:                 stripe.String(req.CustomerID),
		LineItems:                lines,
		Mode:                     stripe.String(string(stripe.CheckoutSessionModePayment)),
		BillingAddressCollection: stripe.String(string(stripe.CheckoutSessionBillingAddressCollectionRequired)),
		SuccessURL:               stripe.String(req.SuccessURL),
		CancelURL:                stripe.String(req.CancelURL),
		ClientReferenceID:        stripe.String(req.OrderID),
	}
	params.AddMetadata("orderId", req.OrderID)
	return params
}

func toSession(s *stripe.CheckoutSession) *ports.CheckoutSession {
	return &ports.CheckoutSession{
		ID:     s.ID,
		URL:    s.URL,
		Paid:   s.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		Status: string(s.Status),
	}
}
