package stripe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"

	"github.com/jcmexdev/food-orders/internal/order-service/core/domain"
	"github.com/jcmexdev/food-orders/internal/order-service/core/ports"
)

func TestCustomerParams(t *testing.T) {
	p := customerParams(ports.CustomerRequest{
		Name:    "Asha",
		Address: domain.Address{Line1: "12 MG Road", City: "Pune", State: "MH", PostalCode: "411001", Country: "IN"},
	})
	assert.Equal(t, "Asha", *p.Name)
	assert.Equal(t, "411001", *p.Address.PostalCode)
	assert.Equal(t, "IN", *p.Address.Country)
}

func TestSessionParams(t *testing.T) {
	p := sessionParams(ports.CheckoutRequest{
		OrderID:    "ord-1",
		CustomerID: "cus_1",
		Currency:   "inr",
		LineItems: []ports.LineItem{
			{Name: "Thali", UnitAmount: 25000, Quantity: 2},
			{Name: "Delivery Charges", UnitAmount: 10000, Quantity: 1},
		},
		SuccessURL: "http://f/verify?success=true&orderId=ord-1",
		CancelURL:  "http://f/verify?success=false&orderId=ord-1",
	})

	assert.Equal(t, "cus_1", *p.Customer)
	assert.Equal(t, "payment", *p.Mode)
	assert.Equal(t, "ord-1", *p.ClientReferenceID)
	assert.Equal(t, "ord-1", p.Metadata["orderId"])
	assert.Equal(t, "http://f/verify?success=false&orderId=ord-1", *p.CancelURL)
	require.Len(t, p.LineItems, 2)
	first := p.LineItems[0]
	assert.Equal(t, "inr", *first.PriceData.Currency)
	assert.Equal(t, "Thali", *first.PriceData.ProductData.Name)
	assert.Equal(t, int64(25000), *first.PriceData.UnitAmount)
	assert.Equal(t, int64(2), *first.Quantity)
}

func TestToSession(t *testing.T) {
	tests := []struct {
		name     string
		in       *stripe.CheckoutSession
		wantPaid bool
	}{
		{
			"paid",
			&stripe.CheckoutSession{ID: "cs_1", URL: "https://checkout", Status: stripe.CheckoutSessionStatusComplete, PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid},
			true,
		},
		{
			"open",
			&stripe.CheckoutSession{ID: "cs_2", Status: stripe.CheckoutSessionStatusOpen, PaymentStatus: stripe.CheckoutSessionPaymentStatusUnpaid},
			false,
		},
		{
			"complete but not settled",
			&stripe.CheckoutSession{ID: "cs_3", Status: stripe.CheckoutSessionStatusComplete, PaymentStatus: stripe.CheckoutSessionPaymentStatusUnpaid},
			false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := toSession(tt.in)
			assert.Equal(t, tt.in.ID, s.ID)
			assert.Equal(t, string(tt.in.Status), s.Status)
			assert.Equal(t, tt.wantPaid, s.Paid)
		})
	}
}
