package mock

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/food-orders/internal/order-service/core/domain"
	"github.com/jcmexdev/food-orders/internal/order-service/core/ports"
)

var address = domain.Address{Line1: "1", City: "c", State: "s", PostalCode: "p", Country: "IN"}

func checkout(t *testing.T, p *Provider) *ports.CheckoutSession {
	t.Helper()
	ctx := context.Background()
	cus, err := p.CreateCustomer(ctx, ports.CustomerRequest{Name: "n", Address: address})
	require.NoError(t, err)
	s, err := p.CreateCheckoutSession(ctx, ports.CheckoutRequest{
		OrderID:    "o1",
		CustomerID: cus,
		LineItems:  []ports.LineItem{{Name: "x", UnitAmount: 500, Quantity: 2}},
		SuccessURL: "http://front/verify?success=true&orderId=o1",
		CancelURL:  "http://front/verify?success=false&orderId=o1",
	})
	require.NoError(t, err)
	return s
}

func TestProviderLifecycle(t *testing.T) {
	ctx := context.Background()
	p := New("http://pay.test")

	s := checkout(t, p)
	assert.True(t, strings.HasPrefix(s.ID, "cs_mock_"))
	assert.Equal(t, "http://pay.test/checkout/"+s.ID, s.URL)
	assert.False(t, s.Paid)
	assert.Equal(t, "open", s.Status)

	require.NoError(t, p.MarkPaid(s.ID))
	got, err := p.GetCheckoutSession(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, got.Paid)
	assert.Equal(t, "complete", got.Status)

	assert.Error(t, p.ExpireCheckoutSession(ctx, s.ID), "paid sessions cannot expire")
}

func TestProviderExpire(t *testing.T) {
	ctx := context.Background()
	p := New("http://pay.test")
	s := checkout(t, p)

	require.NoError(t, p.ExpireCheckoutSession(ctx, s.ID))
	got, err := p.GetCheckoutSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "expired", got.Status)
	assert.Error(t, p.MarkPaid(s.ID))
}

func TestProviderRejections(t *testing.T) {
	ctx := context.Background()
	p := New("http://pay.test")

	_, err := p.CreateCustomer(ctx, ports.CustomerRequest{Name: "n"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = p.CreateCheckoutSession(ctx, ports.CheckoutRequest{CustomerID: "cus_unknown"})
	assert.Error(t, err)

	p.MaxAmount = 999
	cus, err := p.CreateCustomer(ctx, ports.CustomerRequest{Name: "n", Address: address})
	require.NoError(t, err)
	_, err = p.CreateCheckoutSession(ctx, ports.CheckoutRequest{
		CustomerID: cus,
		LineItems:  []ports.LineItem{{UnitAmount: 1000, Quantity: 1}},
	})
	assert.Error(t, err)

	require.NoError(t, p.DeleteCustomer(ctx, cus))
	require.NoError(t, p.DeleteCustomer(ctx, cus), "deleting twice is a no-op")
	assert.Zero(t, p.CustomerCount())

	_, err = p.GetCheckoutSession(ctx, "cs_missing")
	assert.Error(t, err)
}

func TestAutoConfirm(t *testing.T) {
	p := New("http://pay.test")
	p.AutoConfirm = true
	assert.True(t, checkout(t, p).Paid)
}

func TestHandler(t *testing.T) {
	p := New("http://pay.test")
	h := p.Handler()

	tests := []struct {
		name     string
		path     func(id string) string
		wantLoc  string
		wantPaid bool
	}{
		{"cancel", func(id string) string { return "/checkout/" + id + "/cancel" }, "http://front/verify?success=false&orderId=o1", false},
		{"pay", func(id string) string { return "/checkout/" + id }, "http://front/verify?success=true&orderId=o1", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := checkout(t, p)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path(s.ID), nil))
			assert.Equal(t, http.StatusSeeOther, rec.Code)
			assert.Equal(t, tt.wantLoc, rec.Header().Get("Location"))

			got, err := p.GetCheckoutSession(context.Background(), s.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPaid, got.Paid)
		})
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/checkout/cs_missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
