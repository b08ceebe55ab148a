package app

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jcmexdev/food-orders/internal/order-service/core/domain"
	"github.com/jcmexdev/food-orders/internal/order-service/core/ports"
)

const deliveryLabel = "Delivery Charges"

var minorUnitsPerMajor = decimal.NewFromInt(100)

// CheckoutConfig holds the fixed parts of every checkout session.
type CheckoutConfig struct {
	FrontendURL string
	Currency    string
	// DeliveryCharge is in minor units, added once per order.
	DeliveryCharge int64
}

// Build turns the order's items into provider line items plus one delivery
// line, with redirect URLs that carry the order id back to verify.
func (c CheckoutConfig) Build(order *domain.Order, items []domain.OrderItem, customerID string) ports.CheckoutRequest {
	lines := make([]ports.LineItem, 0, len(items)+1)
	for _, it := range items {
		lines = append(lines, ports.LineItem{
			Name:       it.Name,
			UnitAmount: ToMinorUnits(it.Price),
			Quantity:   int64(it.Quantity),
		})
	}
	lines = append(lines, ports.LineItem{
		Name:       deliveryLabel,
		UnitAmount: c.DeliveryCharge,
		Quantity:   1,
	})
	return ports.CheckoutRequest{
		OrderID:    order.ID,
		CustomerID: customerID,
		Currency:   c.Currency,
		LineItems:  lines,
		SuccessURL: c.redirectURL(true, order.ID),
		CancelURL:  c.redirectURL(false, order.ID),
	}
}

func (c CheckoutConfig) redirectURL(success bool, orderID string) string {
	return fmt.Sprintf("%s/verify?success=%t&orderId=%s",
		strings.TrimRight(c.FrontendURL, "/"), success, url.QueryEscape(orderID))
}

// ToMinorUnits converts a major-unit price to minor units, rounding half away
// from zero so 19.99 becomes 1999 and not 1998.
func ToMinorUnits(price float64) int64 {
	return decimal.NewFromFloat(price).Mul(minorUnitsPerMajor).Round(0).IntPart()
}
