package httpx

import (
	"github.com/jcmexdev/food-orders/internal/order-service/app"
	"github.com/jcmexdev/food-orders/internal/order-service/core/domain"
)

// envelope is the body of every JSON response. Outcomes are reported
// through Success, not the HTTP status.
type envelope struct {
	Success    bool   `json:"success"`
	Data       any    `json:"data,omitempty"`
	Message    string `json:"message,omitempty"`
	SessionURL string `json:"session_url,omitempty"`
}

type PlaceOrderRequest struct {
	UserID       string         `json:"userId"`
	CustomerName string         `json:"customerName"`
	Items        []PlaceItemDTO `json:"items"`
	Amount       float64        `json:"amount"`
	Address      AddressDTO     `json:"address"`
}

// PlaceItemDTO is a cart line. Carts send the catalog id as _id; itemId is
// accepted too.
type PlaceItemDTO struct {
	ID           string  `json:"_id"`
	ItemID       string  `json:"itemId"`
	Name         string  `json:"name"`
	Price        float64 `json:"price"`
	Quantity     int     `json:"quantity"`
	RestaurantID string  `json:"restaurantId"`
}

type AddressDTO struct {
	Line1      string `json:"line1"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// VerifyRequest carries the redirect flag, sent as "true"/"false" or as a
// JSON boolean.
type VerifyRequest struct {
	OrderID string `json:"orderId"`
	Success any    `json:"success"`
}

func (v VerifyRequest) flag() string {
	switch s := v.Success.(type) {
	case bool:
		if s {
			return "true"
		}
		return "false"
	case string:
		return s
	}
	return ""
}

type StatusRequest struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
}

type ItemsStatusResponse struct {
	OrderID string `json:"orderId"`
	Updated int64  `json:"updated"`
}

type ItemQuantityResponse struct {
	ItemID        string `json:"itemId"`
	TotalQuantity int64  `json:"totalQuantity"`
}

func (r PlaceOrderRequest) toInput(userID, token, idempotencyKey string) app.PlaceOrderInput {
	items := make([]app.PlaceItem, len(r.Items))
	for i, it := range r.Items {
		id := it.ItemID
		if id == "" {
			id = it.ID
		}
		items[i] = app.PlaceItem{
			ItemID:       id,
			Name:         it.Name,
			Price:        it.Price,
			Quantity:     it.Quantity,
			RestaurantID: it.RestaurantID,
		}
	}
	return app.PlaceOrderInput{
		UserID:       userID,
		CustomerName: r.CustomerName,
		Items:        items,
		Amount:       r.Amount,
		Address: domain.Address{
			Line1:      r.Address.Line1,
			City:       r.Address.City,
			State:      r.Address.State,
			PostalCode: r.Address.PostalCode,
			Country:    r.Address.Country,
		},
		Token:          token,
		IdempotencyKey: idempotencyKey,
	}
}
