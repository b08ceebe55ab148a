package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// OrderItem is one priced, quantified line of an order.
type OrderItem struct {
	ID      string `json:"_id"`
	OrderID string `json:"orderId"`
	// ItemID is the catalog id of the food item, when the client sends it.
	ItemID       string    `json:"itemId,omitempty"`
	Name         string    `json:"name"`
	Price        float64   `json:"price"`
	Quantity     int       `json:"quantity"`
	RestaurantID string    `json:"restaurantId"`
	Status       string    `json:"status,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (i OrderItem) Subtotal() float64 {
	return float64(i.Quantity) * i.Price
}

func (i OrderItem) Validate() error {
	var problems []string
	if strings.TrimSpace(i.OrderID) == "" {
		problems = append(problems, "orderId is required")
	}
	if strings.TrimSpace(i.Name) == "" {
		problems = append(problems, "name is required")
	}
	if strings.TrimSpace(i.RestaurantID) == "" {
		problems = append(problems, "restaurantId is required")
	}
	if math.IsNaN(i.Price) || math.IsInf(i.Price, 0) || i.Price < 0 {
		problems = append(problems, "price must be a non-negative number")
	}
	if i.Quantity < 1 {
		problems = append(problems, "quantity must be at least 1")
	}
	if s := i.Subtotal(); math.IsInf(s, 0) || math.IsNaN(s) {
		problems = append(problems, "price x quantity overflows")
	}
	return validationError(problems)
}

type ItemUpdate struct {
	Name     *string
	Price    *float64
	Quantity *int
	Status   *string
}

func (u ItemUpdate) IsEmpty() bool {
	return u.Name == nil && u.Price == nil && u.Quantity == nil && u.Status == nil
}

func (u ItemUpdate) Validate() error {
	if u.IsEmpty() {
		return fmt.Errorf("%w: empty update", ErrValidation)
	}
	var problems []string
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		problems = append(problems, "name must not be empty")
	}
	if u.Price != nil && (math.IsNaN(*u.Price) || math.IsInf(*u.Price, 0) || *u.Price < 0) {
		problems = append(problems, "price must be a non-negative number")
	}
	if u.Quantity != nil && *u.Quantity < 1 {
		problems = append(problems, "quantity must be at least 1")
	}
	if u.Status != nil && strings.TrimSpace(*u.Status) == "" {
		problems = append(problems, "status must not be empty")
	}
	return validationError(problems)
}

func (u ItemUpdate) Apply(i *OrderItem) {
	if u.Name != nil {
		i.Name = *u.Name
	}
	if u.Price != nil {
		i.Price = *u.Price
	}
	if u.Quantity != nil {
		i.Quantity = *u.Quantity
	}
	if u.Status != nil {
		i.Status = *u.Status
	}
}

type ItemFilter struct {
	OrderID      string
	RestaurantID string
	ItemID       string
	Status       string
	From         *time.Time
	To           *time.Time
}

func (f ItemFilter) Matches(i *OrderItem) bool {
	if f.OrderID != "" && i.OrderID != f.OrderID {
		return false
	}
	if f.RestaurantID != "" && i.RestaurantID != f.RestaurantID {
		return false
	}
	if f.ItemID != "" && i.ItemID != f.ItemID {
		return false
	}
	if f.Status != "" && i.Status != f.Status {
		return false
	}
	if f.From != nil && i.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && i.CreatedAt.After(*f.To) {
		return false
	}
	return true
}

// ItemTotals is the aggregate produced for revenue and quantity queries.
type ItemTotals struct {
	Revenue  float64
	Quantity int64
}

type RestaurantRevenue struct {
	TotalRevenue float64 `json:"totalRevenue"`
	TotalItems   int64   `json:"totalItems"`
}
