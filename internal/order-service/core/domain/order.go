package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// DefaultStatus is the workflow label every new order starts with.
const DefaultStatus = "In Process"

// Order is a customer's purchase: one delivery address, an aggregate amount
// and the ids of the line items created for it.
type Order struct {
	ID      string      `json:"_id"`
	UserID  string      `json:"userId"`
	ItemIDs []string    `json:"items"`
	Items   []OrderItem `json:"orderItems,omitempty"`
	Amount  float64     `json:"amount"`
	Address Address     `json:"address"`
	// Payment is true once the provider confirmed the checkout session.
	Payment           bool      `json:"payment"`
	Cancelled         bool      `json:"cancelled"`
	Status            string    `json:"status"`
	CheckoutSessionID string    `json:"checkoutSessionId,omitempty"`
	Date              time.Time `json:"date"`
}

// State reports which partition the order falls into.
func (o *Order) State() State {
	switch {
	case o.Cancelled:
		return StateCancelled
	case o.Payment:
		return StateCompleted
	default:
		return StatePending
	}
}

// Validate checks the fields required to persist a new order.
func (o *Order) Validate() error {
	var problems []string
	if strings.TrimSpace(o.UserID) == "" {
		problems = append(problems, "userId is required")
	}
	if math.IsNaN(o.Amount) || math.IsInf(o.Amount, 0) || o.Amount < 0 {
		problems = append(problems, "amount must be a non-negative number")
	}
	if o.Payment && o.Cancelled {
		problems = append(problems, "order cannot be both paid and cancelled")
	}
	return validationError(problems)
}

// Address is the delivery address; the payment customer is created from it.
type Address struct {
	Line1      string `json:"line1" bson:"line1"`
	City       string `json:"city" bson:"city"`
	State      string `json:"state" bson:"state"`
	PostalCode string `json:"postal_code" bson:"postal_code"`
	Country    string `json:"country" bson:"country"`
}

func (a Address) Validate() error {
	fields := []struct{ name, value string }{
		{"address.line1", a.Line1},
		{"address.city", a.City},
		{"address.state", a.State},
		{"address.postal_code", a.PostalCode},
		{"address.country", a.Country},
	}
	var problems []string
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			problems = append(problems, f.name+" is required")
		}
	}
	return validationError(problems)
}

// State is one of the three disjoint order partitions.
type State string

const (
	StatePending   State = "pending"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
)

// ParseState accepts the query-string spelling of a partition.
func ParseState(s string) (State, error) {
	switch State(strings.ToLower(strings.TrimSpace(s))) {
	case StatePending:
		return StatePending, nil
	case StateCompleted:
		return StateCompleted, nil
	case StateCancelled:
		return StateCancelled, nil
	}
	return "", fmt.Errorf("%w: unknown order state %q", ErrValidation, s)
}

// OrderUpdate is a partial update. Nil fields are left untouched.
type OrderUpdate struct {
	ItemIDs           *[]string
	Amount            *float64
	Payment           *bool
	Cancelled         *bool
	Status            *string
	CheckoutSessionID *string
}

func (u OrderUpdate) IsEmpty() bool {
	return u.ItemIDs == nil && u.Amount == nil && u.Payment == nil &&
		u.Cancelled == nil && u.Status == nil && u.CheckoutSessionID == nil
}

func (u OrderUpdate) Validate() error {
	if u.IsEmpty() {
		return fmt.Errorf("%w: empty update", ErrValidation)
	}
	var problems []string
	if u.Amount != nil && (math.IsNaN(*u.Amount) || math.IsInf(*u.Amount, 0) || *u.Amount < 0) {
		problems = append(problems, "amount must be a non-negative number")
	}
	if u.Status != nil && strings.TrimSpace(*u.Status) == "" {
		problems = append(problems, "status must not be empty")
	}
	if u.ItemIDs != nil {
		for _, id := range *u.ItemIDs {
			if strings.TrimSpace(id) == "" {
				problems = append(problems, "items must not contain empty ids")
				break
			}
		}
	}
	return validationError(problems)
}

// Apply copies the set fields onto o.
func (u OrderUpdate) Apply(o *Order) {
	if u.ItemIDs != nil {
		o.ItemIDs = append([]string(nil), (*u.ItemIDs)...)
	}
	if u.Amount != nil {
		o.Amount = *u.Amount
	}
	if u.Payment != nil {
		o.Payment = *u.Payment
	}
	if u.Cancelled != nil {
		o.Cancelled = *u.Cancelled
	}
	if u.Status != nil {
		o.Status = *u.Status
	}
	if u.CheckoutSessionID != nil {
		o.CheckoutSessionID = *u.CheckoutSessionID
	}
}

// OrderFilter narrows order queries. Zero values match everything.
type OrderFilter struct {
	UserID    string
	Status    string
	Payment   *bool
	Cancelled *bool
	From      *time.Time
	To        *time.Time
}

// StateFilter returns the filter that selects exactly one partition.
func StateFilter(s State) OrderFilter {
	f, t := false, true
	switch s {
	case StateCompleted:
		return OrderFilter{Cancelled: &f, Payment: &t}
	case StateCancelled:
		return OrderFilter{Cancelled: &t}
	default:
		return OrderFilter{Cancelled: &f, Payment: &f}
	}
}

// Merge overlays the non-zero fields of other on f.
func (f OrderFilter) Merge(other OrderFilter) OrderFilter {
	if other.UserID != "" {
		f.UserID = other.UserID
	}
	if other.Status != "" {
		f.Status = other.Status
	}
	if other.Payment != nil {
		f.Payment = other.Payment
	}
	if other.Cancelled != nil {
		f.Cancelled = other.Cancelled
	}
	if other.From != nil {
		f.From = other.From
	}
	if other.To != nil {
		f.To = other.To
	}
	return f
}

// Matches evaluates the filter in memory.
func (f OrderFilter) Matches(o *Order) bool {
	if f.UserID != "" && o.UserID != f.UserID {
		return false
	}
	if f.Status != "" && o.Status != f.Status {
		return false
	}
	if f.Payment != nil && o.Payment != *f.Payment {
		return false
	}
	if f.Cancelled != nil && o.Cancelled != *f.Cancelled {
		return false
	}
	if f.From != nil && o.Date.Before(*f.From) {
		return false
	}
	if f.To != nil && o.Date.After(*f.To) {
		return false
	}
	return true
}

// Revenue is the paid, non-cancelled total over a set of orders.
type Revenue struct {
	TotalRevenue float64 `json:"totalRevenue"`
	TotalOrders  int64   `json:"totalOrders"`
}

type Statistics struct {
	Total        int64   `json:"total"`
	Completed    int64   `json:"completed"`
	Cancelled    int64   `json:"cancelled"`
	Pending      int64   `json:"pending"`
	InProcess    int64   `json:"inProcess"`
	TotalRevenue float64 `json:"totalRevenue"`
}

type UserOrderHistory struct {
	OrderPage
	Completed int64 `json:"completed"`
	Cancelled int64 `json:"cancelled"`
	Pending   int64 `json:"pending"`
}
