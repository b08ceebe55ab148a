package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/jcmexdev/food-orders/internal/coordinator"
	"github.com/jcmexdev/food-orders/internal/order-service/core/domain"
	"github.com/jcmexdev/food-orders/internal/order-service/core/ports"
)

// PlaceItem is one cart line submitted by the client.
type PlaceItem struct {
	ItemID       string
	Name         string
	Price        float64
	Quantity     int
	RestaurantID string
}

type PlaceOrderInput struct {
	UserID       string
	CustomerName string
	Items        []PlaceItem
	Amount       float64
	Address      domain.Address
	// Token is the caller's credential, forwarded to the user service.
	Token          string
	IdempotencyKey string
}

type PlaceOrderResult struct {
	OrderID    string `json:"orderId"`
	SessionURL string `json:"sessionUrl"`
	// SagaID keys the placement's saga log entries.
	SagaID string `json:"sagaId,omitempty"`
}

func (in PlaceOrderInput) validate() error {
	if len(in.Items) == 0 {
		return domain.ErrEmptyOrder
	}
	var problems []string
	if strings.TrimSpace(in.UserID) == "" {
		problems = append(problems, "userId is required")
	}
	if in.Amount < 0 {
		problems = append(problems, "amount must be a non-negative number")
	}
	if err := in.Address.Validate(); err != nil {
		problems = append(problems, strings.TrimPrefix(err.Error(), domain.ErrValidation.Error()+": "))
	}
	for i, it := range in.Items {
		// The order id is not known yet; any placeholder satisfies the check.
		line := it.toOrderItem("pending")
		if err := line.Validate(); err != nil {
			problems = append(problems, fmt.Sprintf("items[%d]: %s", i,
				strings.TrimPrefix(err.Error(), domain.ErrValidation.Error()+": ")))
		}
	}
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", domain.ErrValidation, strings.Join(problems, "; "))
}

func (it PlaceItem) toOrderItem(orderID string) domain.OrderItem {
	return domain.OrderItem{
		OrderID:      orderID,
		ItemID:       it.ItemID,
		Name:         it.Name,
		Price:        it.Price,
		Quantity:     it.Quantity,
		RestaurantID: it.RestaurantID,
	}
}

// PlaceOrder runs the placement saga and returns the hosted checkout URL.
// A failed step undoes every step before it, so a failed placement leaves
// no order, no items and no open checkout session behind.
func (s *Service) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*PlaceOrderResult, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	claim, replay, err := s.claimPlacement(ctx, in.UserID, in.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	if replay != nil {
		slog.InfoContext(ctx, "replaying placement", "user_id", in.UserID, "order_id", replay.OrderID)
		return replay, nil
	}

	res, err := s.runPlacement(ctx, in)
	if err != nil {
		claim.release(ctx)
		return nil, err
	}
	claim.complete(ctx, res)
	return res, nil
}

func (s *Service) runPlacement(ctx context.Context, in PlaceOrderInput) (*PlaceOrderResult, error) {
	lines := make([]domain.OrderItem, len(in.Items))
	for i, it := range in.Items {
		lines[i] = it.toOrderItem("")
	}
	draft := domain.Order{
		UserID:  in.UserID,
		Amount:  in.Amount,
		Address: in.Address,
	}
	customer := ports.CustomerRequest{Name: in.CustomerName, Address: in.Address}
	if customer.Name == "" {
		customer.Name = in.UserID
	}

	state := &coordinator.Placement{}
	steps := []coordinator.Step{
		coordinator.NewCreateOrderStep(s.orders, draft, state),
		coordinator.NewCreateItemsStep(s.items, s.orders, lines, state),
		coordinator.NewPaymentCustomerStep(s.payments, customer, state),
		coordinator.NewCheckoutSessionStep(s.payments, s.orders, s.checkout.Build, state),
		coordinator.NewClearCartStep(s.cart, in.Token, state),
	}

	sagaID := uuid.NewString()
	saga := coordinator.NewOrchestrator(sagaID, steps, s.sagaLog).WithPayload(placementPayload(in))
	if err := saga.Start(ctx); err != nil {
		return nil, fmt.Errorf("placing order (saga %s): %w", sagaID, err)
	}

	s.publish(ctx, ports.EventOrderPlaced, state.Order)
	slog.InfoContext(ctx, "order placed",
		"saga_id", sagaID, "order_id", state.Order.ID, "user_id", in.UserID, "items", len(state.Items))
	return &PlaceOrderResult{OrderID: state.Order.ID, SessionURL: state.Session.URL, SagaID: sagaID}, nil
}

// placementPayload is the saga log's record of what was asked for. The
// token and address are left out.
func placementPayload(in PlaceOrderInput) string {
	b, err := json.Marshal(struct {
		UserID         string  `json:"userId"`
		Amount         float64 `json:"amount"`
		Items          int     `json:"items"`
		IdempotencyKey string  `json:"idempotencyKey,omitempty"`
	}{in.UserID, in.Amount, len(in.Items), in.IdempotencyKey})
	if err != nil {
		return ""
	}
	return string(b)
}
