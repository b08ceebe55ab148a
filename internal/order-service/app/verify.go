package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jcmexdev/food-orders/internal/order-service/core/domain"
	"github.com/jcmexdev/food-orders/internal/order-service/core/ports"
)

const (
	MsgPaid         = "Paid"
	MsgNotPaid      = "Not Paid"
	MsgNotConfirmed = "Payment not confirmed"
)

type VerifyResult struct {
	Paid    bool
	Message string
}

// VerifyOrder settles an order after the checkout redirect. success is the
// raw flag from the redirect URL; only "true" counts as success.
func (s *Service) VerifyOrder(ctx context.Context, orderID, success string) (*VerifyResult, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}
	if order.Payment {
		return &VerifyResult{Paid: true, Message: MsgPaid}, nil
	}

	claimed := success == "true"
	if s.verify == VerifyWithRedirect {
		if claimed {
			return s.settlePaid(ctx, order)
		}
		return s.settleUnpaid(ctx, order)
	}

	paid := false
	if order.CheckoutSessionID != "" {
		session, err := s.payments.GetCheckoutSession(ctx, order.CheckoutSessionID)
		if err != nil {
			return nil, fmt.Errorf("%w: get checkout session: %v", domain.ErrPaymentFailed, err)
		}
		paid = session.Paid
	}
	switch {
	case paid:
		return s.settlePaid(ctx, order)
	case claimed:
		slog.WarnContext(ctx, "redirect claims success but session is unpaid",
			"order_id", order.ID, "session_id", order.CheckoutSessionID)
		return &VerifyResult{Paid: false, Message: MsgNotConfirmed}, nil
	default:
		return s.settleUnpaid(ctx, order)
	}
}

func (s *Service) settlePaid(ctx context.Context, order *domain.Order) (*VerifyResult, error) {
	paid, err := s.orders.MarkAsPaid(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	if paid == nil {
		return nil, domain.ErrOrderNotFound
	}
	s.publish(ctx, ports.EventOrderPaid, paid)
	return &VerifyResult{Paid: true, Message: MsgPaid}, nil
}

// settleUnpaid removes an abandoned order together with its items.
func (s *Service) settleUnpaid(ctx context.Context, order *domain.Order) (*VerifyResult, error) {
	if order.CheckoutSessionID != "" && s.verify == VerifyWithProvider {
		if err := s.payments.ExpireCheckoutSession(ctx, order.CheckoutSessionID); err != nil {
			slog.WarnContext(ctx, "failed to expire checkout session",
				"order_id", order.ID, "session_id", order.CheckoutSessionID, "error", err)
		}
	}
	if _, err := s.orders.DeleteByID(ctx, order.ID); err != nil {
		return nil, err
	}
	s.publish(ctx, ports.EventOrderPaymentFailed, order)
	return &VerifyResult{Paid: false, Message: MsgNotPaid}, nil
}
