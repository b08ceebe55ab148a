package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation       = errors.New("validation failed")
	ErrOrderNotFound    = errors.New("order not found")
	ErrItemNotFound     = errors.New("order item not found")
	ErrOrderAlreadyPaid = errors.New("order already paid")
	ErrEmptyOrder       = errors.New("order has no items")
	ErrForbidden        = errors.New("forbidden")
	ErrPaymentFailed    = errors.New("payment provider failure")
)

func validationError(problems []string) error {
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(problems, "; "))
}
