package httpx

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/jcmexdev/food-orders/internal/order-service/core/domain"
)

const dateOnly = "2006-01-02"

func parsePage(q url.Values) (domain.PageRequest, error) {
	var p domain.PageRequest
	var err error
	if p.Page, err = parseInt(q, "page"); err != nil {
		return p, err
	}
	if p.Limit, err = parseInt(q, "limit"); err != nil {
		return p, err
	}
	if p.Limit > domain.MaxLimit {
		return p, fmt.Errorf("%w: limit must not exceed %d", domain.ErrValidation, domain.MaxLimit)
	}
	return p.Normalize(), nil
}

func parseInt(q url.Values, key string) (int, error) {
	v := q.Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", domain.ErrValidation, key)
	}
	return n, nil
}

func parseBool(q url.Values, key string) (*bool, error) {
	v := q.Get(key)
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be true or false", domain.ErrValidation, key)
	}
	return &b, nil
}

// parseTime accepts RFC 3339 or a bare date. A bare "to" date covers the
// whole day.
func parseTime(q url.Values, key string, endOfDay bool) (*time.Time, error) {
	v := q.Get(key)
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, nil
	}
	t, err := time.Parse(dateOnly, v)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a date (YYYY-MM-DD) or RFC 3339 time", domain.ErrValidation, key)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func parseRange(q url.Values) (from, to *time.Time, err error) {
	if from, err = parseTime(q, "from", false); err != nil {
		return nil, nil, err
	}
	if to, err = parseTime(q, "to", true); err != nil {
		return nil, nil, err
	}
	return from, to, nil
}

func parseOrderFilter(q url.Values) (domain.OrderFilter, domain.State, error) {
	f := domain.OrderFilter{Status: q.Get("status"), UserID: q.Get("userId")}
	var err error
	if f.Payment, err = parseBool(q, "payment"); err != nil {
		return f, "", err
	}
	if f.Cancelled, err = parseBool(q, "cancelled"); err != nil {
		return f, "", err
	}
	if f.From, f.To, err = parseRange(q); err != nil {
		return f, "", err
	}
	var state domain.State
	if s := q.Get("state"); s != "" {
		if state, err = domain.ParseState(s); err != nil {
			return f, "", err
		}
	}
	return f, state, nil
}

func parseItemFilter(q url.Values) (domain.ItemFilter, error) {
	f := domain.ItemFilter{
		OrderID:      q.Get("orderId"),
		RestaurantID: q.Get("restaurantId"),
		ItemID:       q.Get("itemId"),
		Status:       q.Get("status"),
	}
	var err error
	f.From, f.To, err = parseRange(q)
	return f, err
}
