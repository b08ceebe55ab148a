package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/jcmexdev/food-orders/internal/order-service/core/domain"
)

func orderFilter(f domain.OrderFilter) bson.M {
	m := bson.M{}
	if f.UserID != "" {
		m["userId"] = f.UserID
	}
	if f.Status != "" {
		m["status"] = f.Status
	}
	if f.Payment != nil {
		m["payment"] = *f.Payment
	}
	if f.Cancelled != nil {
		m["cancelled"] = *f.Cancelled
	}
	if r := dateRange(f.From, f.To); r != nil {
		m["date"] = r
	}
	return m
}

func itemFilter(f domain.ItemFilter) bson.M {
	m := bson.M{}
	if f.OrderID != "" {
		m["orderId"] = f.OrderID
	}
	if f.RestaurantID != "" {
		m["restaurantId"] = f.RestaurantID
	}
	if f.ItemID != "" {
		m["itemId"] = f.ItemID
	}
	if f.Status != "" {
		m["status"] = f.Status
	}
	if r := dateRange(f.From, f.To); r != nil {
		m["createdAt"] = r
	}
	return m
}

func dateRange(from, to *time.Time) bson.M {
	if from == nil && to == nil {
		return nil
	}
	r := bson.M{}
	if from != nil {
		r["$gte"] = from.UTC()
	}
	if to != nil {
		r["$lte"] = to.UTC()
	}
	return r
}

func orderSet(u domain.OrderUpdate) (bson.M, error) {
	set := bson.M{}
	if u.ItemIDs != nil {
		ids, err := objectIDs(*u.ItemIDs)
		if err != nil {
			return nil, err
		}
		set["items"] = ids
	}
	if u.Amount != nil {
		set["amount"] = *u.Amount
	}
	if u.Payment != nil {
		set["payment"] = *u.Payment
	}
	if u.Cancelled != nil {
		set["cancelled"] = *u.Cancelled
	}
	if u.Status != nil {
		set["status"] = *u.Status
	}
	if u.CheckoutSessionID != nil {
		set["checkoutSessionId"] = *u.CheckoutSessionID
	}
	return set, nil
}

func itemSet(u domain.ItemUpdate) bson.M {
	set := bson.M{}
	if u.Name != nil {
		set["name"] = *u.Name
	}
	if u.Price != nil {
		set["price"] = *u.Price
	}
	if u.Quantity != nil {
		set["quantity"] = *u.Quantity
	}
	if u.Status != nil {
		set["status"] = *u.Status
	}
	return set
}
