package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jcmexdev/food-orders/internal/order-service/core/domain"
)

type orderDoc struct {
	ID                primitive.ObjectID   `bson:"_id,omitempty"`
	UserID            string               `bson:"userId"`
	Items             []primitive.ObjectID `bson:"items"`
	Amount            float64              `bson:"amount"`
	Address           domain.Address       `bson:"address"`
	Payment           bool                 `bson:"payment"`
	Cancelled         bool                 `bson:"cancelled"`
	Status            string               `bson:"status"`
	CheckoutSessionID string               `bson:"checkoutSessionId,omitempty"`
	Date              time.Time            `bson:"date"`
}

type itemDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	OrderID      string             `bson:"orderId"`
	ItemID       string             `bson:"itemId,omitempty"`
	Name         string             `bson:"name"`
	Price        float64            `bson:"price"`
	Quantity     int                `bson:"quantity"`
	RestaurantID string             `bson:"restaurantId"`
	Status       string             `bson:"status,omitempty"`
	CreatedAt    time.Time          `bson:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt"`
}

func orderToDoc(o *domain.Order) (orderDoc, error) {
	doc := orderDoc{
		UserID:            o.UserID,
		Amount:            o.Amount,
		Address:           o.Address,
		Payment:           o.Payment,
		Cancelled:         o.Cancelled,
		Status:            o.Status,
		CheckoutSessionID: o.CheckoutSessionID,
		Date:              o.Date.UTC(),
	}
	if o.ID != "" {
		id, err := primitive.ObjectIDFromHex(o.ID)
		if err != nil {
			return orderDoc{}, err
		}
		doc.ID = id
	}
	items, err := objectIDs(o.ItemIDs)
	if err != nil {
		return orderDoc{}, err
	}
	doc.Items = items
	return doc, nil
}

func orderFromDoc(d *orderDoc) *domain.Order {
	ids := make([]string, len(d.Items))
	for i, id := range d.Items {
		ids[i] = id.Hex()
	}
	return &domain.Order{
		ID:                d.ID.Hex(),
		UserID:            d.UserID,
		ItemIDs:           ids,
		Amount:            d.Amount,
		Address:           d.Address,
		Payment:           d.Payment,
		Cancelled:         d.Cancelled,
		Status:            d.Status,
		CheckoutSessionID: d.CheckoutSessionID,
		Date:              d.Date.UTC(),
	}
}

func itemToDoc(it *domain.OrderItem) itemDoc {
	return itemDoc{
		OrderID:      it.OrderID,
		ItemID:       it.ItemID,
		Name:         it.Name,
		Price:        it.Price,
		Quantity:     it.Quantity,
		RestaurantID: it.RestaurantID,
		Status:       it.Status,
		CreatedAt:    it.CreatedAt.UTC(),
		UpdatedAt:    it.CreatedAt.UTC(),
	}
}

func itemFromDoc(d *itemDoc) *domain.OrderItem {
	return &domain.OrderItem{
		ID:           d.ID.Hex(),
		OrderID:      d.OrderID,
		ItemID:       d.ItemID,
		Name:         d.Name,
		Price:        d.Price,
		Quantity:     d.Quantity,
		RestaurantID: d.RestaurantID,
		Status:       d.Status,
		CreatedAt:    d.CreatedAt.UTC(),
	}
}

func objectIDs(hexes []string) ([]primitive.ObjectID, error) {
	out := make([]primitive.ObjectID, 0, len(hexes))
	for _, h := range hexes {
		id, err := primitive.ObjectIDFromHex(h)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}
