package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jcmexdev/food-orders/internal/order-service/core/domain"
	"github.com/jcmexdev/food-orders/internal/order-service/core/ports"
)

var _ ports.OrderRepository = (*OrderRepository)(nil)

type OrderRepository struct {
	coll *mongo.Collection
}

func (r *OrderRepository) Insert(ctx context.Context, o *domain.Order) error {
	doc, err := orderToDoc(o)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("mongo: insert order: %w", err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		o.ID = id.Hex()
	}
	return nil
}

// Get treats a malformed id like an unknown one.
func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	var doc orderDoc
	err = r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mongo: find order %q: %w", id, err)
	}
	return orderFromDoc(&doc), nil
}

func (r *OrderRepository) Find(ctx context.Context, f domain.OrderFilter, page domain.PageRequest) ([]domain.Order, error) {
	cur, err := r.coll.Find(ctx, orderFilter(f), pageOptions("date", page.Skip(), page.Limit))
	if err != nil {
		return nil, fmt.Errorf("mongo: find orders: %w", err)
	}
	var docs []orderDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo: decode orders: %w", err)
	}
	orders := make([]domain.Order, len(docs))
	for i := range docs {
		orders[i] = *orderFromDoc(&docs[i])
	}
	return orders, nil
}

func (r *OrderRepository) Count(ctx context.Context, f domain.OrderFilter) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, orderFilter(f))
	if err != nil {
		return 0, fmt.Errorf("mongo: count orders: %w", err)
	}
	return n, nil
}

func (r *OrderRepository) Update(ctx context.Context, id string, u domain.OrderUpdate) (*domain.Order, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	set, err := orderSet(u)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc orderDoc
	err = r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mongo: update order %q: %w", id, err)
	}
	return orderFromDoc(&doc), nil
}

func (r *OrderRepository) Delete(ctx context.Context, id string) (*domain.Order, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	var doc orderDoc
	err = r.coll.FindOneAndDelete(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mongo: delete order %q: %w", id, err)
	}
	return orderFromDoc(&doc), nil
}

func (r *OrderRepository) SumAmount(ctx context.Context, f domain.OrderFilter) (domain.Revenue, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: orderFilter(f)}},
		{{Key: "$group", Value: bson.M{
			"_id":          nil,
			"totalRevenue": bson.M{"$sum": "$amount"},
			"totalOrders":  bson.M{"$sum": 1},
		}}},
	}
	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return domain.Revenue{}, fmt.Errorf("mongo: aggregate revenue: %w", err)
	}
	var out []struct {
		TotalRevenue float64 `bson:"totalRevenue"`
		TotalOrders  int64   `bson:"totalOrders"`
	}
	if err := cur.All(ctx, &out); err != nil {
		return domain.Revenue{}, fmt.Errorf("mongo: decode revenue: %w", err)
	}
	if len(out) == 0 {
		return domain.Revenue{}, nil
	}
	return domain.Revenue{TotalRevenue: out[0].TotalRevenue, TotalOrders: out[0].TotalOrders}, nil
}
