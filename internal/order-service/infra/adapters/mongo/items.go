package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jcmexdev/food-orders/internal/order-service/core/domain"
	"github.com/jcmexdev/food-orders/internal/order-service/core/ports"
)

var _ ports.ItemRepository = (*ItemRepository)(nil)

type ItemRepository struct {
	coll *mongo.Collection
}

// InsertMany pre-assigns ids so a partially applied batch can be removed
// again; the caller sees either every item or an error.
func (r *ItemRepository) InsertMany(ctx context.Context, items []domain.OrderItem) ([]domain.OrderItem, error) {
	docs := make([]any, len(items))
	ids := make([]primitive.ObjectID, len(items))
	out := make([]domain.OrderItem, len(items))
	for i := range items {
		d := itemToDoc(&items[i])
		d.ID = primitive.NewObjectID()
		ids[i] = d.ID
		docs[i] = d
		out[i] = items[i]
		out[i].ID = d.ID.Hex()
	}
	if _, err := r.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true)); err != nil {
		if _, cleanupErr := r.coll.DeleteMany(context.WithoutCancel(ctx), bson.M{"_id": bson.M{"$in": ids}}); cleanupErr != nil {
			return nil, fmt.Errorf("mongo: insert order items: %w (cleanup: %v)", err, cleanupErr)
		}
		return nil, fmt.Errorf("mongo: insert order items: %w", err)
	}
	return out, nil
}

func (r *ItemRepository) Get(ctx context.Context, id string) (*domain.OrderItem, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	var doc itemDoc
	err = r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mongo: find order item %q: %w", id, err)
	}
	return itemFromDoc(&doc), nil
}

// GetMany resolves ids in the given order, like a populate.
func (r *ItemRepository) GetMany(ctx context.Context, ids []string) ([]domain.OrderItem, error) {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}
	if len(oids) == 0 {
		return []domain.OrderItem{}, nil
	}
	cur, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		return nil, fmt.Errorf("mongo: find order items: %w", err)
	}
	var docs []itemDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo: decode order items: %w", err)
	}
	byID := make(map[string]*itemDoc, len(docs))
	for i := range docs {
		byID[docs[i].ID.Hex()] = &docs[i]
	}
	out := make([]domain.OrderItem, 0, len(docs))
	for _, id := range ids {
		if d, ok := byID[id]; ok {
			out = append(out, *itemFromDoc(d))
		}
	}
	return out, nil
}

func (r *ItemRepository) Find(ctx context.Context, f domain.ItemFilter, page domain.PageRequest) ([]domain.OrderItem, error) {
	cur, err := r.coll.Find(ctx, itemFilter(f), pageOptions("createdAt", page.Skip(), page.Limit))
	if err != nil {
		return nil, fmt.Errorf("mongo: find order items: %w", err)
	}
	var docs []itemDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo: decode order items: %w", err)
	}
	items := make([]domain.OrderItem, len(docs))
	for i := range docs {
		items[i] = *itemFromDoc(&docs[i])
	}
	return items, nil
}

func (r *ItemRepository) Count(ctx context.Context, f domain.ItemFilter) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, itemFilter(f))
	if err != nil {
		return 0, fmt.Errorf("mongo: count order items: %w", err)
	}
	return n, nil
}

func (r *ItemRepository) Update(ctx context.Context, id string, u domain.ItemUpdate) (*domain.OrderItem, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	set := itemSet(u)
	set["updatedAt"] = time.Now().UTC()
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc itemDoc
	err = r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mongo: update order item %q: %w", id, err)
	}
	return itemFromDoc(&doc), nil
}

func (r *ItemRepository) UpdateMany(ctx context.Context, f domain.ItemFilter, u domain.ItemUpdate) (int64, error) {
	set := itemSet(u)
	if len(set) == 0 {
		return 0, nil
	}
	set["updatedAt"] = time.Now().UTC()
	res, err := r.coll.UpdateMany(ctx, itemFilter(f), bson.M{"$set": set})
	if err != nil {
		return 0, fmt.Errorf("mongo: update order items: %w", err)
	}
	return res.MatchedCount, nil
}

func (r *ItemRepository) Delete(ctx context.Context, id string) (*domain.OrderItem, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	var doc itemDoc
	err = r.coll.FindOneAndDelete(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mongo: delete order item %q: %w", id, err)
	}
	return itemFromDoc(&doc), nil
}

func (r *ItemRepository) DeleteMany(ctx context.Context, f domain.ItemFilter) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, itemFilter(f))
	if err != nil {
		return 0, fmt.Errorf("mongo: delete order items: %w", err)
	}
	return res.DeletedCount, nil
}

func (r *ItemRepository) Totals(ctx context.Context, f domain.ItemFilter) (domain.ItemTotals, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: itemFilter(f)}},
		{{Key: "$group", Value: bson.M{
			"_id":           nil,
			"totalRevenue":  bson.M{"$sum": bson.M{"$multiply": bson.A{"$price", "$quantity"}}},
			"totalQuantity": bson.M{"$sum": "$quantity"},
		}}},
	}
	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return domain.ItemTotals{}, fmt.Errorf("mongo: aggregate item totals: %w", err)
	}
	var out []struct {
		TotalRevenue  float64 `bson:"totalRevenue"`
		TotalQuantity int64   `bson:"totalQuantity"`
	}
	if err := cur.All(ctx, &out); err != nil {
		return domain.ItemTotals{}, fmt.Errorf("mongo: decode item totals: %w", err)
	}
	if len(out) == 0 {
		return domain.ItemTotals{}, nil
	}
	return domain.ItemTotals{Revenue: out[0].TotalRevenue, Quantity: out[0].TotalQuantity}, nil
}
