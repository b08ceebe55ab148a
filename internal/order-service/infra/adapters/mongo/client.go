// Package mongo is the document-store backend for orders and order items.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	ordersCollection = "orders"
	itemsCollection  = "orderitems"
)

// Client wraps a connected driver client and the service database.
type Client struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect dials uri, pings the primary and makes sure the indexes exist.
func Connect(ctx context.Context, uri, database string) (*Client, error) {
	cli, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := cli.Ping(pingCtx, nil); err != nil {
		_ = cli.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}
	c := &Client{client: cli, db: cli.Database(database)}
	if err := c.ensureIndexes(ctx); err != nil {
		_ = cli.Disconnect(context.Background())
		return nil, err
	}
	return c, nil
}

func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

func (c *Client) Orders() *OrderRepository {
	return &OrderRepository{coll: c.db.Collection(ordersCollection)}
}

func (c *Client) Items() *ItemRepository {
	return &ItemRepository{coll: c.db.Collection(itemsCollection)}
}

func (c *Client) ensureIndexes(ctx context.Context) error {
	_, err := c.db.Collection(ordersCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "date", Value: -1}}},
		{Keys: bson.D{{Key: "cancelled", Value: 1}, {Key: "payment", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("mongo: create order indexes: %w", err)
	}
	_, err = c.db.Collection(itemsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "orderId", Value: 1}}},
		{Keys: bson.D{{Key: "restaurantId", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("mongo: create item indexes: %w", err)
	}
	return nil
}

// pageOptions converts a page window into find options sorted by field desc.
func pageOptions(sortField string, skip int64, limit int) *options.FindOptions {
	opts := options.Find().SetSort(bson.D{{Key: sortField, Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetSkip(skip).SetLimit(int64(limit))
	}
	return opts
}
