package search

import (
	"context"
	"time"

	zlog "github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"estore/internal/models"
)

// Search sync is decoupled from writes through an outbox collection: request
// handlers enqueue an event in the same database as the product write, and a
// background drainer replays events against the index. Events carry only the
// operation and product id; the drainer reads the current document, so a
// stale event can never overwrite a newer product state.

const outboxCollection = "search_outbox"

const (
	opUpsert = "upsert"
	opDelete = "delete"
)

type outboxEvent struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Op        string             `bson:"op"`
	ProductID primitive.ObjectID `bson:"productId"`
	CreatedAt time.Time          `bson:"createdAt"`
}

// EnqueueUpsert records that the product needs (re)indexing. Failures are
// logged, not returned: search staleness must never fail the write that
// triggered it.
func EnqueueUpsert(ctx context.Context, db *mongo.Database, productID primitive.ObjectID) {
	enqueue(ctx, db, opUpsert, productID)
}

// EnqueueDelete records that the product must be removed from the index.
func EnqueueDelete(ctx context.Context, db *mongo.Database, productID primitive.ObjectID) {
	enqueue(ctx, db, opDelete, productID)
}

func enqueue(ctx context.Context, db *mongo.Database, op string, productID primitive.ObjectID) {
	_, err := db.Collection(outboxCollection).InsertOne(ctx, outboxEvent{
		Op:        op,
		ProductID: productID,
		CreatedAt: time.Now(),
	})
	if err != nil {
		zlog.Error().Err(err).Str("op", op).Str("productId", productID.Hex()).
			Msg("failed to enqueue search outbox event")
	}
}

// Drain replays pending outbox events oldest-first. An event is deleted only
// after the index call succeeds; a failing event stops the pass so ordering
// per product is preserved and the event is retried on the next pass.
func (c *Client) Drain(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection(outboxCollection)
	opts := options.Find().SetSort(bson.M{"createdAt": 1}).SetLimit(100)
	cur, err := coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return err
	}
	var events []outboxEvent
	if err := cur.All(ctx, &events); err != nil {
		return err
	}

	for _, ev := range events {
		if err := c.apply(ctx, db, ev); err != nil {
			return err
		}
		if _, err := coll.DeleteOne(ctx, bson.M{"_id": ev.ID}); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) apply(ctx context.Context, db *mongo.Database, ev outboxEvent) error {
	if ev.Op == opDelete {
		return c.Delete(ev.ProductID.Hex())
	}

	var product models.Product
	err := db.Collection("products").FindOne(ctx, bson.M{"_id": ev.ProductID}).Decode(&product)
	if err == mongo.ErrNoDocuments {
		// Product deleted after the upsert was enqueued; remove it instead.
		return c.Delete(ev.ProductID.Hex())
	}
	if err != nil {
		return err
	}
	return c.Upsert(&product)
}

// RunDrainer drains on a fixed interval until the context is cancelled.
func (c *Client) RunDrainer(ctx context.Context, db *mongo.Database, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Drain(ctx, db); err != nil {
				zlog.Error().Err(err).Msg("search outbox drain failed")
			}
		}
	}
}
