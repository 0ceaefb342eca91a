package database

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"estore/internal/models"
)

// NextSequenceValue atomically increments the named counter and returns the
// new value. The upsert makes the first call create the counter; the storage
// engine's per-document atomicity is what guarantees two concurrent callers
// never see the same value.
func NextSequenceValue(ctx context.Context, db *mongo.Database, sequenceName string) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var counter models.Counter
	err := db.Collection("counters").FindOneAndUpdate(
		ctx,
		bson.M{"_id": sequenceName},
		bson.M{"$inc": bson.M{"seq": 1}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, err
	}

	return counter.Seq, nil
}

// SeedSequence inserts the counter with seq 0 if it does not exist yet, so
// the first issued order number is 1 regardless of which process asks first.
func SeedSequence(db *mongo.Database, sequenceName string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := db.Collection("counters").UpdateOne(
		ctx,
		bson.M{"_id": sequenceName},
		bson.M{"$setOnInsert": bson.M{"seq": int64(0)}},
		options.Update().SetUpsert(true),
	)
	return err
}
