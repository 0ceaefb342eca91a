package database

import (
	"context"
	"time"

	zlog "github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func EnsureProductIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("products").Indexes()

	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name", Value: 1}},
			Options: options.Index().SetName("name_index"),
		},
		{
			Keys:    bson.D{{Key: "isFeatured", Value: 1}},
			Options: options.Index().SetName("isFeatured_index"),
		},
		{
			Keys: bson.D{{Key: "imageRenditions.uploadId", Value: 1}},
			Options: options.Index().
				SetName("rendition_uploadId_index").
				SetSparse(true),
		},
	}

	_, err := indexes.CreateMany(ctx, indexModels)
	if err != nil {
		zlog.Error().Err(err).Msg("EnsureProductIndexes failed")
		return err
	}
	return nil
}

func EnsureCartIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("carts").Indexes()

	userIDIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}},
		Options: options.Index().
			SetName("userId_unique").
			SetUnique(true),
	}

	_, err := indexes.CreateOne(ctx, userIDIndex)
	if err != nil {
		zlog.Error().Err(err).Msg("EnsureCartIndexes failed")
		return err
	}
	return nil
}

func EnsureOrderIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("orders").Indexes()

	indexModels := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "orderNumber", Value: 1}},
			Options: options.Index().
				SetName("orderNumber_unique").
				SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("userId_createdAt_index"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("status_createdAt_index"),
		},
	}

	_, err := indexes.CreateMany(ctx, indexModels)
	if err != nil {
		zlog.Error().Err(err).Msg("EnsureOrderIndexes failed")
		return err
	}
	return nil
}

func EnsureOutboxIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("search_outbox").Indexes()

	createdAtIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "createdAt", Value: 1}},
		Options: options.Index().SetName("createdAt_index"),
	}

	_, err := indexes.CreateOne(ctx, createdAtIndex)
	if err != nil {
		zlog.Error().Err(err).Msg("EnsureOutboxIndexes failed")
		return err
	}
	return nil
}
