package handlers

import (
	"context"
	"time"

	zlog "github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"estore/internal/models"
)

// validateCartForOrder re-fetches every product in the cart and builds the
// order line snapshots from live variant prices. The first failing line
// aborts the whole placement; nothing is mutated here. There is no isolation
// against concurrent orders, the conditional decrements in
// applyStockDecrements are the real guard.
func validateCartForOrder(ctx context.Context, db *mongo.Database, items []models.CartItem) ([]models.OrderItem, float64, error) {
	ids := make([]primitive.ObjectID, 0, len(items))
	seen := map[primitive.ObjectID]bool{}
	for _, item := range items {
		if !seen[item.ProductID] {
			seen[item.ProductID] = true
			ids = append(ids, item.ProductID)
		}
	}

	cur, err := db.Collection("products").Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, 0, err
	}
	var products []models.Product
	if err := cur.All(ctx, &products); err != nil {
		return nil, 0, err
	}
	byID := make(map[primitive.ObjectID]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	return snapshotOrderLines(items, byID)
}

// snapshotOrderLines builds the order line snapshots for a cart against the
// given product set. The returned total is exactly the sum of each line's
// captured price times its quantity; a missing product or variant, or a line
// asking for more than the available stock, fails the whole cart.
func snapshotOrderLines(items []models.CartItem, byID map[primitive.ObjectID]models.Product) ([]models.OrderItem, float64, error) {
	orderItems := make([]models.OrderItem, 0, len(items))
	total := 0.0

	for _, line := range items {
		product, ok := byID[line.ProductID]
		if !ok {
			return nil, 0, productNotFoundError{ProductID: line.ProductID}
		}
		variant, ok := product.VariantByID(line.VariantID)
		if !ok {
			return nil, 0, variantNotFoundError{ProductID: line.ProductID, VariantID: line.VariantID}
		}
		if variant.Stock < line.Quantity {
			return nil, 0, outOfStockError{
				ProductID: line.ProductID,
				VariantID: line.VariantID,
				Available: variant.Stock,
				Requested: line.Quantity,
			}
		}

		image := line.ImageAtTime
		if len(product.ImageURLs) > 0 {
			image = product.ImageURLs[0]
		}
		orderItems = append(orderItems, models.OrderItem{
			ID:          primitive.NewObjectID(),
			ProductID:   line.ProductID,
			VariantID:   line.VariantID,
			Quantity:    line.Quantity,
			NameAtTime:  product.Name,
			ImageAtTime: image,
			PriceAtTime: variant.Price,
			SizeAtTime:  variant.Size,
			ColorAtTime: variant.Color,
		})
		total += variant.Price * float64(line.Quantity)
	}

	return orderItems, total, nil
}

// applyStockDecrements decrements stock one variant at a time with a
// conditional update, recording each applied decrement on the intent before
// moving to the next. If a decrement misses (another order got the stock
// first) every applied decrement is compensated and the placement fails.
func applyStockDecrements(ctx context.Context, db *mongo.Database, intentID primitive.ObjectID, items []models.OrderItem) error {
	products := db.Collection("products")
	intents := db.Collection("order_intents")

	applied := make([]models.IntentItem, 0, len(items))
	for _, item := range items {
		filter := bson.M{
			"_id": item.ProductID,
			"variants": bson.M{"$elemMatch": bson.M{
				"_id":   item.VariantID,
				"stock": bson.M{"$gte": item.Quantity},
			}},
		}
		update := bson.M{"$inc": bson.M{"variants.$.stock": -item.Quantity}}

		res, err := products.UpdateOne(ctx, filter, update)
		if err == nil && res.MatchedCount == 0 {
			err = outOfStockError{
				ProductID: item.ProductID,
				VariantID: item.VariantID,
				Requested: item.Quantity,
			}
		}
		if err != nil {
			compensateDecrements(ctx, db, applied)
			return err
		}

		decrement := models.IntentItem{ProductID: item.ProductID, VariantID: item.VariantID, Quantity: item.Quantity}
		applied = append(applied, decrement)

		// Record the applied decrement so a crash right here is repairable
		// by the reconciliation sweep.
		if _, err := intents.UpdateOne(ctx,
			bson.M{"_id": intentID},
			bson.M{"$push": bson.M{"applied": decrement}},
		); err != nil {
			compensateDecrements(ctx, db, applied)
			return err
		}
	}
	return nil
}

// compensateDecrements restores stock for decrements that already landed.
// Failures are logged; the reconciliation sweep is the backstop.
func compensateDecrements(ctx context.Context, db *mongo.Database, applied []models.IntentItem) {
	for _, item := range applied {
		_, err := db.Collection("products").UpdateOne(ctx,
			bson.M{"_id": item.ProductID, "variants._id": item.VariantID},
			bson.M{"$inc": bson.M{"variants.$.stock": item.Quantity}},
		)
		if err != nil {
			zlog.Error().Err(err).
				Str("productId", item.ProductID.Hex()).
				Str("variantId", item.VariantID.Hex()).
				Int("quantity", item.Quantity).
				Msg("stock compensation failed, awaiting reconciliation sweep")
		}
	}
}

// ReconcileDanglingIntents repairs placements that crashed between the stock
// decrement and the order insert. An intent older than cutoff either has a
// matching order (placement finished, the intent is stale bookkeeping) or it
// does not, in which case its applied decrements are reversed. The intent is
// deleted in both cases.
func ReconcileDanglingIntents(ctx context.Context, db *mongo.Database, cutoff time.Duration) error {
	intents := db.Collection("order_intents")

	cur, err := intents.Find(ctx, bson.M{"createdAt": bson.M{"$lt": time.Now().Add(-cutoff)}})
	if err != nil {
		return err
	}
	var dangling []models.OrderIntent
	if err := cur.All(ctx, &dangling); err != nil {
		return err
	}

	for _, intent := range dangling {
		count, err := db.Collection("orders").CountDocuments(ctx, bson.M{"intentId": intent.ID})
		if err != nil {
			return err
		}
		if count == 0 && len(intent.Applied) > 0 {
			compensateDecrements(ctx, db, intent.Applied)
			zlog.Warn().Str("intentId", intent.ID.Hex()).
				Int("decrements", len(intent.Applied)).
				Msg("reversed stock for abandoned placement")
		}
		if _, err := intents.DeleteOne(ctx, bson.M{"_id": intent.ID}); err != nil {
			return err
		}
	}
	return nil
}

// RunIntentSweeper runs ReconcileDanglingIntents on an interval until the
// context is cancelled.
func RunIntentSweeper(ctx context.Context, db *mongo.Database, interval, cutoff time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := ReconcileDanglingIntents(ctx, db, cutoff); err != nil {
				zlog.Error().Err(err).Msg("intent reconciliation failed")
			}
		}
	}
}
