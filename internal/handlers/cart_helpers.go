package handlers

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"estore/internal/models"
)

// findOrCreateCart returns the user's cart, creating an empty one on first
// access. The unique index on userId makes the upsert race-safe.
func findOrCreateCart(ctx context.Context, db *mongo.Database, userID primitive.ObjectID) (models.Cart, error) {
	carts := db.Collection("carts")

	var cart models.Cart
	err := carts.FindOne(ctx, bson.M{"userId": userID}).Decode(&cart)
	if err == nil {
		return cart, nil
	}
	if err != mongo.ErrNoDocuments {
		return models.Cart{}, err
	}

	now := time.Now()
	cart = models.Cart{UserID: userID, Items: []models.CartItem{}, CreatedAt: now, UpdatedAt: now}
	res, insertErr := carts.InsertOne(ctx, cart)
	if insertErr != nil {
		if mongo.IsDuplicateKeyError(insertErr) {
			err = carts.FindOne(ctx, bson.M{"userId": userID}).Decode(&cart)
			return cart, err
		}
		return models.Cart{}, insertErr
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		cart.ID = id
	}
	return cart, nil
}

// findCartItem returns the index of the line matching product+variant, or -1.
func findCartItem(items []models.CartItem, productID, variantID primitive.ObjectID) int {
	for i, item := range items {
		if item.ProductID == productID && item.VariantID == variantID {
			return i
		}
	}
	return -1
}

// snapshotItem captures the live product/variant state onto a cart line.
func snapshotItem(item *models.CartItem, product models.Product, variant models.Variant) {
	item.PriceAtTime = variant.Price
	item.NameAtTime = product.Name
	item.SizeAtTime = variant.Size
	item.ColorAtTime = variant.Color
	if len(product.ImageURLs) > 0 {
		item.ImageAtTime = product.ImageURLs[0]
	} else {
		item.ImageAtTime = ""
	}
}

// revalidateItems refreshes snapshots against the live catalog and prunes
// lines whose product or variant no longer exists or has zero stock.
// Quantities are clamped to available stock. Returns the surviving lines and
// whether anything changed.
func revalidateItems(ctx context.Context, db *mongo.Database, items []models.CartItem) ([]models.CartItem, bool, error) {
	if len(items) == 0 {
		return items, false, nil
	}

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
		return nil, false, err
	}
	var products []models.Product
	if err := cur.All(ctx, &products); err != nil {
		return nil, false, err
	}
	byID := make(map[primitive.ObjectID]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	changed := false
	kept := make([]models.CartItem, 0, len(items))
	for _, item := range items {
		product, ok := byID[item.ProductID]
		if !ok {
			changed = true
			continue
		}
		variant, ok := product.VariantByID(item.VariantID)
		if !ok || variant.Stock <= 0 {
			changed = true
			continue
		}
		if item.Quantity > variant.Stock {
			item.Quantity = variant.Stock
			changed = true
		}
		before := item
		snapshotItem(&item, product, variant)
		if item != before {
			changed = true
		}
		kept = append(kept, item)
	}
	return kept, changed, nil
}

func saveCartItems(ctx context.Context, db *mongo.Database, cartID primitive.ObjectID, items []models.CartItem) error {
	_, err := db.Collection("carts").UpdateOne(ctx,
		bson.M{"_id": cartID},
		bson.M{"$set": bson.M{"items": items, "updatedAt": time.Now()}},
	)
	return err
}
