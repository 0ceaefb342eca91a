package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"estore/internal/models"
)

type addToCartRequest struct {
	ProductID string `json:"productId" binding:"required"`
	VariantID string `json:"variantId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required"`
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

func cartResponse(cart models.Cart) gin.H {
	return gin.H{
		"success":    true,
		"cart":       cart,
		"subtotal":   cart.Subtotal(),
		"totalItems": cart.TotalItems(),
	}
}

// GetCart returns the user's cart with snapshots revalidated against the
// live catalog. Stale prices and vanished variants are fixed in place.
func GetCart(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /cart"
		defer handlePanic(c, route)

		if err := ensureDBConnection(c.Request.Context(), db); err != nil {
			respondWithError(c, http.StatusServiceUnavailable, route, "database unavailable")
			return
		}

		userID, ok := userIDFromContext(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		cart, err := findOrCreateCart(ctx, db, userID)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		items, changed, err := revalidateItems(ctx, db, cart.Items)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if changed {
			cart.Items = items
			if err := saveCartItems(ctx, db, cart.ID, items); err != nil {
				respondWithError(c, http.StatusInternalServerError, route, "db error")
				return
			}
		}

		c.JSON(http.StatusOK, cartResponse(cart))
	}
}

// AddToCart adds a variant to the cart, merging quantity into an existing
// line for the same product+variant.
func AddToCart(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /cart/items"
		defer handlePanic(c, route)

		if err := ensureDBConnection(c.Request.Context(), db); err != nil {
			respondWithError(c, http.StatusServiceUnavailable, route, "database unavailable")
			return
		}

		userID, ok := userIDFromContext(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		var req addToCartRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Quantity <= 0 {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}

		productID, err := primitive.ObjectIDFromHex(req.ProductID)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid productId")
			return
		}
		variantID, err := primitive.ObjectIDFromHex(req.VariantID)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid variantId")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var product models.Product
		err = db.Collection("products").FindOne(ctx, bson.M{"_id": productID}).Decode(&product)
		if err == mongo.ErrNoDocuments {
			respondWithError(c, http.StatusNotFound, route, "product not found")
			return
		}
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		variant, ok := product.VariantByID(variantID)
		if !ok {
			respondWithError(c, http.StatusNotFound, route, "variant not found")
			return
		}

		cart, err := findOrCreateCart(ctx, db, userID)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		idx := findCartItem(cart.Items, productID, variantID)
		requested := req.Quantity
		if idx >= 0 {
			requested += cart.Items[idx].Quantity
		}
		if variant.Stock < requested {
			c.JSON(http.StatusBadRequest, gin.H{
				"success":   false,
				"message":   "insufficient stock",
				"available": variant.Stock,
				"requested": requested,
			})
			return
		}

		if idx >= 0 {
			cart.Items[idx].Quantity = requested
			snapshotItem(&cart.Items[idx], product, variant)
		} else {
			item := models.CartItem{
				ID:        primitive.NewObjectID(),
				ProductID: productID,
				VariantID: variantID,
				Quantity:  req.Quantity,
				AddedAt:   time.Now(),
			}
			snapshotItem(&item, product, variant)
			cart.Items = append(cart.Items, item)
		}

		if err := saveCartItems(ctx, db, cart.ID, cart.Items); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, cartResponse(cart))
	}
}

// UpdateCartItem changes the quantity of one cart line.
func UpdateCartItem(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /cart/items/:itemId"
		defer handlePanic(c, route)

		if err := ensureDBConnection(c.Request.Context(), db); err != nil {
			respondWithError(c, http.StatusServiceUnavailable, route, "database unavailable")
			return
		}

		userID, ok := userIDFromContext(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		itemID, err := primitive.ObjectIDFromHex(c.Param("itemId"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid itemId")
			return
		}

		var req updateCartItemRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Quantity <= 0 {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		cart, err := findOrCreateCart(ctx, db, userID)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		idx := -1
		for i, item := range cart.Items {
			if item.ID == itemID {
				idx = i
				break
			}
		}
		if idx < 0 {
			respondWithError(c, http.StatusNotFound, route, "cart item not found")
			return
		}

		var product models.Product
		err = db.Collection("products").FindOne(ctx, bson.M{"_id": cart.Items[idx].ProductID}).Decode(&product)
		if err == mongo.ErrNoDocuments {
			respondWithError(c, http.StatusNotFound, route, "product not found")
			return
		}
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		variant, ok := product.VariantByID(cart.Items[idx].VariantID)
		if !ok {
			respondWithError(c, http.StatusNotFound, route, "variant not found")
			return
		}
		if variant.Stock < req.Quantity {
			c.JSON(http.StatusBadRequest, gin.H{
				"success":   false,
				"message":   "insufficient stock",
				"available": variant.Stock,
				"requested": req.Quantity,
			})
			return
		}

		cart.Items[idx].Quantity = req.Quantity
		snapshotItem(&cart.Items[idx], product, variant)

		if err := saveCartItems(ctx, db, cart.ID, cart.Items); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, cartResponse(cart))
	}
}

// RemoveCartItem deletes one line from the cart.
func RemoveCartItem(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /cart/items/:itemId"
		defer handlePanic(c, route)

		if err := ensureDBConnection(c.Request.Context(), db); err != nil {
			respondWithError(c, http.StatusServiceUnavailable, route, "database unavailable")
			return
		}

		userID, ok := userIDFromContext(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		itemID, err := primitive.ObjectIDFromHex(c.Param("itemId"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid itemId")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		cart, err := findOrCreateCart(ctx, db, userID)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		kept := cart.Items[:0]
		removed := false
		for _, item := range cart.Items {
			if item.ID == itemID {
				removed = true
				continue
			}
			kept = append(kept, item)
		}
		if !removed {
			respondWithError(c, http.StatusNotFound, route, "cart item not found")
			return
		}
		cart.Items = kept

		if err := saveCartItems(ctx, db, cart.ID, cart.Items); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, cartResponse(cart))
	}
}

// ClearCart empties the cart.
func ClearCart(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /cart"
		defer handlePanic(c, route)

		if err := ensureDBConnection(c.Request.Context(), db); err != nil {
			respondWithError(c, http.StatusServiceUnavailable, route, "database unavailable")
			return
		}

		userID, ok := userIDFromContext(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		cart, err := findOrCreateCart(ctx, db, userID)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		cart.Items = []models.CartItem{}
		if err := saveCartItems(ctx, db, cart.ID, cart.Items); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, cartResponse(cart))
	}
}
