package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	zlog "github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"estore/internal/database"
	"estore/internal/models"
	"estore/internal/queue"
)

type createOrderRequest struct {
	ShippingAddress models.ShippingAddress `json:"shippingAddress" binding:"required"`
	PaymentMethod   string                 `json:"paymentMethod" binding:"required"`
}

type updateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// CreateOrder places an order from the server-side cart. Clients submit only
// a shipping address and payment method; line items and totals are always
// derived from the stored cart against live product state.
func CreateOrder(db *mongo.Database, q *queue.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /orders"
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

		var req createOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}
		if req.PaymentMethod != "card" && req.PaymentMethod != "cash" {
			respondWithError(c, http.StatusBadRequest, route, "invalid payment method")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		cart, err := findOrCreateCart(ctx, db, userID)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if len(cart.Items) == 0 {
			respondWithError(c, http.StatusBadRequest, route, "cart is empty")
			return
		}

		items, total, err := validateCartForOrder(ctx, db, cart.Items)
		if err != nil {
			respondOrderError(c, route, err)
			return
		}

		// The intent is written before any stock moves so a crash mid-way
		// leaves a record the reconciliation sweep can act on.
		intent := models.OrderIntent{
			UserID:    userID,
			Items:     intentItems(items),
			Applied:   []models.IntentItem{},
			CreatedAt: time.Now(),
		}
		intentRes, err := db.Collection("order_intents").InsertOne(ctx, intent)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		intentID := intentRes.InsertedID.(primitive.ObjectID)

		if err := applyStockDecrements(ctx, db, intentID, items); err != nil {
			if _, delErr := db.Collection("order_intents").DeleteOne(ctx, bson.M{"_id": intentID}); delErr != nil {
				zlog.Error().Err(delErr).Str("intentId", intentID.Hex()).Msg("failed to delete placement intent")
			}
			respondOrderError(c, route, err)
			return
		}

		orderNumber, err := database.NextSequenceValue(ctx, db, models.OrderNumberSequence)
		if err != nil {
			abortPlacement(ctx, db, intentID, items)
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		now := time.Now()
		order := models.Order{
			UserID:          userID,
			OrderNumber:     orderNumber,
			Items:           items,
			ShippingAddress: req.ShippingAddress,
			PaymentMethod:   req.PaymentMethod,
			TotalAmount:     total,
			Status:          models.OrderPending,
			IntentID:        &intentID,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		orderRes, err := db.Collection("orders").InsertOne(ctx, order)
		if err != nil {
			abortPlacement(ctx, db, intentID, items)
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if id, ok := orderRes.InsertedID.(primitive.ObjectID); ok {
			order.ID = id
		}

		if err := saveCartItems(ctx, db, cart.ID, []models.CartItem{}); err != nil {
			zlog.Error().Err(err).Str("orderId", order.ID.Hex()).Msg("failed to clear cart after placement")
		}
		if _, err := db.Collection("order_intents").DeleteOne(ctx, bson.M{"_id": intentID}); err != nil {
			zlog.Error().Err(err).Str("intentId", intentID.Hex()).Msg("failed to delete placement intent")
		}

		enqueueOrderEmail(ctx, db, q, queue.OrderEmailQueue, order)

		zlog.Info().Str("orderId", order.ID.Hex()).Int64("orderNumber", order.OrderNumber).
			Str("userId", userID.Hex()).Msg("order created")

		c.JSON(http.StatusCreated, gin.H{"success": true, "order": order})
	}
}

// abortPlacement reverses every decrement of a failed placement and retires
// its intent.
func abortPlacement(ctx context.Context, db *mongo.Database, intentID primitive.ObjectID, items []models.OrderItem) {
	compensateDecrements(ctx, db, intentItems(items))
	if _, err := db.Collection("order_intents").DeleteOne(ctx, bson.M{"_id": intentID}); err != nil {
		zlog.Error().Err(err).Str("intentId", intentID.Hex()).Msg("failed to delete placement intent")
	}
}

func intentItems(items []models.OrderItem) []models.IntentItem {
	out := make([]models.IntentItem, len(items))
	for i, item := range items {
		out[i] = models.IntentItem{ProductID: item.ProductID, VariantID: item.VariantID, Quantity: item.Quantity}
	}
	return out
}

func respondOrderError(c *gin.Context, route string, err error) {
	var stockErr outOfStockError
	if errors.As(err, &stockErr) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"success":   false,
			"message":   "insufficient stock",
			"productId": stockErr.ProductID.Hex(),
			"variantId": stockErr.VariantID.Hex(),
			"available": stockErr.Available,
			"requested": stockErr.Requested,
		})
		return
	}
	var notFoundErr productNotFoundError
	if errors.As(err, &notFoundErr) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
			"success":   false,
			"message":   "product not found",
			"productId": notFoundErr.ProductID.Hex(),
		})
		return
	}
	var variantErr variantNotFoundError
	if errors.As(err, &variantErr) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
			"success":   false,
			"message":   "variant not found",
			"productId": variantErr.ProductID.Hex(),
			"variantId": variantErr.VariantID.Hex(),
		})
		return
	}
	respondWithError(c, http.StatusInternalServerError, route, "db error")
}

// enqueueOrderEmail publishes an email job for the order. Failures are
// logged and swallowed, a missing email provider never fails the request
// that triggered it.
func enqueueOrderEmail(ctx context.Context, db *mongo.Database, q *queue.Client, queueName string, order models.Order) {
	if q == nil {
		return
	}

	var user models.User
	err := db.Collection("users").FindOne(ctx, bson.M{"_id": order.UserID}).Decode(&user)
	if err != nil || user.Email == "" {
		zlog.Warn().Err(err).Str("userId", order.UserID.Hex()).Msg("no email address for order notification")
		return
	}

	job := queue.EmailJob{
		To: user.Email,
		Order: &queue.EmailOrder{
			ID:              order.ID,
			OrderNumber:     order.OrderNumber,
			Status:          order.Status,
			Items:           order.Items,
			TotalAmount:     order.TotalAmount,
			ShippingAddress: order.ShippingAddress,
			CreatedAt:       order.CreatedAt,
			UpdatedAt:       order.UpdatedAt,
		},
	}
	if err := q.Publish(ctx, queueName, job); err != nil {
		zlog.Error().Err(err).Str("orderId", order.ID.Hex()).Str("queue", queueName).
			Msg("failed to enqueue order email")
	}
}

// GetUserOrders lists the caller's orders, newest first.
func GetUserOrders(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /orders"
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

		page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid pagination params")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		filter := bson.M{"userId": userID}
		opts := options.Find().
			SetSort(bson.M{"createdAt": -1}).
			SetSkip((page - 1) * limit).
			SetLimit(limit)

		cursor, err := db.Collection("orders").Find(ctx, filter, opts)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		var orders []models.Order
		if err := cursor.All(ctx, &orders); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		total, err := db.Collection("orders").CountDocuments(ctx, filter)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"orders":  orders,
			"page":    page,
			"limit":   limit,
			"total":   total,
		})
	}
}

// GetOrderByID returns one order; only the owner may read it.
func GetOrderByID(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /orders/:id"
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

		orderID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid order id")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var order models.Order
		err = db.Collection("orders").FindOne(ctx, bson.M{"_id": orderID, "userId": userID}).Decode(&order)
		if err == mongo.ErrNoDocuments {
			respondWithError(c, http.StatusNotFound, route, "order not found")
			return
		}
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "order": order})
	}
}

// UpdateOrderStatus moves an order to a new status and enqueues a status
// email. Non-admin callers may only touch their own orders.
func UpdateOrderStatus(db *mongo.Database, q *queue.Client, adminOverride bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PATCH /orders/:id/status"
		defer handlePanic(c, route)

		if err := ensureDBConnection(c.Request.Context(), db); err != nil {
			respondWithError(c, http.StatusServiceUnavailable, route, "database unavailable")
			return
		}

		filter := bson.M{}
		if !adminOverride {
			userID, ok := userIDFromContext(c)
			if !ok {
				respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
				return
			}
			filter["userId"] = userID
		}

		orderID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid order id")
			return
		}
		filter["_id"] = orderID

		var req updateOrderStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}
		target := models.OrderStatus(req.Status)
		if !target.Valid() {
			respondWithError(c, http.StatusBadRequest, route, "invalid status")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var order models.Order
		err = db.Collection("orders").FindOne(ctx, filter).Decode(&order)
		if err == mongo.ErrNoDocuments {
			respondWithError(c, http.StatusNotFound, route, "order not found")
			return
		}
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		if !order.Status.CanTransitionTo(target) {
			respondWithError(c, http.StatusBadRequest, route, "invalid status transition")
			return
		}

		now := time.Now()
		_, err = db.Collection("orders").UpdateOne(ctx,
			bson.M{"_id": order.ID},
			bson.M{"$set": bson.M{"status": target, "updatedAt": now}},
		)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		order.Status = target
		order.UpdatedAt = now

		enqueueOrderEmail(ctx, db, q, queue.OrderStatusEmailQueue, order)

		zlog.Info().Str("orderId", order.ID.Hex()).Str("status", string(target)).Msg("order status updated")

		c.JSON(http.StatusOK, gin.H{"success": true, "order": order})
	}
}

// AdminListOrders lists all orders with optional status filter.
func AdminListOrders(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /admin/orders"
		defer handlePanic(c, route)

		if err := ensureDBConnection(c.Request.Context(), db); err != nil {
			respondWithError(c, http.StatusServiceUnavailable, route, "database unavailable")
			return
		}

		page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid pagination params")
			return
		}

		filter := bson.M{}
		if status := c.Query("status"); status != "" {
			target := models.OrderStatus(status)
			if !target.Valid() {
				respondWithError(c, http.StatusBadRequest, route, "invalid status")
				return
			}
			filter["status"] = target
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		opts := options.Find().
			SetSort(bson.M{"createdAt": -1}).
			SetSkip((page - 1) * limit).
			SetLimit(limit)

		cursor, err := db.Collection("orders").Find(ctx, filter, opts)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		var orders []models.Order
		if err := cursor.All(ctx, &orders); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		total, err := db.Collection("orders").CountDocuments(ctx, filter)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"orders":  orders,
			"page":    page,
			"limit":   limit,
			"total":   total,
		})
	}
}

// OrderMetrics aggregates order counts per status and total revenue.
func OrderMetrics(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /admin/orders/metrics"
		defer handlePanic(c, route)

		if err := ensureDBConnection(c.Request.Context(), db); err != nil {
			respondWithError(c, http.StatusServiceUnavailable, route, "database unavailable")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		pipeline := mongo.Pipeline{
			{{Key: "$group", Value: bson.M{
				"_id":     "$status",
				"count":   bson.M{"$sum": 1},
				"revenue": bson.M{"$sum": "$totalAmount"},
			}}},
		}
		cursor, err := db.Collection("orders").Aggregate(ctx, pipeline)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		var rows []struct {
			Status  models.OrderStatus `bson:"_id"`
			Count   int64              `bson:"count"`
			Revenue float64            `bson:"revenue"`
		}
		if err := cursor.All(ctx, &rows); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		byStatus := gin.H{}
		var totalOrders int64
		var totalRevenue float64
		for _, row := range rows {
			byStatus[string(row.Status)] = gin.H{"count": row.Count, "revenue": row.Revenue}
			totalOrders += row.Count
			if row.Status != models.OrderCancelled {
				totalRevenue += row.Revenue
			}
		}

		recentOpts := options.Find().SetSort(bson.M{"createdAt": -1}).SetLimit(5)
		recentCursor, err := db.Collection("orders").Find(ctx, bson.M{}, recentOpts)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		var recent []models.Order
		if err := recentCursor.All(ctx, &recent); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":      true,
			"byStatus":     byStatus,
			"totalOrders":  totalOrders,
			"totalRevenue": totalRevenue,
			"recentOrders": recent,
		})
	}
}
