package main

import (
	"context"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"estore/internal/config"
	"estore/internal/database"
	"estore/internal/handlers"
	"estore/internal/middleware"
	"estore/internal/models"
	"estore/internal/queue"
	"estore/internal/search"
	"estore/internal/storage"
	"estore/internal/ws"
)

func main() {
	zlog.Logger = zlog.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	config.Load()

	client, err := database.Connect(config.AppEnv.MongoURI)
	if err != nil {
		zlog.Fatal().Err(err).Msg("mongodb connect failed")
	}
	db := client.Database(config.AppEnv.DBName)
	zlog.Info().Str("db", db.Name()).Msg("mongodb connected")

	if err := database.EnsureProductIndexes(db); err != nil {
		zlog.Warn().Err(err).Msg("product index warning")
	}
	if err := database.EnsureCartIndexes(db); err != nil {
		zlog.Warn().Err(err).Msg("cart index warning")
	}
	if err := database.EnsureOrderIndexes(db); err != nil {
		zlog.Warn().Err(err).Msg("order index warning")
	}
	if err := database.EnsureOutboxIndexes(db); err != nil {
		zlog.Warn().Err(err).Msg("outbox index warning")
	}
	if err := database.SeedSequence(db, models.OrderNumberSequence); err != nil {
		zlog.Fatal().Err(err).Msg("order sequence seed failed")
	}

	q, err := queue.Dial(config.AppEnv.AMQPURL, config.AppEnv.QueueConnectRetries, config.AppEnv.QueueConnectDelay)
	if err != nil {
		zlog.Fatal().Err(err).Msg("queue connect failed")
	}
	defer q.Close()

	store, err := storage.New(storage.Options{
		Endpoint:  config.AppEnv.StorageEndpoint,
		AccessKey: config.AppEnv.StorageAccessKey,
		SecretKey: config.AppEnv.StorageSecretKey,
		Bucket:    config.AppEnv.StorageBucket,
		PublicURL: config.AppEnv.StoragePublicURL,
		UseSSL:    config.AppEnv.StorageUseSSL,
	})
	if err != nil {
		zlog.Fatal().Err(err).Msg("object storage connect failed")
	}
	if err := store.EnsureBucket(context.Background()); err != nil {
		zlog.Warn().Err(err).Msg("bucket check failed")
	}

	searchClient := search.New(config.AppEnv.MeiliHost, config.AppEnv.MeiliMasterKey)
	hub := ws.NewHub()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Abandoned placement intents are repaired once at boot, then on a timer.
	if err := handlers.ReconcileDanglingIntents(ctx, db, config.AppEnv.IntentSweepCutoff); err != nil {
		zlog.Warn().Err(err).Msg("startup intent reconciliation failed")
	}
	go handlers.RunIntentSweeper(ctx, db, config.AppEnv.IntentSweepInterval, config.AppEnv.IntentSweepCutoff)
	go searchClient.RunDrainer(ctx, db, config.AppEnv.OutboxDrainInterval)

	secret := config.AppEnv.JWTSecret

	r := gin.Default()

	r.GET("/products", handlers.ListProducts(db))
	r.GET("/products/featured", handlers.GetFeaturedProducts(db))
	r.GET("/products/search", handlers.SearchProducts(searchClient))
	r.GET("/products/:id", handlers.GetProductByID(db))

	r.GET("/cart", middleware.UserAuth(secret), handlers.GetCart(db))
	r.POST("/cart/items", middleware.UserAuth(secret), handlers.AddToCart(db))
	r.PUT("/cart/items/:itemId", middleware.UserAuth(secret), handlers.UpdateCartItem(db))
	r.DELETE("/cart/items/:itemId", middleware.UserAuth(secret), handlers.RemoveCartItem(db))
	r.DELETE("/cart", middleware.UserAuth(secret), handlers.ClearCart(db))

	r.POST("/orders", middleware.UserAuth(secret), handlers.CreateOrder(db, q))
	r.GET("/orders", middleware.UserAuth(secret), handlers.GetUserOrders(db))
	r.GET("/orders/:id", middleware.UserAuth(secret), handlers.GetOrderByID(db))
	r.PATCH("/orders/:id/status", middleware.UserAuth(secret), handlers.UpdateOrderStatus(db, q, false))

	admin := r.Group("/admin", middleware.AdminAuth(secret))
	admin.POST("/products", handlers.CreateProduct(db, store, q))
	admin.PUT("/products/:id", handlers.UpdateProduct(db))
	admin.DELETE("/products/:id", handlers.DeleteProduct(db, store))
	admin.POST("/products/:id/images", handlers.UploadProductImages(db, store, q))
	admin.DELETE("/products/:id/images/:index", handlers.DeleteProductImage(db, store))
	admin.GET("/orders", handlers.AdminListOrders(db))
	admin.GET("/orders/metrics", handlers.OrderMetrics(db))
	admin.PATCH("/orders/:id/status", handlers.UpdateOrderStatus(db, q, true))

	r.POST("/internal/notify-product", middleware.WorkerAuth(config.AppEnv.WorkerSecret), handlers.NotifyProduct(hub))
	r.GET("/ws/products/:id", handlers.SubscribeProduct(hub))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := r.Run(":" + port); err != nil {
		zlog.Fatal().Err(err).Msg("server stopped")
	}
}
