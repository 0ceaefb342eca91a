package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	zlog "github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"estore/internal/models"
	"estore/internal/queue"
	"estore/internal/renditions"
	"estore/internal/search"
	"estore/internal/storage"
)

// CreateProduct creates a catalog product from a multipart request carrying
// up to 5 images. Originals are staged to object storage and rendition jobs
// enqueued; the response returns immediately with status pending.
func CreateProduct(db *mongo.Database, store *storage.Store, q *queue.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /admin/products"
		defer handlePanic(c, route)

		if err := ensureDBConnection(c.Request.Context(), db); err != nil {
			respondWithError(c, http.StatusServiceUnavailable, route, "database unavailable")
			return
		}

		input, err := parseMultipartProductRequest(c)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}
		if err := validateCreateProductInput(input); err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()

		variants := make([]models.Variant, len(input.Variants))
		for i, v := range input.Variants {
			if v.ID.IsZero() {
				v.ID = primitive.NewObjectID()
			}
			variants[i] = v
		}

		uploads := make([]stagedUpload, 0, len(input.Images))
		for _, file := range input.Images {
			staged, err := stageOriginal(ctx, store, file)
			if err != nil {
				respondWithError(c, http.StatusInternalServerError, route, "image upload failed")
				return
			}
			uploads = append(uploads, staged)
		}

		urls := make([]string, len(uploads))
		slots := make([]models.RenditionSlot, len(uploads))
		for i, upload := range uploads {
			urls[i] = upload.URL
			slots[i] = models.RenditionSlot{
				Original:      upload.URL,
				UploadID:      upload.UploadID,
				OriginalS3Key: upload.Key,
			}
		}

		now := time.Now()
		product := models.Product{
			Name:                  input.Name,
			Description:           input.Description,
			Category:              models.StringList(input.Category),
			ImageURLs:             urls,
			ImageRenditions:       slots,
			ImageProcessingStatus: renditions.Status(slots),
			IsFeatured:            input.IsFeatured,
			Variants:              variants,
			CreatedAt:             now,
			UpdatedAt:             now,
		}

		res, err := db.Collection("products").InsertOne(ctx, product)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if id, ok := res.InsertedID.(primitive.ObjectID); ok {
			product.ID = id
		}

		enqueueImageJobs(ctx, q, product.ID.Hex(), uploads, 0)
		search.EnqueueUpsert(ctx, db, product.ID)

		zlog.Info().Str("productId", product.ID.Hex()).Int("images", len(uploads)).Msg("product created")

		c.JSON(http.StatusCreated, gin.H{"success": true, "product": product})
	}
}

// GetProductByID returns one product.
func GetProductByID(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /products/:id"
		defer handlePanic(c, route)

		productID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid product id")
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

		c.JSON(http.StatusOK, gin.H{"success": true, "product": product})
	}
}

// ListProducts lists products with optional category filter.
func ListProducts(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /products"
		defer handlePanic(c, route)

		page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid pagination params")
			return
		}

		filter := bson.M{}
		if category := c.Query("category"); category != "" {
			filter["category"] = category
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		opts := options.Find().
			SetSort(bson.M{"createdAt": -1}).
			SetSkip((page - 1) * limit).
			SetLimit(limit)

		cursor, err := db.Collection("products").Find(ctx, filter, opts)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		var products []models.Product
		if err := cursor.All(ctx, &products); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		total, err := db.Collection("products").CountDocuments(ctx, filter)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"products": products,
			"page":     page,
			"limit":    limit,
			"total":    total,
		})
	}
}

// GetFeaturedProducts lists the featured subset.
func GetFeaturedProducts(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /products/featured"
		defer handlePanic(c, route)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		// Featured placements only show fully processed products.
		filter := bson.M{
			"isFeatured":            true,
			"imageProcessingStatus": models.ImageStatusCompleted,
		}
		opts := options.Find().SetSort(bson.M{"createdAt": -1}).SetLimit(20)
		cursor, err := db.Collection("products").Find(ctx, filter, opts)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		var products []models.Product
		if err := cursor.All(ctx, &products); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "products": products})
	}
}

// SearchProducts runs a full-text query against the search index.
func SearchProducts(sc *search.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /products/search"
		defer handlePanic(c, route)

		query := c.Query("q")
		if query == "" {
			respondWithError(c, http.StatusBadRequest, route, "q is required")
			return
		}

		page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid pagination params")
			return
		}

		hits, total, err := sc.Search(query, limit, (page-1)*limit)
		if err != nil {
			respondWithError(c, http.StatusServiceUnavailable, route, "search unavailable")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"hits":    hits,
			"page":    page,
			"limit":   limit,
			"total":   total,
		})
	}
}

// UpdateProduct applies a partial multipart update. Image files are not
// accepted here; UploadProductImages owns image additions.
func UpdateProduct(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /admin/products/:id"
		defer handlePanic(c, route)

		if err := ensureDBConnection(c.Request.Context(), db); err != nil {
			respondWithError(c, http.StatusServiceUnavailable, route, "database unavailable")
			return
		}

		productID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid product id")
			return
		}

		input, err := parseMultipartProductRequest(c)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		set := bson.M{"updatedAt": time.Now()}
		if input.NameSet {
			if input.Name == "" {
				respondWithError(c, http.StatusBadRequest, route, "name cannot be empty")
				return
			}
			set["name"] = input.Name
		}
		if input.DescriptionSet {
			set["description"] = input.Description
		}
		if input.CategorySet {
			set["category"] = input.Category
		}
		if input.IsFeaturedSet {
			set["isFeatured"] = input.IsFeatured
		}
		if input.VariantsSet {
			if len(input.Variants) == 0 {
				respondWithError(c, http.StatusBadRequest, route, "at least one variant is required")
				return
			}
			variants := make([]models.Variant, len(input.Variants))
			for i, v := range input.Variants {
				if v.Price < 0 || v.Stock < 0 {
					respondWithError(c, http.StatusBadRequest, route, "variant price and stock must be non-negative")
					return
				}
				if v.ID.IsZero() {
					v.ID = primitive.NewObjectID()
				}
				variants[i] = v
			}
			set["variants"] = variants
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var product models.Product
		err = db.Collection("products").FindOneAndUpdate(ctx,
			bson.M{"_id": productID},
			bson.M{"$set": set},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&product)
		if err == mongo.ErrNoDocuments {
			respondWithError(c, http.StatusNotFound, route, "product not found")
			return
		}
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		search.EnqueueUpsert(ctx, db, productID)

		c.JSON(http.StatusOK, gin.H{"success": true, "product": product})
	}
}

// DeleteProduct removes the product, its stored renditions, and its search
// document. Storage cleanup is best-effort.
func DeleteProduct(db *mongo.Database, store *storage.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /admin/products/:id"
		defer handlePanic(c, route)

		if err := ensureDBConnection(c.Request.Context(), db); err != nil {
			respondWithError(c, http.StatusServiceUnavailable, route, "database unavailable")
			return
		}

		productID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid product id")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		var product models.Product
		err = db.Collection("products").FindOneAndDelete(ctx, bson.M{"_id": productID}).Decode(&product)
		if err == mongo.ErrNoDocuments {
			respondWithError(c, http.StatusNotFound, route, "product not found")
			return
		}
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		deleteSlotObjects(ctx, store, product.ImageRenditions...)
		search.EnqueueDelete(ctx, db, productID)

		zlog.Info().Str("productId", productID.Hex()).Msg("product deleted")

		c.JSON(http.StatusOK, gin.H{"success": true, "deleted": true})
	}
}

// deleteSlotObjects removes every stored object a slot references. Failures
// are logged; orphaned objects are preferable to failing the delete.
func deleteSlotObjects(ctx context.Context, store *storage.Store, slots ...models.RenditionSlot) {
	for _, slot := range slots {
		urls := []string{slot.Original, slot.Medium, slot.Thumbnail, slot.WebP, slot.AVIF}
		if slot.OriginalS3Key != "" {
			urls = append(urls, slot.OriginalS3Key)
		}
		seen := map[string]bool{}
		for _, url := range urls {
			if url == "" {
				continue
			}
			key, ok := store.KeyFromURL(url)
			if !ok || seen[key] {
				continue
			}
			seen[key] = true
			if err := store.Delete(ctx, key); err != nil {
				zlog.Warn().Err(err).Str("key", key).Msg("failed to delete stored rendition")
			}
		}
	}
}

// UploadProductImages appends up to 5 more images to an existing product and
// enqueues their rendition jobs. The product drops back to pending until the
// new slots are processed.
func UploadProductImages(db *mongo.Database, store *storage.Store, q *queue.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /admin/products/:id/images"
		defer handlePanic(c, route)

		if err := ensureDBConnection(c.Request.Context(), db); err != nil {
			respondWithError(c, http.StatusServiceUnavailable, route, "database unavailable")
			return
		}

		productID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid product id")
			return
		}

		input, err := parseMultipartProductRequest(c)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}
		if len(input.Images) == 0 {
			respondWithError(c, http.StatusBadRequest, route, "at least one image is required")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
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

		uploads := make([]stagedUpload, 0, len(input.Images))
		for _, file := range input.Images {
			staged, err := stageOriginal(ctx, store, file)
			if err != nil {
				respondWithError(c, http.StatusInternalServerError, route, "image upload failed")
				return
			}
			uploads = append(uploads, staged)
		}

		firstIndex := len(product.ImageRenditions)
		newSlots := make([]models.RenditionSlot, len(uploads))
		newURLs := make([]string, len(uploads))
		for i, upload := range uploads {
			newSlots[i] = models.RenditionSlot{
				Original:      upload.URL,
				UploadID:      upload.UploadID,
				OriginalS3Key: upload.Key,
			}
			newURLs[i] = upload.URL
		}

		update := bson.M{
			"$push": bson.M{
				"imageUrls":       bson.M{"$each": newURLs},
				"imageRenditions": bson.M{"$each": newSlots},
			},
			"$set": bson.M{
				"imageProcessingStatus": models.ImageStatusPending,
				"updatedAt":             time.Now(),
			},
		}
		res, err := db.Collection("products").UpdateOne(ctx, bson.M{"_id": productID}, update)
		if err != nil || res.MatchedCount == 0 {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		enqueueImageJobs(ctx, q, productID.Hex(), uploads, firstIndex)

		c.JSON(http.StatusAccepted, gin.H{
			"success": true,
			"status":  models.ImageStatusPending,
			"queued":  len(uploads),
		})
	}
}

// DeleteProductImage removes one image slot by index, deleting its stored
// objects and keeping imageUrls and imageRenditions aligned.
func DeleteProductImage(db *mongo.Database, store *storage.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /admin/products/:id/images/:index"
		defer handlePanic(c, route)

		if err := ensureDBConnection(c.Request.Context(), db); err != nil {
			respondWithError(c, http.StatusServiceUnavailable, route, "database unavailable")
			return
		}

		productID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid product id")
			return
		}
		index, err := strconv.Atoi(c.Param("index"))
		if err != nil || index < 0 {
			respondWithError(c, http.StatusBadRequest, route, "invalid image index")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
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
		if index >= len(product.ImageRenditions) {
			respondWithError(c, http.StatusNotFound, route, "image not found")
			return
		}
		if len(product.ImageRenditions) == 1 {
			respondWithError(c, http.StatusBadRequest, route, "product must keep at least one image")
			return
		}

		removed := product.ImageRenditions[index]
		slots := append(product.ImageRenditions[:index:index], product.ImageRenditions[index+1:]...)
		remaining := product.ImageURLs
		if index < len(remaining) {
			remaining = append(remaining[:index:index], remaining[index+1:]...)
		}
		urls := renditions.SyncImageURLs(remaining, slots)
		status := renditions.Status(slots)

		_, err = db.Collection("products").UpdateOne(ctx,
			bson.M{"_id": productID},
			bson.M{"$set": bson.M{
				"imageUrls":             urls,
				"imageRenditions":       slots,
				"imageProcessingStatus": status,
				"updatedAt":             time.Now(),
			}},
		)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		deleteSlotObjects(ctx, store, removed)
		search.EnqueueUpsert(ctx, db, productID)

		c.JSON(http.StatusOK, gin.H{"success": true, "status": status, "imageUrls": urls})
	}
}
