package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	zlog "github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"

	"estore/internal/models"
	"estore/internal/notify"
	"estore/internal/queue"
	"estore/internal/renditions"
	"estore/internal/search"
	"estore/internal/storage"
)

// ImageWorker converges one product image from a staged original to its full
// rendition set. Jobs are delivered at least once; every write is keyed by
// uploadId so redelivery is idempotent.
type ImageWorker struct {
	DB       *mongo.Database
	Store    *storage.Store
	Notifier *notify.Client
}

// Handle processes one rendition job. Returned errors feed the queue's
// retry machinery; the product is marked failed before returning so callers
// polling the product see a terminal state while retries run.
func (w *ImageWorker) Handle(ctx context.Context, body []byte, _ amqp.Table) error {
	var job queue.ImageJob
	if err := json.Unmarshal(body, &job); err != nil {
		return fmt.Errorf("decode image job: %w", err)
	}
	productID, err := primitive.ObjectIDFromHex(job.ProductID)
	if err != nil {
		return fmt.Errorf("image job: invalid productId %q: %w", job.ProductID, err)
	}

	log := zlog.With().Str("productId", job.ProductID).Str("uploadId", job.UploadID).Logger()

	products := w.DB.Collection("products")
	var product models.Product
	if err := products.FindOne(ctx, bson.M{"_id": productID}).Decode(&product); err != nil {
		return fmt.Errorf("image job: load product: %w", err)
	}

	urls, err := w.process(ctx, job)
	if err != nil {
		w.markFailed(ctx, productID, job, err)
		return err
	}

	// Re-fetch so concurrent jobs for sibling images are not clobbered.
	if err := products.FindOne(ctx, bson.M{"_id": productID}).Decode(&product); err != nil {
		w.markFailed(ctx, productID, job, err)
		return fmt.Errorf("image job: reload product: %w", err)
	}

	slots, idx := renditions.ResolveSlot(product.ImageRenditions, job.UploadID, job.ImageIndex)
	slot := &slots[idx]
	renditions.FillSlot(slot, urls)
	if slot.UploadID == "" {
		slot.UploadID = job.UploadID
	}
	if slot.OriginalS3Key == "" {
		slot.OriginalS3Key = job.OriginalS3Key
	}

	imageURLs := renditions.SyncImageURLs(product.ImageURLs, slots)
	status := renditions.Status(slots)

	_, err = products.UpdateOne(ctx,
		bson.M{"_id": productID},
		bson.M{"$set": bson.M{
			"imageUrls":             imageURLs,
			"imageRenditions":       slots,
			"imageProcessingStatus": status,
			"updatedAt":             time.Now(),
		}},
	)
	if err != nil {
		w.markFailed(ctx, productID, job, err)
		return fmt.Errorf("image job: persist product: %w", err)
	}

	// Partially processed products stay out of search.
	if status == models.ImageStatusCompleted {
		search.EnqueueUpsert(ctx, w.DB, productID)
	}

	w.pushStatus(ctx, job, status, slot.Medium, nil)
	w.cleanupOriginal(ctx, job, slot.Medium)

	log.Info().Str("status", status).Msg("image job completed")
	return nil
}

// process downloads the original and uploads every rendition, all six
// concurrently. Returned as urls[size][format].
func (w *ImageWorker) process(ctx context.Context, job queue.ImageJob) (map[string]map[string]string, error) {
	data, err := w.Store.Get(ctx, job.OriginalS3Key)
	if err != nil {
		return nil, fmt.Errorf("image job: download original: %w", err)
	}

	outputs, err := renditions.Generate(data)
	if err != nil {
		return nil, err
	}

	baseName := renditions.BaseName(job.OriginalS3Key)
	uploaded := make([]string, len(outputs))

	g, gctx := errgroup.WithContext(ctx)
	for i, out := range outputs {
		i, out := i, out
		key := renditions.ObjectKey(job.ProductID, baseName, out.Size, out.Format)
		g.Go(func() error {
			url, err := w.Store.Put(gctx, key, out.Data, out.ContentType)
			if err != nil {
				return err
			}
			uploaded[i] = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("image job: upload renditions: %w", err)
	}

	urls := make(map[string]map[string]string, 3)
	for i, out := range outputs {
		if urls[out.Size] == nil {
			urls[out.Size] = make(map[string]string, 2)
		}
		urls[out.Size][out.Format] = uploaded[i]
	}
	return urls, nil
}

// markFailed records the terminal failure on the product and pushes
// best-effort search and realtime updates before the error is re-raised to
// the retry machinery.
func (w *ImageWorker) markFailed(ctx context.Context, productID primitive.ObjectID, job queue.ImageJob, cause error) {
	_, err := w.DB.Collection("products").UpdateOne(ctx,
		bson.M{"_id": productID},
		bson.M{"$set": bson.M{
			"imageProcessingStatus": models.ImageStatusFailed,
			"updatedAt":             time.Now(),
		}},
	)
	if err != nil {
		zlog.Error().Err(err).Str("productId", job.ProductID).Msg("failed to mark product failed")
	}

	search.EnqueueUpsert(ctx, w.DB, productID)
	w.pushStatus(ctx, job, models.ImageStatusFailed, "", cause)
}

// pushStatus notifies the realtime channel; never fails the job.
func (w *ImageWorker) pushStatus(ctx context.Context, job queue.ImageJob, status, rendition string, cause error) {
	if w.Notifier == nil {
		return
	}
	payload := notify.ProductStatus{
		ProductID:  job.ProductID,
		Status:     status,
		ImageIndex: job.ImageIndex,
		Rendition:  rendition,
	}
	if cause != nil {
		payload.Error = cause.Error()
	}
	if err := w.Notifier.NotifyProductStatus(ctx, payload); err != nil {
		zlog.Warn().Err(err).Str("productId", job.ProductID).Msg("realtime notify failed")
	}
}

// cleanupOriginal deletes the staged original only after verifying the
// medium rendition is actually retrievable. A failed verification skips the
// delete; leaking the staging object beats losing the only copy.
func (w *ImageWorker) cleanupOriginal(ctx context.Context, job queue.ImageJob, mediumURL string) {
	key, ok := w.Store.KeyFromURL(mediumURL)
	if !ok {
		return
	}
	exists, err := w.Store.Exists(ctx, key)
	if err != nil || !exists {
		zlog.Warn().Err(err).Str("key", key).Msg("medium rendition not verifiable, keeping original")
		return
	}
	if err := w.Store.Delete(ctx, job.OriginalS3Key); err != nil {
		zlog.Warn().Err(err).Str("key", job.OriginalS3Key).Msg("failed to delete staged original")
	}
}
