package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"estore/internal/models"
	"estore/internal/queue"
	"estore/internal/storage"
)

const maxImagesPerRequest = 5

/*
=======================
  INPUT STRUCT
=======================
*/

type MultipartProductInput struct {
	Name           string
	NameSet        bool
	Description    string
	DescriptionSet bool
	Category       []string
	CategorySet    bool
	IsFeatured     bool
	IsFeaturedSet  bool
	Variants       []models.Variant
	VariantsSet    bool
	Images         []*multipart.FileHeader
}

/*
=======================
  PARSER
=======================
*/

func parseMultipartProductRequest(c *gin.Context) (MultipartProductInput, error) {
	if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
		return MultipartProductInput{}, err
	}

	input := MultipartProductInput{}

	if value, ok := c.GetPostForm("name"); ok {
		input.Name = strings.TrimSpace(value)
		input.NameSet = true
	}

	if value, ok := c.GetPostForm("description"); ok {
		input.Description = strings.TrimSpace(value)
		input.DescriptionSet = true
	}

	if value, ok := c.GetPostForm("isFeatured"); ok {
		parsed, err := parseBoolValue(value)
		if err != nil {
			return MultipartProductInput{}, err
		}
		input.IsFeatured = parsed
		input.IsFeaturedSet = true
	}

	categories := c.PostFormArray("category")
	if len(categories) > 0 {
		input.Category = categories
		input.CategorySet = true
	}

	// Variants arrive as one JSON-encoded form field.
	if value, ok := c.GetPostForm("variants"); ok {
		var variants []models.Variant
		if err := json.Unmarshal([]byte(value), &variants); err != nil {
			return MultipartProductInput{}, fmt.Errorf("invalid variants payload: %w", err)
		}
		input.Variants = variants
		input.VariantsSet = true
	}

	if c.Request.MultipartForm != nil {
		files := c.Request.MultipartForm.File["images"]
		if len(files) > maxImagesPerRequest {
			return MultipartProductInput{}, fmt.Errorf("too many images (max %d)", maxImagesPerRequest)
		}
		for _, file := range files {
			if err := validateImageFile(file); err != nil {
				return MultipartProductInput{}, err
			}
		}
		input.Images = files
	}

	return input, nil
}

// validateCreateProductInput checks the parsed multipart fields for product
// creation. Every product starts with at least one image; a product created
// without any would sit in pending forever since no job exists to finish it.
func validateCreateProductInput(input MultipartProductInput) error {
	if !input.NameSet || input.Name == "" {
		return fmt.Errorf("name is required")
	}
	if !input.VariantsSet || len(input.Variants) == 0 {
		return fmt.Errorf("at least one variant is required")
	}
	for _, v := range input.Variants {
		if v.Price < 0 || v.Stock < 0 {
			return fmt.Errorf("variant price and stock must be non-negative")
		}
	}
	if len(input.Images) == 0 {
		return fmt.Errorf("at least one image is required")
	}
	return nil
}

func parseBoolValue(value string) (bool, error) {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "on" {
		return true, nil
	}
	return strconv.ParseBool(value)
}

var allowedImageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".webp": {},
}

func validateImageFile(file *multipart.FileHeader) error {
	extension := strings.ToLower(filepath.Ext(file.Filename))
	if extension == "" {
		return fmt.Errorf("image file extension is required")
	}
	if _, ok := allowedImageExtensions[extension]; !ok {
		return fmt.Errorf("unsupported image type: %s", extension)
	}
	const maxImageSize = 10 << 20
	if file.Size > maxImageSize {
		return fmt.Errorf("image file too large (max 10MB)")
	}
	return nil
}

/*
=======================
  ORIGINAL UPLOAD STAGING
=======================
*/

// stagedUpload is one original pushed to object storage and awaiting
// background rendition processing.
type stagedUpload struct {
	UploadID string
	Key      string
	URL      string
}

// stageOriginal streams one uploaded file into object storage under a
// uuid-keyed staging path. The rendition worker derives final keys itself
// and removes this object when done.
func stageOriginal(ctx context.Context, store *storage.Store, file *multipart.FileHeader) (stagedUpload, error) {
	in, err := file.Open()
	if err != nil {
		return stagedUpload{}, err
	}
	defer in.Close()

	data, err := io.ReadAll(in)
	if err != nil {
		return stagedUpload{}, err
	}

	extension := strings.ToLower(filepath.Ext(file.Filename))
	uploadID := uuid.NewString()
	key := "uploads/" + uploadID + extension

	contentType := mime.TypeByExtension(extension)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	url, err := store.Put(ctx, key, data, contentType)
	if err != nil {
		return stagedUpload{}, err
	}

	return stagedUpload{UploadID: uploadID, Key: key, URL: url}, nil
}

// enqueueImageJobs publishes one rendition job per staged upload. Publish
// failures are logged and swallowed; the product stays pending and the
// upload can be re-submitted.
func enqueueImageJobs(ctx context.Context, q *queue.Client, productID string, uploads []stagedUpload, firstIndex int) {
	if q == nil {
		return
	}
	for i, upload := range uploads {
		job := queue.ImageJob{
			ProductID:     productID,
			OriginalS3Key: upload.Key,
			ImageIndex:    firstIndex + i,
			UploadID:      upload.UploadID,
		}
		if err := q.Publish(ctx, queue.ImageProcessingQueue, job); err != nil {
			zlog.Error().Err(err).Str("productId", productID).Str("uploadId", upload.UploadID).
				Msg("failed to enqueue image job")
		}
	}
}
