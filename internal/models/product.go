package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Image processing states for a product. A product is completed only once
// every rendition slot carries a medium-size URL.
const (
	ImageStatusPending   = "pending"
	ImageStatusCompleted = "completed"
	ImageStatusFailed    = "failed"
)

// Variant is a purchasable variation of a product with its own price and stock.
type Variant struct {
	ID    primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Size  string             `bson:"size" json:"size"`
	Color string             `bson:"color" json:"color"`
	Price float64            `bson:"price" json:"price"`
	Stock int                `bson:"stock" json:"stock"`
}

// RenditionSlot holds every derived copy of one logical product image.
// UploadID is the correlation key the image worker uses to find the slot
// again once processing finishes; OriginalS3Key points at the unprocessed
// upload in object storage until the worker cleans it up.
type RenditionSlot struct {
	Original      string `bson:"original,omitempty" json:"original,omitempty"`
	Medium        string `bson:"medium,omitempty" json:"medium,omitempty"`
	Thumbnail     string `bson:"thumbnail,omitempty" json:"thumbnail,omitempty"`
	WebP          string `bson:"webp,omitempty" json:"webp,omitempty"`
	AVIF          string `bson:"avif,omitempty" json:"avif,omitempty"`
	UploadID      string `bson:"uploadId,omitempty" json:"uploadId,omitempty"`
	OriginalS3Key string `bson:"originalS3Key,omitempty" json:"originalS3Key,omitempty"`
}

// Processed reports whether the slot has been through the rendition pipeline.
func (r RenditionSlot) Processed() bool {
	return r.Medium != ""
}

// Product is the catalog document. ImageRenditions is index-aligned with
// ImageURLs; the two arrays must stay the same length.
type Product struct {
	ID                    primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name                  string             `bson:"name" json:"name"`
	Description           string             `bson:"description" json:"description"`
	Category              StringList         `bson:"category" json:"category"`
	ImageURLs             []string           `bson:"imageUrls" json:"imageUrls"`
	ImageRenditions       []RenditionSlot    `bson:"imageRenditions" json:"imageRenditions"`
	ImageProcessingStatus string             `bson:"imageProcessingStatus" json:"imageProcessingStatus"`
	IsFeatured            bool               `bson:"isFeatured" json:"isFeatured"`
	Variants              []Variant          `bson:"variants" json:"variants"`
	AverageRating         float64            `bson:"averageRating" json:"averageRating"`
	NumberOfReviews       int                `bson:"numberOfReviews" json:"numberOfReviews"`
	CreatedAt             time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt             time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// VariantByID returns the embedded variant with the given id.
func (p Product) VariantByID(id primitive.ObjectID) (Variant, bool) {
	for _, v := range p.Variants {
		if v.ID == id {
			return v, true
		}
	}
	return Variant{}, false
}
