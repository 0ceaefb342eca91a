package queue

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"estore/internal/models"
)

// Queue names shared by publishers and workers.
const (
	ImageProcessingQueue  = "image_processing"
	OrderEmailQueue       = "order_emails"
	OrderStatusEmailQueue = "order_status_emails"
)

// ImageJob asks a worker to derive renditions for one uploaded product image.
type ImageJob struct {
	ProductID     string `json:"productId"`
	OriginalS3Key string `json:"originalS3Key"`
	ImageIndex    int    `json:"imageIndex"`
	UploadID      string `json:"uploadId"`
}

// EmailOrder is the order snapshot carried inside an email job; it is
// deliberately a copy so the worker never reads the order collection.
type EmailOrder struct {
	ID              primitive.ObjectID     `json:"id"`
	OrderNumber     int64                  `json:"orderNumber"`
	Status          models.OrderStatus     `json:"status,omitempty"`
	Items           []models.OrderItem     `json:"items"`
	TotalAmount     float64                `json:"totalAmount"`
	ShippingAddress models.ShippingAddress `json:"shippingAddress"`
	CreatedAt       time.Time              `json:"createdAt"`
	UpdatedAt       time.Time              `json:"updatedAt,omitempty"`
}

// EmailJob is consumed by the order-confirmation and status-update workers.
type EmailJob struct {
	To    string            `json:"to"`
	Order *EmailOrder       `json:"order"`
	Meta  map[string]string `json:"meta,omitempty"`
}
