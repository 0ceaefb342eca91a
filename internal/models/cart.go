package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CartItem is one line in a cart. The *AtTime fields are a snapshot of the
// product and variant taken when the item was added; they are refreshed on
// cart reads but never treated as authoritative for live stock.
type CartItem struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ProductID   primitive.ObjectID `bson:"productId" json:"productId"`
	VariantID   primitive.ObjectID `bson:"variantId" json:"variantId"`
	Quantity    int                `bson:"quantity" json:"quantity"`
	PriceAtTime float64            `bson:"priceAtTime" json:"priceAtTime"`
	NameAtTime  string             `bson:"nameAtTime" json:"nameAtTime"`
	ImageAtTime string             `bson:"imageAtTime" json:"imageAtTime"`
	SizeAtTime  string             `bson:"sizeAtTime" json:"sizeAtTime"`
	ColorAtTime string             `bson:"colorAtTime" json:"colorAtTime"`
	AddedAt     time.Time          `bson:"addedAt" json:"addedAt"`
}

// Cart is the per-user mutable cart. One cart per user, enforced by a unique
// index on userId; created lazily on first access.
type Cart struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	Items     []CartItem         `bson:"items" json:"items"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Subtotal is the sum of snapshot price times quantity across all items.
func (c Cart) Subtotal() float64 {
	total := 0.0
	for _, item := range c.Items {
		total += item.PriceAtTime * float64(item.Quantity)
	}
	return total
}

// TotalItems is the number of units across all lines.
func (c Cart) TotalItems() int {
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}
