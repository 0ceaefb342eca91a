package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderPending    OrderStatus = "Pending"
	OrderProcessing OrderStatus = "Processing"
	OrderShipped    OrderStatus = "Shipped"
	OrderDelivered  OrderStatus = "Delivered"
	OrderCancelled  OrderStatus = "Cancelled"
)

// orderStatusTransitions is the allowed transition table. It is currently
// fully permissive; tightening the lifecycle later is a table edit, not a
// handler change.
var orderStatusTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:    {OrderPending, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled},
	OrderProcessing: {OrderPending, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled},
	OrderShipped:    {OrderPending, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled},
	OrderDelivered:  {OrderPending, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled},
	OrderCancelled:  {OrderPending, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled},
}

// Valid reports whether s is one of the five known states.
func (s OrderStatus) Valid() bool {
	_, ok := orderStatusTransitions[s]
	return ok
}

// CanTransitionTo consults the transition table.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	for _, allowed := range orderStatusTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// OrderItem is an immutable snapshot of a cart line at placement time.
type OrderItem struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ProductID   primitive.ObjectID `bson:"productId" json:"productId"`
	VariantID   primitive.ObjectID `bson:"variantId" json:"variantId"`
	Quantity    int                `bson:"quantity" json:"quantity"`
	NameAtTime  string             `bson:"nameAtTime" json:"nameAtTime"`
	ImageAtTime string             `bson:"imageAtTime" json:"imageAtTime"`
	PriceAtTime float64            `bson:"priceAtTime" json:"priceAtTime"`
	SizeAtTime  string             `bson:"sizeAtTime" json:"sizeAtTime"`
	ColorAtTime string             `bson:"colorAtTime" json:"colorAtTime"`
}

// ShippingAddress is captured verbatim from the placement request.
type ShippingAddress struct {
	FullName     string `bson:"fullName" json:"fullName"`
	AddressLine1 string `bson:"addressLine1" json:"addressLine1"`
	AddressLine2 string `bson:"addressLine2,omitempty" json:"addressLine2,omitempty"`
	City         string `bson:"city" json:"city"`
	State        string `bson:"state" json:"state"`
	PostalCode   string `bson:"postalCode" json:"postalCode"`
	Country      string `bson:"country" json:"country"`
}

// Order is immutable once created except for Status. OrderNumber is globally
// unique and strictly increasing, issued by the counter collection. IntentID
// links the order to the placement intent that produced it so a crashed
// placement can be told apart from a finished one.
type Order struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID          primitive.ObjectID  `bson:"userId" json:"userId"`
	OrderNumber     int64               `bson:"orderNumber" json:"orderNumber"`
	Items           []OrderItem         `bson:"items" json:"items"`
	ShippingAddress ShippingAddress     `bson:"shippingAddress" json:"shippingAddress"`
	PaymentMethod   string              `bson:"paymentMethod" json:"paymentMethod"`
	TotalAmount     float64             `bson:"totalAmount" json:"totalAmount"`
	Status          OrderStatus         `bson:"status" json:"status"`
	IntentID        *primitive.ObjectID `bson:"intentId,omitempty" json:"-"`
	CreatedAt       time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// IntentItem records one pending stock decrement inside an OrderIntent.
type IntentItem struct {
	ProductID primitive.ObjectID `bson:"productId" json:"productId"`
	VariantID primitive.ObjectID `bson:"variantId" json:"variantId"`
	Quantity  int                `bson:"quantity" json:"quantity"`
}

// OrderIntent is written before any stock is touched during placement.
// Applied lists the decrements that actually reached the product documents,
// so a reconciliation sweep can restore stock for placements that crashed
// between decrement and order insert. The intent is deleted on finalize.
type OrderIntent struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	Items     []IntentItem       `bson:"items" json:"items"`
	Applied   []IntentItem       `bson:"applied" json:"applied"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}
