package models

// Counter is a named sequence document. Seq is only ever touched through an
// atomic find-and-modify increment, which is what makes order numbers unique
// under concurrent placements.
type Counter struct {
	ID  string `bson:"_id" json:"id"`
	Seq int64  `bson:"seq" json:"seq"`
}

// OrderNumberSequence is the counter used for human-facing order numbers.
const OrderNumberSequence = "orderId"
