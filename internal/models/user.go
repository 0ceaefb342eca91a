package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User carries the fields the order flow needs: the email address for
// transactional mail and the role for permission checks. Account creation and
// session issuance live in a separate service.
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserName  string             `bson:"userName" json:"userName"`
	Email     string             `bson:"email" json:"email"`
	Role      string             `bson:"role" json:"role"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}
