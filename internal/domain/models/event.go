// internal/domain/models/event.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Event is a capacity-bounded gathering hosted by a group.
//
// Capacity semantics: a value of zero or below means unlimited; no
// admission check is ever applied. A positive capacity bounds the sum of
// confirmed/checked-in self-registrations plus the guest counts of
// approved guest requests.
type Event struct {
	ID      primitive.ObjectID `bson:"_id" json:"id"`
	GroupID primitive.ObjectID `bson:"group_id" json:"group_id"`

	Title   string `bson:"title" json:"title"`
	TitleCI string `bson:"title_ci" json:"title_ci"`
	Detail  string `bson:"detail,omitempty" json:"detail,omitempty"`

	Capacity         int  `bson:"capacity" json:"capacity"` // <=0 means unlimited
	RequiresApproval bool `bson:"requires_approval" json:"requires_approval"`
	Active           bool `bson:"active" json:"active"`

	StartsAt time.Time `bson:"starts_at" json:"starts_at"`
	EndsAt   time.Time `bson:"ends_at" json:"ends_at"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Unlimited reports whether the event has no capacity bound.
func (e Event) Unlimited() bool {
	return e.Capacity <= 0
}
