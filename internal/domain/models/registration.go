// internal/domain/models/registration.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RegistrationStatus is the lifecycle state of a self-registration.
//
// There is no native Rejected value for this path: a reject is recorded
// as Cancelled with the reason in cancel_reason, and the reconcile
// package re-presents that case as Rejected. Kept that way on purpose;
// downstream readers may depend on either reading of the stored row.
type RegistrationStatus int

const (
	RegistrationPending   RegistrationStatus = 0
	RegistrationConfirmed RegistrationStatus = 1
	RegistrationCheckedIn RegistrationStatus = 2
	RegistrationCancelled RegistrationStatus = 3
)

// Terminal reports whether no further transition is permitted.
func (s RegistrationStatus) Terminal() bool {
	return s == RegistrationCheckedIn || s == RegistrationCancelled
}

// Registration is a member's direct (self-service) registration to an
// event. At most one non-cancelled registration per (event, user).
type Registration struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	EventID primitive.ObjectID `bson:"event_id" json:"event_id"`
	UserID  primitive.ObjectID `bson:"user_id" json:"user_id"`

	// Contact fields are denormalized from the user at submission time so
	// lookups and notification payloads never need a join.
	ContactName  string `bson:"contact_name" json:"contact_name"`
	ContactPhone string `bson:"contact_phone" json:"contact_phone"`

	Status       RegistrationStatus `bson:"status" json:"status"`
	CancelReason string             `bson:"cancel_reason,omitempty" json:"cancel_reason,omitempty"`

	CheckInCode string     `bson:"checkin_code,omitempty" json:"checkin_code,omitempty"`
	CheckInAt   *time.Time `bson:"checkin_at,omitempty" json:"checkin_at,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
