// internal/domain/models/guestrequest.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GuestStatus is the lifecycle state shared by guest requests and their
// entries. The same code set is used at both levels, independently.
type GuestStatus int

const (
	GuestPending             GuestStatus = 0
	GuestApproved            GuestStatus = 1
	GuestRejected            GuestStatus = 2
	GuestCancelled           GuestStatus = 3
	GuestPendingRegistration GuestStatus = 4
	GuestRegistered          GuestStatus = 5
)

// Terminal reports whether no further transition is permitted.
func (s GuestStatus) Terminal() bool {
	return s == GuestRejected || s == GuestCancelled
}

// GuestRequest is a sponsor's umbrella request covering one or more named
// guests for an event. GuestCount always equals the number of entry rows
// created with the request; it is only adjusted by a full entry-set
// replacement, never silently.
type GuestRequest struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	EventID   primitive.ObjectID `bson:"event_id" json:"event_id"`
	SponsorID primitive.ObjectID `bson:"sponsor_id" json:"sponsor_id"`

	SponsorName  string `bson:"sponsor_name" json:"sponsor_name"`
	SponsorPhone string `bson:"sponsor_phone" json:"sponsor_phone"`

	GuestCount int    `bson:"guest_count" json:"guest_count"`
	Note       string `bson:"note,omitempty" json:"note,omitempty"`

	Status       GuestStatus `bson:"status" json:"status"`
	RejectReason string      `bson:"reject_reason,omitempty" json:"reject_reason,omitempty"`
	CancelReason string      `bson:"cancel_reason,omitempty" json:"cancel_reason,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// GuestEntry is one named guest under a GuestRequest. Entries carry their
// own status so a sponsor's request can be decided per guest.
type GuestEntry struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RequestID primitive.ObjectID `bson:"request_id" json:"request_id"`
	EventID   primitive.ObjectID `bson:"event_id" json:"event_id"`

	Name  string `bson:"name" json:"name"`
	Phone string `bson:"phone" json:"phone"`
	Email string `bson:"email,omitempty" json:"email,omitempty"`

	Status       GuestStatus `bson:"status" json:"status"`
	RejectReason string      `bson:"reject_reason,omitempty" json:"reject_reason,omitempty"`
	CancelReason string      `bson:"cancel_reason,omitempty" json:"cancel_reason,omitempty"`

	CheckInCode string     `bson:"checkin_code,omitempty" json:"checkin_code,omitempty"`
	CheckInAt   *time.Time `bson:"checkin_at,omitempty" json:"checkin_at,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
