// internal/domain/models/groupmembership.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MembershipApproval is the three-valued approval state of a membership.
// It is deliberately an enum rather than a nullable bool so call sites
// never have to distinguish "unset" from "false".
type MembershipApproval string

const (
	MembershipPending  MembershipApproval = "pending"
	MembershipApproved MembershipApproval = "approved"
	MembershipRejected MembershipApproval = "rejected"
)

// GroupMembership is the authoritative join between users and groups.
// Exactly one document per (user_id, group_id); role is a scalar ("leader"|"member").
type GroupMembership struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	GroupID  primitive.ObjectID `bson:"group_id" json:"group_id"`
	UserID   primitive.ObjectID `bson:"user_id" json:"user_id"`
	OrgID    primitive.ObjectID `bson:"org_id" json:"org_id"`
	Role     string             `bson:"role" json:"role"` // "leader" | "member"
	Approval MembershipApproval `bson:"approval" json:"approval"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
