// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents admins, leaders, and members.
//
// NOTE:
//   - Group membership is not embedded on User.
//     Use the group_memberships collection to discover a user's groups.
//   - Phone is stored normalized (digits with optional leading +) and is
//     the contact identifier used for participation lookups and
//     notification payloads.
type User struct {
	ID             primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	FullName       string              `bson:"full_name" json:"full_name"`
	FullNameCI     string              `bson:"full_name_ci" json:"full_name_ci"` // lowercase, diacritics-stripped
	Email          string              `bson:"email" json:"email"`
	Phone          string              `bson:"phone,omitempty" json:"phone,omitempty"`
	PasswordHash   string              `bson:"password_hash,omitempty" json:"-"`
	Role           string              `bson:"role" json:"role"` // admin | leader | member
	Status         string              `bson:"status,omitempty" json:"status,omitempty"`
	OrganizationID *primitive.ObjectID `bson:"organization_id,omitempty" json:"organization_id,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
