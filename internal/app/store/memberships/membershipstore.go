// internal/app/store/memberships/membershipstore.go
package membershipstore

import (
	"context"
	"errors"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/gatherhub/gatherhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c      *mongo.Collection
	users  *mongo.Collection
	groups *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		c:      db.Collection("group_memberships"),
		users:  db.Collection("users"),
		groups: db.Collection("groups"),
	}
}

var (
	errBadRole      = errors.New(`role must be "leader" or "member"`)
	errOrgMismatch  = errors.New("user and group belong to different organizations")
	errMissingOrgID = errors.New("user missing organization_id")
)

var ErrDuplicateMembership = errors.New("user is already a member of this group")

// Add creates a membership after enforcing org invariant and role validity.
// New memberships start with the three-valued approval state given; use
// models.MembershipPending for join requests that a leader must approve and
// models.MembershipApproved for direct adds by an admin.
func (s *Store) Add(ctx context.Context, groupID, userID primitive.ObjectID, role string, approval models.MembershipApproval) error {
	if role != "leader" && role != "member" {
		return errBadRole
	}
	if approval == "" {
		approval = models.MembershipPending
	}

	// Load group (org required)
	var g models.Group
	if err := s.groups.FindOne(ctx, bson.M{"_id": groupID}).Decode(&g); err != nil {
		return err
	}

	// Load user (org must match)
	var u models.User
	if err := s.users.FindOne(ctx, bson.M{"_id": userID}).Decode(&u); err != nil {
		return err
	}
	if u.OrganizationID == nil {
		return errMissingOrgID
	}
	if g.OrganizationID != *u.OrganizationID {
		return errOrgMismatch
	}

	doc := bson.M{
		"group_id":   groupID,
		"user_id":    userID,
		"org_id":     g.OrganizationID,
		"role":       role,
		"approval":   approval,
		"created_at": time.Now().UTC(),
	}
	if _, err := s.c.InsertOne(ctx, doc); err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateMembership
		}
		return err
	}
	return nil
}

// SetApproval moves a membership to approved or rejected. Returns the
// number of documents modified (0 when the membership does not exist or
// already carries the target state).
func (s *Store) SetApproval(ctx context.Context, groupID, userID primitive.ObjectID, approval models.MembershipApproval) (int64, error) {
	if approval != models.MembershipApproved && approval != models.MembershipRejected {
		return 0, errors.New("approval must be approved or rejected")
	}
	res, err := s.c.UpdateOne(ctx,
		bson.M{"group_id": groupID, "user_id": userID},
		bson.M{"$set": bson.M{"approval": approval}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// Remove deletes the membership document for (groupID, userID).
func (s *Store) Remove(ctx context.Context, groupID, userID primitive.ObjectID) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"group_id": groupID, "user_id": userID})
	return err
}

// GetForUser returns the membership for (groupID, userID), if any.
func (s *Store) GetForUser(ctx context.Context, groupID, userID primitive.ObjectID) (models.GroupMembership, error) {
	var m models.GroupMembership
	if err := s.c.FindOne(ctx, bson.M{"group_id": groupID, "user_id": userID}).Decode(&m); err != nil {
		return models.GroupMembership{}, err
	}
	return m, nil
}

// ListByGroup returns memberships for a group, optionally filtered by
// approval state ("" means all).
func (s *Store) ListByGroup(ctx context.Context, groupID primitive.ObjectID, approval models.MembershipApproval) ([]models.GroupMembership, error) {
	filter := bson.M{"group_id": groupID}
	if approval != "" {
		filter["approval"] = approval
	}
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.GroupMembership
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// IsLeader reports whether userID is an approved leader of groupID.
func (s *Store) IsLeader(ctx context.Context, groupID, userID primitive.ObjectID) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{
		"group_id": groupID,
		"user_id":  userID,
		"role":     "leader",
		"approval": models.MembershipApproved,
	})
	return n > 0, err
}

// DeleteByGroup removes all memberships for a group.
// Returns the number of documents deleted.
func (s *Store) DeleteByGroup(ctx context.Context, groupID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"group_id": groupID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// CountByGroup returns the count of memberships for a group, optionally filtered by role.
// If role is empty, counts all memberships.
func (s *Store) CountByGroup(ctx context.Context, groupID primitive.ObjectID, role string) (int64, error) {
	filter := bson.M{"group_id": groupID}
	if role != "" {
		filter["role"] = role
	}
	return s.c.CountDocuments(ctx, filter)
}
