// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

/*
EnsureAll is called at startup. Each ensure* function is idempotent.
We aggregate errors so any problem is visible and startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	if err := ensureUsers(ctx, db); err != nil {
		problems = append(problems, "users: "+err.Error())
	}
	if err := ensureOrganizations(ctx, db); err != nil {
		problems = append(problems, "organizations: "+err.Error())
	}
	if err := ensureGroups(ctx, db); err != nil {
		problems = append(problems, "groups: "+err.Error())
	}
	if err := ensureGroupMemberships(ctx, db); err != nil {
		problems = append(problems, "group_memberships: "+err.Error())
	}
	if err := ensureEvents(ctx, db); err != nil {
		problems = append(problems, "events: "+err.Error())
	}
	if err := ensureRegistrations(ctx, db); err != nil {
		problems = append(problems, "registrations: "+err.Error())
	}
	if err := ensureGuestRequests(ctx, db); err != nil {
		problems = append(problems, "guest_requests: "+err.Error())
	}
	if err := ensureGuestEntries(ctx, db); err != nil {
		problems = append(problems, "guest_entries: "+err.Error())
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func create(ctx context.Context, db *mongo.Database, coll string, idx []mongo.IndexModel) error {
	_, err := db.Collection(coll).Indexes().CreateMany(ctx, idx)
	// Mongo/DocDB sometimes returns IndexOptionsConflict when an index with
	// the same keys already exists under a different name.
	if err != nil && strings.Contains(err.Error(), "IndexOptionsConflict") {
		return nil
	}
	return err
}

func unique() *options.IndexOptions { return options.Index().SetUnique(true) }

func ensureUsers(ctx context.Context, db *mongo.Database) error {
	return create(ctx, db, "users", []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique()},
		{Keys: bson.D{{Key: "phone", Value: 1}}},
		{Keys: bson.D{{Key: "organization_id", Value: 1}, {Key: "role", Value: 1}}},
	})
}

func ensureOrganizations(ctx context.Context, db *mongo.Database) error {
	return create(ctx, db, "organizations", []mongo.IndexModel{
		{Keys: bson.D{{Key: "name_ci", Value: 1}}, Options: unique()},
	})
}

func ensureGroups(ctx context.Context, db *mongo.Database) error {
	return create(ctx, db, "groups", []mongo.IndexModel{
		{Keys: bson.D{{Key: "organization_id", Value: 1}, {Key: "name_ci", Value: 1}}, Options: unique()},
	})
}

func ensureGroupMemberships(ctx context.Context, db *mongo.Database) error {
	return create(ctx, db, "group_memberships", []mongo.IndexModel{
		{Keys: bson.D{{Key: "group_id", Value: 1}, {Key: "user_id", Value: 1}}, Options: unique()},
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
	})
}

func ensureEvents(ctx context.Context, db *mongo.Database) error {
	return create(ctx, db, "events", []mongo.IndexModel{
		{Keys: bson.D{{Key: "group_id", Value: 1}, {Key: "starts_at", Value: 1}}},
		{Keys: bson.D{{Key: "title_ci", Value: 1}}},
	})
}

func ensureRegistrations(ctx context.Context, db *mongo.Database) error {
	return create(ctx, db, "registrations", []mongo.IndexModel{
		// One non-cancelled registration per (event, user). Statuses 0-2
		// are live; 3 is cancelled, so the partial filter keeps cancelled
		// rows out of the uniqueness constraint.
		{
			Keys: bson.D{{Key: "event_id", Value: 1}, {Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true).
				SetPartialFilterExpression(bson.M{"status": bson.M{"$lt": 3}}),
		},
		// Check-in codes are unique within an event.
		{
			Keys: bson.D{{Key: "event_id", Value: 1}, {Key: "checkin_code", Value: 1}},
			Options: options.Index().SetUnique(true).
				SetPartialFilterExpression(bson.M{"checkin_code": bson.M{"$exists": true, "$gt": ""}}),
		},
		{Keys: bson.D{{Key: "event_id", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "contact_phone", Value: 1}}},
	})
}

func ensureGuestRequests(ctx context.Context, db *mongo.Database) error {
	return create(ctx, db, "guest_requests", []mongo.IndexModel{
		{Keys: bson.D{{Key: "event_id", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "sponsor_id", Value: 1}}},
		{Keys: bson.D{{Key: "sponsor_phone", Value: 1}}},
	})
}

func ensureGuestEntries(ctx context.Context, db *mongo.Database) error {
	return create(ctx, db, "guest_entries", []mongo.IndexModel{
		{Keys: bson.D{{Key: "request_id", Value: 1}}},
		{Keys: bson.D{{Key: "phone", Value: 1}}},
		{
			Keys: bson.D{{Key: "event_id", Value: 1}, {Key: "checkin_code", Value: 1}},
			Options: options.Index().SetUnique(true).
				SetPartialFilterExpression(bson.M{"checkin_code": bson.M{"$exists": true, "$gt": ""}}),
		},
	})
}
