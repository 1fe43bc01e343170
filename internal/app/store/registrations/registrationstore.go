// internal/app/store/registrations/registrationstore.go
package registrationstore

import (
	"context"
	"errors"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/gatherhub/gatherhub/internal/app/system/normalize"
	"github.com/gatherhub/gatherhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

// ErrDuplicateRegistration fires on the partial unique index over
// (event_id, user_id) for non-cancelled rows: one live registration per
// registrant per event.
var ErrDuplicateRegistration = errors.New("user already has an active registration for this event")

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("registrations")}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Registration, error) {
	var reg models.Registration
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&reg); err != nil {
		return models.Registration{}, err
	}
	return reg, nil
}

func (s *Store) Create(ctx context.Context, reg models.Registration) (models.Registration, error) {
	now := time.Now().UTC()
	reg.ID = primitive.NewObjectID()
	reg.ContactName = normalize.Name(reg.ContactName)
	reg.ContactPhone = normalize.Phone(reg.ContactPhone)
	reg.CreatedAt = now
	reg.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, reg); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Registration{}, ErrDuplicateRegistration
		}
		return models.Registration{}, err
	}
	return reg, nil
}

// CountAdmitted counts the registrations currently occupying a slot:
// Confirmed plus CheckedIn.
func (s *Store) CountAdmitted(ctx context.Context, eventID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{
		"event_id": eventID,
		"status": bson.M{"$in": []models.RegistrationStatus{
			models.RegistrationConfirmed,
			models.RegistrationCheckedIn,
		}},
	})
}

// Confirm flips a Pending registration to Confirmed with its check-in
// code. Returns the number of documents modified; 0 means the row was not
// Pending anymore (or does not exist) and nothing was committed.
func (s *Store) Confirm(ctx context.Context, id primitive.ObjectID, code string) (int64, error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.RegistrationPending},
		bson.M{"$set": bson.M{
			"status":       models.RegistrationConfirmed,
			"checkin_code": code,
			"updated_at":   time.Now().UTC(),
		}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// Cancel moves a registration to Cancelled from any of the allowed
// statuses, recording the reason. Returns the number of documents
// modified.
func (s *Store) Cancel(ctx context.Context, id primitive.ObjectID, reason string, allowed []models.RegistrationStatus) (int64, error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "status": bson.M{"$in": allowed}},
		bson.M{"$set": bson.M{
			"status":        models.RegistrationCancelled,
			"cancel_reason": reason,
			"updated_at":    time.Now().UTC(),
		}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// CheckIn marks a Confirmed registration CheckedIn at the given time.
// Returns the number of documents modified.
func (s *Store) CheckIn(ctx context.Context, id primitive.ObjectID, at time.Time) (int64, error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.RegistrationConfirmed},
		bson.M{"$set": bson.M{
			"status":     models.RegistrationCheckedIn,
			"checkin_at": at,
			"updated_at": time.Now().UTC(),
		}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// CodeExists reports whether a check-in code is already issued for the
// event on this path.
func (s *Store) CodeExists(ctx context.Context, eventID primitive.ObjectID, code string) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{"event_id": eventID, "checkin_code": code})
	return n > 0, err
}

// ListByEvent returns an event's registrations, oldest first, optionally
// filtered by status (nil means all).
func (s *Store) ListByEvent(ctx context.Context, eventID primitive.ObjectID, statuses []models.RegistrationStatus) ([]models.Registration, error) {
	filter := bson.M{"event_id": eventID}
	if len(statuses) > 0 {
		filter["status"] = bson.M{"$in": statuses}
	}
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Registration
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListByPhone returns all registrations carrying the normalized phone,
// newest first.
func (s *Store) ListByPhone(ctx context.Context, phone string) ([]models.Registration, error) {
	cur, err := s.c.Find(ctx, bson.M{"contact_phone": normalize.Phone(phone)},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Registration
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetActiveByEventAndUser returns the registrant's live (non-cancelled)
// registration for the event, or mongo.ErrNoDocuments.
func (s *Store) GetActiveByEventAndUser(ctx context.Context, eventID, userID primitive.ObjectID) (models.Registration, error) {
	var reg models.Registration
	err := s.c.FindOne(ctx, bson.M{
		"event_id": eventID,
		"user_id":  userID,
		"status":   bson.M{"$lt": models.RegistrationCancelled},
	}).Decode(&reg)
	if err != nil {
		return models.Registration{}, err
	}
	return reg, nil
}
