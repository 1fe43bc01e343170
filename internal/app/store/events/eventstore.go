// internal/app/store/events/eventstore.go
package eventstore

import (
	"context"
	"time"

	"github.com/gatherhub/gatherhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("events")}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Event, error) {
	var e models.Event
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&e); err != nil {
		return models.Event{}, err
	}
	return e, nil
}

func (s *Store) Create(ctx context.Context, e models.Event) (models.Event, error) {
	now := time.Now().UTC()
	e.ID = primitive.NewObjectID()
	e.TitleCI = text.Fold(e.Title)
	e.CreatedAt = now
	e.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, e); err != nil {
		return models.Event{}, err
	}
	return e, nil
}

// UpdateInfo updates an event's descriptive and admission fields. Capacity
// may legitimately be set to zero or below (unlimited), so it is always
// written.
func (s *Store) UpdateInfo(ctx context.Context, id primitive.ObjectID, title, detail string, capacity int, requiresApproval bool, startsAt, endsAt time.Time) error {
	set := bson.M{
		"updated_at":        time.Now().UTC(),
		"detail":            detail,
		"capacity":          capacity,
		"requires_approval": requiresApproval,
	}
	if title != "" {
		set["title"] = title
		set["title_ci"] = text.Fold(title)
	}
	if !startsAt.IsZero() {
		set["starts_at"] = startsAt
	}
	if !endsAt.IsZero() {
		set["ends_at"] = endsAt
	}
	_, err := s.c.UpdateByID(ctx, id, bson.M{"$set": set})
	return err
}

// SetActive opens or closes the event for intake.
func (s *Store) SetActive(ctx context.Context, id primitive.ObjectID, active bool) error {
	_, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"active":     active,
		"updated_at": time.Now().UTC(),
	}})
	return err
}

// ListByGroup returns the group's events, soonest first.
func (s *Store) ListByGroup(ctx context.Context, groupID primitive.ObjectID) ([]models.Event, error) {
	cur, err := s.c.Find(ctx, bson.M{"group_id": groupID},
		options.Find().SetSort(bson.D{{Key: "starts_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Event
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes an event by ID. Returns the number of documents deleted (0 or 1).
// Participation rows are never deleted here; cancellation is a status
// transition handled by the admission service.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
