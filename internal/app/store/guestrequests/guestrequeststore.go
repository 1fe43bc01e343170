// internal/app/store/guestrequests/guestrequeststore.go
package guestrequeststore

import (
	"context"
	"time"

	"github.com/gatherhub/gatherhub/internal/app/system/normalize"
	"github.com/gatherhub/gatherhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store persists guest requests and their entries. The two collections
// are always written through this store so the parent's guest_count and
// its entry rows stay coherent.
type Store struct {
	requests *mongo.Collection
	entries  *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		requests: db.Collection("guest_requests"),
		entries:  db.Collection("guest_entries"),
	}
}

// CreateWithEntries inserts the parent request and one entry row per
// guest. The caller has already validated that len(entries) equals the
// declared guest count.
func (s *Store) CreateWithEntries(ctx context.Context, req models.GuestRequest, entries []models.GuestEntry) (models.GuestRequest, []models.GuestEntry, error) {
	now := time.Now().UTC()
	req.ID = primitive.NewObjectID()
	req.SponsorName = normalize.Name(req.SponsorName)
	req.SponsorPhone = normalize.Phone(req.SponsorPhone)
	req.GuestCount = len(entries)
	req.CreatedAt = now
	req.UpdatedAt = now

	if _, err := s.requests.InsertOne(ctx, req); err != nil {
		return models.GuestRequest{}, nil, err
	}

	docs := make([]interface{}, 0, len(entries))
	for i := range entries {
		entries[i].ID = primitive.NewObjectID()
		entries[i].RequestID = req.ID
		entries[i].EventID = req.EventID
		entries[i].Name = normalize.Name(entries[i].Name)
		entries[i].Phone = normalize.Phone(entries[i].Phone)
		entries[i].Email = normalize.Email(entries[i].Email)
		entries[i].CreatedAt = now
		entries[i].UpdatedAt = now
		docs = append(docs, entries[i])
	}
	if len(docs) > 0 {
		if _, err := s.entries.InsertMany(ctx, docs); err != nil {
			return models.GuestRequest{}, nil, err
		}
	}
	return req, entries, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.GuestRequest, error) {
	var req models.GuestRequest
	if err := s.requests.FindOne(ctx, bson.M{"_id": id}).Decode(&req); err != nil {
		return models.GuestRequest{}, err
	}
	return req, nil
}

func (s *Store) GetEntryByID(ctx context.Context, id primitive.ObjectID) (models.GuestEntry, error) {
	var e models.GuestEntry
	if err := s.entries.FindOne(ctx, bson.M{"_id": id}).Decode(&e); err != nil {
		return models.GuestEntry{}, err
	}
	return e, nil
}

// ListEntries returns a request's entries in insertion order.
func (s *Store) ListEntries(ctx context.Context, requestID primitive.ObjectID) ([]models.GuestEntry, error) {
	cur, err := s.entries.Find(ctx, bson.M{"request_id": requestID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.GuestEntry
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SumApprovedGuests totals the guest counts of Approved requests for the
// event, excluding excludeID when non-nil. This is the guest-path side of
// the capacity computation.
func (s *Store) SumApprovedGuests(ctx context.Context, eventID primitive.ObjectID, excludeID *primitive.ObjectID) (int64, error) {
	match := bson.M{
		"event_id": eventID,
		"status":   models.GuestApproved,
	}
	if excludeID != nil {
		match["_id"] = bson.M{"$ne": *excludeID}
	}

	cur, err := s.requests.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{"_id": nil, "total": bson.M{"$sum": "$guest_count"}}}},
	})
	if err != nil {
		return 0, err
	}
	defer cur.Close(ctx)

	var rows []struct {
		Total int64 `bson:"total"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Total, nil
}

// SetRequestStatus moves the parent request to a new status from any of
// the allowed ones, recording a reason in the named field ("" skips the
// reason). Returns the number of documents modified.
func (s *Store) SetRequestStatus(ctx context.Context, id primitive.ObjectID, allowed []models.GuestStatus, to models.GuestStatus, reasonField, reason string) (int64, error) {
	set := bson.M{
		"status":     to,
		"updated_at": time.Now().UTC(),
	}
	if reasonField != "" {
		set[reasonField] = reason
	}
	res, err := s.requests.UpdateOne(ctx,
		bson.M{"_id": id, "status": bson.M{"$in": allowed}},
		bson.M{"$set": set})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// SetEntryStatus moves one entry to a new status from any of the allowed
// ones. Returns the number of documents modified.
func (s *Store) SetEntryStatus(ctx context.Context, id primitive.ObjectID, allowed []models.GuestStatus, to models.GuestStatus, reasonField, reason string) (int64, error) {
	set := bson.M{
		"status":     to,
		"updated_at": time.Now().UTC(),
	}
	if reasonField != "" {
		set[reasonField] = reason
	}
	res, err := s.entries.UpdateOne(ctx,
		bson.M{"_id": id, "status": bson.M{"$in": allowed}},
		bson.M{"$set": set})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// SetEntryCode assigns an entry's check-in code if it does not have one.
func (s *Store) SetEntryCode(ctx context.Context, id primitive.ObjectID, code string) (int64, error) {
	res, err := s.entries.UpdateOne(ctx,
		bson.M{"_id": id, "$or": bson.A{
			bson.M{"checkin_code": bson.M{"$exists": false}},
			bson.M{"checkin_code": ""},
		}},
		bson.M{"$set": bson.M{"checkin_code": code, "updated_at": time.Now().UTC()}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// CascadeEntries moves every entry of a request currently in one of the
// allowed statuses to the target status. Returns the number of entries
// modified.
func (s *Store) CascadeEntries(ctx context.Context, requestID primitive.ObjectID, allowed []models.GuestStatus, to models.GuestStatus, reasonField, reason string) (int64, error) {
	set := bson.M{
		"status":     to,
		"updated_at": time.Now().UTC(),
	}
	if reasonField != "" {
		set[reasonField] = reason
	}
	res, err := s.entries.UpdateMany(ctx,
		bson.M{"request_id": requestID, "status": bson.M{"$in": allowed}},
		bson.M{"$set": set})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// ReplaceEntries swaps a Pending request's entire entry set: existing
// entries are deleted, the new ones inserted (all Pending), and the
// parent's guest_count and note updated to match. This is the only path
// that ever changes guest_count.
func (s *Store) ReplaceEntries(ctx context.Context, requestID primitive.ObjectID, req models.GuestRequest, entries []models.GuestEntry, note string) ([]models.GuestEntry, error) {
	now := time.Now().UTC()

	if _, err := s.entries.DeleteMany(ctx, bson.M{"request_id": requestID}); err != nil {
		return nil, err
	}

	docs := make([]interface{}, 0, len(entries))
	for i := range entries {
		entries[i].ID = primitive.NewObjectID()
		entries[i].RequestID = requestID
		entries[i].EventID = req.EventID
		entries[i].Name = normalize.Name(entries[i].Name)
		entries[i].Phone = normalize.Phone(entries[i].Phone)
		entries[i].Email = normalize.Email(entries[i].Email)
		entries[i].Status = models.GuestPending
		entries[i].CreatedAt = now
		entries[i].UpdatedAt = now
		docs = append(docs, entries[i])
	}
	if len(docs) > 0 {
		if _, err := s.entries.InsertMany(ctx, docs); err != nil {
			return nil, err
		}
	}

	_, err := s.requests.UpdateByID(ctx, requestID, bson.M{"$set": bson.M{
		"guest_count": len(entries),
		"note":        note,
		"updated_at":  now,
	}})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// CountEntries counts a request's entries, optionally filtered by status
// (nil means all).
func (s *Store) CountEntries(ctx context.Context, requestID primitive.ObjectID, statuses []models.GuestStatus) (int64, error) {
	filter := bson.M{"request_id": requestID}
	if len(statuses) > 0 {
		filter["status"] = bson.M{"$in": statuses}
	}
	return s.entries.CountDocuments(ctx, filter)
}

// EntryCodeExists reports whether a check-in code is already issued for
// the event on the guest path.
func (s *Store) EntryCodeExists(ctx context.Context, eventID primitive.ObjectID, code string) (bool, error) {
	n, err := s.entries.CountDocuments(ctx, bson.M{"event_id": eventID, "checkin_code": code})
	return n > 0, err
}

// CheckInEntry marks an Approved entry Registered at the given time.
// Returns the number of documents modified.
func (s *Store) CheckInEntry(ctx context.Context, id primitive.ObjectID, at time.Time) (int64, error) {
	res, err := s.entries.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.GuestApproved},
		bson.M{"$set": bson.M{
			"status":     models.GuestRegistered,
			"checkin_at": at,
			"updated_at": time.Now().UTC(),
		}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// ListByEvent returns an event's guest requests, oldest first, optionally
// filtered by status (nil means all).
func (s *Store) ListByEvent(ctx context.Context, eventID primitive.ObjectID, statuses []models.GuestStatus) ([]models.GuestRequest, error) {
	filter := bson.M{"event_id": eventID}
	if len(statuses) > 0 {
		filter["status"] = bson.M{"$in": statuses}
	}
	cur, err := s.requests.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.GuestRequest
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListEntriesByPhone returns all guest entries carrying the normalized
// phone, newest first.
func (s *Store) ListEntriesByPhone(ctx context.Context, phone string) ([]models.GuestEntry, error) {
	cur, err := s.entries.Find(ctx, bson.M{"phone": normalize.Phone(phone)},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.GuestEntry
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListBySponsorPhone returns a sponsor's requests, newest first.
func (s *Store) ListBySponsorPhone(ctx context.Context, phone string) ([]models.GuestRequest, error) {
	cur, err := s.requests.Find(ctx, bson.M{"sponsor_phone": normalize.Phone(phone)},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.GuestRequest
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
