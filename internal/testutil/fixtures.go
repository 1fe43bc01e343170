// internal/testutil/fixtures.go
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	"github.com/gatherhub/gatherhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateOrganization creates a test organization with the given name.
func (f *Fixtures) CreateOrganization(ctx context.Context, name string) models.Organization {
	f.t.Helper()

	now := time.Now().UTC()
	org := models.Organization{
		ID:        primitive.NewObjectID(),
		Name:      name,
		NameCI:    text.Fold(name),
		Status:    "active",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("organizations").InsertOne(ctx, org); err != nil {
		f.t.Fatalf("create test organization: %v", err)
	}
	return org
}

// CreateGroup creates a test group inside the organization.
func (f *Fixtures) CreateGroup(ctx context.Context, orgID primitive.ObjectID, name string) models.Group {
	f.t.Helper()

	now := time.Now().UTC()
	g := models.Group{
		ID:             primitive.NewObjectID(),
		Name:           name,
		NameCI:         text.Fold(name),
		OrganizationID: orgID,
		Status:         "active",
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if _, err := f.db.Collection("groups").InsertOne(ctx, g); err != nil {
		f.t.Fatalf("create test group: %v", err)
	}
	return g
}

// CreateUser creates a test user with the given role.
func (f *Fixtures) CreateUser(ctx context.Context, fullName, email, phone, role string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	u := models.User{
		ID:         primitive.NewObjectID(),
		FullName:   fullName,
		FullNameCI: text.Fold(fullName),
		Email:      email,
		Phone:      phone,
		Role:       role,
		Status:     "active",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("create test user: %v", err)
	}
	return u
}

// AssignOrganization puts an existing user in an organization. Required
// before membership adds, which enforce the user/group org match.
func (f *Fixtures) AssignOrganization(ctx context.Context, userID, orgID primitive.ObjectID) {
	f.t.Helper()

	if _, err := f.db.Collection("users").UpdateByID(ctx, userID,
		bson.M{"$set": bson.M{"organization_id": orgID, "updated_at": time.Now().UTC()}}); err != nil {
		f.t.Fatalf("assign organization: %v", err)
	}
}

// CreateMembership joins a user to a group with the given role and
// approval state.
func (f *Fixtures) CreateMembership(ctx context.Context, groupID, userID, orgID primitive.ObjectID, role string, approval models.MembershipApproval) models.GroupMembership {
	f.t.Helper()

	m := models.GroupMembership{
		ID:        primitive.NewObjectID(),
		GroupID:   groupID,
		UserID:    userID,
		OrgID:     orgID,
		Role:      role,
		Approval:  approval,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := f.db.Collection("group_memberships").InsertOne(ctx, m); err != nil {
		f.t.Fatalf("create test membership: %v", err)
	}
	return m
}

// CreateEvent creates a test event for the group. capacity <= 0 means
// unlimited.
func (f *Fixtures) CreateEvent(ctx context.Context, groupID primitive.ObjectID, title string, capacity int, requiresApproval bool) models.Event {
	f.t.Helper()

	now := time.Now().UTC()
	ev := models.Event{
		ID:               primitive.NewObjectID(),
		GroupID:          groupID,
		Title:            title,
		TitleCI:          text.Fold(title),
		Capacity:         capacity,
		RequiresApproval: requiresApproval,
		Active:           true,
		StartsAt:         now.Add(24 * time.Hour),
		EndsAt:           now.Add(27 * time.Hour),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if _, err := f.db.Collection("events").InsertOne(ctx, ev); err != nil {
		f.t.Fatalf("create test event: %v", err)
	}
	return ev
}

// CreateRegistration creates a self-registration row directly, bypassing
// the admission service.
func (f *Fixtures) CreateRegistration(ctx context.Context, eventID, userID primitive.ObjectID, status models.RegistrationStatus) models.Registration {
	f.t.Helper()

	now := time.Now().UTC()
	reg := models.Registration{
		ID:           primitive.NewObjectID(),
		EventID:      eventID,
		UserID:       userID,
		ContactName:  "Test Member",
		ContactPhone: "+15550000000",
		Status:       status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := f.db.Collection("registrations").InsertOne(ctx, reg); err != nil {
		f.t.Fatalf("create test registration: %v", err)
	}
	return reg
}

// CreateGuestRequest creates a guest request with entries directly,
// bypassing the admission service. One entry per name, all at the given
// status.
func (f *Fixtures) CreateGuestRequest(ctx context.Context, eventID, sponsorID primitive.ObjectID, status models.GuestStatus, guestNames ...string) (models.GuestRequest, []models.GuestEntry) {
	f.t.Helper()

	now := time.Now().UTC()
	req := models.GuestRequest{
		ID:           primitive.NewObjectID(),
		EventID:      eventID,
		SponsorID:    sponsorID,
		SponsorName:  "Test Sponsor",
		SponsorPhone: "+15550000001",
		GuestCount:   len(guestNames),
		Status:       status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := f.db.Collection("guest_requests").InsertOne(ctx, req); err != nil {
		f.t.Fatalf("create test guest request: %v", err)
	}

	var entries []models.GuestEntry
	for _, name := range guestNames {
		e := models.GuestEntry{
			ID:        primitive.NewObjectID(),
			RequestID: req.ID,
			EventID:   eventID,
			Name:      name,
			Phone:     "+15550000002",
			Status:    status,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if _, err := f.db.Collection("guest_entries").InsertOne(ctx, e); err != nil {
			f.t.Fatalf("create test guest entry: %v", err)
		}
		entries = append(entries, e)
	}
	return req, entries
}
