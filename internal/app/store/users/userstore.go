// internal/app/store/users/userstore.go
package userstore

import (
	"context"
	"errors"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/gatherhub/gatherhub/internal/app/system/normalize"
	"github.com/gatherhub/gatherhub/internal/app/system/status"
	"github.com/gatherhub/gatherhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

type Store struct {
	c *mongo.Collection
}

var ErrDuplicateEmail = errors.New("a user with this email already exists")

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByEmail looks up a user by case-insensitive email. Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByPhone looks up a user by normalized phone number.
func (s *Store) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"phone": normalize.Phone(phone)}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a user with normalized fields. The password, when
// non-empty, is stored as a bcrypt hash.
func (s *Store) Create(ctx context.Context, u models.User, password string) (*models.User, error) {
	now := time.Now().UTC()
	u.ID = primitive.NewObjectID()
	u.FullName = normalize.Name(u.FullName)
	u.FullNameCI = text.Fold(u.FullName)
	u.Email = normalize.Email(u.Email)
	u.Phone = normalize.Phone(u.Phone)
	u.Role = normalize.Role(u.Role)
	if u.Status == "" {
		u.Status = status.Active
	}
	u.CreatedAt = now
	u.UpdatedAt = now

	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		u.PasswordHash = string(hash)
	}

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return &u, nil
}

// VerifyPassword checks a candidate password against the stored hash.
func (s *Store) VerifyPassword(u *models.User, password string) bool {
	if u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// UpdateContact sets a user's display name and phone.
func (s *Store) UpdateContact(ctx context.Context, id primitive.ObjectID, fullName, phone string) error {
	fullName = normalize.Name(fullName)
	set := bson.M{
		"updated_at": time.Now().UTC(),
		"phone":      normalize.Phone(phone),
	}
	if fullName != "" {
		set["full_name"] = fullName
		set["full_name_ci"] = text.Fold(fullName)
	}
	_, err := s.c.UpdateByID(ctx, id, bson.M{"$set": set})
	return err
}

// SetStatus enables or disables a user account.
func (s *Store) SetStatus(ctx context.Context, id primitive.ObjectID, stat string) error {
	stat = normalize.Status(stat)
	if !status.IsValid(stat) {
		return mongo.CommandError{Message: "status must be active or disabled"}
	}
	_, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"status":     stat,
		"updated_at": time.Now().UTC(),
	}})
	return err
}
