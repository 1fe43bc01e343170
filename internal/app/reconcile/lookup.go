// internal/app/reconcile/lookup.go
package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/gatherhub/gatherhub/internal/app/system/normalize"
	"github.com/gatherhub/gatherhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrNotFound is returned when a lookup matches nothing.
var ErrNotFound = errors.New("reconcile: not found")

// Participation is one reconciled row from either intake path.
type Participation struct {
	Kind        string             `json:"kind"` // "registration", "guest_request", "guest_entry"
	ID          primitive.ObjectID `json:"id"`
	EventID     primitive.ObjectID `json:"event_id"`
	DisplayName string             `json:"display_name"`
	Phone       string             `json:"phone"`
	GuestCount  int                `json:"guest_count,omitempty"`
	View        View               `json:"view"`
}

// RequestDetail is a guest request with its reconciled entries.
type RequestDetail struct {
	Request Participation   `json:"request"`
	Entries []Participation `json:"entries"`
}

// RegistrationReader is the slice of the registrations store used by
// lookups.
type RegistrationReader interface {
	ListByPhone(ctx context.Context, phone string) ([]models.Registration, error)
}

// GuestReader is the slice of the guest-requests store used by lookups.
type GuestReader interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.GuestRequest, error)
	ListEntries(ctx context.Context, requestID primitive.ObjectID) ([]models.GuestEntry, error)
	ListEntriesByPhone(ctx context.Context, phone string) ([]models.GuestEntry, error)
	ListBySponsorPhone(ctx context.Context, phone string) ([]models.GuestRequest, error)
}

// Lookup answers read queries across both intake paths with reconciled
// views.
type Lookup struct {
	regs   RegistrationReader
	guests GuestReader
}

func NewLookup(regs RegistrationReader, guests GuestReader) *Lookup {
	return &Lookup{regs: regs, guests: guests}
}

// ByContact returns every participation row carrying the phone number:
// self-registrations by contact phone, guest entries by guest phone, and
// guest requests by sponsor phone.
func (l *Lookup) ByContact(ctx context.Context, phone string) ([]Participation, error) {
	phone = normalize.Phone(phone)
	if phone == "" {
		return nil, nil
	}

	var out []Participation

	regs, err := l.regs.ListByPhone(ctx, phone)
	if err != nil {
		return nil, fmt.Errorf("lookup registrations by phone: %w", err)
	}
	for _, r := range regs {
		out = append(out, Participation{
			Kind:        "registration",
			ID:          r.ID,
			EventID:     r.EventID,
			DisplayName: r.ContactName,
			Phone:       r.ContactPhone,
			View:        Registration(r),
		})
	}

	entries, err := l.guests.ListEntriesByPhone(ctx, phone)
	if err != nil {
		return nil, fmt.Errorf("lookup guest entries by phone: %w", err)
	}
	for _, e := range entries {
		out = append(out, Participation{
			Kind:        "guest_entry",
			ID:          e.ID,
			EventID:     e.EventID,
			DisplayName: e.Name,
			Phone:       e.Phone,
			View:        GuestEntry(e),
		})
	}

	reqs, err := l.guests.ListBySponsorPhone(ctx, phone)
	if err != nil {
		return nil, fmt.Errorf("lookup guest requests by sponsor phone: %w", err)
	}
	for _, g := range reqs {
		out = append(out, Participation{
			Kind:        "guest_request",
			ID:          g.ID,
			EventID:     g.EventID,
			DisplayName: g.SponsorName,
			Phone:       g.SponsorPhone,
			GuestCount:  g.GuestCount,
			View:        GuestRequest(g),
		})
	}
	return out, nil
}

// ByRequestID returns one guest request and its entries, reconciled.
func (l *Lookup) ByRequestID(ctx context.Context, id primitive.ObjectID) (RequestDetail, error) {
	req, err := l.guests.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return RequestDetail{}, ErrNotFound
		}
		return RequestDetail{}, fmt.Errorf("lookup guest request: %w", err)
	}

	detail := RequestDetail{
		Request: Participation{
			Kind:        "guest_request",
			ID:          req.ID,
			EventID:     req.EventID,
			DisplayName: req.SponsorName,
			Phone:       req.SponsorPhone,
			GuestCount:  req.GuestCount,
			View:        GuestRequest(req),
		},
	}

	entries, err := l.guests.ListEntries(ctx, id)
	if err != nil {
		return RequestDetail{}, fmt.Errorf("lookup guest entries: %w", err)
	}
	for _, e := range entries {
		detail.Entries = append(detail.Entries, Participation{
			Kind:        "guest_entry",
			ID:          e.ID,
			EventID:     e.EventID,
			DisplayName: e.Name,
			Phone:       e.Phone,
			View:        GuestEntry(e),
		})
	}
	return detail, nil
}
