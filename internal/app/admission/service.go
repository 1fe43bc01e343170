// internal/app/admission/service.go

// Package admission implements event admission control: the
// self-registration and guest-list state machines, the capacity
// calculator both consult, check-in credential issuance, and the
// hand-off to the notification scheduler after successful commits.
package admission

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gatherhub/gatherhub/internal/app/notify"
	"github.com/gatherhub/gatherhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EventSource is the slice of the events store the service reads.
type EventSource interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Event, error)
}

// RegistrationStore is the slice of the registrations store the
// self-registration machine writes through.
type RegistrationStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Registration, error)
	Create(ctx context.Context, reg models.Registration) (models.Registration, error)
	CountAdmitted(ctx context.Context, eventID primitive.ObjectID) (int64, error)
	Confirm(ctx context.Context, id primitive.ObjectID, code string) (int64, error)
	Cancel(ctx context.Context, id primitive.ObjectID, reason string, allowed []models.RegistrationStatus) (int64, error)
	CheckIn(ctx context.Context, id primitive.ObjectID, at time.Time) (int64, error)
	CodeExists(ctx context.Context, eventID primitive.ObjectID, code string) (bool, error)
}

// GuestStore is the slice of the guest-requests store the guest-list
// machine writes through.
type GuestStore interface {
	CreateWithEntries(ctx context.Context, req models.GuestRequest, entries []models.GuestEntry) (models.GuestRequest, []models.GuestEntry, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (models.GuestRequest, error)
	GetEntryByID(ctx context.Context, id primitive.ObjectID) (models.GuestEntry, error)
	ListEntries(ctx context.Context, requestID primitive.ObjectID) ([]models.GuestEntry, error)
	SumApprovedGuests(ctx context.Context, eventID primitive.ObjectID, excludeID *primitive.ObjectID) (int64, error)
	SetRequestStatus(ctx context.Context, id primitive.ObjectID, allowed []models.GuestStatus, to models.GuestStatus, reasonField, reason string) (int64, error)
	SetEntryStatus(ctx context.Context, id primitive.ObjectID, allowed []models.GuestStatus, to models.GuestStatus, reasonField, reason string) (int64, error)
	SetEntryCode(ctx context.Context, id primitive.ObjectID, code string) (int64, error)
	CascadeEntries(ctx context.Context, requestID primitive.ObjectID, allowed []models.GuestStatus, to models.GuestStatus, reasonField, reason string) (int64, error)
	ReplaceEntries(ctx context.Context, requestID primitive.ObjectID, req models.GuestRequest, entries []models.GuestEntry, note string) ([]models.GuestEntry, error)
	CountEntries(ctx context.Context, requestID primitive.ObjectID, statuses []models.GuestStatus) (int64, error)
	EntryCodeExists(ctx context.Context, eventID primitive.ObjectID, code string) (bool, error)
	CheckInEntry(ctx context.Context, id primitive.ObjectID, at time.Time) (int64, error)
}

// Scheduler queues outbound status notifications. Scheduling never
// blocks and never fails.
type Scheduler interface {
	Schedule(p notify.Payload)
}

// Service drives both admission state machines.
type Service struct {
	events   EventSource
	regs     RegistrationStore
	guests   GuestStore
	notifier Scheduler
	log      *zap.Logger

	// strict serializes approval paths per event within this process
	// (config capacity_strict). Default off: the capacity check stays
	// read-then-decide and two racing approvals can both pass it.
	strict     bool
	mu         sync.Mutex
	eventLocks map[primitive.ObjectID]*sync.Mutex
}

func NewService(events EventSource, regs RegistrationStore, guests GuestStore, notifier Scheduler, logger *zap.Logger, strict bool) *Service {
	return &Service{
		events:     events,
		regs:       regs,
		guests:     guests,
		notifier:   notifier,
		log:        logger,
		strict:     strict,
		eventLocks: make(map[primitive.ObjectID]*sync.Mutex),
	}
}

// lockEvent returns the unlock func for the event's approval lock, or a
// no-op when strict mode is off.
func (s *Service) lockEvent(id primitive.ObjectID) func() {
	if !s.strict {
		return func() {}
	}
	s.mu.Lock()
	l, ok := s.eventLocks[id]
	if !ok {
		l = &sync.Mutex{}
		s.eventLocks[id] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// getEvent loads an event, mapping a missing document to ErrNotFound.
func (s *Service) getEvent(ctx context.Context, id primitive.ObjectID) (models.Event, error) {
	ev, err := s.events.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Event{}, ErrNotFound
		}
		return models.Event{}, err
	}
	return ev, nil
}

func mapNotFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

// schedule hands a payload to the notifier. Only called after a commit
// that modified at least one document.
func (s *Service) schedule(p notify.Payload) {
	if s.notifier == nil {
		return
	}
	s.notifier.Schedule(notify.NewPayload(p))
}
