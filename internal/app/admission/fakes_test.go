// internal/app/admission/fakes_test.go
package admission

import (
	"context"
	"sync"
	"time"

	"github.com/gatherhub/gatherhub/internal/app/notify"
	registrationstore "github.com/gatherhub/gatherhub/internal/app/store/registrations"
	"github.com/gatherhub/gatherhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// In-memory stand-ins mirroring the guarded-update semantics of the
// mongo stores, so the state machines can be exercised without a
// database.

type fakeEvents struct {
	mu     sync.Mutex
	events map[primitive.ObjectID]models.Event
}

func newFakeEvents() *fakeEvents {
	return &fakeEvents{events: make(map[primitive.ObjectID]models.Event)}
}

func (f *fakeEvents) add(ev models.Event) models.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ev.ID.IsZero() {
		ev.ID = primitive.NewObjectID()
	}
	f.events[ev.ID] = ev
	return ev
}

func (f *fakeEvents) GetByID(_ context.Context, id primitive.ObjectID) (models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ev, ok := f.events[id]
	if !ok {
		return models.Event{}, mongo.ErrNoDocuments
	}
	return ev, nil
}

type fakeRegs struct {
	mu   sync.Mutex
	rows map[primitive.ObjectID]*models.Registration
}

func newFakeRegs() *fakeRegs {
	return &fakeRegs{rows: make(map[primitive.ObjectID]*models.Registration)}
}

func (f *fakeRegs) GetByID(_ context.Context, id primitive.ObjectID) (models.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok {
		return models.Registration{}, mongo.ErrNoDocuments
	}
	return *r, nil
}

func (f *fakeRegs) Create(_ context.Context, reg models.Registration) (models.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.EventID == reg.EventID && r.UserID == reg.UserID && r.Status < models.RegistrationCancelled {
			return models.Registration{}, registrationstore.ErrDuplicateRegistration
		}
	}
	reg.ID = primitive.NewObjectID()
	reg.CreatedAt = time.Now().UTC()
	reg.UpdatedAt = reg.CreatedAt
	f.rows[reg.ID] = &reg
	return reg, nil
}

func (f *fakeRegs) CountAdmitted(_ context.Context, eventID primitive.ObjectID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, r := range f.rows {
		if r.EventID == eventID &&
			(r.Status == models.RegistrationConfirmed || r.Status == models.RegistrationCheckedIn) {
			n++
		}
	}
	return n, nil
}

func (f *fakeRegs) Confirm(_ context.Context, id primitive.ObjectID, code string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok || r.Status != models.RegistrationPending {
		return 0, nil
	}
	r.Status = models.RegistrationConfirmed
	r.CheckInCode = code
	return 1, nil
}

func (f *fakeRegs) Cancel(_ context.Context, id primitive.ObjectID, reason string, allowed []models.RegistrationStatus) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok || !containsReg(allowed, r.Status) {
		return 0, nil
	}
	r.Status = models.RegistrationCancelled
	r.CancelReason = reason
	return 1, nil
}

func (f *fakeRegs) CheckIn(_ context.Context, id primitive.ObjectID, at time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok || r.Status != models.RegistrationConfirmed {
		return 0, nil
	}
	r.Status = models.RegistrationCheckedIn
	r.CheckInAt = &at
	return 1, nil
}

func (f *fakeRegs) CodeExists(_ context.Context, eventID primitive.ObjectID, code string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.EventID == eventID && r.CheckInCode == code {
			return true, nil
		}
	}
	return false, nil
}

func containsReg(allowed []models.RegistrationStatus, s models.RegistrationStatus) bool {
	for _, a := range allowed {
		if a == s {
			return true
		}
	}
	return false
}

func containsGuest(allowed []models.GuestStatus, s models.GuestStatus) bool {
	for _, a := range allowed {
		if a == s {
			return true
		}
	}
	return false
}

type fakeGuests struct {
	mu       sync.Mutex
	requests map[primitive.ObjectID]*models.GuestRequest
	entries  map[primitive.ObjectID]*models.GuestEntry
	order    map[primitive.ObjectID][]primitive.ObjectID // requestID -> entry IDs
}

func newFakeGuests() *fakeGuests {
	return &fakeGuests{
		requests: make(map[primitive.ObjectID]*models.GuestRequest),
		entries:  make(map[primitive.ObjectID]*models.GuestEntry),
		order:    make(map[primitive.ObjectID][]primitive.ObjectID),
	}
}

func (f *fakeGuests) CreateWithEntries(_ context.Context, req models.GuestRequest, entries []models.GuestEntry) (models.GuestRequest, []models.GuestEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req.ID = primitive.NewObjectID()
	req.GuestCount = len(entries)
	f.requests[req.ID] = &req
	for i := range entries {
		entries[i].ID = primitive.NewObjectID()
		entries[i].RequestID = req.ID
		entries[i].EventID = req.EventID
		e := entries[i]
		f.entries[e.ID] = &e
		f.order[req.ID] = append(f.order[req.ID], e.ID)
	}
	return req, entries, nil
}

func (f *fakeGuests) GetByID(_ context.Context, id primitive.ObjectID) (models.GuestRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.requests[id]
	if !ok {
		return models.GuestRequest{}, mongo.ErrNoDocuments
	}
	return *r, nil
}

func (f *fakeGuests) GetEntryByID(_ context.Context, id primitive.ObjectID) (models.GuestEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[id]
	if !ok {
		return models.GuestEntry{}, mongo.ErrNoDocuments
	}
	return *e, nil
}

func (f *fakeGuests) ListEntries(_ context.Context, requestID primitive.ObjectID) ([]models.GuestEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.GuestEntry
	for _, id := range f.order[requestID] {
		if e, ok := f.entries[id]; ok {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (f *fakeGuests) SumApprovedGuests(_ context.Context, eventID primitive.ObjectID, excludeID *primitive.ObjectID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var total int64
	for _, r := range f.requests {
		if r.EventID != eventID || r.Status != models.GuestApproved {
			continue
		}
		if excludeID != nil && r.ID == *excludeID {
			continue
		}
		total += int64(r.GuestCount)
	}
	return total, nil
}

func (f *fakeGuests) SetRequestStatus(_ context.Context, id primitive.ObjectID, allowed []models.GuestStatus, to models.GuestStatus, reasonField, reason string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.requests[id]
	if !ok || !containsGuest(allowed, r.Status) {
		return 0, nil
	}
	r.Status = to
	applyGuestReason(reasonField, reason, &r.RejectReason, &r.CancelReason)
	return 1, nil
}

func (f *fakeGuests) SetEntryStatus(_ context.Context, id primitive.ObjectID, allowed []models.GuestStatus, to models.GuestStatus, reasonField, reason string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[id]
	if !ok || !containsGuest(allowed, e.Status) {
		return 0, nil
	}
	e.Status = to
	applyGuestReason(reasonField, reason, &e.RejectReason, &e.CancelReason)
	return 1, nil
}

func applyGuestReason(field, reason string, reject, cancel *string) {
	switch field {
	case "reject_reason":
		*reject = reason
	case "cancel_reason":
		*cancel = reason
	}
}

func (f *fakeGuests) SetEntryCode(_ context.Context, id primitive.ObjectID, code string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[id]
	if !ok || e.CheckInCode != "" {
		return 0, nil
	}
	e.CheckInCode = code
	return 1, nil
}

func (f *fakeGuests) CascadeEntries(_ context.Context, requestID primitive.ObjectID, allowed []models.GuestStatus, to models.GuestStatus, reasonField, reason string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, id := range f.order[requestID] {
		e := f.entries[id]
		if e == nil || !containsGuest(allowed, e.Status) {
			continue
		}
		e.Status = to
		applyGuestReason(reasonField, reason, &e.RejectReason, &e.CancelReason)
		n++
	}
	return n, nil
}

func (f *fakeGuests) ReplaceEntries(_ context.Context, requestID primitive.ObjectID, req models.GuestRequest, entries []models.GuestEntry, note string) ([]models.GuestEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range f.order[requestID] {
		delete(f.entries, id)
	}
	f.order[requestID] = nil
	for i := range entries {
		entries[i].ID = primitive.NewObjectID()
		entries[i].RequestID = requestID
		entries[i].EventID = req.EventID
		entries[i].Status = models.GuestPending
		e := entries[i]
		f.entries[e.ID] = &e
		f.order[requestID] = append(f.order[requestID], e.ID)
	}
	if r, ok := f.requests[requestID]; ok {
		r.GuestCount = len(entries)
		r.Note = note
	}
	return entries, nil
}

func (f *fakeGuests) CountEntries(_ context.Context, requestID primitive.ObjectID, statuses []models.GuestStatus) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, id := range f.order[requestID] {
		e := f.entries[id]
		if e == nil {
			continue
		}
		if len(statuses) == 0 || containsGuest(statuses, e.Status) {
			n++
		}
	}
	return n, nil
}

func (f *fakeGuests) EntryCodeExists(_ context.Context, eventID primitive.ObjectID, code string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.entries {
		if e.EventID == eventID && e.CheckInCode == code {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeGuests) CheckInEntry(_ context.Context, id primitive.ObjectID, at time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[id]
	if !ok || e.Status != models.GuestApproved {
		return 0, nil
	}
	e.Status = models.GuestRegistered
	e.CheckInAt = &at
	return 1, nil
}

type fakeScheduler struct {
	mu       sync.Mutex
	payloads []notify.Payload
}

func (f *fakeScheduler) Schedule(p notify.Payload) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, p)
}

func (f *fakeScheduler) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payloads)
}

func (f *fakeScheduler) last() notify.Payload {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.payloads) == 0 {
		return notify.Payload{}
	}
	return f.payloads[len(f.payloads)-1]
}

type testEnv struct {
	svc    *Service
	events *fakeEvents
	regs   *fakeRegs
	guests *fakeGuests
	sched  *fakeScheduler
}

func newTestEnv(strict bool) *testEnv {
	env := &testEnv{
		events: newFakeEvents(),
		regs:   newFakeRegs(),
		guests: newFakeGuests(),
		sched:  &fakeScheduler{},
	}
	env.svc = NewService(env.events, env.regs, env.guests, env.sched, zap.NewNop(), strict)
	return env
}

func (e *testEnv) addEvent(capacity int, requiresApproval, active bool) models.Event {
	return e.events.add(models.Event{
		GroupID:          primitive.NewObjectID(),
		Title:            "Fall Social",
		Capacity:         capacity,
		RequiresApproval: requiresApproval,
		Active:           active,
	})
}
