// internal/app/admission/guestlist.go
package admission

import (
	"context"
	"time"

	"github.com/gatherhub/gatherhub/internal/app/notify"
	"github.com/gatherhub/gatherhub/internal/app/reconcile"
	"github.com/gatherhub/gatherhub/internal/app/system/htmlsanitize"
	"github.com/gatherhub/gatherhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Guest-list lifecycle: a parent request and its entries each move
// through the guest status codes independently. Rejected and Cancelled
// are terminal at both levels. Registered (checked in) entries are never
// cascaded over.

var nonTerminalGuest = []models.GuestStatus{
	models.GuestPending, models.GuestApproved,
	models.GuestPendingRegistration, models.GuestRegistered,
}

// GuestInput is one guest supplied at submission or update time.
type GuestInput struct {
	Name  string
	Phone string
	Email string
}

func buildEntries(guests []GuestInput) ([]models.GuestEntry, error) {
	entries := make([]models.GuestEntry, 0, len(guests))
	for _, g := range guests {
		name := htmlsanitize.PlainText(g.Name)
		if name == "" {
			return nil, &ValidationError{Msg: "every guest needs a name"}
		}
		entries = append(entries, models.GuestEntry{
			Name:   name,
			Phone:  g.Phone,
			Email:  g.Email,
			Status: models.GuestPending,
		})
	}
	return entries, nil
}

// SubmitGuestGroup creates a sponsor's guest request with one entry per
// guest. declaredCount must match the supplied guests exactly. The
// capacity check is advisory with cost = declaredCount. When the event
// does not require approval the parent is created directly Approved,
// each entry still starting Pending for its own entry-level workflow.
func (s *Service) SubmitGuestGroup(ctx context.Context, eventID, sponsorID primitive.ObjectID, sponsorName, sponsorPhone string, declaredCount int, guests []GuestInput, note string) (models.GuestRequest, []models.GuestEntry, error) {
	ev, err := s.getEvent(ctx, eventID)
	if err != nil {
		return models.GuestRequest{}, nil, err
	}
	if !ev.Active {
		return models.GuestRequest{}, nil, &InvalidStateError{Op: "submit guest group", Status: "inactive event"}
	}
	if declaredCount < 1 {
		return models.GuestRequest{}, nil, &ValidationError{Msg: "guest count must be at least 1"}
	}
	if len(guests) != declaredCount {
		return models.GuestRequest{}, nil, &ValidationError{Msg: "declared guest count does not match supplied guests"}
	}
	if sponsorPhone == "" {
		return models.GuestRequest{}, nil, &ValidationError{Msg: "sponsor phone is required"}
	}
	entries, err := buildEntries(guests)
	if err != nil {
		return models.GuestRequest{}, nil, err
	}

	if err := s.checkCapacity(ctx, ev, nil, int64(declaredCount)); err != nil {
		return models.GuestRequest{}, nil, err
	}

	req := models.GuestRequest{
		EventID:      eventID,
		SponsorID:    sponsorID,
		SponsorName:  htmlsanitize.PlainText(sponsorName),
		SponsorPhone: sponsorPhone,
		Note:         htmlsanitize.PlainText(note),
		Status:       models.GuestPending,
	}
	if !ev.RequiresApproval {
		req.Status = models.GuestApproved
	}

	req, entries, err = s.guests.CreateWithEntries(ctx, req, entries)
	if err != nil {
		return models.GuestRequest{}, nil, err
	}

	s.log.Info("guest group submitted",
		zap.String("event_id", eventID.Hex()),
		zap.String("request_id", req.ID.Hex()),
		zap.Int("guest_count", req.GuestCount),
		zap.Int("status", int(req.Status)))
	s.schedule(s.guestPayload(req, ev.Title))
	return req, entries, nil
}

// DecideGuestGroup approves or rejects a Pending request as a unit.
// Approval re-checks capacity authoritatively excluding this request's
// own contribution, issues per-entry credentials, and moves the parent
// and every undecided entry to Approved. Rejection cascades Rejected to
// every undecided entry. Terminal and already-registered entries are
// left alone.
func (s *Service) DecideGuestGroup(ctx context.Context, requestID primitive.ObjectID, approve bool, reason string) (models.GuestRequest, error) {
	req, err := s.guests.GetByID(ctx, requestID)
	if err != nil {
		return models.GuestRequest{}, mapNotFound(err)
	}
	if req.Status != models.GuestPending {
		return models.GuestRequest{}, &InvalidStateError{
			Op:     "decide guest group",
			Status: reconcile.GuestStatusText(req.Status),
		}
	}

	ev, err := s.getEvent(ctx, req.EventID)
	if err != nil {
		return models.GuestRequest{}, err
	}

	if approve {
		unlock := s.lockEvent(ev.ID)
		defer unlock()

		if err := s.checkCapacity(ctx, ev, &requestID, int64(req.GuestCount)); err != nil {
			return models.GuestRequest{}, err
		}
		if err := s.issueEntryCodes(ctx, ev.ID, requestID); err != nil {
			return models.GuestRequest{}, err
		}

		n, err := s.guests.SetRequestStatus(ctx, requestID,
			[]models.GuestStatus{models.GuestPending}, models.GuestApproved, "", "")
		if err != nil {
			return models.GuestRequest{}, err
		}
		if n == 0 {
			return models.GuestRequest{}, &PersistenceError{Op: "approve guest group"}
		}
		if _, err := s.guests.CascadeEntries(ctx, requestID,
			[]models.GuestStatus{models.GuestPending, models.GuestPendingRegistration},
			models.GuestApproved, "", ""); err != nil {
			return models.GuestRequest{}, err
		}
		req.Status = models.GuestApproved
	} else {
		reason = htmlsanitize.PlainText(reason)
		n, err := s.guests.SetRequestStatus(ctx, requestID,
			[]models.GuestStatus{models.GuestPending}, models.GuestRejected, "reject_reason", reason)
		if err != nil {
			return models.GuestRequest{}, err
		}
		if n == 0 {
			return models.GuestRequest{}, &PersistenceError{Op: "reject guest group"}
		}
		if _, err := s.guests.CascadeEntries(ctx, requestID,
			[]models.GuestStatus{models.GuestPending, models.GuestPendingRegistration},
			models.GuestRejected, "reject_reason", reason); err != nil {
			return models.GuestRequest{}, err
		}
		req.Status = models.GuestRejected
		req.RejectReason = reason
	}

	s.log.Info("guest group decided",
		zap.String("request_id", requestID.Hex()),
		zap.Bool("approved", approve))
	s.schedule(s.guestPayload(req, ev.Title))
	return req, nil
}

// DecideGuestEntry approves or rejects one entry independently of the
// parent-level decision. Legal while the parent is Pending, Approved, or
// Registered and the entry is Pending or Registered. Approval counts
// only this request's already-approved entries as its prior
// contribution. When no entry is left undecided and all are approved the
// parent is promoted to Approved; a mix with rejections leaves the
// parent as-is. That asymmetry is intentional partial-approval support.
func (s *Service) DecideGuestEntry(ctx context.Context, entryID primitive.ObjectID, approve bool, reason string) (models.GuestEntry, error) {
	entry, err := s.guests.GetEntryByID(ctx, entryID)
	if err != nil {
		return models.GuestEntry{}, mapNotFound(err)
	}
	req, err := s.guests.GetByID(ctx, entry.RequestID)
	if err != nil {
		return models.GuestEntry{}, mapNotFound(err)
	}

	switch req.Status {
	case models.GuestPending, models.GuestApproved, models.GuestRegistered:
	default:
		return models.GuestEntry{}, &InvalidStateError{
			Op:     "decide guest entry",
			Status: "parent " + reconcile.GuestStatusText(req.Status),
		}
	}
	switch entry.Status {
	case models.GuestPending, models.GuestRegistered:
	default:
		return models.GuestEntry{}, &InvalidStateError{
			Op:     "decide guest entry",
			Status: reconcile.GuestStatusText(entry.Status),
		}
	}

	ev, err := s.getEvent(ctx, req.EventID)
	if err != nil {
		return models.GuestEntry{}, err
	}

	allowedFrom := []models.GuestStatus{models.GuestPending, models.GuestRegistered}

	if approve {
		unlock := s.lockEvent(ev.ID)
		defer unlock()

		// Prior contribution of this request is its entries already
		// holding a slot (approved or checked in), not the declared
		// guest count.
		approvedHere, err := s.guests.CountEntries(ctx, req.ID,
			[]models.GuestStatus{models.GuestApproved, models.GuestRegistered})
		if err != nil {
			return models.GuestEntry{}, err
		}
		rem, unlimited, err := s.remaining(ctx, ev, &req.ID)
		if err != nil {
			return models.GuestEntry{}, err
		}
		if !unlimited && rem-approvedHere < 1 {
			return models.GuestEntry{}, &AdmissionDeniedError{Remaining: rem - approvedHere}
		}

		if entry.CheckInCode == "" {
			code, err := newCode(ctx, GuestCodePrefix, func(ctx context.Context, c string) (bool, error) {
				return s.guests.EntryCodeExists(ctx, ev.ID, c)
			})
			if err != nil {
				return models.GuestEntry{}, err
			}
			if _, err := s.guests.SetEntryCode(ctx, entryID, code); err != nil {
				return models.GuestEntry{}, err
			}
			entry.CheckInCode = code
		}

		n, err := s.guests.SetEntryStatus(ctx, entryID, allowedFrom, models.GuestApproved, "", "")
		if err != nil {
			return models.GuestEntry{}, err
		}
		if n == 0 {
			return models.GuestEntry{}, &PersistenceError{Op: "approve guest entry"}
		}
		entry.Status = models.GuestApproved
	} else {
		reason = htmlsanitize.PlainText(reason)
		n, err := s.guests.SetEntryStatus(ctx, entryID, allowedFrom, models.GuestRejected, "reject_reason", reason)
		if err != nil {
			return models.GuestEntry{}, err
		}
		if n == 0 {
			return models.GuestEntry{}, &PersistenceError{Op: "reject guest entry"}
		}
		entry.Status = models.GuestRejected
		entry.RejectReason = reason
	}

	if err := s.promoteIfFullyApproved(ctx, req.ID); err != nil {
		return models.GuestEntry{}, err
	}

	s.log.Info("guest entry decided",
		zap.String("entry_id", entryID.Hex()),
		zap.Bool("approved", approve))
	s.schedule(s.entryPayload(entry, req, ev.Title))
	return entry, nil
}

// promoteIfFullyApproved moves a Pending parent to Approved once no
// entry remains undecided and every entry is approved or already
// registered. A mix containing rejections or cancellations never forces
// the parent anywhere.
func (s *Service) promoteIfFullyApproved(ctx context.Context, requestID primitive.ObjectID) error {
	entries, err := s.guests.ListEntries(ctx, requestID)
	if err != nil {
		return err
	}
	for _, e := range entries {
		switch e.Status {
		case models.GuestApproved, models.GuestRegistered:
		default:
			return nil
		}
	}
	_, err = s.guests.SetRequestStatus(ctx, requestID,
		[]models.GuestStatus{models.GuestPending}, models.GuestApproved, "", "")
	return err
}

// CancelGuestGroup cancels the parent and cascades to every non-terminal
// entry. A second cancel is a no-op.
func (s *Service) CancelGuestGroup(ctx context.Context, requestID primitive.ObjectID, reason string) (models.GuestRequest, error) {
	req, err := s.guests.GetByID(ctx, requestID)
	if err != nil {
		return models.GuestRequest{}, mapNotFound(err)
	}
	if req.Status == models.GuestCancelled {
		return req, nil
	}
	if req.Status == models.GuestRejected {
		return models.GuestRequest{}, &InvalidStateError{
			Op:     "cancel guest group",
			Status: reconcile.GuestStatusText(req.Status),
		}
	}

	reason = htmlsanitize.PlainText(reason)
	n, err := s.guests.SetRequestStatus(ctx, requestID, nonTerminalGuest,
		models.GuestCancelled, "cancel_reason", reason)
	if err != nil {
		return models.GuestRequest{}, err
	}
	if n == 0 {
		return s.guests.GetByID(ctx, requestID)
	}
	if _, err := s.guests.CascadeEntries(ctx, requestID,
		[]models.GuestStatus{models.GuestPending, models.GuestApproved, models.GuestPendingRegistration},
		models.GuestCancelled, "cancel_reason", reason); err != nil {
		return models.GuestRequest{}, err
	}
	req.Status = models.GuestCancelled
	req.CancelReason = reason

	ev, err := s.getEvent(ctx, req.EventID)
	if err != nil {
		return models.GuestRequest{}, err
	}

	s.log.Info("guest group cancelled", zap.String("request_id", requestID.Hex()))
	s.schedule(s.guestPayload(req, ev.Title))
	return req, nil
}

// CancelGuestEntry cancels one entry. When that leaves every entry of
// the parent Cancelled, the parent is cancelled with the same reason.
func (s *Service) CancelGuestEntry(ctx context.Context, entryID primitive.ObjectID, reason string) (models.GuestEntry, error) {
	entry, err := s.guests.GetEntryByID(ctx, entryID)
	if err != nil {
		return models.GuestEntry{}, mapNotFound(err)
	}
	if entry.Status == models.GuestCancelled {
		return entry, nil
	}
	if entry.Status == models.GuestRejected {
		return models.GuestEntry{}, &InvalidStateError{
			Op:     "cancel guest entry",
			Status: reconcile.GuestStatusText(entry.Status),
		}
	}

	reason = htmlsanitize.PlainText(reason)
	n, err := s.guests.SetEntryStatus(ctx, entryID,
		[]models.GuestStatus{models.GuestPending, models.GuestApproved, models.GuestPendingRegistration, models.GuestRegistered},
		models.GuestCancelled, "cancel_reason", reason)
	if err != nil {
		return models.GuestEntry{}, err
	}
	if n == 0 {
		return s.guests.GetEntryByID(ctx, entryID)
	}
	entry.Status = models.GuestCancelled
	entry.CancelReason = reason

	entries, err := s.guests.ListEntries(ctx, entry.RequestID)
	if err != nil {
		return models.GuestEntry{}, err
	}
	allCancelled := true
	for _, e := range entries {
		if e.Status != models.GuestCancelled {
			allCancelled = false
			break
		}
	}
	if allCancelled {
		if _, err := s.guests.SetRequestStatus(ctx, entry.RequestID, nonTerminalGuest,
			models.GuestCancelled, "cancel_reason", reason); err != nil {
			return models.GuestEntry{}, err
		}
	}

	req, err := s.guests.GetByID(ctx, entry.RequestID)
	if err != nil {
		return models.GuestEntry{}, mapNotFound(err)
	}
	ev, err := s.getEvent(ctx, req.EventID)
	if err != nil {
		return models.GuestEntry{}, err
	}

	s.log.Info("guest entry cancelled", zap.String("entry_id", entryID.Hex()))
	s.schedule(s.entryPayload(entry, req, ev.Title))
	return entry, nil
}

// UpdateGuestGroup replaces a Pending request's full entry set and
// updates its guest count and note. The capacity check is advisory for
// the new count, excluding this request's own contribution.
func (s *Service) UpdateGuestGroup(ctx context.Context, requestID primitive.ObjectID, declaredCount int, guests []GuestInput, note string) (models.GuestRequest, []models.GuestEntry, error) {
	req, err := s.guests.GetByID(ctx, requestID)
	if err != nil {
		return models.GuestRequest{}, nil, mapNotFound(err)
	}
	if req.Status != models.GuestPending {
		return models.GuestRequest{}, nil, &InvalidStateError{
			Op:     "update guest group",
			Status: reconcile.GuestStatusText(req.Status),
		}
	}
	if declaredCount < 1 {
		return models.GuestRequest{}, nil, &ValidationError{Msg: "guest count must be at least 1"}
	}
	if len(guests) != declaredCount {
		return models.GuestRequest{}, nil, &ValidationError{Msg: "declared guest count does not match supplied guests"}
	}
	entries, err := buildEntries(guests)
	if err != nil {
		return models.GuestRequest{}, nil, err
	}

	ev, err := s.getEvent(ctx, req.EventID)
	if err != nil {
		return models.GuestRequest{}, nil, err
	}
	if err := s.checkCapacity(ctx, ev, &requestID, int64(declaredCount)); err != nil {
		return models.GuestRequest{}, nil, err
	}

	note = htmlsanitize.PlainText(note)
	entries, err = s.guests.ReplaceEntries(ctx, requestID, req, entries, note)
	if err != nil {
		return models.GuestRequest{}, nil, err
	}
	req.GuestCount = declaredCount
	req.Note = note

	s.log.Info("guest group updated",
		zap.String("request_id", requestID.Hex()),
		zap.Int("guest_count", declaredCount))
	s.schedule(s.guestPayload(req, ev.Title))
	return req, entries, nil
}

// CheckInGuestEntry marks an Approved entry Registered at the door. A
// second check-in is a no-op.
func (s *Service) CheckInGuestEntry(ctx context.Context, entryID primitive.ObjectID) (models.GuestEntry, error) {
	entry, err := s.guests.GetEntryByID(ctx, entryID)
	if err != nil {
		return models.GuestEntry{}, mapNotFound(err)
	}
	if entry.Status == models.GuestRegistered {
		return entry, nil
	}
	if entry.Status != models.GuestApproved {
		return models.GuestEntry{}, &InvalidStateError{
			Op:     "check in guest entry",
			Status: reconcile.GuestStatusText(entry.Status),
		}
	}

	now := time.Now().UTC()
	n, err := s.guests.CheckInEntry(ctx, entryID, now)
	if err != nil {
		return models.GuestEntry{}, err
	}
	if n == 0 {
		return models.GuestEntry{}, &PersistenceError{Op: "check in guest entry"}
	}
	entry.Status = models.GuestRegistered
	entry.CheckInAt = &now

	req, err := s.guests.GetByID(ctx, entry.RequestID)
	if err != nil {
		return models.GuestEntry{}, mapNotFound(err)
	}
	ev, err := s.getEvent(ctx, req.EventID)
	if err != nil {
		return models.GuestEntry{}, err
	}

	s.log.Info("guest entry checked in", zap.String("entry_id", entryID.Hex()))
	s.schedule(s.entryPayload(entry, req, ev.Title))
	return entry, nil
}

func (s *Service) guestPayload(req models.GuestRequest, eventTitle string) notify.Payload {
	return notify.Payload{
		ContactPhone:       req.SponsorPhone,
		ContactDisplayName: req.SponsorName,
		EventTitle:         eventTitle,
		Status:             reconcile.GuestStatusText(req.Status),
		GuestCount:         req.GuestCount,
		Note:               req.Note,
		RejectReason:       req.RejectReason,
		CancelReason:       req.CancelReason,
	}
}

func (s *Service) entryPayload(entry models.GuestEntry, req models.GuestRequest, eventTitle string) notify.Payload {
	phone := entry.Phone
	name := entry.Name
	if phone == "" {
		// Entries without their own phone are notified through the sponsor.
		phone = req.SponsorPhone
		name = req.SponsorName
	}
	return notify.Payload{
		ContactPhone:       phone,
		ContactDisplayName: name,
		EventTitle:         eventTitle,
		Status:             reconcile.GuestStatusText(entry.Status),
		RejectReason:       entry.RejectReason,
		CancelReason:       entry.CancelReason,
	}
}

// issueEntryCodes assigns a credential to every entry of the request
// that lacks one.
func (s *Service) issueEntryCodes(ctx context.Context, eventID, requestID primitive.ObjectID) error {
	entries, err := s.guests.ListEntries(ctx, requestID)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.CheckInCode != "" || e.Status.Terminal() {
			continue
		}
		code, err := newCode(ctx, GuestCodePrefix, func(ctx context.Context, c string) (bool, error) {
			return s.guests.EntryCodeExists(ctx, eventID, c)
		})
		if err != nil {
			return err
		}
		if _, err := s.guests.SetEntryCode(ctx, e.ID, code); err != nil {
			return err
		}
	}
	return nil
}
