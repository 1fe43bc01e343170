// internal/app/admission/selfreg.go
package admission

import (
	"context"
	"errors"
	"time"

	"github.com/gatherhub/gatherhub/internal/app/notify"
	"github.com/gatherhub/gatherhub/internal/app/reconcile"
	registrationstore "github.com/gatherhub/gatherhub/internal/app/store/registrations"
	"github.com/gatherhub/gatherhub/internal/app/system/htmlsanitize"
	"github.com/gatherhub/gatherhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Self-registration lifecycle: Pending -> {Confirmed, Cancelled},
// Confirmed -> {CheckedIn, Cancelled}. CheckedIn and Cancelled are
// terminal. There is no native Rejected value; a reject is a cancel with
// the reason recorded, re-presented as Rejected by the reconcile
// package.

// SubmitSelfRegistration creates a registration for the user on an
// active event. The capacity check here is advisory with slot cost 1.
// When the event does not require approval the registration is created
// directly Confirmed with a check-in credential.
func (s *Service) SubmitSelfRegistration(ctx context.Context, eventID, userID primitive.ObjectID, contactName, contactPhone string) (models.Registration, error) {
	ev, err := s.getEvent(ctx, eventID)
	if err != nil {
		return models.Registration{}, err
	}
	if !ev.Active {
		return models.Registration{}, &InvalidStateError{Op: "submit registration", Status: "inactive event"}
	}
	if contactPhone == "" {
		return models.Registration{}, &ValidationError{Msg: "contact phone is required"}
	}

	if err := s.checkCapacity(ctx, ev, nil, 1); err != nil {
		return models.Registration{}, err
	}

	reg := models.Registration{
		EventID:      eventID,
		UserID:       userID,
		ContactName:  htmlsanitize.PlainText(contactName),
		ContactPhone: contactPhone,
		Status:       models.RegistrationPending,
	}
	if !ev.RequiresApproval {
		code, err := newCode(ctx, "", func(ctx context.Context, c string) (bool, error) {
			return s.regs.CodeExists(ctx, eventID, c)
		})
		if err != nil {
			return models.Registration{}, err
		}
		reg.Status = models.RegistrationConfirmed
		reg.CheckInCode = code
	}

	created, err := s.regs.Create(ctx, reg)
	if err != nil {
		if errors.Is(err, registrationstore.ErrDuplicateRegistration) {
			return models.Registration{}, &ValidationError{Msg: "user already has an active registration for this event"}
		}
		return models.Registration{}, err
	}

	s.log.Info("self-registration submitted",
		zap.String("event_id", eventID.Hex()),
		zap.String("registration_id", created.ID.Hex()),
		zap.Int("status", int(created.Status)))
	s.schedule(s.registrationPayload(created, ev.Title))
	return created, nil
}

// DecideSelfRegistration approves or rejects a Pending registration.
// Approval re-checks capacity authoritatively and issues a check-in
// credential. Rejection is recorded as Cancelled with the reason in the
// cancel-reason field.
func (s *Service) DecideSelfRegistration(ctx context.Context, id primitive.ObjectID, approve bool, reason string) (models.Registration, error) {
	reg, err := s.regs.GetByID(ctx, id)
	if err != nil {
		return models.Registration{}, mapNotFound(err)
	}
	if reg.Status != models.RegistrationPending {
		return models.Registration{}, &InvalidStateError{
			Op:     "decide registration",
			Status: reconcile.RegistrationStatusText(reg.Status),
		}
	}

	ev, err := s.getEvent(ctx, reg.EventID)
	if err != nil {
		return models.Registration{}, err
	}

	if approve {
		unlock := s.lockEvent(ev.ID)
		defer unlock()

		if err := s.checkCapacity(ctx, ev, nil, 1); err != nil {
			return models.Registration{}, err
		}
		code, err := newCode(ctx, "", func(ctx context.Context, c string) (bool, error) {
			return s.regs.CodeExists(ctx, ev.ID, c)
		})
		if err != nil {
			return models.Registration{}, err
		}
		n, err := s.regs.Confirm(ctx, id, code)
		if err != nil {
			return models.Registration{}, err
		}
		if n == 0 {
			return models.Registration{}, &PersistenceError{Op: "confirm registration"}
		}
		reg.Status = models.RegistrationConfirmed
		reg.CheckInCode = code
	} else {
		reason = htmlsanitize.PlainText(reason)
		if reason == "" {
			return models.Registration{}, &ValidationError{Msg: "a reject reason is required"}
		}
		n, err := s.regs.Cancel(ctx, id, reason, []models.RegistrationStatus{models.RegistrationPending})
		if err != nil {
			return models.Registration{}, err
		}
		if n == 0 {
			return models.Registration{}, &PersistenceError{Op: "reject registration"}
		}
		reg.Status = models.RegistrationCancelled
		reg.CancelReason = reason
	}

	s.log.Info("self-registration decided",
		zap.String("registration_id", id.Hex()),
		zap.Bool("approved", approve))
	s.schedule(s.registrationPayload(reg, ev.Title))
	return reg, nil
}

// CheckInSelfRegistration marks a Confirmed registration CheckedIn. A
// second check-in is a no-op, not an error.
func (s *Service) CheckInSelfRegistration(ctx context.Context, id primitive.ObjectID) (models.Registration, error) {
	reg, err := s.regs.GetByID(ctx, id)
	if err != nil {
		return models.Registration{}, mapNotFound(err)
	}
	if reg.Status == models.RegistrationCheckedIn {
		return reg, nil
	}
	if reg.Status != models.RegistrationConfirmed {
		return models.Registration{}, &InvalidStateError{
			Op:     "check in registration",
			Status: reconcile.RegistrationStatusText(reg.Status),
		}
	}

	now := time.Now().UTC()
	n, err := s.regs.CheckIn(ctx, id, now)
	if err != nil {
		return models.Registration{}, err
	}
	if n == 0 {
		return models.Registration{}, &PersistenceError{Op: "check in registration"}
	}
	reg.Status = models.RegistrationCheckedIn
	reg.CheckInAt = &now

	ev, err := s.getEvent(ctx, reg.EventID)
	if err != nil {
		return models.Registration{}, err
	}

	s.log.Info("registration checked in", zap.String("registration_id", id.Hex()))
	s.schedule(s.registrationPayload(reg, ev.Title))
	return reg, nil
}

// CancelSelfRegistration cancels a registration from any non-terminal
// state. Cancelling an already-Cancelled registration is a no-op.
func (s *Service) CancelSelfRegistration(ctx context.Context, id primitive.ObjectID, reason string) (models.Registration, error) {
	reg, err := s.regs.GetByID(ctx, id)
	if err != nil {
		return models.Registration{}, mapNotFound(err)
	}
	if reg.Status == models.RegistrationCancelled {
		return reg, nil
	}
	if reg.Status == models.RegistrationCheckedIn {
		return models.Registration{}, &InvalidStateError{
			Op:     "cancel registration",
			Status: reconcile.RegistrationStatusText(reg.Status),
		}
	}

	reason = htmlsanitize.PlainText(reason)
	n, err := s.regs.Cancel(ctx, id, reason, []models.RegistrationStatus{
		models.RegistrationPending, models.RegistrationConfirmed,
	})
	if err != nil {
		return models.Registration{}, err
	}
	if n == 0 {
		// A concurrent cancel won the race; same terminal outcome.
		return s.regs.GetByID(ctx, id)
	}
	reg.Status = models.RegistrationCancelled
	reg.CancelReason = reason

	ev, err := s.getEvent(ctx, reg.EventID)
	if err != nil {
		return models.Registration{}, err
	}

	s.log.Info("self-registration cancelled", zap.String("registration_id", id.Hex()))
	s.schedule(s.registrationPayload(reg, ev.Title))
	return reg, nil
}

func (s *Service) registrationPayload(reg models.Registration, eventTitle string) notify.Payload {
	view := reconcile.Registration(reg)
	p := notify.Payload{
		ContactPhone:       reg.ContactPhone,
		ContactDisplayName: reg.ContactName,
		EventTitle:         eventTitle,
		Status:             view.StatusText,
	}
	// A cancel with a reason is presented as a rejection.
	if view.Status == models.GuestRejected {
		p.RejectReason = reg.CancelReason
	} else {
		p.CancelReason = reg.CancelReason
	}
	return p
}
