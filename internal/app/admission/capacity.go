// internal/app/admission/capacity.go
package admission

import (
	"context"
	"fmt"

	"github.com/gatherhub/gatherhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// remaining computes the event's open slot count. unlimited is true when
// the event has no capacity bound (Capacity <= 0) and remaining is then
// meaningless. Occupancy counts confirmed and checked-in registrations
// plus the guest counts of Approved requests, excluding excludeRequest
// when non-nil.
//
// This runs at two points: advisory at submission (approved occupants
// only, so concurrent pending submissions can transiently oversubscribe)
// and authoritative immediately before an approval commit, excluding the
// request being approved from its own prior contribution. The two reads
// are not atomic with the commit; that race window is the accepted
// default, narrowed only by the strict per-event lock.
func (s *Service) remaining(ctx context.Context, event models.Event, excludeRequest *primitive.ObjectID) (int64, bool, error) {
	if event.Unlimited() {
		return 0, true, nil
	}
	admitted, err := s.regs.CountAdmitted(ctx, event.ID)
	if err != nil {
		return 0, false, fmt.Errorf("count admitted registrations: %w", err)
	}
	guests, err := s.guests.SumApprovedGuests(ctx, event.ID, excludeRequest)
	if err != nil {
		return 0, false, fmt.Errorf("sum approved guests: %w", err)
	}
	return int64(event.Capacity) - admitted - guests, false, nil
}

// Remaining reports an event's open slots for display. unlimited is true
// for unbounded events.
func (s *Service) Remaining(ctx context.Context, eventID primitive.ObjectID) (int64, bool, error) {
	ev, err := s.getEvent(ctx, eventID)
	if err != nil {
		return 0, false, err
	}
	return s.remaining(ctx, ev, nil)
}

// checkCapacity applies an advisory or authoritative capacity check for
// an admission of the given cost.
func (s *Service) checkCapacity(ctx context.Context, event models.Event, excludeRequest *primitive.ObjectID, cost int64) error {
	rem, unlimited, err := s.remaining(ctx, event, excludeRequest)
	if err != nil {
		return err
	}
	if unlimited {
		return nil
	}
	if cost > rem {
		return &AdmissionDeniedError{Remaining: rem}
	}
	return nil
}
