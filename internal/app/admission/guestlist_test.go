// internal/app/admission/guestlist_test.go
package admission

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/gatherhub/gatherhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func twoGuests() []GuestInput {
	return []GuestInput{
		{Name: "Guest One", Phone: "+15550003331"},
		{Name: "Guest Two", Phone: "+15550003332"},
	}
}

func TestSubmitGuestGroup(t *testing.T) {
	env := newTestEnv(false)
	ev := env.addEvent(10, true, true)
	ctx := context.Background()

	req, entries, err := env.svc.SubmitGuestGroup(ctx, ev.ID, primitive.NewObjectID(),
		"Grace Hopper", "+15550002222", 2, twoGuests(), "coworkers")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if req.Status != models.GuestPending || req.GuestCount != 2 {
		t.Errorf("request = %+v, want Pending with 2 guests", req)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	for _, e := range entries {
		if e.Status != models.GuestPending {
			t.Errorf("entry %s status = %d, want Pending", e.Name, e.Status)
		}
	}
	if p := env.sched.last(); p.GuestCount != 2 || p.Status != "Pending" {
		t.Errorf("payload = %+v", p)
	}
}

func TestSubmitGuestGroupCountMismatch(t *testing.T) {
	env := newTestEnv(false)
	ev := env.addEvent(10, true, true)

	var ve *ValidationError
	_, _, err := env.svc.SubmitGuestGroup(context.Background(), ev.ID, primitive.NewObjectID(),
		"Grace", "+15550002222", 3, twoGuests(), "")
	if !errors.As(err, &ve) {
		t.Fatalf("declared 3 with 2 entries: err = %v, want ValidationError", err)
	}
}

func TestSubmitGuestGroupAutoApprovesParentOnly(t *testing.T) {
	env := newTestEnv(false)
	ev := env.addEvent(10, false, true)

	req, entries, err := env.svc.SubmitGuestGroup(context.Background(), ev.ID, primitive.NewObjectID(),
		"Grace", "+15550002222", 2, twoGuests(), "")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if req.Status != models.GuestApproved {
		t.Errorf("parent status = %d, want Approved when approval not required", req.Status)
	}
	for _, e := range entries {
		if e.Status != models.GuestPending {
			t.Errorf("entry status = %d, want Pending (own entry-level workflow)", e.Status)
		}
	}
}

func TestCapacityOneScenario(t *testing.T) {
	env := newTestEnv(false)
	ev := env.addEvent(1, true, true)
	ctx := context.Background()

	// Sponsor X: group of 2 against remaining=1 fails already at the
	// advisory check.
	var denied *AdmissionDeniedError
	_, _, err := env.svc.SubmitGuestGroup(ctx, ev.ID, primitive.NewObjectID(),
		"Sponsor X", "+15550002222", 2, twoGuests(), "")
	if !errors.As(err, &denied) {
		t.Fatalf("group of 2: err = %v, want AdmissionDeniedError", err)
	}
	if denied.Remaining != 1 {
		t.Errorf("Remaining = %d, want 1", denied.Remaining)
	}

	// Sponsor Y self-registers: pending creation is fine and the later
	// approval is checked against remaining=1.
	reg, err := env.svc.SubmitSelfRegistration(ctx, ev.ID, primitive.NewObjectID(), "Sponsor Y", "+15550004444")
	if err != nil {
		t.Fatalf("self-register: %v", err)
	}
	if _, err := env.svc.DecideSelfRegistration(ctx, reg.ID, true, ""); err != nil {
		t.Fatalf("approve against remaining=1: %v", err)
	}

	// Capacity now exhausted: further approvals are denied.
	reg2, err := env.svc.SubmitSelfRegistration(ctx, ev.ID, primitive.NewObjectID(), "Late", "+15550005555")
	if !errors.As(err, &denied) {
		// Advisory check already fails the submission at remaining=0.
		t.Fatalf("submit at capacity: err = %v (reg=%+v), want AdmissionDeniedError", err, reg2)
	}
	if denied.Remaining != 0 {
		t.Errorf("Remaining = %d, want 0", denied.Remaining)
	}
}

func TestUnlimitedCapacityNeverDenies(t *testing.T) {
	env := newTestEnv(false)
	ev := env.addEvent(0, true, true)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		req, _, err := env.svc.SubmitGuestGroup(ctx, ev.ID, primitive.NewObjectID(),
			"Sponsor", "+15550002222", 2, twoGuests(), "")
		if err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
		if _, err := env.svc.DecideGuestGroup(ctx, req.ID, true, ""); err != nil {
			t.Fatalf("approve %d: %v", i, err)
		}
	}

	if _, unlimited, err := env.svc.Remaining(ctx, ev.ID); err != nil || !unlimited {
		t.Errorf("Remaining: unlimited = %v, err = %v", unlimited, err)
	}
}

func TestApproveGuestGroup(t *testing.T) {
	env := newTestEnv(false)
	ev := env.addEvent(10, true, true)
	ctx := context.Background()

	req, _, err := env.svc.SubmitGuestGroup(ctx, ev.ID, primitive.NewObjectID(),
		"Grace", "+15550002222", 2, twoGuests(), "")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	approved, err := env.svc.DecideGuestGroup(ctx, req.ID, true, "")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != models.GuestApproved {
		t.Errorf("parent status = %d, want Approved", approved.Status)
	}

	entries, _ := env.guests.ListEntries(ctx, req.ID)
	for _, e := range entries {
		if e.Status != models.GuestApproved {
			t.Errorf("entry %s status = %d, want Approved", e.Name, e.Status)
		}
		if !strings.HasPrefix(e.CheckInCode, GuestCodePrefix) {
			t.Errorf("entry code %q must carry the %s prefix", e.CheckInCode, GuestCodePrefix)
		}
		if len(e.CheckInCode) != len(GuestCodePrefix)+codeLength {
			t.Errorf("entry code %q has wrong length", e.CheckInCode)
		}
	}

	// Approved guests consume capacity.
	sum, _ := env.guests.SumApprovedGuests(ctx, ev.ID, nil)
	if sum != 2 {
		t.Errorf("SumApprovedGuests = %d, want 2", sum)
	}

	// Second approval short-circuits with InvalidState, before the
	// scheduler.
	before := env.sched.count()
	var ise *InvalidStateError
	if _, err := env.svc.DecideGuestGroup(ctx, req.ID, true, ""); !errors.As(err, &ise) {
		t.Fatalf("second approve: err = %v, want InvalidStateError", err)
	}
	if env.sched.count() != before {
		t.Error("scheduler invoked on a zero-row decision")
	}
}

func TestApproveGuestGroupDeniedAtCapacity(t *testing.T) {
	env := newTestEnv(false)
	ev := env.addEvent(3, true, true)
	ctx := context.Background()

	// Two pending groups of 2 both pass the advisory check (remaining=3).
	reqA, _, err := env.svc.SubmitGuestGroup(ctx, ev.ID, primitive.NewObjectID(),
		"A", "+15550002221", 2, twoGuests(), "")
	if err != nil {
		t.Fatalf("submit A: %v", err)
	}
	reqB, _, err := env.svc.SubmitGuestGroup(ctx, ev.ID, primitive.NewObjectID(),
		"B", "+15550002223", 2, twoGuests(), "")
	if err != nil {
		t.Fatalf("submit B: %v", err)
	}

	if _, err := env.svc.DecideGuestGroup(ctx, reqA.ID, true, ""); err != nil {
		t.Fatalf("approve A: %v", err)
	}

	// The authoritative check catches B: remaining is now 1.
	var denied *AdmissionDeniedError
	if _, err := env.svc.DecideGuestGroup(ctx, reqB.ID, true, ""); !errors.As(err, &denied) {
		t.Fatalf("approve B: err = %v, want AdmissionDeniedError", err)
	}
	if denied.Remaining != 1 {
		t.Errorf("Remaining = %d, want 1", denied.Remaining)
	}
}

func TestRejectGuestGroupCascades(t *testing.T) {
	env := newTestEnv(false)
	ev := env.addEvent(10, true, true)
	ctx := context.Background()

	req, _, _ := env.svc.SubmitGuestGroup(ctx, ev.ID, primitive.NewObjectID(),
		"Grace", "+15550002222", 2, twoGuests(), "")

	rejected, err := env.svc.DecideGuestGroup(ctx, req.ID, false, "list closed")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != models.GuestRejected || rejected.RejectReason != "list closed" {
		t.Errorf("rejected = %+v", rejected)
	}

	entries, _ := env.guests.ListEntries(ctx, req.ID)
	for _, e := range entries {
		if e.Status != models.GuestRejected {
			t.Errorf("entry status = %d, want Rejected", e.Status)
		}
	}

	// Terminal: no further transitions out of Rejected.
	var ise *InvalidStateError
	if _, err := env.svc.DecideGuestGroup(ctx, req.ID, true, ""); !errors.As(err, &ise) {
		t.Errorf("approve after reject: err = %v, want InvalidStateError", err)
	}
	if _, err := env.svc.CancelGuestGroup(ctx, req.ID, "x"); !errors.As(err, &ise) {
		t.Errorf("cancel after reject: err = %v, want InvalidStateError", err)
	}
}

func TestPartialEntryApprovalLeavesParentAlone(t *testing.T) {
	env := newTestEnv(false)
	ev := env.addEvent(10, true, true)
	ctx := context.Background()

	req, entries, _ := env.svc.SubmitGuestGroup(ctx, ev.ID, primitive.NewObjectID(),
		"Grace", "+15550002222", 2, twoGuests(), "")

	a, err := env.svc.DecideGuestEntry(ctx, entries[0].ID, true, "")
	if err != nil {
		t.Fatalf("approve entry A: %v", err)
	}
	if a.Status != models.GuestApproved || !strings.HasPrefix(a.CheckInCode, GuestCodePrefix) {
		t.Errorf("entry A = %+v, want Approved with guest code", a)
	}

	b, err := env.svc.DecideGuestEntry(ctx, entries[1].ID, false, "unknown guest")
	if err != nil {
		t.Fatalf("reject entry B: %v", err)
	}
	if b.Status != models.GuestRejected || b.RejectReason != "unknown guest" {
		t.Errorf("entry B = %+v, want Rejected", b)
	}

	// Parent stays Pending: a rejected entry never cascades upward.
	parent, _ := env.guests.GetByID(ctx, req.ID)
	if parent.Status != models.GuestPending {
		t.Errorf("parent status = %d, want Pending (partial approval)", parent.Status)
	}
}

func TestAllEntriesApprovedPromotesParent(t *testing.T) {
	env := newTestEnv(false)
	ev := env.addEvent(10, true, true)
	ctx := context.Background()

	req, entries, _ := env.svc.SubmitGuestGroup(ctx, ev.ID, primitive.NewObjectID(),
		"Grace", "+15550002222", 2, twoGuests(), "")

	for _, e := range entries {
		if _, err := env.svc.DecideGuestEntry(ctx, e.ID, true, ""); err != nil {
			t.Fatalf("approve entry: %v", err)
		}
	}

	parent, _ := env.guests.GetByID(ctx, req.ID)
	if parent.Status != models.GuestApproved {
		t.Errorf("parent status = %d, want Approved after all entries approved", parent.Status)
	}
}

func TestEntryApprovalCountsOwnApprovedEntries(t *testing.T) {
	env := newTestEnv(false)
	ev := env.addEvent(1, true, true)
	ctx := context.Background()

	// Group of 1 fits the advisory check; add a second via update? No:
	// submit a single group of 2 is denied, so build the pressure with
	// two separate single-guest groups from one sponsor.
	sponsor := primitive.NewObjectID()
	_, entriesA, err := env.svc.SubmitGuestGroup(ctx, ev.ID, sponsor,
		"Grace", "+15550002222", 1, []GuestInput{{Name: "Solo", Phone: "+15550003331"}}, "")
	if err != nil {
		t.Fatalf("submit A: %v", err)
	}
	_, entriesB, err := env.svc.SubmitGuestGroup(ctx, ev.ID, sponsor,
		"Grace", "+15550002222", 1, []GuestInput{{Name: "Duo", Phone: "+15550003332"}}, "")
	if err != nil {
		t.Fatalf("submit B: %v", err)
	}

	if _, err := env.svc.DecideGuestEntry(ctx, entriesA[0].ID, true, ""); err != nil {
		t.Fatalf("approve first entry: %v", err)
	}

	// Request A is now Approved (all its entries are), consuming the one
	// slot. Entry approval in request B must be denied.
	var denied *AdmissionDeniedError
	if _, err := env.svc.DecideGuestEntry(ctx, entriesB[0].ID, true, ""); !errors.As(err, &denied) {
		t.Fatalf("approve entry at capacity: err = %v, want AdmissionDeniedError", err)
	}
}

func TestEntryApprovalCountsRegisteredSiblings(t *testing.T) {
	env := newTestEnv(false)
	ev := env.addEvent(3, true, true)
	ctx := context.Background()

	_, entries, err := env.svc.SubmitGuestGroup(ctx, ev.ID, primitive.NewObjectID(),
		"Grace", "+15550002222", 3, []GuestInput{
			{Name: "One", Phone: "+15550003341"},
			{Name: "Two", Phone: "+15550003342"},
			{Name: "Three", Phone: "+15550003343"},
		}, "")
	if err != nil {
		t.Fatalf("submit group: %v", err)
	}

	// A confirmed self-registration takes one of the three slots.
	reg, err := env.svc.SubmitSelfRegistration(ctx, ev.ID, primitive.NewObjectID(), "Member", "+15550005555")
	if err != nil {
		t.Fatalf("submit registration: %v", err)
	}
	if _, err := env.svc.DecideSelfRegistration(ctx, reg.ID, true, ""); err != nil {
		t.Fatalf("approve registration: %v", err)
	}

	// Approve and check in the first guest; a Registered entry holds its
	// slot just as an Approved one does.
	if _, err := env.svc.DecideGuestEntry(ctx, entries[0].ID, true, ""); err != nil {
		t.Fatalf("approve entry: %v", err)
	}
	if _, err := env.svc.CheckInGuestEntry(ctx, entries[0].ID); err != nil {
		t.Fatalf("check in entry: %v", err)
	}
	if _, err := env.svc.DecideGuestEntry(ctx, entries[1].ID, true, ""); err != nil {
		t.Fatalf("approve second entry: %v", err)
	}

	// One registration plus two slot-holding entries exhaust capacity.
	var denied *AdmissionDeniedError
	if _, err := env.svc.DecideGuestEntry(ctx, entries[2].ID, true, ""); !errors.As(err, &denied) {
		t.Fatalf("approve third entry: err = %v, want AdmissionDeniedError", err)
	}
	if denied.Remaining != 0 {
		t.Errorf("Remaining = %d, want 0", denied.Remaining)
	}
}

func TestCancelGuestGroupIdempotentAndCascading(t *testing.T) {
	env := newTestEnv(false)
	ev := env.addEvent(10, true, true)
	ctx := context.Background()

	req, entries, _ := env.svc.SubmitGuestGroup(ctx, ev.ID, primitive.NewObjectID(),
		"Grace", "+15550002222", 2, twoGuests(), "")

	// Reject one entry first; the cascade must leave the terminal entry
	// untouched.
	if _, err := env.svc.DecideGuestEntry(ctx, entries[1].ID, false, "no"); err != nil {
		t.Fatalf("reject entry: %v", err)
	}

	cancelled, err := env.svc.CancelGuestGroup(ctx, req.ID, "plans changed")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != models.GuestCancelled || cancelled.CancelReason != "plans changed" {
		t.Errorf("cancelled = %+v", cancelled)
	}

	got, _ := env.guests.ListEntries(ctx, req.ID)
	if got[0].Status != models.GuestCancelled {
		t.Errorf("entry 0 status = %d, want Cancelled", got[0].Status)
	}
	if got[1].Status != models.GuestRejected {
		t.Errorf("entry 1 status = %d, want Rejected preserved", got[1].Status)
	}

	notified := env.sched.count()
	again, err := env.svc.CancelGuestGroup(ctx, req.ID, "again")
	if err != nil {
		t.Fatalf("second cancel: %v", err)
	}
	if again.Status != models.GuestCancelled || env.sched.count() != notified {
		t.Error("second cancel must be a silent no-op")
	}
}

func TestCancelLastEntryCancelsParent(t *testing.T) {
	env := newTestEnv(false)
	ev := env.addEvent(10, true, true)
	ctx := context.Background()

	req, entries, _ := env.svc.SubmitGuestGroup(ctx, ev.ID, primitive.NewObjectID(),
		"Grace", "+15550002222", 2, twoGuests(), "")

	if _, err := env.svc.CancelGuestEntry(ctx, entries[0].ID, "guest one out"); err != nil {
		t.Fatalf("cancel entry 0: %v", err)
	}
	parent, _ := env.guests.GetByID(ctx, req.ID)
	if parent.Status != models.GuestPending {
		t.Errorf("parent status = %d, want Pending while an entry remains", parent.Status)
	}

	if _, err := env.svc.CancelGuestEntry(ctx, entries[1].ID, "guest two out"); err != nil {
		t.Fatalf("cancel entry 1: %v", err)
	}
	parent, _ = env.guests.GetByID(ctx, req.ID)
	if parent.Status != models.GuestCancelled || parent.CancelReason != "guest two out" {
		t.Errorf("parent = %+v, want Cancelled with last reason", parent)
	}
}

func TestUpdateGuestGroup(t *testing.T) {
	env := newTestEnv(false)
	ev := env.addEvent(10, true, true)
	ctx := context.Background()

	req, _, _ := env.svc.SubmitGuestGroup(ctx, ev.ID, primitive.NewObjectID(),
		"Grace", "+15550002222", 2, twoGuests(), "old note")

	updated, entries, err := env.svc.UpdateGuestGroup(ctx, req.ID, 3, []GuestInput{
		{Name: "New One", Phone: "+15550003334"},
		{Name: "New Two", Phone: "+15550003335"},
		{Name: "New Three", Phone: "+15550003336"},
	}, "new note")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.GuestCount != 3 || updated.Note != "new note" {
		t.Errorf("updated = %+v", updated)
	}
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(entries))
	}
	for _, e := range entries {
		if e.Status != models.GuestPending {
			t.Errorf("replaced entry status = %d, want Pending", e.Status)
		}
	}

	stored, _ := env.guests.ListEntries(ctx, req.ID)
	if len(stored) != 3 {
		t.Errorf("stored entries = %d, want 3 (full replacement)", len(stored))
	}

	// Only Pending requests may be updated.
	if _, err := env.svc.DecideGuestGroup(ctx, req.ID, true, ""); err != nil {
		t.Fatalf("approve: %v", err)
	}
	var ise *InvalidStateError
	if _, _, err := env.svc.UpdateGuestGroup(ctx, req.ID, 1,
		[]GuestInput{{Name: "Too Late", Phone: "+15550003337"}}, ""); !errors.As(err, &ise) {
		t.Errorf("update approved group: err = %v, want InvalidStateError", err)
	}
}

func TestCheckInGuestEntry(t *testing.T) {
	env := newTestEnv(false)
	ev := env.addEvent(10, true, true)
	ctx := context.Background()

	req, entries, _ := env.svc.SubmitGuestGroup(ctx, ev.ID, primitive.NewObjectID(),
		"Grace", "+15550002222", 2, twoGuests(), "")
	if _, err := env.svc.DecideGuestGroup(ctx, req.ID, true, ""); err != nil {
		t.Fatalf("approve: %v", err)
	}
	before := env.sched.count()

	checked, err := env.svc.CheckInGuestEntry(ctx, entries[0].ID)
	if err != nil {
		t.Fatalf("check in: %v", err)
	}
	if checked.Status != models.GuestRegistered || checked.CheckInAt == nil {
		t.Errorf("checked = %+v, want Registered with timestamp", checked)
	}

	// The Approved->Registered commit notifies the guest.
	if env.sched.count() != before+1 {
		t.Fatalf("scheduler count = %d after entry check-in, want %d", env.sched.count(), before+1)
	}
	if p := env.sched.last(); p.Status != "Registered" || p.EventTitle != ev.Title {
		t.Errorf("check-in payload = %+v, want Registered for %q", p, ev.Title)
	}

	again, err := env.svc.CheckInGuestEntry(ctx, entries[0].ID)
	if err != nil || again.Status != models.GuestRegistered {
		t.Errorf("second check in: %+v, %v, want idempotent no-op", again, err)
	}
	if env.sched.count() != before+1 {
		t.Error("no-op check-in scheduled a notification")
	}

	// Check-in requires an Approved entry.
	_, pending, _ := env.svc.SubmitGuestGroup(ctx, ev.ID, primitive.NewObjectID(),
		"Other", "+15550008888", 1, []GuestInput{{Name: "Walk Up", Phone: "+15550008889"}}, "")
	var ise *InvalidStateError
	if _, err := env.svc.CheckInGuestEntry(ctx, pending[0].ID); !errors.As(err, &ise) {
		t.Errorf("check in pending entry: err = %v, want InvalidStateError", err)
	}
}

func TestCapacityInvariantAfterEachCommit(t *testing.T) {
	env := newTestEnv(false)
	ev := env.addEvent(5, true, true)
	ctx := context.Background()

	// Interleave self-registrations and guest groups well past capacity;
	// after every successful approval the admitted total must stay
	// within bounds.
	var regIDs, reqIDs []primitive.ObjectID
	for i := 0; i < 4; i++ {
		reg, err := env.svc.SubmitSelfRegistration(ctx, ev.ID, primitive.NewObjectID(), "Member", "+1555066600"+string(rune('0'+i)))
		if err != nil {
			break
		}
		regIDs = append(regIDs, reg.ID)
	}
	for i := 0; i < 4; i++ {
		req, _, err := env.svc.SubmitGuestGroup(ctx, ev.ID, primitive.NewObjectID(),
			"Sponsor", "+15550007777", 2, twoGuests(), "")
		if err != nil {
			break
		}
		reqIDs = append(reqIDs, req.ID)
	}

	check := func() {
		t.Helper()
		admitted, _ := env.regs.CountAdmitted(ctx, ev.ID)
		sum, _ := env.guests.SumApprovedGuests(ctx, ev.ID, nil)
		if admitted+sum > int64(ev.Capacity) {
			t.Fatalf("capacity invariant violated: %d admitted + %d guests > %d", admitted, sum, ev.Capacity)
		}
	}

	for _, id := range regIDs {
		_, err := env.svc.DecideSelfRegistration(ctx, id, true, "")
		var denied *AdmissionDeniedError
		if err != nil && !errors.As(err, &denied) {
			t.Fatalf("approve registration: %v", err)
		}
		check()
	}
	for _, id := range reqIDs {
		_, err := env.svc.DecideGuestGroup(ctx, id, true, "")
		var denied *AdmissionDeniedError
		if err != nil && !errors.As(err, &denied) {
			t.Fatalf("approve group: %v", err)
		}
		check()
	}
}
