// internal/app/reconcile/reconcile.go

// Package reconcile projects the two participation status vocabularies
// (self-registration codes and guest codes) into one canonical,
// display-facing view. The guest vocabulary is the canonical one.
package reconcile

import (
	"time"

	"github.com/gatherhub/gatherhub/internal/domain/models"
)

// View is the unified read-only projection of any participation row.
type View struct {
	Admitted    bool               `json:"admitted"`
	CheckInCode string             `json:"checkin_code,omitempty"`
	CheckInTime *time.Time         `json:"checkin_time,omitempty"`
	Status      models.GuestStatus `json:"status"`
	StatusText  string             `json:"status_text"`
}

var registrationText = map[models.RegistrationStatus]string{
	models.RegistrationPending:   "Pending",
	models.RegistrationConfirmed: "Confirmed",
	models.RegistrationCheckedIn: "Checked In",
	models.RegistrationCancelled: "Cancelled",
}

var guestText = map[models.GuestStatus]string{
	models.GuestPending:             "Pending",
	models.GuestApproved:            "Approved",
	models.GuestRejected:            "Rejected",
	models.GuestCancelled:           "Cancelled",
	models.GuestPendingRegistration: "Pending Registration",
	models.GuestRegistered:          "Registered",
}

// RegistrationStatusText returns the display text for a raw
// self-registration code.
func RegistrationStatusText(s models.RegistrationStatus) string {
	if t, ok := registrationText[s]; ok {
		return t
	}
	return "Unknown"
}

// GuestStatusText returns the display text for a raw guest code.
func GuestStatusText(s models.GuestStatus) string {
	if t, ok := guestText[s]; ok {
		return t
	}
	return "Unknown"
}

// Registration reconciles a self-registration into the canonical view.
//
// The self-registration machine has no native Rejected value: a reject is
// stored as Cancelled with the reason in cancel_reason. That specific
// case is presented as Rejected here. A cancel without a reason stays
// Cancelled. Inherited behavior; readers depend on it.
func Registration(r models.Registration) View {
	v := View{
		Admitted:    r.Status != models.RegistrationCancelled,
		CheckInCode: r.CheckInCode,
		CheckInTime: r.CheckInAt,
	}
	switch r.Status {
	case models.RegistrationPending:
		v.Status = models.GuestPending
	case models.RegistrationConfirmed:
		v.Status = models.GuestApproved
	case models.RegistrationCheckedIn:
		v.Status = models.GuestRegistered
	case models.RegistrationCancelled:
		if r.CancelReason != "" {
			v.Status = models.GuestRejected
		} else {
			v.Status = models.GuestCancelled
		}
	default:
		v.Status = models.GuestPending
	}
	v.StatusText = GuestStatusText(v.Status)
	return v
}

// GuestRequest reconciles a guest request parent into the canonical view.
func GuestRequest(g models.GuestRequest) View {
	return View{
		Admitted:   g.Status != models.GuestRejected && g.Status != models.GuestCancelled,
		Status:     g.Status,
		StatusText: GuestStatusText(g.Status),
	}
}

// GuestEntry reconciles a single guest entry into the canonical view.
func GuestEntry(e models.GuestEntry) View {
	return View{
		Admitted:    e.Status != models.GuestRejected && e.Status != models.GuestCancelled,
		CheckInCode: e.CheckInCode,
		CheckInTime: e.CheckInAt,
		Status:      e.Status,
		StatusText:  GuestStatusText(e.Status),
	}
}
