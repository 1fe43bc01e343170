// internal/app/features/participation/handler.go
package participation

import (
	"errors"
	"net/http"

	"github.com/gatherhub/gatherhub/internal/app/admission"
	"github.com/gatherhub/gatherhub/internal/app/features/shared"
	"github.com/gatherhub/gatherhub/internal/app/reconcile"
	eventstore "github.com/gatherhub/gatherhub/internal/app/store/events"
	guestrequeststore "github.com/gatherhub/gatherhub/internal/app/store/guestrequests"
	registrationstore "github.com/gatherhub/gatherhub/internal/app/store/registrations"
	"github.com/gatherhub/gatherhub/internal/app/system/authz"
	"github.com/gatherhub/gatherhub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler is the feature-level entry point for Participation: the
// self-registration and guest-list flows of an event, plus the
// participant-facing status lookups.
type Handler struct {
	Admission *admission.Service
	Lookup    *reconcile.Lookup
	Log       *zap.Logger
}

// NewHandler constructs a Participation handler. The scheduler receives
// notification payloads after each committed status change; pass the
// running dispatcher from bootstrap.
func NewHandler(db *mongo.Database, scheduler admission.Scheduler, logger *zap.Logger, strictCapacity bool) *Handler {
	events := eventstore.New(db)
	regs := registrationstore.New(db)
	guests := guestrequeststore.New(db)
	return &Handler{
		Admission: admission.NewService(events, regs, guests, scheduler, logger, strictCapacity),
		Lookup:    reconcile.NewLookup(regs, guests),
		Log:       logger,
	}
}

type submitRegistrationInput struct {
	EventID      string `json:"event_id"`
	ContactName  string `json:"contact_name"`
	ContactPhone string `json:"contact_phone"`
}

// HandleSubmitRegistration handles POST /participation/registrations.
func (h *Handler) HandleSubmitRegistration(w http.ResponseWriter, r *http.Request) {
	_, name, userID, ok := authz.UserCtx(r)
	if !ok {
		shared.Error(w, http.StatusUnauthorized, "not signed in")
		return
	}
	var in submitRegistrationInput
	if err := shared.Decode(r, &in); err != nil {
		shared.Error(w, http.StatusBadRequest, "malformed request body")
		return
	}
	eventID, ok := shared.ParseID(in.EventID)
	if !ok {
		shared.Error(w, http.StatusUnprocessableEntity, "invalid event_id")
		return
	}
	if in.ContactName == "" {
		in.ContactName = name
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "submit registration")
	defer cancel()

	reg, err := h.Admission.SubmitSelfRegistration(ctx, eventID, userID, in.ContactName, in.ContactPhone)
	if err != nil {
		shared.AdmissionError(w, h.Log, err)
		return
	}
	shared.JSON(w, http.StatusCreated, registrationPayload(reg))
}

type decisionInput struct {
	Approve bool   `json:"approve"`
	Reason  string `json:"reason"`
}

// HandleDecideRegistration handles POST /participation/registrations/{id}/decision.
func (h *Handler) HandleDecideRegistration(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IDParam(r, "id")
	if !ok {
		shared.Error(w, http.StatusBadRequest, "invalid registration id")
		return
	}
	var in decisionInput
	if err := shared.Decode(r, &in); err != nil {
		shared.Error(w, http.StatusBadRequest, "malformed request body")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "decide registration")
	defer cancel()

	reg, err := h.Admission.DecideSelfRegistration(ctx, id, in.Approve, in.Reason)
	if err != nil {
		shared.AdmissionError(w, h.Log, err)
		return
	}
	shared.JSON(w, http.StatusOK, registrationPayload(reg))
}

type cancelInput struct {
	Reason string `json:"reason"`
}

// HandleCancelRegistration handles POST /participation/registrations/{id}/cancel.
func (h *Handler) HandleCancelRegistration(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IDParam(r, "id")
	if !ok {
		shared.Error(w, http.StatusBadRequest, "invalid registration id")
		return
	}
	var in cancelInput
	_ = shared.Decode(r, &in) // body optional

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "cancel registration")
	defer cancel()

	reg, err := h.Admission.CancelSelfRegistration(ctx, id, in.Reason)
	if err != nil {
		shared.AdmissionError(w, h.Log, err)
		return
	}
	shared.JSON(w, http.StatusOK, registrationPayload(reg))
}

// HandleCheckInRegistration handles POST /participation/registrations/{id}/checkin.
func (h *Handler) HandleCheckInRegistration(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IDParam(r, "id")
	if !ok {
		shared.Error(w, http.StatusBadRequest, "invalid registration id")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "check in registration")
	defer cancel()

	reg, err := h.Admission.CheckInSelfRegistration(ctx, id)
	if err != nil {
		shared.AdmissionError(w, h.Log, err)
		return
	}
	shared.JSON(w, http.StatusOK, registrationPayload(reg))
}

type guestInput struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

type submitGuestGroupInput struct {
	EventID      string       `json:"event_id"`
	SponsorName  string       `json:"sponsor_name"`
	SponsorPhone string       `json:"sponsor_phone"`
	GuestCount   int          `json:"guest_count"`
	Guests       []guestInput `json:"guests"`
	Note         string       `json:"note"`
}

func admissionGuests(in []guestInput) []admission.GuestInput {
	out := make([]admission.GuestInput, 0, len(in))
	for _, g := range in {
		out = append(out, admission.GuestInput{Name: g.Name, Phone: g.Phone, Email: g.Email})
	}
	return out
}

// HandleSubmitGuestGroup handles POST /participation/guest-requests.
func (h *Handler) HandleSubmitGuestGroup(w http.ResponseWriter, r *http.Request) {
	_, name, sponsorID, ok := authz.UserCtx(r)
	if !ok {
		shared.Error(w, http.StatusUnauthorized, "not signed in")
		return
	}
	var in submitGuestGroupInput
	if err := shared.Decode(r, &in); err != nil {
		shared.Error(w, http.StatusBadRequest, "malformed request body")
		return
	}
	eventID, ok := shared.ParseID(in.EventID)
	if !ok {
		shared.Error(w, http.StatusUnprocessableEntity, "invalid event_id")
		return
	}
	if in.SponsorName == "" {
		in.SponsorName = name
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "submit guest group")
	defer cancel()

	req, entries, err := h.Admission.SubmitGuestGroup(ctx, eventID, sponsorID,
		in.SponsorName, in.SponsorPhone, in.GuestCount, admissionGuests(in.Guests), in.Note)
	if err != nil {
		shared.AdmissionError(w, h.Log, err)
		return
	}
	shared.JSON(w, http.StatusCreated, guestGroupPayload(req, entries))
}

type updateGuestGroupInput struct {
	GuestCount int          `json:"guest_count"`
	Guests     []guestInput `json:"guests"`
	Note       string       `json:"note"`
}

// HandleUpdateGuestGroup handles PUT /participation/guest-requests/{id}.
// Only pending requests may be edited.
func (h *Handler) HandleUpdateGuestGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IDParam(r, "id")
	if !ok {
		shared.Error(w, http.StatusBadRequest, "invalid request id")
		return
	}
	var in updateGuestGroupInput
	if err := shared.Decode(r, &in); err != nil {
		shared.Error(w, http.StatusBadRequest, "malformed request body")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "update guest group")
	defer cancel()

	req, entries, err := h.Admission.UpdateGuestGroup(ctx, id, in.GuestCount, admissionGuests(in.Guests), in.Note)
	if err != nil {
		shared.AdmissionError(w, h.Log, err)
		return
	}
	shared.JSON(w, http.StatusOK, guestGroupPayload(req, entries))
}

// HandleDecideGuestGroup handles POST /participation/guest-requests/{id}/decision.
func (h *Handler) HandleDecideGuestGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IDParam(r, "id")
	if !ok {
		shared.Error(w, http.StatusBadRequest, "invalid request id")
		return
	}
	var in decisionInput
	if err := shared.Decode(r, &in); err != nil {
		shared.Error(w, http.StatusBadRequest, "malformed request body")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "decide guest group")
	defer cancel()

	req, err := h.Admission.DecideGuestGroup(ctx, id, in.Approve, in.Reason)
	if err != nil {
		shared.AdmissionError(w, h.Log, err)
		return
	}
	shared.JSON(w, http.StatusOK, guestRequestPayload(req))
}

// HandleCancelGuestGroup handles POST /participation/guest-requests/{id}/cancel.
func (h *Handler) HandleCancelGuestGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IDParam(r, "id")
	if !ok {
		shared.Error(w, http.StatusBadRequest, "invalid request id")
		return
	}
	var in cancelInput
	_ = shared.Decode(r, &in) // body optional

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "cancel guest group")
	defer cancel()

	req, err := h.Admission.CancelGuestGroup(ctx, id, in.Reason)
	if err != nil {
		shared.AdmissionError(w, h.Log, err)
		return
	}
	shared.JSON(w, http.StatusOK, guestRequestPayload(req))
}

// HandleDecideGuestEntry handles POST /participation/guest-entries/{id}/decision.
func (h *Handler) HandleDecideGuestEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IDParam(r, "id")
	if !ok {
		shared.Error(w, http.StatusBadRequest, "invalid entry id")
		return
	}
	var in decisionInput
	if err := shared.Decode(r, &in); err != nil {
		shared.Error(w, http.StatusBadRequest, "malformed request body")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "decide guest entry")
	defer cancel()

	entry, err := h.Admission.DecideGuestEntry(ctx, id, in.Approve, in.Reason)
	if err != nil {
		shared.AdmissionError(w, h.Log, err)
		return
	}
	shared.JSON(w, http.StatusOK, guestEntryPayload(entry))
}

// HandleCancelGuestEntry handles POST /participation/guest-entries/{id}/cancel.
func (h *Handler) HandleCancelGuestEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IDParam(r, "id")
	if !ok {
		shared.Error(w, http.StatusBadRequest, "invalid entry id")
		return
	}
	var in cancelInput
	_ = shared.Decode(r, &in) // body optional

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "cancel guest entry")
	defer cancel()

	entry, err := h.Admission.CancelGuestEntry(ctx, id, in.Reason)
	if err != nil {
		shared.AdmissionError(w, h.Log, err)
		return
	}
	shared.JSON(w, http.StatusOK, guestEntryPayload(entry))
}

// HandleCheckInGuestEntry handles POST /participation/guest-entries/{id}/checkin.
func (h *Handler) HandleCheckInGuestEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IDParam(r, "id")
	if !ok {
		shared.Error(w, http.StatusBadRequest, "invalid entry id")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "check in guest entry")
	defer cancel()

	entry, err := h.Admission.CheckInGuestEntry(ctx, id)
	if err != nil {
		shared.AdmissionError(w, h.Log, err)
		return
	}
	shared.JSON(w, http.StatusOK, guestEntryPayload(entry))
}

// HandleLookupByContact handles GET /participation/lookup?phone=…
// It returns every participation tied to the phone number, each with
// its canonical status view.
func (h *Handler) HandleLookupByContact(w http.ResponseWriter, r *http.Request) {
	phone := r.URL.Query().Get("phone")
	if phone == "" {
		shared.Error(w, http.StatusBadRequest, "phone query parameter is required")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "lookup by contact")
	defer cancel()

	parts, err := h.Lookup.ByContact(ctx, phone)
	if err != nil {
		h.Log.Error("lookup by contact failed", zap.Error(err))
		shared.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	shared.JSON(w, http.StatusOK, parts)
}

// HandleGetGuestRequest handles GET /participation/guest-requests/{id}:
// the full request with every entry projected to its canonical view.
func (h *Handler) HandleGetGuestRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IDParam(r, "id")
	if !ok {
		shared.Error(w, http.StatusBadRequest, "invalid request id")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "get guest request")
	defer cancel()

	detail, err := h.Lookup.ByRequestID(ctx, id)
	if err != nil {
		if errors.Is(err, reconcile.ErrNotFound) {
			shared.Error(w, http.StatusNotFound, "guest request not found")
			return
		}
		h.Log.Error("get guest request failed", zap.Error(err))
		shared.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	shared.JSON(w, http.StatusOK, detail)
}
