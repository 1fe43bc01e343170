// internal/app/features/participation/handler_test.go
package participation_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gatherhub/gatherhub/internal/app/features/participation"
	"github.com/gatherhub/gatherhub/internal/app/notify"
	"github.com/gatherhub/gatherhub/internal/app/system/auth"
	"github.com/gatherhub/gatherhub/internal/testutil"
	"go.uber.org/zap"
)

// captureScheduler records scheduled payloads instead of dispatching.
type captureScheduler struct {
	mu       sync.Mutex
	payloads []notify.Payload
}

func (c *captureScheduler) Schedule(p notify.Payload) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.payloads = append(c.payloads, p)
}

func (c *captureScheduler) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.payloads)
}

func sessionFor(id, name, role string) *auth.SessionUser {
	return &auth.SessionUser{ID: id, Name: name, LoginID: name, Role: role}
}

func TestRegistrationFlow(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	fx := testutil.NewFixtures(t, db)
	org := fx.CreateOrganization(ctx, "Maker Collective")
	group := fx.CreateGroup(ctx, org.ID, "Woodshop Crew")
	event := fx.CreateEvent(ctx, group.ID, "Fall Social", 10, true)
	user := fx.CreateUser(ctx, "Dana Wells", "dana@example.com", "573-555-0148", "member")

	sched := &captureScheduler{}
	h := participation.NewHandler(db, sched, zap.NewNop(), false)
	session := sessionFor(user.ID.Hex(), user.FullName, "member")

	// Submit: approval required, so the registration starts pending.
	body := `{"event_id":"` + event.ID.Hex() + `","contact_phone":"573-555-0148"}`
	req := testutil.SignedInRequest(
		httptest.NewRequest("POST", "/participation/registrations", strings.NewReader(body)), session)
	rec := httptest.NewRecorder()
	h.HandleSubmitRegistration(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit status = %d, body %s", rec.Code, rec.Body.String())
	}
	var submitted struct {
		ID   string `json:"id"`
		View struct {
			Admitted   bool   `json:"admitted"`
			StatusText string `json:"status_text"`
		} `json:"view"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &submitted); err != nil {
		t.Fatalf("parse submit response: %v", err)
	}
	if submitted.View.Admitted || submitted.View.StatusText != "Pending" {
		t.Fatalf("submitted view = %+v", submitted.View)
	}

	// Approve. The response view flips to admitted and a notification
	// is scheduled.
	req = testutil.WithChiURLParam(
		httptest.NewRequest("POST", "/participation/registrations/"+submitted.ID+"/decision",
			strings.NewReader(`{"approve":true}`)), "id", submitted.ID)
	rec = httptest.NewRecorder()
	h.HandleDecideRegistration(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("decision status = %d, body %s", rec.Code, rec.Body.String())
	}
	var decided struct {
		CheckInCode string `json:"checkin_code"`
		View        struct {
			Admitted bool `json:"admitted"`
		} `json:"view"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &decided); err != nil {
		t.Fatalf("parse decision response: %v", err)
	}
	if !decided.View.Admitted || decided.CheckInCode == "" {
		t.Fatalf("decided = %+v", decided)
	}
	if sched.count() != 1 {
		t.Errorf("scheduled notifications = %d, want 1", sched.count())
	}

	// Deciding again conflicts.
	req = testutil.WithChiURLParam(
		httptest.NewRequest("POST", "/participation/registrations/"+submitted.ID+"/decision",
			strings.NewReader(`{"approve":true}`)), "id", submitted.ID)
	rec = httptest.NewRecorder()
	h.HandleDecideRegistration(rec, req)
	if rec.Code != http.StatusConflict {
		t.Errorf("second decision status = %d, want 409", rec.Code)
	}

	// Lookup by phone finds the registration with its canonical view.
	req = testutil.SignedInRequest(
		httptest.NewRequest("GET", "/participation/lookup?phone=573-555-0148", nil), session)
	rec = httptest.NewRecorder()
	h.HandleLookupByContact(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("lookup status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), submitted.ID) {
		t.Errorf("lookup missing registration: %s", rec.Body.String())
	}
}

func TestGuestGroupFlow(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	fx := testutil.NewFixtures(t, db)
	org := fx.CreateOrganization(ctx, "Maker Collective")
	group := fx.CreateGroup(ctx, org.ID, "Woodshop Crew")
	event := fx.CreateEvent(ctx, group.ID, "Fall Social", 10, true)
	sponsor := fx.CreateUser(ctx, "Riley Moore", "riley@example.com", "573-555-0190", "member")

	sched := &captureScheduler{}
	h := participation.NewHandler(db, sched, zap.NewNop(), false)
	session := sessionFor(sponsor.ID.Hex(), sponsor.FullName, "member")

	// Submit a group of two.
	body := `{"event_id":"` + event.ID.Hex() + `","sponsor_phone":"573-555-0190","guest_count":2,` +
		`"guests":[{"name":"Ada Byrne"},{"name":"Cole Byrne","phone":"573-555-0191"}],"note":"cousins"}`
	req := testutil.SignedInRequest(
		httptest.NewRequest("POST", "/participation/guest-requests", strings.NewReader(body)), session)
	rec := httptest.NewRecorder()
	h.HandleSubmitGuestGroup(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit status = %d, body %s", rec.Code, rec.Body.String())
	}
	var submitted struct {
		Request struct {
			ID string `json:"id"`
		} `json:"request"`
		Entries []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"entries"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &submitted); err != nil {
		t.Fatalf("parse submit response: %v", err)
	}
	if len(submitted.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(submitted.Entries))
	}

	// Approve the whole group: entries get GUEST_ codes.
	req = testutil.WithChiURLParam(
		httptest.NewRequest("POST", "/participation/guest-requests/"+submitted.Request.ID+"/decision",
			strings.NewReader(`{"approve":true}`)), "id", submitted.Request.ID)
	rec = httptest.NewRecorder()
	h.HandleDecideGuestGroup(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("decision status = %d, body %s", rec.Code, rec.Body.String())
	}

	// The detail view shows every entry admitted with a code.
	req = testutil.WithChiURLParam(
		httptest.NewRequest("GET", "/participation/guest-requests/"+submitted.Request.ID, nil),
		"id", submitted.Request.ID)
	rec = httptest.NewRecorder()
	h.HandleGetGuestRequest(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("detail status = %d", rec.Code)
	}
	var detail struct {
		Entries []struct {
			View struct {
				Admitted    bool   `json:"admitted"`
				CheckInCode string `json:"checkin_code"`
			} `json:"view"`
		} `json:"entries"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &detail); err != nil {
		t.Fatalf("parse detail response: %v", err)
	}
	if len(detail.Entries) != 2 {
		t.Fatalf("detail entries = %d, want 2", len(detail.Entries))
	}
	for i, e := range detail.Entries {
		if !e.View.Admitted || !strings.HasPrefix(e.View.CheckInCode, "GUEST_") {
			t.Errorf("entry %d view = %+v", i, e.View)
		}
	}

	// Check in one guest.
	entryID := submitted.Entries[0].ID
	req = testutil.WithChiURLParam(
		httptest.NewRequest("POST", "/participation/guest-entries/"+entryID+"/checkin", nil),
		"id", entryID)
	rec = httptest.NewRecorder()
	h.HandleCheckInGuestEntry(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("checkin status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"status_text":"Registered"`) {
		t.Errorf("checkin body = %s", rec.Body.String())
	}
}

func TestGuestGroupCapacityDenied(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	fx := testutil.NewFixtures(t, db)
	org := fx.CreateOrganization(ctx, "Maker Collective")
	group := fx.CreateGroup(ctx, org.ID, "Woodshop Crew")
	event := fx.CreateEvent(ctx, group.ID, "Tiny Venue", 1, true)
	sponsor := fx.CreateUser(ctx, "Riley Moore", "riley@example.com", "573-555-0190", "member")

	h := participation.NewHandler(db, &captureScheduler{}, zap.NewNop(), false)
	session := sessionFor(sponsor.ID.Hex(), sponsor.FullName, "member")

	body := `{"event_id":"` + event.ID.Hex() + `","sponsor_phone":"573-555-0190","guest_count":2,` +
		`"guests":[{"name":"Ada Byrne"},{"name":"Cole Byrne"}]}`
	req := testutil.SignedInRequest(
		httptest.NewRequest("POST", "/participation/guest-requests", strings.NewReader(body)), session)
	rec := httptest.NewRecorder()
	h.HandleSubmitGuestGroup(rec, req)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409, body %s", rec.Code, rec.Body.String())
	}
	var denied struct {
		Remaining *int64 `json:"remaining"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &denied); err != nil {
		t.Fatalf("parse denial: %v", err)
	}
	if denied.Remaining == nil || *denied.Remaining != 1 {
		t.Errorf("remaining = %v, want 1", denied.Remaining)
	}
}

func TestGetGuestRequestNotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := participation.NewHandler(db, &captureScheduler{}, zap.NewNop(), false)

	id := "64b0c0ffee64b0c0ffee64b0"
	req := testutil.WithChiURLParam(
		httptest.NewRequest("GET", "/participation/guest-requests/"+id, nil), "id", id)
	rec := httptest.NewRecorder()
	h.HandleGetGuestRequest(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
