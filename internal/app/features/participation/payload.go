// internal/app/features/participation/payload.go
package participation

import (
	"github.com/gatherhub/gatherhub/internal/app/reconcile"
	"github.com/gatherhub/gatherhub/internal/domain/models"
)

// Responses carry the stored row plus its canonical view so callers
// never have to reconcile the two status vocabularies themselves.

type registrationResponse struct {
	models.Registration
	View reconcile.View `json:"view"`
}

func registrationPayload(reg models.Registration) registrationResponse {
	return registrationResponse{Registration: reg, View: reconcile.Registration(reg)}
}

type guestRequestResponse struct {
	models.GuestRequest
	View reconcile.View `json:"view"`
}

func guestRequestPayload(req models.GuestRequest) guestRequestResponse {
	return guestRequestResponse{GuestRequest: req, View: reconcile.GuestRequest(req)}
}

type guestEntryResponse struct {
	models.GuestEntry
	View reconcile.View `json:"view"`
}

func guestEntryPayload(entry models.GuestEntry) guestEntryResponse {
	return guestEntryResponse{GuestEntry: entry, View: reconcile.GuestEntry(entry)}
}

type guestGroupResponse struct {
	Request guestRequestResponse `json:"request"`
	Entries []guestEntryResponse `json:"entries"`
}

func guestGroupPayload(req models.GuestRequest, entries []models.GuestEntry) guestGroupResponse {
	out := guestGroupResponse{Request: guestRequestPayload(req)}
	out.Entries = make([]guestEntryResponse, 0, len(entries))
	for _, e := range entries {
		out.Entries = append(out.Entries, guestEntryPayload(e))
	}
	return out
}
