// internal/app/features/participation/routes.go
package participation

import (
	"github.com/gatherhub/gatherhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts all Participation routes under the base path (typically
// "/participation" from bootstrap). Submission, editing, cancellation,
// and lookups are open to any signed-in user; decisions and check-in
// belong to leaders and admins.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Post("/registrations", h.HandleSubmitRegistration)
		pr.Post("/registrations/{id}/cancel", h.HandleCancelRegistration)

		pr.Post("/guest-requests", h.HandleSubmitGuestGroup)
		pr.Put("/guest-requests/{id}", h.HandleUpdateGuestGroup)
		pr.Post("/guest-requests/{id}/cancel", h.HandleCancelGuestGroup)
		pr.Post("/guest-entries/{id}/cancel", h.HandleCancelGuestEntry)

		pr.Get("/lookup", h.HandleLookupByContact)
		pr.Get("/guest-requests/{id}", h.HandleGetGuestRequest)
	})

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Use(sm.RequireRole("admin", "leader"))

		pr.Post("/registrations/{id}/decision", h.HandleDecideRegistration)
		pr.Post("/registrations/{id}/checkin", h.HandleCheckInRegistration)

		pr.Post("/guest-requests/{id}/decision", h.HandleDecideGuestGroup)
		pr.Post("/guest-entries/{id}/decision", h.HandleDecideGuestEntry)
		pr.Post("/guest-entries/{id}/checkin", h.HandleCheckInGuestEntry)
	})

	return r
}
