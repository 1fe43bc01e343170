// internal/app/features/members/routes.go
package members

import (
	"github.com/gatherhub/gatherhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts all Member routes under the base path (typically
// "/members" from bootstrap).
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	// Signed-in users may view rosters and request to join groups.
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Get("/groups/{groupID}", h.HandleListMemberships)
		pr.Post("/groups/{groupID}/join", h.HandleJoin)
	})

	// Account creation is admin-only.
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Use(sm.RequireRole("admin"))
		pr.Post("/", h.HandleCreate)
	})

	// Approval decisions belong to leaders and admins.
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Use(sm.RequireRole("admin", "leader"))
		pr.Put("/groups/{groupID}/{userID}/approval", h.HandleSetApproval)
	})

	return r
}
