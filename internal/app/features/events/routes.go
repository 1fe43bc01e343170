// internal/app/features/events/routes.go
package events

import (
	"github.com/gatherhub/gatherhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts all Event routes under the base path (typically
// "/events" from bootstrap).
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	// Any signed-in user may browse events.
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Get("/", h.HandleList)
		pr.Get("/{id}", h.HandleGet)
	})

	// Leaders and admins manage events.
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Use(sm.RequireRole("admin", "leader"))
		pr.Post("/", h.HandleCreate)
		pr.Put("/{id}", h.HandleUpdate)
		pr.Put("/{id}/active", h.HandleSetActive)
	})

	// Deletion is admin-only.
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Use(sm.RequireRole("admin"))
		pr.Delete("/{id}", h.HandleDelete)
	})

	return r
}
