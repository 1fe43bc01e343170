// internal/app/features/groups/routes.go
package groups

import (
	"github.com/gatherhub/gatherhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts all Group routes under the base path (typically
// "/groups" from bootstrap).
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Get("/", h.HandleList)
		pr.Get("/{id}", h.HandleGet)
	})

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Use(sm.RequireRole("admin", "leader"))
		pr.Post("/", h.HandleCreate)
		pr.Put("/{id}", h.HandleUpdate)
	})

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Use(sm.RequireRole("admin"))
		pr.Delete("/{id}", h.HandleDelete)
	})

	return r
}
