// internal/app/features/logout/handler.go
package logout

import (
	"net/http"

	"github.com/gatherhub/gatherhub/internal/app/features/shared"
	"github.com/gatherhub/gatherhub/internal/app/system/auth"
	"go.uber.org/zap"
)

// Handler ends sessions.
type Handler struct {
	SM  *auth.SessionManager
	Log *zap.Logger
}

func NewHandler(sm *auth.SessionManager, logger *zap.Logger) *Handler {
	return &Handler{SM: sm, Log: logger}
}

// HandleLogout handles POST /logout. Signing out an anonymous request is
// fine; the result is the same signed-out state.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.SM.SignOut(w, r); err != nil {
		h.Log.Error("failed to clear session", zap.Error(err))
		shared.Error(w, http.StatusInternalServerError, "could not sign out")
		return
	}
	shared.JSON(w, http.StatusOK, map[string]string{"status": "signed out"})
}
