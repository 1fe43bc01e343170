// internal/app/features/login/handler.go
package login

import (
	"net/http"

	"github.com/gatherhub/gatherhub/internal/app/features/shared"
	userstore "github.com/gatherhub/gatherhub/internal/app/store/users"
	"github.com/gatherhub/gatherhub/internal/app/system/auth"
	"github.com/gatherhub/gatherhub/internal/app/system/status"
	"github.com/gatherhub/gatherhub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler is the feature-level entry point for sign-in.
type Handler struct {
	Users *userstore.Store
	SM    *auth.SessionManager
	Log   *zap.Logger
}

func NewHandler(db *mongo.Database, sm *auth.SessionManager, logger *zap.Logger) *Handler {
	return &Handler{
		Users: userstore.New(db),
		SM:    sm,
		Log:   logger,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// HandleLogin handles POST /login. Verifies the password and starts a
// session. Failures are uniformly 401 so the response never leaks
// whether the email exists.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := shared.Decode(r, &req); err != nil {
		shared.Error(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		shared.Error(w, http.StatusBadRequest, "email and password are required")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "login lookup")
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		shared.Error(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	if u.Status == status.Disabled {
		shared.Error(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	if !h.Users.VerifyPassword(u, req.Password) {
		h.Log.Info("failed login attempt", zap.String("email", u.Email))
		shared.Error(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	su := &auth.SessionUser{
		ID:      u.ID.Hex(),
		Name:    u.FullName,
		LoginID: u.Email,
		Role:    u.Role,
	}
	if u.OrganizationID != nil {
		su.OrganizationID = u.OrganizationID.Hex()
	}
	if err := h.SM.SignIn(w, r, su); err != nil {
		h.Log.Error("failed to establish session", zap.Error(err))
		shared.Error(w, http.StatusInternalServerError, "could not establish session")
		return
	}

	shared.JSON(w, http.StatusOK, loginResponse{
		ID:    su.ID,
		Name:  su.Name,
		Email: su.LoginID,
		Role:  su.Role,
	})
}
