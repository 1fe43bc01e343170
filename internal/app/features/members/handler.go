// internal/app/features/members/handler.go
package members

import (
	"errors"
	"net/http"
	"time"

	"github.com/gatherhub/gatherhub/internal/app/features/shared"
	membershipstore "github.com/gatherhub/gatherhub/internal/app/store/memberships"
	userstore "github.com/gatherhub/gatherhub/internal/app/store/users"
	"github.com/gatherhub/gatherhub/internal/app/system/authz"
	"github.com/gatherhub/gatherhub/internal/app/system/timeouts"
	"github.com/gatherhub/gatherhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler is the feature-level entry point for Members: user accounts
// and group memberships.
type Handler struct {
	Users       *userstore.Store
	Memberships *membershipstore.Store
	Log         *zap.Logger
}

// NewHandler constructs a Members handler bound to a DB and logger.
func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{
		Users:       userstore.New(db),
		Memberships: membershipstore.New(db),
		Log:         logger,
	}
}

type memberInput struct {
	FullName       string `json:"full_name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	Role           string `json:"role"`
	OrganizationID string `json:"organization_id"`
	Password       string `json:"password"`
}

type memberPayload struct {
	ID        string    `json:"id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Role      string    `json:"role"`
	Status    string    `json:"status,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// HandleCreate handles POST /members: admin-side account creation.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in memberInput
	if err := shared.Decode(r, &in); err != nil {
		shared.Error(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if in.FullName == "" || in.Email == "" || in.Password == "" {
		shared.Error(w, http.StatusUnprocessableEntity, "full_name, email, and password are required")
		return
	}
	if in.Role == "" {
		in.Role = "member"
	}

	u := models.User{
		FullName: in.FullName,
		Email:    in.Email,
		Phone:    in.Phone,
		Role:     in.Role,
	}
	if in.OrganizationID != "" {
		orgID, err := primitive.ObjectIDFromHex(in.OrganizationID)
		if err != nil {
			shared.Error(w, http.StatusUnprocessableEntity, "invalid organization_id")
			return
		}
		u.OrganizationID = &orgID
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "create member")
	defer cancel()

	created, err := h.Users.Create(ctx, u, in.Password)
	if err != nil {
		if errors.Is(err, userstore.ErrDuplicateEmail) {
			shared.Error(w, http.StatusConflict, "a user with that email already exists")
			return
		}
		h.Log.Error("create member failed", zap.Error(err))
		shared.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	shared.JSON(w, http.StatusCreated, memberPayload{
		ID:        created.ID.Hex(),
		FullName:  created.FullName,
		Email:     created.Email,
		Phone:     created.Phone,
		Role:      created.Role,
		Status:    created.Status,
		CreatedAt: created.CreatedAt,
	})
}

type joinInput struct {
	Role string `json:"role"`
}

// HandleJoin handles POST /members/groups/{groupID}/join: the signed-in
// user requests membership, which starts Pending until a leader or
// admin decides it.
func (h *Handler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	groupID, ok := shared.IDParam(r, "groupID")
	if !ok {
		shared.Error(w, http.StatusBadRequest, "invalid group id")
		return
	}
	_, _, userID, ok := authz.UserCtx(r)
	if !ok {
		shared.Error(w, http.StatusUnauthorized, "not signed in")
		return
	}

	// The body is optional; a bare POST joins as a plain member.
	var in joinInput
	_ = shared.Decode(r, &in)
	role := in.Role
	if role == "" {
		role = "member"
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "join group")
	defer cancel()

	err := h.Memberships.Add(ctx, groupID, userID, role, models.MembershipPending)
	if err != nil {
		if errors.Is(err, membershipstore.ErrDuplicateMembership) {
			shared.Error(w, http.StatusConflict, "already a member of this group")
			return
		}
		if errors.Is(err, mongo.ErrNoDocuments) {
			shared.Error(w, http.StatusNotFound, "group or user not found")
			return
		}
		h.Log.Error("join group failed", zap.Error(err))
		shared.Error(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	shared.JSON(w, http.StatusCreated, map[string]string{
		"group_id": groupID.Hex(),
		"user_id":  userID.Hex(),
		"approval": string(models.MembershipPending),
	})
}

type approvalInput struct {
	Approval models.MembershipApproval `json:"approval"`
}

// HandleSetApproval handles PUT /members/groups/{groupID}/{userID}/approval.
// The approval state is a three-valued enum; only approved and rejected
// may be written here.
func (h *Handler) HandleSetApproval(w http.ResponseWriter, r *http.Request) {
	groupID, ok := shared.IDParam(r, "groupID")
	if !ok {
		shared.Error(w, http.StatusBadRequest, "invalid group id")
		return
	}
	userID, ok := shared.IDParam(r, "userID")
	if !ok {
		shared.Error(w, http.StatusBadRequest, "invalid user id")
		return
	}
	var in approvalInput
	if err := shared.Decode(r, &in); err != nil {
		shared.Error(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if in.Approval != models.MembershipApproved && in.Approval != models.MembershipRejected {
		shared.Error(w, http.StatusUnprocessableEntity, `approval must be "approved" or "rejected"`)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "set membership approval")
	defer cancel()

	n, err := h.Memberships.SetApproval(ctx, groupID, userID, in.Approval)
	if err != nil {
		h.Log.Error("set membership approval failed", zap.Error(err))
		shared.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	if n == 0 {
		shared.Error(w, http.StatusNotFound, "membership not found")
		return
	}
	shared.JSON(w, http.StatusOK, map[string]string{
		"group_id": groupID.Hex(),
		"user_id":  userID.Hex(),
		"approval": string(in.Approval),
	})
}

// HandleListMemberships handles GET /members/groups/{groupID}?approval=…
func (h *Handler) HandleListMemberships(w http.ResponseWriter, r *http.Request) {
	groupID, ok := shared.IDParam(r, "groupID")
	if !ok {
		shared.Error(w, http.StatusBadRequest, "invalid group id")
		return
	}
	approval := models.MembershipApproval(r.URL.Query().Get("approval"))

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list memberships")
	defer cancel()

	ms, err := h.Memberships.ListByGroup(ctx, groupID, approval)
	if err != nil {
		h.Log.Error("list memberships failed", zap.Error(err))
		shared.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	shared.JSON(w, http.StatusOK, ms)
}
