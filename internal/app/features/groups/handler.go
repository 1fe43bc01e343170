// internal/app/features/groups/handler.go
package groups

import (
	"errors"
	"net/http"
	"time"

	"github.com/gatherhub/gatherhub/internal/app/features/shared"
	groupstore "github.com/gatherhub/gatherhub/internal/app/store/groups"
	"github.com/gatherhub/gatherhub/internal/app/system/timeouts"
	"github.com/gatherhub/gatherhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler is the feature-level entry point for Groups.
type Handler struct {
	Groups *groupstore.Store
	Log    *zap.Logger
}

// NewHandler constructs a Groups handler bound to a DB and logger.
func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{
		Groups: groupstore.New(db),
		Log:    logger,
	}
}

type groupPayload struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	OrganizationID string    `json:"organization_id"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

type groupInput struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	OrganizationID string `json:"organization_id"`
	Status         string `json:"status"`
}

// HandleList handles GET /groups?org_id=…
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	orgID, err := primitive.ObjectIDFromHex(r.URL.Query().Get("org_id"))
	if err != nil {
		shared.Error(w, http.StatusBadRequest, "org_id query parameter is required")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list groups")
	defer cancel()

	gs, err := h.Groups.ListByOrg(ctx, orgID)
	if err != nil {
		h.Log.Error("list groups failed", zap.Error(err))
		shared.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	out := make([]groupPayload, 0, len(gs))
	for _, g := range gs {
		out = append(out, toPayload(g))
	}
	shared.JSON(w, http.StatusOK, out)
}

// HandleGet handles GET /groups/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IDParam(r, "id")
	if !ok {
		shared.Error(w, http.StatusBadRequest, "invalid group id")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get group")
	defer cancel()

	g, err := h.Groups.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			shared.Error(w, http.StatusNotFound, "group not found")
			return
		}
		h.Log.Error("get group failed", zap.Error(err))
		shared.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	shared.JSON(w, http.StatusOK, toPayload(g))
}

// HandleCreate handles POST /groups.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in groupInput
	if err := shared.Decode(r, &in); err != nil {
		shared.Error(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if in.Name == "" {
		shared.Error(w, http.StatusUnprocessableEntity, "name is required")
		return
	}
	orgID, err := primitive.ObjectIDFromHex(in.OrganizationID)
	if err != nil {
		shared.Error(w, http.StatusUnprocessableEntity, "organization_id is required")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "create group")
	defer cancel()

	g, err := h.Groups.Create(ctx, models.Group{
		Name:           in.Name,
		Description:    in.Description,
		OrganizationID: orgID,
	})
	if err != nil {
		if errors.Is(err, groupstore.ErrDuplicateGroupName) {
			shared.Error(w, http.StatusConflict, "a group with that name already exists in this organization")
			return
		}
		h.Log.Error("create group failed", zap.Error(err))
		shared.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	shared.JSON(w, http.StatusCreated, toPayload(g))
}

// HandleUpdate handles PUT /groups/{id}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IDParam(r, "id")
	if !ok {
		shared.Error(w, http.StatusBadRequest, "invalid group id")
		return
	}
	var in groupInput
	if err := shared.Decode(r, &in); err != nil {
		shared.Error(w, http.StatusBadRequest, "malformed request body")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "update group")
	defer cancel()

	if err := h.Groups.UpdateInfo(ctx, id, in.Name, in.Description, in.Status); err != nil {
		h.Log.Error("update group failed", zap.Error(err))
		shared.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	g, err := h.Groups.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			shared.Error(w, http.StatusNotFound, "group not found")
			return
		}
		h.Log.Error("reload group failed", zap.Error(err))
		shared.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	shared.JSON(w, http.StatusOK, toPayload(g))
}

// HandleDelete handles DELETE /groups/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IDParam(r, "id")
	if !ok {
		shared.Error(w, http.StatusBadRequest, "invalid group id")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "delete group")
	defer cancel()

	n, err := h.Groups.Delete(ctx, id)
	if err != nil {
		h.Log.Error("delete group failed", zap.Error(err))
		shared.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	if n == 0 {
		shared.Error(w, http.StatusNotFound, "group not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toPayload(g models.Group) groupPayload {
	return groupPayload{
		ID:             g.ID.Hex(),
		Name:           g.Name,
		Description:    g.Description,
		OrganizationID: g.OrganizationID.Hex(),
		Status:         g.Status,
		CreatedAt:      g.CreatedAt,
	}
}
