// internal/app/features/organizations/handler.go
package organizations

import (
	"errors"
	"net/http"
	"time"

	"github.com/gatherhub/gatherhub/internal/app/features/shared"
	orgstore "github.com/gatherhub/gatherhub/internal/app/store/organizations"
	"github.com/gatherhub/gatherhub/internal/app/system/timeouts"
	"github.com/gatherhub/gatherhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler is the feature-level entry point for Organizations.
type Handler struct {
	Orgs *orgstore.Store
	Log  *zap.Logger
}

// NewHandler constructs an Organizations handler bound to a DB and logger.
func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{
		Orgs: orgstore.New(db),
		Log:  logger,
	}
}

type orgPayload struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	City        string    `json:"city,omitempty"`
	TimeZone    string    `json:"time_zone,omitempty"`
	ContactInfo string    `json:"contact_info,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

type orgInput struct {
	Name        string `json:"name"`
	City        string `json:"city"`
	TimeZone    string `json:"time_zone"`
	ContactInfo string `json:"contact_info"`
}

// HandleList handles GET /organizations.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list organizations")
	defer cancel()

	orgs, err := h.Orgs.List(ctx)
	if err != nil {
		h.Log.Error("list organizations failed", zap.Error(err))
		shared.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]orgPayload, 0, len(orgs))
	for _, o := range orgs {
		out = append(out, toPayload(o))
	}
	shared.JSON(w, http.StatusOK, out)
}

// HandleGet handles GET /organizations/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IDParam(r, "id")
	if !ok {
		shared.Error(w, http.StatusBadRequest, "invalid organization id")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get organization")
	defer cancel()

	org, err := h.Orgs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			shared.Error(w, http.StatusNotFound, "organization not found")
			return
		}
		h.Log.Error("get organization failed", zap.Error(err))
		shared.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	shared.JSON(w, http.StatusOK, toPayload(org))
}

// HandleCreate handles POST /organizations.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in orgInput
	if err := shared.Decode(r, &in); err != nil {
		shared.Error(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if in.Name == "" {
		shared.Error(w, http.StatusUnprocessableEntity, "name is required")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "create organization")
	defer cancel()

	org, err := h.Orgs.Create(ctx, modelFromInput(in))
	if err != nil {
		if errors.Is(err, orgstore.ErrDuplicateOrganization) {
			shared.Error(w, http.StatusConflict, "an organization with that name already exists")
			return
		}
		h.Log.Error("create organization failed", zap.Error(err))
		shared.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	shared.JSON(w, http.StatusCreated, toPayload(org))
}

// HandleUpdate handles PUT /organizations/{id}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IDParam(r, "id")
	if !ok {
		shared.Error(w, http.StatusBadRequest, "invalid organization id")
		return
	}
	var in orgInput
	if err := shared.Decode(r, &in); err != nil {
		shared.Error(w, http.StatusBadRequest, "malformed request body")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "update organization")
	defer cancel()

	if err := h.Orgs.UpdateInfo(ctx, id, in.Name, in.City, in.TimeZone, in.ContactInfo); err != nil {
		h.Log.Error("update organization failed", zap.Error(err))
		shared.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	org, err := h.Orgs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			shared.Error(w, http.StatusNotFound, "organization not found")
			return
		}
		h.Log.Error("reload organization failed", zap.Error(err))
		shared.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	shared.JSON(w, http.StatusOK, toPayload(org))
}

// HandleDelete handles DELETE /organizations/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IDParam(r, "id")
	if !ok {
		shared.Error(w, http.StatusBadRequest, "invalid organization id")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "delete organization")
	defer cancel()

	n, err := h.Orgs.Delete(ctx, id)
	if err != nil {
		h.Log.Error("delete organization failed", zap.Error(err))
		shared.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	if n == 0 {
		shared.Error(w, http.StatusNotFound, "organization not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toPayload(o models.Organization) orgPayload {
	return orgPayload{
		ID:          o.ID.Hex(),
		Name:        o.Name,
		City:        o.City,
		TimeZone:    o.TimeZone,
		ContactInfo: o.ContactInfo,
		Status:      o.Status,
		CreatedAt:   o.CreatedAt,
	}
}

func modelFromInput(in orgInput) models.Organization {
	return models.Organization{
		Name:        in.Name,
		City:        in.City,
		TimeZone:    in.TimeZone,
		ContactInfo: in.ContactInfo,
	}
}
