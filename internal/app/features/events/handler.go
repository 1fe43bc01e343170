// internal/app/features/events/handler.go
package events

import (
	"errors"
	"net/http"
	"time"

	"github.com/gatherhub/gatherhub/internal/app/features/shared"
	eventstore "github.com/gatherhub/gatherhub/internal/app/store/events"
	"github.com/gatherhub/gatherhub/internal/app/system/htmlsanitize"
	"github.com/gatherhub/gatherhub/internal/app/system/timeouts"
	"github.com/gatherhub/gatherhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler is the feature-level entry point for Events.
type Handler struct {
	Events *eventstore.Store
	Log    *zap.Logger
}

// NewHandler constructs an Events handler bound to a DB and logger.
func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{
		Events: eventstore.New(db),
		Log:    logger,
	}
}

type eventInput struct {
	GroupID          string    `json:"group_id"`
	Title            string    `json:"title"`
	Detail           string    `json:"detail"`
	Capacity         int       `json:"capacity"`
	RequiresApproval bool      `json:"requires_approval"`
	StartsAt         time.Time `json:"starts_at"`
	EndsAt           time.Time `json:"ends_at"`
}

// HandleList handles GET /events?group_id=…
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	groupHex := r.URL.Query().Get("group_id")
	if groupHex == "" {
		shared.Error(w, http.StatusBadRequest, "group_id query parameter is required")
		return
	}
	groupID, err := primitive.ObjectIDFromHex(groupHex)
	if err != nil {
		shared.Error(w, http.StatusBadRequest, "invalid group_id")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list events")
	defer cancel()

	evs, err := h.Events.ListByGroup(ctx, groupID)
	if err != nil {
		h.Log.Error("list events failed", zap.Error(err))
		shared.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	shared.JSON(w, http.StatusOK, evs)
}

// HandleGet handles GET /events/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IDParam(r, "id")
	if !ok {
		shared.Error(w, http.StatusBadRequest, "invalid event id")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get event")
	defer cancel()

	ev, err := h.Events.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			shared.Error(w, http.StatusNotFound, "event not found")
			return
		}
		h.Log.Error("get event failed", zap.Error(err))
		shared.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	shared.JSON(w, http.StatusOK, ev)
}

// HandleCreate handles POST /events.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in eventInput
	if err := shared.Decode(r, &in); err != nil {
		shared.Error(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if in.Title == "" {
		shared.Error(w, http.StatusUnprocessableEntity, "title is required")
		return
	}
	groupID, err := primitive.ObjectIDFromHex(in.GroupID)
	if err != nil {
		shared.Error(w, http.StatusUnprocessableEntity, "invalid group_id")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "create event")
	defer cancel()

	ev, err := h.Events.Create(ctx, models.Event{
		GroupID:          groupID,
		Title:            htmlsanitize.PlainText(in.Title),
		Detail:           htmlsanitize.Sanitize(in.Detail),
		Capacity:         in.Capacity,
		RequiresApproval: in.RequiresApproval,
		Active:           true,
		StartsAt:         in.StartsAt,
		EndsAt:           in.EndsAt,
	})
	if err != nil {
		h.Log.Error("create event failed", zap.Error(err))
		shared.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	shared.JSON(w, http.StatusCreated, ev)
}

// HandleUpdate handles PUT /events/{id}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IDParam(r, "id")
	if !ok {
		shared.Error(w, http.StatusBadRequest, "invalid event id")
		return
	}
	var in eventInput
	if err := shared.Decode(r, &in); err != nil {
		shared.Error(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if in.Title == "" {
		shared.Error(w, http.StatusUnprocessableEntity, "title is required")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "update event")
	defer cancel()

	err := h.Events.UpdateInfo(ctx, id,
		htmlsanitize.PlainText(in.Title), htmlsanitize.Sanitize(in.Detail),
		in.Capacity, in.RequiresApproval, in.StartsAt, in.EndsAt)
	if err != nil {
		h.Log.Error("update event failed", zap.Error(err))
		shared.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	ev, err := h.Events.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			shared.Error(w, http.StatusNotFound, "event not found")
			return
		}
		h.Log.Error("reload event failed", zap.Error(err))
		shared.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	shared.JSON(w, http.StatusOK, ev)
}

type activeInput struct {
	Active bool `json:"active"`
}

// HandleSetActive handles PUT /events/{id}/active. Deactivating an
// event closes it to new registrations and guest requests without
// touching existing ones.
func (h *Handler) HandleSetActive(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IDParam(r, "id")
	if !ok {
		shared.Error(w, http.StatusBadRequest, "invalid event id")
		return
	}
	var in activeInput
	if err := shared.Decode(r, &in); err != nil {
		shared.Error(w, http.StatusBadRequest, "malformed request body")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "set event active")
	defer cancel()

	if _, err := h.Events.GetByID(ctx, id); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			shared.Error(w, http.StatusNotFound, "event not found")
			return
		}
		h.Log.Error("load event failed", zap.Error(err))
		shared.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	if err := h.Events.SetActive(ctx, id, in.Active); err != nil {
		h.Log.Error("set event active failed", zap.Error(err))
		shared.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	shared.JSON(w, http.StatusOK, map[string]any{"id": id.Hex(), "active": in.Active})
}

// HandleDelete handles DELETE /events/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IDParam(r, "id")
	if !ok {
		shared.Error(w, http.StatusBadRequest, "invalid event id")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "delete event")
	defer cancel()

	n, err := h.Events.Delete(ctx, id)
	if err != nil {
		h.Log.Error("delete event failed", zap.Error(err))
		shared.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	if n == 0 {
		shared.Error(w, http.StatusNotFound, "event not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
