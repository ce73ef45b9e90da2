package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"eventsys/internal/auth"
	"eventsys/internal/model"
	"eventsys/internal/store"
)

type UserHandler struct {
	users         *store.UserStore
	events        *store.EventStore
	notifications *store.NotificationStore
	logger        *slog.Logger
}

func NewUserHandler(us *store.UserStore, es *store.EventStore, ns *store.NotificationStore, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: us, events: es, notifications: ns, logger: logger}
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetByID(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("get user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get profile")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

type profileRequest struct {
	Name           string `json:"name"`
	ProfilePicture string `json:"profile_picture"`
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	user, err := h.users.UpdateProfile(auth.UserID(r.Context()), req.Name, req.ProfilePicture)
	if err != nil {
		h.logger.Error("update profile", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update profile")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

type dashboardResponse struct {
	Owned     []model.Event `json:"owned"`
	Attending []model.Event `json:"attending"`
	Unread    int           `json:"unread"`
}

// Dashboard aggregates what the landing page needs into one response.
func (h *UserHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	owned, err := h.events.ListByOwner(userID)
	if err != nil {
		h.logger.Error("dashboard owned events", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}
	attending, err := h.events.ListAttending(userID)
	if err != nil {
		h.logger.Error("dashboard attending events", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}
	unread, err := h.notifications.CountUnread(userID)
	if err != nil {
		h.logger.Error("dashboard unread count", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}

	if owned == nil {
		owned = []model.Event{}
	}
	if attending == nil {
		attending = []model.Event{}
	}

	writeJSON(w, http.StatusOK, dashboardResponse{
		Owned:     owned,
		Attending: attending,
		Unread:    unread,
	})
}
