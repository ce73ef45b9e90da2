package handler

import (
	"log/slog"
	"net/http"

	"eventsys/internal/auth"
	"eventsys/internal/model"
	"eventsys/internal/store"
)

type NotificationHandler struct {
	notifications *store.NotificationStore
	logger        *slog.Logger
}

func NewNotificationHandler(ns *store.NotificationStore, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{notifications: ns, logger: logger}
}

// List returns the caller's notifications, newest first. Pass unread=true to
// filter out read entries.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	onlyUnread := r.URL.Query().Get("unread") == "true"
	limit := parseLimit(r, 50, 200)

	notes, err := h.notifications.ListForUser(userID, onlyUnread, limit)
	if err != nil {
		h.logger.Error("list notifications", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list notifications")
		return
	}
	if notes == nil {
		notes = []model.Notification{}
	}

	writeJSON(w, http.StatusOK, notes)
}

// MarkRead flips one of the caller's notifications to read. Another user's
// notification is reported as not found, never touched.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	updated, err := h.notifications.MarkRead(id, auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("mark notification read", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to mark notification read")
		return
	}
	if !updated {
		writeError(w, http.StatusNotFound, "notification not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "read"})
}

func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.notifications.CountUnread(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("count unread", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to count notifications")
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"unread": count})
}
