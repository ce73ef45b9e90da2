package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"eventsys/internal/auth"
	"eventsys/internal/model"
	"eventsys/internal/rsvp"
	"eventsys/internal/store"
	"eventsys/internal/websocket"
)

type EventHandler struct {
	svc    *rsvp.Service
	events *store.EventStore
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewEventHandler(svc *rsvp.Service, es *store.EventStore, hub *websocket.Hub, logger *slog.Logger) *EventHandler {
	return &EventHandler{svc: svc, events: es, hub: hub, logger: logger}
}

type eventRequest struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Date         string   `json:"date"`
	Location     string   `json:"location"`
	Image        string   `json:"image"`
	Categories   []string `json:"categories"`
	MaxAttendees int      `json:"max_attendees"`
	Price        float64  `json:"price"`
	IsPublic     bool     `json:"is_public"`
}

func (h *EventHandler) parseAndValidate(w http.ResponseWriter, r *http.Request) (rsvp.EventParams, bool) {
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return rsvp.EventParams{}, false
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return rsvp.EventParams{}, false
	}
	if strings.TrimSpace(req.Description) == "" {
		writeError(w, http.StatusBadRequest, "description is required")
		return rsvp.EventParams{}, false
	}
	if strings.TrimSpace(req.Location) == "" {
		writeError(w, http.StatusBadRequest, "location is required")
		return rsvp.EventParams{}, false
	}

	date, err := time.Parse(time.RFC3339, req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be RFC3339 format")
		return rsvp.EventParams{}, false
	}

	if req.MaxAttendees < 0 {
		writeError(w, http.StatusBadRequest, "max_attendees must not be negative")
		return rsvp.EventParams{}, false
	}
	if req.Price < 0 {
		writeError(w, http.StatusBadRequest, "price must not be negative")
		return rsvp.EventParams{}, false
	}

	return rsvp.EventParams{
		Title:        req.Title,
		Description:  req.Description,
		Date:         date.UTC(),
		Location:     strings.TrimSpace(req.Location),
		Image:        req.Image,
		Categories:   req.Categories,
		MaxAttendees: req.MaxAttendees,
		Price:        req.Price,
		IsPublic:     req.IsPublic,
	}, true
}

// writeServiceError maps the lifecycle sentinel errors onto HTTP statuses.
func (h *EventHandler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, rsvp.ErrEventNotFound):
		writeError(w, http.StatusNotFound, "event not found")
	case errors.Is(err, rsvp.ErrNotOwner):
		writeError(w, http.StatusForbidden, "only the event owner may do this")
	case errors.Is(err, rsvp.ErrEventCancelled):
		writeError(w, http.StatusConflict, "event is cancelled")
	case errors.Is(err, rsvp.ErrAlreadyAttending):
		writeError(w, http.StatusConflict, "already attending")
	case errors.Is(err, rsvp.ErrEventFull):
		writeError(w, http.StatusConflict, "event is full")
	case errors.Is(err, rsvp.ErrNotAttending):
		writeError(w, http.StatusConflict, "not attending")
	default:
		h.logger.Error("event operation", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 50, 200)

	var (
		events []model.Event
		err    error
	)
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		events, err = h.events.Search(q, limit)
	} else {
		events, err = h.events.ListPublic(limit)
	}
	if err != nil {
		h.logger.Error("list events", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	if events == nil {
		events = []model.Event{}
	}

	writeJSON(w, http.StatusOK, events)
}

type eventResponse struct {
	*model.Event
	AttendeeCount int  `json:"attendee_count"`
	IsAttending   bool `json:"is_attending"`
}

func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	event, err := h.events.GetByID(id)
	if err != nil {
		h.logger.Error("get event", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get event")
		return
	}
	if event == nil {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}

	count, err := h.events.CountAttendees(id)
	if err != nil {
		h.logger.Error("count attendees", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get event")
		return
	}

	resp := eventResponse{Event: event, AttendeeCount: count}
	if uid := auth.UserID(r.Context()); uid != 0 {
		attending, err := h.events.IsAttending(id, uid)
		if err != nil {
			h.logger.Error("is attending", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to get event")
			return
		}
		resp.IsAttending = attending
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	params, ok := h.parseAndValidate(w, r)
	if !ok {
		return
	}

	event, err := h.svc.Create(auth.UserID(r.Context()), params)
	if err != nil {
		h.logger.Error("create event", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create event")
		return
	}

	h.hub.Broadcast(websocket.NewMessage("event", "created", event.ID, nil))
	writeJSON(w, http.StatusCreated, event)
}

func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	params, ok := h.parseAndValidate(w, r)
	if !ok {
		return
	}

	event, err := h.svc.Update(id, auth.UserID(r.Context()), params)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.hub.Broadcast(websocket.NewMessage("event", "updated", event.ID, nil))
	writeJSON(w, http.StatusOK, event)
}

func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	if err := h.svc.Delete(id, auth.UserID(r.Context())); err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.hub.Broadcast(websocket.NewMessage("event", "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

func (h *EventHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	event, err := h.svc.Cancel(id, auth.UserID(r.Context()))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.hub.Broadcast(websocket.NewMessage("event", "cancelled", event.ID, nil))
	writeJSON(w, http.StatusOK, event)
}

func (h *EventHandler) Clone(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	clone, err := h.svc.Clone(id, auth.UserID(r.Context()))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.hub.Broadcast(websocket.NewMessage("event", "created", clone.ID, nil))
	writeJSON(w, http.StatusCreated, clone)
}

func (h *EventHandler) RSVP(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	event, err := h.svc.Join(id, auth.UserID(r.Context()))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.hub.Broadcast(websocket.NewMessage("event", "rsvp", event.ID, nil))
	writeJSON(w, http.StatusOK, map[string]string{"status": "attending"})
}

func (h *EventHandler) UnRSVP(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	event, err := h.svc.Leave(id, auth.UserID(r.Context()))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.hub.Broadcast(websocket.NewMessage("event", "unrsvp", event.ID, nil))
	writeJSON(w, http.StatusOK, map[string]string{"status": "not attending"})
}

func (h *EventHandler) Attendees(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	event, err := h.events.GetByID(id)
	if err != nil {
		h.logger.Error("get event", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list attendees")
		return
	}
	if event == nil {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}

	limit := parseLimit(r, 10, 200)
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}

	attendees, err := h.events.ListAttendees(id, limit, offset)
	if err != nil {
		h.logger.Error("list attendees", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list attendees")
		return
	}
	if attendees == nil {
		attendees = []model.Attendee{}
	}

	writeJSON(w, http.StatusOK, attendees)
}
