// Package rsvp holds the membership ledger and event lifecycle rules:
// capacity-checked joins, idempotent leaves, owner-only mutation, and the
// notification/email fan-out those transitions trigger.
package rsvp

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"eventsys/internal/email"
	"eventsys/internal/mailer"
	"eventsys/internal/model"
	"eventsys/internal/store"
)

var (
	ErrEventNotFound    = errors.New("event not found")
	ErrNotOwner         = errors.New("not the event owner")
	ErrEventCancelled   = errors.New("event is cancelled")
	ErrAlreadyAttending = errors.New("already attending")
	ErrEventFull        = errors.New("event is full")
	ErrNotAttending     = errors.New("not attending")
)

// attendeePageSize bounds the cancellation fan-out batches.
const attendeePageSize = 100

type Service struct {
	events        *store.EventStore
	users         *store.UserStore
	notifications *store.NotificationStore
	mail          *mailer.Queue
	onNotify      func(userID, notificationID int64)
	logger        *slog.Logger
}

// NewService wires the lifecycle rules. onNotify, if non-nil, is invoked
// after each appended notification so callers can push live updates.
func NewService(es *store.EventStore, us *store.UserStore, ns *store.NotificationStore, mail *mailer.Queue, onNotify func(userID, notificationID int64), logger *slog.Logger) *Service {
	return &Service{
		events:        es,
		users:         us,
		notifications: ns,
		mail:          mail,
		onNotify:      onNotify,
		logger:        logger,
	}
}

func (s *Service) appendNotification(userID int64, message, link string) {
	note, err := s.notifications.Create(userID, message, link)
	if err != nil {
		s.logger.Error("append notification", "user", userID, "error", err)
		return
	}
	if s.onNotify != nil {
		s.onNotify(userID, note.ID)
	}
}

// EventParams are the caller-settable event fields.
type EventParams struct {
	Title        string
	Description  string
	Date         time.Time
	Location     string
	Image        string
	Categories   []string
	MaxAttendees int
	Price        float64
	IsPublic     bool
}

// Create makes a new Active event owned by ownerID.
func (s *Service) Create(ownerID int64, p EventParams) (*model.Event, error) {
	return s.events.Create(p.Title, p.Description, p.Date, p.Location, ownerID,
		p.Image, p.Categories, p.MaxAttendees, p.Price, p.IsPublic)
}

// Update rewrites an event's fields. Owner-only, Active-only.
func (s *Service) Update(eventID, requesterID int64, p EventParams) (*model.Event, error) {
	ev, err := s.events.GetByID(eventID)
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return nil, ErrEventNotFound
	}
	if ev.OwnerID != requesterID {
		return nil, ErrNotOwner
	}
	if ev.IsCancelled {
		return nil, ErrEventCancelled
	}
	return s.events.Update(eventID, p.Title, p.Description, p.Date, p.Location,
		p.Image, p.Categories, p.MaxAttendees, p.Price, p.IsPublic)
}

// Clone copies an event's descriptive fields into a fresh Active event owned
// by the cloning user. The attendee set is never copied.
func (s *Service) Clone(eventID, requesterID int64) (*model.Event, error) {
	ev, err := s.events.GetByID(eventID)
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return nil, ErrEventNotFound
	}
	return s.events.Create("Copy of "+ev.Title, ev.Description, ev.Date, ev.Location,
		requesterID, ev.Image, ev.Categories, ev.MaxAttendees, ev.Price, ev.IsPublic)
}

// Join adds the user to the event's attendee set. Capacity and membership
// are enforced in a single conditional insert, so concurrent joins cannot
// push the set past capacity. On success the event owner gets a notification
// and an email; both are best-effort and never undo the join.
func (s *Service) Join(eventID, userID int64) (*model.Event, error) {
	ev, err := s.events.GetByID(eventID)
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return nil, ErrEventNotFound
	}

	attending, err := s.events.IsAttending(eventID, userID)
	if err != nil {
		return nil, err
	}
	if attending {
		return nil, ErrAlreadyAttending
	}

	inserted, err := s.events.AddAttendee(eventID, userID)
	if err != nil {
		return nil, err
	}
	if !inserted {
		// The insert refused: either the last seat went to a concurrent
		// joiner, or this user raced themselves in.
		attending, err := s.events.IsAttending(eventID, userID)
		if err != nil {
			return nil, err
		}
		if attending {
			return nil, ErrAlreadyAttending
		}
		return nil, ErrEventFull
	}

	s.notifyOwnerOfRSVP(ev, userID)
	return ev, nil
}

func (s *Service) notifyOwnerOfRSVP(ev *model.Event, attendeeID int64) {
	attendee, err := s.users.GetByID(attendeeID)
	if err != nil || attendee == nil {
		s.logger.Error("rsvp: load attendee", "event", ev.ID, "user", attendeeID, "error", err)
		return
	}
	owner, err := s.users.GetByID(ev.OwnerID)
	if err != nil || owner == nil {
		// Owner record may be gone; the membership change stands.
		s.logger.Warn("rsvp: owner unavailable", "event", ev.ID, "owner", ev.OwnerID, "error", err)
		return
	}

	message := fmt.Sprintf("%s has RSVP'd to your event %q.", attendee.Name, ev.Title)
	link := fmt.Sprintf("/events/%d", ev.ID)
	s.appendNotification(owner.ID, message, link)

	subject, body := email.RSVPEmail(attendee.Name, ev)
	s.mail.Enqueue(owner.Email, subject, body)
}

// Leave removes the user from the attendee set. A non-member leave is a
// reported no-op, not a failure.
func (s *Service) Leave(eventID, userID int64) (*model.Event, error) {
	ev, err := s.events.GetByID(eventID)
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return nil, ErrEventNotFound
	}

	removed, err := s.events.RemoveAttendee(eventID, userID)
	if err != nil {
		return nil, err
	}
	if !removed {
		return nil, ErrNotAttending
	}
	return ev, nil
}

// Cancel flags the event cancelled and fans out one notification plus one
// email per current attendee. The record and its attendee set remain.
func (s *Service) Cancel(eventID, requesterID int64) (*model.Event, error) {
	ev, err := s.events.GetByID(eventID)
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return nil, ErrEventNotFound
	}
	if ev.OwnerID != requesterID {
		return nil, ErrNotOwner
	}
	if ev.IsCancelled {
		return nil, ErrEventCancelled
	}

	if err := s.events.Cancel(eventID); err != nil {
		return nil, err
	}
	ev.IsCancelled = true

	s.fanOutCancellation(ev)
	return ev, nil
}

func (s *Service) fanOutCancellation(ev *model.Event) {
	message := fmt.Sprintf("The event %q has been cancelled.", ev.Title)
	link := fmt.Sprintf("/events/%d", ev.ID)
	subject, body := email.CancellationEmail(ev)

	for offset := 0; ; offset += attendeePageSize {
		attendees, err := s.events.ListAttendees(ev.ID, attendeePageSize, offset)
		if err != nil {
			s.logger.Error("cancel: list attendees", "event", ev.ID, "error", err)
			return
		}
		for _, a := range attendees {
			s.appendNotification(a.UserID, message, link)
			s.mail.Enqueue(a.Email, subject, body)
		}
		if len(attendees) < attendeePageSize {
			return
		}
	}
}

// Delete removes the event record. Owner-only, Active-only; membership rows
// are cleaned by the cascade, so no dangling back-references survive.
func (s *Service) Delete(eventID, requesterID int64) error {
	ev, err := s.events.GetByID(eventID)
	if err != nil {
		return err
	}
	if ev == nil {
		return ErrEventNotFound
	}
	if ev.OwnerID != requesterID {
		return ErrNotOwner
	}
	if ev.IsCancelled {
		return ErrEventCancelled
	}
	return s.events.Delete(eventID)
}
